package model

// TestProject is a "*Tests" directory below the scanned root together with
// the target framework folders found in its release output.
type TestProject struct {
	// Base name of the directory (e.g. "Core.Tests")
	Name string `json:"name"`
	// Absolute or root-relative path of the directory
	Dir string `json:"dir"`
	// Target framework folders in discovery order
	Targets []Target `json:"targets,omitempty"`
}

// Target is a single target framework output folder, e.g. bin/Release/net8.0.
type Target struct {
	// Folder name, passed to the test runner as the framework (e.g. "net8.0")
	Name string `json:"name"`
	// Path of the folder
	Dir string `json:"dir"`
}
