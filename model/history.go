package model

import "time"

// History represents a single recorded tctestaide execution.
type History struct {
	// Unique ID for this execution (UUID)
	ID string `json:"id"`
	// Timestamp when the execution started
	Timestamp time.Time `json:"timestamp"`
	// Command-line arguments (including command name)
	Args []string `json:"args"`
	// Root directory that was scanned for test projects
	WorkDir string `json:"workdir"`
	// Exit code of the execution
	ExitCode int `json:"exit_code"`
	// Duration of execution
	Duration time.Duration `json:"duration"`
	// Product version under test
	Product VersionPair `json:"product"`
	// Version that started supporting the runtime flavor
	Support VersionPair `json:"support"`
	// Set when the version gate skipped the run
	Skipped bool `json:"skipped,omitempty"`
	// Whether descriptors were written and restore ran
	UnixDependencies bool `json:"unix_dependencies,omitempty"`
	// Test projects that were discovered
	Projects []TestProject `json:"projects,omitempty"`
	// Restore and test invocations in execution order
	Steps []StepResult `json:"steps,omitempty"`
}
