package runtimeconfig

// runtimeconfig.go writes the <project>.runtimeconfig.dev.json descriptor
// that points the .NET host at additional package probing paths.

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// NuGetFallbackFolder is the SDK-wide fallback package folder on Linux.
const NuGetFallbackFolder = "/usr/share/dotnet/sdk/NuGetFallbackFolder"

// Descriptor is the content of a runtimeconfig.dev.json file.
type Descriptor struct {
	RuntimeOptions RuntimeOptions `json:"runtimeOptions"`
}

// RuntimeOptions holds the probing paths. The |arch| and |tfm| tokens are
// expanded by the .NET host, not by us.
type RuntimeOptions struct {
	AdditionalProbingPaths []string `json:"additionalProbingPaths"`
}

// FileName returns the descriptor file name for a test project.
func FileName(projectName string) string {
	return projectName + ".runtimeconfig.dev.json"
}

// New returns the descriptor for the given home directory.
func New(home string) Descriptor {
	return Descriptor{
		RuntimeOptions: RuntimeOptions{
			AdditionalProbingPaths: []string{
				home + "/.dotnet/store/|arch|/|tfm|",
				home + "/.nuget/packages",
				NuGetFallbackFolder,
			},
		},
	}
}

// Marshal encodes d as a single line of JSON without HTML escaping.
func (d Descriptor) Marshal() ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(d); err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

// Write replaces the descriptor for projectName in targetDir and returns the
// path of the written file.
func Write(targetDir, projectName, home string) (path string, err error) {
	data, err := New(home).Marshal()
	if err != nil {
		return "", fmt.Errorf("failed to encode runtime config: %w", err)
	}

	path = filepath.Join(targetDir, FileName(projectName))
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create runtime config: %w", err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("failed to close runtime config: %w", cerr)
		}
	}()

	if _, err := f.Write(data); err != nil {
		return "", fmt.Errorf("failed to write runtime config: %w", err)
	}

	return path, nil
}
