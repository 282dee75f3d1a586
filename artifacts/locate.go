package artifacts

// Package artifacts discovers test projects and the target framework folders
// they were built for.

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/perfgo/tctestaide/model"
	"github.com/rs/zerolog"
)

// TestProjectSuffix is the directory name suffix of a test project.
const TestProjectSuffix = "Tests"

// ReleaseDir returns the release output folder of a test project.
func ReleaseDir(projectDir string) string {
	return filepath.Join(projectDir, "bin", "Release")
}

// targetPatterns are matched against the folders in the release output, in
// this order. Results are concatenated pattern by pattern.
var targetPatterns = []*regexp.Regexp{
	regexp.MustCompile(`^netcoreapp`),
	regexp.MustCompile(`^net[0-9]+\.[0-9]+`),
	regexp.MustCompile(`^netstandard`),
}

// Locate scans root for "*Tests" directories and returns them with their
// target framework folders. A project without targets is returned with an
// empty Targets slice. Only an unreadable root is an error.
func Locate(logger zerolog.Logger, root string) ([]model.TestProject, error) {
	dirs, err := subdirectories(root)
	if err != nil {
		return nil, fmt.Errorf("failed to list test projects in %s: %w", root, err)
	}

	var projects []model.TestProject
	for _, name := range dirs {
		if !strings.HasSuffix(name, TestProjectSuffix) {
			continue
		}

		projectDir := filepath.Join(root, name)
		targets, err := Targets(projectDir)
		if err != nil {
			logger.Warn().Err(err).Str("dir", projectDir).Msg("Failed to read build output")
		}

		projects = append(projects, model.TestProject{
			Name:    name,
			Dir:     projectDir,
			Targets: targets,
		})
	}

	return projects, nil
}

// Targets lists the target framework folders below the release output of
// projectDir. A missing release folder yields no targets and no error; any
// other listing failure yields no targets together with the error.
func Targets(projectDir string) ([]model.Target, error) {
	releaseDir := ReleaseDir(projectDir)
	dirs, err := subdirectories(releaseDir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list build output in %s: %w", releaseDir, err)
	}

	var targets []model.Target
	for _, pattern := range targetPatterns {
		for _, name := range dirs {
			if pattern.MatchString(name) {
				targets = append(targets, model.Target{
					Name: name,
					Dir:  filepath.Join(releaseDir, name),
				})
			}
		}
	}

	return targets, nil
}

// subdirectories returns the names of the directories in dir, following
// symlinks.
func subdirectories(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var names []string
	for _, entry := range entries {
		if entry.IsDir() {
			names = append(names, entry.Name())
			continue
		}
		if entry.Type()&fs.ModeSymlink != 0 {
			info, err := os.Stat(filepath.Join(dir, entry.Name()))
			if err == nil && info.IsDir() {
				names = append(names, entry.Name())
			}
		}
	}
	return names, nil
}
