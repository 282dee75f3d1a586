package history

// This file contains run history utilities for recording, loading and
// parsing previous tctestaide runs.

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/gofrs/flock"
	"github.com/google/uuid"
	"github.com/perfgo/tctestaide/model"
	"github.com/rs/zerolog"
)

// FileName is the name of the metadata file inside a run directory.
const FileName = "history.json"

const lockFileName = ".lock"

type Entry struct {
	History  model.History
	FullPath string
}

// NewID returns a new run ID.
func NewID() string {
	return uuid.NewString()
}

// RunDirName returns the directory name of a run: <timestamp>-<short id>.
func RunDirName(h *model.History) string {
	shortID := h.ID
	if len(shortID) > 8 {
		shortID = shortID[:8]
	}
	return fmt.Sprintf("%s-%s", h.Timestamp.Format("20060102-150405"), shortID)
}

// Record writes h to <dir>/<run>/history.json and returns the run directory.
// Writers sharing dir are serialised with a file lock.
func Record(logger zerolog.Logger, dir string, h *model.History) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create history directory: %w", err)
	}

	lock := flock.New(filepath.Join(dir, lockFileName))
	if err := lock.Lock(); err != nil {
		return "", fmt.Errorf("failed to acquire lock on %s: %w", dir, err)
	}
	defer func() {
		if err := lock.Unlock(); err != nil {
			logger.Warn().Err(err).Str("dir", dir).Msg("Failed to release history lock")
		}
	}()

	runDir := filepath.Join(dir, RunDirName(h))
	if err := os.MkdirAll(runDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create run directory: %w", err)
	}

	data, err := json.MarshalIndent(h, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal history: %w", err)
	}

	if err := atomicWrite(filepath.Join(runDir, FileName), data); err != nil {
		return "", err
	}

	logger.Debug().Str("dir", runDir).Str("id", h.ID).Msg("Recorded run")
	return runDir, nil
}

// atomicWrite writes data next to path and renames it into place, so readers
// never see a partial file.
func atomicWrite(path string, data []byte) error {
	tempFile, err := os.CreateTemp(filepath.Dir(path), ".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tempPath := tempFile.Name()

	if _, err := tempFile.Write(data); err != nil {
		_ = tempFile.Close()
		_ = os.Remove(tempPath)
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tempFile.Close(); err != nil {
		_ = os.Remove(tempPath)
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Rename(tempPath, path); err != nil {
		_ = os.Remove(tempPath)
		return fmt.Errorf("failed to rename temp file to %s: %w", path, err)
	}
	return nil
}

// LoadEntries loads all history entries from dir, newest first.
func LoadEntries(logger zerolog.Logger, dir string) ([]Entry, error) {
	var entries []Entry

	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if d.IsDir() {
			historyPath := filepath.Join(path, FileName)
			if _, err := os.Stat(historyPath); err == nil {
				history, err := parseHistoryJSON(historyPath)
				if err != nil {
					logger.Warn().Err(err).Str("path", historyPath).Msg("Failed to parse history.json")
					return nil
				}

				entries = append(entries, Entry{
					History:  history,
					FullPath: path,
				})
			}
		}

		return nil
	})

	if err != nil {
		return nil, fmt.Errorf("failed to walk history directory: %w", err)
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].History.Timestamp.After(entries[j].History.Timestamp)
	})

	return entries, nil
}

// parseHistoryJSON parses a history.json file.
func parseHistoryJSON(historyPath string) (model.History, error) {
	data, err := os.ReadFile(historyPath)
	if err != nil {
		return model.History{}, err
	}

	var history model.History
	if err := json.Unmarshal(data, &history); err != nil {
		return model.History{}, err
	}

	return history, nil
}
