package cli

// This file contains listing of previously recorded runs.

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/perfgo/tctestaide/history"
	"github.com/urfave/cli/v2"
)

func (a *App) list(ctx *cli.Context) error {
	limit := ctx.Int("limit")

	dir := a.cfg.HistoryDir
	if dir == "" {
		return fmt.Errorf("no history directory configured: use --history-dir or history_dir in the config file")
	}

	entries, err := history.LoadEntries(a.logger, dir)
	if errors.Is(err, fs.ErrNotExist) {
		_, _ = fmt.Fprintln(a.stdout, "No runs found")
		_, _ = fmt.Fprintf(a.stdout, "Runs are saved to %s/<timestamp>-<id>/\n", dir)
		return nil
	}
	if err != nil {
		return err
	}

	if len(entries) == 0 {
		_, _ = fmt.Fprintln(a.stdout, "No runs found")
		return nil
	}

	// Apply limit
	displayRuns := entries
	if limit > 0 && limit < len(displayRuns) {
		displayRuns = displayRuns[:limit]
	}

	p := newPalette(a.stdout)
	w := a.stdout

	_, _ = fmt.Fprintf(w, "\n=== Runs (%d total) ===\n\n", len(entries))

	for _, entry := range displayRuns {
		h := entry.History
		timestamp := h.Timestamp.Format("2006-01-02 15:04:05")
		duration := h.Duration.Round(time.Millisecond)

		status := p.status(h.ExitCode)
		if h.Skipped {
			status = p.dim.Sprint("-")
		}

		// Show short ID (first 8 chars)
		shortID := h.ID
		if len(shortID) > 8 {
			shortID = shortID[:8]
		}

		_, _ = fmt.Fprintf(w, "%s  %s  [%s]  exit=%d  id=%s\n", status, timestamp, duration, h.ExitCode, shortID)
		if len(h.Args) > 1 {
			_, _ = fmt.Fprintf(w, "   Args: %s\n", strings.Join(h.Args[1:], " "))
		}
		if h.WorkDir != "" {
			_, _ = fmt.Fprintf(w, "   Path: %s\n", h.WorkDir)
		}
		_, _ = fmt.Fprintf(w, "   Version: %s (supported since %s)", h.Product, h.Support)
		if h.Skipped {
			_, _ = fmt.Fprint(w, ", skipped")
		}
		_, _ = fmt.Fprintln(w)
		for _, step := range h.Steps {
			if step.Target == "" {
				_, _ = fmt.Fprintf(w, "   %s %s: exit=%d\n", step.Kind, step.Project, step.ExitCode)
				continue
			}
			_, _ = fmt.Fprintf(w, "   %s %s %s: exit=%d\n", step.Kind, step.Project, step.Target, step.ExitCode)
		}
		_, _ = fmt.Fprintf(w, "   %s\n", entry.FullPath)
		_, _ = fmt.Fprintln(w)
	}

	return nil
}
