package cli

// This file contains the console summary printed after a run.

import (
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/perfgo/tctestaide/model"
)

type palette struct {
	ok   *color.Color
	fail *color.Color
	dim  *color.Color
}

func newPalette(w io.Writer) palette {
	p := palette{
		ok:   color.New(color.FgGreen),
		fail: color.New(color.FgRed, color.Bold),
		dim:  color.New(color.Faint),
	}
	if !isTerminal(w) {
		p.ok.DisableColor()
		p.fail.DisableColor()
		p.dim.DisableColor()
	}
	return p
}

func (p palette) status(code int) string {
	if code != 0 {
		return p.fail.Sprint("✗")
	}
	return p.ok.Sprint("✓")
}

func (a *App) printSummary(steps []model.StepResult, result model.RunResult) {
	if len(steps) == 0 {
		return
	}

	p := newPalette(a.stdout)
	w := a.stdout

	_, _ = fmt.Fprintf(w, "\n=== Test Summary (%d steps) ===\n\n", len(steps))
	for _, step := range steps {
		switch step.Kind {
		case model.StepKindMissingArtifacts:
			_, _ = fmt.Fprintf(w, "%s  %-8s %s  no artifacts found\n", p.status(step.ExitCode), "artifact", step.Project)
		default:
			_, _ = fmt.Fprintf(w, "%s  %-8s %s  %s  exit=%d\n", p.status(step.ExitCode), step.Kind, step.Project, step.Target, step.ExitCode)
			if step.ResultsFile != "" {
				_, _ = fmt.Fprintf(w, "   %s\n", p.dim.Sprint(step.ResultsFile))
			}
		}
	}

	_, _ = fmt.Fprintf(w, "\n%s exit code %d", p.status(result.ExitCode), result.ExitCode)
	if result.MissingArtifacts {
		_, _ = fmt.Fprint(w, " (artifacts missing)")
	}
	_, _ = fmt.Fprintln(w)
}
