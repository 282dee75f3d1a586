package model

import "time"

// StepKind identifies what produced a StepResult.
type StepKind string

const (
	StepKindRestore          StepKind = "restore"
	StepKindTest             StepKind = "test"
	StepKindMissingArtifacts StepKind = "missing-artifacts"
)

// MissingArtifactsExitCode is folded into the run for a test project without
// any recognised target framework folder.
const MissingArtifactsExitCode = 1

// StepResult is the outcome of one restore or test invocation, or of a
// missing-artifact detection.
type StepResult struct {
	Kind    StepKind `json:"kind"`
	Project string   `json:"project"`
	// Target framework name, empty for missing-artifacts steps
	Target   string `json:"target,omitempty"`
	ExitCode int    `json:"exit_code"`
	// Shell-quoted command line that was executed
	Command string `json:"command,omitempty"`
	// Path of the trx file requested from the test runner
	ResultsFile string        `json:"results_file,omitempty"`
	Duration    time.Duration `json:"duration,omitempty"`
}

// RunResult is the aggregate over all steps of a run.
type RunResult struct {
	ExitCode         int  `json:"exit_code"`
	MissingArtifacts bool `json:"missing_artifacts,omitempty"`
}

// Fold records step into the aggregate. The first non-zero exit code sticks.
func (r RunResult) Fold(step StepResult) RunResult {
	if step.Kind == StepKindMissingArtifacts {
		r.MissingArtifacts = true
	}
	if r.ExitCode == 0 {
		r.ExitCode = step.ExitCode
	}
	return r
}

// Aggregate folds steps in order, starting from a successful result.
func Aggregate(steps []StepResult) RunResult {
	var r RunResult
	for _, step := range steps {
		r = r.Fold(step)
	}
	return r
}
