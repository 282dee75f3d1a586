package cli

// This file contains the main workflow: version gate, artifact discovery,
// dependency patching, test execution and exit code aggregation.

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/perfgo/tctestaide/artifacts"
	"github.com/perfgo/tctestaide/cli/dotnet"
	"github.com/perfgo/tctestaide/cli/runner"
	"github.com/perfgo/tctestaide/history"
	"github.com/perfgo/tctestaide/model"
	"github.com/perfgo/tctestaide/runtimeconfig"
	"github.com/urfave/cli/v2"
)

func (a *App) run(ctx *cli.Context) error {
	startTime := time.Now()

	opts, err := parseOptions(ctx)
	if err != nil {
		var argErr *ArgumentError
		if errors.As(err, &argErr) {
			_, _ = fmt.Fprintf(a.stderr, "Incorrect Usage: %s\n\n", argErr)
			_ = cli.ShowAppHelp(ctx)
			return cli.Exit("", 1)
		}
		return err
	}

	a.logger.Info().
		Int("gitVersionMajor", opts.Product.Major).
		Int("gitVersionMinor", opts.Product.Minor).
		Int("netCoreMajorSupport", opts.Support.Major).
		Int("netCoreMinorSupport", opts.Support.Minor).
		Str("currentDirectory", opts.ProjectDir).
		Bool("unixDependencies", opts.UnixDependencies).
		Msg("Parsed arguments")

	rec := &model.History{
		ID:               history.NewID(),
		Timestamp:        startTime,
		Args:             a.args,
		WorkDir:          opts.ProjectDir,
		Product:          opts.Product,
		Support:          opts.Support,
		UnixDependencies: opts.UnixDependencies,
	}
	defer func() {
		rec.Duration = time.Since(startTime)
		a.recordHistory(rec)
	}()

	if !model.Supported(opts.Product, opts.Support) {
		a.logger.Info().
			Stringer("version", opts.Product).
			Stringer("supported_since", opts.Support).
			Msg("This version doesn't support netcore, no netcore tests required")
		rec.Skipped = true
		return nil
	}

	projects, err := artifacts.Locate(a.logger, opts.ProjectDir)
	if err != nil {
		a.logger.Error().Err(err).Msg("Failed to locate test projects")
		rec.ExitCode = 1
		return err
	}
	rec.Projects = projects

	if len(projects) == 0 {
		a.logger.Info().Str("dir", opts.ProjectDir).Msg("No test projects found")
	}

	steps := a.testProjects(ctx.Context, opts, projects)
	result := model.Aggregate(steps)
	rec.Steps = steps
	rec.ExitCode = result.ExitCode

	a.printSummary(steps, result)

	if result.ExitCode != 0 {
		return cli.Exit("", result.ExitCode)
	}
	return nil
}

// testProjects restores and tests every target of every project, strictly in
// order, and returns one StepResult per action.
func (a *App) testProjects(ctx context.Context, opts Options, projects []model.TestProject) []model.StepResult {
	r := a.processRunner()

	if opts.UnixDependencies && opts.Home == "" {
		a.logger.Warn().Msg("Home directory is empty, NuGet probing paths will be relative to /")
	}

	var steps []model.StepResult
	for _, project := range projects {
		if len(project.Targets) == 0 {
			a.logger.Error().
				Str("dir", project.Dir).
				Str("release_dir", artifacts.ReleaseDir(project.Dir)).
				Msg("Unable to find artifacts")
			steps = append(steps, model.StepResult{
				Kind:     model.StepKindMissingArtifacts,
				Project:  project.Name,
				ExitCode: model.MissingArtifactsExitCode,
			})
			continue
		}

		for _, target := range project.Targets {
			restored := false
			if opts.UnixDependencies {
				step := a.restore(ctx, r, opts.Home, project, target)
				steps = append(steps, step)
				restored = step.Command != ""
			}

			steps = append(steps, a.test(ctx, r, project, target, restored))
		}
	}

	return steps
}

// restore writes the runtimeconfig.dev.json for target and restores the
// packages of project.
func (a *App) restore(ctx context.Context, r runner.Runner, home string, project model.TestProject, target model.Target) model.StepResult {
	step := model.StepResult{
		Kind:    model.StepKindRestore,
		Project: project.Name,
		Target:  target.Name,
	}

	a.logger.Info().
		Str("file", runtimeconfig.FileName(project.Name)).
		Str("target", target.Name).
		Msg("Creating runtimeconfig.dev.json for resolving Unix-specific dependencies from NuGet packages")

	path, err := runtimeconfig.Write(target.Dir, project.Name, home)
	if err != nil {
		a.logger.Error().Err(err).Str("dir", target.Dir).Msg("Failed to write runtime config")
		step.ExitCode = 1
		return step
	}
	a.logger.Debug().Str("path", path).Msg("Runtime config written")

	cmd := dotnet.Restore(a.cfg.Dotnet, project.Dir)
	step.Command = cmd.String()

	a.logger.Info().Str("dir", project.Dir).Msg("Restoring dependencies")
	res := r.Run(ctx, cmd)
	a.relay(res)

	step.ExitCode = res.ExitCode
	step.Duration = res.Duration
	if res.ExitCode != 0 {
		a.logger.Warn().Int("exit_code", res.ExitCode).Str("dir", project.Dir).Msg("Restore failed")
	}
	return step
}

// test runs the tests of project for target.
func (a *App) test(ctx context.Context, r runner.Runner, project model.TestProject, target model.Target, restored bool) model.StepResult {
	resultsFile := dotnet.ResultsFile(project.Dir, target.Name)
	cmd := dotnet.Test(a.cfg.Dotnet, project.Dir, dotnet.TestOptions{
		Framework:   target.Name,
		ResultsFile: resultsFile,
		NoRestore:   restored,
	})

	a.logger.Info().
		Str("dir", project.Dir).
		Str("target", target.Name).
		Msg("Running tests")

	res := r.Run(ctx, cmd)
	a.relay(res)

	if res.ExitCode != 0 {
		a.logger.Info().
			Int("exit_code", res.ExitCode).
			Str("target", target.Name).
			Msg("Tests completed with failures")
	} else {
		a.logger.Info().Str("target", target.Name).Msg("Tests completed successfully")
	}

	return model.StepResult{
		Kind:        model.StepKindTest,
		Project:     project.Name,
		Target:      target.Name,
		ExitCode:    res.ExitCode,
		Command:     cmd.String(),
		ResultsFile: resultsFile,
		Duration:    res.Duration,
	}
}

// relay copies the captured output of a finished process to the console.
func (a *App) relay(res runner.Result) {
	if res.Stdout != "" {
		_, _ = fmt.Fprint(a.stdout, withNewline(res.Stdout))
	}
	if res.Stderr != "" {
		_, _ = fmt.Fprint(a.stderr, withNewline(res.Stderr))
	}
}

func withNewline(s string) string {
	if strings.HasSuffix(s, "\n") {
		return s
	}
	return s + "\n"
}

func (a *App) recordHistory(rec *model.History) {
	if a.cfg.HistoryDir == "" {
		return
	}

	runDir, err := history.Record(a.logger, a.cfg.HistoryDir, rec)
	if err != nil {
		a.logger.Warn().Err(err).Msg("Failed to record history")
		return
	}
	a.logger.Debug().Str("dir", runDir).Msg("Run recorded")
}
