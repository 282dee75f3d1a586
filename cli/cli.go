package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/perfgo/tctestaide/cli/dotnet"
	"github.com/perfgo/tctestaide/cli/runner"
	"github.com/perfgo/tctestaide/config"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"
)

const AppName = "tctestaide"

// Long names of the mandatory flags.
const (
	flagGitVersionMajor     = "gitversionmajor"
	flagGitVersionMinor     = "gitversionminor"
	flagNetCoreVersionMajor = "netcoreversionmajor"
	flagNetCoreVersionMinor = "netcoreversionminor"
	flagCurrentDirectory    = "currentdirectory"
	flagUnixDependencies    = "unixdependencies"
)

type App struct {
	logger zerolog.Logger
	cli    *cli.App
	cfg    *config.Config

	stdout io.Writer
	stderr io.Writer
	// runner overrides the process runner, used by tests
	runner runner.Runner
	// args of the current invocation, kept for the run history
	args []string
}

// Option configures an App.
type Option func(*App)

// WithRunner replaces the runner used to start dotnet.
func WithRunner(r runner.Runner) Option {
	return func(a *App) {
		a.runner = r
	}
}

// WithOutput redirects relayed process output and help text to stdout, and
// logs to stderr.
func WithOutput(stdout, stderr io.Writer) Option {
	return func(a *App) {
		a.stdout = stdout
		a.stderr = stderr
	}
}

func New(opts ...Option) *App {
	app := &App{
		cfg:    config.Default(),
		stdout: os.Stdout,
		stderr: os.Stderr,
	}
	for _, opt := range opts {
		opt(app)
	}

	app.logger = log.Output(zerolog.ConsoleWriter{
		Out:        app.stderr,
		TimeFormat: time.RFC3339Nano,
		NoColor:    !isTerminal(app.stderr),
	}).Level(zerolog.InfoLevel)

	app.cli = &cli.App{
		Name:      AppName,
		Usage:     "Run already built .NET test projects for every target framework",
		Writer:    app.stdout,
		ErrWriter: app.stderr,
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    flagGitVersionMajor,
				Aliases: []string{"gvmaj"},
				Usage:   "Value pulled from GitVersion.Major parameter in TeamCity (required)",
			},
			&cli.IntFlag{
				Name:    flagGitVersionMinor,
				Aliases: []string{"gvmin"},
				Usage:   "Value pulled from GitVersion.Minor parameter in TeamCity (required)",
			},
			&cli.IntFlag{
				Name:    flagNetCoreVersionMajor,
				Aliases: []string{"ncmaj"},
				Usage:   "Major version that started .NET Core support (required)",
			},
			&cli.IntFlag{
				Name:    flagNetCoreVersionMinor,
				Aliases: []string{"ncmin"},
				Usage:   "Minor version that started .NET Core support (required)",
			},
			&cli.StringFlag{
				Name:    flagCurrentDirectory,
				Aliases: []string{"curdir"},
				Usage:   "The working directory that the current project is being run in (required)",
			},
			&cli.StringFlag{
				Name:    flagUnixDependencies,
				Aliases: []string{"udep"},
				Usage:   "Create a runtimeconfig.dev.json file and restore dependencies, true or false (required)",
			},
			&cli.BoolFlag{
				Name:  "verbose",
				Usage: "Enable verbose (debug) logging",
			},
			&cli.PathFlag{
				Name:  "config",
				Usage: "YAML configuration file",
			},
			&cli.StringFlag{
				Name:  "dotnet",
				Usage: "dotnet executable used for restore and test",
				Value: dotnet.DefaultExecutable,
			},
			&cli.DurationFlag{
				Name:  "timeout",
				Usage: "Stop a restore or test run after this duration (0 waits for ever)",
			},
			&cli.PathFlag{
				Name:    "history-dir",
				Usage:   "Record each run below this directory",
				EnvVars: []string{"TCTESTAIDE_HISTORY_DIR"},
			},
			&cli.StringFlag{
				Name:    "home",
				Usage:   "Home directory used for the NuGet probing paths",
				EnvVars: []string{"HOME"},
			},
		},
		Before: app.before,
		Action: app.run,
		// Exit codes are mapped by the caller, never exit from inside Run
		ExitErrHandler: func(*cli.Context, error) {},
	}
	app.cli.Commands = append(app.cli.Commands, &cli.Command{
		Name:   "list",
		Usage:  "List previous runs recorded in the history directory",
		Action: app.list,
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "limit",
				Aliases: []string{"n"},
				Usage:   "Limit number of results",
				Value:   20,
			},
		},
	})
	return app
}

func (a *App) Run(args []string) error {
	a.args = args
	return a.cli.Run(args)
}

// SetVersion sets the version information for the CLI application
func (a *App) SetVersion(version, commit, date string) {
	a.cli.Version = version
	if commit != "none" && commit != "" {
		if len(commit) > 8 {
			commit = commit[:8]
		}
		a.cli.Version = fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date)
	}
}

// ExitCode maps an error returned by Run to the process exit status.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	var exitErr cli.ExitCoder
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode()
	}
	return 1
}

func (a *App) before(ctx *cli.Context) error {
	cfg := config.Default()
	if path := ctx.Path("config"); path != "" {
		loaded, err := config.Load(path)
		if err != nil {
			return err
		}
		cfg = loaded
	}

	// Flags given on the command line win over the file
	if ctx.IsSet("dotnet") || cfg.Dotnet == "" {
		cfg.Dotnet = ctx.String("dotnet")
	}
	if ctx.IsSet("timeout") {
		if ctx.Duration("timeout") < 0 {
			return fmt.Errorf("invalid timeout %s: must not be negative", ctx.Duration("timeout"))
		}
		cfg.Timeout = ctx.Duration("timeout")
	}
	if ctx.IsSet("history-dir") {
		cfg.HistoryDir = ctx.Path("history-dir")
	}
	if ctx.Bool("verbose") {
		cfg.LogLevel = zerolog.DebugLevel.String()
	}

	level, err := config.ParseLogLevel(cfg.LogLevel)
	if err != nil {
		return err
	}
	a.logger = a.logger.Level(level)
	a.cfg = cfg

	a.logger.Debug().
		Str("dotnet", cfg.Dotnet).
		Dur("timeout", cfg.Timeout).
		Str("history_dir", cfg.HistoryDir).
		Msg("Loaded configuration")
	return nil
}

func (a *App) processRunner() runner.Runner {
	if a.runner != nil {
		return a.runner
	}
	return runner.New(a.logger, a.cfg.Timeout)
}

// isTerminal reports whether w is a terminal that can render colours.
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
