package cli

// This file contains parsing and validation of the mandatory command line
// flags into Options.

import (
	"fmt"
	"strings"

	"github.com/perfgo/tctestaide/model"
	"github.com/urfave/cli/v2"
)

// Options are the validated inputs of a run.
type Options struct {
	// Product version that is being built
	Product model.VersionPair
	// Version that started supporting the runtime flavor
	Support model.VersionPair
	// Root directory scanned for test projects
	ProjectDir string
	// Write runtimeconfig.dev.json files and restore before testing
	UnixDependencies bool
	// Home directory for the probing paths; may be empty
	Home string
}

// ArgumentError reports a missing or malformed command line flag.
type ArgumentError struct {
	Flag   string
	Reason string
}

func (e *ArgumentError) Error() string {
	return fmt.Sprintf("flag --%s: %s", e.Flag, e.Reason)
}

func parseOptions(ctx *cli.Context) (Options, error) {
	var opts Options

	versions := []struct {
		flag string
		dst  *int
	}{
		{flagGitVersionMajor, &opts.Product.Major},
		{flagGitVersionMinor, &opts.Product.Minor},
		{flagNetCoreVersionMajor, &opts.Support.Major},
		{flagNetCoreVersionMinor, &opts.Support.Minor},
	}
	for _, v := range versions {
		if !ctx.IsSet(v.flag) {
			return Options{}, &ArgumentError{Flag: v.flag, Reason: "is required"}
		}
		value := ctx.Int(v.flag)
		if value < 0 {
			return Options{}, &ArgumentError{Flag: v.flag, Reason: fmt.Sprintf("must not be negative, got %d", value)}
		}
		*v.dst = value
	}

	if !ctx.IsSet(flagCurrentDirectory) {
		return Options{}, &ArgumentError{Flag: flagCurrentDirectory, Reason: "is required"}
	}
	opts.ProjectDir = ctx.String(flagCurrentDirectory)
	if strings.TrimSpace(opts.ProjectDir) == "" {
		return Options{}, &ArgumentError{Flag: flagCurrentDirectory, Reason: "must not be empty"}
	}

	if !ctx.IsSet(flagUnixDependencies) {
		return Options{}, &ArgumentError{Flag: flagUnixDependencies, Reason: "is required"}
	}
	switch value := ctx.String(flagUnixDependencies); value {
	case "true":
		opts.UnixDependencies = true
	case "false":
		opts.UnixDependencies = false
	default:
		return Options{}, &ArgumentError{Flag: flagUnixDependencies, Reason: fmt.Sprintf("must be true or false, got %q", value)}
	}

	opts.Home = ctx.String("home")
	return opts, nil
}
