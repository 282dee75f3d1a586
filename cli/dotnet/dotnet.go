package dotnet

// dotnet.go builds the dotnet CLI invocations used for restoring and running
// test projects.

import (
	"path/filepath"

	"github.com/perfgo/tctestaide/cli/runner"
)

// DefaultExecutable is used when no dotnet executable is configured.
const DefaultExecutable = "dotnet"

// Configuration the test projects were built with.
const Configuration = "Release"

// TestOptions contains options for a dotnet test invocation.
type TestOptions struct {
	Framework   string // Target framework, e.g. net8.0
	ResultsFile string // Path of the trx file to write
	NoRestore   bool   // Skip the implicit restore (--no-restore)
}

// ResultsFile returns the trx path for a target of the test project in projectDir.
func ResultsFile(projectDir, target string) string {
	return filepath.Join(projectDir, "TestResults", "testoutput-"+target+".trx")
}

// BuildRestoreArgs builds dotnet restore arguments.
func BuildRestoreArgs() []string {
	return []string{"restore"}
}

// BuildTestArgs builds dotnet test arguments for already built artifacts.
func BuildTestArgs(opts TestOptions) []string {
	args := []string{"test", "-c", Configuration, "-f", opts.Framework, "--no-build"}

	if opts.NoRestore {
		args = append(args, "--no-restore")
	}

	args = append(args, "--logger", "trx;LogFileName="+opts.ResultsFile)
	return args
}

// Restore returns the restore command for the project in projectDir.
func Restore(executable, projectDir string) runner.Command {
	return runner.Command{
		Name: executable,
		Args: BuildRestoreArgs(),
		Dir:  projectDir,
	}
}

// Test returns the test command for the project in projectDir.
func Test(executable, projectDir string, opts TestOptions) runner.Command {
	return runner.Command{
		Name: executable,
		Args: BuildTestArgs(opts),
		Dir:  projectDir,
	}
}
