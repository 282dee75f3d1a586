package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/perfgo/tctestaide/cli/runner"
	"github.com/perfgo/tctestaide/history"
	"github.com/perfgo/tctestaide/model"
)

// fakeRunner records commands and answers with scripted exit codes, in order.
type fakeRunner struct {
	exitCodes []int
	calls     []runner.Command
}

func (f *fakeRunner) Run(_ context.Context, cmd runner.Command) runner.Result {
	f.calls = append(f.calls, cmd)
	code := 0
	if len(f.exitCodes) > 0 {
		code = f.exitCodes[0]
		f.exitCodes = f.exitCodes[1:]
	}
	return runner.Result{
		Stdout:   "stdout of " + cmd.Args[0],
		Stderr:   "stderr of " + cmd.Args[0],
		ExitCode: code,
	}
}

// commandLines returns "<dir> <args>" for every recorded call.
func (f *fakeRunner) commandLines(root string) []string {
	var lines []string
	for _, c := range f.calls {
		rel, _ := filepath.Rel(root, c.Dir)
		line := rel
		for _, arg := range c.Args {
			line += " " + arg
		}
		lines = append(lines, line)
	}
	return lines
}

type result struct {
	code   int
	stdout string
	stderr string
}

func runApp(t *testing.T, r runner.Runner, args ...string) result {
	t.Helper()
	var stdout, stderr bytes.Buffer
	var opts []Option
	if r != nil {
		opts = append(opts, WithRunner(r))
	}
	opts = append(opts, WithOutput(&stdout, &stderr))

	err := New(opts...).Run(append([]string{AppName}, args...))
	return result{code: ExitCode(err), stdout: stdout.String(), stderr: stderr.String()}
}

func mkdirs(t *testing.T, root string, dirs ...string) {
	t.Helper()
	for _, dir := range dirs {
		require.NoError(t, os.MkdirAll(filepath.Join(root, dir), 0755))
	}
}

func flags(root, udep string) []string {
	return []string{
		"-gvmaj", "8", "-gvmin", "1",
		"-ncmaj", "7", "-ncmin", "0",
		"-curdir", root,
		"-udep", udep,
		"--home", "/home/build",
	}
}

func TestRunVersionGate(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{name: "major not supported", args: []string{"-gvmaj", "6", "-gvmin", "4", "-ncmaj", "7", "-ncmin", "0"}},
		{name: "minor not supported", args: []string{"--gitversionmajor", "7", "--gitversionminor", "1", "--netcoreversionmajor", "7", "--netcoreversionminor", "2"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := &fakeRunner{}
			// The directory does not exist, so any scan would fail the run.
			missing := filepath.Join(t.TempDir(), "missing")
			args := append(tt.args, "-curdir", missing, "-udep", "true")

			res := runApp(t, r, args...)
			require.Equal(t, 0, res.code)
			require.Empty(t, r.calls)
			require.Contains(t, res.stderr, "no netcore tests required")
		})
	}
}

func TestRunNoTestProjects(t *testing.T) {
	root := t.TempDir()
	mkdirs(t, root, "Core/bin/Release/net8.0")

	r := &fakeRunner{}
	res := runApp(t, r, flags(root, "true")...)
	require.Equal(t, 0, res.code)
	require.Empty(t, r.calls)
}

func TestRunMissingRoot(t *testing.T) {
	r := &fakeRunner{}
	res := runApp(t, r, flags(filepath.Join(t.TempDir(), "missing"), "false")...)
	require.Equal(t, 1, res.code)
	require.Empty(t, r.calls)
}

func TestRunTests(t *testing.T) {
	root := t.TempDir()
	mkdirs(t, root,
		"A.Tests/bin/Release/net8.0",
		"A.Tests/bin/Release/netcoreapp3.1",
		"B.Tests/bin/Release/netstandard2.0",
	)

	r := &fakeRunner{}
	res := runApp(t, r, flags(root, "false")...)
	require.Equal(t, 0, res.code)

	want := []string{
		"A.Tests test -c Release -f netcoreapp3.1 --no-build --logger trx;LogFileName=" + filepath.Join(root, "A.Tests", "TestResults", "testoutput-netcoreapp3.1.trx"),
		"A.Tests test -c Release -f net8.0 --no-build --logger trx;LogFileName=" + filepath.Join(root, "A.Tests", "TestResults", "testoutput-net8.0.trx"),
		"B.Tests test -c Release -f netstandard2.0 --no-build --logger trx;LogFileName=" + filepath.Join(root, "B.Tests", "TestResults", "testoutput-netstandard2.0.trx"),
	}
	if diff := cmp.Diff(want, r.commandLines(root)); diff != "" {
		t.Errorf("commands mismatch (-want +got):\n%s", diff)
	}
	for _, c := range r.calls {
		assert.Equal(t, "dotnet", c.Name)
	}

	// No descriptors without unix dependencies.
	matches, err := filepath.Glob(filepath.Join(root, "*", "bin", "Release", "*", "*.runtimeconfig.dev.json"))
	require.NoError(t, err)
	require.Empty(t, matches)

	require.Contains(t, res.stdout, "stdout of test")
	require.Contains(t, res.stderr, "stderr of test")
	require.Contains(t, res.stdout, "=== Test Summary (3 steps) ===")
}

func TestRunUnixDependencies(t *testing.T) {
	root := t.TempDir()
	mkdirs(t, root,
		"A.Tests/bin/Release/net8.0",
		"A.Tests/bin/Release/netstandard2.0",
	)

	r := &fakeRunner{}
	res := runApp(t, r, flags(root, "true")...)
	require.Equal(t, 0, res.code)

	resultsFile := func(target string) string {
		return filepath.Join(root, "A.Tests", "TestResults", "testoutput-"+target+".trx")
	}
	want := []string{
		"A.Tests restore",
		"A.Tests test -c Release -f net8.0 --no-build --no-restore --logger trx;LogFileName=" + resultsFile("net8.0"),
		"A.Tests restore",
		"A.Tests test -c Release -f netstandard2.0 --no-build --no-restore --logger trx;LogFileName=" + resultsFile("netstandard2.0"),
	}
	if diff := cmp.Diff(want, r.commandLines(root)); diff != "" {
		t.Errorf("commands mismatch (-want +got):\n%s", diff)
	}

	for _, target := range []string{"net8.0", "netstandard2.0"} {
		dir := filepath.Join(root, "A.Tests", "bin", "Release", target)
		files, err := filepath.Glob(filepath.Join(dir, "*.runtimeconfig.dev.json"))
		require.NoError(t, err)
		require.Equal(t, []string{filepath.Join(dir, "A.Tests.runtimeconfig.dev.json")}, files)

		data, err := os.ReadFile(files[0])
		require.NoError(t, err)
		require.Equal(t,
			`{"runtimeOptions":{"additionalProbingPaths":["/home/build/.dotnet/store/|arch|/|tfm|","/home/build/.nuget/packages","/usr/share/dotnet/sdk/NuGetFallbackFolder"]}}`,
			string(data),
		)
	}
}

func TestRunFirstNonZeroExitCodeWins(t *testing.T) {
	root := t.TempDir()
	mkdirs(t, root,
		"A.Tests/bin/Release/netcoreapp3.1",
		"A.Tests/bin/Release/net6.0",
		"A.Tests/bin/Release/netstandard2.0",
	)

	r := &fakeRunner{exitCodes: []int{3, 0, 5}}
	res := runApp(t, r, flags(root, "false")...)
	require.Equal(t, 3, res.code)
	require.Len(t, r.calls, 3)
	require.Contains(t, res.stdout, "exit code 3")
}

func TestRunRestoreFailureIsNotFatal(t *testing.T) {
	root := t.TempDir()
	mkdirs(t, root, "A.Tests/bin/Release/net8.0", "B.Tests/bin/Release/net8.0")

	// restore A fails, test A fails, restore B and test B succeed
	r := &fakeRunner{exitCodes: []int{2, 4, 0, 0}}
	res := runApp(t, r, flags(root, "true")...)
	require.Equal(t, 2, res.code)
	require.Len(t, r.calls, 4)
	require.Equal(t, "test", r.calls[1].Args[0])
	require.Equal(t, "test", r.calls[3].Args[0])
}

func TestRunMissingArtifacts(t *testing.T) {
	root := t.TempDir()
	mkdirs(t, root,
		"A.Tests/bin/Release/publish",
		"B.Tests/bin/Release/net8.0",
		"C.Tests",
	)

	r := &fakeRunner{}
	res := runApp(t, r, flags(root, "false")...)
	require.Equal(t, 1, res.code)

	// Scanning continues after a project without artifacts.
	require.Len(t, r.calls, 1)
	require.Equal(t, filepath.Join(root, "B.Tests"), r.calls[0].Dir)
	require.Contains(t, res.stderr, "Unable to find artifacts")
	require.Contains(t, res.stdout, "artifacts missing")
}

func TestRunUnreadableReleaseDir(t *testing.T) {
	root := t.TempDir()
	mkdirs(t, root, "A.Tests", "B.Tests/bin/Release/net8.0")
	require.NoError(t, os.WriteFile(filepath.Join(root, "A.Tests", "bin"), nil, 0644))

	r := &fakeRunner{}
	res := runApp(t, r, flags(root, "false")...)
	require.Equal(t, 1, res.code)

	require.Len(t, r.calls, 1)
	require.Equal(t, filepath.Join(root, "B.Tests"), r.calls[0].Dir)
	require.Contains(t, res.stderr, "Failed to read build output")
	require.Contains(t, res.stderr, "Unable to find artifacts")
}

func TestRunSymlinkedTarget(t *testing.T) {
	root := t.TempDir()
	mkdirs(t, root, "A.Tests/bin/Release", "out/net8.0")
	require.NoError(t, os.Symlink(filepath.Join(root, "out", "net8.0"), filepath.Join(root, "A.Tests", "bin", "Release", "net8.0")))

	r := &fakeRunner{}
	res := runApp(t, r, flags(root, "false")...)
	require.Equal(t, 0, res.code)
	require.Len(t, r.calls, 1)
	require.Contains(t, r.calls[0].Args, "net8.0")
}

func TestRunDescriptorWriteFailure(t *testing.T) {
	root := t.TempDir()
	// A directory in place of the descriptor makes the write fail.
	mkdirs(t, root, "A.Tests/bin/Release/net8.0/A.Tests.runtimeconfig.dev.json")

	r := &fakeRunner{}
	res := runApp(t, r, flags(root, "true")...)
	require.Equal(t, 1, res.code)

	// Restore is skipped, the tests still run and restore on their own.
	require.Len(t, r.calls, 1)
	require.Equal(t, "test", r.calls[0].Args[0])
	require.NotContains(t, r.calls[0].Args, "--no-restore")
	require.Contains(t, res.stderr, "Failed to write runtime config")
}

func TestRunArgumentErrors(t *testing.T) {
	root := t.TempDir()
	mkdirs(t, root, "A.Tests/bin/Release/net8.0")

	tests := []struct {
		name string
		args []string
	}{
		{name: "no flags", args: nil},
		{name: "missing udep", args: []string{"-gvmaj", "8", "-gvmin", "1", "-ncmaj", "7", "-ncmin", "0", "-curdir", root}},
		{name: "missing curdir", args: []string{"-gvmaj", "8", "-gvmin", "1", "-ncmaj", "7", "-ncmin", "0", "-udep", "false"}},
		{name: "missing minor", args: []string{"-gvmaj", "8", "-ncmaj", "7", "-ncmin", "0", "-curdir", root, "-udep", "false"}},
		{name: "udep not a boolean", args: []string{"-gvmaj", "8", "-gvmin", "1", "-ncmaj", "7", "-ncmin", "0", "-curdir", root, "-udep", "yes"}},
		{name: "udep wrong case", args: []string{"-gvmaj", "8", "-gvmin", "1", "-ncmaj", "7", "-ncmin", "0", "-curdir", root, "-udep", "True"}},
		{name: "version not an integer", args: []string{"-gvmaj", "eight", "-gvmin", "1", "-ncmaj", "7", "-ncmin", "0", "-curdir", root, "-udep", "false"}},
		{name: "negative version", args: []string{"-gvmaj", "-1", "-gvmin", "1", "-ncmaj", "7", "-ncmin", "0", "-curdir", root, "-udep", "false"}},
		{name: "empty curdir", args: []string{"-gvmaj", "8", "-gvmin", "1", "-ncmaj", "7", "-ncmin", "0", "-curdir", "", "-udep", "false"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := &fakeRunner{}
			res := runApp(t, r, tt.args...)
			require.Equal(t, 1, res.code)
			require.Empty(t, r.calls)
		})
	}
}

func TestRunArgumentErrorPrintsUsage(t *testing.T) {
	res := runApp(t, &fakeRunner{}, "-gvmaj", "8")
	require.Equal(t, 1, res.code)
	require.Contains(t, res.stderr, "Incorrect Usage")
	require.Contains(t, res.stdout, "--gitversionmajor")
	require.Contains(t, res.stdout, "--unixdependencies")
}

func TestRunDotnetNotFound(t *testing.T) {
	root := t.TempDir()
	mkdirs(t, root, "A.Tests/bin/Release/net8.0")

	args := append(flags(root, "false"), "--dotnet", filepath.Join(root, "no-such-dotnet"))
	res := runApp(t, nil, args...)
	require.Equal(t, runner.ExitCodeNotStarted, res.code)
}

func TestRunConfigFile(t *testing.T) {
	root := t.TempDir()
	mkdirs(t, root, "A.Tests/bin/Release/net8.0")
	cfgPath := filepath.Join(t.TempDir(), "tctestaide.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("dotnet: /opt/dotnet/dotnet\n"), 0644))

	r := &fakeRunner{}
	res := runApp(t, r, append(flags(root, "false"), "--config", cfgPath)...)
	require.Equal(t, 0, res.code)
	require.Len(t, r.calls, 1)
	require.Equal(t, "/opt/dotnet/dotnet", r.calls[0].Name)

	// The flag wins over the file.
	r = &fakeRunner{}
	res = runApp(t, r, append(flags(root, "false"), "--config", cfgPath, "--dotnet", "/usr/bin/dotnet")...)
	require.Equal(t, 0, res.code)
	require.Equal(t, "/usr/bin/dotnet", r.calls[0].Name)
}

func TestRunRecordsHistory(t *testing.T) {
	root := t.TempDir()
	historyDir := filepath.Join(t.TempDir(), "history")
	mkdirs(t, root, "A.Tests/bin/Release/net8.0", "B.Tests")

	r := &fakeRunner{exitCodes: []int{3}}
	res := runApp(t, r, append(flags(root, "false"), "--history-dir", historyDir)...)
	require.Equal(t, 3, res.code)

	entries, err := history.LoadEntries(zerolog.Nop(), historyDir)
	require.NoError(t, err)
	require.Len(t, entries, 1)

	h := entries[0].History
	require.Equal(t, 3, h.ExitCode)
	require.Equal(t, root, h.WorkDir)
	require.Equal(t, model.VersionPair{Major: 8, Minor: 1}, h.Product)
	require.Len(t, h.Steps, 2)
	require.Equal(t, model.StepKindTest, h.Steps[0].Kind)
	require.Equal(t, model.StepKindMissingArtifacts, h.Steps[1].Kind)

	list := runApp(t, nil, "--history-dir", historyDir, "list")
	require.Equal(t, 0, list.code)
	require.Contains(t, list.stdout, "=== Runs (1 total) ===")
	require.Contains(t, list.stdout, "exit=3")
	require.Contains(t, list.stdout, "test A.Tests net8.0: exit=3")
	require.Contains(t, list.stdout, "missing-artifacts B.Tests: exit=1")
}

func TestRunRecordsSkippedRun(t *testing.T) {
	historyDir := t.TempDir()

	res := runApp(t, &fakeRunner{}, "-gvmaj", "1", "-gvmin", "0", "-ncmaj", "2", "-ncmin", "0", "-curdir", "/nowhere", "-udep", "false", "--history-dir", historyDir)
	require.Equal(t, 0, res.code)

	entries, err := history.LoadEntries(zerolog.Nop(), historyDir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.True(t, entries[0].History.Skipped)
}

func TestListWithoutHistoryDir(t *testing.T) {
	t.Setenv("TCTESTAIDE_HISTORY_DIR", "")
	res := runApp(t, nil, "list")
	require.Equal(t, 1, res.code)
}

func TestListEmptyHistory(t *testing.T) {
	res := runApp(t, nil, "--history-dir", filepath.Join(t.TempDir(), "none"), "list")
	require.Equal(t, 0, res.code)
	require.Contains(t, res.stdout, "No runs found")
}

func TestExitCode(t *testing.T) {
	require.Equal(t, 0, ExitCode(nil))
	require.Equal(t, 1, ExitCode(&ArgumentError{Flag: "x", Reason: "is required"}))
}
