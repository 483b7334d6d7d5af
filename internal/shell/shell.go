package shell

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
	"runtime"
	"strings"

	"go.uber.org/zap"
)

// RepositoryPathPlaceholder is replaced with the repository path in external client commands
const RepositoryPathPlaceholder = "{repositoryPath}"

// Result is the outcome of a shell command
type Result struct {
	Success bool
	Stdout  string
	Stderr  string
}

// Runner executes shell commands. Exec never fails; problems are reported in the Result.
type Runner interface {
	Exec(ctx context.Context, command string, args []string, cwd string) Result
}

// OSRunner runs commands through the platform shell
type OSRunner struct {
	logger *zap.Logger
}

// NewRunner creates a runner
func NewRunner(logger *zap.Logger) *OSRunner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OSRunner{logger: logger}
}

// Exec runs command with args in cwd. The command line is interpreted by the
// shell so user defined commands may use pipes and quoting.
func (r *OSRunner) Exec(ctx context.Context, command string, args []string, cwd string) Result {
	line := strings.TrimSpace(strings.Join(append([]string{command}, args...), " "))
	if line == "" {
		return Result{Success: false, Stderr: "empty command"}
	}

	var cmd *exec.Cmd
	if runtime.GOOS == "windows" {
		cmd = exec.CommandContext(ctx, "cmd", "/C", line)
	} else {
		cmd = exec.CommandContext(ctx, "sh", "-c", line)
	}
	cmd.Dir = cwd

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	result := Result{
		Success: err == nil,
		Stdout:  stdout.String(),
		Stderr:  stderr.String(),
	}

	if err != nil {
		var exitErr *exec.ExitError
		if !errors.As(err, &exitErr) && result.Stderr == "" {
			// the shell itself could not be started
			result.Stderr = err.Error()
		}
		r.logger.Debug("shell command failed",
			zap.String("command", line),
			zap.String("cwd", cwd),
			zap.Error(err))
	}

	return result
}

// ExpandRepositoryPath substitutes the repository path placeholder in a command line
func ExpandRepositoryPath(commandLine, repoPath string) string {
	return strings.ReplaceAll(commandLine, RepositoryPathPlaceholder, Quote(repoPath))
}

// Quote quotes s as one argument for the platform shell
func Quote(s string) string {
	if runtime.GOOS == "windows" {
		return `"` + s + `"`
	}
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
