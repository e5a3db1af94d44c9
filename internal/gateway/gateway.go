// Package gateway runs a single prompt-to-text inference call against the
// model host as an external process, with a hard wall-clock timeout.
package gateway

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"parastream/internal/config"
)

// ErrTimeout marks an invocation that was forcibly terminated because it did
// not complete within the configured timeout. Check with errors.Is.
var ErrTimeout = errors.New("model invocation timed out")

// InvokeError carries the failure of a completed-but-unsuccessful invocation:
// the process exit code and whatever the host wrote to its error stream.
type InvokeError struct {
	ExitCode int
	Stderr   string
}

func (e *InvokeError) Error() string {
	if e.Stderr != "" {
		return fmt.Sprintf("model invocation failed (exit %d): %s", e.ExitCode, e.Stderr)
	}
	return fmt.Sprintf("model invocation failed with exit code %d", e.ExitCode)
}

// Invoker is the seam the pipelines use; Runner is the real implementation.
type Invoker interface {
	Invoke(ctx context.Context, model, prompt string) (string, error)
}

// Runner invokes the host CLI (`ollama run <model>`) with the prompt on
// stdin, routed to the configured host address via OLLAMA_HOST. Each call
// spawns and tears down one process; concurrent calls share nothing.
type Runner struct {
	Command string
	Addr    string
	Timeout time.Duration

	// args builds the argument list for a model; swapped out in tests.
	args func(model string) []string
}

func NewRunner(cfg config.Model) *Runner {
	return &Runner{
		Command: cfg.RunCommand,
		Addr:    cfg.Addr(),
		Timeout: cfg.InvokeTimeout,
	}
}

func (r *Runner) argv(model string) []string {
	if r.args != nil {
		return r.args(model)
	}
	return []string{"run", model}
}

// Invoke runs one inference call and returns the trimmed accumulated stdout.
// If the process exceeds the timeout it is killed and the returned error
// wraps ErrTimeout; a non-success exit yields an *InvokeError carrying the
// captured stderr. Partial output is never returned.
func (r *Runner) Invoke(ctx context.Context, model, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, r.Timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, r.Command, r.argv(model)...)
	cmd.Env = append(os.Environ(), "OLLAMA_HOST="+r.Addr)
	cmd.Stdin = strings.NewReader(prompt)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return "", fmt.Errorf("%w after %s", ErrTimeout, r.Timeout)
		}
		exitCode := -1
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			exitCode = exitErr.ExitCode()
		}
		msg := strings.TrimSpace(stderr.String())
		if msg == "" && exitCode == -1 {
			// Process never ran (e.g. command not found).
			msg = err.Error()
		}
		return "", &InvokeError{ExitCode: exitCode, Stderr: msg}
	}

	return strings.TrimSpace(stdout.String()), nil
}
