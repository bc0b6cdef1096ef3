package media

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// Fixed ceilings for external tool invocations.
const (
	ResolveTimeout = 30 * time.Second
	ProbeTimeout   = 30 * time.Second
	ExtractTimeout = 15 * time.Minute
	FetchTimeout   = 30 * time.Minute
	BurnTimeout    = 60 * time.Minute
)

// Output captures what a tool wrote.
type Output struct {
	Stdout string
	Stderr string
}

// Runner executes an external binary with a timeout.
type Runner interface {
	Run(ctx context.Context, timeout time.Duration, name string, args ...string) (*Output, error)
}

// ExecRunner runs real processes via os/exec.
type ExecRunner struct{}

func (ExecRunner) Run(ctx context.Context, timeout time.Duration, name string, args ...string) (*Output, error) {
	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(runCtx, name, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	out := &Output{Stdout: stdout.String(), Stderr: stderr.String()}
	if err != nil {
		if runCtx.Err() == context.DeadlineExceeded {
			err = fmt.Errorf("timed out after %v: %w", timeout, err)
		}
		return out, &ToolError{Tool: name, LastLine: LastLine(out.Stderr), Err: err}
	}
	return out, nil
}

// ToolError is a failed tool run; LastLine holds the last meaningful stderr line.
type ToolError struct {
	Tool     string
	LastLine string
	Err      error
}

func (e *ToolError) Error() string {
	if e.LastLine != "" {
		return fmt.Sprintf("%s error: %s", e.Tool, e.LastLine)
	}
	return fmt.Sprintf("%s error: %v", e.Tool, e.Err)
}

func (e *ToolError) Unwrap() error {
	return e.Err
}

// IsNotInstalled reports whether err comes from a missing executable.
func IsNotInstalled(err error) bool {
	return errors.Is(err, exec.ErrNotFound)
}

// LastLine returns the last non-blank line of a tool's diagnostic output.
func LastLine(output string) string {
	lines := strings.Split(strings.TrimSpace(output), "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		if line := strings.TrimSpace(lines[i]); line != "" {
			return line
		}
	}
	return ""
}
