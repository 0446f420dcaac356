// Package toolrunner executes developer tools as subprocesses with a
// timeout and captured output.
package toolrunner

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os/exec"
	"strings"
	"time"

	"github.com/creack/pty"
)

const DefaultTimeout = 10 * time.Second

type Output struct {
	Stdout   string
	Stderr   string
	ExitCode int
	TimedOut bool
}

// Combined returns stdout and stderr joined, trimmed.
func (o Output) Combined() string {
	return strings.TrimSpace(strings.TrimSpace(o.Stdout) + "\n" + strings.TrimSpace(o.Stderr))
}

type Runner struct {
	timeout time.Duration
	dir     string
	usePTY  bool
}

type Option func(*Runner)

func WithTimeout(d time.Duration) Option {
	return func(r *Runner) { r.timeout = d }
}

func WithDir(dir string) Option {
	return func(r *Runner) { r.dir = dir }
}

// WithPTY allocates a pseudo-terminal for the tool, for commands that gate
// their output on being attached to a terminal.
func WithPTY() Option {
	return func(r *Runner) { r.usePTY = true }
}

func New(opts ...Option) *Runner {
	r := &Runner{timeout: DefaultTimeout}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run executes name with args and waits for it to finish or time out.
// A non-zero exit is not an error; it is reported through Output.ExitCode.
func (r *Runner) Run(ctx context.Context, name string, args ...string) (Output, error) {
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = r.dir

	var out Output
	var err error
	if r.usePTY {
		out, err = r.runPTY(cmd)
	} else {
		var stdout, stderr bytes.Buffer
		cmd.Stdout = &stdout
		cmd.Stderr = &stderr
		err = cmd.Run()
		out.Stdout = stdout.String()
		out.Stderr = stderr.String()
	}

	if ctx.Err() == context.DeadlineExceeded {
		out.TimedOut = true
		out.ExitCode = -1
		return out, nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		out.ExitCode = exitErr.ExitCode()
		return out, nil
	}
	if err != nil {
		return out, err
	}
	return out, nil
}

func (r *Runner) runPTY(cmd *exec.Cmd) (Output, error) {
	f, err := pty.Start(cmd)
	if err != nil {
		return Output{}, err
	}
	defer f.Close()

	var buf bytes.Buffer
	// The pty returns EIO once the child exits; that is normal EOF here.
	_, _ = io.Copy(&buf, f)
	err = cmd.Wait()
	return Output{Stdout: buf.String()}, err
}
