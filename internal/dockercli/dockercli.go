// Package dockercli is the single boundary between cachewise and the Docker
// command-line client. Everything above this port parses plain text and can be
// tested without a Docker installation.
package dockercli

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"os/exec"
)

// Result holds the outcome of one CLI invocation. ExitCode is 0 on success
// and -1 when the process could not be started at all.
type Result struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// OK reports whether the invocation exited zero.
func (r Result) OK() bool {
	return r.ExitCode == 0
}

// Runner invokes the engine CLI. Implementations must be safe for concurrent
// use; every call blocks until the subprocess exits.
type Runner interface {
	Run(ctx context.Context, args ...string) Result
}

// CLI runs the real binary via os/exec. A semaphore bounds how many blocking
// subprocesses run at once so a burst of scan requests cannot exhaust OS
// threads.
type CLI struct {
	bin string
	sem chan struct{}
}

// DefaultConcurrency bounds simultaneous subprocess invocations.
const DefaultConcurrency = 8

// New returns a CLI runner for the given binary name ("docker", "podman", or
// an absolute path). Empty bin defaults to "docker".
func New(bin string) *CLI {
	if bin == "" {
		bin = "docker"
	}
	return &CLI{
		bin: bin,
		sem: make(chan struct{}, DefaultConcurrency),
	}
}

// Bin returns the configured binary name.
func (c *CLI) Bin() string {
	return c.bin
}

// Run executes the binary with the given arguments and captures both output
// streams. A non-zero exit is reported through Result, not through an error —
// callers decide whether non-zero is a failure. There is no timeout beyond
// ctx; a hung subprocess blocks the calling goroutine.
func (c *CLI) Run(ctx context.Context, args ...string) Result {
	select {
	case c.sem <- struct{}{}:
		defer func() { <-c.sem }()
	case <-ctx.Done():
		return Result{Stderr: ctx.Err().Error(), ExitCode: -1}
	}

	cmd := exec.CommandContext(ctx, c.bin, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	res := Result{
		Stdout: stdout.String(),
		Stderr: stderr.String(),
	}

	switch {
	case err == nil:
		res.ExitCode = 0
	default:
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			res.ExitCode = exitErr.ExitCode()
		} else {
			// Spawn failure (binary missing, fork error). Surface the
			// error text where stderr would normally be.
			res.ExitCode = -1
			if res.Stderr == "" {
				res.Stderr = err.Error()
			}
			slog.Debug("docker cli spawn", "bin", c.bin, "err", err)
		}
	}
	return res
}
