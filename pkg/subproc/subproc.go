// Package subproc invokes helper utilities (hddtemp, hdparm, smartctl, and
// CmdFan's user-configured command) and classifies their results. Every
// caller gets the exit code, and stdout/stderr as captured buffers; hard
// failures carry the full command line and captured streams in their error
// text so diagnostics don't require re-running anything by hand.
package subproc

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"

	"github.com/hddfancontrol/hddfancontrold/pkg/hfcerr"
)

// Result holds everything captured from one helper invocation.
type Result struct {
	Stdout   []byte
	Stderr   []byte
	ExitCode int
}

// SoftMatcher decides, for a non-zero exit, whether the exit code and stderr
// constitute a documented soft warning rather than a hard failure. Run never
// consults it on a zero exit: informational stderr lines alongside exit 0
// (hdparm, smartctl, hddtemp's "drive is sleeping") are never an error here,
// and callers inspect that stderr themselves. A nil matcher means every
// non-zero exit is a hard failure.
type SoftMatcher func(stderr []byte, exitCode int) bool

// Run executes name with args, captures stdout/stderr, and inspects the exit
// code. A non-zero exit is an error unless soft reports it tolerated. On a
// genuine hard failure the returned error wraps hfcerr.ErrSubprocessExit (or
// ErrSubprocessIO if the process never started) and its text includes the
// full command line, exit code, and both captured streams.
func Run(ctx context.Context, soft SoftMatcher, name string, args ...string) (Result, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	runErr := cmd.Run()

	res := Result{
		Stdout: stdout.Bytes(),
		Stderr: stderr.Bytes(),
	}

	if runErr == nil {
		res.ExitCode = 0
		return res, nil
	}

	exitErr, ok := runErr.(*exec.ExitError)
	if !ok {
		return res, fmt.Errorf("run %s: %w: %w", commandLine(name, args), hfcerr.ErrSubprocessIO, runErr)
	}
	res.ExitCode = exitErr.ExitCode()

	if soft != nil && soft(res.Stderr, res.ExitCode) {
		return res, nil
	}

	return res, fmt.Errorf("run %s: %w: exit %d, stdout=%q, stderr=%q",
		commandLine(name, args), hfcerr.ErrSubprocessExit, res.ExitCode, res.Stdout, res.Stderr)
}

func commandLine(name string, args []string) string {
	return strings.TrimSpace(name + " " + strings.Join(args, " "))
}

// ContainsAny returns a SoftMatcher that tolerates a non-zero exit when
// stderr contains any of needles, for helpers whose documented warnings
// arrive on stderr alongside a non-zero exit code.
func ContainsAny(needles ...string) SoftMatcher {
	return func(stderr []byte, exitCode int) bool {
		s := string(stderr)
		for _, n := range needles {
			if strings.Contains(s, n) {
				return true
			}
		}
		return false
	}
}
