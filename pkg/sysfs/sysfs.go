// Package sysfs provides typed, retrying access to Linux /sys pseudo-files.
// It is the single place in hddfancontrold that reads and writes sysfs
// pseudo-file contents; every other package goes through here so retry and
// parsing behaviour stays consistent. Path discovery (globbing hwmon
// directories, resolving device symlinks) is done directly by pkg/drive and
// pkg/probe.
package sysfs

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/hddfancontrol/hddfancontrold/pkg/hfcerr"
)

// retry ceiling for transient absence during device hot-attach, per the PWM
// node lagging device discovery by up to ~1s.
const (
	retryInitialBackoff = 10 * time.Millisecond
	retryCeiling        = 1 * time.Second
)

// withRetry calls op until it succeeds, ctx is done, or the cumulative
// backoff exceeds retryCeiling. It only retries on os.IsNotExist errors —
// every other failure surfaces immediately, per spec.
func withRetry(ctx context.Context, op func() error) error {
	backoff := retryInitialBackoff
	var elapsed time.Duration
	for {
		err := op()
		if err == nil {
			return nil
		}
		if !os.IsNotExist(err) {
			return err
		}
		if elapsed+backoff > retryCeiling {
			return err
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
		elapsed += backoff
		backoff *= 2
	}
}

// ReadString reads path and returns its contents with surrounding whitespace
// stripped.
func ReadString(ctx context.Context, path string) (string, error) {
	var data []byte
	err := withRetry(ctx, func() error {
		var readErr error
		data, readErr = os.ReadFile(path)
		return readErr
	})
	if err != nil {
		return "", fmt.Errorf("read %s: %w: %w", path, hfcerr.ErrSysfsIO, err)
	}
	return strings.TrimSpace(string(data)), nil
}

// ReadInt reads path and parses it strictly as a base-10 integer. Parse
// failures are not retried — a malformed node is a hard error, not a
// transient one.
func ReadInt(ctx context.Context, path string) (int64, error) {
	s, err := ReadString(ctx, path)
	if err != nil {
		return 0, err
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse %s value %q: %w: %w", path, s, hfcerr.ErrParseOutput, err)
	}
	return v, nil
}

// WriteString writes s to path, retrying on transient absence.
func WriteString(ctx context.Context, path, s string) error {
	err := withRetry(ctx, func() error {
		return os.WriteFile(path, []byte(s), 0644)
	})
	if err != nil {
		return fmt.Errorf("write %s: %w: %w", path, hfcerr.ErrSysfsIO, err)
	}
	return nil
}

// WriteInt writes v to path as base-10 text, retrying on transient absence.
func WriteInt(ctx context.Context, path string, v int64) error {
	return WriteString(ctx, path, strconv.FormatInt(v, 10))
}

// Exists reports whether path currently exists, without retrying — callers
// use this to decide whether an optional node (e.g. pwmN_enable) is present
// at all before attempting to read or write it.
func Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
