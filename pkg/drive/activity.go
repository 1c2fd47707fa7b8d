package drive

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/hddfancontrol/hddfancontrold/pkg/sysfs"
)

// ActivityTracker samples a block device's kernel IO counters
// (/sys/block/<name>/stat) and reports whether it has been idle longer than
// its configured spin-down interval. Off by default; constructed only when
// spin-down is enabled for a drive.
type ActivityTracker struct {
	statPath    string
	idleSince   time.Time
	idleWindow  time.Duration
	lastReadOps int64
	lastWriteOps int64
	haveSample  bool
}

// NewActivityTracker builds a tracker for device at /dev/<name>, idle for
// idleSeconds before spin-down is considered due.
func NewActivityTracker(devicePath string, idleSeconds int) *ActivityTracker {
	name := devicePath[len("/dev/"):]
	return &ActivityTracker{
		statPath:   fmt.Sprintf("/sys/block/%s/stat", name),
		idleWindow: time.Duration(idleSeconds) * time.Second,
	}
}

// Sample reads the current IO counters and reports whether the drive has
// been idle at least as long as the configured window. Sampling itself
// never touches the drive — it only reads kernel-maintained counters, so it
// cannot wake a sleeping drive.
func (a *ActivityTracker) Sample(ctx context.Context) (idleExceeded bool, err error) {
	readOps, writeOps, err := readIOCounters(ctx, a.statPath)
	if err != nil {
		return false, err
	}

	now := time.Now()
	if !a.haveSample {
		a.lastReadOps, a.lastWriteOps = readOps, writeOps
		a.idleSince = now
		a.haveSample = true
		return false, nil
	}

	if readOps != a.lastReadOps || writeOps != a.lastWriteOps {
		a.lastReadOps, a.lastWriteOps = readOps, writeOps
		a.idleSince = now
		return false, nil
	}

	return now.Sub(a.idleSince) >= a.idleWindow, nil
}

// readIOCounters parses the whitespace-separated fields of /sys/block/<n>/stat.
// Fields 1 and 5 (1-indexed) are reads-completed and writes-completed, per
// the kernel's block layer statistics documentation.
func readIOCounters(ctx context.Context, statPath string) (readOps, writeOps int64, err error) {
	line, err := sysfs.ReadString(ctx, statPath)
	if err != nil {
		return 0, 0, err
	}
	var fields [11]int64
	n, scanErr := fmt.Sscan(line, &fields[0], &fields[1], &fields[2], &fields[3], &fields[4],
		&fields[5], &fields[6], &fields[7], &fields[8], &fields[9], &fields[10])
	if scanErr != nil || n < 5 {
		return 0, 0, fmt.Errorf("parse %s: unexpected stat format", statPath)
	}
	return fields[0], fields[4], nil
}

// SpinDownCommand issues a standby-immediate request. It's supplied by the
// caller (pkg/control passes an `hdparm -y` command) rather than hardcoded
// here, keeping pkg/drive free of a subprocess dependency of its own.
type SpinDownCommand func(ctx context.Context, device string) error

// MaybeSpinDown samples activity and, if the idle window has elapsed and the
// drive is currently Active, issues cmd. It's a no-op for any other current
// state, satisfying spec.md's "the drive is currently Active" gate.
func (d *Drive) MaybeSpinDown(ctx context.Context, cmd SpinDownCommand) error {
	if d.activity == nil {
		return nil
	}
	if d.State() != Active {
		return nil
	}

	idleExceeded, err := d.activity.Sample(ctx)
	if err != nil {
		return fmt.Errorf("sample activity for %s: %w", d.Path, err)
	}
	if !idleExceeded {
		return nil
	}

	if err := cmd(ctx, d.Path); err != nil {
		return fmt.Errorf("spin down %s: %w", d.Path, err)
	}
	log.Info().Str("subsys", "drive").Str("device", d.Path).Msg("spin-down command issued after idle timeout")
	return d.fsm.spinDown(ctx)
}
