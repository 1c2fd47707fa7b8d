// Package drive implements the drive handle and state tracker from
// spec.md §4.3: identity resolution, power-state classification, and the
// optional activity-based spin-down.
package drive

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/hddfancontrol/hddfancontrold/pkg/sysfs"
)

// Interface is the inferred transport a drive is attached over.
type Interface int

const (
	InterfaceUnknown Interface = iota
	InterfaceSATA
	InterfaceSAS
	InterfaceNVMe
	InterfaceUSB
)

func (i Interface) String() string {
	switch i {
	case InterfaceSATA:
		return "sata"
	case InterfaceSAS:
		return "sas"
	case InterfaceNVMe:
		return "nvme"
	case InterfaceUSB:
		return "usb"
	default:
		return "unknown"
	}
}

// PowerStateQuery classifies a drive's current power state. The `hdparm -C`
// and `smartctl -n standby` queries in pkg/probe both implement this; the
// caller composes them so that every query tries the cheapest first and
// falls back to the next on error, rather than committing to one at startup
// (spec.md §4.3's "(i) cheapest in-kernel mechanism, (ii) SMART fallback,
// (iii) Unknown").
type PowerStateQuery func(ctx context.Context, device string) (State, error)

// Drive is one block device under supervision.
type Drive struct {
	Path      string // e.g. /dev/sda
	Model     string
	Interface Interface

	powerState PowerStateQuery
	fsm        *machine

	activity *ActivityTracker // nil unless spin-down is enabled

	lastTemp      *int // last successfully probed Celsius reading, nil if none yet
	consecutiveHardFailures int
}

// New resolves identity for path and constructs a Drive in Unknown state.
// Identity resolution follows the sysfs-first, SAS-text-fallback strategy
// from spec.md §4.3.
func New(ctx context.Context, path string, query PowerStateQuery) (*Drive, error) {
	name := filepath.Base(path)
	model, iface := resolveIdentity(ctx, name)

	d := &Drive{
		Path:       path,
		Model:      model,
		Interface:  iface,
		powerState: query,
		fsm:        newMachine(Unknown),
	}

	log.Info().Str("subsys", "drive").Str("device", path).Str("model", model).
		Str("interface", iface.String()).Msg("drive identity resolved")

	return d, nil
}

// resolveIdentity reads /sys/block/<name>/device/{model,vendor,type} the way
// spec.md §4.3 describes. Interface kind is a best-effort inference from
// the same files alone: no helper-output (sg_inq-style) text parsing is
// done, so a SAS drive that sysfs does not identify resolves to
// InterfaceUnknown.
func resolveIdentity(ctx context.Context, name string) (model string, iface Interface) {
	base := fmt.Sprintf("/sys/block/%s/device", name)

	model, _ = sysfs.ReadString(ctx, base+"/model")
	vendor, _ := sysfs.ReadString(ctx, base+"/vendor")
	devType, _ := sysfs.ReadString(ctx, base+"/type")

	switch {
	case strings.HasPrefix(name, "nvme"):
		iface = InterfaceNVMe
	case strings.Contains(strings.ToLower(vendor), "ata"):
		iface = InterfaceSATA
	case devType == "0" && vendor != "":
		// SCSI/SAS disks report type 0 (direct-access block device) with a
		// real vendor string; ATA-over-SATA drives usually report "ATA" as
		// vendor, already matched above.
		iface = InterfaceSAS
	default:
		iface = InterfaceUnknown
	}

	if isUSBBridge(name) {
		iface = InterfaceUSB
	}

	return model, iface
}

// isUSBBridge reports whether name's sysfs device link resolves through a
// USB subsystem path component — the same device-topology inspection idiom
// the teacher uses for board identification, repointed at block devices.
func isUSBBridge(name string) bool {
	target, err := filepath.EvalSymlinks(fmt.Sprintf("/sys/block/%s/device", name))
	if err != nil {
		return false
	}
	return strings.Contains(target, "/usb")
}

// State returns the drive's last-classified power state without probing.
func (d *Drive) State() State {
	return d.fsm.current()
}

// RefreshPowerState queries the drive's power state via the configured
// PowerStateQuery and updates the internal state machine accordingly.
// Observing power state never itself wakes a sleeping drive — the query
// implementations are required to use a mechanism that doesn't (hdparm -C,
// or a SMART-based fallback), per spec.md §4.3.
func (d *Drive) RefreshPowerState(ctx context.Context) (State, error) {
	s, err := d.powerState(ctx, d.Path)
	if err != nil {
		_ = d.fsm.classifiedUnknown(ctx)
		return Unknown, err
	}

	switch s {
	case Active:
		_ = d.fsm.observedIO(ctx)
	case Standby:
		_ = d.fsm.fire(ctx, triggerIdleTimeout)
	case Sleeping:
		_ = d.fsm.fire(ctx, triggerSpinDown)
	default:
		_ = d.fsm.classifiedUnknown(ctx)
	}
	return d.fsm.current(), nil
}

// LastTemperature returns the last successfully probed temperature, if any.
func (d *Drive) LastTemperature() (int, bool) {
	if d.lastTemp == nil {
		return 0, false
	}
	return *d.lastTemp, true
}

// RecordTemperature caches a successful probe result and resets the
// consecutive-hard-failure counter.
func (d *Drive) RecordTemperature(celsius int) {
	t := celsius
	d.lastTemp = &t
	d.consecutiveHardFailures = 0
}

// RecordHardFailure increments the consecutive-hard-failure counter and
// reports whether it has crossed max, per spec.md §4.8 step 2 / §7's
// "small consecutive-failure budget per drive".
func (d *Drive) RecordHardFailure(max int) (exceeded bool) {
	d.consecutiveHardFailures++
	return d.consecutiveHardFailures > max
}

// ResetFailures clears the consecutive-hard-failure counter, e.g. after the
// fail-safe action has been taken and logged.
func (d *Drive) ResetFailures() {
	d.consecutiveHardFailures = 0
}

// Activity returns the drive's activity tracker, or nil if spin-down is
// disabled for this drive.
func (d *Drive) Activity() *ActivityTracker {
	return d.activity
}

// EnableActivityTracking attaches an ActivityTracker so the control loop can
// observe IO counters and, after the configured idle interval, issue a
// spin-down command.
func (d *Drive) EnableActivityTracking(idleSeconds int) {
	d.activity = NewActivityTracker(d.Path, idleSeconds)
}
