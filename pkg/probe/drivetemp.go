package probe

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/hddfancontrol/hddfancontrold/pkg/hfcerr"
	"github.com/hddfancontrol/hddfancontrold/pkg/sysfs"
	"github.com/hddfancontrol/hddfancontrold/pkg/units"
)

// Drivetemp reads a drive's ATA temperature through the kernel's drivetemp
// hwmon driver. It's preferred whenever present: it's a plain sysfs read,
// never wakes a sleeping drive, and needs no helper subprocess.
type Drivetemp struct {
	hwmonGlob string // overridable in tests
}

// NewDrivetemp constructs the backend; the hwmon tree root defaults to the
// real sysfs location.
func NewDrivetemp() *Drivetemp {
	return &Drivetemp{hwmonGlob: "/sys/class/hwmon/hwmon*"}
}

func (d *Drivetemp) Name() string                 { return "drivetemp" }
func (d *Drivetemp) WakesSleepingDrive() bool      { return false }

// Supports locates a hwmon directory named "drivetemp" whose device symlink
// resolves to device, and caches nothing — the hwmon index a device maps to
// doesn't change for the life of the process, so a fresh resolution per call
// is cheap and avoids staleness across hot-unplug/replug.
func (d *Drivetemp) Supports(ctx context.Context, device string) bool {
	_, ok := d.resolve(ctx, device)
	return ok
}

func (d *Drivetemp) Probe(ctx context.Context, device string) (units.Temperature, error) {
	dir, ok := d.resolve(ctx, device)
	if !ok {
		return 0, fmt.Errorf("drivetemp: %w: no hwmon directory for %s", hfcerr.ErrBackendUnavailable, device)
	}

	milliC, err := sysfs.ReadInt(ctx, filepath.Join(dir, "temp1_input"))
	if err != nil {
		return 0, fmt.Errorf("drivetemp: %w", err)
	}

	return checkPlausible("drivetemp", units.Temperature(milliC/1000))
}

// resolve finds the hwmon directory whose name file reads "drivetemp" and
// whose device symlink target matches device's sysfs device node.
func (d *Drivetemp) resolve(ctx context.Context, device string) (dir string, ok bool) {
	matches, err := filepath.Glob(d.hwmonGlob)
	if err != nil {
		return "", false
	}

	wantTarget, err := filepath.EvalSymlinks(fmt.Sprintf("/sys/block/%s/device", filepath.Base(device)))
	if err != nil {
		return "", false
	}

	for _, m := range matches {
		name, err := sysfs.ReadString(ctx, filepath.Join(m, "name"))
		if err != nil || name != "drivetemp" {
			continue
		}
		gotTarget, err := filepath.EvalSymlinks(filepath.Join(m, "device"))
		if err != nil {
			continue
		}
		if gotTarget == wantTarget {
			return m, true
		}
	}
	return "", false
}
