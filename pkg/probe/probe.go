// Package probe implements the temperature-probing backends from spec.md
// §4.4 and the startup-time selector from §4.5. Every backend satisfies the
// same small contract; the selector trials them in a fixed preference order
// and commits to the first one whose Supports check passes. For the hdparm
// and smartctl backends that check is a trial probe returning a plausible
// reading; Drivetemp's check only locates its hwmon node without reading a
// temperature, and Hddtemp's also passes when the drive reports asleep.
package probe

import (
	"context"
	"fmt"

	"github.com/hddfancontrol/hddfancontrold/pkg/hfcerr"
	"github.com/hddfancontrol/hddfancontrold/pkg/units"
)

// Backend is the polymorphic probe contract from spec.md §3: supports/probe
// plus the two properties the selector and control loop both need to know
// about statically.
type Backend interface {
	// Name identifies the backend for logging and selection diagnostics.
	Name() string

	// WakesSleepingDrive reports whether invoking Probe can spin up a
	// sleeping drive. The control loop never calls Probe on a Sleeping
	// drive when this is true.
	WakesSleepingDrive() bool

	// Supports reports whether this backend is usable for device, by
	// inspecting identity, attempting a cheap no-op probe, or both.
	Supports(ctx context.Context, device string) bool

	// Probe returns device's current temperature. A soft failure (e.g. the
	// drive is asleep) wraps hfcerr.ErrDriveAsleep; any other error is hard.
	// A temperature outside units.MinPlausible/MaxPlausible is always a
	// hard failure (wrapping hfcerr.ErrImplausibleValue), never returned as
	// a value.
	Probe(ctx context.Context, device string) (units.Temperature, error)
}

// checkPlausible is the shared guard every backend's Probe runs its parsed
// value through before returning it, per spec.md §4.4's "a backend that
// returns a temperature outside [-50, 150] °C is treated as hard failure".
func checkPlausible(backend string, t units.Temperature) (units.Temperature, error) {
	if !t.Valid() {
		return 0, fmt.Errorf("%s: %w: %d°C", backend, hfcerr.ErrImplausibleValue, t)
	}
	return t, nil
}
