// Package units holds the small value types shared by the probing,
// actuation, and control-loop packages: temperatures, per-drive thresholds,
// and the linear interpolation between them.
package units

// Temperature is a whole-degree-Celsius reading. Every parser in pkg/probe
// normalises to this: drivetemp's milli-°C is divided down, smartctl/hdparm/
// hddtemp all already emit integer Celsius.
type Temperature int

// MinPlausible and MaxPlausible bound the sane domain for a probed
// temperature. A backend returning outside this range is a hard failure
// per spec, not a value to aggregate.
const (
	MinPlausible Temperature = -50
	MaxPlausible Temperature = 150
)

// Valid reports whether t falls within the plausible domain.
func (t Temperature) Valid() bool {
	return t >= MinPlausible && t <= MaxPlausible
}

// Thresholds is a per-drive (or global) pair of temperatures bounding the
// linear fan-speed ramp: at or below Min the drive contributes speed 0, at
// or above Max it contributes speed 1.
type Thresholds struct {
	Min Temperature
	Max Temperature
}

// Valid reports whether the invariant Min < Max holds.
func (th Thresholds) Valid() bool {
	return th.Min < th.Max
}

// TargetSpeed linearly interpolates t between th.Min (-> 0) and th.Max
// (-> 1), clamping outside the range. Callers combine the result across
// drives (and optionally CPU/system sensors) by taking the maximum.
func (th Thresholds) TargetSpeed(t Temperature) float64 {
	if t <= th.Min {
		return 0
	}
	if t >= th.Max {
		return 1
	}
	span := float64(th.Max - th.Min)
	return float64(t-th.Min) / span
}
