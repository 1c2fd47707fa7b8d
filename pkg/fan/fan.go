// Package fan implements the two fan actuator variants named in the spec
// (PWM-backed, via hwmon sysfs, and command-backed, via an external shell
// command) plus the PWM characterisation procedure that learns a fan's
// stop/start thresholds. Both variants satisfy the Fan interface so the
// control loop doesn't care which one it's driving.
package fan

import "context"

// Fan is the actuation contract the control loop drives. Implementations
// are PwmFan (sysfs-backed, learned thresholds) and CmdFan (external command,
// no thresholds beyond its configured floor).
type Fan interface {
	// Set commands the fan towards speed. Implementations apply their own
	// threshold handling (PwmFan raises any nonzero duty below its start
	// threshold to that threshold; CmdFan has none); the per-fan minimum-duty floor from spec.md's
	// "commanded fan duty is max(computed_duty, min_duty)" invariant is
	// applied by the caller (pkg/control), not here, since it's identical
	// across variants.
	Set(ctx context.Context, speed Speed) error

	// MinDuty returns the configured floor, as a fraction of [0,1].
	MinDuty() Speed

	// Name identifies the fan for logging.
	Name() string
}
