package fan

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/hddfancontrol/hddfancontrold/pkg/hook"
	"github.com/hddfancontrol/hddfancontrold/pkg/sysfs"
)

// SavedState is the pre-startup PWM state captured once, before any write,
// and consumed by the exit hook to restore the fan exactly as it found it.
type SavedState struct {
	EnablePresent bool
	Enable        string // only meaningful if EnablePresent
	Duty          int64
}

// PwmFan drives a single hwmon PWM output. Its stop/start thresholds come
// from configuration and may later be refined by Characterize.
type PwmFan struct {
	name       string
	pwmPath    string
	enablePath string

	startPWM  byte
	stopPWM   byte
	stopKnown bool

	minDuty Speed

	saved SavedState
}

// NewPwmFan captures the PWM's pre-startup state, registers its restore
// action with reg (before anything else touches this pin, per the spec's
// "PwmSavedState ... is the first artefact registered with the exit hook"
// ordering requirement), and switches the pin to manual/software mode.
//
// startPWM and stopPWM come from configuration (or a prior Characterize
// run); stopKnown tracks whether stopPWM reflects an actual measurement —
// until it does, the fan is never commanded below startPWM, including for
// a nominal "off" request, per the data-model invariant.
func NewPwmFan(ctx context.Context, reg *hook.Registry, name, pwmPath string, startPWM, stopPWM byte, stopKnown bool, minDutyPct float64) (*PwmFan, error) {
	enablePath := pwmPath + "_enable"

	saved := SavedState{}
	saved.EnablePresent = sysfs.Exists(enablePath)
	if saved.EnablePresent {
		s, err := sysfs.ReadString(ctx, enablePath)
		if err != nil {
			return nil, fmt.Errorf("capture %s pre-startup enable mode: %w", name, err)
		}
		saved.Enable = s
	}
	duty, err := sysfs.ReadInt(ctx, pwmPath)
	if err != nil {
		return nil, fmt.Errorf("capture %s pre-startup duty: %w", name, err)
	}
	saved.Duty = duty

	f := &PwmFan{
		name:       name,
		pwmPath:    pwmPath,
		enablePath: enablePath,
		startPWM:   startPWM,
		stopPWM:    stopPWM,
		stopKnown:  stopKnown,
		minDuty:    NewSpeed(minDutyPct / 100),
		saved:      saved,
	}

	// Register the restore action before switching the pin to manual mode:
	// this is the first hook action registered, and the last one that may
	// run, so a failure anywhere after this point still leaves the pin
	// recoverable.
	reg.Register(f.restore)

	if saved.EnablePresent {
		if err := sysfs.WriteString(ctx, enablePath, "1"); err != nil {
			return nil, fmt.Errorf("switch %s to manual mode: %w", name, err)
		}
	}

	log.Info().Str("subsys", "fan").Str("fan", name).
		Bool("enable_present", saved.EnablePresent).Int64("saved_duty", saved.Duty).
		Msg("PWM fan actuator initialised")

	return f, nil
}

// restore writes back the captured duty, then the captured enable mode, in
// that order, exactly as spec.md's construction sequence specifies (and in
// reverse of it). Values other than what was originally captured are never
// written to the enable node — the captured mode might be driver-specific
// (>=2) and writing anything else back would be a bug.
func (f *PwmFan) restore() {
	ctx := context.Background()
	if err := sysfs.WriteInt(ctx, f.pwmPath, f.saved.Duty); err != nil {
		log.Error().Str("subsys", "hook").Str("fan", f.name).Err(err).Msg("failed to restore PWM duty")
	}
	if f.saved.EnablePresent {
		if err := sysfs.WriteString(ctx, f.enablePath, f.saved.Enable); err != nil {
			log.Error().Str("subsys", "hook").Str("fan", f.name).Err(err).Msg("failed to restore PWM enable mode")
		}
	}
	log.Info().Str("subsys", "hook").Str("fan", f.name).Msg("PWM fan restored to pre-startup state")
}

// Name implements Fan.
func (f *PwmFan) Name() string { return f.name }

// MinDuty implements Fan.
func (f *PwmFan) MinDuty() Speed { return f.minDuty }

// Set implements Fan. It writes round(speed*255), except:
//   - if the requested duty is 0: written as 0 only once stopPWM has been
//     measured; otherwise floored to startPWM, since commanding below an
//     unmeasured start threshold risks a stalled fan the controller can't
//     detect.
//   - if 0 < requested < startPWM: substituted with startPWM, so the fan
//     never gets a duty it can't reliably start or sustain from. This is
//     what guarantees the pinned invariant that every written PWM byte is
//     either 0 or >= startPWM.
func (f *PwmFan) Set(ctx context.Context, speed Speed) error {
	requested := speed.PWM()

	var duty byte
	switch {
	case requested == 0 && f.stopKnown:
		duty = 0
	case requested < f.startPWM:
		duty = f.startPWM
	default:
		duty = requested
	}

	if err := sysfs.WriteInt(ctx, f.pwmPath, int64(duty)); err != nil {
		return fmt.Errorf("set %s duty: %w", f.name, err)
	}
	return nil
}

// Characterize updates the fan's learned thresholds after a successful
// calibration run (see characterize.go).
func (f *PwmFan) Characterize(start, stop byte) {
	f.startPWM = start
	f.stopPWM = stop
	f.stopKnown = true
}

// Thresholds returns the fan's current (start, stop, stopKnown) state, for
// diagnostics and tests.
func (f *PwmFan) Thresholds() (start, stop byte, stopKnown bool) {
	return f.startPWM, f.stopPWM, f.stopKnown
}
