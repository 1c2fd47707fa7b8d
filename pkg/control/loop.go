// Package control implements the supervisory loop from spec.md §4.8: on
// each tick it collects drive (and optional sensor) temperatures, derives a
// target fan speed by linear interpolation, and commands every fan, with a
// per-drive failure budget and a fail-safe fallback when that budget is
// exhausted.
package control

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/hddfancontrol/hddfancontrold/pkg/drive"
	"github.com/hddfancontrol/hddfancontrold/pkg/fan"
	"github.com/hddfancontrol/hddfancontrold/pkg/hfcerr"
	"github.com/hddfancontrol/hddfancontrold/pkg/probe"
	"github.com/hddfancontrol/hddfancontrold/pkg/subproc"
	"github.com/hddfancontrol/hddfancontrold/pkg/sysfs"
	"github.com/hddfancontrol/hddfancontrold/pkg/units"
)

// DriveUnit binds a Drive to the probe backend selected for it and the
// thresholds its temperature is interpolated against.
type DriveUnit struct {
	Drive      *drive.Drive
	Backend    probe.Backend
	Thresholds units.Thresholds
}

// Loop is the supervisory control loop. Construct with New and run with Run;
// Run blocks until ctx is cancelled.
type Loop struct {
	drives []*DriveUnit
	fans   []fan.Fan

	sensorPaths      []string
	sensorThresholds units.Thresholds

	interval            time.Duration
	zeroFloor           bool
	maxConsecutiveFails int
	spindownIdleSec     int
}

// New builds a Loop. sensorThresholds is applied to every path in
// sensorPaths; pass a zero Thresholds (and no paths) when sensor-folding is
// unused.
func New(drives []*DriveUnit, fans []fan.Fan, sensorPaths []string, sensorThresholds units.Thresholds,
	interval time.Duration, zeroFloor bool, maxConsecutiveFails int, spindownIdleSec int) *Loop {
	return &Loop{
		drives:              drives,
		fans:                fans,
		sensorPaths:         sensorPaths,
		sensorThresholds:    sensorThresholds,
		interval:            interval,
		zeroFloor:           zeroFloor,
		maxConsecutiveFails: maxConsecutiveFails,
		spindownIdleSec:     spindownIdleSec,
	}
}

// Run executes the control loop until ctx is cancelled, sleeping interval
// between iterations. It returns nil on clean cancellation.
func (l *Loop) Run(ctx context.Context) error {
	for {
		l.tick(ctx)

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(l.interval):
		}
	}
}

// tick runs a single iteration: refresh every drive, fold in sensors,
// compute the target speed, and command every fan.
func (l *Loop) tick(ctx context.Context) {
	target := 0.0
	failSafe := false

	for _, u := range l.drives {
		speed, ok := l.sampleDrive(ctx, u)
		if !ok {
			failSafe = true
			continue
		}
		if speed > target {
			target = speed
		}
	}

	for _, path := range l.sensorPaths {
		milliC, err := sysfs.ReadInt(ctx, path)
		if err != nil {
			log.Warn().Str("subsys", "control").Str("sensor", path).Err(err).Msg("sensor read failed, ignoring this tick")
			continue
		}
		t := units.Temperature(milliC / 1000)
		if s := l.sensorThresholds.TargetSpeed(t); s > target {
			target = s
		}
	}

	if failSafe {
		log.Error().Str("subsys", "control").Msg("consecutive-failure budget exhausted for a drive, commanding all fans to maximum")
		target = 1.0
	}

	l.commandFans(ctx, fan.NewSpeed(target))

	for _, u := range l.drives {
		if u.Drive.Activity() == nil || l.spindownIdleSec == 0 {
			continue
		}
		if err := u.Drive.MaybeSpinDown(ctx, spindownCommand); err != nil {
			log.Warn().Str("subsys", "control").Str("device", u.Drive.Path).Err(err).Msg("spin-down command failed")
		}
	}
}

// sampleDrive refreshes u's power state, probes its temperature (skipping
// the probe entirely whenever the drive is Sleeping, whichever backend it
// uses, per spec.md's "contribute cold" rule), and returns the interpolated speed it
// contributes. ok is false only when u's consecutive hard-failure budget has
// just been exhausted, signalling the caller to take the fail-safe action.
func (l *Loop) sampleDrive(ctx context.Context, u *DriveUnit) (speed float64, ok bool) {
	if _, err := u.Drive.RefreshPowerState(ctx); err != nil {
		log.Warn().Str("subsys", "control").Str("device", u.Drive.Path).Err(err).Msg("power state query failed")
	}

	if u.Drive.State() == drive.Sleeping {
		log.Debug().Str("subsys", "control").Str("device", u.Drive.Path).
			Bool("backend_would_wake", u.Backend.WakesSleepingDrive()).
			Msg("drive asleep, contributing cold instead of probing")
		return 0, true
	}

	t, err := u.Backend.Probe(ctx, u.Drive.Path)
	if err != nil {
		if hfcerr.IsSoft(err) {
			log.Debug().Str("subsys", "control").Str("device", u.Drive.Path).Msg("drive reported asleep, contributing cold")
			return 0, true
		}
		exceeded := u.Drive.RecordHardFailure(l.maxConsecutiveFails)
		log.Warn().Str("subsys", "control").Str("device", u.Drive.Path).Err(err).
			Bool("budget_exceeded", exceeded).Msg("temperature probe failed")
		if exceeded {
			u.Drive.ResetFailures()
			return 0, false
		}
		// Within budget: hold the last known temperature rather than
		// contributing cold, so a single transient failure doesn't drop the
		// fan speed under a drive that's actually still hot.
		last, have := u.Drive.LastTemperature()
		if !have {
			return 0, true
		}
		return u.Thresholds.TargetSpeed(units.Temperature(last)), true
	}

	u.Drive.RecordTemperature(int(t))
	return u.Thresholds.TargetSpeed(t), true
}

// commandFans applies each fan's minimum-duty floor (unless zero-floor is
// configured) and commands it, logging but not aborting on a per-fan
// failure — one stuck fan must not prevent the others from being driven.
func (l *Loop) commandFans(ctx context.Context, target fan.Speed) {
	for _, f := range l.fans {
		duty := target
		if !l.zeroFloor && duty.Percent() < f.MinDuty().Percent() {
			duty = f.MinDuty()
		}
		if err := f.Set(ctx, duty); err != nil {
			log.Error().Str("subsys", "control").Str("fan", f.Name()).Err(err).Msg("failed to set fan speed")
		}
	}
}

// spindownCommand issues a standby-immediate request via hdparm, the same
// mechanism the power-state probe uses to read it.
func spindownCommand(ctx context.Context, device string) error {
	_, err := subproc.Run(ctx, nil, "hdparm", "-y", device)
	return err
}
