package fan

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/hddfancontrol/hddfancontrold/pkg/hfcerr"
	"github.com/hddfancontrol/hddfancontrold/pkg/sysfs"
)

// Characterizer parameters. Settling and polling intervals are generous
// enough for real fans (which take on the order of a second to spin up or
// coast to a stop). The binary search costs eight settle intervals; the
// upward start search can wait up to stepTimeout at every PWM step between
// the stop and start thresholds, so a run's length grows with that gap.
const (
	settleInterval  = 2 * time.Second
	pollInterval    = 100 * time.Millisecond
	stepTimeout     = 5 * time.Second
	stoppedRPM      = 50 // below this, the fan is considered stopped
	spinningRPM     = 200
)

// RPMReader reads the current tachometer RPM for a fan, resolved from the
// fanM_input sysfs node that sits alongside the PWM's hwmon directory.
type RPMReader func(ctx context.Context) (uint32, error)

// SysfsRPMReader reads the tachometer at fanInputPath, the fanM_input
// sibling of pwmM; the caller resolves that path by matching the PWM index.
func SysfsRPMReader(fanInputPath string) RPMReader {
	return func(ctx context.Context) (uint32, error) {
		v, err := sysfs.ReadInt(ctx, fanInputPath)
		if err != nil {
			return 0, err
		}
		if v < 0 {
			return 0, fmt.Errorf("%s: %w: negative RPM %d", fanInputPath, hfcerr.ErrImplausibleValue, v)
		}
		return uint32(v), nil
	}
}

// Characterize runs the interactive/automatic procedure from spec.md §4.7:
// it drives pwmPath directly (bypassing any PwmFan hysteresis, since the
// fan's own thresholds are exactly what's being discovered) and uses
// readRPM to observe motion. It returns the learned (start, stop) pair,
// only ever committing a result where start > stop.
func Characterize(ctx context.Context, pwmPath string, readRPM RPMReader) (start, stop byte, err error) {
	log.Info().Str("subsys", "fan").Str("pwm", pwmPath).Msg("starting fan characterisation")

	// 1. Max PWM, confirm the fan actually spins.
	if err := sysfs.WriteInt(ctx, pwmPath, 255); err != nil {
		return 0, 0, fmt.Errorf("characterize %s: set max duty: %w", pwmPath, err)
	}
	if err := waitFor(ctx, readRPM, func(rpm uint32) bool { return rpm >= spinningRPM }); err != nil {
		return 0, 0, fmt.Errorf("characterize %s: fan did not spin up at full duty: %w", pwmPath, err)
	}

	// 2. Binary search down for the largest PWM observed stopped.
	lo, hi := byte(0), byte(255)
	for hi-lo > 1 {
		mid := lo + (hi-lo)/2
		if err := sysfs.WriteInt(ctx, pwmPath, int64(mid)); err != nil {
			return 0, 0, fmt.Errorf("characterize %s: set duty %d: %w", pwmPath, mid, err)
		}
		time.Sleep(settleInterval)
		rpm, err := readRPM(ctx)
		if err != nil {
			return 0, 0, fmt.Errorf("characterize %s: read RPM at duty %d: %w", pwmPath, mid, err)
		}
		if rpm <= stoppedRPM {
			// mid is a stopped point; the stop threshold is at least mid.
			lo = mid
		} else {
			hi = mid
		}
	}
	stop = lo
	log.Info().Str("subsys", "fan").Str("pwm", pwmPath).Int("stop_threshold", int(stop)).Msg("stop threshold found")

	// 3. From stop, increment until motion resumes within the step timeout.
	for pwmVal := int(stop) + 1; pwmVal <= 255; pwmVal++ {
		if err := sysfs.WriteInt(ctx, pwmPath, int64(pwmVal)); err != nil {
			return 0, 0, fmt.Errorf("characterize %s: set duty %d: %w", pwmPath, pwmVal, err)
		}
		if err := waitFor(ctx, readRPM, func(rpm uint32) bool { return rpm >= spinningRPM }); err == nil {
			start = byte(pwmVal)
			break
		}
	}
	if start == 0 {
		return 0, 0, fmt.Errorf("characterize %s: %w: no start duty resumed motion", pwmPath, hfcerr.ErrThresholdCalibration)
	}
	if start <= stop {
		return 0, 0, fmt.Errorf("characterize %s: %w: start=%d stop=%d", pwmPath, hfcerr.ErrThresholdCalibration, start, stop)
	}

	log.Info().Str("subsys", "fan").Str("pwm", pwmPath).
		Int("start_threshold", int(start)).Int("stop_threshold", int(stop)).
		Msg("fan characterisation complete")
	return start, stop, nil
}

// waitFor polls readRPM until predicate holds or stepTimeout elapses.
func waitFor(ctx context.Context, readRPM RPMReader, predicate func(uint32) bool) error {
	deadline := time.Now().Add(stepTimeout)
	for {
		rpm, err := readRPM(ctx)
		if err == nil && predicate(rpm) {
			return nil
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("timed out waiting for fan RPM condition")
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(pollInterval):
		}
	}
}
