// Package hfcerr defines the error-kind taxonomy shared across hddfancontrold's
// subsystems (sysfs, subprocess, probing, actuation). Callers compare with
// errors.Is against the sentinels below; concrete errors always wrap one of
// them with %w so the originating context survives.
package hfcerr

import "errors"

var (
	// ErrSysfsIO covers failed reads/writes of /sys pseudo-files after retries
	// are exhausted.
	ErrSysfsIO = errors.New("sysfs i/o error")

	// ErrSubprocessIO covers failure to start or communicate with a helper
	// process.
	ErrSubprocessIO = errors.New("subprocess i/o error")

	// ErrSubprocessExit covers a helper process exiting non-zero without a
	// registered soft-failure match.
	ErrSubprocessExit = errors.New("subprocess exited non-zero")

	// ErrParseOutput covers helper output that doesn't match the expected,
	// pinned format.
	ErrParseOutput = errors.New("unexpected output format")

	// ErrImplausibleValue covers a parsed value outside its sane domain (e.g.
	// a temperature outside [-50, 150] degrees Celsius).
	ErrImplausibleValue = errors.New("implausible value")

	// ErrDriveAsleep is the single soft-failure kind: the drive is asleep and
	// the backend declines to wake it. Callers treat this as "temperature
	// unknown", not as a hard failure.
	ErrDriveAsleep = errors.New("drive is asleep")

	// ErrBackendUnavailable is returned by the selector when no candidate
	// backend works for a drive, and by a backend's Probe when its mechanism
	// is absent for the device (e.g. no drivetemp hwmon node).
	ErrBackendUnavailable = errors.New("probe backend unavailable")

	// ErrThresholdCalibration covers a fan characterisation run that failed to
	// produce start_threshold > stop_threshold.
	ErrThresholdCalibration = errors.New("threshold calibration failed")

	// ErrConfigInconsistent covers a configuration that fails validation
	// before any fan has been touched.
	ErrConfigInconsistent = errors.New("configuration inconsistent")
)

// IsSoft reports whether err is (or wraps) the one soft-failure kind the
// control loop tolerates without counting it against a drive's consecutive
// hard-failure budget.
func IsSoft(err error) bool {
	return errors.Is(err, ErrDriveAsleep)
}
