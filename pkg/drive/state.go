package drive

import (
	"context"
	"fmt"

	"github.com/qmuntal/stateless"
)

// State is the tagged drive-power-state variant from spec.md §3. Ordering
// matters: Active < Standby < Sleeping by increasing intrusiveness-to-wake.
// Unknown sorts as Active for fail-safe purposes (Intrusiveness returns the
// same value as Active), since a probe that failed to classify must be
// treated as if it could be spinning and producing heat.
type State int

const (
	Active State = iota
	Standby
	Sleeping
	Unknown
)

func (s State) String() string {
	switch s {
	case Active:
		return "active"
	case Standby:
		return "standby"
	case Sleeping:
		return "sleeping"
	default:
		return "unknown"
	}
}

// Intrusiveness orders states by how disruptive probing/waking them is.
// Unknown is treated as Active: a drive whose state couldn't be classified
// is assumed to be spinning, for safety.
func (s State) Intrusiveness() int {
	switch s {
	case Standby:
		return 1
	case Sleeping:
		return 2
	default: // Active, Unknown
		return 0
	}
}

const (
	triggerObservedIO  = "observed_io"
	triggerIdleTimeout = "idle_timeout"
	triggerSpinDown    = "spin_down_commanded"
	triggerUnknown     = "classified_unknown"
)

// machine wraps a qmuntal/stateless state machine over the four States,
// giving the activity tracker (spin-down) and the probe path explicit,
// guarded transitions instead of ad hoc boolean flags. It is not safe for
// concurrent use from multiple goroutines — the control loop is
// single-threaded by design, so this matches that model.
type machine struct {
	sm *stateless.StateMachine
}

func newMachine(initial State) *machine {
	sm := stateless.NewStateMachine(initial)

	sm.Configure(Active).
		Permit(triggerIdleTimeout, Standby).
		Permit(triggerSpinDown, Sleeping).
		Permit(triggerUnknown, Unknown)

	sm.Configure(Standby).
		Permit(triggerObservedIO, Active).
		Permit(triggerSpinDown, Sleeping).
		Permit(triggerUnknown, Unknown)

	sm.Configure(Sleeping).
		Permit(triggerObservedIO, Active).
		Permit(triggerUnknown, Unknown)

	sm.Configure(Unknown).
		Permit(triggerObservedIO, Active).
		Permit(triggerIdleTimeout, Standby).
		Permit(triggerSpinDown, Sleeping)

	return &machine{sm: sm}
}

func (m *machine) current() State {
	s, _ := m.sm.State(context.Background())
	return s.(State)
}

func (m *machine) fire(ctx context.Context, trigger string) error {
	if ok, _ := m.sm.CanFire(trigger); !ok {
		// Not every observed transition is modeled for every state (e.g. an
		// idle timeout observed while already Sleeping); that's a no-op, not
		// an error.
		return nil
	}
	if err := m.sm.FireCtx(ctx, trigger); err != nil {
		return fmt.Errorf("drive state transition %q from %s: %w", trigger, m.current(), err)
	}
	return nil
}

// observedIO reports activity: the drive is spinning.
func (m *machine) observedIO(ctx context.Context) error { return m.fire(ctx, triggerObservedIO) }

// idleTimeout reports the configured idle window elapsed with no IO.
func (m *machine) idleTimeout(ctx context.Context) error { return m.fire(ctx, triggerIdleTimeout) }

// spinDown reports a standby-immediate command was issued successfully.
func (m *machine) spinDown(ctx context.Context) error { return m.fire(ctx, triggerSpinDown) }

// classifiedUnknown reports a power-state probe that couldn't classify.
func (m *machine) classifiedUnknown(ctx context.Context) error {
	return m.fire(ctx, triggerUnknown)
}
