// Package hook implements the guaranteed-restore-on-exit registry: a
// last-in-first-out chain of cleanup actions run on every termination path —
// clean return, signal, or recovered panic. It is the single most important
// correctness property of hddfancontrold: a fan actuator registers its
// restore action here before it writes anything else, so whatever else goes
// wrong, the fan comes back to its pre-startup state.
package hook

import (
	"sync"

	"github.com/rs/zerolog/log"
)

// Action is a cleanup closure. It should not panic; Registry.Run recovers
// individual actions anyway so one failing action never blocks the rest.
type Action func()

// Registry is a LIFO registry of Actions. The zero value is ready to use.
// Run is idempotent: calling it more than once only runs the chain once.
type Registry struct {
	mu      sync.Mutex
	actions []Action
	ran     bool
}

// Register appends action to the chain. Actions run in reverse registration
// order (last registered, first run), matching scoped-cleanup semantics.
func (r *Registry) Register(action Action) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.actions = append(r.actions, action)
}

// Run executes every registered action, most-recently-registered first. If
// an action panics, Run logs it and continues with the remaining actions —
// a dead sysfs node must not prevent the next fan's restore from running.
// Run is idempotent: a second call is a no-op.
func (r *Registry) Run() {
	r.mu.Lock()
	if r.ran {
		r.mu.Unlock()
		return
	}
	r.ran = true
	actions := r.actions
	r.mu.Unlock()

	for i := len(actions) - 1; i >= 0; i-- {
		runOne(actions[i])
	}
}

func runOne(action Action) {
	defer func() {
		if p := recover(); p != nil {
			log.Error().Str("subsys", "hook").Interface("panic", p).Msg("cleanup action panicked, continuing")
		}
	}()
	action()
}
