package target

import (
	"fmt"
	"sort"
	"sync"

	"github.com/OpenTraceLab/OpenTraceTAI/pkg/console"
)

// Arbiter keeps at most one driver active per shared transport. All
// activation state changes of a Target go through it.
//
// Each call holds a lock per resource in the driver's component for the
// whole deactivate-then-activate sequence; locks are taken in sorted order.
type Arbiter struct {
	target *Target

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newArbiter(t *Target) *Arbiter {
	return &Arbiter{
		target: t,
		locks:  make(map[string]*sync.Mutex),
	}
}

// MakeActiveExclusive deactivates every active driver sharing a transport
// with d and then activates d.
//
// If a sibling fails to deactivate the call stops with an *ActivationError
// (ErrDeactivationFailed) and d keeps its previous state. If d is already
// active the siblings are still checked, but d's activation hook is not
// run again.
func (a *Arbiter) MakeActiveExclusive(d Driver) error {
	return a.Exclusive(d, nil)
}

// Exclusive makes d exclusively active like MakeActiveExclusive and then
// runs fn while still holding the locks of d's resources, so no other
// driver on those resources can be activated until fn returns. fn must not
// call back into the arbiter for the same resources.
func (a *Arbiter) Exclusive(d Driver, fn func() error) error {
	t := a.target
	if d == nil || !t.registered(d) {
		return fmt.Errorf("%w: %v", ErrUnknownDriver, driverName(d))
	}

	siblings, resources := t.component(d)
	unlock := a.lock(lockKeys(d, resources))
	defer unlock()

	if err := a.activateLocked(d, siblings); err != nil {
		return err
	}
	if fn == nil {
		return nil
	}
	return fn()
}

func (a *Arbiter) activateLocked(d Driver, siblings []Driver) error {
	t := a.target
	for _, s := range siblings {
		if t.State(s.Name()) != StateActive {
			continue
		}
		if err := s.OnDeactivate(); err != nil {
			t.log.Warn().Err(err).Str("driver", d.Name()).Str("sibling", s.Name()).Msg("sibling refused to deactivate")
			return &ActivationError{Driver: d.Name(), Sibling: s.Name(), Kind: ErrDeactivationFailed, Err: err}
		}
		t.setState(s.Name(), StateInactive)
		t.log.Debug().Str("driver", s.Name()).Str("for", d.Name()).Msg("deactivated")
	}

	if t.State(d.Name()) == StateActive {
		return nil
	}
	if err := d.OnActivate(); err != nil {
		return &ActivationError{Driver: d.Name(), Kind: ErrActivationFailed, Err: err}
	}
	t.setState(d.Name(), StateActive)
	t.log.Debug().Str("driver", d.Name()).Msg("activated")
	return nil
}

// Deactivate makes d inactive, running its deactivation hook if it was
// active.
func (a *Arbiter) Deactivate(d Driver) error {
	t := a.target
	if d == nil || !t.registered(d) {
		return fmt.Errorf("%w: %v", ErrUnknownDriver, driverName(d))
	}
	_, resources := t.component(d)
	unlock := a.lock(lockKeys(d, resources))
	defer unlock()

	if t.State(d.Name()) != StateActive {
		return nil
	}
	if err := d.OnDeactivate(); err != nil {
		return fmt.Errorf("target: deactivating %s: %w", d.Name(), err)
	}
	t.setState(d.Name(), StateInactive)
	t.log.Debug().Str("driver", d.Name()).Msg("deactivated")
	return nil
}

// lock acquires the mutex of every key in order and returns the release
// function.
func (a *Arbiter) lock(keys []string) func() {
	a.mu.Lock()
	held := make([]*sync.Mutex, len(keys))
	for i, k := range keys {
		m, ok := a.locks[k]
		if !ok {
			m = &sync.Mutex{}
			a.locks[k] = m
		}
		held[i] = m
	}
	a.mu.Unlock()

	for _, m := range held {
		m.Lock()
	}
	return func() {
		for i := len(held) - 1; i >= 0; i-- {
			held[i].Unlock()
		}
	}
}

// lockKeys returns the sorted lock keys for a component. Drivers without
// resources are serialized on their own name.
func lockKeys(d Driver, resources []console.ResourceID) []string {
	if len(resources) == 0 {
		return []string{"driver/" + d.Name()}
	}
	keys := make([]string, len(resources))
	for i, id := range resources {
		keys[i] = "resource/" + string(id)
	}
	sort.Strings(keys)
	return keys
}

func driverName(d Driver) string {
	if d == nil {
		return "<nil>"
	}
	return d.Name()
}
