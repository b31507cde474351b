package target

import (
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/OpenTraceLab/OpenTraceTAI/pkg/console"
)

// Target owns the resources and drivers of one device under test and keeps
// their activation state. Only the Arbiter changes that state.
type Target struct {
	name    string
	log     zerolog.Logger
	arbiter *Arbiter

	mu        sync.RWMutex
	resources map[console.ResourceID]console.Transport
	drivers   []Driver
	byName    map[string]Driver
	states    map[string]State
}

// Option customizes a Target.
type Option func(*Target)

// WithLogger sets the logger used for activation events.
func WithLogger(l zerolog.Logger) Option {
	return func(t *Target) { t.log = l }
}

// New creates an empty target.
func New(name string, opts ...Option) *Target {
	t := &Target{
		name:      name,
		log:       log.Logger,
		resources: make(map[console.ResourceID]console.Transport),
		byName:    make(map[string]Driver),
		states:    make(map[string]State),
	}
	for _, opt := range opts {
		opt(t)
	}
	t.log = t.log.With().Str("component", "target").Str("target", name).Logger()
	t.arbiter = newArbiter(t)
	return t
}

// Name returns the target name.
func (t *Target) Name() string { return t.name }

// Arbiter returns the arbiter guarding this target's transports.
func (t *Target) Arbiter() *Arbiter { return t.arbiter }

// AddResource hands a transport to the target. Adding the same transport
// twice is a no-op; a different transport under an existing id is an error.
func (t *Target) AddResource(tr console.Transport) error {
	if tr == nil {
		return fmt.Errorf("target: nil resource")
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	id := tr.ID()
	if existing, ok := t.resources[id]; ok {
		if existing == tr {
			return nil
		}
		return fmt.Errorf("target: resource %s already registered", id)
	}
	t.resources[id] = tr
	return nil
}

// Resource returns the transport registered under id.
func (t *Target) Resource(id console.ResourceID) (console.Transport, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	tr, ok := t.resources[id]
	return tr, ok
}

// Register adds a driver built for this target. Driver names are unique and
// every resource the driver is bound to must already belong to the target.
// New drivers start inactive.
func (t *Target) Register(d Driver) error {
	if d == nil {
		return fmt.Errorf("target: nil driver")
	}
	if d.Target() != t {
		return fmt.Errorf("target: driver %s belongs to another target", d.Name())
	}
	if d.Name() == "" {
		return fmt.Errorf("target: driver name must not be empty")
	}
	if len(d.Capabilities()) == 0 {
		return fmt.Errorf("target: driver %s provides no capability", d.Name())
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if _, exists := t.byName[d.Name()]; exists {
		return fmt.Errorf("target: driver %s already registered", d.Name())
	}
	for _, id := range d.Resources() {
		if _, ok := t.resources[id]; !ok {
			return fmt.Errorf("target: driver %s bound to unknown resource %s", d.Name(), id)
		}
	}
	t.drivers = append(t.drivers, d)
	t.byName[d.Name()] = d
	t.states[d.Name()] = StateInactive
	t.log.Debug().Str("driver", d.Name()).Msg("registered")
	return nil
}

// Driver returns the driver registered under name.
func (t *Target) Driver(name string) (Driver, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	d, ok := t.byName[name]
	return d, ok
}

// Drivers returns the drivers in registration order.
func (t *Target) Drivers() []Driver {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]Driver, len(t.drivers))
	copy(out, t.drivers)
	return out
}

// Resolve finds the driver providing kind. With a name, the named driver
// must provide kind; without one, exactly one driver may provide it.
func (t *Target) Resolve(kind Capability, name string) (Driver, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if name != "" {
		d, ok := t.byName[name]
		if !ok {
			return nil, fmt.Errorf("%w: no %s driver named %q", ErrUnboundCapability, kind, name)
		}
		if !provides(d, kind) {
			return nil, fmt.Errorf("%w: driver %q does not provide %s", ErrUnboundCapability, name, kind)
		}
		return d, nil
	}

	var found []Driver
	for _, d := range t.drivers {
		if provides(d, kind) {
			found = append(found, d)
		}
	}
	switch len(found) {
	case 0:
		return nil, fmt.Errorf("%w: no %s driver", ErrUnboundCapability, kind)
	case 1:
		return found[0], nil
	default:
		return nil, fmt.Errorf("%w: %d %s drivers, name one", ErrAmbiguousCapability, len(found), kind)
	}
}

// State reports the activation state of the named driver. Unknown drivers
// are inactive.
func (t *Target) State(name string) State {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.states[name]
}

// Active returns the active drivers bound to resource id. Outside of an
// arbiter call this is at most one driver.
func (t *Target) Active(id console.ResourceID) []Driver {
	t.mu.RLock()
	defer t.mu.RUnlock()
	var out []Driver
	for _, d := range t.drivers {
		if t.states[d.Name()] != StateActive {
			continue
		}
		for _, r := range d.Resources() {
			if r == id {
				out = append(out, d)
				break
			}
		}
	}
	return out
}

// Cleanup deactivates every active driver. The target stays usable.
func (t *Target) Cleanup() error {
	var errs []error
	for _, d := range t.Drivers() {
		if t.State(d.Name()) != StateActive {
			continue
		}
		if err := t.arbiter.Deactivate(d); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (t *Target) setState(name string, s State) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.states[name] = s
}

func (t *Target) registered(d Driver) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.byName[d.Name()] == d
}

// component returns the drivers connected to d through shared resources
// (directly or transitively), excluding d, plus every resource involved.
func (t *Target) component(d Driver) ([]Driver, []console.ResourceID) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	seenRes := make(map[console.ResourceID]bool)
	inComponent := map[string]bool{d.Name(): true}
	queue := d.Resources()
	for _, id := range queue {
		seenRes[id] = true
	}

	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		for _, other := range t.drivers {
			if inComponent[other.Name()] || !bound(other, id) {
				continue
			}
			inComponent[other.Name()] = true
			for _, r := range other.Resources() {
				if !seenRes[r] {
					seenRes[r] = true
					queue = append(queue, r)
				}
			}
		}
	}

	var siblings []Driver
	for _, other := range t.drivers {
		if other.Name() != d.Name() && inComponent[other.Name()] {
			siblings = append(siblings, other)
		}
	}
	resources := make([]console.ResourceID, 0, len(seenRes))
	for id := range seenRes {
		resources = append(resources, id)
	}
	return siblings, resources
}

func bound(d Driver, id console.ResourceID) bool {
	for _, r := range d.Resources() {
		if r == id {
			return true
		}
	}
	return false
}
