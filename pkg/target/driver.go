package target

import (
	"fmt"

	"github.com/OpenTraceLab/OpenTraceTAI/pkg/console"
)

// Driver is a capability implementation owned by a Target. Bindings (the
// owning target and the resources) are fixed at construction.
//
// OnActivate and OnDeactivate are invoked only by the Arbiter. OnDeactivate
// must be idempotent.
type Driver interface {
	Name() string
	Target() *Target
	Capabilities() []Capability
	Resources() []console.ResourceID
	OnActivate() error
	OnDeactivate() error
}

// Base carries the bookkeeping shared by all drivers. Embed it and call
// Target.Register from the driver constructor.
type Base struct {
	target    *Target
	name      string
	resources []console.ResourceID
}

// NewBase binds a driver named name to t and to the given transports.
func NewBase(t *Target, name string, transports ...console.Transport) Base {
	ids := make([]console.ResourceID, 0, len(transports))
	for _, tr := range transports {
		ids = append(ids, tr.ID())
	}
	return Base{target: t, name: name, resources: ids}
}

func (b *Base) Name() string { return b.name }

func (b *Base) Target() *Target { return b.target }

// Resources returns a copy of the bound resource ids.
func (b *Base) Resources() []console.ResourceID {
	return append([]console.ResourceID(nil), b.resources...)
}

func (b *Base) OnActivate() error { return nil }

func (b *Base) OnDeactivate() error { return nil }

// CheckActive returns ErrNotActive unless the driver is currently active.
func (b *Base) CheckActive() error {
	if b.target == nil || b.target.State(b.name) != StateActive {
		return fmt.Errorf("%w: %s", ErrNotActive, b.name)
	}
	return nil
}

func provides(d Driver, kind Capability) bool {
	for _, c := range d.Capabilities() {
		if c == kind {
			return true
		}
	}
	return false
}
