package tiva

import (
	"github.com/OpenTraceLab/OpenTraceTAI/pkg/console"
	"github.com/OpenTraceLab/OpenTraceTAI/pkg/protocol"
	"github.com/OpenTraceLab/OpenTraceTAI/pkg/target"
)

var _ protocol.PowerReset = (*PorDriver)(nil)

// PorDriver drives the warm reset and power-on-reset lines.
type PorDriver struct {
	consoleDriver
}

// NewPorDriver creates a reset driver bound to con and registers it with t.
func NewPorDriver(t *target.Target, name string, con console.Transport) (*PorDriver, error) {
	base, err := newConsoleDriver(t, name, con)
	if err != nil {
		return nil, err
	}
	d := &PorDriver{consoleDriver: base}
	if err := register(t, d); err != nil {
		return nil, err
	}
	return d, nil
}

func (d *PorDriver) Capabilities() []target.Capability {
	return []target.Capability{target.CapabilityPowerReset}
}

func (d *PorDriver) Reset() error { return d.send("auto reset") }

func (d *PorDriver) POR() error { return d.send("auto por") }

// HoldPOR asserts power-on-reset until ReleasePOR.
func (d *PorDriver) HoldPOR() error { return d.send("auto por hold") }

func (d *PorDriver) ReleasePOR() error { return d.send("auto por release") }
