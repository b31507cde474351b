package tiva

import (
	"github.com/OpenTraceLab/OpenTraceTAI/pkg/console"
	"github.com/OpenTraceLab/OpenTraceTAI/pkg/protocol"
	"github.com/OpenTraceLab/OpenTraceTAI/pkg/target"
)

var _ protocol.Power = (*PowerDriver)(nil)

// PowerDriver switches the DUT supply through the board controller.
type PowerDriver struct {
	consoleDriver
}

// NewPowerDriver creates a power driver bound to con and registers it with t.
func NewPowerDriver(t *target.Target, name string, con console.Transport) (*PowerDriver, error) {
	base, err := newConsoleDriver(t, name, con)
	if err != nil {
		return nil, err
	}
	d := &PowerDriver{consoleDriver: base}
	if err := register(t, d); err != nil {
		return nil, err
	}
	return d, nil
}

func (d *PowerDriver) Capabilities() []target.Capability {
	return []target.Capability{target.CapabilityPower}
}

func (d *PowerDriver) On() error { return d.send("auto power on") }

func (d *PowerDriver) Off() error { return d.send("auto power off") }
