package tiva

import (
	"fmt"
	"strings"

	"github.com/OpenTraceLab/OpenTraceTAI/pkg/console"
	"github.com/OpenTraceLab/OpenTraceTAI/pkg/protocol"
	"github.com/OpenTraceLab/OpenTraceTAI/pkg/target"
)

var _ protocol.Configuration = (*ConfigDriver)(nil)

// ConfigDriver tells the board controller which DUT it is wired to.
type ConfigDriver struct {
	consoleDriver
}

// NewConfigDriver creates a configuration driver bound to con and registers
// it with t.
func NewConfigDriver(t *target.Target, name string, con console.Transport) (*ConfigDriver, error) {
	base, err := newConsoleDriver(t, name, con)
	if err != nil {
		return nil, err
	}
	d := &ConfigDriver{consoleDriver: base}
	if err := register(t, d); err != nil {
		return nil, err
	}
	return d, nil
}

func (d *ConfigDriver) Capabilities() []target.Capability {
	return []target.Capability{target.CapabilityConfiguration}
}

// SetDUT selects the DUT by name. The name must be a single token.
func (d *ConfigDriver) SetDUT(dut string) error {
	if dut == "" || strings.ContainsAny(dut, " \t\r\n") {
		return fmt.Errorf("tiva: invalid dut name %q", dut)
	}
	return d.send("auto dut " + dut)
}
