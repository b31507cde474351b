// Package fake provides recording capability drivers. They talk to no
// hardware: every call is recorded and answered with configurable results,
// which makes them suitable for tests and for dry runs of the CLI.
package fake

import (
	"fmt"
	"sync"

	"github.com/OpenTraceLab/OpenTraceTAI/pkg/console"
	"github.com/OpenTraceLab/OpenTraceTAI/pkg/protocol"
	"github.com/OpenTraceLab/OpenTraceTAI/pkg/target"
	"github.com/OpenTraceLab/OpenTraceTAI/pkg/telemetry"
)

// Call is one recorded invocation.
type Call struct {
	Op   string
	Args []any
}

// driver carries the recording and hook behavior shared by all fakes.
type driver struct {
	target.Base

	// Err is returned by every capability call (after recording it).
	Err error
	// ActivateErr and DeactivateErr are returned by the activation hooks.
	ActivateErr   error
	DeactivateErr error
	// Trace, when set, observes activation hooks ("activate"/"deactivate").
	Trace func(driver, event string)

	mu            sync.Mutex
	calls         []Call
	activations   int
	deactivations int
}

func bind(t *target.Target, name string, con console.Transport) (target.Base, error) {
	if t == nil || con == nil {
		return target.Base{}, fmt.Errorf("fake: %s: target and console are required", name)
	}
	if err := t.AddResource(con); err != nil {
		return target.Base{}, fmt.Errorf("fake: %s: %w", name, err)
	}
	return target.NewBase(t, name, con), nil
}

func (d *driver) OnActivate() error {
	d.mu.Lock()
	err := d.ActivateErr
	if err == nil {
		d.activations++
	}
	trace := d.Trace
	d.mu.Unlock()
	if err == nil && trace != nil {
		trace(d.Name(), "activate")
	}
	return err
}

func (d *driver) OnDeactivate() error {
	d.mu.Lock()
	err := d.DeactivateErr
	if err == nil {
		d.deactivations++
	}
	trace := d.Trace
	d.mu.Unlock()
	if err == nil && trace != nil {
		trace(d.Name(), "deactivate")
	}
	return err
}

// Calls returns a copy of the recorded calls.
func (d *driver) Calls() []Call {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]Call(nil), d.calls...)
}

// CallCount returns how many times op was called.
func (d *driver) CallCount(op string) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	n := 0
	for _, c := range d.calls {
		if c.Op == op {
			n++
		}
	}
	return n
}

// HookCounts reports how many times the driver was activated and
// deactivated.
func (d *driver) HookCounts() (activations, deactivations int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.activations, d.deactivations
}

func (d *driver) record(op string, args ...any) error {
	if err := d.CheckActive(); err != nil {
		return err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.calls = append(d.calls, Call{Op: op, Args: args})
	return d.Err
}

func register(t *target.Target, d target.Driver) error {
	if err := t.Register(d); err != nil {
		return fmt.Errorf("fake: %w", err)
	}
	return nil
}

var (
	_ protocol.Power         = (*PowerDriver)(nil)
	_ protocol.PowerReset    = (*ResetDriver)(nil)
	_ protocol.Sysboot       = (*SysbootDriver)(nil)
	_ protocol.Configuration = (*ConfigDriver)(nil)
	_ protocol.PowerMeter    = (*PowerMeterDriver)(nil)
)

// PowerDriver records On/Off.
type PowerDriver struct{ driver }

// NewPowerDriver creates and registers a fake power driver.
func NewPowerDriver(t *target.Target, name string, con console.Transport) (*PowerDriver, error) {
	base, err := bind(t, name, con)
	if err != nil {
		return nil, err
	}
	d := &PowerDriver{driver: driver{Base: base}}
	if err := register(t, d); err != nil {
		return nil, err
	}
	return d, nil
}

func (d *PowerDriver) Capabilities() []target.Capability {
	return []target.Capability{target.CapabilityPower}
}

func (d *PowerDriver) On() error  { return d.record("on") }
func (d *PowerDriver) Off() error { return d.record("off") }

// ResetDriver records the reset line operations.
type ResetDriver struct{ driver }

// NewResetDriver creates and registers a fake reset driver.
func NewResetDriver(t *target.Target, name string, con console.Transport) (*ResetDriver, error) {
	base, err := bind(t, name, con)
	if err != nil {
		return nil, err
	}
	d := &ResetDriver{driver: driver{Base: base}}
	if err := register(t, d); err != nil {
		return nil, err
	}
	return d, nil
}

func (d *ResetDriver) Capabilities() []target.Capability {
	return []target.Capability{target.CapabilityPowerReset}
}

func (d *ResetDriver) Reset() error      { return d.record("reset") }
func (d *ResetDriver) POR() error        { return d.record("por") }
func (d *ResetDriver) HoldPOR() error    { return d.record("hold_por") }
func (d *ResetDriver) ReleasePOR() error { return d.record("release_por") }

// SysbootDriver records requested boot modes verbatim.
type SysbootDriver struct{ driver }

// NewSysbootDriver creates and registers a fake sysboot driver.
func NewSysbootDriver(t *target.Target, name string, con console.Transport) (*SysbootDriver, error) {
	base, err := bind(t, name, con)
	if err != nil {
		return nil, err
	}
	d := &SysbootDriver{driver: driver{Base: base}}
	if err := register(t, d); err != nil {
		return nil, err
	}
	return d, nil
}

func (d *SysbootDriver) Capabilities() []target.Capability {
	return []target.Capability{target.CapabilitySysboot}
}

func (d *SysbootDriver) SetBootmode(mode string) error { return d.record("set_bootmode", mode) }

// ConfigDriver records selected DUTs.
type ConfigDriver struct{ driver }

// NewConfigDriver creates and registers a fake configuration driver.
func NewConfigDriver(t *target.Target, name string, con console.Transport) (*ConfigDriver, error) {
	base, err := bind(t, name, con)
	if err != nil {
		return nil, err
	}
	d := &ConfigDriver{driver: driver{Base: base}}
	if err := register(t, d); err != nil {
		return nil, err
	}
	return d, nil
}

func (d *ConfigDriver) Capabilities() []target.Capability {
	return []target.Capability{target.CapabilityConfiguration}
}

func (d *ConfigDriver) SetDUT(dut string) error { return d.record("set_dut", dut) }

// PowerMeterDriver records measurement requests and returns Rows.
type PowerMeterDriver struct {
	driver
	Rows []telemetry.RailData
}

// NewPowerMeterDriver creates and registers a fake power meter.
func NewPowerMeterDriver(t *target.Target, name string, con console.Transport) (*PowerMeterDriver, error) {
	base, err := bind(t, name, con)
	if err != nil {
		return nil, err
	}
	d := &PowerMeterDriver{driver: driver{Base: base}}
	if err := register(t, d); err != nil {
		return nil, err
	}
	return d, nil
}

func (d *PowerMeterDriver) Capabilities() []target.Capability {
	return []target.Capability{target.CapabilityPowerMeter}
}

func (d *PowerMeterDriver) MeasurePower(samples, delayMs int) ([]telemetry.RailData, error) {
	if err := d.record("measure_power", samples, delayMs); err != nil {
		return nil, err
	}
	return append([]telemetry.RailData(nil), d.Rows...), nil
}
