// Package tai implements the test-automation interface: a facade that
// exposes every board capability and, before each call, makes the backing
// driver the only active driver on its console.
package tai

import (
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/OpenTraceLab/OpenTraceTAI/pkg/protocol"
	"github.com/OpenTraceLab/OpenTraceTAI/pkg/target"
	"github.com/OpenTraceLab/OpenTraceTAI/pkg/telemetry"
)

var _ protocol.Automation = (*Driver)(nil)

// Bindings maps a capability to the name of the driver providing it. An
// empty name selects the only driver of that capability on the target.
// Capabilities missing from the map are unbound.
type Bindings map[target.Capability]string

// DefaultBindings binds every device capability to the target's sole
// driver of that kind.
func DefaultBindings() Bindings {
	b := make(Bindings)
	for _, c := range target.DeviceCapabilities() {
		b[c] = ""
	}
	return b
}

// Driver is the automation facade. It keeps no state besides its bindings,
// which are resolved once in New.
type Driver struct {
	target.Base
	bound map[target.Capability]target.Driver
	log   zerolog.Logger
}

// New resolves b against t and registers the facade on t.
func New(t *target.Target, name string, b Bindings) (*Driver, error) {
	if t == nil {
		return nil, fmt.Errorf("tai: nil target")
	}
	d := &Driver{
		Base:  target.NewBase(t, name),
		bound: make(map[target.Capability]target.Driver, len(b)),
		log:   log.Logger.With().Str("component", "tai").Str("driver", name).Logger(),
	}

	kinds := make([]target.Capability, 0, len(b))
	for kind := range b {
		kinds = append(kinds, kind)
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })

	for _, kind := range kinds {
		drv, err := t.Resolve(kind, b[kind])
		if err != nil {
			return nil, fmt.Errorf("tai: binding %s: %w", kind, err)
		}
		if err := checkProtocol(kind, drv); err != nil {
			return nil, err
		}
		d.bound[kind] = drv
	}

	if err := t.Register(d); err != nil {
		return nil, fmt.Errorf("tai: %w", err)
	}
	return d, nil
}

func checkProtocol(kind target.Capability, drv target.Driver) error {
	var ok bool
	switch kind {
	case target.CapabilityPower:
		_, ok = drv.(protocol.Power)
	case target.CapabilityPowerReset:
		_, ok = drv.(protocol.PowerReset)
	case target.CapabilitySysboot:
		_, ok = drv.(protocol.Sysboot)
	case target.CapabilityConfiguration:
		_, ok = drv.(protocol.Configuration)
	case target.CapabilityPowerMeter:
		_, ok = drv.(protocol.PowerMeter)
	default:
		return fmt.Errorf("tai: capability %s cannot be bound to the facade", kind)
	}
	if !ok {
		return fmt.Errorf("tai: driver %s does not implement %s", drv.Name(), kind)
	}
	return nil
}

func (d *Driver) Capabilities() []target.Capability {
	return []target.Capability{target.CapabilityAutomation}
}

// Bound returns the driver bound to kind.
func (d *Driver) Bound(kind target.Capability) (target.Driver, bool) {
	drv, ok := d.bound[kind]
	return drv, ok
}

// with makes the driver bound to kind exclusively active and calls fn with
// it as the capability interface T. The console stays claimed until fn
// returns, so concurrent facade calls never interleave on it.
func with[T any](d *Driver, kind target.Capability, fn func(T) error) error {
	drv, ok := d.bound[kind]
	if !ok {
		return fmt.Errorf("%w: %s is not bound on %s", target.ErrUnboundCapability, kind, d.Name())
	}
	return d.Target().Arbiter().Exclusive(drv, func() error {
		return fn(drv.(T))
	})
}

// step runs fn and logs it like a test step.
func (d *Driver) step(op string, fn func() error, fields func(*zerolog.Event)) error {
	start := time.Now()
	err := fn()
	var ev *zerolog.Event
	if err != nil {
		ev = d.log.Error().Err(err)
	} else {
		ev = d.log.Info()
	}
	if fields != nil {
		fields(ev)
	}
	ev.Str("step", op).Dur("took", time.Since(start)).Msg("step")
	return err
}

// SetDUT selects the device under test on the configuration driver.
func (d *Driver) SetDUT(dut string) error {
	return d.step("set_dut", func() error {
		return with(d, target.CapabilityConfiguration, func(cfg protocol.Configuration) error {
			return cfg.SetDUT(dut)
		})
	}, func(e *zerolog.Event) { e.Str("dut", dut) })
}

// SetBootmode selects the boot mode on the sysboot driver.
func (d *Driver) SetBootmode(mode string) error {
	return d.step("set_bootmode", func() error {
		return with(d, target.CapabilitySysboot, func(sb protocol.Sysboot) error {
			return sb.SetBootmode(mode)
		})
	}, func(e *zerolog.Event) { e.Str("mode", mode) })
}

func (d *Driver) PowerOn() error {
	return d.step("power_on", func() error {
		return with(d, target.CapabilityPower, func(p protocol.Power) error {
			return p.On()
		})
	}, nil)
}

func (d *Driver) PowerOff() error {
	return d.step("power_off", func() error {
		return with(d, target.CapabilityPower, func(p protocol.Power) error {
			return p.Off()
		})
	}, nil)
}

func (d *Driver) Reset() error {
	return d.step("reset", func() error {
		return with(d, target.CapabilityPowerReset, func(r protocol.PowerReset) error {
			return r.Reset()
		})
	}, nil)
}

func (d *Driver) POR() error {
	return d.step("por", func() error {
		return with(d, target.CapabilityPowerReset, func(r protocol.PowerReset) error {
			return r.POR()
		})
	}, nil)
}

func (d *Driver) HoldPOR() error {
	return d.step("hold_por", func() error {
		return with(d, target.CapabilityPowerReset, func(r protocol.PowerReset) error {
			return r.HoldPOR()
		})
	}, nil)
}

func (d *Driver) ReleasePOR() error {
	return d.step("release_por", func() error {
		return with(d, target.CapabilityPowerReset, func(r protocol.PowerReset) error {
			return r.ReleasePOR()
		})
	}, nil)
}

// MeasurePower samples the power rails through the power meter driver.
func (d *Driver) MeasurePower(samples, delayMs int) ([]telemetry.RailData, error) {
	var rows []telemetry.RailData
	err := d.step("measure_power", func() error {
		return with(d, target.CapabilityPowerMeter, func(m protocol.PowerMeter) error {
			var err error
			rows, err = m.MeasurePower(samples, delayMs)
			return err
		})
	}, func(e *zerolog.Event) { e.Int("samples", samples).Int("delay_ms", delayMs) })
	return rows, err
}
