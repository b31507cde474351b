// Package bench assembles a target, its console, the capability drivers and
// the automation facade from a config.Config.
package bench

import (
	"errors"
	"fmt"
	"os"

	"github.com/rs/zerolog/log"

	"github.com/OpenTraceLab/OpenTraceTAI/internal/config"
	"github.com/OpenTraceLab/OpenTraceTAI/pkg/console"
	"github.com/OpenTraceLab/OpenTraceTAI/pkg/fake"
	"github.com/OpenTraceLab/OpenTraceTAI/pkg/sysboot"
	"github.com/OpenTraceLab/OpenTraceTAI/pkg/tai"
	"github.com/OpenTraceLab/OpenTraceTAI/pkg/target"
	"github.com/OpenTraceLab/OpenTraceTAI/pkg/tiva"
)

// Driver names registered on the target.
const (
	PowerName   = "TivaPower"
	ResetName   = "TivaPor"
	SysbootName = "TivaSysboot"
	ConfigName  = "TivaConfig"
	MeterName   = "TivaPowerMeter"
	FacadeName  = "BoardAutomation"
)

// Bench is a fully wired board-automation stack.
type Bench struct {
	Config  *config.Config
	Target  *target.Target
	Console console.Transport
	// Board is the emulated controller when the console is simulated.
	Board   *Board
	Repo    *sysboot.MemoryRepository
	TAI     *tai.Driver
	drivers map[target.Capability]target.Driver
}

// Build wires a bench from cfg. The caller must Close it.
func Build(cfg *config.Config) (*Bench, error) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger := log.Logger.With().Str("target", cfg.Target).Logger()
	b := &Bench{
		Config:  cfg,
		Target:  target.New(cfg.Target, target.WithLogger(logger)),
		Repo:    sysboot.NewSeededRepository(),
		drivers: make(map[target.Capability]target.Driver),
	}

	for _, path := range cfg.BootCodes {
		if err := loadBootCodes(b.Repo, path); err != nil {
			return nil, err
		}
	}

	con, err := openConsole(cfg, b)
	if err != nil {
		return nil, err
	}
	b.Console = con

	for _, kind := range target.DeviceCapabilities() {
		drv, err := b.newDriver(kind, cfg.DriverFor(kind))
		if err != nil {
			b.Close()
			return nil, err
		}
		b.drivers[kind] = drv
	}

	facade, err := tai.New(b.Target, FacadeName, tai.DefaultBindings())
	if err != nil {
		b.Close()
		return nil, fmt.Errorf("bench: %w", err)
	}
	b.TAI = facade
	logger.Debug().Str("console", string(con.ID())).Str("device_type", cfg.DeviceType).Msg("bench ready")
	return b, nil
}

func loadBootCodes(repo *sysboot.MemoryRepository, path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("bench: bootcodes: %w", err)
	}
	if info.IsDir() {
		err = repo.LoadDir(path)
	} else {
		err = repo.LoadFile(path)
	}
	if err != nil {
		return fmt.Errorf("bench: bootcodes: %w", err)
	}
	return nil
}

func openConsole(cfg *config.Config, b *Bench) (console.Transport, error) {
	id := console.ResourceID(cfg.Console.ID)
	switch cfg.Console.Kind {
	case config.ConsoleFile:
		fc, err := console.OpenFile(cfg.Console.Path, id)
		if err != nil {
			return nil, fmt.Errorf("bench: %w", err)
		}
		return fc, nil
	default:
		sim := console.NewSimConsole(id)
		b.Board = NewBoard(cfg.Prompt)
		sim.OnWrite = b.Board.Handle
		return sim, nil
	}
}

func (b *Bench) newDriver(kind target.Capability, impl string) (target.Driver, error) {
	if impl == config.DriverFake {
		return b.newFake(kind)
	}
	t, con := b.Target, b.Console
	switch kind {
	case target.CapabilityPower:
		return tiva.NewPowerDriver(t, PowerName, con)
	case target.CapabilityPowerReset:
		return tiva.NewPorDriver(t, ResetName, con)
	case target.CapabilitySysboot:
		return tiva.NewSysbootDriver(t, SysbootName, con, b.Repo, b.Config.DeviceType)
	case target.CapabilityConfiguration:
		return tiva.NewConfigDriver(t, ConfigName, con)
	case target.CapabilityPowerMeter:
		return tiva.NewPowerMeterDriver(t, MeterName, con,
			tiva.WithPrompt(b.Config.Prompt),
			tiva.WithReadGrace(b.Config.MeasureGrace.Duration))
	}
	return nil, fmt.Errorf("bench: no driver for %s", kind)
}

func (b *Bench) newFake(kind target.Capability) (target.Driver, error) {
	t, con := b.Target, b.Console
	switch kind {
	case target.CapabilityPower:
		return fake.NewPowerDriver(t, PowerName, con)
	case target.CapabilityPowerReset:
		return fake.NewResetDriver(t, ResetName, con)
	case target.CapabilitySysboot:
		return fake.NewSysbootDriver(t, SysbootName, con)
	case target.CapabilityConfiguration:
		return fake.NewConfigDriver(t, ConfigName, con)
	case target.CapabilityPowerMeter:
		return fake.NewPowerMeterDriver(t, MeterName, con)
	}
	return nil, fmt.Errorf("bench: no fake for %s", kind)
}

// Driver returns the driver built for kind.
func (b *Bench) Driver(kind target.Capability) (target.Driver, bool) {
	d, ok := b.drivers[kind]
	return d, ok
}

// Close deactivates every driver and releases the console.
func (b *Bench) Close() error {
	var errs []error
	if b.Target != nil {
		errs = append(errs, b.Target.Cleanup())
	}
	if c, ok := b.Console.(interface{ Close() error }); ok {
		errs = append(errs, c.Close())
	}
	return errors.Join(errs...)
}
