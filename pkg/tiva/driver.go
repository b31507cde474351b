package tiva

import (
	"fmt"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/OpenTraceLab/OpenTraceTAI/pkg/console"
	"github.com/OpenTraceLab/OpenTraceTAI/pkg/target"
)

// consoleDriver is the part shared by every console-backed driver.
type consoleDriver struct {
	target.Base
	console console.Transport
	log     zerolog.Logger
}

func newConsoleDriver(t *target.Target, name string, con console.Transport) (consoleDriver, error) {
	if t == nil {
		return consoleDriver{}, fmt.Errorf("tiva: %s: nil target", name)
	}
	if con == nil {
		return consoleDriver{}, fmt.Errorf("tiva: %s: nil console", name)
	}
	if err := t.AddResource(con); err != nil {
		return consoleDriver{}, fmt.Errorf("tiva: %s: %w", name, err)
	}
	return consoleDriver{
		Base:    target.NewBase(t, name, con),
		console: con,
		log:     log.Logger.With().Str("component", "tiva").Str("driver", name).Logger(),
	}, nil
}

// Console returns the bound transport.
func (d *consoleDriver) Console() console.Transport { return d.console }

func (d *consoleDriver) send(line string) error {
	if err := d.CheckActive(); err != nil {
		return err
	}
	d.log.Debug().Str("line", line).Msg("send")
	return console.WriteLine(d.console, line)
}

func register(t *target.Target, d target.Driver) error {
	if err := t.Register(d); err != nil {
		return fmt.Errorf("tiva: %w", err)
	}
	return nil
}
