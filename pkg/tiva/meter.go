package tiva

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/OpenTraceLab/OpenTraceTAI/pkg/console"
	"github.com/OpenTraceLab/OpenTraceTAI/pkg/protocol"
	"github.com/OpenTraceLab/OpenTraceTAI/pkg/target"
	"github.com/OpenTraceLab/OpenTraceTAI/pkg/telemetry"
)

var _ protocol.PowerMeter = (*PowerMeterDriver)(nil)

const (
	DefaultPrompt    = "=>"
	DefaultReadGrace = 2 * time.Second
	DefaultReadPoll  = 10 * time.Millisecond
	maxDrainReads    = 1024
)

// ErrConsoleBusy is returned when stale console output does not stop
// arriving before a measurement.
var ErrConsoleBusy = errors.New("tiva: console keeps producing output")

// PowerMeterDriver asks the board controller for INA readings and parses
// the table it prints.
type PowerMeterDriver struct {
	consoleDriver
	prompt string
	grace  time.Duration
	poll   time.Duration
}

// MeterOption customizes a PowerMeterDriver.
type MeterOption func(*PowerMeterDriver)

// WithPrompt sets the marker that ends the controller's reply.
func WithPrompt(prompt string) MeterOption {
	return func(d *PowerMeterDriver) {
		if prompt != "" {
			d.prompt = prompt
		}
	}
}

// WithReadGrace sets how long to wait for the reply beyond samples*delay.
func WithReadGrace(grace time.Duration) MeterOption {
	return func(d *PowerMeterDriver) {
		if grace > 0 {
			d.grace = grace
		}
	}
}

// WithReadPoll sets the idle interval between console reads.
func WithReadPoll(poll time.Duration) MeterOption {
	return func(d *PowerMeterDriver) {
		if poll > 0 {
			d.poll = poll
		}
	}
}

// NewPowerMeterDriver creates a power meter driver bound to con and
// registers it with t.
func NewPowerMeterDriver(t *target.Target, name string, con console.Transport, opts ...MeterOption) (*PowerMeterDriver, error) {
	base, err := newConsoleDriver(t, name, con)
	if err != nil {
		return nil, err
	}
	d := &PowerMeterDriver{
		consoleDriver: base,
		prompt:        DefaultPrompt,
		grace:         DefaultReadGrace,
		poll:          DefaultReadPoll,
	}
	for _, opt := range opts {
		opt(d)
	}
	if err := register(t, d); err != nil {
		return nil, err
	}
	return d, nil
}

func (d *PowerMeterDriver) Capabilities() []target.Capability {
	return []target.Capability{target.CapabilityPowerMeter}
}

// MeasurePower samples every rail samples times, delayMs apart, and returns
// the rows the controller reports.
func (d *PowerMeterDriver) MeasurePower(samples, delayMs int) ([]telemetry.RailData, error) {
	if samples < 1 {
		return nil, fmt.Errorf("tiva: samples must be positive, got %d", samples)
	}
	if delayMs < 0 {
		return nil, fmt.Errorf("tiva: delay must not be negative, got %d", delayMs)
	}
	if err := d.CheckActive(); err != nil {
		return nil, err
	}
	if err := d.drain(); err != nil {
		return nil, err
	}
	if err := d.send(fmt.Sprintf("auto measure_power %d %d", samples, delayMs)); err != nil {
		return nil, err
	}

	timeout := time.Duration(samples*delayMs)*time.Millisecond + d.grace
	text, err := console.ReadUntilFunc(d.console, d.tableDone, "power table", timeout, d.poll)
	if err != nil {
		return nil, err
	}
	rows := telemetry.ExtractRailData(text)
	d.log.Debug().Int("rows", len(rows)).Int("samples", samples).Int("delay_ms", delayMs).Msg("power measured")
	return rows, nil
}

// tableDone reports whether text holds a table followed by the prompt.
// Prompts left over from earlier commands precede the first cell and do not
// count.
func (d *PowerMeterDriver) tableDone(text string) bool {
	i := strings.IndexByte(text, '|')
	return i >= 0 && strings.Contains(text[i:], d.prompt)
}

// drain discards stale console output so it is not mistaken for the reply.
func (d *PowerMeterDriver) drain() error {
	for i := 0; i < maxDrainReads; i++ {
		chunk, err := d.console.Read()
		if err != nil {
			return err
		}
		if len(chunk) == 0 {
			return nil
		}
	}
	return fmt.Errorf("%w after %d reads on %s", ErrConsoleBusy, maxDrainReads, d.console.ID())
}
