// Package protocol defines one interface per board capability. A driver
// implements the interfaces for the capabilities it supports.
package protocol

import "github.com/OpenTraceLab/OpenTraceTAI/pkg/telemetry"

// Power switches the device under test on and off.
type Power interface {
	On() error
	Off() error
}

// PowerReset controls the reset lines of the device under test.
type PowerReset interface {
	Reset() error
	POR() error
	HoldPOR() error
	ReleasePOR() error
}

// Sysboot selects the boot mode of the device under test.
type Sysboot interface {
	SetBootmode(mode string) error
}

// Configuration selects which device the board controller talks to.
type Configuration interface {
	SetDUT(dut string) error
}

// PowerMeter samples the INA power rails.
type PowerMeter interface {
	MeasurePower(samples, delayMs int) ([]telemetry.RailData, error)
}

// Automation is the test-automation interface: one entry point for every
// capability.
type Automation interface {
	SetDUT(dut string) error
	SetBootmode(mode string) error
	PowerOn() error
	PowerOff() error
	Reset() error
	POR() error
	HoldPOR() error
	ReleasePOR() error
	MeasurePower(samples, delayMs int) ([]telemetry.RailData, error)
}
