package tiva

import (
	"fmt"

	"github.com/OpenTraceLab/OpenTraceTAI/pkg/console"
	"github.com/OpenTraceLab/OpenTraceTAI/pkg/protocol"
	"github.com/OpenTraceLab/OpenTraceTAI/pkg/sysboot"
	"github.com/OpenTraceLab/OpenTraceTAI/pkg/target"
)

var _ protocol.Sysboot = (*SysbootDriver)(nil)

// SysbootDriver sets the DUT boot mode by writing the code the repository
// holds for the driver's device type.
type SysbootDriver struct {
	consoleDriver
	repo       sysboot.Repository
	deviceType string
}

// NewSysbootDriver creates a sysboot driver for deviceType bound to con and
// registers it with t.
func NewSysbootDriver(t *target.Target, name string, con console.Transport, repo sysboot.Repository, deviceType string) (*SysbootDriver, error) {
	if repo == nil {
		return nil, fmt.Errorf("tiva: %s: nil boot-code repository", name)
	}
	if deviceType == "" {
		return nil, fmt.Errorf("tiva: %s: device type must not be empty", name)
	}
	base, err := newConsoleDriver(t, name, con)
	if err != nil {
		return nil, err
	}
	d := &SysbootDriver{consoleDriver: base, repo: repo, deviceType: deviceType}
	if err := register(t, d); err != nil {
		return nil, err
	}
	return d, nil
}

func (d *SysbootDriver) Capabilities() []target.Capability {
	return []target.Capability{target.CapabilitySysboot}
}

// DeviceType returns the device type used for boot-code lookups.
func (d *SysbootDriver) DeviceType() string { return d.deviceType }

// SetBootmode looks up the code for mode and writes it. A failed lookup is
// returned as is and nothing is written.
func (d *SysbootDriver) SetBootmode(mode string) error {
	if err := d.CheckActive(); err != nil {
		return err
	}
	code, err := d.repo.Lookup(d.deviceType, mode)
	if err != nil {
		return err
	}
	d.log.Info().Str("code", code).Str("mode", mode).Msg("using sysboot code")
	return d.send("auto sysboot " + code)
}
