package target

import (
	"fmt"
	"strings"
)

// Capability is the closed set of logical capabilities a driver can provide.
type Capability int

const (
	CapabilityPower Capability = iota + 1
	CapabilityPowerReset
	CapabilitySysboot
	CapabilityConfiguration
	CapabilityPowerMeter
	// CapabilityAutomation is the facade that coordinates the others.
	CapabilityAutomation
)

var capabilityNames = map[Capability]string{
	CapabilityPower:         "power",
	CapabilityPowerReset:    "power-reset",
	CapabilitySysboot:       "sysboot",
	CapabilityConfiguration: "configuration",
	CapabilityPowerMeter:    "power-meter",
	CapabilityAutomation:    "automation",
}

var capabilityAliases = map[string]Capability{
	"por":    CapabilityPowerReset,
	"reset":  CapabilityPowerReset,
	"config": CapabilityConfiguration,
	"meter":  CapabilityPowerMeter,
	"tai":    CapabilityAutomation,
}

func (c Capability) String() string {
	if name, ok := capabilityNames[c]; ok {
		return name
	}
	return fmt.Sprintf("capability(%d)", int(c))
}

// ParseCapability accepts the canonical names returned by String plus a few
// short aliases ("por", "config", "meter", "tai").
func ParseCapability(s string) (Capability, error) {
	key := strings.ToLower(strings.TrimSpace(s))
	key = strings.ReplaceAll(key, "_", "-")
	for c, name := range capabilityNames {
		if name == key {
			return c, nil
		}
	}
	if c, ok := capabilityAliases[key]; ok {
		return c, nil
	}
	return 0, fmt.Errorf("target: unknown capability %q", s)
}

// DeviceCapabilities lists the capabilities backed by board drivers, i.e.
// everything except the automation facade.
func DeviceCapabilities() []Capability {
	return []Capability{
		CapabilityPower,
		CapabilityPowerReset,
		CapabilitySysboot,
		CapabilityConfiguration,
		CapabilityPowerMeter,
	}
}

// State is the activation state of a driver.
type State int

const (
	StateInactive State = iota
	StateActive
)

func (s State) String() string {
	if s == StateActive {
		return "active"
	}
	return "inactive"
}
