package console

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/google/gousb"
)

// ProbeKind categorizes USB console bridges found on the host.
type ProbeKind string

const (
	ProbeKindTiva    ProbeKind = "tiva-icdi"
	ProbeKindXDS110  ProbeKind = "xds110"
	ProbeKindFTDI    ProbeKind = "ftdi"
	ProbeKindCP210x  ProbeKind = "cp210x"
	ProbeKindSim     ProbeKind = "simulator"
	ProbeKindUnknown ProbeKind = "unknown"
)

// ErrUSBUnavailable is returned by a scan when the USB bus could not be
// enumerated. The simulator entry is still reported.
var ErrUSBUnavailable = errors.New("console: usb unavailable")

// ProbeInfo describes a detected console bridge.
type ProbeInfo struct {
	Kind        ProbeKind
	Description string
	VendorID    uint16
	ProductID   uint16
	Bus         int
	Address     int
}

// Label names the probe for humans, with its bus position when known.
func (p ProbeInfo) Label() string {
	name := p.Description
	if name == "" {
		name = fmt.Sprintf("%s (%04X:%04X)", p.Kind, p.VendorID, p.ProductID)
	}
	if p.Bus == 0 && p.Address == 0 {
		return name
	}
	return fmt.Sprintf("%s @ bus %d addr %d", name, p.Bus, p.Address)
}

// USBDevice is the part of a USB device descriptor a scan looks at.
type USBDevice struct {
	Vendor  uint16
	Product uint16
	Bus     int
	Address int
}

// ProbeScanner finds board controllers and debug probes. Enumerate lists the
// devices on the bus; the default walks libusb.
type ProbeScanner struct {
	Enumerate func(ctx context.Context) ([]USBDevice, error)
	// WithSimulator appends the always-available simulated console.
	WithSimulator bool
}

// NewProbeScanner returns a scanner over the host's USB bus.
func NewProbeScanner() *ProbeScanner {
	return &ProbeScanner{Enumerate: enumerateUSB, WithSimulator: true}
}

// DiscoverProbes scans the host with NewProbeScanner.
func DiscoverProbes(ctx context.Context) ([]ProbeInfo, error) {
	return NewProbeScanner().Scan(ctx)
}

// Scan returns the recognized devices ordered by bus and address. On an
// enumeration failure the error wraps ErrUSBUnavailable and the result still
// carries the simulator entry.
func (s *ProbeScanner) Scan(ctx context.Context) ([]ProbeInfo, error) {
	var (
		found   []ProbeInfo
		scanErr error
	)
	if s.Enumerate != nil {
		devs, err := s.Enumerate(ctx)
		if err != nil {
			scanErr = fmt.Errorf("%w: %v", ErrUSBUnavailable, err)
		}
		for _, dev := range devs {
			kind, label, ok := classifyVIDPID(dev.Vendor, dev.Product)
			if !ok {
				continue
			}
			found = append(found, ProbeInfo{
				Kind:        kind,
				Description: label,
				VendorID:    dev.Vendor,
				ProductID:   dev.Product,
				Bus:         dev.Bus,
				Address:     dev.Address,
			})
		}
	}
	sort.SliceStable(found, func(i, j int) bool {
		if found[i].Bus != found[j].Bus {
			return found[i].Bus < found[j].Bus
		}
		return found[i].Address < found[j].Address
	})

	if s.WithSimulator {
		found = append(found, ProbeInfo{Kind: ProbeKindSim, Description: "Simulator (no hardware)"})
	}
	return found, scanErr
}

// enumerateUSB lists the bus without opening any device. libusb reports a
// failed init by panicking in gousb.NewContext; that becomes an error here.
func enumerateUSB(ctx context.Context) (devs []USBDevice, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("libusb init: %v", r)
		}
	}()

	usb := gousb.NewContext()
	defer usb.Close()

	_, err = usb.OpenDevices(func(desc *gousb.DeviceDesc) bool {
		if ctx.Err() != nil {
			return false
		}
		devs = append(devs, USBDevice{
			Vendor:  uint16(desc.Vendor),
			Product: uint16(desc.Product),
			Bus:     desc.Bus,
			Address: desc.Address,
		})
		return false
	})
	if errors.Is(err, gousb.ErrorAccess) {
		err = nil
	}
	if err == nil {
		err = ctx.Err()
	}
	return devs, err
}

type vidpid struct{ vid, pid uint16 }

type probeModel struct {
	kind ProbeKind
	name string
}

var probeModels = map[vidpid]probeModel{
	{0x1cbe, 0x00fd}: {ProbeKindTiva, "TI Tiva/Stellaris ICDI"},
	{0x0451, 0xbef3}: {ProbeKindXDS110, "TI XDS110"},
	{0x0451, 0xbef4}: {ProbeKindXDS110, "TI XDS110 (CMSIS-DAP)"},
	{0x0403, 0x6001}: {ProbeKindFTDI, "FTDI FT232R"},
	{0x0403, 0x6010}: {ProbeKindFTDI, "FTDI FT2232"},
	{0x0403, 0x6011}: {ProbeKindFTDI, "FTDI FT4232"},
	{0x0403, 0x6014}: {ProbeKindFTDI, "FTDI FT232H"},
	{0x10c4, 0xea60}: {ProbeKindCP210x, "Silicon Labs CP210x"},
}

func classifyVIDPID(vid, pid uint16) (ProbeKind, string, bool) {
	m, ok := probeModels[vidpid{vid, pid}]
	if !ok {
		return ProbeKindUnknown, "", false
	}
	return m.kind, m.name, true
}
