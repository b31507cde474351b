package sysboot

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

var (
	// ErrUnknownDevice is returned when no boot codes exist for a device type.
	ErrUnknownDevice = errors.New("sysboot: unknown device type")
	// ErrUnknownMode is returned when the device type is known but the mode is not.
	ErrUnknownMode = errors.New("sysboot: unknown boot mode")
)

// NotFoundError describes a failed lookup. Err is ErrUnknownDevice or
// ErrUnknownMode.
type NotFoundError struct {
	DeviceType string
	Mode       string
	Err        error
}

func (e *NotFoundError) Error() string {
	if errors.Is(e.Err, ErrUnknownDevice) {
		return fmt.Sprintf("sysboot: no boot codes for device type %q", e.DeviceType)
	}
	return fmt.Sprintf("sysboot: device type %q has no boot mode %q", e.DeviceType, e.Mode)
}

func (e *NotFoundError) Unwrap() error { return e.Err }

// Repository knows how to translate a boot mode into the code a given device
// type expects, e.g. am62xx-sk + mmc => 0243.
type Repository interface {
	Lookup(deviceType, mode string) (string, error)
}

// Store is a Repository that can also be populated.
type Store interface {
	Repository
	Save(deviceType, mode, code string)
}

// MemoryRepository is a process-lifetime, in-memory Store. Save merges into
// the per-device table, so saving a second mode keeps the first one.
type MemoryRepository struct {
	mu    sync.RWMutex
	codes map[string]map[string]string
}

// NewMemoryRepository creates an empty repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		codes: make(map[string]map[string]string),
	}
}

// NewSeededRepository returns a repository holding the built-in table:
//
//	am62xx-sk: mmc => 0243
func NewSeededRepository() *MemoryRepository {
	r := NewMemoryRepository()
	r.Save("am62xx-sk", "mmc", "0243")
	return r
}

// Lookup implements the Repository interface.
func (r *MemoryRepository) Lookup(deviceType, mode string) (string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	modes, ok := r.codes[deviceType]
	if !ok {
		return "", &NotFoundError{DeviceType: deviceType, Mode: mode, Err: ErrUnknownDevice}
	}
	code, ok := modes[mode]
	if !ok {
		return "", &NotFoundError{DeviceType: deviceType, Mode: mode, Err: ErrUnknownMode}
	}
	return code, nil
}

// Save inserts or overwrites the code for a single (deviceType, mode) pair.
func (r *MemoryRepository) Save(deviceType, mode, code string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	modes, ok := r.codes[deviceType]
	if !ok {
		modes = make(map[string]string)
		r.codes[deviceType] = modes
	}
	modes[mode] = code
}

// Devices lists the known device types in sorted order.
func (r *MemoryRepository) Devices() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.codes))
	for dev := range r.codes {
		out = append(out, dev)
	}
	sort.Strings(out)
	return out
}

// Modes returns a copy of the mode table for a device type.
func (r *MemoryRepository) Modes(deviceType string) (map[string]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	modes, ok := r.codes[deviceType]
	if !ok {
		return nil, &NotFoundError{DeviceType: deviceType, Err: ErrUnknownDevice}
	}
	out := make(map[string]string, len(modes))
	for m, c := range modes {
		out[m] = c
	}
	return out, nil
}
