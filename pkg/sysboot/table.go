package sysboot

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// Table is the on-disk shape of a boot-code table:
//
//	am62xx-sk:
//	  mmc: "0243"
//
// or the TOML equivalent:
//
//	[am62xx-sk]
//	mmc = "0243"
type Table map[string]map[string]string

// ParseTable decodes a table in the format implied by the file extension
// (".yaml", ".yml" or ".toml").
func ParseTable(name string, data []byte) (Table, error) {
	var table Table
	switch strings.ToLower(filepath.Ext(name)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &table); err != nil {
			return nil, fmt.Errorf("sysboot: parse %s: %w", name, err)
		}
	case ".toml":
		if err := toml.Unmarshal(data, &table); err != nil {
			return nil, fmt.Errorf("sysboot: parse %s: %w", name, err)
		}
	default:
		return nil, fmt.Errorf("sysboot: unsupported table format %q", filepath.Ext(name))
	}
	if err := table.validate(); err != nil {
		return nil, fmt.Errorf("sysboot: %s: %w", name, err)
	}
	return table, nil
}

func (t Table) validate() error {
	for dev, modes := range t {
		if strings.TrimSpace(dev) == "" {
			return fmt.Errorf("empty device type")
		}
		for mode, code := range modes {
			if strings.TrimSpace(mode) == "" {
				return fmt.Errorf("device %q: empty mode", dev)
			}
			if strings.TrimSpace(code) == "" {
				return fmt.Errorf("device %q mode %q: empty code", dev, mode)
			}
		}
	}
	return nil
}

// Apply saves every entry of the table into store, in a stable order.
func (t Table) Apply(store Store) {
	devices := make([]string, 0, len(t))
	for dev := range t {
		devices = append(devices, dev)
	}
	sort.Strings(devices)
	for _, dev := range devices {
		modes := make([]string, 0, len(t[dev]))
		for mode := range t[dev] {
			modes = append(modes, mode)
		}
		sort.Strings(modes)
		for _, mode := range modes {
			store.Save(dev, mode, t[dev][mode])
		}
	}
}

// LoadFile parses a table file and saves its entries into the repository.
func (r *MemoryRepository) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("sysboot: read %s: %w", path, err)
	}
	table, err := ParseTable(path, data)
	if err != nil {
		return err
	}
	table.Apply(r)
	return nil
}

// LoadDir recursively loads all table files (.yaml/.yml/.toml) below root.
func (r *MemoryRepository) LoadDir(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() || !isTableFile(path) {
			return nil
		}
		return r.LoadFile(path)
	})
}

func isTableFile(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml", ".toml":
		return true
	default:
		return false
	}
}
