package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/OpenTraceLab/OpenTraceTAI/pkg/target"
)

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestDefaultConfigValidates(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if cfg.Console.Kind != ConsoleSim {
		t.Fatalf("console kind = %q", cfg.Console.Kind)
	}
	for _, kind := range target.DeviceCapabilities() {
		if got := cfg.DriverFor(kind); got != DriverTiva {
			t.Fatalf("DriverFor(%s) = %q, want tiva", kind, got)
		}
	}
}

func TestLoadYAML(t *testing.T) {
	path := writeFile(t, "bench.yaml", `
target: lab1
device_type: am64xx-evm
console:
  kind: file
  path: /dev/ttyACM0
  id: tiva0
bootcodes:
  - /etc/tai/bootcodes
drivers:
  power-meter: fake
  por: tiva
measure_grace: 500ms
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Target != "lab1" || cfg.DeviceType != "am64xx-evm" {
		t.Fatalf("unexpected target/device: %+v", cfg)
	}
	if cfg.Console.Kind != ConsoleFile || cfg.Console.Path != "/dev/ttyACM0" || cfg.Console.ID != "tiva0" {
		t.Fatalf("unexpected console: %+v", cfg.Console)
	}
	if cfg.Prompt != "=>" {
		t.Fatalf("prompt default lost: %q", cfg.Prompt)
	}
	if len(cfg.BootCodes) != 1 {
		t.Fatalf("bootcodes = %v", cfg.BootCodes)
	}
	if cfg.MeasureGrace.Duration != 500*time.Millisecond {
		t.Fatalf("measure_grace = %v", cfg.MeasureGrace)
	}
	if got := cfg.DriverFor(target.CapabilityPowerMeter); got != DriverFake {
		t.Fatalf("DriverFor(power-meter) = %q", got)
	}
	if got := cfg.DriverFor(target.CapabilityPower); got != DriverTiva {
		t.Fatalf("DriverFor(power) = %q", got)
	}
}

func TestLoadTOML(t *testing.T) {
	path := writeFile(t, "bench.toml", `
device_type = "am62xx-sk"
prompt = "tiva>"
measure_grace = "3s"

[console]
kind = "sim"

[drivers]
sysboot = "fake"
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Prompt != "tiva>" {
		t.Fatalf("prompt = %q", cfg.Prompt)
	}
	if cfg.MeasureGrace.Duration != 3*time.Second {
		t.Fatalf("measure_grace = %v", cfg.MeasureGrace)
	}
	if got := cfg.DriverFor(target.CapabilitySysboot); got != DriverFake {
		t.Fatalf("DriverFor(sysboot) = %q", got)
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	cases := []struct {
		name string
		file string
		body string
		want string
	}{
		{"extension", "bench.json", `{}`, "unsupported format"},
		{"syntax", "bench.yaml", "console: [", "parse"},
		{"console kind", "bench.yaml", "console:\n  kind: usb\n", "unknown console kind"},
		{"file without path", "bench.yaml", "console:\n  kind: file\n", "console.path"},
		{"capability", "bench.yaml", "drivers:\n  turbo: tiva\n", "unknown capability"},
		{"implementation", "bench.yaml", "drivers:\n  power: gpio\n", "unknown implementation"},
		{"device type", "bench.toml", "device_type = \"\"\n", "device_type"},
		{"alias and canonical name", "bench.yaml", "drivers:\n  por: fake\n  power-reset: tiva\n", "both select power-reset"},
		{"two aliases", "bench.yaml", "drivers:\n  meter: fake\n  power_meter: tiva\n", "both select power-meter"},
		{"automation", "bench.yaml", "drivers:\n  automation: fake\n", "not configurable"},
		{"automation alias", "bench.toml", "[drivers]\ntai = \"tiva\"\n", "not configurable"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Load(writeFile(t, tc.file, tc.body))
			if err == nil {
				t.Fatalf("expected error")
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("error %q does not mention %q", err, tc.want)
			}
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatalf("expected error for missing file")
	}
}
