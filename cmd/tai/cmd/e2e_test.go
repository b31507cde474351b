package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// execute runs the root command with args and returns what it printed.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()

	// Capture stdout
	old := os.Stdout
	r, w, _ := os.Pipe()
	os.Stdout = w

	// Read in background to prevent pipe buffer from blocking
	var buf bytes.Buffer
	done := make(chan struct{})
	go func() {
		buf.ReadFrom(r)
		close(done)
	}()

	// Reset flags to prevent accumulation between tests
	verbose = false
	configPath = ""
	consoleKind = ""
	consolePort = ""
	deviceType = ""
	bootCodePaths = nil
	porHold = false
	porRelease = false
	measureSamples = 5
	measureDelay = 5
	measureJSON = false

	rootCmd.SetArgs(args)
	err := rootCmd.Execute()

	// Restore stdout and wait for reader
	w.Close()
	os.Stdout = old
	<-done

	return buf.String(), err
}

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

// TestCommandsE2E runs each command against the simulated board
func TestCommandsE2E(t *testing.T) {
	tables := writeFile(t, "am64.toml", "[am64xx-evm]\nuart = \"0073\"\nmmc = \"0051\"\n")
	yamlConfig := writeFile(t, "bench.yaml", "device_type: am64xx-evm\nbootcodes:\n  - "+tables+"\n")

	tests := []struct {
		name        string
		args        []string
		wantErr     bool
		wantContain []string
	}{
		{
			name:        "power on",
			args:        []string{"power", "on"},
			wantContain: []string{"Power on."},
		},
		{
			name:    "power bad argument",
			args:    []string{"power", "sideways"},
			wantErr: true,
		},
		{
			name:        "reset",
			args:        []string{"reset"},
			wantContain: []string{"Reset issued."},
		},
		{
			name:        "por",
			args:        []string{"por"},
			wantContain: []string{"POR issued."},
		},
		{
			name:        "por hold",
			args:        []string{"por", "--hold"},
			wantContain: []string{"POR held."},
		},
		{
			name:        "bootmode",
			args:        []string{"bootmode", "mmc"},
			wantContain: []string{"Boot mode mmc selected on am62xx-sk."},
		},
		{
			name:    "unknown bootmode",
			args:    []string{"bootmode", "nand"},
			wantErr: true,
		},
		{
			name:        "bootmode from config tables",
			args:        []string{"--config", yamlConfig, "bootmode", "uart"},
			wantContain: []string{"Boot mode uart selected on am64xx-evm."},
		},
		{
			name:        "dut",
			args:        []string{"dut", "am62xx-sk-e2"},
			wantContain: []string{"DUT set to am62xx-sk-e2."},
		},
		{
			name: "measure unpowered",
			args: []string{"measure", "--samples", "1", "--delay", "0"},
			wantContain: []string{
				"Rail",
				"vdd_core",
				"vdd_io_3v3",
				"Total power:   0.00 mW",
				"over 4 rail(s)",
			},
		},
		{
			name:        "measure json",
			args:        []string{"measure", "--json"},
			wantContain: []string{`"rail_name": "vdd_mcu_0v85"`, `"total_mw": 0`},
		},
		{
			name: "run session",
			args: []string{"run", "dut:am62xx-sk-e2", "bootmode:mmc", "power:on", "por:release", "measure:1:0"},
			wantContain: []string{
				"ok   dut:am62xx-sk-e2",
				"ok   bootmode:mmc",
				"ok   power:on",
				"Total power:   866.98 mW",
				"ok   measure:1:0",
			},
		},
		{
			name:    "run invalid step",
			args:    []string{"run", "power:on", "warp"},
			wantErr: true,
		},
		{
			name:    "run bad measure",
			args:    []string{"run", "measure:x"},
			wantErr: true,
		},
		{
			name:        "bootcodes lookup",
			args:        []string{"bootcodes", "lookup", "am62xx-sk", "mmc"},
			wantContain: []string{"0243"},
		},
		{
			name:    "bootcodes lookup unknown",
			args:    []string{"bootcodes", "lookup", "am62xx-sk", "nand"},
			wantErr: true,
		},
		{
			name:        "bootcodes list with extra table",
			args:        []string{"--bootcodes", tables, "bootcodes", "list"},
			wantContain: []string{"am62xx-sk:", "am64xx-evm:", "uart", "0073"},
		},
		{
			name:        "probes",
			args:        []string{"probes"},
			wantContain: []string{"Detected probes:", "Simulator (no hardware) [simulator]"},
		},
		{
			name:    "file console without port",
			args:    []string{"--console", "file", "reset"},
			wantErr: true,
		},
		{
			name:    "missing config",
			args:    []string{"--config", filepath.Join(t.TempDir(), "absent.yaml"), "reset"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			output, err := execute(t, tt.args...)

			if tt.wantErr {
				if err == nil {
					t.Errorf("Expected error but got none\nOutput: %s", output)
				}
				return
			}
			if err != nil {
				t.Errorf("Unexpected error: %v\nOutput: %s", err, output)
				return
			}
			for _, want := range tt.wantContain {
				if !strings.Contains(output, want) {
					t.Errorf("Output missing expected string: %q\nGot:\n%s", want, output)
				}
			}
		})
	}
}

// TestFileConsoleE2E sends commands through a file-backed console
func TestFileConsoleE2E(t *testing.T) {
	port := writeFile(t, "ttyACM0", "")

	out, err := execute(t, "--port", port, "run", "power:off", "dut:j7200")
	if err != nil {
		t.Fatalf("run: %v\nOutput: %s", err, out)
	}

	data, err := os.ReadFile(port)
	if err != nil {
		t.Fatalf("read port: %v", err)
	}
	if got, want := string(data), "auto power off\r\nauto dut j7200\r\n"; got != want {
		t.Fatalf("port contents = %q, want %q", got, want)
	}
}

func TestParseStep(t *testing.T) {
	valid := []string{"power:on", "power:off", "reset", "por", "por:hold", "por:release", "dut:x", "bootmode:mmc", "measure", "measure:3", "measure:3:7"}
	for _, s := range valid {
		if _, err := parseStep(s); err != nil {
			t.Errorf("parseStep(%q): %v", s, err)
		}
	}
	invalid := []string{"", "power", "power:up", "reset:now", "por:twice", "dut:", "bootmode", "measure:a", "measure:1:b"}
	for _, s := range invalid {
		if _, err := parseStep(s); err == nil {
			t.Errorf("parseStep(%q) succeeded", s)
		}
	}

	samples, delay, err := parseMeasureArgs("3:7", true)
	if err != nil || samples != 3 || delay != 7 {
		t.Fatalf("parseMeasureArgs = %d, %d, %v", samples, delay, err)
	}
}
