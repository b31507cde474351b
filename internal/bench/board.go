package bench

import (
	"fmt"
	"strconv"
	"strings"
	"sync"
)

// rail is one INA sense point on the simulated board. Values are what the
// meter reports while the board is powered.
type rail struct {
	name    string
	shuntUV float64
	volts   float64
	mA      float64
}

var boardRails = []rail{
	{"vdd_core", 2950.00, 0.750000, 295.00},
	{"vdd_mcu_0v85", 4707.50, 0.851250, 470.40},
	{"vdd_ddr_1v1", 1210.00, 1.100000, 121.00},
	{"vdd_io_3v3", 340.00, 3.300000, 34.00},
}

// Board emulates the board controller behind a simulated console. It keeps
// enough state for measurements to reflect the power and reset commands.
type Board struct {
	prompt string

	mu       sync.Mutex
	powered  bool
	held     bool
	dut      string
	bootmode string
}

// NewBoard returns a powered-off board that ends each reply with prompt.
func NewBoard(prompt string) *Board {
	return &Board{prompt: prompt}
}

// Handle is a console.WriteHook.
func (b *Board) Handle(p []byte) ([]byte, error) {
	fields := strings.Fields(string(p))
	if len(fields) < 2 || fields[0] != "auto" {
		return []byte("unknown command\r\n" + b.prompt + " "), nil
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	args := fields[2:]
	switch fields[1] {
	case "power":
		if len(args) == 1 {
			b.powered = args[0] == "on"
		}
	case "por":
		if len(args) == 1 {
			b.held = args[0] == "hold"
		}
	case "reset":
	case "dut":
		if len(args) == 1 {
			b.dut = args[0]
		}
	case "sysboot":
		if len(args) == 1 {
			b.bootmode = args[0]
		}
	case "measure_power":
		return []byte(b.table() + b.prompt + " "), nil
	default:
		return []byte(fmt.Sprintf("unknown auto command %q\r\n%s ", fields[1], b.prompt)), nil
	}
	return []byte(b.prompt + " "), nil
}

// Powered reports whether the last power command switched the board on.
func (b *Board) Powered() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.powered
}

// Bootmode returns the last sysboot code received.
func (b *Board) Bootmode() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.bootmode
}

// DUT returns the last DUT name received.
func (b *Board) DUT() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.dut
}

func (b *Board) table() string {
	var sb strings.Builder
	sb.WriteString("| Index | Rail Name | Shunt voltage(uV) | Rail voltage(V) | Current(mA) | Power(mW) |\r\n")
	for i, r := range boardRails {
		shunt, current, power := 0.0, 0.0, 0.0
		if b.powered && !b.held {
			shunt, current = r.shuntUV, r.mA
			power = r.volts * r.mA
		}
		fmt.Fprintf(&sb, "| %d | %s | %s | %s | %s | %s |\r\n",
			i, r.name,
			strconv.FormatFloat(shunt, 'f', 2, 64),
			strconv.FormatFloat(r.volts, 'f', 6, 64),
			strconv.FormatFloat(current, 'f', 2, 64),
			strconv.FormatFloat(power, 'f', 2, 64))
	}
	return sb.String()
}
