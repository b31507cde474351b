package telemetry

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/alecthomas/participle/v2"
)

// row is the grammar for one measurement row:
//
//	| 0 | vdd_mcu_0v85 | 4707.50 | 0.851250 | 470.40 | 412.50 |
//
// Every cell lexes as a Word; the numeric and identifier rules are checked
// afterwards in toRailData.
type row struct {
	Index        string `parser:"Pipe @Word"`
	RailName     string `parser:"Pipe @Word"`
	ShuntVoltage string `parser:"Pipe @Word"`
	RailVoltage  string `parser:"Pipe @Word"`
	Current      string `parser:"Pipe @Word"`
	Power        string `parser:"Pipe @Word Pipe"`
}

var rowParser = participle.MustBuild[row](
	participle.Lexer(TableLexer),
	participle.Elide("Whitespace"),
)

// RowError reports a line that looks like a measurement row (it starts with
// a numeric index cell) but does not parse.
type RowError struct {
	Line int // 1-based
	Text string
}

func (e *RowError) Error() string {
	return fmt.Sprintf("telemetry: malformed row on line %d: %q", e.Line, e.Text)
}

// ExtractRailData turns the textual power table printed by the board into
// RailData records, in the order they appear. Lines that are not measurement
// rows (headers, separators, prompts, noise) are skipped. It never fails and
// keeps no state between calls.
func ExtractRailData(text string) []RailData {
	var out []RailData
	for _, line := range splitLines(text) {
		if rd, ok := parseLine(line); ok {
			out = append(out, rd)
		}
	}
	return out
}

// ExtractRailDataStrict behaves like ExtractRailData but returns a *RowError
// for the first line that starts with a numeric index cell and still fails to
// parse. Header and separator lines are skipped as usual.
func ExtractRailDataStrict(text string) ([]RailData, error) {
	var out []RailData
	for i, line := range splitLines(text) {
		rd, ok := parseLine(line)
		if ok {
			out = append(out, rd)
			continue
		}
		if looksLikeRow(line) {
			return out, &RowError{Line: i + 1, Text: strings.TrimSpace(line)}
		}
	}
	return out, nil
}

func splitLines(text string) []string {
	if text == "" {
		return nil
	}
	return strings.Split(text, "\n")
}

// parseLine tries the row grammar from each pipe in the line, so any prefix
// before the table (a prompt, a timestamp) is ignored.
func parseLine(line string) (RailData, bool) {
	for offset := 0; offset < len(line); {
		i := strings.IndexByte(line[offset:], '|')
		if i < 0 {
			break
		}
		start := offset + i
		r, err := rowParser.ParseString("", line[start:], participle.AllowTrailing(true))
		if err == nil {
			if rd, ok := r.toRailData(); ok {
				return rd, true
			}
		}
		offset = start + 1
	}
	return RailData{}, false
}

func (r *row) toRailData() (RailData, bool) {
	if !isDigits(r.Index) || !isWord(r.RailName) {
		return RailData{}, false
	}
	index, err := strconv.Atoi(r.Index)
	if err != nil {
		return RailData{}, false
	}

	var values [4]float64
	for i, cell := range []string{r.ShuntVoltage, r.RailVoltage, r.Current, r.Power} {
		if !isDecimal(cell) {
			return RailData{}, false
		}
		v, err := strconv.ParseFloat(cell, 64)
		if err != nil {
			return RailData{}, false
		}
		values[i] = v
	}

	return RailData{
		Index:        index,
		RailName:     r.RailName,
		ShuntVoltage: values[0],
		RailVoltage:  values[1],
		Current:      values[2],
		Power:        values[3],
	}, true
}

func looksLikeRow(line string) bool {
	trimmed := strings.TrimSpace(line)
	if !strings.HasPrefix(trimmed, "|") {
		return false
	}
	cells := strings.SplitN(trimmed[1:], "|", 2)
	return isDigits(strings.TrimSpace(cells[0]))
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}

func isDecimal(s string) bool {
	if s == "" {
		return false
	}
	for _, c := range s {
		if (c < '0' || c > '9') && c != '.' {
			return false
		}
	}
	return true
}

func isWord(s string) bool {
	if s == "" {
		return false
	}
	for _, c := range s {
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9', c == '_':
		default:
			return false
		}
	}
	return true
}
