package telemetry

import (
	"github.com/alecthomas/participle/v2/lexer"
)

// TableLexer tokenizes a single line of the pipe-delimited measurement table.
// Anything that is neither a pipe, whitespace nor a plain word still lexes
// (as Other) so header cells like "Shunt voltage(uV)" never abort a scan;
// they simply fail the row grammar.
var TableLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "Pipe", Pattern: `\|`},
	{Name: "Whitespace", Pattern: `\s+`},
	{Name: "Word", Pattern: `[A-Za-z0-9_.]+`},
	{Name: "Other", Pattern: `[^|\s]+`},
})
