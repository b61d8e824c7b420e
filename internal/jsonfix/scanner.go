package jsonfix

import "bytes"

// Options controls which comma repairs the scanner applies.
type Options struct {
	// CollapseRuns collapses a run of consecutive commas between two
	// values into a single comma.
	CollapseRuns bool

	// DropTrailing removes commas (and surrounding whitespace) that
	// appear immediately before a closing '}' or ']'.
	DropTrailing bool
}

// Diagnostics reports what a repair pass changed.
type Diagnostics struct {
	CollapsedCommas int `json:"collapsed_commas"` // surplus commas removed from runs
	TrailingCommas  int `json:"trailing_commas"`  // commas removed before a closing delimiter
}

// Changed reports whether the pass modified the document.
func (d Diagnostics) Changed() bool {
	return d.CollapsedCommas > 0 || d.TrailingCommas > 0
}

// Repair scans the document and applies the configured comma repairs.
// The scanner is position-aware: bytes inside JSON string literals
// (including escaped quotes) are copied through untouched, so a string
// value that happens to contain text like ",}" is never altered.
// The input is otherwise treated tolerantly; anything the scanner does
// not recognize is passed through unchanged for the validation gate to
// judge.
func Repair(input []byte, opts Options) ([]byte, Diagnostics) {
	var (
		out  bytes.Buffer
		diag Diagnostics
	)
	out.Grow(len(input))

	inString := false
	escaped := false

	for i := 0; i < len(input); {
		c := input[i]

		if inString {
			out.WriteByte(c)
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			i++
			continue
		}

		switch c {
		case '"':
			inString = true
			out.WriteByte(c)
			i++

		case ',':
			runStart := i
			run, ws, next := scanCommaRun(input, i)
			i = next

			closing := next < len(input) && (input[next] == '}' || input[next] == ']')
			switch {
			case closing && opts.DropTrailing:
				// The whole run is structurally invalid before a
				// closer; drop commas and surrounding whitespace,
				// including whitespace already emitted ahead of the
				// first comma ("[1,2 , ]" becomes "[1,2]").
				trimTrailingSpace(&out)
				diag.TrailingCommas++
				if run > 1 && opts.CollapseRuns {
					diag.CollapsedCommas += run - 1
				}
			case run > 1 && opts.CollapseRuns:
				diag.CollapsedCommas += run - 1
				out.WriteByte(',')
				out.Write(ws)
			default:
				// Re-emit the run exactly as read.
				out.Write(input[runStart:next])
			}

		default:
			out.WriteByte(c)
			i++
		}
	}

	return out.Bytes(), diag
}

// trimTrailingSpace truncates whitespace from the end of the output
// buffer. Only called at a structural position, so the trimmed bytes
// can never belong to a string literal.
func trimTrailingSpace(out *bytes.Buffer) {
	b := out.Bytes()
	n := len(b)
	for n > 0 {
		c := b[n-1]
		if c != ' ' && c != '\t' && c != '\n' && c != '\r' {
			break
		}
		n--
	}
	out.Truncate(n)
}

// scanCommaRun consumes a run of commas and interleaved whitespace
// starting at input[start] (which must be ','). It returns the number
// of commas in the run, the whitespace that followed the final comma,
// and the index of the first byte after the run.
func scanCommaRun(input []byte, start int) (run int, trailingWS []byte, next int) {
	i := start
	var ws []byte
	for i < len(input) {
		c := input[i]
		switch {
		case c == ',':
			run++
			ws = ws[:0]
			i++
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			ws = append(ws, c)
			i++
		default:
			return run, ws, i
		}
	}
	return run, ws, i
}
