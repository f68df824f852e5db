package diagnostic

import (
	"fmt"
	"strings"

	"github.com/ChAoSUnItY/Yakou/internal/lexer"
)

// Severity represents the severity level of a diagnostic message
type Severity int

const (
	Error Severity = iota
	Warning
)

// String returns the string representation of the severity level
func (s Severity) String() string {
	switch s {
	case Error:
		return "error"
	case Warning:
		return "warning"
	default:
		return "unknown"
	}
}

// Diagnostic represents a single compiler error or warning
type Diagnostic struct {
	Severity Severity
	Message  string
	Pos      lexer.Position // zero value when no position is available
	Hint     string         // optional suggestion
}

// Diagnostics manages an ordered, deduplicated collection of
// diagnostic messages. Insertion order is preserved; a diagnostic with
// the same position, severity, and message as an earlier one is
// dropped on insert.
type Diagnostics struct {
	items []Diagnostic
	seen  map[diagKey]bool
}

type diagKey struct {
	pos      lexer.Position
	severity Severity
	message  string
}

// New creates a new empty Diagnostics collection
func New() *Diagnostics {
	return &Diagnostics{
		items: make([]Diagnostic, 0),
		seen:  make(map[diagKey]bool),
	}
}

func (d *Diagnostics) add(item Diagnostic) {
	key := diagKey{pos: item.Pos, severity: item.Severity, message: item.Message}
	if d.seen[key] {
		return
	}
	d.seen[key] = true
	d.items = append(d.items, item)
}

// Errorf adds an error diagnostic with formatted message
func (d *Diagnostics) Errorf(pos lexer.Position, format string, args ...interface{}) {
	d.add(Diagnostic{
		Severity: Error,
		Message:  fmt.Sprintf(format, args...),
		Pos:      pos,
	})
}

// Warningf adds a warning diagnostic with formatted message
func (d *Diagnostics) Warningf(pos lexer.Position, format string, args ...interface{}) {
	d.add(Diagnostic{
		Severity: Warning,
		Message:  fmt.Sprintf(format, args...),
		Pos:      pos,
	})
}

// ErrorWithHint adds an error diagnostic with an optional hint
func (d *Diagnostics) ErrorWithHint(pos lexer.Position, msg, hint string) {
	d.add(Diagnostic{
		Severity: Error,
		Message:  msg,
		Pos:      pos,
		Hint:     hint,
	})
}

// WarningWithHint adds a warning diagnostic with an optional hint
func (d *Diagnostics) WarningWithHint(pos lexer.Position, msg, hint string) {
	d.add(Diagnostic{
		Severity: Warning,
		Message:  msg,
		Pos:      pos,
		Hint:     hint,
	})
}

// Merge appends all diagnostics from other, preserving order and
// applying the usual deduplication.
func (d *Diagnostics) Merge(other *Diagnostics) {
	for _, item := range other.items {
		d.add(item)
	}
}

// HasErrors returns true if there are any error-level diagnostics
func (d *Diagnostics) HasErrors() bool {
	for _, item := range d.items {
		if item.Severity == Error {
			return true
		}
	}
	return false
}

// Errors returns only the error-level diagnostics
func (d *Diagnostics) Errors() []Diagnostic {
	errors := make([]Diagnostic, 0)
	for _, item := range d.items {
		if item.Severity == Error {
			errors = append(errors, item)
		}
	}
	return errors
}

// All returns all diagnostics regardless of severity
func (d *Diagnostics) All() []Diagnostic {
	return d.items
}

// Count returns the total number of diagnostics
func (d *Diagnostics) Count() int {
	return len(d.items)
}

// ErrorCount returns the number of error-level diagnostics
func (d *Diagnostics) ErrorCount() int {
	count := 0
	for _, item := range d.items {
		if item.Severity == Error {
			count++
		}
	}
	return count
}

// WarningCount returns the number of warning-level diagnostics
func (d *Diagnostics) WarningCount() int {
	count := 0
	for _, item := range d.items {
		if item.Severity == Warning {
			count++
		}
	}
	return count
}

// Format returns human-readable messages
// Output format:
//
//	error[filename:3:10]: unknown type symbol 'i33'
//	  hint: did you mean 'i32'?
//	warning[filename:5:1]: unused expression
func (d *Diagnostics) Format(filename string) string {
	if len(d.items) == 0 {
		return ""
	}

	var builder strings.Builder
	for i, item := range d.items {
		if item.Pos.Known() {
			builder.WriteString(fmt.Sprintf("%s[%s:%d:%d]: %s",
				item.Severity.String(),
				filename,
				item.Pos.StartLine,
				item.Pos.StartCol,
				item.Message,
			))
		} else {
			builder.WriteString(fmt.Sprintf("%s[%s]: %s",
				item.Severity.String(),
				filename,
				item.Message,
			))
		}

		if item.Hint != "" {
			builder.WriteString(fmt.Sprintf("\n  hint: %s", item.Hint))
		}

		if i < len(d.items)-1 {
			builder.WriteString("\n")
		}
	}

	return builder.String()
}
