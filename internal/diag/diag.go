// Package diag defines the structured diagnostic shape every compiler
// stage emits through (spec.md §6 "Diagnostic logger"). The core never
// decides how a diagnostic is printed or where it goes — the sink is an
// external collaborator — it only ever produces Entry values through the
// small Logger interface.
package diag

import (
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/EmilienKia/klang-sub000/internal/token"
)

// Severity classifies a diagnostic. Only Error severities abort a stage.
type Severity int

const (
	Info Severity = iota
	Warning
	Error
)

func (s Severity) String() string {
	switch s {
	case Info:
		return "info"
	case Warning:
		return "warning"
	case Error:
		return "error"
	default:
		return "unknown"
	}
}

// Code prefixes reserve a 16-bit range per stage, per spec.md §6.
const (
	CodePrefixLexer    = 0x0_0000
	CodePrefixParser   = 0x1_0000
	CodePrefixLowering = 0x2_0000
	CodePrefixResolver = 0x3_0000
	CodePrefixCodegen  = 0x4_0000
)

// Entry is one diagnostic record: a severity, a stage-prefixed code, the
// source span it concerns and a `{}`-templated message with its args.
type Entry struct {
	Severity Severity
	Code     uint32
	Start    token.Coord
	End      token.Coord
	Template string
	Args     []interface{}
}

// Message substitutes Args into Template's `{}` placeholders in order.
func (e Entry) Message() string {
	var b strings.Builder
	args := e.Args
	rest := e.Template
	for {
		i := strings.Index(rest, "{}")
		if i < 0 || len(args) == 0 {
			b.WriteString(rest)
			break
		}
		b.WriteString(rest[:i])
		b.WriteString(fmt.Sprint(args[0]))
		args = args[1:]
		rest = rest[i+2:]
	}
	return b.String()
}

// String renders the canonical driver-facing line described in spec.md §7:
// "LINE,COL - SEVERITY CODE : MESSAGE".
func (e Entry) String() string {
	return fmt.Sprintf("%s - %s %#05x : %s", e.Start, e.Severity, e.Code, e.Message())
}

// Logger is the only interface the core depends on for diagnostics; the
// sink (stdout, a file, a structured log pipe) lives outside the core.
type Logger interface {
	Log(e Entry)
}

// Collector is the default in-process Logger: it buffers entries behind a
// mutex (the IR emitter may log concurrently from its parallel global/
// function-header pass, spec.md §4.5) and is what a driver wires to an
// actual sink after a unit finishes or aborts.
type Collector struct {
	// ID lets an embedder (e.g. a language server driving many
	// compilations) correlate a Collector's entries back to the unit
	// that produced them.
	ID uuid.UUID

	mu      sync.Mutex
	entries []Entry
}

// NewCollector returns a Collector tagged with a fresh session id.
func NewCollector() *Collector {
	return &Collector{ID: uuid.New()}
}

// Log implements Logger.
func (c *Collector) Log(e Entry) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = append(c.entries, e)
}

// Entries returns a snapshot of everything logged so far, in the order it
// was logged.
func (c *Collector) Entries() []Entry {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Entry, len(c.entries))
	copy(out, c.entries)
	return out
}

// HasErrors reports whether any Error-severity entry has been logged.
func (c *Collector) HasErrors() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, e := range c.entries {
		if e.Severity == Error {
			return true
		}
	}
	return false
}
