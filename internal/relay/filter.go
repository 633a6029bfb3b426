package relay

import "bytes"

// Decision is a Filter verdict for one output line.
type Decision int

const (
	// Drop keeps the line away from the parent.
	Drop Decision = iota
	// Forward writes the line to the parent, terminated by a single
	// newline. A trailing carriage return was already trimmed by the reader.
	Forward
)

func (d Decision) String() string {
	if d == Forward {
		return "forward"
	}
	return "drop"
}

// Filter decides which child output lines reach the parent. Implementations
// must be pure: the same stream and line always yield the same Decision.
type Filter interface {
	Decide(stream Stream, line []byte) Decision
}

// FilterFunc adapts a function to the Filter interface.
type FilterFunc func(stream Stream, line []byte) Decision

// Decide implements Filter.
func (f FilterFunc) Decide(stream Stream, line []byte) Decision {
	return f(stream, line)
}

// Rule selects lines of one stream. A line matches when PassAll is set,
// when it starts with any of Prefixes, or when it contains any of Contains.
type Rule struct {
	PassAll  bool
	Prefixes []string
	Contains []string
}

func (r Rule) match(line []byte) bool {
	if r.PassAll {
		return true
	}
	for _, p := range r.Prefixes {
		if bytes.HasPrefix(line, []byte(p)) {
			return true
		}
	}
	for _, c := range r.Contains {
		if bytes.Contains(line, []byte(c)) {
			return true
		}
	}
	return false
}

// RuleFilter applies a Rule per stream. Streams without a rule are dropped.
// Each stream only ever inspects its own line.
type RuleFilter struct {
	Rules map[Stream]Rule
}

// DefaultRecordPrefix marks a structured record on the child's output.
const DefaultRecordPrefix = "{"

// DefaultFilter forwards lines that begin with "{" on stdout and stderr.
func DefaultFilter() *RuleFilter {
	rule := Rule{Prefixes: []string{DefaultRecordPrefix}}
	return &RuleFilter{Rules: map[Stream]Rule{
		StreamStdout: rule,
		StreamStderr: rule,
	}}
}

// Decide implements Filter.
func (f *RuleFilter) Decide(stream Stream, line []byte) Decision {
	rule, ok := f.Rules[stream]
	if !ok || !rule.match(line) {
		return Drop
	}
	return Forward
}
