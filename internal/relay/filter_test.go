package relay

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefaultFilter(t *testing.T) {
	f := DefaultFilter()

	tests := []struct {
		name   string
		stream Stream
		line   string
		want   Decision
	}{
		{"json on stdout", StreamStdout, `{"jsonrpc":"2.0","id":1}`, Forward},
		{"log chatter on stdout", StreamStdout, "Refreshing native plugins", Drop},
		{"marker is not a record", StreamStdout, "[MCP] Server started", Drop},
		{"leading space is not a record", StreamStdout, ` {"a":1}`, Drop},
		{"empty line", StreamStdout, "", Drop},
		{"json on stderr", StreamStderr, `{"level":"error"}`, Forward},
		{"text on stderr", StreamStderr, "Exception: boom", Drop},
		{"stdin has no rule", StreamStdin, `{"a":1}`, Drop},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, f.Decide(tt.stream, []byte(tt.line)))
		})
	}
}

func TestFilter_Deterministic(t *testing.T) {
	f := DefaultFilter()
	lines := []string{`{"x":1}`, "noise", "", "{"}
	for _, l := range lines {
		first := f.Decide(StreamStdout, []byte(l))
		for i := 0; i < 10; i++ {
			assert.Equal(t, first, f.Decide(StreamStdout, []byte(l)))
		}
	}
}

func TestFilter_StreamsAreIndependent(t *testing.T) {
	f := &RuleFilter{Rules: map[Stream]Rule{
		StreamStdout: {Prefixes: []string{"{"}},
		StreamStderr: {PassAll: true},
	}}

	// a stderr line is judged by itself, never by what stdout just printed
	assert.Equal(t, Forward, f.Decide(StreamStderr, []byte("plain warning")))
	assert.Equal(t, Drop, f.Decide(StreamStdout, []byte("plain warning")))
}

func TestRule_Contains(t *testing.T) {
	r := Rule{Contains: []string{"error CS"}}
	assert.True(t, r.match([]byte("Assets/Foo.cs(3,1): error CS1002")))
	assert.False(t, r.match([]byte("Compilation succeeded")))
}

func TestFilterFunc(t *testing.T) {
	f := FilterFunc(func(s Stream, line []byte) Decision {
		if s == StreamStderr {
			return Forward
		}
		return Drop
	})
	assert.Equal(t, Forward, f.Decide(StreamStderr, nil))
	assert.Equal(t, "drop", f.Decide(StreamStdout, nil).String())
}
