package tui

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCommand(t *testing.T) {
	tests := []struct {
		in   string
		want Command
	}{
		{"quit", Command{Name: "quit"}},
		{"  Open 42  ", Command{Name: "open", Args: "42"}},
		{"upload /tmp/a.pdf  /tmp/b.png", Command{Name: "upload", Args: "/tmp/a.pdf  /tmp/b.png"}},
		{"", Command{}},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ParseCommand(tt.in), "input %q", tt.in)
	}
}

func TestCommandFields(t *testing.T) {
	cmd := ParseCommand("upload /tmp/a.pdf  /tmp/b.png")
	assert.Equal(t, []string{"/tmp/a.pdf", "/tmp/b.png"}, cmd.Fields())
	assert.Empty(t, ParseCommand("reload").Fields())
}

func TestCommandID(t *testing.T) {
	id, err := ParseCommand("delete #501").ID()
	require.NoError(t, err)
	assert.Equal(t, int64(501), id)

	id, err = ParseCommand("open 7").ID()
	require.NoError(t, err)
	assert.Equal(t, int64(7), id)

	for _, in := range []string{"open", "open 0", "open abc", "open 1 2", "delete -3"} {
		_, err := ParseCommand(in).ID()
		assert.Error(t, err, "input %q", in)
	}
}
