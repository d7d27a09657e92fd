package upstream

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStripLogHeader(t *testing.T) {
	stdout := append([]byte{1, 0, 0, 0, 0, 0, 0, 13}, []byte("hello stdout\n")...)
	assert.Equal(t, []byte("hello stdout\n"), stripLogHeader(stdout))

	stderr := append([]byte{2, 0, 0, 0, 0, 0, 0, 5}, []byte("oops\n")...)
	assert.Equal(t, []byte("oops\n"), stripLogHeader(stderr))

	// TTY containers have no multiplex header.
	plain := []byte("plain tty line")
	assert.Equal(t, plain, stripLogHeader(plain))

	// A short line that merely starts with 1 is left alone.
	short := []byte{1, 2, 3}
	assert.Equal(t, short, stripLogHeader(short))
}
