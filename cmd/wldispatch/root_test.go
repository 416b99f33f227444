package main

import (
	"bytes"
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestFlagsOverrideEnvironment(t *testing.T) {
	t.Setenv("WLDISPATCH_MODE", "bridged")
	t.Setenv("WLDISPATCH_WAIT_BATCH", "64")

	o, _, err := parseArgs([]string{"--mode", "direct", "--priority", "-1"}, &bytes.Buffer{})
	require.NoError(t, err)
	assert.Equal(t, "direct", o.cfg.Mode)
	assert.Equal(t, 64, o.cfg.WaitBatch)
	assert.Equal(t, -1, o.cfg.ThreadPriority)
	assert.Equal(t, "json", o.format, "non-terminal output defaults to json")
}

func TestParseArgsRejects(t *testing.T) {
	_, _, err := parseArgs([]string{"--format", "xml"}, &bytes.Buffer{})
	assert.Error(t, err)
	_, _, err = parseArgs([]string{"--demo"}, &bytes.Buffer{})
	assert.Error(t, err)
	_, _, err = parseArgs([]string{"--batch", "0"}, &bytes.Buffer{})
	assert.Error(t, err)
}

func TestVersionAndHelp(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, execute(context.Background(), []string{"--version"}, &out, &out))
	assert.Contains(t, out.String(), "wldispatch "+version)

	out.Reset()
	require.NoError(t, execute(context.Background(), []string{"-h"}, &out, &out))
	assert.Contains(t, out.String(), "--socket")
}

func TestPrinterText(t *testing.T) {
	var out bytes.Buffer
	p := newPrinter(&out, "text")
	p.OnWindowResized(1, 800, 600)
	assert.True(t, strings.HasPrefix(out.String(), "window-resized"))
	assert.Contains(t, out.String(), "800x600")
}
