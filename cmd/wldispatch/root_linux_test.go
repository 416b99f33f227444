//go:build linux
// +build linux

package main

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDemoDirectModePrintsEvents(t *testing.T) {
	socket := t.TempDir() + "/wl-demo"
	stdout, stderr := &syncBuffer{}, &syncBuffer{}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	result := make(chan error, 1)
	go func() {
		result <- execute(ctx, []string{
			"--socket", socket, "--demo", "--mode", "direct",
			"--format", "json", "--priority", "-1", "--flush-interval", "5ms",
		}, stdout, stderr)
	}()

	require.Eventually(t, func() bool {
		return strings.Contains(stdout.String(), `"type":"window-leave"`)
	}, 3*time.Second, 5*time.Millisecond)
	cancel()
	select {
	case err := <-result:
		assert.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("execute did not return after cancel")
	}
	out := stdout.String()
	assert.Contains(t, out, `"type":"window-resized"`)
	assert.Contains(t, out, `"type":"mouse-pressed"`)
	assert.Contains(t, out, `"key":"VKEY(0x48)"`)
	assert.Contains(t, stderr.String(), "dispatcher.posted")
}
