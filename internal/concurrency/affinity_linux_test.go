//go:build linux
// +build linux

package concurrency_test

import (
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/momentics/wldispatch/internal/concurrency"
)

func TestLooperPinsThreadToCPUs(t *testing.T) {
	runtime.LockOSThread()
	allowed, err := concurrency.ThreadCPUs()
	runtime.UnlockOSThread()
	require.NoError(t, err)
	require.NotEmpty(t, allowed)
	want := allowed[len(allowed)-1]

	l := concurrency.NewLooper("pinned", concurrency.WithCPUs(want))
	require.NoError(t, l.Start())
	defer l.Stop()

	got := make(chan []int, 1)
	require.True(t, l.Post(func() {
		cpus, _ := concurrency.ThreadCPUs()
		got <- cpus
	}))
	assert.Equal(t, []int{want}, <-got)
}

func TestPinThreadRejectsOutOfRange(t *testing.T) {
	assert.Error(t, concurrency.PinThread([]int{-1}))
	assert.NoError(t, concurrency.PinThread(nil))
}
