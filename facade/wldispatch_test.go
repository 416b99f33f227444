package facade_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/momentics/wldispatch/api"
	"github.com/momentics/wldispatch/dispatcher"
	"github.com/momentics/wldispatch/event"
	"github.com/momentics/wldispatch/facade"
	"github.com/momentics/wldispatch/fake"
)

func TestDirectLifecycleWithoutConnection(t *testing.T) {
	rec := fake.NewRecorder()
	cfg := facade.DefaultConfig()
	cfg.ThreadPriority = -1
	w, err := facade.New(cfg, facade.WithSink(rec), facade.WithObserver(rec))
	require.NoError(t, err)
	assert.Nil(t, w.Dispatcher())
	assert.Nil(t, w.Done())

	require.NoError(t, w.Start())
	require.NoError(t, w.Start())
	d := w.Dispatcher()
	require.NotNil(t, d)
	assert.Equal(t, dispatcher.ModeDirect, d.Mode())

	d.ButtonNotify(2, 1, 0, 10, 20)
	require.Eventually(t, func() bool { return rec.Len() == 2 }, time.Second, time.Millisecond)
	assert.Equal(t, event.MousePressed, rec.Events()[0].EventType())

	stats := w.GetControl().Stats()
	assert.Equal(t, int64(2), stats["dispatcher.posted"])
	assert.Equal(t, "started", stats["debug.dispatcher.state"])
	assert.Equal(t, "direct", stats["debug.dispatcher.mode"])
	assert.Equal(t, "auto", w.GetControl().GetConfig()["mode"])
	assert.NotNil(t, w.GetDebugAPI().DumpState()["target.stats"])

	require.NoError(t, w.Shutdown())
	assert.Equal(t, dispatcher.Terminated, d.State())
	assert.ErrorIs(t, w.Start(), api.ErrClosed)
	require.NoError(t, w.Stop())
}

func TestBridgedWithoutSocketIsRejected(t *testing.T) {
	cfg := facade.DefaultConfig()
	cfg.Mode = "bridged"
	_, err := facade.New(cfg)
	assert.ErrorIs(t, err, api.ErrInvalidArgument)
}

func TestMetricsCanBeDisabled(t *testing.T) {
	cfg := facade.DefaultConfig()
	cfg.EnableMetrics = false
	cfg.EnableDebug = false
	cfg.ThreadPriority = -1
	w, err := facade.New(cfg)
	require.NoError(t, err)
	require.NoError(t, w.Start())
	defer w.Stop()

	w.Dispatcher().MotionNotify(1, 1)
	stats := w.GetControl().Stats()
	assert.NotContains(t, stats, "dispatcher.posted")
	assert.NotContains(t, stats, "debug.dispatcher.state")
}

func TestReloadHook(t *testing.T) {
	w, err := facade.New(nil)
	require.NoError(t, err)
	defer w.Shutdown()

	var got map[string]any
	w.RegisterReloadHook(func(cfg map[string]any) { got = cfg })
	require.NoError(t, w.UpdateConfig(map[string]any{"verbose": true}))
	require.NotNil(t, got)
	assert.Equal(t, true, got["verbose"])
	assert.Equal(t, "wl-target", got["target_name"])
}
