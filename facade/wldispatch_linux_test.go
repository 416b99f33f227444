//go:build linux
// +build linux

package facade_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"

	"github.com/momentics/wldispatch/dispatcher"
	"github.com/momentics/wldispatch/event"
	"github.com/momentics/wldispatch/facade"
	"github.com/momentics/wldispatch/fake"
	"github.com/momentics/wldispatch/keymap"
	"github.com/momentics/wldispatch/message"
	"github.com/momentics/wldispatch/remote"
	"github.com/momentics/wldispatch/wire"
)

func socketPair(t *testing.T) (*wire.Conn, *wire.Peer) {
	t.Helper()
	fds, err := unix.Socketpair(unix.AF_UNIX, unix.SOCK_STREAM|unix.SOCK_CLOEXEC, 0)
	require.NoError(t, err)
	conn, err := wire.NewConn(fds[0])
	require.NoError(t, err)
	peer := wire.NewPeer(fds[1])
	t.Cleanup(func() {
		conn.Close()
		peer.Close()
	})
	return conn, peer
}

func TestBridgedFacadeForwardsSocketInput(t *testing.T) {
	conn, peer := socketPair(t)
	mem := remote.NewMemory(16)
	cfg := facade.DefaultConfig()
	cfg.Mode = "bridged"
	cfg.ThreadPriority = -1

	w, err := facade.New(cfg, facade.WithConnection(conn), facade.WithRemote(mem))
	require.NoError(t, err)
	require.NoError(t, w.Start())
	defer w.Stop()
	require.Eventually(t, w.Dispatcher().Running, time.Second, time.Millisecond)

	require.NoError(t, peer.Send(wire.MotionFrame(1, 2), wire.ConfigureFrame(5, 640, 480)))
	for _, want := range []message.Message{
		message.Motion{X: 1, Y: 2},
		message.WindowResized{Handle: 5, Width: 640, Height: 480},
	} {
		select {
		case got := <-mem.C():
			assert.Equal(t, want, got)
		case <-time.After(2 * time.Second):
			t.Fatalf("missing %v", want)
		}
	}
	assert.NotZero(t, w.GetControl().Stats()["pump.iterations"])

	require.NoError(t, w.Stop())
	assert.Equal(t, dispatcher.Terminated, w.Dispatcher().State())
}

func TestDirectFacadeFlushTickerDrivesConnection(t *testing.T) {
	conn, peer := socketPair(t)
	rec := fake.NewRecorder()
	cfg := facade.DefaultConfig()
	cfg.Mode = "direct"
	cfg.ThreadPriority = -1
	cfg.FlushInterval = 5 * time.Millisecond

	w, err := facade.New(cfg, facade.WithConnection(conn), facade.WithSink(rec))
	require.NoError(t, err)
	require.NoError(t, w.Start())
	defer w.Stop()

	require.NoError(t, peer.Send(wire.KeyFrame(1, 0x61, 0)))
	require.Eventually(t, func() bool { return len(rec.Events()) == 1 }, 2*time.Second, time.Millisecond)
	key, ok := rec.Events()[0].(*event.KeyEvent)
	require.True(t, ok)
	assert.Equal(t, keymap.VKEY_A, key.KeyCode)
}

func TestAutoWithoutRemoteRunsDirect(t *testing.T) {
	conn, _ := socketPair(t)
	cfg := facade.DefaultConfig()
	cfg.ThreadPriority = -1
	w, err := facade.New(cfg, facade.WithConnection(conn))
	require.NoError(t, err)
	defer w.Stop()
	assert.Equal(t, dispatcher.ModeDirect, w.Mode())
}
