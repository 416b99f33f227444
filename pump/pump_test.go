package pump_test

import (
	"io"
	"sync/atomic"
	"syscall"
	"testing"

	pkgerrors "github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/momentics/wldispatch/api"
	"github.com/momentics/wldispatch/fake"
	"github.com/momentics/wldispatch/pump"
	"github.com/momentics/wldispatch/reactor"
)

const testFd = 7

func newPump(t *testing.T, opts ...pump.Option) (*pump.Pump, *fake.Connection, *fake.Poller) {
	t.Helper()
	conn := fake.NewConnection(testFd)
	poller := fake.NewPoller()
	require.NoError(t, poller.Register(testFd, reactor.Read))
	p := pump.New(conn, poller, opts...)
	poller.OnExhausted(p.Stop)
	return p, conn, poller
}

func ready(ev reactor.Interest) []reactor.Ready {
	return []reactor.Ready{{Fd: testFd, Events: ev}}
}

var wouldBlock = pkgerrors.Wrap(syscall.EAGAIN, "write")

func TestErrorReadinessTerminatesBeforeFurtherIO(t *testing.T) {
	p, conn, poller := newPump(t)
	poller.Script(ready(reactor.Error | reactor.Read | reactor.Write))

	err := p.Run()
	require.ErrorIs(t, err, api.ErrHangup)
	assert.Equal(t, []string{"pending", "flush"}, conn.Calls())
	assert.Equal(t, 1, poller.Waits())
}

func TestWritableWouldBlockRetainsWriteInterest(t *testing.T) {
	p, conn, poller := newPump(t)
	conn.QueueFlushErrors(wouldBlock, wouldBlock)
	poller.Script(ready(reactor.Write))

	require.NoError(t, p.Run())
	assert.Equal(t, []reactor.Interest{reactor.Read | reactor.Write | reactor.Error}, poller.Modifies())
	assert.NotZero(t, p.Interest()&reactor.Write)
	reg, ok := poller.Registered(testFd)
	require.True(t, ok)
	assert.NotZero(t, reg&reactor.Write)
}

func TestWritableFlushSuccessClearsWriteInterest(t *testing.T) {
	p, conn, poller := newPump(t)
	conn.QueueFlushErrors(wouldBlock)
	poller.Script(ready(reactor.Write))

	require.NoError(t, p.Run())
	assert.Equal(t, []reactor.Interest{
		reactor.Read | reactor.Write | reactor.Error,
		reactor.Read | reactor.Error,
	}, poller.Modifies())
	assert.Zero(t, p.Interest()&reactor.Write)
}

func TestFlushFailureBeforeWaitExits(t *testing.T) {
	p, conn, poller := newPump(t)
	conn.QueueFlushErrors(syscall.EPIPE)

	err := p.Run()
	require.Error(t, err)
	assert.ErrorIs(t, err, syscall.EPIPE)
	assert.Equal(t, 0, poller.Waits())
}

func TestWritableRetryHardFailureExits(t *testing.T) {
	p, conn, poller := newPump(t)
	conn.QueueFlushErrors(wouldBlock, syscall.ECONNRESET)
	poller.Script(ready(reactor.Write))

	err := p.Run()
	assert.ErrorIs(t, err, syscall.ECONNRESET)
}

func TestReadableDispatches(t *testing.T) {
	p, conn, poller := newPump(t)
	poller.Script(ready(reactor.Read), ready(reactor.Read))

	require.NoError(t, p.Run())
	assert.Equal(t, 2, conn.Count("dispatch"))
}

func TestDispatchFailureExits(t *testing.T) {
	p, conn, poller := newPump(t)
	conn.QueueDispatchErrors(io.ErrUnexpectedEOF)
	poller.Script(ready(reactor.Read), ready(reactor.Read))

	err := p.Run()
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
	assert.Equal(t, 1, conn.Count("dispatch"))
}

func TestWaitFailureExits(t *testing.T) {
	p, _, poller := newPump(t)
	poller.SetWaitError(syscall.EBADF)

	err := p.Run()
	assert.ErrorIs(t, err, syscall.EBADF)
}

func TestModifyFailureIsFatal(t *testing.T) {
	p, conn, poller := newPump(t)
	conn.QueueFlushErrors(wouldBlock)
	poller.SetModifyError(syscall.ENOENT)

	err := p.Run()
	assert.ErrorIs(t, err, syscall.ENOENT)
	assert.Equal(t, 0, poller.Waits())
}

func TestEveryIterationDispatchesPendingBeforeFlush(t *testing.T) {
	p, conn, poller := newPump(t)
	poller.Script(ready(reactor.Read))

	require.NoError(t, p.Run())
	calls := conn.Calls()
	// pending, flush, dispatch | pending, flush | pending (stop)
	assert.Equal(t, []string{"pending", "flush", "dispatch", "pending", "flush", "pending"}, calls)
}

func TestStopBeforeRunExitsImmediately(t *testing.T) {
	p, conn, poller := newPump(t)
	p.Stop()
	assert.True(t, p.Stopped())

	require.NoError(t, p.Run())
	assert.Equal(t, []string{"pending"}, conn.Calls())
	assert.Equal(t, 0, poller.Waits())
	assert.Equal(t, 1, poller.Wakes())
}

func TestIdleHookRunsEachIteration(t *testing.T) {
	var idles int32
	p, _, poller := newPump(t, pump.WithIdleHook(func() { atomic.AddInt32(&idles, 1) }))
	poller.Script(ready(reactor.Read))

	require.NoError(t, p.Run())
	assert.Equal(t, int32(3), atomic.LoadInt32(&idles))
}

func TestFlushRoundDrainsQueueFirst(t *testing.T) {
	p, conn, _ := newPump(t)
	conn.SetQueued(2)

	require.NoError(t, p.FlushRound())
	assert.Equal(t, []string{"prepare", "pending", "prepare", "flush", "read", "pending"}, conn.Calls())
}

func TestFlushRoundCancelsReadOnFlushFailure(t *testing.T) {
	p, conn, _ := newPump(t)
	conn.QueueFlushErrors(syscall.EPIPE)

	err := p.FlushRound()
	assert.ErrorIs(t, err, syscall.EPIPE)
	assert.Equal(t, []string{"prepare", "flush", "cancel"}, conn.Calls())
}

func TestFlushRoundToleratesBackpressure(t *testing.T) {
	p, conn, _ := newPump(t)
	conn.QueueFlushErrors(wouldBlock)

	require.NoError(t, p.FlushRound())
	assert.Equal(t, 1, conn.Count("read"))
}

func TestFlushRoundPrepareFailure(t *testing.T) {
	p, conn, _ := newPump(t)
	conn.SetPrepareError(api.ErrConnectionClosed)

	err := p.FlushRound()
	assert.ErrorIs(t, err, api.ErrConnectionClosed)
}
