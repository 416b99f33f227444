package dispatcher_test

import (
	"sync"
	"sync/atomic"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/momentics/wldispatch/api"
	"github.com/momentics/wldispatch/dispatcher"
	"github.com/momentics/wldispatch/event"
	"github.com/momentics/wldispatch/fake"
	"github.com/momentics/wldispatch/internal/concurrency"
	"github.com/momentics/wldispatch/keymap"
	"github.com/momentics/wldispatch/message"
	"github.com/momentics/wldispatch/reactor"
)

const testFd = 9

type counters struct {
	mu   sync.Mutex
	vals map[string]int64
}

func newCounters() *counters { return &counters{vals: map[string]int64{}} }

func (c *counters) Add(key string, delta int64) {
	c.mu.Lock()
	c.vals[key] += delta
	c.mu.Unlock()
}

func (c *counters) Set(string, any) {}

func (c *counters) get(key string) int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.vals[key]
}

func newDirect(t *testing.T) (*dispatcher.Dispatcher, *fake.Runner, *fake.Recorder) {
	t.Helper()
	runner := fake.NewRunner()
	rec := fake.NewRecorder()
	d, err := dispatcher.New(dispatcher.Options{
		Mode:     dispatcher.ModeDirect,
		Target:   runner,
		Sink:     rec,
		Observer: rec,
	})
	require.NoError(t, err)
	t.Cleanup(func() { d.Close() })
	return d, runner, rec
}

type bridged struct {
	d       *dispatcher.Dispatcher
	runner  *fake.Runner
	rec     *fake.Recorder
	conn    *fake.Connection
	poller  *fake.Poller
	metrics *counters
}

func newBridged(t *testing.T, rounds ...[]reactor.Ready) *bridged {
	t.Helper()
	b := &bridged{
		runner:  fake.NewRunner(),
		rec:     fake.NewRecorder(),
		conn:    fake.NewConnection(testFd),
		poller:  fake.NewPoller(),
		metrics: newCounters(),
	}
	b.poller.Script(rounds...)
	d, err := dispatcher.New(dispatcher.Options{
		Connection:  b.conn,
		Multiplexer: b.poller,
		Target:      b.runner,
		Remote:      b.rec,
		Metrics:     b.metrics,
		Priority:    -1,
	})
	require.NoError(t, err)
	t.Cleanup(func() { d.Close() })
	b.d = d
	return b
}

func (b *bridged) poll(t *testing.T) {
	t.Helper()
	require.True(t, b.d.PostTask(dispatcher.Poll))
	require.Eventually(t, b.d.Running, time.Second, time.Millisecond)
}

func TestNewRequiresTarget(t *testing.T) {
	_, err := dispatcher.New(dispatcher.Options{})
	assert.ErrorIs(t, err, api.ErrInvalidArgument)
}

func TestBridgedRequiresRemoteAndSocket(t *testing.T) {
	_, err := dispatcher.New(dispatcher.Options{
		Mode:        dispatcher.ModeBridged,
		Connection:  fake.NewConnection(testFd),
		Multiplexer: fake.NewPoller(),
		Target:      fake.NewRunner(),
	})
	assert.ErrorIs(t, err, api.ErrInvalidArgument)

	_, err = dispatcher.New(dispatcher.Options{
		Mode:   dispatcher.ModeBridged,
		Target: fake.NewRunner(),
		Remote: fake.NewRecorder(),
	})
	assert.ErrorIs(t, err, api.ErrInvalidArgument)
}

func TestAutoModeSelection(t *testing.T) {
	d, _, _ := newDirect(t)
	assert.Equal(t, dispatcher.ModeDirect, d.Mode())
	assert.Equal(t, dispatcher.Started, d.State())

	b := newBridged(t)
	assert.Equal(t, dispatcher.ModeBridged, b.d.Mode())
	reg, ok := b.poller.Registered(testFd)
	require.True(t, ok)
	assert.Equal(t, reactor.Read|reactor.Error, reg)
}

type failingMux struct {
	*fake.Poller
}

func (failingMux) Register(int, reactor.Interest) error { return syscall.EPERM }

func TestRegisterFailureDegradesToDirect(t *testing.T) {
	runner := fake.NewRunner()
	rec := fake.NewRecorder()
	d, err := dispatcher.New(dispatcher.Options{
		Mode:        dispatcher.ModeBridged,
		Connection:  fake.NewConnection(testFd),
		Multiplexer: failingMux{fake.NewPoller()},
		Target:      runner,
		Remote:      rec,
		Sink:        rec,
		Priority:    -1,
	})
	require.NoError(t, err)
	defer d.Close()
	assert.Equal(t, dispatcher.ModeDirect, d.Mode())
	assert.False(t, d.PostTask(dispatcher.Poll))

	d.MotionNotify(1, 2)
	runner.RunAll()
	require.Len(t, rec.Events(), 1)
	assert.Empty(t, rec.Messages())
}

func TestDirectButtonNotifiesFocusBeforeEvent(t *testing.T) {
	d, runner, rec := newDirect(t)

	d.ButtonNotify(7, event.ButtonStatePressed, 0x110, 3, 4)
	assert.Zero(t, rec.Len(), "nothing runs on the caller")
	assert.Equal(t, 2, runner.RunAll())

	entries := rec.Entries()
	require.Len(t, entries, 2)
	assert.Equal(t, "focused", entries[0].Kind)
	assert.Equal(t, uint32(7), entries[0].Handle)
	require.Equal(t, "event", entries[1].Kind)
	ev, ok := entries[1].Event.(*event.MouseEvent)
	require.True(t, ok)
	assert.Equal(t, event.MousePressed, ev.Kind)
	assert.Equal(t, event.Point{X: 3, Y: 4}, ev.Location)
	assert.Equal(t, int32(0x110), ev.Flags)
	assert.Equal(t, uint32(7), ev.Window)

	d.ButtonNotify(7, 0, 0, 3, 4)
	runner.RunAll()
	evs := rec.Events()
	assert.Equal(t, event.MouseReleased, evs[len(evs)-1].EventType())
}

func TestDirectCrossingAndResize(t *testing.T) {
	d, runner, rec := newDirect(t)

	d.PointerEnter(3, 1, 1)
	d.PointerLeave(3, 2, 2)
	d.WindowResized(3, 640, 480)
	d.OutputSizeChanged(1920, 1080)
	runner.RunAll()

	var kinds []string
	for _, e := range rec.Entries() {
		kinds = append(kinds, e.Kind)
	}
	assert.Equal(t, []string{"enter", "event", "leave", "event", "resized"}, kinds)
	evs := rec.Events()
	assert.Equal(t, event.MouseEntered, evs[0].EventType())
	assert.Equal(t, event.MouseExited, evs[1].EventType())
	last := rec.Entries()[4]
	assert.Equal(t, uint32(640), last.Width)
	assert.Equal(t, uint32(480), last.Height)
}

func TestDirectAxisAndKey(t *testing.T) {
	d, runner, rec := newDirect(t)

	d.AxisNotify(5, 6, 0, -15)
	d.KeyNotify(1, 0x61, 4)
	d.KeyNotify(0, 0x61, 0)
	runner.RunAll()

	evs := rec.Events()
	require.Len(t, evs, 3)
	wheel, ok := evs[0].(*event.WheelEvent)
	require.True(t, ok)
	assert.Equal(t, float32(-15), wheel.YOffset)
	assert.Equal(t, event.Point{X: 5, Y: 6}, wheel.Location)

	press, ok := evs[1].(*event.KeyEvent)
	require.True(t, ok)
	assert.Equal(t, event.KeyPressed, press.Kind)
	assert.Equal(t, keymap.VKEY_A, press.KeyCode)
	assert.Equal(t, uint32(4), press.Modifiers)
	assert.Equal(t, event.KeyReleased, evs[2].EventType())
}

func TestDirectWithoutObserverDeliversEventsOnly(t *testing.T) {
	runner := fake.NewRunner()
	rec := fake.NewRecorder()
	d, err := dispatcher.New(dispatcher.Options{Target: runner, Sink: rec})
	require.NoError(t, err)
	defer d.Close()

	d.PointerEnter(1, 0, 0)
	d.WindowResized(1, 10, 10)
	runner.RunAll()
	require.Equal(t, 1, rec.Len())
	assert.Equal(t, "event", rec.Entries()[0].Kind)

	d.SetObserver(rec)
	d.WindowResized(1, 10, 10)
	runner.RunAll()
	assert.Equal(t, "resized", rec.Entries()[1].Kind)
}

func TestSingleProducerOrderIsPreserved(t *testing.T) {
	d, runner, rec := newDirect(t)
	for i := 0; i < 200; i++ {
		d.MotionNotify(float32(i), 0)
	}
	runner.RunAll()
	evs := rec.Events()
	require.Len(t, evs, 200)
	for i, ev := range evs {
		assert.Equal(t, float32(i), ev.(*event.MouseEvent).Location.X)
	}
}

func TestDispatchEventPostsToSink(t *testing.T) {
	d, runner, rec := newDirect(t)
	assert.False(t, d.DispatchEvent(nil))
	assert.True(t, d.DispatchEvent(event.NewMotion(1, 1)))
	runner.RunAll()
	assert.Len(t, rec.Events(), 1)
}

func TestCloseDropsQueuedAndFutureDeliveries(t *testing.T) {
	d, runner, rec := newDirect(t)
	d.MotionNotify(1, 1)
	require.Equal(t, 1, runner.Len())

	require.NoError(t, d.Close())
	assert.Equal(t, dispatcher.Terminated, d.State())
	d.MotionNotify(2, 2)
	assert.Equal(t, 1, runner.Len())

	runner.RunAll()
	assert.Zero(t, rec.Len())
	require.NoError(t, d.Close())
	select {
	case <-d.Done():
	default:
		t.Fatal("Done not closed after Close")
	}
}

func TestTargetDestroyedStopsDelivery(t *testing.T) {
	d, runner, rec := newDirect(t)
	d.KeyNotify(1, 0x61, 0)

	runner.Destroy()
	assert.Equal(t, dispatcher.Terminated, d.State())
	runner.RunAll()
	assert.Zero(t, rec.Len())

	d.KeyNotify(1, 0x61, 0)
	assert.Zero(t, runner.Len())
}

func TestBridgedDropsBeforePolling(t *testing.T) {
	b := newBridged(t)

	b.d.MotionNotify(1, 2)
	assert.Zero(t, b.runner.Len())
	assert.Equal(t, int64(1), b.metrics.get("dispatcher.dropped"))

	b.poll(t)
	b.d.MotionNotify(1, 2)
	require.Equal(t, 1, b.runner.RunAll())
	assert.Equal(t, []message.Message{message.Motion{X: 1, Y: 2}}, b.rec.Messages())
}

func TestBridgedForwardsEveryNotifier(t *testing.T) {
	b := newBridged(t)
	b.poll(t)

	b.d.MotionNotify(1, 2)
	b.d.ButtonNotify(4, 1, 0x110, 5, 6)
	b.d.AxisNotify(1, 1, 0, 10)
	b.d.PointerEnter(4, 7, 8)
	b.d.PointerLeave(4, 9, 10)
	b.d.KeyNotify(1, 38, 2)
	b.d.OutputSizeChanged(1920, 1080)
	b.d.WindowResized(4, 800, 600)
	b.runner.RunAll()

	assert.Equal(t, []message.Message{
		message.Motion{X: 1, Y: 2},
		message.Button{Handle: 4, State: 1, Flags: 0x110, X: 5, Y: 6},
		message.Axis{X: 1, Y: 1, XOffset: 0, YOffset: 10},
		message.PointerEnter{Handle: 4, X: 7, Y: 8},
		message.PointerLeave{Handle: 4, X: 9, Y: 10},
		message.Key{State: 1, Code: 38, Modifiers: 2},
		message.OutputSize{Width: 1920, Height: 1080},
		message.WindowResized{Handle: 4, Width: 800, Height: 600},
	}, b.rec.Messages())
}

func TestPollIsIdempotent(t *testing.T) {
	b := newBridged(t)
	b.d.PostTask(dispatcher.Poll)
	b.d.PostTask(dispatcher.Poll)
	require.Eventually(t, b.d.Running, time.Second, time.Millisecond)
	assert.False(t, b.d.PostTask(dispatcher.Poll))

	// A flush posted now is serviced by the running loop.
	require.True(t, b.d.PostTask(dispatcher.Flush))
	require.Eventually(t, func() bool { return b.conn.Count("read") == 1 }, time.Second, time.Millisecond)
	assert.Equal(t, int64(1), b.metrics.get("dispatcher.poll_loops"))
}

func TestRemoteSendFailureIsCounted(t *testing.T) {
	b := newBridged(t)
	b.rec.SetSendError(api.ErrConnectionClosed)
	b.poll(t)

	b.d.MotionNotify(1, 1)
	b.runner.RunAll()
	assert.Equal(t, int64(1), b.metrics.get("dispatcher.remote_errors"))
}

func TestFatalPumpExitSignalsDone(t *testing.T) {
	b := newBridged(t, []reactor.Ready{{Fd: testFd, Events: reactor.Error}})
	require.True(t, b.d.PostTask(dispatcher.Poll))

	select {
	case <-b.d.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("pump did not exit on hangup")
	}
	assert.ErrorIs(t, b.d.Err(), api.ErrHangup)
	assert.Equal(t, dispatcher.Running, b.d.State())
	require.NoError(t, b.d.Close())
	assert.Equal(t, dispatcher.Terminated, b.d.State())
}

func TestCloseStopsRunningLoop(t *testing.T) {
	b := newBridged(t)
	b.poll(t)
	b.d.MotionNotify(1, 1)

	require.NoError(t, b.d.Close())
	assert.NoError(t, b.d.Err())
	assert.False(t, b.d.PostTask(dispatcher.Flush))
	b.runner.RunAll()
	assert.Empty(t, b.rec.Messages())
}

// drain waits until every task queued on target before the call has run.
func drain(t *testing.T, target *concurrency.Looper) {
	t.Helper()
	done := make(chan struct{})
	require.True(t, target.Post(func() { close(done) }))
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("target did not drain")
	}
}

func TestConcurrentTeardownDeliversNothingLate(t *testing.T) {
	for round := 0; round < 20; round++ {
		target := concurrency.NewLooper("target")
		require.NoError(t, target.Start())

		var delivered atomic.Int64
		d, err := dispatcher.New(dispatcher.Options{
			Mode:   dispatcher.ModeDirect,
			Target: target,
			Sink:   api.EventSinkFunc(func(event.Event) { delivered.Add(1) }),
		})
		require.NoError(t, err)

		stop := make(chan struct{})
		var wg sync.WaitGroup
		for p := 0; p < 4; p++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for {
					select {
					case <-stop:
						return
					default:
						d.MotionNotify(1, 2)
					}
				}
			}()
		}
		require.Eventually(t, func() bool { return delivered.Load() > 0 }, time.Second, time.Millisecond)

		require.NoError(t, d.Close())
		// A delivery already past its check when Close returned may finish.
		drain(t, target)
		atClose := delivered.Load()

		time.Sleep(2 * time.Millisecond)
		close(stop)
		wg.Wait()
		drain(t, target)
		assert.Equal(t, atClose, delivered.Load(), "round %d", round)
		target.Stop()
	}
}

func TestPostTaskRacingCloseWithEpoll(t *testing.T) {
	fds, err := syscall.Socketpair(syscall.AF_UNIX, syscall.SOCK_STREAM, 0)
	require.NoError(t, err)
	defer syscall.Close(fds[0])
	defer syscall.Close(fds[1])

	d, err := dispatcher.New(dispatcher.Options{
		Mode:       dispatcher.ModeBridged,
		Connection: fake.NewConnection(fds[0]),
		Target:     fake.NewRunner(),
		Remote:     fake.NewRecorder(),
		Priority:   -1,
	})
	require.NoError(t, err)
	require.Equal(t, dispatcher.ModeBridged, d.Mode())

	var wg sync.WaitGroup
	for p := 0; p < 4; p++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for d.PostTask(dispatcher.Flush) {
			}
		}()
	}
	time.Sleep(5 * time.Millisecond)
	require.NoError(t, d.Close())
	wg.Wait()

	assert.False(t, d.PostTask(dispatcher.Flush))
	assert.Equal(t, dispatcher.Terminated, d.State())
}

func TestDirectFlushWithConnection(t *testing.T) {
	conn := fake.NewConnection(testFd)
	runner := fake.NewRunner()
	d, err := dispatcher.New(dispatcher.Options{
		Mode:       dispatcher.ModeDirect,
		Connection: conn,
		Target:     runner,
		Priority:   -1,
	})
	require.NoError(t, err)
	defer d.Close()

	assert.False(t, d.PostTask(dispatcher.Poll))
	require.True(t, d.PostTask(dispatcher.Flush))
	require.Eventually(t, func() bool { return conn.Count("pending") == 1 }, time.Second, time.Millisecond)
	assert.Equal(t, []string{"prepare", "flush", "read", "pending"}, conn.Calls())
}

func TestParseMode(t *testing.T) {
	m, err := dispatcher.ParseMode("bridged")
	require.NoError(t, err)
	assert.Equal(t, dispatcher.ModeBridged, m)
	_, err = dispatcher.ParseMode("sideways")
	assert.Error(t, err)
}
