// Package fake
// Author: momentics <momentics@gmail.com>
//
// Scripted readiness multiplexer.

package fake

import (
	"sync"

	"github.com/momentics/wldispatch/reactor"
)

// Poller replays scripted readiness rounds. When the script runs out it
// invokes the exhausted hook (typically a pump Stop) and reports an empty
// round, or blocks until Wake when no hook is set.
type Poller struct {
	mu          sync.Mutex
	script      [][]reactor.Ready
	modifies    []reactor.Interest
	registered  map[int]reactor.Interest
	waits       int
	wakes       int
	waitErr     error
	modifyErr   error
	onExhausted func()
	wakeCh      chan struct{}
}

var _ reactor.Multiplexer = (*Poller)(nil)

// NewPoller creates a poller with an empty script.
func NewPoller() *Poller {
	return &Poller{
		registered: make(map[int]reactor.Interest),
		wakeCh:     make(chan struct{}, 1),
	}
}

// Script appends readiness rounds returned by successive Wait calls.
func (p *Poller) Script(rounds ...[]reactor.Ready) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.script = append(p.script, rounds...)
}

// OnExhausted installs the hook run once the script is empty.
func (p *Poller) OnExhausted(fn func()) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.onExhausted = fn
}

// SetWaitError makes the next Wait fail.
func (p *Poller) SetWaitError(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.waitErr = err
}

// SetModifyError makes Modify fail.
func (p *Poller) SetModifyError(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.modifyErr = err
}

// Modifies returns the interest masks passed to Modify, in order.
func (p *Poller) Modifies() []reactor.Interest {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]reactor.Interest, len(p.modifies))
	copy(out, p.modifies)
	return out
}

// Registered returns the interest currently recorded for fd.
func (p *Poller) Registered(fd int) (reactor.Interest, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	in, ok := p.registered[fd]
	return in, ok
}

// Waits returns the number of Wait calls.
func (p *Poller) Waits() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.waits
}

// Wakes returns the number of Wake calls.
func (p *Poller) Wakes() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.wakes
}

// Register implements reactor.Multiplexer.
func (p *Poller) Register(fd int, in reactor.Interest) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.registered[fd] = in | reactor.Error
	return nil
}

// Modify implements reactor.Multiplexer.
func (p *Poller) Modify(fd int, in reactor.Interest) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.modifyErr != nil {
		return p.modifyErr
	}
	p.modifies = append(p.modifies, in)
	p.registered[fd] = in | reactor.Error
	return nil
}

// Wait implements reactor.Multiplexer.
func (p *Poller) Wait(ready []reactor.Ready, timeoutMs int) (int, error) {
	p.mu.Lock()
	p.waits++
	if err := p.waitErr; err != nil {
		p.waitErr = nil
		p.mu.Unlock()
		return 0, err
	}
	if len(p.script) > 0 {
		round := p.script[0]
		p.script = p.script[1:]
		p.mu.Unlock()
		return copy(ready, round), nil
	}
	hook := p.onExhausted
	p.mu.Unlock()
	if hook != nil {
		hook()
		return 0, nil
	}
	<-p.wakeCh
	return 0, nil
}

// Wake implements reactor.Multiplexer.
func (p *Poller) Wake() error {
	p.mu.Lock()
	p.wakes++
	p.mu.Unlock()
	select {
	case p.wakeCh <- struct{}{}:
	default:
	}
	return nil
}

// Close implements reactor.Multiplexer.
func (p *Poller) Close() error { return nil }
