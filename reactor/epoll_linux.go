//go:build linux
// +build linux

// File: reactor/epoll_linux.go
// Author: momentics <momentics@gmail.com>
//
// Linux epoll(7) multiplexer.

package reactor

import (
	"encoding/binary"
	"fmt"
	"sync"

	"golang.org/x/sys/unix"
)

// Swapped in tests to exercise the fallback path.
var (
	epollCreate1 = unix.EpollCreate1
	epollCreate  = unix.EpollCreate
)

// Epoll implements Multiplexer. Only the owning goroutine may call Register,
// Modify and Wait; Wake and Close are safe from any goroutine.
type Epoll struct {
	epfd      int
	wakefd    int
	raw       []unix.EpollEvent

	// mu orders Wake against Close so a released wakefd is never written.
	mu     sync.Mutex
	closed bool
}

var _ Multiplexer = (*Epoll)(nil)

// New creates a close-on-exec epoll instance collecting up to maxEvents
// ready events per Wait.
func New(maxEvents int) (*Epoll, error) {
	if maxEvents <= 0 {
		maxEvents = DefaultBatch
	}
	epfd, err := createCloExec()
	if err != nil {
		return nil, fmt.Errorf("epoll create: %w", err)
	}
	wakefd, err := unix.Eventfd(0, unix.EFD_CLOEXEC|unix.EFD_NONBLOCK)
	if err != nil {
		unix.Close(epfd)
		return nil, fmt.Errorf("eventfd: %w", err)
	}
	ev := unix.EpollEvent{Events: unix.EPOLLIN, Fd: int32(wakefd)}
	if err := unix.EpollCtl(epfd, unix.EPOLL_CTL_ADD, wakefd, &ev); err != nil {
		unix.Close(wakefd)
		unix.Close(epfd)
		return nil, fmt.Errorf("epoll ctl add wakefd: %w", err)
	}
	return &Epoll{
		epfd:   epfd,
		wakefd: wakefd,
		raw:    make([]unix.EpollEvent, maxEvents+1),
	}, nil
}

// createCloExec prefers epoll_create1(EPOLL_CLOEXEC) and falls back to
// epoll_create + FD_CLOEXEC when the kernel rejects the flag.
func createCloExec() (int, error) {
	fd, err := epollCreate1(unix.EPOLL_CLOEXEC)
	if err == nil {
		return fd, nil
	}
	if err != unix.EINVAL && err != unix.ENOSYS {
		return -1, err
	}
	fd, err = epollCreate(1)
	if err != nil {
		return -1, err
	}
	return setCloExecOrClose(fd)
}

func setCloExecOrClose(fd int) (int, error) {
	flags, err := unix.FcntlInt(uintptr(fd), unix.F_GETFD, 0)
	if err != nil {
		unix.Close(fd)
		return -1, err
	}
	if _, err := unix.FcntlInt(uintptr(fd), unix.F_SETFD, flags|unix.FD_CLOEXEC); err != nil {
		unix.Close(fd)
		return -1, err
	}
	return fd, nil
}

func toEpoll(in Interest) uint32 {
	events := uint32(unix.EPOLLERR | unix.EPOLLHUP)
	if in&Read != 0 {
		events |= unix.EPOLLIN
	}
	if in&Write != 0 {
		events |= unix.EPOLLOUT
	}
	return events
}

func fromEpoll(events uint32) Interest {
	var in Interest
	if events&unix.EPOLLIN != 0 {
		in |= Read
	}
	if events&unix.EPOLLOUT != 0 {
		in |= Write
	}
	if events&(unix.EPOLLERR|unix.EPOLLHUP) != 0 {
		in |= Error
	}
	return in
}

// Register adds fd with the given interest; error/hangup is always watched.
func (e *Epoll) Register(fd int, in Interest) error {
	ev := unix.EpollEvent{Events: toEpoll(in), Fd: int32(fd)}
	if err := unix.EpollCtl(e.epfd, unix.EPOLL_CTL_ADD, fd, &ev); err != nil {
		return fmt.Errorf("epoll ctl add: %w", err)
	}
	return nil
}

// Modify replaces the interest of a registered fd.
func (e *Epoll) Modify(fd int, in Interest) error {
	ev := unix.EpollEvent{Events: toEpoll(in), Fd: int32(fd)}
	if err := unix.EpollCtl(e.epfd, unix.EPOLL_CTL_MOD, fd, &ev); err != nil {
		return fmt.Errorf("epoll ctl mod: %w", err)
	}
	return nil
}

// Wait blocks for readiness. Wake notifications are consumed here and never
// reported. EINTR is treated as an empty wakeup.
func (e *Epoll) Wait(ready []Ready, timeoutMs int) (int, error) {
	limit := len(ready) + 1
	if limit > len(e.raw) {
		limit = len(e.raw)
	}
	if timeoutMs < 0 {
		timeoutMs = -1
	}
	n, err := unix.EpollWait(e.epfd, e.raw[:limit], timeoutMs)
	if err != nil {
		if err == unix.EINTR {
			return 0, nil
		}
		return 0, fmt.Errorf("epoll wait: %w", err)
	}
	count := 0
	for i := 0; i < n; i++ {
		ev := e.raw[i]
		if int(ev.Fd) == e.wakefd {
			e.drainWake()
			continue
		}
		if count == len(ready) {
			break
		}
		ready[count] = Ready{Fd: int(ev.Fd), Events: fromEpoll(ev.Events)}
		count++
	}
	return count, nil
}

// Wake interrupts a blocked Wait.
func (e *Epoll) Wake() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return ErrClosed
	}
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], 1)
	_, err := unix.Write(e.wakefd, buf[:])
	if err != nil && err != unix.EAGAIN {
		return fmt.Errorf("eventfd write: %w", err)
	}
	return nil
}

func (e *Epoll) drainWake() {
	var buf [8]byte
	_, _ = unix.Read(e.wakefd, buf[:])
}

// Close releases the epoll and eventfd descriptors. The watched socket is
// not owned and stays open.
func (e *Epoll) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return nil
	}
	e.closed = true
	unix.Close(e.wakefd)
	return unix.Close(e.epfd)
}
