//go:build linux
// +build linux

// File: wire/peer_linux.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Compositor side of the framed protocol: a listening socket and blocking
// peers that emit input events and answer sync requests.

package wire

import (
	"sync"

	pkgerrors "github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

// Listener accepts client connections on a unix socket path.
type Listener struct {
	fd   int
	path string
	once sync.Once
}

// Listen binds path, removing a stale socket file first.
func Listen(path string) (*Listener, error) {
	_ = unix.Unlink(path)
	fd, err := unix.Socket(unix.AF_UNIX, unix.SOCK_STREAM|unix.SOCK_CLOEXEC, 0)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "wire: socket")
	}
	if err := unix.Bind(fd, &unix.SockaddrUnix{Name: path}); err != nil {
		unix.Close(fd)
		return nil, pkgerrors.Wrapf(err, "wire: bind %s", path)
	}
	if err := unix.Listen(fd, 8); err != nil {
		unix.Close(fd)
		return nil, pkgerrors.Wrap(err, "wire: listen")
	}
	return &Listener{fd: fd, path: path}, nil
}

// Path returns the bound socket path.
func (l *Listener) Path() string { return l.path }

// Accept waits for the next client.
func (l *Listener) Accept() (*Peer, error) {
	for {
		nfd, _, err := unix.Accept4(l.fd, unix.SOCK_CLOEXEC)
		if err == unix.EINTR {
			continue
		}
		if err != nil {
			return nil, pkgerrors.Wrap(err, "wire: accept")
		}
		return &Peer{fd: nfd}, nil
	}
}

// Close stops listening and removes the socket file.
func (l *Listener) Close() error {
	var err error
	l.once.Do(func() {
		err = unix.Close(l.fd)
		_ = unix.Unlink(l.path)
	})
	return err
}

// Peer is a blocking server-side connection.
type Peer struct {
	fd   int
	mu   sync.Mutex
	in   []byte
	once sync.Once
}

// NewPeer adopts a connected blocking socket.
func NewPeer(fd int) *Peer { return &Peer{fd: fd} }

// Fd returns the socket descriptor.
func (p *Peer) Fd() int { return p.fd }

// Send writes frames completely.
func (p *Peer) Send(frames ...Frame) error {
	buf := Encode(frames...)
	p.mu.Lock()
	defer p.mu.Unlock()
	for len(buf) > 0 {
		n, err := unix.Write(p.fd, buf)
		if err == unix.EINTR {
			continue
		}
		if err != nil {
			return pkgerrors.Wrap(err, "wire: peer write")
		}
		buf = buf[n:]
	}
	return nil
}

// ReadRequests blocks until at least one complete request frame arrives.
func (p *Peer) ReadRequests() ([]Frame, error) {
	var buf [readChunk]byte
	for {
		frames, rest, err := DecodeFrames(p.in)
		if err != nil {
			return nil, err
		}
		if len(frames) > 0 {
			p.in = append(p.in[:0], rest...)
			return frames, nil
		}
		n, err := unix.Read(p.fd, buf[:])
		if err == unix.EINTR {
			continue
		}
		if err != nil {
			return nil, pkgerrors.Wrap(err, "wire: peer read")
		}
		if n == 0 {
			return nil, pkgerrors.Wrap(errPeerClosed, "wire: peer read")
		}
		p.in = append(p.in, buf[:n]...)
	}
}

var errPeerClosed = pkgerrors.New("client closed connection")

// ServeSync answers every sync request with Done until the client goes
// away or a read fails. Other requests are ignored.
func (p *Peer) ServeSync() error {
	for {
		frames, err := p.ReadRequests()
		if err != nil {
			return err
		}
		for _, f := range frames {
			if f.Object == ObjectDisplay && f.Opcode == OpSync && len(f.Args) == 1 {
				if err := p.Send(DoneFrame(f.Args[0])); err != nil {
					return err
				}
			}
		}
	}
}

// Close releases the socket.
func (p *Peer) Close() error {
	var err error
	p.once.Do(func() { err = unix.Close(p.fd) })
	return err
}
