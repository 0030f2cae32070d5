/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

// Package transport provides the duplex channels a remote participant is
// reached through.
package transport

import (
	"context"
	"errors"
	"sync"

	"github.com/Seednode/pairbox/rpc"
)

var ErrClosed = errors.New("transport: channel closed")

type link struct {
	done chan struct{}
	once sync.Once
}

func (l *link) close() {
	l.once.Do(func() { close(l.done) })
}

// PipeEnd is one side of an in-memory channel. Closing either side closes
// both.
type PipeEnd struct {
	link  *link
	inbox chan []byte
	out   chan []byte
	peer  *PipeEnd
}

var _ rpc.Channel = (*PipeEnd)(nil)

// Pipe returns two connected ends.
func Pipe() (*PipeEnd, *PipeEnd) {
	l := &link{done: make(chan struct{})}

	a := &PipeEnd{link: l, inbox: make(chan []byte, 64), out: make(chan []byte)}
	b := &PipeEnd{link: l, inbox: make(chan []byte, 64), out: make(chan []byte)}
	a.peer, b.peer = b, a

	go a.forward()
	go b.forward()

	return a, b
}

func (p *PipeEnd) forward() {
	defer close(p.out)

	for {
		select {
		case data := <-p.inbox:
			select {
			case p.out <- data:
			case <-p.link.done:
				return
			}
		case <-p.link.done:
			return
		}
	}
}

func (p *PipeEnd) Send(ctx context.Context, data []byte) error {
	select {
	case <-p.link.done:
		return ErrClosed
	default:
	}

	buf := append([]byte(nil), data...)

	select {
	case p.peer.inbox <- buf:
		return nil
	case <-p.link.done:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *PipeEnd) Messages() <-chan []byte {
	return p.out
}

func (p *PipeEnd) Close() error {
	p.link.close()
	return nil
}
