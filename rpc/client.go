/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package rpc

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// endTimeout bounds the fire-and-forget message that ends a stream.
const endTimeout = 5 * time.Second

// streamBuffer is how many answers a stream holds for a slow reader.
const streamBuffer = 16

type result struct {
	msg Message
	err error
}

type pending struct {
	want    Type
	results chan result
	done    chan struct{}
	stream  bool
}

// deliver hands r to the waiting call. A stream whose reader fell behind
// loses r instead of holding up the read loop. It reports whether r was
// kept.
func (p *pending) deliver(r result) bool {
	if p.stream {
		select {
		case p.results <- r:
		case <-p.done:
		default:
			return false
		}
		return true
	}

	select {
	case p.results <- r:
	case <-p.done:
	}
	return true
}

// Client is the calling side of a channel. It keeps a table of calls
// awaiting an answer and matches every incoming message to one of them
// by uuid.
type Client struct {
	ch  Channel
	log *zap.Logger

	mu      sync.Mutex
	pending map[uuid.UUID]*pending
	err     error
	done    chan struct{}
}

func NewClient(ch Channel, log *zap.Logger) *Client {
	if log == nil {
		log = zap.NewNop()
	}

	c := &Client{
		ch:      ch,
		log:     log,
		pending: make(map[uuid.UUID]*pending),
		done:    make(chan struct{}),
	}

	go c.read()

	return c
}

// Done is closed once the channel failed or was closed.
func (c *Client) Done() <-chan struct{} {
	return c.done
}

func (c *Client) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.err
}

func (c *Client) Close() error {
	return c.ch.Close()
}

func (c *Client) read() {
	for data := range c.ch.Messages() {
		var msg Message
		if err := json.Unmarshal(data, &msg); err != nil {
			c.log.Warn("dropping undecodable message", zap.Error(err))
			continue
		}

		c.mu.Lock()
		p := c.pending[msg.UUID]
		c.mu.Unlock()

		if p == nil {
			c.log.Debug("dropping uncorrelated message",
				zap.String("type", string(msg.Type)),
				zap.Stringer("uuid", msg.UUID))
			continue
		}

		r := result{msg: msg}
		if msg.Type != p.want {
			r = result{err: fmt.Errorf("%w: got %s, want %s", ErrProtocolMismatch, msg.Type, p.want)}
		}

		if !p.deliver(r) {
			c.log.Debug("dropping message for a stalled stream",
				zap.String("type", string(msg.Type)),
				zap.Stringer("uuid", msg.UUID))
		}
	}

	c.mu.Lock()
	c.err = ErrTransport
	c.pending = make(map[uuid.UUID]*pending)
	c.mu.Unlock()

	close(c.done)
}

func (c *Client) register(req Message, buffer int, stream bool) (*pending, error) {
	want, ok := ResponseTo(req.Type)
	if !ok {
		return nil, fmt.Errorf("rpc: %s is not a request", req.Type)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.err != nil {
		return nil, c.err
	}

	p := &pending{
		want:    want,
		results: make(chan result, buffer),
		done:    make(chan struct{}),
		stream:  stream,
	}
	c.pending[req.UUID] = p

	return p, nil
}

func (c *Client) remove(id uuid.UUID, p *pending) {
	c.mu.Lock()
	if c.pending[id] == p {
		delete(c.pending, id)
	}
	c.mu.Unlock()

	close(p.done)
}

func (c *Client) send(ctx context.Context, msg Message) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	if err := c.ch.Send(ctx, data); err != nil {
		return fmt.Errorf("%w: %w", ErrTransport, err)
	}

	return nil
}

// Call sends a request and waits for its single answer. A nil uuid on req
// is replaced by a fresh one.
func (c *Client) Call(ctx context.Context, req Message) (Message, error) {
	if req.UUID == uuid.Nil {
		req.UUID = uuid.New()
	}

	p, err := c.register(req, 1, false)
	if err != nil {
		return Message{}, err
	}
	defer c.remove(req.UUID, p)

	if err := c.send(ctx, req); err != nil {
		return Message{}, err
	}

	select {
	case r := <-p.results:
		return r.msg, r.err
	case <-c.done:
		return Message{}, ErrTransport
	case <-ctx.Done():
		return Message{}, ctx.Err()
	}
}

// Stream sends a request answered by any number of messages. The returned
// channel is closed when ctx ends, after the peer was told to stop, or
// early when the call fails.
func (c *Client) Stream(ctx context.Context, req Message) (<-chan Message, error) {
	if req.UUID == uuid.Nil {
		req.UUID = uuid.New()
	}

	p, err := c.register(req, streamBuffer, true)
	if err != nil {
		return nil, err
	}

	if err := c.send(ctx, req); err != nil {
		c.remove(req.UUID, p)
		return nil, err
	}

	out := make(chan Message)

	go func() {
		defer close(out)
		defer c.remove(req.UUID, p)

		for {
			select {
			case r := <-p.results:
				if r.err != nil {
					c.log.Warn("stream failed", zap.Stringer("uuid", req.UUID), zap.Error(r.err))
					return
				}
				select {
				case out <- r.msg:
				case <-ctx.Done():
					c.end(req.UUID)
					return
				}
			case <-c.done:
				return
			case <-ctx.Done():
				c.end(req.UUID)
				return
			}
		}
	}()

	return out, nil
}

func (c *Client) end(id uuid.UUID) {
	ctx, cancel := context.WithTimeout(context.Background(), endTimeout)
	defer cancel()

	if err := c.Notify(ctx, Message{Type: EndSelectCards, UUID: id}); err != nil {
		c.log.Debug("could not end stream", zap.Stringer("uuid", id), zap.Error(err))
	}
}

// Notify sends a message nobody answers.
func (c *Client) Notify(ctx context.Context, msg Message) error {
	select {
	case <-c.done:
		return ErrTransport
	default:
	}

	return c.send(ctx, msg)
}
