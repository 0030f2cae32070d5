/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package transport

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/Seednode/pairbox/matchcode"
	"github.com/Seednode/pairbox/rpc"
)

const (
	subjectPrefix = "pairbox."
	controlHeader = "Pairbox-Control"

	controlHello   = "hello"
	controlWelcome = "welcome"
	controlBye     = "bye"

	helloInterval = time.Second
	natsBuffer    = 256
)

// NATS links host and guest through a NATS server. Each end listens on
// the subject derived from its own peer key and publishes to the other.
type NATS struct {
	conn *nats.Conn
	log  *zap.Logger
}

func ConnectNATS(url string, log *zap.Logger) (*NATS, error) {
	if log == nil {
		log = zap.NewNop()
	}

	opts := []nats.Option{
		nats.Name("pairbox"),
		nats.MaxReconnects(10),
		nats.ReconnectWait(2 * time.Second),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			log.Warn("nats disconnected", zap.Error(err))
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info("nats reconnected", zap.String("url", nc.ConnectedUrl()))
		}),
	}

	conn, err := nats.Connect(url, opts...)
	if err != nil {
		return nil, fmt.Errorf("transport: connecting to nats: %w", err)
	}

	return &NATS{conn: conn, log: log}, nil
}

func (n *NATS) Close() {
	n.conn.Close()
}

func control(subject, kind string) *nats.Msg {
	msg := nats.NewMsg(subject)
	msg.Header.Set(controlHeader, kind)
	return msg
}

// Accept waits for the guest of a seat to say hello. Its signature matches
// rpc.Connector.
func (n *NATS) Accept(ctx context.Context, code string, seat int) (rpc.Channel, error) {
	own := subjectPrefix + matchcode.HostKey(code, seat)
	peer := subjectPrefix + matchcode.GuestKey(code, seat)

	raw := make(chan *nats.Msg, natsBuffer)
	sub, err := n.conn.ChanSubscribe(own, raw)
	if err != nil {
		return nil, fmt.Errorf("transport: subscribing: %w", err)
	}

	for {
		select {
		case msg := <-raw:
			if msg.Header.Get(controlHeader) != controlHello {
				continue
			}
			if err := n.conn.PublishMsg(control(peer, controlWelcome)); err != nil {
				_ = sub.Unsubscribe()
				return nil, fmt.Errorf("transport: welcoming guest: %w", err)
			}

			n.log.Info("guest connected", zap.Int("seat", seat))
			return newNATSChannel(n, sub, raw, peer), nil

		case <-ctx.Done():
			_ = sub.Unsubscribe()
			return nil, ctx.Err()
		}
	}
}

// Dial greets the host of a seat until it answers.
func (n *NATS) Dial(ctx context.Context, code string, seat int) (rpc.Channel, error) {
	own := subjectPrefix + matchcode.GuestKey(code, seat)
	peer := subjectPrefix + matchcode.HostKey(code, seat)

	raw := make(chan *nats.Msg, natsBuffer)
	sub, err := n.conn.ChanSubscribe(own, raw)
	if err != nil {
		return nil, fmt.Errorf("transport: subscribing: %w", err)
	}

	ticker := time.NewTicker(helloInterval)
	defer ticker.Stop()

	for {
		if err := n.conn.PublishMsg(control(peer, controlHello)); err != nil {
			_ = sub.Unsubscribe()
			return nil, fmt.Errorf("transport: greeting host: %w", err)
		}

		select {
		case msg := <-raw:
			if msg.Header.Get(controlHeader) == controlWelcome {
				return newNATSChannel(n, sub, raw, peer), nil
			}
		case <-ticker.C:
		case <-ctx.Done():
			_ = sub.Unsubscribe()
			return nil, ctx.Err()
		}
	}
}

type natsChannel struct {
	n    *NATS
	sub  *nats.Subscription
	raw  chan *nats.Msg
	out  chan []byte
	peer string
	done chan struct{}
	once sync.Once
}

var _ rpc.Channel = (*natsChannel)(nil)

func newNATSChannel(n *NATS, sub *nats.Subscription, raw chan *nats.Msg, peer string) *natsChannel {
	c := &natsChannel{
		n:    n,
		sub:  sub,
		raw:  raw,
		out:  make(chan []byte),
		peer: peer,
		done: make(chan struct{}),
	}

	go c.forward()

	return c
}

func (c *natsChannel) forward() {
	defer func() {
		_ = c.sub.Unsubscribe()
		close(c.out)
	}()

	for {
		select {
		case msg := <-c.raw:
			switch msg.Header.Get(controlHeader) {
			case "":
			case controlBye:
				c.shut()
				return
			case controlHello:
				// The guest missed our welcome.
				_ = c.n.conn.PublishMsg(control(c.peer, controlWelcome))
				continue
			default:
				continue
			}

			select {
			case c.out <- msg.Data:
			case <-c.done:
				return
			}

		case <-c.done:
			return
		}
	}
}

func (c *natsChannel) shut() {
	c.once.Do(func() { close(c.done) })
}

func (c *natsChannel) Send(ctx context.Context, data []byte) error {
	select {
	case <-c.done:
		return ErrClosed
	default:
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	return c.n.conn.Publish(c.peer, data)
}

func (c *natsChannel) Messages() <-chan []byte {
	return c.out
}

// Close tells the peer goodbye and stops listening.
func (c *natsChannel) Close() error {
	select {
	case <-c.done:
		return nil
	default:
	}

	err := c.n.conn.PublishMsg(control(c.peer, controlBye))
	c.shut()

	return err
}
