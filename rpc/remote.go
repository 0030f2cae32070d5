/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package rpc

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Seednode/pairbox/player"
)

// Connector opens the channel to the peer sitting in the given seat of the
// match identified by code.
type Connector func(ctx context.Context, code string, seat int) (Channel, error)

// RemotePlayer is a participant reached over a Channel. The channel is
// opened on Init.
//
// Acknowledged calls are bounded by CallTimeout. Calls waiting on a person
// (Init, EndRound and each selection) are bounded by IdleTimeout. Zero
// disables a bound.
type RemotePlayer struct {
	Connect     Connector
	CallTimeout time.Duration
	IdleTimeout time.Duration
	Logger      *zap.Logger

	mu     sync.Mutex
	client *Client
}

var _ player.Player = (*RemotePlayer)(nil)

func (r *RemotePlayer) log() *zap.Logger {
	if r.Logger == nil {
		return zap.NewNop()
	}
	return r.Logger
}

func (r *RemotePlayer) session() (*Client, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.client == nil {
		return nil, fmt.Errorf("%w: not connected", ErrTransport)
	}
	return r.client, nil
}

// Close drops the channel, if one was opened.
func (r *RemotePlayer) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.client == nil {
		return nil
	}
	return r.client.Close()
}

// drop closes the channel of a peer that stopped answering, so the guest
// sees the match end for it.
func (r *RemotePlayer) drop(call Type, err error) {
	r.log().Info("dropping peer", zap.String("call", string(call)), zap.Error(err))
	_ = r.Close()
}

func bound(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}

// expired turns a timed-out call into a departure. Cancellation by the
// caller is passed through unchanged.
func expired(ctx context.Context, err error, d time.Duration) error {
	if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
		return fmt.Errorf("%w: no answer within %s", player.ErrDeparted, d)
	}
	return err
}

func (r *RemotePlayer) call(ctx context.Context, req Message, d time.Duration) (Message, error) {
	c, err := r.session()
	if err != nil {
		return Message{}, err
	}

	callCtx, cancel := bound(ctx, d)
	defer cancel()

	resp, err := c.Call(callCtx, req)
	if err != nil {
		err = expired(ctx, err, d)
		if errors.Is(err, player.ErrDeparted) {
			r.drop(req.Type, err)
		}
		return Message{}, err
	}

	return resp, nil
}

func (r *RemotePlayer) ack(ctx context.Context, req Message) error {
	_, err := r.call(ctx, req, r.CallTimeout)
	return err
}

func (r *RemotePlayer) Init(ctx context.Context, init player.GameInit) (player.InitReply, error) {
	ch, err := r.Connect(ctx, init.Code, init.Index)
	if err != nil {
		r.log().Info("peer did not connect", zap.Int("seat", init.Index), zap.Error(err))
		return player.InitReply{Leave: true}, nil
	}

	c := NewClient(ch, r.log().With(zap.Int("seat", init.Index)))

	r.mu.Lock()
	r.client = c
	r.mu.Unlock()

	id := uuid.New()

	if init.Names != nil {
		go r.forwardNames(c, id, init.Names)
	}

	resp, err := r.call(ctx, Message{
		Type:        GameInit,
		UUID:        id,
		GameCode:    init.Code,
		NumPlayers:  init.NumPlayers,
		PlayerIndex: init.Index,
	}, r.IdleTimeout)
	if errors.Is(err, ErrTransport) {
		return player.InitReply{Leave: true}, nil
	}
	if err != nil {
		return player.InitReply{}, err
	}

	return player.InitReply{Name: resp.Name, Leave: resp.Leave}, nil
}

func (r *RemotePlayer) forwardNames(c *Client, id uuid.UUID, names <-chan player.Named) {
	for n := range names {
		ctx, cancel := bound(context.Background(), r.CallTimeout)
		err := c.Notify(ctx, Message{Type: PlayerName, UUID: id, Index: n.Index, Name: n.Name})
		cancel()

		if err != nil {
			r.log().Debug("could not forward name", zap.Int("index", n.Index), zap.Error(err))
		}
	}
}

func (r *RemotePlayer) StartRound(ctx context.Context, start player.RoundStart) error {
	return r.ack(ctx, Message{Type: RoundStart, Cards: start.Cards})
}

func (r *RemotePlayer) ActivePlayer(ctx context.Context, index int) error {
	return r.ack(ctx, Message{Type: ActivePlayer, PlayerIndex: index})
}

func (r *RemotePlayer) SelectCards(ctx context.Context) (<-chan int, error) {
	c, err := r.session()
	if err != nil {
		return nil, err
	}

	streamCtx, cancel := context.WithCancel(ctx)

	msgs, err := c.Stream(streamCtx, Message{Type: SelectCards})
	if err != nil {
		cancel()
		return nil, err
	}

	out := make(chan int)

	go func() {
		defer close(out)
		defer cancel()

		var idle <-chan time.Time
		var timer *time.Timer
		if r.IdleTimeout > 0 {
			timer = time.NewTimer(r.IdleTimeout)
			defer timer.Stop()
			idle = timer.C
		}

		for {
			select {
			case msg, ok := <-msgs:
				if !ok {
					if ctx.Err() == nil {
						r.drop(SelectCards, ErrTransport)
					}
					return
				}
				if timer != nil {
					timer.Reset(r.IdleTimeout)
				}
				select {
				case out <- msg.Card:
				case <-ctx.Done():
					return
				}
			case <-idle:
				r.log().Info("peer idle during its turn", zap.Duration("timeout", r.IdleTimeout))
				_ = r.Close()
				return
			case <-ctx.Done():
				return
			}
		}
	}()

	return out, nil
}

func (r *RemotePlayer) CardRevealed(ctx context.Context, position int) error {
	return r.ack(ctx, Message{Type: CardRevealed, Card: position})
}

func (r *RemotePlayer) CardsHidden(ctx context.Context) error {
	return r.ack(ctx, Message{Type: CardsHidden})
}

func (r *RemotePlayer) CardsSolved(ctx context.Context, solved player.PairSolved) error {
	return r.ack(ctx, Message{Type: PairSolved, Pair: solved.Cards, SolvedBy: solved.SolvedBy})
}

func (r *RemotePlayer) EndRound(ctx context.Context, end player.RoundEnd) (bool, error) {
	resp, err := r.call(ctx, Message{Type: RoundEnd, Winner: end.Winner}, r.IdleTimeout)
	if err != nil {
		return false, err
	}
	return resp.NewRound, nil
}

func (r *RemotePlayer) PlayerLeft(ctx context.Context, index int) error {
	return r.ack(ctx, Message{Type: PlayerLeft, PlayerIndex: index})
}
