/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package rpc

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Seednode/pairbox/player"
)

// feedSize caps the names queued for one init. Extra names are dropped.
const feedSize = 64

type feed struct {
	names    chan player.Named
	expected int
	received int
	closed   bool
}

// Responder is the answering side of a channel: it decodes requests,
// hands them to a local participant and sends the answers back.
type Responder struct {
	ch    Channel
	local player.Player
	log   *zap.Logger

	mu      sync.Mutex
	streams map[uuid.UUID]context.CancelFunc
	feeds   map[uuid.UUID]*feed
	wg      sync.WaitGroup

	closeOnce sync.Once
}

func NewResponder(ch Channel, local player.Player, log *zap.Logger) *Responder {
	if log == nil {
		log = zap.NewNop()
	}

	return &Responder{
		ch:      ch,
		local:   local,
		log:     log,
		streams: make(map[uuid.UUID]context.CancelFunc),
		feeds:   make(map[uuid.UUID]*feed),
	}
}

// Serve answers requests until the channel closes or ctx ends. A channel
// closed by the peer is a normal end and returns nil.
func (r *Responder) Serve(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer func() {
		cancel()
		r.wg.Wait()
		r.closeFeeds()
	}()

	for {
		select {
		case <-ctx.Done():
			r.hangUp()
			return ctx.Err()
		case data, ok := <-r.ch.Messages():
			if !ok {
				return nil
			}

			var msg Message
			if err := json.Unmarshal(data, &msg); err != nil {
				r.log.Warn("dropping undecodable message", zap.Error(err))
				continue
			}

			r.dispatch(ctx, msg)
		}
	}
}

func (r *Responder) hangUp() {
	r.closeOnce.Do(func() {
		if err := r.ch.Close(); err != nil {
			r.log.Debug("closing channel", zap.Error(err))
		}
	})
}

// depart is called when the local participant failed a call. Closing the
// channel is how the host learns about it.
func (r *Responder) depart(call Type, err error) {
	r.log.Info("local participant departed", zap.String("call", string(call)), zap.Error(err))
	r.hangUp()
}

func (r *Responder) reply(ctx context.Context, msg Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		r.log.Error("encoding reply", zap.Error(err))
		return
	}

	if err := r.ch.Send(ctx, data); err != nil {
		r.log.Debug("sending reply", zap.String("type", string(msg.Type)), zap.Error(err))
	}
}

func (r *Responder) handle(ctx context.Context, fn func(ctx context.Context)) {
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		fn(ctx)
	}()
}

func (r *Responder) dispatch(ctx context.Context, msg Message) {
	r.log.Debug("request", zap.String("type", string(msg.Type)), zap.Stringer("uuid", msg.UUID))

	switch msg.Type {
	case GameInit:
		names := r.feedFor(msg.UUID, msg.NumPlayers)
		r.handle(ctx, func(ctx context.Context) { r.init(ctx, msg, names) })

	case PlayerName:
		r.pushName(msg.UUID, player.Named{Index: msg.Index, Name: msg.Name})

	case SelectCards:
		streamCtx, cancel := context.WithCancel(ctx)
		r.mu.Lock()
		r.streams[msg.UUID] = cancel
		r.mu.Unlock()
		r.handle(streamCtx, func(ctx context.Context) { r.selectCards(ctx, msg) })

	case EndSelectCards:
		r.mu.Lock()
		cancel := r.streams[msg.UUID]
		delete(r.streams, msg.UUID)
		r.mu.Unlock()
		if cancel != nil {
			cancel()
		}

	case RoundEnd:
		r.handle(ctx, func(ctx context.Context) {
			again, err := r.local.EndRound(ctx, player.RoundEnd{Winner: msg.Winner})
			if err != nil {
				r.depart(msg.Type, err)
				return
			}
			r.reply(ctx, Message{Type: NewRound, UUID: msg.UUID, NewRound: again})
		})

	case RoundStart, ActivePlayer, CardRevealed, CardsHidden, PairSolved, PlayerLeft:
		r.handle(ctx, func(ctx context.Context) {
			if err := r.acknowledge(ctx, msg); err != nil {
				r.depart(msg.Type, err)
				return
			}
			r.reply(ctx, Message{Type: Ack, UUID: msg.UUID})
		})

	default:
		r.log.Warn("unknown request", zap.String("type", string(msg.Type)))
	}
}

func (r *Responder) acknowledge(ctx context.Context, msg Message) error {
	switch msg.Type {
	case RoundStart:
		return r.local.StartRound(ctx, player.RoundStart{Cards: msg.Cards})
	case ActivePlayer:
		return r.local.ActivePlayer(ctx, msg.PlayerIndex)
	case CardRevealed:
		return r.local.CardRevealed(ctx, msg.Card)
	case CardsHidden:
		return r.local.CardsHidden(ctx)
	case PairSolved:
		return r.local.CardsSolved(ctx, player.PairSolved{Cards: msg.Pair, SolvedBy: msg.SolvedBy})
	default:
		return r.local.PlayerLeft(ctx, msg.PlayerIndex)
	}
}

func (r *Responder) init(ctx context.Context, msg Message, names <-chan player.Named) {
	reply, err := r.local.Init(ctx, player.GameInit{
		Code:       msg.GameCode,
		NumPlayers: msg.NumPlayers,
		Index:      msg.PlayerIndex,
		Names:      names,
	})
	if err != nil {
		r.log.Info("local participant failed to join", zap.Error(err))
		reply = player.InitReply{Leave: true}
	}

	r.reply(ctx, Message{Type: Name, UUID: msg.UUID, Name: reply.Name, Leave: reply.Leave})
}

func (r *Responder) selectCards(ctx context.Context, msg Message) {
	defer func() {
		r.mu.Lock()
		delete(r.streams, msg.UUID)
		r.mu.Unlock()
	}()

	selections, err := r.local.SelectCards(ctx)
	if err != nil {
		r.depart(msg.Type, err)
		return
	}

	for pos := range selections {
		r.reply(ctx, Message{Type: CardSelected, UUID: msg.UUID, Card: pos})
	}

	if ctx.Err() == nil {
		r.depart(msg.Type, player.ErrDeparted)
	}
}

func (r *Responder) feedFor(id uuid.UUID, expected int) <-chan player.Named {
	r.mu.Lock()
	defer r.mu.Unlock()

	f := r.feeds[id]
	if f == nil {
		f = &feed{names: make(chan player.Named, feedSize)}
		r.feeds[id] = f
	}
	f.expected = expected
	r.maybeClose(f)

	return f.names
}

func (r *Responder) pushName(id uuid.UUID, n player.Named) {
	r.mu.Lock()
	defer r.mu.Unlock()

	f := r.feeds[id]
	if f == nil {
		f = &feed{names: make(chan player.Named, feedSize)}
		r.feeds[id] = f
	}
	if f.closed {
		return
	}

	select {
	case f.names <- n:
		f.received++
	default:
		r.log.Warn("names feed full", zap.Int("index", n.Index))
	}
	r.maybeClose(f)
}

// maybeClose closes a feed once every participant's name arrived. Callers
// hold r.mu.
func (r *Responder) maybeClose(f *feed) {
	if !f.closed && f.expected > 0 && f.received >= f.expected {
		close(f.names)
		f.closed = true
	}
}

func (r *Responder) closeFeeds() {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, f := range r.feeds {
		if !f.closed {
			close(f.names)
			f.closed = true
		}
	}
}
