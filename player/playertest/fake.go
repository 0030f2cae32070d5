/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

// Package playertest provides a scriptable player.Player for tests.
package playertest

import (
	"context"
	"sync"

	"github.com/Seednode/pairbox/player"
)

// Fake records every call it receives. Hooks left nil answer with an ack,
// the fake's Name, and a yes vote for the next round.
type Fake struct {
	Name string

	OnInit       func(ctx context.Context, init player.GameInit) (player.InitReply, error)
	OnStartRound func(ctx context.Context, start player.RoundStart) error
	OnSelect     func(ctx context.Context) (<-chan int, error)
	OnEndRound   func(ctx context.Context, end player.RoundEnd) (bool, error)
	OnAck        func(call string) error

	mu    sync.Mutex
	calls []string
	names []player.Named
	ends  []player.RoundEnd
}

var _ player.Player = (*Fake)(nil)

func (f *Fake) record(call string) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls = append(f.calls, call)
}

// Calls returns the calls seen so far, in order.
func (f *Fake) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()

	return append([]string(nil), f.calls...)
}

// Names returns what arrived on the names feed of Init.
func (f *Fake) Names() []player.Named {
	f.mu.Lock()
	defer f.mu.Unlock()

	return append([]player.Named(nil), f.names...)
}

// Ends returns every RoundEnd received.
func (f *Fake) Ends() []player.RoundEnd {
	f.mu.Lock()
	defer f.mu.Unlock()

	return append([]player.RoundEnd(nil), f.ends...)
}

func (f *Fake) ack(call string) error {
	f.record(call)
	if f.OnAck != nil {
		return f.OnAck(call)
	}
	return nil
}

func (f *Fake) Init(ctx context.Context, init player.GameInit) (player.InitReply, error) {
	f.record("init")

	if init.Names != nil {
		go func() {
			for n := range init.Names {
				f.mu.Lock()
				f.names = append(f.names, n)
				f.mu.Unlock()
			}
		}()
	}

	if f.OnInit != nil {
		return f.OnInit(ctx, init)
	}
	return player.InitReply{Name: f.Name}, nil
}

func (f *Fake) StartRound(ctx context.Context, start player.RoundStart) error {
	f.record("startRound")
	if f.OnStartRound != nil {
		return f.OnStartRound(ctx, start)
	}
	return nil
}

func (f *Fake) ActivePlayer(ctx context.Context, index int) error {
	return f.ack("activePlayer")
}

func (f *Fake) SelectCards(ctx context.Context) (<-chan int, error) {
	f.record("selectCards")
	if f.OnSelect != nil {
		return f.OnSelect(ctx)
	}

	ch := make(chan int)
	go func() {
		<-ctx.Done()
		close(ch)
	}()
	return ch, nil
}

func (f *Fake) CardRevealed(ctx context.Context, position int) error {
	return f.ack("cardRevealed")
}

func (f *Fake) CardsHidden(ctx context.Context) error {
	return f.ack("cardsHidden")
}

func (f *Fake) CardsSolved(ctx context.Context, solved player.PairSolved) error {
	return f.ack("cardsSolved")
}

func (f *Fake) EndRound(ctx context.Context, end player.RoundEnd) (bool, error) {
	f.record("endRound")

	f.mu.Lock()
	f.ends = append(f.ends, end)
	f.mu.Unlock()

	if f.OnEndRound != nil {
		return f.OnEndRound(ctx, end)
	}
	return true, nil
}

func (f *Fake) PlayerLeft(ctx context.Context, index int) error {
	return f.ack("playerLeft")
}

// Script returns an OnSelect hook that plays the given positions in
// order, one per stream, across successive turns of this participant.
// Each turn's stream yields positions until the turn context ends.
func Script(turns ...[]int) func(ctx context.Context) (<-chan int, error) {
	var mu sync.Mutex
	next := 0

	return func(ctx context.Context) (<-chan int, error) {
		mu.Lock()
		var picks []int
		if next < len(turns) {
			picks = turns[next]
		}
		next++
		mu.Unlock()

		ch := make(chan int)
		go func() {
			defer close(ch)
			for _, pos := range picks {
				select {
				case ch <- pos:
				case <-ctx.Done():
					return
				}
			}
			<-ctx.Done()
		}()
		return ch, nil
	}
}
