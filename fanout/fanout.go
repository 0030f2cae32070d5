/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

// Package fanout calls every present participant of a match at once and
// gathers one answer from each.
package fanout

import (
	"context"
	"sync"

	"github.com/Seednode/pairbox/player"
	"github.com/Seednode/pairbox/round"
)

// Roster is the fixed list of seats in a match. Seats never move; a
// departed seat simply stops being called.
type Roster struct {
	mu       sync.RWMutex
	players  []player.Player
	departed []bool
}

func NewRoster(players ...player.Player) *Roster {
	return &Roster{
		players:  players,
		departed: make([]bool, len(players)),
	}
}

// Size is the number of seats, departed or not.
func (r *Roster) Size() int {
	return len(r.players)
}

func (r *Roster) Player(index int) player.Player {
	return r.players[index]
}

func (r *Roster) IsPresent(index int) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return index >= 0 && index < len(r.players) && !r.departed[index]
}

// Present lists the seats still in the match, in seat order.
func (r *Roster) Present() []int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]int, 0, len(r.players))
	for i, gone := range r.departed {
		if !gone {
			out = append(out, i)
		}
	}
	return out
}

func (r *Roster) Count() int {
	return len(r.Present())
}

// Depart marks a seat as gone. It reports whether this call changed it.
func (r *Roster) Depart(index int) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if index < 0 || index >= len(r.players) || r.departed[index] {
		return false
	}
	r.departed[index] = true

	return true
}

// Next returns the first present seat after from.
func (r *Roster) Next(from int) int {
	return round.Next(from, r.Size(), r.IsPresent)
}

// Response is one participant's answer to a broadcast.
type Response[T any] struct {
	Index int
	Value T
	Err   error
}

// Call is invoked once per present seat. The index lets the caller tailor
// the payload to that seat.
type Call[T any] func(ctx context.Context, index int, p player.Player) (T, error)

// Broadcast calls every present seat concurrently and streams back one
// response per seat, in completion order. The stream is closed once all
// of them answered. Seats whose call failed are marked departed before
// their response is delivered.
func Broadcast[T any](ctx context.Context, r *Roster, call Call[T]) <-chan Response[T] {
	seats := r.Present()
	out := make(chan Response[T], len(seats))

	var wg sync.WaitGroup
	for _, index := range seats {
		wg.Add(1)
		go func(index int) {
			defer wg.Done()

			value, err := call(ctx, index, r.Player(index))
			if err != nil {
				r.Depart(index)
			}
			out <- Response[T]{Index: index, Value: value, Err: err}
		}(index)
	}

	go func() {
		wg.Wait()
		close(out)
	}()

	return out
}

// Collect drains a broadcast.
func Collect[T any](responses <-chan Response[T]) []Response[T] {
	var out []Response[T]
	for resp := range responses {
		out = append(out, resp)
	}
	return out
}

// Departed returns the seats whose call failed.
func Departed[T any](responses []Response[T]) []int {
	var out []int
	for _, resp := range responses {
		if resp.Err != nil {
			out = append(out, resp.Index)
		}
	}
	return out
}

// Ack wraps a call without a result for use with Broadcast.
func Ack(call func(ctx context.Context, index int, p player.Player) error) Call[struct{}] {
	return func(ctx context.Context, index int, p player.Player) (struct{}, error) {
		return struct{}{}, call(ctx, index, p)
	}
}
