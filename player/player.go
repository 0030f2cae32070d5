/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

// Package player defines the contract every participant of a match
// answers, whether it is a person at this terminal, a bot, or a peer on
// the other end of a network channel.
package player

import (
	"context"
	"errors"

	"github.com/Seednode/pairbox/board"
)

// ErrDeparted is the root of every error meaning a participant is gone:
// it left on purpose, its channel broke, or it stopped making sense.
var ErrDeparted = errors.New("participant departed")

// Named pairs a seat with the name its participant chose.
type Named struct {
	Index int    `json:"index"`
	Name  string `json:"name"`
}

// GameInit is sent once per match. Names delivers every participant's
// name as it becomes known, including the receiver's own, and is closed
// when the lobby is complete.
type GameInit struct {
	Code       string
	NumPlayers int
	Index      int
	Names      <-chan Named
}

// InitReply is either a chosen name or a request to leave.
type InitReply struct {
	Name  string
	Leave bool
}

type RoundStart struct {
	Cards []board.Location
}

type PairSolved struct {
	Cards    [2]int
	SolvedBy int
}

// RoundEnd carries the round winner; nil means a draw.
type RoundEnd struct {
	Winner *Named
}

// Player is implemented by every participant kind. Each call answers
// once; a nil error acknowledges it and any error means the participant
// departed.
//
// SelectCards returns a stream of card positions picked by the
// participant. The stream stays open until ctx is cancelled and is closed
// afterwards; a stream closing while ctx is still live means the
// participant is gone.
type Player interface {
	Init(ctx context.Context, init GameInit) (InitReply, error)
	StartRound(ctx context.Context, start RoundStart) error
	ActivePlayer(ctx context.Context, index int) error
	SelectCards(ctx context.Context) (<-chan int, error)
	CardRevealed(ctx context.Context, position int) error
	CardsHidden(ctx context.Context) error
	CardsSolved(ctx context.Context, solved PairSolved) error
	EndRound(ctx context.Context, end RoundEnd) (newRound bool, err error)
	PlayerLeft(ctx context.Context, index int) error
}
