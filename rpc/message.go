/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

// Package rpc lets the director drive a participant on the far side of a
// duplex channel as if it were local. Requests and responses are matched
// by a uuid carried in every message.
package rpc

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/Seednode/pairbox/board"
	"github.com/Seednode/pairbox/player"
)

var (
	// ErrTransport means the channel to the peer is gone.
	ErrTransport = fmt.Errorf("%w: channel failed", player.ErrDeparted)

	// ErrProtocolMismatch means the peer answered with the wrong tag.
	ErrProtocolMismatch = fmt.Errorf("%w: protocol mismatch", player.ErrDeparted)
)

// Channel is a reliable, ordered, message-oriented link to one peer.
// Messages is closed once the peer goes away.
type Channel interface {
	Send(ctx context.Context, data []byte) error
	Messages() <-chan []byte
	Close() error
}

type Type string

const (
	GameInit     Type = "GAME_INIT"
	RoundStart   Type = "ROUND_START"
	ActivePlayer Type = "ACTIVE_PLAYER"
	SelectCards  Type = "SELECT_CARDS"
	CardRevealed Type = "CARD_REVEALED"
	CardsHidden  Type = "CARDS_HIDDEN"
	PairSolved   Type = "PAIR_SOLVED"
	RoundEnd     Type = "ROUND_END"
	PlayerLeft   Type = "PLAYER_LEFT"

	Name         Type = "NAME"
	Ack          Type = "ACK"
	CardSelected Type = "CARD_SELECTED"
	NewRound     Type = "NEW_ROUND"

	EndSelectCards Type = "END_SELECT_CARDS"
	PlayerName     Type = "PLAYER_NAME"
)

var responseTo = map[Type]Type{
	GameInit:     Name,
	RoundStart:   Ack,
	ActivePlayer: Ack,
	SelectCards:  CardSelected,
	CardRevealed: Ack,
	CardsHidden:  Ack,
	PairSolved:   Ack,
	RoundEnd:     NewRound,
	PlayerLeft:   Ack,
}

// ResponseTo returns the tag a peer must answer a request with.
func ResponseTo(t Type) (Type, bool) {
	r, ok := responseTo[t]
	return r, ok
}

// Message is the single flat envelope used for every tag. Fields a tag
// does not use are left at their zero value.
type Message struct {
	Type Type      `json:"type"`
	UUID uuid.UUID `json:"uuid"`

	GameCode    string           `json:"gameCode,omitempty"`
	NumPlayers  int              `json:"numPlayers,omitempty"`
	PlayerIndex int              `json:"playerIndex"`
	Index       int              `json:"index"`
	Name        string           `json:"name,omitempty"`
	Leave       bool             `json:"leave,omitempty"`
	Cards       []board.Location `json:"cards,omitempty"`
	Card        int              `json:"card"`
	Pair        [2]int           `json:"pair"`
	SolvedBy    int              `json:"solvedBy"`
	Winner      *player.Named    `json:"winner,omitempty"`
	NewRound    bool             `json:"newRound,omitempty"`
}
