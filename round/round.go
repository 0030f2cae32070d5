/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

// Package round applies reveal events to a board and decides when a turn
// passes and when a round is over.
package round

import (
	"fmt"

	"github.com/Seednode/pairbox/board"
)

type Phase int

const (
	NoCardFlipped Phase = iota
	OneCardFlipped
	TurnResolving
	RoundOver
)

func (p Phase) String() string {
	switch p {
	case NoCardFlipped:
		return "no-card-flipped"
	case OneCardFlipped:
		return "one-card-flipped"
	case TurnResolving:
		return "turn-resolving"
	case RoundOver:
		return "round-over"
	default:
		return fmt.Sprintf("phase(%d)", int(p))
	}
}

type Outcome int

const (
	Ignored Outcome = iota
	FirstRevealed
	PairSolved
	Mismatch
	Completed
	Hidden
)

func (o Outcome) String() string {
	return [...]string{"ignored", "first-revealed", "pair-solved", "mismatch", "completed", "hidden"}[o]
}

// Event describes what a transition did to the board.
type Event struct {
	Outcome  Outcome
	Position int
	Pair     [2]int
	Solver   int
	Winner   int
	Decided  bool
	Hidden   []int
	Active   int
	Previous int
}

// Machine is the per-round turn state. It is not safe for concurrent use;
// the director owns it.
type Machine struct {
	board   *board.Board
	players int
	present func(int) bool

	phase  Phase
	first  int
	second int
	active int

	winner  int
	decided bool
}

// New starts a round on b with active holding the first turn. present
// reports whether a participant slot still takes turns; nil means all do.
func New(b *board.Board, players, active int, present func(int) bool) *Machine {
	if present == nil {
		present = func(int) bool { return true }
	}

	return &Machine{
		board:   b,
		players: players,
		present: present,
		phase:   NoCardFlipped,
		first:   -1,
		second:  -1,
		active:  active,
	}
}

func (m *Machine) Phase() Phase {
	return m.phase
}

func (m *Machine) Active() int {
	return m.active
}

func (m *Machine) Board() *board.Board {
	return m.board
}

// FirstPosition is the card flipped in OneCardFlipped, or -1.
func (m *Machine) FirstPosition() int {
	return m.first
}

// Result reports the round winner once the phase is RoundOver.
func (m *Machine) Result() (winner int, decided bool) {
	return m.winner, m.decided
}

// Reveal applies the active participant's selection of pos. A selection
// of a card that is not hidden, or one arriving while no reveal is
// expected, is ignored and reported with board.ErrInvalidMove.
func (m *Machine) Reveal(pos int) (Event, error) {
	ignored := Event{Outcome: Ignored, Position: pos, Active: m.active}

	switch m.phase {
	case NoCardFlipped, OneCardFlipped:
	default:
		return ignored, fmt.Errorf("%w: reveal during %s", board.ErrInvalidMove, m.phase)
	}

	if err := m.board.Reveal(pos); err != nil {
		return ignored, err
	}

	if m.phase == NoCardFlipped {
		m.phase = OneCardFlipped
		m.first = pos

		return Event{Outcome: FirstRevealed, Position: pos, Active: m.active}, nil
	}

	first := m.first
	pair := [2]int{first, pos}

	if m.board.Card(first).Picture != m.board.Card(pos).Picture {
		m.phase = TurnResolving
		m.second = pos

		return Event{Outcome: Mismatch, Position: pos, Pair: pair, Active: m.active}, nil
	}

	if err := m.board.ResolvePair(first, pos, m.active); err != nil {
		return ignored, err
	}
	m.first = -1

	ev := Event{Outcome: PairSolved, Position: pos, Pair: pair, Solver: m.active, Active: m.active}

	if !m.board.IsComplete() {
		m.phase = NoCardFlipped
		return ev, nil
	}

	m.phase = RoundOver
	m.winner, m.decided = Winner(m.board.Points(m.players))
	ev.Outcome = Completed
	ev.Winner, ev.Decided = m.winner, m.decided

	return ev, nil
}

// Settle finishes a mismatched turn: both cards go face down and the
// turn passes to the next present participant.
func (m *Machine) Settle() (Event, error) {
	if m.phase != TurnResolving {
		return Event{Outcome: Ignored, Active: m.active}, fmt.Errorf("%w: settle during %s", board.ErrInvalidMove, m.phase)
	}

	return m.pass(), nil
}

// Forfeit ends the active participant's turn early, typically because it
// departed. Any revealed cards are hidden again.
func (m *Machine) Forfeit() Event {
	if m.phase == RoundOver {
		return Event{Outcome: Ignored, Active: m.active}
	}

	return m.pass()
}

func (m *Machine) pass() Event {
	previous := m.active
	hidden := m.board.HideAll()

	m.phase = NoCardFlipped
	m.first, m.second = -1, -1
	m.active = Next(previous, m.players, m.present)

	return Event{Outcome: Hidden, Hidden: hidden, Active: m.active, Previous: previous}
}

// Next returns the first present slot after from, wrapping around. If no
// other slot is present, from is returned.
func Next(from, players int, present func(int) bool) int {
	for i := 1; i <= players; i++ {
		next := (from + i) % players
		if present == nil || present(next) {
			return next
		}
	}
	return from
}

// Winner picks the participant with the strictly highest score. A shared
// maximum is a draw.
func Winner(points []int) (int, bool) {
	best, winner, tied := -1, -1, false
	for i, p := range points {
		switch {
		case p > best:
			best, winner, tied = p, i, false
		case p == best:
			tied = true
		}
	}
	if winner < 0 || tied {
		return 0, false
	}
	return winner, true
}
