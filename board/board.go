/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

// Package board holds the deck of a pairs round: which picture sits at
// which position, and whether each card is hidden, revealed or solved.
package board

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidMove = errors.New("invalid move")
	ErrInvalidDeal = errors.New("invalid deal")
)

type State int

const (
	Hidden State = iota
	Revealed
	Solved
)

func (s State) String() string {
	switch s {
	case Hidden:
		return "hidden"
	case Revealed:
		return "revealed"
	case Solved:
		return "solved"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Card is a single position on the board. solvedBy is only meaningful
// while State is Solved.
type Card struct {
	Picture string
	State   State

	solvedBy int
}

// SolvedBy reports the participant that solved the card, if any.
func (c Card) SolvedBy() (int, bool) {
	if c.State != Solved {
		return 0, false
	}
	return c.solvedBy, true
}

// Location is the dealt form of one picture: the picture reference and
// the two positions it occupies.
type Location struct {
	Picture   string `json:"url"`
	Positions [2]int `json:"indices"`
}

type Board struct {
	cards  []Card
	layout []Location
}

// Deal places picture i on permutation[2i] and permutation[2i+1].
// The permutation must cover every position 0..2*len(pictures)-1 once.
func Deal(pictures []string, permutation []int) (*Board, error) {
	if len(pictures) == 0 {
		return nil, fmt.Errorf("%w: no pictures", ErrInvalidDeal)
	}
	if len(permutation) != 2*len(pictures) {
		return nil, fmt.Errorf("%w: permutation has %d positions, want %d", ErrInvalidDeal, len(permutation), 2*len(pictures))
	}

	locations := make([]Location, len(pictures))
	for i, picture := range pictures {
		locations[i] = Location{
			Picture:   picture,
			Positions: [2]int{permutation[2*i], permutation[2*i+1]},
		}
	}

	return FromLayout(locations)
}

// FromLayout rebuilds a freshly dealt board from its locations.
func FromLayout(locations []Location) (*Board, error) {
	size := 2 * len(locations)
	if size == 0 {
		return nil, fmt.Errorf("%w: empty layout", ErrInvalidDeal)
	}

	cards := make([]Card, size)
	seen := make([]bool, size)
	dealt := make(map[string]bool, len(locations))
	for _, loc := range locations {
		if dealt[loc.Picture] {
			return nil, fmt.Errorf("%w: picture %q dealt twice", ErrInvalidDeal, loc.Picture)
		}
		dealt[loc.Picture] = true

		for _, pos := range loc.Positions {
			if pos < 0 || pos >= size || seen[pos] {
				return nil, fmt.Errorf("%w: position %d", ErrInvalidDeal, pos)
			}
			seen[pos] = true
			cards[pos] = Card{Picture: loc.Picture, State: Hidden}
		}
	}

	return &Board{
		cards:  cards,
		layout: append([]Location(nil), locations...),
	}, nil
}

func (b *Board) Len() int {
	return len(b.cards)
}

func (b *Board) Card(pos int) Card {
	return b.cards[pos]
}

func (b *Board) valid(pos int) bool {
	return pos >= 0 && pos < len(b.cards)
}

// IsHidden reports whether pos is on the board and face down.
func (b *Board) IsHidden(pos int) bool {
	return b.valid(pos) && b.cards[pos].State == Hidden
}

// Revealed returns the positions currently face up and unsolved.
func (b *Board) Revealed() []int {
	var out []int
	for i, c := range b.cards {
		if c.State == Revealed {
			out = append(out, i)
		}
	}
	return out
}

func (b *Board) Reveal(pos int) error {
	if !b.IsHidden(pos) {
		return fmt.Errorf("%w: card %d is not hidden", ErrInvalidMove, pos)
	}
	if len(b.Revealed()) >= 2 {
		return fmt.Errorf("%w: two cards already revealed", ErrInvalidMove)
	}

	b.cards[pos].State = Revealed

	return nil
}

// ResolvePair marks two revealed cards showing the same picture as
// solved by solver.
func (b *Board) ResolvePair(first, second, solver int) error {
	if first == second || !b.valid(first) || !b.valid(second) {
		return fmt.Errorf("%w: positions %d and %d", ErrInvalidMove, first, second)
	}

	a, c := &b.cards[first], &b.cards[second]
	if a.State != Revealed || c.State != Revealed {
		return fmt.Errorf("%w: pair %d/%d is not revealed", ErrInvalidMove, first, second)
	}
	if a.Picture != c.Picture {
		return fmt.Errorf("%w: pair %d/%d does not match", ErrInvalidMove, first, second)
	}

	a.State, a.solvedBy = Solved, solver
	c.State, c.solvedBy = Solved, solver

	return nil
}

// HideAll turns every revealed card face down again and returns the
// positions it touched.
func (b *Board) HideAll() []int {
	var hidden []int
	for i := range b.cards {
		if b.cards[i].State == Revealed {
			b.cards[i].State = Hidden
			hidden = append(hidden, i)
		}
	}
	return hidden
}

func (b *Board) IsComplete() bool {
	for _, c := range b.cards {
		if c.State != Solved {
			return false
		}
	}
	return true
}

// Points counts solved cards per participant slot. Slots at or beyond
// participants are ignored, so the result always has the given length.
func (b *Board) Points(participants int) []int {
	points := make([]int, participants)
	for _, c := range b.cards {
		if solver, ok := c.SolvedBy(); ok && solver >= 0 && solver < participants {
			points[solver]++
		}
	}
	return points
}

// Layout returns the locations the board was dealt from.
func (b *Board) Layout() []Location {
	return append([]Location(nil), b.layout...)
}
