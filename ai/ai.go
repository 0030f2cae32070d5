/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

// Package ai implements a computer participant that remembers the cards
// it has seen, and forgets some of them depending on difficulty.
package ai

import (
	"context"
	"fmt"
	"maps"
	"math/rand/v2"
	"slices"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/Seednode/pairbox/board"
	"github.com/Seednode/pairbox/player"
)

const (
	DefaultThinkDelay = 500 * time.Millisecond

	// retry re-guesses when no news arrived for a while.
	retry = 2 * time.Second
)

// Names are picked from at random when joining a match.
var Names = []string{"K9-Byte", "C3-Pee-O", "Donnie Barko"}

type Difficulty int

const (
	Easy Difficulty = iota
	Normal
	Hard
)

func (d Difficulty) String() string {
	switch d {
	case Easy:
		return "easy"
	case Normal:
		return "normal"
	case Hard:
		return "hard"
	default:
		return fmt.Sprintf("difficulty(%d)", int(d))
	}
}

// Forgetfulness is the chance of losing each remembered card after every
// guess.
func (d Difficulty) Forgetfulness() float64 {
	switch d {
	case Easy:
		return 0.3
	case Normal:
		return 0.1
	default:
		return 0
	}
}

func ParseDifficulty(s string) (Difficulty, error) {
	switch strings.ToLower(s) {
	case "easy":
		return Easy, nil
	case "normal":
		return Normal, nil
	case "hard":
		return Hard, nil
	default:
		return 0, fmt.Errorf("unknown difficulty %q (want easy, normal or hard)", s)
	}
}

type Options struct {
	Difficulty Difficulty
	ThinkDelay time.Duration
	Rand       *rand.Rand
	Logger     *zap.Logger
}

type memo struct {
	picture string
	partner int
}

type Player struct {
	difficulty Difficulty
	thinkDelay time.Duration
	log        *zap.Logger

	mu       sync.Mutex
	rng      *rand.Rand
	pictures []string
	states   []board.State
	memory   map[int]*memo

	news chan struct{}
}

var _ player.Player = (*Player)(nil)

func New(opts Options) *Player {
	rng := opts.Rand
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}

	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}

	return &Player{
		difficulty: opts.Difficulty,
		thinkDelay: opts.ThinkDelay,
		log:        log,
		rng:        rng,
		memory:     make(map[int]*memo),
		news:       make(chan struct{}, 1),
	}
}

func (p *Player) notify() {
	select {
	case p.news <- struct{}{}:
	default:
	}
}

func (p *Player) Init(ctx context.Context, init player.GameInit) (player.InitReply, error) {
	if init.Names != nil {
		go func() {
			for range init.Names {
			}
		}()
	}

	p.mu.Lock()
	name := Names[p.rng.IntN(len(Names))]
	p.log = p.log.With(zap.String("bot", name))
	p.mu.Unlock()

	return player.InitReply{Name: name}, nil
}

func (p *Player) StartRound(ctx context.Context, start player.RoundStart) error {
	b, err := board.FromLayout(start.Cards)
	if err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	p.pictures = make([]string, b.Len())
	p.states = make([]board.State, b.Len())
	for pos := range p.pictures {
		p.pictures[pos] = b.Card(pos).Picture
	}
	p.memory = make(map[int]*memo)

	return nil
}

func (p *Player) ActivePlayer(ctx context.Context, index int) error {
	return nil
}

func (p *Player) valid(pos int) bool {
	return pos >= 0 && pos < len(p.states)
}

// remember records what pos shows and links it to a known card with the
// same picture.
func (p *Player) remember(pos int) {
	m, ok := p.memory[pos]
	if !ok {
		m = &memo{picture: p.pictures[pos], partner: -1}
		p.memory[pos] = m
	}
	if m.partner >= 0 {
		return
	}

	for other, o := range p.memory {
		if other != pos && o.picture == m.picture {
			m.partner = other
			o.partner = pos
			return
		}
	}
}

func (p *Player) CardRevealed(ctx context.Context, position int) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.valid(position) {
		return nil
	}

	already := 0
	for _, s := range p.states {
		if s == board.Revealed {
			already++
		}
	}

	p.states[position] = board.Revealed
	p.remember(position)

	if already == 0 {
		p.notify()
	}

	return nil
}

func (p *Player) CardsHidden(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	for pos, s := range p.states {
		if s == board.Revealed {
			p.states[pos] = board.Hidden
		}
	}
	p.notify()

	return nil
}

func (p *Player) CardsSolved(ctx context.Context, solved player.PairSolved) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	for _, pos := range solved.Cards {
		if p.valid(pos) {
			p.states[pos] = board.Solved
			delete(p.memory, pos)
		}
	}
	p.notify()

	return nil
}

func (p *Player) EndRound(ctx context.Context, end player.RoundEnd) (bool, error) {
	return true, nil
}

func (p *Player) PlayerLeft(ctx context.Context, index int) error {
	return nil
}

// guess picks the next card: the partner of the revealed card if known,
// else one card of a known pair, else an unseen card, else any hidden one.
func (p *Player) guess() int {
	revealed := slices.Index(p.states, board.Revealed)

	known := slices.Sorted(maps.Keys(p.memory))

	if revealed >= 0 {
		if m, ok := p.memory[revealed]; ok && m.partner >= 0 && p.states[m.partner] == board.Hidden {
			return m.partner
		}
	} else {
		for _, pos := range known {
			if p.memory[pos].partner >= 0 && p.states[pos] == board.Hidden {
				return pos
			}
		}
	}

	var unseen []int
	for pos, s := range p.states {
		if s == board.Hidden && !slices.Contains(known, pos) {
			unseen = append(unseen, pos)
		}
	}
	if len(unseen) > 0 {
		return unseen[p.rng.IntN(len(unseen))]
	}

	return slices.Index(p.states, board.Hidden)
}

func (p *Player) forget() {
	f := p.difficulty.Forgetfulness()
	if f <= 0 {
		return
	}

	for _, pos := range slices.Sorted(maps.Keys(p.memory)) {
		m, ok := p.memory[pos]
		if !ok || p.rng.Float64() >= f {
			continue
		}

		if partner, ok := p.memory[m.partner]; ok {
			partner.partner = -1
		}
		delete(p.memory, pos)
	}
}

func (p *Player) next() int {
	p.mu.Lock()
	defer p.mu.Unlock()

	pos := p.guess()
	p.forget()

	return pos
}

func (p *Player) wait(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return true
	case <-ctx.Done():
		return false
	}
}

func (p *Player) SelectCards(ctx context.Context) (<-chan int, error) {
	select {
	case <-p.news:
	default:
	}

	out := make(chan int)

	go func() {
		defer close(out)

		for {
			pos := p.next()

			if !p.wait(ctx, p.thinkDelay) {
				return
			}

			if pos >= 0 {
				p.log.Debug("selecting", zap.Int("card", pos))

				select {
				case out <- pos:
				case <-ctx.Done():
					return
				}
			}

			timer := time.NewTimer(retry)
			select {
			case <-p.news:
			case <-timer.C:
			case <-ctx.Done():
				timer.Stop()
				return
			}
			timer.Stop()
		}
	}()

	return out, nil
}
