/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

// Package director runs a pairs match from the lobby to the last round,
// talking to every participant only through the player contract.
package director

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/Seednode/pairbox/board"
	"github.com/Seednode/pairbox/fanout"
	"github.com/Seednode/pairbox/pictures"
	"github.com/Seednode/pairbox/player"
	"github.com/Seednode/pairbox/round"
)

const (
	DefaultPictures    = 8
	DefaultSettleDelay = 1500 * time.Millisecond
)

var (
	ErrMatchAborted   = errors.New("match aborted")
	ErrNoParticipants = errors.New("no participants")
)

type Phase int

const (
	Lobby Phase = iota
	RoundSetup
	TurnLoop
	RoundEnd
	Ended
)

func (p Phase) String() string {
	switch p {
	case Lobby:
		return "lobby"
	case RoundSetup:
		return "round-setup"
	case TurnLoop:
		return "turn-loop"
	case RoundEnd:
		return "round-end"
	case Ended:
		return "ended"
	default:
		return fmt.Sprintf("phase(%d)", int(p))
	}
}

// Options configures a Director. Zero values fall back to the defaults
// above, animal pictures and math/rand, except SettleDelay where zero
// means no pause.
type Options struct {
	Code        string
	Pictures    int
	SettleDelay time.Duration
	Source      pictures.Source
	Shuffle     func(n int) []int
	Pick        func(n int) int
	Logger      *zap.Logger
}

// Match is a snapshot of the match state, for observers.
type Match struct {
	Code   string
	Phase  Phase
	Names  []string
	Active int
	First  int
	Round  int
	// Points is the current round's score. Totals adds up every round.
	Points []int
	Totals []int
}

type Director struct {
	roster     *fanout.Roster
	opts       Options
	log        *zap.Logger
	minPresent int

	mu    sync.Mutex
	match Match
}

func New(roster *fanout.Roster, opts Options) *Director {
	if opts.Pictures <= 0 {
		opts.Pictures = DefaultPictures
	}
	if opts.SettleDelay < 0 {
		opts.SettleDelay = 0
	}
	if opts.Source == nil {
		opts.Source = pictures.Animals{}
	}
	if opts.Shuffle == nil {
		opts.Shuffle = rand.Perm
	}
	if opts.Pick == nil {
		opts.Pick = rand.IntN
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	return &Director{
		roster:     roster,
		opts:       opts,
		log:        opts.Logger.With(zap.String("code", opts.Code)),
		minPresent: min(2, roster.Size()),
		match: Match{
			Code:   opts.Code,
			Names:  make([]string, roster.Size()),
			Active: -1,
			First:  -1,
			Points: make([]int, roster.Size()),
			Totals: make([]int, roster.Size()),
		},
	}
}

// Match returns a copy of the current match state.
func (d *Director) Match() Match {
	d.mu.Lock()
	defer d.mu.Unlock()

	m := d.match
	m.Names = append([]string(nil), d.match.Names...)
	m.Points = append([]int(nil), d.match.Points...)
	m.Totals = append([]int(nil), d.match.Totals...)
	return m
}

func (d *Director) update(fn func(m *Match)) {
	d.mu.Lock()
	defer d.mu.Unlock()

	fn(&d.match)
}

func (d *Director) setPhase(p Phase) {
	d.update(func(m *Match) { m.Phase = p })
	d.log.Debug("phase", zap.Stringer("phase", p))
}

func (d *Director) name(index int) string {
	d.mu.Lock()
	defer d.mu.Unlock()

	return d.match.Names[index]
}

// Run plays the match until every participant is done or it is aborted.
// A nil error means the match ended normally.
func (d *Director) Run(ctx context.Context) error {
	if d.roster.Size() == 0 {
		return ErrNoParticipants
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	defer d.setPhase(Ended)

	if err := d.lobby(ctx); err != nil {
		return err
	}

	present := d.roster.Present()
	first := present[d.opts.Pick(len(present))]

	for {
		m, err := d.setupRound(ctx, first)
		if err != nil {
			return err
		}

		if err := d.turnLoop(ctx, m); err != nil {
			return err
		}

		again, err := d.endRound(ctx, m)
		if err != nil {
			return err
		}
		if !again {
			d.log.Info("match ended")
			return nil
		}

		first = d.roster.Next(first)
	}
}

func (d *Director) lobby(ctx context.Context) error {
	d.setPhase(Lobby)

	lobbyCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	size := d.roster.Size()
	feeds := make([]chan player.Named, size)
	for i := range feeds {
		feeds[i] = make(chan player.Named, size)
	}
	defer func() {
		for _, feed := range feeds {
			close(feed)
		}
	}()

	responses := fanout.Broadcast(lobbyCtx, d.roster,
		func(ctx context.Context, index int, p player.Player) (player.InitReply, error) {
			return p.Init(ctx, player.GameInit{
				Code:       d.opts.Code,
				NumPlayers: size,
				Index:      index,
				Names:      feeds[index],
			})
		})

	aborted := false
	for resp := range responses {
		if aborted {
			continue
		}

		if resp.Err != nil || resp.Value.Leave {
			d.roster.Depart(resp.Index)
			d.log.Info("left the lobby", zap.Int("index", resp.Index), zap.Error(resp.Err))

			aborted = true
			d.announce(ctx, resp.Index)
			cancel()
			continue
		}

		name := resp.Value.Name
		d.update(func(m *Match) { m.Names[resp.Index] = name })
		d.log.Info("joined", zap.Int("index", resp.Index), zap.String("name", name))

		for _, feed := range feeds {
			feed <- player.Named{Index: resp.Index, Name: name}
		}
	}

	if err := ctx.Err(); err != nil {
		return err
	}
	if aborted {
		return fmt.Errorf("%w: participant left the lobby", ErrMatchAborted)
	}

	return nil
}

func (d *Director) setupRound(ctx context.Context, first int) (*round.Machine, error) {
	d.setPhase(RoundSetup)

	refs, err := d.opts.Source.Pictures(ctx, d.opts.Pictures)
	if err != nil {
		return nil, fmt.Errorf("drawing pictures: %w", err)
	}

	b, err := board.Deal(refs, d.opts.Shuffle(2*len(refs)))
	if err != nil {
		return nil, err
	}

	var number int
	d.update(func(m *Match) {
		m.Round++
		m.First = first
		m.Active = first
		m.Points = make([]int, d.roster.Size())
		number = m.Round
	})
	d.log.Info("round starting", zap.Int("round", number), zap.Int("first", first), zap.Int("cards", b.Len()))

	start := player.RoundStart{Cards: b.Layout()}
	responses := fanout.Collect(fanout.Broadcast(ctx, d.roster, fanout.Ack(
		func(ctx context.Context, _ int, p player.Player) error {
			return p.StartRound(ctx, start)
		})))

	if gone := fanout.Departed(responses); len(gone) > 0 {
		d.announce(ctx, gone...)
		return nil, fmt.Errorf("%w: participant left during round setup", ErrMatchAborted)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	return round.New(b, d.roster.Size(), first, d.roster.IsPresent), nil
}

func (d *Director) turnLoop(ctx context.Context, m *round.Machine) error {
	d.setPhase(TurnLoop)

	for m.Phase() != round.RoundOver {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := d.enough(); err != nil {
			return err
		}
		if !d.roster.IsPresent(m.Active()) {
			d.forfeit(ctx, m)
			continue
		}

		if err := d.turn(ctx, m); err != nil {
			return err
		}
	}

	return nil
}

func (d *Director) turn(ctx context.Context, m *round.Machine) error {
	active := m.Active()
	d.update(func(mt *Match) { mt.Active = active })

	d.broadcast(ctx, func(ctx context.Context, _ int, p player.Player) error {
		return p.ActivePlayer(ctx, active)
	})
	if err := d.enough(); err != nil {
		return err
	}
	if !d.roster.IsPresent(active) {
		d.forfeit(ctx, m)
		return nil
	}

	turnCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	selections, err := d.roster.Player(active).SelectCards(turnCtx)
	if err != nil {
		d.depart(ctx, active, err)
		d.forfeit(ctx, m)
		return nil
	}

	for {
		var (
			pos int
			ok  bool
		)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case pos, ok = <-selections:
		}

		if !ok {
			d.depart(ctx, active, errors.New("selection stream closed"))
			d.forfeit(ctx, m)
			return nil
		}

		ev, err := m.Reveal(pos)
		if err != nil {
			d.log.Debug("selection ignored", zap.Int("index", active), zap.Int("card", pos), zap.Error(err))
			continue
		}

		d.broadcast(ctx, func(ctx context.Context, _ int, p player.Player) error {
			return p.CardRevealed(ctx, pos)
		})

		switch ev.Outcome {
		case round.PairSolved, round.Completed:
			d.update(func(mt *Match) {
				points := m.Board().Points(d.roster.Size())
				for i, p := range points {
					mt.Totals[i] += p - mt.Points[i]
				}
				mt.Points = points
			})

			solved := player.PairSolved{Cards: ev.Pair, SolvedBy: ev.Solver}
			d.broadcast(ctx, func(ctx context.Context, _ int, p player.Player) error {
				return p.CardsSolved(ctx, solved)
			})
			d.log.Debug("pair solved", zap.Int("index", active), zap.Ints("cards", ev.Pair[:]))

			if ev.Outcome == round.Completed {
				return nil
			}

		case round.Mismatch:
			if err := d.settle(ctx); err != nil {
				return err
			}
			if _, err := m.Settle(); err != nil {
				return err
			}
			d.broadcast(ctx, func(ctx context.Context, _ int, p player.Player) error {
				return p.CardsHidden(ctx)
			})
			return nil
		}

		if err := d.enough(); err != nil {
			return err
		}
		if !d.roster.IsPresent(active) {
			d.forfeit(ctx, m)
			return nil
		}
	}
}

func (d *Director) enough() error {
	if d.roster.Count() < d.minPresent {
		return fmt.Errorf("%w: not enough participants left", ErrMatchAborted)
	}
	return nil
}

func (d *Director) settle(ctx context.Context) error {
	if d.opts.SettleDelay == 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(d.opts.SettleDelay)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// forfeit passes the turn on without a pair being solved, telling
// everyone when cards went back face down.
func (d *Director) forfeit(ctx context.Context, m *round.Machine) {
	ev := m.Forfeit()
	if len(ev.Hidden) == 0 {
		return
	}

	d.broadcast(ctx, func(ctx context.Context, _ int, p player.Player) error {
		return p.CardsHidden(ctx)
	})
}

func (d *Director) endRound(ctx context.Context, m *round.Machine) (bool, error) {
	d.setPhase(RoundEnd)

	var end player.RoundEnd
	if winner, decided := m.Result(); decided {
		end.Winner = &player.Named{Index: winner, Name: d.name(winner)}
		d.log.Info("round won", zap.Int("index", winner), zap.String("name", end.Winner.Name))
	} else {
		d.log.Info("round drawn")
	}

	responses := fanout.Collect(fanout.Broadcast(ctx, d.roster,
		func(ctx context.Context, _ int, p player.Player) (bool, error) {
			return p.EndRound(ctx, end)
		}))

	votes := 0
	var leaving []int
	for _, resp := range responses {
		switch {
		case resp.Err != nil:
			leaving = append(leaving, resp.Index)
		case resp.Value:
			votes++
		default:
			d.roster.Depart(resp.Index)
			leaving = append(leaving, resp.Index)
		}
	}
	d.announce(ctx, leaving...)

	if err := ctx.Err(); err != nil {
		return false, err
	}

	return votes > 0 && d.roster.Count() >= d.minPresent, nil
}

// broadcast sends an acknowledged call to every present participant and
// announces anyone who failed to answer.
func (d *Director) broadcast(ctx context.Context, call func(ctx context.Context, index int, p player.Player) error) {
	responses := fanout.Collect(fanout.Broadcast(ctx, d.roster, fanout.Ack(call)))
	d.announce(ctx, fanout.Departed(responses)...)
}

func (d *Director) depart(ctx context.Context, index int, cause error) {
	if d.roster.Depart(index) {
		d.log.Info("participant gone", zap.Int("index", index), zap.Error(cause))
		d.announce(ctx, index)
	}
}

// announce tells the remaining participants about each departure. Anyone
// failing to take the news is announced in turn.
func (d *Director) announce(ctx context.Context, departed ...int) {
	queue := append([]int(nil), departed...)

	for len(queue) > 0 {
		if ctx.Err() != nil {
			return
		}

		index := queue[0]
		queue = queue[1:]

		d.log.Info("announcing departure", zap.Int("index", index), zap.String("name", d.name(index)))

		responses := fanout.Collect(fanout.Broadcast(ctx, d.roster, fanout.Ack(
			func(ctx context.Context, _ int, p player.Player) error {
				return p.PlayerLeft(ctx, index)
			})))
		queue = append(queue, fanout.Departed(responses)...)
	}
}
