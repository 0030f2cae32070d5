/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

// Package local adapts a person in front of a presentation layer to the
// player contract.
package local

import (
	"context"

	"go.uber.org/zap"

	"github.com/Seednode/pairbox/board"
	"github.com/Seednode/pairbox/player"
)

// Board shows the cards and collects picks. Selection streams card
// positions until ctx ends, then closes.
type Board interface {
	Setup(ctx context.Context, cards []board.Location) error
	Selection(ctx context.Context) (<-chan int, error)
	Reveal(position int)
	Hide()
	PairSolved(solved player.PairSolved)
}

// Header shows who is playing.
type Header interface {
	SetParticipants(n int)
	SetName(index int, name string)
	SetActive(index int)
	SetCode(code string)
	SetLeft(index int)
}

// Modal asks the person a question and waits for the answer.
type Modal interface {
	Name(ctx context.Context, index int) (string, error)
	NewRoundVote(ctx context.Context, end player.RoundEnd) (bool, error)
	GameCode(ctx context.Context) (string, error)
}

type Player struct {
	board  Board
	header Header
	modal  Modal
	log    *zap.Logger
}

var _ player.Player = (*Player)(nil)

func New(b Board, h Header, m Modal, log *zap.Logger) *Player {
	if log == nil {
		log = zap.NewNop()
	}

	return &Player{board: b, header: h, modal: m, log: log}
}

// Init fills the header and asks for a name. Failing to answer means the
// person left.
func (p *Player) Init(ctx context.Context, init player.GameInit) (player.InitReply, error) {
	p.header.SetParticipants(init.NumPlayers)
	p.header.SetCode(init.Code)

	if init.Names != nil {
		go func() {
			for n := range init.Names {
				p.header.SetName(n.Index, n.Name)
			}
		}()
	}

	name, err := p.modal.Name(ctx, init.Index)
	if err != nil {
		if ctx.Err() != nil {
			return player.InitReply{}, ctx.Err()
		}

		p.log.Info("no name given", zap.Error(err))
		return player.InitReply{Leave: true}, nil
	}

	return player.InitReply{Name: name}, nil
}

func (p *Player) StartRound(ctx context.Context, start player.RoundStart) error {
	return p.board.Setup(ctx, start.Cards)
}

func (p *Player) ActivePlayer(ctx context.Context, index int) error {
	p.header.SetActive(index)
	return nil
}

func (p *Player) SelectCards(ctx context.Context) (<-chan int, error) {
	return p.board.Selection(ctx)
}

func (p *Player) CardRevealed(ctx context.Context, position int) error {
	p.board.Reveal(position)
	return nil
}

func (p *Player) CardsHidden(ctx context.Context) error {
	p.board.Hide()
	return nil
}

func (p *Player) CardsSolved(ctx context.Context, solved player.PairSolved) error {
	p.board.PairSolved(solved)
	return nil
}

func (p *Player) EndRound(ctx context.Context, end player.RoundEnd) (bool, error) {
	return p.modal.NewRoundVote(ctx, end)
}

func (p *Player) PlayerLeft(ctx context.Context, index int) error {
	p.log.Debug("participant left", zap.Int("index", index))
	p.header.SetLeft(index)
	return nil
}
