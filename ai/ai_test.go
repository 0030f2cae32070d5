package ai_test

import (
	"context"
	"math/rand/v2"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Seednode/pairbox/ai"
	"github.com/Seednode/pairbox/board"
	"github.com/Seednode/pairbox/player"
)

// Pictures A at 0 and 1, B at 2 and 3.
var layout = []board.Location{
	{Picture: "A", Positions: [2]int{0, 1}},
	{Picture: "B", Positions: [2]int{2, 3}},
}

func bot(t *testing.T, d ai.Difficulty) *ai.Player {
	t.Helper()

	p := ai.New(ai.Options{Difficulty: d, Rand: rand.New(rand.NewPCG(1, 2))})
	require.NoError(t, p.StartRound(context.Background(), player.RoundStart{Cards: layout}))
	return p
}

func next(t *testing.T, selections <-chan int) int {
	t.Helper()

	select {
	case pos, ok := <-selections:
		require.True(t, ok, "stream closed")
		return pos
	case <-time.After(time.Second):
		t.Fatal("no selection")
		return -1
	}
}

func show(t *testing.T, p *ai.Player, positions ...int) {
	t.Helper()

	ctx := context.Background()
	for _, pos := range positions {
		require.NoError(t, p.CardRevealed(ctx, pos))
	}
	require.NoError(t, p.CardsHidden(ctx))
}

func TestPlaysKnownPair(t *testing.T) {
	p := bot(t, ai.Hard)

	show(t, p, 0, 2)
	show(t, p, 1, 3)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	selections, err := p.SelectCards(ctx)
	require.NoError(t, err)

	first := next(t, selections)
	assert.Equal(t, 0, first)

	require.NoError(t, p.CardRevealed(ctx, first))
	assert.Equal(t, 1, next(t, selections))
}

func TestFindsPartnerOfRevealedCard(t *testing.T) {
	p := bot(t, ai.Hard)

	show(t, p, 3)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	selections, err := p.SelectCards(ctx)
	require.NoError(t, err)

	first := next(t, selections)
	assert.Contains(t, []int{0, 1, 2}, first)

	require.NoError(t, p.CardRevealed(ctx, first))
	if first == 2 {
		assert.Equal(t, 3, next(t, selections))
	} else {
		assert.Contains(t, []int{0, 1, 2}, next(t, selections))
	}
}

func TestGuessesUnseenCards(t *testing.T) {
	p := bot(t, ai.Hard)

	show(t, p, 0)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	selections, err := p.SelectCards(ctx)
	require.NoError(t, err)

	assert.Contains(t, []int{1, 2, 3}, next(t, selections))
}

func TestSkipsSolvedCards(t *testing.T) {
	p := bot(t, ai.Hard)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, p.CardRevealed(ctx, 0))
	require.NoError(t, p.CardRevealed(ctx, 1))
	require.NoError(t, p.CardsSolved(ctx, player.PairSolved{Cards: [2]int{0, 1}, SolvedBy: 1}))

	selections, err := p.SelectCards(ctx)
	require.NoError(t, err)

	assert.Contains(t, []int{2, 3}, next(t, selections))
}

func TestStreamClosesOnCancel(t *testing.T) {
	p := bot(t, ai.Normal)

	ctx, cancel := context.WithCancel(context.Background())
	selections, err := p.SelectCards(ctx)
	require.NoError(t, err)

	next(t, selections)
	cancel()

	for range selections {
	}
}

func TestInitAndVotes(t *testing.T) {
	p := ai.New(ai.Options{})
	ctx := context.Background()

	reply, err := p.Init(ctx, player.GameInit{NumPlayers: 2})
	require.NoError(t, err)
	assert.Contains(t, ai.Names, reply.Name)
	assert.False(t, reply.Leave)

	again, err := p.EndRound(ctx, player.RoundEnd{})
	require.NoError(t, err)
	assert.True(t, again)

	assert.NoError(t, p.ActivePlayer(ctx, 0))
	assert.NoError(t, p.PlayerLeft(ctx, 0))
}

func TestDifficulty(t *testing.T) {
	for name, want := range map[string]float64{"easy": 0.3, "Normal": 0.1, "HARD": 0} {
		d, err := ai.ParseDifficulty(name)
		require.NoError(t, err)
		assert.Equal(t, want, d.Forgetfulness())
	}

	_, err := ai.ParseDifficulty("impossible")
	assert.Error(t, err)

	assert.Equal(t, "normal", ai.Normal.String())
}
