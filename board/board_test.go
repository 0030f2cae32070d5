package board_test

import (
	"testing"

	"github.com/Seednode/pairbox/board"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func deal(t *testing.T) *board.Board {
	t.Helper()
	b, err := board.Deal([]string{"cat", "dog", "owl"}, []int{0, 3, 1, 4, 2, 5})
	require.NoError(t, err)
	return b
}

func snapshot(b *board.Board) []board.Card {
	cards := make([]board.Card, b.Len())
	for i := range cards {
		cards[i] = b.Card(i)
	}
	return cards
}

func TestDeal(t *testing.T) {
	b := deal(t)

	require.Equal(t, 6, b.Len())
	assert.Equal(t, "cat", b.Card(0).Picture)
	assert.Equal(t, "cat", b.Card(3).Picture)
	assert.Equal(t, "dog", b.Card(1).Picture)
	assert.Equal(t, "owl", b.Card(5).Picture)

	for i := 0; i < b.Len(); i++ {
		assert.Equal(t, board.Hidden, b.Card(i).State)
		_, solved := b.Card(i).SolvedBy()
		assert.False(t, solved)
	}

	assert.Equal(t, []board.Location{
		{Picture: "cat", Positions: [2]int{0, 3}},
		{Picture: "dog", Positions: [2]int{1, 4}},
		{Picture: "owl", Positions: [2]int{2, 5}},
	}, b.Layout())
}

func TestDealRejectsBadPermutation(t *testing.T) {
	_, err := board.Deal([]string{"cat", "dog"}, []int{0, 1, 2})
	assert.ErrorIs(t, err, board.ErrInvalidDeal)

	_, err = board.Deal([]string{"cat", "dog"}, []int{0, 1, 1, 2})
	assert.ErrorIs(t, err, board.ErrInvalidDeal)

	_, err = board.Deal(nil, nil)
	assert.ErrorIs(t, err, board.ErrInvalidDeal)
}

func TestDealRejectsDuplicatePictures(t *testing.T) {
	_, err := board.Deal([]string{"cat", "cat"}, []int{0, 1, 2, 3})
	assert.ErrorIs(t, err, board.ErrInvalidDeal)

	_, err = board.FromLayout([]board.Location{
		{Picture: "dog", Positions: [2]int{0, 2}},
		{Picture: "dog", Positions: [2]int{1, 3}},
	})
	assert.ErrorIs(t, err, board.ErrInvalidDeal)
}

func TestRevealNonHiddenIsNoop(t *testing.T) {
	b := deal(t)
	require.NoError(t, b.Reveal(0))

	before := snapshot(b)
	assert.ErrorIs(t, b.Reveal(0), board.ErrInvalidMove)
	assert.ErrorIs(t, b.Reveal(-1), board.ErrInvalidMove)
	assert.ErrorIs(t, b.Reveal(6), board.ErrInvalidMove)
	assert.Equal(t, before, snapshot(b))

	require.NoError(t, b.Reveal(3))
	require.NoError(t, b.ResolvePair(0, 3, 1))

	before = snapshot(b)
	assert.ErrorIs(t, b.Reveal(3), board.ErrInvalidMove)
	assert.Equal(t, before, snapshot(b))
}

func TestNeverThreeRevealed(t *testing.T) {
	b := deal(t)
	require.NoError(t, b.Reveal(0))
	require.NoError(t, b.Reveal(1))

	assert.ErrorIs(t, b.Reveal(2), board.ErrInvalidMove)
	assert.Equal(t, []int{0, 1}, b.Revealed())
}

func TestResolvePair(t *testing.T) {
	b := deal(t)
	require.NoError(t, b.Reveal(1))
	require.NoError(t, b.Reveal(4))
	require.NoError(t, b.ResolvePair(1, 4, 2))

	for _, pos := range []int{1, 4} {
		assert.Equal(t, board.Solved, b.Card(pos).State)
		solver, ok := b.Card(pos).SolvedBy()
		assert.True(t, ok)
		assert.Equal(t, 2, solver)
	}
}

func TestResolvePairRejectsMismatch(t *testing.T) {
	b := deal(t)
	require.NoError(t, b.Reveal(0))
	require.NoError(t, b.Reveal(1))

	assert.ErrorIs(t, b.ResolvePair(0, 1, 0), board.ErrInvalidMove)
	assert.Equal(t, board.Revealed, b.Card(0).State)
	assert.Equal(t, board.Revealed, b.Card(1).State)

	assert.ErrorIs(t, b.ResolvePair(2, 5, 0), board.ErrInvalidMove)
	assert.ErrorIs(t, b.ResolvePair(0, 0, 0), board.ErrInvalidMove)
}

func TestHideAll(t *testing.T) {
	b := deal(t)
	require.NoError(t, b.Reveal(0))
	require.NoError(t, b.Reveal(1))

	assert.Equal(t, []int{0, 1}, b.HideAll())
	assert.Empty(t, b.Revealed())
	assert.Nil(t, b.HideAll())
}

func TestCompleteIsMonotonic(t *testing.T) {
	b := deal(t)
	pairs := [][2]int{{0, 3}, {1, 4}, {2, 5}}

	for i, pair := range pairs {
		assert.False(t, b.IsComplete())
		require.NoError(t, b.Reveal(pair[0]))
		require.NoError(t, b.Reveal(pair[1]))
		require.NoError(t, b.ResolvePair(pair[0], pair[1], i%2))
	}
	assert.True(t, b.IsComplete())

	_ = b.Reveal(0)
	b.HideAll()
	assert.True(t, b.IsComplete())

	assert.Equal(t, []int{4, 2, 0}, b.Points(3))
}

func TestFromLayout(t *testing.T) {
	b := deal(t)

	rebuilt, err := board.FromLayout(b.Layout())
	require.NoError(t, err)
	assert.Equal(t, snapshot(b), snapshot(rebuilt))

	_, err = board.FromLayout([]board.Location{{Picture: "cat", Positions: [2]int{0, 7}}})
	assert.ErrorIs(t, err, board.ErrInvalidDeal)
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "hidden", board.Hidden.String())
	assert.Equal(t, "revealed", board.Revealed.String())
	assert.Equal(t, "solved", board.Solved.String())
}
