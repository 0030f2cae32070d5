package terminal_test

import (
	"bytes"
	"context"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Seednode/pairbox/board"
	"github.com/Seednode/pairbox/player"
	"github.com/Seednode/pairbox/terminal"
)

func init() {
	color.NoColor = true
}

type output struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (o *output) Write(p []byte) (int, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	return o.buf.Write(p)
}

func (o *output) String() string {
	o.mu.Lock()
	defer o.mu.Unlock()

	return o.buf.String()
}

func open(input string) (*terminal.Terminal, *output) {
	out := &output{}
	return terminal.New(strings.NewReader(input), out, nil), out
}

var layout = []board.Location{
	{Picture: "🐶", Positions: [2]int{0, 2}},
	{Picture: "🐱", Positions: [2]int{1, 3}},
}

func TestName(t *testing.T) {
	term, out := open("alice\n")

	name, err := term.Name(context.Background(), 0)
	require.NoError(t, err)
	assert.Equal(t, "alice", name)
	assert.Contains(t, out.String(), "[Player 1]")
}

func TestNameDefaultsAndEOF(t *testing.T) {
	term, _ := open("\n")
	ctx := context.Background()

	name, err := term.Name(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, "Player 3", name)

	_, err = term.Name(ctx, 2)
	assert.ErrorIs(t, err, io.EOF)
}

func TestNameCancelled(t *testing.T) {
	r, w := io.Pipe()
	defer w.Close()

	term := terminal.New(r, io.Discard, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := term.Name(ctx, 0)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestGameCodeRetries(t *testing.T) {
	term, out := open("hello\n🐀🐁🐂🐃\n")

	code, err := term.GameCode(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "🐀🐁🐂🐃", code)
	assert.Contains(t, out.String(), "That is not a match code.")
}

func TestNewRoundVote(t *testing.T) {
	term, out := open("n\n\n")
	ctx := context.Background()

	again, err := term.NewRoundVote(ctx, player.RoundEnd{Winner: &player.Named{Index: 1, Name: "bob"}})
	require.NoError(t, err)
	assert.False(t, again)
	assert.Contains(t, out.String(), "bob wins the round!")

	again, err = term.NewRoundVote(ctx, player.RoundEnd{})
	require.NoError(t, err)
	assert.True(t, again)
	assert.Contains(t, out.String(), "The round is a draw.")
}

func TestSelection(t *testing.T) {
	term, out := open("x\n9\n3\n")
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, term.Setup(ctx, layout))

	selections, err := term.Selection(ctx)
	require.NoError(t, err)

	select {
	case pos := <-selections:
		assert.Equal(t, 2, pos)
	case <-time.After(time.Second):
		t.Fatal("no selection")
	}
	assert.Contains(t, out.String(), `"x" is not a card between 1 and 4`)
	assert.Contains(t, out.String(), `"9" is not a card between 1 and 4`)

	_, ok := <-selections
	assert.False(t, ok, "stream stays open after input ends")
}

func TestBoardRendering(t *testing.T) {
	term, out := open("")
	ctx := context.Background()

	require.NoError(t, term.Setup(ctx, layout))
	assert.NotContains(t, out.String(), "🐶")

	term.Reveal(0)
	assert.Contains(t, out.String(), " 1:[🐶]")

	term.Hide()
	term.SetParticipants(2)
	term.SetName(1, "bob")
	term.PairSolved(player.PairSolved{Cards: [2]int{1, 3}, SolvedBy: 1})

	text := out.String()
	assert.Contains(t, text, "bob found a pair")
	assert.True(t, strings.HasSuffix(text, " 1:[  ]   2:[🐱]   3:[  ]   4:[🐱]\n"), text)
}

func TestHeader(t *testing.T) {
	term, out := open("")

	term.SetParticipants(3)
	term.SetCode("🐀🐁🐂🐃")
	term.SetName(0, "alice")
	term.SetName(7, "nobody")
	term.SetActive(0)
	term.SetLeft(2)

	text := out.String()
	assert.Contains(t, text, "3 participants")
	assert.Contains(t, text, "Match code: 🐀🐁🐂🐃")
	assert.Contains(t, text, "alice joined")
	assert.NotContains(t, text, "nobody")
	assert.Contains(t, text, "Turn: alice")
	assert.Contains(t, text, "Player 3 left the match")
}
