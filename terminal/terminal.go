/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

// Package terminal draws a match on a text terminal and reads the
// person's answers from a line-oriented input.
package terminal

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"

	"github.com/fatih/color"

	"github.com/Seednode/pairbox/board"
	"github.com/Seednode/pairbox/local"
	"github.com/Seednode/pairbox/matchcode"
	"github.com/Seednode/pairbox/pictures"
	"github.com/Seednode/pairbox/player"
)

const perRow = 4

var (
	bold    = color.New(color.Bold).SprintFunc()
	faint   = color.New(color.Faint).SprintFunc()
	warn    = color.New(color.FgHiRed).SprintFunc()
	shown   = color.New(color.FgHiYellow, color.Bold).SprintFunc()
	current = color.New(color.FgHiCyan, color.Bold).SprintFunc()

	solvers = []func(a ...any) string{
		color.New(color.FgHiGreen).SprintFunc(),
		color.New(color.FgHiMagenta).SprintFunc(),
		color.New(color.FgHiBlue).SprintFunc(),
		color.New(color.FgHiRed).SprintFunc(),
	}
)

type Terminal struct {
	out    io.Writer
	source pictures.Source
	lines  chan string

	mu     sync.Mutex
	labels []string
	states []board.State
	solver []int
	names  []string
}

var (
	_ local.Board  = (*Terminal)(nil)
	_ local.Header = (*Terminal)(nil)
	_ local.Modal  = (*Terminal)(nil)
)

func New(in io.Reader, out io.Writer, source pictures.Source) *Terminal {
	if source == nil {
		source = pictures.Animals{}
	}

	t := &Terminal{
		out:    out,
		source: source,
		lines:  make(chan string),
	}

	go func() {
		defer close(t.lines)

		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			t.lines <- strings.TrimSpace(scanner.Text())
		}
	}()

	return t
}

func (t *Terminal) printf(format string, args ...any) {
	t.mu.Lock()
	defer t.mu.Unlock()

	fmt.Fprintf(t.out, format, args...)
}

func (t *Terminal) readLine(ctx context.Context) (string, error) {
	select {
	case line, ok := <-t.lines:
		if !ok {
			return "", io.EOF
		}
		return line, nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func (t *Terminal) name(index int) string {
	if index >= 0 && index < len(t.names) && t.names[index] != "" {
		return t.names[index]
	}
	return fmt.Sprintf("Player %d", index+1)
}

func (t *Terminal) SetParticipants(n int) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.names = make([]string, n)
	fmt.Fprintf(t.out, "%s\n", bold(fmt.Sprintf("%d participants", n)))
}

func (t *Terminal) SetName(index int, name string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if index < 0 || index >= len(t.names) {
		return
	}
	t.names[index] = name
	fmt.Fprintf(t.out, "%s joined\n", bold(name))
}

func (t *Terminal) SetActive(index int) {
	t.mu.Lock()
	defer t.mu.Unlock()

	fmt.Fprintf(t.out, "Turn: %s\n", current(t.name(index)))
}

func (t *Terminal) SetCode(code string) {
	t.printf("Match code: %s\n", bold(code))
}

func (t *Terminal) SetLeft(index int) {
	t.mu.Lock()
	defer t.mu.Unlock()

	fmt.Fprintf(t.out, "%s\n", warn(t.name(index)+" left the match"))
}

func (t *Terminal) Setup(ctx context.Context, cards []board.Location) error {
	b, err := board.FromLayout(cards)
	if err != nil {
		return err
	}

	labels := make([]string, b.Len())
	for _, loc := range cards {
		label, err := t.source.Resolve(ctx, loc.Picture)
		if err != nil {
			return fmt.Errorf("resolving picture: %w", err)
		}
		for _, pos := range loc.Positions {
			labels[pos] = label
		}
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	t.labels = labels
	t.states = make([]board.State, b.Len())
	t.solver = make([]int, b.Len())
	t.render()

	return nil
}

// render draws the board. Callers hold t.mu.
func (t *Terminal) render() {
	var sb strings.Builder

	for pos, state := range t.states {
		var face string
		switch state {
		case board.Hidden:
			face = faint(fmt.Sprintf("%2d:[  ]", pos+1))
		case board.Revealed:
			face = fmt.Sprintf("%2d:[%s]", pos+1, shown(t.labels[pos]))
		case board.Solved:
			paint := solvers[t.solver[pos]%len(solvers)]
			face = fmt.Sprintf("%2d:[%s]", pos+1, paint(t.labels[pos]))
		}

		sb.WriteString(face)
		if (pos+1)%perRow == 0 || pos == len(t.states)-1 {
			sb.WriteString("\n")
		} else {
			sb.WriteString("  ")
		}
	}

	fmt.Fprint(t.out, sb.String())
}

func (t *Terminal) valid(pos int) bool {
	return pos >= 0 && pos < len(t.states)
}

func (t *Terminal) Reveal(position int) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.valid(position) {
		return
	}
	t.states[position] = board.Revealed
	t.render()
}

func (t *Terminal) Hide() {
	t.mu.Lock()
	defer t.mu.Unlock()

	for pos, state := range t.states {
		if state == board.Revealed {
			t.states[pos] = board.Hidden
		}
	}
	t.render()
}

func (t *Terminal) PairSolved(solved player.PairSolved) {
	t.mu.Lock()
	defer t.mu.Unlock()

	for _, pos := range solved.Cards {
		if t.valid(pos) {
			t.states[pos] = board.Solved
			t.solver[pos] = solved.SolvedBy
		}
	}
	fmt.Fprintf(t.out, "%s found a pair\n", bold(t.name(solved.SolvedBy)))
	t.render()
}

// Selection reads card numbers, counted from 1, until ctx ends. The stream
// closes early if the input runs out.
func (t *Terminal) Selection(ctx context.Context) (<-chan int, error) {
	t.mu.Lock()
	size := len(t.states)
	t.mu.Unlock()

	t.printf("%s pick a card (1-%d)\n", current("Your turn:"), size)

	out := make(chan int)

	go func() {
		defer close(out)

		for {
			line, err := t.readLine(ctx)
			if err != nil {
				return
			}

			n, err := strconv.Atoi(line)
			if err != nil || n < 1 || n > size {
				t.printf("%s\n", warn(fmt.Sprintf("%q is not a card between 1 and %d", line, size)))
				continue
			}

			select {
			case out <- n - 1:
			case <-ctx.Done():
				return
			}
		}
	}()

	return out, nil
}

func (t *Terminal) Name(ctx context.Context, index int) (string, error) {
	fallback := fmt.Sprintf("Player %d", index+1)
	t.printf("Your name [%s]: ", fallback)

	name, err := t.readLine(ctx)
	if err != nil {
		return "", err
	}
	if name == "" {
		name = fallback
	}

	return name, nil
}

func (t *Terminal) NewRoundVote(ctx context.Context, end player.RoundEnd) (bool, error) {
	if end.Winner != nil {
		t.printf("%s wins the round!\n", current(end.Winner.Name))
	} else {
		t.printf("%s\n", bold("The round is a draw."))
	}
	t.printf("Another round? [Y/n]: ")

	answer, err := t.readLine(ctx)
	if err != nil {
		return false, err
	}

	switch strings.ToLower(answer) {
	case "n", "no":
		return false, nil
	default:
		return true, nil
	}
}

func (t *Terminal) GameCode(ctx context.Context) (string, error) {
	for {
		t.printf("Match code: ")

		code, err := t.readLine(ctx)
		if err != nil {
			return "", err
		}
		if matchcode.Valid(code) {
			return code, nil
		}

		t.printf("%s\n", warn("That is not a match code."))
	}
}
