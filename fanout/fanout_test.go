package fanout_test

import (
	"context"
	"errors"
	"sort"
	"testing"
	"time"

	"github.com/Seednode/pairbox/fanout"
	"github.com/Seednode/pairbox/player"
	"github.com/Seednode/pairbox/player/playertest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBroadcastCollectsOnePerSeat(t *testing.T) {
	a, b, c := &playertest.Fake{Name: "a"}, &playertest.Fake{Name: "b"}, &playertest.Fake{Name: "c"}
	roster := fanout.NewRoster(a, b, c)

	responses := fanout.Collect(fanout.Broadcast(context.Background(), roster,
		func(ctx context.Context, index int, p player.Player) (int, error) {
			return index * 10, nil
		}))

	require.Len(t, responses, 3)
	sort.Slice(responses, func(i, j int) bool { return responses[i].Index < responses[j].Index })
	for i, resp := range responses {
		assert.Equal(t, i, resp.Index)
		assert.Equal(t, i*10, resp.Value)
		assert.NoError(t, resp.Err)
	}
	assert.Empty(t, fanout.Departed(responses))
}

func TestBroadcastIndividualizesPayload(t *testing.T) {
	a, b := &playertest.Fake{Name: "a"}, &playertest.Fake{Name: "b"}
	roster := fanout.NewRoster(a, b)

	got := map[int]string{}
	for resp := range fanout.Broadcast(context.Background(), roster,
		func(ctx context.Context, index int, p player.Player) (player.InitReply, error) {
			return p.Init(ctx, player.GameInit{Index: index})
		}) {
		got[resp.Index] = resp.Value.Name
	}

	assert.Equal(t, map[int]string{0: "a", 1: "b"}, got)
}

func TestBroadcastMarksFailuresDeparted(t *testing.T) {
	broken := &playertest.Fake{OnAck: func(string) error { return player.ErrDeparted }}
	roster := fanout.NewRoster(&playertest.Fake{}, broken, &playertest.Fake{})

	responses := fanout.Collect(fanout.Broadcast(context.Background(), roster,
		fanout.Ack(func(ctx context.Context, index int, p player.Player) error {
			return p.CardsHidden(ctx)
		})))

	require.Len(t, responses, 3)
	assert.Equal(t, []int{1}, fanout.Departed(responses))
	assert.Equal(t, []int{0, 2}, roster.Present())
	assert.False(t, roster.IsPresent(1))

	responses = fanout.Collect(fanout.Broadcast(context.Background(), roster,
		fanout.Ack(func(ctx context.Context, index int, p player.Player) error {
			return p.CardsHidden(ctx)
		})))
	assert.Len(t, responses, 2)
	assert.Len(t, broken.Calls(), 1)
}

func TestBroadcastRunsConcurrently(t *testing.T) {
	release := make(chan struct{})
	started := make(chan int, 2)
	roster := fanout.NewRoster(&playertest.Fake{}, &playertest.Fake{})

	stream := fanout.Broadcast(context.Background(), roster,
		func(ctx context.Context, index int, p player.Player) (int, error) {
			started <- index
			<-release
			return index, nil
		})

	for i := 0; i < 2; i++ {
		select {
		case <-started:
		case <-time.After(time.Second):
			t.Fatal("calls were not issued concurrently")
		}
	}
	close(release)

	assert.Len(t, fanout.Collect(stream), 2)
}

func TestBroadcastSlowSeatDoesNotBlockOthers(t *testing.T) {
	release := make(chan struct{})
	roster := fanout.NewRoster(&playertest.Fake{}, &playertest.Fake{})

	stream := fanout.Broadcast(context.Background(), roster,
		func(ctx context.Context, index int, p player.Player) (int, error) {
			if index == 0 {
				<-release
				return 0, errors.New("gone")
			}
			return index, nil
		})

	first := <-stream
	assert.Equal(t, 1, first.Index)

	close(release)
	second := <-stream
	assert.Equal(t, 0, second.Index)
	assert.Error(t, second.Err)

	_, open := <-stream
	assert.False(t, open)
}

func TestRosterRotation(t *testing.T) {
	roster := fanout.NewRoster(&playertest.Fake{}, &playertest.Fake{}, &playertest.Fake{})

	assert.Equal(t, 3, roster.Size())
	assert.Equal(t, 1, roster.Next(0))

	assert.True(t, roster.Depart(1))
	assert.False(t, roster.Depart(1))
	assert.False(t, roster.Depart(7))

	assert.Equal(t, 2, roster.Next(0))
	assert.Equal(t, 0, roster.Next(2))
	assert.Equal(t, 2, roster.Count())
	assert.Equal(t, 3, roster.Size())
}
