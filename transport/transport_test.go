package transport_test

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/julienschmidt/httprouter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Seednode/pairbox/rpc"
	"github.com/Seednode/pairbox/transport"
)

const code = "🐀🐁🐂🐃"

func receive(t *testing.T, ch rpc.Channel) []byte {
	t.Helper()

	select {
	case data, ok := <-ch.Messages():
		require.True(t, ok, "channel closed")
		return data
	case <-time.After(2 * time.Second):
		t.Fatal("no message")
		return nil
	}
}

func closed(t *testing.T, ch rpc.Channel) {
	t.Helper()

	select {
	case _, ok := <-ch.Messages():
		assert.False(t, ok)
	case <-time.After(2 * time.Second):
		t.Fatal("channel still open")
	}
}

func TestPipe(t *testing.T) {
	a, b := transport.Pipe()
	ctx := context.Background()

	require.NoError(t, a.Send(ctx, []byte("ping")))
	require.NoError(t, b.Send(ctx, []byte("pong")))

	assert.Equal(t, "ping", string(receive(t, b)))
	assert.Equal(t, "pong", string(receive(t, a)))

	buf := []byte("first")
	require.NoError(t, a.Send(ctx, buf))
	buf[0] = 'X'
	assert.Equal(t, "first", string(receive(t, b)))
}

func TestPipeClose(t *testing.T) {
	a, b := transport.Pipe()

	require.NoError(t, b.Close())

	closed(t, a)
	closed(t, b)
	assert.ErrorIs(t, a.Send(context.Background(), []byte("late")), transport.ErrClosed)
}

func TestWebSocketSeat(t *testing.T) {
	acceptor := transport.NewAcceptor(nil)

	mux := httprouter.New()
	mux.GET("/game"+transport.Route, acceptor.Handle)

	srv := httptest.NewServer(mux)
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	accepted := make(chan rpc.Channel, 1)
	go func() {
		ch, err := acceptor.Accept(ctx, code, 1)
		assert.NoError(t, err)
		accepted <- ch
	}()

	var guest *transport.WebSocket
	require.Eventually(t, func() bool {
		var err error
		guest, err = transport.DialWebSocket(ctx, srv.URL+"/game", code, 1)
		return err == nil
	}, 2*time.Second, 20*time.Millisecond)

	host := <-accepted
	require.NotNil(t, host)

	require.NoError(t, host.Send(ctx, []byte(`{"type":"ACTIVE_PLAYER"}`)))
	assert.JSONEq(t, `{"type":"ACTIVE_PLAYER"}`, string(receive(t, guest)))

	require.NoError(t, guest.Send(ctx, []byte(`{"type":"ACK"}`)))
	assert.JSONEq(t, `{"type":"ACK"}`, string(receive(t, host)))

	require.NoError(t, guest.Close())
	closed(t, host)
}

func TestWebSocketUnknownSeat(t *testing.T) {
	acceptor := transport.NewAcceptor(nil)

	mux := httprouter.New()
	mux.GET(transport.Route, acceptor.Handle)

	srv := httptest.NewServer(mux)
	defer srv.Close()

	_, err := transport.DialWebSocket(context.Background(), srv.URL, code, 3)
	assert.Error(t, err)
}

func TestSeatURL(t *testing.T) {
	u, err := transport.SeatURL("https://example.com/pairbox/", code, 2)
	require.NoError(t, err)
	assert.Regexp(t, `^wss://example\.com/pairbox/pairs/[0-9a-f]{64}/ws$`, u)

	_, err = transport.SeatURL("ftp://example.com", code, 2)
	assert.Error(t, err)
}
