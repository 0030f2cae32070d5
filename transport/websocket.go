/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package transport

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/julienschmidt/httprouter"
	"go.uber.org/zap"

	"github.com/Seednode/pairbox/matchcode"
	"github.com/Seednode/pairbox/rpc"
)

const (
	// Route is where guests connect, relative to the server prefix.
	Route = "/pairs/:key/ws"

	writeWait = 10 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// WebSocket is a channel over a gorilla websocket connection. Every
// message is one text frame.
type WebSocket struct {
	conn *websocket.Conn
	send chan []byte
	recv chan []byte
	done chan struct{}
	once sync.Once
}

var _ rpc.Channel = (*WebSocket)(nil)

func NewWebSocket(conn *websocket.Conn) *WebSocket {
	ws := &WebSocket{
		conn: conn,
		send: make(chan []byte, 8),
		recv: make(chan []byte, 8),
		done: make(chan struct{}),
	}

	go ws.writePump()
	go ws.readPump()

	return ws
}

func (ws *WebSocket) readPump() {
	defer func() {
		close(ws.recv)
		_ = ws.Close()
	}()

	_ = ws.conn.SetReadDeadline(time.Time{})

	for {
		_, data, err := ws.conn.ReadMessage()
		if err != nil {
			return
		}

		select {
		case ws.recv <- data:
		case <-ws.done:
			return
		}
	}
}

func (ws *WebSocket) writePump() {
	defer ws.conn.Close()

	for {
		select {
		case data := <-ws.send:
			_ = ws.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := ws.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				_ = ws.Close()
				return
			}
		case <-ws.done:
			_ = ws.conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(writeWait))
			return
		}
	}
}

func (ws *WebSocket) Send(ctx context.Context, data []byte) error {
	select {
	case <-ws.done:
		return ErrClosed
	default:
	}

	select {
	case ws.send <- data:
		return nil
	case <-ws.done:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (ws *WebSocket) Messages() <-chan []byte {
	return ws.recv
}

func (ws *WebSocket) Close() error {
	ws.once.Do(func() { close(ws.done) })
	return nil
}

// Acceptor hands incoming websocket connections to the seat waiting for
// them. Each seat is identified by its hashed host key.
type Acceptor struct {
	log *zap.Logger

	mu      sync.Mutex
	waiting map[string]chan *WebSocket
}

func NewAcceptor(log *zap.Logger) *Acceptor {
	if log == nil {
		log = zap.NewNop()
	}

	return &Acceptor{
		log:     log,
		waiting: make(map[string]chan *WebSocket),
	}
}

// Accept waits for the guest of a seat. Its signature matches
// rpc.Connector.
func (a *Acceptor) Accept(ctx context.Context, code string, seat int) (rpc.Channel, error) {
	key := matchcode.HostKey(code, seat)
	ch := make(chan *WebSocket, 1)

	a.mu.Lock()
	a.waiting[key] = ch
	a.mu.Unlock()

	defer func() {
		a.mu.Lock()
		if a.waiting[key] == ch {
			delete(a.waiting, key)
		}
		a.mu.Unlock()
	}()

	a.log.Debug("waiting for guest", zap.Int("seat", seat))

	select {
	case ws := <-ch:
		a.log.Info("guest connected", zap.Int("seat", seat))
		return ws, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Handle upgrades a guest connection on Route.
func (a *Acceptor) Handle(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	key := ps.ByName("key")

	a.mu.Lock()
	ch, ok := a.waiting[key]
	if ok {
		delete(a.waiting, key)
	}
	a.mu.Unlock()

	if !ok {
		http.Error(w, "no seat waiting for this key", http.StatusNotFound)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		a.log.Warn("upgrade failed", zap.Error(err))

		a.mu.Lock()
		a.waiting[key] = ch
		a.mu.Unlock()
		return
	}

	ch <- NewWebSocket(conn)
}

// SeatURL returns the websocket address of a seat on server, which is an
// http(s) or ws(s) base URL including any prefix.
func SeatURL(server, code string, seat int) (string, error) {
	u, err := url.Parse(strings.TrimSuffix(server, "/"))
	if err != nil {
		return "", err
	}

	switch u.Scheme {
	case "http", "ws":
		u.Scheme = "ws"
	case "https", "wss":
		u.Scheme = "wss"
	default:
		return "", fmt.Errorf("transport: unsupported scheme %q", u.Scheme)
	}

	u.Path += strings.Replace(Route, ":key", matchcode.HostKey(code, seat), 1)

	return u.String(), nil
}

// DialWebSocket connects a guest to its seat on server.
func DialWebSocket(ctx context.Context, server, code string, seat int) (*WebSocket, error) {
	addr, err := SeatURL(server, code, seat)
	if err != nil {
		return nil, err
	}

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, addr, nil)
	if err != nil {
		return nil, fmt.Errorf("transport: dialing seat %d: %w", seat, err)
	}

	return NewWebSocket(conn), nil
}
