// Package websocket carries protocol messages over websocket binary frames.
// The host serves Handler and assigns a channel to each guest that connects;
// a guest dials the host and reaches it on comms.HostChannel.
package websocket

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	"github.com/coder/websocket"

	"github.com/mcoot/xwsync/internal/comms"
)

type peer struct {
	conn *websocket.Conn
	addr comms.Address
}

// Transport is one device's set of websocket connections
type Transport struct {
	logger *slog.Logger

	mu     sync.Mutex
	peers  map[comms.Channel]*peer
	recv   comms.Receiver
	ctx    context.Context
	connID uint32
	ready  chan struct{}
}

// New creates a transport with no connections
func New(logger *slog.Logger) *Transport {
	return &Transport{
		logger: logger.With(slog.String("component", "websocket-comms")),
		peers:  make(map[comms.Channel]*peer),
		ready:  make(chan struct{}),
	}
}

var (
	_ comms.Comms    = (*Transport)(nil)
	_ comms.Listener = (*Transport)(nil)
)

// Listen routes inbound frames to recv and closes every connection once
// ctx is done
func (t *Transport) Listen(ctx context.Context, recv comms.Receiver) error {
	t.mu.Lock()
	t.recv = recv
	t.ctx = ctx
	t.mu.Unlock()
	close(t.ready)

	<-ctx.Done()

	t.mu.Lock()
	defer t.mu.Unlock()
	for ch, p := range t.peers {
		p.conn.Close(websocket.StatusGoingAway, "game closing")
		delete(t.peers, ch)
	}
	return nil
}

// Ready is closed once Listen has a receiver
func (t *Transport) Ready() <-chan struct{} {
	return t.ready
}

// Handler accepts guest connections on the host
func (t *Transport) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, nil)
		if err != nil {
			t.logger.Warn("websocket accept failed", slog.String("error", err.Error()))
			return
		}
		ch := t.add(conn, comms.Address{Kind: comms.AddrWebsocket, Value: r.RemoteAddr}, nil)
		t.logger.Info("guest connected", slog.Int("channel", int(ch)), slog.String("remote", r.RemoteAddr))
		t.readLoop(r.Context(), ch, conn)
	})
}

// Dial connects a guest to its host
func (t *Transport) Dial(ctx context.Context, url string) error {
	conn, _, err := websocket.Dial(ctx, url, nil)
	if err != nil {
		return fmt.Errorf("dialing host: %w", err)
	}
	host := comms.HostChannel
	t.add(conn, comms.Address{Kind: comms.AddrWebsocket, Value: url}, &host)
	go t.readLoop(ctx, host, conn)
	return nil
}

// add registers conn on the given channel, or the lowest free guest channel
func (t *Transport) add(conn *websocket.Conn, addr comms.Address, want *comms.Channel) comms.Channel {
	t.mu.Lock()
	defer t.mu.Unlock()
	var ch comms.Channel
	if want != nil {
		ch = *want
	} else {
		ch = comms.HostChannel + 1
		for {
			if _, taken := t.peers[ch]; !taken {
				break
			}
			ch++
		}
	}
	t.peers[ch] = &peer{conn: conn, addr: addr}
	return ch
}

func (t *Transport) readLoop(ctx context.Context, ch comms.Channel, conn *websocket.Conn) {
	defer t.drop(ch, conn)
	for {
		typ, data, err := conn.Read(ctx)
		if err != nil {
			if websocket.CloseStatus(err) != websocket.StatusNormalClosure && !errors.Is(err, context.Canceled) {
				t.logger.Debug("websocket read ended", slog.Int("channel", int(ch)), slog.String("error", err.Error()))
			}
			return
		}
		if typ != websocket.MessageBinary {
			t.logger.Warn("dropping non-binary frame", slog.Int("channel", int(ch)))
			continue
		}
		t.mu.Lock()
		recv, rctx := t.recv, t.ctx
		t.mu.Unlock()
		if recv == nil {
			t.logger.Warn("dropping frame before listen", slog.Int("channel", int(ch)))
			continue
		}
		recv.ReceiveMessage(rctx, ch, data)
	}
}

func (t *Transport) drop(ch comms.Channel, conn *websocket.Conn) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if p, ok := t.peers[ch]; ok && p.conn == conn {
		delete(t.peers, ch)
	}
}

// Send writes data as one binary frame to the peer on ch
func (t *Transport) Send(ctx context.Context, ch comms.Channel, data []byte) error {
	t.mu.Lock()
	p, ok := t.peers[ch]
	t.mu.Unlock()
	if !ok {
		return fmt.Errorf("websocket comms: no peer on channel %d", ch)
	}
	return p.conn.Write(ctx, websocket.MessageBinary, data)
}

// ChannelAddress returns the peer's remote address or dial URL
func (t *Transport) ChannelAddress(ch comms.Channel) (comms.Address, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	p, ok := t.peers[ch]
	if !ok {
		return comms.Address{}, false
	}
	return p.addr, true
}

// SetConnectionID records the game's connection ID
func (t *Transport) SetConnectionID(id uint32) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.connID = id
}

// Channels returns the number of live connections
func (t *Transport) Channels() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.peers)
}
