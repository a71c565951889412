// Package redis carries protocol messages over Redis pub/sub. Every device
// subscribes to its own topic; the sender's name travels in an envelope so
// the receiver can map it to a channel.
package redis

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/redis/go-redis/v9"

	"github.com/mcoot/xwsync/internal/bitstream"
	"github.com/mcoot/xwsync/internal/comms"
)

// Config holds pub/sub topic settings
type Config struct {
	// Prefix namespaces topics, e.g. per deployment
	Prefix string
}

// DefaultConfig returns sensible defaults for the pub/sub transport
func DefaultConfig() Config {
	return Config{Prefix: "xwsync"}
}

// Transport is one device's pub/sub connection
type Transport struct {
	client *redis.Client
	cfg    Config
	self   string
	logger *slog.Logger

	mu     sync.Mutex
	peers  map[comms.Channel]string
	connID uint32
	ready  chan struct{}
}

// New creates a transport for the named device
func New(client *redis.Client, cfg Config, self string, logger *slog.Logger) *Transport {
	return &Transport{
		client: client,
		cfg:    cfg,
		self:   self,
		logger: logger.With(slog.String("component", "redis-comms"), slog.String("device", self)),
		peers:  make(map[comms.Channel]string),
		ready:  make(chan struct{}),
	}
}

var (
	_ comms.Comms    = (*Transport)(nil)
	_ comms.Listener = (*Transport)(nil)
)

func (t *Transport) topic(device string) string {
	return fmt.Sprintf("%s:comms:%s", t.cfg.Prefix, device)
}

// Connect maps a channel to a peer device
func (t *Transport) Connect(ch comms.Channel, peer string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.peers[ch] = peer
}

// Ready is closed once Listen's subscription is live
func (t *Transport) Ready() <-chan struct{} {
	return t.ready
}

// Send publishes data to the peer on ch
func (t *Transport) Send(ctx context.Context, ch comms.Channel, data []byte) error {
	t.mu.Lock()
	peer, ok := t.peers[ch]
	connID := t.connID
	t.mu.Unlock()
	if !ok {
		return fmt.Errorf("redis comms: no peer on channel %d", ch)
	}

	w := bitstream.NewWriter(bitstream.VersionCurrent)
	w.PutString(t.self)
	w.PutU32(connID)
	w.PutBytes(data)
	return t.client.Publish(ctx, t.topic(peer), w.Bytes()).Err()
}

// ChannelAddress returns the peer's device name
func (t *Transport) ChannelAddress(ch comms.Channel) (comms.Address, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	peer, ok := t.peers[ch]
	if !ok {
		return comms.Address{}, false
	}
	return comms.Address{Kind: comms.AddrRedis, Value: peer}, true
}

// SetConnectionID tags outbound envelopes
func (t *Transport) SetConnectionID(id uint32) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.connID = id
}

// channelFor returns the sender's channel, assigning the lowest free
// non-host channel to a device seen for the first time
func (t *Transport) channelFor(sender string) comms.Channel {
	t.mu.Lock()
	defer t.mu.Unlock()
	for ch, name := range t.peers {
		if name == sender {
			return ch
		}
	}
	ch := comms.HostChannel + 1
	for {
		if _, taken := t.peers[ch]; !taken {
			break
		}
		ch++
	}
	t.peers[ch] = sender
	return ch
}

// Listen delivers messages published to this device until ctx is done
func (t *Transport) Listen(ctx context.Context, recv comms.Receiver) error {
	sub := t.client.Subscribe(ctx, t.topic(t.self))
	defer sub.Close()

	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("subscribing: %w", err)
	}
	close(t.ready)

	msgs := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-msgs:
			if !ok {
				return nil
			}
			r := bitstream.NewReader([]byte(msg.Payload), bitstream.VersionCurrent)
			sender := r.GetString()
			_ = r.GetU32()
			data := r.GetBytes()
			if err := r.Err(); err != nil {
				t.logger.Warn("dropping malformed envelope", slog.String("error", err.Error()))
				continue
			}
			recv.ReceiveMessage(ctx, t.channelFor(sender), data)
		}
	}
}
