// Package memory is an in-process transport for tests and local games.
// Deliveries queue until Pump runs, so a receiver never re-enters itself
// from inside Send.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/mcoot/xwsync/internal/comms"
)

// Doer is a receiver with deferred work to run after deliveries
type Doer interface {
	Do(ctx context.Context) bool
}

type delivery struct {
	to   *Endpoint
	from comms.Channel
	data []byte
}

// Hub connects endpoints in one process
type Hub struct {
	mu        sync.Mutex
	endpoints map[string]*Endpoint
	order     []*Endpoint
	queue     []delivery
	sent      int
}

// NewHub creates an empty hub
func NewHub() *Hub {
	return &Hub{endpoints: make(map[string]*Endpoint)}
}

// Endpoint returns the named endpoint, creating it on first use
func (h *Hub) Endpoint(name string) *Endpoint {
	h.mu.Lock()
	defer h.mu.Unlock()
	if e, ok := h.endpoints[name]; ok {
		return e
	}
	e := &Endpoint{hub: h, name: name, peers: make(map[comms.Channel]string)}
	h.endpoints[name] = e
	h.order = append(h.order, e)
	return e
}

// Link connects two endpoints, each seeing the other on the given channel
func (h *Hub) Link(a string, aSeesB comms.Channel, b string, bSeesA comms.Channel) {
	ea, eb := h.Endpoint(a), h.Endpoint(b)
	ea.mu.Lock()
	ea.peers[aSeesB] = b
	ea.mu.Unlock()
	eb.mu.Lock()
	eb.peers[bSeesA] = a
	eb.mu.Unlock()
}

// Pending returns the number of queued deliveries
func (h *Hub) Pending() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.queue)
}

// Sent returns the number of messages sent since the hub was created
func (h *Hub) Sent() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.sent
}

// DropPending discards queued deliveries, simulating lost messages
func (h *Hub) DropPending() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	n := len(h.queue)
	h.queue = nil
	return n
}

func (h *Hub) enqueue(d delivery) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.queue = append(h.queue, d)
	h.sent++
}

func (h *Hub) next() (delivery, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.queue) == 0 {
		return delivery{}, false
	}
	d := h.queue[0]
	h.queue = h.queue[1:]
	return d, true
}

// Deliver hands the oldest queued message to its receiver without running
// any deferred work. It reports whether a message was delivered.
func (h *Hub) Deliver(ctx context.Context) bool {
	d, ok := h.next()
	if !ok {
		return false
	}
	if r := d.to.receiver(); r != nil {
		r.ReceiveMessage(ctx, d.from, d.data)
	}
	return true
}

// maxPumpRounds bounds Pump against endpoints that never go quiet
const maxPumpRounds = 10000

// Pump delivers queued messages in order and runs every endpoint's deferred
// work until nothing is left to do. It returns the number of deliveries.
func (h *Hub) Pump(ctx context.Context) int {
	delivered := 0
	for round := 0; round < maxPumpRounds; round++ {
		if ctx.Err() != nil {
			return delivered
		}
		if d, ok := h.next(); ok {
			if r := d.to.receiver(); r != nil {
				r.ReceiveMessage(ctx, d.from, d.data)
			}
			delivered++
			continue
		}
		busy := false
		h.mu.Lock()
		eps := append([]*Endpoint(nil), h.order...)
		h.mu.Unlock()
		for _, e := range eps {
			if d, ok := e.receiver().(Doer); ok && d.Do(ctx) {
				busy = true
			}
		}
		if !busy && h.Pending() == 0 {
			return delivered
		}
	}
	return delivered
}

// Endpoint is one device's view of the hub
type Endpoint struct {
	hub  *Hub
	name string

	mu     sync.Mutex
	peers  map[comms.Channel]string
	recv   comms.Receiver
	connID uint32
}

var _ comms.Comms = (*Endpoint)(nil)

// Name returns the endpoint's name in the hub
func (e *Endpoint) Name() string {
	return e.name
}

// Bind sets the receiver for deliveries to this endpoint
func (e *Endpoint) Bind(r comms.Receiver) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.recv = r
}

func (e *Endpoint) receiver() comms.Receiver {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.recv
}

// Send queues data for the peer on ch
func (e *Endpoint) Send(ctx context.Context, ch comms.Channel, data []byte) error {
	e.mu.Lock()
	peer, ok := e.peers[ch]
	e.mu.Unlock()
	if !ok {
		return fmt.Errorf("memory endpoint %s: no peer on channel %d", e.name, ch)
	}
	to := e.hub.Endpoint(peer)
	from, ok := to.channelFor(e.name)
	if !ok {
		return fmt.Errorf("memory endpoint %s: %s has no channel back", e.name, peer)
	}
	e.hub.enqueue(delivery{to: to, from: from, data: append([]byte(nil), data...)})
	return nil
}

func (e *Endpoint) channelFor(peer string) (comms.Channel, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for ch, name := range e.peers {
		if name == peer {
			return ch, true
		}
	}
	return 0, false
}

// ChannelAddress returns the peer's hub name
func (e *Endpoint) ChannelAddress(ch comms.Channel) (comms.Address, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	peer, ok := e.peers[ch]
	if !ok {
		return comms.Address{}, false
	}
	return comms.Address{Kind: comms.AddrMemory, Value: peer}, true
}

// SetConnectionID records the game's connection ID
func (e *Endpoint) SetConnectionID(id uint32) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.connID = id
}

// ConnectionID returns the last ID set
func (e *Endpoint) ConnectionID() uint32 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.connID
}
