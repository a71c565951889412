// Package comms carries protocol messages between the devices in a game.
// Transports only move bytes; framing and ordering rules live in the
// controller.
package comms

import (
	"context"

	"github.com/mcoot/xwsync/internal/bitstream"
)

// Channel identifies a peer device from this device's point of view
type Channel uint16

// HostChannel is the channel a guest uses to reach its host
const HostChannel Channel = 0

// AddressKind names the transport an Address belongs to
type AddressKind uint8

const (
	AddrNone AddressKind = iota
	AddrMemory
	AddrRedis
	AddrWebsocket
)

func (k AddressKind) String() string {
	switch k {
	case AddrMemory:
		return "memory"
	case AddrRedis:
		return "redis"
	case AddrWebsocket:
		return "websocket"
	default:
		return "none"
	}
}

// Address is how to reach a device again, e.g. when inviting it to a rematch
type Address struct {
	Kind  AddressKind `json:"kind"`
	Value string      `json:"value"`
}

// WriteTo encodes the address
func (a Address) WriteTo(w *bitstream.Writer) {
	w.PutBits(2, uint32(a.Kind))
	w.PutString(a.Value)
}

// ReadAddress decodes an address written by Address.WriteTo
func ReadAddress(r *bitstream.Reader) Address {
	return Address{Kind: AddressKind(r.GetBits(2)), Value: r.GetString()}
}

// Comms sends framed messages to peer devices
type Comms interface {
	Send(ctx context.Context, ch Channel, data []byte) error
	// ChannelAddress returns how to reach the device behind ch
	ChannelAddress(ch Channel) (Address, bool)
	// SetConnectionID tags outbound traffic with the game's connection ID
	SetConnectionID(id uint32)
}

// Receiver accepts inbound messages
type Receiver interface {
	ReceiveMessage(ctx context.Context, from Channel, data []byte) bool
}

// ReceiverFunc adapts a function to Receiver
type ReceiverFunc func(ctx context.Context, from Channel, data []byte) bool

func (f ReceiverFunc) ReceiveMessage(ctx context.Context, from Channel, data []byte) bool {
	return f(ctx, from, data)
}

// Listener is a transport that delivers inbound messages until ctx is done
type Listener interface {
	Listen(ctx context.Context, recv Receiver) error
}
