package game

import (
	"context"
	"log/slog"

	"github.com/mcoot/xwsync/internal/bitstream"
	"github.com/mcoot/xwsync/internal/comms"
	"github.com/mcoot/xwsync/internal/model"
)

// noPlayer is how an unknown chat sender goes on the wire
const noPlayer = 0xFF

// SendChat sends a chat line from this device's first local player
func (c *Controller) SendChat(ctx context.Context, msg string) error {
	if c.info.Role == model.RoleStandalone {
		return model.ErrWrongState
	}
	from := -1
	for p := range c.info.Players {
		if c.isLocal(p) {
			from = p
			break
		}
	}
	ts := uint32(c.nowSeconds())

	w := c.newMessage(protoChat)
	w.PutString(msg)
	if from < 0 {
		w.PutU8(noPlayer)
	} else {
		w.PutU8(uint8(from))
	}
	w.PutU32(ts)
	c.sendToPeers(ctx, w)

	c.board.AddChat(model.ChatMessage{From: from, Text: msg, Timestamp: ts})
	return nil
}

// receiveChat records a chat line, relaying it on when this is the host
func (c *Controller) receiveChat(ctx context.Context, from comms.Channel, data []byte, r *bitstream.Reader) bool {
	if c.info.Role == model.RoleStandalone {
		return c.drop(protoChat, from, "standalone game")
	}
	text := r.GetString()
	sender := int(r.GetU8())
	ts := r.GetU32()
	if r.Err() != nil {
		return c.drop(protoChat, from, "truncated")
	}
	if sender >= c.info.NPlayers() || c.isLocal(sender) {
		sender = -1
	}
	if c.info.Role == model.RoleHost {
		for _, d := range c.devices[1:] {
			if d.channel != from && c.comms != nil {
				c.relay(ctx, d.channel, data)
			}
		}
	}
	c.board.AddChat(model.ChatMessage{From: sender, Text: text, Timestamp: ts})
	c.cb.ChatReceived(sender, text, ts)
	return true
}

func (c *Controller) relay(ctx context.Context, ch comms.Channel, data []byte) {
	if err := c.comms.Send(ctx, ch, data); err != nil {
		c.logger.Warn("relay failed",
			slog.Int("channel", int(ch)),
			slog.String("error", err.Error()),
		)
	}
}
