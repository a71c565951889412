package game

import (
	"context"
	"log/slog"

	"github.com/mcoot/xwsync/internal/bitstream"
	"github.com/mcoot/xwsync/internal/comms"
	"github.com/mcoot/xwsync/internal/model"
)

var _ comms.Receiver = (*Controller)(nil)

// ReceiveMessage handles one message from the device on channel from. It
// reports whether the message was accepted. Messages this device can't use
// in its current state are logged and dropped.
func (c *Controller) ReceiveMessage(ctx context.Context, from comms.Channel, data []byte) bool {
	r := bitstream.NewReader(data, c.streamVersion)
	code, err := c.readProto(r)
	if err != nil {
		c.logger.Warn("unreadable message",
			slog.String("state", c.state.String()),
			slog.Int("channel", int(from)),
			slog.String("error", err.Error()),
		)
		return false
	}
	guest := c.info.Role == model.RoleGuest
	host := c.info.Role == model.RoleHost

	switch code {
	case protoDeviceRegistration:
		if !host {
			return c.drop(code, from, "not a host")
		}
		return c.handleRegistration(ctx, from, r)
	case protoClientSetup:
		if !guest {
			return c.drop(code, from, "not a guest")
		}
		return c.handleClientSetup(ctx, from, r)
	case protoMoveMadeGuest:
		if !host {
			return c.drop(code, from, "not a host")
		}
		return c.reflectMoveAndInform(ctx, from, r)
	case protoMoveMadeHost:
		if !guest {
			return c.drop(code, from, "not a guest")
		}
		return c.reflectMove(ctx, from, r)
	case protoUndoClient, protoUndoHost:
		if (code == protoUndoClient) != host {
			return c.drop(code, from, "wrong direction")
		}
		return c.reflectUndos(ctx, from, r, code)
	case protoBadWordInfo:
		if !guest {
			return c.drop(code, from, "not a guest")
		}
		return c.handleBadWordInfo(ctx, from, r)
	case protoMoveConfirm:
		if !guest || c.state != StateMoveConfirmWait {
			return c.drop(code, from, "not waiting for confirmation")
		}
		c.setState(StateInTurn)
		c.nextTurn(ctx, pickCur)
		return true
	case protoClientReqEndGame:
		if !host || !c.state.inPlay() {
			return c.drop(code, from, "can't end game now")
		}
		c.endGameInternal(ctx, c.readQuitter(r))
		return true
	case protoEndGame:
		if !guest || c.state == StateGameOver {
			return c.drop(code, from, "can't end game now")
		}
		c.doEndGame(c.readQuitter(r))
		return true
	case protoChat:
		return c.receiveChat(ctx, from, data, r)
	case protoDupeStuff:
		if !c.info.Duplicate {
			return c.drop(code, from, "not a duplicate game")
		}
		return c.dupeHandleStuff(ctx, from, r)
	default:
		return c.drop(code, from, "unexpected code")
	}
}
