package game

import (
	"context"
	"log/slog"

	"github.com/mcoot/xwsync/internal/bitstream"
	"github.com/mcoot/xwsync/internal/comms"
	"github.com/mcoot/xwsync/internal/model"
)

// HandleUndo undoes moves back to and including the latest human move, or
// at most limit moves when limit is positive, and tells peers where the
// stack now ends. It returns false when nothing could be undone.
func (c *Controller) HandleUndo(ctx context.Context, limit int) (bool, error) {
	if !c.state.inPlay() {
		return false, model.ErrWrongState
	}
	nUndone := 0
	lastTurn, lastMoveNum := -1, 0
	for {
		turn, moveNum, err := c.board.UndoLatestMoves(c.pool, 1)
		if err != nil {
			break
		}
		nUndone++
		lastTurn, lastMoveNum = turn, moveNum
		if !c.info.Players[turn].IsRobot {
			break
		}
		if limit > 0 && nUndone >= limit {
			break
		}
	}
	if nUndone == 0 {
		c.cb.UserError(model.UserErrCantUndoTileAssign)
		return false, model.ErrCantUndoTileAssign
	}

	code := protoUndoHost
	if c.info.Role == model.RoleGuest {
		code = protoUndoClient
	}
	c.sendUndo(ctx, code, nil, nUndone, lastMoveNum, c.board.Hash())
	c.logger.Info("moves undone", slog.Int("count", nUndone), slog.Int("turn", lastTurn))

	c.prevMove = ""
	if c.info.Duplicate {
		c.dupeClearState()
	}
	if c.state != StateInTurn {
		c.setState(StateInTurn)
	}
	c.nextTurn(ctx, lastTurn)
	return true, nil
}

func (c *Controller) sendUndo(ctx context.Context, code protoCode, skip *comms.Channel, nUndone, lastMoveNum int, hash uint32) {
	if c.info.Role == model.RoleStandalone {
		return
	}
	w := c.newMessage(code)
	w.PutU16(uint16(nUndone))
	w.PutU16(uint16(lastMoveNum))
	w.PutU32(hash)
	if code == protoUndoClient {
		c.sendToHost(ctx, w)
	} else {
		c.sendToGuests(ctx, w, skip)
	}
}

// reflectUndos applies a peer's undo. The hash names the stack depth to pop
// to; a zero hash falls back to the undo count.
func (c *Controller) reflectUndos(ctx context.Context, from comms.Channel, r *bitstream.Reader, code protoCode) bool {
	nUndone := int(r.GetU16())
	lastMoveNum := int(r.GetU16())
	hash := r.GetU32()
	if r.Err() != nil {
		return c.drop(code, from, "truncated")
	}

	var turn int
	ok := false
	if hash == 0 {
		t, _, err := c.board.UndoLatestMoves(c.pool, nUndone)
		ok, turn = err == nil, t
	} else {
		popped, err := c.board.PopToHash(hash, c.pool)
		ok, turn = popped && err == nil, c.board.NextTurn()
	}
	if !ok {
		c.logger.Warn("undo does not fit local stack",
			slog.String("code", code.String()),
			slog.Int("channel", int(from)),
			slog.Int("count", nUndone),
		)
		return false
	}

	if code == protoUndoClient {
		c.sendUndo(ctx, protoUndoHost, &from, nUndone, lastMoveNum, hash)
	}
	c.prevMove = ""
	if c.info.Duplicate {
		c.dupeClearState()
	}
	c.cb.InformUndo()
	c.setState(StateInTurn)
	c.nextTurn(ctx, turn)
	return true
}
