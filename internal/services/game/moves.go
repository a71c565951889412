package game

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/mcoot/xwsync/internal/bitstream"
	"github.com/mcoot/xwsync/internal/comms"
	"github.com/mcoot/xwsync/internal/model"
)

// CommitMove commits the tiles player has placed on the board. newTiles, if
// given, are the replacement tiles the player chose; the rest are drawn.
func (c *Controller) CommitMove(ctx context.Context, player int, newTiles []model.Tile) error {
	if err := c.checkLocalTurn(player); err != nil {
		return err
	}
	if _, err := c.board.CurrentMove(player); err != nil {
		return err
	}
	if len(newTiles) > c.board.CurrentMoveCount(player) {
		return fmt.Errorf("%d new tiles for %d played: %w", len(newTiles), c.board.CurrentMoveCount(player), model.ErrBadTrayIndex)
	}
	c.chargeTime(player)
	return c.commitMoveImpl(ctx, player, newTiles, false)
}

// CommitTrade swaps old tiles in the current player's tray for new ones.
// newTiles, if given, are tiles the player chose; the rest are drawn.
func (c *Controller) CommitTrade(ctx context.Context, old, newTiles []model.Tile) error {
	if c.info.Duplicate {
		return model.ErrWrongState
	}
	if err := c.checkLocalTurn(c.turn); err != nil {
		return err
	}
	if len(old) == 0 || len(newTiles) > len(old) {
		return model.ErrBadTrayIndex
	}
	c.chargeTime(c.turn)
	return c.commitTrade(ctx, c.turn, old, newTiles)
}

func (c *Controller) commitMoveImpl(ctx context.Context, player int, newTiles []model.Tile, forced bool) error {
	if c.info.Duplicate {
		c.dupeStoreTurn(ctx, player, forced)
		return nil
	}
	return c.finishMove(ctx, player, newTiles)
}

func (c *Controller) finishMove(ctx context.Context, player int, newTiles []model.Tile) error {
	mi, err := c.board.CurrentMove(player)
	if err != nil {
		return err
	}
	nTiles := len(mi.Tiles)
	if err := c.pool.Remove(newTiles); err != nil {
		return err
	}
	newTiles = c.fetchTiles(player, nTiles-len(newTiles), newTiles, false)

	legal := true
	var bad badWordsInfo
	if c.info.Role == model.RoleGuest {
		c.sendMove(ctx, protoMoveMadeGuest, nil, moveReport{player: player, newTiles: newTiles, mi: mi, legal: true})
	} else {
		legal, bad = c.checkMoveAllowed(player, nTiles)
		c.sendMove(ctx, protoMoveMadeHost, nil, moveReport{player: player, newTiles: newTiles, mi: mi, legal: legal, bad: bad})
	}

	score, err := c.board.CommitTurn(player, newTiles)
	if err != nil {
		c.pool.Replace(newTiles)
		return err
	}
	c.recordPrevMove()
	c.logger.Debug("move committed",
		slog.Int("player", player),
		slog.Int("tiles", nTiles),
		slog.Int("score", score),
		slog.Bool("legal", legal),
	)

	if !legal && c.amHost() {
		c.rejectPhony(bad, true)
	}
	if c.info.Role == model.RoleGuest && c.info.Phonies == model.PhoniesDisallow && nTiles > 0 {
		c.setState(StateMoveConfirmWait)
		c.setTurn(-1)
		return nil
	}
	c.nextTurn(ctx, pickNext)
	return nil
}

func (c *Controller) commitTrade(ctx context.Context, player int, old, newTiles []model.Tile) error {
	if c.pool.Left() < c.info.TraySize {
		c.cb.UserError(model.UserErrTooFewTilesToTrade)
		return model.ErrTooFewTilesToTrade
	}
	c.board.ResetCurrentTurn(player)
	if !containsAll(c.board.TrayTiles(player), old) {
		return fmt.Errorf("trading tiles not in tray: %w", model.ErrBadTrayIndex)
	}
	if err := c.pool.Remove(newTiles); err != nil {
		return err
	}
	newTiles = c.fetchTiles(player, len(old)-len(newTiles), newTiles, false)

	code := protoMoveMadeHost
	if c.info.Role == model.RoleGuest {
		code = protoMoveMadeGuest
	}
	c.sendMove(ctx, code, nil, moveReport{player: player, newTiles: newTiles, trade: true, oldTiles: old})

	c.pool.Replace(old)
	if err := c.board.MakeTileTrade(player, old, newTiles); err != nil {
		_ = c.pool.Remove(old)
		c.pool.Replace(newTiles)
		return err
	}
	c.recordPrevMove()
	c.logger.Debug("tiles traded", slog.Int("player", player), slog.Int("tiles", len(old)))
	c.nextTurn(ctx, pickNext)
	return nil
}

// checkMoveAllowed runs the phony check for a move about to be committed.
// Only PhoniesDisallow makes a move illegal; PhoniesWarn reports the words.
func (c *Controller) checkMoveAllowed(player, nTiles int) (bool, badWordsInfo) {
	if nTiles == 0 || c.info.Phonies == model.PhoniesIgnore {
		return true, badWordsInfo{}
	}
	words, err := c.board.CheckMoveLegal(player)
	if err != nil || len(words) == 0 {
		return true, badWordsInfo{}
	}
	bad := badWordsInfo{player: player, words: words, dictName: c.board.Oracle().DictName()}
	if c.info.Phonies == model.PhoniesWarn {
		c.cb.NotifyIllegalWords(player, words, bad.dictName, c.isLocal(player))
		return true, badWordsInfo{}
	}
	return false, bad
}

// rejectPhony turns the latest move into a phony and tells the host app
func (c *Controller) rejectPhony(bad badWordsInfo, forMe bool) {
	who, err := c.board.RejectPreviousMove(c.pool)
	if err != nil {
		c.logger.Error("rejecting phony failed", slog.String("error", err.Error()))
		return
	}
	c.recordPrevMove()
	c.logger.Info("phony rejected", slog.Int("player", who), slog.Any("words", bad.words))
	c.cb.NotifyIllegalWords(who, bad.words, bad.dictName, forMe)
}

// moveReport is the body of a MOVEMADE message
type moveReport struct {
	hash        uint32
	player      int
	newTiles    []model.Tile
	trade       bool
	oldTiles    []model.Tile
	legal       bool
	mi          model.MoveInfo
	secondsUsed int
	bad         badWordsInfo
}

func (c *Controller) timerInMoves() bool {
	return c.info.TimerEnabled && !c.info.Duplicate
}

// sendMove reports a move to peers. The stack hash is taken before the move
// is committed. skip excludes the device a move is being relayed from.
func (c *Controller) sendMove(ctx context.Context, code protoCode, skip *comms.Channel, rep moveReport) {
	if c.info.Role == model.RoleStandalone {
		return
	}
	ts := c.board.TileSet()
	w := c.newMessage(code)
	if w.Version() >= bitstream.VersionBigBoard {
		w.PutU32(c.board.Hash())
	}
	w.PutBits(model.PlayerNumBits, uint32(rep.player))
	model.WriteTiles(w, ts, rep.newTiles)
	w.PutBool(rep.trade)
	if rep.trade {
		model.WriteTiles(w, ts, rep.oldTiles)
	} else {
		w.PutBool(rep.legal)
		rep.mi.WriteTo(w, ts)
		if c.timerInMoves() {
			w.PutU16(uint16(c.secondsUsed[rep.player]))
		}
		if !rep.legal {
			w.PutBits(model.PlayerNumBits, uint32(rep.bad.player))
			c.writeBadWords(w, rep.bad)
		}
	}
	if code == protoMoveMadeGuest {
		c.sendToHost(ctx, w)
	} else {
		c.sendToGuests(ctx, w, skip)
	}
}

func (c *Controller) readMoveReport(r *bitstream.Reader) (moveReport, error) {
	ts := c.board.TileSet()
	var rep moveReport
	hasHash := r.Version() >= bitstream.VersionBigBoard
	if hasHash {
		rep.hash = r.GetU32()
	}
	rep.player = int(r.GetBits(model.PlayerNumBits))
	rep.newTiles = model.ReadTiles(r, ts)
	rep.trade = r.GetBool()
	if rep.trade {
		rep.oldTiles = model.ReadTiles(r, ts)
	} else {
		rep.legal = r.GetBool()
		rep.mi = model.ReadMoveInfo(r, ts)
		if c.timerInMoves() {
			rep.secondsUsed = int(r.GetU16())
		}
		if !rep.legal {
			who := int(r.GetBits(model.PlayerNumBits))
			rep.bad = readBadWords(r)
			rep.bad.player = who
		}
	}
	if err := r.Err(); err != nil {
		return rep, err
	}
	if rep.player >= c.info.NPlayers() || c.isLocal(rep.player) {
		return rep, fmt.Errorf("move by player %d: %w", rep.player, model.ErrInvalidPlayer)
	}

	if hasHash && rep.hash != c.board.Hash() {
		ok, err := c.board.PopToHash(rep.hash, c.pool)
		if err != nil || !ok {
			return rep, fmt.Errorf("no stack entry matches hash %08x: %w", rep.hash, model.ErrStackDesync)
		}
		c.logger.Warn("popped stack to match peer", slog.Uint64("hash", uint64(rep.hash)))
		c.turn = c.board.NextTurn()
	}
	if !c.pool.Contains(rep.newTiles) {
		return rep, fmt.Errorf("drawn tiles: %w", model.ErrTilesNotInPool)
	}
	if !rep.trade {
		if err := c.board.MakeTurnFromMoveInfo(rep.player, rep.mi); err != nil {
			return rep, err
		}
	}
	if err := c.pool.Remove(rep.newTiles); err != nil {
		c.board.ResetCurrentTurn(rep.player)
		return rep, err
	}
	if c.timerInMoves() {
		c.secondsUsed[rep.player] = rep.secondsUsed
	}
	return rep, nil
}

// applyReport commits a received move or trade whose tiles readMoveReport
// has already taken from the pool
func (c *Controller) applyReport(rep moveReport) error {
	if rep.trade {
		if err := c.board.MakeTileTrade(rep.player, rep.oldTiles, rep.newTiles); err != nil {
			c.pool.Replace(rep.newTiles)
			return err
		}
		c.pool.Replace(rep.oldTiles)
	} else if _, err := c.board.CommitTurn(rep.player, rep.newTiles); err != nil {
		c.board.ResetCurrentTurn(rep.player)
		c.pool.Replace(rep.newTiles)
		return err
	}
	c.recordPrevMove()
	return nil
}

// reflectMoveAndInform is the host taking a guest's move: it judges the
// move, relays it to the other guests and commits it
func (c *Controller) reflectMoveAndInform(ctx context.Context, from comms.Channel, r *bitstream.Reader) bool {
	if c.state != StateInTurn {
		c.drop(protoMoveMadeGuest, from, "not in turn")
		return true
	}
	rep, err := c.readMoveReport(r)
	if err != nil {
		c.reportBadStack(protoMoveMadeGuest, from, err)
		return true
	}

	nTiles := len(rep.mi.Tiles)
	legal := true
	if !rep.trade {
		legal, rep.bad = c.checkMoveAllowed(rep.player, nTiles)
		rep.legal = legal
	}
	c.sendMove(ctx, protoMoveMadeHost, &from, rep)
	if err := c.applyReport(rep); err != nil {
		c.reportBadStack(protoMoveMadeGuest, from, err)
		return true
	}

	switch {
	case !legal:
		c.badWords = rep.bad
		c.lastMoveSource = from
		c.setState(StateNeedSendBadWordInfo)
		c.cb.RequestDo()
	case !rep.trade && c.info.Phonies == model.PhoniesDisallow && nTiles > 0:
		c.lastMoveSource = from
		c.setState(StateMoveConfirmMustSend)
		c.cb.RequestDo()
	case c.board.NumTilesTotal(rep.player) > 0:
		c.nextTurn(ctx, pickNext)
	default:
		c.setState(StateNeedSendEndGame)
		c.cb.RequestDo()
	}
	return true
}

// reflectMove is a guest taking a move relayed by the host
func (c *Controller) reflectMove(ctx context.Context, from comms.Channel, r *bitstream.Reader) bool {
	if c.state != StateInTurn || c.turn < 0 {
		return c.drop(protoMoveMadeHost, from, "not in turn")
	}
	rep, err := c.readMoveReport(r)
	if err != nil {
		c.reportBadStack(protoMoveMadeHost, from, err)
		return false
	}
	if err := c.applyReport(rep); err != nil {
		c.reportBadStack(protoMoveMadeHost, from, err)
		return false
	}
	if !rep.trade && !rep.legal {
		c.rejectPhony(rep.bad, c.isLocal(rep.bad.player))
	}
	c.nextTurn(ctx, pickNext)
	return true
}

func (c *Controller) reportBadStack(code protoCode, from comms.Channel, err error) {
	c.logger.Warn("move does not fit local stack",
		slog.String("code", code.String()),
		slog.String("state", c.state.String()),
		slog.Int("channel", int(from)),
		slog.String("error", err.Error()),
	)
	if isStackError(err) {
		c.cb.UserError(model.UserErrStackDesync)
	}
}

// sendBadWordInfo undoes a guest's phony on the host and tells the guest
func (c *Controller) sendBadWordInfo(ctx context.Context) {
	bad := c.badWords
	c.badWords = badWordsInfo{}
	c.rejectPhony(bad, false)
	w := c.newMessage(protoBadWordInfo)
	w.PutBits(model.PlayerNumBits, uint32(bad.player))
	c.writeBadWords(w, bad)
	c.sendTo(ctx, c.lastMoveSource, w)
}

// handleBadWordInfo is a guest learning its move was a phony
func (c *Controller) handleBadWordInfo(ctx context.Context, from comms.Channel, r *bitstream.Reader) bool {
	who := int(r.GetBits(model.PlayerNumBits))
	bad := readBadWords(r)
	bad.player = who
	if r.Err() != nil {
		return c.drop(protoBadWordInfo, from, "truncated")
	}
	if c.state != StateMoveConfirmWait {
		return c.drop(protoBadWordInfo, from, "not waiting for confirmation")
	}
	c.rejectPhony(bad, c.isLocal(who))
	c.setState(StateInTurn)
	c.nextTurn(ctx, pickCur)
	return true
}

func containsAll(tray, tiles []model.Tile) bool {
	left := append([]model.Tile(nil), tray...)
	for _, t := range tiles {
		found := false
		for i, x := range left {
			if x == t {
				left = append(left[:i], left[i+1:]...)
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}
