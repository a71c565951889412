package game

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/mcoot/xwsync/internal/bitstream"
	"github.com/mcoot/xwsync/internal/comms"
	"github.com/mcoot/xwsync/internal/model"
)

// dupeState tracks a duplicate round: who has stored a move, whether it was
// forced by the clock, and whether a guest has sent its moves to the host.
// timerExpires is unix seconds when running and minus the seconds left when
// paused.
type dupeState struct {
	made         []bool
	forced       []bool
	sent         bool
	timerExpires int32
}

func newDupeState(n int) dupeState {
	return dupeState{made: make([]bool, n), forced: make([]bool, n)}
}

// dupeStoreTurn records a local player's move for this round
func (c *Controller) dupeStoreTurn(ctx context.Context, player int, forced bool) {
	c.dupe.made[player] = true
	c.dupe.forced[player] = forced
	c.logger.Debug("duplicate move stored", slog.Int("player", player), slog.Bool("forced", forced))
	c.dupeCheckTurns(ctx)
	c.dupePostStatus()
	c.nextTurn(ctx, pickNext)
}

func (c *Controller) dupeAllMade(localOnly bool) bool {
	for p, made := range c.dupe.made {
		if localOnly && !c.isLocal(p) {
			continue
		}
		if !made {
			return false
		}
	}
	return true
}

// dupeCheckTurns finishes the round on the host once every move is in, or
// sends a guest's moves once all its players have stored one
func (c *Controller) dupeCheckTurns(ctx context.Context) bool {
	if c.state != StateInTurn {
		return false
	}
	if c.amHost() {
		if !c.dupeAllMade(false) {
			return false
		}
		c.dupeCommitAndReport(ctx)
		return true
	}
	if c.dupe.sent || !c.dupeAllMade(true) {
		return false
	}
	ts := c.board.TileSet()
	w := c.newMessage(protoDupeStuff)
	w.PutBits(dupeSubBits, uint32(dupeMoveClient))
	w.PutBits(model.NPlayersBits, uint32(c.info.NLocalPlayers()))
	for p := range c.info.Players {
		if !c.isLocal(p) {
			continue
		}
		mi, err := c.board.CurrentMove(p)
		if err != nil {
			mi = model.MoveInfo{Horizontal: true}
		}
		w.PutBits(model.PlayerNumBits, uint32(p))
		w.PutBool(c.dupe.forced[p])
		mi.WriteTo(w, ts)
	}
	c.sendToHost(ctx, w)
	c.dupe.sent = true
	return true
}

func (c *Controller) dupePostStatus() {
	n := 0
	for _, made := range c.dupe.made {
		if made {
			n++
		}
	}
	c.cb.DupStatus(fmt.Sprintf("%d of %d players have moved", n, len(c.dupe.made)))
}

// dupeNextTurn picks the local player still to move, else a remote one
func (c *Controller) dupeNextTurn() int {
	for p, made := range c.dupe.made {
		if !made && c.isLocal(p) {
			return p
		}
	}
	for p := len(c.dupe.made) - 1; p >= 0; p-- {
		if !c.dupe.made[p] && !c.isLocal(p) {
			return p
		}
	}
	return 0
}

func (c *Controller) dupeClearState() {
	for p := range c.dupe.made {
		c.dupe.made[p] = false
		c.dupe.forced[p] = false
		c.board.ResetCurrentTurn(p)
	}
	c.dupe.sent = false
}

// dupeChooseMove picks the round's winner: best score, then most tiles,
// then at random. Moves with bad words score nothing.
func (c *Controller) dupeChooseMove() (int, []int) {
	n := c.info.NPlayers()
	scores := make([]int, n)
	var winners []int
	bestScore, bestTiles := -1, -1
	for p := 0; p < n; p++ {
		score, err := c.board.CurrentMoveScore(p)
		if err != nil {
			score = 0
		} else if c.info.Phonies != model.PhoniesIgnore {
			if bad, _ := c.board.CheckMoveLegal(p); len(bad) > 0 {
				score = 0
			}
		}
		nTiles := c.board.CurrentMoveCount(p)
		if score == 0 {
			nTiles = 0
		}
		scores[p] = score
		switch {
		case score > bestScore || (score == bestScore && nTiles > bestTiles):
			winners = []int{p}
			bestScore, bestTiles = score, nTiles
		case score == bestScore && nTiles == bestTiles:
			winners = append(winners, p)
		}
	}
	winner := winners[0]
	if len(winners) > 1 {
		winner = winners[c.random.Intn(len(winners))]
	}
	return winner, scores
}

func (c *Controller) dupeCommitAndReport(ctx context.Context) {
	winner, scores := c.dupeChooseMove()
	switch {
	case scores[winner] > 0 || c.pool.Left() == 0:
		c.dupeCommitMoveAndReport(ctx, winner, scores)
	case c.dupeTimerRunning() && c.dupeAllForced():
		c.dupeAutoPause(ctx)
	default:
		c.dupeTradeAndReport(ctx)
	}
	c.dupeClearState()
}

func (c *Controller) dupeAllForced() bool {
	for _, f := range c.dupe.forced {
		if !f {
			return false
		}
	}
	return true
}

func (c *Controller) dupeCommitMoveAndReport(ctx context.Context, winner int, scores []int) {
	mi := model.MoveInfo{Horizontal: true}
	if scores[winner] > 0 {
		if cur, err := c.board.CurrentMove(winner); err == nil {
			mi = cur
		}
	}
	newTiles := c.fetchTiles(winner, len(mi.Tiles), nil, false)
	if err := c.board.CommitDupeTurn(mi, newTiles, scores); err != nil {
		c.pool.Replace(newTiles)
		c.logger.Error("committing duplicate move failed", slog.String("error", err.Error()))
		return
	}

	ts := c.board.TileSet()
	w := c.newMessage(protoDupeStuff)
	w.PutBits(dupeSubBits, uint32(dupeMovesHost))
	mi.WriteTo(w, ts)
	model.WriteTiles(w, ts, newTiles)
	w.PutBits(model.NPlayersBits, uint32(len(scores)))
	for _, sc := range scores {
		w.PutU32VL(uint32(sc))
	}
	c.sendToGuests(ctx, w, nil)

	c.resetDupTimer()
	c.recordPrevMove()
	c.logger.Debug("duplicate round committed", slog.Int("winner", winner), slog.Any("scores", scores))
}

// dupeTradeAndReport swaps the shared tray when no move scored
func (c *Controller) dupeTradeAndReport(ctx context.Context) {
	for p := range c.dupe.made {
		c.board.ResetCurrentTurn(p)
	}
	old := c.board.TrayTiles(0)
	c.pool.Replace(old)
	newTiles := c.pool.Request(len(old))
	if err := c.board.CommitDupeTrade(old, newTiles); err != nil {
		c.pool.Replace(newTiles)
		_ = c.pool.Remove(old)
		c.logger.Error("duplicate trade failed", slog.String("error", err.Error()))
		return
	}

	ts := c.board.TileSet()
	w := c.newMessage(protoDupeStuff)
	w.PutBits(dupeSubBits, uint32(dupeTradesHost))
	model.WriteTiles(w, ts, old)
	model.WriteTiles(w, ts, newTiles)
	c.sendToGuests(ctx, w, nil)

	c.resetDupTimer()
	c.recordPrevMove()
}

// dupeForceCommits stores a move for every local player still thinking
// once the round's clock runs out. Illegal placements become passes.
func (c *Controller) dupeForceCommits(ctx context.Context) bool {
	if !c.dupeTimerExpired() {
		return false
	}
	did := false
	for p := range c.dupe.made {
		if c.dupe.made[p] || !c.isLocal(p) || c.state != StateInTurn {
			continue
		}
		if _, err := c.board.CurrentMove(p); err != nil {
			c.board.ResetCurrentTurn(p)
		} else if bad, _ := c.board.CheckMoveLegal(p); len(bad) > 0 && c.info.Phonies == model.PhoniesDisallow {
			c.board.ResetCurrentTurn(p)
		}
		if err := c.commitMoveImpl(ctx, p, nil, true); err == nil {
			did = true
		}
	}
	return did
}

func (c *Controller) dupeHandleStuff(ctx context.Context, from comms.Channel, r *bitstream.Reader) bool {
	sub := dupeSub(r.GetBits(dupeSubBits))
	if r.Err() != nil {
		return c.drop(protoDupeStuff, from, "truncated")
	}
	switch sub {
	case dupeMoveClient:
		if !c.amHost() {
			return c.drop(protoDupeStuff, from, "moves for host sent to guest")
		}
		return c.dupeHandleClientMoves(ctx, from, r)
	case dupeMovesHost:
		if c.amHost() {
			return c.drop(protoDupeStuff, from, "host moves sent to host")
		}
		return c.dupeHandleHostMove(ctx, from, r)
	case dupeTradesHost:
		if c.amHost() {
			return c.drop(protoDupeStuff, from, "host trade sent to host")
		}
		return c.dupeHandleHostTrade(ctx, from, r)
	case dupePause:
		return c.dupeHandlePause(ctx, from, r)
	default:
		return c.drop(protoDupeStuff, from, "unknown duplicate message")
	}
}

func (c *Controller) dupeHandleClientMoves(ctx context.Context, from comms.Channel, r *bitstream.Reader) bool {
	if c.state != StateInTurn {
		return c.drop(protoDupeStuff, from, "not in turn")
	}
	type clientMove struct {
		player int
		forced bool
		mi     model.MoveInfo
	}
	ts := c.board.TileSet()
	n := int(r.GetBits(model.NPlayersBits))
	moves := make([]clientMove, 0, n)
	for i := 0; i < n && r.Err() == nil; i++ {
		m := clientMove{player: int(r.GetBits(model.PlayerNumBits)), forced: r.GetBool()}
		m.mi = model.ReadMoveInfo(r, ts)
		moves = append(moves, m)
	}
	if r.Err() != nil {
		return c.drop(protoDupeStuff, from, "truncated")
	}
	for _, m := range moves {
		if m.player >= c.info.NPlayers() || c.isLocal(m.player) {
			c.logger.Warn("ignoring duplicate move", slog.Int("player", m.player), slog.Int("channel", int(from)))
			continue
		}
		if err := c.board.MakeTurnFromMoveInfo(m.player, m.mi); err != nil {
			c.logger.Warn("duplicate move does not fit tray, counting as pass",
				slog.Int("player", m.player),
				slog.String("error", err.Error()),
			)
		}
		c.dupe.made[m.player] = true
		c.dupe.forced[m.player] = m.forced
	}
	c.dupeCheckTurns(ctx)
	c.dupePostStatus()
	c.nextTurn(ctx, pickNext)
	return true
}

func (c *Controller) dupeHandleHostMove(ctx context.Context, from comms.Channel, r *bitstream.Reader) bool {
	ts := c.board.TileSet()
	mi := model.ReadMoveInfo(r, ts)
	newTiles := model.ReadTiles(r, ts)
	n := int(r.GetBits(model.NPlayersBits))
	scores := make([]int, 0, n)
	for i := 0; i < n && r.Err() == nil; i++ {
		scores = append(scores, int(r.GetU32VL()))
	}
	if r.Err() != nil || n != c.info.NPlayers() {
		return c.drop(protoDupeStuff, from, "malformed host move")
	}
	if c.state != StateInTurn {
		return c.drop(protoDupeStuff, from, "not in turn")
	}
	c.resetDupTimer()
	if err := c.pool.Remove(newTiles); err != nil {
		c.reportBadStack(protoDupeStuff, from, err)
		return false
	}
	if err := c.board.CommitDupeTurn(mi, newTiles, scores); err != nil {
		c.pool.Replace(newTiles)
		c.reportBadStack(protoDupeStuff, from, err)
		return false
	}
	c.recordPrevMove()
	c.dupeClearState()
	c.nextTurn(ctx, pickNext)
	return true
}

func (c *Controller) dupeHandleHostTrade(ctx context.Context, from comms.Channel, r *bitstream.Reader) bool {
	ts := c.board.TileSet()
	old := model.ReadTiles(r, ts)
	newTiles := model.ReadTiles(r, ts)
	if r.Err() != nil || len(old) != len(newTiles) {
		return c.drop(protoDupeStuff, from, "malformed host trade")
	}
	if c.state != StateInTurn {
		return c.drop(protoDupeStuff, from, "not in turn")
	}
	c.pool.Replace(old)
	if err := c.pool.Remove(newTiles); err != nil {
		_ = c.pool.Remove(old)
		c.reportBadStack(protoDupeStuff, from, err)
		return false
	}
	if err := c.board.CommitDupeTrade(old, newTiles); err != nil {
		c.pool.Replace(newTiles)
		_ = c.pool.Remove(old)
		c.reportBadStack(protoDupeStuff, from, err)
		return false
	}
	c.resetDupTimer()
	c.recordPrevMove()
	c.dupeClearState()
	c.nextTurn(ctx, pickNext)
	return true
}

func (c *Controller) dupeTimerEnabled() bool {
	return c.info.Duplicate && c.info.TimerEnabled
}

func (c *Controller) dupeTimerRunning() bool {
	return c.dupeTimerEnabled() && c.dupe.timerExpires > 0
}

func (c *Controller) dupeTimerExpired() bool {
	return c.dupeTimerRunning() && c.nowSeconds() >= int64(c.dupe.timerExpires)
}

// resetDupTimer restarts the round clock, staying paused if it was
func (c *Controller) resetDupTimer() {
	if !c.dupeTimerEnabled() {
		return
	}
	if c.dupe.timerExpires < 0 {
		c.dupe.timerExpires = -int32(c.info.GameSeconds)
		return
	}
	c.dupe.timerExpires = int32(c.nowSeconds()) + int32(c.info.GameSeconds)
	c.armDupTimer()
}

func (c *Controller) armDupTimer() {
	left := int64(c.dupe.timerExpires) - c.nowSeconds()
	if left < 0 {
		left = 0
	}
	c.cb.SetTimer(TimerDupCheck, time.Duration(left)*time.Second)
}

// DupTimerRemaining returns the seconds left in the round
func (c *Controller) DupTimerRemaining() int {
	switch {
	case c.dupe.timerExpires > 0:
		return max(0, int(int64(c.dupe.timerExpires)-c.nowSeconds()))
	case c.dupe.timerExpires < 0:
		return int(-c.dupe.timerExpires)
	default:
		return 0
	}
}

// DupTimerPaused reports whether the round clock is stopped
func (c *Controller) DupTimerPaused() bool {
	return c.dupe.timerExpires < 0
}

// DupPause stops the round clock on behalf of a local player
func (c *Controller) DupPause(ctx context.Context, player int, msg string) error {
	if !c.dupeTimerRunning() || c.state != StateInTurn {
		return model.ErrWrongState
	}
	c.dupePauseImpl()
	c.sendPause(ctx, Paused, player, msg, nil)
	c.cb.InformPaused(player, Paused, msg)
	return nil
}

// DupUnpause restarts the round clock with the time it had left
func (c *Controller) DupUnpause(ctx context.Context, player int, msg string) error {
	if !c.dupeTimerEnabled() || c.dupe.timerExpires >= 0 || c.state != StateInTurn {
		return model.ErrWrongState
	}
	c.dupe.timerExpires = int32(c.nowSeconds()) - c.dupe.timerExpires
	c.armDupTimer()
	c.sendPause(ctx, Unpaused, player, msg, nil)
	c.cb.InformPaused(player, Unpaused, msg)
	return nil
}

func (c *Controller) dupePauseImpl() {
	if c.dupe.timerExpires > 0 {
		c.dupe.timerExpires = -(c.dupe.timerExpires - int32(c.nowSeconds()))
	}
	c.cb.ClearTimer(TimerDupCheck)
}

// dupeAutoPause stops the clock when every player timed out with no move
func (c *Controller) dupeAutoPause(ctx context.Context) {
	c.resetDupTimer()
	c.dupeClearState()
	c.dupePauseImpl()
	c.sendPause(ctx, AutoPaused, -1, "", nil)
	c.cb.InformPaused(-1, AutoPaused, "")
	c.logger.Info("round clock auto-paused")
}

func (c *Controller) sendPause(ctx context.Context, pt PauseType, turn int, msg string, skip *comms.Channel) {
	if c.info.Role == model.RoleStandalone {
		return
	}
	w := c.newMessage(protoDupeStuff)
	w.PutBits(dupeSubBits, uint32(dupePause))
	w.PutBool(c.info.Role == model.RoleGuest)
	w.PutBits(2, uint32(pt))
	if pt != AutoPaused {
		w.PutBits(model.PlayerNumBits, uint32(max(turn, 0)))
	}
	w.PutU32(uint32(c.dupe.timerExpires))
	if pt != AutoPaused {
		w.PutString(msg)
	}
	if c.info.Role == model.RoleGuest {
		c.sendToHost(ctx, w)
	} else {
		c.sendToGuests(ctx, w, skip)
	}
}

func (c *Controller) dupeHandlePause(ctx context.Context, from comms.Channel, r *bitstream.Reader) bool {
	isClient := r.GetBool()
	pt := PauseType(r.GetBits(2))
	turn := -1
	if pt != AutoPaused {
		turn = int(r.GetBits(model.PlayerNumBits))
	}
	expires := int32(r.GetU32())
	msg := ""
	if pt != AutoPaused {
		msg = r.GetString()
	}
	if r.Err() != nil {
		return c.drop(protoDupeStuff, from, "truncated pause")
	}
	if isClient != c.amHost() {
		return c.drop(protoDupeStuff, from, "pause from wrong side")
	}
	if pt == AutoPaused {
		c.dupeClearState()
	}
	c.dupe.timerExpires = expires
	if expires > 0 {
		c.armDupTimer()
	} else {
		c.cb.ClearTimer(TimerDupCheck)
	}
	if c.info.Role == model.RoleHost {
		c.sendPause(ctx, pt, turn, msg, &from)
	}
	c.cb.InformPaused(turn, pt, msg)
	return true
}
