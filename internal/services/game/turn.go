package game

import (
	"context"
	"fmt"
	"log/slog"
	"slices"

	"github.com/mcoot/xwsync/internal/model"
)

// nextTurn arguments besides an explicit player
const (
	pickNext = -1
	pickCur  = -2
)

// nextTurn moves play on after a move, trade, undo or confirmation. pickCur
// takes the turn from the stack, pickNext advances from the current player.
func (c *Controller) nextTurn(ctx context.Context, next int) {
	switch next {
	case pickCur:
		next = c.board.NextTurn()
	case pickNext:
		if c.state != StateInTurn {
			c.logger.Debug("not advancing turn", slog.String("state", c.state.String()))
			return
		}
		if c.turn >= 0 {
			if c.info.Duplicate {
				next = c.dupeNextTurn()
			} else {
				next = c.board.NextTurn()
			}
		}
	}

	more := false
	c.setState(StateInTurn)
	if c.tileCountsOk() && c.passesOk() {
		c.setTurn(next)
	} else if c.amHost() {
		c.setState(StateNeedSendEndGame)
		more = true
	} else if c.turn >= 0 {
		c.setTurn(-1)
	}

	if c.showPrevMove {
		c.showPrevMove = false
		c.cb.InformMove(c.prevMovePlayer, c.prevMove)
	}
	if c.robotMovePending() && !c.postponeRobotMove() {
		more = true
	}
	if more {
		c.cb.RequestDo()
	}
}

func (c *Controller) setTurn(turn int) {
	if !c.info.Duplicate && turn == c.turn && c.info.NPlayers() > 1 {
		return
	}
	if c.info.Duplicate && turn >= 0 {
		turn = c.dupeNextTurn()
	}
	c.turn = turn
	c.lastMoveTime = uint32(c.nowSeconds())
	c.cb.TurnChanged(turn)
}

// requestRobotDo asks for another Do when a local robot is up
func (c *Controller) requestRobotDo() {
	if c.robotMovePending() && !c.postponeRobotMove() {
		c.cb.RequestDo()
	}
}

// tileCountsOk reports whether the game can go on: the pool has tiles, or
// nobody has played out
func (c *Controller) tileCountsOk() bool {
	if c.pool.Left() > 0 {
		return true
	}
	n := c.info.NPlayers()
	if c.info.Duplicate {
		for p := 0; p < n; p++ {
			if c.board.NumTilesTotal(p) > 0 {
				return true
			}
		}
		return false
	}
	for p := 0; p < n; p++ {
		if c.board.NumTilesTotal(p) == 0 {
			return false
		}
	}
	return true
}

// passesOk is false once every player has passed MaxPasses times running
func (c *Controller) passesOk() bool {
	if c.features.MaxPasses <= 0 {
		return true
	}
	limit := c.features.MaxPasses
	if !c.info.Duplicate {
		limit *= c.info.NPlayers()
	}
	return c.board.ConsecutivePasses() < limit
}

// fetchTiles draws n tiles for player on top of have. With forceCanPlay, or
// in duplicate mode, a tray that allows no move is redrawn a bounded number
// of times.
func (c *Controller) fetchTiles(player, n int, have []model.Tile, forceCanPlay bool) []model.Tile {
	if n > c.pool.Left() {
		n = c.pool.Left()
	}
	out := append([]model.Tile(nil), have...)
	if n <= 0 {
		return c.sorted(out)
	}
	check := (forceCanPlay || c.info.Duplicate) && c.engine != nil
	for tries := 0; ; tries++ {
		drawn := c.pool.Request(n)
		if !check || tries >= c.features.BadTrayRetries {
			return c.sorted(append(out, drawn...))
		}
		tray := append(c.board.TrayTiles(player), out...)
		tray = append(tray, drawn...)
		if c.engine.TrayAllowsMoves(c.board, tray) {
			return c.sorted(append(out, drawn...))
		}
		c.logger.Debug("redrawing tray with no moves", slog.Int("player", player), slog.Int("try", tries+1))
		c.pool.Replace(drawn)
	}
}

func (c *Controller) sorted(tiles []model.Tile) []model.Tile {
	if c.features.SortTrays {
		slices.Sort(tiles)
	}
	return tiles
}

// availableTiles lists the pool's contents, one entry per tile
func (c *Controller) availableTiles() []model.Tile {
	var out []model.Tile
	for face := 0; face < c.board.TileSet().NumFaces(); face++ {
		for i := c.pool.CountOf(model.Tile(face)); i > 0; i-- {
			out = append(out, model.Tile(face))
		}
	}
	return out
}

// assignTilesToAll deals every empty tray. In duplicate mode one tray is
// dealt and shared.
func (c *Controller) assignTilesToAll() error {
	n := c.info.NPlayers()
	numAssigned := min(c.pool.Left()/n, c.info.TraySize)
	for p := 0; p < n; p++ {
		if c.board.NumTilesInTray(p) > 0 {
			continue
		}
		var have []model.Tile
		if c.info.Role == model.RoleStandalone && c.features.AllowPickTiles && !c.info.Players[p].IsRobot {
			picked := c.cb.PickTiles(p, c.availableTiles())
			if len(picked) > numAssigned {
				picked = picked[:numAssigned]
			}
			if err := c.pool.Remove(picked); err != nil {
				c.logger.Warn("ignoring picked tiles", slog.Int("player", p), slog.String("error", err.Error()))
			} else {
				have = picked
			}
		}
		tiles := c.fetchTiles(p, numAssigned-len(have), have, p == 0)
		if c.info.Duplicate {
			return c.board.AssignDupeTiles(tiles)
		}
		if err := c.board.AssignPlayerTiles(p, tiles); err != nil {
			c.pool.Replace(tiles)
			return fmt.Errorf("dealing player %d: %w", p, err)
		}
	}
	return nil
}

// recordPrevMove remembers the latest stack entry for InformMove
func (c *Controller) recordPrevMove() {
	e, ok := c.board.LastEntry()
	if !ok {
		return
	}
	c.prevMove = c.board.Describe(e)
	c.prevMovePlayer = e.Player
	c.showPrevMove = true
}

// chargeTime adds the time since the turn started to player's total
func (c *Controller) chargeTime(player int) {
	if c.lastMoveTime == 0 || player < 0 || player >= len(c.secondsUsed) {
		return
	}
	if d := c.nowSeconds() - int64(c.lastMoveTime); d > 0 {
		c.secondsUsed[player] += int(d)
	}
}
