package game

import (
	"context"
	"log/slog"
	"time"

	"github.com/mcoot/xwsync/internal/services/bot"
)

// robotMovePending reports whether a local robot is due to move
func (c *Controller) robotMovePending() bool {
	t := c.turn
	if c.engine == nil || t < 0 || t >= c.info.NPlayers() {
		return false
	}
	p := c.info.Players[t]
	if !p.IsLocal || !p.IsRobot {
		return false
	}
	if c.info.Duplicate && c.dupe.made[t] {
		return false
	}
	return c.tileCountsOk() && c.passesOk()
}

// postponeRobotMove starts the slow-robot timer. It reports true while a
// robot should keep waiting.
func (c *Controller) postponeRobotMove() bool {
	if c.robotWaiting {
		return true
	}
	if !c.features.SlowRobots || c.features.RobotDelay <= 0 {
		return false
	}
	ms := int(c.features.RobotDelay / time.Millisecond)
	d := time.Duration(c.random.Intn(ms+1)) * time.Millisecond
	if d == 0 {
		return false
	}
	c.robotWaiting = true
	c.cb.SetTimer(TimerSlowRobot, d)
	return true
}

// makeRobotMove plays, trades or passes for the robot whose turn it is. It
// reports whether the robot acted.
func (c *Controller) makeRobotMove(ctx context.Context) bool {
	t := c.turn
	iq := c.info.Players[t].RobotIQ
	if iq <= 0 {
		iq = bot.MaxIQ
	}
	canTrade := !c.info.Duplicate && c.pool.Left() >= c.info.TraySize
	forceTrade := c.features.RobotTradePct > 0 && canTrade && c.random.Intn(100) < c.features.RobotTradePct

	c.board.ResetCurrentTurn(t)
	tray := c.board.TrayTiles(t)
	c.chargeTime(t)

	canMove := false
	if !forceTrade {
		mi, ok := c.engine.FindMove(c.board, tray, iq)
		canMove = ok
		if ok {
			if err := c.board.MakeTurnFromMoveInfo(t, mi); err != nil {
				c.logger.Error("robot move does not fit tray",
					slog.Int("player", t),
					slog.String("error", err.Error()),
				)
				canMove = false
			}
		}
	}

	if forceTrade || (!canMove && canTrade) {
		if err := c.commitTrade(ctx, t, tray, nil); err != nil {
			c.logger.Warn("robot trade failed", slog.Int("player", t), slog.String("error", err.Error()))
			return false
		}
		return true
	}
	if !canMove && !c.passesOk() {
		return false
	}
	if err := c.commitMoveImpl(ctx, t, nil, false); err != nil {
		c.logger.Warn("robot move failed", slog.Int("player", t), slog.String("error", err.Error()))
		return false
	}
	return true
}
