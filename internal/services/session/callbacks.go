package session

import (
	"log/slog"
	"time"

	"github.com/mcoot/xwsync/internal/model"
	"github.com/mcoot/xwsync/internal/services/game"
)

// callbacks connects a controller to its session. The controller only
// calls them with the session lock held.
type callbacks struct {
	game.NopCallbacks
	s *Session
}

func (c *callbacks) SetTimer(reason game.TimerReason, d time.Duration) {
	if t, ok := c.s.timers[reason]; ok {
		t.Stop()
	}
	c.s.timers[reason] = time.AfterFunc(d, func() { c.s.fire(reason) })
}

func (c *callbacks) ClearTimer(reason game.TimerReason) {
	if t, ok := c.s.timers[reason]; ok {
		t.Stop()
		delete(c.s.timers, reason)
	}
}

func (c *callbacks) RequestDo() {
	c.s.doPending = true
}

func (c *callbacks) UserError(code model.UserError) {
	c.s.userErrors = append(c.s.userErrors, code)
	c.s.logger.Warn("user error", slog.String("code", string(code)))
}

func (c *callbacks) NotifyIllegalWords(player int, words []string, dictName string, forMe bool) {
	c.s.logger.Info("illegal words",
		slog.Int("player", player),
		slog.Any("words", words),
		slog.String("dict", dictName),
		slog.Bool("local", forMe),
	)
}

func (c *callbacks) GameOver(quitter int) {
	if c.s.over {
		return
	}
	c.s.over = true
	close(c.s.done)
	c.s.logger.Info("game over", slog.Int("quitter", quitter))
}

func (c *callbacks) InformMove(player int, description string) {
	c.s.moves = append(c.s.moves, description)
}

func (c *callbacks) ChatReceived(from int, msg string, _ uint32) {
	c.s.logger.Info("chat", slog.Int("from", from), slog.String("text", msg))
}

func (c *callbacks) DupStatus(msg string) {
	c.s.logger.Debug("duplicate status", slog.String("status", msg))
}
