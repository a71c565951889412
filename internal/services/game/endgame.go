package game

import (
	"context"
	"log/slog"

	"github.com/mcoot/xwsync/internal/bitstream"
	"github.com/mcoot/xwsync/internal/model"
)

// EndGame ends the game now. On a guest it asks the host to end it.
func (c *Controller) EndGame(ctx context.Context) error {
	if !c.state.inPlay() {
		return model.ErrWrongState
	}
	c.endGameInternal(ctx, -1)
	return nil
}

// Resign ends the game with player as the quitter
func (c *Controller) Resign(ctx context.Context, player int) error {
	if !c.state.inPlay() {
		return model.ErrWrongState
	}
	if !c.isLocal(player) {
		return model.ErrInvalidPlayer
	}
	c.endGameInternal(ctx, player)
	return nil
}

func (c *Controller) endGameInternal(ctx context.Context, quitter int) {
	if c.info.Role == model.RoleGuest {
		w := c.newMessage(protoClientReqEndGame)
		c.writeQuitter(w, quitter)
		c.sendToHost(ctx, w)
		return
	}
	w := c.newMessage(protoEndGame)
	c.writeQuitter(w, quitter)
	c.sendToGuests(ctx, w, nil)
	c.doEndGame(quitter)
}

func (c *Controller) doEndGame(quitter int) {
	c.setState(StateGameOver)
	c.setTurn(-1)
	c.quitter = quitter
	c.cb.ClearTimer(TimerDupCheck)
	c.logger.Info("game over", slog.Int("quitter", quitter), slog.Any("scores", c.board.FinalScores()))
	c.cb.GameOver(quitter)
}

func (c *Controller) writeQuitter(w *bitstream.Writer, quitter int) {
	if w.Version() < bitstream.VersionDictName {
		return
	}
	if quitter < 0 {
		w.PutU8(noPlayer)
		return
	}
	w.PutU8(uint8(quitter))
}

func (c *Controller) readQuitter(r *bitstream.Reader) int {
	if r.Version() < bitstream.VersionDictName {
		return -1
	}
	q := int(r.GetU8())
	if r.Err() != nil || q >= c.info.NPlayers() {
		return -1
	}
	return q
}
