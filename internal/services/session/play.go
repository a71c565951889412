package session

import (
	"context"
	"fmt"
	"strings"

	"github.com/mcoot/xwsync/internal/model"
	"github.com/mcoot/xwsync/internal/services/game"
)

// ActionKind names something a local player can do
type ActionKind string

const (
	ActionMove    ActionKind = "move"
	ActionPass    ActionKind = "pass"
	ActionTrade   ActionKind = "trade"
	ActionUndo    ActionKind = "undo"
	ActionEnd     ActionKind = "end"
	ActionResign  ActionKind = "resign"
	ActionChat    ActionKind = "chat"
	ActionPause   ActionKind = "pause"
	ActionUnpause ActionKind = "unpause"
)

// Placement puts one tray tile on the board. A blank is played by setting
// Blank and naming the letter it stands for.
type Placement struct {
	Col    int    `json:"col"`
	Row    int    `json:"row"`
	Letter string `json:"letter"`
	Blank  bool   `json:"blank,omitempty"`
}

// Action is one request from a local player
type Action struct {
	Kind   ActionKind  `json:"kind"`
	Player int         `json:"player"`
	Tiles  []Placement `json:"tiles,omitempty"`
	// Trade lists the letters to trade back, "_" for a blank
	Trade string `json:"trade,omitempty"`
	Text  string `json:"text,omitempty"`
	// Limit bounds how many moves an undo may take back; 0 undoes back
	// to the latest human move
	Limit int `json:"limit,omitempty"`
}

// Play applies an action and runs whatever it sets off, robot replies
// included
func (s *Session) Play(ctx context.Context, a Action) error {
	return s.Call(ctx, func(c *game.Controller) error {
		switch a.Kind {
		case ActionMove:
			return s.move(ctx, c, a.Player, a.Tiles)
		case ActionPass:
			c.Board().ResetCurrentTurn(a.Player)
			return c.CommitMove(ctx, a.Player, nil)
		case ActionTrade:
			tiles, err := s.parseTiles(a.Trade)
			if err != nil {
				return err
			}
			if c.CurrentTurn() != a.Player {
				return model.ErrNotYourTurn
			}
			return c.CommitTrade(ctx, tiles, nil)
		case ActionUndo:
			ok, err := c.HandleUndo(ctx, a.Limit)
			if err == nil && !ok {
				err = model.ErrNothingToUndo
			}
			return err
		case ActionEnd:
			return c.EndGame(ctx)
		case ActionResign:
			return c.Resign(ctx, a.Player)
		case ActionChat:
			return c.SendChat(ctx, a.Text)
		case ActionPause:
			return c.DupPause(ctx, a.Player, a.Text)
		case ActionUnpause:
			return c.DupUnpause(ctx, a.Player, a.Text)
		default:
			return fmt.Errorf("unknown action %q: %w", a.Kind, model.ErrWrongState)
		}
	})
}

func (s *Session) move(ctx context.Context, c *game.Controller, player int, tiles []Placement) error {
	b := c.Board()
	if len(tiles) == 0 {
		return model.ErrNoTilesPlaced
	}
	if !c.GameInfo().Duplicate && c.CurrentTurn() != player {
		return model.ErrNotYourTurn
	}
	b.ResetCurrentTurn(player)
	ts := s.deps.TileSet
	for _, pl := range tiles {
		face, ok := ts.FaceFor(pl.Letter)
		if !ok {
			b.ResetCurrentTurn(player)
			return fmt.Errorf("letter %q: %w", pl.Letter, model.ErrBadTrayIndex)
		}
		want := face
		if pl.Blank {
			want = model.Tile(ts.Blank)
		}
		idx := indexOf(b.TrayTiles(player), want)
		if idx < 0 {
			b.ResetCurrentTurn(player)
			return fmt.Errorf("no %q in tray: %w", pl.Letter, model.ErrBadTrayIndex)
		}
		if err := b.MoveTrayToBoard(player, pl.Col, pl.Row, idx, face); err != nil {
			b.ResetCurrentTurn(player)
			return err
		}
	}
	if err := c.CommitMove(ctx, player, nil); err != nil {
		b.ResetCurrentTurn(player)
		return err
	}
	return nil
}

func (s *Session) parseTiles(letters string) ([]model.Tile, error) {
	ts := s.deps.TileSet
	var out []model.Tile
	for _, r := range strings.ToUpper(letters) {
		if r == '_' && ts.Blank >= 0 {
			out = append(out, model.Tile(ts.Blank))
			continue
		}
		t, ok := ts.FaceFor(string(r))
		if !ok {
			return nil, fmt.Errorf("letter %q: %w", r, model.ErrBadTrayIndex)
		}
		out = append(out, t)
	}
	return out, nil
}

func indexOf(tiles []model.Tile, t model.Tile) int {
	for i, x := range tiles {
		if x == t {
			return i
		}
	}
	return -1
}
