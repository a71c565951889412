package board

import (
	"fmt"
	"strings"

	"github.com/mcoot/xwsync/internal/model"
)

func (m *Model) push(e model.StackEntry) {
	e.MoveNum = len(m.stack)
	m.stack = append(m.stack, e)
}

func (m *Model) clearPrevMove() {
	for i := range m.cells {
		if m.cells[i].IsCommitted() {
			m.cells[i] &^= CellPrevMove
		}
	}
}

// placePending turns a player's pending tiles into committed cells, bumping
// any other player's pending tile off the same squares
func (m *Model) placePending(p int) {
	m.clearPrevMove()
	mine := m.players[p].pending
	m.players[p].pending = nil
	for _, pt := range mine {
		for q := range m.players {
			if q != p {
				_ = m.MoveBoardToTray(q, pt.col, pt.row)
			}
		}
		m.cells[m.cellIndex(pt.col, pt.row)] = committedCell(pt.face, pt.blank, p) | CellPrevMove
	}
	for q := range m.players {
		m.players[q].moveScore = -1
	}
}

// CommitTurn commits a player's pending tiles as a move and hands them
// newTiles drawn from the pool. No pending tiles is a pass.
func (m *Model) CommitTurn(p int, newTiles []model.Tile) (int, error) {
	mi, err := m.CurrentMove(p)
	if err != nil {
		return 0, err
	}
	score := 0
	if !mi.IsPass() {
		score = m.oracle.Score(m, mi, m.cfg.TraySize)
	}
	m.placePending(p)
	m.push(model.StackEntry{
		Type:     model.EntryMove,
		Player:   p,
		Move:     mi,
		NewTiles: append([]model.Tile(nil), newTiles...),
	})
	if !m.cfg.Duplicate {
		m.players[p].score += score
	}
	m.AddNewTiles(p, newTiles)
	return score, nil
}

// MakeTileTrade swaps old tray tiles for new ones in the same tray positions
func (m *Model) MakeTileTrade(p int, oldTiles, newTiles []model.Tile) error {
	if err := m.checkPlayer(p); err != nil {
		return err
	}
	if len(oldTiles) != len(newTiles) {
		return fmt.Errorf("trading %d tiles for %d: %w", len(oldTiles), len(newTiles), model.ErrStackDesync)
	}
	m.ResetCurrentTurn(p)
	tray, err := swapTiles(m.players[p].tray, oldTiles, newTiles)
	if err != nil {
		return err
	}
	m.players[p].tray = tray
	m.push(model.StackEntry{
		Type:     model.EntryTrade,
		Player:   p,
		OldTiles: append([]model.Tile(nil), oldTiles...),
		NewTiles: append([]model.Tile(nil), newTiles...),
	})
	return nil
}

// CommitRejectedPhony records a move that lost its turn to bad words. The
// tiles stay in the player's tray.
func (m *Model) CommitRejectedPhony(p int, mi model.MoveInfo) error {
	if err := m.checkPlayer(p); err != nil {
		return err
	}
	m.ResetCurrentTurn(p)
	m.push(model.StackEntry{Type: model.EntryPhony, Player: p, Move: mi.Clone()})
	return nil
}

// RejectPreviousMove undoes the latest move and records it as a phony,
// returning the player whose move it was
func (m *Model) RejectPreviousMove(pool Pool) (int, error) {
	if len(m.stack) == 0 {
		return 0, model.ErrNothingToUndo
	}
	top := m.stack[len(m.stack)-1]
	if top.Type != model.EntryMove {
		return 0, fmt.Errorf("latest entry is a %s: %w", top.Type, model.ErrStackDesync)
	}
	if _, _, err := m.UndoLatestMoves(pool, 1); err != nil {
		return 0, err
	}
	if err := m.CommitRejectedPhony(top.Player, top.Move); err != nil {
		return 0, err
	}
	return top.Player, nil
}

// CommitDupeTurn commits the move chosen for a duplicate round. Every
// player's tray holds the same tiles, so the move is played from player 0's
// tray and the result cloned. scores holds each player's points for the round.
func (m *Model) CommitDupeTurn(mi model.MoveInfo, newTiles []model.Tile, scores []int) error {
	if len(scores) != len(m.players) {
		return fmt.Errorf("%d scores for %d players: %w", len(scores), len(m.players), model.ErrInvalidPlayer)
	}
	m.resetAllTurns()
	if err := m.MakeTurnFromMoveInfo(0, mi); err != nil {
		return err
	}
	m.placePending(0)
	m.push(model.StackEntry{
		Type:     model.EntryMove,
		Player:   0,
		Move:     mi.Clone(),
		NewTiles: append([]model.Tile(nil), newTiles...),
		Scores:   append([]int(nil), scores...),
	})
	for p, sc := range scores {
		m.players[p].score += sc
	}
	m.AddNewTiles(0, newTiles)
	m.CloneDupeTrays()
	return nil
}

// CommitDupeTrade swaps tiles in the shared duplicate tray
func (m *Model) CommitDupeTrade(oldTiles, newTiles []model.Tile) error {
	m.resetAllTurns()
	if err := m.MakeTileTrade(0, oldTiles, newTiles); err != nil {
		return err
	}
	m.CloneDupeTrays()
	return nil
}

// Describe renders a stack entry for move history
func (m *Model) Describe(e model.StackEntry) string {
	switch e.Type {
	case model.EntryAssign:
		return fmt.Sprintf("player %d was dealt %s", e.Player, m.lettersOf(e.NewTiles))
	case model.EntryTrade:
		return fmt.Sprintf("player %d traded %d tiles", e.Player, len(e.OldTiles))
	case model.EntryPhony:
		return fmt.Sprintf("player %d lost a turn playing %s", e.Player, m.moveText(e.Move))
	case model.EntryMove:
		if e.Move.IsPass() {
			return fmt.Sprintf("player %d passed", e.Player)
		}
		col, row := e.Move.Position(0)
		dir := "down"
		if e.Move.Horizontal {
			dir = "across"
		}
		return fmt.Sprintf("player %d played %s %s at %c%d", e.Player, m.moveText(e.Move), dir, 'A'+rune(col), row+1)
	default:
		return e.Type.String()
	}
}

func (m *Model) lettersOf(tiles []model.Tile) string {
	var sb strings.Builder
	for _, t := range tiles {
		sb.WriteString(m.tileSet.Letter(t))
	}
	return sb.String()
}

func (m *Model) moveText(mi model.MoveInfo) string {
	var sb strings.Builder
	for _, t := range mi.Tiles {
		l := m.tileSet.Letter(t.Tile)
		if t.Blank {
			l = strings.ToLower(l)
		}
		sb.WriteString(l)
	}
	return sb.String()
}

// swapTiles replaces each of oldTiles in tray with the matching entry of
// newTiles, keeping tray order
func swapTiles(tray, oldTiles, newTiles []model.Tile) ([]model.Tile, error) {
	out := append([]model.Tile(nil), tray...)
	used := make([]bool, len(out))
	for i, t := range oldTiles {
		found := false
		for j := range out {
			if !used[j] && out[j] == t {
				out[j] = newTiles[i]
				used[j] = true
				found = true
				break
			}
		}
		if !found {
			return tray, fmt.Errorf("tile %d not in tray: %w", t, model.ErrBadTrayIndex)
		}
	}
	return out, nil
}
