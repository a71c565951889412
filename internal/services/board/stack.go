package board

import (
	"fmt"

	"github.com/mcoot/xwsync/internal/bitstream"
	"github.com/mcoot/xwsync/internal/model"
)

// Stack returns a copy of the move stack
func (m *Model) Stack() []model.StackEntry {
	out := make([]model.StackEntry, len(m.stack))
	for i, e := range m.stack {
		out[i] = e.Clone()
	}
	return out
}

// StackLen returns the number of entries on the move stack
func (m *Model) StackLen() int {
	return len(m.stack)
}

// LastEntry returns the most recent stack entry
func (m *Model) LastEntry() (model.StackEntry, bool) {
	if len(m.stack) == 0 {
		return model.StackEntry{}, false
	}
	return m.stack[len(m.stack)-1].Clone(), true
}

// NextTurn returns whose turn follows the latest move or trade. Duplicate
// rounds have no turn order and always report player 0.
func (m *Model) NextTurn() int {
	if m.cfg.Duplicate || len(m.players) == 0 {
		return 0
	}
	for i := len(m.stack) - 1; i >= 0; i-- {
		if m.stack[i].Type != model.EntryAssign {
			return (m.stack[i].Player + 1) % len(m.players)
		}
	}
	return 0
}

// ConsecutivePasses counts trailing passes and phonies
func (m *Model) ConsecutivePasses() int {
	n := 0
	for i := len(m.stack) - 1; i >= 0; i-- {
		e := m.stack[i]
		switch {
		case e.Type == model.EntryAssign:
			continue
		case e.Type == model.EntryPhony:
			n++
		case e.Type == model.EntryMove && e.Move.IsPass():
			n++
		default:
			return n
		}
	}
	return n
}

// Hash fingerprints the whole move stack
func (m *Model) Hash() uint32 {
	return m.HashAt(len(m.stack))
}

// HashAt fingerprints the first n entries of the move stack
func (m *Model) HashAt(n int) uint32 {
	if n > len(m.stack) {
		n = len(m.stack)
	}
	w := bitstream.NewWriter(bitstream.VersionCurrent)
	for i := 0; i < n; i++ {
		m.stack[i].WriteTo(w, m.tileSet)
	}
	return bitstream.Hash(w.Bytes())
}

// PopToHash undoes moves until the stack's hash matches. It reports false,
// leaving the board untouched, when no prefix of the stack has that hash.
func (m *Model) PopToHash(hash uint32, pool Pool) (bool, error) {
	for n := len(m.stack); n >= 0; n-- {
		if m.HashAt(n) != hash {
			continue
		}
		if n == len(m.stack) {
			return true, nil
		}
		if _, _, err := m.UndoLatestMoves(pool, len(m.stack)-n); err != nil {
			return false, err
		}
		return true, nil
	}
	return false, nil
}

type snapshot struct {
	cells   []CellTile
	players []playerState
	stack   []model.StackEntry
}

func (m *Model) snapshot() snapshot {
	s := snapshot{
		cells:   append([]CellTile(nil), m.cells...),
		players: make([]playerState, len(m.players)),
		stack:   append([]model.StackEntry(nil), m.stack...),
	}
	for i, ps := range m.players {
		s.players[i] = playerState{
			tray:      append([]model.Tile(nil), ps.tray...),
			pending:   append([]pendingTile(nil), ps.pending...),
			score:     ps.score,
			moveScore: ps.moveScore,
		}
	}
	return s
}

func (m *Model) restore(s snapshot) {
	m.cells = s.cells
	m.players = s.players
	m.stack = s.stack
}

// UndoLatestMoves pops n entries off the stack, returning tiles to trays and
// the pool. Either all n entries are undone or nothing changes. It returns
// the player and move number of the earliest entry undone.
func (m *Model) UndoLatestMoves(pool Pool, n int) (int, int, error) {
	if n <= 0 || n > len(m.stack) {
		return 0, 0, model.ErrNothingToUndo
	}
	for _, e := range m.stack[len(m.stack)-n:] {
		if e.Type == model.EntryAssign {
			return 0, 0, model.ErrCantUndoTileAssign
		}
	}

	saved := m.snapshot()
	m.resetAllTurns()

	var toPool, fromPool []model.Tile
	var last model.StackEntry
	for i := 0; i < n; i++ {
		e := m.stack[len(m.stack)-1]
		m.stack = m.stack[:len(m.stack)-1]
		var err error
		switch e.Type {
		case model.EntryMove:
			err = m.undoMove(e)
			toPool = append(toPool, e.NewTiles...)
		case model.EntryTrade:
			err = m.undoTrade(e)
			toPool = append(toPool, e.NewTiles...)
			fromPool = append(fromPool, e.OldTiles...)
		}
		if err != nil {
			m.restore(saved)
			return 0, 0, err
		}
		last = e
	}

	if pool != nil {
		pool.Replace(toPool)
		if err := pool.Remove(fromPool); err != nil {
			_ = pool.Remove(toPool)
			m.restore(saved)
			return 0, 0, fmt.Errorf("undoing trade: %w", err)
		}
	}

	m.markPrevMove()
	for p := range m.players {
		m.players[p].moveScore = -1
	}
	return last.Player, last.MoveNum, nil
}

func (m *Model) undoMove(e model.StackEntry) error {
	p := e.Player
	if m.cfg.Duplicate {
		p = 0
	}
	if err := m.RemoveTrayTiles(p, e.NewTiles); err != nil {
		return fmt.Errorf("move %d: %w", e.MoveNum, model.ErrStackDesync)
	}
	for i, t := range e.Move.Tiles {
		col, row := e.Move.Position(i)
		m.cells[m.cellIndex(col, row)] = CellEmpty
		tile := t.Tile
		if t.Blank {
			tile = model.Tile(m.tileSet.Blank)
		}
		m.players[p].tray = append(m.players[p].tray, tile)
	}

	if m.cfg.Duplicate {
		for q, sc := range e.Scores {
			if q < len(m.players) {
				m.players[q].score -= sc
			}
		}
		m.CloneDupeTrays()
		return nil
	}
	if !e.Move.IsPass() {
		m.players[p].score -= m.oracle.Score(m, e.Move, m.cfg.TraySize)
	}
	return nil
}

func (m *Model) undoTrade(e model.StackEntry) error {
	p := e.Player
	tray, err := swapTiles(m.players[p].tray, e.NewTiles, e.OldTiles)
	if err != nil {
		return fmt.Errorf("trade %d: %w", e.MoveNum, model.ErrStackDesync)
	}
	m.players[p].tray = tray
	if m.cfg.Duplicate {
		m.CloneDupeTrays()
	}
	return nil
}

// markPrevMove flags the tiles of the latest remaining move
func (m *Model) markPrevMove() {
	m.clearPrevMove()
	for i := len(m.stack) - 1; i >= 0; i-- {
		e := m.stack[i]
		if e.Type != model.EntryMove || e.Move.IsPass() {
			continue
		}
		for j := range e.Move.Tiles {
			col, row := e.Move.Position(j)
			m.cells[m.cellIndex(col, row)] |= CellPrevMove
		}
		return
	}
}

// Replay rebuilds the board from a move stack, starting from an empty board.
// The pool is not consulted.
func (m *Model) Replay(entries []model.StackEntry) error {
	chats := m.chats
	m.clear()
	m.chats = chats
	for _, e := range entries {
		if err := m.apply(e); err != nil {
			return fmt.Errorf("replaying %s entry %d: %w", e.Type, e.MoveNum, err)
		}
	}
	return nil
}

func (m *Model) apply(e model.StackEntry) error {
	switch e.Type {
	case model.EntryAssign:
		if m.cfg.Duplicate {
			return m.AssignDupeTiles(e.NewTiles)
		}
		return m.AssignPlayerTiles(e.Player, e.NewTiles)
	case model.EntryMove:
		if m.cfg.Duplicate {
			scores := e.Scores
			if len(scores) == 0 {
				scores = make([]int, len(m.players))
			}
			return m.CommitDupeTurn(e.Move, e.NewTiles, scores)
		}
		if err := m.MakeTurnFromMoveInfo(e.Player, e.Move); err != nil {
			return err
		}
		_, err := m.CommitTurn(e.Player, e.NewTiles)
		return err
	case model.EntryTrade:
		if m.cfg.Duplicate {
			return m.CommitDupeTrade(e.OldTiles, e.NewTiles)
		}
		return m.MakeTileTrade(e.Player, e.OldTiles, e.NewTiles)
	case model.EntryPhony:
		return m.CommitRejectedPhony(e.Player, e.Move)
	default:
		return model.ErrSnapshotCorrupt
	}
}
