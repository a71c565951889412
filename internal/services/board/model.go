package board

import (
	"fmt"

	"github.com/mcoot/xwsync/internal/model"
	"github.com/mcoot/xwsync/internal/services/scoring"
)

// Config holds the board dimensions and player setup
type Config struct {
	Cols      int
	Rows      int
	NPlayers  int
	TraySize  int
	Duplicate bool
}

// ConfigFromGameInfo derives a board Config from game info
func ConfigFromGameInfo(gi *model.GameInfo) Config {
	return Config{
		Cols:      gi.Cols,
		Rows:      gi.Rows,
		NPlayers:  gi.NPlayers(),
		TraySize:  gi.TraySize,
		Duplicate: gi.Duplicate,
	}
}

// Pool is the part of the tile pool undo and phony rejection need
type Pool interface {
	Replace(tiles []model.Tile)
	Remove(tiles []model.Tile) error
	Contains(tiles []model.Tile) bool
}

type pendingTile struct {
	col, row int
	// face is what shows on the board; for a blank it is the chosen letter
	face  model.Tile
	blank bool
}

type playerState struct {
	tray      []model.Tile
	pending   []pendingTile
	score     int
	moveScore int // cached score of pending tiles, -1 when stale
}

// Model is the tile grid, per-player trays and the move stack. The stack is
// the source of truth: undo pops entries and replays their inverse.
type Model struct {
	cfg     Config
	tileSet *model.TileSet
	oracle  scoring.Oracle
	cells   []CellTile
	players []playerState
	stack   []model.StackEntry
	chats   []model.ChatMessage
}

// New creates an empty board
func New(cfg Config, tileSet *model.TileSet, oracle scoring.Oracle) *Model {
	m := &Model{
		cfg:     cfg,
		tileSet: tileSet,
		oracle:  oracle,
	}
	m.clear()
	return m
}

func (m *Model) clear() {
	m.cells = make([]CellTile, m.cfg.Cols*m.cfg.Rows)
	for i := range m.cells {
		m.cells[i] = CellEmpty
	}
	m.players = make([]playerState, m.cfg.NPlayers)
	for i := range m.players {
		m.players[i].moveScore = -1
	}
	m.stack = nil
	m.chats = nil
}

// Reset empties the board and resizes it for a new game
func (m *Model) Reset(cfg Config) {
	m.cfg = cfg
	m.clear()
}

var _ scoring.Board = (*Model)(nil)

// Config returns the board's configuration
func (m *Model) Config() Config {
	return m.cfg
}

// Dims returns the column and row counts
func (m *Model) Dims() (int, int) {
	return m.cfg.Cols, m.cfg.Rows
}

// TileSet returns the tile set tiles are drawn from
func (m *Model) TileSet() *model.TileSet {
	return m.tileSet
}

// Oracle returns the scoring oracle
func (m *Model) Oracle() scoring.Oracle {
	return m.oracle
}

// NPlayers returns the number of players
func (m *Model) NPlayers() int {
	return m.cfg.NPlayers
}

func (m *Model) inBounds(col, row int) bool {
	return col >= 0 && row >= 0 && col < m.cfg.Cols && row < m.cfg.Rows
}

func (m *Model) cellIndex(col, row int) int {
	return row*m.cfg.Cols + col
}

// Cell returns the raw state of a square
func (m *Model) Cell(col, row int) CellTile {
	if !m.inBounds(col, row) {
		return CellEmpty
	}
	return m.cells[m.cellIndex(col, row)]
}

// TileAt returns the committed tile on a square
func (m *Model) TileAt(col, row int) (model.Tile, bool, bool) {
	c := m.Cell(col, row)
	if !c.IsCommitted() {
		return 0, false, false
	}
	return c.Tile(), c.IsBlank(), true
}

func (m *Model) checkPlayer(p int) error {
	if p < 0 || p >= len(m.players) {
		return fmt.Errorf("player %d: %w", p, model.ErrInvalidPlayer)
	}
	return nil
}

// TrayTiles returns a copy of a player's tray
func (m *Model) TrayTiles(p int) []model.Tile {
	if m.checkPlayer(p) != nil {
		return nil
	}
	return append([]model.Tile(nil), m.players[p].tray...)
}

// NumTilesInTray returns the tiles left in a player's tray
func (m *Model) NumTilesInTray(p int) int {
	if m.checkPlayer(p) != nil {
		return 0
	}
	return len(m.players[p].tray)
}

// NumTilesTotal counts tray plus pending tiles
func (m *Model) NumTilesTotal(p int) int {
	if m.checkPlayer(p) != nil {
		return 0
	}
	return len(m.players[p].tray) + len(m.players[p].pending)
}

// AddNewTiles appends tiles to a tray without touching the stack
func (m *Model) AddNewTiles(p int, tiles []model.Tile) {
	m.players[p].tray = append(m.players[p].tray, tiles...)
}

// RemoveTrayTiles takes specific tiles out of a tray. Nothing is removed unless all are present.
func (m *Model) RemoveTrayTiles(p int, tiles []model.Tile) error {
	tray, err := removeTiles(m.players[p].tray, tiles)
	if err != nil {
		return err
	}
	m.players[p].tray = tray
	return nil
}

// AssignPlayerTiles gives a player their initial tiles and records it on the stack
func (m *Model) AssignPlayerTiles(p int, tiles []model.Tile) error {
	if err := m.checkPlayer(p); err != nil {
		return err
	}
	m.AddNewTiles(p, tiles)
	m.push(model.StackEntry{Type: model.EntryAssign, Player: p, NewTiles: append([]model.Tile(nil), tiles...)})
	return nil
}

// AssignDupeTiles gives the shared duplicate-mode tray its tiles
func (m *Model) AssignDupeTiles(tiles []model.Tile) error {
	if err := m.AssignPlayerTiles(0, tiles); err != nil {
		return err
	}
	m.CloneDupeTrays()
	return nil
}

// CloneDupeTrays copies player 0's tray to every other player
func (m *Model) CloneDupeTrays() {
	for p := 1; p < len(m.players); p++ {
		m.players[p].tray = append([]model.Tile(nil), m.players[0].tray...)
		m.players[p].moveScore = -1
	}
}

// MoveTrayToBoard puts a tray tile on the board as pending. blankFace names
// the letter a blank stands for and is ignored for other tiles.
func (m *Model) MoveTrayToBoard(p, col, row, trayIndex int, blankFace model.Tile) error {
	if err := m.checkPlayer(p); err != nil {
		return err
	}
	ps := &m.players[p]
	if trayIndex < 0 || trayIndex >= len(ps.tray) {
		return model.ErrBadTrayIndex
	}
	if !m.inBounds(col, row) {
		return model.ErrInvalidPosition
	}
	idx := m.cellIndex(col, row)
	if m.cells[idx].IsCommitted() {
		return model.ErrCellOccupied
	}
	for _, pt := range ps.pending {
		if pt.col == col && pt.row == row {
			return model.ErrCellOccupied
		}
	}

	tile := ps.tray[trayIndex]
	pt := pendingTile{col: col, row: row, face: tile}
	if m.tileSet.IsBlank(tile) {
		if int(blankFace) >= m.tileSet.NumFaces() || m.tileSet.IsBlank(blankFace) {
			return model.ErrBlankFaceMissing
		}
		pt.face = blankFace
		pt.blank = true
	}

	ps.tray = append(ps.tray[:trayIndex:trayIndex], ps.tray[trayIndex+1:]...)
	ps.pending = append(ps.pending, pt)
	ps.moveScore = -1
	if m.cells[idx].IsEmpty() {
		m.cells[idx] = CellPending | 1
	} else {
		m.cells[idx]++
	}
	return nil
}

// MoveBoardToTray returns a pending tile to its owner's tray
func (m *Model) MoveBoardToTray(p, col, row int) error {
	if err := m.checkPlayer(p); err != nil {
		return err
	}
	ps := &m.players[p]
	for i, pt := range ps.pending {
		if pt.col == col && pt.row == row {
			ps.pending = append(ps.pending[:i:i], ps.pending[i+1:]...)
			m.returnPending(p, pt)
			return nil
		}
	}
	return model.ErrNoPendingTile
}

func (m *Model) returnPending(p int, pt pendingTile) {
	ps := &m.players[p]
	tile := pt.face
	if pt.blank {
		tile = model.Tile(m.tileSet.Blank)
	}
	ps.tray = append(ps.tray, tile)
	ps.moveScore = -1

	idx := m.cellIndex(pt.col, pt.row)
	if m.cells[idx].IsPending() {
		if m.cells[idx].PendingCount() <= 1 {
			m.cells[idx] = CellEmpty
		} else {
			m.cells[idx]--
		}
	}
}

// ResetCurrentTurn moves all of a player's pending tiles back to the tray
func (m *Model) ResetCurrentTurn(p int) {
	if m.checkPlayer(p) != nil {
		return
	}
	pending := m.players[p].pending
	m.players[p].pending = nil
	for _, pt := range pending {
		m.returnPending(p, pt)
	}
}

func (m *Model) resetAllTurns() {
	for p := range m.players {
		m.ResetCurrentTurn(p)
	}
}

// CurrentMoveCount returns the number of pending tiles a player has placed
func (m *Model) CurrentMoveCount(p int) int {
	if m.checkPlayer(p) != nil {
		return 0
	}
	return len(m.players[p].pending)
}

func (m *Model) placements(p int) []scoring.Placement {
	out := make([]scoring.Placement, 0, len(m.players[p].pending))
	for _, pt := range m.players[p].pending {
		out = append(out, scoring.Placement{Col: pt.col, Row: pt.row, Tile: pt.face, Blank: pt.blank})
	}
	return out
}

// CurrentMove returns a player's pending tiles as a normalized move, or the
// placement rule they break
func (m *Model) CurrentMove(p int) (model.MoveInfo, error) {
	if err := m.checkPlayer(p); err != nil {
		return model.MoveInfo{}, err
	}
	return scoring.Validate(m, m.placements(p))
}

// CurrentMoveScore scores a player's pending tiles, caching the result
func (m *Model) CurrentMoveScore(p int) (int, error) {
	mi, err := m.CurrentMove(p)
	if err != nil {
		return 0, err
	}
	ps := &m.players[p]
	if ps.moveScore < 0 {
		ps.moveScore = m.oracle.Score(m, mi, m.cfg.TraySize)
	}
	return ps.moveScore, nil
}

// CheckMoveLegal validates placement and returns any words the dictionary rejects
func (m *Model) CheckMoveLegal(p int) ([]string, error) {
	mi, err := m.CurrentMove(p)
	if err != nil {
		return nil, err
	}
	return m.oracle.BadWords(m, mi), nil
}

// MakeTurnFromMoveInfo rebuilds a player's pending tiles from a move
// received from elsewhere
func (m *Model) MakeTurnFromMoveInfo(p int, mi model.MoveInfo) error {
	if err := m.checkPlayer(p); err != nil {
		return err
	}
	m.ResetCurrentTurn(p)
	for i, t := range mi.Tiles {
		want := t.Tile
		if t.Blank {
			want = model.Tile(m.tileSet.Blank)
		}
		idx := indexOf(m.players[p].tray, want)
		if idx < 0 {
			m.ResetCurrentTurn(p)
			return fmt.Errorf("tile %s not in tray of player %d: %w", m.tileSet.Letter(want), p, model.ErrBadTrayIndex)
		}
		col, row := mi.Position(i)
		if err := m.MoveTrayToBoard(p, col, row, idx, t.Tile); err != nil {
			m.ResetCurrentTurn(p)
			return err
		}
	}
	return nil
}

// Score returns a player's running score
func (m *Model) Score(p int) int {
	if m.checkPlayer(p) != nil {
		return 0
	}
	return m.players[p].score
}

// Scores returns every player's running score
func (m *Model) Scores() []int {
	out := make([]int, len(m.players))
	for i := range m.players {
		out[i] = m.players[i].score
	}
	return out
}

// FinalScores subtracts each tray's value; outside duplicate mode a player
// who went out gains everyone else's penalty
func (m *Model) FinalScores() []int {
	out := m.Scores()
	penalties := make([]int, len(m.players))
	total := 0
	wentOut := -1
	for p := range m.players {
		penalties[p] = m.tileSet.TraySum(m.players[p].tray)
		for _, pt := range m.players[p].pending {
			if !pt.blank {
				penalties[p] += m.tileSet.Value(pt.face)
			}
		}
		total += penalties[p]
		if m.NumTilesTotal(p) == 0 && wentOut < 0 {
			wentOut = p
		}
	}
	for p := range out {
		out[p] -= penalties[p]
	}
	if !m.cfg.Duplicate && wentOut >= 0 {
		out[wentOut] += total
	}
	return out
}

// TilesOnBoard counts committed tiles
func (m *Model) TilesOnBoard() int {
	n := 0
	for _, c := range m.cells {
		if c.IsCommitted() {
			n++
		}
	}
	return n
}

// PendingCount counts uncommitted tiles across all players
func (m *Model) PendingCount() int {
	n := 0
	for _, ps := range m.players {
		n += len(ps.pending)
	}
	return n
}

// AddChat records a chat line
func (m *Model) AddChat(msg model.ChatMessage) {
	m.chats = append(m.chats, msg)
}

// Chats returns the chat history
func (m *Model) Chats() []model.ChatMessage {
	return append([]model.ChatMessage(nil), m.chats...)
}

func indexOf(tiles []model.Tile, t model.Tile) int {
	for i, x := range tiles {
		if x == t {
			return i
		}
	}
	return -1
}

// removeTiles returns tray without one instance of each of tiles
func removeTiles(tray, tiles []model.Tile) ([]model.Tile, error) {
	out := append([]model.Tile(nil), tray...)
	for _, t := range tiles {
		idx := indexOf(out, t)
		if idx < 0 {
			return tray, fmt.Errorf("tile %d not in tray: %w", t, model.ErrBadTrayIndex)
		}
		out = append(out[:idx], out[idx+1:]...)
	}
	return out, nil
}
