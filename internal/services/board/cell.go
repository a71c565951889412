package board

import "github.com/mcoot/xwsync/internal/model"

// CellTile packs one board square's state into 16 bits
type CellTile uint16

const (
	cellValueMask CellTile = 0x3F
	CellBlank     CellTile = 0x40
	CellEmpty     CellTile = 0x80
	// CellPending marks a square covered only by uncommitted tiles; the value
	// bits then hold how many players have a tile there
	CellPending  CellTile = 0x100
	CellPrevMove CellTile = 0x200

	cellOwnerShift = 10
	cellOwnerMask  CellTile = 0x3 << cellOwnerShift
)

func committedCell(t model.Tile, blank bool, owner int) CellTile {
	c := CellTile(t) & cellValueMask
	if blank {
		c |= CellBlank
	}
	return c | CellTile(owner)<<cellOwnerShift
}

// IsEmpty reports whether no tile, committed or pending, covers the square
func (c CellTile) IsEmpty() bool {
	return c&CellEmpty != 0
}

// IsPending reports whether only uncommitted tiles cover the square
func (c CellTile) IsPending() bool {
	return c&CellPending != 0
}

// IsCommitted reports whether a committed tile is on the square
func (c CellTile) IsCommitted() bool {
	return c&(CellEmpty|CellPending) == 0
}

// Tile returns the committed face
func (c CellTile) Tile() model.Tile {
	return model.Tile(c & cellValueMask)
}

// IsBlank reports whether the committed tile is a blank
func (c CellTile) IsBlank() bool {
	return c&CellBlank != 0
}

// Owner returns the player who committed the tile
func (c CellTile) Owner() int {
	return int((c & cellOwnerMask) >> cellOwnerShift)
}

// PendingCount returns how many players have an uncommitted tile on the square
func (c CellTile) PendingCount() int {
	if !c.IsPending() {
		return 0
	}
	return int(c & cellValueMask)
}

// IsPrevMove reports whether the tile was placed by the most recent move
func (c CellTile) IsPrevMove() bool {
	return c&CellPrevMove != 0
}
