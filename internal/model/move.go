package model

import (
	"sort"

	"github.com/mcoot/xwsync/internal/bitstream"
)

// CoordBits is the wire width of a board coordinate
const CoordBits = 5

// MaxBoardSize is the largest board a coordinate field can address
const MaxBoardSize = 1 << CoordBits

// MoveTile is one tile of a move, positioned along the move's line
type MoveTile struct {
	VarCoord int
	// Tile is the face shown on the board; for a blank it is the designated letter
	Tile  Tile
	Blank bool
}

// MoveInfo describes a placement: all tiles share CommonCoord (the row when
// Horizontal, otherwise the column)
type MoveInfo struct {
	CommonCoord int
	Horizontal  bool
	Tiles       []MoveTile
}

// IsPass reports whether the move places no tiles
func (mi MoveInfo) IsPass() bool {
	return len(mi.Tiles) == 0
}

// Position returns the column and row of the i'th tile
func (mi MoveInfo) Position(i int) (col, row int) {
	if mi.Horizontal {
		return mi.Tiles[i].VarCoord, mi.CommonCoord
	}
	return mi.CommonCoord, mi.Tiles[i].VarCoord
}

// Normalize sorts tiles by their varying coordinate
func (mi *MoveInfo) Normalize() {
	sort.SliceStable(mi.Tiles, func(i, j int) bool {
		return mi.Tiles[i].VarCoord < mi.Tiles[j].VarCoord
	})
}

// Clone returns a deep copy
func (mi MoveInfo) Clone() MoveInfo {
	out := mi
	out.Tiles = append([]MoveTile(nil), mi.Tiles...)
	return out
}

// Equal reports whether two moves place the same tiles
func (mi MoveInfo) Equal(other MoveInfo) bool {
	if len(mi.Tiles) != len(other.Tiles) {
		return false
	}
	if len(mi.Tiles) == 0 {
		return true
	}
	if mi.CommonCoord != other.CommonCoord || mi.Horizontal != other.Horizontal {
		return false
	}
	for i := range mi.Tiles {
		if mi.Tiles[i] != other.Tiles[i] {
			return false
		}
	}
	return true
}

// WriteTo encodes the move
func (mi MoveInfo) WriteTo(w *bitstream.Writer, ts *TileSet) {
	w.PutBits(TrayCountBits, uint32(len(mi.Tiles)))
	w.PutBits(CoordBits, uint32(mi.CommonCoord))
	w.PutBool(mi.Horizontal)
	for _, t := range mi.Tiles {
		w.PutBits(CoordBits, uint32(t.VarCoord))
		w.PutBits(ts.BitsPerTile(), uint32(t.Tile))
		w.PutBool(t.Blank)
	}
}

// ReadMoveInfo decodes a move written by MoveInfo.WriteTo
func ReadMoveInfo(r *bitstream.Reader, ts *TileSet) MoveInfo {
	n := int(r.GetBits(TrayCountBits))
	mi := MoveInfo{
		CommonCoord: int(r.GetBits(CoordBits)),
		Horizontal:  r.GetBool(),
	}
	for i := 0; i < n; i++ {
		mi.Tiles = append(mi.Tiles, MoveTile{
			VarCoord: int(r.GetBits(CoordBits)),
			Tile:     ts.readTile(r),
			Blank:    r.GetBool(),
		})
	}
	return mi
}
