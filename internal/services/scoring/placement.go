package scoring

import (
	"sort"

	"github.com/mcoot/xwsync/internal/model"
)

// Board is the read-only view of committed tiles the oracle scores against
type Board interface {
	Dims() (cols, rows int)
	// TileAt returns the committed tile at a cell; ok is false for empty cells
	TileAt(col, row int) (tile model.Tile, blank bool, ok bool)
	TileSet() *model.TileSet
}

// Placement is a tile a player has put on the board but not committed
type Placement struct {
	Col   int
	Row   int
	Tile  model.Tile
	Blank bool
}

// Star returns the center cell every first move must cover
func Star(b Board) (col, row int) {
	cols, rows := b.Dims()
	return cols / 2, rows / 2
}

// Validate checks that placements form a legal move and returns them as a
// normalized MoveInfo. An empty placement list is a legal pass.
func Validate(b Board, placements []Placement) (model.MoveInfo, error) {
	if len(placements) == 0 {
		return model.MoveInfo{Horizontal: true}, nil
	}

	cols, rows := b.Dims()
	seen := make(map[[2]int]bool, len(placements))
	for _, p := range placements {
		if p.Col < 0 || p.Col >= cols || p.Row < 0 || p.Row >= rows {
			return model.MoveInfo{}, model.ErrInvalidPosition
		}
		if _, _, ok := b.TileAt(p.Col, p.Row); ok || seen[[2]int{p.Col, p.Row}] {
			return model.MoveInfo{}, model.ErrCellOccupied
		}
		seen[[2]int{p.Col, p.Row}] = true
	}

	mi, err := lineUp(placements)
	if err != nil {
		return model.MoveInfo{}, err
	}

	first := mi.Tiles[0].VarCoord
	last := mi.Tiles[len(mi.Tiles)-1].VarCoord
	touches := false
	placed := make(map[int]bool, len(mi.Tiles))
	for _, t := range mi.Tiles {
		placed[t.VarCoord] = true
	}
	for v := first; v <= last; v++ {
		if placed[v] {
			continue
		}
		col, row := cellOnLine(mi, v)
		if _, _, ok := b.TileAt(col, row); !ok {
			return model.MoveInfo{}, model.ErrNoEmptiesInTurn
		}
		touches = true
	}

	if !touches {
		touches = occupied(b, mi, first-1) || occupied(b, mi, last+1)
	}
	if !touches {
		for _, t := range mi.Tiles {
			col, row := cellOnLine(mi, t.VarCoord)
			var neighbours [2][2]int
			if mi.Horizontal {
				neighbours = [2][2]int{{col, row - 1}, {col, row + 1}}
			} else {
				neighbours = [2][2]int{{col - 1, row}, {col + 1, row}}
			}
			for _, n := range neighbours {
				if _, _, ok := b.TileAt(n[0], n[1]); ok {
					touches = true
				}
			}
		}
	}
	if touches {
		return mi, nil
	}

	starCol, starRow := Star(b)
	for _, t := range mi.Tiles {
		col, row := cellOnLine(mi, t.VarCoord)
		if col == starCol && row == starRow {
			if len(mi.Tiles) < 2 {
				return model.MoveInfo{}, model.ErrTwoTilesFirstMove
			}
			return mi, nil
		}
	}
	return model.MoveInfo{}, model.ErrTilesMustContact
}

// lineUp infers the move's direction. A single tile counts as horizontal.
func lineUp(placements []Placement) (model.MoveInfo, error) {
	sameRow, sameCol := true, true
	for _, p := range placements[1:] {
		if p.Row != placements[0].Row {
			sameRow = false
		}
		if p.Col != placements[0].Col {
			sameCol = false
		}
	}

	var mi model.MoveInfo
	switch {
	case sameRow:
		mi.Horizontal = true
		mi.CommonCoord = placements[0].Row
	case sameCol:
		mi.CommonCoord = placements[0].Col
	default:
		return model.MoveInfo{}, model.ErrTilesNotInLine
	}

	for _, p := range placements {
		v := p.Row
		if mi.Horizontal {
			v = p.Col
		}
		mi.Tiles = append(mi.Tiles, model.MoveTile{VarCoord: v, Tile: p.Tile, Blank: p.Blank})
	}
	sort.SliceStable(mi.Tiles, func(i, j int) bool {
		return mi.Tiles[i].VarCoord < mi.Tiles[j].VarCoord
	})
	return mi, nil
}

func cellOnLine(mi model.MoveInfo, v int) (col, row int) {
	if mi.Horizontal {
		return v, mi.CommonCoord
	}
	return mi.CommonCoord, v
}

func occupied(b Board, mi model.MoveInfo, v int) bool {
	col, row := cellOnLine(mi, v)
	_, _, ok := b.TileAt(col, row)
	return ok
}
