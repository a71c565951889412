package model

import (
	"github.com/mcoot/xwsync/internal/bitstream"
)

// StackEntryType tags a move stack entry
type StackEntryType uint8

const (
	EntryAssign StackEntryType = iota
	EntryMove
	EntryTrade
	EntryPhony
)

func (t StackEntryType) String() string {
	switch t {
	case EntryAssign:
		return "assign"
	case EntryMove:
		return "move"
	case EntryTrade:
		return "trade"
	case EntryPhony:
		return "phony"
	default:
		return "unknown"
	}
}

// StackEntry is one record in the move stack
type StackEntry struct {
	Type    StackEntryType `json:"type"`
	Player  int            `json:"player"`
	MoveNum int            `json:"move_num"`
	// Move is set for EntryMove and EntryPhony
	Move MoveInfo `json:"move"`
	// NewTiles holds tiles assigned (EntryAssign), drawn after a move
	// (EntryMove) or drawn in a trade (EntryTrade)
	NewTiles []Tile `json:"new_tiles,omitempty"`
	// OldTiles holds tiles traded back (EntryTrade)
	OldTiles []Tile `json:"old_tiles,omitempty"`
	// Scores is set for duplicate-mode moves, one per player
	Scores []int `json:"scores,omitempty"`
}

// WriteTo encodes the entry
func (e *StackEntry) WriteTo(w *bitstream.Writer, ts *TileSet) {
	w.PutBits(2, uint32(e.Type))
	w.PutBits(PlayerNumBits, uint32(e.Player))
	switch e.Type {
	case EntryAssign:
		WriteTiles(w, ts, e.NewTiles)
	case EntryMove:
		e.Move.WriteTo(w, ts)
		WriteTiles(w, ts, e.NewTiles)
		w.PutBool(len(e.Scores) > 0)
		if len(e.Scores) > 0 {
			w.PutBits(NPlayersBits, uint32(len(e.Scores)))
			for _, sc := range e.Scores {
				w.PutU32VL(uint32(int32(sc)))
			}
		}
	case EntryPhony:
		e.Move.WriteTo(w, ts)
	case EntryTrade:
		WriteTiles(w, ts, e.OldTiles)
		WriteTiles(w, ts, e.NewTiles)
	}
}

// ReadStackEntry decodes an entry written by StackEntry.WriteTo
func ReadStackEntry(r *bitstream.Reader, ts *TileSet) StackEntry {
	e := StackEntry{
		Type:   StackEntryType(r.GetBits(2)),
		Player: int(r.GetBits(PlayerNumBits)),
	}
	switch e.Type {
	case EntryAssign:
		e.NewTiles = ReadTiles(r, ts)
	case EntryMove:
		e.Move = ReadMoveInfo(r, ts)
		e.NewTiles = ReadTiles(r, ts)
		if r.GetBool() {
			n := int(r.GetBits(NPlayersBits))
			for i := 0; i < n; i++ {
				e.Scores = append(e.Scores, int(int32(r.GetU32VL())))
			}
		}
	case EntryPhony:
		e.Move = ReadMoveInfo(r, ts)
	case EntryTrade:
		e.OldTiles = ReadTiles(r, ts)
		e.NewTiles = ReadTiles(r, ts)
	}
	return e
}

// Clone returns a deep copy
func (e StackEntry) Clone() StackEntry {
	out := e
	out.Move = e.Move.Clone()
	out.NewTiles = append([]Tile(nil), e.NewTiles...)
	out.OldTiles = append([]Tile(nil), e.OldTiles...)
	out.Scores = append([]int(nil), e.Scores...)
	return out
}
