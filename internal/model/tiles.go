package model

import (
	"fmt"
	"strings"

	"github.com/mcoot/xwsync/internal/bitstream"
)

// Tile is an index into a TileSet's faces
type Tile uint8

// TrayCountBits is the field width of a tile count on the wire
const TrayCountBits = 4

// MaxTraySize is the largest tray a count field can describe
const MaxTraySize = 1<<TrayCountBits - 1

// TileFace describes one kind of tile in a set
type TileFace struct {
	Letter string
	Count  int
	Value  int
}

// TileSet is the fixed frequency and value table for a language
type TileSet struct {
	Name  string
	Faces []TileFace
	// Blank is the face index of the blank tile, or -1 when the set has none
	Blank int
}

// NumFaces returns the number of distinct faces
func (ts *TileSet) NumFaces() int {
	return len(ts.Faces)
}

// Total returns the total number of tiles in a full bag
func (ts *TileSet) Total() int {
	total := 0
	for _, f := range ts.Faces {
		total += f.Count
	}
	return total
}

// BitsPerTile returns the wire width of a tile
func (ts *TileSet) BitsPerTile() uint {
	if len(ts.Faces) > 32 {
		return 6
	}
	return 5
}

// IsBlank reports whether t is the blank face
func (ts *TileSet) IsBlank(t Tile) bool {
	return ts.Blank >= 0 && int(t) == ts.Blank
}

// Letter returns the printable face of t
func (ts *TileSet) Letter(t Tile) string {
	if int(t) >= len(ts.Faces) {
		return "?"
	}
	return ts.Faces[t].Letter
}

// Value returns the point value of t
func (ts *TileSet) Value(t Tile) int {
	if int(t) >= len(ts.Faces) {
		return 0
	}
	return ts.Faces[t].Value
}

// FaceFor finds the face with the given letter
func (ts *TileSet) FaceFor(letter string) (Tile, bool) {
	letter = strings.ToUpper(letter)
	for i, f := range ts.Faces {
		if i != ts.Blank && f.Letter == letter {
			return Tile(i), true
		}
	}
	return 0, false
}

// TraySum returns the summed value of tiles
func (ts *TileSet) TraySum(tiles []Tile) int {
	sum := 0
	for _, t := range tiles {
		sum += ts.Value(t)
	}
	return sum
}

// WriteTiles writes a tray-sized set of tiles
func WriteTiles(w *bitstream.Writer, ts *TileSet, tiles []Tile) {
	w.PutBits(TrayCountBits, uint32(len(tiles)))
	for _, t := range tiles {
		w.PutBits(ts.BitsPerTile(), uint32(t))
	}
}

// ReadTiles reads a set written by WriteTiles
func ReadTiles(r *bitstream.Reader, ts *TileSet) []Tile {
	n := int(r.GetBits(TrayCountBits))
	tiles := make([]Tile, 0, n)
	for i := 0; i < n; i++ {
		tiles = append(tiles, ts.readTile(r))
	}
	if r.Err() != nil {
		return nil
	}
	return tiles
}

// readTile reads one tile, failing the stream if it names no face
func (ts *TileSet) readTile(r *bitstream.Reader) Tile {
	t := Tile(r.GetBits(ts.BitsPerTile()))
	if int(t) >= ts.NumFaces() {
		r.Fail(fmt.Errorf("tile %d of %d faces: %w", t, ts.NumFaces(), bitstream.ErrValueOutOfRange))
		return 0
	}
	return t
}

var englishFaces = []TileFace{
	{"A", 9, 1}, {"B", 2, 3}, {"C", 2, 3}, {"D", 4, 2}, {"E", 12, 1},
	{"F", 2, 4}, {"G", 3, 2}, {"H", 2, 4}, {"I", 9, 1}, {"J", 1, 8},
	{"K", 1, 5}, {"L", 4, 1}, {"M", 2, 3}, {"N", 6, 1}, {"O", 8, 1},
	{"P", 2, 3}, {"Q", 1, 10}, {"R", 6, 1}, {"S", 4, 1}, {"T", 6, 1},
	{"U", 4, 1}, {"V", 2, 4}, {"W", 2, 4}, {"X", 1, 8}, {"Y", 2, 4},
	{"Z", 1, 10}, {"_", 2, 0},
}

// EnglishTileSet returns the standard 100-tile English set
func EnglishTileSet() *TileSet {
	faces := make([]TileFace, len(englishFaces))
	copy(faces, englishFaces)
	return &TileSet{Name: "English", Faces: faces, Blank: len(faces) - 1}
}
