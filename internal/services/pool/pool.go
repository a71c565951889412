package pool

import (
	"fmt"

	"github.com/mcoot/xwsync/internal/bitstream"
	"github.com/mcoot/xwsync/internal/dependencies/random"
	"github.com/mcoot/xwsync/internal/model"
)

// Pool is the bag of tiles not yet drawn into any tray
type Pool struct {
	tileSet *model.TileSet
	random  random.Random
	counts  []int
	left    int
}

// New creates a full bag for the given tile set
func New(tileSet *model.TileSet, rnd random.Random) *Pool {
	p := &Pool{
		tileSet: tileSet,
		random:  rnd,
		counts:  make([]int, tileSet.NumFaces()),
	}
	for i, f := range tileSet.Faces {
		p.counts[i] = f.Count
		p.left += f.Count
	}
	return p
}

// Left returns the number of tiles remaining
func (p *Pool) Left() int {
	return p.left
}

// CountOf returns the number of tiles of a face remaining
func (p *Pool) CountOf(face model.Tile) int {
	if int(face) >= len(p.counts) {
		return 0
	}
	return p.counts[face]
}

// TileSet returns the set this pool draws from
func (p *Pool) TileSet() *model.TileSet {
	return p.tileSet
}

// Request draws up to n tiles uniformly at random
func (p *Pool) Request(n int) []model.Tile {
	if n > p.left {
		n = p.left
	}
	tiles := make([]model.Tile, 0, n)
	for i := 0; i < n; i++ {
		idx := p.random.Intn(p.left)
		for face, count := range p.counts {
			if idx < count {
				p.counts[face]--
				p.left--
				tiles = append(tiles, model.Tile(face))
				break
			}
			idx -= count
		}
	}
	return tiles
}

// Replace returns tiles to the bag. Nothing is returned if any tile names
// a face outside the tile set.
func (p *Pool) Replace(tiles []model.Tile) {
	if !p.valid(tiles) {
		return
	}
	for _, t := range tiles {
		p.counts[t]++
		p.left++
	}
}

// ReplaceSelected returns the tiles whose bit is set in mask
func (p *Pool) ReplaceSelected(tiles []model.Tile, mask uint32) {
	if !p.valid(tiles) {
		return
	}
	for i, t := range tiles {
		if mask&(1<<uint(i)) != 0 {
			p.counts[t]++
			p.left++
		}
	}
}

func (p *Pool) valid(tiles []model.Tile) bool {
	for _, t := range tiles {
		if int(t) >= len(p.counts) {
			return false
		}
	}
	return true
}

// Contains reports whether every tile in tiles could be removed
func (p *Pool) Contains(tiles []model.Tile) bool {
	counts := make([]int, len(p.counts))
	copy(counts, p.counts)
	for _, t := range tiles {
		if int(t) >= len(counts) || counts[t] == 0 {
			return false
		}
		counts[t]--
	}
	return true
}

// Remove takes specific tiles out of the bag. Nothing is removed unless all are present.
func (p *Pool) Remove(tiles []model.Tile) error {
	if !p.Contains(tiles) {
		return fmt.Errorf("removing %d tiles: %w", len(tiles), model.ErrTilesNotInPool)
	}
	for _, t := range tiles {
		p.counts[t]--
		p.left--
	}
	return nil
}

// Clone returns an independent copy sharing the tile set and random source
func (p *Pool) Clone() *Pool {
	out := &Pool{
		tileSet: p.tileSet,
		random:  p.random,
		counts:  make([]int, len(p.counts)),
		left:    p.left,
	}
	copy(out.counts, p.counts)
	return out
}

// Equal reports whether two pools hold the same tiles
func (p *Pool) Equal(other *Pool) bool {
	if p.left != other.left || len(p.counts) != len(other.counts) {
		return false
	}
	for i := range p.counts {
		if p.counts[i] != other.counts[i] {
			return false
		}
	}
	return true
}

// WriteTo encodes the remaining counts
func (p *Pool) WriteTo(w *bitstream.Writer) {
	w.PutU16(uint16(p.left))
	w.PutU16(uint16(len(p.counts)))
	for _, c := range p.counts {
		w.PutU8(uint8(c))
	}
}

// Read decodes a pool written by WriteTo
func Read(r *bitstream.Reader, tileSet *model.TileSet, rnd random.Random) (*Pool, error) {
	left := int(r.GetU16())
	nFaces := int(r.GetU16())
	if err := r.Err(); err != nil {
		return nil, err
	}
	if nFaces != tileSet.NumFaces() {
		return nil, fmt.Errorf("pool has %d faces, tile set %d: %w", nFaces, tileSet.NumFaces(), model.ErrTileSetMismatch)
	}
	p := &Pool{tileSet: tileSet, random: rnd, counts: make([]int, nFaces)}
	for i := range p.counts {
		p.counts[i] = int(r.GetU8())
		p.left += p.counts[i]
	}
	if err := r.Err(); err != nil {
		return nil, err
	}
	if p.left != left {
		return nil, fmt.Errorf("pool count %d does not match faces %d: %w", left, p.left, model.ErrTileSetMismatch)
	}
	return p, nil
}
