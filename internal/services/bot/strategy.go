package bot

import (
	"sort"

	"github.com/mcoot/xwsync/internal/dependencies/random"
	"github.com/mcoot/xwsync/internal/model"
)

// MaxIQ always picks the best scoring move
const MaxIQ = 100

// Candidate is a legal move the engine found, with its score
type Candidate struct {
	Move  model.MoveInfo
	Score int
}

// Strategy picks one move from the ranked candidates
type Strategy interface {
	Choose(candidates []Candidate, iq int) Candidate
}

// IQStrategy picks the best move at full IQ and widens the choice toward
// weaker moves as IQ drops
type IQStrategy struct {
	random random.Random
}

// NewIQStrategy creates a new IQStrategy
func NewIQStrategy(rnd random.Random) *IQStrategy {
	return &IQStrategy{random: rnd}
}

// Choose expects candidates sorted best first
func (s *IQStrategy) Choose(candidates []Candidate, iq int) Candidate {
	if iq >= MaxIQ || len(candidates) == 1 {
		return candidates[0]
	}
	if iq < 0 {
		iq = 0
	}
	spread := len(candidates) * (MaxIQ - iq) / MaxIQ
	if spread < 1 {
		return candidates[0]
	}
	return candidates[s.random.Intn(spread+1)]
}

// rank orders candidates by score, then tiles played, then position so the
// order is stable across devices
func rank(candidates []Candidate) {
	sort.SliceStable(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if len(a.Move.Tiles) != len(b.Move.Tiles) {
			return len(a.Move.Tiles) > len(b.Move.Tiles)
		}
		if a.Move.CommonCoord != b.Move.CommonCoord {
			return a.Move.CommonCoord < b.Move.CommonCoord
		}
		return a.Move.Tiles[0].VarCoord < b.Move.Tiles[0].VarCoord
	})
}
