package bot

import (
	"log/slog"

	"github.com/mcoot/xwsync/internal/model"
	"github.com/mcoot/xwsync/internal/services/scoring"
)

// Engine finds moves for robot players
type Engine interface {
	// FindMove returns a move for the tray; canMove is false when no legal
	// placement exists and the caller should trade or pass
	FindMove(b scoring.Board, tray []model.Tile, iq int) (mi model.MoveInfo, canMove bool)
	// TrayAllowsMoves reports whether any legal placement exists
	TrayAllowsMoves(b scoring.Board, tray []model.Tile) bool
}

// WordSource lists candidate words
type WordSource interface {
	Words(maxLen int) []string
}

// WordListEngine tries every dictionary word at every position
type WordListEngine struct {
	words    WordSource
	oracle   scoring.Oracle
	strategy Strategy
	traySize int
	logger   *slog.Logger
}

// NewWordListEngine creates a new WordListEngine
func NewWordListEngine(words WordSource, oracle scoring.Oracle, strategy Strategy, traySize int, logger *slog.Logger) *WordListEngine {
	return &WordListEngine{
		words:    words,
		oracle:   oracle,
		strategy: strategy,
		traySize: traySize,
		logger:   logger.With(slog.String("component", "bot-engine")),
	}
}

var _ Engine = (*WordListEngine)(nil)

// FindMove picks a move according to the robot's IQ
func (e *WordListEngine) FindMove(b scoring.Board, tray []model.Tile, iq int) (model.MoveInfo, bool) {
	candidates := e.search(b, tray, false)
	if len(candidates) == 0 {
		e.logger.Debug("no move found", slog.Int("tray", len(tray)))
		return model.MoveInfo{}, false
	}
	rank(candidates)
	chosen := e.strategy.Choose(candidates, iq)
	e.logger.Debug("move found",
		slog.Int("candidates", len(candidates)),
		slog.Int("score", chosen.Score),
		slog.Int("iq", iq),
	)
	return chosen.Move, true
}

// TrayAllowsMoves stops at the first legal placement
func (e *WordListEngine) TrayAllowsMoves(b scoring.Board, tray []model.Tile) bool {
	return len(e.search(b, tray, true)) > 0
}

func (e *WordListEngine) search(b scoring.Board, tray []model.Tile, first bool) []Candidate {
	cols, rows := b.Dims()
	ts := b.TileSet()
	maxLen := cols
	if rows > maxLen {
		maxLen = rows
	}

	counts := make(map[model.Tile]int, len(tray))
	for _, t := range tray {
		counts[t]++
	}
	anchors := committedCells(b)

	var out []Candidate
	for _, word := range e.words.Words(maxLen) {
		faces, ok := facesOf(ts, word)
		if !ok {
			continue
		}
		for _, horizontal := range []bool{true, false} {
			lineLen, lines := cols, rows
			if !horizontal {
				lineLen, lines = rows, cols
			}
			for common := 0; common < lines; common++ {
				for start := 0; start+len(faces) <= lineLen; start++ {
					if len(anchors) > 0 && !nearAnchor(anchors, horizontal, common, start, len(faces)) {
						continue
					}
					placements, ok := fit(b, ts, counts, faces, horizontal, common, start)
					if !ok {
						continue
					}
					mi, err := scoring.Validate(b, placements)
					if err != nil || mi.IsPass() {
						continue
					}
					if len(e.oracle.BadWords(b, mi)) > 0 {
						continue
					}
					out = append(out, Candidate{Move: mi, Score: e.oracle.Score(b, mi, e.traySize)})
					if first {
						return out
					}
				}
			}
		}
	}
	return out
}

func facesOf(ts *model.TileSet, word string) ([]model.Tile, bool) {
	faces := make([]model.Tile, 0, len(word))
	for _, r := range word {
		t, ok := ts.FaceFor(string(r))
		if !ok {
			return nil, false
		}
		faces = append(faces, t)
	}
	return faces, true
}

// fit lays the word along a line, using committed tiles where they match and
// tray tiles (or blanks) elsewhere. The word must not run into neighbouring
// tiles at either end.
func fit(b scoring.Board, ts *model.TileSet, counts map[model.Tile]int, faces []model.Tile, horizontal bool, common, start int) ([]scoring.Placement, bool) {
	at := func(v int) (int, int) {
		if horizontal {
			return v, common
		}
		return common, v
	}
	if _, _, ok := b.TileAt(at(start - 1)); ok {
		return nil, false
	}
	if _, _, ok := b.TileAt(at(start + len(faces))); ok {
		return nil, false
	}

	used := make(map[model.Tile]int, len(faces))
	blank := model.Tile(ts.Blank)
	var placements []scoring.Placement
	for i, face := range faces {
		col, row := at(start + i)
		if t, _, ok := b.TileAt(col, row); ok {
			if t != face {
				return nil, false
			}
			continue
		}
		p := scoring.Placement{Col: col, Row: row, Tile: face}
		switch {
		case used[face] < counts[face]:
			used[face]++
		case ts.Blank >= 0 && used[blank] < counts[blank]:
			used[blank]++
			p.Blank = true
		default:
			return nil, false
		}
		placements = append(placements, p)
	}
	return placements, len(placements) > 0
}

type cell struct{ col, row int }

func committedCells(b scoring.Board) map[cell]bool {
	cols, rows := b.Dims()
	out := map[cell]bool{}
	for row := 0; row < rows; row++ {
		for col := 0; col < cols; col++ {
			if _, _, ok := b.TileAt(col, row); ok {
				out[cell{col, row}] = true
			}
		}
	}
	return out
}

// nearAnchor reports whether a span touches or covers a committed tile
func nearAnchor(anchors map[cell]bool, horizontal bool, common, start, length int) bool {
	for v := start - 1; v <= start+length; v++ {
		for d := -1; d <= 1; d++ {
			c := cell{v, common + d}
			if !horizontal {
				c = cell{common + d, v}
			}
			if anchors[c] {
				return true
			}
		}
	}
	return false
}
