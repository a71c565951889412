package scoring

import (
	"strings"

	"github.com/mcoot/xwsync/internal/model"
)

// BingoBonus is awarded for playing every tile in a full tray
const BingoBonus = 50

// Oracle decides whether a move's words are acceptable and what it scores
type Oracle interface {
	// Words returns every word of two or more letters the move forms
	Words(b Board, mi model.MoveInfo) []string
	// BadWords returns the formed words missing from the dictionary
	BadWords(b Board, mi model.MoveInfo) []string
	// Score returns the points the move earns
	Score(b Board, mi model.MoveInfo, traySize int) int
	DictName() string
}

// WordChecker is the dictionary lookup the Service needs
type WordChecker interface {
	Name() string
	IsValidWord(word string) bool
}

// Service scores moves against a dictionary and a premium square layout
type Service struct {
	dictionary WordChecker
	layout     Layout
}

// New creates a new scoring Service
func New(dictionary WordChecker, layout Layout) *Service {
	if layout == nil {
		layout = PlainLayout{}
	}
	return &Service{
		dictionary: dictionary,
		layout:     layout,
	}
}

var _ Oracle = (*Service)(nil)

// DictName returns the name of the dictionary words are checked against
func (s *Service) DictName() string {
	return s.dictionary.Name()
}

type formedWord struct {
	cells []cellTile
}

type cellTile struct {
	col, row int
	tile     model.Tile
	blank    bool
	isNew    bool
}

func (w formedWord) text(ts *model.TileSet) string {
	var sb strings.Builder
	for _, c := range w.cells {
		sb.WriteString(ts.Letter(c.tile))
	}
	return sb.String()
}

// formedWords finds the main word along the move's line and every cross word
func formedWords(b Board, mi model.MoveInfo) []formedWord {
	if mi.IsPass() {
		return nil
	}
	cols, rows := b.Dims()
	placed := make(map[[2]int]model.MoveTile, len(mi.Tiles))
	for i, t := range mi.Tiles {
		col, row := mi.Position(i)
		placed[[2]int{col, row}] = t
	}
	at := func(col, row int) (cellTile, bool) {
		if col < 0 || row < 0 || col >= cols || row >= rows {
			return cellTile{}, false
		}
		if t, ok := placed[[2]int{col, row}]; ok {
			return cellTile{col: col, row: row, tile: t.Tile, blank: t.Blank, isNew: true}, true
		}
		if t, blank, ok := b.TileAt(col, row); ok {
			return cellTile{col: col, row: row, tile: t, blank: blank}, true
		}
		return cellTile{}, false
	}
	scan := func(col, row, dc, dr int) formedWord {
		for {
			if _, ok := at(col-dc, row-dr); !ok {
				break
			}
			col, row = col-dc, row-dr
		}
		var w formedWord
		for {
			c, ok := at(col, row)
			if !ok {
				break
			}
			w.cells = append(w.cells, c)
			col, row = col+dc, row+dr
		}
		return w
	}

	dc, dr := 0, 1
	if mi.Horizontal {
		dc, dr = 1, 0
	}
	var words []formedWord
	col, row := mi.Position(0)
	if main := scan(col, row, dc, dr); len(main.cells) > 1 {
		words = append(words, main)
	}
	for i := range mi.Tiles {
		col, row := mi.Position(i)
		if cross := scan(col, row, dr, dc); len(cross.cells) > 1 {
			words = append(words, cross)
		}
	}
	return words
}

// Words returns every word of two or more letters the move forms
func (s *Service) Words(b Board, mi model.MoveInfo) []string {
	ts := b.TileSet()
	var out []string
	for _, w := range formedWords(b, mi) {
		out = append(out, w.text(ts))
	}
	return out
}

// BadWords returns formed words the dictionary doesn't contain
func (s *Service) BadWords(b Board, mi model.MoveInfo) []string {
	var bad []string
	for _, w := range s.Words(b, mi) {
		if !s.dictionary.IsValidWord(w) {
			bad = append(bad, w)
		}
	}
	return bad
}

// Score sums each formed word, applying premium squares under new tiles only.
// One-letter words score nothing.
func (s *Service) Score(b Board, mi model.MoveInfo, traySize int) int {
	ts := b.TileSet()
	total := 0
	for _, w := range formedWords(b, mi) {
		wordScore, wordMult := 0, 1
		for _, c := range w.cells {
			value := ts.Value(c.tile)
			if c.blank {
				value = 0
			}
			if c.isNew {
				switch s.layout.At(c.col, c.row) {
				case DoubleLetter:
					value *= 2
				case TripleLetter:
					value *= 3
				case DoubleWord:
					wordMult *= 2
				case TripleWord:
					wordMult *= 3
				}
			}
			wordScore += value
		}
		total += wordScore * wordMult
	}
	if traySize > 0 && len(mi.Tiles) == traySize {
		total += BingoBonus
	}
	return total
}
