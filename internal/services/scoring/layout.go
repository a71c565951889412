package scoring

// Bonus is a premium square type
type Bonus uint8

const (
	NoBonus Bonus = iota
	DoubleLetter
	TripleLetter
	DoubleWord
	TripleWord
)

// Layout reports the premium square at a cell
type Layout interface {
	At(col, row int) Bonus
}

// PlainLayout has no premium squares
type PlainLayout struct{}

func (PlainLayout) At(col, row int) Bonus {
	return NoBonus
}

// quadrant is the upper-left 8x8 of the classic 15x15 board, mirrored for the rest
var quadrant = [8]string{
	"W..l...W",
	".w...L..",
	"..w...l.",
	"l..w...l",
	"....w...",
	".L...L..",
	"..l...l.",
	"W..l...w",
}

// StandardLayout is the classic premium layout, mirrored around the center
// of any board up to 15x15
type StandardLayout struct {
	Cols, Rows int
}

func (l StandardLayout) At(col, row int) Bonus {
	if col < 0 || row < 0 || col >= l.Cols || row >= l.Rows {
		return NoBonus
	}
	c := fold(col, l.Cols)
	r := fold(row, l.Rows)
	if c < 0 || r < 0 || c > 7 || r > 7 {
		return NoBonus
	}
	switch quadrant[r][c] {
	case 'l':
		return DoubleLetter
	case 'L':
		return TripleLetter
	case 'w':
		return DoubleWord
	case 'W':
		return TripleWord
	default:
		return NoBonus
	}
}

// fold maps a coordinate onto the quadrant so that the board's center lands on index 7
func fold(v, size int) int {
	center := size / 2
	d := v - center
	if d < 0 {
		d = -d
	}
	return 7 - d
}
