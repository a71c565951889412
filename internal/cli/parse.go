package cli

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"github.com/mcoot/xwsync/internal/services/session"
)

// parsePlayers reads seats: "name" for a human, "robot:name" or
// "robot:name:iq" for a robot, and "remote" for a seat a guest fills
func parsePlayers(seats []string) ([]session.PlayerRequest, error) {
	out := make([]session.PlayerRequest, 0, len(seats))
	for _, seat := range seats {
		parts := strings.Split(seat, ":")
		switch {
		case seat == "remote":
			out = append(out, session.PlayerRequest{Remote: true})
		case parts[0] == "robot" && len(parts) >= 2 && len(parts) <= 3:
			p := session.PlayerRequest{Name: parts[1], Robot: true}
			if len(parts) == 3 {
				iq, err := strconv.Atoi(parts[2])
				if err != nil || iq < 1 || iq > 100 {
					return nil, fmt.Errorf("player %q: iq must be 1-100", seat)
				}
				p.IQ = iq
			}
			out = append(out, p)
		case len(parts) == 1 && seat != "":
			out = append(out, session.PlayerRequest{Name: seat})
		default:
			return nil, fmt.Errorf("player %q: want name, robot:name[:iq] or remote", seat)
		}
	}
	return out, nil
}

// parsePlacement reads "H8=A": column letter, 1-based row and the letter to
// play. A lower case letter is played with a blank.
func parsePlacement(arg string) (session.Placement, error) {
	cell, letter, ok := strings.Cut(arg, "=")
	if !ok || len(cell) < 2 || len([]rune(letter)) != 1 {
		return session.Placement{}, fmt.Errorf("tile %q: want CELL=LETTER, e.g. H8=A", arg)
	}
	colRune := unicode.ToUpper(rune(cell[0]))
	if colRune < 'A' || colRune > 'Z' {
		return session.Placement{}, fmt.Errorf("tile %q: bad column", arg)
	}
	row, err := strconv.Atoi(cell[1:])
	if err != nil || row < 1 {
		return session.Placement{}, fmt.Errorf("tile %q: bad row", arg)
	}
	r := []rune(letter)[0]
	return session.Placement{
		Col:    int(colRune - 'A'),
		Row:    row - 1,
		Letter: string(unicode.ToUpper(r)),
		Blank:  unicode.IsLower(r),
	}, nil
}

func parsePlacements(args []string) ([]session.Placement, error) {
	out := make([]session.Placement, 0, len(args))
	for _, a := range args {
		p, err := parsePlacement(a)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}
