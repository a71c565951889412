package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mcoot/xwsync/internal/api/response"
)

// Output handles formatting output based on the configured format
type Output struct {
	format string
	w      io.Writer
}

// NewOutput creates a new Output formatter writing to stdout
func NewOutput(format string) *Output {
	return &Output{format: format, w: os.Stdout}
}

// Print outputs data in the configured format
func (o *Output) Print(data any) {
	if o.format == "json" {
		o.printJSON(data)
	} else {
		o.printText(data)
	}
}

// PrintError outputs an error
func (o *Output) PrintError(err error) {
	if o.format == "json" {
		errData := map[string]any{
			"error": map[string]string{
				"message": err.Error(),
			},
		}
		data, _ := json.Marshal(errData)
		fmt.Fprintln(os.Stderr, string(data))
	} else {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
	}
}

// PrintMessage outputs a simple message
func (o *Output) PrintMessage(msg string) {
	if o.format == "json" {
		data, _ := json.Marshal(map[string]string{"message": msg})
		fmt.Fprintln(o.w, string(data))
	} else {
		fmt.Fprintln(o.w, msg)
	}
}

func (o *Output) printJSON(data any) {
	enc := json.NewEncoder(o.w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(data)
}

func (o *Output) printText(data any) {
	switch v := data.(type) {
	case response.Game:
		o.printGame(v)
	case response.GameList:
		o.printGameList(v)
	case response.Stack:
		o.printStack(v)
	case response.PlayResponse:
		o.printPlay(v)
	case response.Health:
		o.printHealth(v)
	default:
		// Fallback to JSON for unknown types
		o.printJSON(data)
	}
}

func (o *Output) printGame(g response.Game) {
	fmt.Fprintf(o.w, "Game: %s (%s)\n", g.ID, g.Role)
	fmt.Fprintf(o.w, "State: %s\n", g.State)
	if g.GameOver {
		fmt.Fprintln(o.w, "Game over")
	} else {
		fmt.Fprintf(o.w, "Turn: %d\n", g.Turn)
	}
	fmt.Fprintf(o.w, "Pool: %d tiles left\n", g.PoolLeft)
	fmt.Fprintf(o.w, "Stack: %d entries, hash %08x\n", g.StackDepth, g.Hash)
	if g.PrevMove != "" {
		fmt.Fprintf(o.w, "Last move: %s\n", g.PrevMove)
	}

	fmt.Fprintf(o.w, "Players (%d):\n", len(g.Players))
	for i, p := range g.Players {
		kind := "human"
		switch {
		case p.Robot:
			kind = "robot"
		case !p.Local:
			kind = "remote"
		}
		tray := ""
		if p.Tray != "" {
			tray = " [" + p.Tray + "]"
		}
		fmt.Fprintf(o.w, "  %d. %s (%s) %d points, %d tiles%s\n", i, p.Name, kind, p.Score, p.Tiles, tray)
	}

	if len(g.FinalScores) > 0 {
		fmt.Fprintln(o.w, "\nFinal Scores:")
		for i, score := range g.FinalScores {
			name := ""
			if i < len(g.Players) {
				name = g.Players[i].Name
			}
			fmt.Fprintf(o.w, "  %s: %d points\n", name, score)
		}
	}

	if len(g.Board) > 0 {
		fmt.Fprintln(o.w)
		o.printBoard(g.Board)
	}

	for _, e := range g.Errors {
		fmt.Fprintf(o.w, "Warning: %s\n", e)
	}
}

// printBoard prints the grid with lettered columns and numbered rows
func (o *Output) printBoard(rows []string) {
	cols := len(rows[0])

	fmt.Fprint(o.w, "    ")
	for col := 0; col < cols; col++ {
		fmt.Fprintf(o.w, " %c", 'A'+col)
	}
	fmt.Fprintln(o.w)

	fmt.Fprintln(o.w, "   +"+strings.Repeat("--", cols)+"-+")
	for i, row := range rows {
		fmt.Fprintf(o.w, "%2d |", i+1)
		for _, c := range row {
			fmt.Fprintf(o.w, " %c", c)
		}
		fmt.Fprintln(o.w, " |")
	}
	fmt.Fprintln(o.w, "   +"+strings.Repeat("--", cols)+"-+")
}

func (o *Output) printGameList(l response.GameList) {
	if len(l.Games) == 0 {
		fmt.Fprintln(o.w, "No games")
		return
	}
	for _, g := range l.Games {
		fmt.Fprintf(o.w, "%s  %-10s  %-16s  turn %d  updated %s\n",
			g.ID, g.Role, g.State, g.Turn, g.UpdatedAt.Format("2006-01-02 15:04"))
	}
}

func (o *Output) printStack(s response.Stack) {
	fmt.Fprintf(o.w, "Game: %s\n", s.ID)
	for i, e := range s.Entries {
		fmt.Fprintf(o.w, "%3d. %s\n", i+1, e.Description)
	}
}

func (o *Output) printPlay(p response.PlayResponse) {
	for _, m := range p.Moves {
		fmt.Fprintln(o.w, m)
	}
	if len(p.Moves) > 0 {
		fmt.Fprintln(o.w)
	}
	o.printGame(p.Game)
}

func (o *Output) printHealth(h response.Health) {
	fmt.Fprintf(o.w, "Status: %s\n", h.Status)
	if h.Dictionary != "" {
		fmt.Fprintf(o.w, "Dictionary: %s (%d words)\n", h.Dictionary, h.Words)
	}
}
