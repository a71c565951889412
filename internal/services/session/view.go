package session

import (
	"strings"
	"time"

	"github.com/mcoot/xwsync/internal/model"
	"github.com/mcoot/xwsync/internal/services/game"
)

// PlayerView is one seat as this device sees it
type PlayerView struct {
	Name        string `json:"name"`
	Local       bool   `json:"local"`
	Robot       bool   `json:"robot"`
	Score       int    `json:"score"`
	Tiles       int    `json:"tiles"`
	Tray        string `json:"tray,omitempty"`
	SecondsUsed int    `json:"seconds_used"`
}

// Summary is a snapshot of a session for display
type Summary struct {
	ID          model.GameID        `json:"id"`
	Role        model.DeviceRole    `json:"role"`
	State       string              `json:"state"`
	Turn        int                 `json:"turn"`
	Duplicate   bool                `json:"duplicate"`
	Players     []PlayerView        `json:"players"`
	PoolLeft    int                 `json:"pool_left"`
	StackDepth  int                 `json:"stack_depth"`
	Hash        uint32              `json:"hash"`
	PrevMove    string              `json:"prev_move,omitempty"`
	GameOver    bool                `json:"game_over"`
	Quitter     int                 `json:"quitter"`
	FinalScores []int               `json:"final_scores,omitempty"`
	Chats       []model.ChatMessage `json:"chats,omitempty"`
	// Board has one string per row: "." for an empty cell and lower case
	// for a blank
	Board     []string          `json:"board"`
	Errors    []model.UserError `json:"errors,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
}

// Update is the short form of a game's state sent to observers
type Update struct {
	ID         model.GameID `json:"id"`
	State      string       `json:"state"`
	Turn       int          `json:"turn"`
	Hash       uint32       `json:"hash"`
	StackDepth int          `json:"stack_depth"`
	PoolLeft   int          `json:"pool_left"`
	GameOver   bool         `json:"game_over"`
	PrevMove   string       `json:"prev_move,omitempty"`
}

// Observer is told when a game changes. GameChanged is called with the
// session locked and must not block.
type Observer interface {
	GameChanged(u Update)
}

// StackItem is one move stack entry with its description
type StackItem struct {
	model.StackEntry
	Description string `json:"description"`
}

// Summary describes the game now. User errors reported since the last
// call are included and then cleared.
func (s *Session) Summary() Summary {
	s.mu.Lock()
	defer s.mu.Unlock()
	info := s.ctrl.GameInfo()
	ts := s.deps.TileSet
	scores := s.board.Scores()
	out := Summary{
		ID:         s.id,
		Role:       info.Role,
		State:      s.ctrl.State().String(),
		Turn:       s.ctrl.CurrentTurn(),
		Duplicate:  info.Duplicate,
		PoolLeft:   s.pool.Left(),
		StackDepth: s.board.StackLen(),
		Hash:       s.board.Hash(),
		GameOver:   s.ctrl.IsGameOver(),
		Quitter:    s.ctrl.Quitter(),
		Chats:      s.board.Chats(),
		Errors:     s.userErrors,
		CreatedAt:  s.created,
	}
	s.userErrors = nil
	_, out.PrevMove = s.ctrl.PrevMove()
	out.Board = s.rows()
	if out.GameOver {
		out.FinalScores = s.ctrl.FinalScores()
	}
	for p, pi := range info.Players {
		pv := PlayerView{
			Name:        pi.Name,
			Local:       pi.IsLocal,
			Robot:       pi.IsRobot,
			SecondsUsed: s.ctrl.SecondsUsed(p),
		}
		if p < len(scores) {
			pv.Score = scores[p]
		}
		if p < s.board.NPlayers() {
			pv.Tiles = s.board.NumTilesInTray(p)
			if pi.IsLocal {
				pv.Tray = letters(ts, s.board.TrayTiles(p))
			}
		}
		out.Players = append(out.Players, pv)
	}
	return out
}

// Stack returns the move stack oldest first
func (s *Session) Stack() []StackItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	entries := s.board.Stack()
	out := make([]StackItem, 0, len(entries))
	for _, e := range entries {
		out = append(out, StackItem{StackEntry: e, Description: s.board.Describe(e)})
	}
	return out
}

// Moves returns the descriptions of moves reported while this session ran
func (s *Session) Moves() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.moves...)
}

// Role returns this device's part in the game
func (s *Session) Role() model.DeviceRole {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ctrl.GameInfo().Role
}

// State returns the controller's state
func (s *Session) State() game.GameState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ctrl.State()
}

func (s *Session) rows() []string {
	cols, rows := s.board.Dims()
	ts := s.deps.TileSet
	out := make([]string, rows)
	for row := 0; row < rows; row++ {
		var sb strings.Builder
		for col := 0; col < cols; col++ {
			t, blank, ok := s.board.TileAt(col, row)
			switch {
			case !ok:
				sb.WriteByte('.')
			case blank:
				sb.WriteString(strings.ToLower(ts.Letter(t)))
			default:
				sb.WriteString(ts.Letter(t))
			}
		}
		out[row] = sb.String()
	}
	return out
}

func letters(ts *model.TileSet, tiles []model.Tile) string {
	var sb strings.Builder
	for _, t := range tiles {
		sb.WriteString(ts.Letter(t))
	}
	return sb.String()
}

// Current returns the short form of the game's state
func (s *Session) Current() Update {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.update()
}

func (s *Session) update() Update {
	u := Update{
		ID:         s.id,
		State:      s.ctrl.State().String(),
		Turn:       s.ctrl.CurrentTurn(),
		Hash:       s.board.Hash(),
		StackDepth: s.board.StackLen(),
		PoolLeft:   s.pool.Left(),
		GameOver:   s.ctrl.IsGameOver(),
	}
	_, u.PrevMove = s.ctrl.PrevMove()
	return u
}

// publish tells the observer about the state if it moved on since the last call
func (s *Session) publish() {
	if s.deps.Observer == nil {
		return
	}
	u := s.update()
	if u == s.published {
		return
	}
	s.published = u
	s.deps.Observer.GameChanged(u)
}
