package response

import (
	"time"

	"github.com/mcoot/xwsync/internal/model"
	"github.com/mcoot/xwsync/internal/services/session"
)

// Game is a live view of one game
type Game = session.Summary

// GameListItem is one stored game in a listing
type GameListItem struct {
	ID        string    `json:"id"`
	Role      string    `json:"role"`
	State     string    `json:"state"`
	Turn      int       `json:"turn"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// GameListItemFromRecord converts a stored record, leaving its data behind
func GameListItemFromRecord(rec *model.GameRecord) GameListItem {
	return GameListItem{
		ID:        string(rec.ID),
		Role:      rec.Role.String(),
		State:     rec.State,
		Turn:      rec.Turn,
		CreatedAt: rec.CreatedAt,
		UpdatedAt: rec.UpdatedAt,
	}
}

// GameList is the response for listing games
type GameList struct {
	Games []GameListItem `json:"games"`
}

// GameListFromRecords converts stored records
func GameListFromRecords(recs []*model.GameRecord) GameList {
	out := GameList{Games: make([]GameListItem, 0, len(recs))}
	for _, rec := range recs {
		out.Games = append(out.Games, GameListItemFromRecord(rec))
	}
	return out
}

// Stack is the response for a game's move stack
type Stack struct {
	ID      string              `json:"id"`
	Entries []session.StackItem `json:"entries"`
}

// PlayResponse is the game after robots or an action have run, with the
// moves described along the way
type PlayResponse struct {
	Game  Game     `json:"game"`
	Moves []string `json:"moves,omitempty"`
}

// Health is the response for the health check
type Health struct {
	Status     string `json:"status"`
	Dictionary string `json:"dictionary,omitempty"`
	Words      int    `json:"words"`
}
