package model

import "time"

// GameRecord is the persisted snapshot of one device's view of a game
type GameRecord struct {
	ID    GameID     `json:"id"`
	Role  DeviceRole `json:"role"`
	State string     `json:"state"`
	Turn  int        `json:"turn"`
	// Data is the serialized game info, pool, board and controller state
	Data []byte `json:"data"`
	// Checksum is filled in by storage on save and verified on load
	Checksum  string    `json:"checksum"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ChatMessage is one line of in-game chat. From is -1 when the sender is local.
type ChatMessage struct {
	From      int    `json:"from"`
	Text      string `json:"text"`
	Timestamp uint32 `json:"timestamp"`
}
