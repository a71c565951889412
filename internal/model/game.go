package model

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/mcoot/xwsync/internal/bitstream"
)

// GameID uniquely identifies a game
type GameID string

// NewGameID generates a random game ID
func NewGameID() GameID {
	return GameID(uuid.NewString())
}

// Player and device limits and their wire widths
const (
	MaxPlayers      = 4
	PlayerNumBits   = 2
	NPlayersBits    = 3
	MaxNameLen      = 31
	NameLenBits     = 6
	DefaultTraySize = 7
)

// DeviceRole is this device's part in a networked game
type DeviceRole uint8

const (
	RoleStandalone DeviceRole = iota
	RoleHost
	RoleGuest
)

func (r DeviceRole) String() string {
	switch r {
	case RoleStandalone:
		return "standalone"
	case RoleHost:
		return "host"
	case RoleGuest:
		return "guest"
	default:
		return "unknown"
	}
}

// MarshalText encodes the role by name
func (r DeviceRole) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

// UnmarshalText decodes a role name
func (r *DeviceRole) UnmarshalText(b []byte) error {
	for _, v := range []DeviceRole{RoleStandalone, RoleHost, RoleGuest} {
		if v.String() == string(b) {
			*r = v
			return nil
		}
	}
	return fmt.Errorf("unknown device role %q", b)
}

// PhoniesAction controls what happens when a move forms words not in the dictionary
type PhoniesAction uint8

const (
	PhoniesIgnore PhoniesAction = iota
	PhoniesWarn
	PhoniesDisallow
)

var phoniesNames = []string{"ignore", "warn", "disallow"}

func (p PhoniesAction) String() string {
	if int(p) < len(phoniesNames) {
		return phoniesNames[p]
	}
	return "unknown"
}

func (p PhoniesAction) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

func (p *PhoniesAction) UnmarshalText(b []byte) error {
	for i, name := range phoniesNames {
		if name == string(b) {
			*p = PhoniesAction(i)
			return nil
		}
	}
	return fmt.Errorf("unknown phonies action %q", b)
}

// PlayerInfo describes one seat in a game
type PlayerInfo struct {
	Name    string `json:"name"`
	IsLocal bool   `json:"is_local"`
	IsRobot bool   `json:"is_robot"`
	// RobotIQ ranges 1..100; 100 always plays the best move found
	RobotIQ int `json:"robot_iq"`
}

// GameInfo is the configuration shared by every device in a game
type GameInfo struct {
	ID           GameID        `json:"id"`
	Cols         int           `json:"cols"`
	Rows         int           `json:"rows"`
	TraySize     int           `json:"tray_size"`
	Players      []PlayerInfo  `json:"players"`
	Role         DeviceRole    `json:"role"`
	Duplicate    bool          `json:"duplicate"`
	Phonies      PhoniesAction `json:"phonies"`
	TimerEnabled bool          `json:"timer_enabled"`
	GameSeconds  int           `json:"game_seconds"`
	DictName     string        `json:"dict_name"`
	TileSetName  string        `json:"tile_set_name"`
}

// NPlayers returns the number of seats
func (gi *GameInfo) NPlayers() int {
	return len(gi.Players)
}

// NLocalPlayers returns the number of seats played on this device
func (gi *GameInfo) NLocalPlayers() int {
	n := 0
	for _, p := range gi.Players {
		if p.IsLocal {
			n++
		}
	}
	return n
}

// Validate checks the structural limits the wire format depends on
func (gi *GameInfo) Validate() error {
	if len(gi.Players) == 0 {
		return ErrNoPlayers
	}
	if len(gi.Players) > MaxPlayers {
		return ErrTooManyPlayers
	}
	if gi.Cols <= 0 || gi.Rows <= 0 || gi.Cols > MaxBoardSize || gi.Rows > MaxBoardSize {
		return ErrInvalidPosition
	}
	if gi.TraySize <= 0 || gi.TraySize > MaxTraySize {
		return ErrBadTrayIndex
	}
	return nil
}

// Clone returns a deep copy
func (gi *GameInfo) Clone() *GameInfo {
	out := *gi
	out.Players = append([]PlayerInfo(nil), gi.Players...)
	return &out
}

// WriteTo encodes the game info
func (gi *GameInfo) WriteTo(w *bitstream.Writer) {
	w.PutString(string(gi.ID))
	w.PutU8(uint8(gi.Cols))
	w.PutU8(uint8(gi.Rows))
	w.PutBits(TrayCountBits, uint32(gi.TraySize))
	w.PutBits(2, uint32(gi.Role))
	w.PutBool(gi.Duplicate)
	w.PutBits(2, uint32(gi.Phonies))
	w.PutBool(gi.TimerEnabled)
	w.PutU16(uint16(gi.GameSeconds))
	w.PutString(gi.DictName)
	w.PutString(gi.TileSetName)
	w.PutBits(NPlayersBits, uint32(len(gi.Players)))
	for _, p := range gi.Players {
		w.PutString(p.Name)
		w.PutBool(p.IsLocal)
		w.PutBool(p.IsRobot)
		w.PutU8(uint8(p.RobotIQ))
	}
}

// ReadGameInfo decodes game info written by GameInfo.WriteTo
func ReadGameInfo(r *bitstream.Reader) (*GameInfo, error) {
	gi := &GameInfo{
		ID:           GameID(r.GetString()),
		Cols:         int(r.GetU8()),
		Rows:         int(r.GetU8()),
		TraySize:     int(r.GetBits(TrayCountBits)),
		Role:         DeviceRole(r.GetBits(2)),
		Duplicate:    r.GetBool(),
		Phonies:      PhoniesAction(r.GetBits(2)),
		TimerEnabled: r.GetBool(),
		GameSeconds:  int(r.GetU16()),
		DictName:     r.GetString(),
		TileSetName:  r.GetString(),
	}
	n := int(r.GetBits(NPlayersBits))
	for i := 0; i < n; i++ {
		gi.Players = append(gi.Players, PlayerInfo{
			Name:    r.GetString(),
			IsLocal: r.GetBool(),
			IsRobot: r.GetBool(),
			RobotIQ: int(r.GetU8()),
		})
	}
	if err := r.Err(); err != nil {
		return nil, err
	}
	if err := gi.Validate(); err != nil {
		return nil, err
	}
	return gi, nil
}
