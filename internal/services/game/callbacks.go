package game

import (
	"time"

	"github.com/mcoot/xwsync/internal/model"
)

// TimerReason tags a timer the controller asks its host to run
type TimerReason uint8

const (
	TimerSlowRobot TimerReason = iota
	TimerDupCheck
)

func (r TimerReason) String() string {
	switch r {
	case TimerSlowRobot:
		return "slow_robot"
	case TimerDupCheck:
		return "dup_check"
	default:
		return "unknown"
	}
}

// PauseType is the state of the duplicate-mode countdown
type PauseType uint8

const (
	Unpaused PauseType = iota
	Paused
	AutoPaused
)

// HostCallbacks is everything the controller needs from whatever drives it
type HostCallbacks interface {
	// SetTimer asks for TimerFired(reason) after d; a second call replaces the first
	SetTimer(reason TimerReason, d time.Duration)
	ClearTimer(reason TimerReason)
	// RequestDo asks for Do to be called once the current call returns
	RequestDo()
	UserError(code model.UserError)
	NotifyIllegalWords(player int, words []string, dictName string, forMe bool)
	TurnChanged(turn int)
	GameOver(quitter int)
	InformMove(player int, description string)
	InformUndo()
	ChatReceived(from int, msg string, timestamp uint32)
	// PickTiles lets a player choose tiles from those available; returning
	// nil draws at random
	PickTiles(player int, available []model.Tile) []model.Tile
	DupStatus(msg string)
	InformPaused(turn int, paused PauseType, msg string)
}

// NopCallbacks ignores everything. Embed it to implement only what you need.
type NopCallbacks struct{}

var _ HostCallbacks = NopCallbacks{}

func (NopCallbacks) SetTimer(TimerReason, time.Duration) {}
func (NopCallbacks) ClearTimer(TimerReason) {}
func (NopCallbacks) RequestDo() {}
func (NopCallbacks) UserError(model.UserError) {}
func (NopCallbacks) NotifyIllegalWords(int, []string, string, bool) {}
func (NopCallbacks) TurnChanged(int) {}
func (NopCallbacks) GameOver(int) {}
func (NopCallbacks) InformMove(int, string) {}
func (NopCallbacks) InformUndo() {}
func (NopCallbacks) ChatReceived(int, string, uint32) {}
func (NopCallbacks) PickTiles(int, []model.Tile) []model.Tile { return nil }
func (NopCallbacks) DupStatus(string) {}
func (NopCallbacks) InformPaused(int, PauseType, string) {}
