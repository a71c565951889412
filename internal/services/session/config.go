package session

import (
	redcomms "github.com/mcoot/xwsync/internal/comms/redis"
	"github.com/mcoot/xwsync/internal/services/game"
)

// Config holds settings for game sessions
type Config struct {
	Features game.FeatureConfig
	// InboxSize buffers inbound messages waiting for the controller
	InboxSize int
	// MaxSteps bounds the deferred work run after one event, and so the
	// length of a robot-only game
	MaxSteps int
	PubSub   redcomms.Config
}

// DefaultConfig returns sensible defaults for sessions
func DefaultConfig() Config {
	return Config{
		Features:  game.DefaultFeatureConfig(),
		InboxSize: 64,
		MaxSteps:  10000,
		PubSub:    redcomms.DefaultConfig(),
	}
}
