package game

import "time"

// FeatureConfig switches optional controller behaviour at runtime
type FeatureConfig struct {
	// SlowRobots delays each robot move by up to RobotDelay
	SlowRobots bool
	RobotDelay time.Duration
	// RobotTradePct is the chance, in percent, that a robot trades instead of moving
	RobotTradePct int
	// MaxPasses is the number of full rounds of passes that ends the game
	MaxPasses int
	// BadTrayRetries bounds redraws of a tray that allows no move
	BadTrayRetries int
	// AllowPickTiles lets a standalone human choose their starting tiles
	AllowPickTiles bool
	// SortTrays orders freshly drawn tiles by face
	SortTrays bool
}

// DefaultFeatureConfig returns the standard rules
func DefaultFeatureConfig() FeatureConfig {
	return FeatureConfig{
		RobotDelay:     2 * time.Second,
		MaxPasses:      2,
		BadTrayRetries: 5,
	}
}
