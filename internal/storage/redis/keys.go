package redis

import (
	"fmt"

	"github.com/mcoot/xwsync/internal/model"
)

// Key prefix for all game-related data
const keyPrefix = "xwsync"

// gameKey returns the Redis key for a game snapshot
func gameKey(id model.GameID) string {
	return fmt.Sprintf("%s:game:%s", keyPrefix, id)
}

// gamesIndexKey returns the Redis key for the SET of saved game IDs
func gamesIndexKey() string {
	return fmt.Sprintf("%s:idx:games", keyPrefix)
}

// dictionaryKey returns the Redis key for the dictionary word set
func dictionaryKey() string {
	return fmt.Sprintf("%s:dictionary", keyPrefix)
}
