package storage

import (
	"context"

	"github.com/mcoot/xwsync/internal/model"
)

// Storage defines the interface for data persistence
type Storage interface {
	// Game snapshot operations
	SaveGame(ctx context.Context, rec *model.GameRecord) error
	GetGame(ctx context.Context, id model.GameID) (*model.GameRecord, error)
	DeleteGame(ctx context.Context, id model.GameID) error
	ListGames(ctx context.Context) ([]*model.GameRecord, error)

	// Dictionary operations
	GetDictionaryWords(ctx context.Context) ([]string, error)
	SaveDictionaryWords(ctx context.Context, words []string) error
}
