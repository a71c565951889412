package memory

import (
	"context"
	"sync"

	"github.com/mcoot/xwsync/internal/model"
	"github.com/mcoot/xwsync/internal/storage"
)

// Storage is an in-memory implementation of the storage interface
type Storage struct {
	mu sync.RWMutex

	games           map[model.GameID]*model.GameRecord
	dictionaryWords []string
}

// New creates a new in-memory storage instance
func New() *Storage {
	return &Storage{
		games: make(map[model.GameID]*model.GameRecord),
	}
}

// Ensure Storage implements the interface
var _ storage.Storage = (*Storage)(nil)

// Game operations

func (s *Storage) SaveGame(ctx context.Context, rec *model.GameRecord) error {
	stored := copyRecord(rec)
	storage.Seal(stored)
	rec.Checksum = stored.Checksum

	s.mu.Lock()
	defer s.mu.Unlock()
	s.games[rec.ID] = stored
	return nil
}

func (s *Storage) GetGame(ctx context.Context, id model.GameID) (*model.GameRecord, error) {
	s.mu.RLock()
	rec, ok := s.games[id]
	s.mu.RUnlock()
	if !ok {
		return nil, model.ErrGameNotFound
	}
	if err := storage.Verify(rec); err != nil {
		return nil, err
	}
	return copyRecord(rec), nil
}

func (s *Storage) DeleteGame(ctx context.Context, id model.GameID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.games, id)
	return nil
}

func (s *Storage) ListGames(ctx context.Context) ([]*model.GameRecord, error) {
	s.mu.RLock()
	recs := make([]*model.GameRecord, 0, len(s.games))
	for _, rec := range s.games {
		recs = append(recs, copyRecord(rec))
	}
	s.mu.RUnlock()

	storage.SortRecords(recs)
	return recs, nil
}

// Dictionary operations

func (s *Storage) GetDictionaryWords(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.dictionaryWords == nil {
		return nil, model.ErrDictionaryNotLoaded
	}
	result := make([]string, len(s.dictionaryWords))
	copy(result, s.dictionaryWords)
	return result, nil
}

func (s *Storage) SaveDictionaryWords(ctx context.Context, words []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dictionaryWords = make([]string, len(words))
	copy(s.dictionaryWords, words)
	return nil
}

func copyRecord(rec *model.GameRecord) *model.GameRecord {
	out := *rec
	out.Data = append([]byte(nil), rec.Data...)
	return &out
}
