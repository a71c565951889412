package memory

import (
	"context"
	"testing"
	"time"

	"github.com/mcoot/xwsync/internal/model"
	"github.com/stretchr/testify/suite"
)

type StorageSuite struct {
	suite.Suite
	storage *Storage
	ctx     context.Context
}

func TestStorageSuite(t *testing.T) {
	suite.Run(t, new(StorageSuite))
}

func (s *StorageSuite) SetupTest() {
	s.storage = New()
	s.ctx = context.Background()
}

func record(id string, updated time.Time) *model.GameRecord {
	return &model.GameRecord{
		ID:        model.GameID(id),
		Role:      model.RoleStandalone,
		State:     "INTURN",
		Data:      []byte{0x01, 0x02, 0x03},
		CreatedAt: updated,
		UpdatedAt: updated,
	}
}

// Game tests

func (s *StorageSuite) TestSaveAndGetGame() {
	rec := record("game-1", time.Now())

	err := s.storage.SaveGame(s.ctx, rec)
	s.Require().NoError(err)
	s.NotEmpty(rec.Checksum)

	retrieved, err := s.storage.GetGame(s.ctx, "game-1")
	s.Require().NoError(err)
	s.Equal(rec.Data, retrieved.Data)
	s.Equal(rec.State, retrieved.State)
}

func (s *StorageSuite) TestGetGameNotFound() {
	_, err := s.storage.GetGame(s.ctx, "nonexistent")
	s.ErrorIs(err, model.ErrGameNotFound)
}

func (s *StorageSuite) TestSavedRecordIsIsolatedFromCaller() {
	rec := record("game-1", time.Now())
	s.Require().NoError(s.storage.SaveGame(s.ctx, rec))

	rec.Data[0] = 0xFF

	retrieved, err := s.storage.GetGame(s.ctx, "game-1")
	s.Require().NoError(err)
	s.Equal(byte(0x01), retrieved.Data[0])
}

func (s *StorageSuite) TestCorruptSnapshotIsRejected() {
	s.Require().NoError(s.storage.SaveGame(s.ctx, record("game-1", time.Now())))
	s.storage.games["game-1"].Data[1] = 0xFF

	_, err := s.storage.GetGame(s.ctx, "game-1")
	s.ErrorIs(err, model.ErrSnapshotCorrupt)
}

func (s *StorageSuite) TestDeleteGame() {
	s.Require().NoError(s.storage.SaveGame(s.ctx, record("game-1", time.Now())))

	s.Require().NoError(s.storage.DeleteGame(s.ctx, "game-1"))

	_, err := s.storage.GetGame(s.ctx, "game-1")
	s.ErrorIs(err, model.ErrGameNotFound)
}

func (s *StorageSuite) TestListGamesNewestFirst() {
	base := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	s.Require().NoError(s.storage.SaveGame(s.ctx, record("old", base)))
	s.Require().NoError(s.storage.SaveGame(s.ctx, record("new", base.Add(time.Minute))))

	recs, err := s.storage.ListGames(s.ctx)

	s.Require().NoError(err)
	s.Require().Len(recs, 2)
	s.Equal(model.GameID("new"), recs[0].ID)
	s.Equal(model.GameID("old"), recs[1].ID)
}

// Dictionary tests

func (s *StorageSuite) TestSaveAndGetDictionaryWords() {
	words := []string{"apple", "banana", "cherry"}

	err := s.storage.SaveDictionaryWords(s.ctx, words)
	s.Require().NoError(err)

	retrieved, err := s.storage.GetDictionaryWords(s.ctx)
	s.Require().NoError(err)
	s.Equal(words, retrieved)
}

func (s *StorageSuite) TestGetDictionaryWordsNotLoaded() {
	_, err := s.storage.GetDictionaryWords(s.ctx)
	s.ErrorIs(err, model.ErrDictionaryNotLoaded)
}
