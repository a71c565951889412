package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/suite"

	"github.com/mcoot/xwsync/internal/model"
)

type StorageSuite struct {
	suite.Suite
	mini    *miniredis.Miniredis
	storage *Storage
	ctx     context.Context
}

func TestStorageSuite(t *testing.T) {
	suite.Run(t, new(StorageSuite))
}

func (s *StorageSuite) SetupTest() {
	s.mini = miniredis.RunT(s.T())

	client := redis.NewClient(&redis.Options{
		Addr: s.mini.Addr(),
	})

	cfg := DefaultConfig()
	cfg.GameTTL = time.Hour

	s.storage = NewWithClient(client, cfg)
	s.ctx = context.Background()
}

func (s *StorageSuite) TearDownTest() {
	if s.storage != nil {
		_ = s.storage.Close()
	}
	if s.mini != nil {
		s.mini.Close()
	}
}

func record(id string, updated time.Time) *model.GameRecord {
	return &model.GameRecord{
		ID:        model.GameID(id),
		Role:      model.RoleHost,
		State:     "INTURN",
		Turn:      1,
		Data:      []byte{0x10, 0x20, 0x30},
		CreatedAt: updated,
		UpdatedAt: updated,
	}
}

// Game tests

func (s *StorageSuite) TestSaveAndGetGame() {
	rec := record("game-1", time.Now())

	err := s.storage.SaveGame(s.ctx, rec)
	s.Require().NoError(err)

	retrieved, err := s.storage.GetGame(s.ctx, "game-1")
	s.Require().NoError(err)
	s.Equal(rec.ID, retrieved.ID)
	s.Equal(rec.Data, retrieved.Data)
	s.Equal(model.RoleHost, retrieved.Role)
	s.Equal(1, retrieved.Turn)
}

func (s *StorageSuite) TestGetGameNotFound() {
	_, err := s.storage.GetGame(s.ctx, "nonexistent")
	s.ErrorIs(err, model.ErrGameNotFound)
}

func (s *StorageSuite) TestGameTTL() {
	_ = s.storage.SaveGame(s.ctx, record("game-1", time.Now()))

	ttl := s.mini.TTL(gameKey("game-1"))
	s.True(ttl > 0, "Game should have TTL")
}

func (s *StorageSuite) TestTamperedSnapshotIsRejected() {
	rec := record("game-1", time.Now())
	s.Require().NoError(s.storage.SaveGame(s.ctx, rec))

	rec.Data = []byte{0x99}
	raw := `{"id":"game-1","role":"host","state":"inturn","turn":1,"data":"mQ==","checksum":"` + rec.Checksum + `"}`
	s.Require().NoError(s.mini.Set(gameKey("game-1"), raw))

	_, err := s.storage.GetGame(s.ctx, "game-1")
	s.ErrorIs(err, model.ErrSnapshotCorrupt)
}

func (s *StorageSuite) TestDeleteGameRemovesIndexEntry() {
	_ = s.storage.SaveGame(s.ctx, record("game-1", time.Now()))

	s.Require().NoError(s.storage.DeleteGame(s.ctx, "game-1"))

	recs, err := s.storage.ListGames(s.ctx)
	s.Require().NoError(err)
	s.Empty(recs)
}

func (s *StorageSuite) TestListGames() {
	base := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	_ = s.storage.SaveGame(s.ctx, record("old", base))
	_ = s.storage.SaveGame(s.ctx, record("new", base.Add(time.Minute)))

	recs, err := s.storage.ListGames(s.ctx)

	s.Require().NoError(err)
	s.Require().Len(recs, 2)
	s.Equal(model.GameID("new"), recs[0].ID)
}

func (s *StorageSuite) TestListGamesPrunesExpired() {
	_ = s.storage.SaveGame(s.ctx, record("game-1", time.Now()))
	s.mini.FastForward(2 * time.Hour)

	recs, err := s.storage.ListGames(s.ctx)

	s.Require().NoError(err)
	s.Empty(recs)
	members, err := s.mini.SMembers(gamesIndexKey())
	s.True(err != nil || len(members) == 0)
}

// Dictionary tests

func (s *StorageSuite) TestSaveAndGetDictionaryWords() {
	words := []string{"apple", "banana", "cherry"}

	err := s.storage.SaveDictionaryWords(s.ctx, words)
	s.Require().NoError(err)

	retrieved, err := s.storage.GetDictionaryWords(s.ctx)
	s.Require().NoError(err)
	s.ElementsMatch(words, retrieved) // Order may differ (SET)
}

func (s *StorageSuite) TestGetDictionaryWordsNotLoaded() {
	_, err := s.storage.GetDictionaryWords(s.ctx)
	s.ErrorIs(err, model.ErrDictionaryNotLoaded)
}

func (s *StorageSuite) TestSaveDictionaryWordsReplacesExisting() {
	words1 := []string{"apple", "banana"}
	words2 := []string{"cherry", "date", "elderberry"}

	_ = s.storage.SaveDictionaryWords(s.ctx, words1)
	_ = s.storage.SaveDictionaryWords(s.ctx, words2)

	retrieved, err := s.storage.GetDictionaryWords(s.ctx)
	s.Require().NoError(err)
	s.ElementsMatch(words2, retrieved)
}

func (s *StorageSuite) TestDictionaryNoTTL() {
	words := []string{"apple"}
	_ = s.storage.SaveDictionaryWords(s.ctx, words)

	ttl := s.mini.TTL(dictionaryKey())
	s.Equal(time.Duration(0), ttl, "Dictionary should not have TTL")
}
