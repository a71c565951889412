package redis

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/mcoot/xwsync/internal/model"
	"github.com/mcoot/xwsync/internal/storage"
)

// Storage is a Redis-backed implementation of the storage interface
type Storage struct {
	client *redis.Client
	cfg    Config
}

// New creates a new Redis storage instance
func New(cfg Config) (*Storage, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, err
	}

	opts.PoolSize = cfg.PoolSize
	opts.MinIdleConns = cfg.MinIdleConns

	client := redis.NewClient(opts)

	// Verify connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}

	return &Storage{
		client: client,
		cfg:    cfg,
	}, nil
}

// NewWithClient creates a Redis storage with an existing client (for testing)
func NewWithClient(client *redis.Client, cfg Config) *Storage {
	return &Storage{
		client: client,
		cfg:    cfg,
	}
}

// Client exposes the underlying connection so pub/sub comms can share it
func (s *Storage) Client() *redis.Client {
	return s.client
}

// Close closes the Redis connection
func (s *Storage) Close() error {
	return s.client.Close()
}

// Ensure Storage implements the interface
var _ storage.Storage = (*Storage)(nil)

// Game operations

func (s *Storage) SaveGame(ctx context.Context, rec *model.GameRecord) error {
	storage.Seal(rec)
	data, err := json.Marshal(rec)
	if err != nil {
		return err
	}

	// Use pipeline for atomic save + index update
	pipe := s.client.Pipeline()
	pipe.Set(ctx, gameKey(rec.ID), data, s.cfg.GameTTL)
	pipe.SAdd(ctx, gamesIndexKey(), string(rec.ID))
	_, err = pipe.Exec(ctx)
	return err
}

func (s *Storage) GetGame(ctx context.Context, id model.GameID) (*model.GameRecord, error) {
	data, err := s.client.Get(ctx, gameKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, model.ErrGameNotFound
		}
		return nil, err
	}

	var rec model.GameRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, err
	}
	if err := storage.Verify(&rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

func (s *Storage) DeleteGame(ctx context.Context, id model.GameID) error {
	pipe := s.client.Pipeline()
	pipe.Del(ctx, gameKey(id))
	pipe.SRem(ctx, gamesIndexKey(), string(id))
	_, err := pipe.Exec(ctx)
	return err
}

func (s *Storage) ListGames(ctx context.Context) ([]*model.GameRecord, error) {
	ids, err := s.client.SMembers(ctx, gamesIndexKey()).Result()
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return []*model.GameRecord{}, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = gameKey(model.GameID(id))
	}
	values, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, err
	}

	recs := make([]*model.GameRecord, 0, len(values))
	var expired []interface{}
	for i, val := range values {
		if val == nil {
			expired = append(expired, ids[i])
			continue
		}
		var rec model.GameRecord
		if err := json.Unmarshal([]byte(val.(string)), &rec); err != nil {
			continue // Skip invalid data
		}
		recs = append(recs, &rec)
	}
	if len(expired) > 0 {
		// Prune IDs whose snapshot has expired
		if err := s.client.SRem(ctx, gamesIndexKey(), expired...).Err(); err != nil {
			return nil, err
		}
	}

	storage.SortRecords(recs)
	return recs, nil
}

// Dictionary operations

func (s *Storage) GetDictionaryWords(ctx context.Context) ([]string, error) {
	key := dictionaryKey()

	// Check if dictionary exists
	exists, err := s.client.Exists(ctx, key).Result()
	if err != nil {
		return nil, err
	}
	if exists == 0 {
		return nil, model.ErrDictionaryNotLoaded
	}

	// Get all words from the set
	words, err := s.client.SMembers(ctx, key).Result()
	if err != nil {
		return nil, err
	}

	return words, nil
}

func (s *Storage) SaveDictionaryWords(ctx context.Context, words []string) error {
	key := dictionaryKey()

	// Delete existing dictionary and add new words atomically
	pipe := s.client.Pipeline()
	pipe.Del(ctx, key)

	if len(words) > 0 {
		// Convert []string to []interface{} for SAdd
		members := make([]interface{}, len(words))
		for i, w := range words {
			members[i] = w
		}
		pipe.SAdd(ctx, key, members...)
	}

	_, err := pipe.Exec(ctx)
	return err
}
