package factory

import (
	"context"
	"errors"
	"io"
	"log/slog"

	goredis "github.com/redis/go-redis/v9"

	"github.com/mcoot/xwsync/internal/api/sse"
	"github.com/mcoot/xwsync/internal/dependencies/clock"
	"github.com/mcoot/xwsync/internal/dependencies/random"
	"github.com/mcoot/xwsync/internal/model"
	"github.com/mcoot/xwsync/internal/services/bot"
	"github.com/mcoot/xwsync/internal/services/dictionary"
	"github.com/mcoot/xwsync/internal/services/scoring"
	"github.com/mcoot/xwsync/internal/services/session"
	"github.com/mcoot/xwsync/internal/storage"
	"github.com/mcoot/xwsync/internal/storage/memory"
	redisstorage "github.com/mcoot/xwsync/internal/storage/redis"
)

// Storage type constants
const (
	StorageTypeMemory = "memory"
	StorageTypeRedis  = "redis"
)

// DefaultDictionaryName names the dictionary when the config leaves it unset
const DefaultDictionaryName = "default"

// App contains all wired application components
type App struct {
	// Storage
	Storage storage.Storage

	// External dependencies
	Clock  clock.Clock
	Random random.Random

	TileSet *model.TileSet

	// Services
	Dictionary *dictionary.Service
	Scoring    *scoring.Service
	Engine     *bot.WordListEngine
	Sessions   *session.Manager
	Events     *sse.HubManager

	closers []func() error
}

// Config holds configuration for the application factory
type Config struct {
	// DictionaryPath is the path to the dictionary file (optional)
	// If empty, the dictionary is loaded from storage when it holds one
	DictionaryPath string
	// DictionaryName is reported to peers; defaults to DefaultDictionaryName
	DictionaryName string
	// Logger is the application logger (optional)
	// If nil, a no-op logger is used
	Logger *slog.Logger
	// StorageType selects the storage backend ("memory" or "redis")
	// If empty, defaults to "memory"
	StorageType string
	// RedisConfig holds Redis connection settings (required if StorageType is "redis").
	// The same connection carries the pub/sub transport for networked games.
	RedisConfig *redisstorage.Config
	// Session configures the game sessions; nil means session.DefaultConfig()
	Session *session.Config
	// Seed makes tile draws and robot choices reproducible when set
	Seed string
}

// New creates a new application with all dependencies wired
func New(ctx context.Context, cfg Config) (*App, error) {
	// Use no-op logger if not provided
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}

	// Create storage based on type
	var (
		store   storage.Storage
		pubsub  *goredis.Client
		closers []func() error
	)
	storageType := cfg.StorageType
	if storageType == "" {
		storageType = StorageTypeMemory
	}

	switch storageType {
	case StorageTypeMemory:
		store = memory.New()
	case StorageTypeRedis:
		if cfg.RedisConfig == nil {
			return nil, errors.New("RedisConfig required when StorageType is redis")
		}
		redisStore, err := redisstorage.New(*cfg.RedisConfig)
		if err != nil {
			return nil, err
		}
		store = redisStore
		pubsub = redisStore.Client()
		closers = append(closers, redisStore.Close)
	default:
		return nil, errors.New("invalid StorageType: must be 'memory' or 'redis'")
	}

	// Create external dependencies
	clk := clock.New()
	var rnd random.Random = random.New()
	if cfg.Seed != "" {
		rnd = random.NewSeeded([]byte(cfg.Seed))
	}

	sessCfg := session.DefaultConfig()
	if cfg.Session != nil {
		sessCfg = *cfg.Session
	}

	app := newWithDependencies(store, pubsub, clk, rnd, dictName(cfg), sessCfg, logger)
	app.closers = closers

	if cfg.DictionaryPath != "" {
		if err := app.Dictionary.LoadFromFile(ctx, cfg.DictionaryPath); err != nil {
			_ = app.Close()
			return nil, err
		}
	} else if err := app.Dictionary.LoadFromStorage(ctx); err != nil {
		logger.Warn("no dictionary loaded", slog.String("error", err.Error()))
	}
	logger.Info("dictionary ready",
		slog.String("name", app.Dictionary.Name()),
		slog.Int("words", app.Dictionary.WordCount()),
	)
	return app, nil
}

func dictName(cfg Config) string {
	if cfg.DictionaryName != "" {
		return cfg.DictionaryName
	}
	return DefaultDictionaryName
}

// newWithDependencies creates an App with the given dependencies (useful for testing)
func newWithDependencies(store storage.Storage, pubsub *goredis.Client, clk clock.Clock, rnd random.Random, name string, sessCfg session.Config, logger *slog.Logger) *App {
	tileSet := model.EnglishTileSet()

	// Create services
	dictService := dictionary.New(store, name)
	scoringService := scoring.New(dictService, scoring.StandardLayout{Cols: session.DefaultBoardSize, Rows: session.DefaultBoardSize})
	engine := bot.NewWordListEngine(dictService, scoringService, bot.NewIQStrategy(rnd), model.DefaultTraySize, logger)
	hubs := sse.NewHubManager(logger)
	manager := session.NewManager(sessCfg, session.Deps{
		TileSet:  tileSet,
		Oracle:   scoringService,
		Engine:   engine,
		Store:    store,
		PubSub:   pubsub,
		Clock:    clk,
		Random:   rnd,
		Logger:   logger,
		Observer: hubs,
	})

	return &App{
		Storage:    store,
		Clock:      clk,
		Random:     rnd,
		TileSet:    tileSet,
		Dictionary: dictService,
		Scoring:    scoringService,
		Engine:     engine,
		Sessions:   manager,
		Events:     hubs,
	}
}

// Close stops running sessions and releases storage connections
func (a *App) Close() error {
	err := a.Sessions.Close()
	a.Events.Close()
	for _, c := range a.closers {
		err = errors.Join(err, c())
	}
	return err
}
