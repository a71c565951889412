// Package session drives game controllers for a running process. A Session
// owns one device's view of one game and serializes every controller call:
// inbound messages, timers and API requests all go through its lock.
package session

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/mcoot/xwsync/internal/bitstream"
	"github.com/mcoot/xwsync/internal/comms"
	"github.com/mcoot/xwsync/internal/dependencies/clock"
	"github.com/mcoot/xwsync/internal/dependencies/random"
	"github.com/mcoot/xwsync/internal/model"
	"github.com/mcoot/xwsync/internal/services/board"
	"github.com/mcoot/xwsync/internal/services/bot"
	"github.com/mcoot/xwsync/internal/services/game"
	"github.com/mcoot/xwsync/internal/services/pool"
	"github.com/mcoot/xwsync/internal/services/scoring"
	"github.com/mcoot/xwsync/internal/storage"
)

// Deps are the collaborators shared by the sessions of one process
type Deps struct {
	TileSet *model.TileSet
	Oracle  scoring.Oracle
	Engine  bot.Engine
	// Comms is nil for a standalone game
	Comms comms.Comms
	// Store is optional; without it nothing is persisted
	Store storage.Storage
	// PubSub enables hosting and joining games over redis
	PubSub *goredis.Client
	Clock  clock.Clock
	Random random.Random
	Logger *slog.Logger
	// Observer hears about every settled change; optional
	Observer Observer
}

type inbound struct {
	from comms.Channel
	data []byte
}

// Session runs one game on this device
type Session struct {
	cfg     Config
	deps    Deps
	id      model.GameID
	board   *board.Model
	pool    *pool.Pool
	ctrl    *game.Controller
	logger  *slog.Logger
	created time.Time

	inbox chan inbound
	done  chan struct{}

	mu         sync.Mutex
	timers     map[game.TimerReason]*time.Timer
	doPending  bool
	over       bool
	userErrors []model.UserError
	moves      []string
	published  Update
}

var _ comms.Receiver = (*Session)(nil)

func newSession(cfg Config, deps Deps, info *model.GameInfo, b *board.Model, p *pool.Pool) *Session {
	if deps.Clock == nil {
		deps.Clock = clock.New()
	}
	if deps.Random == nil {
		deps.Random = random.New()
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	return &Session{
		cfg:     cfg,
		deps:    deps,
		id:      info.ID,
		board:   b,
		pool:    p,
		logger:  deps.Logger.With(slog.String("component", "session"), slog.String("game_id", string(info.ID))),
		created: deps.Clock.Now(),
		inbox:   make(chan inbound, cfg.InboxSize),
		done:    make(chan struct{}),
		timers:  make(map[game.TimerReason]*time.Timer),
	}
}

func (s *Session) controllerDeps(info *model.GameInfo) game.Deps {
	return game.Deps{
		Info:      info,
		Board:     s.board,
		Pool:      s.pool,
		Comms:     s.deps.Comms,
		Engine:    s.deps.Engine,
		Callbacks: &callbacks{s: s},
		Clock:     s.deps.Clock,
		Random:    s.deps.Random,
		Features:  s.cfg.Features,
		Logger:    s.deps.Logger,
	}
}

// New creates a session for a fresh game. Call Start to deal or register.
func New(cfg Config, deps Deps, info *model.GameInfo) (*Session, error) {
	if deps.TileSet == nil || deps.Oracle == nil {
		return nil, fmt.Errorf("session needs a tile set and oracle: %w", model.ErrWrongState)
	}
	b := board.New(board.ConfigFromGameInfo(info), deps.TileSet, deps.Oracle)
	s := newSession(cfg, deps, info, b, pool.New(deps.TileSet, deps.Random))
	ctrl, err := game.New(s.controllerDeps(info))
	if err != nil {
		return nil, err
	}
	s.ctrl = ctrl
	return s, nil
}

// Restore rebuilds a session from a record written by Record
func Restore(cfg Config, deps Deps, rec *model.GameRecord) (*Session, error) {
	if deps.TileSet == nil || deps.Oracle == nil {
		return nil, fmt.Errorf("session needs a tile set and oracle: %w", model.ErrWrongState)
	}
	r := bitstream.NewReader(rec.Data, bitstream.VersionCurrent)
	v := bitstream.Version(r.GetU8())
	if r.Err() != nil || v < bitstream.Version1 || v > bitstream.VersionCurrent {
		return nil, fmt.Errorf("game %s stream version %d: %w", rec.ID, v, model.ErrBadVersion)
	}
	r.SetVersion(v)

	info, err := model.ReadGameInfo(r)
	if err != nil {
		return nil, fmt.Errorf("game %s info: %w: %w", rec.ID, model.ErrSnapshotCorrupt, err)
	}
	if info.TileSetName != deps.TileSet.Name {
		return nil, fmt.Errorf("game %s uses tile set %q: %w", rec.ID, info.TileSetName, model.ErrTileSetMismatch)
	}
	p, err := pool.Read(r, deps.TileSet, deps.Random)
	if err != nil {
		return nil, fmt.Errorf("game %s pool: %w: %w", rec.ID, model.ErrSnapshotCorrupt, err)
	}
	b, err := board.Read(r, board.ConfigFromGameInfo(info), deps.TileSet, deps.Oracle)
	if err != nil {
		return nil, fmt.Errorf("game %s board: %w", rec.ID, err)
	}

	s := newSession(cfg, deps, info, b, p)
	ctrl, err := game.NewFromStream(s.controllerDeps(info), r)
	if err != nil {
		return nil, fmt.Errorf("game %s controller: %w", rec.ID, err)
	}
	s.ctrl = ctrl
	s.id = rec.ID
	s.created = rec.CreatedAt
	s.over = ctrl.IsGameOver()
	if s.over {
		close(s.done)
	}
	s.logger.Info("session restored", slog.String("state", ctrl.State().String()))
	return s, nil
}

// ID returns the game's ID
func (s *Session) ID() model.GameID {
	return s.id
}

// Comms returns the session's transport, nil for a standalone game
func (s *Session) Comms() comms.Comms {
	return s.deps.Comms
}

// Done is closed when the game ends
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// Start deals a standalone or host game, or registers a guest with its host
func (s *Session) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ctrl.GameInfo().Role == model.RoleGuest {
		if err := s.ctrl.InitClientConnection(ctx, comms.HostChannel); err != nil {
			return err
		}
	}
	s.settle(ctx)
	return nil
}

// Call runs fn against the controller and then any work it left behind
func (s *Session) Call(ctx context.Context, fn func(c *game.Controller) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	err := fn(s.ctrl)
	s.settle(ctx)
	return err
}

// PlayRobots runs deferred work until the game ends. It fails with
// ErrGameStalled if a human is to move or the step limit runs out.
func (s *Session) PlayRobots(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.settle(ctx)
	if !s.ctrl.IsGameOver() {
		return fmt.Errorf("game %s in state %s, turn %d: %w", s.id, s.ctrl.State(), s.ctrl.CurrentTurn(), model.ErrGameStalled)
	}
	return nil
}

// ReceiveMessage queues an inbound message for Run
func (s *Session) ReceiveMessage(ctx context.Context, from comms.Channel, data []byte) bool {
	msg := inbound{from: from, data: append([]byte(nil), data...)}
	select {
	case s.inbox <- msg:
		return true
	case <-ctx.Done():
		return false
	}
}

// Run feeds inbound messages to the controller until ctx is done. When the
// transport is a comms.Listener it is run alongside.
func (s *Session) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	if l, ok := s.deps.Comms.(comms.Listener); ok {
		g.Go(func() error {
			return l.Listen(ctx, s)
		})
	}
	g.Go(func() error {
		return s.pump(ctx)
	})
	err := g.Wait()
	s.stopTimers()
	return err
}

func (s *Session) pump(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg := <-s.inbox:
			s.mu.Lock()
			s.ctrl.ReceiveMessage(ctx, msg.from, msg.data)
			s.settle(ctx)
			s.mu.Unlock()
		}
	}
}

// settle runs deferred controller work until it goes quiet, then saves.
// s.mu must be held.
func (s *Session) settle(ctx context.Context) {
	for i := 0; i < s.cfg.MaxSteps; i++ {
		s.doPending = false
		if !s.ctrl.Do(ctx) && !s.doPending {
			break
		}
	}
	s.persist(ctx)
	s.publish()
}

func (s *Session) fire(reason game.TimerReason) {
	ctx := context.Background()
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.timers, reason)
	s.ctrl.TimerFired(ctx, reason)
	s.settle(ctx)
}

func (s *Session) stopTimers() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for reason, t := range s.timers {
		t.Stop()
		delete(s.timers, reason)
	}
}

// Record serializes the session for storage
func (s *Session) Record() *model.GameRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.record()
}

func (s *Session) record() *model.GameRecord {
	w := bitstream.NewWriter(bitstream.VersionCurrent)
	w.PutU8(uint8(bitstream.VersionCurrent))
	s.ctrl.GameInfo().WriteTo(w)
	s.pool.WriteTo(w)
	s.board.WriteTo(w)
	s.ctrl.WriteTo(w)
	return &model.GameRecord{
		ID:        s.id,
		Role:      s.ctrl.GameInfo().Role,
		State:     s.ctrl.State().String(),
		Turn:      s.ctrl.CurrentTurn(),
		Data:      w.Bytes(),
		CreatedAt: s.created,
		UpdatedAt: s.deps.Clock.Now(),
	}
}

func (s *Session) persist(ctx context.Context) {
	if s.deps.Store == nil {
		return
	}
	if err := s.deps.Store.SaveGame(ctx, s.record()); err != nil {
		s.logger.Error("saving game failed", slog.String("error", err.Error()))
	}
}
