package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/mcoot/xwsync/internal/comms"
	redcomms "github.com/mcoot/xwsync/internal/comms/redis"
	"github.com/mcoot/xwsync/internal/comms/websocket"
	"github.com/mcoot/xwsync/internal/model"
	"github.com/mcoot/xwsync/internal/services/bot"
	"github.com/mcoot/xwsync/internal/storage"
)

// DefaultBoardSize is used when a request leaves the board dimensions unset
const DefaultBoardSize = 15

// TransportKind picks how a networked game's devices reach each other
type TransportKind string

const (
	TransportWebsocket TransportKind = "websocket"
	TransportRedis     TransportKind = "redis"
)

// transport is what a networked session needs from its comms
type transport interface {
	comms.Comms
	comms.Listener
	Ready() <-chan struct{}
}

// HostDevice is the pub/sub device name of a game's host
func HostDevice(id model.GameID) string {
	return "host-" + string(id)
}

// PlayerRequest describes one seat of a new game
type PlayerRequest struct {
	Name  string `json:"name"`
	Robot bool   `json:"robot"`
	// IQ defaults to the strongest robot
	IQ int `json:"iq,omitempty"`
	// Remote seats are filled by guests registering over the network
	Remote bool `json:"remote,omitempty"`
}

// CreateRequest describes a new standalone or hosted game
type CreateRequest struct {
	Players      []PlayerRequest     `json:"players"`
	Duplicate    bool                `json:"duplicate,omitempty"`
	Phonies      model.PhoniesAction `json:"phonies,omitempty"`
	TimerSeconds int                 `json:"timer_seconds,omitempty"`
	Cols         int                 `json:"cols,omitempty"`
	Rows         int                 `json:"rows,omitempty"`
	TraySize     int                 `json:"tray_size,omitempty"`
	// Transport is only used by hosted games and defaults to websocket
	Transport TransportKind `json:"transport,omitempty"`
}

// JoinRequest describes this device's players in a game hosted elsewhere
type JoinRequest struct {
	Transport TransportKind `json:"transport,omitempty"`
	// HostURL is the host's websocket endpoint
	HostURL string `json:"host_url,omitempty"`
	// GameID names the hosted game when joining over redis
	GameID  model.GameID    `json:"game_id,omitempty"`
	Players []PlayerRequest `json:"players"`
}

// Manager owns the sessions running in this process
type Manager struct {
	cfg    Config
	deps   Deps
	logger *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	group  *errgroup.Group

	mu       sync.Mutex
	sessions map[model.GameID]*Session
}

// NewManager creates a manager. deps.Comms is ignored; each networked
// session gets its own transport.
func NewManager(cfg Config, deps Deps) *Manager {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	deps.Comms = nil
	ctx, cancel := context.WithCancel(context.Background())
	group, ctx := errgroup.WithContext(ctx)
	return &Manager{
		cfg:      cfg,
		deps:     deps,
		logger:   deps.Logger.With(slog.String("component", "session-manager")),
		ctx:      ctx,
		cancel:   cancel,
		group:    group,
		sessions: make(map[model.GameID]*Session),
	}
}

func (m *Manager) gameInfo(role model.DeviceRole, req CreateRequest) (*model.GameInfo, error) {
	info := &model.GameInfo{
		ID:           model.NewGameID(),
		Cols:         req.Cols,
		Rows:         req.Rows,
		TraySize:     req.TraySize,
		Role:         role,
		Duplicate:    req.Duplicate,
		Phonies:      req.Phonies,
		TimerEnabled: req.TimerSeconds > 0,
		GameSeconds:  req.TimerSeconds,
		DictName:     m.deps.Oracle.DictName(),
		TileSetName:  m.deps.TileSet.Name,
	}
	if info.Cols == 0 {
		info.Cols = DefaultBoardSize
	}
	if info.Rows == 0 {
		info.Rows = DefaultBoardSize
	}
	if info.TraySize == 0 {
		info.TraySize = model.DefaultTraySize
	}
	remote := 0
	for _, p := range req.Players {
		if p.Remote {
			remote++
			if role != model.RoleHost {
				return nil, fmt.Errorf("remote seat %q outside a hosted game: %w", p.Name, model.ErrWrongState)
			}
		}
		pi := model.PlayerInfo{Name: p.Name, IsLocal: !p.Remote, IsRobot: p.Robot && !p.Remote, RobotIQ: p.IQ}
		if pi.IsRobot && pi.RobotIQ <= 0 {
			pi.RobotIQ = bot.MaxIQ
		}
		info.Players = append(info.Players, pi)
	}
	if role == model.RoleHost && remote == 0 {
		return nil, fmt.Errorf("hosted game without remote seats: %w", model.ErrWrongState)
	}
	if err := info.Validate(); err != nil {
		return nil, err
	}
	return info, nil
}

func (m *Manager) add(s *Session) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[s.ID()] = s
}

// Create starts a standalone game. Robots play until a human is to move.
func (m *Manager) Create(ctx context.Context, req CreateRequest) (*Session, error) {
	info, err := m.gameInfo(model.RoleStandalone, req)
	if err != nil {
		return nil, err
	}
	s, err := New(m.cfg, m.deps, info)
	if err != nil {
		return nil, err
	}
	m.add(s)
	if err := s.Start(ctx); err != nil {
		return nil, err
	}
	m.logger.Info("game created", slog.String("game_id", string(s.ID())), slog.Int("players", info.NPlayers()))
	return s, nil
}

// Host starts a game that waits for guests to fill the remote seats. Over
// websocket guests connect to the handler Transport returns; over redis
// they publish to HostDevice of the game's ID.
func (m *Manager) Host(ctx context.Context, req CreateRequest) (*Session, error) {
	info, err := m.gameInfo(model.RoleHost, req)
	if err != nil {
		return nil, err
	}
	var t transport
	switch req.Transport {
	case "", TransportWebsocket:
		t = websocket.New(m.deps.Logger)
	case TransportRedis:
		if m.deps.PubSub == nil {
			return nil, fmt.Errorf("redis transport not configured: %w", model.ErrWrongState)
		}
		t = redcomms.New(m.deps.PubSub, m.cfg.PubSub, HostDevice(info.ID), m.deps.Logger)
	default:
		return nil, fmt.Errorf("unknown transport %q: %w", req.Transport, model.ErrWrongState)
	}
	s, err := m.startNetworked(ctx, info, t, nil)
	if err != nil {
		return nil, err
	}
	m.logger.Info("game hosted",
		slog.String("game_id", string(s.ID())),
		slog.Int("players", info.NPlayers()),
		slog.String("transport", string(req.Transport)),
	)
	return s, nil
}

// Join connects to a hosted game and registers this device's players
func (m *Manager) Join(ctx context.Context, req JoinRequest) (*Session, error) {
	info, err := m.gameInfo(model.RoleGuest, CreateRequest{Players: req.Players})
	if err != nil {
		return nil, err
	}
	var (
		t       transport
		connect func() error
	)
	switch req.Transport {
	case "", TransportWebsocket:
		ws := websocket.New(m.deps.Logger)
		t = ws
		connect = func() error {
			return ws.Dial(m.ctx, req.HostURL)
		}
	case TransportRedis:
		if m.deps.PubSub == nil {
			return nil, fmt.Errorf("redis transport not configured: %w", model.ErrWrongState)
		}
		rt := redcomms.New(m.deps.PubSub, m.cfg.PubSub, "guest-"+string(info.ID), m.deps.Logger)
		rt.Connect(comms.HostChannel, HostDevice(req.GameID))
		t = rt
	default:
		return nil, fmt.Errorf("unknown transport %q: %w", req.Transport, model.ErrWrongState)
	}
	s, err := m.startNetworked(ctx, info, t, connect)
	if err != nil {
		return nil, err
	}
	m.logger.Info("joined game", slog.String("game_id", string(s.ID())), slog.String("transport", string(req.Transport)))
	return s, nil
}

// startNetworked runs the session on the manager's context, waits for its
// transport to listen, connects and then starts the game
func (m *Manager) startNetworked(ctx context.Context, info *model.GameInfo, t transport, connect func() error) (*Session, error) {
	deps := m.deps
	deps.Comms = t
	s, err := New(m.cfg, deps, info)
	if err != nil {
		return nil, err
	}
	m.add(s)
	m.group.Go(func() error {
		if err := s.Run(m.ctx); err != nil {
			s.logger.Error("session stopped", slog.String("error", err.Error()))
		}
		return nil
	})
	select {
	case <-t.Ready():
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	if connect != nil {
		if err := connect(); err != nil {
			return nil, err
		}
	}
	if err := s.Start(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

// Get returns a live session, restoring a standalone game from storage if
// this process is not running it
func (m *Manager) Get(ctx context.Context, id model.GameID) (*Session, error) {
	m.mu.Lock()
	s, ok := m.sessions[id]
	m.mu.Unlock()
	if ok {
		return s, nil
	}
	if m.deps.Store == nil {
		return nil, model.ErrGameNotFound
	}
	rec, err := m.deps.Store.GetGame(ctx, id)
	if err != nil {
		return nil, err
	}
	if rec.Role != model.RoleStandalone {
		return nil, fmt.Errorf("%s game %s has lost its connections: %w", rec.Role, id, model.ErrWrongState)
	}
	s, err = Restore(m.cfg, m.deps, rec)
	if err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if live, ok := m.sessions[id]; ok {
		return live, nil
	}
	m.sessions[id] = s
	return s, nil
}

// List returns the stored games, newest first
func (m *Manager) List(ctx context.Context) ([]*model.GameRecord, error) {
	if m.deps.Store == nil {
		return nil, nil
	}
	recs, err := m.deps.Store.ListGames(ctx)
	if err != nil {
		return nil, err
	}
	storage.SortRecords(recs)
	return recs, nil
}

// Delete forgets a game. A networked game keeps running until Close.
func (m *Manager) Delete(ctx context.Context, id model.GameID) error {
	m.mu.Lock()
	_, live := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()
	if m.deps.Store == nil {
		if !live {
			return model.ErrGameNotFound
		}
		return nil
	}
	err := m.deps.Store.DeleteGame(ctx, id)
	if live && errors.Is(err, model.ErrGameNotFound) {
		return nil
	}
	return err
}

// PlayRobots finishes a game in which every remaining move is a robot's
func (m *Manager) PlayRobots(ctx context.Context, id model.GameID) (*Session, error) {
	s, err := m.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return s, s.PlayRobots(ctx)
}

// Transport returns the websocket transport of a game hosted over websocket
func (m *Manager) Transport(ctx context.Context, id model.GameID) (*websocket.Transport, error) {
	s, err := m.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	t, ok := s.Comms().(*websocket.Transport)
	if !ok || s.Role() != model.RoleHost {
		return nil, fmt.Errorf("game %s is not hosted here: %w", id, model.ErrWrongState)
	}
	return t, nil
}

// Close stops every networked session
func (m *Manager) Close() error {
	m.cancel()
	return m.group.Wait()
}
