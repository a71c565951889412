package game

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/mcoot/xwsync/internal/bitstream"
	"github.com/mcoot/xwsync/internal/comms"
	"github.com/mcoot/xwsync/internal/dependencies/clock"
	"github.com/mcoot/xwsync/internal/dependencies/random"
	"github.com/mcoot/xwsync/internal/model"
	"github.com/mcoot/xwsync/internal/services/board"
	"github.com/mcoot/xwsync/internal/services/bot"
)

// TilePool is the bag of undrawn tiles the controller draws from
type TilePool interface {
	board.Pool
	Left() int
	CountOf(face model.Tile) int
	Request(n int) []model.Tile
}

// Deps are the collaborators a Controller is built from. Board and Pool are
// owned by the caller; the controller only changes their contents.
type Deps struct {
	Info  *model.GameInfo
	Board *board.Model
	Pool  TilePool
	// Comms is nil for a standalone game
	Comms comms.Comms
	// Engine is required when any local player is a robot
	Engine    bot.Engine
	Callbacks HostCallbacks
	Clock     clock.Clock
	Random    random.Random
	Features  FeatureConfig
	Logger    *slog.Logger
}

// device is one participant in a networked game. Device 0 is always this
// device; on a guest its channel reaches the host.
type device struct {
	channel comms.Channel
	version bitstream.Version
}

// legacyStreamVersion is what a device speaks until versions are negotiated
const legacyStreamVersion = bitstream.VersionBigBoard

// Controller runs the turn state machine for one game on one device
type Controller struct {
	info     *model.GameInfo
	board    *board.Model
	pool     TilePool
	comms    comms.Comms
	engine   bot.Engine
	cb       HostCallbacks
	clock    clock.Clock
	random   random.Random
	features FeatureConfig
	base     *slog.Logger
	logger   *slog.Logger

	state          GameState
	turn           int
	quitter        int
	pendingRegs    int
	devices        []device
	playerDevice   []int
	streamVersion  bitstream.Version
	lastMoveTime   uint32
	lastMoveSource comms.Channel
	secondsUsed    []int
	prevMove       string
	prevMovePlayer int
	dupe           dupeState
	rematch        rematchState

	doing        bool
	robotWaiting bool
	showPrevMove bool
	badWords     badWordsInfo
}

// New creates a controller for a fresh game
func New(deps Deps) (*Controller, error) {
	if deps.Info == nil || deps.Board == nil || deps.Pool == nil {
		return nil, fmt.Errorf("controller needs game info, board and pool: %w", model.ErrWrongState)
	}
	if err := deps.Info.Validate(); err != nil {
		return nil, err
	}
	if deps.Info.Role != model.RoleStandalone && deps.Comms == nil {
		return nil, fmt.Errorf("%s device without comms: %w", deps.Info.Role, model.ErrWrongState)
	}
	c := &Controller{
		info:     deps.Info.Clone(),
		board:    deps.Board,
		pool:     deps.Pool,
		comms:    deps.Comms,
		engine:   deps.Engine,
		cb:       deps.Callbacks,
		clock:    deps.Clock,
		random:   deps.Random,
		features: deps.Features,
	}
	if c.cb == nil {
		c.cb = NopCallbacks{}
	}
	if c.clock == nil {
		c.clock = clock.New()
	}
	if c.random == nil {
		c.random = random.New()
	}
	c.base = deps.Logger
	if c.base == nil {
		c.base = slog.Default()
	}
	c.scopeLogger()
	c.init()
	return c, nil
}

// NewFromStream restores a controller written by WriteTo. deps.Board and
// deps.Pool must already hold the restored game.
func NewFromStream(deps Deps, r *bitstream.Reader) (*Controller, error) {
	c, err := New(deps)
	if err != nil {
		return nil, err
	}
	if err := c.readFrom(r); err != nil {
		return nil, err
	}
	// the host's timer did not survive the save
	if c.dupeTimerRunning() {
		c.armDupTimer()
	}
	return c, nil
}

func (c *Controller) scopeLogger() {
	c.logger = c.base.With(
		slog.String("component", "controller"),
		slog.String("game_id", string(c.info.ID)),
		slog.String("role", c.info.Role.String()),
	)
}

func (c *Controller) init() {
	n := c.info.NPlayers()
	c.turn = -1
	c.quitter = -1
	c.state = StateBegin
	if c.info.Role == model.RoleGuest {
		c.state = StateNone
	}
	c.devices = []device{{channel: comms.HostChannel, version: bitstream.VersionCurrent}}
	c.streamVersion = legacyStreamVersion
	c.pendingRegs = 0
	c.playerDevice = make([]int, n)
	for i, p := range c.info.Players {
		c.playerDevice[i] = -1
		if p.IsLocal {
			c.playerDevice[i] = 0
		} else if c.info.Role == model.RoleHost {
			c.pendingRegs++
		}
	}
	c.lastMoveTime = 0
	c.lastMoveSource = 0
	c.secondsUsed = make([]int, n)
	c.prevMove = ""
	c.prevMovePlayer = -1
	c.dupe = newDupeState(n)
	c.rematch.guestInfo = nil
	c.robotWaiting = false
	c.showPrevMove = false
	c.badWords = badWordsInfo{}
}

// Reset starts a new game with info, keeping the board, pool and comms
// bindings. Tiles still out of the pool are returned to it.
func (c *Controller) Reset(info *model.GameInfo) error {
	if err := info.Validate(); err != nil {
		return err
	}
	c.returnAllTiles()
	c.info = info.Clone()
	c.scopeLogger()
	c.board.Reset(board.ConfigFromGameInfo(c.info))
	c.cb.ClearTimer(TimerSlowRobot)
	c.cb.ClearTimer(TimerDupCheck)
	order := c.rematch.order
	c.init()
	c.rematch.order = order
	c.logger.Info("game reset", slog.Int("players", c.info.NPlayers()))
	return nil
}

// returnAllTiles puts every tray, pending and board tile back in the pool
func (c *Controller) returnAllTiles() {
	ts := c.board.TileSet()
	var tiles []model.Tile
	for p := 0; p < c.board.NPlayers(); p++ {
		c.board.ResetCurrentTurn(p)
		if c.info.Duplicate && p > 0 {
			continue
		}
		tiles = append(tiles, c.board.TrayTiles(p)...)
	}
	cols, rows := c.board.Dims()
	for row := 0; row < rows; row++ {
		for col := 0; col < cols; col++ {
			t, blank, ok := c.board.TileAt(col, row)
			if !ok {
				continue
			}
			if blank {
				t = model.Tile(ts.Blank)
			}
			tiles = append(tiles, t)
		}
	}
	c.pool.Replace(tiles)
}

// State returns the current state machine state
func (c *Controller) State() GameState {
	return c.state
}

// CurrentTurn returns whose turn it is, or -1
func (c *Controller) CurrentTurn() int {
	return c.turn
}

// Quitter returns the player who ended the game early, or -1
func (c *Controller) Quitter() int {
	return c.quitter
}

// IsGameOver reports whether the game has ended
func (c *Controller) IsGameOver() bool {
	return c.state == StateGameOver
}

// StreamVersion returns the negotiated wire version
func (c *Controller) StreamVersion() bitstream.Version {
	return c.streamVersion
}

// GameInfo returns a copy of the game's configuration
func (c *Controller) GameInfo() *model.GameInfo {
	return c.info.Clone()
}

// Board returns the board the controller drives
func (c *Controller) Board() *board.Model {
	return c.board
}

// PendingRegistrations returns the seats a host is still waiting to fill
func (c *Controller) PendingRegistrations() int {
	return c.pendingRegs
}

// NDevices returns the number of devices in the game, counting this one
func (c *Controller) NDevices() int {
	return len(c.devices)
}

// SecondsUsed returns the time a player has spent on their turns
func (c *Controller) SecondsUsed(player int) int {
	if player < 0 || player >= len(c.secondsUsed) {
		return 0
	}
	return c.secondsUsed[player]
}

// PrevMove describes the latest move and who made it
func (c *Controller) PrevMove() (int, string) {
	return c.prevMovePlayer, c.prevMove
}

// FinalScores returns scores after tray penalties
func (c *Controller) FinalScores() []int {
	return c.board.FinalScores()
}

// Do runs deferred work. It returns true when it made progress and should
// be called again.
func (c *Controller) Do(ctx context.Context) bool {
	if c.doing {
		return false
	}
	c.doing = true
	defer func() { c.doing = false }()

	switch c.state {
	case StateBegin:
		if c.info.Role == model.RoleGuest || c.pendingRegs > 0 {
			return false
		}
		if err := c.assignTilesToAll(); err != nil {
			c.logger.Error("dealing tiles failed", slog.String("error", err.Error()))
			return false
		}
		c.setState(StateInTurn)
		c.setTurn(0)
		c.resetDupTimer()
		c.requestRobotDo()
		return true
	case StateNeedSendBadWordInfo:
		c.sendBadWordInfo(ctx)
		c.setState(StateInTurn)
		c.nextTurn(ctx, pickNext)
		return true
	case StateReceivedAllReg:
		c.sendInitialMessages(ctx)
		c.setState(StateInTurn)
		c.setTurn(0)
		c.resetDupTimer()
		c.requestRobotDo()
		return true
	case StateMoveConfirmMustSend:
		c.sendTo(ctx, c.lastMoveSource, c.newMessage(protoMoveConfirm))
		c.setState(StateInTurn)
		c.nextTurn(ctx, pickNext)
		return true
	case StateNeedSendEndGame:
		c.endGameInternal(ctx, -1)
		return true
	case StateInTurn:
		more := false
		if c.info.Duplicate {
			if c.dupeForceCommits(ctx) {
				more = true
			}
			if c.dupeCheckTurns(ctx) {
				more = true
			}
		}
		if c.state == StateInTurn && c.robotMovePending() && !c.postponeRobotMove() {
			if c.makeRobotMove(ctx) {
				more = true
			}
		}
		return more
	}
	return false
}

// TimerFired is called by the host when a timer set through SetTimer expires
func (c *Controller) TimerFired(ctx context.Context, reason TimerReason) {
	c.logger.Debug("timer fired", slog.String("reason", reason.String()))
	switch reason {
	case TimerSlowRobot:
		c.robotWaiting = false
		c.cb.RequestDo()
	case TimerDupCheck:
		if c.dupeTimerExpired() {
			c.cb.RequestDo()
		} else if c.dupeTimerRunning() {
			c.armDupTimer()
		}
	}
}

func (c *Controller) setState(s GameState) {
	if s == c.state {
		return
	}
	c.logger.Debug("state change",
		slog.String("from", c.state.String()),
		slog.String("to", s.String()),
	)
	c.state = s
}

func (c *Controller) nowSeconds() int64 {
	return clock.Seconds(c.clock)
}

func (c *Controller) isLocal(player int) bool {
	return player >= 0 && player < len(c.info.Players) && c.info.Players[player].IsLocal
}

func (c *Controller) amHost() bool {
	return c.info.Role != model.RoleGuest
}

// checkLocalTurn reports why player may not act right now
func (c *Controller) checkLocalTurn(player int) error {
	if c.state == StateGameOver {
		return model.ErrGameOver
	}
	if c.state != StateInTurn {
		return model.ErrWrongState
	}
	if player < 0 || player >= c.info.NPlayers() {
		return model.ErrInvalidPlayer
	}
	if !c.isLocal(player) {
		c.cb.UserError(model.UserErrNotYourTurn)
		return model.ErrNotYourTurn
	}
	if c.info.Duplicate {
		if c.dupe.made[player] {
			return model.ErrNotYourTurn
		}
		return nil
	}
	if player != c.turn {
		c.cb.UserError(model.UserErrNotYourTurn)
		return model.ErrNotYourTurn
	}
	return nil
}

// isStackError reports errors that mean this device disagrees with its peers
func isStackError(err error) bool {
	return errors.Is(err, model.ErrStackDesync) || errors.Is(err, model.ErrTilesNotInPool) ||
		errors.Is(err, model.ErrBadTrayIndex)
}
