package game

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/mcoot/xwsync/internal/comms"
	"github.com/mcoot/xwsync/internal/comms/memory"
	"github.com/mcoot/xwsync/internal/dependencies/mocks"
	"github.com/mcoot/xwsync/internal/model"
	"github.com/mcoot/xwsync/internal/services/board"
	"github.com/mcoot/xwsync/internal/services/bot"
	"github.com/mcoot/xwsync/internal/services/dictionary"
	"github.com/mcoot/xwsync/internal/services/pool"
	"github.com/mcoot/xwsync/internal/services/scoring"
	"github.com/mcoot/xwsync/internal/testutil"
)

var testWords = []string{"CAT", "AT", "TA", "ACT", "SET", "SEA", "EAT", "TEA", "TEE", "SEE"}

// testTileSet is small enough that a pool drawing index 0 every time deals
// predictable trays: CCAAAAT, then TTTSSEE, then Es.
func testTileSet() *model.TileSet {
	return &model.TileSet{
		Name:  "test",
		Blank: -1,
		Faces: []model.TileFace{
			{Letter: "C", Count: 2, Value: 3},
			{Letter: "A", Count: 4, Value: 1},
			{Letter: "T", Count: 4, Value: 1},
			{Letter: "S", Count: 2, Value: 1},
			{Letter: "E", Count: 20, Value: 1},
		},
	}
}

// allATileSet and allAWords make a game where any line of tiles is a word
func allATileSet() *model.TileSet {
	return &model.TileSet{Name: "aaa", Blank: -1, Faces: []model.TileFace{{Letter: "A", Count: 20, Value: 1}}}
}

func allAWords() []string {
	var out []string
	for n := 2; n <= 15; n++ {
		out = append(out, strings.Repeat("A", n))
	}
	return out
}

func gameInfo(role model.DeviceRole, players ...model.PlayerInfo) *model.GameInfo {
	return &model.GameInfo{
		ID:          "game-1",
		Cols:        15,
		Rows:        15,
		TraySize:    7,
		Players:     players,
		Role:        role,
		Phonies:     model.PhoniesDisallow,
		DictName:    "test",
		TileSetName: "test",
	}
}

func human(name string) model.PlayerInfo {
	return model.PlayerInfo{Name: name, IsLocal: true}
}

func robot(name string) model.PlayerInfo {
	return model.PlayerInfo{Name: name, IsLocal: true, IsRobot: true, RobotIQ: bot.MaxIQ}
}

func remote() model.PlayerInfo {
	return model.PlayerInfo{}
}

// recorder keeps what the controller told its host
type recorder struct {
	NopCallbacks
	illegal    [][]string
	forMe      []bool
	userErrors []model.UserError
	turns      []int
	gameOver   bool
	quitter    int
	chats      []model.ChatMessage
	undos      int
	timers     map[TimerReason]time.Duration
	paused     []PauseType
	doRequests int
	picks      map[int][]model.Tile
}

func newRecorder() *recorder {
	return &recorder{quitter: -1, timers: make(map[TimerReason]time.Duration), picks: make(map[int][]model.Tile)}
}

func (r *recorder) SetTimer(reason TimerReason, d time.Duration) { r.timers[reason] = d }
func (r *recorder) ClearTimer(reason TimerReason) { delete(r.timers, reason) }
func (r *recorder) RequestDo() { r.doRequests++ }
func (r *recorder) UserError(code model.UserError) { r.userErrors = append(r.userErrors, code) }
func (r *recorder) TurnChanged(turn int) { r.turns = append(r.turns, turn) }
func (r *recorder) InformUndo() { r.undos++ }

func (r *recorder) NotifyIllegalWords(_ int, words []string, _ string, forMe bool) {
	r.illegal = append(r.illegal, words)
	r.forMe = append(r.forMe, forMe)
}

func (r *recorder) GameOver(quitter int) {
	r.gameOver = true
	r.quitter = quitter
}

func (r *recorder) ChatReceived(from int, msg string, ts uint32) {
	r.chats = append(r.chats, model.ChatMessage{From: from, Text: msg, Timestamp: ts})
}

func (r *recorder) PickTiles(player int, _ []model.Tile) []model.Tile {
	return r.picks[player]
}

func (r *recorder) InformPaused(_ int, pt PauseType, _ string) {
	r.paused = append(r.paused, pt)
}

// testDevice is one device's controller and the state it drives
type testDevice struct {
	name  string
	board *board.Model
	pool  *pool.Pool
	cb    *recorder
	ctrl  *Controller
	ep    *memory.Endpoint
}

// gameSuite holds what every controller suite shares
type gameSuite struct {
	suite.Suite
	ctx      context.Context
	tileSet  *model.TileSet
	dict     *dictionary.Service
	oracle   *scoring.Service
	clock    *mocks.MockClock
	random   *mocks.MockRandom
	engine   bot.Engine
	features FeatureConfig
	hub      *memory.Hub
}

func (s *gameSuite) setup(ts *model.TileSet, words []string) {
	s.ctx = context.Background()
	s.tileSet = ts
	s.dict = dictionary.New(nil, "test")
	s.Require().NoError(s.dict.LoadWords(words))
	s.oracle = scoring.New(s.dict, nil)
	s.clock = mocks.NewMockClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	s.random = mocks.NewMockRandom()
	s.engine = nil
	s.features = DefaultFeatureConfig()
	s.hub = memory.NewHub()
}

func (s *gameSuite) withRobots() {
	s.engine = bot.NewWordListEngine(s.dict, s.oracle, bot.NewIQStrategy(s.random), 7, testutil.NopLogger())
}

func (s *gameSuite) deps(d *testDevice, info *model.GameInfo) Deps {
	deps := Deps{
		Info:      info,
		Board:     d.board,
		Pool:      d.pool,
		Engine:    s.engine,
		Callbacks: d.cb,
		Clock:     s.clock,
		Random:    s.random,
		Features:  s.features,
		Logger:    testutil.NopLogger(),
	}
	if d.ep != nil {
		deps.Comms = d.ep
	}
	return deps
}

func (s *gameSuite) newDevice(name string, info *model.GameInfo) *testDevice {
	d := &testDevice{name: name, cb: newRecorder()}
	d.board = board.New(board.ConfigFromGameInfo(info), s.tileSet, s.oracle)
	d.pool = pool.New(s.tileSet, mocks.NewMockRandom())
	if info.Role != model.RoleStandalone {
		d.ep = s.hub.Endpoint(name)
	}
	c, err := New(s.deps(d, info))
	s.Require().NoError(err)
	d.ctrl = c
	if d.ep != nil {
		d.ep.Bind(c)
	}
	return d
}

// connect creates a host and its guests. The host sees guest i on channel
// i+1 and every guest sees the host on HostChannel.
func (s *gameSuite) connect(host *model.GameInfo, guests ...*model.GameInfo) (*testDevice, []*testDevice) {
	h := s.newDevice("host", host)
	gs := make([]*testDevice, 0, len(guests))
	for i, gi := range guests {
		name := fmt.Sprintf("guest%d", i+1)
		s.hub.Link("host", comms.Channel(i+1), name, comms.HostChannel)
		gs = append(gs, s.newDevice(name, gi))
	}
	return h, gs
}

// register sends every guest's registration and runs the handshake
func (s *gameSuite) register(guests ...*testDevice) {
	for _, g := range guests {
		s.Require().NoError(g.ctrl.InitClientConnection(s.ctx, comms.HostChannel))
	}
	s.hub.Pump(s.ctx)
}

func (s *gameSuite) network(host *model.GameInfo, guests ...*model.GameInfo) (*testDevice, []*testDevice) {
	h, gs := s.connect(host, guests...)
	s.register(gs...)
	return h, gs
}

// drain runs a standalone controller's deferred work until it goes quiet
func (s *gameSuite) drain(d *testDevice) {
	for i := 0; i < 1000 && d.ctrl.Do(s.ctx); i++ {
	}
}

func (s *gameSuite) tile(letter string) model.Tile {
	t, ok := s.tileSet.FaceFor(letter)
	s.Require().True(ok, "no face for %q", letter)
	return t
}

func (s *gameSuite) tiles(letters string) []model.Tile {
	out := make([]model.Tile, 0, len(letters))
	for _, r := range letters {
		out = append(out, s.tile(string(r)))
	}
	return out
}

func (s *gameSuite) place(d *testDevice, p, col, row int, letter string) {
	idx := slices.Index(d.board.TrayTiles(p), s.tile(letter))
	s.Require().GreaterOrEqual(idx, 0, "player %d has no %s", p, letter)
	s.Require().NoError(d.board.MoveTrayToBoard(p, col, row, idx, 0))
}

// placeAcross lays word left to right from col, row
func (s *gameSuite) placeAcross(d *testDevice, p, col, row int, word string) {
	for i, r := range word {
		s.place(d, p, col+i, row, string(r))
	}
}

func (s *gameSuite) requireConserved(d *testDevice) {
	total := d.pool.Left() + d.board.TilesOnBoard()
	for p := 0; p < d.board.NPlayers(); p++ {
		total += d.board.NumTilesTotal(p)
		if d.board.Config().Duplicate {
			break
		}
	}
	s.Require().Equal(s.tileSet.Total(), total, "tiles not conserved on %s", d.name)
}

// requireInSync checks two devices agree on the stack and the pool
func (s *gameSuite) requireInSync(a, b *testDevice) {
	s.Require().Equal(a.board.Hash(), b.board.Hash(), "stack hash differs between %s and %s", a.name, b.name)
	s.Require().True(a.pool.Equal(b.pool), "pool differs between %s and %s", a.name, b.name)
	s.Require().Equal(a.board.Scores(), b.board.Scores())
}
