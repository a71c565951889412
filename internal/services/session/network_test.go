package session

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/suite"

	"github.com/mcoot/xwsync/internal/dependencies/mocks"
	"github.com/mcoot/xwsync/internal/model"
	"github.com/mcoot/xwsync/internal/services/bot"
	"github.com/mcoot/xwsync/internal/services/dictionary"
	"github.com/mcoot/xwsync/internal/services/scoring"
	"github.com/mcoot/xwsync/internal/storage/memory"
	"github.com/mcoot/xwsync/internal/testutil"
)

// allATileSet makes a game in which any line of tiles is a word
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

// NetworkSuite runs a host and a guest manager against each other over a
// websocket connection or redis pub/sub
type NetworkSuite struct {
	suite.Suite
	ctx    context.Context
	cancel context.CancelFunc
	pubsub *goredis.Client
	host   *Manager
	guest  *Manager
}

func TestNetworkSuite(t *testing.T) {
	suite.Run(t, new(NetworkSuite))
}

func (s *NetworkSuite) newManager() *Manager {
	dict := dictionary.New(nil, "aaa")
	s.Require().NoError(dict.LoadWords(allAWords()))
	oracle := scoring.New(dict, nil)
	rnd := mocks.NewMockRandom()
	return NewManager(DefaultConfig(), Deps{
		TileSet: allATileSet(),
		Oracle:  oracle,
		Engine:  bot.NewWordListEngine(dict, oracle, bot.NewIQStrategy(rnd), model.DefaultTraySize, testutil.NopLogger()),
		Store:   memory.New(),
		Clock:   mocks.NewMockClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)),
		PubSub:  s.pubsub,
		Random:  rnd,
		Logger:  testutil.NopLogger(),
	})
}

func (s *NetworkSuite) SetupTest() {
	s.ctx, s.cancel = context.WithTimeout(context.Background(), 10*time.Second)
	mini := miniredis.RunT(s.T())
	s.pubsub = goredis.NewClient(&goredis.Options{Addr: mini.Addr()})
	s.host = s.newManager()
	s.guest = s.newManager()
}

func (s *NetworkSuite) TearDownTest() {
	s.cancel()
	s.NoError(s.guest.Close())
	s.NoError(s.host.Close())
	s.NoError(s.pubsub.Close())
}

func (s *NetworkSuite) serve(id model.GameID) string {
	t, err := s.host.Transport(s.ctx, id)
	s.Require().NoError(err)
	srv := httptest.NewServer(t.Handler())
	s.T().Cleanup(srv.Close)
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func (s *NetworkSuite) waitDone(sess *Session) {
	s.Eventually(func() bool {
		select {
		case <-sess.Done():
			return true
		default:
			return false
		}
	}, 5*time.Second, 10*time.Millisecond)
}

func (s *NetworkSuite) TestHostWaitsForGuest() {
	h, err := s.host.Host(s.ctx, CreateRequest{Players: []PlayerRequest{{Remote: true}, {Name: "max"}}})
	s.Require().NoError(err)

	sum := h.Summary()
	s.Equal(model.RoleHost, sum.Role)
	s.Equal("begin", sum.State)
	s.Equal(allATileSet().Total(), sum.PoolLeft)

	_, err = s.host.Get(s.ctx, h.ID())
	s.Require().NoError(err)
}

func (s *NetworkSuite) TestGuestJoinsAndGetsTrays() {
	h, err := s.host.Host(s.ctx, CreateRequest{Players: []PlayerRequest{{Remote: true}, {Name: "max"}}})
	s.Require().NoError(err)

	g, err := s.guest.Join(s.ctx, JoinRequest{HostURL: s.serve(h.ID()), Players: []PlayerRequest{{Name: "zed"}}})
	s.Require().NoError(err)

	s.Eventually(func() bool {
		return g.State().String() == "inturn" && h.State().String() == "inturn"
	}, 5*time.Second, 10*time.Millisecond)

	hs, gs := h.Summary(), g.Summary()
	s.Equal("zed", hs.Players[0].Name)
	s.False(hs.Players[0].Local)
	s.True(gs.Players[0].Local)
	s.False(gs.Players[1].Local)
	s.Equal(7, len(gs.Players[0].Tray))
	s.Empty(gs.Players[1].Tray)
	s.Equal(hs.PoolLeft, gs.PoolLeft)
	s.Equal(hs.Hash, gs.Hash)
	s.Equal(model.RoleGuest, gs.Role)
}

func (s *NetworkSuite) TestRobotsFinishGameAcrossDevices() {
	h, err := s.host.Host(s.ctx, CreateRequest{Players: []PlayerRequest{{Remote: true}, {Name: "max", Robot: true}}})
	s.Require().NoError(err)

	g, err := s.guest.Join(s.ctx, JoinRequest{HostURL: s.serve(h.ID()), Players: []PlayerRequest{{Name: "zed", Robot: true}}})
	s.Require().NoError(err)

	s.waitDone(h)
	s.waitDone(g)

	hs, gs := h.Summary(), g.Summary()
	s.True(hs.GameOver)
	s.True(gs.GameOver)
	s.Equal(hs.FinalScores, gs.FinalScores)
	s.Equal(hs.StackDepth, gs.StackDepth)
	s.Equal(hs.Hash, gs.Hash)
	s.Equal(0, hs.PoolLeft)
}

func (s *NetworkSuite) TestRobotsFinishGameOverRedis() {
	h, err := s.host.Host(s.ctx, CreateRequest{
		Players:   []PlayerRequest{{Name: "max", Robot: true}, {Remote: true}},
		Transport: TransportRedis,
	})
	s.Require().NoError(err)

	g, err := s.guest.Join(s.ctx, JoinRequest{
		Transport: TransportRedis,
		GameID:    h.ID(),
		Players:   []PlayerRequest{{Name: "zed", Robot: true}},
	})
	s.Require().NoError(err)

	s.waitDone(h)
	s.waitDone(g)

	hs, gs := h.Summary(), g.Summary()
	s.Equal("zed", hs.Players[1].Name)
	s.Equal(hs.FinalScores, gs.FinalScores)
	s.Equal(hs.Hash, gs.Hash)

	_, err = s.host.Transport(s.ctx, h.ID())
	s.ErrorIs(err, model.ErrWrongState)
}

func (s *NetworkSuite) TestUnknownTransportIsRejected() {
	_, err := s.host.Host(s.ctx, CreateRequest{
		Players:   []PlayerRequest{{Name: "max"}, {Remote: true}},
		Transport: "carrier-pigeon",
	})
	s.ErrorIs(err, model.ErrWrongState)
}

func (s *NetworkSuite) TestJoinFailsWithoutHost() {
	_, err := s.guest.Join(s.ctx, JoinRequest{HostURL: "ws://127.0.0.1:1/nowhere", Players: []PlayerRequest{{Name: "zed"}}})
	s.Error(err)
}

func (s *NetworkSuite) TestStandaloneGameHasNoTransport() {
	sess, err := s.host.Create(s.ctx, CreateRequest{Players: []PlayerRequest{{Name: "ann"}, {Name: "bob"}}})
	s.Require().NoError(err)

	_, err = s.host.Transport(s.ctx, sess.ID())
	s.ErrorIs(err, model.ErrWrongState)
}
