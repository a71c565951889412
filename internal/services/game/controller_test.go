package game

import (
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/mcoot/xwsync/internal/dependencies/mocks"
	"github.com/mcoot/xwsync/internal/model"
	"github.com/mcoot/xwsync/internal/services/board"
	"github.com/mcoot/xwsync/internal/services/pool"
)

type StandaloneSuite struct {
	gameSuite
}

func TestStandaloneSuite(t *testing.T) {
	suite.Run(t, new(StandaloneSuite))
}

func (s *StandaloneSuite) SetupTest() {
	s.setup(testTileSet(), testWords)
}

func (s *StandaloneSuite) start(info *model.GameInfo) *testDevice {
	d := s.newDevice("local", info)
	s.drain(d)
	return d
}

func (s *StandaloneSuite) startTwoHumans() *testDevice {
	return s.start(gameInfo(model.RoleStandalone, human("ann"), human("bob")))
}

// Start tests

func (s *StandaloneSuite) TestStartDealsAndGivesFirstTurn() {
	d := s.startTwoHumans()

	s.Equal(StateInTurn, d.ctrl.State())
	s.Equal(0, d.ctrl.CurrentTurn())
	s.Equal(s.tiles("CCAAAAT"), d.board.TrayTiles(0))
	s.Equal(s.tiles("TTTSSEE"), d.board.TrayTiles(1))
	s.Equal(2, d.board.StackLen())
	s.requireConserved(d)
}

func (s *StandaloneSuite) TestNewRejectsNetworkedGameWithoutComms() {
	info := gameInfo(model.RoleHost, human("ann"), remote())
	d := &testDevice{
		cb:    newRecorder(),
		board: board.New(board.ConfigFromGameInfo(info), s.tileSet, s.oracle),
		pool:  pool.New(s.tileSet, mocks.NewMockRandom()),
	}

	_, err := New(s.deps(d, info))

	s.ErrorIs(err, model.ErrWrongState)
}

func (s *StandaloneSuite) TestPickedTilesStartTheTray() {
	s.features.AllowPickTiles = true
	info := gameInfo(model.RoleStandalone, human("ann"), human("bob"))
	d := s.newDevice("local", info)
	d.cb.picks[0] = s.tiles("SS")
	s.drain(d)

	s.Equal(s.tiles("SSCCAAA"), d.board.TrayTiles(0))
	s.requireConserved(d)
}

// CommitMove tests

func (s *StandaloneSuite) TestCommitMoveAtStar() {
	d := s.startTwoHumans()
	poolBefore := d.pool.Left()
	s.placeAcross(d, 0, 6, 7, "CAT")

	s.Require().NoError(d.ctrl.CommitMove(s.ctx, 0, nil))

	s.Equal(3, d.board.StackLen())
	last, ok := d.board.LastEntry()
	s.Require().True(ok)
	s.Equal(model.EntryMove, last.Type)
	s.Equal(7, d.board.NumTilesInTray(0))
	s.Equal(poolBefore-3, d.pool.Left())
	s.Equal(5, d.board.Score(0))
	s.Equal(1, d.ctrl.CurrentTurn())
	player, desc := d.ctrl.PrevMove()
	s.Equal(0, player)
	s.NotEmpty(desc)
	s.requireConserved(d)
}

func (s *StandaloneSuite) TestCommitMoveOutOfTurnFails() {
	d := s.startTwoHumans()
	s.place(d, 1, 7, 7, "T")

	err := d.ctrl.CommitMove(s.ctx, 1, nil)

	s.ErrorIs(err, model.ErrNotYourTurn)
	s.Contains(d.cb.userErrors, model.UserErrNotYourTurn)
	s.Equal(2, d.board.StackLen())
}

func (s *StandaloneSuite) TestSingleTileFirstMoveFails() {
	d := s.startTwoHumans()
	s.place(d, 0, 7, 7, "C")

	err := d.ctrl.CommitMove(s.ctx, 0, nil)

	s.ErrorIs(err, model.ErrTwoTilesFirstMove)
	s.Equal(0, d.ctrl.CurrentTurn())
}

func (s *StandaloneSuite) TestPhonyIsRejectedAndTurnPasses() {
	d := s.startTwoHumans()
	s.placeAcross(d, 0, 6, 7, "CAA")

	s.Require().NoError(d.ctrl.CommitMove(s.ctx, 0, nil))

	last, _ := d.board.LastEntry()
	s.Equal(model.EntryPhony, last.Type)
	s.Equal([][]string{{"CAA"}}, d.cb.illegal)
	s.Equal(s.tiles("CCAAAAT"), sortedLike(d.board.TrayTiles(0), s.tiles("CCAAAAT")))
	s.Equal(0, d.board.Score(0))
	s.Equal(1, d.ctrl.CurrentTurn())
	s.requireConserved(d)
}

func (s *StandaloneSuite) TestWarnModeKeepsPhony() {
	info := gameInfo(model.RoleStandalone, human("ann"), human("bob"))
	info.Phonies = model.PhoniesWarn
	d := s.start(info)
	s.placeAcross(d, 0, 6, 7, "CAA")

	s.Require().NoError(d.ctrl.CommitMove(s.ctx, 0, nil))

	last, _ := d.board.LastEntry()
	s.Equal(model.EntryMove, last.Type)
	s.Equal([][]string{{"CAA"}}, d.cb.illegal)
	s.Equal(1, d.ctrl.CurrentTurn())
}

// CommitTrade tests

func (s *StandaloneSuite) TestTradeSwapsTiles() {
	d := s.startTwoHumans()
	left := d.pool.Left()

	s.Require().NoError(d.ctrl.CommitTrade(s.ctx, s.tiles("C"), nil))

	last, _ := d.board.LastEntry()
	s.Equal(model.EntryTrade, last.Type)
	s.Equal(left, d.pool.Left())
	s.Equal(1, d.pool.CountOf(s.tile("C")))
	s.Equal(1, d.ctrl.CurrentTurn())
	s.requireConserved(d)
}

func (s *StandaloneSuite) TestTradeNeedsFullTrayInPool() {
	d := s.startTwoHumans()
	s.Require().NoError(d.pool.Remove(s.tiles("EEEEEEEEEEEEE")))

	err := d.ctrl.CommitTrade(s.ctx, s.tiles("C"), nil)

	s.ErrorIs(err, model.ErrTooFewTilesToTrade)
	s.Contains(d.cb.userErrors, model.UserErrTooFewTilesToTrade)
	s.Equal(0, d.ctrl.CurrentTurn())
}

func (s *StandaloneSuite) TestTradeOfTilesNotInTrayFails() {
	d := s.startTwoHumans()

	err := d.ctrl.CommitTrade(s.ctx, s.tiles("E"), nil)

	s.ErrorIs(err, model.ErrBadTrayIndex)
	s.Equal(2, d.board.StackLen())
}

// Game end tests

func (s *StandaloneSuite) TestPassesEndTheGame() {
	d := s.startTwoHumans()

	for i := 0; i < 3; i++ {
		s.Require().NoError(d.ctrl.CommitMove(s.ctx, d.ctrl.CurrentTurn(), nil))
	}
	s.Equal(StateInTurn, d.ctrl.State())

	s.Require().NoError(d.ctrl.CommitMove(s.ctx, d.ctrl.CurrentTurn(), nil))
	s.Equal(StateNeedSendEndGame, d.ctrl.State())
	s.drain(d)

	s.True(d.ctrl.IsGameOver())
	s.True(d.cb.gameOver)
	s.Equal(-1, d.ctrl.CurrentTurn())
}

func (s *StandaloneSuite) TestEndGameStopsPlay() {
	d := s.startTwoHumans()

	s.Require().NoError(d.ctrl.EndGame(s.ctx))

	s.True(d.ctrl.IsGameOver())
	s.Equal(-1, d.ctrl.Quitter())
	s.ErrorIs(d.ctrl.CommitMove(s.ctx, 0, nil), model.ErrGameOver)
	s.ErrorIs(d.ctrl.EndGame(s.ctx), model.ErrWrongState)
}

func (s *StandaloneSuite) TestResignRecordsQuitter() {
	d := s.startTwoHumans()

	s.Require().NoError(d.ctrl.Resign(s.ctx, 1))

	s.True(d.ctrl.IsGameOver())
	s.Equal(1, d.ctrl.Quitter())
	s.Equal(1, d.cb.quitter)
}

// Undo tests

func (s *StandaloneSuite) TestUndoRestoresTrayAndPool() {
	d := s.startTwoHumans()
	left := d.pool.Left()
	hash := d.board.Hash()
	s.placeAcross(d, 0, 6, 7, "CAT")
	s.Require().NoError(d.ctrl.CommitMove(s.ctx, 0, nil))

	ok, err := d.ctrl.HandleUndo(s.ctx, 0)

	s.Require().NoError(err)
	s.True(ok)
	s.Equal(hash, d.board.Hash())
	s.Equal(left, d.pool.Left())
	s.Equal(0, d.board.Score(0))
	s.Equal(0, d.ctrl.CurrentTurn())
	s.requireConserved(d)
}

func (s *StandaloneSuite) TestUndoCannotRemoveDeal() {
	d := s.startTwoHumans()

	ok, err := d.ctrl.HandleUndo(s.ctx, 0)

	s.False(ok)
	s.ErrorIs(err, model.ErrCantUndoTileAssign)
	s.Contains(d.cb.userErrors, model.UserErrCantUndoTileAssign)
}

// Reset tests

func (s *StandaloneSuite) TestResetReturnsEveryTile() {
	d := s.startTwoHumans()
	s.placeAcross(d, 0, 6, 7, "CAT")
	s.Require().NoError(d.ctrl.CommitMove(s.ctx, 0, nil))

	s.Require().NoError(d.ctrl.Reset(gameInfo(model.RoleStandalone, human("ann"), human("bob"), human("cy"))))

	s.Equal(StateBegin, d.ctrl.State())
	s.Equal(s.tileSet.Total(), d.pool.Left())
	s.Equal(0, d.board.StackLen())
	s.Equal(3, d.board.NPlayers())

	s.drain(d)
	s.Equal(StateInTurn, d.ctrl.State())
	s.Equal(3, d.board.StackLen())
	s.requireConserved(d)
}

func (s *StandaloneSuite) TestChatNeedsPeers() {
	d := s.startTwoHumans()
	s.ErrorIs(d.ctrl.SendChat(s.ctx, "hello"), model.ErrWrongState)
}

// sortedLike reorders got to follow want's order when both hold the same
// tiles, so tray comparisons ignore position
func sortedLike(got, want []model.Tile) []model.Tile {
	left := append([]model.Tile(nil), got...)
	out := make([]model.Tile, 0, len(got))
	for _, w := range want {
		for i, t := range left {
			if t == w {
				out = append(out, t)
				left = append(left[:i], left[i+1:]...)
				break
			}
		}
	}
	return append(out, left...)
}

type RobotSuite struct {
	gameSuite
}

func TestRobotSuite(t *testing.T) {
	suite.Run(t, new(RobotSuite))
}

func (s *RobotSuite) SetupTest() {
	s.setup(allATileSet(), allAWords())
	s.withRobots()
}

func (s *RobotSuite) TestRobotsPlayToCompletion() {
	d := s.newDevice("local", gameInfo(model.RoleStandalone, robot("r1"), robot("r2")))

	s.drain(d)

	s.True(d.ctrl.IsGameOver())
	s.True(d.cb.gameOver)
	s.Greater(d.board.TilesOnBoard(), 0)
	s.Equal(0, d.pool.Left())
	s.requireConserved(d)
}

func (s *RobotSuite) TestSlowRobotWaitsForTimer() {
	s.features.SlowRobots = true
	s.features.RobotDelay = 2 * time.Second
	s.random.QueueIntn(500)
	d := s.newDevice("local", gameInfo(model.RoleStandalone, robot("r1"), human("ann")))

	s.drain(d)

	s.Equal(500*time.Millisecond, d.cb.timers[TimerSlowRobot])
	s.Equal(2, d.board.StackLen())
	s.Equal(0, d.ctrl.CurrentTurn())

	d.ctrl.TimerFired(s.ctx, TimerSlowRobot)
	s.drain(d)

	s.Equal(3, d.board.StackLen())
	s.Equal(1, d.ctrl.CurrentTurn())
	s.requireConserved(d)
}

func (s *RobotSuite) TestRobotMovesAfterHuman() {
	d := s.newDevice("local", gameInfo(model.RoleStandalone, human("ann"), robot("r1")))
	s.drain(d)
	s.placeAcross(d, 0, 6, 7, "AA")

	s.Require().NoError(d.ctrl.CommitMove(s.ctx, 0, nil))
	s.Equal(1, d.ctrl.CurrentTurn())
	s.drain(d)

	s.Equal(0, d.ctrl.CurrentTurn())
	s.Equal(4, d.board.StackLen())
	s.Greater(d.board.Score(1), 0)
}

func (s *RobotSuite) TestUndoTakesBackRobotMovesToo() {
	d := s.newDevice("local", gameInfo(model.RoleStandalone, human("ann"), robot("r1")))
	s.drain(d)
	hash := d.board.Hash()
	s.placeAcross(d, 0, 6, 7, "AA")
	s.Require().NoError(d.ctrl.CommitMove(s.ctx, 0, nil))
	s.drain(d)

	ok, err := d.ctrl.HandleUndo(s.ctx, 0)

	s.Require().NoError(err)
	s.True(ok)
	s.Equal(hash, d.board.Hash())
	s.Equal(0, d.ctrl.CurrentTurn())
}
