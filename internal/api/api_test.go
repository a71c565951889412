package api_test

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcoot/xwsync/internal/api"
	"github.com/mcoot/xwsync/internal/api/apierr"
	"github.com/mcoot/xwsync/internal/api/response"
	"github.com/mcoot/xwsync/internal/factory"
	"github.com/mcoot/xwsync/internal/model"
	"github.com/mcoot/xwsync/internal/services/session"
)

// testServer creates a test server with all dependencies
type testServer struct {
	handler http.Handler
	app     *factory.TestApp
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

	app := factory.NewTestApp()
	require.NoError(t, app.LoadRobotDictionary())
	t.Cleanup(func() { _ = app.Close() })

	router := api.NewRouter(api.RouterConfig{
		Logger:     logger,
		Sessions:   app.Sessions,
		Dictionary: app.Dictionary,
		Events:     app.Events,
	})

	return &testServer{handler: router, app: app}
}

func (ts *testServer) request(method, path string, body any) *httptest.ResponseRecorder {
	var reqBody *bytes.Buffer
	if body != nil {
		b, _ := json.Marshal(body)
		reqBody = bytes.NewBuffer(b)
	} else {
		reqBody = bytes.NewBuffer(nil)
	}

	req := httptest.NewRequest(method, path, reqBody)
	req.Header.Set("Content-Type", "application/json")

	rr := httptest.NewRecorder()
	ts.handler.ServeHTTP(rr, req)
	return rr
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &out), rr.Body.String())
	return out
}

func errorCode(t *testing.T, rr *httptest.ResponseRecorder) string {
	t.Helper()
	return decode[apierr.ErrorResponse](t, rr).Error.Code
}

func (ts *testServer) createHumans(t *testing.T) response.Game {
	t.Helper()
	body := map[string]any{
		"players": []map[string]any{{"name": "ann"}, {"name": "bob"}},
		"phonies": "disallow",
	}
	rr := ts.request(http.MethodPost, "/api/v1/games", body)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	return decode[response.Game](t, rr)
}

func openingAA(player int) session.Action {
	return session.Action{
		Kind:   session.ActionMove,
		Player: player,
		Tiles: []session.Placement{
			{Col: 7, Row: 7, Letter: "A"},
			{Col: 8, Row: 7, Letter: "A"},
		},
	}
}

func TestHealthCheck(t *testing.T) {
	ts := newTestServer(t)

	rr := ts.request(http.MethodGet, "/api/v1/health", nil)
	assert.Equal(t, http.StatusOK, rr.Code)

	resp := decode[response.Health](t, rr)
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "test", resp.Dictionary)
	assert.Positive(t, resp.Words)
}

func TestCreateGame(t *testing.T) {
	ts := newTestServer(t)

	game := ts.createHumans(t)
	assert.NotEmpty(t, game.ID)
	assert.Equal(t, model.RoleStandalone, game.Role)
	assert.Equal(t, "inturn", game.State)
	assert.Equal(t, 0, game.Turn)
	require.Len(t, game.Players, 2)
	assert.Equal(t, "AAAAAAA", game.Players[0].Tray)
	assert.Equal(t, model.EnglishTileSet().Total()-14, game.PoolLeft)
}

func TestCreateGameValidation(t *testing.T) {
	ts := newTestServer(t)

	rr := ts.request(http.MethodPost, "/api/v1/games", map[string]any{"players": []any{}})
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, apierr.CodeInvalidRequest, errorCode(t, rr))

	req := httptest.NewRequest(http.MethodPost, "/api/v1/games", strings.NewReader("{not json"))
	bad := httptest.NewRecorder()
	ts.handler.ServeHTTP(bad, req)
	assert.Equal(t, http.StatusBadRequest, bad.Code)

	rr = ts.request(http.MethodPost, "/api/v1/games", map[string]any{
		"players": []map[string]any{{"name": "ann"}, {"remote": true}},
	})
	assert.Equal(t, http.StatusConflict, rr.Code)
	assert.Equal(t, apierr.CodeWrongState, errorCode(t, rr))
}

func TestGetUnknownGame(t *testing.T) {
	ts := newTestServer(t)

	rr := ts.request(http.MethodGet, "/api/v1/games/nope", nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Equal(t, apierr.CodeGameNotFound, errorCode(t, rr))
}

func TestMoveAndStack(t *testing.T) {
	ts := newTestServer(t)
	game := ts.createHumans(t)
	path := "/api/v1/games/" + string(game.ID)

	rr := ts.request(http.MethodPost, path+"/actions", openingAA(1))
	assert.Equal(t, http.StatusForbidden, rr.Code)
	assert.Equal(t, apierr.CodeNotYourTurn, errorCode(t, rr))

	rr = ts.request(http.MethodPost, path+"/actions", openingAA(0))
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	played := decode[response.PlayResponse](t, rr)
	assert.Equal(t, 1, played.Game.Turn)
	assert.Positive(t, played.Game.Players[0].Score)
	assert.Equal(t, []string{"player 0 played AA across at H8"}, played.Moves)

	rr = ts.request(http.MethodGet, path+"/stack", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	stack := decode[response.Stack](t, rr)
	require.NotEmpty(t, stack.Entries)
	last := stack.Entries[len(stack.Entries)-1]
	assert.Equal(t, model.EntryMove, last.Type)
	assert.Equal(t, "player 0 played AA across at H8", last.Description)

	rr = ts.request(http.MethodGet, path, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, played.Game.Hash, decode[response.Game](t, rr).Hash)
}

func TestBadMoves(t *testing.T) {
	ts := newTestServer(t)
	game := ts.createHumans(t)
	path := "/api/v1/games/" + string(game.ID) + "/actions"

	rr := ts.request(http.MethodPost, path, session.Action{
		Kind:   session.ActionMove,
		Player: 0,
		Tiles:  []session.Placement{{Col: 7, Row: 7, Letter: "Q"}},
	})
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, apierr.CodeInvalidTiles, errorCode(t, rr))

	rr = ts.request(http.MethodPost, path, session.Action{
		Kind:   session.ActionMove,
		Player: 0,
		Tiles: []session.Placement{
			{Col: 0, Row: 0, Letter: "A"},
			{Col: 1, Row: 0, Letter: "A"},
		},
	})
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, apierr.CodeInvalidMove, errorCode(t, rr))

	rr = ts.request(http.MethodPost, path, map[string]any{"player": 0})
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = ts.request(http.MethodPost, path, map[string]any{"kind": "dance"})
	assert.Equal(t, http.StatusConflict, rr.Code)
}

func TestPlayRobots(t *testing.T) {
	ts := newTestServer(t)

	rr := ts.request(http.MethodPost, "/api/v1/games", map[string]any{
		"players": []map[string]any{{"name": "r1", "robot": true}, {"name": "r2", "robot": true}},
	})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	game := decode[response.Game](t, rr)

	rr = ts.request(http.MethodPost, "/api/v1/games/"+string(game.ID)+"/play", nil)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	played := decode[response.PlayResponse](t, rr)
	assert.True(t, played.Game.GameOver)
	assert.Len(t, played.Game.FinalScores, 2)
}

func TestPlayRobotsStallsOnHuman(t *testing.T) {
	ts := newTestServer(t)
	game := ts.createHumans(t)

	rr := ts.request(http.MethodPost, "/api/v1/games/"+string(game.ID)+"/play", nil)
	assert.Equal(t, http.StatusConflict, rr.Code)
	assert.Equal(t, apierr.CodeGameStalled, errorCode(t, rr))
}

func TestListAndDelete(t *testing.T) {
	ts := newTestServer(t)
	first := ts.createHumans(t)
	ts.app.MockClock.Advance(time.Minute)
	second := ts.createHumans(t)

	rr := ts.request(http.MethodGet, "/api/v1/games", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	list := decode[response.GameList](t, rr)
	require.Len(t, list.Games, 2)
	assert.Equal(t, string(second.ID), list.Games[0].ID)
	assert.Equal(t, "standalone", list.Games[0].Role)

	rr = ts.request(http.MethodDelete, "/api/v1/games/"+string(first.ID), nil)
	assert.Equal(t, http.StatusNoContent, rr.Code)

	rr = ts.request(http.MethodGet, "/api/v1/games/"+string(first.ID), nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestSocketNeedsHostedGame(t *testing.T) {
	ts := newTestServer(t)
	game := ts.createHumans(t)

	rr := ts.request(http.MethodGet, "/api/v1/games/"+string(game.ID)+"/ws", nil)
	assert.Equal(t, http.StatusConflict, rr.Code)
	assert.Equal(t, apierr.CodeWrongState, errorCode(t, rr))
}

// A second device joins through the websocket route and both see the same game
func TestHostAndJoinOverWebsocket(t *testing.T) {
	host := newTestServer(t)
	srv := httptest.NewServer(host.handler)
	t.Cleanup(srv.Close)

	rr := host.request(http.MethodPost, "/api/v1/games/host", map[string]any{
		"players": []map[string]any{{"name": "ann"}, {"remote": true}},
	})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	hosted := decode[response.Game](t, rr)
	assert.Equal(t, model.RoleHost, hosted.Role)
	assert.Equal(t, "begin", hosted.State)

	guest := newTestServer(t)
	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/v1/games/" + string(hosted.ID) + "/ws"
	rr = guest.request(http.MethodPost, "/api/v1/games/join", map[string]any{
		"host_url": wsURL,
		"players":  []map[string]any{{"name": "zed"}},
	})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	joined := decode[response.Game](t, rr)
	assert.Equal(t, model.RoleGuest, joined.Role)

	assert.Eventually(t, func() bool {
		rr := host.request(http.MethodGet, "/api/v1/games/"+string(hosted.ID), nil)
		g := decode[response.Game](t, rr)
		return g.State == "inturn" && g.Players[1].Name == "zed"
	}, 5*time.Second, 10*time.Millisecond)
}

func TestJoinNeedsAnAddress(t *testing.T) {
	ts := newTestServer(t)

	rr := ts.request(http.MethodPost, "/api/v1/games/join", map[string]any{
		"players": []map[string]any{{"name": "zed"}},
	})
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestEventsStreamHeaders(t *testing.T) {
	ts := newTestServer(t)
	game := ts.createHumans(t)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/games/"+string(game.ID)+"/events", nil).WithContext(ctx)
	rr := httptest.NewRecorder()
	ts.handler.ServeHTTP(rr, req)

	assert.Equal(t, "text/event-stream", rr.Header().Get("Content-Type"))
	assert.Equal(t, "no-cache", rr.Header().Get("Cache-Control"))
	body := rr.Body.String()
	assert.Contains(t, body, "retry: 3000")
	assert.Contains(t, body, "event: connected")
	assert.Contains(t, body, "event: update\ndata: {\"id\":\""+string(game.ID)+"\",\"state\":\"inturn\",\"turn\":0")
}

func TestEventsUnknownGame(t *testing.T) {
	ts := newTestServer(t)

	rr := ts.request(http.MethodGet, "/api/v1/games/nope/events", nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

// A watcher sees the move another request makes
func TestEventsFollowMoves(t *testing.T) {
	ts := newTestServer(t)
	srv := httptest.NewServer(ts.handler)
	t.Cleanup(srv.Close)
	game := ts.createHumans(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/api/v1/games/"+string(game.ID)+"/events", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	events := make(chan string, 16)
	go func() {
		defer close(events)
		var name string
		scanner := bufio.NewScanner(resp.Body)
		for scanner.Scan() {
			line := scanner.Text()
			switch {
			case strings.HasPrefix(line, "event: "):
				name = strings.TrimPrefix(line, "event: ")
			case strings.HasPrefix(line, "data: "):
				events <- name + " " + strings.TrimPrefix(line, "data: ")
			}
		}
	}()

	next := func() session.Update {
		t.Helper()
		for {
			select {
			case ev, ok := <-events:
				require.True(t, ok, "stream closed")
				name, data, _ := strings.Cut(ev, " ")
				if name == "connected" {
					continue
				}
				var u session.Update
				require.NoError(t, json.Unmarshal([]byte(data), &u))
				return u
			case <-time.After(5 * time.Second):
				t.Fatal("no event")
			}
		}
	}

	first := next()
	assert.Equal(t, game.ID, first.ID)
	assert.Equal(t, 0, first.Turn)

	rr := ts.request(http.MethodPost, "/api/v1/games/"+string(game.ID)+"/actions", openingAA(0))
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	moved := next()
	assert.Equal(t, 1, moved.Turn)
	assert.Equal(t, "player 0 played AA across at H8", moved.PrevMove)
	assert.NotEqual(t, first.Hash, moved.Hash)
}
