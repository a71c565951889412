package e2e_test

import (
	"context"
	"encoding/json"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcoot/xwsync/internal/api"
	"github.com/mcoot/xwsync/internal/factory"
)

// cliRunner manages CLI binary execution
type cliRunner struct {
	binaryPath string
	serverURL  string
}

func newCLIRunner(t *testing.T, serverURL string) *cliRunner {
	t.Helper()

	// Find project root (where go.mod is)
	projectRoot := findProjectRoot(t)

	// Build the CLI binary
	binaryPath := filepath.Join(t.TempDir(), "xwsync-test")
	cmd := exec.Command("go", "build", "-o", binaryPath, "./cmd/xwsync")
	cmd.Dir = projectRoot
	output, err := cmd.CombinedOutput()
	require.NoError(t, err, "failed to build CLI: %s", string(output))

	return &cliRunner{
		binaryPath: binaryPath,
		serverURL:  serverURL,
	}
}

func (r *cliRunner) run(args ...string) (string, error) {
	fullArgs := append([]string{
		"--server", r.serverURL,
		"--output", "json",
	}, args...)

	cmd := exec.Command(r.binaryPath, fullArgs...)
	cmd.Env = append(os.Environ(), "XWSYNC_SERVER=", "XWSYNC_DICT=")
	output, err := cmd.CombinedOutput()
	return string(output), err
}

func findProjectRoot(t *testing.T) string {
	t.Helper()

	dir, err := os.Getwd()
	require.NoError(t, err)

	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			t.Fatal("could not find project root (go.mod)")
		}
		dir = parent
	}
}

// writeDictionary writes a word list every robot can always play from
func writeDictionary(t *testing.T) string {
	t.Helper()

	words := append(factory.AllPairs(), factory.TestWords...)
	path := filepath.Join(t.TempDir(), "words.txt")
	require.NoError(t, os.WriteFile(path, []byte("# e2e words\n"+strings.Join(words, "\n")+"\n"), 0o644))
	return path
}

// testServer manages a real HTTP server for e2e tests
type testServer struct {
	addr     string
	dictPath string
	shutdown func()
}

func startTestServer(t *testing.T) *testServer {
	t.Helper()

	// Find a free port
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := listener.Addr().String()
	require.NoError(t, listener.Close())

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	dictPath := writeDictionary(t)

	app, err := factory.New(context.Background(), factory.Config{
		DictionaryPath: dictPath,
		Logger:         logger,
	})
	require.NoError(t, err)

	router := api.NewRouter(api.RouterConfig{
		Logger:     logger,
		Sessions:   app.Sessions,
		Dictionary: app.Dictionary,
		Events:     app.Events,
	})

	server := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	// Start server
	go func() {
		if err := server.ListenAndServe(); err != http.ErrServerClosed {
			t.Logf("server error: %v", err)
		}
	}()

	// Wait for server to be ready
	serverURL := "http://" + addr
	waitForServer(t, serverURL+"/api/v1/health")

	return &testServer{
		addr:     serverURL,
		dictPath: dictPath,
		shutdown: func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = server.Shutdown(ctx)
			_ = app.Close()
		},
	}
}

func waitForServer(t *testing.T, url string) {
	t.Helper()

	client := &http.Client{Timeout: 100 * time.Millisecond}
	deadline := time.Now().Add(5 * time.Second)

	for time.Now().Before(deadline) {
		resp, err := client.Get(url)
		if err == nil {
			_ = resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return
			}
		}
		time.Sleep(50 * time.Millisecond)
	}

	t.Fatal("server did not become ready in time")
}

// Response types for JSON parsing
type playerResponse struct {
	Name  string `json:"name"`
	Robot bool   `json:"robot"`
	Score int    `json:"score"`
	Tray  string `json:"tray"`
}

type gameResponse struct {
	ID          string           `json:"id"`
	Role        string           `json:"role"`
	State       string           `json:"state"`
	Turn        int              `json:"turn"`
	Players     []playerResponse `json:"players"`
	PoolLeft    int              `json:"pool_left"`
	Hash        uint32           `json:"hash"`
	GameOver    bool             `json:"game_over"`
	FinalScores []int            `json:"final_scores"`
	Board       []string         `json:"board"`
}

type playResponse struct {
	Game  gameResponse `json:"game"`
	Moves []string     `json:"moves"`
}

type listResponse struct {
	Games []struct {
		ID    string `json:"id"`
		Role  string `json:"role"`
		State string `json:"state"`
	} `json:"games"`
}

type stackResponse struct {
	ID      string `json:"id"`
	Entries []struct {
		Description string `json:"description"`
	} `json:"entries"`
}

type healthResponse struct {
	Status     string `json:"status"`
	Dictionary string `json:"dictionary"`
	Words      int    `json:"words"`
}

type messageResponse struct {
	Message string `json:"message"`
}

// Tests

func TestCLI_HealthCheck(t *testing.T) {
	ts := startTestServer(t)
	defer ts.shutdown()

	cli := newCLIRunner(t, ts.addr)

	output, err := cli.run("health")
	require.NoError(t, err, "output: %s", output)

	var resp healthResponse
	require.NoError(t, json.Unmarshal([]byte(output), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, factory.DefaultDictionaryName, resp.Dictionary)
	assert.Positive(t, resp.Words)
}

func TestCLI_RobotGame(t *testing.T) {
	ts := startTestServer(t)
	defer ts.shutdown()

	cli := newCLIRunner(t, ts.addr)

	// Create a game between two robots
	output, err := cli.run("games", "create", "-p", "robot:r1", "-p", "robot:r2:60")
	require.NoError(t, err, "output: %s", output)

	var game gameResponse
	require.NoError(t, json.Unmarshal([]byte(output), &game))
	require.NotEmpty(t, game.ID)
	assert.Equal(t, "standalone", game.Role)
	require.Len(t, game.Players, 2)
	assert.True(t, game.Players[0].Robot)
	assert.Len(t, game.Board, 15)

	// Show it
	output, err = cli.run("games", "show", game.ID)
	require.NoError(t, err, "output: %s", output)

	var shown gameResponse
	require.NoError(t, json.Unmarshal([]byte(output), &shown))
	assert.Equal(t, game.ID, shown.ID)
	assert.Equal(t, game.Hash, shown.Hash)

	// Let the robots finish
	output, err = cli.run("games", "play", game.ID)
	require.NoError(t, err, "output: %s", output)

	var played playResponse
	require.NoError(t, json.Unmarshal([]byte(output), &played))
	assert.True(t, played.Game.GameOver)
	assert.Len(t, played.Game.FinalScores, 2)
	assert.NotEmpty(t, played.Moves)

	// The stack holds every move
	output, err = cli.run("games", "stack", game.ID)
	require.NoError(t, err, "output: %s", output)

	var stack stackResponse
	require.NoError(t, json.Unmarshal([]byte(output), &stack))
	assert.Equal(t, game.ID, stack.ID)
	assert.NotEmpty(t, stack.Entries)

	// List then delete
	output, err = cli.run("games", "list")
	require.NoError(t, err, "output: %s", output)

	var list listResponse
	require.NoError(t, json.Unmarshal([]byte(output), &list))
	require.Len(t, list.Games, 1)
	assert.Equal(t, game.ID, list.Games[0].ID)

	output, err = cli.run("games", "delete", game.ID)
	require.NoError(t, err, "output: %s", output)

	var msg messageResponse
	require.NoError(t, json.Unmarshal([]byte(output), &msg))
	assert.Contains(t, msg.Message, game.ID)

	output, err = cli.run("games", "show", game.ID)
	assert.Error(t, err)
	assert.Contains(t, output, "GAME_NOT_FOUND")
}

func TestCLI_HumanMoves(t *testing.T) {
	ts := startTestServer(t)
	defer ts.shutdown()

	cli := newCLIRunner(t, ts.addr)

	output, err := cli.run("games", "create", "-p", "ann", "-p", "robot:r1", "--phonies", "disallow")
	require.NoError(t, err, "output: %s", output)

	var game gameResponse
	require.NoError(t, json.Unmarshal([]byte(output), &game))
	require.Len(t, game.Players, 2)
	tray := game.Players[0].Tray
	require.Len(t, tray, 7)

	// Moving out of turn is refused
	output, err = cli.run("games", "move", game.ID, "--player", "1", "H8=A", "I8=B")
	assert.Error(t, err)
	assert.Contains(t, output, "NOT_YOUR_TURN")

	// Passing hands the turn to the robot, which answers at once
	output, err = cli.run("games", "act", game.ID, "pass")
	require.NoError(t, err, "output: %s", output)

	var played playResponse
	require.NoError(t, json.Unmarshal([]byte(output), &played))
	assert.False(t, played.Game.GameOver)
	assert.Equal(t, 0, played.Game.Turn)

	// Playing tiles goes through the move command
	output, err = cli.run("games", "act", game.ID, "move")
	assert.Error(t, err)
	assert.Contains(t, output, "move command")
}

func TestCLI_BadPlayerSpec(t *testing.T) {
	ts := startTestServer(t)
	defer ts.shutdown()

	cli := newCLIRunner(t, ts.addr)

	output, err := cli.run("games", "create", "-p", "robot:r1:500")
	assert.Error(t, err)
	assert.Contains(t, output, "iq must be 1-100")
}

func TestCLI_LocalPlay(t *testing.T) {
	ts := startTestServer(t)
	defer ts.shutdown()

	cli := newCLIRunner(t, ts.addr)

	output, err := cli.run("play", "--robots", "3", "--dict", ts.dictPath, "--seed", "e2e")
	require.NoError(t, err, "output: %s", output)

	var first playResponse
	require.NoError(t, json.Unmarshal([]byte(output), &first))
	assert.True(t, first.Game.GameOver)
	assert.Len(t, first.Game.Players, 3)
	assert.NotEmpty(t, first.Moves)

	// The same seed replays the same game
	output, err = cli.run("play", "--robots", "3", "--dict", ts.dictPath, "--seed", "e2e")
	require.NoError(t, err, "output: %s", output)

	var second playResponse
	require.NoError(t, json.Unmarshal([]byte(output), &second))
	assert.Equal(t, first.Moves, second.Moves)
	assert.Equal(t, first.Game.FinalScores, second.Game.FinalScores)
}

func TestCLI_LocalPlayNeedsDictionary(t *testing.T) {
	ts := startTestServer(t)
	defer ts.shutdown()

	cli := newCLIRunner(t, ts.addr)

	output, err := cli.run("play", "--dict", filepath.Join(t.TempDir(), "missing.txt"))
	assert.Error(t, err)
	assert.Contains(t, output, "loading dictionary")
}
