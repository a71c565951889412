package factory

import (
	"time"

	"github.com/mcoot/xwsync/internal/dependencies/mocks"
	"github.com/mcoot/xwsync/internal/services/session"
	"github.com/mcoot/xwsync/internal/storage"
	"github.com/mcoot/xwsync/internal/storage/memory"
	"github.com/mcoot/xwsync/internal/testutil"
)

// TestApp extends App with test-specific helpers
type TestApp struct {
	*App

	// Mocks for test control
	MockClock  *mocks.MockClock
	MockRandom *mocks.MockRandom
}

// NewTestApp creates an App configured for testing with mocked dependencies.
// With no queued random values every draw takes the first tile in the bag,
// so the first player is dealt AAAAAAA and the second AABBCCD.
func NewTestApp() *TestApp {
	return NewTestAppWithStorage(memory.New())
}

// NewTestAppWithStorage is NewTestApp over existing storage, to simulate a restart
func NewTestAppWithStorage(store storage.Storage) *TestApp {
	mockClock := mocks.NewMockClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	mockRandom := mocks.NewMockRandom()

	cfg := session.DefaultConfig()
	app := newWithDependencies(store, nil, mockClock, mockRandom, "test", cfg, testutil.NopLogger())

	return &TestApp{
		App:        app,
		MockClock:  mockClock,
		MockRandom: mockRandom,
	}
}

// TestWords is the small dictionary LoadTestDictionary installs
var TestWords = []string{
	// 2-letter words
	"aa", "ab", "ad", "at", "ba", "be", "da", "do", "go", "he", "in", "is", "it",
	"me", "no", "of", "on", "or", "so", "to", "up", "us", "we",
	// 3-letter words
	"aba", "abs", "ace", "act", "add", "bad", "bag", "bat", "bed", "cab", "cad",
	"can", "cat", "dab", "dad", "ear", "eat", "sea", "set", "tea", "ten", "the",
	// 4-letter words
	"abba", "back", "bead", "card", "care", "dace", "each", "game", "read", "word",
	// 5-letter words
	"board", "decca", "trade", "words",
}

// AllPairs returns every two-letter combination of A-Z. With these loaded a
// robot can nearly always lay a single tile, so robot games run to the end.
func AllPairs() []string {
	out := make([]string, 0, 26*26)
	for a := 'A'; a <= 'Z'; a++ {
		for b := 'A'; b <= 'Z'; b++ {
			out = append(out, string([]rune{a, b}))
		}
	}
	return out
}

// LoadTestDictionary loads a small dictionary for testing
func (t *TestApp) LoadTestDictionary() error {
	return t.Dictionary.LoadWords(TestWords)
}

// LoadRobotDictionary loads the test words plus AllPairs
func (t *TestApp) LoadRobotDictionary() error {
	return t.Dictionary.LoadWords(append(AllPairs(), TestWords...))
}
