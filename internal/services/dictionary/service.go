package dictionary

import (
	"bufio"
	"context"
	"os"
	"sort"
	"strings"
	"sync"

	"github.com/mcoot/xwsync/internal/model"
	"github.com/mcoot/xwsync/internal/storage"
)

// Service provides word validation for the scoring oracle and the robot engine
type Service struct {
	storage storage.Storage
	name    string

	mu     sync.RWMutex
	words  map[string]struct{}
	sorted []string
	loaded bool
}

// New creates a new dictionary Service with the given display name
func New(storage storage.Storage, name string) *Service {
	return &Service{
		storage: storage,
		name:    name,
		words:   make(map[string]struct{}),
	}
}

// Name returns the dictionary's name as reported to peers
func (s *Service) Name() string {
	return s.name
}

// LoadFromStorage loads dictionary words from storage
func (s *Service) LoadFromStorage(ctx context.Context) error {
	words, err := s.storage.GetDictionaryWords(ctx)
	if err != nil {
		return err
	}
	return s.loadWords(words)
}

// LoadFromFile loads dictionary words from a file (one word per line)
func (s *Service) LoadFromFile(ctx context.Context, path string) error {
	file, err := os.Open(path)
	if err != nil {
		return err
	}
	defer file.Close()

	var words []string
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		word := strings.TrimSpace(scanner.Text())
		if word != "" && !strings.HasPrefix(word, "#") {
			words = append(words, word)
		}
	}
	if err := scanner.Err(); err != nil {
		return err
	}

	// Save to storage for future use
	if err := s.storage.SaveDictionaryWords(ctx, words); err != nil {
		return err
	}

	return s.loadWords(words)
}

// LoadWords directly loads a slice of words (useful for testing)
func (s *Service) LoadWords(words []string) error {
	return s.loadWords(words)
}

func (s *Service) loadWords(words []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.words = make(map[string]struct{}, len(words))
	for _, word := range words {
		// Tile faces are upper case
		s.words[strings.ToUpper(word)] = struct{}{}
	}
	s.sorted = make([]string, 0, len(s.words))
	for w := range s.words {
		s.sorted = append(s.sorted, w)
	}
	sort.Strings(s.sorted)
	s.loaded = true
	return nil
}

// IsValidWord checks if a word exists in the dictionary
// Words must be at least 2 characters
func (s *Service) IsValidWord(word string) bool {
	if len(word) < 2 {
		return false
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.loaded {
		return false
	}

	_, ok := s.words[strings.ToUpper(word)]
	return ok
}

// IsLoaded returns whether the dictionary has been loaded
func (s *Service) IsLoaded() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loaded
}

// WordCount returns the number of words in the dictionary
func (s *Service) WordCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.words)
}

// Words returns the dictionary's words of length 2..maxLen in sorted order
func (s *Service) Words(maxLen int) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]string, 0, len(s.sorted))
	for _, w := range s.sorted {
		if len(w) >= 2 && len(w) <= maxLen {
			out = append(out, w)
		}
	}
	return out
}

// ServiceInterface is the lookup surface used by scoring and the robot engine
type ServiceInterface interface {
	Name() string
	IsValidWord(word string) bool
	IsLoaded() bool
	WordCount() int
	Words(maxLen int) []string
	LoadFromStorage(ctx context.Context) error
	LoadFromFile(ctx context.Context, path string) error
	LoadWords(words []string) error
}

var _ ServiceInterface = (*Service)(nil)

// ErrDictionaryNotLoaded is returned when operations are attempted before loading
var ErrDictionaryNotLoaded = model.ErrDictionaryNotLoaded
