// Package macros holds the text snippets typed by People+letter chords.
package macros

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"unicode"
	"unicode/utf8"

	"github.com/rs/zerolog"
)

// MaxLength is the longest macro text kept, in bytes.
const MaxLength = 255

var (
	ErrInvalidKey = errors.New("macros: key must be a letter a-z")
	ErrTooLong    = fmt.Errorf("macros: text longer than %d bytes", MaxLength)
)

var defaultLogger = zerolog.New(os.Stdout).With().Str("subsystem", "macros").Logger()

// Store maps the letters a-z to macro text. A zero path keeps it in memory only.
type Store struct {
	path string
	l    *zerolog.Logger

	mu     sync.RWMutex
	macros map[rune]string
}

func NewStore(path string, logger *zerolog.Logger) *Store {
	if logger == nil {
		logger = &defaultLogger
	}
	return &Store{path: path, l: logger, macros: make(map[rune]string)}
}

func (s *Store) Path() string { return s.path }

// NormalizeKey lowercases key and checks that it names a macro slot.
func NormalizeKey(key rune) (rune, error) {
	key = unicode.ToLower(key)
	if key < 'a' || key > 'z' {
		return 0, ErrInvalidKey
	}
	return key, nil
}

// ParseKey accepts a one-letter string such as "a" or "A".
func ParseKey(s string) (rune, error) {
	r := []rune(s)
	if len(r) != 1 {
		return 0, ErrInvalidKey
	}
	return NormalizeKey(r[0])
}

func (s *Store) Get(key rune) (string, bool) {
	key, err := NormalizeKey(key)
	if err != nil {
		return "", false
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	text, ok := s.macros[key]
	return text, ok
}

// Set stores text under key. Empty text removes the macro.
func (s *Store) Set(key rune, text string) error {
	key, err := NormalizeKey(key)
	if err != nil {
		return err
	}
	if len(text) > MaxLength {
		return ErrTooLong
	}
	s.mu.Lock()
	if text == "" {
		delete(s.macros, key)
	} else {
		s.macros[key] = text
	}
	s.mu.Unlock()
	s.l.Debug().Str("key", string(key)).Int("length", len(text)).Msg("macro set")
	return nil
}

func (s *Store) Delete(key rune) error {
	return s.Set(key, "")
}

// Expand returns the macro for key, or the lowercased key itself when unset.
func (s *Store) Expand(key rune) string {
	if text, ok := s.Get(key); ok {
		return text
	}
	return string(unicode.ToLower(key))
}

// All returns a snapshot keyed by one-letter strings.
func (s *Store) All() map[string]string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]string, len(s.macros))
	for k, v := range s.macros {
		out[string(k)] = v
	}
	return out
}

func (s *Store) Keys() []string {
	all := s.All()
	keys := make([]string, 0, len(all))
	for k := range all {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Load replaces the macros with the file contents. A missing file leaves the store empty.
func (s *Store) Load() error {
	if s.path == "" {
		return nil
	}
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		s.mu.Lock()
		s.macros = make(map[rune]string)
		s.mu.Unlock()
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read macros file: %w", err)
	}

	var raw map[string]string
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("failed to parse macros file: %w", err)
	}

	loaded := make(map[rune]string, len(raw))
	for k, v := range raw {
		key, err := ParseKey(k)
		if err != nil {
			s.l.Warn().Str("key", k).Msg("ignoring macro with invalid key")
			continue
		}
		if len(v) > MaxLength {
			s.l.Warn().Str("key", k).Int("length", len(v)).Msg("truncating macro")
			v = truncate(v, MaxLength)
		}
		if v != "" {
			loaded[key] = v
		}
	}

	s.mu.Lock()
	s.macros = loaded
	s.mu.Unlock()
	s.l.Info().Int("count", len(loaded)).Str("path", s.path).Msg("macros loaded")
	return nil
}

// truncate cuts s to at most n bytes without splitting a character.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}

// Save writes the macros to the file, replacing it atomically.
func (s *Store) Save() error {
	if s.path == "" {
		return nil
	}
	data, err := json.MarshalIndent(s.All(), "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("failed to create macros directory: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".macros-*.json")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write macros: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), s.path)
}
