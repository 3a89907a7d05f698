// internal/words/words.go
//
// Dictionary lookup for submitted words.
//
// Responsibilities:
//   - Load a word list from a file or fall back to the embedded default.
//   - Normalize to uppercase A-Z and keep a set for O(1) lookups.
//   - Implement game.Validator (case-insensitive, minimum length).
//
// Initialization behavior (Init):
//  1. If a path is given, load one word per line from it.
//  2. Otherwise use assets/dictionary.txt.
//
// The package-level Init / Shared pair is run once (sync.Once) so the
// server and its handlers share one Dictionary.
package words

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/robalobadob/fallphabet/assets"
)

// DefaultMinLength is the shortest accepted word.
const DefaultMinLength = 3

// ErrEmpty is returned when a list has no usable words.
var ErrEmpty = errors.New("words: dictionary is empty")

// Dictionary is an immutable set of accepted words.
type Dictionary struct {
	minLen int
	set    map[string]struct{}
}

// New builds a Dictionary from list. Entries that are not purely alphabetic
// are dropped. minLen <= 0 means DefaultMinLength.
func New(list []string, minLen int) (*Dictionary, error) {
	if minLen <= 0 {
		minLen = DefaultMinLength
	}
	set := make(map[string]struct{}, len(list))
	for _, w := range list {
		w = normalize(w)
		if w == "" || !isAlpha(w) {
			continue
		}
		set[w] = struct{}{}
	}
	if len(set) == 0 {
		return nil, ErrEmpty
	}
	return &Dictionary{minLen: minLen, set: set}, nil
}

// Load reads one word per line from path. Blank lines and '#' comments are
// skipped.
func Load(path string, minLen int) (*Dictionary, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("words: open %s: %w", path, err)
	}
	defer f.Close()

	var list []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		list = append(list, line)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("words: read %s: %w", path, err)
	}
	return New(list, minLen)
}

// Default returns the embedded dictionary.
func Default(minLen int) (*Dictionary, error) {
	list, err := assets.Dictionary()
	if err != nil {
		return nil, fmt.Errorf("words: embedded list: %w", err)
	}
	return New(list, minLen)
}

// Validate reports whether word is long enough and in the dictionary.
func (d *Dictionary) Validate(word string) bool {
	w := normalize(word)
	if len(w) < d.minLen {
		return false
	}
	_, ok := d.set[w]
	return ok
}

// Len returns the number of words loaded.
func (d *Dictionary) Len() int { return len(d.set) }

// MinLength returns the shortest accepted word length.
func (d *Dictionary) MinLength() int { return d.minLen }

func normalize(s string) string { return strings.ToUpper(strings.TrimSpace(s)) }

// isAlpha reports whether s is all uppercase ASCII letters.
func isAlpha(s string) bool {
	for _, r := range s {
		if r < 'A' || r > 'Z' {
			return false
		}
	}
	return true
}

// --- process-wide dictionary ---

var (
	initOnce   sync.Once
	shared     *Dictionary
	initialErr error
)

// Init loads the shared dictionary exactly once. An empty path selects the
// embedded list.
func Init(path string, minLen int) error {
	initOnce.Do(func() {
		if path != "" {
			shared, initialErr = Load(path, minLen)
			return
		}
		shared, initialErr = Default(minLen)
	})
	return initialErr
}

// Shared returns the dictionary loaded by Init, or nil before Init.
func Shared() *Dictionary { return shared }

// Stats returns the number of words in the shared dictionary.
func Stats() int {
	if shared == nil {
		return 0
	}
	return shared.Len()
}
