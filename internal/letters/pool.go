// internal/letters/pool.go
//
// Weighted letter sampling for tile spawns.
//
// A Pool is built by expanding a letter→weight table into a flat multiset,
// so a uniform index draw is proportional to weight. Letters are laid out in
// alphabetical order, which keeps draws reproducible for a seeded Random.
// Pools are immutable after construction.

package letters

import (
	"errors"
	"fmt"
	"sort"
	"unicode"
)

var (
	// ErrEmptyPool is returned when the weights add up to zero.
	ErrEmptyPool = errors.New("letters: empty letter pool")
	// ErrBadLetter is returned for non A–Z keys or negative weights.
	ErrBadLetter = errors.New("letters: invalid frequency entry")
)

// Random is the randomness the game consumes: a float in [0,1).
// *math/rand.Rand satisfies it.
type Random interface {
	Float64() float64
}

// DefaultFrequencies is the spawn distribution for a standard game.
func DefaultFrequencies() map[rune]int {
	return map[rune]int{
		'E': 12, 'A': 9, 'I': 9, 'N': 6, 'O': 8, 'R': 6, 'T': 6, 'L': 4, 'S': 4, 'U': 4,
		'D': 4, 'P': 2, 'M': 2, 'H': 2, 'G': 3, 'B': 2, 'F': 2, 'Y': 2, 'W': 2, 'K': 1,
		'V': 2, 'X': 1, 'Z': 1, 'J': 1, 'Q': 1, 'C': 2,
	}
}

// Pool is a flat multiset of letters sampled uniformly.
type Pool struct {
	letters []rune
	weights map[rune]int
}

// NewPool expands weights into a Pool. Keys are folded to uppercase.
func NewPool(weights map[rune]int) (*Pool, error) {
	folded := make(map[rune]int, len(weights))
	for r, w := range weights {
		if !IsLetter(r) || w < 0 {
			return nil, fmt.Errorf("%w: %q=%d", ErrBadLetter, r, w)
		}
		folded[unicode.ToUpper(r)] += w
	}

	keys := make([]rune, 0, len(folded))
	for r := range folded {
		keys = append(keys, r)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })

	var flat []rune
	for _, r := range keys {
		for i := 0; i < folded[r]; i++ {
			flat = append(flat, r)
		}
	}
	if len(flat) == 0 {
		return nil, ErrEmptyPool
	}
	return &Pool{letters: flat, weights: folded}, nil
}

// Draw picks one letter uniformly from the pool.
func (p *Pool) Draw(rng Random) rune {
	i := int(rng.Float64() * float64(len(p.letters)))
	if i >= len(p.letters) {
		i = len(p.letters) - 1
	}
	if i < 0 {
		i = 0
	}
	return p.letters[i]
}

// Len is the total weight of the pool.
func (p *Pool) Len() int { return len(p.letters) }

// Weight returns the configured weight of r.
func (p *Pool) Weight(r rune) int { return p.weights[unicode.ToUpper(r)] }

// Letters returns a copy of the flat pool in draw order.
func (p *Pool) Letters() []rune {
	out := make([]rune, len(p.letters))
	copy(out, p.letters)
	return out
}
