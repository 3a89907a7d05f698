// internal/score/manager.go
//
// Word scoring and the running session total.
//
// Calculate is pure: sum of letter values times the chain multiplier.
// Multipliers below 1 are clamped to 1 rather than rejected, so a bad chain
// value can never zero out or negate a word.

package score

import "github.com/robalobadob/fallphabet/internal/letters"

// Manager keeps the running total for one session.
type Manager struct {
	total int
}

// New returns a Manager with a zero total.
func New() *Manager { return &Manager{} }

// Calculate returns the points for word at the given chain multiplier.
func Calculate(word string, multiplier int) int {
	if multiplier < 1 {
		multiplier = 1
	}
	base := 0
	for _, r := range word {
		base += letters.Value(r)
	}
	return base * multiplier
}

// Calculate is the method form of the package-level Calculate.
func (m *Manager) Calculate(word string, multiplier int) int {
	return Calculate(word, multiplier)
}

// Add adds points to the total and returns the new total.
// Negative points are ignored; the total never decreases within a session.
func (m *Manager) Add(points int) int {
	if points > 0 {
		m.total += points
	}
	return m.total
}

// Total returns the running total.
func (m *Manager) Total() int { return m.total }

// Reset zeroes the total for a new session.
func (m *Manager) Reset() { m.total = 0 }
