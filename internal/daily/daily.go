// internal/daily/daily.go
//
// Date keys and deterministic seeds for the Daily Challenge.
//
// Every player gets the same tile sequence on a given UTC date: the seed is
// HMAC-SHA256(salt, YYYY-MM-DD), so it cannot be guessed without the salt.
package daily

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/binary"
	"math/rand"
	"time"
)

// DateKey returns YYYY-MM-DD in UTC.
func DateKey(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}

// Seed returns the deterministic random seed for the date of t.
func Seed(t time.Time, salt string) int64 {
	h := hmac.New(sha256.New, []byte(salt))
	h.Write([]byte(DateKey(t)))
	sum := h.Sum(nil)
	// first 8 bytes, sign bit cleared
	return int64(binary.BigEndian.Uint64(sum[:8]) & (1<<63 - 1))
}

// Random returns a source seeded for the date of t.
func Random(t time.Time, salt string) *rand.Rand {
	return rand.New(rand.NewSource(Seed(t, salt)))
}

// ParseDate validates a YYYY-MM-DD key.
func ParseDate(s string) (string, error) {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return "", err
	}
	return DateKey(t), nil
}
