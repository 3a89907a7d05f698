package daily

import (
	"testing"
	"time"
)

func TestDateKey_UTC(t *testing.T) {
	loc := time.FixedZone("UTC+10", 10*3600)
	at := time.Date(2026, 3, 2, 5, 0, 0, 0, loc) // 2026-03-01 19:00 UTC
	if got := DateKey(at); got != "2026-03-01" {
		t.Fatalf("DateKey() = %q, want 2026-03-01", got)
	}
}

func TestSeed_Deterministic(t *testing.T) {
	morning := time.Date(2026, 3, 1, 1, 0, 0, 0, time.UTC)
	evening := time.Date(2026, 3, 1, 23, 0, 0, 0, time.UTC)
	next := morning.Add(24 * time.Hour)

	if Seed(morning, "salt") != Seed(evening, "salt") {
		t.Error("seed differs within one day")
	}
	if Seed(morning, "salt") == Seed(next, "salt") {
		t.Error("seed repeats across days")
	}
	if Seed(morning, "salt") == Seed(morning, "pepper") {
		t.Error("seed ignores the salt")
	}
	if Seed(morning, "salt") < 0 {
		t.Error("seed is negative")
	}
}

func TestRandom_SameSequence(t *testing.T) {
	day := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	a, b := Random(day, "s"), Random(day.Add(time.Hour), "s")
	for i := 0; i < 20; i++ {
		if x, y := a.Float64(), b.Float64(); x != y {
			t.Fatalf("draw %d: %v != %v", i, x, y)
		}
	}
}

func TestParseDate(t *testing.T) {
	if got, err := ParseDate("2026-03-01"); err != nil || got != "2026-03-01" {
		t.Errorf("ParseDate() = %q, %v", got, err)
	}
	for _, bad := range []string{"", "2026-13-01", "yesterday"} {
		if _, err := ParseDate(bad); err == nil {
			t.Errorf("ParseDate(%q) error = nil", bad)
		}
	}
}
