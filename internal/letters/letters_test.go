package letters

import (
	"errors"
	"math"
	"math/rand"
	"testing"
)

func TestValue(t *testing.T) {
	tests := []struct {
		r    rune
		want int
	}{
		{'A', 1}, {'a', 1}, {'C', 3}, {'d', 2}, {'K', 5}, {'Q', 10}, {'z', 10}, {'X', 8},
		{'1', 0}, {' ', 0}, {'é', 0},
	}
	for _, tt := range tests {
		if got := Value(tt.r); got != tt.want {
			t.Errorf("Value(%q) = %d, want %d", tt.r, got, tt.want)
		}
	}
}

func TestNewPool_Errors(t *testing.T) {
	tests := []struct {
		name    string
		weights map[rune]int
		want    error
	}{
		{"nil", nil, ErrEmptyPool},
		{"all zero", map[rune]int{'A': 0, 'B': 0}, ErrEmptyPool},
		{"digit", map[rune]int{'1': 3}, ErrBadLetter},
		{"negative", map[rune]int{'A': -1}, ErrBadLetter},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewPool(tt.weights)
			if !errors.Is(err, tt.want) {
				t.Fatalf("NewPool() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestNewPool_Layout(t *testing.T) {
	p, err := NewPool(map[rune]int{'b': 2, 'A': 1, 'B': 1})
	if err != nil {
		t.Fatalf("NewPool() error = %v", err)
	}
	if p.Len() != 4 {
		t.Fatalf("Len() = %d, want 4", p.Len())
	}
	if got := string(p.Letters()); got != "ABBB" {
		t.Errorf("Letters() = %q, want %q", got, "ABBB")
	}
	if p.Weight('b') != 3 {
		t.Errorf("Weight('b') = %d, want 3", p.Weight('b'))
	}
}

type fixed float64

func (f fixed) Float64() float64 { return float64(f) }

func TestDraw_Bounds(t *testing.T) {
	p, _ := NewPool(map[rune]int{'A': 1, 'Z': 1})
	if got := p.Draw(fixed(0)); got != 'A' {
		t.Errorf("Draw(0) = %q, want A", got)
	}
	if got := p.Draw(fixed(0.999999)); got != 'Z' {
		t.Errorf("Draw(0.999999) = %q, want Z", got)
	}
	if got := p.Draw(fixed(1)); got != 'Z' {
		t.Errorf("Draw(1) = %q, want Z (clamped)", got)
	}
}

func TestDraw_ConvergesToFrequencies(t *testing.T) {
	p, err := NewPool(DefaultFrequencies())
	if err != nil {
		t.Fatalf("NewPool() error = %v", err)
	}
	rng := rand.New(rand.NewSource(42))
	const draws = 200000
	counts := map[rune]int{}
	for i := 0; i < draws; i++ {
		counts[p.Draw(rng)]++
	}
	total := float64(p.Len())
	for r, w := range DefaultFrequencies() {
		want := float64(w) / total
		got := float64(counts[r]) / draws
		if math.Abs(got-want) > 0.005 {
			t.Errorf("letter %q frequency = %.4f, want %.4f ±0.005", r, got, want)
		}
	}
}

func TestDraw_SeededIsReproducible(t *testing.T) {
	p, _ := NewPool(DefaultFrequencies())
	a := rand.New(rand.NewSource(7))
	b := rand.New(rand.NewSource(7))
	for i := 0; i < 100; i++ {
		if x, y := p.Draw(a), p.Draw(b); x != y {
			t.Fatalf("draw %d differs: %q vs %q", i, x, y)
		}
	}
}
