package random

import (
	crand "crypto/rand"
	"fmt"
	"math/big"
	"math/rand/v2"
	"sync"
	"time"
)

// TimePicker chooses an instant inside the half-open window [start, end).
type TimePicker interface {
	PickBetween(start, end time.Time) (time.Time, error)
}

// PickerFunc adapts a function to TimePicker.
type PickerFunc func(start, end time.Time) (time.Time, error)

// PickBetween calls f.
func (f PickerFunc) PickBetween(start, end time.Time) (time.Time, error) {
	return f(start, end)
}

// CryptoPicker draws uniformly at one-second granularity from crypto/rand.
type CryptoPicker struct{}

// PickBetween implements TimePicker.
func (CryptoPicker) PickBetween(start, end time.Time) (time.Time, error) {
	span, err := windowSeconds(start, end)
	if err != nil {
		return time.Time{}, err
	}
	offset, err := crand.Int(crand.Reader, big.NewInt(span))
	if err != nil {
		return time.Time{}, fmt.Errorf("draw fire time: %w", err)
	}
	return start.Add(time.Duration(offset.Int64()) * time.Second), nil
}

// SeededPicker draws from a PCG stream so the same seed replays the same
// sequence of instants. Safe for concurrent use.
type SeededPicker struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewSeededPicker returns a picker seeded with seed.
func NewSeededPicker(seed uint64) *SeededPicker {
	return &SeededPicker{rng: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

// PickBetween implements TimePicker.
func (p *SeededPicker) PickBetween(start, end time.Time) (time.Time, error) {
	span, err := windowSeconds(start, end)
	if err != nil {
		return time.Time{}, err
	}
	p.mu.Lock()
	offset := p.rng.Int64N(span)
	p.mu.Unlock()
	return start.Add(time.Duration(offset) * time.Second), nil
}

func windowSeconds(start, end time.Time) (int64, error) {
	span := int64(end.Sub(start) / time.Second)
	if span <= 0 {
		return 0, fmt.Errorf("pick window [%s, %s) is empty", start.Format(time.RFC3339), end.Format(time.RFC3339))
	}
	return span, nil
}
