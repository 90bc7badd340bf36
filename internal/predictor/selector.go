package predictor

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ayusman/signspeak/internal/detector"
)

// Mode names a prediction strategy.
type Mode string

const (
	ModeDemo   Mode = "demo"
	ModeNeural Mode = "neural"
)

// ParseMode validates a mode name.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeDemo, ModeNeural:
		return Mode(s), nil
	}
	return "", fmt.Errorf("unknown prediction mode %q", s)
}

// Selector holds both strategies and delegates to exactly one of them.
type Selector struct {
	demo   *Demo
	neural *Neural

	mu   sync.RWMutex
	mode Mode
}

// NewSelector creates a selector starting in demo mode.
func NewSelector(demo *Demo, neural *Neural) *Selector {
	return &Selector{demo: demo, neural: neural, mode: ModeDemo}
}

// Mode returns the active mode.
func (s *Selector) Mode() Mode {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.mode
}

// SetMode switches the active strategy.
func (s *Selector) SetMode(mode Mode) error {
	if _, err := ParseMode(string(mode)); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mode = mode
	return nil
}

// Active returns the active strategy.
func (s *Selector) Active() Predictor {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.mode == ModeNeural {
		return s.neural
	}
	return s.demo
}

// Demo returns the demo strategy.
func (s *Selector) Demo() *Demo { return s.demo }

// Neural returns the neural strategy.
func (s *Selector) Neural() *Neural { return s.neural }

// Predict delegates to the active strategy.
func (s *Selector) Predict(ctx context.Context, hand *detector.Hand) (*Prediction, error) {
	return s.Active().Predict(ctx, hand)
}

// IsReady delegates to the active strategy.
func (s *Selector) IsReady() bool {
	return s.Active().IsReady()
}

// Interval returns the active strategy's preferred cadence.
func (s *Selector) Interval() time.Duration {
	if p, ok := s.Active().(Paced); ok {
		return p.Interval()
	}
	return DefaultInterval
}
