// Package scheduler samples detected hands at a fixed cadence and forwards
// accepted predictions downstream.
package scheduler

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ayusman/signspeak/internal/detector"
	"github.com/ayusman/signspeak/internal/predictor"
)

// DefaultMinConfidence is the threshold below which predictions are dropped.
const DefaultMinConfidence = 0.5

// State is the scheduler state.
type State int

const (
	// Idle means no camera stream is active.
	Idle State = iota
	// Armed means the stream is active but no hand is visible.
	Armed
	// Sampling means at least one hand is visible and predictions are requested.
	Sampling
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Armed:
		return "armed"
	case Sampling:
		return "sampling"
	default:
		return "unknown"
	}
}

// Sink receives accepted predictions in acceptance order.
type Sink func(predictor.Prediction)

// Config configures a Scheduler.
type Config struct {
	Predictor     predictor.Predictor
	MinConfidence float64
	// Interval overrides the predictor's preferred cadence when non-zero.
	Interval time.Duration
}

// Scheduler drives the Idle, Armed and Sampling states and requests one
// prediction per interval while Sampling. At most one prediction is in
// flight; ticks that arrive during inference are skipped.
type Scheduler struct {
	predictor predictor.Predictor
	minConf   float64
	interval  time.Duration

	mu         sync.Mutex
	state      State
	streaming  bool
	hand       *detector.Hand
	current    *predictor.Prediction
	generation uint64
	sinks      []Sink
	listeners  []func(State)

	inFlight atomic.Bool
	wake     chan struct{}
}

// New creates a scheduler in the Idle state.
func New(config Config) *Scheduler {
	minConf := config.MinConfidence
	if minConf <= 0 {
		minConf = DefaultMinConfidence
	}
	return &Scheduler{
		predictor: config.Predictor,
		minConf:   minConf,
		interval:  config.Interval,
		wake:      make(chan struct{}, 1),
	}
}

// OnPrediction registers a sink for accepted predictions.
func (s *Scheduler) OnPrediction(sink Sink) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sinks = append(s.sinks, sink)
}

// OnStateChange registers a listener called after each state transition.
func (s *Scheduler) OnStateChange(fn func(State)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, fn)
}

// State returns the current state.
func (s *Scheduler) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Current returns the most recent accepted prediction while Sampling, or nil.
func (s *Scheduler) Current() *predictor.Prediction {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return nil
	}
	p := *s.current
	return &p
}

// MinConfidence returns the acceptance threshold.
func (s *Scheduler) MinConfidence() float64 {
	return s.minConf
}

// Interval returns the active sampling period.
func (s *Scheduler) Interval() time.Duration {
	if s.interval > 0 {
		return s.interval
	}
	if p, ok := s.predictor.(predictor.Paced); ok {
		if d := p.Interval(); d > 0 {
			return d
		}
	}
	return predictor.DefaultInterval
}

// SetStreaming reports whether a camera stream is active.
func (s *Scheduler) SetStreaming(streaming bool) {
	s.mu.Lock()
	s.streaming = streaming
	if !streaming {
		s.hand = nil
	}
	notify := s.transitionLocked()
	s.mu.Unlock()
	notify()
}

// Observe records the hands detected in the latest frame. Only the first
// hand is kept for prediction.
func (s *Scheduler) Observe(hands []detector.Hand) {
	s.mu.Lock()
	if len(hands) > 0 && s.streaming {
		first := hands[0]
		first.Landmarks = append([]detector.Point3D(nil), hands[0].Landmarks...)
		s.hand = &first
	} else {
		s.hand = nil
	}
	notify := s.transitionLocked()
	s.mu.Unlock()
	notify()
}

// transitionLocked moves to the state implied by the stream and hand
// signals. The returned func runs listeners and must be called unlocked.
func (s *Scheduler) transitionLocked() func() {
	next := Idle
	if s.streaming {
		next = Armed
		if s.hand != nil {
			next = Sampling
		}
	}
	if next == s.state {
		return func() {}
	}

	prev := s.state
	s.state = next
	if prev == Sampling {
		s.current = nil
		s.generation++
	}
	if next == Sampling {
		s.generation++
		select {
		case s.wake <- struct{}{}:
		default:
		}
	}

	slog.Info("Scheduler state changed", "from", prev.String(), "to", next.String())

	listeners := append([]func(State){}, s.listeners...)
	return func() {
		for _, fn := range listeners {
			fn(next)
		}
	}
}

// Run samples until ctx is cancelled. A sample is requested immediately on
// entering Sampling and then once per interval.
func (s *Scheduler) Run(ctx context.Context) {
	interval := s.Interval()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.wake:
			interval = s.Interval()
			ticker.Reset(interval)
			s.sample(ctx)
		case <-ticker.C:
			if d := s.Interval(); d != interval {
				interval = d
				ticker.Reset(interval)
			}
			s.sample(ctx)
		}
	}
}

func (s *Scheduler) sample(ctx context.Context) {
	s.mu.Lock()
	if s.state != Sampling || s.hand == nil {
		s.mu.Unlock()
		return
	}
	gen := s.generation
	hand := *s.hand
	s.mu.Unlock()

	if !s.inFlight.CompareAndSwap(false, true) {
		slog.Debug("Skipping sample, inference still in flight")
		return
	}

	go func() {
		defer s.inFlight.Store(false)
		s.predict(ctx, gen, &hand)
	}()
}

func (s *Scheduler) predict(ctx context.Context, gen uint64, hand *detector.Hand) {
	p, err := s.predictor.Predict(ctx, hand)
	if err != nil {
		slog.Debug("No prediction", "error", err)
		return
	}
	if p == nil {
		return
	}
	if !(p.Confidence >= s.minConf) {
		slog.Debug("Prediction below threshold", "label", p.Label, "confidence", p.Confidence)
		return
	}

	s.mu.Lock()
	if gen != s.generation || s.state != Sampling {
		s.mu.Unlock()
		slog.Debug("Discarding stale prediction", "label", p.Label)
		return
	}
	accepted := *p
	s.current = &accepted
	sinks := append([]Sink(nil), s.sinks...)
	s.mu.Unlock()

	slog.Debug("Prediction accepted", "label", accepted.Label, "confidence", accepted.Confidence)
	for _, sink := range sinks {
		sink(accepted)
	}
}
