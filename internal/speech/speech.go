// Package speech announces accepted signs aloud.
package speech

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
)

// ErrUnknownVoice is returned when selecting a voice the engine does not offer.
var ErrUnknownVoice = errors.New("unknown voice")

// Voice is one synthesis voice.
type Voice struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Language string `json:"language"`
	Default  bool   `json:"default"`
}

// Engine synthesizes text into WAV audio.
type Engine interface {
	Voices(ctx context.Context) ([]Voice, error)
	Synthesize(ctx context.Context, text, voice string) ([]byte, error)
}

// Player plays WAV audio until finished or ctx is cancelled.
type Player interface {
	Play(ctx context.Context, wav []byte) error
}

// Announcer speaks text with a selectable voice and a mute switch.
// A new utterance cancels the one in progress.
type Announcer struct {
	engine Engine
	player Player

	mu       sync.Mutex
	muted    bool
	voices   []Voice
	voice    string
	cancel   context.CancelFunc
	speaking bool
	wg       sync.WaitGroup
}

// NewAnnouncer creates an announcer and loads the engine's voices. The
// preferred voice is selected when available, otherwise the engine default,
// otherwise the first voice.
func NewAnnouncer(ctx context.Context, engine Engine, player Player, preferred string) *Announcer {
	a := &Announcer{engine: engine, player: player}

	voices, err := engine.Voices(ctx)
	if err != nil {
		slog.Warn("Speech voices unavailable", "error", err)
	}
	a.voices = voices
	a.voice = defaultVoice(voices, preferred)
	return a
}

func defaultVoice(voices []Voice, preferred string) string {
	if len(voices) == 0 {
		return preferred
	}
	for _, v := range voices {
		if preferred != "" && v.ID == preferred {
			return v.ID
		}
	}
	for _, v := range voices {
		if v.Default {
			return v.ID
		}
	}
	return voices[0].ID
}

// Speak announces text. It is a no-op when muted or text is empty.
func (a *Announcer) Speak(text string) {
	if text == "" {
		return
	}

	a.mu.Lock()
	if a.muted {
		a.mu.Unlock()
		return
	}
	if a.cancel != nil {
		a.cancel()
	}
	ctx, cancel := context.WithCancel(context.Background())
	a.cancel = cancel
	a.speaking = true
	voice := a.voice
	a.wg.Add(1)
	a.mu.Unlock()

	go func() {
		defer a.wg.Done()
		err := a.say(ctx, text, voice)

		a.mu.Lock()
		if ctx.Err() == nil {
			a.speaking = false
		}
		a.mu.Unlock()
		cancel()

		if err != nil && !errors.Is(err, context.Canceled) {
			slog.Warn("Speech failed", "text", text, "error", err)
		}
	}()
}

func (a *Announcer) say(ctx context.Context, text, voice string) error {
	audio, err := a.engine.Synthesize(ctx, text, voice)
	if err != nil {
		return fmt.Errorf("synthesize: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return a.player.Play(ctx, audio)
}

// Stop cancels the utterance in progress.
func (a *Announcer) Stop() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.stopLocked()
}

func (a *Announcer) stopLocked() {
	if a.cancel != nil {
		a.cancel()
		a.cancel = nil
	}
	a.speaking = false
}

// IsSpeaking reports whether an utterance is in progress.
func (a *Announcer) IsSpeaking() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.speaking
}

// SetMuted sets the mute state. Muting stops the current utterance.
func (a *Announcer) SetMuted(muted bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.muted = muted
	if muted {
		a.stopLocked()
	}
}

// ToggleMute flips the mute state and returns the new value.
func (a *Announcer) ToggleMute() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.muted = !a.muted
	if a.muted {
		a.stopLocked()
	}
	return a.muted
}

// IsMuted reports the mute state.
func (a *Announcer) IsMuted() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.muted
}

// Voices returns the available voices.
func (a *Announcer) Voices() []Voice {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]Voice, len(a.voices))
	copy(out, a.voices)
	return out
}

// Voice returns the selected voice ID.
func (a *Announcer) Voice() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.voice
}

// SetVoice selects a voice by ID.
func (a *Announcer) SetVoice(id string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	for _, v := range a.voices {
		if v.ID == id {
			a.voice = id
			return nil
		}
	}
	return fmt.Errorf("%w: %s", ErrUnknownVoice, id)
}

// Close stops speech and waits for playback goroutines to exit.
func (a *Announcer) Close() error {
	a.Stop()
	a.wg.Wait()
	return nil
}
