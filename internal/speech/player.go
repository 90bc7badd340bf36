package speech

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/gordonklaus/portaudio"
	"github.com/youpy/go-wav"
)

const framesPerBuffer = 1024

// PortAudioPlayer plays WAV audio on the default output device.
type PortAudioPlayer struct {
	mu sync.Mutex
}

// NewPortAudioPlayer initializes PortAudio. Close must be called to release it.
func NewPortAudioPlayer() (*PortAudioPlayer, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("initialize PortAudio: %w", err)
	}
	return &PortAudioPlayer{}, nil
}

// Play blocks until the audio finishes or ctx is cancelled.
func (p *PortAudioPlayer) Play(ctx context.Context, audio []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	reader := wav.NewReader(bytes.NewReader(audio))
	format, err := reader.Format()
	if err != nil {
		return fmt.Errorf("read wav format: %w", err)
	}
	channels := int(format.NumChannels)
	if channels < 1 {
		channels = 1
	}

	done := make(chan struct{})
	var once sync.Once
	finish := func() { once.Do(func() { close(done) }) }

	stream, err := portaudio.OpenDefaultStream(
		0,
		channels,
		float64(format.SampleRate),
		framesPerBuffer,
		func(out []int16) {
			samples, err := reader.ReadSamples(uint32(len(out) / channels))
			if err != nil && err != io.EOF {
				slog.Error("Read WAV samples", "error", err)
			}
			n := 0
			for _, s := range samples {
				for c := 0; c < channels && n < len(out); c++ {
					out[n] = int16(s.Values[c%2])
					n++
				}
			}
			for i := n; i < len(out); i++ {
				out[i] = 0
			}
			if err != nil || len(samples) == 0 {
				finish()
			}
		},
	)
	if err != nil {
		return fmt.Errorf("open audio stream: %w", err)
	}
	defer stream.Close()

	if err := stream.Start(); err != nil {
		return fmt.Errorf("start audio stream: %w", err)
	}

	select {
	case <-done:
	case <-ctx.Done():
	}

	if err := stream.Stop(); err != nil {
		return fmt.Errorf("stop audio stream: %w", err)
	}
	return ctx.Err()
}

// Close releases PortAudio.
func (p *PortAudioPlayer) Close() error {
	return portaudio.Terminate()
}
