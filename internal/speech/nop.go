package speech

import "context"

// NopEngine is an Engine with no voices that synthesizes nothing. It is used
// when speech output is disabled.
type NopEngine struct{}

func (NopEngine) Voices(context.Context) ([]Voice, error) { return nil, nil }

func (NopEngine) Synthesize(context.Context, string, string) ([]byte, error) { return nil, nil }

// NopPlayer discards audio.
type NopPlayer struct{}

func (NopPlayer) Play(context.Context, []byte) error { return nil }
