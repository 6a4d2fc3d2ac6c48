// Package speech drives text-to-speech playback with at most one active clip.
package speech

import (
	"context"
)

// Clip is one synthesized utterance ready to play.
type Clip struct {
	ID          string
	Text        string
	Audio       []byte
	ContentType string
}

// Synthesizer turns text into encoded audio.
type Synthesizer interface {
	Synthesize(ctx context.Context, text string) ([]byte, error)
}

// Player owns the audio output. Play blocks until the clip finishes playing
// naturally (nil), fails, or ctx is canceled, in which case playback must stop
// before Play returns.
type Player interface {
	Play(ctx context.Context, clip Clip) error
}

// ClipCache stores synthesized audio keyed by a digest of the spoken text.
type ClipCache interface {
	GetClip(ctx context.Context, key string) ([]byte, bool, error)
	PutClip(ctx context.Context, key string, audio []byte) error
}
