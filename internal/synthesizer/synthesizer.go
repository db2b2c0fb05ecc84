package synthesizer

import "context"

// Synthesizer renders an utterance as playable audio. Synthesis is best-effort:
// on failure the discussion degrades to text-only for that turn.
type Synthesizer interface {
	Synthesize(ctx context.Context, text string) ([]byte, error)
}
