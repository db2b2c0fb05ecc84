package transcriber

import "context"

// Transcriber turns a recorded audio blob into text. An empty transcript with a
// nil error means the service recognized nothing usable; callers treat both the
// same way (the utterance is dropped and the speaker may retry).
type Transcriber interface {
	Transcribe(ctx context.Context, audio []byte) (string, error)
}
