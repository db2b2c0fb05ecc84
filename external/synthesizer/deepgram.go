package synthesizer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/foxseedlab/touron/internal/synthesizer"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const deepgramSpeakURL = "https://api.deepgram.com/v1/speak"

const audioEncoding = "mp3"

type DeepgramSynthesizer struct {
	apiKey   string
	voice    string
	speakURL string
	client   *http.Client
}

func NewDeepgramSynthesizer(apiKey, voice string) synthesizer.Synthesizer {
	return &DeepgramSynthesizer{
		apiKey:   apiKey,
		voice:    voice,
		speakURL: deepgramSpeakURL,
		client:   &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)},
	}
}

func (s *DeepgramSynthesizer) Synthesize(ctx context.Context, text string) ([]byte, error) {
	ctx, span := tracer.Start(ctx, "synthesize speech", trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()
	span.SetAttributes(
		attribute.String("request.voice", s.voice),
		attribute.Int("request.text_chars", len(text)),
	)

	payload, err := json.Marshal(map[string]string{"text": text})
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	query := url.Values{}
	query.Set("model", s.voice)
	query.Set("encoding", audioEncoding)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.speakURL+"?"+query.Encode(), bytes.NewReader(payload))
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Token "+s.apiKey)

	resp, err := s.client.Do(req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "request failed")
		return nil, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	span.SetAttributes(attribute.Int("response.status_code", resp.StatusCode))
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		err := fmt.Errorf("deepgram returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
		span.RecordError(err)
		span.SetStatus(codes.Error, "non-OK status")
		return nil, err
	}

	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("read audio: %w", err)
	}
	if len(audio) == 0 {
		return nil, fmt.Errorf("deepgram returned no audio")
	}
	span.SetAttributes(attribute.Int("response.audio_bytes", len(audio)))
	return audio, nil
}
