package responder

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/foxseedlab/touron/internal/responder"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const geminiAPIBaseURL = "https://generativelanguage.googleapis.com/v1beta"

const (
	utteranceTemperature = 0.8
	feedbackTemperature  = 0.3
	maxOutputTokens      = 2048
)

// GeminiClient talks to the Generative Language API over REST. One client
// serves both persona utterances and end-of-discussion feedback.
type GeminiClient struct {
	apiKey  string
	model   string
	baseURL string
	client  *http.Client
}

func NewGeminiClient(apiKey, model string) *GeminiClient {
	return &GeminiClient{
		apiKey:  apiKey,
		model:   model,
		baseURL: geminiAPIBaseURL,
		client:  &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)},
	}
}

func (c *GeminiClient) GenerateUtterance(ctx context.Context, req responder.UtteranceRequest) (string, error) {
	system, user := buildUtterancePrompts(req)
	return c.generateContent(ctx, "generate persona utterance", system, user, generationConfig{
		Temperature:     utteranceTemperature,
		MaxOutputTokens: maxOutputTokens,
	})
}

func (c *GeminiClient) GenerateFeedback(ctx context.Context, req responder.FeedbackRequest) (responder.Report, error) {
	system, user := buildFeedbackPrompts(req)
	raw, err := c.generateContent(ctx, "generate discussion feedback", system, user, generationConfig{
		Temperature:      feedbackTemperature,
		MaxOutputTokens:  maxOutputTokens,
		ResponseMIMEType: "application/json",
	})
	if err != nil {
		return responder.Report{}, err
	}
	var report responder.Report
	if err := json.Unmarshal([]byte(stripJSONFences(raw)), &report); err != nil {
		return responder.Report{}, fmt.Errorf("parse feedback: %w", err)
	}
	clampReportScores(&report)
	return report, nil
}

type generateRequest struct {
	SystemInstruction *content         `json:"systemInstruction,omitempty"`
	Contents          []content        `json:"contents"`
	GenerationConfig  generationConfig `json:"generationConfig"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

type generationConfig struct {
	Temperature      float64 `json:"temperature"`
	MaxOutputTokens  int     `json:"maxOutputTokens"`
	ResponseMIMEType string  `json:"responseMimeType,omitempty"`
}

type generateResponse struct {
	Candidates []struct {
		Content      content `json:"content"`
		FinishReason string  `json:"finishReason"`
	} `json:"candidates"`
}

func (c *GeminiClient) generateContent(ctx context.Context, spanName, systemPrompt, userPrompt string, cfg generationConfig) (string, error) {
	ctx, span := tracer.Start(ctx, spanName, trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()
	span.SetAttributes(attribute.String("request.model", c.model))

	payload, err := json.Marshal(generateRequest{
		SystemInstruction: &content{Parts: []part{{Text: systemPrompt}}},
		Contents:          []content{{Role: "user", Parts: []part{{Text: userPrompt}}}},
		GenerationConfig:  cfg,
	})
	if err != nil {
		span.RecordError(err)
		return "", fmt.Errorf("marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/models/%s:generateContent", c.baseURL, c.model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		span.RecordError(err)
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "request failed")
		return "", fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	span.SetAttributes(attribute.Int("response.status_code", resp.StatusCode))
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		err := fmt.Errorf("gemini returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
		span.RecordError(err)
		span.SetStatus(codes.Error, "non-OK status")
		return "", err
	}

	var parsed generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		span.RecordError(err)
		return "", fmt.Errorf("decode response: %w", err)
	}
	if len(parsed.Candidates) == 0 {
		return "", fmt.Errorf("no candidates in response")
	}

	var sb strings.Builder
	for _, p := range parsed.Candidates[0].Content.Parts {
		sb.WriteString(p.Text)
	}
	text := strings.TrimSpace(sb.String())
	if text == "" {
		return "", fmt.Errorf("candidate finished with reason %q and no text", parsed.Candidates[0].FinishReason)
	}
	span.SetAttributes(attribute.Int("response.text_chars", len(text)))
	return text, nil
}

// Models occasionally wrap JSON output in markdown fences despite the response
// MIME type, so strip them before parsing.
func stripJSONFences(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

func clampReportScores(r *responder.Report) {
	for _, score := range []*int{
		&r.ParticipationScore,
		&r.InitiativeScore,
		&r.ClarityScore,
		&r.CollaborationScore,
		&r.TopicUnderstanding,
	} {
		if *score < 0 {
			*score = 0
		}
		if *score > 100 {
			*score = 100
		}
	}
}
