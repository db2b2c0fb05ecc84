package config

import (
	"fmt"
	"time"
)

type Config struct {
	Env        string
	ListenAddr string

	DatabaseURL string

	GeminiAPIKey string
	GeminiModel  string

	DeepgramAPIKey string
	DeepgramVoice  string

	GoogleCloudProjectID       string
	GoogleCloudCredentialsJSON string
	GoogleCloudSpeechLocation  string
	GoogleCloudSpeechModel     string
	TranscribeLanguage         string

	DefaultBotCount       int
	MaxConcurrentSessions int
	MaxTranscriptEntries  int
	MaxDiscussionDuration time.Duration

	InterruptionWindow time.Duration
	PlaybackGrace      time.Duration
	GenerationTimeout  time.Duration
	SynthesisTimeout   time.Duration
	TranscribeTimeout  time.Duration
	FeedbackTimeout    time.Duration
	SessionIdleTimeout time.Duration
	ResumeTimeout      time.Duration
	EndedGracePeriod   time.Duration

	ReportWebhookURL string
	ReportTimezone   string
}

func (c *Config) Validate() error {
	for _, req := range c.requiredFieldChecks() {
		if req.value == "" {
			return fmt.Errorf("%s is required", req.name)
		}
	}
	if c.DefaultBotCount <= 0 {
		return fmt.Errorf("DEFAULT_BOT_COUNT must be positive, got %d", c.DefaultBotCount)
	}
	if c.MaxConcurrentSessions <= 0 {
		return fmt.Errorf("MAX_CONCURRENT_SESSIONS must be positive, got %d", c.MaxConcurrentSessions)
	}
	if c.MaxTranscriptEntries <= 0 {
		return fmt.Errorf("MAX_TRANSCRIPT_ENTRIES must be positive, got %d", c.MaxTranscriptEntries)
	}
	for _, d := range c.requiredDurationChecks() {
		if d.value <= 0 {
			return fmt.Errorf("%s must be positive, got %s", d.name, d.value)
		}
	}
	if c.ReportTimezone == "" {
		return fmt.Errorf("REPORT_TIMEZONE is required")
	}
	if _, err := time.LoadLocation(c.ReportTimezone); err != nil {
		return fmt.Errorf("REPORT_TIMEZONE is invalid: %w", err)
	}
	return nil
}

type requiredEnvField struct {
	name  string
	value string
}

func (c *Config) requiredFieldChecks() []requiredEnvField {
	return []requiredEnvField{
		{name: "LISTEN_ADDR", value: c.ListenAddr},
		{name: "DATABASE_URL", value: c.DatabaseURL},
		{name: "GEMINI_API_KEY", value: c.GeminiAPIKey},
		{name: "GEMINI_MODEL", value: c.GeminiModel},
		{name: "GOOGLE_CLOUD_PROJECT_ID", value: c.GoogleCloudProjectID},
		{name: "GOOGLE_CLOUD_CREDENTIALS_JSON", value: c.GoogleCloudCredentialsJSON},
		{name: "TRANSCRIBE_LANGUAGE", value: c.TranscribeLanguage},
	}
}

type requiredDurationField struct {
	name  string
	value time.Duration
}

func (c *Config) requiredDurationChecks() []requiredDurationField {
	return []requiredDurationField{
		{name: "MAX_DISCUSSION_DURATION_MIN", value: c.MaxDiscussionDuration},
		{name: "INTERRUPTION_WINDOW_SEC", value: c.InterruptionWindow},
		{name: "PLAYBACK_GRACE_SEC", value: c.PlaybackGrace},
		{name: "GENERATION_TIMEOUT_SEC", value: c.GenerationTimeout},
		{name: "SYNTHESIS_TIMEOUT_SEC", value: c.SynthesisTimeout},
		{name: "TRANSCRIBE_TIMEOUT_SEC", value: c.TranscribeTimeout},
		{name: "FEEDBACK_TIMEOUT_SEC", value: c.FeedbackTimeout},
		{name: "SESSION_IDLE_TIMEOUT_MIN", value: c.SessionIdleTimeout},
		{name: "RESUME_TIMEOUT_SEC", value: c.ResumeTimeout},
		{name: "ENDED_GRACE_SEC", value: c.EndedGracePeriod},
	}
}

// SynthesisEnabled reports whether bot speech audio is generated at all.
// Without a Deepgram key the discussion runs text-only.
func (c *Config) SynthesisEnabled() bool {
	return c.DeepgramAPIKey != ""
}

func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}
