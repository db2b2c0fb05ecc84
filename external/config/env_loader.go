package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	internalconfig "github.com/foxseedlab/touron/internal/config"
)

type envConfig struct {
	Env        string `env:"ENV" envDefault:"production"`
	ListenAddr string `env:"LISTEN_ADDR" envDefault:":8080"`

	DatabaseURL string `env:"DATABASE_URL,required"`

	GeminiAPIKey string `env:"GEMINI_API_KEY,required"`
	GeminiModel  string `env:"GEMINI_MODEL" envDefault:"gemini-2.0-flash"`

	DeepgramAPIKey string `env:"DEEPGRAM_API_KEY"`
	DeepgramVoice  string `env:"DEEPGRAM_VOICE" envDefault:"aura-asteria-en"`

	GoogleCloudProjectID       string `env:"GOOGLE_CLOUD_PROJECT_ID,required"`
	GoogleCloudCredentialsJSON string `env:"GOOGLE_CLOUD_CREDENTIALS_JSON,required"`
	GoogleCloudSpeechLocation  string `env:"GOOGLE_CLOUD_SPEECH_LOCATION" envDefault:"global"`
	GoogleCloudSpeechModel     string `env:"GOOGLE_CLOUD_SPEECH_MODEL" envDefault:"latest_long"`
	TranscribeLanguage         string `env:"TRANSCRIBE_LANGUAGE" envDefault:"en-US"`

	DefaultBotCount          int `env:"DEFAULT_BOT_COUNT" envDefault:"3"`
	MaxConcurrentSessions    int `env:"MAX_CONCURRENT_SESSIONS" envDefault:"100"`
	MaxTranscriptEntries     int `env:"MAX_TRANSCRIPT_ENTRIES" envDefault:"40"`
	MaxDiscussionDurationMin int `env:"MAX_DISCUSSION_DURATION_MIN" envDefault:"20"`

	InterruptionWindowSec int `env:"INTERRUPTION_WINDOW_SEC" envDefault:"5"`
	PlaybackGraceSec      int `env:"PLAYBACK_GRACE_SEC" envDefault:"4"`
	GenerationTimeoutSec  int `env:"GENERATION_TIMEOUT_SEC" envDefault:"30"`
	SynthesisTimeoutSec   int `env:"SYNTHESIS_TIMEOUT_SEC" envDefault:"15"`
	TranscribeTimeoutSec  int `env:"TRANSCRIBE_TIMEOUT_SEC" envDefault:"20"`
	FeedbackTimeoutSec    int `env:"FEEDBACK_TIMEOUT_SEC" envDefault:"30"`
	SessionIdleTimeoutMin int `env:"SESSION_IDLE_TIMEOUT_MIN" envDefault:"10"`
	ResumeTimeoutSec      int `env:"RESUME_TIMEOUT_SEC" envDefault:"90"`
	EndedGraceSec         int `env:"ENDED_GRACE_SEC" envDefault:"60"`

	ReportWebhookURL string `env:"REPORT_WEBHOOK_URL"`
	ReportTimezone   string `env:"REPORT_TIMEZONE" envDefault:"Asia/Tokyo"`
}

func Load() (*internalconfig.Config, error) {
	var raw envConfig
	if err := env.Parse(&raw); err != nil {
		return nil, fmt.Errorf("environment variables are invalid or missing: %w", err)
	}

	cfg := &internalconfig.Config{
		Env:                        raw.Env,
		ListenAddr:                 raw.ListenAddr,
		DatabaseURL:                raw.DatabaseURL,
		GeminiAPIKey:               raw.GeminiAPIKey,
		GeminiModel:                raw.GeminiModel,
		DeepgramAPIKey:             raw.DeepgramAPIKey,
		DeepgramVoice:              raw.DeepgramVoice,
		GoogleCloudProjectID:       raw.GoogleCloudProjectID,
		GoogleCloudCredentialsJSON: raw.GoogleCloudCredentialsJSON,
		GoogleCloudSpeechLocation:  raw.GoogleCloudSpeechLocation,
		GoogleCloudSpeechModel:     raw.GoogleCloudSpeechModel,
		TranscribeLanguage:         raw.TranscribeLanguage,
		DefaultBotCount:            raw.DefaultBotCount,
		MaxConcurrentSessions:      raw.MaxConcurrentSessions,
		MaxTranscriptEntries:       raw.MaxTranscriptEntries,
		MaxDiscussionDuration:      time.Duration(raw.MaxDiscussionDurationMin) * time.Minute,
		InterruptionWindow:         time.Duration(raw.InterruptionWindowSec) * time.Second,
		PlaybackGrace:              time.Duration(raw.PlaybackGraceSec) * time.Second,
		GenerationTimeout:          time.Duration(raw.GenerationTimeoutSec) * time.Second,
		SynthesisTimeout:           time.Duration(raw.SynthesisTimeoutSec) * time.Second,
		TranscribeTimeout:          time.Duration(raw.TranscribeTimeoutSec) * time.Second,
		FeedbackTimeout:            time.Duration(raw.FeedbackTimeoutSec) * time.Second,
		SessionIdleTimeout:         time.Duration(raw.SessionIdleTimeoutMin) * time.Minute,
		ResumeTimeout:              time.Duration(raw.ResumeTimeoutSec) * time.Second,
		EndedGracePeriod:           time.Duration(raw.EndedGraceSec) * time.Second,
		ReportWebhookURL:           raw.ReportWebhookURL,
		ReportTimezone:             raw.ReportTimezone,
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
