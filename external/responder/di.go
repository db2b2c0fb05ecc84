package responder

import (
	"github.com/foxseedlab/touron/internal/config"
	"github.com/foxseedlab/touron/internal/responder"
	"github.com/samber/do/v2"
)

func RegisterDI(injector do.Injector) {
	do.Provide(injector, func(i do.Injector) (*GeminiClient, error) {
		cfg := do.MustInvoke[*config.Config](i)
		return NewGeminiClient(cfg.GeminiAPIKey, cfg.GeminiModel), nil
	})
	do.Provide(injector, func(i do.Injector) (responder.Responder, error) {
		return do.MustInvoke[*GeminiClient](i), nil
	})
	do.Provide(injector, func(i do.Injector) (responder.FeedbackGenerator, error) {
		return do.MustInvoke[*GeminiClient](i), nil
	})
}
