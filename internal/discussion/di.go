package discussion

import (
	"github.com/foxseedlab/touron/internal/config"
	"github.com/foxseedlab/touron/internal/repository"
	"github.com/foxseedlab/touron/internal/responder"
	"github.com/foxseedlab/touron/internal/synthesizer"
	"github.com/foxseedlab/touron/internal/webhook"
	"github.com/samber/do/v2"
)

func RegisterDI(injector do.Injector) {
	do.Provide(injector, func(i do.Injector) (*Registry, error) {
		cfg := do.MustInvoke[*config.Config](i)
		repo := do.MustInvoke[repository.Repository](i)
		resp := do.MustInvoke[responder.Responder](i)
		grader := do.MustInvoke[responder.FeedbackGenerator](i)
		synth := do.MustInvoke[synthesizer.Synthesizer](i)
		report := do.MustInvoke[webhook.Sender](i)
		return NewRegistry(cfg, repo, resp, grader, synth, report), nil
	})
}
