package synthesizer

import (
	"log/slog"

	"github.com/foxseedlab/touron/internal/config"
	"github.com/foxseedlab/touron/internal/synthesizer"
	"github.com/samber/do/v2"
)

func RegisterDI(injector do.Injector) {
	do.Provide(injector, func(i do.Injector) (synthesizer.Synthesizer, error) {
		c := do.MustInvoke[*config.Config](i)
		if !c.SynthesisEnabled() {
			slog.Info("speech synthesis disabled, discussions run text-only")
			return nil, nil
		}
		return NewDeepgramSynthesizer(c.DeepgramAPIKey, c.DeepgramVoice), nil
	})
}
