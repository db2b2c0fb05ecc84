package gateway

import (
	"github.com/foxseedlab/touron/internal/config"
	"github.com/foxseedlab/touron/internal/discussion"
	"github.com/foxseedlab/touron/internal/transcriber"
	"github.com/samber/do/v2"
)

func RegisterDI(injector do.Injector) {
	do.Provide(injector, func(i do.Injector) (*Router, error) {
		cfg := do.MustInvoke[*config.Config](i)
		registry := do.MustInvoke[*discussion.Registry](i)
		stt := do.MustInvoke[transcriber.Transcriber](i)
		return NewRouter(cfg, registry, stt), nil
	})
}
