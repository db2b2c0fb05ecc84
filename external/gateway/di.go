package gateway

import (
	"github.com/foxseedlab/touron/internal/gateway"
	"github.com/samber/do/v2"
)

func RegisterDI(injector do.Injector) {
	do.Provide(injector, func(i do.Injector) (*Server, error) {
		router := do.MustInvoke[*gateway.Router](i)
		return NewServer(router), nil
	})
}
