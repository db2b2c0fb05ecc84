package responder

import "go.opentelemetry.io/otel"

const scopeName = "github.com/foxseedlab/touron/external/responder"

var tracer = otel.Tracer(scopeName)
