package transcriber

import "go.opentelemetry.io/otel"

const scopeName = "github.com/foxseedlab/touron/external/transcriber"

var tracer = otel.Tracer(scopeName)
