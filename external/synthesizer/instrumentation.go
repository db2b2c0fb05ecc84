package synthesizer

import "go.opentelemetry.io/otel"

const scopeName = "github.com/foxseedlab/touron/external/synthesizer"

var tracer = otel.Tracer(scopeName)
