package agent

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const instrumentationName = "github.com/RedUtils/botcore/internal/agent"

func meter() metric.Meter {
	return otel.Meter(instrumentationName)
}
