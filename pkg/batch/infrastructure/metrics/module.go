package metrics

import (
	"go.uber.org/fx"

	metrics "github.com/tigerroll/moray/pkg/batch/core/metrics"
)

// Module provides the Prometheus recorder as the MetricRecorder implementation.
// Applications that do not want Prometheus can rely on the core metrics module's
// NoOp fallback instead of including this module.
var Module = fx.Options(
	fx.Provide(fx.Annotate(
		NewPrometheusRecorder,
		fx.As(new(metrics.MetricRecorder)),
	)),
)
