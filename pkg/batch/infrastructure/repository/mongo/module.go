package mongo

import (
	"context"

	"go.uber.org/fx"

	repository "github.com/tigerroll/moray/pkg/batch/core/domain/repository"
)

// Module provides the MongoDB-backed JobRepository and creates its indexes on
// startup. It expects a docstore.Store and a metrics.MetricRecorder in the
// dependency graph.
var Module = fx.Options(
	fx.Provide(NewMongoJobRepository),
	fx.Invoke(func(lc fx.Lifecycle, repo repository.JobRepository) {
		lc.Append(fx.Hook{
			OnStart: func(ctx context.Context) error {
				return repo.EnsureIndexes(ctx)
			},
			OnStop: func(ctx context.Context) error {
				return repo.Close()
			},
		})
	}),
)
