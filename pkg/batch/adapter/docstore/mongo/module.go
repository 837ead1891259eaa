package mongo

import (
	"context"

	"go.uber.org/fx"

	"github.com/tigerroll/moray/pkg/batch/adapter/docstore"
	"github.com/tigerroll/moray/pkg/batch/core/config"
	"github.com/tigerroll/moray/pkg/batch/support/util/logger"
)

// Module provides the MongoDB-backed store as the docstore.Store
// implementation and ties its lifetime to the Fx lifecycle.
var Module = fx.Options(
	fx.Provide(func(lc fx.Lifecycle, cfg *config.MongoConfig) (docstore.Store, error) {
		store, err := Connect(context.Background(), cfg)
		if err != nil {
			return nil, err
		}
		lc.Append(fx.Hook{
			OnStop: func(ctx context.Context) error {
				logger.Debugf("Disconnecting from MongoDB.")
				return store.Close(ctx)
			},
		})
		return store, nil
	}),
)
