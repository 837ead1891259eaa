package mongo

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/tigerroll/moray/pkg/batch/core/config"
	"github.com/tigerroll/moray/pkg/batch/support/util/exception"
	"github.com/tigerroll/moray/pkg/batch/support/util/logger"
)

const moduleName = "mongo_store"

// Connect establishes a client for the configured MongoDB and verifies
// reachability with a ping before returning a Store.
func Connect(ctx context.Context, cfg *config.MongoConfig) (*Store, error) {
	connectTimeout := time.Duration(cfg.ConnectTimeoutSeconds) * time.Second
	if connectTimeout <= 0 {
		connectTimeout = 10 * time.Second
	}
	pingTimeout := time.Duration(cfg.PingTimeoutSeconds) * time.Second
	if pingTimeout <= 0 {
		pingTimeout = 5 * time.Second
	}

	clientOpts := options.Client().
		ApplyURI(cfg.URI).
		SetConnectTimeout(connectTimeout)

	connectCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()
	client, err := mongo.Connect(connectCtx, clientOpts)
	if err != nil {
		return nil, exception.NewBatchError(moduleName, "failed to connect to MongoDB", err, false, true)
	}

	pingCtx, cancelPing := context.WithTimeout(ctx, pingTimeout)
	defer cancelPing()
	if err := client.Ping(pingCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, exception.NewBatchError(moduleName, "MongoDB is not reachable", err, false, true)
	}

	logger.Infof("Connected to MongoDB database '%s'.", cfg.Database)
	return NewStore(client, cfg.Database), nil
}
