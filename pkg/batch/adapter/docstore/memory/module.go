package memory

import (
	"go.uber.org/fx"

	"github.com/tigerroll/moray/pkg/batch/adapter/docstore"
)

// Module provides the in-memory store as the docstore.Store implementation.
var Module = fx.Options(
	fx.Provide(func() docstore.Store { return NewStore() }),
)
