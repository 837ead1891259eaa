package mongo_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tigerroll/moray/pkg/batch/adapter/docstore/memory"
	mongorepo "github.com/tigerroll/moray/pkg/batch/infrastructure/repository/mongo"
)

func TestSequenceGenerator_NextIDIsDense(t *testing.T) {
	ctx := context.Background()
	gen := mongorepo.NewSequenceGenerator(memory.NewStore(), nil)

	for want := int64(1); want <= 100; want++ {
		id, err := gen.NextID(ctx, "JobInstance")
		require.NoError(t, err)
		assert.Equal(t, want, id)
	}
}

func TestSequenceGenerator_NamesAreIndependent(t *testing.T) {
	ctx := context.Background()
	gen := mongorepo.NewSequenceGenerator(memory.NewStore(), nil)

	for i := 0; i < 5; i++ {
		_, err := gen.NextID(ctx, "JobExecution")
		require.NoError(t, err)
	}
	id, err := gen.NextID(ctx, "StepExecution")
	require.NoError(t, err)
	assert.Equal(t, int64(1), id)

	id, err = gen.NextID(ctx, "JobExecution")
	require.NoError(t, err)
	assert.Equal(t, int64(6), id)
}
