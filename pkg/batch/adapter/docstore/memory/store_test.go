package memory_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tigerroll/moray/pkg/batch/adapter/docstore"
	"github.com/tigerroll/moray/pkg/batch/adapter/docstore/memory"
)

func collectDocs(t *testing.T, ctx context.Context, cur docstore.Cursor) []docstore.Document {
	t.Helper()
	var docs []docstore.Document
	for cur.Next(ctx) {
		doc, err := cur.Decode()
		require.NoError(t, err)
		docs = append(docs, doc)
	}
	require.NoError(t, cur.Err())
	require.NoError(t, cur.Close(ctx))
	return docs
}

func TestCollection_InsertAndFindOne(t *testing.T) {
	ctx := context.Background()
	coll := memory.NewStore().Collection("things")

	require.NoError(t, coll.InsertOne(ctx, docstore.Document{"id": int64(1), "color": "blue"}))
	require.NoError(t, coll.InsertOne(ctx, docstore.Document{"id": int64(2), "color": "red"}))

	doc, err := coll.FindOne(ctx, docstore.Filter{"color": "red"})
	require.NoError(t, err)
	require.NotNil(t, doc)
	assert.Equal(t, int64(2), doc["id"])

	doc, err = coll.FindOne(ctx, docstore.Filter{"color": "green"})
	require.NoError(t, err)
	assert.Nil(t, doc)
}

func TestCollection_NilFilterValueMatchesMissingAndNull(t *testing.T) {
	ctx := context.Background()
	coll := memory.NewStore().Collection("things")

	require.NoError(t, coll.InsertOne(ctx, docstore.Document{"id": int64(1), "endTime": nil}))
	require.NoError(t, coll.InsertOne(ctx, docstore.Document{"id": int64(2)}))
	require.NoError(t, coll.InsertOne(ctx, docstore.Document{"id": int64(3), "endTime": time.Now()}))

	cur, err := coll.Find(ctx, docstore.Filter{"endTime": nil}, nil)
	require.NoError(t, err)
	docs := collectDocs(t, ctx, cur)
	assert.Len(t, docs, 2)
}

func TestCollection_FindSortSkipLimit(t *testing.T) {
	ctx := context.Background()
	coll := memory.NewStore().Collection("things")
	for i := int64(1); i <= 5; i++ {
		require.NoError(t, coll.InsertOne(ctx, docstore.Document{"id": i}))
	}

	cur, err := coll.Find(ctx, docstore.Filter{}, &docstore.FindOptions{
		Sort:  []docstore.Sort{{Field: "id", Descending: true}},
		Skip:  1,
		Limit: 2,
	})
	require.NoError(t, err)
	docs := collectDocs(t, ctx, cur)
	require.Len(t, docs, 2)
	assert.Equal(t, int64(4), docs[0]["id"])
	assert.Equal(t, int64(3), docs[1]["id"])
}

func TestCollection_InClause(t *testing.T) {
	ctx := context.Background()
	coll := memory.NewStore().Collection("things")
	for i := int64(1); i <= 4; i++ {
		require.NoError(t, coll.InsertOne(ctx, docstore.Document{"id": i}))
	}

	cur, err := coll.Find(ctx, docstore.Filter{"id": docstore.In(int64(2), int64(4))}, nil)
	require.NoError(t, err)
	docs := collectDocs(t, ctx, cur)
	assert.Len(t, docs, 2)
}

func TestCollection_ReplaceOneCounts(t *testing.T) {
	ctx := context.Background()
	coll := memory.NewStore().Collection("things")
	require.NoError(t, coll.InsertOne(ctx, docstore.Document{"id": int64(1), "version": int64(0)}))

	// Matching filter replaces the document.
	result, err := coll.ReplaceOne(ctx,
		docstore.Filter{"id": int64(1), "version": int64(0)},
		docstore.Document{"id": int64(1), "version": int64(1)}, false)
	require.NoError(t, err)
	assert.Equal(t, int64(1), result.MatchedCount)
	assert.Equal(t, int64(1), result.ModifiedCount)

	// Stale version no longer matches.
	result, err = coll.ReplaceOne(ctx,
		docstore.Filter{"id": int64(1), "version": int64(0)},
		docstore.Document{"id": int64(1), "version": int64(2)}, false)
	require.NoError(t, err)
	assert.Equal(t, int64(0), result.MatchedCount)
	assert.Equal(t, int64(0), result.ModifiedCount)

	doc, err := coll.FindOne(ctx, docstore.Filter{"id": int64(1)})
	require.NoError(t, err)
	assert.Equal(t, int64(1), doc["version"])
}

func TestCollection_ReplaceOneUpsert(t *testing.T) {
	ctx := context.Background()
	coll := memory.NewStore().Collection("things")

	result, err := coll.ReplaceOne(ctx,
		docstore.Filter{"id": int64(9)},
		docstore.Document{"id": int64(9), "color": "green"}, true)
	require.NoError(t, err)
	assert.Equal(t, int64(0), result.MatchedCount)

	doc, err := coll.FindOne(ctx, docstore.Filter{"id": int64(9)})
	require.NoError(t, err)
	require.NotNil(t, doc)
	assert.Equal(t, "green", doc["color"])
}

func TestCollection_Distinct(t *testing.T) {
	ctx := context.Background()
	coll := memory.NewStore().Collection("things")
	for _, color := range []string{"blue", "red", "blue", "red", "green"} {
		require.NoError(t, coll.InsertOne(ctx, docstore.Document{"color": color}))
	}

	values, err := coll.Distinct(ctx, "color", docstore.Filter{})
	require.NoError(t, err)
	assert.Len(t, values, 3)
}

func TestCollection_FindOneAndIncrement(t *testing.T) {
	ctx := context.Background()
	coll := memory.NewStore().Collection("Sequences")

	// Missing counter starts at the delta.
	value, err := coll.FindOneAndIncrement(ctx, docstore.Filter{"name": "ids"}, "value", 1)
	require.NoError(t, err)
	assert.Equal(t, int64(1), value)

	for want := int64(2); want <= 10; want++ {
		value, err = coll.FindOneAndIncrement(ctx, docstore.Filter{"name": "ids"}, "value", 1)
		require.NoError(t, err)
		assert.Equal(t, want, value)
	}

	// An independent counter is unaffected.
	value, err = coll.FindOneAndIncrement(ctx, docstore.Filter{"name": "other"}, "value", 1)
	require.NoError(t, err)
	assert.Equal(t, int64(1), value)
}

func TestCollection_UniqueIndexRejectsDuplicates(t *testing.T) {
	ctx := context.Background()
	coll := memory.NewStore().Collection("things")
	require.NoError(t, coll.EnsureIndex(ctx, []string{"jobName", "jobKey"}, true))

	require.NoError(t, coll.InsertOne(ctx, docstore.Document{"jobName": "a", "jobKey": "k1"}))
	require.NoError(t, coll.InsertOne(ctx, docstore.Document{"jobName": "a", "jobKey": "k2"}))

	err := coll.InsertOne(ctx, docstore.Document{"jobName": "a", "jobKey": "k1"})
	assert.ErrorIs(t, err, docstore.ErrDuplicateKey)
}

func TestCollection_DocumentsAreCopiedOnWriteAndRead(t *testing.T) {
	ctx := context.Background()
	coll := memory.NewStore().Collection("things")

	original := docstore.Document{"id": int64(1), "color": "blue"}
	require.NoError(t, coll.InsertOne(ctx, original))
	original["color"] = "mutated"

	doc, err := coll.FindOne(ctx, docstore.Filter{"id": int64(1)})
	require.NoError(t, err)
	assert.Equal(t, "blue", doc["color"])

	doc["color"] = "mutated again"
	doc2, err := coll.FindOne(ctx, docstore.Filter{"id": int64(1)})
	require.NoError(t, err)
	assert.Equal(t, "blue", doc2["color"])
}
