// Package mongo adapts the official MongoDB driver to the docstore port.
// Driver-specific value types (primitive.DateTime, primitive.A, bson.M,
// int32) are normalized to the canonical docstore types on read so that the
// repository layer never sees BSON wrapper types.
package mongo

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/tigerroll/moray/pkg/batch/adapter/docstore"
)

// Store is a docstore.Store backed by a single MongoDB database.
type Store struct {
	client *mongo.Client
	db     *mongo.Database
}

// NewStore wraps an already connected client and database name.
func NewStore(client *mongo.Client, database string) *Store {
	return &Store{client: client, db: client.Database(database)}
}

// Collection returns a handle for the named collection.
func (s *Store) Collection(name string) docstore.Collection {
	return &collection{coll: s.db.Collection(name)}
}

// Close disconnects the underlying client.
func (s *Store) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

type collection struct {
	coll *mongo.Collection
}

func (c *collection) Name() string { return c.coll.Name() }

func (c *collection) InsertOne(ctx context.Context, doc docstore.Document) error {
	_, err := c.coll.InsertOne(ctx, bson.M(doc))
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("collection %s: %w", c.coll.Name(), docstore.ErrDuplicateKey)
		}
		return fmt.Errorf("collection %s: insert failed: %w", c.coll.Name(), err)
	}
	return nil
}

func (c *collection) FindOne(ctx context.Context, filter docstore.Filter) (docstore.Document, error) {
	var raw bson.M
	err := c.coll.FindOne(ctx, toBSONFilter(filter)).Decode(&raw)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, fmt.Errorf("collection %s: find one failed: %w", c.coll.Name(), err)
	}
	return normalizeDocument(raw), nil
}

func (c *collection) Find(ctx context.Context, filter docstore.Filter, opts *docstore.FindOptions) (docstore.Cursor, error) {
	findOpts := options.Find()
	if opts != nil {
		if len(opts.Sort) > 0 {
			sortDoc := bson.D{}
			for _, s := range opts.Sort {
				order := 1
				if s.Descending {
					order = -1
				}
				sortDoc = append(sortDoc, bson.E{Key: s.Field, Value: order})
			}
			findOpts.SetSort(sortDoc)
		}
		if opts.Skip > 0 {
			findOpts.SetSkip(opts.Skip)
		}
		if opts.Limit > 0 {
			findOpts.SetLimit(opts.Limit)
		}
		if len(opts.Projection) > 0 {
			projection := bson.M{}
			for _, f := range opts.Projection {
				projection[f] = 1
			}
			findOpts.SetProjection(projection)
		}
	}
	cur, err := c.coll.Find(ctx, toBSONFilter(filter), findOpts)
	if err != nil {
		return nil, fmt.Errorf("collection %s: find failed: %w", c.coll.Name(), err)
	}
	return &cursor{cur: cur}, nil
}

func (c *collection) ReplaceOne(ctx context.Context, filter docstore.Filter, doc docstore.Document, upsert bool) (docstore.ReplaceResult, error) {
	res, err := c.coll.ReplaceOne(ctx, toBSONFilter(filter), bson.M(doc), options.Replace().SetUpsert(upsert))
	if err != nil {
		return docstore.ReplaceResult{}, fmt.Errorf("collection %s: replace failed: %w", c.coll.Name(), err)
	}
	return docstore.ReplaceResult{
		MatchedCount:  res.MatchedCount,
		ModifiedCount: res.ModifiedCount,
	}, nil
}

func (c *collection) Distinct(ctx context.Context, field string, filter docstore.Filter) ([]interface{}, error) {
	values, err := c.coll.Distinct(ctx, field, toBSONFilter(filter))
	if err != nil {
		return nil, fmt.Errorf("collection %s: distinct on %s failed: %w", c.coll.Name(), field, err)
	}
	out := make([]interface{}, len(values))
	for i, v := range values {
		out[i] = normalizeValue(v)
	}
	return out, nil
}

func (c *collection) FindOneAndIncrement(ctx context.Context, filter docstore.Filter, field string, delta int64) (int64, error) {
	update := bson.M{"$inc": bson.M{field: delta}}
	opts := options.FindOneAndUpdate().
		SetUpsert(true).
		SetReturnDocument(options.After)
	var raw bson.M
	if err := c.coll.FindOneAndUpdate(ctx, toBSONFilter(filter), update, opts).Decode(&raw); err != nil {
		return 0, fmt.Errorf("collection %s: increment of %s failed: %w", c.coll.Name(), field, err)
	}
	value, ok := normalizeValue(raw[field]).(int64)
	if !ok {
		return 0, fmt.Errorf("collection %s: field %s holds a non-integer value %v", c.coll.Name(), field, raw[field])
	}
	return value, nil
}

func (c *collection) EnsureIndex(ctx context.Context, fields []string, unique bool) error {
	keys := bson.D{}
	for _, f := range fields {
		keys = append(keys, bson.E{Key: f, Value: 1})
	}
	model := mongo.IndexModel{
		Keys:    keys,
		Options: options.Index().SetUnique(unique),
	}
	if _, err := c.coll.Indexes().CreateOne(ctx, model); err != nil {
		return fmt.Errorf("collection %s: index creation failed: %w", c.coll.Name(), err)
	}
	return nil
}

type cursor struct {
	cur *mongo.Cursor
}

func (c *cursor) Next(ctx context.Context) bool { return c.cur.Next(ctx) }

func (c *cursor) Decode() (docstore.Document, error) {
	var raw bson.M
	if err := c.cur.Decode(&raw); err != nil {
		return nil, fmt.Errorf("cursor decode failed: %w", err)
	}
	return normalizeDocument(raw), nil
}

func (c *cursor) Err() error { return c.cur.Err() }

func (c *cursor) Close(ctx context.Context) error { return c.cur.Close(ctx) }

func toBSONFilter(filter docstore.Filter) bson.M {
	out := bson.M{}
	for field, value := range filter {
		if in, ok := value.(docstore.InClause); ok {
			out[field] = bson.M{"$in": in.Values}
			continue
		}
		out[field] = value
	}
	return out
}

func normalizeDocument(raw bson.M) docstore.Document {
	doc := make(docstore.Document, len(raw))
	for k, v := range raw {
		doc[k] = normalizeValue(v)
	}
	return doc
}

func normalizeValue(v interface{}) interface{} {
	switch tv := v.(type) {
	case int32:
		return int64(tv)
	case primitive.DateTime:
		return tv.Time().UTC()
	case primitive.ObjectID:
		return tv.Hex()
	case bson.M:
		return normalizeDocument(tv)
	case bson.D:
		doc := make(docstore.Document, len(tv))
		for _, e := range tv {
			doc[e.Key] = normalizeValue(e.Value)
		}
		return doc
	case primitive.A:
		out := make([]interface{}, len(tv))
		for i, e := range tv {
			out[i] = normalizeValue(e)
		}
		return out
	default:
		return v
	}
}
