// Package memory provides an in-memory docstore.Store backed by plain maps
// and slices. It implements the same matching, sorting and atomic increment
// semantics as the MongoDB adapter and is intended for tests and ephemeral
// runs; nothing survives process exit.
package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/tigerroll/moray/pkg/batch/adapter/docstore"
)

// Store is an in-memory docstore.Store. The zero value is not usable; use NewStore.
type Store struct {
	mu          sync.Mutex
	collections map[string]*collection
}

// NewStore creates an empty in-memory store.
func NewStore() *Store {
	return &Store{collections: make(map[string]*collection)}
}

// Collection returns the named collection, creating it if absent.
func (s *Store) Collection(name string) docstore.Collection {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.collections[name]
	if !ok {
		c = &collection{name: name}
		s.collections[name] = c
	}
	return c
}

// Close discards all collections.
func (s *Store) Close(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.collections = make(map[string]*collection)
	return nil
}

type uniqueIndex struct {
	fields []string
}

type collection struct {
	name    string
	mu      sync.RWMutex
	docs    []docstore.Document
	uniques []uniqueIndex
}

func (c *collection) Name() string { return c.name }

func (c *collection) InsertOne(ctx context.Context, doc docstore.Document) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, idx := range c.uniques {
		for _, existing := range c.docs {
			if sameIndexKey(existing, doc, idx.fields) {
				return fmt.Errorf("collection %s, fields (%s): %w",
					c.name, strings.Join(idx.fields, ","), docstore.ErrDuplicateKey)
			}
		}
	}
	c.docs = append(c.docs, copyDocument(doc))
	return nil
}

func (c *collection) FindOne(ctx context.Context, filter docstore.Filter) (docstore.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, doc := range c.docs {
		if matches(doc, filter) {
			return copyDocument(doc), nil
		}
	}
	return nil, nil
}

func (c *collection) Find(ctx context.Context, filter docstore.Filter, opts *docstore.FindOptions) (docstore.Cursor, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c.mu.RLock()
	var matched []docstore.Document
	for _, doc := range c.docs {
		if matches(doc, filter) {
			matched = append(matched, copyDocument(doc))
		}
	}
	c.mu.RUnlock()

	if opts != nil {
		for i := len(opts.Sort) - 1; i >= 0; i-- {
			spec := opts.Sort[i]
			sort.SliceStable(matched, func(a, b int) bool {
				less := compareValues(matched[a][spec.Field], matched[b][spec.Field]) < 0
				if spec.Descending {
					return !less && compareValues(matched[a][spec.Field], matched[b][spec.Field]) != 0
				}
				return less
			})
		}
		if opts.Skip > 0 {
			if opts.Skip >= int64(len(matched)) {
				matched = nil
			} else {
				matched = matched[opts.Skip:]
			}
		}
		if opts.Limit > 0 && int64(len(matched)) > opts.Limit {
			matched = matched[:opts.Limit]
		}
		if len(opts.Projection) > 0 {
			for i, doc := range matched {
				matched[i] = projectDocument(doc, opts.Projection)
			}
		}
	}
	return &sliceCursor{docs: matched, pos: -1}, nil
}

func (c *collection) ReplaceOne(ctx context.Context, filter docstore.Filter, doc docstore.Document, upsert bool) (docstore.ReplaceResult, error) {
	if err := ctx.Err(); err != nil {
		return docstore.ReplaceResult{}, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, existing := range c.docs {
		if matches(existing, filter) {
			modified := int64(0)
			if !sameDocument(existing, doc) {
				modified = 1
			}
			c.docs[i] = copyDocument(doc)
			return docstore.ReplaceResult{MatchedCount: 1, ModifiedCount: modified}, nil
		}
	}
	if upsert {
		c.docs = append(c.docs, copyDocument(doc))
	}
	return docstore.ReplaceResult{}, nil
}

func (c *collection) Distinct(ctx context.Context, field string, filter docstore.Filter) ([]interface{}, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	var values []interface{}
	for _, doc := range c.docs {
		if !matches(doc, filter) {
			continue
		}
		v, ok := doc[field]
		if !ok {
			continue
		}
		seen := false
		for _, existing := range values {
			if compareValues(existing, v) == 0 {
				seen = true
				break
			}
		}
		if !seen {
			values = append(values, v)
		}
	}
	return values, nil
}

func (c *collection) FindOneAndIncrement(ctx context.Context, filter docstore.Filter, field string, delta int64) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, doc := range c.docs {
		if matches(doc, filter) {
			current, _ := asInt64(doc[field])
			current += delta
			doc[field] = current
			return current, nil
		}
	}
	doc := docstore.Document{}
	for k, v := range filter {
		if _, isIn := v.(docstore.InClause); isIn {
			continue
		}
		doc[k] = v
	}
	doc[field] = delta
	c.docs = append(c.docs, doc)
	return delta, nil
}

func (c *collection) EnsureIndex(ctx context.Context, fields []string, unique bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !unique {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, idx := range c.uniques {
		if sameFields(idx.fields, fields) {
			return nil
		}
	}
	c.uniques = append(c.uniques, uniqueIndex{fields: append([]string(nil), fields...)})
	return nil
}

type sliceCursor struct {
	docs []docstore.Document
	pos  int
}

func (c *sliceCursor) Next(ctx context.Context) bool {
	if ctx.Err() != nil {
		return false
	}
	c.pos++
	return c.pos < len(c.docs)
}

func (c *sliceCursor) Decode() (docstore.Document, error) {
	if c.pos < 0 || c.pos >= len(c.docs) {
		return nil, fmt.Errorf("cursor is not positioned on a document")
	}
	return c.docs[c.pos], nil
}

func (c *sliceCursor) Err() error { return nil }

func (c *sliceCursor) Close(ctx context.Context) error { return nil }

func matches(doc docstore.Document, filter docstore.Filter) bool {
	for field, want := range filter {
		got, ok := doc[field]
		if in, isIn := want.(docstore.InClause); isIn {
			if !ok {
				return false
			}
			found := false
			for _, candidate := range in.Values {
				if compareValues(got, candidate) == 0 {
					found = true
					break
				}
			}
			if !found {
				return false
			}
			continue
		}
		if want == nil {
			if ok && got != nil {
				return false
			}
			continue
		}
		if !ok || compareValues(got, want) != 0 {
			return false
		}
	}
	return true
}

// compareValues orders the canonical document value types. Mixed numeric
// types compare by value; nil sorts before everything else.
func compareValues(a, b interface{}) int {
	if a == nil && b == nil {
		return 0
	}
	if a == nil {
		return -1
	}
	if b == nil {
		return 1
	}
	if ai, aok := asInt64(a); aok {
		if bi, bok := asInt64(b); bok {
			switch {
			case ai < bi:
				return -1
			case ai > bi:
				return 1
			default:
				return 0
			}
		}
		if bf, bok := asFloat64(b); bok {
			return compareFloats(float64(ai), bf)
		}
	}
	if af, aok := asFloat64(a); aok {
		if bf, bok := asFloat64(b); bok {
			return compareFloats(af, bf)
		}
		if bi, bok := asInt64(b); bok {
			return compareFloats(af, float64(bi))
		}
	}
	switch av := a.(type) {
	case string:
		if bv, ok := b.(string); ok {
			return strings.Compare(av, bv)
		}
	case bool:
		if bv, ok := b.(bool); ok {
			switch {
			case av == bv:
				return 0
			case !av:
				return -1
			default:
				return 1
			}
		}
	case time.Time:
		if bv, ok := b.(time.Time); ok {
			switch {
			case av.Before(bv):
				return -1
			case av.After(bv):
				return 1
			default:
				return 0
			}
		}
	}
	return strings.Compare(fmt.Sprintf("%v", a), fmt.Sprintf("%v", b))
}

func compareFloats(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func asInt64(v interface{}) (int64, bool) {
	switch n := v.(type) {
	case int64:
		return n, true
	case int:
		return int64(n), true
	case int32:
		return int64(n), true
	default:
		return 0, false
	}
}

func asFloat64(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	default:
		return 0, false
	}
}

func copyDocument(doc docstore.Document) docstore.Document {
	if doc == nil {
		return nil
	}
	out := make(docstore.Document, len(doc))
	for k, v := range doc {
		out[k] = copyValue(v)
	}
	return out
}

func copyValue(v interface{}) interface{} {
	switch tv := v.(type) {
	case docstore.Document:
		return copyDocument(tv)
	case map[string]interface{}:
		return copyDocument(docstore.Document(tv))
	case []interface{}:
		out := make([]interface{}, len(tv))
		for i, e := range tv {
			out[i] = copyValue(e)
		}
		return out
	default:
		return v
	}
}

func projectDocument(doc docstore.Document, fields []string) docstore.Document {
	out := make(docstore.Document, len(fields))
	for _, f := range fields {
		if v, ok := doc[f]; ok {
			out[f] = v
		}
	}
	return out
}

func sameDocument(a, b docstore.Document) bool {
	if len(a) != len(b) {
		return false
	}
	for k, av := range a {
		bv, ok := b[k]
		if !ok {
			return false
		}
		if !sameValue(av, bv) {
			return false
		}
	}
	return true
}

func sameValue(a, b interface{}) bool {
	ad, aok := a.(docstore.Document)
	bd, bok := b.(docstore.Document)
	if aok && bok {
		return sameDocument(ad, bd)
	}
	as, aok := a.([]interface{})
	bs, bok := b.([]interface{})
	if aok && bok {
		if len(as) != len(bs) {
			return false
		}
		for i := range as {
			if !sameValue(as[i], bs[i]) {
				return false
			}
		}
		return true
	}
	return compareValues(a, b) == 0
}

func sameIndexKey(a, b docstore.Document, fields []string) bool {
	for _, f := range fields {
		av, aok := a[f]
		bv, bok := b[f]
		if aok != bok {
			return false
		}
		if aok && compareValues(av, bv) != 0 {
			return false
		}
	}
	return true
}

func sameFields(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
