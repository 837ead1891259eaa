package model_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	model "github.com/tigerroll/moray/pkg/batch/core/domain/model"
)

func TestJobParameters_KeyIsInsertionOrderIndependent(t *testing.T) {
	date := time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)

	a := model.NewJobParameters()
	a.PutString("input.file", "/data/in.csv")
	a.PutLong("chunkSize", 500)
	a.PutDouble("threshold", 0.75)
	a.PutDate("runDate", date)

	b := model.NewJobParameters()
	b.PutDate("runDate", date)
	b.PutDouble("threshold", 0.75)
	b.PutLong("chunkSize", 500)
	b.PutString("input.file", "/data/in.csv")

	assert.Equal(t, a.Key(), b.Key())
	assert.Len(t, a.Key(), 32, "key should be a 32 character hex digest")
	assert.Equal(t, a.Key(), string([]byte(a.Key())), "key should be plain ASCII")
}

func TestJobParameters_KeyDistinguishesValuesAndNames(t *testing.T) {
	base := model.NewJobParameters()
	base.PutLong("chunkSize", 500)

	differentValue := model.NewJobParameters()
	differentValue.PutLong("chunkSize", 501)

	differentName := model.NewJobParameters()
	differentName.PutLong("chunkSize2", 500)

	empty := model.NewJobParameters()

	assert.NotEqual(t, base.Key(), differentValue.Key())
	assert.NotEqual(t, base.Key(), differentName.Key())
	assert.NotEqual(t, base.Key(), empty.Key())
	assert.Len(t, empty.Key(), 32, "empty parameter set still yields a digest")
}

func TestJobParameters_TypedAccess(t *testing.T) {
	date := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	params := model.NewJobParameters()
	params.PutString("name", "nightly")
	params.PutLong("retries", 3)
	params.PutDouble("rate", 12.5)
	params.PutDate("asOf", date)

	p, ok := params.Get("name")
	assert.True(t, ok)
	assert.Equal(t, model.ParameterTypeString, p.Type)
	assert.Equal(t, "nightly", p.StringValue())

	p, ok = params.Get("retries")
	assert.True(t, ok)
	assert.Equal(t, model.ParameterTypeLong, p.Type)
	assert.Equal(t, int64(3), p.LongValue())

	p, ok = params.Get("rate")
	assert.True(t, ok)
	assert.Equal(t, model.ParameterTypeDouble, p.Type)
	assert.Equal(t, 12.5, p.DoubleValue())

	p, ok = params.Get("asOf")
	assert.True(t, ok)
	assert.Equal(t, model.ParameterTypeDate, p.Type)
	assert.True(t, date.Equal(p.DateValue()))

	_, ok = params.Get("missing")
	assert.False(t, ok)

	assert.Equal(t, []string{"asOf", "name", "rate", "retries"}, params.Names())
}

func TestJobParameters_Equal(t *testing.T) {
	a := model.NewJobParameters()
	a.PutString("mode", "full")
	a.PutLong("limit", 10)

	b := model.NewJobParameters()
	b.PutLong("limit", 10)
	b.PutString("mode", "full")

	assert.True(t, a.Equal(b))

	b.PutLong("limit", 11)
	assert.False(t, a.Equal(b))

	// Same value, different type.
	c := model.NewJobParameters()
	c.PutString("mode", "full")
	c.PutString("limit", "10")
	assert.False(t, a.Equal(c))
}
