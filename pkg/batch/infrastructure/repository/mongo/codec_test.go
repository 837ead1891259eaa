package mongo

import (
	"math/big"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tigerroll/moray/pkg/batch/adapter/docstore"
	model "github.com/tigerroll/moray/pkg/batch/core/domain/model"
)

func TestJobParametersCodec_RoundTrip(t *testing.T) {
	date := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

	params := model.NewJobParameters()
	params.PutString("input.file", "/data/in.csv")
	params.PutLong("chunkSize", 500)
	params.PutDouble("threshold", 0.75)
	params.PutDate("runDate", date)

	doc := encodeJobParameters(params)

	// Dots in names are escaped on the wire.
	_, hasRaw := doc["input.file"]
	assert.False(t, hasRaw)
	assert.Equal(t, "/data/in.csv", doc["input{dot}file"])

	decoded := decodeJobParameters(doc)
	assert.True(t, params.Equal(decoded))

	p, ok := decoded.Get("input.file")
	require.True(t, ok)
	assert.Equal(t, "/data/in.csv", p.StringValue())
}

func TestJobParametersCodec_UnsupportedValueIsDropped(t *testing.T) {
	doc := docstore.Document{
		"good": int64(1),
		"bad":  []interface{}{"not", "a", "parameter"},
	}
	decoded := decodeJobParameters(doc)
	assert.Equal(t, 1, decoded.Len())
	_, ok := decoded.Get("bad")
	assert.False(t, ok)
}

func TestExecutionContextCodec_RoundTrip(t *testing.T) {
	ec := model.NewExecutionContext()
	ec.Put("checkpoint.offset", int64(12345))
	ec.Put("stage", "load")
	ec.Put("ratio", 0.5)

	doc := encodeExecutionContext(ec)
	assert.Equal(t, int64(12345), doc["checkpoint{dot}offset"])

	decoded := decodeExecutionContext(doc)
	offset, ok := decoded.GetLong("checkpoint.offset")
	require.True(t, ok)
	assert.Equal(t, int64(12345), offset)

	stage, ok := decoded.GetString("stage")
	require.True(t, ok)
	assert.Equal(t, "load", stage)

	ratio, ok := decoded.GetDouble("ratio")
	require.True(t, ok)
	assert.Equal(t, 0.5, ratio)
}

func TestExecutionContextCodec_BigNumbers(t *testing.T) {
	bigInt, ok := new(big.Int).SetString("123456789012345678901234567890", 10)
	require.True(t, ok)
	bigFloat, ok := new(big.Float).SetPrec(bigFloatPrecision).SetString("3.14159265358979323846")
	require.True(t, ok)

	ec := model.NewExecutionContext()
	ec.Put("total", bigInt)
	ec.Put("pi", bigFloat)

	doc := encodeExecutionContext(ec)
	assert.Equal(t, "123456789012345678901234567890", doc["total"])
	assert.Equal(t, bigIntTypeName, doc["total"+typeSuffix])
	assert.Equal(t, bigFloatTypeName, doc["pi"+typeSuffix])

	decoded := decodeExecutionContext(doc)

	// The type marker fields do not leak back into the context.
	_, present := decoded["total"+typeSuffix]
	assert.False(t, present)
	_, present = decoded["pi"+typeSuffix]
	assert.False(t, present)

	restoredInt, ok := decoded["total"].(*big.Int)
	require.True(t, ok)
	assert.Zero(t, bigInt.Cmp(restoredInt))

	restoredFloat, ok := decoded["pi"].(*big.Float)
	require.True(t, ok)
	assert.Zero(t, bigFloat.Cmp(restoredFloat))
}

func TestExecutionContextCodec_UnparsableTypedValueKeptAsStored(t *testing.T) {
	doc := docstore.Document{
		"total":              "not-a-number",
		"total" + typeSuffix: bigIntTypeName,
	}
	decoded := decodeExecutionContext(doc)
	assert.Equal(t, "not-a-number", decoded["total"])
}

func TestExecutionContextCodec_SkipsOwnerAndSystemFields(t *testing.T) {
	doc := docstore.Document{
		idKey:              "abc",
		jobExecutionIDKey:  int64(7),
		stepExecutionIDKey: int64(9),
		"payload":          "kept",
	}
	decoded := decodeExecutionContext(doc, jobExecutionIDKey, stepExecutionIDKey)
	assert.Len(t, decoded, 1)
	assert.Equal(t, "kept", decoded["payload"])
}
