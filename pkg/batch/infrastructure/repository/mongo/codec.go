package mongo

import (
	"math/big"
	"strings"
	"time"

	"github.com/tigerroll/moray/pkg/batch/adapter/docstore"
	model "github.com/tigerroll/moray/pkg/batch/core/domain/model"
	"github.com/tigerroll/moray/pkg/batch/support/util/logger"
)

// Attribute keys may contain dots, which the storage engine reserves for
// path traversal. They are escaped with a literal token on write and
// restored on read.
const dotToken = "{dot}"

// Declared types for arbitrary-precision attribute values, stored in the
// sibling <key>_TYPE field.
const (
	bigIntTypeName   = "math/big.Int"
	bigFloatTypeName = "math/big.Float"
)

// bigFloatPrecision is the mantissa precision used when restoring stored
// big.Float attributes.
const bigFloatPrecision = 236

func escapeKey(key string) string {
	return strings.ReplaceAll(key, ".", dotToken)
}

func unescapeKey(key string) string {
	return strings.ReplaceAll(key, dotToken, ".")
}

// encodeJobParameters renders typed job parameters as a flat subdocument.
// Dates are stored as timestamps; the parameter type is recovered from the
// stored value's type on decode.
func encodeJobParameters(params model.JobParameters) docstore.Document {
	doc := make(docstore.Document, params.Len())
	for _, name := range params.Names() {
		param, _ := params.Get(name)
		doc[escapeKey(name)] = param.Value()
	}
	return doc
}

// decodeJobParameters rebuilds typed job parameters from a stored
// subdocument. Values of an unsupported type are dropped with a warning.
func decodeJobParameters(raw interface{}) model.JobParameters {
	params := model.NewJobParameters()
	doc, ok := raw.(docstore.Document)
	if !ok {
		if m, isMap := raw.(map[string]interface{}); isMap {
			doc = docstore.Document(m)
		} else {
			return params
		}
	}
	for key, value := range doc {
		name := unescapeKey(key)
		switch v := value.(type) {
		case string:
			params.Put(name, model.NewStringParameter(v))
		case int64:
			params.Put(name, model.NewLongParameter(v))
		case float64:
			params.Put(name, model.NewDoubleParameter(v))
		case time.Time:
			params.Put(name, model.NewDateParameter(v))
		default:
			logger.Warnf("Dropping job parameter '%s' with unsupported stored type %T.", name, value)
		}
	}
	return params
}

// encodeExecutionContext renders an ExecutionContext as document fields.
// Arbitrary-precision numbers are stored as decimal strings together with a
// <key>_TYPE field naming their type so they survive the round trip without
// loss.
func encodeExecutionContext(ec model.ExecutionContext) docstore.Document {
	doc := make(docstore.Document, len(ec))
	for key, value := range ec {
		escaped := escapeKey(key)
		switch v := value.(type) {
		case *big.Int:
			doc[escaped] = v.String()
			doc[escaped+typeSuffix] = bigIntTypeName
		case *big.Float:
			doc[escaped] = v.Text('g', -1)
			doc[escaped+typeSuffix] = bigFloatTypeName
		default:
			doc[escaped] = value
		}
	}
	return doc
}

// decodeExecutionContext rebuilds an ExecutionContext from document fields.
// Keys listed in skipKeys (the owning execution ID fields) and engine-managed
// fields are ignored. A value whose _TYPE tag cannot be applied is kept
// as stored and the failure is logged.
func decodeExecutionContext(doc docstore.Document, skipKeys ...string) model.ExecutionContext {
	ec := model.NewExecutionContext()
	if doc == nil {
		return ec
	}
	skipped := map[string]bool{idKey: true, nsKey: true}
	for _, k := range skipKeys {
		skipped[k] = true
	}
	for key, value := range doc {
		if skipped[key] {
			continue
		}
		if strings.HasSuffix(key, typeSuffix) {
			base := strings.TrimSuffix(key, typeSuffix)
			if _, ok := doc[base]; ok {
				continue
			}
		}
		if typeName, ok := doc[key+typeSuffix].(string); ok {
			if converted, ok := convertDeclaredType(value, typeName); ok {
				ec.Put(unescapeKey(key), converted)
				continue
			}
			logger.Warnf("Failed to convert attribute '%s' to %s; keeping stored value.", key, typeName)
		}
		ec.Put(unescapeKey(key), value)
	}
	return ec
}

func convertDeclaredType(value interface{}, typeName string) (interface{}, bool) {
	text, ok := value.(string)
	if !ok {
		return nil, false
	}
	switch typeName {
	case bigIntTypeName:
		n, ok := new(big.Int).SetString(text, 10)
		if !ok {
			return nil, false
		}
		return n, true
	case bigFloatTypeName:
		f, ok := new(big.Float).SetPrec(bigFloatPrecision).SetString(text)
		if !ok {
			return nil, false
		}
		return f, true
	default:
		return nil, false
	}
}
