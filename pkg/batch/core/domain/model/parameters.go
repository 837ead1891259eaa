package model

import (
	"crypto/md5"
	"encoding/hex"
	"sort"
	"strconv"
	"time"
)

// ParameterType identifies the runtime type of a JobParameter value.
// The set of types is closed; encode/decode logic switches over it
// exhaustively instead of inspecting runtime types.
type ParameterType int

const (
	ParameterTypeString ParameterType = iota
	ParameterTypeLong
	ParameterTypeDouble
	ParameterTypeDate
)

// String returns the name of the ParameterType.
func (t ParameterType) String() string {
	switch t {
	case ParameterTypeString:
		return "STRING"
	case ParameterTypeLong:
		return "LONG"
	case ParameterTypeDouble:
		return "DOUBLE"
	case ParameterTypeDate:
		return "DATE"
	default:
		return "UNKNOWN"
	}
}

// JobParameter is a single typed job parameter value.
type JobParameter struct {
	Type ParameterType

	stringValue string
	longValue   int64
	doubleValue float64
	dateValue   time.Time
}

// NewStringParameter creates a string-typed JobParameter.
func NewStringParameter(v string) JobParameter {
	return JobParameter{Type: ParameterTypeString, stringValue: v}
}

// NewLongParameter creates a long-typed JobParameter.
func NewLongParameter(v int64) JobParameter {
	return JobParameter{Type: ParameterTypeLong, longValue: v}
}

// NewDoubleParameter creates a double-typed JobParameter.
func NewDoubleParameter(v float64) JobParameter {
	return JobParameter{Type: ParameterTypeDouble, doubleValue: v}
}

// NewDateParameter creates a date-typed JobParameter. The value is stored in UTC.
func NewDateParameter(v time.Time) JobParameter {
	return JobParameter{Type: ParameterTypeDate, dateValue: v.UTC()}
}

// StringValue returns the string value. It is only meaningful for ParameterTypeString.
func (p JobParameter) StringValue() string { return p.stringValue }

// LongValue returns the long value. It is only meaningful for ParameterTypeLong.
func (p JobParameter) LongValue() int64 { return p.longValue }

// DoubleValue returns the double value. It is only meaningful for ParameterTypeDouble.
func (p JobParameter) DoubleValue() float64 { return p.doubleValue }

// DateValue returns the date value. It is only meaningful for ParameterTypeDate.
func (p JobParameter) DateValue() time.Time { return p.dateValue }

// Value returns the parameter value as its natural Go type.
func (p JobParameter) Value() interface{} {
	switch p.Type {
	case ParameterTypeString:
		return p.stringValue
	case ParameterTypeLong:
		return p.longValue
	case ParameterTypeDouble:
		return p.doubleValue
	case ParameterTypeDate:
		return p.dateValue
	default:
		return nil
	}
}

// String returns the canonical string form of the parameter value.
// The canonical form feeds the job key digest and therefore must be
// deterministic across processes.
func (p JobParameter) String() string {
	switch p.Type {
	case ParameterTypeString:
		return p.stringValue
	case ParameterTypeLong:
		return strconv.FormatInt(p.longValue, 10)
	case ParameterTypeDouble:
		return strconv.FormatFloat(p.doubleValue, 'f', -1, 64)
	case ParameterTypeDate:
		return p.dateValue.UTC().Format(time.RFC3339Nano)
	default:
		return ""
	}
}

// Equal compares two JobParameters for type and value equality.
func (p JobParameter) Equal(other JobParameter) bool {
	if p.Type != other.Type {
		return false
	}
	switch p.Type {
	case ParameterTypeString:
		return p.stringValue == other.stringValue
	case ParameterTypeLong:
		return p.longValue == other.longValue
	case ParameterTypeDouble:
		return p.doubleValue == other.doubleValue
	case ParameterTypeDate:
		return p.dateValue.Equal(other.dateValue)
	default:
		return false
	}
}

// JobParameters is a set of named, typed parameters identifying a JobInstance.
type JobParameters struct {
	params map[string]JobParameter
}

// NewJobParameters creates a new, empty JobParameters.
func NewJobParameters() JobParameters {
	return JobParameters{params: make(map[string]JobParameter)}
}

// Put sets the parameter for the given name, replacing any existing value.
func (jp JobParameters) Put(name string, param JobParameter) JobParameters {
	jp.params[name] = param
	return jp
}

// PutString sets a string parameter.
func (jp JobParameters) PutString(name, v string) JobParameters {
	return jp.Put(name, NewStringParameter(v))
}

// PutLong sets a long parameter.
func (jp JobParameters) PutLong(name string, v int64) JobParameters {
	return jp.Put(name, NewLongParameter(v))
}

// PutDouble sets a double parameter.
func (jp JobParameters) PutDouble(name string, v float64) JobParameters {
	return jp.Put(name, NewDoubleParameter(v))
}

// PutDate sets a date parameter.
func (jp JobParameters) PutDate(name string, v time.Time) JobParameters {
	return jp.Put(name, NewDateParameter(v))
}

// Get retrieves the parameter for the given name.
func (jp JobParameters) Get(name string) (JobParameter, bool) {
	p, ok := jp.params[name]
	return p, ok
}

// Names returns all parameter names in lexicographic order.
func (jp JobParameters) Names() []string {
	names := make([]string, 0, len(jp.params))
	for name := range jp.params {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Len returns the number of parameters.
func (jp JobParameters) Len() int {
	return len(jp.params)
}

// IsZero reports whether this JobParameters was never initialized.
// An initialized but empty parameter set is not zero.
func (jp JobParameters) IsZero() bool {
	return jp.params == nil
}

// Equal compares two parameter sets for exact equality of names, types and values.
func (jp JobParameters) Equal(other JobParameters) bool {
	if len(jp.params) != len(other.params) {
		return false
	}
	for name, p := range jp.params {
		o, ok := other.params[name]
		if !ok || !p.Equal(o) {
			return false
		}
	}
	return true
}

// Key derives the job key: a deterministic fingerprint of the parameter set
// used to detect duplicate job instances. Parameter names are sorted
// lexicographically, concatenated as "name=value;" using each value's
// canonical string form, digested with MD5 and rendered as a lowercase
// 32-character hexadecimal string. Identical parameter sets yield identical
// keys regardless of insertion order.
func (jp JobParameters) Key() string {
	var sb []byte
	for _, name := range jp.Names() {
		sb = append(sb, name...)
		sb = append(sb, '=')
		sb = append(sb, jp.params[name].String()...)
		sb = append(sb, ';')
	}
	sum := md5.Sum(sb)
	return hex.EncodeToString(sum[:])
}
