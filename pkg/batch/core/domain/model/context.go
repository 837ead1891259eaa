package model

// ExecutionContext is a key-value store checkpointed against a job or step
// execution for restart purposes. Values may be strings, int64, float64,
// time.Time, arbitrary-precision numbers (*big.Int, *big.Float) or nested
// maps; the repository codec is responsible for round-tripping them through
// the storage format.
type ExecutionContext map[string]interface{}

// NewExecutionContext creates a new empty ExecutionContext.
func NewExecutionContext() ExecutionContext {
	return make(ExecutionContext)
}

// Put sets a value in the ExecutionContext with the specified key and value.
func (ec ExecutionContext) Put(key string, value interface{}) {
	ec[key] = value
}

// Get retrieves the value for the specified key. Returns nil and false if the value does not exist.
func (ec ExecutionContext) Get(key string) (interface{}, bool) {
	val, ok := ec[key]
	return val, ok
}

// GetString retrieves the value for the specified key as a string.
func (ec ExecutionContext) GetString(key string) (string, bool) {
	val, ok := ec[key]
	if !ok {
		return "", false
	}
	str, ok := val.(string)
	return str, ok
}

// GetLong retrieves the value for the specified key as an int64.
func (ec ExecutionContext) GetLong(key string) (int64, bool) {
	val, ok := ec[key]
	if !ok {
		return 0, false
	}
	switch v := val.(type) {
	case int64:
		return v, true
	case int:
		return int64(v), true
	case int32:
		return int64(v), true
	case float64:
		// Numbers decoded from schema-less formats may arrive as float64.
		return int64(v), true
	default:
		return 0, false
	}
}

// GetDouble retrieves the value for the specified key as a float64.
func (ec ExecutionContext) GetDouble(key string) (float64, bool) {
	val, ok := ec[key]
	if !ok {
		return 0.0, false
	}
	f, ok := val.(float64)
	return f, ok
}

// Remove removes the specified key from the ExecutionContext.
func (ec ExecutionContext) Remove(key string) {
	delete(ec, key)
}

// Copy creates a shallow copy of the ExecutionContext.
func (ec ExecutionContext) Copy() ExecutionContext {
	newEC := make(ExecutionContext, len(ec))
	for k, v := range ec {
		newEC[k] = v
	}
	return newEC
}
