package configbinder

import (
	"fmt"
	"reflect"

	"github.com/mitchellh/mapstructure"
)

// Bind takes a raw configuration map (typically a datastore entry decoded
// from YAML) and binds it to a target struct. The target struct should use
// `yaml` tags, which mapstructure is configured to read.
func Bind(props map[string]interface{}, target interface{}) error {
	if len(props) == 0 {
		return nil
	}

	config := &mapstructure.DecoderConfig{
		Metadata: nil,
		Result:   target,
		// WeaklyTypedInput allows converting strings to numbers, bools, etc.
		WeaklyTypedInput: true,
		TagName:          "yaml",
	}

	decoder, err := mapstructure.NewDecoder(config)
	if err != nil {
		return fmt.Errorf("failed to create mapstructure decoder: %w", err)
	}

	if err := decoder.Decode(props); err != nil {
		targetType := reflect.TypeOf(target)
		if targetType.Kind() == reflect.Ptr {
			targetType = targetType.Elem()
		}
		return fmt.Errorf("failed to bind properties to struct %s: %w", targetType.Name(), err)
	}

	return nil
}

// BindStrings binds a map of string properties to a target struct. It is a
// convenience wrapper around Bind for property sources that only carry strings.
func BindStrings(props map[string]string, target interface{}) error {
	if len(props) == 0 {
		return nil
	}
	intermediate := make(map[string]interface{}, len(props))
	for k, v := range props {
		intermediate[k] = v
	}
	return Bind(intermediate, target)
}
