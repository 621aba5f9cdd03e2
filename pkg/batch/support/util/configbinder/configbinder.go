// Package configbinder decodes loosely typed component property maps
// (as they appear under YAML keys) into typed option structs.
package configbinder

import (
	"fmt"
	"reflect"

	"github.com/mitchellh/mapstructure"
)

// BindProperties decodes properties into target using the `yaml` tags of the
// target struct. Strings are converted to numbers, bools and durations.
func BindProperties(properties map[string]interface{}, target interface{}) error {
	if len(properties) == 0 {
		return nil
	}
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           target,
		TagName:          "yaml",
		WeaklyTypedInput: true,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		),
	})
	if err != nil {
		return fmt.Errorf("failed to create mapstructure decoder: %w", err)
	}
	if err := decoder.Decode(properties); err != nil {
		return fmt.Errorf("failed to bind properties to %s: %w", typeName(target), err)
	}
	return nil
}

// BindStringProperties is BindProperties for map[string]string inputs such as
// parsed environment blocks.
func BindStringProperties(properties map[string]string, target interface{}) error {
	converted := make(map[string]interface{}, len(properties))
	for k, v := range properties {
		converted[k] = v
	}
	return BindProperties(converted, target)
}

func typeName(v interface{}) string {
	t := reflect.TypeOf(v)
	if t == nil {
		return "<nil>"
	}
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.Name()
}
