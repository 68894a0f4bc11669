package report

import (
	"errors"
	"fmt"
	"reflect"
)

// requiredKeys and arrayKeys are checked in this exact order. Callers depend
// on getting the first violation, not all of them.
var (
	requiredKeys = []string{"title", "summary", "themes", "projectIdeas", "references", "risks"}
	arrayKeys    = []string{"themes", "projectIdeas", "references", "risks"}
)

// Validate checks a parsed value against the required report shape. It
// returns nil only when the value is an object carrying every required key
// with the four list fields being arrays. The error message identifies the
// first violated condition: "Not an object", "Missing key: <key>", or
// "<field> must be an array". Nested shapes are not validated here.
func Validate(v any) error {
	obj, ok := v.(map[string]any)
	if !ok || obj == nil {
		return errors.New("Not an object")
	}
	for _, k := range requiredKeys {
		if _, present := obj[k]; !present {
			return fmt.Errorf("Missing key: %s", k)
		}
	}
	for _, k := range arrayKeys {
		if !isArray(obj[k]) {
			return fmt.Errorf("%s must be an array", k)
		}
	}
	return nil
}

func isArray(v any) bool {
	if v == nil {
		return false
	}
	return reflect.TypeOf(v).Kind() == reflect.Slice
}
