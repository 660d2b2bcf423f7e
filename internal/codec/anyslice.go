package codec

import (
	"fmt"
	"reflect"
)

// asAnySlice converts any slice or array value into []any. Non-slice
// input is rejected; nil is an empty slice.
func asAnySlice(v any) ([]any, error) {
	if v == nil {
		return nil, nil
	}
	if s, ok := v.([]any); ok {
		return s, nil
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		out := make([]any, rv.Len())
		for i := range out {
			out[i] = rv.Index(i).Interface()
		}
		return out, nil
	}
	return nil, fmt.Errorf("slice value expected")
}
