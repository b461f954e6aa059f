// Package jsonx decodes bus payloads that may arrive typed or as JSON.
package jsonx

import "encoding/json"

// Decode decodes src into dst. src may be JSON bytes, a JSON string, a
// JSON-shaped map, or already a T. A nil src leaves dst untouched.
func Decode[T any](src any, dst *T) error {
	switch v := src.(type) {
	case nil:
		return nil
	case T:
		*dst = v
		return nil
	case *T:
		*dst = *v
		return nil
	case []byte:
		return json.Unmarshal(v, dst)
	case string:
		return json.Unmarshal([]byte(v), dst)
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return err
		}
		return json.Unmarshal(b, dst)
	}
}
