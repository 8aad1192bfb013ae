package coaching

import (
	"encoding/json"

	"gorm.io/datatypes"
)

// JSON encodes v for a jsonb column. Nil slices encode as [].
func JSON(v any) datatypes.JSON {
	b, err := json.Marshal(v)
	if err != nil || string(b) == "null" {
		return datatypes.JSON([]byte("[]"))
	}
	return datatypes.JSON(b)
}

// DecodeJSON returns the zero value of T when raw is empty or malformed.
func DecodeJSON[T any](raw datatypes.JSON) T {
	var out T
	if len(raw) == 0 {
		return out
	}
	_ = json.Unmarshal(raw, &out)
	return out
}
