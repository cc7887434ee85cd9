package sources

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// cellFloat coerces a normalized table cell to float64. Normalized values
// are json.Number, string, bool or nil; strings are accepted because some
// endpoints quote their numerics.
func cellFloat(v any) (float64, error) {
	switch c := v.(type) {
	case json.Number:
		return c.Float64()
	case float64:
		return c, nil
	case string:
		return strconv.ParseFloat(c, 64)
	case nil:
		return 0, fmt.Errorf("value is null")
	default:
		return 0, fmt.Errorf("value %v (%T) is not numeric", v, v)
	}
}

func cellInt(v any) (int, error) {
	switch c := v.(type) {
	case json.Number:
		n, err := c.Int64()
		return int(n), err
	case float64:
		return int(c), nil
	case string:
		return strconv.Atoi(c)
	case nil:
		return 0, fmt.Errorf("value is null")
	default:
		return 0, fmt.Errorf("value %v (%T) is not an integer", v, v)
	}
}
