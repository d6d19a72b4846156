package sentiment

import (
	"encoding/json"
	"strconv"
)

// Optional is a statistic that may be undefined, such as the std of a
// single value. Undefined values encode as null.
type Optional struct {
	Value float64
	Valid bool
}

// Some wraps a defined value
func Some(v float64) Optional {
	return Optional{Value: v, Valid: true}
}

// String formats the value, or "" when undefined
func (o Optional) String() string {
	if !o.Valid {
		return ""
	}
	return strconv.FormatFloat(o.Value, 'g', -1, 64)
}

func (o Optional) MarshalJSON() ([]byte, error) {
	if !o.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(o.Value)
}

func (o *Optional) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*o = Optional{}
		return nil
	}
	if err := json.Unmarshal(data, &o.Value); err != nil {
		return err
	}
	o.Valid = true
	return nil
}

func (o Optional) MarshalYAML() (any, error) {
	if !o.Valid {
		return nil, nil
	}
	return o.Value, nil
}
