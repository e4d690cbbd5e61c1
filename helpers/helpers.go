package helpers

import (
	"encoding/json"
	"strconv"
)

// IntToString converts int64 to string.
func IntToString(i int64) string {
	return strconv.FormatInt(i, 10)
}

// ToJsonString converts any value to JSON string.
func ToJsonString(v interface{}) string {
	b, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(b)
}

// ToFloat64 converts a decoded JSON scalar (number or numeric string) to float64.
func ToFloat64(v interface{}) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case int:
		return float64(t), true
	case int64:
		return float64(t), true
	case string:
		f, err := strconv.ParseFloat(t, 64)
		if err != nil {
			return 0, false
		}
		return f, true
	}
	return 0, false
}

// ToInt64 converts a decoded JSON scalar (number or numeric string) to int64.
func ToInt64(v interface{}) (int64, bool) {
	f, ok := ToFloat64(v)
	if !ok {
		return 0, false
	}
	return int64(f), true
}
