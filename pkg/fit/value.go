package fit

import (
	"math"
	"reflect"
)

// toInt64 coerces the Go values accepted by EncodeRecord to an integer.
// Floats are rounded; nil pointers and NaN carry no value.
func toInt64(v any) (int64, bool) {
	switch x := v.(type) {
	case nil:
		return 0, false
	case int:
		return int64(x), true
	case int8:
		return int64(x), true
	case int16:
		return int64(x), true
	case int32:
		return int64(x), true
	case int64:
		return x, true
	case uint:
		return clampUint(uint64(x)), true
	case uint8:
		return int64(x), true
	case uint16:
		return int64(x), true
	case uint32:
		return int64(x), true
	case uint64:
		return clampUint(x), true
	case bool:
		if x {
			return 1, true
		}
		return 0, true
	case float32:
		return roundFloat(float64(x))
	case float64:
		return roundFloat(x)
	}
	if inner, ok := deref(v); ok {
		return toInt64(inner)
	}
	return 0, false
}

func toFloat64(v any) (float64, bool) {
	switch x := v.(type) {
	case nil:
		return 0, false
	case float32:
		return float64(x), true
	case float64:
		return x, true
	}
	if inner, ok := deref(v); ok {
		return toFloat64(inner)
	}
	n, ok := toInt64(v)
	return float64(n), ok
}

func toString(v any) (string, bool) {
	switch x := v.(type) {
	case string:
		return x, true
	case []byte:
		return string(x), x != nil
	case *string:
		if x == nil {
			return "", false
		}
		return *x, true
	}
	return "", false
}

func clampUint(x uint64) int64 {
	if x > math.MaxInt64 {
		return math.MaxInt64
	}
	return int64(x)
}

func roundFloat(f float64) (int64, bool) {
	if math.IsNaN(f) {
		return 0, false
	}
	switch {
	case f >= math.MaxInt64:
		return math.MaxInt64, true
	case f <= math.MinInt64:
		return math.MinInt64, true
	}
	return int64(math.Round(f)), true
}

// deref unwraps pointers to the scalar kinds; a nil pointer carries no value.
func deref(v any) (any, bool) {
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Pointer {
		return nil, false
	}
	if rv.IsNil() {
		return nil, true
	}
	return rv.Elem().Interface(), true
}

// AsUint returns a decoded numeric value as uint64.
func AsUint(v any) (uint64, bool) {
	switch x := v.(type) {
	case uint64:
		return x, true
	case int64:
		if x < 0 {
			return 0, false
		}
		return uint64(x), true
	case float64:
		if x < 0 || math.IsNaN(x) {
			return 0, false
		}
		return uint64(math.Round(x)), true
	}
	return 0, false
}

// AsInt returns a decoded numeric value as int64.
func AsInt(v any) (int64, bool) {
	switch x := v.(type) {
	case int64:
		return x, true
	case uint64:
		return clampUint(x), true
	case float64:
		return roundFloat(x)
	}
	return 0, false
}

// AsFloat returns a decoded numeric value as float64.
func AsFloat(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case int64:
		return float64(x), true
	case uint64:
		return float64(x), true
	}
	return 0, false
}
