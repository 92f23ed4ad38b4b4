// Package signal provides defensive access to loosely typed enrichment data.
//
// Enrichment sources are heterogeneous and partial data is the normal case.
// Every accessor reports whether a well-typed value was found and never
// panics on absent, null, or mistyped input.
package signal

import (
	"encoding/json"
	"math"
	"strings"
)

// Map is a bag of enrichment signals keyed by provider
// (virustotal, abuseipdb, whois, asn, context, ...).
type Map = map[string]any

// Lookup walks path through nested objects. It returns false as soon as an
// intermediate value is not an object or a key is missing.
func Lookup(m Map, path ...string) (any, bool) {
	var cur any = m
	for _, key := range path {
		obj, ok := asObject(cur)
		if !ok {
			return nil, false
		}
		v, ok := obj[key]
		if !ok {
			return nil, false
		}
		cur = v
	}
	return cur, true
}

// Object returns the nested object at path.
func Object(m Map, path ...string) (Map, bool) {
	v, ok := Lookup(m, path...)
	if !ok {
		return nil, false
	}
	return asObject(v)
}

// Int returns the integer at path. Integral JSON numbers are accepted;
// fractional numbers, strings and booleans are not.
func Int(m Map, path ...string) (int, bool) {
	v, ok := Lookup(m, path...)
	if !ok {
		return 0, false
	}
	return AsInt(v)
}

// Number returns any numeric value at path as float64.
func Number(m Map, path ...string) (float64, bool) {
	v, ok := Lookup(m, path...)
	if !ok {
		return 0, false
	}
	return AsNumber(v)
}

// Bool returns the boolean at path.
func Bool(m Map, path ...string) (bool, bool) {
	v, ok := Lookup(m, path...)
	if !ok {
		return false, false
	}
	b, ok := v.(bool)
	return b, ok
}

// String returns the string at path.
func String(m Map, path ...string) (string, bool) {
	v, ok := Lookup(m, path...)
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// EqualFold reports whether the string at path equals want, ignoring case.
func EqualFold(m Map, want string, path ...string) bool {
	s, ok := String(m, path...)
	return ok && strings.EqualFold(s, want)
}

// AsInt coerces v to int when it holds an integral number.
func AsInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int32:
		return int(n), true
	case int64:
		return int(n), true
	case uint:
		return int(n), true
	case uint32:
		return int(n), true
	case uint64:
		return int(n), true
	case float64:
		return integral(n)
	case float32:
		return integral(float64(n))
	case json.Number:
		if i, err := n.Int64(); err == nil {
			return int(i), true
		}
		if f, err := n.Float64(); err == nil {
			return integral(f)
		}
	}
	return 0, false
}

// AsNumber coerces v to float64 when it holds any number.
func AsNumber(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, !math.IsNaN(n)
	case float32:
		return float64(n), !math.IsNaN(float64(n))
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	}
	if i, ok := AsInt(v); ok {
		return float64(i), true
	}
	return 0, false
}

func integral(f float64) (int, bool) {
	if math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) {
		return 0, false
	}
	// -float64(math.MinInt) is the first value past math.MaxInt.
	if f >= -float64(math.MinInt) || f < float64(math.MinInt) {
		return 0, false
	}
	return int(f), true
}

func asObject(v any) (Map, bool) {
	switch o := v.(type) {
	case map[string]any:
		return o, o != nil
	case map[any]any:
		// yaml.v2-style documents; keep only string keys.
		out := make(Map, len(o))
		for k, val := range o {
			if ks, ok := k.(string); ok {
				out[ks] = val
			}
		}
		return out, true
	}
	return nil, false
}
