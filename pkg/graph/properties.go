package graph

import (
	"encoding/json"
	"fmt"
	"maps"
	"reflect"
	"strconv"
)

// TypeKey is the property that feeds the type histograms.
const TypeKey = "type"

// Properties is the open property mapping carried by nodes and edges.
type Properties map[string]any

// Clone returns a shallow copy. A nil receiver yields an empty map.
func (p Properties) Clone() Properties {
	if p == nil {
		return Properties{}
	}
	return maps.Clone(p)
}

// Type returns the histogram key of the type property.
func (p Properties) Type() (string, bool) {
	v, ok := p[TypeKey]
	if !ok || v == nil {
		return "", false
	}
	if s, ok := v.(string); ok {
		return s, true
	}
	return fmt.Sprint(v), true
}

// Filter decides whether a property mapping is selected.
type Filter interface {
	Match(p Properties) bool
}

// Match is the equality filter: every key must be present with an equal value.
type Match map[string]any

func (m Match) Match(p Properties) bool {
	for k, want := range m {
		got, ok := p[k]
		if !ok || !ValuesEqual(got, want) {
			return false
		}
	}
	return true
}

func matches(f Filter, p Properties) bool {
	if f == nil {
		return true
	}
	if m, ok := f.(Match); ok && m == nil {
		return true
	}
	return f.Match(p)
}

// ValuesEqual compares property values, treating numbers of any Go kind by value.
func ValuesEqual(a, b any) bool {
	if x, ok := Number(a); ok {
		if y, ok := Number(b); ok {
			return x == y
		}
		return false
	}
	return reflect.DeepEqual(a, b)
}

// Number converts numeric property values to float64.
func Number(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case int32:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint64:
		return float64(n), true
	case uint32:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	}
	return 0, false
}

// Key renders an identifier from decoded input as a node key.
func Key(v any) string {
	switch k := v.(type) {
	case string:
		return k
	case nil:
		return ""
	case float64:
		return strconv.FormatFloat(k, 'f', -1, 64)
	case json.Number:
		return k.String()
	}
	return fmt.Sprint(v)
}
