package commands

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/DrSkyle/netscope/pkg/graph"
	"github.com/DrSkyle/netscope/pkg/query"
)

// parseAssignments turns key=value pairs into a property map. Values that
// parse as numbers or booleans keep that type.
func parseAssignments(pairs []string) (map[string]any, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	out := make(map[string]any, len(pairs))
	for _, pair := range pairs {
		k, v, ok := strings.Cut(pair, "=")
		if !ok || k == "" {
			return nil, fmt.Errorf("invalid assignment %q, want key=value", pair)
		}
		out[k] = parseValue(v)
	}
	return out, nil
}

func parseValue(s string) any {
	switch s {
	case "true":
		return true
	case "false":
		return false
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	return s
}

// allOf matches when every filter matches.
type allOf []graph.Filter

func (fs allOf) Match(p graph.Properties) bool {
	for _, f := range fs {
		if !f.Match(p) {
			return false
		}
	}
	return true
}

// buildFilter combines --match pairs and a --where expression. It returns
// nil when neither is given.
func buildFilter(match []string, where string) (graph.Filter, error) {
	var fs allOf
	m, err := parseAssignments(match)
	if err != nil {
		return nil, err
	}
	if len(m) > 0 {
		fs = append(fs, graph.Match(m))
	}
	if where != "" {
		x, err := query.Compile(where)
		if err != nil {
			return nil, err
		}
		fs = append(fs, x)
	}
	switch len(fs) {
	case 0:
		return nil, nil
	case 1:
		return fs[0], nil
	}
	return fs, nil
}
