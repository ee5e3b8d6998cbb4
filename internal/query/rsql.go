package query

import (
	"fmt"
	"strings"
)

// Condition is one parsed comparison from a filter expression.
type Condition struct {
	Field    string
	Operator string
	Value    string
}

// filter operators in match order; the two-character forms must be tried
// after the four-character forms or "=ge=" would parse as "=" noise.
var operators = []string{"=gt=", "=ge=", "=lt=", "=le=", "==", "!="}

// ParseFilter parses a conjunction of comparisons separated by ';'. Each
// comparison is field, operator, value; values may be single- or
// double-quoted to carry spaces or ';'. An empty filter parses to no
// conditions.
func ParseFilter(filter string) ([]Condition, error) {
	filter = strings.TrimSpace(filter)
	if filter == "" {
		return nil, nil
	}

	var conds []Condition
	for _, raw := range splitConjunction(filter) {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			return nil, fmt.Errorf("empty comparison in filter %q", filter)
		}

		cond, err := parseComparison(raw)
		if err != nil {
			return nil, err
		}
		conds = append(conds, cond)
	}

	return conds, nil
}

// splitConjunction splits on ';' outside quotes.
func splitConjunction(filter string) []string {
	var parts []string
	var quote byte
	start := 0

	for i := 0; i < len(filter); i++ {
		c := filter[i]
		switch {
		case quote != 0:
			if c == quote {
				quote = 0
			}
		case c == '\'' || c == '"':
			quote = c
		case c == ';':
			parts = append(parts, filter[start:i])
			start = i + 1
		}
	}
	parts = append(parts, filter[start:])
	return parts
}

// parseComparison splits at the first operator found outside quotes, so a
// quoted value may itself contain operator tokens.
func parseComparison(raw string) (Condition, error) {
	var quote byte
	for i := 0; i < len(raw); i++ {
		c := raw[i]
		switch {
		case quote != 0:
			if c == quote {
				quote = 0
			}
			continue
		case c == '\'' || c == '"':
			quote = c
			continue
		}

		for _, op := range operators {
			if i == 0 || !strings.HasPrefix(raw[i:], op) {
				continue
			}

			field := strings.TrimSpace(raw[:i])
			value := strings.TrimSpace(raw[i+len(op):])
			if field == "" || value == "" {
				return Condition{}, fmt.Errorf("malformed comparison %q", raw)
			}

			return Condition{
				Field:    field,
				Operator: op,
				Value:    unquote(value),
			}, nil
		}
	}

	return Condition{}, fmt.Errorf("no comparison operator in %q", raw)
}

func unquote(v string) string {
	if len(v) >= 2 {
		if (v[0] == '\'' && v[len(v)-1] == '\'') || (v[0] == '"' && v[len(v)-1] == '"') {
			return v[1 : len(v)-1]
		}
	}
	return v
}
