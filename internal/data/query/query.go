// Package query evaluates small SELECT queries over the symbol index, e.g.
//
//	SELECT variables WHERE kind = 'color' AND source CONTAINS 'theme'
package query

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var (
	selectRE       = regexp.MustCompile(`(?i)^\s*SELECT\s+(symbols|variables|definitions)(?:\s+WHERE\s+(.+))?\s*$`)
	andSplitRE     = regexp.MustCompile(`(?i)\s+AND\s+`)
	numericCondRE  = regexp.MustCompile(`(?i)^\s*([a-z_]+)\s*(>=|<=|!=|=|>|<)\s*(-?[0-9]+)\s*$`)
	containsCondRE = regexp.MustCompile(`(?i)^\s*([a-z_]+)\s+CONTAINS\s+['"]([^'"]+)['"]\s*$`)
	stringCondRE   = regexp.MustCompile(`(?i)^\s*([a-z_]+)\s*(=|!=)\s*['"]([^'"]*)['"]\s*$`)
)

const (
	TargetSymbols     = "symbols"
	TargetVariables   = "variables"
	TargetDefinitions = "definitions"
)

var stringFields = map[string]bool{"name": true, "value": true, "kind": true, "source": true}

// Row is one indexed symbol. Kind is "variable", "color" or "method".
type Row struct {
	Name   string
	Value  string
	Kind   string
	Source string
}

// IsDefinition reports whether the row is a mixin or class.
func (r Row) IsDefinition() bool {
	return strings.HasPrefix(r.Name, ".")
}

type Query struct {
	Target     string
	Conditions []Condition
}

type Condition struct {
	Field  string
	Op     string
	IntVal int
	StrVal string
	IsInt  bool
	IsStr  bool
}

func Parse(raw string) (Query, error) {
	matches := selectRE.FindStringSubmatch(strings.TrimSpace(raw))
	if len(matches) == 0 {
		return Query{}, fmt.Errorf("invalid query: expected SELECT symbols|variables|definitions [WHERE ...]")
	}

	q := Query{Target: strings.ToLower(matches[1])}
	where := strings.TrimSpace(matches[2])
	if where == "" {
		return q, nil
	}

	parts := andSplitRE.Split(where, -1)
	q.Conditions = make([]Condition, 0, len(parts))
	for _, part := range parts {
		condition, err := parseCondition(part)
		if err != nil {
			return Query{}, err
		}
		q.Conditions = append(q.Conditions, condition)
	}
	return q, nil
}

func parseCondition(raw string) (Condition, error) {
	if match := numericCondRE.FindStringSubmatch(raw); len(match) == 4 {
		field := strings.ToLower(strings.TrimSpace(match[1]))
		if field != "length" {
			return Condition{}, fmt.Errorf("numeric comparison on unknown field %q", field)
		}
		value, err := strconv.Atoi(strings.TrimSpace(match[3]))
		if err != nil {
			return Condition{}, fmt.Errorf("invalid numeric value %q: %w", match[3], err)
		}
		return Condition{Field: field, Op: strings.TrimSpace(match[2]), IntVal: value, IsInt: true}, nil
	}

	if match := containsCondRE.FindStringSubmatch(raw); len(match) == 3 {
		return stringCondition(match[1], "contains", match[2])
	}

	if match := stringCondRE.FindStringSubmatch(raw); len(match) == 4 {
		return stringCondition(match[1], match[2], match[3])
	}

	return Condition{}, fmt.Errorf("invalid condition %q", strings.TrimSpace(raw))
}

func stringCondition(field, op, value string) (Condition, error) {
	field = strings.ToLower(strings.TrimSpace(field))
	if !stringFields[field] {
		return Condition{}, fmt.Errorf("unknown field %q", field)
	}
	return Condition{Field: field, Op: strings.TrimSpace(op), StrVal: strings.TrimSpace(value), IsStr: true}, nil
}

// Match reports whether row is in the query target and satisfies every
// condition.
func (q Query) Match(row Row) bool {
	switch q.Target {
	case TargetVariables:
		if row.IsDefinition() {
			return false
		}
	case TargetDefinitions:
		if !row.IsDefinition() {
			return false
		}
	}
	for _, c := range q.Conditions {
		if !c.match(row) {
			return false
		}
	}
	return true
}

func (c Condition) match(row Row) bool {
	if c.IsInt {
		return compareInt(len(row.Value), c.Op, c.IntVal)
	}
	var field string
	switch c.Field {
	case "name":
		field = row.Name
	case "value":
		field = row.Value
	case "kind":
		field = row.Kind
	case "source":
		field = row.Source
	}
	switch c.Op {
	case "contains":
		return strings.Contains(strings.ToLower(field), strings.ToLower(c.StrVal))
	case "=":
		return field == c.StrVal
	case "!=":
		return field != c.StrVal
	}
	return false
}

func compareInt(got int, op string, want int) bool {
	switch op {
	case ">":
		return got > want
	case ">=":
		return got >= want
	case "<":
		return got < want
	case "<=":
		return got <= want
	case "=":
		return got == want
	case "!=":
		return got != want
	}
	return false
}

// Execute returns the matching rows in input order. limit <= 0 means no
// limit.
func Execute(q Query, rows []Row, limit int) []Row {
	out := make([]Row, 0)
	for _, row := range rows {
		if !q.Match(row) {
			continue
		}
		out = append(out, row)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out
}
