package graphwriter

import (
	"fmt"
	"regexp"
	"strings"
)

// identifierRe keeps graph labels and relation types to characters Cypher
// accepts unquoted, since they're interpolated directly into the query
// text (parameters can't bind label/relationship-type positions).
var identifierRe = regexp.MustCompile(`[^A-Za-z0-9_]`)

func sanitizeLabel(label string) string {
	return identifierRe.ReplaceAllString(label, "")
}

func sanitizeRelation(name string) string {
	cleaned := identifierRe.ReplaceAllString(name, "")
	if cleaned == "" {
		return "HasRole"
	}
	return cleaned
}

// sanitizeString doubles backslashes and strips single quotes, and
// substitutes the literal empty string for null/empty input, matching
// the value-sanitization rule in §4I.
func sanitizeString(v string) string {
	if v == "" {
		return ""
	}
	v = strings.ReplaceAll(v, `\`, `\\`)
	v = strings.ReplaceAll(v, `'`, "")
	return v
}

// propertySetClause builds a "alias.k1 = $p0, alias.k2 = $p1, ..." SET
// clause plus its parameter map, sanitizing string values along the way.
// Non-string, non-primitive values are stored as their string
// representation to stay within Cypher's primitive property type system.
func propertySetClause(alias string, props map[string]any) (string, map[string]any) {
	if len(props) == 0 {
		return fmt.Sprintf("%s.id = %s.id", alias, alias), map[string]any{}
	}

	clauses := make([]string, 0, len(props))
	params := make(map[string]any, len(props))

	i := 0
	for k, v := range props {
		key := sanitizeLabel(k)
		if key == "" {
			continue
		}
		paramName := fmt.Sprintf("p%d", i)
		i++

		switch val := v.(type) {
		case string:
			params[paramName] = sanitizeString(val)
		case []any:
			params[paramName] = sanitizePrimitiveList(val)
		default:
			params[paramName] = val
		}

		clauses = append(clauses, fmt.Sprintf("%s.%s = $%s", alias, key, paramName))
	}

	return strings.Join(clauses, ", "), params
}

func sanitizePrimitiveList(list []any) []any {
	out := make([]any, len(list))
	for i, v := range list {
		if s, ok := v.(string); ok {
			out[i] = sanitizeString(s)
		} else {
			out[i] = v
		}
	}
	return out
}
