package recordstore

import (
	"fmt"
	"strings"
)

// Eq builds an equality predicate in the store's formula syntax:
// {field}="value". Embedded quotes and backslashes are escaped.
func Eq(field, value string) string {
	escaped := strings.NewReplacer(`\`, `\\`, `"`, `\"`).Replace(value)
	return fmt.Sprintf(`{%s}="%s"`, field, escaped)
}

// And combines predicates conjunctively. A single predicate passes through
// bare; several are wrapped in AND(...).
func And(predicates ...string) string {
	nonEmpty := make([]string, 0, len(predicates))
	for _, p := range predicates {
		if p != "" {
			nonEmpty = append(nonEmpty, p)
		}
	}

	switch len(nonEmpty) {
	case 0:
		return ""
	case 1:
		return nonEmpty[0]
	default:
		return fmt.Sprintf("AND(%s)", strings.Join(nonEmpty, ","))
	}
}
