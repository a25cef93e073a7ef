package predicate

import (
	"fmt"
	"strings"
)

// MakeTextSearchValue turns a free-text search value into a LIKE pattern.
//
//	^abc$  -> abc      (exact)
//	^abc   -> abc%
//	abc$   -> %abc
//	abc    -> %abc%
//	^      -> %        (any non-empty value)
//	"", ^$ -> ""       (empty value)
//	NULL   -> isNull   (IS NULL test)
//
// Anchors only count at the very start and end, so "45$^ab5" stays literal.
// The LIKE wildcard "_" and the escape character are escaped; "%" is left
// as a user wildcard.
func MakeTextSearchValue(val string) (pattern string, isNull bool) {
	if val == "NULL" || val == "null" {
		return "", true
	}
	val = strings.ReplaceAll(val, `\`, `\\`)
	val = strings.ReplaceAll(val, "_", `\_`)
	val = strings.TrimSpace(val)

	switch val {
	case "^":
		return "%", false
	case "", "^$", "$":
		return "", false
	}

	if strings.HasPrefix(val, "^") {
		val = val[1:]
	} else {
		val = "%" + val
	}
	if strings.HasSuffix(val, "$") {
		val = val[:len(val)-1]
	} else {
		val += "%"
	}
	return val, false
}

// likeCond always includes ESCAPE so patterns can escape % and _.
func likeCond(expr string, not bool) string {
	if not {
		return fmt.Sprintf("%s NOT LIKE ? ESCAPE '\\'", expr)
	}
	return fmt.Sprintf("%s LIKE ? ESCAPE '\\'", expr)
}

// textCond builds the free-text predicate on expr. Negated forms stay true
// for rows where expr is NULL, which covers absent LEFT JOIN rows.
func textCond(expr, value string, not bool) (string, []any) {
	pattern, isNull := MakeTextSearchValue(value)
	switch {
	case isNull && not:
		return fmt.Sprintf("(%s IS NOT NULL AND %s <> '')", expr, expr), nil
	case isNull:
		return fmt.Sprintf("(%s IS NULL OR %s = '')", expr, expr), nil
	case pattern == "" && not:
		return fmt.Sprintf("(%s <> '')", expr), nil
	case pattern == "":
		return fmt.Sprintf("(%s = '' OR %s IS NULL)", expr, expr), nil
	case not:
		return fmt.Sprintf("(%s OR %s IS NULL)", likeCond(expr, true), expr), []any{pattern}
	default:
		return fmt.Sprintf("(%s)", likeCond(expr, false)), []any{pattern}
	}
}

// isExact reports whether a pattern carries no leading or trailing wildcard.
func isExact(pattern string) bool {
	return pattern != "" && !strings.HasPrefix(pattern, "%") && !strings.HasSuffix(pattern, "%")
}
