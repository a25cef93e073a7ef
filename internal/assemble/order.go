package assemble

import (
	"fmt"

	"github.com/aidanlsb/assetsearch/internal/searchopt"
)

type orderTarget struct {
	column     Column
	tableAlias string
	direction  string
	nameFormat NameFormat
}

// orderFunc returns ORDER BY terms for a column, or nil to fall back to the
// generic ORDER BY <column key> rule.
type orderFunc func(t orderTarget) []string

var orderOverrides = map[searchopt.OrderKind]orderFunc{
	searchopt.OrderIP:       orderIP,
	searchopt.OrderUserName: orderUserName,
}

// orderIP sorts dotted quads numerically.
func orderIP(t orderTarget) []string {
	expr := fmt.Sprintf("INET_ATON(%s.%s)", t.tableAlias, t.column.Option.Field)
	if t.column.Aggregated {
		expr = "MIN(" + expr + ")"
	}
	return []string{expr + " " + t.direction}
}

// orderUserName sorts people by surname and first name in the session's
// preferred order, then by login.
func orderUserName(t orderTarget) []string {
	if t.column.Aggregated {
		return nil
	}
	first, second := "realname", "firstname"
	if t.nameFormat == FirstnameFirst {
		first, second = second, first
	}
	a := t.tableAlias
	return []string{
		fmt.Sprintf("%s.%s %s", a, first, t.direction),
		fmt.Sprintf("%s.%s %s", a, second, t.direction),
		fmt.Sprintf("%s.name %s", a, t.direction),
	}
}

func orderTerms(t orderTarget) []string {
	if fn, ok := orderOverrides[t.column.Option.Order]; ok {
		if terms := fn(t); terms != nil {
			return terms
		}
	}
	return []string{t.column.Key + " " + t.direction}
}
