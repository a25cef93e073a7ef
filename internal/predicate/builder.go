// Package predicate turns normalized criteria into parameterized SQL
// boolean fragments for the WHERE or HAVING clause.
package predicate

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/aidanlsb/assetsearch/internal/criteria"
	"github.com/aidanlsb/assetsearch/internal/dates"
	"github.com/aidanlsb/assetsearch/internal/searcherr"
	"github.com/aidanlsb/assetsearch/internal/searchopt"
)

// Target is the clause a fragment belongs to.
type Target int

const (
	Where Target = iota
	Having
)

func (t Target) String() string {
	if t == Having {
		return "HAVING"
	}
	return "WHERE"
}

// Fragment is a SQL boolean expression with its positional arguments.
type Fragment struct {
	SQL    string
	Args   []any
	Target Target
}

// IsEmpty reports whether the fragment carries no condition.
func (f Fragment) IsEmpty() bool { return f.SQL == "" }

var (
	identRegex      = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)
	comparatorRegex = regexp.MustCompile(`^([<>])(=*)\s*(.+)$`)
)

// TargetOf returns where a leaf's predicate goes. Aggregated fields, and
// negated criteria on fields with several values per item, are filtered
// after grouping.
func TargetOf(leaf *criteria.Resolved) Target {
	opt := leaf.Option
	if aggregated(opt) {
		return Having
	}
	if leaf.Negated() && (leaf.Meta || opt.Flags.ForceGroupBy) {
		return Having
	}
	return Where
}

func aggregated(opt *searchopt.Option) bool {
	return opt.Flags.UseHaving || opt.Datatype == searchopt.TypeCount
}

// onConcat reports whether a negated HAVING leaf can test the concatenated
// select column directly. That holds for unanchored text patterns only: a
// substring of the joined values is a substring of one of them.
func onConcat(leaf *criteria.Resolved) bool {
	switch leaf.Option.Datatype {
	case searchopt.TypeString, searchopt.TypeText, searchopt.TypeIP:
	default:
		return false
	}
	if leaf.SearchType.Positive() != criteria.Contains || strings.Contains(leaf.Value, ",") {
		return false
	}
	pattern, isNull := MakeTextSearchValue(leaf.Value)
	return !isNull && len(pattern) > 1 &&
		strings.HasPrefix(pattern, "%") && strings.HasSuffix(pattern, "%")
}

// noneMatch turns a per-row condition into a group condition that holds
// when no related row satisfies it, including when there is none.
func noneMatch(cond string) string {
	return fmt.Sprintf("(COALESCE(MAX(%s), 0) = 0)", cond)
}

// Builder builds leaf predicates. Now anchors relative date tokens.
type Builder struct {
	now time.Time
}

// NewBuilder creates a Builder resolving relative dates against now.
func NewBuilder(now time.Time) *Builder {
	return &Builder{now: now}
}

// Leaf builds the predicate of one leaf. tableAlias is the alias under which
// the option's table is joined. HAVING fragments reference the aggregated
// select column, or aggregate the per-row condition when the column cannot
// answer it. Bad values yield *searcherr.InvalidCriterionError.
func (b *Builder) Leaf(leaf *criteria.Resolved, tableAlias string) (Fragment, error) {
	opt := leaf.Option
	if !identRegex.MatchString(tableAlias) || !identRegex.MatchString(opt.Field) {
		return Fragment{}, &searcherr.ConfigurationError{Itemtype: opt.Itemtype, FieldID: opt.ID, Message: "invalid column identifier"}
	}

	target := TargetOf(leaf)
	expr := columnExpr(opt, tableAlias)
	perRow := true
	if target == Having && (aggregated(opt) || onConcat(leaf)) {
		expr = searchopt.ColumnKey(opt.Itemtype, opt.ID)
		perRow = false
	}
	// Negated per-row leaves in HAVING are built positive and wrapped.
	grouped := target == Having && perRow

	not := leaf.Negated() && !grouped
	st := leaf.SearchType.Positive()
	value := strings.TrimSpace(leaf.Value)

	var (
		sql  string
		args []any
		err  error
	)
	switch {
	case opt.Datatype == searchopt.TypeCount || opt.Datatype.IsNumeric():
		sql, args, err = numberCond(expr, st, value, not)
	case opt.Datatype == searchopt.TypeBool:
		sql, args, err = boolCond(expr, value, not)
	case opt.Datatype.IsTemporal():
		sql, args, err = b.dateCond(opt, expr, st, leaf.Value, not)
	case opt.Datatype == searchopt.TypeRight:
		sql, args, err = rightCond(expr, value, not)
	case opt.Datatype == searchopt.TypeDropdown && perRow:
		sql, args, err = dropdownCond(opt, tableAlias, expr, st, leaf.Value, not)
	default:
		if st != criteria.Contains && st != criteria.Equals {
			err = fmt.Errorf("searchtype %s not supported", leaf.SearchType)
			break
		}
		v := leaf.Value
		if st == criteria.Equals {
			v = "^" + strings.TrimSpace(v) + "$"
		}
		sql, args = textCond(expr, v, not)
	}
	if err != nil {
		return Fragment{}, &searcherr.InvalidCriterionError{
			Itemtype:   opt.Itemtype,
			Field:      strconv.Itoa(opt.ID),
			SearchType: string(leaf.SearchType),
			Value:      leaf.Value,
			Reason:     err.Error(),
		}
	}
	if grouped {
		sql = noneMatch(sql)
	}
	return Fragment{SQL: sql, Args: args, Target: target}, nil
}

// columnExpr is the SQL expression holding an option's value.
func columnExpr(opt *searchopt.Option, alias string) string {
	col := alias + "." + opt.Field
	if opt.Datatype == searchopt.TypeDateDelay && opt.Delay != nil {
		return fmt.Sprintf("date(%s, '+' || %s.%s || ' %s')", col, alias, opt.Delay.DurationField, delayUnit(opt.Delay.Unit))
	}
	return col
}

// ColumnExpr exposes columnExpr to the assembler.
func ColumnExpr(opt *searchopt.Option, alias string) string { return columnExpr(opt, alias) }

func delayUnit(unit string) string {
	switch strings.ToUpper(unit) {
	case "DAY":
		return "days"
	case "YEAR":
		return "years"
	default:
		return "months"
	}
}

// negate wraps cond so it also holds when expr is NULL.
func negate(cond, expr string) string {
	return fmt.Sprintf("(NOT (%s) OR %s IS NULL)", cond, expr)
}

func compareOp(st criteria.SearchType) string {
	switch st {
	case criteria.LessThan:
		return "<"
	case criteria.MoreThan:
		return ">"
	default:
		return "="
	}
}

func numberCond(expr string, st criteria.SearchType, value string, not bool) (string, []any, error) {
	op := compareOp(st)
	raw := value
	if st == criteria.Contains {
		if m := comparatorRegex.FindStringSubmatch(value); m != nil {
			op = m[1]
			if m[2] != "" {
				op += "="
			}
			raw = m[3]
		}
	}
	n, err := parseNumber(raw)
	if err != nil {
		return "", nil, err
	}
	cond := fmt.Sprintf("%s %s ?", expr, op)
	if not {
		return negate(cond, expr), []any{n}, nil
	}
	return "(" + cond + ")", []any{n}, nil
}

func parseNumber(s string) (any, error) {
	s = strings.TrimSpace(s)
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return i, nil
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f, nil
	}
	return nil, fmt.Errorf("%q is not a number", s)
}

var boolLabels = map[string]int{
	"1": 1, "yes": 1, "true": 1,
	"0": 0, "no": 0, "false": 0,
}

func boolCond(expr, value string, not bool) (string, []any, error) {
	v, ok := boolLabels[strings.ToLower(value)]
	if !ok {
		return "", nil, fmt.Errorf("%q is not a boolean", value)
	}
	if not {
		return fmt.Sprintf("(%s <> ? OR %s IS NULL)", expr, expr), []any{v}, nil
	}
	return fmt.Sprintf("(%s = ?)", expr), []any{v}, nil
}

func rightCond(expr, value string, not bool) (string, []any, error) {
	mask, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return "", nil, fmt.Errorf("%q is not a rights mask", value)
	}
	if not {
		return fmt.Sprintf("((%s & ?) = 0 OR %s IS NULL)", expr, expr), []any{mask}, nil
	}
	return fmt.Sprintf("((%s & ?) <> 0)", expr), []any{mask}, nil
}

func (b *Builder) dateCond(opt *searchopt.Option, expr string, st criteria.SearchType, value string, not bool) (string, []any, error) {
	asDatetime := opt.Datatype == searchopt.TypeDatetime
	op := compareOp(st)
	raw := strings.TrimSpace(value)

	if st == criteria.Contains {
		m := comparatorRegex.FindStringSubmatch(raw)
		if m == nil {
			if _, err := dates.ParseSearchValue(raw, b.now); err != nil {
				sql, args := textCond(expr, value, not)
				return sql, args, nil
			}
		} else {
			op = m[1]
			if m[2] != "" {
				op += "="
			}
			raw = m[3]
		}
	}

	v, err := dates.ParseSearchValue(raw, b.now)
	if err != nil {
		return "", nil, err
	}

	lhs := expr
	if op == "=" && asDatetime && !v.HasTime {
		lhs = fmt.Sprintf("date(%s)", expr)
		asDatetime = false
	}
	cond := fmt.Sprintf("%s %s ?", lhs, op)
	arg := v.Format(asDatetime)
	if not {
		return negate(cond, expr), []any{arg}, nil
	}
	return "(" + cond + ")", []any{arg}, nil
}

// dropdownCond matches the joined table's display column for contains, its
// id for equals, and the subtree of a node for under.
func dropdownCond(opt *searchopt.Option, alias, expr string, st criteria.SearchType, value string, not bool) (string, []any, error) {
	idCol := alias + ".id"
	switch st {
	case criteria.Equals:
		id, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64)
		if err != nil {
			return "", nil, fmt.Errorf("%q is not an id", value)
		}
		if id == 0 {
			if not {
				return fmt.Sprintf("(%s IS NOT NULL)", idCol), nil, nil
			}
			return fmt.Sprintf("(%s IS NULL)", idCol), nil, nil
		}
		if not {
			return fmt.Sprintf("(%s <> ? OR %s IS NULL)", idCol, idCol), []any{id}, nil
		}
		return fmt.Sprintf("(%s = ?)", idCol), []any{id}, nil

	case criteria.Under:
		id, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64)
		if err != nil {
			return "", nil, fmt.Errorf("%q is not an id", value)
		}
		cond := fmt.Sprintf("%s = ? OR %s.completename LIKE (SELECT completename FROM %s WHERE id = ?) || ' > %%'",
			idCol, alias, opt.Table)
		if not {
			return negate(cond, idCol), []any{id, id}, nil
		}
		return "(" + cond + ")", []any{id, id}, nil

	case criteria.Contains:
		if opt.Order == searchopt.OrderUserName {
			return userNameCond(alias, value, not)
		}
		if opt.Tree {
			if pattern, isNull := MakeTextSearchValue(value); !isNull && isExact(pattern) {
				cond := fmt.Sprintf("%s OR %s", likeCond(expr, false), likeCond(expr, false))
				args := []any{pattern, pattern + " > %"}
				if not {
					return negate(cond, expr), args, nil
				}
				return "(" + cond + ")", args, nil
			}
		}
		sql, args := textCond(expr, value, not)
		return sql, args, nil
	}
	return "", nil, fmt.Errorf("searchtype %s not supported for dropdowns", st)
}

// userNameCond searches a user by login, surname, first name or full name.
func userNameCond(alias, value string, not bool) (string, []any, error) {
	pattern, isNull := MakeTextSearchValue(value)
	if isNull || pattern == "" {
		sql, args := textCond(alias+".name", value, not)
		return sql, args, nil
	}
	exprs := []string{
		alias + ".name",
		fmt.Sprintf("COALESCE(%s.realname, '')", alias),
		fmt.Sprintf("COALESCE(%s.firstname, '')", alias),
		fmt.Sprintf("COALESCE(%s.realname, '') || ' ' || COALESCE(%s.firstname, '')", alias, alias),
	}
	parts := make([]string, len(exprs))
	args := make([]any, len(exprs))
	for i, e := range exprs {
		parts[i] = likeCond(e, false)
		args[i] = pattern
	}
	cond := strings.Join(parts, " OR ")
	if not {
		return negate(cond, alias+".id"), args, nil
	}
	return "(" + cond + ")", args, nil
}
