package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/pflag"

	"github.com/aidanlsb/assetsearch/internal/assemble"
	"github.com/aidanlsb/assetsearch/internal/criteria"
)

// criterionFlag collects -c values of the form
//
//	[and|or|not|and not|or not] [Itemtype.]field:searchtype:value
//
// A leading Itemtype different from the searched one makes a meta criterion.
// The value is everything after the second colon and may contain colons.
type criterionFlag struct {
	raw    []string
	leaves []*criteria.Leaf
}

var _ pflag.Value = (*criterionFlag)(nil)

func (f *criterionFlag) String() string { return strings.Join(f.raw, ", ") }

func (f *criterionFlag) Type() string { return "criterion" }

func (f *criterionFlag) Set(s string) error {
	leaf, err := parseCriterion(s)
	if err != nil {
		return err
	}
	f.raw = append(f.raw, s)
	f.leaves = append(f.leaves, leaf)
	return nil
}

// split returns the plain and meta criteria for itemtype.
func (f *criterionFlag) split(itemtype string) (plain, meta []criteria.Criterion) {
	for _, l := range f.leaves {
		c := *l
		if c.Itemtype != "" && c.Itemtype != itemtype {
			meta = append(meta, &c)
			continue
		}
		c.Itemtype = ""
		plain = append(plain, &c)
	}
	return plain, meta
}

var linkPrefixes = []struct {
	prefix string
	link   criteria.Link
}{
	// Longest first so "and not" wins over "and".
	{"and not ", criteria.LinkAndNot},
	{"or not ", criteria.LinkOrNot},
	{"and ", criteria.LinkAnd},
	{"or ", criteria.LinkOr},
	{"not ", criteria.LinkAndNot},
}

func parseCriterion(s string) (*criteria.Leaf, error) {
	rest := strings.TrimSpace(s)
	leaf := &criteria.Leaf{Link: criteria.LinkAnd}
	lower := strings.ToLower(rest)
	for _, p := range linkPrefixes {
		if strings.HasPrefix(lower, p.prefix) {
			leaf.Link = p.link
			rest = strings.TrimSpace(rest[len(p.prefix):])
			break
		}
	}

	parts := strings.SplitN(rest, ":", 3)
	if len(parts) < 2 {
		return nil, fmt.Errorf("invalid criterion %q (want field:searchtype:value)", s)
	}
	field := strings.TrimSpace(parts[0])
	if itemtype, id, ok := strings.Cut(field, "."); ok {
		leaf.Itemtype = strings.TrimSpace(itemtype)
		field = id
	}
	ref, err := criteria.ParseFieldRef(field)
	if err != nil {
		return nil, fmt.Errorf("invalid criterion %q: %w", s, err)
	}
	leaf.Field = ref
	leaf.SearchType = criteria.SearchType(strings.ToLower(strings.TrimSpace(parts[1])))
	if len(parts) == 3 {
		leaf.Value = parts[2]
	}
	return leaf, nil
}

// sortFlag collects --sort values "id[:asc|desc]", repeatable or comma
// separated.
type sortFlag struct {
	specs []assemble.SortSpec
}

var _ pflag.Value = (*sortFlag)(nil)

func (f *sortFlag) String() string {
	out := make([]string, len(f.specs))
	for i, s := range f.specs {
		out[i] = s.String()
	}
	return strings.Join(out, ",")
}

func (f *sortFlag) Type() string { return "id[:dir]" }

func (f *sortFlag) Set(s string) error {
	for _, part := range strings.Split(s, ",") {
		if strings.TrimSpace(part) == "" {
			continue
		}
		spec, err := assemble.ParseSortSpec(part)
		if err != nil {
			return err
		}
		f.specs = append(f.specs, spec)
	}
	return nil
}

// deletedFlag is the is_deleted tri-state: 0, 1 or any.
type deletedFlag struct {
	value assemble.Deleted
}

var _ pflag.Value = (*deletedFlag)(nil)

func (f *deletedFlag) String() string { return f.value.String() }

func (f *deletedFlag) Type() string { return "0|1|any" }

func (f *deletedFlag) Set(s string) error {
	d, err := assemble.ParseDeleted(s)
	if err != nil {
		return err
	}
	f.value = d
	return nil
}
