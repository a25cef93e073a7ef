package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/aidanlsb/assetsearch/internal/assemble"
	"github.com/aidanlsb/assetsearch/internal/criteria"
	"github.com/aidanlsb/assetsearch/internal/search"
)

// requestFlags are the search request flags shared by search, explain and
// saved save.
type requestFlags struct {
	criteria     criterionFlag
	criteriaJSON string
	metaJSON     string
	sort         sortFlag
	start        int
	limit        int
	deleted      deletedFlag
	reset        bool
	debug        bool
}

func (f *requestFlags) register(cmd *cobra.Command) {
	fs := cmd.Flags()
	fs.VarP(&f.criteria, "criterion", "c", "Criterion [and|or|not] [Itemtype.]field:searchtype:value (repeatable)")
	fs.StringVar(&f.criteriaJSON, "criteria", "", "Criteria as JSON, or @file")
	fs.StringVar(&f.metaJSON, "meta", "", "Meta criteria as JSON, or @file")
	fs.Var(&f.sort, "sort", "Sort by option id, e.g. 5:desc (repeatable)")
	fs.IntVar(&f.start, "start", 0, "Row offset")
	fs.IntVar(&f.limit, "limit", 0, "Rows per page (default from config)")
	fs.Var(&f.deleted, "deleted", "Deleted rows: 0, 1 or any")
	fs.BoolVar(&f.reset, "reset", false, "Ignore the stored last search")
	fs.BoolVar(&f.debug, "debug", false, "Show the generated SQL")
}

// params builds the request for itemtype. JSON criteria come first, then -c
// criteria in order.
func (f *requestFlags) params(itemtype string) (search.Params, error) {
	p := search.Params{
		Itemtype: itemtype,
		Sort:     append([]assemble.SortSpec(nil), f.sort.specs...),
		Start:    f.start,
		Limit:    f.limit,
		Deleted:  f.deleted.value,
		Reset:    f.reset,
	}

	if f.criteriaJSON != "" {
		list, err := parseCriteriaArg("criteria", f.criteriaJSON)
		if err != nil {
			return search.Params{}, err
		}
		p.Criteria = list
	}
	if f.metaJSON != "" {
		list, err := parseCriteriaArg("meta", f.metaJSON)
		if err != nil {
			return search.Params{}, err
		}
		p.MetaCriteria = list
	}
	plain, meta := f.criteria.split(itemtype)
	p.Criteria = append(p.Criteria, plain...)
	p.MetaCriteria = append(p.MetaCriteria, meta...)
	return p, nil
}

func parseCriteriaArg(flag, value string) ([]criteria.Criterion, error) {
	data := []byte(value)
	if path, ok := strings.CutPrefix(value, "@"); ok {
		var err error
		data, err = os.ReadFile(path)
		if err != nil {
			return nil, invalidInput("--%s: %v", flag, err)
		}
	}
	list, err := criteria.Parse(data)
	if err != nil {
		return nil, &cliError{code: ErrQueryInvalid, err: fmt.Errorf("--%s: %w", flag, err)}
	}
	return list, nil
}
