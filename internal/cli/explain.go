package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/aidanlsb/assetsearch/internal/assemble"
	"github.com/aidanlsb/assetsearch/internal/searcherr"
	"github.com/aidanlsb/assetsearch/internal/ui"
)

var (
	explainFlags requestFlags
	explainHTML  bool
	explainRaw   bool
)

var explainCmd = &cobra.Command{
	Use:   "explain <itemtype>",
	Short: "Show the SQL a search would run",
	Long: `Build the statement for a search without running it and describe it:
the paged statement, the count statement, planned joins and columns.

Output is rendered markdown on a terminal, plain markdown with --raw or when
piped, and an HTML fragment with --html. Takes the same flags as search.`,
	Args: exactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := explainFlags.params(args[0])
		if err != nil {
			return err
		}
		sess, err := openStoreSession()
		if err != nil {
			return err
		}
		plan, skipped, err := sess.engine.Plan(sess.context, p)
		if err != nil {
			return err
		}
		ex, err := describePlan(plan, skipped)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if isJSONOutput() {
			outputSuccess(out, ex, nil, &Meta{Count: len(ex.Joins)})
			return nil
		}

		doc := ex.markdown()
		display := ui.NewDisplay()
		switch {
		case explainHTML:
			html, err := ui.RenderHTML(doc)
			if err != nil {
				return err
			}
			fmt.Fprint(out, html)
		case explainRaw || !display.IsTTY:
			fmt.Fprint(out, doc)
		default:
			rendered, err := ui.RenderMarkdown(doc, display.Width)
			if err != nil {
				return err
			}
			fmt.Fprint(out, rendered)
		}
		return nil
	},
}

type explainJoin struct {
	Alias string `json:"alias"`
	Table string `json:"table"`
	On    string `json:"on"`
}

type explainColumn struct {
	Key        string `json:"key"`
	Name       string `json:"name"`
	Datatype   string `json:"datatype"`
	Aggregated bool   `json:"aggregated,omitempty"`
}

type explanation struct {
	Itemtype  string          `json:"itemtype"`
	SQL       string          `json:"sql"`
	Args      []any           `json:"args"`
	CountSQL  string          `json:"count_sql"`
	Debug     string          `json:"debug"`
	Grouped   bool            `json:"grouped"`
	Joins     []explainJoin   `json:"joins"`
	Columns   []explainColumn `json:"columns"`
	OrderBy   []string        `json:"order_by,omitempty"`
	Skipped   []string        `json:"skipped,omitempty"`
	Regrouped []string        `json:"regrouped,omitempty"`
	StartRow  int             `json:"start"`
	PageLimit int             `json:"limit"`
}

func describePlan(plan *assemble.Plan, skipped []*searcherr.InvalidCriterionError) (*explanation, error) {
	stmt, args, err := plan.SQL()
	if err != nil {
		return nil, err
	}
	count, _, err := plan.CountSQL()
	if err != nil {
		return nil, err
	}
	ex := &explanation{
		Itemtype:  plan.Itemtype,
		SQL:       stmt,
		Args:      args,
		CountSQL:  count,
		Debug:     plan.Debug(),
		Grouped:   plan.Grouped,
		OrderBy:   plan.OrderBy,
		StartRow:  plan.Start,
		PageLimit: plan.Limit,
		Joins:     make([]explainJoin, 0, len(plan.Joins)),
		Columns:   make([]explainColumn, 0, len(plan.Columns)),
	}
	for _, j := range plan.Joins {
		ex.Joins = append(ex.Joins, explainJoin{Alias: j.Alias, Table: j.Table, On: j.On})
	}
	for _, c := range plan.Columns {
		ex.Columns = append(ex.Columns, explainColumn{Key: c.Key, Name: c.Name, Datatype: string(c.Datatype), Aggregated: c.Aggregated})
	}
	for _, s := range skipped {
		ex.Skipped = append(ex.Skipped, s.Error())
	}
	for _, r := range plan.Regrouped {
		ex.Regrouped = append(ex.Regrouped, regroupedWarning(r).Message)
	}
	return ex, nil
}

func (ex *explanation) markdown() string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s search\n\n", ex.Itemtype)

	if len(ex.Skipped) > 0 {
		b.WriteString("Skipped criteria:\n\n")
		for _, s := range ex.Skipped {
			fmt.Fprintf(&b, "- %s\n", s)
		}
		b.WriteString("\n")
	}
	for _, r := range ex.Regrouped {
		fmt.Fprintf(&b, "> %s\n\n", r)
	}

	b.WriteString("## Statement\n\n```sql\n")
	b.WriteString(ex.Debug)
	b.WriteString("\n```\n\n")
	b.WriteString("## Count\n\n```sql\n")
	b.WriteString(ex.CountSQL)
	b.WriteString("\n```\n\n")

	if len(ex.Joins) > 0 {
		b.WriteString("## Joins\n\n| Alias | Table | On |\n|---|---|---|\n")
		for _, j := range ex.Joins {
			fmt.Fprintf(&b, "| `%s` | %s | `%s` |\n", j.Alias, j.Table, mdCell(j.On))
		}
		b.WriteString("\n")
	}

	b.WriteString("## Columns\n\n| Key | Name | Type | Aggregated |\n|---|---|---|---|\n")
	for _, c := range ex.Columns {
		agg := ""
		if c.Aggregated {
			agg = "yes"
		}
		fmt.Fprintf(&b, "| `%s` | %s | %s | %s |\n", c.Key, mdCell(c.Name), c.Datatype, agg)
	}
	if ex.Grouped {
		b.WriteString("\nRows are grouped by the primary key.\n")
	}
	return b.String()
}

func mdCell(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}

func init() {
	explainFlags.register(explainCmd)
	explainCmd.Flags().BoolVar(&explainHTML, "html", false, "Output an HTML fragment")
	explainCmd.Flags().BoolVar(&explainRaw, "raw", false, "Output plain markdown")
	rootCmd.AddCommand(explainCmd)
}
