package cli

import (
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/aidanlsb/assetsearch/internal/criteria"
	"github.com/aidanlsb/assetsearch/internal/results"
	"github.com/aidanlsb/assetsearch/internal/search"
	"github.com/aidanlsb/assetsearch/internal/ui"
)

var searchFlags requestFlags

var searchCmd = &cobra.Command{
	Use:   "search <itemtype>",
	Short: "Search an itemtype",
	Long: `Search rows of an itemtype (Computer, Software, Printer, User, Ticket, ...).

Criteria are given with -c as field:searchtype:value, where field is a search
option id (see 'asq options <itemtype>'), "view" or "all". Prefix with and, or,
not, "and not" or "or not" to set the link to the previous criterion, and with
Itemtype. to search a related itemtype:

  asq search Computer -c 1:contains:pc -c "not 23:contains:Dell"
  asq search Computer -c "Software.72:contains:>0" --sort 5:desc

Nested groups are given as JSON with --criteria. Without any criteria, the
last search on the itemtype is restored unless --reset is set.`,
	Args: exactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := searchFlags.params(args[0])
		if err != nil {
			return err
		}
		sess, err := openSession(cmd.Context(), searchFlags.debug)
		if err != nil {
			return err
		}
		defer sess.Close()

		resp, err := sess.engine.Search(cmd.Context(), sess.context, p)
		if err != nil {
			return err
		}
		return writeResponse(cmd, resp)
	},
}

type searchData struct {
	Itemtype string `json:"itemtype"`
	*results.ResultSet
	SQL string `json:"sql,omitempty"`
}

// writeResponse prints a search response as a table or a JSON envelope.
func writeResponse(cmd *cobra.Command, resp *search.Response) error {
	out := cmd.OutOrStdout()
	warnings := skippedWarnings(resp)

	if isJSONOutput() {
		outputSuccess(out, searchData{Itemtype: resp.Itemtype, ResultSet: resp.Result, SQL: resp.SQL}, warnings, &Meta{
			Count:       resp.Result.Count,
			Total:       resp.Result.TotalCount,
			QueryTimeMs: resp.Duration.Milliseconds(),
			Restored:    resp.Restored,
		})
		return nil
	}

	errOut := cmd.ErrOrStderr()
	for _, w := range warnings {
		fmt.Fprintln(errOut, ui.Warningf("%s", w.Message))
	}
	if resp.Restored {
		fmt.Fprintln(errOut, ui.Hint("restored last search; use --reset to start over"))
	}
	if resp.SQL != "" {
		fmt.Fprintln(errOut, ui.Hint(resp.SQL))
	}

	rs := resp.Result
	fmt.Fprintf(out, "%s  %s\n", ui.Header(resp.Itemtype), ui.Hint(ui.PageSummary(rs.Begin, rs.End, rs.TotalCount)))
	if rs.Count == 0 {
		return nil
	}
	writeTable(out, ui.ResultTable(ui.NewDisplay(), rs))
	return nil
}

func writeTable(out io.Writer, t *ui.Table) {
	fmt.Fprintln(out, t.Render())
}

func skippedWarnings(resp *search.Response) []Warning {
	if len(resp.Skipped)+len(resp.Regrouped) == 0 {
		return nil
	}
	out := make([]Warning, 0, len(resp.Skipped)+len(resp.Regrouped))
	for _, s := range resp.Skipped {
		out = append(out, Warning{Code: "CRITERION_SKIPPED", Message: s.Error(), Field: s.Field})
	}
	for _, r := range resp.Regrouped {
		out = append(out, regroupedWarning(r))
	}
	return out
}

func regroupedWarning(r *criteria.Resolved) Warning {
	return Warning{
		Code:    "LINK_REGROUPED",
		Message: fmt.Sprintf("%s field %d is filtered after grouping; its OR with other criteria applies as AND", r.Option.Itemtype, r.Option.ID),
		Field:   strconv.Itoa(r.Option.ID),
	}
}

func init() {
	searchFlags.register(searchCmd)
	rootCmd.AddCommand(searchCmd)
}
