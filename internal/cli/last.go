package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/aidanlsb/assetsearch/internal/search"
	"github.com/aidanlsb/assetsearch/internal/searchstore"
	"github.com/aidanlsb/assetsearch/internal/ui"
)

var lastCmd = &cobra.Command{
	Use:   "last <itemtype>",
	Short: "Show the stored last search of an itemtype",
	Long: `Show the last search the session user ran on an itemtype. It is what
'asq search <itemtype>' restores when run without criteria.`,
	Args: exactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		sess, err := openStoreSession()
		if err != nil {
			return err
		}
		p, at, err := sess.engine.LastSearch(sess.context, args[0])
		if err != nil {
			return fmt.Errorf("no last search for %s: %w", args[0], err)
		}
		q, err := search.ToQuery(p)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if isJSONOutput() {
			outputSuccess(out, map[string]any{
				"user":      sess.context.User,
				"query":     q,
				"timestamp": at,
			}, nil, nil)
			return nil
		}
		fmt.Fprintf(out, "%s  %s\n", ui.Header(q.Itemtype), ui.Hint(at.Local().Format("2006-01-02 15:04:05")))
		writeQuery(out, q)
		return nil
	},
}

// writeQuery prints a stored query as key: value lines.
func writeQuery(out io.Writer, q searchstore.Query) {
	criteria := string(q.Criteria)
	if criteria == "" {
		criteria = "[]"
	}
	fmt.Fprintf(out, "criteria: %s\n", criteria)
	if len(q.Sort) > 0 {
		fmt.Fprintf(out, "sort:     %s\n", strings.Join(q.Sort, ", "))
	}
	if q.Deleted != "" {
		fmt.Fprintf(out, "deleted:  %s\n", q.Deleted)
	}
	if q.Start > 0 || q.Limit > 0 {
		fmt.Fprintf(out, "window:   start %d, limit %d\n", q.Start, q.Limit)
	}
}

func init() {
	rootCmd.AddCommand(lastCmd)
}
