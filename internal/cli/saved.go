package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aidanlsb/assetsearch/internal/ui"
)

var savedFlags requestFlags

var savedCmd = &cobra.Command{
	Use:   "saved",
	Short: "Manage saved searches",
}

var savedSaveCmd = &cobra.Command{
	Use:   "save <name> <itemtype>",
	Short: "Save a search under a name",
	Long: `Save a search under a name. Takes the same criteria flags as search.
Saving under an existing name replaces it.`,
	Args: exactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := savedFlags.params(args[1])
		if err != nil {
			return err
		}
		sess, err := openStoreSession()
		if err != nil {
			return err
		}
		b, err := sess.engine.SaveBookmark(sess.context, args[0], p)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if isJSONOutput() {
			outputSuccess(out, b, nil, nil)
			return nil
		}
		fmt.Fprintln(out, ui.Successf("Saved %q (%s)", b.Name, b.Query.Itemtype))
		return nil
	},
}

var savedListCmd = &cobra.Command{
	Use:   "list",
	Short: "List saved searches",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		sess, err := openStoreSession()
		if err != nil {
			return err
		}
		list, err := sess.engine.Bookmarks(sess.context)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if isJSONOutput() {
			outputSuccess(out, map[string]any{"bookmarks": list}, nil, &Meta{Count: len(list)})
			return nil
		}
		if len(list) == 0 {
			fmt.Fprintln(out, ui.Hint("No saved searches. Create one with 'asq saved save <name> <itemtype> -c ...'"))
			return nil
		}
		writeTable(out, ui.BookmarksTable(ui.NewDisplay(), list))
		return nil
	},
}

var savedRunCmd = &cobra.Command{
	Use:   "run <name>",
	Short: "Run a saved search",
	Args:  exactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		sess, err := openSession(cmd.Context(), false)
		if err != nil {
			return err
		}
		defer sess.Close()

		resp, err := sess.engine.RunBookmark(cmd.Context(), sess.context, args[0])
		if err != nil {
			return err
		}
		return writeResponse(cmd, resp)
	},
}

var savedDeleteCmd = &cobra.Command{
	Use:   "delete <name>",
	Short: "Delete a saved search",
	Args:  exactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		sess, err := openStoreSession()
		if err != nil {
			return err
		}
		if err := sess.engine.DeleteBookmark(sess.context, args[0]); err != nil {
			return fmt.Errorf("saved search %q: %w", args[0], err)
		}
		out := cmd.OutOrStdout()
		if isJSONOutput() {
			outputSuccess(out, map[string]string{"deleted": args[0]}, nil, nil)
			return nil
		}
		fmt.Fprintln(out, ui.Successf("Deleted %q", args[0]))
		return nil
	},
}

func init() {
	savedFlags.register(savedSaveCmd)
	savedCmd.AddCommand(savedSaveCmd, savedListCmd, savedRunCmd, savedDeleteCmd)
	rootCmd.AddCommand(savedCmd)
}
