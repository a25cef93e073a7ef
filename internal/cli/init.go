package cli

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/aidanlsb/assetsearch/internal/config"
	"github.com/aidanlsb/assetsearch/internal/inventory"
	"github.com/aidanlsb/assetsearch/internal/ui"
)

var initForce bool

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create the config file and a demo inventory",
	Long: `Create the config file (unless it exists) and the SQLite inventory with
a small demo data set. With --force an existing inventory is replaced.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if dbPathFlag != "" {
			abs, err := filepath.Abs(dbPathFlag)
			if err != nil {
				return invalidInput("--db: %v", err)
			}
			dbPathFlag = abs
		}
		path, created, err := config.CreateDefault(configPath, dbPathFlag)
		if err != nil {
			return &cliError{code: ErrConfigInvalid, err: err}
		}
		configPath = path
		if err := loadGlobalConfig(cmd.ErrOrStderr()); err != nil {
			return err
		}

		dbPath := config.DatabasePath(dbPathFlag, resolvedConfigPath, getConfig())
		inv, err := inventory.Create(cmd.Context(), dbPath, initForce, inventory.WithLogger(logger))
		if err != nil {
			return &cliError{code: ErrDatabaseError, err: err}
		}
		defer inv.Close()

		reg, err := loadRegistry()
		if err != nil {
			return err
		}
		if err := inv.CheckRegistry(cmd.Context(), reg); err != nil {
			return &cliError{code: ErrConfigInvalid, err: err}
		}

		out := cmd.OutOrStdout()
		if isJSONOutput() {
			outputSuccess(out, map[string]any{
				"config":         path,
				"config_created": created,
				"database":       dbPath,
			}, nil, nil)
			return nil
		}
		if created {
			fmt.Fprintln(out, ui.Successf("Created config %s", path))
		} else {
			fmt.Fprintln(out, ui.Hint("Using existing config "+path))
		}
		fmt.Fprintln(out, ui.Successf("Inventory ready at %s", dbPath))
		fmt.Fprintln(out, ui.Hint("Try: asq search Computer -c 1:contains:pc"))
		return nil
	},
}

func init() {
	initCmd.Flags().BoolVar(&initForce, "force", false, "Replace an existing inventory")
	rootCmd.AddCommand(initCmd)
}
