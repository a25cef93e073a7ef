// Package cli implements the command-line interface.
package cli

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/aidanlsb/assetsearch/internal/config"
	"github.com/aidanlsb/assetsearch/internal/logging"
	"github.com/aidanlsb/assetsearch/internal/ui"
)

var (
	// Global flags
	configPath   string
	dbPathFlag   string
	userFlag     string
	logLevelFlag string

	// Resolved values
	resolvedConfigPath string
	cfg                *config.Config
	logger             = zerolog.Nop()
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "asq",
	Short: "asq - search an asset inventory",
	Long: `asq searches an IT asset inventory (computers, software, printers, users,
tickets, contracts) through declarative search options.

Criteria are combined with AND/OR/NOT, can be nested, and can reach into
related itemtypes through meta criteria.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		switch cmd.Name() {
		case "init", "completion", "help", "version":
			return nil
		}
		return loadGlobalConfig(cmd.ErrOrStderr())
	},
}

// Execute runs the CLI.
func Execute() error {
	return run(os.Args[1:], os.Stdout, os.Stderr)
}

// run executes args and reports a failure as a JSON envelope or a message
// on stderr.
func run(args []string, stdout, stderr io.Writer) error {
	rootCmd.SetArgs(args)
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)

	err := rootCmd.Execute()
	if err == nil {
		return nil
	}
	code, suggestion := classifyError(err)
	if jsonOutput {
		outputError(stdout, code, err.Error(), suggestion)
		return err
	}
	fmt.Fprintln(stderr, ui.Errorf("%v", err))
	if suggestion != "" {
		fmt.Fprintln(stderr, ui.Hint(suggestion))
	}
	return err
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to config file")
	rootCmd.PersistentFlags().StringVar(&dbPathFlag, "db", "", "Path to the inventory database (overrides database in config)")
	rootCmd.PersistentFlags().StringVarP(&userFlag, "user", "u", "", "Session user for last searches and bookmarks")
	rootCmd.PersistentFlags().StringVar(&logLevelFlag, "log-level", "", "Log level: debug, info, warn, error, disabled")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output in JSON format (for agent/script use)")
	rootCmd.SetFlagErrorFunc(flagError)
}

// loadGlobalConfig loads the config file, applies the theme and builds the
// logger.
func loadGlobalConfig(stderr io.Writer) error {
	resolvedConfigPath = config.ResolveConfigPath(configPath)

	var err error
	if strings.TrimSpace(configPath) != "" {
		cfg, err = config.LoadFrom(configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return &cliError{code: ErrConfigInvalid, err: err}
	}
	if cfg == nil {
		cfg = &config.Config{}
	}
	ui.ConfigureTheme(cfg.UI.Accent, cfg.UI.CodeTheme)

	levelName := cfg.Log.Level
	if logLevelFlag != "" {
		levelName = logLevelFlag
	}
	level, err := logging.ParseLevel(levelName)
	if err != nil {
		return &cliError{code: ErrConfigInvalid, err: err}
	}
	if jsonOutput {
		logger = logging.NewJSON(stderr, level)
	} else {
		logger = logging.New(stderr, level)
	}
	return nil
}

// getConfig returns the loaded config.
func getConfig() *config.Config {
	if cfg == nil {
		return &config.Config{}
	}
	return cfg
}
