package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aidanlsb/assetsearch/internal/inventory"
	"github.com/aidanlsb/assetsearch/internal/search"
	"github.com/aidanlsb/assetsearch/internal/searcherr"
	"github.com/aidanlsb/assetsearch/internal/searchstore"
)

// Error codes for structured error responses.
// These codes are stable and can be relied upon by scripts.
const (
	ErrConfigInvalid     = "CONFIG_INVALID"
	ErrQueryInvalid      = "QUERY_INVALID"
	ErrSearchUnavailable = "SEARCH_UNAVAILABLE"
	ErrDatabaseError     = "DATABASE_ERROR"
	ErrInventoryNotFound = "INVENTORY_NOT_FOUND"
	ErrNotFound          = "NOT_FOUND"
	ErrInvalidInput      = "INVALID_INPUT"
	ErrInternal          = "INTERNAL_ERROR"
)

// cliError carries an explicit error code and an optional hint.
type cliError struct {
	code       string
	suggestion string
	err        error
}

func (e *cliError) Error() string { return e.err.Error() }

func (e *cliError) Unwrap() error { return e.err }

func invalidInput(format string, args ...any) error {
	return &cliError{code: ErrInvalidInput, err: fmt.Errorf(format, args...)}
}

// classifyError maps an error to its code and a suggestion for the user.
func classifyError(err error) (code, suggestion string) {
	var ce *cliError
	if errors.As(err, &ce) {
		return ce.code, ce.suggestion
	}
	switch {
	case errors.Is(err, searcherr.ErrConfiguration):
		return ErrConfigInvalid, "Check the itemtype name and any catalog_files in the config"
	case errors.Is(err, searcherr.ErrInvalidCriterion):
		return ErrQueryInvalid, ""
	case errors.Is(err, searcherr.ErrJoinPlanning):
		return ErrSearchUnavailable, "The search options for this itemtype cannot be combined; remove a criterion or sort key"
	case errors.Is(err, searcherr.ErrDatabase), errors.Is(err, inventory.ErrLocked):
		return ErrDatabaseError, ""
	case errors.Is(err, searchstore.ErrNotFound):
		return ErrNotFound, ""
	case errors.Is(err, searchstore.ErrInvalidName), errors.Is(err, search.ErrNoStore):
		return ErrInvalidInput, ""
	default:
		return ErrInternal, ""
	}
}

// exactArgs is cobra.ExactArgs with a structured error.
func exactArgs(n int) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if err := cobra.ExactArgs(n)(cmd, args); err != nil {
			return &cliError{code: ErrInvalidInput, err: err, suggestion: "Usage: " + cmd.UseLine()}
		}
		return nil
	}
}

func flagError(cmd *cobra.Command, err error) error {
	return &cliError{code: ErrInvalidInput, err: err, suggestion: "Run '" + cmd.CommandPath() + " --help' for usage"}
}
