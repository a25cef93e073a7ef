package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/aidanlsb/assetsearch/internal/assemble"
	"github.com/aidanlsb/assetsearch/internal/config"
	"github.com/aidanlsb/assetsearch/internal/inventory"
	"github.com/aidanlsb/assetsearch/internal/search"
	"github.com/aidanlsb/assetsearch/internal/searchopt"
	"github.com/aidanlsb/assetsearch/internal/searchstore"
)

// session bundles what a command needs to search: the inventory, the engine
// and the caller's search context.
type session struct {
	inv     *inventory.DB
	engine  *search.Engine
	context search.Context
}

func (s *session) Close() {
	if s.inv != nil {
		_ = s.inv.Close()
	}
}

// loadRegistry builds the built-in catalog plus any configured catalog files.
func loadRegistry() (*searchopt.Registry, error) {
	reg, err := searchopt.Builtin()
	if err != nil {
		return nil, err
	}
	for _, path := range config.CatalogPaths(resolvedConfigPath, getConfig()) {
		if err := searchopt.LoadCatalogFile(reg, path); err != nil {
			return nil, err
		}
		logger.Debug().Str("path", path).Msg("loaded catalog")
	}
	if err := reg.Validate(); err != nil {
		return nil, err
	}
	return reg, nil
}

// searchContext builds the caller's context from flags and config.
func searchContext(debug bool) (search.Context, error) {
	c := getConfig()
	nf, err := assemble.ParseNameFormat(c.Search.NameFormat)
	if err != nil {
		return search.Context{}, &cliError{code: ErrConfigInvalid, err: err}
	}
	return search.Context{
		Now:        time.Now(),
		User:       config.SessionUser(userFlag, c),
		Entities:   c.Entities,
		NameFormat: nf,
		Debug:      debug || c.Search.Debug,
	}, nil
}

func engineOptions() ([]search.Option, error) {
	c := getConfig()
	timeout, err := c.Search.Timeout()
	if err != nil {
		return nil, &cliError{code: ErrConfigInvalid, err: err}
	}
	store := searchstore.NewFileStore(config.StateDir(resolvedConfigPath, c))
	return []search.Option{
		search.WithStore(store),
		search.WithLogger(logger),
		search.WithLimits(search.Limits{
			DefaultLimit: c.Search.DefaultLimit,
			MaxLimit:     c.Search.MaxLimit,
			MaxDepth:     c.Search.MaxDepth,
			QueryTimeout: timeout,
		}),
	}, nil
}

// openSession opens the inventory and checks that every table the catalog
// references exists.
func openSession(ctx context.Context, debug bool) (*session, error) {
	reg, err := loadRegistry()
	if err != nil {
		return nil, err
	}
	sc, err := searchContext(debug)
	if err != nil {
		return nil, err
	}
	opts, err := engineOptions()
	if err != nil {
		return nil, err
	}

	dbPath := config.DatabasePath(dbPathFlag, resolvedConfigPath, getConfig())
	if _, err := os.Stat(dbPath); errors.Is(err, os.ErrNotExist) {
		return nil, &cliError{
			code:       ErrInventoryNotFound,
			err:        fmt.Errorf("inventory not found: %s", dbPath),
			suggestion: "Run 'asq init' to create it",
		}
	}
	inv, err := inventory.Open(dbPath, inventory.WithLogger(logger))
	if err != nil {
		return nil, &cliError{code: ErrDatabaseError, err: err}
	}
	if err := inv.CheckRegistry(ctx, reg); err != nil {
		_ = inv.Close()
		return nil, &cliError{code: ErrConfigInvalid, err: err, suggestion: "A catalog file references tables this inventory does not have"}
	}

	return &session{
		inv:     inv,
		engine:  search.New(reg, inv.DB(), opts...),
		context: sc,
	}, nil
}

// openStoreSession builds an engine without a database, for commands that
// only read or write stored searches.
func openStoreSession() (*session, error) {
	reg, err := loadRegistry()
	if err != nil {
		return nil, err
	}
	sc, err := searchContext(false)
	if err != nil {
		return nil, err
	}
	opts, err := engineOptions()
	if err != nil {
		return nil, err
	}
	return &session{engine: search.New(reg, nil, opts...), context: sc}, nil
}
