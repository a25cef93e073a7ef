// Package search runs the search pipeline for one request: normalize the
// criteria, plan joins, build predicates, assemble the statement and map the
// rows. It also keeps per-user last searches and bookmarks through a Store.
package search

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/aidanlsb/assetsearch/internal/assemble"
	"github.com/aidanlsb/assetsearch/internal/criteria"
	"github.com/aidanlsb/assetsearch/internal/results"
	"github.com/aidanlsb/assetsearch/internal/searcherr"
	"github.com/aidanlsb/assetsearch/internal/searchopt"
	"github.com/aidanlsb/assetsearch/internal/searchstore"
)

// Store persists last searches and bookmarks. The engine writes to it but
// does not manage its lifecycle.
type Store interface {
	LastSearch(user, itemtype string) (*searchstore.LastSearch, error)
	SaveLastSearch(user string, ls *searchstore.LastSearch) error
	Bookmark(user, name string) (*searchstore.Bookmark, error)
	Bookmarks(user string) ([]*searchstore.Bookmark, error)
	SaveBookmark(user string, b *searchstore.Bookmark) error
	DeleteBookmark(user, name string) error
}

// ErrNoStore is returned by bookmark operations on an engine without a store.
var ErrNoStore = errors.New("no search store configured")

// Limits bound what a single request may ask for.
type Limits struct {
	DefaultLimit int
	MaxLimit     int
	MaxDepth     int
	QueryTimeout time.Duration
}

// DefaultLimits are used when no limits are configured.
var DefaultLimits = Limits{
	DefaultLimit: 20,
	MaxLimit:     500,
	MaxDepth:     criteria.DefaultMaxDepth,
	QueryTimeout: 30 * time.Second,
}

// Context is the caller's session: who is searching, when, and with which
// visibility. It replaces any ambient session state.
type Context struct {
	Now        time.Time
	User       string
	Entities   []int
	NameFormat assemble.NameFormat
	Debug      bool
}

// Params is one search request.
type Params struct {
	Itemtype     string
	Criteria     []criteria.Criterion
	MetaCriteria []criteria.Criterion
	Sort         []assemble.SortSpec
	Start        int
	Limit        int
	Deleted      assemble.Deleted
	// Reset ignores the stored last search.
	Reset bool
}

// Response is the outcome of a search.
type Response struct {
	Itemtype string
	Result   *results.ResultSet
	Skipped  []*searcherr.InvalidCriterionError
	// Regrouped lists criteria whose OR link could not span WHERE and
	// HAVING.
	Regrouped []*criteria.Resolved
	// Restored is set when criteria came from the stored last search.
	Restored bool
	// SQL is the statement with arguments inlined, in debug mode only.
	SQL      string
	Duration time.Duration
}

// Engine runs searches. It is safe for concurrent use.
type Engine struct {
	registry   *searchopt.Registry
	db         *sql.DB
	store      Store
	logger     zerolog.Logger
	limits     Limits
	normalizer *criteria.Normalizer
	assembler  *assemble.Assembler
}

// Option configures an Engine.
type Option func(*Engine)

// WithStore enables last-search restore and bookmarks.
func WithStore(s Store) Option {
	return func(e *Engine) { e.store = s }
}

// WithLogger sets the engine logger.
func WithLogger(l zerolog.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// WithLimits overrides DefaultLimits. Zero fields keep their default.
func WithLimits(l Limits) Option {
	return func(e *Engine) {
		if l.DefaultLimit > 0 {
			e.limits.DefaultLimit = l.DefaultLimit
		}
		if l.MaxLimit > 0 {
			e.limits.MaxLimit = l.MaxLimit
		}
		if l.MaxDepth > 0 {
			e.limits.MaxDepth = l.MaxDepth
		}
		if l.QueryTimeout > 0 {
			e.limits.QueryTimeout = l.QueryTimeout
		}
	}
}

// New creates an engine over a registry and a database.
func New(registry *searchopt.Registry, db *sql.DB, opts ...Option) *Engine {
	e := &Engine{
		registry: registry,
		db:       db,
		logger:   zerolog.Nop(),
		limits:   DefaultLimits,
	}
	for _, opt := range opts {
		opt(e)
	}
	e.normalizer = criteria.NewNormalizer(registry,
		criteria.WithMaxDepth(e.limits.MaxDepth),
		criteria.WithLogger(e.logger))
	e.assembler = assemble.New(registry)
	return e
}

// Registry returns the engine's option registry.
func (e *Engine) Registry() *searchopt.Registry { return e.registry }

// Limits returns the effective limits.
func (e *Engine) Limits() Limits { return e.limits }

// Plan builds the statement for p without running it. Invalid criteria are
// reported on the plan; fatal errors abort.
func (e *Engine) Plan(sc Context, p Params) (*assemble.Plan, []*searcherr.InvalidCriterionError, error) {
	p = e.window(p)
	merged := make([]criteria.Criterion, 0, len(p.Criteria)+len(p.MetaCriteria))
	merged = append(merged, p.Criteria...)
	merged = append(merged, criteria.MarkMeta(p.MetaCriteria)...)

	res, err := e.normalizer.Normalize(p.Itemtype, merged)
	if err != nil {
		return nil, nil, err
	}
	plan, err := e.assembler.Assemble(assemble.Request{
		Itemtype:   p.Itemtype,
		Criteria:   res,
		Sort:       p.Sort,
		Start:      p.Start,
		Limit:      p.Limit,
		Deleted:    p.Deleted,
		Entities:   sc.Entities,
		NameFormat: sc.NameFormat,
		Now:        sc.now(),
	})
	if err != nil {
		return nil, nil, err
	}
	skipped := append(append([]*searcherr.InvalidCriterionError{}, res.Skipped...), plan.Skipped...)
	return plan, skipped, nil
}

// Search runs one request. Without criteria and without Reset, the user's
// last search on the itemtype is restored, including its sort, deleted
// filter and paging window unless the request sets them. A successful search becomes the
// new last search.
func (e *Engine) Search(ctx context.Context, sc Context, p Params) (*Response, error) {
	started := time.Now()
	restored := false
	if !p.Reset && len(p.Criteria) == 0 && len(p.MetaCriteria) == 0 {
		var err error
		p, restored, err = e.restore(sc, p)
		if err != nil {
			return nil, err
		}
	}

	plan, skipped, err := e.Plan(sc, p)
	if err != nil {
		return nil, err
	}

	if e.limits.QueryTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.limits.QueryTimeout)
		defer cancel()
	}
	mapper := results.NewMapper(e.db, results.WithLogger(e.logger), results.WithDebug(sc.Debug))
	rs, err := mapper.Map(ctx, plan)
	if err != nil {
		return nil, err
	}

	resp := &Response{
		Itemtype:  p.Itemtype,
		Result:    rs,
		Skipped:   skipped,
		Regrouped: plan.Regrouped,
		Restored:  restored,
		Duration:  time.Since(started),
	}
	if sc.Debug {
		resp.SQL = plan.Debug()
	}
	e.logger.Debug().
		Str("itemtype", p.Itemtype).
		Str("user", sc.User).
		Int("total", rs.TotalCount).
		Int("skipped", len(skipped)).
		Dur("elapsed", resp.Duration).
		Msg("search")

	e.remember(sc, p)
	return resp, nil
}

// window applies paging defaults and bounds.
func (e *Engine) window(p Params) Params {
	if p.Start < 0 {
		p.Start = 0
	}
	if p.Limit <= 0 {
		p.Limit = e.limits.DefaultLimit
	}
	if e.limits.MaxLimit > 0 && p.Limit > e.limits.MaxLimit {
		p.Limit = e.limits.MaxLimit
	}
	return p
}

func (e *Engine) restore(sc Context, p Params) (Params, bool, error) {
	if e.store == nil || sc.User == "" {
		return p, false, nil
	}
	ls, err := e.store.LastSearch(sc.User, p.Itemtype)
	if errors.Is(err, searchstore.ErrNotFound) {
		return p, false, nil
	}
	if err != nil {
		e.logger.Warn().Err(err).Str("user", sc.User).Msg("failed to read last search")
		return p, false, nil
	}
	last, err := FromQuery(ls.Query)
	if err != nil {
		e.logger.Warn().Err(err).Str("user", sc.User).Msg("ignoring unreadable last search")
		return p, false, nil
	}
	p.Criteria = last.Criteria
	// Request values win; the stored ones only fill what was left unset.
	if len(p.Sort) == 0 {
		p.Sort = last.Sort
	}
	if p.Deleted == assemble.DeletedNo {
		p.Deleted = last.Deleted
	}
	if p.Start == 0 {
		p.Start = last.Start
	}
	if p.Limit == 0 {
		p.Limit = last.Limit
	}
	return p, true, nil
}

func (e *Engine) remember(sc Context, p Params) {
	if e.store == nil || sc.User == "" {
		return
	}
	q, err := ToQuery(p)
	if err == nil {
		err = e.store.SaveLastSearch(sc.User, &searchstore.LastSearch{Query: q, Timestamp: sc.now()})
	}
	if err != nil {
		e.logger.Warn().Err(err).Str("user", sc.User).Msg("failed to save last search")
	}
}

// LastSearch returns the stored last search of the session's user.
func (e *Engine) LastSearch(sc Context, itemtype string) (Params, time.Time, error) {
	if e.store == nil {
		return Params{}, time.Time{}, ErrNoStore
	}
	ls, err := e.store.LastSearch(sc.User, itemtype)
	if err != nil {
		return Params{}, time.Time{}, err
	}
	p, err := FromQuery(ls.Query)
	return p, ls.Timestamp, err
}

// SaveBookmark stores p under name for the session's user. The itemtype is
// checked so a bookmark never points at an unknown itemtype.
func (e *Engine) SaveBookmark(sc Context, name string, p Params) (*searchstore.Bookmark, error) {
	if e.store == nil {
		return nil, ErrNoStore
	}
	if _, ok := e.registry.Entity(p.Itemtype); !ok {
		return nil, &searcherr.ConfigurationError{Itemtype: p.Itemtype, Message: "unknown itemtype"}
	}
	q, err := ToQuery(p)
	if err != nil {
		return nil, err
	}
	b := &searchstore.Bookmark{Name: name, Query: q, CreatedAt: sc.now()}
	if err := e.store.SaveBookmark(sc.User, b); err != nil {
		return nil, err
	}
	return b, nil
}

// Bookmarks lists the session user's bookmarks.
func (e *Engine) Bookmarks(sc Context) ([]*searchstore.Bookmark, error) {
	if e.store == nil {
		return nil, ErrNoStore
	}
	return e.store.Bookmarks(sc.User)
}

// RunBookmark runs a saved search. The stored criteria are validated again
// against the current catalog.
func (e *Engine) RunBookmark(ctx context.Context, sc Context, name string) (*Response, error) {
	if e.store == nil {
		return nil, ErrNoStore
	}
	b, err := e.store.Bookmark(sc.User, name)
	if err != nil {
		return nil, fmt.Errorf("bookmark %q: %w", name, err)
	}
	p, err := FromQuery(b.Query)
	if err != nil {
		return nil, fmt.Errorf("bookmark %q: %w", name, err)
	}
	p.Reset = true
	return e.Search(ctx, sc, p)
}

// DeleteBookmark removes a bookmark of the session's user.
func (e *Engine) DeleteBookmark(sc Context, name string) error {
	if e.store == nil {
		return ErrNoStore
	}
	return e.store.DeleteBookmark(sc.User, name)
}

func (sc Context) now() time.Time {
	if sc.Now.IsZero() {
		return time.Now()
	}
	return sc.Now
}
