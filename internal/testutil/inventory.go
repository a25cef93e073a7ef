// Package testutil provides reusable fixtures for search integration tests.
package testutil

import (
	"context"
	"testing"

	"github.com/aidanlsb/assetsearch/internal/inventory"
	"github.com/aidanlsb/assetsearch/internal/searchopt"
)

// TestInventory builds an in-memory inventory for one test.
type TestInventory struct {
	DB       *inventory.DB
	Registry *searchopt.Registry

	t     *testing.T
	empty bool
	stmts []string
}

// NewTestInventory creates a builder. Call Build to open the database.
func NewTestInventory(t *testing.T) *TestInventory {
	t.Helper()
	return &TestInventory{t: t}
}

// Empty skips the demo data set.
func (v *TestInventory) Empty() *TestInventory {
	v.empty = true
	return v
}

// WithSQL adds a statement run after seeding.
func (v *TestInventory) WithSQL(stmt string) *TestInventory {
	v.stmts = append(v.stmts, stmt)
	return v
}

// Build opens the database, loads data and the built-in registry. The
// database is closed when the test ends.
func (v *TestInventory) Build() *TestInventory {
	v.t.Helper()

	db, err := inventory.OpenInMemory()
	if err != nil {
		v.t.Fatalf("failed to open inventory: %v", err)
	}
	v.t.Cleanup(func() { db.Close() })

	if !v.empty {
		if err := db.Seed(context.Background()); err != nil {
			v.t.Fatalf("failed to seed inventory: %v", err)
		}
	}
	for _, stmt := range v.stmts {
		if _, err := db.DB().Exec(stmt); err != nil {
			v.t.Fatalf("failed to run %q: %v", stmt, err)
		}
	}

	reg, err := searchopt.Builtin()
	if err != nil {
		v.t.Fatalf("failed to load built-in registry: %v", err)
	}
	v.DB = db
	v.Registry = reg
	return v
}

// AssertCount fails the test if query does not return want as its single
// integer result.
func (v *TestInventory) AssertCount(query string, want int, args ...any) {
	v.t.Helper()
	var got int
	if err := v.DB.DB().QueryRow(query, args...).Scan(&got); err != nil {
		v.t.Fatalf("query %q failed: %v", query, err)
	}
	if got != want {
		v.t.Errorf("%s: got %d, want %d", query, got, want)
	}
}
