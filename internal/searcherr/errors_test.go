package searcherr

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorsMatchSentinels(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		sentinel error
		fatal    bool
	}{
		{"configuration", &ConfigurationError{Itemtype: "Computer", FieldID: 12, Message: "duplicate field id"}, ErrConfiguration, true},
		{"invalid criterion", &InvalidCriterionError{Itemtype: "Computer", Field: "999", Reason: "unknown field"}, ErrInvalidCriterion, false},
		{"join planning", &JoinPlanningError{Table: "glpi_users", Message: "circular beforejoin"}, ErrJoinPlanning, true},
		{"database", &DatabaseError{Reference: "abc", Err: errors.New("boom")}, ErrDatabase, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wrapped := fmt.Errorf("search: %w", tt.err)
			assert.ErrorIs(t, wrapped, tt.sentinel)
			assert.Equal(t, tt.fatal, IsFatal(wrapped))
		})
	}
	assert.False(t, IsFatal(nil))
}

func TestDatabaseErrorHidesDiagnosticsOutsideDebug(t *testing.T) {
	err := &DatabaseError{Reference: "ref1", SQL: "SELECT broken", Err: errors.New("near \"broken\": syntax error")}
	assert.Equal(t, "search failed (ref ref1)", err.Error())

	err.Debug = true
	assert.Contains(t, err.Error(), "SELECT broken")
	assert.Contains(t, err.Error(), "syntax error")
}

func TestDatabaseErrorUnwrapsTimeout(t *testing.T) {
	err := &DatabaseError{Reference: "ref2", Err: context.DeadlineExceeded}
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.ErrorIs(t, err, ErrDatabase)
}

func TestConfigurationErrorMessage(t *testing.T) {
	assert.Equal(t, "configuration error: Computer option 12: duplicate field id",
		(&ConfigurationError{Itemtype: "Computer", FieldID: 12, Message: "duplicate field id"}).Error())
	assert.Equal(t, "configuration error: Computer: no meta link to Monitor",
		(&ConfigurationError{Itemtype: "Computer", Message: "no meta link to Monitor"}).Error())
}
