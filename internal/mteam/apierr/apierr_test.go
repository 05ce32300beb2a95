package apierr

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"

	"kyri56xcaesar/teamup/internal/account"
	"kyri56xcaesar/teamup/internal/ledger"
)

func TestMap(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
		mapped bool
	}{
		{"team not found", ledger.ErrNotFound, http.StatusNotFound, "NOT_FOUND", true},
		{"wrapped not open", fmt.Errorf("join: %w", ledger.ErrNotOpen), http.StatusConflict, "NOT_OPEN", true},
		{"already member", ledger.ErrAlreadyMember, http.StatusConflict, "ALREADY_MEMBER", true},
		{"creator leave", ledger.ErrCreatorCannotLeave, http.StatusBadRequest, "CREATOR_CANNOT_LEAVE", true},
		{"forbidden", ledger.ErrForbidden, http.StatusForbidden, "FORBIDDEN", true},
		{"email taken", account.ErrEmailTaken, http.StatusConflict, "EMAIL_TAKEN", true},
		{"bad credentials", account.ErrInvalidCredentials, http.StatusUnauthorized, "INVALID_CREDENTIALS", true},
		{"invariant is internal", ledger.ErrInvariant, http.StatusInternalServerError, "INTERNAL_SERVER_ERROR", false},
		{"unknown", fmt.Errorf("boom"), http.StatusInternalServerError, "INTERNAL_SERVER_ERROR", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, apiErr, ok := Map(tt.err)
			require.Equal(t, tt.status, status)
			require.Equal(t, tt.code, apiErr.Code)
			require.Equal(t, tt.mapped, ok)
		})
	}
}
