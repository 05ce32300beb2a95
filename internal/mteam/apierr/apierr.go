package apierr

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"kyri56xcaesar/teamup/internal/account"
	"kyri56xcaesar/teamup/internal/ledger"
)

type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type ErrResponse struct {
	Error APIError `json:"error"`
}

var statusByCode = map[ledger.ErrorCode]int{
	ledger.CodeNotFound:           http.StatusNotFound,
	ledger.CodePaymentNotFound:    http.StatusNotFound,
	ledger.CodeNotOpen:            http.StatusConflict,
	ledger.CodeAlreadyMember:      http.StatusConflict,
	ledger.CodeAlreadySettled:     http.StatusConflict,
	ledger.CodeConflict:           http.StatusConflict,
	ledger.CodeInvalidState:       http.StatusConflict,
	ledger.CodeNotMember:          http.StatusBadRequest,
	ledger.CodeCreatorCannotLeave: http.StatusBadRequest,
	ledger.CodeValidation:         http.StatusBadRequest,
	ledger.CodeForbidden:          http.StatusForbidden,
}

// Map translates domain errors to a status and a stable response body.
// The last return is false for errors that have no public mapping.
func Map(err error) (int, APIError, bool) {
	switch {
	case errors.Is(err, account.ErrEmailTaken):
		return http.StatusConflict, EmailTaken, true
	case errors.Is(err, account.ErrInvalidCredentials):
		return http.StatusUnauthorized, InvalidCredentials, true
	case errors.Is(err, account.ErrInvalidSignup):
		return http.StatusBadRequest, APIError{Code: "VALIDATION", Message: err.Error()}, true
	}

	var le *ledger.Error
	if errors.As(err, &le) {
		if status, ok := statusByCode[le.Code]; ok {
			return status, APIError{Code: string(le.Code), Message: le.Message}, true
		}
	}

	return http.StatusInternalServerError, InternalServerError, false
}

// Handle writes the mapped error, falling back to a 500.
func Handle(c *gin.Context, err error) {
	status, apiErr, _ := Map(err)
	WriteApiErrJSON(c, status, apiErr)
}

func WriteApiErrJSON(c *gin.Context, status int, apiErr APIError) {
	c.AbortWithStatusJSON(status, ErrResponse{
		Error: apiErr,
	})
}
