package ledger

import "fmt"

type ErrorCode string

const (
	CodeNotFound           ErrorCode = "NOT_FOUND"
	CodeNotOpen            ErrorCode = "NOT_OPEN"
	CodeAlreadyMember      ErrorCode = "ALREADY_MEMBER"
	CodeNotMember          ErrorCode = "NOT_MEMBER"
	CodeCreatorCannotLeave ErrorCode = "CREATOR_CANNOT_LEAVE"
	CodePaymentNotFound    ErrorCode = "PAYMENT_NOT_FOUND"
	CodeAlreadySettled     ErrorCode = "ALREADY_SETTLED"
	CodeConflict           ErrorCode = "CONFLICT"
	CodeInvalidState       ErrorCode = "INVALID_STATE"
	CodeForbidden          ErrorCode = "FORBIDDEN"
	CodeInvariant          ErrorCode = "INVARIANT_VIOLATION"
	CodeValidation         ErrorCode = "VALIDATION"
)

// Error is a typed ledger failure. errors.Is matches on Code, so callers
// compare against the sentinels below regardless of message.
type Error struct {
	Code    ErrorCode
	Message string
}

func (e *Error) Error() string {
	return string(e.Code) + ": " + e.Message
}

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

var (
	ErrNotFound           = &Error{Code: CodeNotFound, Message: "team not found"}
	ErrUserNotFound       = &Error{Code: CodeNotFound, Message: "user not found"}
	ErrNotOpen            = &Error{Code: CodeNotOpen, Message: "team is not open for joining"}
	ErrAlreadyMember      = &Error{Code: CodeAlreadyMember, Message: "already joined this team"}
	ErrNotMember          = &Error{Code: CodeNotMember, Message: "not a member of this team"}
	ErrCreatorCannotLeave = &Error{Code: CodeCreatorCannotLeave, Message: "creator cannot leave the team"}
	ErrPaymentNotFound    = &Error{Code: CodePaymentNotFound, Message: "payment not found"}
	ErrAlreadySettled     = &Error{Code: CodeAlreadySettled, Message: "payment already settled"}
	ErrConflict           = &Error{Code: CodeConflict, Message: "team was modified concurrently"}
	ErrInvalidState       = &Error{Code: CodeInvalidState, Message: "operation not valid for current state"}
	ErrForbidden          = &Error{Code: CodeForbidden, Message: "only the creator can do this"}
	ErrInvariant          = &Error{Code: CodeInvariant, Message: "invariant violation"}
	ErrValidation         = &Error{Code: CodeValidation, Message: "invalid input"}
)

func newError(code ErrorCode, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}
