package apierr

var (
	BadRequest = APIError{
		Code:    "INVALID_REQUEST",
		Message: "invalid request body",
	}
	InvalidCredentials = APIError{
		Code:    "INVALID_CREDENTIALS",
		Message: "invalid email or password",
	}
	EmailTaken = APIError{
		Code:    "EMAIL_TAKEN",
		Message: "user already exists",
	}
	TooManyRequests = APIError{
		Code:    "RATE_LIMITED",
		Message: "rate limit exceeded",
	}
	InternalServerError = APIError{
		Code:    "INTERNAL_SERVER_ERROR",
		Message: "internal server error",
	}
)
