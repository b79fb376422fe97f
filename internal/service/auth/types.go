package auth

import "chat-app/internal/model"

type ErrorCode string

const (
	ErrorCodeValidation   ErrorCode = "validation_error"
	ErrorCodeUnauthorized ErrorCode = "unauthorized"
	ErrorCodeConflict     ErrorCode = "conflict"
	ErrorCodeInternal     ErrorCode = "internal_error"
)

type Error struct {
	Code    ErrorCode
	Message string
	Err     error
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

func newError(code ErrorCode, message string, err error) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

type RegisterParams struct {
	Username string
	Password string
}

type LoginParams struct {
	Username string
	Password string
}

// Identity is the caller resolved from a verified access token.
type Identity struct {
	UserID   int64
	Username string
}

type LoginResult struct {
	User  model.UserItem
	Token string
}
