package client

import (
	"errors"
	"net/http"
)

type ErrorCode string

const (
	// ErrorCodeTransport covers DNS, dial and I/O failures.
	ErrorCodeTransport ErrorCode = "transport_error"
	// ErrorCodeUnauthorized covers bad credentials and missing or expired tokens.
	ErrorCodeUnauthorized ErrorCode = "unauthorized"
	// ErrorCodeValidation is raised client side before any network call.
	ErrorCodeValidation ErrorCode = "validation_error"
	// ErrorCodeProtocol covers unexpected payloads and a live channel that is not open.
	ErrorCodeProtocol ErrorCode = "protocol_error"
	// ErrorCodeRejected is any other non-2xx answer from the backend.
	ErrorCodeRejected ErrorCode = "rejected"
)

type Error struct {
	Code       ErrorCode
	Op         string
	Message    string
	StatusCode int
	Err        error
}

func (e *Error) Error() string {
	if e.Op == "" {
		return e.Message
	}
	return e.Op + ": " + e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

func NewError(code ErrorCode, op, message string, err error) *Error {
	return &Error{
		Code:    code,
		Op:      op,
		Message: message,
		Err:     err,
	}
}

// CodeOf returns the code of the first *Error in err's chain, or "" when there
// is none.
func CodeOf(err error) ErrorCode {
	var clientErr *Error
	if errors.As(err, &clientErr) {
		return clientErr.Code
	}
	return ""
}

func IsCode(err error, code ErrorCode) bool {
	return err != nil && CodeOf(err) == code
}

func statusError(op string, status int, serverMessage string) *Error {
	code := ErrorCodeRejected
	if status == http.StatusUnauthorized || status == http.StatusForbidden {
		code = ErrorCodeUnauthorized
	}

	message := http.StatusText(status)
	if serverMessage != "" {
		message = serverMessage
	}

	return &Error{
		Code:       code,
		Op:         op,
		Message:    message,
		StatusCode: status,
	}
}
