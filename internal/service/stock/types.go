package stock

type ErrorCode string

const (
	ErrorCodeInvalidCode ErrorCode = "invalid_code"
	ErrorCodeNoData      ErrorCode = "no_data"
	ErrorCodeUpstream    ErrorCode = "upstream_error"
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

// Quote is the opening price stooq reports for a symbol.
type Quote struct {
	Symbol string
	Open   string
}
