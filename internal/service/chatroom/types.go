package chatroom

import "chat-app/internal/model"

type ErrorCode string

const (
	ErrorCodeValidation   ErrorCode = "validation_error"
	ErrorCodeUnauthorized ErrorCode = "unauthorized"
	ErrorCodeNotFound     ErrorCode = "not_found"
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

// Author identifies who is acting on a chatroom.
type Author struct {
	UserID   int64
	Username string
}

type PostMessageParams struct {
	ChatroomID int64
	Author     Author
	Content    string
}

type PostMessageResult struct {
	Chatroom model.ChatroomItem
	Message  model.MessageItem
}
