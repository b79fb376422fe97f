package session

import "chat-app/internal/dto"

type Level int

const (
	LevelInfo Level = iota
	LevelError
)

// Notification is a one-line status shown to the user.
type Notification struct {
	Level   Level
	Message string
	Err     error
}

// Surface renders session state. Calls may arrive from the live reader
// goroutine as well as from the caller of a Session operation.
type Surface interface {
	Notify(Notification)
	// ShowRooms replaces the displayed room listing.
	ShowRooms([]dto.Room)
	// ShowRoom switches the view to room and clears its message history.
	ShowRoom(dto.Room)
	AppendMessages(...dto.Message)
}

const (
	msgRegistered     = "Registration successful! You can now log in."
	msgRegisterFailed = "Registration failed."
	msgLoggedIn       = "Login successful!"
	msgLoginFailed    = "Login failed."
	msgRoomCreated    = "Chatroom created successfully!"
	msgCreateFailed   = "Failed to create chatroom."
	msgRoomsFailed    = "Failed to fetch chatrooms."
	msgMessagesFailed = "Failed to fetch messages."
	msgLiveFailed     = "WebSocket connection failed!"
	msgLiveLost       = "Live connection lost."
	msgSelectRoom     = "Please select a chatroom first."
	msgLiveNotOpen    = "Live connection is not open."
	msgSendFailed     = "Failed to send message."
	msgNotLoggedIn    = "Please log in first."
	msgSessionExpired = "Session expired, please log in again."
	msgMissingFields  = "Username and password are required."
	msgEmptyRoomName  = "Chatroom name is required."
	msgEmptyMessage   = "Message is empty."
	msgInvalidRoom    = "Invalid chatroom."
)
