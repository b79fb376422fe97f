package dto

import "time"

// LiveFrame is the server to client envelope on the live channel. Only
// Message is guaranteed; the remaining fields are sent by this backend but
// not by older ones.
type LiveFrame struct {
	Message    string     `json:"message"`
	Username   string     `json:"username,omitempty"`
	UserID     int64      `json:"user_id,omitempty"`
	ChatroomID int64      `json:"chatroom_id,omitempty"`
	MessageID  int64      `json:"message_id,omitempty"`
	Timestamp  *time.Time `json:"timestamp,omitempty"`
}

// OutboundFrame is the client to server envelope on the live channel.
type OutboundFrame struct {
	Content string `json:"content"`
}
