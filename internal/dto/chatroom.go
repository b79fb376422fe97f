package dto

import (
	"fmt"
	"time"
)

type Room struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type CreateChatroomRequest struct {
	Name string `json:"name"`
}

type CreateChatroomResponse struct {
	ChatroomID int64 `json:"chatroom_id"`
}

type ChatroomListResponse struct {
	Chatrooms []Room `json:"chatrooms"`
}

type Message struct {
	ID         int64     `json:"id,omitempty"`
	ChatroomID int64     `json:"chatroom_id,omitempty"`
	UserID     int64     `json:"user_id,omitempty"`
	Username   string    `json:"username,omitempty"`
	Content    string    `json:"content"`
	Timestamp  time.Time `json:"timestamp"`
}

// AuthorRef is the label shown next to a message.
func (m Message) AuthorRef() string {
	if m.Username != "" {
		return m.Username
	}
	if m.UserID != 0 {
		return fmt.Sprintf("User %d", m.UserID)
	}
	return ""
}

type MessagesResponse struct {
	Messages []Message `json:"messages"`
}

type PostMessageRequest struct {
	ChatroomID int64  `json:"chatroom_id"`
	Content    string `json:"content"`
}
