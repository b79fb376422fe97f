package live

import (
	"encoding/json"
	"time"

	"chat-app/internal/client"
	"chat-app/internal/dto"
)

// Frame is an inbound live message tagged with the connection it came from.
type Frame struct {
	Generation uint64
	RoomID     int64
	Payload    dto.LiveFrame
	ReceivedAt time.Time
}

// Message converts the frame into a displayable message. The receive time
// stands in when the server sent no timestamp.
func (f Frame) Message() dto.Message {
	ts := f.ReceivedAt
	if f.Payload.Timestamp != nil {
		ts = *f.Payload.Timestamp
	}

	roomID := f.Payload.ChatroomID
	if roomID == 0 {
		roomID = f.RoomID
	}

	return dto.Message{
		ID:         f.Payload.MessageID,
		ChatroomID: roomID,
		UserID:     f.Payload.UserID,
		Username:   f.Payload.Username,
		Content:    f.Payload.Message,
		Timestamp:  ts,
	}
}

type wireFrame struct {
	Message    *string    `json:"message"`
	Username   string     `json:"username"`
	UserID     int64      `json:"user_id"`
	ChatroomID int64      `json:"chatroom_id"`
	MessageID  int64      `json:"message_id"`
	Timestamp  *time.Time `json:"timestamp"`
}

// DecodeFrame parses one inbound text frame. A frame that is not a JSON
// object with a string "message" field is a protocol error.
func DecodeFrame(data []byte) (dto.LiveFrame, error) {
	var wire wireFrame
	if err := json.Unmarshal(data, &wire); err != nil {
		return dto.LiveFrame{}, client.NewError(client.ErrorCodeProtocol, "live", "malformed frame", err)
	}
	if wire.Message == nil {
		return dto.LiveFrame{}, client.NewError(client.ErrorCodeProtocol, "live", "frame without message", nil)
	}

	return dto.LiveFrame{
		Message:    *wire.Message,
		Username:   wire.Username,
		UserID:     wire.UserID,
		ChatroomID: wire.ChatroomID,
		MessageID:  wire.MessageID,
		Timestamp:  wire.Timestamp,
	}, nil
}
