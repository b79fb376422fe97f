package websocket

// Room is the set of live clients watching one chatroom, keyed by client id.
type Room struct {
	ID      int64
	Clients map[string]*WSClient
}

// Envelope is an encoded frame addressed to every client of a room.
type Envelope struct {
	RoomID  int64
	Payload []byte
}

// InboundMessage is what clients send over the live channel.
type InboundMessage struct {
	Content string `json:"content"`
}
