package model

const (
	UsersTable     = "Users"
	ChatroomsTable = "Chatrooms"
	MessagesTable  = "Messages"
	CountersTable  = "Counters"
)

// Counter names in CountersTable.
const (
	UserIDCounter     = "userId"
	ChatroomIDCounter = "chatroomId"
	MessageIDCounter  = "messageId"
)

// UserItem is keyed by username so login is a single GetItem.
type UserItem struct {
	Username     string `dynamodbav:"username"`
	UserID       int64  `dynamodbav:"userId"`
	PasswordHash string `dynamodbav:"passwordHash"`
	CreatedAt    string `dynamodbav:"createdAt"`
}

type ChatroomItem struct {
	ChatroomID int64  `dynamodbav:"chatroomId"`
	Name       string `dynamodbav:"name"`
	CreatedBy  int64  `dynamodbav:"createdBy"`
	CreatedAt  string `dynamodbav:"createdAt"`
}

// MessageItem lives under its chatroom; messageId is the sort key so a
// descending query returns the newest messages first.
type MessageItem struct {
	ChatroomID int64  `dynamodbav:"chatroomId"`
	MessageID  int64  `dynamodbav:"messageId"`
	UserID     int64  `dynamodbav:"userId"`
	Username   string `dynamodbav:"username"`
	Content    string `dynamodbav:"content"`
	CreatedAt  string `dynamodbav:"createdAt"`
}

type CounterItem struct {
	Name  string `dynamodbav:"name"`
	Value int64  `dynamodbav:"value"`
}
