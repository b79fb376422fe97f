package chatroom

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"chat-app/internal/database"
	"chat-app/internal/model"
)

const (
	DefaultHistoryLimit = 50
	maxNameLength       = 64
	maxContentLength    = 4000
)

type Service struct {
	repo Repository
	now  func() time.Time
}

func New(db *database.DynamoDBClient) *Service {
	return &Service{
		repo: NewDynamoRepository(db),
		now:  time.Now,
	}
}

func NewWithRepository(repo Repository, now func() time.Time) *Service {
	if now == nil {
		now = time.Now
	}

	return &Service{
		repo: repo,
		now:  now,
	}
}

func (s *Service) CreateChatroom(ctx context.Context, author Author, name string) (model.ChatroomItem, error) {
	name = strings.TrimSpace(name)

	if author.UserID == 0 {
		return model.ChatroomItem{}, newError(ErrorCodeUnauthorized, "invalid user identity", nil)
	}
	if name == "" {
		return model.ChatroomItem{}, newError(ErrorCodeValidation, "name is required", nil)
	}
	if utf8.RuneCountInString(name) > maxNameLength {
		return model.ChatroomItem{}, newError(ErrorCodeValidation, "name is too long", nil)
	}

	id, err := s.repo.NextChatroomID(ctx)
	if err != nil {
		return model.ChatroomItem{}, newError(ErrorCodeInternal, "failed to allocate chatroom id", err)
	}

	room := model.ChatroomItem{
		ChatroomID: id,
		Name:       name,
		CreatedBy:  author.UserID,
		CreatedAt:  s.now().UTC().Format(time.RFC3339),
	}
	if err := s.repo.CreateChatroom(ctx, room); err != nil {
		return model.ChatroomItem{}, newError(ErrorCodeInternal, "failed to create chatroom", err)
	}

	return room, nil
}

// ListChatrooms returns every chatroom ordered by id.
func (s *Service) ListChatrooms(ctx context.Context) ([]model.ChatroomItem, error) {
	rooms, err := s.repo.ListChatrooms(ctx)
	if err != nil {
		return nil, newError(ErrorCodeInternal, "failed to list chatrooms", err)
	}
	return rooms, nil
}

func (s *Service) GetChatroom(ctx context.Context, chatroomID int64) (model.ChatroomItem, error) {
	if chatroomID <= 0 {
		return model.ChatroomItem{}, newError(ErrorCodeValidation, "invalid chatroom_id", nil)
	}

	room, err := s.repo.GetChatroom(ctx, chatroomID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return model.ChatroomItem{}, newError(ErrorCodeNotFound, "chatroom not found", err)
		}
		return model.ChatroomItem{}, newError(ErrorCodeInternal, "failed to fetch chatroom", err)
	}
	return room, nil
}

// PostMessage stores a message in an existing chatroom. The caller is
// responsible for fanning it out to live subscribers.
func (s *Service) PostMessage(ctx context.Context, params PostMessageParams) (PostMessageResult, error) {
	content := strings.TrimSpace(params.Content)

	if params.Author.UserID == 0 {
		return PostMessageResult{}, newError(ErrorCodeUnauthorized, "invalid user identity", nil)
	}
	if content == "" {
		return PostMessageResult{}, newError(ErrorCodeValidation, "content is required", nil)
	}
	if utf8.RuneCountInString(content) > maxContentLength {
		return PostMessageResult{}, newError(ErrorCodeValidation, "content is too long", nil)
	}

	room, err := s.GetChatroom(ctx, params.ChatroomID)
	if err != nil {
		return PostMessageResult{}, err
	}

	id, err := s.repo.NextMessageID(ctx)
	if err != nil {
		return PostMessageResult{}, newError(ErrorCodeInternal, "failed to allocate message id", err)
	}

	message := model.MessageItem{
		ChatroomID: room.ChatroomID,
		MessageID:  id,
		UserID:     params.Author.UserID,
		Username:   params.Author.Username,
		Content:    content,
		CreatedAt:  s.now().UTC().Format(time.RFC3339Nano),
	}
	if err := s.repo.CreateMessage(ctx, message); err != nil {
		return PostMessageResult{}, newError(ErrorCodeInternal, "failed to store message", err)
	}

	return PostMessageResult{Chatroom: room, Message: message}, nil
}

// LastMessages returns up to limit messages of the room, newest first. A
// non-positive limit selects DefaultHistoryLimit.
func (s *Service) LastMessages(ctx context.Context, chatroomID int64, limit int) ([]model.MessageItem, error) {
	if chatroomID <= 0 {
		return nil, newError(ErrorCodeValidation, "invalid chatroom_id", nil)
	}
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}

	messages, err := s.repo.LastMessages(ctx, chatroomID, limit)
	if err != nil {
		return nil, newError(ErrorCodeInternal, "failed to fetch messages", err)
	}
	return messages, nil
}

// ParseTime reads a stored createdAt value; unparsable values become the
// zero time.
func ParseTime(ts string) time.Time {
	if ts == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339Nano, ts)
	if err != nil {
		return time.Time{}
	}
	return t
}
