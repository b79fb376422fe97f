package chatroom

import (
	"context"
	"errors"
	"sort"

	"chat-app/internal/database"
	"chat-app/internal/model"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

var ErrNotFound = errors.New("chatroom repository: not found")

type Repository interface {
	NextChatroomID(ctx context.Context) (int64, error)
	NextMessageID(ctx context.Context) (int64, error)
	CreateChatroom(ctx context.Context, room model.ChatroomItem) error
	GetChatroom(ctx context.Context, chatroomID int64) (model.ChatroomItem, error)
	ListChatrooms(ctx context.Context) ([]model.ChatroomItem, error)
	CreateMessage(ctx context.Context, message model.MessageItem) error
	// LastMessages returns up to limit messages of the room, newest first.
	LastMessages(ctx context.Context, chatroomID int64, limit int) ([]model.MessageItem, error)
}

type DynamoRepository struct {
	db *database.DynamoDBClient
}

func NewDynamoRepository(db *database.DynamoDBClient) Repository {
	return &DynamoRepository{db: db}
}

func (r *DynamoRepository) NextChatroomID(ctx context.Context) (int64, error) {
	return r.db.NextID(ctx, model.CountersTable, model.ChatroomIDCounter)
}

func (r *DynamoRepository) NextMessageID(ctx context.Context) (int64, error) {
	return r.db.NextID(ctx, model.CountersTable, model.MessageIDCounter)
}

func (r *DynamoRepository) CreateChatroom(ctx context.Context, room model.ChatroomItem) error {
	return r.db.PutItem(ctx, model.ChatroomsTable, room)
}

func (r *DynamoRepository) GetChatroom(ctx context.Context, chatroomID int64) (model.ChatroomItem, error) {
	var room model.ChatroomItem
	err := r.db.GetItem(
		ctx,
		model.ChatroomsTable,
		map[string]types.AttributeValue{
			"chatroomId": database.AttrInt(chatroomID),
		},
		&room,
	)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return model.ChatroomItem{}, ErrNotFound
		}
		return model.ChatroomItem{}, err
	}
	return room, nil
}

func (r *DynamoRepository) ListChatrooms(ctx context.Context) ([]model.ChatroomItem, error) {
	items, err := r.db.ScanAll(ctx, model.ChatroomsTable, "", nil, nil)
	if err != nil {
		return nil, err
	}

	rooms := make([]model.ChatroomItem, 0, len(items))
	for _, item := range items {
		var room model.ChatroomItem
		if err := attributevalue.UnmarshalMap(item, &room); err != nil {
			return nil, err
		}
		rooms = append(rooms, room)
	}

	sort.Slice(rooms, func(i, j int) bool {
		return rooms[i].ChatroomID < rooms[j].ChatroomID
	})
	return rooms, nil
}

func (r *DynamoRepository) CreateMessage(ctx context.Context, message model.MessageItem) error {
	return r.db.PutItem(ctx, model.MessagesTable, message)
}

func (r *DynamoRepository) LastMessages(ctx context.Context, chatroomID int64, limit int) ([]model.MessageItem, error) {
	scanForward := false
	items, err := r.db.QueryItems(
		ctx,
		model.MessagesTable,
		nil,
		"chatroomId = :chatroomId",
		map[string]types.AttributeValue{
			":chatroomId": database.AttrInt(chatroomID),
		},
		nil,
		&scanForward,
		int32(limit),
	)
	if err != nil {
		return nil, err
	}

	messages := make([]model.MessageItem, 0, len(items))
	for _, item := range items {
		var message model.MessageItem
		if err := attributevalue.UnmarshalMap(item, &message); err != nil {
			return nil, err
		}
		messages = append(messages, message)
	}
	return messages, nil
}
