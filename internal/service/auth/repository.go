package auth

import (
	"context"
	"errors"

	"chat-app/internal/database"
	"chat-app/internal/model"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

var (
	ErrNotFound = errors.New("auth repository: not found")
	ErrConflict = errors.New("auth repository: already exists")
)

type Repository interface {
	NextUserID(ctx context.Context) (int64, error)
	// CreateUser stores user unless the username is taken, in which case it
	// returns ErrConflict.
	CreateUser(ctx context.Context, user model.UserItem) error
	GetUserByUsername(ctx context.Context, username string) (model.UserItem, error)
}

type DynamoRepository struct {
	db *database.DynamoDBClient
}

func NewDynamoRepository(db *database.DynamoDBClient) Repository {
	return &DynamoRepository{db: db}
}

func (r *DynamoRepository) NextUserID(ctx context.Context) (int64, error) {
	return r.db.NextID(ctx, model.CountersTable, model.UserIDCounter)
}

func (r *DynamoRepository) CreateUser(ctx context.Context, user model.UserItem) error {
	err := r.db.PutItemIfAbsent(ctx, model.UsersTable, "username", user)
	if errors.Is(err, database.ErrConditionFailed) {
		return ErrConflict
	}
	return err
}

func (r *DynamoRepository) GetUserByUsername(ctx context.Context, username string) (model.UserItem, error) {
	var user model.UserItem
	err := r.db.GetItem(
		ctx,
		model.UsersTable,
		map[string]types.AttributeValue{
			"username": database.AttrString(username),
		},
		&user,
	)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return model.UserItem{}, ErrNotFound
		}
		return model.UserItem{}, err
	}

	return user, nil
}
