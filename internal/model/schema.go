package model

import "github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

// KeyAttribute is one key attribute of a table schema.
type KeyAttribute struct {
	Name string
	Type types.ScalarAttributeType
}

// TableSchema describes a table for local bootstrap.
type TableSchema struct {
	Name    string
	HashKey KeyAttribute
	SortKey *KeyAttribute
}

// Schemas lists every table the backend reads or writes.
func Schemas() []TableSchema {
	return []TableSchema{
		{
			Name:    UsersTable,
			HashKey: KeyAttribute{Name: "username", Type: types.ScalarAttributeTypeS},
		},
		{
			Name:    ChatroomsTable,
			HashKey: KeyAttribute{Name: "chatroomId", Type: types.ScalarAttributeTypeN},
		},
		{
			Name:    MessagesTable,
			HashKey: KeyAttribute{Name: "chatroomId", Type: types.ScalarAttributeTypeN},
			SortKey: &KeyAttribute{Name: "messageId", Type: types.ScalarAttributeTypeN},
		},
		{
			Name:    CountersTable,
			HashKey: KeyAttribute{Name: "name", Type: types.ScalarAttributeTypeS},
		},
	}
}
