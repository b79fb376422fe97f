package database

import (
	"testing"

	"chat-app/internal/model"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateTableInputMessages(t *testing.T) {
	var messages model.TableSchema
	for _, s := range model.Schemas() {
		if s.Name == model.MessagesTable {
			messages = s
		}
	}
	require.Equal(t, model.MessagesTable, messages.Name)

	in := createTableInput(messages)
	assert.Equal(t, model.MessagesTable, aws.ToString(in.TableName))
	assert.Equal(t, types.BillingModePayPerRequest, in.BillingMode)
	require.Len(t, in.KeySchema, 2)
	assert.Equal(t, "chatroomId", aws.ToString(in.KeySchema[0].AttributeName))
	assert.Equal(t, types.KeyTypeHash, in.KeySchema[0].KeyType)
	assert.Equal(t, "messageId", aws.ToString(in.KeySchema[1].AttributeName))
	assert.Equal(t, types.KeyTypeRange, in.KeySchema[1].KeyType)
	assert.Equal(t, types.ScalarAttributeTypeN, in.AttributeDefinitions[1].AttributeType)
}

func TestCreateTableInputHashOnly(t *testing.T) {
	in := createTableInput(model.TableSchema{
		Name:    model.UsersTable,
		HashKey: model.KeyAttribute{Name: "username", Type: types.ScalarAttributeTypeS},
	})
	assert.Len(t, in.KeySchema, 1)
	assert.Len(t, in.AttributeDefinitions, 1)
}

func TestAttrInt(t *testing.T) {
	n, ok := AttrInt(42).(*types.AttributeValueMemberN)
	require.True(t, ok)
	assert.Equal(t, "42", n.Value)
}
