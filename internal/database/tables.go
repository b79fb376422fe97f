package database

import (
	"context"
	"fmt"
	"time"

	"chat-app/internal/model"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/rs/zerolog/log"
)

const tableWaitTimeout = 2 * time.Minute

// ListTables returns all table names at the configured endpoint.
func (c *DynamoDBClient) ListTables(ctx context.Context) ([]string, error) {
	var last *string
	var names []string

	for {
		out, err := c.svc.ListTables(ctx, &dynamodb.ListTablesInput{
			ExclusiveStartTableName: last,
			Limit:                   aws.Int32(100),
		})
		if err != nil {
			return nil, fmt.Errorf("list tables: %w", err)
		}

		names = append(names, out.TableNames...)
		if out.LastEvaluatedTableName == nil {
			break
		}
		last = out.LastEvaluatedTableName
	}

	return names, nil
}

// EnsureTables creates every schema whose table does not exist yet and waits
// for it to become active. It returns the names of the tables it created.
func (c *DynamoDBClient) EnsureTables(ctx context.Context, schemas []model.TableSchema) ([]string, error) {
	existing, err := c.ListTables(ctx)
	if err != nil {
		return nil, err
	}
	have := make(map[string]bool, len(existing))
	for _, name := range existing {
		have[name] = true
	}

	var created []string
	for _, schema := range schemas {
		if have[schema.Name] {
			continue
		}

		if _, err := c.svc.CreateTable(ctx, createTableInput(schema)); err != nil {
			return created, fmt.Errorf("create table %s: %w", schema.Name, err)
		}

		waiter := dynamodb.NewTableExistsWaiter(c.svc)
		if err := waiter.Wait(ctx, &dynamodb.DescribeTableInput{TableName: aws.String(schema.Name)}, tableWaitTimeout); err != nil {
			return created, fmt.Errorf("wait for table %s: %w", schema.Name, err)
		}

		log.Info().Str("table", schema.Name).Msg("created table")
		created = append(created, schema.Name)
	}

	return created, nil
}

func createTableInput(schema model.TableSchema) *dynamodb.CreateTableInput {
	attrs := []types.AttributeDefinition{{
		AttributeName: aws.String(schema.HashKey.Name),
		AttributeType: schema.HashKey.Type,
	}}
	keys := []types.KeySchemaElement{{
		AttributeName: aws.String(schema.HashKey.Name),
		KeyType:       types.KeyTypeHash,
	}}

	if schema.SortKey != nil {
		attrs = append(attrs, types.AttributeDefinition{
			AttributeName: aws.String(schema.SortKey.Name),
			AttributeType: schema.SortKey.Type,
		})
		keys = append(keys, types.KeySchemaElement{
			AttributeName: aws.String(schema.SortKey.Name),
			KeyType:       types.KeyTypeRange,
		})
	}

	return &dynamodb.CreateTableInput{
		TableName:            aws.String(schema.Name),
		AttributeDefinitions: attrs,
		KeySchema:            keys,
		BillingMode:          types.BillingModePayPerRequest,
	}
}
