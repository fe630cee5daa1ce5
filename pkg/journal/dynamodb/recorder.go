// Package dynamodb persists the audit journal to a DynamoDB table: one
// item per entry, with a constant GSI partition key so recent entries can
// be read back in timestamp order.
package dynamodb

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/wattbase/wattledger/pkg/journal"
	"github.com/wattbase/wattledger/pkg/models"
)

const (
	journalPartition = "JOURNAL_ENTRIES"
	journalGSI       = "gsi1pk-timestamp-index"
)

// DynamoDBAPI captures the DynamoDB operations the recorder uses.
type DynamoDBAPI interface {
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
}

// Recorder writes journal entries to DynamoDB.
type Recorder struct {
	Client    DynamoDBAPI
	TableName string
}

// New creates a Recorder writing to the given table.
func New(client DynamoDBAPI, tableName string) *Recorder {
	return &Recorder{Client: client, TableName: tableName}
}

// Make sure we conform to the interface
var _ journal.Recorder = (*Recorder)(nil)

// Record writes each entry as its own item. Entry ids are unique, so a
// replay of an already recorded entry fails the condition check.
func (r *Recorder) Record(ctx context.Context, entries ...models.JournalEntry) error {
	for _, entry := range entries {
		entry.GSI1PK = journalPartition

		item, err := attributevalue.MarshalMap(entry)
		if err != nil {
			return fmt.Errorf("failed to marshal journal entry: %w", err)
		}

		input := &dynamodb.PutItemInput{
			TableName:           aws.String(r.TableName),
			Item:                item,
			ConditionExpression: aws.String("attribute_not_exists(entry_id)"),
		}
		if _, err := r.Client.PutItem(ctx, input); err != nil {
			return fmt.Errorf("failed to put journal entry %s: %w", entry.EntryID, err)
		}
	}
	return nil
}

// ListRecent queries the journal partition, newest first.
func (r *Recorder) ListRecent(ctx context.Context, limit int32) ([]models.JournalEntry, error) {
	input := &dynamodb.QueryInput{
		TableName:              aws.String(r.TableName),
		IndexName:              aws.String(journalGSI),
		KeyConditionExpression: aws.String("gsi1pk = :pk"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk": &types.AttributeValueMemberS{Value: journalPartition},
		},
		ScanIndexForward: aws.Bool(false), // Sort by timestamp in descending order
		Limit:            &limit,
	}

	result, err := r.Client.Query(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("failed to query for journal entries: %w", err)
	}

	var entries []models.JournalEntry
	if err := attributevalue.UnmarshalListOfMaps(result.Items, &entries); err != nil {
		return nil, fmt.Errorf("failed to unmarshal journal entries: %w", err)
	}

	return entries, nil
}
