package dynamo

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/credential-api/internal/domain"
)

// TicketRepo manages one-time email verification tickets.
// PK: ticket (the opaque value). Expired rows are garbage-collected by TTL;
// the expiry is still checked at consume time.
type TicketRepo struct {
	client    *dynamodb.Client
	tableName string
}

func NewTicketRepo(client *dynamodb.Client, tableName string) *TicketRepo {
	return &TicketRepo{client: client, tableName: tableName}
}

func (r *TicketRepo) Put(ctx context.Context, t *domain.VerificationTicket) error {
	item, err := attributevalue.MarshalMap(t)
	if err != nil {
		return fmt.Errorf("marshal ticket: %w", err)
	}
	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(r.tableName),
		Item:      item,
	})
	return err
}

// Take atomically consumes the ticket: conditional delete returning the old
// row. A second consumption of the same value always fails because the row is
// gone after the first.
func (r *TicketRepo) Take(ctx context.Context, ticket string) (*domain.VerificationTicket, error) {
	out, err := r.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName:           aws.String(r.tableName),
		Key:                 strKey("ticket", ticket),
		ConditionExpression: aws.String("attribute_exists(ticket)"),
		ReturnValues:        types.ReturnValueAllOld,
	})
	if err != nil {
		var ccfe *types.ConditionalCheckFailedException
		if errors.As(err, &ccfe) {
			return nil, fmt.Errorf("ticket not found: %w", domain.ErrNotFound)
		}
		return nil, err
	}
	var t domain.VerificationTicket
	if err := attributevalue.UnmarshalMap(out.Attributes, &t); err != nil {
		return nil, err
	}
	return &t, nil
}

// Delete discards a ticket without consuming it (reissue paths, rollback).
func (r *TicketRepo) Delete(ctx context.Context, ticket string) error {
	_, err := r.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(r.tableName),
		Key:       strKey("ticket", ticket),
	})
	return err
}
