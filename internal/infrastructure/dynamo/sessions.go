package dynamo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/credential-api/internal/domain"
)

// SessionRepo provides typed DynamoDB operations for the sessions table.
// Sessions are keyed by token hash, so every mutation is a conditional write
// against a single row — rotation and revocation never rewrite a session list.
type SessionRepo struct {
	client    *dynamodb.Client
	tableName string
}

func NewSessionRepo(client *dynamodb.Client, tableName string) *SessionRepo {
	return &SessionRepo{client: client, tableName: tableName}
}

// Put inserts a new session. The attribute_not_exists condition guards against
// a hash collision ever silently replacing another account's session.
func (r *SessionRepo) Put(ctx context.Context, s *domain.Session) error {
	item, err := attributevalue.MarshalMap(s)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}
	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(r.tableName),
		Item:                item,
		ConditionExpression: aws.String("attribute_not_exists(token_hash)"),
	})
	if err != nil {
		return fmt.Errorf("put session: %w", err)
	}
	return nil
}

func (r *SessionRepo) GetByHash(ctx context.Context, tokenHash string) (*domain.Session, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.tableName),
		Key:       strKey("token_hash", tokenHash),
	})
	if err != nil {
		return nil, err
	}
	if out.Item == nil {
		return nil, fmt.Errorf("session not found: %w", domain.ErrNotFound)
	}
	var s domain.Session
	if err := attributevalue.UnmarshalMap(out.Item, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// TakeByHash atomically removes the session and returns it. Exactly one of N
// concurrent callers presenting the same token wins; the rest get ErrNotFound.
// This is the primitive that makes refresh rotation single-use.
func (r *SessionRepo) TakeByHash(ctx context.Context, tokenHash string) (*domain.Session, error) {
	out, err := r.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName:           aws.String(r.tableName),
		Key:                 strKey("token_hash", tokenHash),
		ConditionExpression: aws.String("attribute_exists(token_hash)"),
		ReturnValues:        types.ReturnValueAllOld,
	})
	if err != nil {
		var ccfe *types.ConditionalCheckFailedException
		if errors.As(err, &ccfe) {
			return nil, fmt.Errorf("session not found: %w", domain.ErrNotFound)
		}
		return nil, err
	}
	var s domain.Session
	if err := attributevalue.UnmarshalMap(out.Attributes, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// DeleteByHash removes a session unconditionally. Idempotent — deleting an
// already-removed session is not an error, which keeps logout retry-safe.
func (r *SessionRepo) DeleteByHash(ctx context.Context, tokenHash string) error {
	_, err := r.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(r.tableName),
		Key:       strKey("token_hash", tokenHash),
	})
	return err
}

// Revoke marks a session revoked without removing it, preserving the record
// for replay detection until TTL expiry.
func (r *SessionRepo) Revoke(ctx context.Context, tokenHash string) error {
	expr, names, values, err := buildUpdateExpr(map[string]interface{}{
		fieldRevoked:    true,
		fieldLastUsedAt: time.Now().UTC().Unix(),
	})
	if err != nil {
		return err
	}
	_, err = r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(r.tableName),
		Key:                       strKey("token_hash", tokenHash),
		UpdateExpression:          aws.String(expr),
		ConditionExpression:       aws.String("attribute_exists(token_hash)"),
		ExpressionAttributeNames:  names,
		ExpressionAttributeValues: values,
	})
	if err != nil {
		var ccfe *types.ConditionalCheckFailedException
		if errors.As(err, &ccfe) {
			return fmt.Errorf("session not found: %w", domain.ErrNotFound)
		}
		return err
	}
	return nil
}

// ListByAccount returns the account's sessions ordered oldest-first, which is
// the eviction order for the per-account session cap.
func (r *SessionRepo) ListByAccount(ctx context.Context, accountID string) ([]domain.Session, error) {
	out, err := r.client.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(r.tableName),
		IndexName:              aws.String("account_id-created_at-index"),
		KeyConditionExpression: aws.String("account_id = :aid"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":aid": &types.AttributeValueMemberS{Value: accountID},
		},
		ScanIndexForward: aws.Bool(true),
	})
	if err != nil {
		return nil, err
	}
	var sessions []domain.Session
	if err := attributevalue.UnmarshalListOfMaps(out.Items, &sessions); err != nil {
		return nil, err
	}
	return sessions, nil
}

// DeleteAllByAccount removes every session for an account (global sign-out).
func (r *SessionRepo) DeleteAllByAccount(ctx context.Context, accountID string) error {
	sessions, err := r.ListByAccount(ctx, accountID)
	if err != nil {
		return err
	}
	var firstErr error
	for _, s := range sessions {
		if err := r.DeleteByHash(ctx, s.TokenHash); err != nil {
			slog.Warn("failed to delete session during global sign-out", "account_id", accountID, "err", err)
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}
