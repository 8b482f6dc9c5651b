package dynamo

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/credential-api/internal/domain"
)

// Marker-row key prefixes. Uniqueness of email and username is enforced by
// writing one marker item per identifier in the same table as the account,
// inside a single transaction with attribute_not_exists conditions. Two
// concurrent registrations for the same identifier can both pass a pre-check;
// only one transaction commits.
const (
	emailMarkerPrefix    = "email#"
	usernameMarkerPrefix = "username#"
)

// AccountRepo provides typed DynamoDB operations for the accounts table.
type AccountRepo struct {
	client    *dynamodb.Client
	tableName string
}

func NewAccountRepo(client *dynamodb.Client, tableName string) *AccountRepo {
	return &AccountRepo{client: client, tableName: tableName}
}

// Create writes the account row plus both uniqueness markers transactionally.
// A collision on either marker surfaces as *domain.ConflictError naming the
// colliding field.
func (r *AccountRepo) Create(ctx context.Context, a *domain.Account) error {
	item, err := attributevalue.MarshalMap(a)
	if err != nil {
		return fmt.Errorf("marshal account: %w", err)
	}
	notExists := aws.String("attribute_not_exists(account_id)")
	_, err = r.client.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{
		TransactItems: []types.TransactWriteItem{
			{Put: &types.Put{
				TableName:           aws.String(r.tableName),
				Item:                item,
				ConditionExpression: notExists,
			}},
			{Put: &types.Put{
				TableName:           aws.String(r.tableName),
				Item:                markerItem(emailMarkerPrefix+a.Email, a.AccountID),
				ConditionExpression: notExists,
			}},
			{Put: &types.Put{
				TableName:           aws.String(r.tableName),
				Item:                markerItem(usernameMarkerPrefix+a.Username, a.AccountID),
				ConditionExpression: notExists,
			}},
		},
	})
	if err != nil {
		if field, ok := conflictField(err); ok {
			return fmt.Errorf("create account: %w", &domain.ConflictError{Field: field})
		}
		return fmt.Errorf("create account: %w", err)
	}
	return nil
}

// Delete removes the account row and both markers. Used only for registration
// rollback when verification delivery could not be completed.
func (r *AccountRepo) Delete(ctx context.Context, a *domain.Account) error {
	_, err := r.client.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{
		TransactItems: []types.TransactWriteItem{
			{Delete: &types.Delete{
				TableName: aws.String(r.tableName),
				Key:       strKey("account_id", a.AccountID),
			}},
			{Delete: &types.Delete{
				TableName: aws.String(r.tableName),
				Key:       strKey("account_id", emailMarkerPrefix+a.Email),
			}},
			{Delete: &types.Delete{
				TableName: aws.String(r.tableName),
				Key:       strKey("account_id", usernameMarkerPrefix+a.Username),
			}},
		},
	})
	if err != nil {
		return fmt.Errorf("delete account: %w", err)
	}
	return nil
}

func (r *AccountRepo) Get(ctx context.Context, accountID string) (*domain.Account, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.tableName),
		Key:       strKey("account_id", accountID),
	})
	if err != nil {
		return nil, err
	}
	if out.Item == nil {
		return nil, fmt.Errorf("account not found: %w", domain.ErrNotFound)
	}
	var a domain.Account
	if err := attributevalue.UnmarshalMap(out.Item, &a); err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *AccountRepo) GetByEmail(ctx context.Context, email string) (*domain.Account, error) {
	return r.queryGSI(ctx, "email-index", "email", domain.CanonicalEmail(email))
}

func (r *AccountRepo) GetByUsername(ctx context.Context, username string) (*domain.Account, error) {
	return r.queryGSI(ctx, "username-index", "username", username)
}

// GetByIdentifier resolves a login identifier that may be either an email
// address or a username.
func (r *AccountRepo) GetByIdentifier(ctx context.Context, identifier string) (*domain.Account, error) {
	if strings.Contains(identifier, "@") {
		return r.GetByEmail(ctx, identifier)
	}
	return r.GetByUsername(ctx, identifier)
}

// Update applies a partial SET update conditioned on the account row existing,
// so a concurrent rollback cannot resurrect a deleted account.
func (r *AccountRepo) Update(ctx context.Context, accountID string, updates map[string]interface{}) error {
	updates["updated_at"] = time.Now().UTC().Format(time.RFC3339)
	expr, names, values, err := buildUpdateExpr(updates)
	if err != nil {
		return err
	}
	_, err = r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(r.tableName),
		Key:                       strKey("account_id", accountID),
		UpdateExpression:          aws.String(expr),
		ConditionExpression:       aws.String("attribute_exists(account_id)"),
		ExpressionAttributeNames:  names,
		ExpressionAttributeValues: values,
	})
	if err != nil {
		var ccfe *types.ConditionalCheckFailedException
		if errors.As(err, &ccfe) {
			return fmt.Errorf("account gone: %w", domain.ErrNotFound)
		}
		return err
	}
	return nil
}

// SetVerified flips the account to verified and clears the pending ticket.
// The flag is monotonic; callers never set it back to false.
func (r *AccountRepo) SetVerified(ctx context.Context, accountID string) error {
	return r.Update(ctx, accountID, map[string]interface{}{
		fieldVerified:      true,
		fieldPendingTicket: "",
	})
}

func (r *AccountRepo) queryGSI(ctx context.Context, index, attr, value string) (*domain.Account, error) {
	out, err := r.client.Query(ctx, &dynamodb.QueryInput{
		TableName:                 aws.String(r.tableName),
		IndexName:                 aws.String(index),
		KeyConditionExpression:    aws.String("#a = :v"),
		ExpressionAttributeNames:  map[string]string{"#a": attr},
		ExpressionAttributeValues: map[string]types.AttributeValue{":v": &types.AttributeValueMemberS{Value: value}},
		Limit:                     aws.Int32(1),
	})
	if err != nil {
		return nil, err
	}
	if len(out.Items) == 0 {
		return nil, fmt.Errorf("account not found: %w", domain.ErrNotFound)
	}
	var a domain.Account
	if err := attributevalue.UnmarshalMap(out.Items[0], &a); err != nil {
		return nil, err
	}
	return &a, nil
}

func markerItem(key, accountID string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"account_id": &types.AttributeValueMemberS{Value: key},
		"ref":        &types.AttributeValueMemberS{Value: accountID},
	}
}

// conflictField maps a cancelled create transaction to the unique field that
// collided. Item order matches Create: 0 account row, 1 email marker,
// 2 username marker.
func conflictField(err error) (string, bool) {
	var tce *types.TransactionCanceledException
	if !errors.As(err, &tce) {
		return "", false
	}
	for i, reason := range tce.CancellationReasons {
		if reason.Code == nil || *reason.Code != "ConditionalCheckFailed" {
			continue
		}
		switch i {
		case 1:
			return "email", true
		case 2:
			return "username", true
		default:
			return "account", true
		}
	}
	return "", false
}
