package dynamo

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/go-notes-api/internal/domain"
)

// UserRepo stores users in the users table and enforces email and
// external-id uniqueness through a companion keys table (PK: key).
// Each unique value owns one item, "email#<addr>" or "ext#<id>",
// written in the same transaction as the user.
type UserRepo struct {
	client    *dynamodb.Client
	tableName string
	keysTable string
	now       func() time.Time
}

func NewUserRepo(client *dynamodb.Client, tableName, keysTable string) *UserRepo {
	return &UserRepo{client: client, tableName: tableName, keysTable: keysTable, now: time.Now}
}

type userKey struct {
	Key    string `dynamodbav:"key"`
	UserID string `dynamodbav:"user_id"`
}

func emailKey(email string) string { return "email#" + email }

func externalKey(id string) string { return "ext#" + id }

func (r *UserRepo) Create(ctx context.Context, u *domain.User) error {
	if !u.HasPassword() && u.ExternalID == "" {
		return fmt.Errorf("user needs a password or external id: %w", domain.ErrBadRequest)
	}
	item, err := attributevalue.MarshalMap(u)
	if err != nil {
		return fmt.Errorf("marshal user: %w", err)
	}
	items := []types.TransactWriteItem{{
		Put: &types.Put{
			TableName:                aws.String(r.tableName),
			Item:                     item,
			ConditionExpression:      aws.String("attribute_not_exists(#pk)"),
			ExpressionAttributeNames: map[string]string{"#pk": fieldUserID},
		},
	}}
	emailPut, err := r.keyPut(emailKey(u.Email), u.UserID)
	if err != nil {
		return err
	}
	items = append(items, emailPut)
	if u.ExternalID != "" {
		extPut, err := r.keyPut(externalKey(u.ExternalID), u.UserID)
		if err != nil {
			return err
		}
		items = append(items, extPut)
	}
	_, err = r.client.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{TransactItems: items})
	if err != nil {
		return mapWriteErr("create user", err)
	}
	return nil
}

func (r *UserRepo) Get(ctx context.Context, userID string) (*domain.User, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(r.tableName),
		Key:            strKey(fieldUserID, userID),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, err
	}
	if out.Item == nil {
		return nil, fmt.Errorf("user not found: %w", domain.ErrNotFound)
	}
	var u domain.User
	if err := attributevalue.UnmarshalMap(out.Item, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.getByKey(ctx, emailKey(email))
}

func (r *UserRepo) GetByExternalID(ctx context.Context, externalID string) (*domain.User, error) {
	return r.getByKey(ctx, externalKey(externalID))
}

// Update applies patch and returns the stored user. Linking a new external id
// claims its key item in the same transaction as the user update.
func (r *UserRepo) Update(ctx context.Context, userID string, patch domain.UserPatch) (*domain.User, error) {
	current, err := r.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	updates := map[string]interface{}{fieldUpdatedAt: r.now().UTC()}
	if patch.MarkVerified {
		updates[fieldVerified] = true
	}
	linking := patch.ExternalID != nil && *patch.ExternalID != current.ExternalID
	if linking {
		updates[fieldExternalID] = *patch.ExternalID
	}
	ue, err := buildUpdateExpr(updates)
	if err != nil {
		return nil, err
	}
	ue.Names["#pk"] = fieldUserID

	if !linking {
		out, err := r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
			TableName:                 aws.String(r.tableName),
			Key:                       strKey(fieldUserID, userID),
			UpdateExpression:          aws.String(ue.Expr),
			ConditionExpression:       aws.String("attribute_exists(#pk)"),
			ExpressionAttributeNames:  ue.Names,
			ExpressionAttributeValues: ue.Values,
			ReturnValues:              types.ReturnValueAllNew,
		})
		if err != nil {
			if isConditionFailed(err) {
				return nil, fmt.Errorf("user %s: %w", userID, domain.ErrNotFound)
			}
			return nil, fmt.Errorf("update user: %w", err)
		}
		var u domain.User
		if err := attributevalue.UnmarshalMap(out.Attributes, &u); err != nil {
			return nil, err
		}
		return &u, nil
	}

	keyPut, err := r.keyPut(externalKey(*patch.ExternalID), userID)
	if err != nil {
		return nil, err
	}
	items := []types.TransactWriteItem{
		{Update: &types.Update{
			TableName:                 aws.String(r.tableName),
			Key:                       strKey(fieldUserID, userID),
			UpdateExpression:          aws.String(ue.Expr),
			ConditionExpression:       aws.String("attribute_exists(#pk)"),
			ExpressionAttributeNames:  ue.Names,
			ExpressionAttributeValues: ue.Values,
		}},
		keyPut,
	}
	if current.ExternalID != "" {
		items = append(items, types.TransactWriteItem{Delete: &types.Delete{
			TableName: aws.String(r.keysTable),
			Key:       strKey(fieldKey, externalKey(current.ExternalID)),
		}})
	}
	if _, err := r.client.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{TransactItems: items}); err != nil {
		return nil, mapWriteErr("link external id", err)
	}
	return r.Get(ctx, userID)
}

func (r *UserRepo) keyPut(key, userID string) (types.TransactWriteItem, error) {
	item, err := attributevalue.MarshalMap(userKey{Key: key, UserID: userID})
	if err != nil {
		return types.TransactWriteItem{}, fmt.Errorf("marshal user key: %w", err)
	}
	return types.TransactWriteItem{Put: &types.Put{
		TableName:                aws.String(r.keysTable),
		Item:                     item,
		ConditionExpression:      aws.String("attribute_not_exists(#k)"),
		ExpressionAttributeNames: map[string]string{"#k": fieldKey},
	}}, nil
}

// getByKey resolves a uniqueness key to its user with consistent reads, so a
// user is visible to lookups as soon as Create returns.
func (r *UserRepo) getByKey(ctx context.Context, key string) (*domain.User, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(r.keysTable),
		Key:            strKey(fieldKey, key),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, err
	}
	if out.Item == nil {
		return nil, fmt.Errorf("user not found: %w", domain.ErrNotFound)
	}
	var k userKey
	if err := attributevalue.UnmarshalMap(out.Item, &k); err != nil {
		return nil, err
	}
	return r.Get(ctx, k.UserID)
}
