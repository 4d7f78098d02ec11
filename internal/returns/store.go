package returns

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	dyn "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/aws/smithy-go"

	"github.com/imrishuroy/omnichannel-fulfillment/internal/aws"
	"github.com/imrishuroy/omnichannel-fulfillment/internal/pagination"
)

const EntityCreatedIndex = "entity-created-index"

// ErrExists is returned by Create when the id is taken.
var ErrExists = errors.New("order return already exists")

// Store encapsulates operations on the order returns table.
type Store struct {
	client    aws.DynamoDBAPI
	tableName string
	nowFunc   func() time.Time
}

func NewStore(client aws.DynamoDBAPI, tableName string) *Store {
	return &Store{client: client, tableName: tableName, nowFunc: time.Now}
}

// Create writes a new return. It never overwrites.
func (s *Store) Create(ctx context.Context, r *Return) error {
	now := s.nowFunc().UTC()
	r.CreatedAt = now
	r.UpdatedAt = now
	r.Entity = entityName
	r.SortKey = now.Format(time.RFC3339Nano) + "#" + r.ID

	av, err := attributevalue.MarshalMap(r)
	if err != nil {
		return fmt.Errorf("marshal order return: %w", err)
	}
	_, err = s.client.PutItem(ctx, &dyn.PutItemInput{
		TableName:           &s.tableName,
		Item:                av,
		ConditionExpression: awsString("attribute_not_exists(id)"),
	})
	if err != nil {
		if isConditionalCheckFailed(err) {
			return ErrExists
		}
		return fmt.Errorf("put order return %s: %w", r.ID, err)
	}
	return nil
}

// Get fetches a return by id. Returns (nil, nil) if not found.
func (s *Store) Get(ctx context.Context, id string) (*Return, error) {
	out, err := s.client.GetItem(ctx, &dyn.GetItemInput{
		TableName: &s.tableName,
		Key:       map[string]types.AttributeValue{"id": &types.AttributeValueMemberS{Value: id}},
	})
	if err != nil {
		return nil, fmt.Errorf("get order return: %w", err)
	}
	if len(out.Item) == 0 {
		return nil, nil
	}
	var r Return
	if err := attributevalue.UnmarshalMap(out.Item, &r); err != nil {
		return nil, fmt.Errorf("unmarshal order return: %w", err)
	}
	return &r, nil
}

// ListParams filters List.
type ListParams struct {
	pagination.Params
	RmaID string
}

func (s *Store) List(ctx context.Context, p ListParams) (*pagination.Page[Return], error) {
	q := pagination.Query{
		Table:          s.tableName,
		Index:          EntityCreatedIndex,
		PartitionAttr:  "entity",
		PartitionValue: entityName,
		KeyAttrs:       []string{"id", "entity", "sort_key"},
	}
	return pagination.List(ctx, s.client, q, p.Params, func(r *Return) bool {
		return p.RmaID == "" || r.RmaID == p.RmaID
	})
}

func isConditionalCheckFailed(err error) bool {
	var ccf *types.ConditionalCheckFailedException
	if errors.As(err, &ccf) {
		return true
	}
	var apiErr smithy.APIError
	return errors.As(err, &apiErr) && apiErr.ErrorCode() == "ConditionalCheckFailedException"
}

func awsString(s string) *string { return &s }
