package syncsessions

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

// ErrAlreadyPersisted is returned when a finished session is saved a second time.
var ErrAlreadyPersisted = errors.New("sync session already persisted")

type Store struct {
	client    aws.DynamoDBAPI
	tableName string
}

func NewStore(client aws.DynamoDBAPI, tableName string) *Store {
	return &Store{client: client, tableName: tableName}
}

// Save persists a session once. Sessions are immutable after that.
func (s *Store) Save(ctx context.Context, session *Session) error {
	session.Entity = entityName
	session.SortKey = session.StartedAt.UTC().Format(time.RFC3339Nano) + "#" + session.ID

	av, err := attributevalue.MarshalMap(session)
	if err != nil {
		return fmt.Errorf("marshal sync session: %w", err)
	}
	_, err = s.client.PutItem(ctx, &dyn.PutItemInput{
		TableName:           &s.tableName,
		Item:                av,
		ConditionExpression: awsString("attribute_not_exists(id)"),
	})
	if err != nil {
		if isConditionalCheckFailed(err) {
			return ErrAlreadyPersisted
		}
		return fmt.Errorf("put sync session %s: %w", session.ID, err)
	}
	return nil
}

// Get fetches a session by id. Returns (nil, nil) if not found.
func (s *Store) Get(ctx context.Context, id string) (*Session, error) {
	out, err := s.client.GetItem(ctx, &dyn.GetItemInput{
		TableName: &s.tableName,
		Key:       map[string]types.AttributeValue{"id": &types.AttributeValueMemberS{Value: id}},
	})
	if err != nil {
		return nil, fmt.Errorf("get sync session: %w", err)
	}
	if len(out.Item) == 0 {
		return nil, nil
	}
	var session Session
	if err := attributevalue.UnmarshalMap(out.Item, &session); err != nil {
		return nil, fmt.Errorf("unmarshal sync session: %w", err)
	}
	return &session, nil
}

// ListParams filters List.
type ListParams struct {
	pagination.Params
	Status string
}

// List pages sessions by start time.
func (s *Store) List(ctx context.Context, p ListParams) (*pagination.Page[Session], error) {
	q := pagination.Query{
		Table:          s.tableName,
		Index:          EntityCreatedIndex,
		PartitionAttr:  "entity",
		PartitionValue: entityName,
		KeyAttrs:       []string{"id", "entity", "sort_key"},
	}
	return pagination.List(ctx, s.client, q, p.Params, func(sess *Session) bool {
		return p.Status == "" || sess.Status == p.Status
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
