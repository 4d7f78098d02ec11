package orders

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	dyn "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/aws/smithy-go"

	"github.com/imrishuroy/omnichannel-fulfillment/internal/aws"
	"github.com/imrishuroy/omnichannel-fulfillment/internal/idempotency"
	"github.com/imrishuroy/omnichannel-fulfillment/internal/pagination"
)

const (
	ShipmentIndex      = "shipment_id-index"
	EntityCreatedIndex = "entity-created-index"
)

var (
	// ErrDuplicateShipment is returned by Create when an order for the shipment already exists.
	ErrDuplicateShipment = errors.New("order for shipment already exists")
	// ErrVersionConflict is returned by Save when the record changed since it was read.
	ErrVersionConflict = errors.New("order version conflict")
)

// Store encapsulates operations on the orders table.
type Store struct {
	client     aws.DynamoDBAPI
	tableName  string
	guardTable string
	nowFunc    func() time.Time
}

// NewStore creates a new orders Store. guardTable is the idempotency table holding the
// one-order-per-shipment markers.
func NewStore(client aws.DynamoDBAPI, tableName, guardTable string) *Store {
	return &Store{
		client:     client,
		tableName:  tableName,
		guardTable: guardTable,
		nowFunc:    time.Now,
	}
}

// Create atomically writes the shipment guard and the order. order.ID must be set by the caller.
// A second order for the same shipment fails with ErrDuplicateShipment.
func (s *Store) Create(ctx context.Context, order *Order) error {
	now := s.nowFunc().UTC()
	if order.CreatedAt.IsZero() {
		order.CreatedAt = now
	}
	order.UpdatedAt = now
	order.Version = 1
	order.Entity = entityName
	order.SortKey = order.CreatedAt.Format(time.RFC3339Nano) + "#" + order.ID

	guardMap, err := attributevalue.MarshalMap(idempotency.NewShipmentGuard(order.ShipmentID, order.ID, now))
	if err != nil {
		return fmt.Errorf("marshal shipment guard: %w", err)
	}
	orderMap, err := attributevalue.MarshalMap(order)
	if err != nil {
		return fmt.Errorf("marshal order item: %w", err)
	}

	_, err = s.client.TransactWriteItems(ctx, &dyn.TransactWriteItemsInput{
		TransactItems: []types.TransactWriteItem{
			{
				Put: &types.Put{
					TableName:           &s.guardTable,
					Item:                guardMap,
					ConditionExpression: awsString("attribute_not_exists(idempotency_key)"),
				},
			},
			{
				Put: &types.Put{
					TableName:           &s.tableName,
					Item:                orderMap,
					ConditionExpression: awsString("attribute_not_exists(id)"),
				},
			},
		},
	})
	if err != nil {
		var tce *types.TransactionCanceledException
		if errors.As(err, &tce) {
			return ErrDuplicateShipment
		}
		return fmt.Errorf("transact write: %w", err)
	}
	return nil
}

// Get fetches an order by id. Returns (nil, nil) if not found.
func (s *Store) Get(ctx context.Context, id string) (*Order, error) {
	out, err := s.client.GetItem(ctx, &dyn.GetItemInput{
		TableName: &s.tableName,
		Key: map[string]types.AttributeValue{
			"id": &types.AttributeValueMemberS{Value: id},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("get item: %w", err)
	}
	if len(out.Item) == 0 {
		return nil, nil
	}
	var o Order
	if err := attributevalue.UnmarshalMap(out.Item, &o); err != nil {
		return nil, fmt.Errorf("unmarshal order: %w", err)
	}
	return &o, nil
}

// GetByShipmentID looks the order up through the shipment index. Returns (nil, nil) if not found.
func (s *Store) GetByShipmentID(ctx context.Context, shipmentID string) (*Order, error) {
	out, err := s.client.Query(ctx, &dyn.QueryInput{
		TableName:                 &s.tableName,
		IndexName:                 awsString(ShipmentIndex),
		KeyConditionExpression:    awsString("#sid = :sid"),
		ExpressionAttributeNames:  map[string]string{"#sid": "shipment_id"},
		ExpressionAttributeValues: map[string]types.AttributeValue{":sid": &types.AttributeValueMemberS{Value: shipmentID}},
	})
	if err != nil {
		return nil, fmt.Errorf("query shipment %s: %w", shipmentID, err)
	}
	if len(out.Items) == 0 {
		return nil, nil
	}
	var o Order
	if err := attributevalue.UnmarshalMap(out.Items[0], &o); err != nil {
		return nil, fmt.Errorf("unmarshal order: %w", err)
	}
	return &o, nil
}

// Save writes the whole record back if nobody else wrote it since it was read.
// Returns ErrVersionConflict if the condition failed; order is left unchanged in that case.
func (s *Store) Save(ctx context.Context, order *Order) error {
	expected := order.Version
	prevUpdated := order.UpdatedAt
	order.Version = expected + 1
	order.UpdatedAt = s.nowFunc().UTC()

	item, err := attributevalue.MarshalMap(order)
	if err != nil {
		order.Version, order.UpdatedAt = expected, prevUpdated
		return fmt.Errorf("marshal order item: %w", err)
	}
	_, err = s.client.PutItem(ctx, &dyn.PutItemInput{
		TableName:                &s.tableName,
		Item:                     item,
		ConditionExpression:      awsString("#v = :expected"),
		ExpressionAttributeNames: map[string]string{"#v": "version"},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":expected": &types.AttributeValueMemberN{Value: strconv.FormatInt(expected, 10)},
		},
	})
	if err != nil {
		order.Version, order.UpdatedAt = expected, prevUpdated
		if isConditionalCheckFailed(err) {
			return ErrVersionConflict
		}
		return fmt.Errorf("put item: %w", err)
	}
	return nil
}

// Delete removes the order and its shipment guard together.
func (s *Store) Delete(ctx context.Context, order *Order) error {
	_, err := s.client.TransactWriteItems(ctx, &dyn.TransactWriteItemsInput{
		TransactItems: []types.TransactWriteItem{
			{
				Delete: &types.Delete{
					TableName:           &s.tableName,
					Key:                 map[string]types.AttributeValue{"id": &types.AttributeValueMemberS{Value: order.ID}},
					ConditionExpression: awsString("attribute_exists(id)"),
				},
			},
			{
				Delete: &types.Delete{
					TableName: &s.guardTable,
					Key: map[string]types.AttributeValue{
						"idempotency_key": &types.AttributeValueMemberS{Value: idempotency.ShipmentGuardKey(order.ShipmentID)},
					},
				},
			},
		},
	})
	if err != nil {
		var tce *types.TransactionCanceledException
		if errors.As(err, &tce) {
			return ErrVersionConflict
		}
		return fmt.Errorf("transact delete: %w", err)
	}
	return nil
}

// ListParams filters List. Archived orders are hidden unless Archived is set, in which case
// only archived orders are listed.
type ListParams struct {
	pagination.Params
	Status     string
	LocationID string
	Archived   bool
	Search     string
}

// List pages orders by creation time.
func (s *Store) List(ctx context.Context, p ListParams) (*pagination.Page[Order], error) {
	q := pagination.Query{
		Table:          s.tableName,
		Index:          EntityCreatedIndex,
		PartitionAttr:  "entity",
		PartitionValue: entityName,
		KeyAttrs:       []string{"id", "entity", "sort_key"},
	}
	search := strings.ToLower(p.Search)
	return pagination.List(ctx, s.client, q, p.Params, func(o *Order) bool {
		if o.Archived != p.Archived {
			return false
		}
		if p.Status != "" && o.Status != p.Status {
			return false
		}
		if p.LocationID != "" && o.LocationID != p.LocationID {
			return false
		}
		if search != "" && !strings.Contains(strings.ToLower(o.ShipmentID), search) {
			return false
		}
		return true
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
