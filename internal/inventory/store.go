package inventory

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	dyn "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/google/uuid"

	"github.com/imrishuroy/omnichannel-fulfillment/internal/aws"
	"github.com/imrishuroy/omnichannel-fulfillment/internal/pagination"
)

const (
	LocationSKUIndex   = "location-sku-index"
	EntityCreatedIndex = "entity-created-index"
)

// Store encapsulates operations on the inventory items table.
type Store struct {
	client    aws.DynamoDBAPI
	tableName string
	nowFunc   func() time.Time
	newID     func() string
}

func NewStore(client aws.DynamoDBAPI, tableName string) *Store {
	return &Store{
		client:    client,
		tableName: tableName,
		nowFunc:   time.Now,
		newID:     uuid.NewString,
	}
}

// Get fetches an item by id. Returns (nil, nil) if not found.
func (s *Store) Get(ctx context.Context, id string) (*Item, error) {
	out, err := s.client.GetItem(ctx, &dyn.GetItemInput{
		TableName: &s.tableName,
		Key: map[string]types.AttributeValue{
			"id": &types.AttributeValueMemberS{Value: id},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("get inventory item: %w", err)
	}
	if len(out.Item) == 0 {
		return nil, nil
	}
	var item Item
	if err := attributevalue.UnmarshalMap(out.Item, &item); err != nil {
		return nil, fmt.Errorf("unmarshal inventory item: %w", err)
	}
	return &item, nil
}

// GetByLocationSKU returns the record for (locationID, sku), or (nil, nil).
func (s *Store) GetByLocationSKU(ctx context.Context, locationID, sku string) (*Item, error) {
	out, err := s.client.Query(ctx, &dyn.QueryInput{
		TableName:              &s.tableName,
		IndexName:              awsString(LocationSKUIndex),
		KeyConditionExpression: awsString("#loc = :loc AND #sku = :sku"),
		ExpressionAttributeNames: map[string]string{
			"#loc": "location_id",
			"#sku": "sku",
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":loc": &types.AttributeValueMemberS{Value: locationID},
			":sku": &types.AttributeValueMemberS{Value: sku},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("query inventory item %s/%s: %w", locationID, sku, err)
	}
	if len(out.Items) == 0 {
		return nil, nil
	}
	var item Item
	if err := attributevalue.UnmarshalMap(out.Items[0], &item); err != nil {
		return nil, fmt.Errorf("unmarshal inventory item: %w", err)
	}
	return &item, nil
}

// ListByLocation returns every item stocked at locationID.
func (s *Store) ListByLocation(ctx context.Context, locationID string) ([]Item, error) {
	var (
		items    []Item
		startKey map[string]types.AttributeValue
	)
	for {
		out, err := s.client.Query(ctx, &dyn.QueryInput{
			TableName:                 &s.tableName,
			IndexName:                 awsString(LocationSKUIndex),
			KeyConditionExpression:    awsString("#loc = :loc"),
			ExpressionAttributeNames:  map[string]string{"#loc": "location_id"},
			ExpressionAttributeValues: map[string]types.AttributeValue{":loc": &types.AttributeValueMemberS{Value: locationID}},
			ExclusiveStartKey:         startKey,
		})
		if err != nil {
			return nil, fmt.Errorf("list inventory for %s: %w", locationID, err)
		}
		var page []Item
		if err := attributevalue.UnmarshalListOfMaps(out.Items, &page); err != nil {
			return nil, fmt.Errorf("unmarshal inventory items: %w", err)
		}
		items = append(items, page...)
		if len(out.LastEvaluatedKey) == 0 {
			return items, nil
		}
		startKey = out.LastEvaluatedKey
	}
}

// Upsert writes item. An item without id takes the id of the existing (location, sku) record
// when there is one, so the pair never gets two records.
func (s *Store) Upsert(ctx context.Context, item *Item) error {
	now := s.nowFunc().UTC()
	if item.ID == "" {
		existing, err := s.GetByLocationSKU(ctx, item.LocationID, item.SKU)
		if err != nil {
			return err
		}
		if existing != nil {
			item.ID = existing.ID
			item.CreatedAt = existing.CreatedAt
		} else {
			item.ID = s.newID()
		}
	}
	if item.CreatedAt.IsZero() {
		item.CreatedAt = now
	}
	item.UpdatedAt = now
	item.LocationSKU = locationSKU(item.LocationID, item.SKU)
	item.Entity = entityName
	item.SortKey = item.CreatedAt.Format(time.RFC3339Nano) + "#" + item.ID

	av, err := attributevalue.MarshalMap(item)
	if err != nil {
		return fmt.Errorf("marshal inventory item: %w", err)
	}
	if _, err := s.client.PutItem(ctx, &dyn.PutItemInput{TableName: &s.tableName, Item: av}); err != nil {
		return fmt.Errorf("put inventory item %s: %w", item.LocationSKU, err)
	}
	return nil
}

// ListParams filters List.
type ListParams struct {
	pagination.Params
	LocationID string
	SKU        string
}

// List pages every item ordered by creation time.
func (s *Store) List(ctx context.Context, p ListParams) (*pagination.Page[Item], error) {
	q := pagination.Query{
		Table:          s.tableName,
		Index:          EntityCreatedIndex,
		PartitionAttr:  "entity",
		PartitionValue: entityName,
		KeyAttrs:       []string{"id", "entity", "sort_key"},
	}
	return pagination.List(ctx, s.client, q, p.Params, func(it *Item) bool {
		if p.LocationID != "" && it.LocationID != p.LocationID {
			return false
		}
		if p.SKU != "" && it.SKU != p.SKU {
			return false
		}
		return true
	})
}

func awsString(s string) *string { return &s }
