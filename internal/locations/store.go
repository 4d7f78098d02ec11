package locations

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	dyn "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/imrishuroy/omnichannel-fulfillment/internal/aws"
)

// Location maps a physical store to its supply source and storefront location.
type Location struct {
	ID                   string    `dynamodbav:"id" json:"id"`
	Name                 string    `dynamodbav:"name" json:"name" validate:"required"`
	SupplySourceID       string    `dynamodbav:"supply_source_id,omitempty" json:"supplySourceId,omitempty"`
	SupplySourceCode     string    `dynamodbav:"supply_source_code,omitempty" json:"supplySourceCode,omitempty"`
	StorefrontDomain     string    `dynamodbav:"storefront_domain,omitempty" json:"storefrontDomain,omitempty"`
	StorefrontLocationID string    `dynamodbav:"storefront_location_id,omitempty" json:"storefrontLocationId,omitempty"`
	StoreAdminEmail      string    `dynamodbav:"store_admin_email,omitempty" json:"storeAdminEmail,omitempty"`
	Active               bool      `dynamodbav:"active" json:"active"`
	CreatedAt            time.Time `dynamodbav:"created_at" json:"createdAt"`
	UpdatedAt            time.Time `dynamodbav:"updated_at" json:"updatedAt"`
}

// AdminEmails splits the comma separated admin email field.
func (l *Location) AdminEmails() []string {
	var out []string
	for _, part := range strings.Split(l.StoreAdminEmail, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Store encapsulates operations on the store locations table.
type Store struct {
	client    aws.DynamoDBAPI
	tableName string
	nowFunc   func() time.Time
}

func NewStore(client aws.DynamoDBAPI, tableName string) *Store {
	return &Store{client: client, tableName: tableName, nowFunc: time.Now}
}

// Get fetches a location by id. Returns (nil, nil) if not found.
func (s *Store) Get(ctx context.Context, id string) (*Location, error) {
	out, err := s.client.GetItem(ctx, &dyn.GetItemInput{
		TableName: &s.tableName,
		Key:       map[string]types.AttributeValue{"id": &types.AttributeValueMemberS{Value: id}},
	})
	if err != nil {
		return nil, fmt.Errorf("get location: %w", err)
	}
	if len(out.Item) == 0 {
		return nil, nil
	}
	var l Location
	if err := attributevalue.UnmarshalMap(out.Item, &l); err != nil {
		return nil, fmt.Errorf("unmarshal location: %w", err)
	}
	return &l, nil
}

// List scans the whole table. Locations are a handful of rows.
func (s *Store) List(ctx context.Context) ([]Location, error) {
	var (
		all      []Location
		startKey map[string]types.AttributeValue
	)
	for {
		out, err := s.client.Scan(ctx, &dyn.ScanInput{
			TableName:         &s.tableName,
			ExclusiveStartKey: startKey,
		})
		if err != nil {
			return nil, fmt.Errorf("scan locations: %w", err)
		}
		var page []Location
		if err := attributevalue.UnmarshalListOfMaps(out.Items, &page); err != nil {
			return nil, fmt.Errorf("unmarshal locations: %w", err)
		}
		all = append(all, page...)
		if len(out.LastEvaluatedKey) == 0 {
			return all, nil
		}
		startKey = out.LastEvaluatedKey
	}
}

// GetBySupplySource returns the location using supplySourceID, or (nil, nil).
func (s *Store) GetBySupplySource(ctx context.Context, supplySourceID string) (*Location, error) {
	all, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	for i := range all {
		if all[i].SupplySourceID == supplySourceID {
			return &all[i], nil
		}
	}
	return nil, nil
}

// Put creates or replaces a location.
func (s *Store) Put(ctx context.Context, l *Location) error {
	now := s.nowFunc().UTC()
	if l.CreatedAt.IsZero() {
		l.CreatedAt = now
	}
	l.UpdatedAt = now
	av, err := attributevalue.MarshalMap(l)
	if err != nil {
		return fmt.Errorf("marshal location: %w", err)
	}
	if _, err := s.client.PutItem(ctx, &dyn.PutItemInput{TableName: &s.tableName, Item: av}); err != nil {
		return fmt.Errorf("put location %s: %w", l.ID, err)
	}
	return nil
}
