package pagination

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	dyn "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/imrishuroy/omnichannel-fulfillment/internal/aws"
)

// Query identifies one partition of a sorted index.
// KeyAttrs are the attributes that make up a LastEvaluatedKey on that index.
type Query struct {
	Table          string
	Index          string
	PartitionAttr  string
	PartitionValue string
	KeyAttrs       []string
}

// List reads one page of q in the order requested by p. Items rejected by keep are skipped
// without counting towards the limit.
func List[T any](ctx context.Context, client aws.DynamoDBAPI, q Query, p Params, keep func(*T) bool) (*Page[T], error) {
	p = p.Normalize()

	forward := p.Sort == SortAsc
	cursor := p.After
	backward := p.Before != ""
	if backward {
		forward = !forward
		cursor = p.Before
	}

	startKey, err := DecodeCursor(cursor)
	if err != nil {
		return nil, err
	}

	var (
		items []T
		keys  []map[string]types.AttributeValue
		batch = int32(p.Limit + 1)
	)
	for {
		in := &dyn.QueryInput{
			TableName:              &q.Table,
			KeyConditionExpression: strPtr("#pk = :pk"),
			ExpressionAttributeNames: map[string]string{
				"#pk": q.PartitionAttr,
			},
			ExpressionAttributeValues: map[string]types.AttributeValue{
				":pk": &types.AttributeValueMemberS{Value: q.PartitionValue},
			},
			ScanIndexForward:  &forward,
			Limit:             &batch,
			ExclusiveStartKey: startKey,
		}
		if q.Index != "" {
			in.IndexName = &q.Index
		}

		out, err := client.Query(ctx, in)
		if err != nil {
			return nil, fmt.Errorf("query %s: %w", q.Table, err)
		}

		for _, raw := range out.Items {
			var v T
			if err := attributevalue.UnmarshalMap(raw, &v); err != nil {
				return nil, fmt.Errorf("unmarshal %s item: %w", q.Table, err)
			}
			if keep != nil && !keep(&v) {
				continue
			}
			items = append(items, v)
			keys = append(keys, pickKey(raw, q.KeyAttrs))
			if len(items) > p.Limit {
				break
			}
		}

		if len(items) > p.Limit || len(out.LastEvaluatedKey) == 0 {
			break
		}
		startKey = out.LastEvaluatedKey
	}

	page := &Page[T]{Items: items}
	if len(items) > p.Limit {
		page.Items = items[:p.Limit]
		keys = keys[:p.Limit]
		page.Meta.HasMoreItems = true
		c, err := EncodeCursor(keys[len(keys)-1])
		if err != nil {
			return nil, err
		}
		page.Meta.Cursor = c
	}
	if page.Items == nil {
		page.Items = []T{}
	}

	if backward {
		for i, j := 0, len(page.Items)-1; i < j; i, j = i+1, j-1 {
			page.Items[i], page.Items[j] = page.Items[j], page.Items[i]
		}
	}
	return page, nil
}

func pickKey(item map[string]types.AttributeValue, attrs []string) map[string]types.AttributeValue {
	key := make(map[string]types.AttributeValue, len(attrs))
	for _, a := range attrs {
		if v, ok := item[a]; ok {
			key[a] = v
		}
	}
	return key
}

func strPtr(s string) *string { return &s }
