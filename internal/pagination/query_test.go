package pagination

import (
	"context"
	"fmt"
	"testing"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/imrishuroy/omnichannel-fulfillment/internal/awstest"
)

type record struct {
	ID      string `dynamodbav:"id"`
	Entity  string `dynamodbav:"entity"`
	SortKey string `dynamodbav:"sort_key"`
	Odd     bool   `dynamodbav:"odd"`
}

var testQuery = Query{
	Table:          "records",
	Index:          "entity-created-index",
	PartitionAttr:  "entity",
	PartitionValue: "RECORD",
	KeyAttrs:       []string{"id", "entity", "sort_key"},
}

func seed(t *testing.T, n int) *awstest.FakeDynamo {
	t.Helper()
	fake := awstest.NewFakeDynamo()
	fake.CreateTable("records", "id", awstest.Index{Name: "entity-created-index", PartitionKey: "entity", SortKey: "sort_key"})
	for i := 0; i < n; i++ {
		r := record{ID: fmt.Sprintf("r%02d", i), Entity: "RECORD", SortKey: fmt.Sprintf("2024-01-01T00:00:%02d#r%02d", i, i), Odd: i%2 == 1}
		item, err := attributevalue.MarshalMap(r)
		require.NoError(t, err)
		_, err = fake.PutItem(context.Background(), putInput("records", item))
		require.NoError(t, err)
	}
	return fake
}

func collect(t *testing.T, fake *awstest.FakeDynamo, p Params, keep func(*record) bool) []string {
	t.Helper()
	var ids []string
	seen := map[string]bool{}
	for pages := 0; pages < 50; pages++ {
		page, err := List[record](context.Background(), fake, testQuery, p, keep)
		require.NoError(t, err)
		for _, r := range page.Items {
			require.False(t, seen[r.ID], "duplicate %s", r.ID)
			seen[r.ID] = true
			ids = append(ids, r.ID)
		}
		if !page.Meta.HasMoreItems {
			return ids
		}
		require.NotEmpty(t, page.Meta.Cursor)
		p.After = page.Meta.Cursor
	}
	t.Fatalf("pagination did not terminate")
	return nil
}

func TestList_RoundTripDescending(t *testing.T) {
	fake := seed(t, 7)

	ids := collect(t, fake, Params{Limit: 3, Sort: SortDesc}, nil)

	assert.Equal(t, []string{"r06", "r05", "r04", "r03", "r02", "r01", "r00"}, ids)
}

func TestList_RoundTripAscending(t *testing.T) {
	fake := seed(t, 6)

	ids := collect(t, fake, Params{Limit: 2, Sort: SortAsc}, nil)

	assert.Equal(t, []string{"r00", "r01", "r02", "r03", "r04", "r05"}, ids)
}

func TestList_FilterDoesNotCountTowardsLimit(t *testing.T) {
	fake := seed(t, 9)

	ids := collect(t, fake, Params{Limit: 2, Sort: SortAsc}, func(r *record) bool { return r.Odd })

	assert.Equal(t, []string{"r01", "r03", "r05", "r07"}, ids)
}

func TestList_Before(t *testing.T) {
	fake := seed(t, 7)
	ctx := context.Background()

	first, err := List[record](ctx, fake, testQuery, Params{Limit: 3, Sort: SortAsc}, nil)
	require.NoError(t, err)
	second, err := List[record](ctx, fake, testQuery, Params{Limit: 3, Sort: SortAsc, After: first.Meta.Cursor}, nil)
	require.NoError(t, err)
	require.Equal(t, "r03", second.Items[0].ID)

	// page backwards from the first item of the second page
	key, err := attributevalue.MarshalMap(second.Items[0])
	require.NoError(t, err)
	cursor, err := EncodeCursor(pickKey(key, testQuery.KeyAttrs))
	require.NoError(t, err)

	prev, err := List[record](ctx, fake, testQuery, Params{Limit: 2, Sort: SortAsc, Before: cursor}, nil)
	require.NoError(t, err)

	var ids []string
	for _, r := range prev.Items {
		ids = append(ids, r.ID)
	}
	assert.Equal(t, []string{"r01", "r02"}, ids)
	assert.True(t, prev.Meta.HasMoreItems)
}

func TestCursor_RejectsGarbage(t *testing.T) {
	_, err := DecodeCursor("%%%")
	assert.Error(t, err)

	key, err := DecodeCursor("")
	assert.NoError(t, err)
	assert.Nil(t, key)
}

func TestParams_Normalize(t *testing.T) {
	p := Params{Limit: 1000, Sort: "sideways"}.Normalize()
	assert.Equal(t, MaxLimit, p.Limit)
	assert.Equal(t, SortDesc, p.Sort)
	assert.Equal(t, DefaultLimit, Params{}.Normalize().Limit)
}
