package inventory

import (
	"context"
	"testing"
	"time"

	"github.com/imrishuroy/omnichannel-fulfillment/internal/awstest"
	"github.com/imrishuroy/omnichannel-fulfillment/internal/pagination"
)

const testTable = "inventory-items"

func newTestStore(t *testing.T) (*Store, *awstest.FakeDynamo) {
	t.Helper()
	fake := awstest.NewFakeDynamo()
	fake.CreateTable(testTable, "id",
		awstest.Index{Name: LocationSKUIndex, PartitionKey: "location_id", SortKey: "sku"},
		awstest.Index{Name: EntityCreatedIndex, PartitionKey: "entity", SortKey: "sort_key"},
	)
	s := NewStore(fake, testTable)
	n := 0
	s.newID = func() string {
		n++
		return "item-" + string(rune('a'+n-1))
	}
	s.nowFunc = func() time.Time { return time.Date(2024, 5, 1, 10, 0, n, 0, time.UTC) }
	return s, fake
}

func TestUpsert_KeepsIDForSamePair(t *testing.T) {
	s, fake := newTestStore(t)
	ctx := context.Background()

	if err := s.Upsert(ctx, &Item{LocationID: "loc-1", SKU: "SKU1", SellableQuantity: 5}); err != nil {
		t.Fatalf("first upsert: %v", err)
	}
	second := &Item{LocationID: "loc-1", SKU: "SKU1", SellableQuantity: 8}
	if err := s.Upsert(ctx, second); err != nil {
		t.Fatalf("second upsert: %v", err)
	}

	if second.ID != "item-a" {
		t.Fatalf("expected id item-a to be reused, got %s", second.ID)
	}
	if fake.Count(testTable) != 1 {
		t.Fatalf("expected 1 item, got %d", fake.Count(testTable))
	}
	got, err := s.GetByLocationSKU(ctx, "loc-1", "SKU1")
	if err != nil || got == nil {
		t.Fatalf("GetByLocationSKU: %v %v", got, err)
	}
	if got.SellableQuantity != 8 || got.LocationSKU != "loc-1#SKU1" {
		t.Fatalf("unexpected item %+v", got)
	}
}

func TestGetByLocationSKU_Missing(t *testing.T) {
	s, _ := newTestStore(t)
	got, err := s.GetByLocationSKU(context.Background(), "loc-1", "NOPE")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != nil {
		t.Fatalf("expected nil, got %+v", got)
	}
}

func TestListByLocation(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()
	for _, it := range []Item{
		{LocationID: "loc-1", SKU: "A"},
		{LocationID: "loc-1", SKU: "B"},
		{LocationID: "loc-2", SKU: "A"},
	} {
		it := it
		if err := s.Upsert(ctx, &it); err != nil {
			t.Fatalf("upsert: %v", err)
		}
	}

	items, err := s.ListByLocation(ctx, "loc-1")
	if err != nil {
		t.Fatalf("ListByLocation: %v", err)
	}
	if len(items) != 2 || items[0].SKU != "A" || items[1].SKU != "B" {
		t.Fatalf("unexpected items %+v", items)
	}
}

func TestList_FiltersByLocation(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()
	for _, it := range []Item{
		{LocationID: "loc-1", SKU: "A"},
		{LocationID: "loc-2", SKU: "B"},
		{LocationID: "loc-1", SKU: "C"},
	} {
		it := it
		if err := s.Upsert(ctx, &it); err != nil {
			t.Fatalf("upsert: %v", err)
		}
	}

	page, err := s.List(ctx, ListParams{Params: pagination.Params{Limit: 10, Sort: pagination.SortAsc}, LocationID: "loc-1"})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(page.Items) != 2 || page.Items[0].SKU != "A" || page.Items[1].SKU != "C" {
		t.Fatalf("unexpected page %+v", page.Items)
	}
	if page.Meta.HasMoreItems {
		t.Fatalf("expected no more items")
	}
}

func TestQuantityAvailable(t *testing.T) {
	var missing *Item
	if missing.QuantityAvailable() != 0 {
		t.Fatalf("nil item should have zero quantity")
	}
	it := &Item{SellableQuantity: 3, ReservedQuantity: 2}
	if it.QuantityAvailable() != 5 {
		t.Fatalf("expected 5, got %d", it.QuantityAvailable())
	}
}
