package returns

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/imrishuroy/omnichannel-fulfillment/internal/apperrors"
	"github.com/imrishuroy/omnichannel-fulfillment/internal/awstest"
	"github.com/imrishuroy/omnichannel-fulfillment/internal/fulfillment"
	"github.com/imrishuroy/omnichannel-fulfillment/internal/fulfillment/fulfillmenttest"
	"github.com/imrishuroy/omnichannel-fulfillment/internal/logging"
	"github.com/imrishuroy/omnichannel-fulfillment/internal/pagination"
)

func newService(t *testing.T) (*Service, *fulfillmenttest.Fake) {
	t.Helper()
	fake := awstest.NewFakeDynamo()
	fake.CreateTable("returns", "id",
		awstest.Index{Name: EntityCreatedIndex, PartitionKey: "entity", SortKey: "sort_key"},
	)
	api := fulfillmenttest.New()
	svc := NewService(NewStore(fake, "returns"), api, logging.Nop())
	return svc, api
}

func remoteReturn(id, rma string) *fulfillment.Return {
	r := &fulfillment.Return{ID: id, MerchantSku: "SKU-1", NumberOfUnits: 2, Status: "CREATED", FulfillmentLocationID: "SS-1"}
	r.ReturnMetadata.RmaID = rma
	r.ReturnMetadata.ReturnReason = "DAMAGED"
	r.MarketplaceChannelDetails.ShipmentID = "s-1"
	r.ReturnShippingInfo.ReverseTrackingInfo.TrackingID = "R-1"
	return r
}

func TestCreate_ProcessesAndStores(t *testing.T) {
	svc, api := newService(t)
	api.Returns["r-1"] = remoteReturn("r-1", "RMA-1")

	got, err := svc.Create(context.Background(), "r-1", ItemConditions{Sellable: 1, CarrierDamaged: 1})
	require.NoError(t, err)

	assert.Equal(t, "PROCESSED", got.Status, "stored state is read after processing")
	assert.Equal(t, "RMA-1", got.RmaID)
	assert.Equal(t, "s-1", got.ChannelDetails.ShipmentID)
	assert.Equal(t, "R-1", got.ShippingInfo.Reverse.TrackingID)
	assert.Equal(t, fulfillment.ItemConditions{Sellable: 1, CarrierDamaged: 1}, api.ProcessedReturns["r-1"])
	assert.Len(t, api.Calls("GetReturn"), 2)

	stored, err := svc.Get(context.Background(), got.ID)
	require.NoError(t, err)
	assert.Equal(t, "r-1", stored.ReturnID)
	assert.Equal(t, 2, stored.ItemConditions.Total())
}

func TestCreate_Errors(t *testing.T) {
	svc, api := newService(t)

	_, err := svc.Create(context.Background(), "r-1", ItemConditions{})
	assert.Equal(t, apperrors.CodeValidation, apperrors.Code(err))

	_, err = svc.Create(context.Background(), "missing", ItemConditions{Sellable: 1})
	assert.True(t, apperrors.IsNotFound(err))
	assert.Empty(t, api.Calls("ProcessReturn"))

	api.Returns["r-2"] = remoteReturn("r-2", "RMA-2")
	api.FailOnce("ProcessReturn", fulfillmenttest.Status(http.StatusServiceUnavailable))
	_, err = svc.Create(context.Background(), "r-2", ItemConditions{Fraud: 1})
	assert.Equal(t, http.StatusServiceUnavailable, apperrors.HTTPStatus(err))
}

func TestLookupAndList(t *testing.T) {
	svc, api := newService(t)
	api.Returns["r-1"] = remoteReturn("r-1", "RMA-1")
	api.Returns["r-2"] = remoteReturn("r-2", "RMA-2")

	found, err := svc.Lookup(context.Background(), "RMA-2")
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "r-2", found[0].ReturnID)

	_, err = svc.Lookup(context.Background(), "")
	assert.Equal(t, apperrors.CodeValidation, apperrors.Code(err))

	for _, id := range []string{"r-1", "r-2"} {
		_, err := svc.Create(context.Background(), id, ItemConditions{Sellable: 2})
		require.NoError(t, err)
	}
	page, err := svc.List(context.Background(), ListParams{Params: pagination.Params{Limit: 10}, RmaID: "RMA-1"})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "r-1", page.Items[0].ReturnID)

	_, err = svc.List(context.Background(), ListParams{Params: pagination.Params{After: "%%%"}})
	assert.Equal(t, apperrors.CodeValidation, apperrors.Code(err))
}
