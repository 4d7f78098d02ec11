package main

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-lambda-go/events"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/imrishuroy/omnichannel-fulfillment/internal/importer"
	"github.com/imrishuroy/omnichannel-fulfillment/internal/inventorysync"
	"github.com/imrishuroy/omnichannel-fulfillment/internal/logging"
	"github.com/imrishuroy/omnichannel-fulfillment/internal/syncsessions"
)

type fakeJobs struct {
	imports int
	err     error
}

func (f *fakeJobs) Run(context.Context) (importer.Summary, error) {
	f.imports++
	return importer.Summary{Locations: 1, Published: 2}, f.err
}

type fakeSync struct {
	trigger inventorysync.Trigger
	err     error
}

func (f *fakeSync) Run(_ context.Context, t inventorysync.Trigger) (*syncsessions.Session, error) {
	f.trigger = t
	if f.err != nil {
		return nil, f.err
	}
	return &syncsessions.Session{ID: "sess-1"}, nil
}

func TestRunner_Roles(t *testing.T) {
	imp, sync := &fakeJobs{}, &fakeSync{}

	r, err := NewRunner(RoleImportShipments, imp, sync, logging.Nop())
	require.NoError(t, err)
	require.NoError(t, r.Handle(context.Background(), events.CloudWatchEvent{ID: "e-1"}))
	assert.Equal(t, 1, imp.imports)
	assert.Empty(t, sync.trigger)

	r, err = NewRunner(RoleInventorySync, imp, sync, logging.Nop())
	require.NoError(t, err)
	require.NoError(t, r.Handle(context.Background(), events.CloudWatchEvent{ID: "e-2"}))
	assert.Equal(t, inventorysync.TriggerSchedule, sync.trigger)
	assert.Equal(t, 1, imp.imports)
}

func TestRunner_PropagatesFailure(t *testing.T) {
	sync := &fakeSync{}
	sync.err = errors.New("backend down")
	r, err := NewRunner(RoleInventorySync, &fakeJobs{}, sync, logging.Nop())
	require.NoError(t, err)
	assert.Error(t, r.Handle(context.Background(), events.CloudWatchEvent{}))

	_, err = NewRunner("nightly", &fakeJobs{}, sync, logging.Nop())
	assert.Error(t, err)
}
