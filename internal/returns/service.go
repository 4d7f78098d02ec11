// Package returns processes customer returns with the fulfillment backend and keeps a local
// record of each one.
package returns

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/imrishuroy/omnichannel-fulfillment/internal/apperrors"
	"github.com/imrishuroy/omnichannel-fulfillment/internal/fulfillment"
	"github.com/imrishuroy/omnichannel-fulfillment/internal/pagination"
)

type backend interface {
	ListReturns(ctx context.Context, rmaID string) ([]fulfillment.Return, error)
	GetReturn(ctx context.Context, returnID string) (*fulfillment.Return, error)
	ProcessReturn(ctx context.Context, returnID string, conditions fulfillment.ItemConditions, idempotencyToken string) error
}

type Service struct {
	store   *Store
	backend backend
	logger  *zap.Logger
	newID   func() string
}

func NewService(store *Store, b backend, logger *zap.Logger) *Service {
	return &Service{store: store, backend: b, logger: logger.Named("returns"), newID: uuid.NewString}
}

// Create processes returnID with the given conditions and stores the processed state.
func (s *Service) Create(ctx context.Context, returnID string, cond ItemConditions) (*Return, error) {
	if cond.Total() <= 0 {
		return nil, apperrors.Validation("item conditions must cover at least one unit")
	}
	log := s.logger.With(zap.String("return_id", returnID))

	if _, err := s.backend.GetReturn(ctx, returnID); err != nil {
		return nil, backendErr(err, returnID)
	}
	if err := s.backend.ProcessReturn(ctx, returnID, cond.remote(), s.newID()); err != nil {
		return nil, backendErr(err, returnID)
	}
	processed, err := s.backend.GetReturn(ctx, returnID)
	if err != nil {
		return nil, backendErr(err, returnID)
	}

	r := fromRemote(processed)
	r.ID = s.newID()
	r.ItemConditions = cond
	if err := s.store.Create(ctx, &r); err != nil {
		return nil, apperrors.Internal(err)
	}
	log.Info("return processed", zap.String("id", r.ID), zap.String("status", r.Status), zap.Int("units", cond.Total()))
	return &r, nil
}

func (s *Service) Get(ctx context.Context, id string) (*Return, error) {
	r, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	if r == nil {
		return nil, apperrors.NotFound("order return", id)
	}
	return r, nil
}

func (s *Service) List(ctx context.Context, p ListParams) (*pagination.Page[Return], error) {
	page, err := s.store.List(ctx, p)
	if err != nil {
		if errors.Is(err, pagination.ErrInvalidCursor) {
			return nil, apperrors.Validation(err.Error())
		}
		return nil, apperrors.Internal(err)
	}
	return page, nil
}

// Lookup lists the backend's returns for an RMA, processed or not.
func (s *Service) Lookup(ctx context.Context, rmaID string) ([]Return, error) {
	if rmaID == "" {
		return nil, apperrors.Validation("rmaId is required")
	}
	remote, err := s.backend.ListReturns(ctx, rmaID)
	if err != nil {
		return nil, backendErr(err, rmaID)
	}
	out := make([]Return, 0, len(remote))
	for i := range remote {
		out = append(out, fromRemote(&remote[i]))
	}
	return out, nil
}

func backendErr(err error, id string) error {
	if fulfillment.IsNotFound(err) {
		return apperrors.NotFound("return", id)
	}
	return apperrors.Upstream(err, fulfillment.IsRetryable(err))
}
