package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/jwsummers/techmetrix/internal/authz"
	"github.com/jwsummers/techmetrix/internal/db"
	"github.com/jwsummers/techmetrix/internal/model"
	"github.com/jwsummers/techmetrix/internal/repository"
	"github.com/jwsummers/techmetrix/pkg/logger"
)

// RepairOrderInput is everything a technician supplies for a new order.
// The owner and the creation timestamp are assigned server-side.
type RepairOrderInput struct {
	Year     string  `json:"year" validate:"required"`
	Make     string  `json:"make" validate:"required"`
	Model    string  `json:"model" validate:"required"`
	RONumber string  `json:"roNumber" validate:"required"`
	Labor    float64 `json:"labor" validate:"gte=0"`
}

type OrderService struct {
	tx db.Transactor

	orders repository.RepairOrderRepository

	targets model.Targets
}

func NewOrderService(tx db.Transactor, targets model.Targets) *OrderService {
	return &OrderService{
		tx:      tx,
		targets: targets,
	}
}

// guardedOrder loads the pre-existing record and checks ownership against
// it, never against the incoming patch. Missing orders are denied like
// someone else's orders.
func (o *OrderService) guardedOrder(ctx context.Context, caller *model.Identity, action authz.Action, orderID string) (*repository.RepairOrder, *Error) {
	l := logger.FromContext(ctx)

	order, err := o.orders.Get(ctx, orderID)
	if errors.Is(err, repository.ErrNotFound) {
		l.Warn("repair order not found", zap.String("order_id", orderID))
		return nil, errorFromDecision(authz.Authorize(caller, action, authz.Resource{}))
	}
	if err != nil {
		l.Error("failed to get repair order", zap.String("order_id", orderID), zap.Error(err))
		return nil, NewError(ErrorCodeUnspecified, "failed to get repair order")
	}

	decision := authz.Authorize(caller, action, authz.OrderResource(orderFromRepo(order)))
	if guardErr := errorFromDecision(decision); guardErr != nil {
		l.Warn("repair order action denied",
			zap.String("order_id", orderID),
			zap.String("action", string(action)),
			zap.String("kind", string(decision.Kind)))
		return nil, guardErr
	}

	return order, nil
}

// ListOrders returns the caller's own orders, newest first.
func (o *OrderService) ListOrders(ctx context.Context, caller *model.Identity) ([]*model.RepairOrder, *Error) {
	l := logger.FromContext(ctx)

	if caller == nil || caller.ID == "" {
		return nil, NewError(ErrorCodeUnauthenticated, "authentication required")
	}

	ordersRepo, err := o.orders.ListByUser(ctx, caller.ID)
	if err != nil {
		l.Error("failed to list repair orders", zap.String("user_id", caller.ID), zap.Error(err))
		return nil, NewError(ErrorCodeUnspecified, "failed to list repair orders")
	}

	return ordersFromRepo(ordersRepo), nil
}

// CreateOrder assigns ownership to the caller unconditionally.
func (o *OrderService) CreateOrder(ctx context.Context, caller *model.Identity, input *RepairOrderInput) (*model.RepairOrder, *Error) {
	l := logger.FromContext(ctx)

	if caller == nil || caller.ID == "" {
		return nil, NewError(ErrorCodeUnauthenticated, "authentication required")
	}

	order := &repository.RepairOrder{
		ID:       uuid.NewString(),
		UserID:   caller.ID,
		Year:     input.Year,
		Make:     input.Make,
		Model:    input.Model,
		RONumber: input.RONumber,
		Labor:    input.Labor,
	}

	if err := o.orders.Create(ctx, order); err != nil {
		l.Error("failed to create repair order", zap.String("user_id", caller.ID), zap.Error(err))
		return nil, NewError(ErrorCodeUnspecified, "failed to create repair order")
	}

	l.Info("repair order created", zap.String("order_id", order.ID), zap.String("user_id", caller.ID))

	return orderFromRepo(order), nil
}

func (o *OrderService) UpdateOrder(ctx context.Context, caller *model.Identity, orderID string, patch *model.RepairOrderPatch) (*model.RepairOrder, *Error) {
	l := logger.FromContext(ctx)

	order, guardErr := o.guardedOrder(ctx, caller, authz.ActionUpdate, orderID)
	if guardErr != nil {
		return nil, guardErr
	}

	// An empty patch is a no-op; an UPDATE with no SET clause would be
	// rejected by the store.
	if patch.Empty() {
		return orderFromRepo(order), nil
	}

	updated, err := o.orders.Patch(ctx, &repository.RepairOrderPatch{
		ID:       orderID,
		Year:     patch.Year,
		Make:     patch.Make,
		Model:    patch.Model,
		RONumber: patch.RONumber,
		Labor:    patch.Labor,
	})
	if err != nil {
		l.Error("failed to update repair order", zap.String("order_id", orderID), zap.Error(err))
		return nil, NewError(ErrorCodeUnspecified, "failed to update repair order")
	}

	return orderFromRepo(updated), nil
}

// DeleteOrder is a hard delete.
func (o *OrderService) DeleteOrder(ctx context.Context, caller *model.Identity, orderID string) *Error {
	l := logger.FromContext(ctx)

	if _, guardErr := o.guardedOrder(ctx, caller, authz.ActionDelete, orderID); guardErr != nil {
		return guardErr
	}

	if err := o.orders.Delete(ctx, orderID); err != nil {
		l.Error("failed to delete repair order", zap.String("order_id", orderID), zap.Error(err))
		return NewError(ErrorCodeUnspecified, "failed to delete repair order")
	}

	l.Info("repair order deleted", zap.String("order_id", orderID))

	return nil
}

// UserMetrics runs the caller's orders through the user-mode aggregation
// with the configured labor targets.
func (o *OrderService) UserMetrics(ctx context.Context, caller *model.Identity, now time.Time) (*model.UserMetrics, *Error) {
	l := logger.FromContext(ctx)

	if caller == nil || caller.ID == "" {
		return nil, NewError(ErrorCodeUnauthenticated, "authentication required")
	}

	ordersRepo, err := o.orders.ListByUser(ctx, caller.ID)
	if err != nil {
		l.Error("failed to list repair orders", zap.String("user_id", caller.ID), zap.Error(err))
		return nil, NewError(ErrorCodeUnspecified, "failed to compute metrics")
	}

	return ComputeUserMetrics(ordersFromRepo(ordersRepo), now, o.targets), nil
}

func (o *OrderService) WithOrderRepo(r repository.RepairOrderRepository) *OrderService {
	o.orders = r
	return o
}
