package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/voicee/paytrack/internal/gateway"
	"github.com/voicee/paytrack/internal/models"
	"go.uber.org/zap"
)

// OrderRepository is interface for interacting with stored orders
type OrderRepository interface {
	// CreateOrder inserts new order to database
	CreateOrder(ctx context.Context, order *models.Order) (*models.Order, error)
	// GetOrderByID returns order by id
	GetOrderByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
	// UpdateOrder persists status, url, receipt and payment id, returns the freshly read row
	UpdateOrder(ctx context.Context, order *models.Order) (*models.Order, error)
	// GetOrdersByStatus returns orders with the given status
	GetOrdersByStatus(ctx context.Context, status models.Status) ([]models.Order, error)
}

// GatewayClient covers the three provider operations
type GatewayClient interface {
	Register(ctx context.Context, order *models.Order) (*models.Order, error)
	Query(ctx context.Context, order *models.Order) (*models.Order, error)
	Cancel(ctx context.Context, order *models.Order) (*models.Order, error)
}

// Notifier delivers a text to the customer. Best effort: failures are logged
// by the caller and never propagated.
type Notifier interface {
	Notify(ctx context.Context, customerKey, text string) error
}

// Config bounds the polling budget. The maximum wall-clock wait for one
// order is Delay * MaxAttempts. AutoCancel enables the defensive provider
// cancel after a non-success terminal outcome. Description is the product
// description used when the caller supplies none; the provider requires one
// on every registration.
type Config struct {
	Delay       time.Duration
	MaxAttempts int
	AutoCancel  bool
	Description string
}

// PaymentService drives orders from creation to a terminal status
type PaymentService struct {
	repo     OrderRepository
	gateway  GatewayClient
	notifier Notifier
	cfg      Config
	logger   *zap.Logger
}

// NewPaymentService creates new PaymentService instance
func NewPaymentService(repo OrderRepository, gw GatewayClient, notifier Notifier, cfg Config, logger *zap.Logger) *PaymentService {
	return &PaymentService{
		repo:     repo,
		gateway:  gw,
		notifier: notifier,
		cfg:      cfg,
		logger:   logger,
	}
}

// CreatePaymentRequest carries the caller-supplied order fields
type CreatePaymentRequest struct {
	Amount      int64
	CustomerKey string
	Email       string
	Description string
}

// CreatePayment stores a CREATED order, registers it with the provider and
// persists the issued link. On registration failure the order stays CREATED
// in storage and never enters polling.
func (ps *PaymentService) CreatePayment(ctx context.Context, req CreatePaymentRequest) (*models.Order, error) {
	if req.Description == "" {
		req.Description = ps.cfg.Description
	}

	order, err := models.NewOrder(req.Amount, req.CustomerKey, req.Email, req.Description)
	if err != nil {
		return nil, err
	}

	order, err = ps.repo.CreateOrder(ctx, order)
	if err != nil {
		return nil, err
	}
	ps.logger.Debug("order created", zap.String("order", order.ID.String()))

	registered, err := ps.gateway.Register(ctx, order)
	if err != nil {
		ps.logger.Error("order registration failed", zap.String("order", order.ID.String()), zap.Error(err))
		return nil, err
	}

	updated := ps.persist(ctx, registered)

	ps.notify(ctx, updated.CustomerKey,
		fmt.Sprintf("Link to your order: %s. Payment status: %s", updated.URL, updated.Status))

	return updated, nil
}

// GetPayment returns order by id
func (ps *PaymentService) GetPayment(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	return ps.repo.GetOrderByID(ctx, id)
}

// ListPayments returns orders with the given status
func (ps *PaymentService) ListPayments(ctx context.Context, status models.Status) ([]models.Order, error) {
	return ps.repo.GetOrdersByStatus(ctx, status)
}

// CancelPayment is the administrative cancel flow. It applies to orders that
// are still NEW or ended up in MAX_ATTEMPTS; other terminal orders keep
// their decided outcome. The provider is authoritative: a provider-side
// "already cancelled or terminal" rejection is adopted as CANCELLED rather
// than treated as a hard error.
func (ps *PaymentService) CancelPayment(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	order, err := ps.repo.GetOrderByID(ctx, id)
	if err != nil {
		return nil, err
	}

	switch order.Status {
	case models.StatusNew, models.StatusMaxAttempts:
	default:
		return nil, models.ErrNotCancellable
	}

	cancelled, err := ps.gateway.Cancel(ctx, order)
	if err != nil {
		var apiErr *gateway.APIError
		if !errors.As(err, &apiErr) {
			return nil, err
		}
		ps.logger.Debug("cancel reported already terminal", zap.String("order", order.ID.String()), zap.Error(err))
		c := *order
		c.Status = models.StatusCancelled
		cancelled = &c
	}

	updated := ps.persist(ctx, cancelled)

	ps.notify(ctx, updated.CustomerKey,
		fmt.Sprintf("The payment %s was cancelled.\nThe amount of %d has not been credited.", updated.ID, updated.Amount))

	return updated, nil
}

// Track polls the order to a terminal status and applies the terminal
// handling: defensive cancellation, persistence, customer notification.
func (ps *PaymentService) Track(ctx context.Context, order *models.Order) (*models.Order, error) {
	polled, err := ps.poll(ctx, order)
	if err != nil {
		// interrupted mid-poll; the reconciler picks the order up later
		return polled, err
	}

	switch polled.Status {
	case models.StatusConfirmed:
		return ps.paymentReceived(ctx, polled), nil
	case models.StatusRejected, models.StatusCancelled, models.StatusMaxAttempts:
		return ps.paymentFailed(ctx, polled), nil
	}

	return polled, nil
}

// paymentReceived persists the confirmed order and tells the customer
func (ps *PaymentService) paymentReceived(ctx context.Context, order *models.Order) *models.Order {
	order = ps.persist(ctx, order)
	ps.logger.Info("payment received", zap.String("order", order.ID.String()))

	ps.notify(ctx, order.CustomerKey,
		fmt.Sprintf("The payment %s was successful.\nThe amount: %d.", order.ID, order.Amount))

	return order
}

// paymentFailed closes a non-success terminal order. The defensive cancel
// covers the provider's internal state diverging from the last poll; its
// outcome, success or failure, never changes the decided terminal status.
func (ps *PaymentService) paymentFailed(ctx context.Context, order *models.Order) *models.Order {
	if ps.cfg.AutoCancel {
		if _, err := ps.gateway.Cancel(ctx, order); err != nil {
			ps.logger.Debug("defensive cancel rejected, possibly already cancelled",
				zap.String("order", order.ID.String()), zap.Error(err))
		}
	}

	order = ps.persist(ctx, order)
	ps.logger.Info("payment closed without success",
		zap.String("order", order.ID.String()), zap.String("status", string(order.Status)))

	ps.notify(ctx, order.CustomerKey,
		fmt.Sprintf("The payment %s was made with an error.\nThe amount of %d has not been credited.\nStatus code: %s",
			order.ID, order.Amount, order.Status))

	return order
}

// persist updates the order in storage. A failure here means the in-memory
// view diverges from storage, which is a correctness risk, so it is logged
// as a warning and the in-memory order keeps going.
func (ps *PaymentService) persist(ctx context.Context, order *models.Order) *models.Order {
	updated, err := ps.repo.UpdateOrder(ctx, order)
	if err != nil {
		ps.logger.Warn("order update failed", zap.String("order", order.ID.String()), zap.Error(err))
		return order
	}
	return updated
}

func (ps *PaymentService) notify(ctx context.Context, customerKey, text string) {
	if ps.notifier == nil {
		return
	}
	if err := ps.notifier.Notify(ctx, customerKey, text); err != nil {
		ps.logger.Warn("notification failed", zap.String("customer", customerKey), zap.Error(err))
	}
}
