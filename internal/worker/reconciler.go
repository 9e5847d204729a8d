package worker

import (
	"context"
	"time"

	"github.com/voicee/paytrack/internal/models"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// PaymentService is the part of the payment service the reconciler drives
type PaymentService interface {
	// ListPayments returns orders with the given status
	ListPayments(ctx context.Context, status models.Status) ([]models.Order, error)
	// Track polls the order to a terminal status
	Track(ctx context.Context, order *models.Order) (*models.Order, error)
}

// Reconciler is the background sweep that resumes polling for orders left in
// a non-terminal status, typically after a restart or a crash mid-poll.
type Reconciler struct {
	svc      PaymentService
	interval time.Duration
	logger   *zap.Logger
}

// NewReconciler creates new Reconciler instance
func NewReconciler(svc PaymentService, interval time.Duration, logger *zap.Logger) *Reconciler {
	return &Reconciler{
		svc:      svc,
		interval: interval,
		logger:   logger,
	}
}

// Run sweeps until ctx is cancelled
func (r *Reconciler) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.logger.Info("reconciler started", zap.Duration("interval", r.interval))

	for {
		select {
		case <-ctx.Done():
			r.logger.Debug("reconciler is done")
			return
		case <-ticker.C:
			if err := r.sweep(ctx); err != nil {
				r.logger.Error("reconciliation sweep failed", zap.Error(err))
			}
		}
	}
}

// sweep resumes every order stuck in NEW. One poller run is launched per
// order; the group carries no shared cancellation, so the orders finish or
// fail independently of each other.
func (r *Reconciler) sweep(ctx context.Context) error {
	orders, err := r.svc.ListPayments(ctx, models.StatusNew)
	if err != nil {
		return err
	}
	if len(orders) == 0 {
		return nil
	}

	r.logger.Info("resuming unfinished orders", zap.Int("count", len(orders)))

	var g errgroup.Group
	for _, order := range orders {
		order := order
		g.Go(func() error {
			if _, err := r.svc.Track(ctx, &order); err != nil {
				r.logger.Warn("resumed order tracking failed",
					zap.String("order", order.ID.String()), zap.Error(err))
			}
			return nil
		})
	}

	return g.Wait()
}
