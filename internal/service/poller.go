package service

import (
	"context"
	"time"

	"github.com/voicee/paytrack/internal/models"
	"go.uber.org/zap"
)

// poll drives one order through bounded status checks until the provider
// reports a terminal status or the attempt budget runs out. At most
// MaxAttempts queries are issued, sequentially, with a Delay suspension
// between attempts. A transport failure consumes the attempt and leaves the
// last observed status in place.
func (ps *PaymentService) poll(ctx context.Context, order *models.Order) (*models.Order, error) {
	for attempt := 1; ; attempt++ {
		checked, err := ps.gateway.Query(ctx, order)
		if err != nil {
			ps.logger.Warn("status query failed",
				zap.String("order", order.ID.String()),
				zap.Int("attempt", attempt),
				zap.Error(err))
		} else {
			order = checked
			ps.logger.Info("payment verification attempt",
				zap.String("order", order.ID.String()),
				zap.Int("attempt", attempt),
				zap.Int("max_attempts", ps.cfg.MaxAttempts),
				zap.String("status", string(order.Status)))
		}

		// a terminal answer on the last attempt still wins over MAX_ATTEMPTS
		if order.Status.IsTerminal() {
			return order, nil
		}

		if attempt >= ps.cfg.MaxAttempts {
			ps.logger.Info("polling spent the maximum number of attempts",
				zap.String("order", order.ID.String()),
				zap.Int("max_attempts", ps.cfg.MaxAttempts))
			forced := *order
			forced.Status = models.StatusMaxAttempts
			return &forced, nil
		}

		timer := time.NewTimer(ps.cfg.Delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return order, ctx.Err()
		case <-timer.C:
		}
	}
}
