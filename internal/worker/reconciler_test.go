package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/voicee/paytrack/internal/models"
	"go.uber.org/zap"
)

// fakeService hands out a fixed batch of NEW orders and blocks every Track
// call on a barrier until the expected number of concurrent runs arrived.
type fakeService struct {
	mu      sync.Mutex
	orders  []models.Order
	listErr error

	expected int
	arrived  int
	barrier  chan struct{}

	tracked  map[uuid.UUID]models.Status
	trackErr map[uuid.UUID]error
}

func newFakeService(orders []models.Order, expected int) *fakeService {
	return &fakeService{
		orders:   orders,
		expected: expected,
		barrier:  make(chan struct{}),
		tracked:  map[uuid.UUID]models.Status{},
		trackErr: map[uuid.UUID]error{},
	}
}

func (fs *fakeService) ListPayments(_ context.Context, status models.Status) ([]models.Order, error) {
	if fs.listErr != nil {
		return nil, fs.listErr
	}
	if status != models.StatusNew {
		return nil, nil
	}
	return fs.orders, nil
}

func (fs *fakeService) Track(ctx context.Context, order *models.Order) (*models.Order, error) {
	fs.mu.Lock()
	fs.arrived++
	if fs.arrived == fs.expected {
		close(fs.barrier)
	}
	err := fs.trackErr[order.ID]
	fs.mu.Unlock()

	// every run must be in flight at the same time before any finishes
	select {
	case <-fs.barrier:
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-time.After(5 * time.Second):
		return nil, errors.New("tracking runs did not overlap")
	}

	if err != nil {
		return nil, err
	}

	fs.mu.Lock()
	fs.tracked[order.ID] = models.StatusConfirmed
	fs.mu.Unlock()

	done := *order
	done.Status = models.StatusConfirmed
	return &done, nil
}

func newOrders(t *testing.T, n int) []models.Order {
	t.Helper()
	orders := make([]models.Order, 0, n)
	for i := 0; i < n; i++ {
		order, err := models.NewOrder(1000, "100500", "test@test", "Account top-up")
		require.NoError(t, err)
		order.Status = models.StatusNew
		order.PaymentID = "700001"
		orders = append(orders, *order)
	}
	return orders
}

// scenario: three stored NEW orders — exactly three poller runs start
// concurrently and each outcome lands independently
func TestReconciler_SweepRunsOrdersConcurrently(t *testing.T) {
	orders := newOrders(t, 3)
	svc := newFakeService(orders, 3)

	r := NewReconciler(svc, time.Hour, zap.NewNop())

	require.NoError(t, r.sweep(context.Background()))

	svc.mu.Lock()
	defer svc.mu.Unlock()
	assert.Equal(t, 3, svc.arrived)
	assert.Len(t, svc.tracked, 3)
	for _, order := range orders {
		assert.Equal(t, models.StatusConfirmed, svc.tracked[order.ID])
	}
}

// one order failing must not block or cancel the others
func TestReconciler_SweepFailuresAreIndependent(t *testing.T) {
	orders := newOrders(t, 3)
	svc := newFakeService(orders, 3)
	svc.trackErr[orders[1].ID] = errors.New("gateway unavailable")

	r := NewReconciler(svc, time.Hour, zap.NewNop())

	require.NoError(t, r.sweep(context.Background()))

	svc.mu.Lock()
	defer svc.mu.Unlock()
	assert.Equal(t, 3, svc.arrived)
	assert.Len(t, svc.tracked, 2)
}

func TestReconciler_SweepNothingToDo(t *testing.T) {
	svc := newFakeService(nil, 0)
	r := NewReconciler(svc, time.Hour, zap.NewNop())

	assert.NoError(t, r.sweep(context.Background()))
}

func TestReconciler_SweepListFailure(t *testing.T) {
	svc := newFakeService(nil, 0)
	svc.listErr = errors.New("database is down")
	r := NewReconciler(svc, time.Hour, zap.NewNop())

	assert.Error(t, r.sweep(context.Background()))
}

func TestReconciler_RunStopsOnContextCancel(t *testing.T) {
	svc := newFakeService(nil, 0)
	r := NewReconciler(svc, time.Millisecond, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		r.Run(ctx)
		close(done)
	}()

	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("reconciler did not stop on context cancellation")
	}
}
