package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/voicee/paytrack/internal/models"
)

// fakeGateway scripts provider answers for the poller. Query returns the
// scripted statuses in order, or the scripted error for that attempt.
type fakeGateway struct {
	mu sync.Mutex

	registerErr error
	registerID  string
	registerURL string

	statuses  []models.Status
	queryErrs map[int]error // 1-indexed attempt -> error

	cancelErr    error
	cancelStatus models.Status

	registers int
	queries   int
	cancels   int
}

func (fg *fakeGateway) Register(_ context.Context, order *models.Order) (*models.Order, error) {
	fg.mu.Lock()
	defer fg.mu.Unlock()
	fg.registers++

	if fg.registerErr != nil {
		return nil, fg.registerErr
	}

	registered := *order
	registered.Status = models.StatusNew
	registered.PaymentID = fg.registerID
	registered.URL = fg.registerURL
	registered.Receipt = &models.Receipt{
		Email:    order.Email,
		Taxation: "usn_income",
		Items: []models.ReceiptItem{
			{Name: order.Description, Price: order.Amount, Quantity: 1, Amount: order.Amount, Tax: "none"},
		},
	}
	return &registered, nil
}

func (fg *fakeGateway) Query(_ context.Context, order *models.Order) (*models.Order, error) {
	fg.mu.Lock()
	defer fg.mu.Unlock()
	fg.queries++

	if err, ok := fg.queryErrs[fg.queries]; ok {
		return nil, err
	}

	checked := *order
	if len(fg.statuses) > 0 {
		checked.Status = fg.statuses[0]
		fg.statuses = fg.statuses[1:]
	}
	return &checked, nil
}

func (fg *fakeGateway) Cancel(_ context.Context, order *models.Order) (*models.Order, error) {
	fg.mu.Lock()
	defer fg.mu.Unlock()
	fg.cancels++

	if fg.cancelErr != nil {
		return nil, fg.cancelErr
	}

	cancelled := *order
	cancelled.Status = fg.cancelStatus
	if cancelled.Status == "" {
		cancelled.Status = models.StatusCancelled
	}
	return &cancelled, nil
}

func (fg *fakeGateway) counts() (registers, queries, cancels int) {
	fg.mu.Lock()
	defer fg.mu.Unlock()
	return fg.registers, fg.queries, fg.cancels
}

// fakeRepo is an in-memory order repository
type fakeRepo struct {
	mu      sync.Mutex
	orders  map[uuid.UUID]models.Order
	updates int

	createErr error
	updateErr error
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{orders: map[uuid.UUID]models.Order{}}
}

func (fr *fakeRepo) CreateOrder(_ context.Context, order *models.Order) (*models.Order, error) {
	fr.mu.Lock()
	defer fr.mu.Unlock()
	if fr.createErr != nil {
		return nil, fr.createErr
	}
	fr.orders[order.ID] = *order
	stored := fr.orders[order.ID]
	return &stored, nil
}

func (fr *fakeRepo) GetOrderByID(_ context.Context, id uuid.UUID) (*models.Order, error) {
	fr.mu.Lock()
	defer fr.mu.Unlock()
	order, ok := fr.orders[id]
	if !ok {
		return nil, models.ErrOrderNotFound
	}
	return &order, nil
}

func (fr *fakeRepo) UpdateOrder(_ context.Context, order *models.Order) (*models.Order, error) {
	fr.mu.Lock()
	defer fr.mu.Unlock()
	fr.updates++
	if fr.updateErr != nil {
		return nil, fr.updateErr
	}
	if _, ok := fr.orders[order.ID]; !ok {
		return nil, models.ErrOrderNotFound
	}
	fr.orders[order.ID] = *order
	stored := fr.orders[order.ID]
	return &stored, nil
}

func (fr *fakeRepo) GetOrdersByStatus(_ context.Context, status models.Status) ([]models.Order, error) {
	fr.mu.Lock()
	defer fr.mu.Unlock()
	orders := []models.Order{}
	for _, order := range fr.orders {
		if order.Status == status {
			orders = append(orders, order)
		}
	}
	return orders, nil
}

func (fr *fakeRepo) stored(t *testing.T, id uuid.UUID) models.Order {
	t.Helper()
	fr.mu.Lock()
	defer fr.mu.Unlock()
	order, ok := fr.orders[id]
	require.True(t, ok, "order %s not stored", id)
	return order
}

// fakeNotifier records delivered texts
type fakeNotifier struct {
	mu    sync.Mutex
	err   error
	texts []string
}

func (fn *fakeNotifier) Notify(_ context.Context, _ string, text string) error {
	fn.mu.Lock()
	defer fn.mu.Unlock()
	if fn.err != nil {
		return fn.err
	}
	fn.texts = append(fn.texts, text)
	return nil
}

func (fn *fakeNotifier) delivered() []string {
	fn.mu.Lock()
	defer fn.mu.Unlock()
	return append([]string(nil), fn.texts...)
}

func newOrderInStatus(t *testing.T, status models.Status) *models.Order {
	t.Helper()
	order, err := models.NewOrder(1000, "100500", "test@test", "Account top-up")
	require.NoError(t, err)
	order.Status = status
	if status != models.StatusCreated {
		order.PaymentID = "700001"
		order.URL = "https://pay.example/700001"
	}
	return order
}

func testConfig() Config {
	return Config{
		Delay:       time.Millisecond,
		MaxAttempts: 3,
		AutoCancel:  true,
		Description: "Account top-up",
	}
}
