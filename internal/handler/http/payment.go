package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/voicee/paytrack/internal/gateway"
	"github.com/voicee/paytrack/internal/models"
	"github.com/voicee/paytrack/internal/service"
	"go.uber.org/zap"
)

// PaymentService is interface for payment-related operations consumed by handlers
type PaymentService interface {
	// CreatePayment stores and registers a new order, returns it with the payable link
	CreatePayment(ctx context.Context, req service.CreatePaymentRequest) (*models.Order, error)
	// Track polls the order to a terminal status
	Track(ctx context.Context, order *models.Order) (*models.Order, error)
	// GetPayment returns order by id
	GetPayment(ctx context.Context, id uuid.UUID) (*models.Order, error)
	// ListPayments returns orders with the given status
	ListPayments(ctx context.Context, status models.Status) ([]models.Order, error)
	// CancelPayment is the administrative cancel flow
	CancelPayment(ctx context.Context, id uuid.UUID) (*models.Order, error)
}

// PaymentHandler represents HTTP handler for payment-related requests
type PaymentHandler struct {
	svc    PaymentService
	logger *zap.Logger
}

// NewPaymentHandler creates new PaymentHandler instance
func NewPaymentHandler(svc PaymentService, logger *zap.Logger) *PaymentHandler {
	return &PaymentHandler{
		svc:    svc,
		logger: logger,
	}
}

type createPaymentRequest struct {
	Amount      int64  `json:"amount"`
	CustomerKey string `json:"customer_key"`
	Email       string `json:"email"`
	Description string `json:"description,omitempty"`
}

type orderResponse struct {
	ID          string        `json:"id"`
	Amount      int64         `json:"amount"`
	CustomerKey string        `json:"customer_key"`
	Email       string        `json:"email"`
	Description string        `json:"description"`
	PaymentID   string        `json:"payment_id,omitempty"`
	URL         string        `json:"url,omitempty"`
	Status      models.Status `json:"status"`
	Created     time.Time     `json:"created"`
}

func newOrderResponse(order *models.Order) orderResponse {
	return orderResponse{
		ID:          order.ID.String(),
		Amount:      order.Amount,
		CustomerKey: order.CustomerKey,
		Email:       order.Email,
		Description: order.Description,
		PaymentID:   order.PaymentID,
		URL:         order.URL,
		Status:      order.Status,
		Created:     order.Created,
	}
}

// CreatePayment registers a new payment and returns the payable link
// 201 — платеж зарегистрирован, ссылка выдана;
// 400 — неверный формат запроса;
// 502 — провайдер отклонил регистрацию или недоступен;
// 500 — внутренняя ошибка сервера.
func (ph *PaymentHandler) CreatePayment() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req createPaymentRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}
		defer r.Body.Close()

		order, err := ph.svc.CreatePayment(r.Context(), service.CreatePaymentRequest{
			Amount:      req.Amount,
			CustomerKey: req.CustomerKey,
			Email:       req.Email,
			Description: req.Description,
		})
		if err != nil {
			switch {
			case errors.Is(err, models.ErrInvalidAmount), errors.Is(err, models.ErrInvalidEmail):
				http.Error(w, err.Error(), http.StatusBadRequest)
			case isGatewayFailure(err):
				http.Error(w, "payment registration failed", http.StatusBadGateway)
			default:
				http.Error(w, "internal error", http.StatusInternalServerError)
			}
			return
		}

		// the link is returned right away; tracking to a terminal status runs
		// detached from the request, the reconciler covers a crash in between
		tracked := *order
		go func() {
			if _, err := ph.svc.Track(context.Background(), &tracked); err != nil {
				ph.logger.Warn("payment tracking interrupted",
					zap.String("order", tracked.ID.String()), zap.Error(err))
			}
		}()

		writeJSON(w, http.StatusCreated, newOrderResponse(order))
	}
}

// GetPayment returns one payment
// 200 — успешная обработка запроса;
// 400 — неверный формат идентификатора;
// 404 — платеж не найден.
func (ph *PaymentHandler) GetPayment() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			http.Error(w, "invalid order id", http.StatusBadRequest)
			return
		}

		order, err := ph.svc.GetPayment(r.Context(), id)
		if err != nil {
			if errors.Is(err, models.ErrOrderNotFound) {
				http.Error(w, "order not found", http.StatusNotFound)
				return
			}
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}

		writeJSON(w, http.StatusOK, newOrderResponse(order))
	}
}

// ListPayments returns payments filtered by status, NEW by default
// 200 — успешная обработка запроса;
// 500 — внутренняя ошибка сервера.
func (ph *PaymentHandler) ListPayments() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status := models.StatusNew
		if s := r.URL.Query().Get("status"); s != "" {
			status = models.Status(s)
		}

		orders, err := ph.svc.ListPayments(r.Context(), status)
		if err != nil {
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}

		resp := make([]orderResponse, 0, len(orders))
		for i := range orders {
			resp = append(resp, newOrderResponse(&orders[i]))
		}

		writeJSON(w, http.StatusOK, resp)
	}
}

// CancelPayment cancels a payment administratively
// 200 — платеж отменен;
// 400 — неверный формат идентификатора;
// 404 — платеж не найден;
// 409 — платеж нельзя отменить в его текущем статусе;
// 502 — провайдер недоступен.
func (ph *PaymentHandler) CancelPayment() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			http.Error(w, "invalid order id", http.StatusBadRequest)
			return
		}

		order, err := ph.svc.CancelPayment(r.Context(), id)
		if err != nil {
			switch {
			case errors.Is(err, models.ErrOrderNotFound):
				http.Error(w, "order not found", http.StatusNotFound)
			case errors.Is(err, models.ErrNotCancellable):
				http.Error(w, "order can not be cancelled", http.StatusConflict)
			case gateway.IsTransport(err):
				http.Error(w, "provider unavailable", http.StatusBadGateway)
			default:
				http.Error(w, "internal error", http.StatusInternalServerError)
			}
			return
		}

		writeJSON(w, http.StatusOK, newOrderResponse(order))
	}
}

func isGatewayFailure(err error) bool {
	var apiErr *gateway.APIError
	return errors.As(err, &apiErr) || gateway.IsTransport(err)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
