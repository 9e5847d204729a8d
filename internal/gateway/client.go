package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/voicee/paytrack/internal/models"
	"go.uber.org/zap"
)

// provider endpoints
const (
	endpointInit     = "Init"
	endpointGetState = "GetState"
	endpointCancel   = "Cancel"
)

// default per-call timeout, must stay below the polling delay so a hung call
// fails within the current attempt
const defaultTimeout = 2 * time.Second

// Config carries the provider credentials and the organisation tax
// parameters used to build receipts.
type Config struct {
	BaseURL     string
	TerminalKey string
	Password    string
	Taxation    string
	VAT         string
	Timeout     time.Duration
}

// Client talks to the external payment provider. Every operation is a single
// network round-trip with no retries; retry policy belongs to the poller.
type Client struct {
	cfg    Config
	client *http.Client
	logger *zap.Logger
}

// NewClient creates new Client instance
func NewClient(cfg Config, logger *zap.Logger) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		cfg: cfg,
		client: &http.Client{
			Timeout: timeout,
		},
		logger: logger,
	}
}

type initRequest struct {
	TerminalKey string          `json:"TerminalKey"`
	Amount      int64           `json:"Amount"`
	OrderId     string          `json:"OrderId"`
	Description string          `json:"Description"`
	CustomerKey string          `json:"CustomerKey"`
	Receipt     *models.Receipt `json:"Receipt"`
	Token       string          `json:"Token"`
}

type stateRequest struct {
	TerminalKey string `json:"TerminalKey"`
	PaymentId   string `json:"PaymentId"`
	Token       string `json:"Token"`
}

// flexString decodes provider fields that arrive as either a JSON string or
// a JSON number. The provider is not consistent about PaymentId.
type flexString string

func (f *flexString) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = flexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*f = flexString(n.String())
	return nil
}

type apiResponse struct {
	Success    bool        `json:"Success"`
	ErrorCode  string      `json:"ErrorCode"`
	Message    string      `json:"Message"`
	Details    string      `json:"Details"`
	Status     string      `json:"Status"`
	PaymentId  flexString  `json:"PaymentId"`
	PaymentURL string      `json:"PaymentURL"`
	OrderId    string      `json:"OrderId"`
	Amount     json.Number `json:"Amount"`
}

// Register creates the payment with the provider and returns a copy of the
// order with the provider-assigned payment id, the payable link, the status
// and the constructed receipt filled in. The input order is not mutated, so
// a failed registration leaves the caller's CREATED order untouched.
func (c *Client) Register(ctx context.Context, order *models.Order) (*models.Order, error) {
	receipt := &models.Receipt{
		Email:    order.Email,
		Taxation: c.cfg.Taxation,
		Items: []models.ReceiptItem{
			{
				// one line item covering the full amount
				Name:     order.Description,
				Price:    order.Amount,
				Quantity: 1,
				Amount:   order.Amount,
				Tax:      c.cfg.VAT,
			},
		},
	}

	fields := map[string]string{
		"TerminalKey": c.cfg.TerminalKey,
		"Amount":      strconv.FormatInt(order.Amount, 10),
		"OrderId":     order.ID.String(),
		"Description": order.Description,
		"CustomerKey": order.CustomerKey,
	}
	token, err := signToken(fields, initSignedFields, c.cfg.Password)
	if err != nil {
		return nil, err
	}

	req := initRequest{
		TerminalKey: c.cfg.TerminalKey,
		Amount:      order.Amount,
		OrderId:     order.ID.String(),
		Description: order.Description,
		CustomerKey: order.CustomerKey,
		Receipt:     receipt,
		Token:       token,
	}

	var resp apiResponse
	if err := c.send(ctx, endpointInit, req, &resp); err != nil {
		return nil, err
	}
	if !resp.Success {
		return nil, &APIError{Code: resp.ErrorCode, Message: resp.Message, Details: resp.Details}
	}

	registered := *order
	registered.Receipt = receipt
	registered.PaymentID = string(resp.PaymentId)
	registered.URL = resp.PaymentURL
	registered.Status = models.ParseStatus(resp.Status)

	c.logger.Debug("payment registered",
		zap.String("order", order.ID.String()),
		zap.String("payment_id", registered.PaymentID),
		zap.String("status", string(registered.Status)))

	return &registered, nil
}

// Query asks the provider for the current payment status and returns a copy
// of the order with the status overwritten. It is idempotent and has no side
// effects on the provider.
func (c *Client) Query(ctx context.Context, order *models.Order) (*models.Order, error) {
	resp, err := c.state(ctx, endpointGetState, order)
	if err != nil {
		return nil, err
	}

	checked := *order
	checked.Status = models.ParseStatus(resp.Status)
	return &checked, nil
}

// Cancel asks the provider to cancel the payment and returns a copy of the
// order with the status overwritten from the response. The provider is
// authoritative here: cancelling an already-terminal payment comes back as
// an APIError, which callers of the defensive cancel path are expected to
// tolerate.
func (c *Client) Cancel(ctx context.Context, order *models.Order) (*models.Order, error) {
	resp, err := c.state(ctx, endpointCancel, order)
	if err != nil {
		return nil, err
	}

	cancelled := *order
	cancelled.Status = models.ParseStatus(resp.Status)

	c.logger.Debug("payment cancelled",
		zap.String("order", order.ID.String()),
		zap.String("status", string(cancelled.Status)))

	return &cancelled, nil
}

// state sends a request keyed by payment id, shared by Query and Cancel.
func (c *Client) state(ctx context.Context, endpoint string, order *models.Order) (*apiResponse, error) {
	if order.PaymentID == "" {
		return nil, fmt.Errorf("gateway: order %s is not registered", order.ID)
	}

	fields := map[string]string{
		"TerminalKey": c.cfg.TerminalKey,
		"PaymentId":   order.PaymentID,
	}
	token, err := signToken(fields, stateSignedFields, c.cfg.Password)
	if err != nil {
		return nil, err
	}

	req := stateRequest{
		TerminalKey: c.cfg.TerminalKey,
		PaymentId:   order.PaymentID,
		Token:       token,
	}

	var resp apiResponse
	if err := c.send(ctx, endpoint, req, &resp); err != nil {
		return nil, err
	}
	if !resp.Success {
		return nil, &APIError{Code: resp.ErrorCode, Message: resp.Message, Details: resp.Details}
	}

	return &resp, nil
}

// send posts a JSON payload to the provider endpoint and decodes the
// response. Any network or decode failure is a TransportError.
func (c *Client) send(ctx context.Context, endpoint string, payload any, out *apiResponse) error {
	u, err := url.JoinPath(c.cfg.BaseURL, endpoint)
	if err != nil {
		return &TransportError{Op: endpoint, Err: err}
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return &TransportError{Op: endpoint, Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(body))
	if err != nil {
		return &TransportError{Op: endpoint, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if resp != nil {
		defer resp.Body.Close()
	}
	if err != nil {
		return &TransportError{Op: endpoint, Err: err}
	}

	dec := json.NewDecoder(resp.Body)
	// money fields must not go through float64
	dec.UseNumber()
	if err := dec.Decode(out); err != nil {
		return &TransportError{Op: endpoint, Err: err}
	}

	return nil
}
