package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

//CREATED — заказ создан у нас, но его пока нет у провайдера;
//NEW — заказ успешно зарегистрирован, ссылка на оплату выдана;
//CONFIRMED — платеж успешно оплачен;
//REJECTED — платеж отклонен системой;
//CANCELLED — платеж отменен провайдером или нами;
//MAX_ATTEMPTS — достигнуто максимальное число проверок, итог неизвестен.

// Status is the lifecycle status of an order.
type Status string

const (
	StatusCreated     Status = "CREATED"
	StatusNew         Status = "NEW"
	StatusConfirmed   Status = "CONFIRMED"
	StatusRejected    Status = "REJECTED"
	StatusCancelled   Status = "CANCELLED"
	StatusMaxAttempts Status = "MAX_ATTEMPTS"
)

// IsTerminal reports whether no further automated transition is expected.
func (s Status) IsTerminal() bool {
	switch s {
	case StatusConfirmed, StatusRejected, StatusCancelled, StatusMaxAttempts:
		return true
	}
	return false
}

// ParseStatus normalizes a provider-transmitted status. The provider spells
// cancellation with a single L. Statuses this service does not track, such
// as FORM_SHOWED, pass through verbatim and count as non-terminal.
func ParseStatus(s string) Status {
	if strings.EqualFold(s, "CANCELED") {
		return StatusCancelled
	}
	return Status(s)
}

// ReceiptItem is one receipt line. Price and Amount are in minor currency
// units. Field names follow the provider wire contract.
type ReceiptItem struct {
	Name     string `json:"Name"`
	Price    int64  `json:"Price"`
	Quantity int64  `json:"Quantity"`
	Amount   int64  `json:"Amount"`
	Tax      string `json:"Tax"`
}

// Receipt mirrors the receipt payload sent to the provider at registration.
type Receipt struct {
	Email    string        `json:"Email"`
	Taxation string        `json:"Taxation"`
	Items    []ReceiptItem `json:"Items"`
}

// Order is the local record of a single payment attempt, tracked from
// creation through a terminal outcome. ID, Amount and CustomerKey are
// immutable after creation. PaymentID and URL stay empty until registration
// with the provider succeeds.
type Order struct {
	ID          uuid.UUID
	Amount      int64
	CustomerKey string
	Email       string
	Description string
	Receipt     *Receipt
	PaymentID   string
	URL         string
	Status      Status
	Created     time.Time
}

// NewOrder builds a CREATED order with a time-ordered id.
func NewOrder(amount int64, customerKey, email, description string) (*Order, error) {
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}
	if !ValidEmail(email) {
		return nil, ErrInvalidEmail
	}
	id, err := uuid.NewV7()
	if err != nil {
		return nil, err
	}
	return &Order{
		ID:          id,
		Amount:      amount,
		CustomerKey: customerKey,
		Email:       email,
		Description: description,
		Status:      StatusCreated,
		Created:     time.Now(),
	}, nil
}

// ValidEmail checks only for a letter or digit on both sides of the @ sign,
// which is the same check the provider applies. Stricter validation is an
// open product decision.
func ValidEmail(email string) bool {
	at := strings.IndexByte(email, '@')
	if at <= 0 || at == len(email)-1 {
		return false
	}
	return isAlnum(email[at-1]) && isAlnum(email[at+1])
}

func isAlnum(c byte) bool {
	return c >= '0' && c <= '9' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z'
}
