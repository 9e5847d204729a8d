package models

import "errors"

var (
	ErrOrderNotFound  = errors.New("order not found")
	ErrInvalidAmount  = errors.New("amount must be positive")
	ErrInvalidEmail   = errors.New("invalid email")
	ErrNotCancellable = errors.New("order can not be cancelled")
)
