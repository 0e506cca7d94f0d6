package domain

import "errors"

var (
	// ErrUnauthorized is returned when the caller is not the wired writer
	// (or payment contract) for the operation
	ErrUnauthorized = errors.New("caller is not authorized")

	// ErrNotFound is returned when a company, product, invoice or customer
	// record does not exist
	ErrNotFound = errors.New("record not found")

	// ErrInvalidState is returned for operations against inactive companies
	// or products, price mismatches, and double-paying an invoice
	ErrInvalidState = errors.New("invalid state")

	// ErrInsufficientBalance is returned before any debit occurs when the
	// buyer's balance cannot cover the requested amount
	ErrInsufficientBalance = errors.New("insufficient balance")

	// ErrOverflow is returned when a subtotal or cumulative total would
	// exceed the representable range
	ErrOverflow = errors.New("arithmetic overflow")

	// ErrInvalidAmount is returned for negative or otherwise malformed amounts
	ErrInvalidAmount = errors.New("invalid amount")

	// ErrInvalidIdentity is returned for malformed participant addresses
	ErrInvalidIdentity = errors.New("invalid identity")

	// ErrAlreadyExists is returned when registering a company identity that
	// is already present
	ErrAlreadyExists = errors.New("record already exists")

	// ErrAlreadyWired is returned when a set-once wiring entry is assigned twice
	ErrAlreadyWired = errors.New("wiring entry already set")

	// ErrNotWired is returned when a required wiring entry is missing
	ErrNotWired = errors.New("wiring entry not set")

	// ErrEmptyPurchase is returned when a purchase request carries no items
	ErrEmptyPurchase = errors.New("purchase has no items")
)
