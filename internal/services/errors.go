package services

import "errors"

// Recoverable domain errors. Handlers translate these into HTTP statuses
// with errors.Is; anything else is treated as a storage failure.
var (
	ErrOutOfStock        = errors.New("item out of stock")
	ErrInsufficientFunds = errors.New("insufficient balance")
	ErrOrderNotFound     = errors.New("order not found")
	ErrNotOwner          = errors.New("order belongs to another user")
	ErrAlreadyRedeemed   = errors.New("order already redeemed")
	ErrRequestNotFound   = errors.New("procurement request not found")
	ErrAlreadyApproved   = errors.New("request already approved")
	ErrAccountNotFound   = errors.New("account not found")
	ErrItemNotFound      = errors.New("menu item not found")

	// Meal tickets live in Redis; without it the button-press redeem path
	// still works, only tickets are refused.
	ErrTicketInvalid      = errors.New("invalid or expired ticket")
	ErrTicketsUnavailable = errors.New("ticket service unavailable")
)
