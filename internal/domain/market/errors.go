package market

import "errors"

// Domain errors for exchange contracts

var (
	// ErrInvalidRequest is returned when a request is missing its commodity or target
	ErrInvalidRequest = errors.New("invalid request")

	// ErrInvalidBid is returned when a bid has no request or no offer
	ErrInvalidBid = errors.New("invalid bid")

	// ErrInvalidTradeAmount is returned when a trade amount is negative or not finite
	ErrInvalidTradeAmount = errors.New("invalid trade amount")

	// ErrInvalidPreference is returned when a preference weight is negative
	ErrInvalidPreference = errors.New("invalid preference")
)
