package shared

import "errors"

// Domain-specific errors
var (
	// Auction errors
	ErrAuctionNotFound = errors.New("auction not found")
	ErrAuctionClosed   = errors.New("auction is closed")

	// Bid errors
	ErrBidTooLow     = errors.New("bid amount must be higher than current highest bid")
	ErrInvalidAmount = errors.New("valid amount is required")

	// Validation errors
	ErrItemDescRequired      = errors.New("item description is required")
	ErrNegativeStartingPrice = errors.New("starting price must not be negative")
	ErrInvalidAuctionID      = errors.New("invalid auction id")
	ErrAuctionIDRequired     = errors.New("auction id is required")
	ErrInvalidRequest        = errors.New("invalid request")

	// ErrUnchanged is returned by an update mutation to signal that the record
	// must not be rewritten (e.g. closing an already closed auction).
	ErrUnchanged = errors.New("auction unchanged")

	// Storage errors
	ErrStorageFailure = errors.New("storage failure")
	ErrKeyNotFound    = errors.New("key not found")
	ErrKeyExists      = errors.New("key already exists")

	// RPC errors
	ErrOperationRequired = errors.New("operation name is required")
	ErrUnknownOperation  = errors.New("unknown operation")
)
