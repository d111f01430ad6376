package models

import "errors"

// Domain errors. Callers branch with errors.Is; layers wrap with %w.
var (
	ErrUnauthenticated    = errors.New("not authenticated")
	ErrPortfolioNotFound  = errors.New("portfolio not found")
	ErrHoldingNotFound    = errors.New("holding not found")
	ErrInsufficientShares = errors.New("insufficient shares to sell")
	ErrInvalidInput       = errors.New("invalid input")

	// ErrNotFound is returned by stores when a keyed record is absent.
	ErrNotFound = errors.New("record not found")
	// ErrConflict is returned when a position changed between read and commit.
	ErrConflict = errors.New("concurrent update")

	ErrAlreadyWatched = errors.New("stock already in watchlist")
	ErrNotWatched     = errors.New("stock not in watchlist")
)
