package rentals

import "errors"

var (
	ErrOrderNotFound  = errors.New("order not found")
	ErrNotCancellable = errors.New("order is not pending payment")
	ErrAlreadyClosed  = errors.New("order already closed")
)
