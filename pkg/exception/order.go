package exception

import "errors"

var (
	ErrOrderDuplicate         = errors.New("order: already exists")
	ErrOrderNotFound          = errors.New("order: not found")
	ErrOrderInvalidTransition = errors.New("order: invalid state transition")
	ErrOrderInvalidFill       = errors.New("order: invalid fill quantity")
	ErrOrderDuplicateTrade    = errors.New("order: duplicate trade id")
	ErrOrderVenueIDMismatch   = errors.New("order: venue order id already assigned")
	ErrOrderUnknownEvent      = errors.New("order: unknown event")
)
