package exception

import "errors"

var (
	ErrVenueDisconnected      = errors.New("venue: disconnected")
	ErrVenueDuplicateOrder    = errors.New("venue: order already exists")
	ErrVenueUnknownOrder      = errors.New("venue: order not found")
	ErrVenueInvalidTransition = errors.New("venue: invalid order state transition")
	ErrVenueInvalidFill       = errors.New("venue: invalid fill quantity")
)
