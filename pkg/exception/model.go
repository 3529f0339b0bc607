package exception

import "github.com/yanun0323/errors"

var (
	ErrInvalidInstrumentID = errors.New("model: invalid instrument id")
	ErrInvalidQuantity     = errors.New("model: quantity must be positive")
	ErrInvalidFilledQty    = errors.New("model: filled quantity must not be negative")
	ErrMissingTriggerType  = errors.New("model: trigger price requires a trigger type")
	ErrMissingOffsetType   = errors.New("model: trailing offset requires an offset type")
	ErrMissingOrderID      = errors.New("model: client or venue order id required")
)
