package exception

import "github.com/yanun0323/errors"

var (
	ErrConnectionClose   = errors.New("connection closed")
	ErrStoreUnavailable  = errors.New("store: unavailable")
	ErrBridgeUnavailable = errors.New("bridge: unavailable")
)
