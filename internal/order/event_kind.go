package order

//go:generate enumer

// EventKind names the concrete order event types.
type EventKind uint8

const (
	_event_kind_beg EventKind = iota
	EventKindInitialized
	EventKindDenied
	EventKindSubmitted
	EventKindAccepted
	EventKindRejected
	EventKindCanceled
	EventKindExpired
	EventKindTriggered
	EventKindPendingUpdate
	EventKindPendingCancel
	EventKindModifyRejected
	EventKindCancelRejected
	EventKindUpdated
	EventKindFilled
	_event_kind_end
)

func (k EventKind) IsAvailable() bool {
	return k > _event_kind_beg && k < _event_kind_end
}
