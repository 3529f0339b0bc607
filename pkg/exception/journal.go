package exception

import "errors"

var (
	ErrJournalQueueFull        = errors.New("journal: queue full")
	ErrJournalClosed           = errors.New("journal: writer closed")
	ErrJournalNotStarted       = errors.New("journal: writer not started")
	ErrJournalStarted          = errors.New("journal: writer already started")
	ErrJournalPayloadTooLarge  = errors.New("journal: payload too large")
	ErrJournalInvalidMagic     = errors.New("journal: invalid magic")
	ErrJournalUnsupportedVer   = errors.New("journal: unsupported record version")
	ErrJournalInvalidHeader    = errors.New("journal: invalid header size")
	ErrJournalChecksumMismatch = errors.New("journal: checksum mismatch")
)
