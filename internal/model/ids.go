package model

import (
	"strings"

	"github.com/google/uuid"

	"hftexec/pkg/exception"
)

type (
	TraderID      string
	StrategyID    string
	ClientID      string
	AccountID     string
	Venue         string
	ClientOrderID string
	VenueOrderID  string
	OrderListID   string
	PositionID    string
	TradeID       string
)

const (
	// ExternalStrategyID owns orders that no strategy claimed.
	ExternalStrategyID StrategyID = "EXTERNAL"
	ExternalTag                   = "EXTERNAL"

	// InternalDiffStrategyID owns orders minted by position reconciliation.
	InternalDiffStrategyID StrategyID = "INTERNAL-DIFF"

	externalOrderPrefix = "O-"
)

// NewExternalClientOrderID mints an id for an order placed outside this process.
func NewExternalClientOrderID() ClientOrderID {
	return ClientOrderID(externalOrderPrefix + uuid.NewString())
}

// NewTradeID mints a trade id for locally inferred fills.
func NewTradeID() TradeID {
	return TradeID(uuid.NewString())
}

func (id ClientOrderID) String() string { return string(id) }
func (id VenueOrderID) String() string  { return string(id) }
func (id PositionID) String() string    { return string(id) }
func (id StrategyID) String() string    { return string(id) }
func (id ClientID) String() string      { return string(id) }
func (id TradeID) String() string       { return string(id) }

// InstrumentID identifies an instrument on a venue, rendered SYMBOL.VENUE.
type InstrumentID struct {
	Symbol string
	Venue  Venue
}

func NewInstrumentID(symbol string, venue Venue) InstrumentID {
	return InstrumentID{Symbol: symbol, Venue: venue}
}

// ParseInstrumentID splits on the last dot so symbols may contain dots.
func ParseInstrumentID(text string) (InstrumentID, error) {
	idx := strings.LastIndexByte(text, '.')
	if idx <= 0 || idx == len(text)-1 {
		return InstrumentID{}, exception.ErrInvalidInstrumentID
	}
	return InstrumentID{Symbol: text[:idx], Venue: Venue(text[idx+1:])}, nil
}

func (id InstrumentID) String() string {
	if id.IsZero() {
		return ""
	}
	return id.Symbol + "." + string(id.Venue)
}

func (id InstrumentID) IsZero() bool {
	return id.Symbol == "" && id.Venue == ""
}

func (id InstrumentID) MarshalText() ([]byte, error) {
	return []byte(id.String()), nil
}

func (id *InstrumentID) UnmarshalText(text []byte) error {
	if len(text) == 0 {
		*id = InstrumentID{}
		return nil
	}
	parsed, err := ParseInstrumentID(string(text))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}
