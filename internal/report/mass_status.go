package report

import (
	"github.com/google/uuid"

	"hftexec/internal/model"
)

// ExecutionMassStatus bundles every report of one client at a point in time.
// Entries are only ever added.
type ExecutionMassStatus struct {
	ClientID  model.ClientID  `json:"clientId"`
	AccountID model.AccountID `json:"accountId"`
	Venue     model.Venue     `json:"venue"`
	ID        uuid.UUID       `json:"reportId"`
	TsInit    int64           `json:"tsInit"`

	orderIDs  []model.VenueOrderID
	orders    map[model.VenueOrderID]OrderStatusReport
	fills     map[model.VenueOrderID][]FillReport
	positions map[model.InstrumentID][]PositionStatusReport
}

func NewExecutionMassStatus(client model.ClientID, account model.AccountID, venue model.Venue, ts int64) *ExecutionMassStatus {
	return &ExecutionMassStatus{
		ClientID:  client,
		AccountID: account,
		Venue:     venue,
		ID:        uuid.New(),
		TsInit:    ts,
		orders:    make(map[model.VenueOrderID]OrderStatusReport),
		fills:     make(map[model.VenueOrderID][]FillReport),
		positions: make(map[model.InstrumentID][]PositionStatusReport),
	}
}

// AddOrderReports keys reports by venue order id. A later report for the same
// id replaces the earlier one but keeps its original position.
func (m *ExecutionMassStatus) AddOrderReports(reports ...OrderStatusReport) {
	m.init()
	for _, r := range reports {
		if _, ok := m.orders[r.VenueOrderID]; !ok {
			m.orderIDs = append(m.orderIDs, r.VenueOrderID)
		}
		m.orders[r.VenueOrderID] = r
	}
}

func (m *ExecutionMassStatus) AddFillReports(reports ...FillReport) {
	m.init()
	for _, r := range reports {
		m.fills[r.VenueOrderID] = append(m.fills[r.VenueOrderID], r)
	}
}

func (m *ExecutionMassStatus) AddPositionReports(reports ...PositionStatusReport) {
	m.init()
	for _, r := range reports {
		m.positions[r.Instrument] = append(m.positions[r.Instrument], r)
	}
}

// OrderReports returns the order reports in insertion order.
func (m *ExecutionMassStatus) OrderReports() []OrderStatusReport {
	out := make([]OrderStatusReport, 0, len(m.orderIDs))
	for _, id := range m.orderIDs {
		out = append(out, m.orders[id])
	}
	return out
}

func (m *ExecutionMassStatus) OrderReport(id model.VenueOrderID) (OrderStatusReport, bool) {
	r, ok := m.orders[id]
	return r, ok
}

// FillReports returns the fills of one venue order in insertion order.
func (m *ExecutionMassStatus) FillReports(id model.VenueOrderID) []FillReport {
	return m.fills[id]
}

// AllFillReports maps venue order id to fills.
func (m *ExecutionMassStatus) AllFillReports() map[model.VenueOrderID][]FillReport {
	return m.fills
}

// PositionReports maps instrument id to position reports.
func (m *ExecutionMassStatus) PositionReports() map[model.InstrumentID][]PositionStatusReport {
	return m.positions
}

func (m *ExecutionMassStatus) init() {
	if m.orders == nil {
		m.orders = make(map[model.VenueOrderID]OrderStatusReport)
	}
	if m.fills == nil {
		m.fills = make(map[model.VenueOrderID][]FillReport)
	}
	if m.positions == nil {
		m.positions = make(map[model.InstrumentID][]PositionStatusReport)
	}
}
