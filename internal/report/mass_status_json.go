package report

import (
	"encoding/json"
	"sort"

	"github.com/google/uuid"

	"hftexec/internal/model"
)

type massStatusJSON struct {
	ClientID        model.ClientID         `json:"clientId"`
	AccountID       model.AccountID        `json:"accountId"`
	Venue           model.Venue            `json:"venue"`
	ID              uuid.UUID              `json:"reportId"`
	TsInit          int64                  `json:"tsInit"`
	OrderReports    []OrderStatusReport    `json:"orderReports"`
	FillReports     []FillReport           `json:"fillReports"`
	PositionReports []PositionStatusReport `json:"positionReports"`
}

func (m *ExecutionMassStatus) MarshalJSON() ([]byte, error) {
	out := massStatusJSON{
		ClientID:     m.ClientID,
		AccountID:    m.AccountID,
		Venue:        m.Venue,
		ID:           m.ID,
		TsInit:       m.TsInit,
		OrderReports: m.OrderReports(),
	}
	for _, id := range m.orderIDs {
		out.FillReports = append(out.FillReports, m.fills[id]...)
	}
	for id, fills := range m.fills {
		if _, ok := m.orders[id]; !ok {
			out.FillReports = append(out.FillReports, fills...)
		}
	}
	instruments := make([]model.InstrumentID, 0, len(m.positions))
	for id := range m.positions {
		instruments = append(instruments, id)
	}
	sort.Slice(instruments, func(i, j int) bool { return instruments[i].String() < instruments[j].String() })
	for _, id := range instruments {
		out.PositionReports = append(out.PositionReports, m.positions[id]...)
	}
	return json.Marshal(out)
}

func (m *ExecutionMassStatus) UnmarshalJSON(data []byte) error {
	var in massStatusJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	*m = ExecutionMassStatus{
		ClientID:  in.ClientID,
		AccountID: in.AccountID,
		Venue:     in.Venue,
		ID:        in.ID,
		TsInit:    in.TsInit,
	}
	m.AddOrderReports(in.OrderReports...)
	m.AddFillReports(in.FillReports...)
	m.AddPositionReports(in.PositionReports...)
	return nil
}
