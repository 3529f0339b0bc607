package execution

import (
	"context"
	"time"

	"hftexec/internal/command"
	"hftexec/internal/model"
	"hftexec/internal/model/enum"
	"hftexec/internal/report"
)

// OrderStatusQuery selects one order. At least one of the ids is set.
type OrderStatusQuery struct {
	Instrument    model.InstrumentID
	ClientOrderID model.ClientOrderID
	VenueOrderID  model.VenueOrderID
}

// ReportQuery narrows report generation. Zero fields match everything.
type ReportQuery struct {
	Instrument   model.InstrumentID
	VenueOrderID model.VenueOrderID
	Start        time.Time
	End          time.Time
	OpenOnly     bool
}

// Client is a venue execution client. Command methods are fire and forget:
// results come back through Engine.Process as order events.
type Client interface {
	ID() model.ClientID
	Venue() model.Venue
	AccountID() model.AccountID
	OmsType() enum.OmsType

	// GenerateOrderStatusReport returns nil when the venue does not know the order.
	GenerateOrderStatusReport(ctx context.Context, q OrderStatusQuery) (*report.OrderStatusReport, error)
	GenerateOrderStatusReports(ctx context.Context, q ReportQuery) ([]report.OrderStatusReport, error)
	GenerateFillReports(ctx context.Context, q ReportQuery) ([]report.FillReport, error)
	GeneratePositionStatusReports(ctx context.Context, q ReportQuery) ([]report.PositionStatusReport, error)
	// GenerateMassStatus covers the last lookbackMins minutes, or everything when zero.
	GenerateMassStatus(ctx context.Context, lookbackMins int) (*report.ExecutionMassStatus, error)

	SubmitOrder(ctx context.Context, cmd command.SubmitOrder) error
	SubmitOrderList(ctx context.Context, cmd command.SubmitOrderList) error
	ModifyOrder(ctx context.Context, cmd command.ModifyOrder) error
	CancelOrder(ctx context.Context, cmd command.CancelOrder) error
	CancelAllOrders(ctx context.Context, cmd command.CancelAllOrders) error
	QueryOrder(ctx context.Context, cmd command.QueryOrder) error
}
