package pgstore

import (
	"context"
	"encoding/json"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"hftexec/internal/cache"
	"hftexec/internal/errors"
	"hftexec/internal/model"
	"hftexec/internal/order"
	"hftexec/internal/state"
	"hftexec/pkg/conn"
	"hftexec/pkg/exception"
)

// Rows keep the indexed keys as columns and the full entity as a JSON payload,
// so schema changes to the entities do not need migrations.

type instrumentRow struct {
	ID      string `gorm:"primaryKey;size:128"`
	Payload []byte `gorm:"not null"`
}

func (instrumentRow) TableName() string { return "exec_instruments" }

type orderRow struct {
	ClientOrderID string `gorm:"primaryKey;size:128"`
	VenueOrderID  string `gorm:"index;size:128"`
	InstrumentID  string `gorm:"index;size:128"`
	StrategyID    string `gorm:"size:128"`
	Status        string `gorm:"size:32"`
	TsInit        int64  `gorm:"index"`
	TsLast        int64
	Payload       []byte `gorm:"not null"`
}

func (orderRow) TableName() string { return "exec_orders" }

type positionRow struct {
	ID           string `gorm:"primaryKey;size:128"`
	InstrumentID string `gorm:"index;size:128"`
	StrategyID   string `gorm:"size:128"`
	TsOpened     int64  `gorm:"index"`
	Payload      []byte `gorm:"not null"`
}

func (positionRow) TableName() string { return "exec_positions" }

type accountRow struct {
	Seq       uint64 `gorm:"primaryKey;autoIncrement"`
	AccountID string `gorm:"index;size:128"`
	TsEvent   int64
	Payload   []byte `gorm:"not null"`
}

func (accountRow) TableName() string { return "exec_account_states" }

// Store persists the execution cache through gorm.
type Store struct {
	client *conn.Client
	db     *gorm.DB
}

var _ cache.Store = (*Store)(nil)

// Open connects and migrates the cache tables.
func Open(option conn.Option) (*Store, error) {
	client, err := conn.New(option)
	if err != nil {
		return nil, errors.Wrap(exception.ErrStoreUnavailable, err.Error())
	}
	s, err := New(client.DB())
	if err != nil {
		_ = client.Close()
		return nil, err
	}
	s.client = client
	return s, nil
}

// New wraps an existing connection and migrates the cache tables.
func New(db *gorm.DB) (*Store, error) {
	if db == nil {
		return nil, exception.ErrNilInstance
	}
	if err := db.AutoMigrate(&instrumentRow{}, &orderRow{}, &positionRow{}, &accountRow{}); err != nil {
		return nil, errors.Wrap(err, "migrate cache tables")
	}
	return &Store{db: db}, nil
}

func (s *Store) Load(ctx context.Context) (cache.Snapshot, error) {
	var snap cache.Snapshot
	db := s.db.WithContext(ctx)

	var instruments []instrumentRow
	if err := db.Order("id").Find(&instruments).Error; err != nil {
		return snap, errors.Wrap(err, "load instruments")
	}
	for _, row := range instruments {
		var inst model.Instrument
		if err := json.Unmarshal(row.Payload, &inst); err != nil {
			return snap, errors.Wrapf(err, "decode instrument %s", row.ID)
		}
		snap.Instruments = append(snap.Instruments, inst)
	}

	var orders []orderRow
	if err := db.Order("ts_init, client_order_id").Find(&orders).Error; err != nil {
		return snap, errors.Wrap(err, "load orders")
	}
	for _, row := range orders {
		o := &order.Order{}
		if err := json.Unmarshal(row.Payload, o); err != nil {
			return snap, errors.Wrapf(err, "decode order %s", row.ClientOrderID)
		}
		snap.Orders = append(snap.Orders, o)
	}

	var positions []positionRow
	if err := db.Order("ts_opened, id").Find(&positions).Error; err != nil {
		return snap, errors.Wrap(err, "load positions")
	}
	for _, row := range positions {
		p := &state.Position{}
		if err := json.Unmarshal(row.Payload, p); err != nil {
			return snap, errors.Wrapf(err, "decode position %s", row.ID)
		}
		snap.Positions = append(snap.Positions, p)
	}

	var accounts []accountRow
	if err := db.Order("seq").Find(&accounts).Error; err != nil {
		return snap, errors.Wrap(err, "load account states")
	}
	for _, row := range accounts {
		var as model.AccountState
		if err := json.Unmarshal(row.Payload, &as); err != nil {
			return snap, errors.Wrapf(err, "decode account state %d", row.Seq)
		}
		snap.AccountStates = append(snap.AccountStates, as)
	}
	return snap, nil
}

func (s *Store) SaveInstruments(ctx context.Context, instruments []model.Instrument) error {
	if len(instruments) == 0 {
		return nil
	}
	rows := make([]instrumentRow, 0, len(instruments))
	for _, inst := range instruments {
		payload, err := json.Marshal(inst)
		if err != nil {
			return err
		}
		rows = append(rows, instrumentRow{ID: inst.ID.String(), Payload: payload})
	}
	return s.upsert(ctx, &rows, []string{"id"}, []string{"payload"})
}

func (s *Store) SaveOrders(ctx context.Context, orders []*order.Order) error {
	if len(orders) == 0 {
		return nil
	}
	rows := make([]orderRow, 0, len(orders))
	for _, o := range orders {
		payload, err := json.Marshal(o)
		if err != nil {
			return err
		}
		rows = append(rows, orderRow{
			ClientOrderID: o.ClientOrderID.String(),
			VenueOrderID:  o.VenueOrderID.String(),
			InstrumentID:  o.InstrumentID.String(),
			StrategyID:    o.StrategyID.String(),
			Status:        o.Status.String(),
			TsInit:        o.TsInit,
			TsLast:        o.TsLast,
			Payload:       payload,
		})
	}
	return s.upsert(ctx, &rows, []string{"client_order_id"},
		[]string{"venue_order_id", "instrument_id", "strategy_id", "status", "ts_last", "payload"})
}

func (s *Store) SavePositions(ctx context.Context, positions []*state.Position) error {
	if len(positions) == 0 {
		return nil
	}
	rows := make([]positionRow, 0, len(positions))
	for _, p := range positions {
		payload, err := json.Marshal(p)
		if err != nil {
			return err
		}
		rows = append(rows, positionRow{
			ID:           p.ID.String(),
			InstrumentID: p.InstrumentID.String(),
			StrategyID:   p.StrategyID.String(),
			TsOpened:     p.TsOpened,
			Payload:      payload,
		})
	}
	return s.upsert(ctx, &rows, []string{"id"}, []string{"ts_opened", "payload"})
}

func (s *Store) SaveAccountStates(ctx context.Context, states []model.AccountState) error {
	if len(states) == 0 {
		return nil
	}
	rows := make([]accountRow, 0, len(states))
	for _, as := range states {
		payload, err := json.Marshal(as)
		if err != nil {
			return err
		}
		rows = append(rows, accountRow{AccountID: string(as.AccountID), TsEvent: as.TsEvent, Payload: payload})
	}
	return s.db.WithContext(ctx).Create(&rows).Error
}

func (s *Store) upsert(ctx context.Context, rows any, keys, update []string) error {
	columns := make([]clause.Column, 0, len(keys))
	for _, k := range keys {
		columns = append(columns, clause.Column{Name: k})
	}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   columns,
		DoUpdates: clause.AssignmentColumns(update),
	}).Create(rows).Error
}

func (s *Store) Close() error {
	if s.client == nil {
		return nil
	}
	return s.client.Close()
}
