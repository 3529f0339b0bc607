package cache

import (
	"context"
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"hftexec/internal/model"
	"hftexec/internal/order"
	"hftexec/internal/state"
)

// FileStore keeps the cache as one JSON document, rewritten on every save.
type FileStore struct {
	mu   sync.Mutex
	path string

	instruments map[model.InstrumentID]model.Instrument
	orders      map[model.ClientOrderID]*order.Order
	positions   map[model.PositionID]*state.Position
	accounts    []model.AccountState
	loaded      bool
}

func NewFileStore(path string) *FileStore {
	return &FileStore{
		path:        path,
		instruments: make(map[model.InstrumentID]model.Instrument),
		orders:      make(map[model.ClientOrderID]*order.Order),
		positions:   make(map[model.PositionID]*state.Position),
	}
}

// Load reads the document. A missing file is an empty snapshot.
func (s *FileStore) Load(_ context.Context) (Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.loadLocked(); err != nil {
		return Snapshot{}, err
	}
	return s.snapshotLocked(), nil
}

func (s *FileStore) loadLocked() error {
	if s.loaded {
		return nil
	}
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		s.loaded = true
		return nil
	}
	if err != nil {
		return err
	}
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return err
	}
	for _, inst := range snap.Instruments {
		s.instruments[inst.ID] = inst
	}
	for _, o := range snap.Orders {
		s.orders[o.ClientOrderID] = o
	}
	for _, p := range snap.Positions {
		s.positions[p.ID] = p
	}
	s.accounts = snap.AccountStates
	s.loaded = true
	return nil
}

func (s *FileStore) snapshotLocked() Snapshot {
	snap := Snapshot{AccountStates: append([]model.AccountState(nil), s.accounts...)}
	for _, inst := range s.instruments {
		snap.Instruments = append(snap.Instruments, inst)
	}
	sort.Slice(snap.Instruments, func(i, j int) bool { return snap.Instruments[i].ID.String() < snap.Instruments[j].ID.String() })
	for _, o := range s.orders {
		snap.Orders = append(snap.Orders, o)
	}
	sort.Slice(snap.Orders, func(i, j int) bool {
		if snap.Orders[i].TsInit != snap.Orders[j].TsInit {
			return snap.Orders[i].TsInit < snap.Orders[j].TsInit
		}
		return snap.Orders[i].ClientOrderID < snap.Orders[j].ClientOrderID
	})
	for _, p := range s.positions {
		snap.Positions = append(snap.Positions, p)
	}
	sort.Slice(snap.Positions, func(i, j int) bool {
		if snap.Positions[i].TsOpened != snap.Positions[j].TsOpened {
			return snap.Positions[i].TsOpened < snap.Positions[j].TsOpened
		}
		return snap.Positions[i].ID < snap.Positions[j].ID
	})
	return snap
}

func (s *FileStore) writeLocked() error {
	data, err := json.MarshalIndent(s.snapshotLocked(), "", "  ")
	if err != nil {
		return err
	}
	dir := filepath.Dir(s.path)
	if dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, s.path)
}

func (s *FileStore) update(fn func()) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.loadLocked(); err != nil {
		return err
	}
	fn()
	return s.writeLocked()
}

func (s *FileStore) SaveOrders(_ context.Context, orders []*order.Order) error {
	return s.update(func() {
		for _, o := range orders {
			s.orders[o.ClientOrderID] = o
		}
	})
}

func (s *FileStore) SavePositions(_ context.Context, positions []*state.Position) error {
	return s.update(func() {
		for _, p := range positions {
			s.positions[p.ID] = p
		}
	})
}

func (s *FileStore) SaveAccountStates(_ context.Context, states []model.AccountState) error {
	return s.update(func() {
		s.accounts = append(s.accounts, states...)
	})
}

func (s *FileStore) SaveInstruments(_ context.Context, instruments []model.Instrument) error {
	return s.update(func() {
		for _, inst := range instruments {
			s.instruments[inst.ID] = inst
		}
	})
}

func (s *FileStore) Close() error { return nil }

// ReadSnapshotFile loads a snapshot document without a store.
func ReadSnapshotFile(path string) (Snapshot, error) {
	return NewFileStore(path).Load(context.Background())
}

// WriteSnapshotFile writes snap as a store document.
func WriteSnapshotFile(path string, snap Snapshot) error {
	s := NewFileStore(path)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loaded = true
	for _, inst := range snap.Instruments {
		s.instruments[inst.ID] = inst
	}
	for _, o := range snap.Orders {
		s.orders[o.ClientOrderID] = o
	}
	for _, p := range snap.Positions {
		s.positions[p.ID] = p
	}
	s.accounts = snap.AccountStates
	return s.writeLocked()
}
