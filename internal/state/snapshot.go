package state

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/shopspring/decimal"

	"hftexec/internal/model"
)

// Snapshot captures net position quantities per instrument at a point in time.
type Snapshot struct {
	Timestamp int64           `json:"timestamp"`
	Positions []PositionEntry `json:"positions"`
}

// PositionEntry is the net signed quantity of one instrument.
type PositionEntry struct {
	InstrumentID model.InstrumentID `json:"instrumentId"`
	SignedQty    decimal.Decimal    `json:"signedQty"`
	Count        int                `json:"count"`
}

// TakeSnapshot nets open positions per instrument.
func TakeSnapshot(ts int64, positions []*Position) Snapshot {
	byInstrument := make(map[model.InstrumentID]*PositionEntry)
	for _, p := range positions {
		if p == nil || p.IsClosed() {
			continue
		}
		entry, ok := byInstrument[p.InstrumentID]
		if !ok {
			entry = &PositionEntry{InstrumentID: p.InstrumentID, SignedQty: decimal.Zero}
			byInstrument[p.InstrumentID] = entry
		}
		entry.SignedQty = entry.SignedQty.Add(p.SignedQty)
		entry.Count++
	}
	entries := make([]PositionEntry, 0, len(byInstrument))
	for _, entry := range byInstrument {
		entries = append(entries, *entry)
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].InstrumentID.String() < entries[j].InstrumentID.String()
	})
	return Snapshot{Timestamp: ts, Positions: entries}
}

// WriteSnapshot writes a snapshot to disk as JSON.
func WriteSnapshot(path string, snapshot Snapshot) error {
	data, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return err
	}
	dir := filepath.Dir(path)
	if dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return os.WriteFile(path, data, 0o644)
}

// ReadSnapshot loads a snapshot from disk.
func ReadSnapshot(path string) (Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Snapshot{}, err
	}
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return Snapshot{}, err
	}
	return snap, nil
}

// CompareSnapshots checks if two snapshots hold the same net quantities.
func CompareSnapshots(expected, actual Snapshot) error {
	if len(expected.Positions) != len(actual.Positions) {
		return fmt.Errorf("snapshot length mismatch: expected=%d actual=%d", len(expected.Positions), len(actual.Positions))
	}
	expectedMap := make(map[model.InstrumentID]decimal.Decimal, len(expected.Positions))
	for _, entry := range expected.Positions {
		expectedMap[entry.InstrumentID] = entry.SignedQty
	}
	for _, entry := range actual.Positions {
		want, ok := expectedMap[entry.InstrumentID]
		if !ok {
			return fmt.Errorf("snapshot missing instrument: %s", entry.InstrumentID)
		}
		if !want.Equal(entry.SignedQty) {
			return fmt.Errorf("snapshot qty mismatch: instrument=%s expected=%s actual=%s", entry.InstrumentID, want, entry.SignedQty)
		}
	}
	return nil
}
