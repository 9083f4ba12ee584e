// Package state persists end-of-run portfolio snapshots as JSON and
// verifies a replayed run against the snapshot its live run wrote. A
// parity failure means the replay diverged from what actually happened.
package state

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"

	"main/internal/portfolio"
	"main/internal/schema"
)

// equalityTolerance absorbs float formatting noise in persisted values.
const equalityTolerance = 1e-9

// Snapshot is the persisted form of a portfolio snapshot.
type Snapshot struct {
	Timestamp int64           `json:"timestamp"`
	Cash      float64         `json:"cash"`
	Equity    float64         `json:"equity"`
	Positions []PositionEntry `json:"positions"`
}

// PositionEntry is one persisted position.
type PositionEntry struct {
	InstrumentID uint32          `json:"instrumentId"`
	Ticker       string          `json:"ticker"`
	Qty          schema.Quantity `json:"qty"`
	AvgPrice     schema.Price    `json:"avgPrice"`
	Realized     float64         `json:"realized"`
}

// FromPortfolio converts a live portfolio snapshot to its persisted form.
func FromPortfolio(snap portfolio.Snapshot) Snapshot {
	out := Snapshot{
		Timestamp: snap.Timestamp,
		Cash:      snap.Cash,
		Equity:    snap.Equity,
		Positions: make([]PositionEntry, 0, len(snap.Positions)),
	}
	for _, pos := range snap.Positions {
		out.Positions = append(out.Positions, PositionEntry{
			InstrumentID: uint32(pos.InstrumentID),
			Ticker:       pos.Ticker,
			Qty:          pos.Qty,
			AvgPrice:     pos.AvgPrice,
			Realized:     pos.Realized,
		})
	}
	return out
}

// Write persists a snapshot to disk as indented JSON.
func Write(path string, snapshot Snapshot) error {
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

// Read loads a snapshot from disk.
func Read(path string) (Snapshot, error) {
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

// Compare checks replay output against the recorded snapshot. Cash,
// equity and every position must match.
func Compare(expected, actual Snapshot) error {
	if !approxEqual(expected.Cash, actual.Cash) {
		return fmt.Errorf("cash mismatch: expected=%v actual=%v", expected.Cash, actual.Cash)
	}
	if !approxEqual(expected.Equity, actual.Equity) {
		return fmt.Errorf("equity mismatch: expected=%v actual=%v", expected.Equity, actual.Equity)
	}
	if len(expected.Positions) != len(actual.Positions) {
		return fmt.Errorf("position count mismatch: expected=%d actual=%d", len(expected.Positions), len(actual.Positions))
	}

	expectedByID := make(map[uint32]PositionEntry, len(expected.Positions))
	for _, entry := range expected.Positions {
		expectedByID[entry.InstrumentID] = entry
	}
	for _, entry := range actual.Positions {
		want, ok := expectedByID[entry.InstrumentID]
		if !ok {
			return fmt.Errorf("unexpected position for instrument %d", entry.InstrumentID)
		}
		if !approxEqual(float64(want.Qty), float64(entry.Qty)) {
			return fmt.Errorf("qty mismatch for instrument %d: expected=%v actual=%v", entry.InstrumentID, want.Qty, entry.Qty)
		}
		if !approxEqual(float64(want.AvgPrice), float64(entry.AvgPrice)) {
			return fmt.Errorf("avg price mismatch for instrument %d: expected=%v actual=%v", entry.InstrumentID, want.AvgPrice, entry.AvgPrice)
		}
		if !approxEqual(want.Realized, entry.Realized) {
			return fmt.Errorf("realized mismatch for instrument %d: expected=%v actual=%v", entry.InstrumentID, want.Realized, entry.Realized)
		}
	}
	return nil
}

func approxEqual(a, b float64) bool {
	return math.Abs(a-b) <= equalityTolerance
}
