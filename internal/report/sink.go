// Package report persists run results to PostgreSQL: the equity curve,
// the trade log, closing positions and summary statistics, keyed by run.
package report

import (
	"time"

	"github.com/yanun0323/errors"
	"gorm.io/gorm"

	"main/internal/perf"
	"main/internal/portfolio"
	"main/internal/schema"
	"main/pkg/conn"
)

// Run is the top-level record for one engine run.
type Run struct {
	ID          string `gorm:"primaryKey;size:64"`
	Mode        string `gorm:"size:8"`
	StartedAt   time.Time
	FinishedAt  time.Time
	Capital     float64
	FinalEquity float64
}

// EquityPoint is one sample of the equity curve.
type EquityPoint struct {
	ID     uint   `gorm:"primaryKey;autoIncrement"`
	RunID  string `gorm:"index;size:64"`
	Ts     int64
	Equity float64
}

// Trade is one executed fill.
type Trade struct {
	ID           uint   `gorm:"primaryKey;autoIncrement"`
	RunID        string `gorm:"index;size:64"`
	OrderID      uint64
	InstrumentID uint32
	Side         uint16
	Price        float64
	Qty          float64
	Fee          float64
	TsEvent      int64
}

// Position is one closing position of the run.
type Position struct {
	ID           uint   `gorm:"primaryKey;autoIncrement"`
	RunID        string `gorm:"index;size:64"`
	InstrumentID uint32
	Ticker       string `gorm:"size:32"`
	Qty          float64
	AvgPrice     float64
	MarketPrice  float64
	MarketValue  float64
	Unrealized   float64
	Realized     float64
}

// Summary is the run's statistics row.
type Summary struct {
	RunID        string `gorm:"primaryKey;size:64"`
	Samples      int
	Trades       int
	NetProfit    float64
	TotalReturn  float64
	StdDev       float64
	AnnualStdDev float64
	MaxDrawdown  float64
	Sharpe       float64
	Sortino      float64
}

// Sink writes run results through a gorm connection.
type Sink struct {
	db *gorm.DB
}

// NewSink creates a sink over an open connection and migrates the schema.
func NewSink(client *conn.Client) (*Sink, error) {
	db := client.DB()
	if err := db.AutoMigrate(&Run{}, &EquityPoint{}, &Trade{}, &Position{}, &Summary{}); err != nil {
		return nil, errors.Wrap(err, "migrate report schema")
	}
	return &Sink{db: db}, nil
}

// SaveRun persists the complete result set in one transaction.
func (s *Sink) SaveRun(run Run, curve []perf.Sample, trades []schema.Fill, positions []portfolio.PositionSnapshot, stats perf.Statistics) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&run).Error; err != nil {
			return errors.Wrap(err, "save run").With("run_id", run.ID)
		}

		if len(curve) > 0 {
			points := make([]EquityPoint, 0, len(curve))
			for _, sample := range curve {
				points = append(points, EquityPoint{RunID: run.ID, Ts: sample.Ts, Equity: sample.Equity})
			}
			if err := tx.CreateInBatches(points, 500).Error; err != nil {
				return errors.Wrap(err, "save equity curve").With("run_id", run.ID)
			}
		}

		if len(trades) > 0 {
			rows := make([]Trade, 0, len(trades))
			for _, fill := range trades {
				rows = append(rows, Trade{
					RunID:        run.ID,
					OrderID:      fill.OrderID,
					InstrumentID: uint32(fill.InstrumentID),
					Side:         uint16(fill.Side),
					Price:        float64(fill.Price),
					Qty:          float64(fill.Qty),
					Fee:          fill.Fee,
					TsEvent:      fill.TsEvent,
				})
			}
			if err := tx.CreateInBatches(rows, 500).Error; err != nil {
				return errors.Wrap(err, "save trades").With("run_id", run.ID)
			}
		}

		if len(positions) > 0 {
			rows := make([]Position, 0, len(positions))
			for _, pos := range positions {
				rows = append(rows, Position{
					RunID:        run.ID,
					InstrumentID: uint32(pos.InstrumentID),
					Ticker:       pos.Ticker,
					Qty:          float64(pos.Qty),
					AvgPrice:     float64(pos.AvgPrice),
					MarketPrice:  float64(pos.MarketPrice),
					MarketValue:  pos.MarketValue,
					Unrealized:   pos.Unrealized,
					Realized:     pos.Realized,
				})
			}
			if err := tx.Create(rows).Error; err != nil {
				return errors.Wrap(err, "save positions").With("run_id", run.ID)
			}
		}

		summary := Summary{
			RunID:        run.ID,
			Samples:      stats.Samples,
			Trades:       stats.Trades,
			NetProfit:    stats.NetProfit,
			TotalReturn:  stats.TotalReturn,
			StdDev:       stats.StdDev,
			AnnualStdDev: stats.AnnualStdDev,
			MaxDrawdown:  stats.MaxDrawdown,
			Sharpe:       stats.Sharpe,
			Sortino:      stats.Sortino,
		}
		if err := tx.Create(&summary).Error; err != nil {
			return errors.Wrap(err, "save summary").With("run_id", run.ID)
		}
		return nil
	})
}
