// Package ops loads the engine's JSON configuration and resolves it into
// ready-to-use components. Loading fails fast: a config that parses but
// does not validate never produces a partially built engine.
package ops

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"github.com/yanun0323/decimal"

	"main/internal/risk"
	"main/internal/schema"
)

// Mode selects the execution path.
type Mode string

const (
	ModeSim  Mode = "sim"
	ModeLive Mode = "live"
)

// FileConfig mirrors the JSON config layout. Monetary fields are decimal
// strings so config files never carry binary float artifacts.
type FileConfig struct {
	Mode         Mode               `json:"mode"`
	Capital      decimal.Decimal    `json:"capital"`
	RiskFreeRate decimal.Decimal    `json:"riskFreeRate"`
	QueueSize    int                `json:"queueSize"`
	Instruments  []InstrumentConfig `json:"instruments"`
	Risk         risk.Config        `json:"risk"`
	Strategy     StrategyConfig     `json:"strategy"`
	Journal      JournalConfig      `json:"journal"`
	Replay       ReplayConfig       `json:"replay"`
	Report       ReportConfig       `json:"report"`
	Profiling    ProfilingConfig    `json:"profiling"`
}

// InstrumentConfig describes one instrument entry.
type InstrumentConfig struct {
	Ticker              string          `json:"ticker"`
	SecurityType        string          `json:"securityType"`
	Currency            string          `json:"currency"`
	Exchange            string          `json:"exchange"`
	QuantityMultiplier  decimal.Decimal `json:"quantityMultiplier"`
	PriceMultiplier     decimal.Decimal `json:"priceMultiplier"`
	TickSize            decimal.Decimal `json:"tickSize"`
	MinPriceFluctuation decimal.Decimal `json:"minPriceFluctuation"`
	InitialMargin       decimal.Decimal `json:"initialMargin"`
	MaintenanceMargin   decimal.Decimal `json:"maintenanceMargin"`
	Fees                decimal.Decimal `json:"fees"`
	SlippageFactor      decimal.Decimal `json:"slippageFactor"`
	Calendar            string          `json:"calendar"`
	Continuous          bool            `json:"continuous"`
	ContractMonth       string          `json:"contractMonth"`
}

// StrategyConfig describes the strategy to run.
type StrategyConfig struct {
	StrategyID uint32 `json:"strategyId"`
	Ticker     string `json:"ticker"`
	FastWindow int    `json:"fastWindow"`
	SlowWindow int    `json:"slowWindow"`
	OrderQty   int64  `json:"orderQty"`
}

// JournalConfig controls event journaling. An empty Dir disables it.
type JournalConfig struct {
	Dir             string `json:"dir"`
	FilePrefix      string `json:"filePrefix"`
	SegmentMaxBytes int64  `json:"segmentMaxBytes"`
	FlushIntervalMs int64  `json:"flushIntervalMs"`
	SyncIntervalMs  int64  `json:"syncIntervalMs"`
}

// ReplayConfig controls journal replay in sim mode.
type ReplayConfig struct {
	Dir        string  `json:"dir"`
	FilePrefix string  `json:"filePrefix"`
	Speed      float64 `json:"speed"`
}

// ReportConfig controls the results sink. An empty DSN disables it.
type ReportConfig struct {
	DSN   string `json:"dsn"`
	RunID string `json:"runId"`
}

// ProfilingConfig controls continuous profiling.
type ProfilingConfig struct {
	Enabled       bool   `json:"enabled"`
	ServerAddress string `json:"serverAddress"`
}

// Loaded is the resolved configuration ready for use.
type Loaded struct {
	Mode         Mode
	Capital      float64
	RiskFreeRate float64
	QueueSize    int
	Registry     *schema.Registry
	Risk         risk.Config
	Strategy     ResolvedStrategy
	Journal      JournalConfig
	Replay       ReplayConfig
	Report       ReportConfig
	Profiling    ProfilingConfig
}

// ResolvedStrategy is the strategy config with its ticker resolved.
type ResolvedStrategy struct {
	StrategyID   uint32
	InstrumentID schema.InstrumentID
	FastWindow   int
	SlowWindow   int
	OrderQty     schema.Quantity
}

// Load reads a JSON config file and resolves it.
func Load(path string) (Loaded, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Loaded{}, err
	}
	return Parse(data)
}

// Parse resolves raw JSON config bytes.
func Parse(data []byte) (Loaded, error) {
	var cfg FileConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return Loaded{}, err
	}

	switch cfg.Mode {
	case ModeSim, ModeLive:
	case "":
		cfg.Mode = ModeSim
	default:
		return Loaded{}, fmt.Errorf("unknown mode: %s", cfg.Mode)
	}

	capital, err := toFloat(cfg.Capital)
	if err != nil {
		return Loaded{}, fmt.Errorf("capital: %w", err)
	}
	if capital <= 0 {
		return Loaded{}, fmt.Errorf("capital must be > 0")
	}
	riskFree, err := toFloat(cfg.RiskFreeRate)
	if err != nil {
		return Loaded{}, fmt.Errorf("riskFreeRate: %w", err)
	}

	registry, err := buildRegistry(cfg.Instruments)
	if err != nil {
		return Loaded{}, err
	}
	strategyCfg, err := resolveStrategy(cfg.Strategy, registry)
	if err != nil {
		return Loaded{}, err
	}

	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 65536
	}

	return Loaded{
		Mode:         cfg.Mode,
		Capital:      capital,
		RiskFreeRate: riskFree,
		QueueSize:    cfg.QueueSize,
		Registry:     registry,
		Risk:         cfg.Risk,
		Strategy:     strategyCfg,
		Journal:      cfg.Journal,
		Replay:       cfg.Replay,
		Report:       cfg.Report,
		Profiling:    cfg.Profiling,
	}, nil
}

func buildRegistry(instruments []InstrumentConfig) (*schema.Registry, error) {
	if len(instruments) == 0 {
		return nil, fmt.Errorf("no instruments configured")
	}
	reg := schema.NewRegistry()
	for _, ic := range instruments {
		inst, err := resolveInstrument(ic)
		if err != nil {
			return nil, err
		}
		if _, err := reg.AddInstrument(inst); err != nil {
			return nil, err
		}
	}
	return reg, nil
}

func resolveInstrument(ic InstrumentConfig) (schema.Instrument, error) {
	inst := schema.Instrument{
		Ticker:        ic.Ticker,
		Currency:      ic.Currency,
		Exchange:      ic.Exchange,
		Calendar:      ic.Calendar,
		Continuous:    ic.Continuous,
		ContractMonth: ic.ContractMonth,
	}
	switch ic.SecurityType {
	case "equity":
		inst.SecurityType = schema.SecurityEquity
	case "future":
		inst.SecurityType = schema.SecurityFuture
	default:
		return schema.Instrument{}, fmt.Errorf("instrument %s: unknown security type %q", ic.Ticker, ic.SecurityType)
	}

	fields := []struct {
		dst  *float64
		src  decimal.Decimal
		name string
	}{
		{&inst.QuantityMultiplier, ic.QuantityMultiplier, "quantityMultiplier"},
		{&inst.PriceMultiplier, ic.PriceMultiplier, "priceMultiplier"},
		{&inst.TickSize, ic.TickSize, "tickSize"},
		{&inst.MinPriceFluctuation, ic.MinPriceFluctuation, "minPriceFluctuation"},
		{&inst.InitialMargin, ic.InitialMargin, "initialMargin"},
		{&inst.MaintenanceMargin, ic.MaintenanceMargin, "maintenanceMargin"},
		{&inst.Fees, ic.Fees, "fees"},
		{&inst.SlippageFactor, ic.SlippageFactor, "slippageFactor"},
	}
	for _, f := range fields {
		v, err := toFloat(f.src)
		if err != nil {
			return schema.Instrument{}, fmt.Errorf("instrument %s: %s: %w", ic.Ticker, f.name, err)
		}
		*f.dst = v
	}
	return inst, nil
}

func resolveStrategy(cfg StrategyConfig, reg *schema.Registry) (ResolvedStrategy, error) {
	if cfg.Ticker == "" {
		return ResolvedStrategy{}, fmt.Errorf("strategy ticker is empty")
	}
	id, ok := reg.IDByTicker(cfg.Ticker)
	if !ok {
		return ResolvedStrategy{}, fmt.Errorf("strategy ticker not found: %s", cfg.Ticker)
	}
	if cfg.StrategyID == 0 {
		cfg.StrategyID = 1
	}
	if cfg.OrderQty < 0 {
		return ResolvedStrategy{}, fmt.Errorf("strategy orderQty must be >= 0")
	}
	return ResolvedStrategy{
		StrategyID:   cfg.StrategyID,
		InstrumentID: id,
		FastWindow:   cfg.FastWindow,
		SlowWindow:   cfg.SlowWindow,
		OrderQty:     schema.Quantity(cfg.OrderQty),
	}, nil
}

func toFloat(d decimal.Decimal) (float64, error) {
	s := d.String()
	if s == "" {
		return 0, nil
	}
	return strconv.ParseFloat(s, 64)
}
