package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	pyroscope "github.com/grafana/pyroscope-go"

	"main/internal/adapter"
	"main/internal/book"
	"main/internal/bus"
	"main/internal/engine"
	"main/internal/mdg"
	"main/internal/obs"
	"main/internal/oms"
	"main/internal/ops"
	"main/internal/perf"
	"main/internal/portfolio"
	"main/internal/recorder"
	"main/internal/report"
	"main/internal/risk"
	"main/internal/router"
	"main/internal/schema"
	"main/internal/state"
	"main/internal/strategy"
	"main/pkg/conn"
)

func main() {
	configPath := flag.String("config", "", "Path to JSON config")
	modeOverride := flag.String("mode", "", "Override run mode (sim|live)")
	replayDir := flag.String("replay-dir", "", "Override journal directory for sim replay")
	replaySpeed := flag.Float64("replay-speed", -1, "Playback speed (1=real-time, 0=no pacing, -1=use config)")
	journalDir := flag.String("journal-dir", "", "Override journal output directory for live mode")
	snapshotPath := flag.String("snapshot-path", "", "Portfolio snapshot output (empty=skip)")
	verifySnapshot := flag.String("verify-snapshot", "", "Snapshot to verify the run against (empty=skip)")
	reportDSN := flag.String("report-dsn", "", "Override PostgreSQL DSN for the results sink")
	runID := flag.String("run-id", "", "Run identifier for the results sink")
	feedSeed := flag.Int64("feed-seed", 0, "Synthetic feed seed for live mode (0=wall clock)")
	feedInterval := flag.Duration("feed-interval", time.Second, "Synthetic feed bar interval for live mode")
	feedBasePrice := flag.Float64("feed-base-price", 100, "Synthetic feed starting price for live mode")
	flag.Parse()

	if *configPath == "" {
		log.Fatal("missing required -config flag")
	}
	loaded, err := ops.Load(*configPath)
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}
	applyOverrides(&loaded, *modeOverride, *replayDir, *replaySpeed, *journalDir, *reportDSN, *runID)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if loaded.Profiling.Enabled {
		profiler, err := pyroscope.Start(pyroscope.Config{
			ApplicationName: "trading-engine",
			ServerAddress:   loaded.Profiling.ServerAddress,
			Tags: map[string]string{
				"mode": string(loaded.Mode),
			},
			Logger: emptyLogger{},
			ProfileTypes: []pyroscope.ProfileType{
				pyroscope.ProfileCPU,
				pyroscope.ProfileAllocObjects,
				pyroscope.ProfileAllocSpace,
				pyroscope.ProfileInuseObjects,
				pyroscope.ProfileInuseSpace,
			},
		})
		if err != nil {
			log.Fatalf("pyroscope start failed: %v", err)
		}
		defer func() {
			_ = profiler.Stop()
		}()
	}

	if err := run(ctx, loaded, *snapshotPath, *verifySnapshot, feedConfig(*feedSeed, *feedBasePrice, *feedInterval)); err != nil {
		log.Fatalf("%s run failed: %v", loaded.Mode, err)
	}
}

func applyOverrides(loaded *ops.Loaded, mode, replayDir string, replaySpeed float64, journalDir, reportDSN, runID string) {
	if mode != "" {
		loaded.Mode = ops.Mode(mode)
	}
	if replayDir != "" {
		loaded.Replay.Dir = replayDir
	}
	if replaySpeed >= 0 {
		loaded.Replay.Speed = replaySpeed
	}
	if journalDir != "" {
		loaded.Journal.Dir = journalDir
	}
	if reportDSN != "" {
		loaded.Report.DSN = reportDSN
	}
	if runID != "" {
		loaded.Report.RunID = runID
	}
}

func feedConfig(seed int64, basePrice float64, interval time.Duration) mdg.Config {
	return mdg.Config{Seed: seed, BasePrice: basePrice, Interval: interval}
}

func run(ctx context.Context, loaded ops.Loaded, snapshotPath, verifySnapshot string, feedCfg mdg.Config) error {
	startedAt := time.Now().UTC()

	marketBook := book.New()
	pf := portfolio.NewServer(loaded.Registry, loaded.Capital)
	orders := oms.NewManager(loaded.Registry, risk.NewEngine(loaded.Risk), pf, marketBook)
	tracker := perf.NewTracker()
	metrics := obs.NewMetrics()
	queue := bus.NewQueue(loaded.QueueSize)

	strat := strategy.NewSMACross(strategy.SMACrossConfig{
		StrategyID:   loaded.Strategy.StrategyID,
		InstrumentID: loaded.Strategy.InstrumentID,
		FastWindow:   loaded.Strategy.FastWindow,
		SlowWindow:   loaded.Strategy.SlowWindow,
		OrderQty:     loaded.Strategy.OrderQty,
	})

	// The router needs the dispatcher's fill path and the dispatcher needs
	// the router; the closure defers the lookup until the first fill.
	var dispatcher *engine.Dispatcher
	fillPath := func(fill schema.Fill) error { return dispatcher.ApplyFill(fill) }

	var (
		exec    router.Router
		journal engine.Journal
		loop    *adapter.Loopback
		writer  *recorder.Writer
	)
	switch loaded.Mode {
	case ops.ModeSim:
		exec = router.NewSim(loaded.Registry, marketBook, fillPath)
	case ops.ModeLive:
		loop = adapter.NewLoopback(loaded.Registry, marketBook, queue)
		exec = router.NewLive(loop)
		if loaded.Journal.Dir != "" {
			cfg := recorder.DefaultConfig(loaded.Journal.Dir)
			if loaded.Journal.FilePrefix != "" {
				cfg.FilePrefix = loaded.Journal.FilePrefix
			}
			if loaded.Journal.SegmentMaxBytes > 0 {
				cfg.SegmentMaxBytes = loaded.Journal.SegmentMaxBytes
			}
			cfg.FlushInterval = time.Duration(loaded.Journal.FlushIntervalMs) * time.Millisecond
			cfg.SyncInterval = time.Duration(loaded.Journal.SyncIntervalMs) * time.Millisecond

			w, err := recorder.NewWriter(cfg)
			if err != nil {
				return err
			}
			if err := w.Start(ctx); err != nil {
				return err
			}
			writer = w
			journal = w
		}
	default:
		return fmt.Errorf("unknown mode: %s", loaded.Mode)
	}

	dispatcher = engine.New(engine.Config{
		Registry:   loaded.Registry,
		Book:       marketBook,
		Orders:     orders,
		Router:     exec,
		Portfolio:  pf,
		Perf:       tracker,
		Strategies: []strategy.Strategy{strat},
		Journal:    journal,
		Metrics:    metrics,
	})

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		dispatcher.Run(ctx, queue)
	}()

	switch loaded.Mode {
	case ops.ModeSim:
		pb, err := recorder.NewPlayback(recorder.PlaybackConfig{
			Dir:        loaded.Replay.Dir,
			FilePrefix: loaded.Replay.FilePrefix,
			Speed:      loaded.Replay.Speed,
		})
		if err != nil {
			return err
		}
		if err := pb.Feed(ctx, queue); err != nil {
			return err
		}
	case ops.ModeLive:
		feed := mdg.NewFeed(feedCfg, loaded.Registry, queue)
		wg.Add(1)
		go func() {
			defer wg.Done()
			feed.Run(ctx)
		}()
		<-ctx.Done()
		queue.Close()
	}

	wg.Wait()
	if writer != nil {
		if err := writer.Close(); err != nil {
			return err
		}
	}

	return finish(loaded, dispatcher, tracker, metrics, snapshotPath, verifySnapshot, startedAt)
}

func finish(loaded ops.Loaded, dispatcher *engine.Dispatcher, tracker *perf.Tracker, metrics *obs.Metrics, snapshotPath, verifySnapshot string, startedAt time.Time) error {
	final := dispatcher.Snapshot()
	stats := tracker.Statistics(loaded.RiskFreeRate)
	obsSnap := metrics.Snapshot()

	log.Printf("run complete: samples=%d trades=%d equity=%.2f net=%.2f return=%.4f drawdown=%.4f sharpe=%.4f sortino=%.4f",
		stats.Samples, stats.Trades, stats.EndEquity, stats.NetProfit, stats.TotalReturn, stats.MaxDrawdown, stats.Sharpe, stats.Sortino)
	log.Printf("metrics: events=%v rejections=%v out_of_order=%d stale_fills=%d invalid_fills=%d queue_drops=%d",
		obsSnap.EventCounts, obsSnap.RejectionCounts, obsSnap.OutOfOrderDrops, obsSnap.StaleFills, obsSnap.InvalidFills, obsSnap.QueueDrops)

	if snapshotPath != "" {
		if err := state.Write(snapshotPath, state.FromPortfolio(final)); err != nil {
			return err
		}
		log.Printf("snapshot written: %s", snapshotPath)
	}
	if verifySnapshot != "" {
		expected, err := state.Read(verifySnapshot)
		if err != nil {
			return err
		}
		if err := state.Compare(expected, state.FromPortfolio(final)); err != nil {
			return err
		}
		log.Printf("snapshot verified: positions=%d", len(final.Positions))
	}

	if loaded.Report.DSN != "" {
		client, err := conn.New(conn.Option{DSN: loaded.Report.DSN})
		if err != nil {
			return err
		}
		defer client.Close()
		sink, err := report.NewSink(client)
		if err != nil {
			return err
		}
		id := loaded.Report.RunID
		if id == "" {
			id = startedAt.Format("20060102-150405")
		}
		err = sink.SaveRun(report.Run{
			ID:          id,
			Mode:        string(loaded.Mode),
			StartedAt:   startedAt,
			FinishedAt:  time.Now().UTC(),
			Capital:     loaded.Capital,
			FinalEquity: final.Equity,
		}, tracker.Curve(), tracker.Trades(), final.Positions, stats)
		if err != nil {
			return err
		}
		log.Printf("results saved: run_id=%s", id)
	}
	return nil
}

type emptyLogger struct{}

func (emptyLogger) Infof(_ string, _ ...interface{})  {}
func (emptyLogger) Debugf(_ string, _ ...interface{}) {}
func (emptyLogger) Errorf(_ string, _ ...interface{}) {}
