package main

import (
	"context"
	"log" // Use standard log only for initial fatal errors before logger is set up
	"os/signal"
	"syscall"

	"mtPilotBot/config"
	"mtPilotBot/internal/adapters/binanceclient"
	"mtPilotBot/internal/adapters/logger"
	"mtPilotBot/internal/adapters/simulator"
	"mtPilotBot/internal/adapters/sqlite"
	"mtPilotBot/internal/adapters/tradelog"
	"mtPilotBot/internal/app"
	"mtPilotBot/internal/instrument"
	"mtPilotBot/internal/metrics"
	"mtPilotBot/internal/ports"
	"mtPilotBot/internal/risk"
	"mtPilotBot/internal/signal/indicators"
)

func main() {
	// 1. Load Configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("FATAL: Failed to load configuration: %v", err)
	}

	// 2. Initialize Logger
	appLogger := logger.NewStdLogger(cfg.LogLevel)
	appLogger.Info(context.Background(), "Logger initialized", map[string]interface{}{"level": cfg.LogLevel.String()})

	// 3. Load Instrument Table
	table := instrument.DefaultTable()
	if cfg.InstrumentsPath != "" {
		table, err = instrument.LoadTable(cfg.InstrumentsPath)
		if err != nil {
			log.Fatalf("FATAL: Failed to load instrument table: %v", err)
		}
	}
	spec, err := table.Lookup(cfg.Symbol)
	if err != nil {
		log.Fatalf("FATAL: Unknown symbol %s: %v", cfg.Symbol, err)
	}

	// 4. Initialize Repository (Database Adapter)
	repo, err := sqlite.NewRepository(sqlite.Config{
		DBPath: cfg.DBPath,
		Logger: appLogger,
	})
	if err != nil {
		log.Fatalf("FATAL: Failed to initialize database repository: %v", err)
	}
	defer func() {
		if err := repo.Close(); err != nil {
			appLogger.Error(context.Background(), err, "Error closing database repository")
		}
	}()

	// 5. Initialize Backend Adapters
	var (
		market   ports.MarketDataProvider
		executor ports.OrderExecutor
		account  ports.AccountProvider
	)
	switch cfg.Backend {
	case config.BackendBinance:
		client, err := binanceclient.New(binanceclient.Config{
			APIKey:     cfg.APIKey,
			SecretKey:  cfg.SecretKey,
			UseTestnet: cfg.IsTestnet,
			Logger:     appLogger,
		})
		if err != nil {
			log.Fatalf("FATAL: Failed to initialize Binance client: %v", err)
		}
		market, executor, account = client, client, client
	default:
		sim, err := simulator.New(simulator.Config{
			Logger:         appLogger,
			Instruments:    table,
			Seed:           cfg.SimSeed,
			InitialBalance: cfg.InitialBalance,
			BarInterval:    cfg.Mode.ScanInterval,
		})
		if err != nil {
			log.Fatalf("FATAL: Failed to initialize simulator: %v", err)
		}
		market, executor, account = sim, sim, sim
	}
	appLogger.Info(context.Background(), "Backend initialized", map[string]interface{}{"backend": cfg.Backend})

	// 6. Initialize Pipeline Components
	bank, err := indicators.NewBank(indicators.DefaultBankConfig())
	if err != nil {
		log.Fatalf("FATAL: Failed to initialize indicator bank: %v", err)
	}
	sizer, err := risk.NewSizer(risk.Config{
		Mode:            cfg.Mode,
		Lots:            cfg.Lots,
		MaxDailyLossPct: cfg.MaxDailyLossPct,
		MaxDrawdownPct:  cfg.MaxDrawdownPct,
		MaxTradesPerDay: cfg.MaxTradesPerDay,
	}, appLogger)
	if err != nil {
		log.Fatalf("FATAL: Failed to initialize risk sizer: %v", err)
	}
	tlog, err := tradelog.New(cfg.TradeLogDir)
	if err != nil {
		log.Fatalf("FATAL: Failed to initialize trade log: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 7. Metrics Listener (optional)
	var recorder *metrics.Recorder
	if cfg.MetricsAddr != "" {
		recorder = metrics.New()
		go func() {
			if err := metrics.Serve(ctx, cfg.MetricsAddr, appLogger); err != nil {
				appLogger.Error(context.Background(), err, "Metrics server failed")
			}
		}()
	}

	// 8. Initialize and Start the Engine
	engine, err := app.NewEngine(app.Config{
		Symbol:      cfg.Symbol,
		Mode:        cfg.Mode,
		Spec:        spec,
		CloseOnExit: cfg.CloseOnExit,
	}, app.Deps{
		Logger:    appLogger,
		Market:    market,
		Executor:  executor,
		Account:   account,
		PosRepo:   repo,
		TradeRepo: repo,
		Bank:      bank,
		Sizer:     sizer,
		TradeLog:  tlog,
		Metrics:   recorder,
	})
	if err != nil {
		log.Fatalf("FATAL: Failed to initialize trading engine: %v", err)
	}

	if err := engine.Start(ctx); err != nil {
		appLogger.Error(context.Background(), err, "Trading engine exited with error")
		log.Fatalf("FATAL: Trading engine exited with error: %v", err)
	}
	appLogger.Info(context.Background(), "Application finished gracefully.")
}
