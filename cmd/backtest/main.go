package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"sort"

	"mtPilotBot/config"
	"mtPilotBot/internal/adapters/logger"
	"mtPilotBot/internal/backtest"
	"mtPilotBot/internal/instrument"
	"mtPilotBot/internal/risk"
	"mtPilotBot/internal/signal/indicators"
	"mtPilotBot/internal/utils"
)

func main() {
	dataFile := flag.String("data", "", "CSV kline file (required)")
	flag.Parse()
	if *dataFile == "" {
		log.Fatal("FATAL: -data flag is required")
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("FATAL: Failed to load configuration: %v", err)
	}
	appLogger := logger.NewStdLogger(cfg.LogLevel)
	ctx := context.Background()

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

	klines, err := utils.ReadKlinesFromCSV(*dataFile)
	if err != nil {
		log.Fatalf("FATAL: Failed to load klines: %v", err)
	}
	appLogger.Info(ctx, "Loaded klines", map[string]interface{}{"file": *dataFile, "count": len(klines)})

	bank, err := indicators.NewBank(indicators.DefaultBankConfig())
	if err != nil {
		log.Fatalf("FATAL: Failed to initialize indicator bank: %v", err)
	}

	result, err := backtest.Run(ctx, backtest.Config{
		Symbol:         cfg.Symbol,
		Mode:           cfg.Mode,
		Spec:           spec,
		InitialBalance: cfg.InitialBalance,
		Lots:           cfg.Lots,
		RiskConfig: risk.Config{
			Mode:            cfg.Mode,
			Lots:            cfg.Lots,
			MaxDailyLossPct: cfg.MaxDailyLossPct,
			MaxDrawdownPct:  cfg.MaxDrawdownPct,
			MaxTradesPerDay: cfg.MaxTradesPerDay,
		},
		Logger: appLogger,
	}, bank, klines)
	if err != nil {
		log.Fatalf("FATAL: Backtest failed: %v", err)
	}

	r := result.Report
	fmt.Printf("\n=== Backtest Report: %s (%s) ===\n", cfg.Symbol, cfg.Mode.Name)
	fmt.Printf("Bars tested:       %d\n", result.BarsTested)
	fmt.Printf("Total trades:      %d (wins %d / losses %d)\n", r.TotalTrades, r.WinningTrades, r.LosingTrades)
	fmt.Printf("Win rate:          %.2f%%\n", r.WinRate*100)
	fmt.Printf("Total profit:      %.2f\n", r.TotalProfit)
	fmt.Printf("Profit factor:     %.2f\n", r.ProfitFactor)
	fmt.Printf("Max drawdown:      %.2f%%\n", r.MaxDrawdown*100)
	fmt.Printf("Sharpe ratio:      %.2f\n", r.SharpeRatio)
	fmt.Printf("Final balance:     %.2f (ROI %.2f%%)\n", r.FinalBalance, r.ROI*100)

	if len(result.Rejections) > 0 {
		fmt.Println("\nRisk rejections:")
		reasons := make([]string, 0, len(result.Rejections))
		for reason := range result.Rejections {
			reasons = append(reasons, reason)
		}
		sort.Strings(reasons)
		for _, reason := range reasons {
			fmt.Printf("  %-24s %d\n", reason, result.Rejections[reason])
		}
	}
}
