package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"mtPilotBot/config"
	"mtPilotBot/internal/adapters/binanceclient"
	"mtPilotBot/internal/adapters/logger"
	"mtPilotBot/internal/utils"
)

func main() {
	symbol := flag.String("symbol", "BTCUSD", "symbol to fetch")
	interval := flag.String("interval", "1m", "kline interval")
	months := flag.Int("months", 3, "how many months back to fetch")
	outDir := flag.String("out", "data", "output directory")
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("FATAL: Failed to load configuration: %v", err)
	}
	appLogger := logger.NewStdLogger(cfg.LogLevel)

	client, err := binanceclient.New(binanceclient.Config{
		APIKey:     cfg.APIKey,
		SecretKey:  cfg.SecretKey,
		UseTestnet: cfg.IsTestnet,
		Logger:     appLogger,
		Interval:   *interval,
	})
	if err != nil {
		log.Fatalf("FATAL: Failed to initialize Binance client: %v", err)
	}

	if err := os.MkdirAll(*outDir, 0o755); err != nil {
		log.Fatalf("FATAL: Failed to create output directory: %v", err)
	}

	end := time.Now()
	start := end.AddDate(0, -*months, 0)

	fmt.Printf("Fetching klines for %s %s from %s to %s...\n", *symbol, *interval, start.Format("2006-01-02"), end.Format("2006-01-02"))
	klines, err := client.GetKlinesRange(context.Background(), *symbol, *interval, start, end)
	if err != nil {
		log.Fatalf("Error fetching klines: %v", err)
	}
	appLogger.Info(context.Background(), "Fetched klines", map[string]interface{}{"count": len(klines)})

	filename := fmt.Sprintf("%s/%s_%s_%s_to_%s.csv", *outDir, *symbol, *interval, start.Format("20060102"), end.Format("20060102"))
	if err := utils.WriteKlinesToCSV(klines, filename); err != nil {
		log.Fatalf("Error writing CSV: %v", err)
	}
	appLogger.Info(context.Background(), "Saved klines", map[string]interface{}{"filename": filename})
}
