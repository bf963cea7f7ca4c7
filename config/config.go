package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"mtPilotBot/internal/adapters/logger"
	"mtPilotBot/internal/domain"
)

// Backend selects the market-data/broker implementation.
type Backend string

const (
	BackendSimulator Backend = "simulator"
	BackendBinance   Backend = "binance"
)

// Config holds all application configuration.
type Config struct {
	// Trading parameters
	Symbol      string
	Lots        float64
	Mode        domain.TradingMode
	CloseOnExit bool

	// Risk limits
	MaxDailyLossPct float64
	MaxDrawdownPct  float64
	MaxTradesPerDay int

	// Backend selection
	Backend Backend

	// Binance API (only required when Backend is binance)
	APIKey    string
	SecretKey string
	IsTestnet bool

	// Simulator
	SimSeed        int64
	InitialBalance float64

	// Storage and logging
	DBPath          string
	LogLevel        logger.LogLevel
	TradeLogDir     string
	InstrumentsPath string // optional YAML overriding the built-in instrument table

	// Metrics
	MetricsAddr string // empty disables the metrics listener
}

// LoadConfig loads configuration from environment variables (.env file).
func LoadConfig() (*Config, error) {
	// Load .env file, but don't fail if it doesn't exist (allow pure env vars)
	_ = godotenv.Load()

	cfg := &Config{}
	var err error
	var errs []string

	cfg.Symbol = getEnv("SYMBOL", "XAUUSD")
	if cfg.Symbol == "" {
		errs = append(errs, "SYMBOL must be set")
	}

	cfg.Lots, err = getEnvAsFloatRequired("LOTS", 0.1)
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid LOTS: %v", err))
	} else if cfg.Lots <= 0 {
		errs = append(errs, "LOTS must be positive")
	}

	modeName := domain.ModeName(strings.ToUpper(getEnv("MODE", string(domain.ModeBalanced))))
	cfg.Mode, err = domain.ModeByName(modeName)
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid MODE: %v", err))
	}

	cfg.CloseOnExit = getEnvAsBool("CLOSE_ON_EXIT", false)

	cfg.MaxDailyLossPct, err = getEnvAsFloatRequired("MAX_DAILY_LOSS_PCT", 0.05)
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid MAX_DAILY_LOSS_PCT: %v", err))
	} else if cfg.MaxDailyLossPct <= 0 || cfg.MaxDailyLossPct >= 1.0 {
		errs = append(errs, "MAX_DAILY_LOSS_PCT must be between 0.0 and 1.0 (exclusive)")
	}

	cfg.MaxDrawdownPct, err = getEnvAsFloatRequired("MAX_DRAWDOWN_PCT", 0.03)
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid MAX_DRAWDOWN_PCT: %v", err))
	} else if cfg.MaxDrawdownPct <= 0 || cfg.MaxDrawdownPct >= 1.0 {
		errs = append(errs, "MAX_DRAWDOWN_PCT must be between 0.0 and 1.0 (exclusive)")
	}

	cfg.MaxTradesPerDay, err = getEnvAsIntRequired("MAX_TRADES_PER_DAY", 10)
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid MAX_TRADES_PER_DAY: %v", err))
	} else if cfg.MaxTradesPerDay <= 0 {
		errs = append(errs, "MAX_TRADES_PER_DAY must be positive")
	}

	cfg.Backend = Backend(strings.ToLower(getEnv("BACKEND", string(BackendSimulator))))
	switch cfg.Backend {
	case BackendSimulator, BackendBinance:
	default:
		errs = append(errs, fmt.Sprintf("invalid BACKEND %q (must be %q or %q)", cfg.Backend, BackendSimulator, BackendBinance))
	}

	cfg.APIKey = getEnv("BINANCE_API_KEY", "")
	cfg.SecretKey = getEnv("BINANCE_API_SECRET", "")
	cfg.IsTestnet = getEnvAsBool("IS_TESTNET", true) // Default to testnet for safety
	if cfg.Backend == BackendBinance {
		if cfg.APIKey == "" {
			errs = append(errs, "BINANCE_API_KEY must be set for the binance backend")
		}
		if cfg.SecretKey == "" {
			errs = append(errs, "BINANCE_API_SECRET must be set for the binance backend")
		}
	}

	simSeed, err := getEnvAsIntRequired("SIM_SEED", 1)
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid SIM_SEED: %v", err))
	}
	cfg.SimSeed = int64(simSeed)

	cfg.InitialBalance, err = getEnvAsFloatRequired("INITIAL_BALANCE", 10000.0)
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid INITIAL_BALANCE: %v", err))
	} else if cfg.InitialBalance <= 0 {
		errs = append(errs, "INITIAL_BALANCE must be positive")
	}

	cfg.DBPath = getEnv("DB_PATH", "./data/trading_bot.db")
	if cfg.DBPath == "" {
		errs = append(errs, "DB_PATH must be set")
	}

	cfg.LogLevel = logger.ParseLevel(getEnv("LOG_LEVEL", "INFO"))
	cfg.TradeLogDir = getEnv("TRADE_LOG_DIR", "./logs")
	cfg.InstrumentsPath = getEnv("INSTRUMENTS_PATH", "")
	cfg.MetricsAddr = getEnv("METRICS_ADDR", "")

	if len(errs) > 0 {
		return nil, fmt.Errorf("configuration validation failed: %s", strings.Join(errs, "; "))
	}

	return cfg, nil
}

// ScanInterval returns the mode's scan cadence, useful for wiring without
// exposing the whole mode.
func (c *Config) ScanInterval() time.Duration {
	return c.Mode.ScanInterval
}

// --- Env Var Helpers ---

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvAsIntRequired(key string, defaultValue int) (int, error) {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue, nil
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return 0, fmt.Errorf("invalid integer value '%s' for key %s: %w", valueStr, key, err)
	}
	return value, nil
}

func getEnvAsFloatRequired(key string, defaultValue float64) (float64, error) {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue, nil
	}
	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid float value '%s' for key %s: %w", valueStr, key, err)
	}
	return value, nil
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}
