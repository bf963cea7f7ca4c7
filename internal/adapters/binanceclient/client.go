// Package binanceclient is the live backend adapter. It implements
// ports.MarketDataProvider, ports.OrderExecutor and ports.AccountProvider
// against Binance USD-M futures, mapping the pipeline's symbols (e.g.
// BTCUSD) to exchange symbols (BTCUSDT). Transient submission failures are
// retried here with exponential backoff, never in the core.
package binanceclient

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"mtPilotBot/internal/domain"
	"mtPilotBot/internal/ports"

	"github.com/adshao/go-binance/v2/common"
	"github.com/adshao/go-binance/v2/futures"
	"github.com/jpillora/backoff"
)

const (
	baseURLProduction = "https://fapi.binance.com"
	baseURLTestnet    = "https://testnet.binancefuture.com"
)

// Client adapts the go-binance futures client to the bot's ports.
type Client struct {
	futuresClient *futures.Client
	logger        ports.Logger
	interval      string
	quoteAsset    string
	maxRetries    int
	minBackoff    time.Duration
	maxBackoff    time.Duration
}

// Config holds configuration specific to the Binance adapter.
type Config struct {
	APIKey     string
	SecretKey  string
	UseTestnet bool
	Logger     ports.Logger
	Interval   string        // kline interval for market data (default "1m")
	QuoteAsset string        // balance asset (default "USDT")
	MaxRetries int           // order submission retries (default 3)
	MinBackoff time.Duration // default 500ms
	MaxBackoff time.Duration // default 5s
}

// New creates a new Binance adapter.
func New(cfg Config) (*Client, error) {
	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger is required for Binance client")
	}
	if cfg.APIKey == "" || cfg.SecretKey == "" {
		cfg.Logger.Warn(context.Background(), "APIKey or SecretKey is empty. Client will only work for public endpoints.")
	}

	client := futures.NewClient(cfg.APIKey, cfg.SecretKey)
	if cfg.UseTestnet {
		client.BaseURL = baseURLTestnet
	} else {
		client.BaseURL = baseURLProduction
	}
	cfg.Logger.Info(context.Background(), "Binance client configured", map[string]interface{}{
		"baseURL": client.BaseURL,
		"testnet": cfg.UseTestnet,
	})

	interval := cfg.Interval
	if interval == "" {
		interval = "1m"
	}
	quoteAsset := cfg.QuoteAsset
	if quoteAsset == "" {
		quoteAsset = "USDT"
	}
	maxRetries := cfg.MaxRetries
	if maxRetries <= 0 {
		maxRetries = 3
	}
	minBackoff := cfg.MinBackoff
	if minBackoff <= 0 {
		minBackoff = 500 * time.Millisecond
	}
	maxBackoff := cfg.MaxBackoff
	if maxBackoff <= 0 {
		maxBackoff = 5 * time.Second
	}

	return &Client{
		futuresClient: client,
		logger:        cfg.Logger,
		interval:      interval,
		quoteAsset:    quoteAsset,
		maxRetries:    maxRetries,
		minBackoff:    minBackoff,
		maxBackoff:    maxBackoff,
	}, nil
}

// exchangeSymbol maps a pipeline symbol to the exchange's naming.
func (c *Client) exchangeSymbol(symbol string) string {
	if strings.HasSuffix(symbol, "USD") && !strings.HasSuffix(symbol, "USDT") {
		return symbol + "T"
	}
	return symbol
}

// handleError translates common Binance API errors into standardized ports errors.
func (c *Client) handleError(ctx context.Context, err error, operation string) error {
	if err == nil {
		return nil
	}

	fields := map[string]interface{}{"operation": operation, "originalError": err.Error()}

	var apiErr *common.APIError
	if errors.As(err, &apiErr) {
		fields["apiErrorCode"] = apiErr.Code
		fields["apiErrorMessage"] = apiErr.Message

		var mappedErr error
		switch apiErr.Code {
		case -1003:
			mappedErr = ports.ErrRateLimited
		case -1021:
			mappedErr = ports.ErrTimeout
		case -1022:
			mappedErr = ports.ErrAuthenticationFailed
		case -2010:
			mappedErr = ports.ErrOrderPlacementFailed
		case -2011:
			mappedErr = ports.ErrOrderCancelFailed
		case -2013:
			mappedErr = ports.ErrOrderNotFound
		case -2014, -2015:
			mappedErr = ports.ErrInvalidAPIKeys
		case -2019, -3005:
			mappedErr = ports.ErrInsufficientFunds
		default:
			mappedErr = ports.ErrUnknown
		}
		c.logger.Error(ctx, mappedErr, "Binance API error", fields)
		return fmt.Errorf("%w: %s (code %d)", mappedErr, apiErr.Message, apiErr.Code)
	}

	if errors.Is(err, context.Canceled) {
		return ports.ErrContextCanceled
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return ports.ErrTimeout
	}

	c.logger.Error(ctx, err, "Binance request failed", fields)
	return fmt.Errorf("%w: %v", ports.ErrBrokerUnavailable, err)
}

// retriable reports whether an operation is worth retrying.
func retriable(err error) bool {
	return errors.Is(err, ports.ErrBrokerUnavailable) ||
		errors.Is(err, ports.ErrRateLimited) ||
		errors.Is(err, ports.ErrTimeout)
}

// withRetry runs op with bounded exponential backoff on transient failures.
func (c *Client) withRetry(ctx context.Context, operation string, op func() error) error {
	b := &backoff.Backoff{
		Min:    c.minBackoff,
		Max:    c.maxBackoff,
		Factor: 2,
		Jitter: true,
	}

	var err error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if err = op(); err == nil {
			return nil
		}
		if !retriable(err) || attempt == c.maxRetries {
			return err
		}
		wait := b.Duration()
		c.logger.Warn(ctx, "Retrying after transient failure", map[string]interface{}{
			"operation": operation,
			"attempt":   attempt + 1,
			"wait":      wait.String(),
		})
		select {
		case <-ctx.Done():
			return ports.ErrContextCanceled
		case <-time.After(wait):
		}
	}
	return err
}

// --- ports.MarketDataProvider ---

// GetRecentKlines retrieves the most recent klines for the symbol, oldest first.
func (c *Client) GetRecentKlines(ctx context.Context, symbol string, limit int) ([]*domain.Kline, error) {
	op := "GetRecentKlines"
	binanceKlines, err := c.futuresClient.NewKlinesService().
		Symbol(c.exchangeSymbol(symbol)).
		Interval(c.interval).
		Limit(limit).
		Do(ctx)
	if err != nil {
		return nil, c.handleError(ctx, err, op)
	}

	klines := make([]*domain.Kline, 0, len(binanceKlines))
	for _, bk := range binanceKlines {
		k, err := translateKline(bk, symbol, c.interval)
		if err != nil {
			return nil, c.handleError(ctx, fmt.Errorf("failed to translate kline: %w", err), op)
		}
		klines = append(klines, k)
	}
	return klines, nil
}

// GetKlinesRange retrieves all klines between start and end, paging through
// the API's per-request limit. Used by the historical fetch tooling.
func (c *Client) GetKlinesRange(ctx context.Context, symbol, interval string, start, end time.Time) ([]*domain.Kline, error) {
	op := "GetKlinesRange"
	const pageSize = 1000

	var all []*domain.Kline
	cursor := start
	for cursor.Before(end) {
		page, err := c.futuresClient.NewKlinesService().
			Symbol(c.exchangeSymbol(symbol)).
			Interval(interval).
			StartTime(cursor.UnixMilli()).
			EndTime(end.UnixMilli()).
			Limit(pageSize).
			Do(ctx)
		if err != nil {
			return nil, c.handleError(ctx, err, op)
		}
		if len(page) == 0 {
			break
		}
		for _, bk := range page {
			k, err := translateKline(bk, symbol, interval)
			if err != nil {
				return nil, c.handleError(ctx, fmt.Errorf("failed to translate kline: %w", err), op)
			}
			all = append(all, k)
		}
		last := page[len(page)-1]
		next := time.UnixMilli(last.CloseTime).Add(time.Millisecond)
		if !next.After(cursor) {
			break
		}
		cursor = next
	}
	return all, nil
}

// GetTickerPrice retrieves the last traded price for the symbol.
func (c *Client) GetTickerPrice(ctx context.Context, symbol string) (float64, error) {
	op := "GetTickerPrice"
	prices, err := c.futuresClient.NewListPricesService().Symbol(c.exchangeSymbol(symbol)).Do(ctx)
	if err != nil {
		return 0, c.handleError(ctx, err, op)
	}
	if len(prices) == 0 {
		return 0, c.handleError(ctx, fmt.Errorf("no ticker data returned for symbol %s", symbol), op)
	}

	price, err := strconv.ParseFloat(prices[0].Price, 64)
	if err != nil {
		return 0, c.handleError(ctx, fmt.Errorf("could not parse price '%s': %w", prices[0].Price, err), op)
	}
	return price, nil
}

// --- ports.OrderExecutor ---

// SubmitOrder places a market order and attaches TP/SL stop orders.
func (c *Client) SubmitOrder(ctx context.Context, intent *domain.OrderIntent) (*ports.OrderReceipt, error) {
	op := "SubmitOrder"
	symbol := c.exchangeSymbol(intent.Symbol)
	side := futures.SideTypeBuy
	closeSide := futures.SideTypeSell
	if intent.Action == domain.Sell {
		side = futures.SideTypeSell
		closeSide = futures.SideTypeBuy
	}
	quantity := strconv.FormatFloat(intent.Volume, 'f', -1, 64)

	var entry *futures.CreateOrderResponse
	err := c.withRetry(ctx, op, func() error {
		var err error
		entry, err = c.futuresClient.NewCreateOrderService().
			Symbol(symbol).
			Side(side).
			Type(futures.OrderTypeMarket).
			Quantity(quantity).
			Do(ctx)
		return c.handleError(ctx, err, op)
	})
	if err != nil {
		return nil, err
	}

	fillPrice, err := strconv.ParseFloat(entry.AvgPrice, 64)
	if err != nil || fillPrice == 0 {
		fillPrice = intent.EntryPrice
	}

	// Attached exit orders. A failure here leaves a naked position, so it is
	// surfaced as a placement failure for the caller to unwind.
	_, slErr := c.futuresClient.NewCreateOrderService().
		Symbol(symbol).
		Side(closeSide).
		Type(futures.OrderTypeStopMarket).
		StopPrice(strconv.FormatFloat(intent.SLPrice, 'f', -1, 64)).
		ClosePosition(true).
		Do(ctx)
	if slErr != nil {
		return nil, c.handleError(ctx, fmt.Errorf("stop-loss placement failed: %w", slErr), op)
	}
	_, tpErr := c.futuresClient.NewCreateOrderService().
		Symbol(symbol).
		Side(closeSide).
		Type(futures.OrderTypeTakeProfitMarket).
		StopPrice(strconv.FormatFloat(intent.TPPrice, 'f', -1, 64)).
		ClosePosition(true).
		Do(ctx)
	if tpErr != nil {
		return nil, c.handleError(ctx, fmt.Errorf("take-profit placement failed: %w", tpErr), op)
	}

	c.logger.Info(ctx, "Order submitted", map[string]interface{}{
		"symbol":   intent.Symbol,
		"action":   intent.Action,
		"quantity": quantity,
		"orderID":  entry.OrderID,
		"price":    fillPrice,
	})
	return &ports.OrderReceipt{
		Ticket:    entry.OrderID,
		Symbol:    intent.Symbol,
		Price:     fillPrice,
		Volume:    intent.Volume,
		Timestamp: time.UnixMilli(entry.UpdateTime),
	}, nil
}

// CloseOrder market-closes an open position and returns the fill price.
func (c *Client) CloseOrder(ctx context.Context, ticket int64, symbol string, action domain.Action, volume float64) (float64, error) {
	op := "CloseOrder"
	closeSide := futures.SideTypeSell
	if action == domain.Sell {
		closeSide = futures.SideTypeBuy
	}
	quantity := strconv.FormatFloat(volume, 'f', -1, 64)

	var order *futures.CreateOrderResponse
	err := c.withRetry(ctx, op, func() error {
		var err error
		order, err = c.futuresClient.NewCreateOrderService().
			Symbol(c.exchangeSymbol(symbol)).
			Side(closeSide).
			Type(futures.OrderTypeMarket).
			Quantity(quantity).
			ReduceOnly(true).
			Do(ctx)
		return c.handleError(ctx, err, op)
	})
	if err != nil {
		return 0, err
	}

	exitPrice, err := strconv.ParseFloat(order.AvgPrice, 64)
	if err != nil || exitPrice == 0 {
		// Fall back to the ticker when the fill price is not reported yet.
		return c.GetTickerPrice(ctx, symbol)
	}
	return exitPrice, nil
}

// --- ports.AccountProvider ---

// GetBalance retrieves the wallet balance of the configured quote asset.
func (c *Client) GetBalance(ctx context.Context) (float64, error) {
	op := "GetBalance"
	account, err := c.futuresClient.NewGetAccountService().Do(ctx)
	if err != nil {
		return 0, c.handleError(ctx, err, op)
	}

	for _, asset := range account.Assets {
		if asset.Asset == c.quoteAsset {
			balance, err := strconv.ParseFloat(asset.WalletBalance, 64)
			if err != nil {
				return 0, c.handleError(ctx, fmt.Errorf("could not parse balance '%s': %w", asset.WalletBalance, err), op)
			}
			return balance, nil
		}
	}
	return 0, c.handleError(ctx, fmt.Errorf("asset %s not found in account", c.quoteAsset), op)
}

// GetOpenPositionCount returns the number of non-flat positions for the symbol.
func (c *Client) GetOpenPositionCount(ctx context.Context, symbol string) (int, error) {
	op := "GetOpenPositionCount"
	risks, err := c.futuresClient.NewGetPositionRiskService().Symbol(c.exchangeSymbol(symbol)).Do(ctx)
	if err != nil {
		return 0, c.handleError(ctx, err, op)
	}

	count := 0
	for _, r := range risks {
		amt, err := strconv.ParseFloat(r.PositionAmt, 64)
		if err != nil {
			continue
		}
		if amt != 0 {
			count++
		}
	}
	return count, nil
}

// Ping checks connectivity to the exchange API.
func (c *Client) Ping(ctx context.Context) error {
	if err := c.futuresClient.NewPingService().Do(ctx); err != nil {
		return c.handleError(ctx, err, "Ping")
	}
	return nil
}

func translateKline(bk *futures.Kline, symbol, interval string) (*domain.Kline, error) {
	if bk == nil {
		return nil, errors.New("received nil kline")
	}
	open, err := strconv.ParseFloat(bk.Open, 64)
	if err != nil {
		return nil, fmt.Errorf("parsing open price '%s': %w", bk.Open, err)
	}
	high, err := strconv.ParseFloat(bk.High, 64)
	if err != nil {
		return nil, fmt.Errorf("parsing high price '%s': %w", bk.High, err)
	}
	low, err := strconv.ParseFloat(bk.Low, 64)
	if err != nil {
		return nil, fmt.Errorf("parsing low price '%s': %w", bk.Low, err)
	}
	cls, err := strconv.ParseFloat(bk.Close, 64)
	if err != nil {
		return nil, fmt.Errorf("parsing close price '%s': %w", bk.Close, err)
	}
	vol, err := strconv.ParseFloat(bk.Volume, 64)
	if err != nil {
		return nil, fmt.Errorf("parsing volume '%s': %w", bk.Volume, err)
	}

	return &domain.Kline{
		OpenTime:  time.UnixMilli(bk.OpenTime),
		CloseTime: time.UnixMilli(bk.CloseTime),
		Symbol:    symbol,
		Interval:  interval,
		Open:      open,
		High:      high,
		Low:       low,
		Close:     cls,
		Volume:    vol,
		IsFinal:   true,
	}, nil
}
