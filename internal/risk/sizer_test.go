package risk

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mtPilotBot/internal/domain"
	"mtPilotBot/internal/instrument"
)

type mockLogger struct{}

func (m *mockLogger) Debug(ctx context.Context, msg string, fields ...map[string]interface{}) {}
func (m *mockLogger) Info(ctx context.Context, msg string, fields ...map[string]interface{})  {}
func (m *mockLogger) Warn(ctx context.Context, msg string, fields ...map[string]interface{})  {}
func (m *mockLogger) Error(ctx context.Context, err error, msg string, fields ...map[string]interface{}) {
}

func goldSpec() instrument.Spec {
	return instrument.Spec{Symbol: "XAUUSD", Point: 0.01, TickValue: 1.0, ContractSize: 100, Digits: 2}
}

func testMode() domain.TradingMode {
	return domain.TradingMode{
		Name:             "TEST",
		TPFraction:       0.001,
		SLFraction:       0.003,
		MinConfidence:    0.6,
		MinScore:         3,
		MaxPositions:     5,
		ScanInterval:     30 * time.Second,
		TrendStrengthMin: 0.5,
		MaxConsecLosses:  2,
		Cooldown:         30 * time.Minute,
	}
}

func newTestSizer(t *testing.T, mode domain.TradingMode) (*Sizer, *time.Time) {
	t.Helper()
	sizer, err := NewSizer(Config{
		Mode:            mode,
		Lots:            0.1,
		MaxDailyLossPct: 0.05,
		MaxDrawdownPct:  0.10,
		MaxTradesPerDay: 10,
	}, &mockLogger{})
	require.NoError(t, err)

	clock := time.Date(2025, 6, 2, 10, 0, 0, 0, time.UTC)
	sizer.SetClock(func() time.Time { return clock })
	return sizer, &clock
}

func buyDecision(confidence float64) domain.SignalDecision {
	return domain.SignalDecision{Action: domain.Buy, Confidence: confidence}
}

func sellDecision(confidence float64) domain.SignalDecision {
	return domain.SignalDecision{Action: domain.Sell, Confidence: confidence}
}

func lossTrade(now time.Time, pnl float64) *domain.Trade {
	return &domain.Trade{Symbol: "XAUUSD", Action: domain.Buy, PNL: pnl, ExitTime: now}
}

func TestSizeOrder_GoldBalanceExample(t *testing.T) {
	// Balance 10000, TP fraction 0.001 and SL fraction 0.003 with 0.1
	// lots of gold: $10 target and $30 budget convert to $1.00 and
	// $3.00 of price distance.
	sizer, _ := newTestSizer(t, testMode())

	intent, reason, err := sizer.SizeOrder(context.Background(), buyDecision(0.8), 10000, 2650.00, goldSpec(), 0)
	require.NoError(t, err)
	require.Empty(t, reason)
	require.NotNil(t, intent)

	assert.Equal(t, domain.Buy, intent.Action)
	assert.Equal(t, 0.1, intent.Volume)
	assert.InDelta(t, 2651.00, intent.TPPrice, 1e-9)
	assert.InDelta(t, 2647.00, intent.SLPrice, 1e-9)

	// The reward/risk distance ratio mirrors the fraction ratio.
	tpDist := intent.TPPrice - intent.EntryPrice
	slDist := intent.EntryPrice - intent.SLPrice
	assert.InDelta(t, testMode().TPFraction/testMode().SLFraction, tpDist/slDist, 1e-9)
}

func TestSizeOrder_SellLevelsOnCorrectSides(t *testing.T) {
	sizer, _ := newTestSizer(t, testMode())

	intent, reason, err := sizer.SizeOrder(context.Background(), sellDecision(0.8), 10000, 2650.00, goldSpec(), 0)
	require.NoError(t, err)
	require.Empty(t, reason)
	require.NotNil(t, intent)

	assert.Less(t, intent.TPPrice, intent.EntryPrice)
	assert.Greater(t, intent.SLPrice, intent.EntryPrice)
}

func TestSizeOrder_InvariantViolations(t *testing.T) {
	sizer, _ := newTestSizer(t, testMode())
	ctx := context.Background()

	_, _, err := sizer.SizeOrder(ctx, domain.SignalDecision{Action: domain.Hold}, 10000, 2650, goldSpec(), 0)
	assert.Error(t, err, "hold decisions cannot be sized")

	_, _, err = sizer.SizeOrder(ctx, buyDecision(0.8), 0, 2650, goldSpec(), 0)
	assert.Error(t, err, "non-positive balance is an invariant violation")

	_, _, err = sizer.SizeOrder(ctx, buyDecision(0.8), -100, 2650, goldSpec(), 0)
	assert.Error(t, err)

	_, _, err = sizer.SizeOrder(ctx, buyDecision(0.8), 10000, 0, goldSpec(), 0)
	assert.Error(t, err, "non-positive entry price is an invariant violation")
}

func TestSizeOrder_MaxPositionsRejection(t *testing.T) {
	sizer, _ := newTestSizer(t, testMode())

	intent, reason, err := sizer.SizeOrder(context.Background(), buyDecision(0.8), 10000, 2650, goldSpec(), 5)
	require.NoError(t, err)
	assert.Nil(t, intent)
	assert.Equal(t, ReasonMaxPositions, reason)
}

func TestSizeOrder_DailyTradeLimitRejection(t *testing.T) {
	sizer, clock := newTestSizer(t, testMode())
	ctx := context.Background()

	// Alternate wins and losses so no loss streak forms.
	for i := 0; i < 10; i++ {
		pnl := 10.0
		if i%2 == 1 {
			pnl = -10.0
		}
		sizer.RecordClose(ctx, lossTrade(*clock, pnl))
	}

	intent, reason, err := sizer.SizeOrder(ctx, buyDecision(0.8), 10000, 2650, goldSpec(), 0)
	require.NoError(t, err)
	assert.Nil(t, intent)
	assert.Equal(t, ReasonDailyTradeLimit, reason)
}

func TestSizeOrder_DailyLossLimitRejection(t *testing.T) {
	sizer, clock := newTestSizer(t, testMode())
	ctx := context.Background()

	// A single large loss crosses the 5% daily loss cap; the small win
	// after it clears the streak so only the loss cap can reject.
	sizer.RecordClose(ctx, lossTrade(*clock, -600))
	sizer.RecordClose(ctx, lossTrade(*clock, 1))

	intent, reason, err := sizer.SizeOrder(ctx, buyDecision(0.8), 10000, 2650, goldSpec(), 0)
	require.NoError(t, err)
	assert.Nil(t, intent)
	assert.Equal(t, ReasonDailyLossLimit, reason)
}

func TestSizeOrder_DailyLossAtCapStillTrades(t *testing.T) {
	sizer, clock := newTestSizer(t, testMode())
	ctx := context.Background()

	// Exactly 5% of balance lost: the cap rejects only when exceeded.
	sizer.RecordClose(ctx, lossTrade(*clock, -500))

	intent, reason, err := sizer.SizeOrder(ctx, buyDecision(0.8), 10000, 2650, goldSpec(), 0)
	require.NoError(t, err)
	assert.NotNil(t, intent)
	assert.Empty(t, reason)

	// The win clears the streak; one more cent of loss tips the cap.
	sizer.RecordClose(ctx, lossTrade(*clock, 1))
	sizer.RecordClose(ctx, lossTrade(*clock, -0.01))

	intent, reason, err = sizer.SizeOrder(ctx, buyDecision(0.8), 10000, 2650, goldSpec(), 0)
	require.NoError(t, err)
	assert.Nil(t, intent)
	assert.Equal(t, ReasonDailyLossLimit, reason)
}

func TestRestore_SeedsDailyCounters(t *testing.T) {
	sizer, clock := newTestSizer(t, testMode()) // MaxTradesPerDay 10
	ctx := context.Background()

	sizer.Restore(10, 300)
	assert.Equal(t, 10, sizer.State().DailyTrades)
	assert.InDelta(t, 300, sizer.State().DailyLossAmount, 1e-9)

	// The restored trade count already fills the daily quota.
	intent, reason, err := sizer.SizeOrder(ctx, buyDecision(0.8), 10000, 2650, goldSpec(), 0)
	require.NoError(t, err)
	assert.Nil(t, intent)
	assert.Equal(t, ReasonDailyTradeLimit, reason)

	// Same-day closes accumulate on top of the seeded counters.
	sizer.RecordClose(ctx, lossTrade(*clock, -10))
	assert.Equal(t, 11, sizer.State().DailyTrades)
	assert.InDelta(t, 310, sizer.State().DailyLossAmount, 1e-9)

	// The next day rollover clears them as usual.
	*clock = clock.Add(24 * time.Hour)
	_, _, err = sizer.SizeOrder(ctx, buyDecision(0.8), 10000, 2650, goldSpec(), 0)
	require.NoError(t, err)
	assert.Equal(t, 0, sizer.State().DailyTrades)
	assert.Equal(t, 0.0, sizer.State().DailyLossAmount)
}

func TestSizeOrder_DrawdownRejection(t *testing.T) {
	sizer, _ := newTestSizer(t, testMode())
	ctx := context.Background()

	// Establish the peak, then size against a balance more than 10% below it.
	intent, reason, err := sizer.SizeOrder(ctx, buyDecision(0.8), 10000, 2650, goldSpec(), 0)
	require.NoError(t, err)
	require.NotNil(t, intent)
	require.Empty(t, reason)

	intent, reason, err = sizer.SizeOrder(ctx, buyDecision(0.8), 8900, 2650, goldSpec(), 0)
	require.NoError(t, err)
	assert.Nil(t, intent)
	assert.Equal(t, ReasonDrawdownLimit, reason)
}

func TestSizeOrder_LossStreakCooldown(t *testing.T) {
	sizer, clock := newTestSizer(t, testMode()) // MaxConsecLosses 2, Cooldown 30m
	ctx := context.Background()

	sizer.RecordClose(ctx, lossTrade(*clock, -10))
	sizer.RecordClose(ctx, lossTrade(*clock, -10))
	sizer.RecordClose(ctx, lossTrade(*clock, -10))

	// During the cooldown the streak is the stated reason.
	intent, reason, err := sizer.SizeOrder(ctx, buyDecision(0.9), 10000, 2650, goldSpec(), 0)
	require.NoError(t, err)
	assert.Nil(t, intent)
	assert.Equal(t, ReasonConsecutiveLosses, reason)

	// Still rejected one minute before the cooldown expires.
	*clock = clock.Add(29 * time.Minute)
	intent, reason, err = sizer.SizeOrder(ctx, buyDecision(0.9), 10000, 2650, goldSpec(), 0)
	require.NoError(t, err)
	assert.Nil(t, intent)
	assert.Equal(t, ReasonConsecutiveLosses, reason)

	// Once served, trading resumes with a clean streak.
	*clock = clock.Add(2 * time.Minute)
	intent, reason, err = sizer.SizeOrder(ctx, buyDecision(0.9), 10000, 2650, goldSpec(), 0)
	require.NoError(t, err)
	assert.NotNil(t, intent)
	assert.Empty(t, reason)
	assert.Equal(t, 0, sizer.State().ConsecutiveLosses)
}

func TestRecordClose_WinResetsStreak(t *testing.T) {
	sizer, clock := newTestSizer(t, testMode())
	ctx := context.Background()

	sizer.RecordClose(ctx, lossTrade(*clock, -10))
	assert.Equal(t, 1, sizer.State().ConsecutiveLosses)

	sizer.RecordClose(ctx, lossTrade(*clock, 25))
	assert.Equal(t, 0, sizer.State().ConsecutiveLosses)
	assert.InDelta(t, 15, sizer.State().SessionPnL, 1e-9)
}

func TestDailyCountersResetOncePerDay(t *testing.T) {
	sizer, clock := newTestSizer(t, testMode())
	ctx := context.Background()

	sizer.RecordClose(ctx, lossTrade(*clock, -10))
	sizer.RecordClose(ctx, lossTrade(*clock, 20))
	require.Equal(t, 2, sizer.State().DailyTrades)

	// Crossing midnight resets the daily counters exactly once.
	*clock = clock.Add(24 * time.Hour)
	_, _, err := sizer.SizeOrder(ctx, buyDecision(0.8), 10000, 2650, goldSpec(), 0)
	require.NoError(t, err)
	assert.Equal(t, 0, sizer.State().DailyTrades)
	assert.Equal(t, 0.0, sizer.State().DailyLossAmount)

	// A second call on the same day must not wipe fresh counters.
	sizer.RecordClose(ctx, lossTrade(*clock, -5))
	_, _, err = sizer.SizeOrder(ctx, buyDecision(0.8), 10000, 2650, goldSpec(), 0)
	require.NoError(t, err)
	assert.Equal(t, 1, sizer.State().DailyTrades)

	// Session PnL survives the rollover.
	assert.InDelta(t, 5, sizer.State().SessionPnL, 1e-9)
}

func TestNewSizer_Validation(t *testing.T) {
	logger := &mockLogger{}
	valid := Config{Mode: testMode(), Lots: 0.1, MaxDailyLossPct: 0.05, MaxDrawdownPct: 0.1, MaxTradesPerDay: 10}

	_, err := NewSizer(valid, nil)
	assert.Error(t, err, "logger is required")

	bad := valid
	bad.Lots = 0
	_, err = NewSizer(bad, logger)
	assert.Error(t, err)

	bad = valid
	bad.MaxDailyLossPct = 1.5
	_, err = NewSizer(bad, logger)
	assert.Error(t, err)

	bad = valid
	bad.MaxTradesPerDay = 0
	_, err = NewSizer(bad, logger)
	assert.Error(t, err)

	_, err = NewSizer(valid, logger)
	assert.NoError(t, err)
}
