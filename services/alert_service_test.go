package services

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"pricetracker/cache"
	"pricetracker/models"
	"pricetracker/services/datafetcher"
)

// recordingNotifier captures Send calls, optionally inspecting the
// database state at delivery time.
type recordingNotifier struct {
	mu     sync.Mutex
	calls  []recordedCall
	onSend func(alert *models.Alert)
}

type recordedCall struct {
	alertID      uint
	symbol       string
	currentPrice decimal.Decimal
}

func (n *recordingNotifier) Send(_ context.Context, alert *models.Alert, currentPrice decimal.Decimal) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.calls = append(n.calls, recordedCall{alertID: alert.ID, symbol: alert.Symbol, currentPrice: currentPrice})
	if n.onSend != nil {
		n.onSend(alert)
	}
}

func (n *recordingNotifier) callCount() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.calls)
}

func seedCryptoPrice(t *testing.T, db *gorm.DB, symbol, priceUsd string) {
	t.Helper()
	row := models.CryptoPrice{
		Symbol:      symbol,
		Name:        symbol,
		PriceUsd:    decimal.RequireFromString(priceUsd),
		LastUpdated: time.Now().UTC(),
	}
	require.NoError(t, db.Create(&row).Error)
}

func seedStockPrice(t *testing.T, db *gorm.DB, symbol, price string) {
	t.Helper()
	row := models.StockPrice{
		Symbol:      symbol,
		Name:        symbol,
		Price:       decimal.RequireFromString(price),
		LastUpdated: time.Now().UTC(),
	}
	require.NoError(t, db.Create(&row).Error)
}

func seedForexRate(t *testing.T, db *gorm.DB, target, rate string) {
	t.Helper()
	row := models.ForexRate{
		BaseCurrency:   "USD",
		TargetCurrency: target,
		Rate:           decimal.RequireFromString(rate),
		LastUpdated:    time.Now().UTC(),
	}
	require.NoError(t, db.Create(&row).Error)
}

func createAlert(t *testing.T, svc *AlertService, assetType, symbol, condition, target string, opts ...func(*models.CreateAlertRequest)) models.Alert {
	t.Helper()
	req := models.CreateAlertRequest{
		AssetType:   assetType,
		Symbol:      symbol,
		Condition:   condition,
		TargetPrice: decimal.RequireFromString(target),
	}
	for _, opt := range opts {
		opt(&req)
	}
	alert, err := svc.Create(context.Background(), req)
	require.NoError(t, err)
	return alert
}

func TestAlertCreateNormalizesAndValidates(t *testing.T) {
	ctx := context.Background()
	svc := NewAlertService(newTestDB(t), &recordingNotifier{}, testLogger())

	alert := createAlert(t, svc, " Crypto ", "btc", "ABOVE", "50000")
	assert.Equal(t, models.AssetCrypto, alert.AssetType)
	assert.Equal(t, "BTC", alert.Symbol)
	assert.Equal(t, models.ConditionAbove, alert.Condition)
	assert.True(t, alert.IsActive)
	assert.False(t, alert.IsTriggered)

	bad := []models.CreateAlertRequest{
		{AssetType: "bond", Symbol: "BTC", Condition: "above", TargetPrice: decimal.NewFromInt(1)},
		{AssetType: "crypto", Symbol: "BTC", Condition: "between", TargetPrice: decimal.NewFromInt(1)},
		{AssetType: "crypto", Symbol: "BTC", Condition: "above", TargetPrice: decimal.Zero},
		{AssetType: "crypto", Symbol: "BTC", Condition: "above", TargetPrice: decimal.NewFromInt(-5)},
		{AssetType: "crypto", Symbol: "  ", Condition: "above", TargetPrice: decimal.NewFromInt(1)},
	}
	for _, req := range bad {
		_, err := svc.Create(ctx, req)
		assert.ErrorIs(t, err, ErrInvalidAlert)
	}
}

func TestAlertDeleteIsIdempotent(t *testing.T) {
	ctx := context.Background()
	svc := NewAlertService(newTestDB(t), &recordingNotifier{}, testLogger())

	alert := createAlert(t, svc, "crypto", "BTC", "above", "1")

	require.NoError(t, svc.Delete(ctx, alert.ID))
	_, err := svc.GetByID(ctx, alert.ID)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)

	// Deleting again, or deleting an id that never existed, is fine.
	assert.NoError(t, svc.Delete(ctx, alert.ID))
	assert.NoError(t, svc.Delete(ctx, 99999))
}

func TestAlertTriggersOnClosedBoundaries(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	notifier := &recordingNotifier{}
	svc := NewAlertService(db, notifier, testLogger())

	seedCryptoPrice(t, db, "BTC", "100.00")

	above := createAlert(t, svc, "crypto", "BTC", "above", "100.00")
	below := createAlert(t, svc, "crypto", "BTC", "below", "100.00")

	report, err := svc.CheckAlerts(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, report.Checked)
	assert.Equal(t, 2, report.Triggered)
	assert.Equal(t, 2, notifier.callCount())

	for _, id := range []uint{above.ID, below.ID} {
		got, err := svc.GetByID(ctx, id)
		require.NoError(t, err)
		assert.True(t, got.IsTriggered)
		assert.False(t, got.IsActive)
		require.NotNil(t, got.TriggeredAt)
	}
}

func TestAlertDoesNotTriggerBelowTarget(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	notifier := &recordingNotifier{}
	svc := NewAlertService(db, notifier, testLogger())

	seedCryptoPrice(t, db, "BTC", "99.99")
	createAlert(t, svc, "crypto", "BTC", "above", "100.00")

	report, err := svc.CheckAlerts(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Checked)
	assert.Equal(t, 0, report.Triggered)
	assert.Equal(t, 0, notifier.callCount())
}

func TestAlertFiresAtMostOnce(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	notifier := &recordingNotifier{}
	svc := NewAlertService(db, notifier, testLogger())

	seedCryptoPrice(t, db, "BTC", "50000")
	createAlert(t, svc, "crypto", "BTC", "above", "49000")

	report, err := svc.CheckAlerts(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Triggered)

	// The triggered alert is out of scope for every later cycle, even
	// though the condition still holds.
	report, err = svc.CheckAlerts(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, report.Checked)
	assert.Equal(t, 0, report.Triggered)
	assert.Equal(t, 1, notifier.callCount())
}

func TestAlertPersistedBeforeNotification(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)

	notifier := &recordingNotifier{}
	notifier.onSend = func(alert *models.Alert) {
		var row models.Alert
		require.NoError(t, db.First(&row, alert.ID).Error)
		assert.True(t, row.IsTriggered, "trigger flag must be durable before delivery")
		assert.False(t, row.IsActive)
	}
	svc := NewAlertService(db, notifier, testLogger())

	seedCryptoPrice(t, db, "BTC", "50000")
	createAlert(t, svc, "crypto", "BTC", "above", "49000")

	_, err := svc.CheckAlerts(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, notifier.callCount())
}

func TestAlertResolvesEveryAssetClass(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	notifier := &recordingNotifier{}
	svc := NewAlertService(db, notifier, testLogger())

	seedCryptoPrice(t, db, "ETH", "3000")
	seedStockPrice(t, db, "AAPL", "178.50")
	seedForexRate(t, db, "EUR", "0.92")

	createAlert(t, svc, "crypto", "ETH", "above", "2500")
	createAlert(t, svc, "stock", "AAPL", "below", "200")
	createAlert(t, svc, "forex", "EUR", "above", "0.90")

	report, err := svc.CheckAlerts(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, report.Checked)
	assert.Equal(t, 3, report.Triggered)
	assert.Equal(t, 0, report.Skipped)
	assert.Equal(t, 0, report.Failed)
}

func TestAlertSkippedWhenPriceUnknown(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	notifier := &recordingNotifier{}
	svc := NewAlertService(db, notifier, testLogger())

	createAlert(t, svc, "crypto", "NOPE", "above", "1")

	report, err := svc.CheckAlerts(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Checked)
	assert.Equal(t, 1, report.Skipped)
	assert.Equal(t, 0, report.Triggered)
	assert.Equal(t, 0, notifier.callCount())

	// The alert stays armed for the next cycle.
	alerts, err := svc.GetAll(ctx)
	require.NoError(t, err)
	require.Len(t, alerts, 1)
	assert.True(t, alerts[0].IsActive)
	assert.False(t, alerts[0].IsTriggered)
}

func TestAlertFailureIsIsolated(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	notifier := &recordingNotifier{}
	svc := NewAlertService(db, notifier, testLogger())

	seedCryptoPrice(t, db, "BTC", "50000")
	seedCryptoPrice(t, db, "ETH", "3000")

	first := createAlert(t, svc, "crypto", "BTC", "above", "49000")

	// A corrupt row bypasses Create validation to exercise the failure
	// path in the middle of the batch.
	corrupt := models.Alert{
		AssetType:   "bond",
		Symbol:      "XXX",
		Condition:   models.ConditionAbove,
		TargetPrice: decimal.NewFromInt(1),
		IsActive:    true,
		CreatedAt:   time.Now().UTC(),
	}
	require.NoError(t, db.Create(&corrupt).Error)

	third := createAlert(t, svc, "crypto", "ETH", "above", "2500")

	report, err := svc.CheckAlerts(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, report.Checked)
	assert.Equal(t, 2, report.Triggered)
	assert.Equal(t, 1, report.Failed)
	assert.Equal(t, 2, notifier.callCount())

	for _, id := range []uint{first.ID, third.ID} {
		got, err := svc.GetByID(ctx, id)
		require.NoError(t, err)
		assert.True(t, got.IsTriggered)
	}
}

func TestAlertCheckSkipsWhenInFlight(t *testing.T) {
	db := newTestDB(t)
	notifier := &recordingNotifier{}
	svc := NewAlertService(db, notifier, testLogger())

	seedCryptoPrice(t, db, "BTC", "50000")
	createAlert(t, svc, "crypto", "BTC", "above", "1")

	svc.checking.Store(true)
	report, err := svc.CheckAlerts(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, report.Checked)
	assert.Equal(t, 0, notifier.callCount())
}

func TestAlertEndToEndWebhookDelivery(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)

	received := make(chan webhookPayload, 1)
	webhook := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		var payload webhookPayload
		require.NoError(t, json.Unmarshal(body, &payload))
		received <- payload
	}))
	defer webhook.Close()

	notifier := NewNotificationService(5*time.Second, testLogger())
	svc := NewAlertService(db, notifier, testLogger())

	// Ingest a realistic quote through the crypto pipeline first.
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(coingeckoBody("50000")))
	}))
	defer upstream.Close()

	crypto := NewCryptoService(db, cache.NewMemory(), datafetcher.NewCoinGeckoClient(upstream.URL, 5*time.Second), []string{"bitcoin"}, time.Minute, 20, testLogger())
	_, err := crypto.RefreshPrices(ctx)
	require.NoError(t, err)

	alert := createAlert(t, svc, "crypto", "BTC", "above", "49000", func(req *models.CreateAlertRequest) {
		req.WebhookUrl = webhook.URL
	})

	report, err := svc.CheckAlerts(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, report.Triggered)

	select {
	case payload := <-received:
		assert.Equal(t, alert.ID, payload.AlertID)
		assert.Equal(t, "crypto", payload.AssetType)
		assert.Equal(t, "BTC", payload.Symbol)
		assert.Equal(t, "above", payload.Condition)
		assert.True(t, payload.TargetPrice.Equal(decimal.RequireFromString("49000")))
		assert.True(t, payload.CurrentPrice.Equal(decimal.RequireFromString("50000")))
		require.NotNil(t, payload.TriggeredAt)
		assert.Contains(t, payload.Message, "BTC is above 49000.00")
	case <-time.After(5 * time.Second):
		t.Fatal("webhook was never delivered")
	}
}
