package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/pritamp-cmyk/New-Inventory-management-system/internal/channel"
	"github.com/pritamp-cmyk/New-Inventory-management-system/internal/engine"
	"github.com/pritamp-cmyk/New-Inventory-management-system/internal/models"
	"github.com/pritamp-cmyk/New-Inventory-management-system/internal/store"
)

type fakeSender struct {
	ch  models.Channel
	mu  sync.Mutex
	err error
}

func (f *fakeSender) Channel() models.Channel { return f.ch }

func (f *fakeSender) Send(ctx context.Context, userID uint, message string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.err
}

func (f *fakeSender) fail(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.err = err
}

type testServer struct {
	router *gin.Engine
	email  *fakeSender
	subs   *store.Subscriptions
	logs   *store.DeliveryLogs
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(&models.Subscription{}, &models.DeliveryLog{}, &models.Preference{}))

	subs := store.NewSubscriptions(db)
	logs := store.NewDeliveryLogs(db)
	prefs := store.NewPreferences(db)
	email := &fakeSender{ch: models.ChannelEmail}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	dispatcher := engine.New(subs, logs, prefs, channel.NewRegistry(email, channel.InApp{}), logger)
	server := NewServer(subs, logs, prefs, dispatcher, logger)

	return &testServer{router: server.Router(nil), email: email, subs: subs, logs: logs}
}

func (ts *testServer) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	ts.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func TestSubscribeEndpointIsIdempotent(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(t, http.MethodPost, "/notifications/subscribe", gin.H{"user_id": 7, "product_id": 42})
	require.Equal(t, http.StatusCreated, w.Code)
	first := decode[models.Subscription](t, w)

	w = ts.do(t, http.MethodPost, "/notifications/subscribe", gin.H{"user_id": 7, "product_id": 42})
	require.Equal(t, http.StatusOK, w.Code)
	second := decode[models.Subscription](t, w)
	assert.Equal(t, first.ID, second.ID)
}

func TestSubscribeEndpointValidation(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(t, http.MethodPost, "/notifications/subscribe", gin.H{"user_id": 7})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestUnsubscribeEndpoint(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(t, http.MethodPost, "/notifications/subscribe", gin.H{"user_id": 7, "product_id": 42})
	sub := decode[models.Subscription](t, w)

	w = ts.do(t, http.MethodDelete, fmt.Sprintf("/notifications/%d", sub.ID), nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = ts.do(t, http.MethodDelete, fmt.Sprintf("/notifications/%d", sub.ID), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestListEndpoints(t *testing.T) {
	ts := newTestServer(t)

	ts.do(t, http.MethodPost, "/notifications/subscribe", gin.H{"user_id": 7, "product_id": 42})
	ts.do(t, http.MethodPost, "/notifications/subscribe", gin.H{"user_id": 8, "product_id": 42})
	ts.do(t, http.MethodPost, "/notifications/subscribe", gin.H{"user_id": 7, "product_id": 43})

	w := ts.do(t, http.MethodGet, "/notifications/user/7", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]models.Subscription](t, w), 2)

	w = ts.do(t, http.MethodGet, "/notifications/product/42", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]models.Subscription](t, w), 2)
}

func TestRestockEndpointDispatchesAndLogs(t *testing.T) {
	ts := newTestServer(t)

	ts.do(t, http.MethodPost, "/notifications/subscribe", gin.H{"user_id": 7, "product_id": 42})

	w := ts.do(t, http.MethodPost, "/internal/restock", gin.H{"product_id": 42, "previous_stock": 0, "new_stock": 10})
	require.Equal(t, http.StatusAccepted, w.Code)

	w = ts.do(t, http.MethodGet, "/notifications/logs/user/7", nil)
	require.Equal(t, http.StatusOK, w.Code)
	entries := decode[[]models.DeliveryLog](t, w)
	require.Len(t, entries, 2)
	for _, e := range entries {
		assert.Equal(t, models.StatusSent, e.Status)
	}
}

func TestRestockEndpointIgnoresNonEdgeEvents(t *testing.T) {
	ts := newTestServer(t)

	ts.do(t, http.MethodPost, "/notifications/subscribe", gin.H{"user_id": 7, "product_id": 42})

	w := ts.do(t, http.MethodPost, "/internal/restock", gin.H{"product_id": 42, "previous_stock": 5, "new_stock": 10})
	require.Equal(t, http.StatusOK, w.Code)

	w = ts.do(t, http.MethodGet, "/notifications/logs/user/7", nil)
	assert.Empty(t, decode[[]models.DeliveryLog](t, w))
}

func TestRetryEndpointLifecycle(t *testing.T) {
	ts := newTestServer(t)

	ts.do(t, http.MethodPost, "/notifications/subscribe", gin.H{"user_id": 7, "product_id": 42})
	ts.email.fail(errors.New("smtp timeout"))
	ts.do(t, http.MethodPost, "/internal/restock", gin.H{"product_id": 42, "previous_stock": 0, "new_stock": 10})

	w := ts.do(t, http.MethodGet, "/notifications/logs/failed", nil)
	require.Equal(t, http.StatusOK, w.Code)
	failed := decode[[]models.DeliveryLog](t, w)
	require.Len(t, failed, 1)
	require.Equal(t, models.ChannelEmail, failed[0].Channel)

	ts.email.fail(nil)
	w = ts.do(t, http.MethodPost, fmt.Sprintf("/notifications/logs/%d/retry", failed[0].ID), nil)
	require.Equal(t, http.StatusOK, w.Code)
	entry := decode[models.DeliveryLog](t, w)
	assert.Equal(t, models.StatusSent, entry.Status)
	assert.Equal(t, 1, entry.RetryCount)

	// A sent entry cannot be retried again.
	w = ts.do(t, http.MethodPost, fmt.Sprintf("/notifications/logs/%d/retry", failed[0].ID), nil)
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestRetryEndpointExhausted(t *testing.T) {
	ts := newTestServer(t)

	ts.do(t, http.MethodPost, "/notifications/subscribe", gin.H{"user_id": 7, "product_id": 42})
	ts.email.fail(errors.New("smtp timeout"))
	ts.do(t, http.MethodPost, "/internal/restock", gin.H{"product_id": 42, "previous_stock": 0, "new_stock": 10})

	w := ts.do(t, http.MethodGet, "/notifications/logs/failed", nil)
	failed := decode[[]models.DeliveryLog](t, w)
	require.Len(t, failed, 1)
	path := fmt.Sprintf("/notifications/logs/%d/retry", failed[0].ID)

	for i := 0; i < models.DefaultMaxRetries; i++ {
		w = ts.do(t, http.MethodPost, path, nil)
		require.Equal(t, http.StatusOK, w.Code)
	}
	w = ts.do(t, http.MethodPost, path, nil)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestRetryEndpointUnknownID(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(t, http.MethodPost, "/notifications/logs/999/retry", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = ts.do(t, http.MethodPost, "/notifications/logs/abc/retry", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPreferenceEndpoints(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(t, http.MethodGet, "/notifications/preferences/7", nil)
	require.Equal(t, http.StatusOK, w.Code)
	pref := decode[models.Preference](t, w)
	assert.True(t, pref.EmailEnabled)
	assert.True(t, pref.InAppEnabled)
	assert.False(t, pref.SMSEnabled)

	// Partial update: unknown fields are ignored, absent fields untouched.
	w = ts.do(t, http.MethodPut, "/notifications/preferences/7", gin.H{"sms_enabled": true, "carrier_pigeon": true})
	require.Equal(t, http.StatusOK, w.Code)
	pref = decode[models.Preference](t, w)
	assert.True(t, pref.SMSEnabled)
	assert.True(t, pref.EmailEnabled)

	w = ts.do(t, http.MethodGet, "/notifications/preferences/7", nil)
	pref = decode[models.Preference](t, w)
	assert.True(t, pref.SMSEnabled)
}
