package services

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/example/couture/internal/models"
)

func sampleOrder() *models.CustomOrder {
	return &models.CustomOrder{
		FirstName:        "Ada",
		LastName:         "Obi",
		Email:            "ada@example.com",
		Phone:            "+2348031234567",
		StyleDescription: "Agbada <with> gold & green " + strings.Repeat("x", 400),
		Occasion:         "wedding",
		Budget:           "30000-40000",
		Timeline:         time.Date(2026, 4, 15, 0, 0, 0, 0, time.UTC),
	}
}

func TestFormatCustomOrder(t *testing.T) {
	text := FormatCustomOrder(sampleOrder())
	assert.True(t, strings.HasPrefix(text, "<b>🧵 NEW CUSTOM ORDER</b>"))
	assert.Contains(t, text, "<b>Customer:</b> Ada Obi")
	assert.Contains(t, text, "Agbada &lt;with&gt; gold &amp; green")
	assert.Contains(t, text, "2026-04-15")
	assert.Contains(t, text, "…")
	assert.NotContains(t, text, strings.Repeat("x", 301))
}

func TestTelegramNotify(t *testing.T) {
	var got telegramMessage
	var path string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	tg := NewTelegramService("token123", "-100", zap.NewNop()).WithAPIBase(srv.URL + "/")
	require.NoError(t, tg.NotifyNewCustomOrder(context.Background(), sampleOrder()))
	assert.Equal(t, "/bottoken123/sendMessage", path)
	assert.Equal(t, "-100", got.ChatID)
	assert.Equal(t, "HTML", got.ParseMode)
	assert.Contains(t, got.Text, "NEW CUSTOM ORDER")
}

func TestTelegramErrorsAndUnconfigured(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	err := NewTelegramService("token", "1", zap.NewNop()).WithAPIBase(srv.URL).SendToAdmin(context.Background(), "hi")
	assert.Error(t, err)

	assert.NoError(t, NewTelegramService("", "1", zap.NewNop()).WithAPIBase(srv.URL).SendToAdmin(context.Background(), "hi"))
	assert.NoError(t, NewTelegramService("token", "", zap.NewNop()).WithAPIBase(srv.URL).SendToAdmin(context.Background(), "hi"))
	assert.Equal(t, 1, calls)
}
