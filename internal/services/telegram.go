package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"html"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/example/couture/internal/models"
)

// StaffNotifier alerts staff about new custom orders.
type StaffNotifier interface {
	NotifyNewCustomOrder(ctx context.Context, order *models.CustomOrder) error
}

// NopNotifier drops every notification.
type NopNotifier struct{}

func (NopNotifier) NotifyNewCustomOrder(context.Context, *models.CustomOrder) error { return nil }

const telegramAPI = "https://api.telegram.org"

// TelegramService sends staff notifications through the Telegram Bot API.
type TelegramService struct {
	botToken    string
	adminChatID string
	apiBase     string
	client      *http.Client
	log         *zap.Logger
}

// NewTelegramService creates a new TelegramService.
func NewTelegramService(botToken, adminChatID string, log *zap.Logger) *TelegramService {
	return &TelegramService{
		botToken:    botToken,
		adminChatID: adminChatID,
		apiBase:     telegramAPI,
		client:      &http.Client{Timeout: 10 * time.Second},
		log:         log,
	}
}

// WithAPIBase points the service at another Bot API endpoint.
func (s *TelegramService) WithAPIBase(base string) *TelegramService {
	s.apiBase = strings.TrimRight(base, "/")
	return s
}

type telegramMessage struct {
	ChatID    string `json:"chat_id"`
	Text      string `json:"text"`
	ParseMode string `json:"parse_mode"`
}

// SendMessage sends an HTML-formatted message to chatID.
func (s *TelegramService) SendMessage(ctx context.Context, chatID, text string) error {
	if s.botToken == "" {
		s.log.Debug("telegram bot token not configured, message dropped")
		return nil
	}

	body, err := json.Marshal(telegramMessage{ChatID: chatID, Text: text, ParseMode: "HTML"})
	if err != nil {
		return err
	}
	url := fmt.Sprintf("%s/bot%s/sendMessage", s.apiBase, s.botToken)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("telegram request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("telegram returned status %d", resp.StatusCode)
	}
	return nil
}

// SendToAdmin sends a message to the admin chat.
func (s *TelegramService) SendToAdmin(ctx context.Context, text string) error {
	if s.adminChatID == "" {
		s.log.Debug("telegram admin chat not configured, message dropped")
		return nil
	}
	return s.SendMessage(ctx, s.adminChatID, text)
}

// NotifyNewCustomOrder sends a summary of a submitted custom order to the admin chat.
func (s *TelegramService) NotifyNewCustomOrder(ctx context.Context, order *models.CustomOrder) error {
	return s.SendToAdmin(ctx, FormatCustomOrder(order))
}

// FormatCustomOrder renders the staff alert for order.
func FormatCustomOrder(order *models.CustomOrder) string {
	name := strings.TrimSpace(order.FirstName + " " + order.LastName)
	message := fmt.Sprintf(`<b>🧵 NEW CUSTOM ORDER</b>
<b>Order:</b> %s
<b>Customer:</b> %s
<b>Email:</b> %s
<b>Phone:</b> %s
<b>Occasion:</b> %s
<b>Budget:</b> %s
<b>Needed by:</b> %s
<b>Style:</b> %s
━━━━━━━━━━━━━━━━━━`,
		order.ID,
		html.EscapeString(name),
		html.EscapeString(order.Email),
		html.EscapeString(order.Phone),
		html.EscapeString(order.Occasion),
		html.EscapeString(order.Budget),
		order.Timeline.Format("2006-01-02"),
		html.EscapeString(truncate(order.StyleDescription, 300)),
	)
	return strings.TrimSpace(message)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "…"
}
