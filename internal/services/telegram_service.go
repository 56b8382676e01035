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

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

const defaultTelegramBaseURL = "https://api.telegram.org"

// TelegramService sends payment notifications to an admin chat.
type TelegramService struct {
	botToken    string
	adminChatID string
	baseURL     string
	client      *http.Client
	log         zerolog.Logger
}

// NewTelegramService creates a new TelegramService.
func NewTelegramService(botToken, adminChatID string, log zerolog.Logger) *TelegramService {
	return &TelegramService{
		botToken:    botToken,
		adminChatID: adminChatID,
		baseURL:     defaultTelegramBaseURL,
		client:      &http.Client{Timeout: 10 * time.Second},
		log:         log,
	}
}

// WithBaseURL points the service at a different Bot API host.
func (s *TelegramService) WithBaseURL(baseURL string) *TelegramService {
	s.baseURL = strings.TrimRight(baseURL, "/")
	return s
}

// Enabled reports whether both the bot token and admin chat are configured.
func (s *TelegramService) Enabled() bool {
	return s.botToken != "" && s.adminChatID != ""
}

func (s *TelegramService) Name() string {
	return "telegram"
}

type telegramMessage struct {
	ChatID    string `json:"chat_id"`
	Text      string `json:"text"`
	ParseMode string `json:"parse_mode"`
}

// SendMessage sends a message to specified chat.
func (s *TelegramService) SendMessage(ctx context.Context, chatID, text string) error {
	if s.botToken == "" {
		s.log.Debug().Msg("telegram bot token not configured")
		return nil
	}

	url := fmt.Sprintf("%s/bot%s/sendMessage", s.baseURL, s.botToken)

	body, err := json.Marshal(telegramMessage{
		ChatID:    chatID,
		Text:      text,
		ParseMode: "HTML",
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("telegram send: %w", err)
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
		s.log.Debug().Msg("telegram admin chat not configured")
		return nil
	}
	return s.SendMessage(ctx, s.adminChatID, text)
}

// FormatPrice formats amount with thousand separators and currency.
func FormatPrice(amount decimal.Decimal, currency string) string {
	str := amount.StringFixed(2)
	whole, frac, _ := strings.Cut(str, ".")

	sign := ""
	if strings.HasPrefix(whole, "-") {
		sign, whole = "-", whole[1:]
	}

	var result strings.Builder
	result.WriteString(sign)
	for i, digit := range whole {
		if i > 0 && (len(whole)-i)%3 == 0 {
			result.WriteString(",")
		}
		result.WriteRune(digit)
	}
	result.WriteString(".")
	result.WriteString(frac)

	return result.String() + " " + currency
}

// NotifyPayment reports successful payments to the admin chat. Declines are
// not sent.
func (s *TelegramService) NotifyPayment(ctx context.Context, event PaymentEvent) error {
	if event.Type != EventPaymentSucceeded || !s.Enabled() {
		return nil
	}
	return s.SendToAdmin(ctx, formatPaymentMessage(event))
}

func formatPaymentMessage(event PaymentEvent) string {
	message := fmt.Sprintf(`<b>✅ PAYMENT RECEIVED</b>
<b>📋 Order:</b> %s
<b>🧾 Transaction:</b> %s
<b>🏪 Merchant:</b> %s
<b>💰 Amount:</b> %s
━━━━━━━━━━━━━━━━━━`,
		html.EscapeString(event.OrderID),
		html.EscapeString(event.TransactionID),
		html.EscapeString(event.SourceApp),
		html.EscapeString(FormatPrice(event.Amount, event.Currency)),
	)
	return strings.TrimSpace(message)
}
