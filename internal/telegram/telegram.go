package telegram

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"jpestate/server/internal/models"
)

// Service sends listing notifications to a Telegram chat.
type Service struct {
	logger *logrus.Logger
	client *http.Client
	config *models.TelegramConfig
}

func NewService(config *models.TelegramConfig, logger *logrus.Logger) *Service {
	return &Service{
		logger: logger,
		config: config,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// SendMessage sends a message to the configured Telegram chat
func (s *Service) SendMessage(message string) error {
	if !s.config.IsEnabled {
		return nil
	}

	if s.config.BotToken == "" {
		return errors.New("Telegram bot token is not configured")
	}

	if s.config.ChatID == "" {
		return errors.New("Telegram chat ID is not configured")
	}

	url := fmt.Sprintf("https://api.telegram.org/bot%s/sendMessage", s.config.BotToken)
	payload := map[string]interface{}{
		"chat_id":    s.config.ChatID,
		"text":       message,
		"parse_mode": "HTML",
	}

	jsonData, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal message payload: %v", err)
	}

	resp, err := s.client.Post(url, "application/json", bytes.NewBuffer(jsonData))
	if err != nil {
		return fmt.Errorf("failed to send message to Telegram API: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		switch resp.StatusCode {
		case http.StatusUnauthorized:
			return errors.New("invalid bot token - please check your token from @BotFather")
		case http.StatusBadRequest:
			return fmt.Errorf("invalid chat ID or message format: %s", string(body))
		case http.StatusForbidden:
			return errors.New("bot was blocked by the user or chat")
		case http.StatusNotFound:
			return errors.New("bot not found - please check your token from @BotFather")
		default:
			return fmt.Errorf("Telegram API error (status %d): %s", resp.StatusCode, string(body))
		}
	}

	return nil
}

// NotifyNewListing sends a notification about a newly persisted listing.
func (s *Service) NotifyNewListing(record *models.PersistedRecord) error {
	if !s.config.IsEnabled {
		return nil
	}

	doc := record.Data
	message := fmt.Sprintf(
		"<b>New Listing!</b>\n\n"+
			"🏠 %s\n"+
			"📍 %s\n"+
			"💰 %s\n"+
			"📐 %s m²\n"+
			"🚉 %s\n\n"+
			"🔗 <a href=\"%s\">View listing</a>",
		textField(doc, "building_name"),
		textField(doc, "location"),
		yenField(doc, "price_yen"),
		numField(doc, "size"),
		firstLine(textField(doc, "nearest_station")),
		textField(doc, "url"),
	)

	return s.SendMessage(message)
}

func textField(doc models.CanonicalListing, key string) string {
	if v, ok := doc[key].(string); ok && v != "" {
		return v
	}
	return "N/A"
}

func numField(doc models.CanonicalListing, key string) string {
	switch v := doc[key].(type) {
	case int64:
		return fmt.Sprintf("%d", v)
	case float64:
		return fmt.Sprintf("%.2f", v)
	default:
		return "N/A"
	}
}

func yenField(doc models.CanonicalListing, key string) string {
	switch v := doc[key].(type) {
	case int64:
		return fmt.Sprintf("¥%d", v)
	case float64:
		return fmt.Sprintf("¥%.0f", v)
	default:
		return "Please inquire"
	}
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
