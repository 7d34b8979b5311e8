package alarming

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// TelegramSender delivers chat messages through the Telegram bot API.
type TelegramSender struct {
	token  string
	client *http.Client
}

// NewTelegramSender builds a sender for the given bot token. Returns nil when
// the token is empty so callers can pass the result straight to NewExecutor.
func NewTelegramSender(token string) *TelegramSender {
	if token == "" {
		return nil
	}
	return &TelegramSender{
		token:  token,
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

type telegramResponse struct {
	OK          bool   `json:"ok"`
	Description string `json:"description"`
	Result      struct {
		MessageID int64 `json:"message_id"`
	} `json:"result"`
}

// SendMessage posts text to the destination chat id and returns the message id
// assigned by the API.
func (s *TelegramSender) SendMessage(ctx context.Context, destination, text string) (string, error) {
	endpoint := fmt.Sprintf("https://api.telegram.org/bot%s/sendMessage", s.token)
	form := url.Values{}
	form.Set("chat_id", destination)
	form.Set("text", text)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("failed to build telegram request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("telegram request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	var parsed telegramResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("failed to decode telegram response: %w", err)
	}
	if !parsed.OK {
		if parsed.Description != "" {
			return "", fmt.Errorf("telegram rejected message: %s", parsed.Description)
		}
		return "", fmt.Errorf("telegram rejected message with status %d", resp.StatusCode)
	}
	return fmt.Sprintf("%d", parsed.Result.MessageID), nil
}
