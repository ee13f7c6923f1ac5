package line

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const pushPath = "/v2/bot/message/push"

// ErrNotConfigured is returned when no channel access token is set.
var ErrNotConfigured = errors.New("line client not configured")

// Pusher sends messages to a LINE chat.
type Pusher interface {
	PushText(ctx context.Context, to, text string) error
}

// Client calls the Messaging API.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

// NewClient builds a client. An empty token yields a client whose pushes fail with ErrNotConfigured.
func NewClient(baseURL, token string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		http:    &http.Client{Timeout: timeout},
	}
}

type textMessage struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type pushRequest struct {
	To       string        `json:"to"`
	Messages []textMessage `json:"messages"`
}

// APIError is a non-2xx response from the Messaging API.
type APIError struct {
	Status int
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("line api returned %d: %s", e.Status, e.Body)
}

// PushText sends a single text message to a user, group or room.
func (c *Client) PushText(ctx context.Context, to, text string) error {
	if c.token == "" {
		return ErrNotConfigured
	}
	if to == "" {
		return errors.New("push target is required")
	}

	payload, err := json.Marshal(pushRequest{To: to, Messages: []textMessage{{Type: "text", Text: text}}})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+pushPath, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("push message: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return &APIError{Status: resp.StatusCode, Body: string(body)}
	}
	return nil
}
