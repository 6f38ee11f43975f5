package notification

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"
)

// Client posts notifications to the transactional mail relay. The relay owns
// templates and delivery; this side only hands over the payload.
type Client struct {
	apiURL      string
	fromAddress string
	httpClient  *http.Client
	logger      *slog.Logger
}

type ClientConfig struct {
	APIURL      string
	FromAddress string
	Timeout     time.Duration
}

func NewClient(cfg ClientConfig, logger *slog.Logger) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		apiURL:      cfg.APIURL,
		fromAddress: cfg.FromAddress,
		httpClient:  &http.Client{Timeout: timeout},
		logger:      logger,
	}
}

func (c *Client) Notify(ctx context.Context, n Notification) error {
	payload := map[string]interface{}{
		"template":     string(n.Kind),
		"from":         c.fromAddress,
		"to":           n.RecipientEmail,
		"notification": n,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL+"/messages", bytes.NewBuffer(body))
	if err != nil {
		return fmt.Errorf("create notification request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("send notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusAccepted {
		return fmt.Errorf("notification relay returned status %d", resp.StatusCode)
	}
	return nil
}
