// Package ledger talks to the accounting system. Approved expenses are posted
// as journal entries and the ledger's entry id is kept on the expense as the
// sync reference.
package ledger

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/spendflow/expense-approval/internal/effects"
)

type Config struct {
	APIURL         string
	APIKey         string
	AccountMapping map[string]string
	Timeout        time.Duration
}

type Client struct {
	apiURL         string
	apiKey         string
	accountMapping map[string]string
	httpClient     *http.Client
	logger         *slog.Logger
}

func NewClient(config Config, logger *slog.Logger) *Client {
	timeout := config.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	return &Client{
		apiURL:         config.APIURL,
		apiKey:         config.APIKey,
		accountMapping: config.AccountMapping,
		httpClient:     &http.Client{Timeout: timeout},
		logger:         logger,
	}
}

// SyncExpense posts the approved expense to the ledger and returns the journal
// entry id.
func (c *Client) SyncExpense(ctx context.Context, state *effects.EffectState) (string, error) {
	payload := map[string]interface{}{
		"external_id":  fmt.Sprintf("expense-%d", state.ExpenseID),
		"amount_cents": state.AmountCents,
		"description":  state.Description,
		"account":      c.accountFor(state.Category),
	}
	if state.CostCenterID != nil {
		payload["cost_center_id"] = *state.CostCenterID
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal journal entry: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL+"/journal-entries", bytes.NewBuffer(body))
	if err != nil {
		return "", fmt.Errorf("create ledger request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("ledger request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return "", fmt.Errorf("ledger API returned status %d", resp.StatusCode)
	}

	var apiResponse struct {
		Data struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&apiResponse); err != nil {
		return "", fmt.Errorf("decode ledger response: %w", err)
	}
	if apiResponse.Data.ID == "" {
		return "", fmt.Errorf("ledger response missing entry id")
	}

	c.logger.Info("journal entry created",
		"expense_id", state.ExpenseID,
		"entry_id", apiResponse.Data.ID)

	return apiResponse.Data.ID, nil
}

// accountFor maps an expense category to a ledger account code. Unmapped
// categories land on the default account when one is configured.
func (c *Client) accountFor(category string) string {
	if account, ok := c.accountMapping[category]; ok {
		return account
	}
	if account, ok := c.accountMapping["default"]; ok {
		return account
	}
	return category
}
