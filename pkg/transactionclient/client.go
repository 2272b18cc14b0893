/**
 * @description
 * Client for communicating with the transaction-service, which keeps the durable
 * record of every deposit and withdrawal.
 */
package transactionclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/achumpitazy/bootcamp-bankaccounts/internal/domain"
)

// Client is a client for the transaction service.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a new transaction service client.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL:    strings.TrimSuffix(strings.TrimSpace(baseURL), "/"),
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
}

// CreateTransaction records a completed movement.
func (c *Client) CreateTransaction(ctx context.Context, record domain.TransactionRecord) error {
	if c.baseURL == "" {
		return fmt.Errorf("transaction service base URL is not configured")
	}

	body, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal transaction payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/transaction", bytes.NewBuffer(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to execute request to transaction service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("transaction service returned error status %d: %s", resp.StatusCode, string(respBody))
	}

	return nil
}
