/**
 * @description
 * This package provides a client for the customer-service. The account service only
 * needs to know whether a person or company exists and which customer type tag it
 * carries, which is copied onto new accounts.
 *
 * @dependencies
 * - context, encoding/json, fmt, io, net/http, net/url, time: Standard Go libraries.
 * - The service's internal domain package for the Customer model.
 */
package customerclient

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/achumpitazy/bootcamp-bankaccounts/internal/domain"
)

// Client is a client for the customer service.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a new customer service client.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
}

// GetPersonByID fetches a personal customer. It returns (nil, nil) when the
// customer-service does not know the id.
func (c *Client) GetPersonByID(ctx context.Context, id string) (*domain.Customer, error) {
	return c.getCustomer(ctx, "person", id)
}

// GetCompanyByID fetches a company customer. It returns (nil, nil) when the
// customer-service does not know the id.
func (c *Client) GetCompanyByID(ctx context.Context, id string) (*domain.Customer, error) {
	return c.getCustomer(ctx, "company", id)
}

func (c *Client) getCustomer(ctx context.Context, kind, id string) (*domain.Customer, error) {
	if c.baseURL == "" {
		return nil, fmt.Errorf("customer service base url is empty")
	}

	endpoint := fmt.Sprintf("%s/%s/%s", c.baseURL, kind, url.PathEscape(id))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to call customer service: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("customer service returned status %d: %s", resp.StatusCode, string(body))
	}

	// An empty body is how the customer service answers a missing id on some routes.
	if len(strings.TrimSpace(string(body))) == 0 {
		return nil, nil
	}

	var customer domain.Customer
	if err := json.Unmarshal(body, &customer); err != nil {
		return nil, fmt.Errorf("failed to parse customer response: %w", err)
	}
	if customer.ID == "" {
		customer.ID = id
	}
	return &customer, nil
}
