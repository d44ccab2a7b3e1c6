package payment

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/passportpix/passportpix/internal/domain"
)

const verifiedStatus = "COMPLETED"

type Config struct {
	BaseURL      string
	ClientID     string
	ClientSecret string
	Timeout      time.Duration
}

// Client verifies captured orders against the payment provider's REST
// API. Verification is a single pass; a declined or failed order is
// reported back and never retried here.
type Client struct {
	httpClient   *http.Client
	baseURL      string
	clientID     string
	clientSecret string
}

func NewClient(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		httpClient:   &http.Client{Timeout: timeout},
		baseURL:      strings.TrimRight(cfg.BaseURL, "/"),
		clientID:     cfg.ClientID,
		clientSecret: cfg.ClientSecret,
	}
}

// VerifyOrder confirms that the provider captured the order. A
// reachable provider reporting anything but a completed order yields
// an unverified state, not an error.
func (c *Client) VerifyOrder(ctx context.Context, orderID string) (domain.PaymentState, error) {
	if err := domain.ValidateOrderID(orderID); err != nil {
		return domain.PaymentState{}, err
	}

	token, err := c.fetchAccessToken(ctx)
	if err != nil {
		return domain.PaymentState{}, fmt.Errorf("payment auth: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.baseURL+"/v2/checkout/orders/"+url.PathEscape(orderID), nil)
	if err != nil {
		return domain.PaymentState{}, fmt.Errorf("build order request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return domain.PaymentState{}, fmt.Errorf("fetch order: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return domain.PaymentState{
			Verified: false,
			OrderID:  orderID,
			Error:    "Order not found",
		}, nil
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return domain.PaymentState{}, fmt.Errorf("order lookup returned status=%d", resp.StatusCode)
	}

	var order struct {
		ID     string `json:"id"`
		Status string `json:"status"`
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&order); err != nil {
		return domain.PaymentState{}, fmt.Errorf("decode order response: %w", err)
	}

	if order.Status != verifiedStatus {
		return domain.PaymentState{
			Verified: false,
			OrderID:  orderID,
			Error:    "Status: " + order.Status,
		}, nil
	}
	return domain.PaymentState{Verified: true, OrderID: order.ID}, nil
}

func (c *Client) fetchAccessToken(ctx context.Context) (string, error) {
	body := strings.NewReader("grant_type=client_credentials")
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/oauth2/token", body)
	if err != nil {
		return "", fmt.Errorf("build token request: %w", err)
	}
	req.SetBasicAuth(c.clientID, c.clientSecret)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch token: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("token endpoint returned status=%d", resp.StatusCode)
	}

	var token struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&token); err != nil {
		return "", fmt.Errorf("decode token response: %w", err)
	}
	if token.AccessToken == "" {
		return "", fmt.Errorf("token response missing access_token")
	}
	return token.AccessToken, nil
}
