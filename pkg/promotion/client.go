// Package promotion is the HTTP adapter for the external coupon pricing service.
package promotion

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

	pkgerrors "github.com/angelmondragon/cartd/pkg/errors"
	"github.com/angelmondragon/cartd/pkg/money"
	"github.com/shopspring/decimal"
)

const (
	discountPath                = "v1/coupons/discount"
	defaultTimeout              = 3 * time.Second
	responseBodyReadLimit int64 = 1024
)

var errBaseURLRequired = errors.New("promotion base url is required")

// Line is one cart line as seen by the promotion service.
type Line struct {
	ProductID string          `json:"product_id,omitempty"`
	SkuID     string          `json:"sku_id"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

// Snapshot is the cart state a coupon is priced against.
type Snapshot struct {
	ClientID   string          `json:"client_id,omitempty"`
	CustomerID string          `json:"customer_id,omitempty"`
	Quantity   int             `json:"quantity"`
	Subtotal   decimal.Decimal `json:"subtotal"`
	Lines      []Line          `json:"lines"`
}

// Client calls the promotion service.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
}

// Option configures optional client behavior.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithAPIKey sets the key sent in the X-Api-Key header.
func WithAPIKey(key string) Option {
	return func(c *Client) {
		c.apiKey = strings.TrimSpace(key)
	}
}

// WithTimeout overrides the request timeout of the default HTTP client.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.httpClient.Timeout = timeout
		}
	}
}

// NewClient builds a promotion client rooted at baseURL.
func NewClient(baseURL string, opts ...Option) (*Client, error) {
	trimmed := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if trimmed == "" {
		return nil, errBaseURLRequired
	}

	client := &Client{
		baseURL:    trimmed,
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}
	return client, nil
}

type discountRequest struct {
	Code string   `json:"code"`
	Cart Snapshot `json:"cart"`
}

type discountResponse struct {
	DiscountAmount decimal.Decimal `json:"discount_amount"`
}

type errorResponse struct {
	Message string `json:"message"`
}

// CouponDiscount asks the promotion service for the discount code grants on snapshot.
// Rejections (4xx) are validation errors; transport failures and 5xx are dependency errors.
func (c *Client) CouponDiscount(ctx context.Context, snapshot Snapshot, code string) (decimal.Decimal, error) {
	if c == nil {
		return decimal.Zero, pkgerrors.New(pkgerrors.CodeDependency, "promotion client not configured")
	}
	code = strings.TrimSpace(code)
	if code == "" {
		return decimal.Zero, pkgerrors.New(pkgerrors.CodeValidation, "coupon code is required")
	}

	payload, err := json.Marshal(discountRequest{Code: code, Cart: snapshot})
	if err != nil {
		return decimal.Zero, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "marshal coupon request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/"+discountPath, bytes.NewReader(payload))
	if err != nil {
		return decimal.Zero, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "build coupon request")
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("X-Api-Key", c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return decimal.Zero, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "execute coupon request")
	}
	defer func() { _ = resp.Body.Close() }()

	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		return decimal.Zero, pkgerrors.New(pkgerrors.CodeValidation, rejectionMessage(resp.Body)).
			WithDetails(map[string]any{"coupon": code, "status": resp.StatusCode})
	default:
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, responseBodyReadLimit))
		return decimal.Zero, pkgerrors.Wrap(pkgerrors.CodeDependency, fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg))), "coupon request failed")
	}

	var body discountResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, responseBodyReadLimit)).Decode(&body); err != nil {
		return decimal.Zero, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode coupon response")
	}

	amount := money.NonNegative(body.DiscountAmount)
	if amount.GreaterThan(snapshot.Subtotal) && snapshot.Subtotal.IsPositive() {
		amount = snapshot.Subtotal
	}
	return amount.Round(money.Scale), nil
}

func rejectionMessage(body io.Reader) string {
	raw, _ := io.ReadAll(io.LimitReader(body, responseBodyReadLimit))
	var parsed errorResponse
	if err := json.Unmarshal(raw, &parsed); err == nil && strings.TrimSpace(parsed.Message) != "" {
		return parsed.Message
	}
	return "coupon is not applicable"
}
