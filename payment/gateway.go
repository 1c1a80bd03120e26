// Package payment talks to the hosted-checkout payment gateway: customer and
// checkout-session creation over its REST API, and verification of the
// signed events it posts back.
package payment

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"coursehub/logger"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
)

// Gateway is the subset of the payment provider the checkout flow needs.
type Gateway interface {
	CreateCustomer(ctx context.Context, params CustomerParams) (string, error)
	CreateCheckoutSession(ctx context.Context, params SessionParams) (*Session, error)
}

type CustomerParams struct {
	Email  string
	Name   string
	UserID uuid.UUID
}

type SessionParams struct {
	CustomerID string
	PriceID    string
	SuccessURL string
	CancelURL  string
	Metadata   map[string]string
}

type Session struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

// GatewayError is an error reported by the gateway itself. Its message is
// safe to show to the user.
type GatewayError struct {
	StatusCode int
	Type       string `json:"type"`
	Code       string `json:"code"`
	Message    string `json:"message"`
}

func (e *GatewayError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("payment gateway: %s (%s, status %d)", e.Message, e.Code, e.StatusCode)
	}
	return fmt.Sprintf("payment gateway: %s (status %d)", e.Message, e.StatusCode)
}

type errorEnvelope struct {
	Error GatewayError `json:"error"`
}

// Client is the resty-backed Gateway.
type Client struct {
	http *resty.Client
	log  *logger.Logger
}

func NewClient(baseURL, secretKey string, timeout time.Duration, baseLog *logger.Logger) *Client {
	httpClient := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetBasicAuth(secretKey, "").
		SetHeader("Accept", "application/json")
	return &Client{http: httpClient, log: baseLog.With("component", "PaymentGateway")}
}

// CreateCustomer registers the user with the gateway. The request carries an
// idempotency key derived from the user id, so concurrent or retried calls
// for the same user resolve to one gateway customer.
func (c *Client) CreateCustomer(ctx context.Context, params CustomerParams) (string, error) {
	var out struct {
		ID string `json:"id"`
	}
	form := map[string]string{
		"email":            params.Email,
		"name":             params.Name,
		"metadata[userId]": params.UserID.String(),
	}
	if err := c.post(ctx, "/v1/customers", "customer-"+params.UserID.String(), form, &out); err != nil {
		return "", err
	}
	if out.ID == "" {
		return "", fmt.Errorf("payment gateway: customer response without id")
	}
	c.log.Info("gateway customer created", "user_id", params.UserID, "customer_id", out.ID)
	return out.ID, nil
}

// CreateCheckoutSession opens a one-time payment session for a single price.
func (c *Client) CreateCheckoutSession(ctx context.Context, params SessionParams) (*Session, error) {
	form := map[string]string{
		"customer":                params.CustomerID,
		"mode":                    "payment",
		"line_items[0][price]":    params.PriceID,
		"line_items[0][quantity]": "1",
		"success_url":             params.SuccessURL,
		"cancel_url":              params.CancelURL,
	}
	for k, v := range params.Metadata {
		form["metadata["+k+"]"] = v
	}

	var out Session
	if err := c.post(ctx, "/v1/checkout/sessions", "", form, &out); err != nil {
		return nil, err
	}
	if out.URL == "" {
		return nil, fmt.Errorf("payment gateway: session response without url")
	}
	return &out, nil
}

func (c *Client) post(ctx context.Context, path, idempotencyKey string, form map[string]string, result interface{}) error {
	var apiErr errorEnvelope
	req := c.http.R().
		SetContext(ctx).
		SetFormData(form).
		SetResult(result).
		SetError(&apiErr)
	if idempotencyKey != "" {
		req.SetHeader("Idempotency-Key", idempotencyKey)
	}

	resp, err := req.Post(path)
	if err != nil {
		return fmt.Errorf("payment gateway %s: %w", path, err)
	}
	if resp.IsError() {
		gwErr := apiErr.Error
		gwErr.StatusCode = resp.StatusCode()
		if gwErr.Message == "" {
			gwErr.Message = http.StatusText(resp.StatusCode())
		}
		c.log.Warn("gateway request rejected", "path", path, "status", resp.StatusCode(), "code", gwErr.Code)
		return &gwErr
	}
	return nil
}
