package paystack

import (
	"context"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

const (
	// DefaultBaseURL is the production Paystack API endpoint.
	DefaultBaseURL = "https://api.paystack.co"

	defaultTimeout = 10 * time.Second
)

// InitializeRequest is the payload for POST /transaction/initialize.
// Amount is in minor currency units.
type InitializeRequest struct {
	Email       string         `json:"email"`
	Amount      int64          `json:"amount"`
	Reference   string         `json:"reference"`
	CallbackURL string         `json:"callback_url,omitempty"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}

// InitializeResponse is the provider envelope returned by initialize.
type InitializeResponse struct {
	Status  bool   `json:"status"`
	Message string `json:"message"`
	Data    struct {
		AuthorizationURL string `json:"authorization_url"`
		AccessCode       string `json:"access_code"`
		Reference        string `json:"reference"`
	} `json:"data"`
}

// TransactionData is the charge payload carried by both the verify response
// and webhook events. Amount is in minor units as reported by Paystack.
type TransactionData struct {
	ID              int64  `json:"id"`
	Reference       string `json:"reference"`
	Amount          int64  `json:"amount"`
	Status          string `json:"status"`
	GatewayResponse string `json:"gateway_response"`
	Currency        string `json:"currency"`
}

// VerifyResponse is the provider envelope returned by verify. Raw keeps the
// exact provider bytes for the audit trail.
type VerifyResponse struct {
	Status  bool            `json:"status"`
	Message string          `json:"message"`
	Data    TransactionData `json:"data"`
	Raw     json.RawMessage `json:"-"`
}

// Client is a thin Paystack HTTP client. It carries no business logic;
// failures propagate to the caller, which decides whether to re-verify.
type Client struct {
	client        *resty.Client
	secretKey     string
	webhookSecret string
}

func NewClient(baseURL, secretKey, webhookSecret string) (*Client, error) {
	client := resty.New()
	client.SetTimeout(defaultTimeout)
	client.SetRetryCount(0)

	return NewClientWithResty(baseURL, secretKey, webhookSecret, client)
}

func NewClientWithResty(baseURL, secretKey, webhookSecret string, client *resty.Client) (*Client, error) {
	trimmedBase := strings.TrimSpace(baseURL)
	if trimmedBase == "" {
		trimmedBase = DefaultBaseURL
	}
	if strings.TrimSpace(secretKey) == "" {
		return nil, fmt.Errorf("paystack secret key is required")
	}
	if client == nil {
		return nil, fmt.Errorf("resty client is required")
	}

	if client.GetClient().Timeout == 0 {
		client.SetTimeout(defaultTimeout)
	}
	client.SetRetryCount(0)
	client.SetBaseURL(strings.TrimRight(trimmedBase, "/"))
	client.SetAuthToken(secretKey)

	return &Client{
		client:        client,
		secretKey:     secretKey,
		webhookSecret: webhookSecret,
	}, nil
}

// InitializeTransaction starts a charge and returns the authorization URL
// the donor is redirected to.
func (c *Client) InitializeTransaction(ctx context.Context, req InitializeRequest) (*InitializeResponse, error) {
	if c == nil || c.client == nil {
		return nil, fmt.Errorf("paystack client is not initialized")
	}

	var out InitializeResponse
	response, err := c.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(req).
		SetResult(&out).
		Post("/transaction/initialize")
	if err != nil {
		return nil, &ProviderError{
			Message:   "initialize request failed",
			Transient: !errors.Is(err, context.Canceled),
			Cause:     err,
		}
	}

	if err := checkResponse(response); err != nil {
		return nil, err
	}
	if !out.Status {
		return nil, &ProviderError{
			StatusCode: response.StatusCode(),
			Message:    providerMessage(out.Message, "initialize rejected"),
		}
	}

	return &out, nil
}

// VerifyTransaction fetches the provider-side outcome for a reference.
func (c *Client) VerifyTransaction(ctx context.Context, reference string) (*VerifyResponse, error) {
	if c == nil || c.client == nil {
		return nil, fmt.Errorf("paystack client is not initialized")
	}
	if strings.TrimSpace(reference) == "" {
		return nil, fmt.Errorf("reference is required")
	}

	response, err := c.client.R().
		SetContext(ctx).
		SetPathParam("reference", reference).
		Get("/transaction/verify/{reference}")
	if err != nil {
		return nil, &ProviderError{
			Message:   "verify request failed",
			Transient: !errors.Is(err, context.Canceled),
			Cause:     err,
		}
	}

	if err := checkResponse(response); err != nil {
		return nil, err
	}

	raw := response.Body()
	var out VerifyResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, &ProviderError{
			StatusCode: response.StatusCode(),
			Message:    "verify response is not valid JSON",
			Cause:      err,
		}
	}
	out.Raw = append(json.RawMessage(nil), raw...)

	return &out, nil
}

// VerifySignature recomputes the HMAC-SHA512 of the exact raw body with the
// webhook secret and compares it against the supplied hex signature. It
// returns false, never an error, when the secret or signature is absent.
func (c *Client) VerifySignature(rawBody []byte, signature string) bool {
	if c == nil || c.webhookSecret == "" || strings.TrimSpace(signature) == "" {
		return false
	}

	mac := hmac.New(sha512.New, []byte(c.webhookSecret))
	mac.Write(rawBody)
	expected := hex.EncodeToString(mac.Sum(nil))

	return hmac.Equal([]byte(expected), []byte(strings.TrimSpace(signature)))
}

func checkResponse(response *resty.Response) error {
	if response == nil {
		return &ProviderError{Message: "provider returned empty response", Transient: true}
	}

	statusCode := response.StatusCode()
	if statusCode >= http.StatusOK && statusCode < http.StatusMultipleChoices {
		return nil
	}

	body := strings.TrimSpace(string(response.Body()))
	return &ProviderError{
		StatusCode: statusCode,
		Message:    providerMessage(bodyMessage(body), fmt.Sprintf("provider returned status %d", statusCode)),
		Transient:  isTransientHTTPStatus(statusCode),
	}
}

func isTransientHTTPStatus(statusCode int) bool {
	return statusCode == http.StatusTooManyRequests || (statusCode >= http.StatusInternalServerError && statusCode <= 599)
}

func providerMessage(msg, fallback string) string {
	if strings.TrimSpace(msg) == "" {
		return fallback
	}
	return msg
}

// bodyMessage pulls the provider "message" field out of an error body when
// the body is the usual JSON envelope.
func bodyMessage(body string) string {
	var envelope struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal([]byte(body), &envelope); err != nil {
		return body
	}
	if strings.TrimSpace(envelope.Message) == "" {
		return body
	}
	return envelope.Message
}
