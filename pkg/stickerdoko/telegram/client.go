package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

const (
	// DefaultAPIURL is the public Bot API endpoint
	DefaultAPIURL = "https://api.telegram.org"

	// SecretTokenHeader carries the secret token set with SetWebhook
	SecretTokenHeader = "X-Telegram-Bot-Api-Secret-Token"
)

// AllowedUpdates are the update kinds the bot handles
var AllowedUpdates = []string{"message", "inline_query", "chosen_inline_result"}

// Client calls Bot API methods that cannot be returned as webhook replies
type Client struct {
	token   string
	baseURL string
	http    *http.Client
}

// ClientOption configures a Client
type ClientOption func(*Client)

// WithBaseURL points the client at a different Bot API server
func WithBaseURL(u string) ClientOption {
	return func(c *Client) { c.baseURL = u }
}

// WithHTTPClient replaces the default HTTP client
func WithHTTPClient(h *http.Client) ClientOption {
	return func(c *Client) { c.http = h }
}

// NewClient creates a client authenticated with the bot token
func NewClient(token string, opts ...ClientOption) *Client {
	c := &Client{
		token:   token,
		baseURL: DefaultAPIURL,
		http:    &http.Client{Timeout: 15 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type setWebhookRequest struct {
	URL            string   `json:"url"`
	SecretToken    string   `json:"secret_token,omitempty"`
	AllowedUpdates []string `json:"allowed_updates"`
}

type apiResponse struct {
	OK          bool   `json:"ok"`
	Description string `json:"description,omitempty"`
	ErrorCode   int    `json:"error_code,omitempty"`
}

// SetWebhook registers webhookURL as the bot's update endpoint. When
// secretToken is set Telegram sends it back in every webhook request.
func (c *Client) SetWebhook(ctx context.Context, webhookURL, secretToken string) error {
	return c.call(ctx, "setWebhook", setWebhookRequest{
		URL:            webhookURL,
		SecretToken:    secretToken,
		AllowedUpdates: AllowedUpdates,
	})
}

func (c *Client) call(ctx context.Context, method string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("%s: encode request: %w", method, err)
	}

	endpoint := c.baseURL + "/bot" + c.token + "/" + method
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("%s: build request: %w", method, stripURL(err))
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w", method, stripURL(err))
	}
	defer resp.Body.Close()

	var result apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return fmt.Errorf("%s: decode response (status %d): %w", method, resp.StatusCode, err)
	}
	if !result.OK {
		return fmt.Errorf("%s: telegram error %d: %s", method, result.ErrorCode, result.Description)
	}
	return nil
}

// stripURL drops the request URL from transport errors, since it embeds the
// bot token
func stripURL(err error) error {
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return urlErr.Err
	}
	return err
}
