// Package api is the HTTP client for the ticket backend.
package api

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/Joseda-hg/lazyticket/internal/model"
	"github.com/go-playground/validator/v10"
)

// Client talks to the ticket backend. It is safe for concurrent use.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
	validate   *validator.Validate
	now        func() time.Time

	mu    sync.RWMutex
	token string
}

// Option is a function that configures the Client.
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(client *Client) {
		client.httpClient = c
	}
}

// WithTimeout sets the HTTP client timeout.
func WithTimeout(d time.Duration) Option {
	return func(client *Client) {
		client.httpClient.Timeout = d
	}
}

// WithToken sets the bearer token sent on authenticated calls.
func WithToken(token string) Option {
	return func(client *Client) {
		client.token = token
	}
}

// WithLogger sets the logger used for request tracing.
func WithLogger(logger *slog.Logger) Option {
	return func(client *Client) {
		client.logger = logger
	}
}

// NewClient creates a backend client rooted at baseURL
// (e.g. "http://localhost:5000").
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		logger:   slog.Default(),
		validate: newValidator(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SetToken replaces the bearer token, e.g. after login or logout.
func (c *Client) SetToken(token string) {
	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
}

func (c *Client) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

// Login exchanges credentials for an access token. The client keeps using
// the returned token for later calls.
func (c *Client) Login(ctx context.Context, creds Credentials) (*LoginResult, error) {
	creds.normalize()
	if err := check(c.validate, creds); err != nil {
		return nil, err
	}

	var result LoginResult
	if err := c.doRequest(ctx, http.MethodPost, "/auth/login", false, creds, &result); err != nil {
		return nil, fmt.Errorf("login: %w", err)
	}
	if result.AccessToken == "" {
		return nil, fmt.Errorf("login: response carried no access token")
	}
	c.SetToken(result.AccessToken)
	return &result, nil
}

// Register creates an account.
func (c *Client) Register(ctx context.Context, input RegisterInput) error {
	input.normalize()
	if err := check(c.validate, input); err != nil {
		return err
	}
	if err := c.doRequest(ctx, http.MethodPost, "/auth/register", false, input, nil); err != nil {
		return fmt.Errorf("register: %w", err)
	}
	return nil
}

// RegisterPushToken tells the backend where to deliver notifications for
// this user.
func (c *Client) RegisterPushToken(ctx context.Context, token string) error {
	if strings.TrimSpace(token) == "" {
		return fmt.Errorf("%w: push token is required", ErrValidation)
	}
	if err := c.doRequest(ctx, http.MethodPost, "/auth/register_token", true, pushTokenPayload{Token: token}, nil); err != nil {
		return fmt.Errorf("register push token: %w", err)
	}
	return nil
}

// ListTickets returns every ticket of the logged-in user in server order,
// without images.
func (c *Client) ListTickets(ctx context.Context) ([]model.Ticket, error) {
	var payload []ticketPayload
	if err := c.doRequest(ctx, http.MethodGet, "/tickets", true, nil, &payload); err != nil {
		return nil, fmt.Errorf("list tickets: %w", err)
	}

	result := make([]model.Ticket, 0, len(payload))
	for _, p := range payload {
		result = append(result, p.toModel())
	}
	return result, nil
}

// GetTicket fetches one ticket without its image.
func (c *Client) GetTicket(ctx context.Context, id int64) (model.Ticket, error) {
	var payload ticketPayload
	if err := c.doRequest(ctx, http.MethodGet, fmt.Sprintf("/ticket/%d", id), true, nil, &payload); err != nil {
		return model.Ticket{}, fmt.Errorf("get ticket %d: %w", id, err)
	}
	return payload.toModel(), nil
}

// GetTicketImage fetches and decodes the photo attached to a ticket.
func (c *Client) GetTicketImage(ctx context.Context, id int64) ([]byte, error) {
	var payload imagePayload
	if err := c.doRequest(ctx, http.MethodGet, fmt.Sprintf("/ticket/%d/image", id), true, nil, &payload); err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNoImage
		}
		return nil, fmt.Errorf("get ticket image %d: %w", id, err)
	}
	if payload.ImageBase64 == "" {
		return nil, ErrNoImage
	}

	data, err := base64.StdEncoding.DecodeString(payload.ImageBase64)
	if err != nil {
		return nil, fmt.Errorf("decode ticket image %d: %w", id, err)
	}
	return data, nil
}

// CreateTicket uploads a new ticket and returns the id assigned by the server.
func (c *Client) CreateTicket(ctx context.Context, input NewTicket) (int64, error) {
	input.normalize()
	if err := check(c.validate, input); err != nil {
		return 0, err
	}

	body := uploadPayload{
		ticketPayload: ticketPayload{
			Date:          input.Date,
			Time:          input.Time,
			VehicleNumber: input.LicensePlate,
			Location:      input.Location,
		},
		UploadedAt: c.now().Format(time.DateTime),
	}
	if len(input.Image) > 0 {
		encoded := base64.StdEncoding.EncodeToString(input.Image)
		body.ImageBase64 = &encoded
	}

	var result CreateResult
	if err := c.doRequest(ctx, http.MethodPost, "/ticket", true, body, &result); err != nil {
		return 0, fmt.Errorf("create ticket: %w", err)
	}
	return result.ID, nil
}

// DeleteTicket removes a ticket on the server.
func (c *Client) DeleteTicket(ctx context.Context, id int64) error {
	if err := c.doRequest(ctx, http.MethodDelete, fmt.Sprintf("/ticket/%d", id), true, nil, nil); err != nil {
		return fmt.Errorf("delete ticket %d: %w", id, err)
	}
	return nil
}

// doRequest performs an HTTP request and decodes the response.
func (c *Client) doRequest(ctx context.Context, method, path string, auth bool, body any, result any) error {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if auth {
		req.Header.Set("Authorization", "Bearer "+c.Token())
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn("request failed", "method", method, "path", path, "error", err)
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	c.logger.Debug("request",
		"method", method,
		"path", path,
		"status", resp.StatusCode,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &Error{Status: resp.StatusCode}
		var msg messagePayload
		if json.Unmarshal(respBody, &msg) == nil {
			apiErr.Message = msg.Message
		}
		return apiErr
	}

	if result == nil || len(bytes.TrimSpace(respBody)) == 0 {
		return nil
	}

	if err := json.Unmarshal(respBody, result); err != nil {
		return fmt.Errorf("unmarshal response: %w", err)
	}
	return nil
}
