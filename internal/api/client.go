// Package api is the client side of the store's order and payment API.
package api

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

	"tokocheckout/internal/models"
	"tokocheckout/pkg/logger"

	"github.com/sony/gobreaker/v2"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// Config configures a Client.
type Config struct {
	BaseURL    string
	Timeout    time.Duration
	SessionKey string
}

// Client talks JSON over HTTP to the store API. Every call goes through a
// circuit breaker that only counts network and server failures.
type Client struct {
	baseURL    string
	sessionKey string
	httpClient *http.Client
	tokens     TokenStore
	breaker    *gobreaker.CircuitBreaker[*response]
	logger     *zap.Logger
	now        func() time.Time

	// statusChecks joins concurrent status checks of the same payment.
	statusChecks singleflight.Group
}

type response struct {
	status int
	body   []byte
}

// errorBody is the error envelope returned by the store API.
type errorBody struct {
	Message string `json:"message"`
	Error   string `json:"error"`
}

// NewClient creates a Client that keeps its bearer token in tokens.
func NewClient(cfg Config, tokens TokenStore, log *zap.Logger) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	sessionKey := cfg.SessionKey
	if sessionKey == "" {
		sessionKey = "default"
	}
	l := logger.OrNop(log)

	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		sessionKey: sessionKey,
		httpClient: &http.Client{Timeout: timeout},
		tokens:     tokens,
		breaker: gobreaker.NewCircuitBreaker[*response](gobreaker.Settings{
			Name:        "store-api",
			MaxRequests: 1,
			Interval:    time.Minute,
			Timeout:     10 * time.Second,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= 5
			},
			IsSuccessful: isBreakerSuccess,
			OnStateChange: func(name string, from, to gobreaker.State) {
				l.Warn("circuit breaker state changed",
					zap.String("breaker", name),
					zap.String("from", from.String()),
					zap.String("to", to.String()))
			},
		}),
		logger: l,
		now:    time.Now,
	}
}

func isBreakerSuccess(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return true
	}
	kind := models.KindOf(err)
	return kind != models.KindNetwork && kind != models.KindServer
}

type request struct {
	op      string
	method  string
	path    string
	body    interface{}
	headers map[string]string
	auth    bool
}

// do sends req and decodes a 2xx body into out. Non-2xx responses become
// *models.Error values tagged with the matching kind.
func (c *Client) do(ctx context.Context, req request, out interface{}) error {
	var token string
	if req.auth {
		var err error
		if token, err = c.bearer(ctx, req.op); err != nil {
			return err
		}
	}

	var payload []byte
	if req.body != nil {
		var err error
		if payload, err = json.Marshal(req.body); err != nil {
			return fmt.Errorf("failed to marshal %s request: %w", req.op, err)
		}
	}

	resp, err := c.breaker.Execute(func() (*response, error) {
		return c.send(ctx, req, token, payload)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return models.NewError(models.KindNetwork, req.op, "store is unavailable, try again shortly", err)
		}
		return err
	}

	switch {
	case resp.status >= 200 && resp.status < 300:
		if out == nil || len(resp.body) == 0 {
			return nil
		}
		if err := json.Unmarshal(resp.body, out); err != nil {
			return models.NewError(models.KindServer, req.op, "unexpected response", err)
		}
		return nil
	case resp.status == http.StatusUnauthorized:
		if req.auth {
			c.clearToken(ctx, req.op)
			return models.NewError(models.KindSessionExpired, req.op, "session expired, please log in again", nil)
		}
		return models.NewError(models.KindValidation, req.op, serverMessage(resp, "invalid credentials"), nil)
	case resp.status == http.StatusBadRequest || resp.status == http.StatusUnprocessableEntity:
		return models.NewError(models.KindValidation, req.op, serverMessage(resp, "request was rejected"), nil)
	case resp.status == http.StatusNotFound:
		return models.NewError(models.KindNotFound, req.op, serverMessage(resp, "not found"), nil)
	case resp.status == http.StatusConflict:
		return models.NewError(models.KindConflict, req.op, serverMessage(resp, "conflict"), nil)
	}
	return models.NewError(models.KindUnknown, req.op, fmt.Sprintf("unexpected status %d: %s", resp.status, serverMessage(resp, "")), nil)
}

func (c *Client) send(ctx context.Context, req request, token string, payload []byte) (*response, error) {
	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	httpReq, err := http.NewRequestWithContext(ctx, req.method, c.baseURL+req.path, body)
	if err != nil {
		return nil, fmt.Errorf("failed to build %s request: %w", req.op, err)
	}
	httpReq.Header.Set("Accept", "application/json")
	if payload != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+token)
	}
	for k, v := range req.headers {
		httpReq.Header.Set(k, v)
	}

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, models.NewError(models.KindNetwork, req.op, "could not reach the store", err)
	}
	defer httpResp.Body.Close()

	raw, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, models.NewError(models.KindNetwork, req.op, "connection dropped while reading response", err)
	}
	resp := &response{status: httpResp.StatusCode, body: raw}

	c.logger.Debug("store api call",
		zap.String("op", req.op),
		zap.String("method", req.method),
		zap.String("path", req.path),
		zap.Int("status", resp.status))

	if resp.status >= 500 {
		return resp, models.NewError(models.KindServer, req.op, serverMessage(resp, http.StatusText(resp.status)), nil)
	}
	return resp, nil
}

func serverMessage(resp *response, fallback string) string {
	var e errorBody
	if err := json.Unmarshal(resp.body, &e); err == nil {
		if e.Message != "" {
			return e.Message
		}
		if e.Error != "" {
			return e.Error
		}
	}
	return fallback
}
