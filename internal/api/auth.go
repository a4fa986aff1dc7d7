package api

import (
	"context"
	"time"

	"tokocheckout/internal/models"

	"github.com/dgrijalva/jwt-go"
	"go.uber.org/zap"
)

// Credentials identify a customer at login.
type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Register creates a customer account.
func (c *Client) Register(ctx context.Context, username, email, password string) (*models.User, error) {
	var out struct {
		User models.User `json:"user"`
	}
	err := c.do(ctx, request{
		op:     "register",
		method: "POST",
		path:   "/auth/register",
		body:   models.User{Username: username, Email: email, Password: password},
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out.User, nil
}

// Login exchanges credentials for a token and stores it for later calls.
func (c *Client) Login(ctx context.Context, creds Credentials) error {
	var out struct {
		Token string `json:"token"`
	}
	if err := c.do(ctx, request{op: "login", method: "POST", path: "/auth/login", body: creds}, &out); err != nil {
		return err
	}
	if out.Token == "" {
		return models.NewError(models.KindServer, "login", "login response carried no token", nil)
	}
	if err := c.tokens.Set(ctx, c.sessionKey, out.Token); err != nil {
		return err
	}
	c.logger.Info("logged in", zap.String("session", c.sessionKey))
	return nil
}

// Logout forgets the stored token.
func (c *Client) Logout(ctx context.Context) error {
	return c.tokens.Delete(ctx, c.sessionKey)
}

// bearer returns the stored token, failing with a session-expired error when
// there is none or its exp claim has passed.
func (c *Client) bearer(ctx context.Context, op string) (string, error) {
	token, err := c.tokens.Get(ctx, c.sessionKey)
	if err != nil {
		return "", err
	}
	if token == "" {
		return "", models.NewError(models.KindSessionExpired, op, "not logged in", nil)
	}
	if tokenExpired(token, c.now()) {
		c.clearToken(ctx, op)
		return "", models.NewError(models.KindSessionExpired, op, "session expired, please log in again", nil)
	}
	return token, nil
}

func (c *Client) clearToken(ctx context.Context, op string) {
	if err := c.tokens.Delete(ctx, c.sessionKey); err != nil {
		c.logger.Warn("failed to clear stored token", zap.String("op", op), zap.Error(err))
	}
}

// tokenExpired reads the exp claim without verifying the signature; the
// server stays the authority on validity.
func tokenExpired(token string, now time.Time) bool {
	claims := jwt.MapClaims{}
	if _, _, err := new(jwt.Parser).ParseUnverified(token, claims); err != nil {
		return false
	}
	exp, ok := claims["exp"].(float64)
	if !ok {
		return false
	}
	return !now.Before(time.Unix(int64(exp), 0))
}
