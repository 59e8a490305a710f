package flume

import (
	"context"
	"strings"
	"sync"
	"time"

	"flume-exporter/internal/logger"
	"flume-exporter/internal/models"

	"github.com/go-resty/resty/v2"
)

// expiryMargin is how long before the real expiry a cached token is treated
// as stale, so a token never expires mid-request.
const expiryMargin = 60 * time.Second

// TokenManager owns the OAuth2 token pair for the Flume API. It hands out a
// currently-valid access token, logging in or refreshing when the cached one
// is absent or about to expire. Nothing is persisted across restarts.
type TokenManager struct {
	creds models.Credentials
	http  *resty.Client

	mu    sync.Mutex
	token models.Token
}

// NewTokenManager creates a TokenManager talking to the given base URL.
func NewTokenManager(creds models.Credentials, baseURL string, timeout time.Duration) *TokenManager {
	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout)

	return &TokenManager{
		creds: creds,
		http:  client,
	}
}

// AccessToken returns a valid access token, performing a blocking refresh or
// login when the cached token is missing or within the expiry margin.
// Concurrent callers serialize on the manager's lock.
func (m *TokenManager) AccessToken(ctx context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.token.ValidUntil(time.Now(), expiryMargin) {
		return m.token.AccessToken, nil
	}

	if m.token.RefreshToken != "" {
		err := m.refresh(ctx)
		if err == nil {
			return m.token.AccessToken, nil
		}
		logger.Warnf("Token refresh failed, falling back to full login: %v", err)
	}

	if err := m.login(ctx); err != nil {
		return "", err
	}
	return m.token.AccessToken, nil
}

// Invalidate drops the cached token so the next AccessToken call performs a
// fresh authentication. Called by the API client after a 401 on a data call.
func (m *TokenManager) Invalidate() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.token = models.Token{}
}

// login performs the OAuth2 password grant. Caller must hold the lock.
func (m *TokenManager) login(ctx context.Context) error {
	return m.grant(ctx, "login", map[string]string{
		"grant_type":    "password",
		"client_id":     m.creds.ClientID,
		"client_secret": m.creds.ClientSecret,
		"username":      m.creds.Username,
		"password":      m.creds.Password,
	})
}

// refresh exchanges the cached refresh token for a new pair. Caller must
// hold the lock.
func (m *TokenManager) refresh(ctx context.Context) error {
	return m.grant(ctx, "refresh", map[string]string{
		"grant_type":    "refresh_token",
		"client_id":     m.creds.ClientID,
		"client_secret": m.creds.ClientSecret,
		"refresh_token": m.token.RefreshToken,
	})
}

func (m *TokenManager) grant(ctx context.Context, op string, form map[string]string) error {
	var tr models.TokenResponse
	resp, err := m.http.R().
		SetContext(ctx).
		SetFormData(form).
		SetResult(&tr).
		Post("/oauth2/token")
	if err != nil {
		return &models.AuthError{Op: op, Message: err.Error()}
	}
	if resp.IsError() {
		return &models.AuthError{
			Op:         op,
			StatusCode: resp.StatusCode(),
			Message:    strings.TrimSpace(string(resp.Body())),
		}
	}
	if tr.AccessToken == "" || tr.ExpiresIn <= 0 {
		return &models.AuthError{Op: op, Message: "malformed token response"}
	}

	m.token = models.Token{
		AccessToken:  tr.AccessToken,
		RefreshToken: tr.RefreshToken,
		ExpiresAt:    time.Now().Add(time.Duration(tr.ExpiresIn) * time.Second),
	}
	logger.Infof("Authenticated with the Flume API (%s), token expires in %ds", op, tr.ExpiresIn)
	return nil
}
