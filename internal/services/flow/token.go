package flow

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"vnpipe/internal/services"
)

const tokenRefreshLeeway = time.Minute

// TokenManager obtains and caches the script access token.
type TokenManager struct {
	baseURL    string
	scriptName string
	apiKey     string
	client     HTTPDoer
	now        func() time.Time

	mu        sync.Mutex
	token     string
	expiresAt time.Time
	leeway    time.Duration
}

// NewTokenManager returns a manager for the script credentials. No request
// is made until Token is first called.
func NewTokenManager(baseURL, scriptName, apiKey string, client HTTPDoer) *TokenManager {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &TokenManager{
		baseURL:    strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		scriptName: scriptName,
		apiKey:     apiKey,
		client:     client,
		now:        time.Now,
	}
}

type tokenResponse struct {
	TokenType   string `json:"token_type"`
	AccessToken string `json:"access_token"`
	ExpiresIn   int    `json:"expires_in"`
}

// Token returns a bearer token valid for at least the refresh leeway.
func (m *TokenManager) Token(ctx context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.token != "" && m.now().Add(m.leeway).Before(m.expiresAt) {
		return m.token, nil
	}

	token, lifetime, err := m.fetch(ctx)
	if err != nil {
		return "", &services.AuthenticationError{Service: "flow", Err: err}
	}
	m.token = token
	m.expiresAt = m.now().Add(lifetime)
	m.leeway = refreshLeeway(lifetime)
	return m.token, nil
}

// Invalidate drops the cached token so the next call re-authenticates.
func (m *TokenManager) Invalidate() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.token = ""
	m.expiresAt = time.Time{}
}

// refreshLeeway is a quarter of the token lifetime, capped at
// tokenRefreshLeeway.
func refreshLeeway(lifetime time.Duration) time.Duration {
	return min(tokenRefreshLeeway, lifetime/4)
}

func (m *TokenManager) fetch(ctx context.Context) (string, time.Duration, error) {
	if m.baseURL == "" || m.scriptName == "" || m.apiKey == "" {
		return "", 0, errors.New("script credentials not configured")
	}
	form := url.Values{}
	form.Set("grant_type", "client_credentials")
	form.Set("client_id", m.scriptName)
	form.Set("client_secret", m.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.baseURL+"/api/v1/auth/access_token", strings.NewReader(form.Encode()))
	if err != nil {
		return "", 0, fmt.Errorf("build token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := m.client.Do(req)
	if err != nil {
		return "", 0, fmt.Errorf("token request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return "", 0, fmt.Errorf("token request returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	var payload tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", 0, fmt.Errorf("decode token response: %w", err)
	}
	if payload.AccessToken == "" {
		return "", 0, errors.New("token response missing access_token")
	}
	expires := payload.ExpiresIn
	if expires <= 0 {
		expires = 600
	}
	return payload.AccessToken, time.Duration(expires) * time.Second, nil
}
