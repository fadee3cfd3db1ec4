package notifications

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"vnpipe/internal/services"
)

// CheckBot verifies the bot token against the current-user endpoint and
// returns the bot's username.
func CheckBot(ctx context.Context, baseURL, token string, client HTTPDoer) (string, error) {
	header := AuthorizationHeader(token)
	if header == "" {
		return "", errors.New("discord token not configured")
	}
	if client == nil {
		client = http.DefaultClient
	}
	endpoint := strings.TrimRight(strings.TrimSpace(baseURL), "/") + "/users/@me"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", fmt.Errorf("build discord auth request: %w", err)
	}
	req.Header.Set("Authorization", header)
	req.Header.Set("User-Agent", userAgent)

	resp, err := client.Do(req)
	if err != nil {
		return "", services.NewRemoteError("discord auth check", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		_, _ = io.Copy(io.Discard, resp.Body)
		return "", &services.AuthenticationError{Service: "discord", Err: errors.New("token rejected")}
	}
	if resp.StatusCode >= http.StatusBadRequest {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return "", services.NewRemoteError("discord auth check", fmt.Errorf("discord returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body))))
	}
	var me struct {
		Username string `json:"username"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&me); err != nil {
		return "", services.NewRemoteError("discord auth check", fmt.Errorf("decode user: %w", err))
	}
	return me.Username, nil
}
