package notifications

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"vnpipe/internal/config"
	"vnpipe/internal/services"
)

const userAgent = "vnpipe/0.1.0"

// Service defines the notification surface exposed to workflow components.
type Service interface {
	NotifyFlipbookPublished(ctx context.Context, project, task string) error
	NotifyAssetPublished(ctx context.Context, fileName string) error
	TestNotification(ctx context.Context) error
}

// HTTPDoer describes the HTTP client used to reach the chat API.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// NewService builds a Discord-backed service when a bot token and channel are
// configured, otherwise a noop implementation.
func NewService(cfg *config.Config) Service {
	if cfg == nil || !cfg.DiscordEnabled() {
		return noopService{}
	}
	timeout := time.Duration(cfg.Discord.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return NewDiscordService(cfg.Discord.BaseURL, cfg.Discord.Token, cfg.Discord.ChannelID, cfg.Discord.User, &http.Client{Timeout: timeout})
}

// NewDiscordService constructs a Discord service with an explicit client.
func NewDiscordService(baseURL, token, channelID, user string, client HTTPDoer) Service {
	if client == nil {
		client = http.DefaultClient
	}
	return &discordService{
		baseURL:   strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		token:     AuthorizationHeader(token),
		channelID: strings.TrimSpace(channelID),
		user:      strings.TrimSpace(user),
		client:    client,
		limiter:   rate.NewLimiter(rate.Every(time.Second), 5),
	}
}

// AuthorizationHeader returns the header value for a bot token, adding the
// "Bot " scheme unless the token already carries one.
func AuthorizationHeader(token string) string {
	token = strings.TrimSpace(token)
	if token == "" || strings.HasPrefix(token, "Bot ") || strings.HasPrefix(token, "Bearer ") {
		return token
	}
	return "Bot " + token
}

// FlipbookMessage is the announcement for a flipbook sent to review.
func FlipbookMessage(user, project, task string) string {
	return fmt.Sprintf("**%s** uploaded a new flipbook version to review of the task `%s` from the project `%s`", user, task, project)
}

// AssetMessage is the announcement for an asset version sent to review.
func AssetMessage(user, fileName string) string {
	return fmt.Sprintf("**%s** uploaded a new asset version to review`%s`", user, fileName)
}

type discordService struct {
	baseURL   string
	token     string
	channelID string
	user      string
	client    HTTPDoer
	limiter   *rate.Limiter
}

type messagePayload struct {
	Content string `json:"content"`
}

func (d *discordService) NotifyFlipbookPublished(ctx context.Context, project, task string) error {
	return d.send(ctx, FlipbookMessage(d.user, strings.TrimSpace(project), strings.TrimSpace(task)))
}

func (d *discordService) NotifyAssetPublished(ctx context.Context, fileName string) error {
	return d.send(ctx, AssetMessage(d.user, strings.TrimSpace(fileName)))
}

func (d *discordService) TestNotification(ctx context.Context) error {
	return d.send(ctx, fmt.Sprintf("🧪 vnpipe notification test from **%s**", d.user))
}

func (d *discordService) send(ctx context.Context, content string) error {
	if d == nil || d.client == nil {
		return nil
	}
	if err := d.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("discord rate limit: %w", err)
	}

	body, err := json.Marshal(messagePayload{Content: content})
	if err != nil {
		return fmt.Errorf("encode discord message: %w", err)
	}
	endpoint := fmt.Sprintf("%s/channels/%s/messages", d.baseURL, d.channelID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build discord request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", d.token)

	resp, err := d.client.Do(req)
	if err != nil {
		return services.NewRemoteError("discord send", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return &services.AuthenticationError{Service: "discord", Err: fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))}
	}
	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return services.NewRemoteError("discord send", fmt.Errorf("discord returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body))))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

type noopService struct{}

func (noopService) NotifyFlipbookPublished(context.Context, string, string) error { return nil }
func (noopService) NotifyAssetPublished(context.Context, string) error            { return nil }
func (noopService) TestNotification(context.Context) error                        { return nil }

// IsNoop reports whether svc discards every notification.
func IsNoop(svc Service) bool {
	_, ok := svc.(noopService)
	return ok
}
