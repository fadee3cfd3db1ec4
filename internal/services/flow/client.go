package flow

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"vnpipe/internal/config"
	"vnpipe/internal/logging"
	"vnpipe/internal/services"
)

const (
	arrayFilterContentType = "application/vnd+shotgun.api3_array+json"
	defaultPageSize        = 500
)

// HTTPDoer describes the HTTP client used by the tracker client.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Option customises Client construction.
type Option func(*Client)

// WithHTTPClient overrides the HTTP client used for API calls and uploads.
func WithHTTPClient(client HTTPDoer) Option {
	return func(c *Client) {
		c.http = client
	}
}

// WithLogger sets the logger for request diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithPageSize overrides the search page size (used in tests).
func WithPageSize(size int) Option {
	return func(c *Client) {
		if size > 0 {
			c.pageSize = size
		}
	}
}

// Client talks to the tracker REST API.
type Client struct {
	baseURL   string
	userEmail string
	http      HTTPDoer
	tokens    *TokenManager
	logger    *slog.Logger
	pageSize  int
	timeout   time.Duration
}

// New builds a client from the tracker section of cfg. It fails with a
// configuration error when credentials are missing.
func New(cfg *config.Config, opts ...Option) (*Client, error) {
	if cfg == nil {
		return nil, services.Wrap(services.ErrConfiguration, "flow", "init", "config is nil", nil)
	}
	if err := cfg.RequireFlow(); err != nil {
		return nil, err
	}
	timeout := time.Duration(cfg.Flow.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	c := &Client{
		baseURL:   strings.TrimRight(cfg.Flow.URL, "/"),
		userEmail: cfg.Flow.UserEmail,
		http:      &http.Client{},
		pageSize:  defaultPageSize,
		timeout:   timeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = logging.NewComponentLogger(c.logger, "flow")
	c.tokens = NewTokenManager(c.baseURL, cfg.Flow.ScriptName, cfg.Flow.APIKey, c.http)
	return c, nil
}

// UserEmail returns the configured operating user.
func (c *Client) UserEmail() string { return c.userEmail }

// CheckAuth obtains an access token without making any other request.
func (c *Client) CheckAuth(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	_, err := c.tokens.Token(ctx)
	return err
}

type searchRequest struct {
	Filters []Filter `json:"filters"`
}

type listResponse struct {
	Data []resource `json:"data"`
}

type singleResponse struct {
	Data resource `json:"data"`
}

// Find returns every entity of entityType matching filters.
func (c *Client) Find(ctx context.Context, entityType string, filters []Filter, fields []string) ([]Record, error) {
	var out []Record
	for page := 1; ; page++ {
		batch, err := c.search(ctx, entityType, filters, fields, page, c.pageSize)
		if err != nil {
			return nil, err
		}
		out = append(out, batch...)
		if len(batch) < c.pageSize {
			return out, nil
		}
	}
}

// FindOne returns the first matching entity. The boolean is false when
// nothing matched.
func (c *Client) FindOne(ctx context.Context, entityType string, filters []Filter, fields []string) (Record, bool, error) {
	batch, err := c.search(ctx, entityType, filters, fields, 1, 1)
	if err != nil {
		return Record{}, false, err
	}
	if len(batch) == 0 {
		return Record{}, false, nil
	}
	return batch[0], true, nil
}

func (c *Client) search(ctx context.Context, entityType string, filters []Filter, fields []string, page, size int) ([]Record, error) {
	op := "find " + entityType
	if filters == nil {
		filters = []Filter{}
	}
	body, err := json.Marshal(searchRequest{Filters: filters})
	if err != nil {
		return nil, fmt.Errorf("encode %s filters: %w", entityType, err)
	}
	query := url.Values{}
	if len(fields) > 0 {
		query.Set("fields", strings.Join(fields, ","))
	}
	query.Set("page[number]", strconv.Itoa(page))
	query.Set("page[size]", strconv.Itoa(size))
	endpoint := fmt.Sprintf("%s/api/v1/entity/%s/_search?%s", c.baseURL, entityPath(entityType), query.Encode())

	var payload listResponse
	if err := c.do(ctx, op, http.MethodPost, endpoint, arrayFilterContentType, bytes.NewReader(body), &payload); err != nil {
		return nil, err
	}
	records := make([]Record, 0, len(payload.Data))
	for _, res := range payload.Data {
		rec, err := res.record()
		if err != nil {
			return nil, services.NewRemoteError(op, err)
		}
		records = append(records, rec)
	}
	return records, nil
}

// Create creates an entity and returns it as stored.
func (c *Client) Create(ctx context.Context, entityType string, data map[string]any) (Record, error) {
	op := "create " + entityType
	body, err := json.Marshal(data)
	if err != nil {
		return Record{}, fmt.Errorf("encode %s: %w", entityType, err)
	}
	endpoint := fmt.Sprintf("%s/api/v1/entity/%s", c.baseURL, entityPath(entityType))
	var payload singleResponse
	if err := c.do(ctx, op, http.MethodPost, endpoint, "application/json", bytes.NewReader(body), &payload); err != nil {
		return Record{}, err
	}
	rec, err := payload.Data.record()
	if err != nil {
		return Record{}, services.NewRemoteError(op, err)
	}
	if rec.ID == 0 {
		return Record{}, services.NewRemoteError(op, errors.New("response carried no id"))
	}
	c.logger.Debug("entity created",
		logging.String("entity_type", entityType),
		logging.Int("entity_id", rec.ID),
	)
	return rec, nil
}

type uploadInfo struct {
	Data  json.RawMessage `json:"data"`
	Links struct {
		Upload         string `json:"upload"`
		CompleteUpload string `json:"complete_upload"`
	} `json:"links"`
}

// Upload attaches the file at path to the given field of an entity.
func (c *Client) Upload(ctx context.Context, entityType string, id int, field, path string) error {
	op := "upload " + entityType + "." + field
	file, err := os.Open(path)
	if err != nil {
		return services.Wrap(services.ErrValidation, "flow", "upload", "open file", err)
	}
	defer file.Close()
	info, err := file.Stat()
	if err != nil {
		return services.Wrap(services.ErrValidation, "flow", "upload", "stat file", err)
	}
	name := filepath.Base(path)

	query := url.Values{}
	query.Set("filename", name)
	endpoint := fmt.Sprintf("%s/api/v1/entity/%s/%d/%s/_upload?%s", c.baseURL, entityPath(entityType), id, field, query.Encode())
	var target uploadInfo
	if err := c.do(ctx, op, http.MethodGet, endpoint, "", nil, &target); err != nil {
		return err
	}
	if target.Links.Upload == "" || target.Links.CompleteUpload == "" {
		return services.NewRemoteError(op, errors.New("upload response missing links"))
	}

	if err := c.put(ctx, op, c.absolute(target.Links.Upload), file, info.Size()); err != nil {
		return err
	}

	complete, err := json.Marshal(map[string]any{
		"upload_info": target.Data,
		"upload_data": map[string]string{"display_name": name},
	})
	if err != nil {
		return fmt.Errorf("encode upload completion: %w", err)
	}
	if err := c.do(ctx, op, http.MethodPost, c.absolute(target.Links.CompleteUpload), "application/json", bytes.NewReader(complete), nil); err != nil {
		return err
	}
	c.logger.Info("file uploaded",
		logging.String("entity_type", entityType),
		logging.Int("entity_id", id),
		logging.String("field", field),
		logging.String("file", name),
		logging.Int64("bytes", info.Size()),
	)
	return nil
}

func (c *Client) absolute(link string) string {
	if strings.HasPrefix(link, "http://") || strings.HasPrefix(link, "https://") {
		return link
	}
	return c.baseURL + "/" + strings.TrimLeft(link, "/")
}

// put streams the file to upload storage. Upload URLs on the tracker's own
// host take the bearer token; presigned storage URLs must not. The transfer
// is bounded by ctx only, not by the API request timeout.
func (c *Client) put(ctx context.Context, op, target string, body io.Reader, size int64) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, target, body)
	if err != nil {
		return fmt.Errorf("build upload request: %w", err)
	}
	req.ContentLength = size
	req.Header.Set("Content-Type", "application/octet-stream")
	if strings.HasPrefix(target, c.baseURL) {
		tokenCtx, cancel := context.WithTimeout(ctx, c.timeout)
		token, err := c.tokens.Token(tokenCtx)
		cancel()
		if err != nil {
			return err
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return services.NewRemoteError(op, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= http.StatusMultipleChoices {
		return services.NewRemoteError(op, statusError(resp))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

// do performs one API call, token grant included, within the request timeout.
func (c *Client) do(ctx context.Context, op, method, endpoint, contentType string, body io.Reader, out any) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	token, err := c.tokens.Token(ctx)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return fmt.Errorf("build %s request: %w", op, err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	started := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return services.NewRemoteError(op, err)
	}
	defer resp.Body.Close()
	logging.WithContext(ctx, c.logger).Debug("tracker request",
		logging.String("op", op),
		logging.Int("status", resp.StatusCode),
		logging.Duration("elapsed", time.Since(started)),
	)

	if resp.StatusCode == http.StatusUnauthorized {
		c.tokens.Invalidate()
		return &services.AuthenticationError{Service: "flow", Err: statusError(resp)}
	}
	if resp.StatusCode >= http.StatusMultipleChoices {
		return services.NewRemoteError(op, statusError(resp))
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return services.NewRemoteError(op, fmt.Errorf("decode response: %w", err))
	}
	return nil
}

type apiErrors struct {
	Errors []struct {
		Status int    `json:"status"`
		Title  string `json:"title"`
		Detail string `json:"detail"`
	} `json:"errors"`
}

func statusError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	var parsed apiErrors
	if json.Unmarshal(body, &parsed) == nil && len(parsed.Errors) > 0 {
		first := parsed.Errors[0]
		msg := strings.TrimSpace(first.Title)
		if first.Detail != "" {
			msg = strings.TrimSpace(msg + ": " + first.Detail)
		}
		return fmt.Errorf("status %d: %s", resp.StatusCode, msg)
	}
	return fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
}
