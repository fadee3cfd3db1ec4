package drive

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/oauth2"
	drivev3 "google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"vnpipe/internal/config"
	"vnpipe/internal/logging"
	"vnpipe/internal/services"
)

const folderMimeType = "application/vnd.google-apps.folder"

// File is an uploaded Drive file.
type File struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	WebViewLink string `json:"web_view_link"`
}

// Client wraps the Drive v3 files API.
type Client struct {
	files        *drivev3.FilesService
	assetsFolder string
	logger       *slog.Logger
}

// New builds a client authenticated with the stored user token.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Client, error) {
	if cfg == nil {
		return nil, services.Wrap(services.ErrConfiguration, "drive", "init", "config is nil", nil)
	}
	ts, err := tokenSource(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return newClient(ctx, cfg.Drive.AssetsFolder, logger, option.WithTokenSource(ts))
}

// NewWithHTTPClient builds a client against endpoint using an already
// authenticated HTTP client.
func NewWithHTTPClient(ctx context.Context, endpoint string, client *http.Client, assetsFolder string, logger *slog.Logger) (*Client, error) {
	return newClient(ctx, assetsFolder, logger, option.WithHTTPClient(client), option.WithEndpoint(endpoint))
}

func newClient(ctx context.Context, assetsFolder string, logger *slog.Logger, opts ...option.ClientOption) (*Client, error) {
	svc, err := drivev3.NewService(ctx, opts...)
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "drive", "init", "create drive service", err)
	}
	if strings.TrimSpace(assetsFolder) == "" {
		assetsFolder = "assets"
	}
	return &Client{
		files:        svc.Files,
		assetsFolder: assetsFolder,
		logger:       logging.NewComponentLogger(logger, "drive"),
	}, nil
}

// FolderID returns the id of the first file named name.
func (c *Client) FolderID(ctx context.Context, name string) (string, error) {
	query := fmt.Sprintf("name='%s'", escapeQuery(name))
	return c.first(ctx, "folder lookup", query, name)
}

// SubfolderID returns the id of the folder named name inside parentID.
func (c *Client) SubfolderID(ctx context.Context, parentID, name string) (string, error) {
	query := fmt.Sprintf("name='%s' and mimeType='%s' and '%s' in parents", escapeQuery(name), folderMimeType, escapeQuery(parentID))
	return c.first(ctx, "subfolder lookup", query, name)
}

func (c *Client) first(ctx context.Context, op, query, name string) (string, error) {
	list, err := c.files.List().Q(query).Fields("nextPageToken, files(id, name)").Context(ctx).Do()
	if err != nil {
		return "", classify(op, err)
	}
	if len(list.Files) == 0 {
		return "", services.Wrap(services.ErrNotFound, "drive", op, fmt.Sprintf("no folder named %q", name), nil)
	}
	return list.Files[0].Id, nil
}

// Upload sends dir/fileName into folderID as an opaque binary.
func (c *Client) Upload(ctx context.Context, folderID, dir, fileName string) (File, error) {
	path := filepath.Join(dir, fileName)
	f, err := os.Open(path)
	if err != nil {
		return File{}, services.Wrap(services.ErrValidation, "drive", "upload", "open file", err)
	}
	defer f.Close()

	meta := &drivev3.File{Name: fileName, Parents: []string{folderID}}
	created, err := c.files.Create(meta).
		Media(f, googleapi.ContentType("application/octet-stream")).
		Fields("id, name, webViewLink").
		Context(ctx).
		Do()
	if err != nil {
		return File{}, classify("upload", err)
	}
	c.logger.Info("file uploaded",
		logging.String("file", fileName),
		logging.String("file_id", created.Id),
	)
	return File{ID: created.Id, Name: created.Name, WebViewLink: created.WebViewLink}, nil
}

// UploadToProject uploads path into <project>/<assets folder>.
func (c *Client) UploadToProject(ctx context.Context, project, path string) (File, error) {
	projectID, err := c.FolderID(ctx, project)
	if err != nil {
		return File{}, err
	}
	folderID, err := c.SubfolderID(ctx, projectID, c.assetsFolder)
	if err != nil {
		return File{}, err
	}
	return c.Upload(ctx, folderID, filepath.Dir(path), filepath.Base(path))
}

func escapeQuery(value string) string {
	value = strings.ReplaceAll(value, `\`, `\\`)
	return strings.ReplaceAll(value, `'`, `\'`)
}

func classify(op string, err error) error {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) && gerr.Code == http.StatusUnauthorized {
		return &services.AuthenticationError{Service: "drive", Err: err}
	}
	var rerr *oauth2.RetrieveError
	if errors.As(err, &rerr) {
		return &services.AuthenticationError{Service: "drive", Err: err}
	}
	return services.NewRemoteError("drive "+op, err)
}
