package drive

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"golang.org/x/oauth2"

	"vnpipe/internal/config"
	"vnpipe/internal/logging"
	"vnpipe/internal/services"
)

type fakeDrive struct {
	mu       sync.Mutex
	queries  []string
	uploaded string
}

func (f *fakeDrive) handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if r.URL.Query().Get("uploadType") != "" {
			body, _ := io.ReadAll(r.Body)
			f.mu.Lock()
			f.uploaded = string(body)
			f.mu.Unlock()
			_, _ = io.WriteString(w, `{"id":"file-9","name":"Rock01_v004.fbx","webViewLink":"https://drive.example/file-9"}`)
			return
		}
		if r.Method != http.MethodGet || !strings.HasSuffix(r.URL.Path, "/files") {
			http.NotFound(w, r)
			return
		}
		q := r.URL.Query().Get("q")
		f.mu.Lock()
		f.queries = append(f.queries, q)
		f.mu.Unlock()
		switch {
		case q == "name='NPT'":
			_, _ = io.WriteString(w, `{"files":[{"id":"proj-1","name":"NPT"}]}`)
		case strings.Contains(q, "name='assets'") && strings.Contains(q, "'proj-1' in parents"):
			_, _ = io.WriteString(w, `{"files":[{"id":"assets-1","name":"assets"}]}`)
		case q == "name='Expired'":
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = io.WriteString(w, `{"error":{"code":401,"message":"invalid credentials"}}`)
		default:
			_, _ = io.WriteString(w, `{"files":[]}`)
		}
	})
}

func newTestClient(t *testing.T, fake *fakeDrive) *Client {
	t.Helper()
	srv := httptest.NewServer(fake.handler())
	t.Cleanup(srv.Close)
	client, err := NewWithHTTPClient(context.Background(), srv.URL+"/", srv.Client(), "assets", logging.NewNop())
	if err != nil {
		t.Fatalf("NewWithHTTPClient: %v", err)
	}
	return client
}

func TestUploadToProjectResolvesFolders(t *testing.T) {
	fake := &fakeDrive{}
	client := newTestClient(t, fake)

	path := filepath.Join(t.TempDir(), "Rock01_v004.fbx")
	if err := os.WriteFile(path, []byte("fbx-bytes"), 0o644); err != nil {
		t.Fatal(err)
	}
	file, err := client.UploadToProject(context.Background(), "NPT", path)
	if err != nil {
		t.Fatalf("UploadToProject: %v", err)
	}
	if file.ID != "file-9" || file.WebViewLink != "https://drive.example/file-9" {
		t.Fatalf("unexpected file: %+v", file)
	}
	if len(fake.queries) != 2 || !strings.Contains(fake.queries[1], "mimeType='application/vnd.google-apps.folder'") {
		t.Fatalf("unexpected queries: %v", fake.queries)
	}
	if !strings.Contains(fake.uploaded, "fbx-bytes") || !strings.Contains(fake.uploaded, "assets-1") {
		t.Fatalf("upload body missing content or parent: %q", fake.uploaded)
	}
}

func TestFolderIDNotFound(t *testing.T) {
	client := newTestClient(t, &fakeDrive{})
	if _, err := client.FolderID(context.Background(), "Nope"); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestFolderIDUnauthorized(t *testing.T) {
	client := newTestClient(t, &fakeDrive{})
	if _, err := client.FolderID(context.Background(), "Expired"); !errors.Is(err, services.ErrAuthentication) {
		t.Fatalf("expected ErrAuthentication, got %v", err)
	}
}

func TestFolderIDEscapesQuotes(t *testing.T) {
	fake := &fakeDrive{}
	client := newTestClient(t, fake)
	_, _ = client.FolderID(context.Background(), "Bob's")
	if len(fake.queries) != 1 || fake.queries[0] != `name='Bob\'s'` {
		t.Fatalf("unexpected query %v", fake.queries)
	}
}

func TestTokenStoreRoundTripAndPermissions(t *testing.T) {
	store := NewTokenStore(filepath.Join(t.TempDir(), "nested", "token.json"))
	if tok, err := store.Load(); err != nil || tok != nil {
		t.Fatalf("expected nil token for missing file, got %v %v", tok, err)
	}
	want := &oauth2.Token{AccessToken: "a", RefreshToken: "r", TokenType: "Bearer", Expiry: time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)}
	if err := store.Save(want); err != nil {
		t.Fatalf("Save: %v", err)
	}
	info, err := os.Stat(store.Path())
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm() != 0o600 {
		t.Fatalf("expected 0600, got %o", info.Mode().Perm())
	}
	got, err := store.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.AccessToken != "a" || got.RefreshToken != "r" || !got.Expiry.Equal(want.Expiry) {
		t.Fatalf("unexpected token: %+v", got)
	}
}

type staticSource struct{ tok *oauth2.Token }

func (s staticSource) Token() (*oauth2.Token, error) { return s.tok, nil }

func TestSavingTokenSourcePersistsNewTokens(t *testing.T) {
	store := NewTokenStore(filepath.Join(t.TempDir(), "token.json"))
	src := &savingTokenSource{base: staticSource{tok: &oauth2.Token{AccessToken: "fresh"}}, store: store, last: "old"}
	if _, err := src.Token(); err != nil {
		t.Fatalf("Token: %v", err)
	}
	saved, err := store.Load()
	if err != nil || saved == nil || saved.AccessToken != "fresh" {
		t.Fatalf("expected refreshed token persisted, got %v %v", saved, err)
	}
}

const clientSecretJSON = `{"installed":{"client_id":"cid","client_secret":"cs","auth_uri":"https://accounts.example/auth","token_uri":"https://accounts.example/token","redirect_uris":["http://localhost"]}}`

func TestNewWithoutTokenIsAuthenticationError(t *testing.T) {
	dir := t.TempDir()
	cfg := config.Default()
	cfg.Drive.CredentialsPath = filepath.Join(dir, "credentials.json")
	cfg.Drive.TokenPath = filepath.Join(dir, "token.json")
	if err := os.WriteFile(cfg.Drive.CredentialsPath, []byte(clientSecretJSON), 0o600); err != nil {
		t.Fatal(err)
	}
	_, err := New(context.Background(), &cfg, nil)
	if !errors.Is(err, services.ErrAuthentication) || !strings.Contains(err.Error(), "vnpipe drive auth") {
		t.Fatalf("expected auth error pointing at drive auth, got %v", err)
	}
}

func TestAuthURLRequestsOfflineAccess(t *testing.T) {
	dir := t.TempDir()
	cfg := config.Default()
	cfg.Drive.CredentialsPath = filepath.Join(dir, "credentials.json")
	if err := os.WriteFile(cfg.Drive.CredentialsPath, []byte(clientSecretJSON), 0o600); err != nil {
		t.Fatal(err)
	}
	oauthCfg, err := OAuthConfig(&cfg)
	if err != nil {
		t.Fatalf("OAuthConfig: %v", err)
	}
	url := AuthURL(oauthCfg, "state-1")
	if !strings.HasPrefix(url, "https://accounts.example/auth") || !strings.Contains(url, "access_type=offline") {
		t.Fatalf("unexpected auth url %q", url)
	}
}

func TestOAuthConfigMissingFile(t *testing.T) {
	cfg := config.Default()
	cfg.Drive.CredentialsPath = filepath.Join(t.TempDir(), "missing.json")
	if _, err := OAuthConfig(&cfg); !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected ErrConfiguration, got %v", err)
	}
}
