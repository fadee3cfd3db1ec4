package drive

import (
	"context"
	"fmt"
	"os"
	"strings"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	drivev3 "google.golang.org/api/drive/v3"

	"vnpipe/internal/config"
	"vnpipe/internal/services"
)

// OAuthConfig loads the installed-application client secret from cfg.
func OAuthConfig(cfg *config.Config) (*oauth2.Config, error) {
	if cfg == nil {
		return nil, services.Wrap(services.ErrConfiguration, "drive", "auth", "config is nil", nil)
	}
	data, err := os.ReadFile(cfg.Drive.CredentialsPath)
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "drive", "auth",
			fmt.Sprintf("read client credentials %s", cfg.Drive.CredentialsPath), err)
	}
	oauthCfg, err := google.ConfigFromJSON(data, drivev3.DriveScope)
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "drive", "auth", "parse client credentials", err)
	}
	return oauthCfg, nil
}

// AuthURL returns the consent page the user must visit. The state value is
// echoed back by the provider and is not otherwise checked for the
// copy-paste flow.
func AuthURL(oauthCfg *oauth2.Config, state string) string {
	return oauthCfg.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.ApprovalForce)
}

// Exchange trades the pasted authorization code for a token and saves it.
func Exchange(ctx context.Context, oauthCfg *oauth2.Config, store *TokenStore, code string) (*oauth2.Token, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, services.Wrap(services.ErrValidation, "drive", "auth", "authorization code is empty", nil)
	}
	tok, err := oauthCfg.Exchange(ctx, code)
	if err != nil {
		return nil, &services.AuthenticationError{Service: "drive", Err: err}
	}
	if err := store.Save(tok); err != nil {
		return nil, err
	}
	return tok, nil
}

// tokenSource builds a refreshing source from the stored token.
func tokenSource(ctx context.Context, cfg *config.Config) (oauth2.TokenSource, error) {
	oauthCfg, err := OAuthConfig(cfg)
	if err != nil {
		return nil, err
	}
	store := NewTokenStore(cfg.Drive.TokenPath)
	tok, err := store.Load()
	if err != nil {
		return nil, err
	}
	if tok == nil {
		return nil, &services.AuthenticationError{
			Service: "drive",
			Err:     fmt.Errorf("no token at %s; run 'vnpipe drive auth'", store.Path()),
		}
	}
	return &savingTokenSource{
		base:  oauthCfg.TokenSource(ctx, tok),
		store: store,
		last:  tok.AccessToken,
	}, nil
}
