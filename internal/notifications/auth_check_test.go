package notifications

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"vnpipe/internal/services"
)

func TestCheckBotReturnsUsername(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/users/@me" || r.Header.Get("Authorization") != "Bot good" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_, _ = w.Write([]byte(`{"id":"1","username":"vnpipe-bot"}`))
	}))
	defer srv.Close()

	name, err := CheckBot(context.Background(), srv.URL, "good", srv.Client())
	if err != nil {
		t.Fatalf("CheckBot: %v", err)
	}
	if name != "vnpipe-bot" {
		t.Fatalf("unexpected username %q", name)
	}

	if _, err := CheckBot(context.Background(), srv.URL, "bad", srv.Client()); !errors.Is(err, services.ErrAuthentication) {
		t.Fatalf("expected ErrAuthentication, got %v", err)
	}
}

func TestCheckBotRequiresToken(t *testing.T) {
	if _, err := CheckBot(context.Background(), "http://127.0.0.1:1", "", nil); err == nil {
		t.Fatal("expected error without token")
	}
}
