package fileutil

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestEnsureDirIsIdempotent(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "exports", "NPT")
	for i := 0; i < 2; i++ {
		if err := EnsureDir(dir); err != nil {
			t.Fatalf("EnsureDir call %d: %v", i+1, err)
		}
	}
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		t.Fatalf("expected directory, got info=%v err=%v", info, err)
	}
}

func TestEnsureDirRejectsEmpty(t *testing.T) {
	if err := EnsureDir("  "); err == nil {
		t.Fatal("expected error for empty path")
	}
}

func TestWithTrailingSeparator(t *testing.T) {
	sep := string(filepath.Separator)
	tests := []struct{ in, want string }{
		{"", ""},
		{"/tmp/out", "/tmp/out" + sep},
		{"/tmp/out" + sep, "/tmp/out" + sep},
		{"/tmp/out" + sep + sep, "/tmp/out" + sep},
	}
	for _, tc := range tests {
		if got := WithTrailingSeparator(tc.in); got != tc.want {
			t.Errorf("WithTrailingSeparator(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestFileExists(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.abc")
	if FileExists(path) {
		t.Fatal("expected missing file")
	}
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	if !FileExists(path) {
		t.Fatal("expected file to exist")
	}
	if FileExists(dir) {
		t.Fatal("directory should not count as file")
	}
}

func TestWaitForFileReturnsWhenAlreadyPresent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "Rock01_v004.fbx")
	if err := os.WriteFile(path, []byte("data"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := WaitForFile(context.Background(), path, time.Second); err != nil {
		t.Fatalf("WaitForFile: %v", err)
	}
}

func TestWaitForFileSeesLateWrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "Rock01_v004.abc")
	go func() {
		time.Sleep(50 * time.Millisecond)
		_ = os.WriteFile(path, []byte("data"), 0o644)
	}()
	if err := WaitForFile(context.Background(), path, 5*time.Second); err != nil {
		t.Fatalf("WaitForFile: %v", err)
	}
}

func TestWaitForFileTimesOut(t *testing.T) {
	path := filepath.Join(t.TempDir(), "never.usd")
	err := WaitForFile(context.Background(), path, 50*time.Millisecond)
	if !errors.Is(err, ErrWaitTimeout) {
		t.Fatalf("expected ErrWaitTimeout, got %v", err)
	}
}

func TestWaitForFileHonorsCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := WaitForFile(ctx, filepath.Join(t.TempDir(), "never.usd"), 0)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
