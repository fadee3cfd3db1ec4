package preflight

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"golang.org/x/sys/unix"

	"vnpipe/internal/notifications"
	"vnpipe/internal/services"
	"vnpipe/internal/services/drive"
)

const (
	trackerCheckName = "Tracker"
	checkTimeout     = 15 * time.Second
)

// AuthChecker is satisfied by the tracker client.
type AuthChecker interface {
	CheckAuth(ctx context.Context) error
}

// CheckTracker verifies that the tracker issues an access token for the
// configured script credentials.
func CheckTracker(ctx context.Context, tracker AuthChecker) Result {
	checkCtx, cancel := context.WithTimeout(ctx, checkTimeout)
	defer cancel()

	if err := tracker.CheckAuth(checkCtx); err != nil {
		return Result{Name: trackerCheckName, Detail: summarizeError(err)}
	}
	return Result{Name: trackerCheckName, Passed: true, Detail: "token issued"}
}

// CheckDiscord verifies the bot token against the Discord API.
func CheckDiscord(ctx context.Context, baseURL, token string, client notifications.HTTPDoer) Result {
	const name = "Discord"

	checkCtx, cancel := context.WithTimeout(ctx, checkTimeout)
	defer cancel()

	user, err := notifications.CheckBot(checkCtx, baseURL, token, client)
	if err != nil {
		if errors.Is(err, services.ErrAuthentication) {
			return Result{Name: name, Detail: "auth failed (invalid bot token)"}
		}
		return Result{Name: name, Detail: summarizeError(err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("bot %s", user)}
}

// CheckDriveToken reports whether a Drive OAuth token has been saved.
func CheckDriveToken(path string) Result {
	const name = "Drive token"

	tok, err := drive.NewTokenStore(path).Load()
	switch {
	case err != nil:
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: %v)", path, err)}
	case tok == nil:
		return Result{Name: name, Detail: fmt.Sprintf("%s missing, run 'vnpipe drive auth'", path)}
	case tok.RefreshToken == "" && !tok.Valid():
		return Result{Name: name, Detail: "token expired without refresh token, run 'vnpipe drive auth'"}
	}
	return Result{Name: name, Passed: true, Detail: path}
}

// CheckDirectoryAccess verifies that path is a writable directory. A missing
// directory passes when its nearest existing parent is writable, since it is
// created on first use.
func CheckDirectoryAccess(name, path string) Result {
	if path == "" {
		return Result{Name: name, Detail: "not configured"}
	}
	info, err := os.Stat(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
		}
		parent := existingParent(path)
		if err := unix.Access(parent, unix.W_OK|unix.X_OK); err != nil {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: cannot create under %s: %v)", path, parent, err)}
		}
		return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (will be created)", path)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: not writable: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (writable)", path)}
}

// CheckBinary verifies that command resolves on PATH.
func CheckBinary(name, command string) Result {
	path, err := exec.LookPath(command)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s not found on PATH", command)}
	}
	return Result{Name: name, Passed: true, Detail: path}
}

func existingParent(path string) string {
	dir := filepath.Dir(path)
	for {
		if _, err := os.Stat(dir); err == nil {
			return dir
		}
		next := filepath.Dir(dir)
		if next == dir {
			return dir
		}
		dir = next
	}
}

func summarizeError(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return "check timed out (service unresponsive)"
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "check timed out (service unreachable)"
	}
	return err.Error()
}
