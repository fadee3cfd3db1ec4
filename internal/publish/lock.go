package publish

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"

	"vnpipe/internal/services"
	"vnpipe/internal/textutil"
)

const lockRetryDelay = 100 * time.Millisecond

// LockPath returns the lock file guarding publishes into project.
func LockPath(dir, project string) string {
	name := textutil.SanitizeToken(project)
	if name == "" {
		name = "default"
	}
	return filepath.Join(dir, name+".lock")
}

// lockProject blocks until the project lock is held or ctx is done. An empty
// dir disables locking.
func lockProject(ctx context.Context, dir, project string) (func(), error) {
	if dir == "" {
		return func() {}, nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "publish", "lock", "create lock directory", err)
	}
	lock := flock.New(LockPath(dir, project))
	ok, err := lock.TryLockContext(ctx, lockRetryDelay)
	if err != nil && ctx.Err() != nil {
		return nil, services.Wrap(services.ErrExternalTool, "publish", "lock",
			fmt.Sprintf("gave up waiting for %s", lock.Path()), err)
	}
	if err != nil {
		return nil, services.Wrap(services.ErrExternalTool, "publish", "lock", "acquire "+lock.Path(), err)
	}
	if !ok {
		return nil, services.Wrap(services.ErrExternalTool, "publish", "lock", lock.Path()+" is held", nil)
	}
	return func() { _ = lock.Unlock() }, nil
}
