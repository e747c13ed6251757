package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/andersnylund/pagesync/internal/config"
	"github.com/andersnylund/pagesync/internal/fsport"
	"github.com/andersnylund/pagesync/internal/notion"
	"github.com/andersnylund/pagesync/internal/sync"
	"github.com/andersnylund/pagesync/internal/workspace"
)

// remoteRootMetaKey is the Store key recording which remote root a
// workspace's state database was built against — spec.md §7 item 5's state
// corruption check.
const remoteRootMetaKey = "remote_root_id"

// engineHandle bundles an open Engine with the resources a command must
// release when done: the workspace lock (enforces single-writer, spec.md
// §5) and the Store's own handle.
type engineHandle struct {
	Engine *sync.Engine
	lock   *workspace.Lock
}

func (h *engineHandle) Close() {
	if h.Engine != nil {
		h.Engine.Close()
	}

	if h.lock != nil {
		h.lock.Release()
	}
}

// openEngine opens the workspace the CLIContext resolved: acquires the
// workspace lock, opens the state store, validates it against the
// workspace's configured remote root, and wires a notion.Client and
// filesystem over it.
func openEngine(ctx context.Context, cc *CLIContext) (*engineHandle, error) {
	if cc.Workspace == nil {
		return nil, usageErrorf("no workspace in scope")
	}

	lock, err := workspace.AcquireLock(cc.WorkspaceDir)
	if err != nil {
		if errors.Is(err, workspace.ErrLockHeld) {
			return nil, usageErrorf("workspace is locked by another pagesync process (is 'watch' already running?)")
		}

		return nil, fmt.Errorf("acquiring workspace lock: %w", err)
	}

	store, err := sync.NewStore(ctx, workspace.StatePath(cc.WorkspaceDir), cc.Logger)
	if err != nil {
		lock.Release()
		return nil, fmt.Errorf("opening state store: %w", err)
	}

	if err := validateStateRoot(ctx, store, cc.Workspace.Config.RemoteRootID); err != nil {
		store.Close()
		lock.Release()

		return nil, err
	}

	client, err := newRemoteClient(cc)
	if err != nil {
		store.Close()
		lock.Release()

		return nil, err
	}

	filter := sync.NewFilterEngine(
		sync.FilterConfig{IgnoreFile: cc.Workspace.Config.IgnoreFile},
		cc.WorkspaceDir, cc.Logger,
	)

	engine := sync.NewEngine(sync.EngineConfig{
		Store:  store,
		Remote: client,
		FS:     fsport.NewOSFS(cc.WorkspaceDir),
		Filter: filter,
		// SyncRoot is relative to FS, and OSFS is already rooted at
		// cc.WorkspaceDir — passing the absolute workspace dir again here
		// would double-join it in OSFS.abs and break every walk.
		SyncRoot:     "",
		RemoteRootID: cc.Workspace.Config.RemoteRootID,
		Logger:       cc.Logger,
	})

	return &engineHandle{Engine: engine, lock: lock}, nil
}

// validateStateRoot implements spec.md §7 item 5: a freshly-created state
// database adopts the workspace's configured root; an existing one must
// agree, or the database was built against a different remote root than the
// workspace is now bound to — a form of state corruption, fatal per the
// error taxonomy (exit 4).
func validateStateRoot(ctx context.Context, store sync.Store, configuredRootID string) error {
	recorded, ok, err := store.GetMeta(ctx, remoteRootMetaKey)
	if err != nil {
		return fmt.Errorf("reading state metadata: %w", err)
	}

	if !ok {
		if err := store.SetMeta(ctx, remoteRootMetaKey, configuredRootID); err != nil {
			return fmt.Errorf("recording state metadata: %w", err)
		}

		return nil
	}

	if recorded != configuredRootID {
		return stateCorruptionErrorf(
			"state database was built against remote root %q, but this workspace is now configured for %q; "+
				"delete .pagesync/state and run 'pagesync pull --force' to rebuild it",
			recorded, configuredRootID)
	}

	return nil
}

// newRemoteClient builds the notion.Client a command's engine uses, with
// the token resolved flag > env > error (no config-file fallback: a
// long-lived credential has no business living in a workspace's TOML file
// that might be committed to version control).
func newRemoteClient(cc *CLIContext) (notion.Client, error) {
	token := cc.Flags.Token
	if token == "" {
		token = os.Getenv(config.EnvAPIToken)
	}

	if token == "" {
		return nil, usageErrorf("no API token: set --token or %s", config.EnvAPIToken)
	}

	limiter := notion.NewLimiter(0, 0)

	return notion.NewClient(notion.DefaultBaseURL, defaultHTTPClient(), notion.StaticToken(token), limiter, cc.Logger), nil
}

// wrapRemoteError maps a remote authentication/authorization/transport
// failure to exit code 3 (spec.md §6.3), distinguishing "the remote
// rejected or could not be reached" from a generic exit-1 engine failure
// (a local conversion error, say). Errors that aren't one of these pass
// through unchanged.
func wrapRemoteError(verb string, err error) error {
	if err == nil {
		return nil
	}

	switch {
	case errors.Is(err, notion.ErrAuth), errors.Is(err, notion.ErrForbidden):
		return remoteErrorf("%s: remote rejected credentials: %w", verb, err)
	case errors.Is(err, notion.ErrTransport), errors.Is(err, notion.ErrServerError):
		return remoteErrorf("%s: remote unreachable: %w", verb, err)
	default:
		return fmt.Errorf("%s failed: %w", verb, err)
	}
}

// parsePollInterval/parseDebounce parse the workspace's stored duration
// strings, falling back to the sync package defaults on empty or invalid
// values rather than failing a command over a cosmetic config typo.
func parsePollInterval(s string) time.Duration {
	if s == "" {
		return sync.DefaultPollInterval
	}

	d, err := time.ParseDuration(s)
	if err != nil {
		return sync.DefaultPollInterval
	}

	return d
}

func parseDebounce(s string) time.Duration {
	if s == "" {
		return sync.DefaultDebounce
	}

	d, err := time.ParseDuration(s)
	if err != nil {
		return sync.DefaultDebounce
	}

	return d
}
