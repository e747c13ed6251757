package sync

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/andersnylund/pagesync/internal/fsport"
	"github.com/andersnylund/pagesync/internal/notion"
)

// callTimeout bounds every individual notion.Client call the engine makes,
// assigned at the call site rather than inside the client itself (teacher
// precedent: root.go's defaultHTTPClient/transferHTTPClient split).
const callTimeout = 30 * time.Second

// EngineConfig holds the dependencies and fixed settings an Engine needs.
// A struct because the field count makes positional construction unreadable,
// grounded on the teacher's EngineConfig.
type EngineConfig struct {
	Store        Store
	Remote       notion.Client
	FS           fsport.FS
	Filter       *FilterEngine
	SyncRoot     string
	RemoteRootID string
	Logger       *slog.Logger
}

// SyncReport summarizes the result of one Pull/Push/Sync call, grounded on
// the teacher's SyncReport in executor.go.
type SyncReport struct {
	Succeeded  int
	Conflicted int
	Failed     int
	Errors     []ActionError
	Duration   time.Duration
}

// ActionError pairs one failed action with the error it produced.
type ActionError struct {
	Path   string
	Action ActionKind
	Err    error
}

// Engine orchestrates one reconciliation cycle: walk local, walk remote,
// reconcile, adopt orphans, execute. It is the only writer of a workspace's
// Store (spec.md §5); internal/workspace.Lock enforces that at the process
// level before an Engine is ever constructed.
type Engine struct {
	store    Store
	remote   notion.Client
	fs       fsport.FS
	filter   *FilterEngine
	syncRoot string
	rootID   string
	logger   *slog.Logger
	executor *Executor
}

// NewEngine constructs an Engine from cfg. Does not touch the filesystem or
// network itself — Store is assumed already open (internal/workspace.Load +
// NewStore) and the lock already held.
func NewEngine(cfg EngineConfig) *Engine {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Engine{
		store:    cfg.Store,
		remote:   cfg.Remote,
		fs:       cfg.FS,
		filter:   cfg.Filter,
		syncRoot: cfg.SyncRoot,
		rootID:   cfg.RemoteRootID,
		logger:   logger,
		executor: NewExecutor(cfg.Store, cfg.Remote, cfg.FS, cfg.RemoteRootID, logger),
	}
}

// Pull runs a pull-only reconcile cycle (remote changes flow to local).
func (e *Engine) Pull(ctx context.Context, force bool) (*SyncReport, error) {
	return e.run(ctx, ModePull(force))
}

// Push runs a push-only reconcile cycle (local changes flow to remote).
func (e *Engine) Push(ctx context.Context, force bool) (*SyncReport, error) {
	return e.run(ctx, ModePush(force))
}

// Sync runs one bidirectional reconcile cycle: a single plan with both the
// pull and push directions enabled, not a pull pass followed by a separate
// push pass.
func (e *Engine) Sync(ctx context.Context) (*SyncReport, error) {
	return e.run(ctx, ModeSync())
}

// Status computes the pending action plan without executing it — spec.md
// §6.3's "print pending actions; no writes" contract.
func (e *Engine) Status(ctx context.Context) ([]Action, error) {
	_, _, _, actions, err := e.plan(ctx, ModeStatus())
	return actions, err
}

// run performs one full cycle: snapshot, reconcile, adopt orphans, execute.
func (e *Engine) run(ctx context.Context, mode Mode) (*SyncReport, error) {
	start := time.Now()

	_, _, _, actions, err := e.plan(ctx, mode)
	if err != nil {
		return nil, err
	}

	actions, err = e.adoptOrphans(ctx, actions)
	if err != nil {
		return nil, err
	}

	report, err := e.executor.Execute(ctx, actions)
	if err != nil {
		return report, err
	}

	report.Duration = time.Since(start)

	e.logger.Info("sync cycle complete",
		"succeeded", report.Succeeded,
		"conflicted", report.Conflicted,
		"failed", report.Failed,
		"duration", report.Duration,
	)

	return report, nil
}

// plan walks both trees, loads state, and reconciles, without executing
// anything — the shared core of run and Status.
func (e *Engine) plan(ctx context.Context, mode Mode) (*LocalSnapshot, *RemoteSnapshot, []*Entry, []Action, error) {
	local, err := WalkLocal(e.fs, e.filter, e.syncRoot)
	if err != nil {
		return nil, nil, nil, nil, fmt.Errorf("sync: walking local tree: %w", err)
	}

	remote, err := WalkRemote(ctx, e.remote, e.rootID, e.store)
	if err != nil {
		return nil, nil, nil, nil, fmt.Errorf("sync: walking remote tree: %w", err)
	}

	state, err := e.store.ListAll(ctx)
	if err != nil {
		return nil, nil, nil, nil, fmt.Errorf("sync: loading state: %w", err)
	}

	actions := Reconcile(local, remote, state, mode)

	return local, remote, state, actions, nil
}

// adoptOrphans implements spec.md §7.6/item 6: before dispatching any
// ActionCreateRemote, probe the remote for a document already matching this
// path's title under its parent. A match means a prior create succeeded but
// the crash lost the response before the engine recorded remote_id — adopt
// it (rewrite the action to an update) rather than create a duplicate.
// Grounded on the teacher's observeRemote retry-on-expiry shape: a pre-pass
// over the plan before the real dispatch begins.
func (e *Engine) adoptOrphans(ctx context.Context, actions []Action) ([]Action, error) {
	adopted := make([]Action, 0, len(actions))

	for _, a := range actions {
		if a.Kind != ActionCreateRemote {
			adopted = append(adopted, a)
			continue
		}

		parentID, err := e.executor.resolveParentID(ctx, a)
		if err != nil {
			return nil, err
		}

		callCtx, cancel := context.WithTimeout(ctx, callTimeout)
		remoteID, ambiguous, err := e.remote.FindByTitle(callCtx, parentID, titleFromPath(a.Path))
		cancel()

		if err != nil {
			return nil, fmt.Errorf("sync: probing adoption for %q: %w", a.Path, err)
		}

		if ambiguous {
			e.logger.Warn("ambiguous adoption candidate, falling back to conflict", "path", a.Path)

			next := a.Entry.clone()
			next.Status = StatusConflict

			adopted = append(adopted, Action{
				Kind: ActionFlagConflict, Path: a.Path, Entry: next,
				Reason: "ambiguous adoption: multiple remote documents match title+parent",
			})

			continue
		}

		if remoteID == "" {
			adopted = append(adopted, Action{Kind: a.Kind, Path: a.Path, ParentID: parentID, Entry: a.Entry, Reason: a.Reason})
			continue
		}

		e.logger.Info("adopting orphaned remote document", "path", a.Path, "remote_id", remoteID)

		next := a.Entry.clone()
		next.RemoteID = remoteID

		adopted = append(adopted, Action{
			Kind: ActionUpdateRemote, Path: a.Path, ParentID: parentID, Entry: next,
			Reason: "adopting orphaned remote document from a prior crashed create",
		})
	}

	return adopted, nil
}

// titleFromPath derives the title a remote document created for path would
// carry, the inverse of remoteChildPath's filename convention (spec.md
// §6.2): strip the directory and any ".md" extension.
func titleFromPath(path string) string {
	base := path
	for i := len(path) - 1; i >= 0; i-- {
		if path[i] == '/' {
			base = path[i+1:]
			break
		}
	}

	const mdExt = ".md"
	if len(base) > len(mdExt) && base[len(base)-len(mdExt):] == mdExt {
		base = base[:len(base)-len(mdExt)]
	}

	return base
}

// Resolve applies an explicit conflict resolution to a sticky-conflict
// entry, the only way such an entry re-enters classification (spec.md
// §4.5's "only re-enters classification via an explicit Resolve action").
func (e *Engine) Resolve(ctx context.Context, path, resolution string) error {
	entry, err := e.store.GetByPath(ctx, path)
	if err != nil {
		return fmt.Errorf("sync: resolve: loading entry %q: %w", path, err)
	}

	if entry == nil {
		return fmt.Errorf("sync: resolve: no tracked entry at %q", path)
	}

	if entry.Status != StatusConflict && entry.Status != StatusKindChanged {
		return fmt.Errorf("sync: resolve: %q is not in conflict (status=%s)", path, entry.Status)
	}

	switch resolution {
	case "keep-local":
		return e.resolveKeepLocal(ctx, entry)
	case "keep-remote":
		return e.resolveKeepRemote(ctx, entry)
	case "keep-both":
		return e.resolveKeepBoth(ctx, entry)
	default:
		return fmt.Errorf("sync: resolve: unknown resolution %q", resolution)
	}
}

// resolveKeepLocal pushes the local file over the remote document, grounded
// on the teacher's resolveKeepLocal (upload to overwrite remote).
func (e *Engine) resolveKeepLocal(ctx context.Context, entry *Entry) error {
	action := Action{Kind: ActionUpdateRemote, Path: entry.Path, ParentID: entry.ParentRemoteID, Entry: entry}

	if err := e.executor.executeUpdateRemote(ctx, action); err != nil {
		return fmt.Errorf("sync: resolve keep-local: %w", err)
	}

	return e.store.ResolveConflict(ctx, entry.Path)
}

// resolveKeepRemote pulls the remote document over the local file.
func (e *Engine) resolveKeepRemote(ctx context.Context, entry *Entry) error {
	action := Action{Kind: ActionUpdateLocal, Path: entry.Path, Entry: entry}

	if err := e.executor.executeUpdateLocal(ctx, action); err != nil {
		return fmt.Errorf("sync: resolve keep-remote: %w", err)
	}

	return e.store.ResolveConflict(ctx, entry.Path)
}

// resolveKeepBoth renames the local file aside (spec.md §4.5's
// <name>.conflict.<timestamp>.md) and pulls the remote copy back to the
// original path; the renamed copy has no state row, so the next cycle treats
// it as a new local-only file to push — grounded on the teacher's ConflictHandler
// rename-and-requeue pattern in executor_conflict.go.
func (e *Engine) resolveKeepBoth(ctx context.Context, entry *Entry) error {
	renamed := conflictSidecarPath(entry.Path)

	if err := e.fs.Rename(entry.Path, renamed); err != nil {
		return fmt.Errorf("sync: resolve keep-both: renaming %q aside: %w", entry.Path, err)
	}

	if err := e.executor.executeUpdateLocal(ctx, Action{Kind: ActionUpdateLocal, Path: entry.Path, Entry: entry}); err != nil {
		return fmt.Errorf("sync: resolve keep-both: %w", err)
	}

	return e.store.ResolveConflict(ctx, entry.Path)
}

// conflictSidecarPath renames a path aside per spec.md §4.5's keep-both
// naming: "Notes.md" -> "Notes.conflict.<unix-seconds>.md". The timestamp
// (not a random id) doubles as a record of when the rename happened.
func conflictSidecarPath(path string) string {
	ts := NowNano() / int64(time.Second)

	ext := ""
	base := path

	for i := len(path) - 1; i >= 0; i-- {
		if path[i] == '.' {
			ext = path[i:]
			base = path[:i]
			break
		}

		if path[i] == '/' {
			break
		}
	}

	return fmt.Sprintf("%s.conflict.%d%s", base, ts, ext)
}

// Close releases the engine's Store handle.
func (e *Engine) Close() error {
	return e.store.Close()
}
