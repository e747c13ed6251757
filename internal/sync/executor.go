package sync

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"path"

	"github.com/andersnylund/pagesync/internal/fsport"
	"github.com/andersnylund/pagesync/internal/notion"
	"github.com/andersnylund/pagesync/internal/pagemd"
)

// dirPermissions and filePermissions match the teacher's executor.go
// constants for newly created sync-managed paths.
const (
	dirPermissions  fs.FileMode = 0o755
	filePermissions fs.FileMode = 0o644
)

// Executor dispatches one already-ordered action plan: filesystem writes,
// remote client calls, state commits. Grounded on the teacher's
// Executor.Execute phase-ordering (per-action-kind dispatch, skip-and-
// continue on per-entry failure), generalized from the teacher's fixed
// 9-phase dispatch to a single ordered loop since orderPlan already encodes
// spec.md §4.6's create/update/delete ordering rule.
type Executor struct {
	store  Store
	remote notion.Client
	fs     fsport.FS
	rootID string
	logger *slog.Logger
}

// NewExecutor constructs an Executor from its collaborators. rootID is the
// remote root document id, used as the parent for a brand-new top-level
// local entry's ActionCreateRemote.
func NewExecutor(store Store, remote notion.Client, ffs fsport.FS, rootID string, logger *slog.Logger) *Executor {
	if logger == nil {
		logger = slog.Default()
	}

	return &Executor{store: store, remote: remote, fs: ffs, rootID: rootID, logger: logger}
}

// Execute runs every action in order, continuing past per-action failures
// (spec.md §7: "per-entry failures never abort the run") except when ctx is
// canceled, checked between actions — never inside a single action's
// side-effect-then-commit pair (spec.md §5).
func (e *Executor) Execute(ctx context.Context, actions []Action) (*SyncReport, error) {
	report := &SyncReport{}

	for _, a := range actions {
		if err := ctx.Err(); err != nil {
			return report, fmt.Errorf("sync: execution canceled: %w", err)
		}

		if err := e.dispatch(ctx, a); err != nil {
			e.logger.Error("action failed", "path", a.Path, "action", a.Kind, "error", err)

			report.Failed++
			report.Errors = append(report.Errors, ActionError{Path: a.Path, Action: a.Kind, Err: err})

			continue
		}

		if a.Kind == ActionFlagConflict || a.Kind == ActionFlagKindChange {
			report.Conflicted++
		} else {
			report.Succeeded++
		}
	}

	return report, nil
}

// dispatch executes one action's side effect then commits the resulting
// state, in that order (spec.md §4.6 last paragraph: side-effect then state
// commit, never the reverse, so a crash mid-action never marks state clean
// for a write that didn't happen).
func (e *Executor) dispatch(ctx context.Context, a Action) error {
	switch a.Kind {
	case ActionCreateLocal:
		return e.executeCreateLocal(ctx, a)
	case ActionUpdateLocal:
		return e.executeUpdateLocal(ctx, a)
	case ActionDeleteLocal:
		return e.executeDeleteLocal(ctx, a)
	case ActionCreateRemote:
		return e.executeCreateRemote(ctx, a)
	case ActionUpdateRemote:
		return e.executeUpdateRemote(ctx, a)
	case ActionDeleteRemote:
		return e.executeDeleteRemote(ctx, a)
	case ActionForgetEntry:
		return e.store.DeleteByPath(ctx, a.Path)
	case ActionFlagConflict:
		stampEntry(a.Entry)

		if err := e.store.Upsert(ctx, a.Entry); err != nil {
			return err
		}

		return e.store.RecordConflict(ctx, a.Path, a.Entry.LocalHash, a.Entry.RemoteHash, a.Reason)
	case ActionFlagKindChange, ActionFlagDeletedLocal, ActionFlagDeletedRemote:
		stampEntry(a.Entry)
		return e.store.Upsert(ctx, a.Entry)
	case ActionRecordClean:
		stampEntry(a.Entry)
		return e.store.Upsert(ctx, a.Entry)
	default:
		return fmt.Errorf("sync: unknown action kind %q", a.Kind)
	}
}

// executeCreateLocal writes a brand-new local file or container from the
// remote document's content, then records the resulting entry clean.
func (e *Executor) executeCreateLocal(ctx context.Context, a Action) error {
	callCtx, cancel := context.WithTimeout(ctx, callTimeout)
	defer cancel()

	content, err := e.remote.FetchContent(callCtx, a.Entry.RemoteID)
	if err != nil {
		return fmt.Errorf("sync: fetching content for create-local %q: %w", a.Path, err)
	}

	localBytes, err := remoteContentToLocalBytes(content)
	if err != nil {
		return e.markConversionError(ctx, a, err)
	}

	if err := e.writeLocalEntry(a.Path, a.Entry.Kind, localBytes); err != nil {
		return fmt.Errorf("sync: writing local entry %q: %w", a.Path, err)
	}

	next := a.Entry.clone()
	next.LocalHash = HashLocalFile(localBytes)
	next.Status = StatusClean
	stampEntry(next)

	return e.store.Upsert(ctx, next)
}

// executeUpdateLocal overwrites an existing local file/container's content
// with the remote document's current content.
func (e *Executor) executeUpdateLocal(ctx context.Context, a Action) error {
	callCtx, cancel := context.WithTimeout(ctx, callTimeout)
	defer cancel()

	content, err := e.remote.FetchContent(callCtx, a.Entry.RemoteID)
	if err != nil {
		return fmt.Errorf("sync: fetching content for update-local %q: %w", a.Path, err)
	}

	localBytes, err := remoteContentToLocalBytes(content)
	if err != nil {
		return e.markConversionError(ctx, a, err)
	}

	if err := e.writeLocalEntry(a.Path, a.Entry.Kind, localBytes); err != nil {
		return fmt.Errorf("sync: writing local entry %q: %w", a.Path, err)
	}

	next := a.Entry.clone()
	next.LocalHash = HashLocalFile(localBytes)
	next.Status = StatusClean
	stampEntry(next)

	return e.store.Upsert(ctx, next)
}

// executeDeleteLocal removes a local file or container whose remote
// counterpart disappeared cleanly (reconciler row 9), then forgets the entry.
func (e *Executor) executeDeleteLocal(ctx context.Context, a Action) error {
	if a.Entry.Kind.IsContainer() {
		if err := e.fs.RemoveAll(a.Path); err != nil {
			return fmt.Errorf("sync: removing local container %q: %w", a.Path, err)
		}
	} else if err := e.fs.Remove(a.Path); err != nil {
		return fmt.Errorf("sync: removing local file %q: %w", a.Path, err)
	}

	return e.store.DeleteByPath(ctx, a.Path)
}

// executeCreateRemote creates a new remote document from a local file's
// content, resolving the remote parent id via resolveParentID.
func (e *Executor) executeCreateRemote(ctx context.Context, a Action) error {
	localBytes, err := e.fs.ReadFile(a.Path)
	if err != nil {
		return fmt.Errorf("sync: reading local entry %q: %w", a.Path, err)
	}

	blocks, properties, err := pagemd.Parse(string(localBytes))
	if err != nil {
		return e.markConversionError(ctx, a, err)
	}

	body, err := pagemd.Render(blocks)
	if err != nil {
		return e.markConversionError(ctx, a, err)
	}

	parentID, err := e.resolveParentID(ctx, a)
	if err != nil {
		return err
	}

	callCtx, cancel := context.WithTimeout(ctx, callTimeout)
	defer cancel()

	remoteID, err := e.remote.Create(callCtx, parentID, notion.Kind(a.Entry.Kind), titleFromPath(a.Path), &notion.Content{
		Markdown:   body,
		Properties: properties,
	})
	if err != nil {
		return fmt.Errorf("sync: creating remote document for %q: %w", a.Path, err)
	}

	next := a.Entry.clone()
	next.RemoteID = remoteID
	next.ParentRemoteID = parentID
	next.LocalHash = HashLocalFile(localBytes)
	next.RemoteHash = HashRenderedRemote([]byte(body))
	next.Status = StatusClean
	stampEntry(next)

	return e.store.Upsert(ctx, next)
}

// resolveParentID returns the remote parent id a create should use: the
// action's own ParentID if the reconciler already knew it (the remote
// already had a parent to correlate against), or else the already-committed
// state of this path's parent directory — valid because orderPlan dispatches
// parent creates before their children and dispatch commits state before
// moving to the next action (spec.md §4.6). A top-level path's parent is
// the workspace's remote root.
func (e *Executor) resolveParentID(ctx context.Context, a Action) (string, error) {
	if a.ParentID != "" {
		return a.ParentID, nil
	}

	parentPath := path.Dir(a.Path)
	if parentPath == "." || parentPath == "/" {
		return e.rootID, nil
	}

	parent, err := e.store.GetByPath(ctx, parentPath)
	if err != nil {
		return "", fmt.Errorf("sync: resolving remote parent for %q: %w", a.Path, err)
	}

	if parent == nil {
		return "", fmt.Errorf("sync: no remote parent recorded for %q: parent %q not yet synced", a.Path, parentPath)
	}

	return parent.RemoteID, nil
}

// executeUpdateRemote pushes a local file's content over its remote
// counterpart via a minimal Diff — Update is idempotent by content
// (spec.md §4.3), so a retry after a partial failure is always safe.
func (e *Executor) executeUpdateRemote(ctx context.Context, a Action) error {
	localBytes, err := e.fs.ReadFile(a.Path)
	if err != nil {
		return fmt.Errorf("sync: reading local entry %q: %w", a.Path, err)
	}

	newBlocks, newProps, err := pagemd.Parse(string(localBytes))
	if err != nil {
		return e.markConversionError(ctx, a, err)
	}

	callCtx, cancel := context.WithTimeout(ctx, callTimeout)

	current, err := e.remote.FetchContent(callCtx, a.Entry.RemoteID)
	cancel()

	if err != nil {
		return fmt.Errorf("sync: fetching current content for update-remote %q: %w", a.Path, err)
	}

	oldBlocks, oldProps, err := pagemd.Parse(current.Markdown)
	if err != nil {
		oldBlocks, oldProps = nil, nil
	}

	diff := pagemd.Compute(oldBlocks, newBlocks, oldProps, newProps)

	callCtx, cancel = context.WithTimeout(ctx, callTimeout)
	_, err = e.remote.Update(callCtx, a.Entry.RemoteID, diff)
	cancel()

	if err != nil {
		return fmt.Errorf("sync: updating remote document for %q: %w", a.Path, err)
	}

	body, err := pagemd.Render(newBlocks)
	if err != nil {
		return e.markConversionError(ctx, a, err)
	}

	next := a.Entry.clone()
	next.LocalHash = HashLocalFile(localBytes)
	next.RemoteHash = HashRenderedRemote([]byte(body))
	next.Status = StatusClean
	stampEntry(next)

	return e.store.Upsert(ctx, next)
}

// executeDeleteRemote archives a remote document whose local counterpart
// disappeared cleanly (reconciler row 7), then forgets the entry.
func (e *Executor) executeDeleteRemote(ctx context.Context, a Action) error {
	callCtx, cancel := context.WithTimeout(ctx, callTimeout)
	defer cancel()

	if err := e.remote.Delete(callCtx, a.Entry.RemoteID); err != nil {
		return fmt.Errorf("sync: deleting remote document for %q: %w", a.Path, err)
	}

	return e.store.DeleteByPath(ctx, a.Path)
}

// markConversionError records spec.md §7 item 3's sticky conversion-error
// status instead of propagating err as an action failure: the entry is
// skipped on subsequent runs until local_hash changes, rather than retried
// every cycle against content that will never parse.
func (e *Executor) markConversionError(ctx context.Context, a Action, cause error) error {
	e.logger.Warn("content conversion failed, marking sticky error", "path", a.Path, "error", cause)

	next := a.Entry.clone()
	next.Status = StatusConversionError
	stampEntry(next)

	if err := e.store.Upsert(ctx, next); err != nil {
		return fmt.Errorf("sync: recording conversion error for %q: %w", a.Path, err)
	}

	return fmt.Errorf("sync: converting content for %q: %w", a.Path, cause)
}

// writeLocalEntry writes localBytes to path, creating the parent directory
// first. Container kinds (a directory's own content) are written to their
// well-known index/schema file rather than to path itself.
func (e *Executor) writeLocalEntry(entryPath string, kind Kind, localBytes []byte) error {
	switch kind {
	case KindContainer:
		return e.writeContainerFile(entryPath, indexFileName, localBytes)
	case KindDatabase:
		return e.writeContainerFile(entryPath, schemaFileName, localBytes)
	default:
		if err := e.fs.MkdirAll(path.Dir(entryPath), dirPermissions); err != nil {
			return fmt.Errorf("sync: creating parent directory for %q: %w", entryPath, err)
		}

		return e.fs.WriteFile(entryPath, localBytes, filePermissions)
	}
}

func (e *Executor) writeContainerFile(dirPath, fileName string, localBytes []byte) error {
	if err := e.fs.MkdirAll(dirPath, dirPermissions); err != nil {
		return fmt.Errorf("sync: creating container directory %q: %w", dirPath, err)
	}

	return e.fs.WriteFile(path.Join(dirPath, fileName), localBytes, filePermissions)
}

// stampEntry sets CreatedAt the first time an entry is stored and refreshes
// UpdatedAt on every write, so a stored entry always carries when it was
// first synced and when it was last touched.
func stampEntry(e *Entry) {
	now := NowNano()

	if e.CreatedAt == 0 {
		e.CreatedAt = now
	}

	e.UpdatedAt = now
}

// remoteContentToLocalBytes converts a fetched remote document into the
// exact bytes a local file should hold: content.Markdown is already
// canonical body markdown (rendered server-side, no frontmatter), so it is
// parsed back into blocks purely to re-run it through RenderWithFrontmatter
// alongside the document's properties, keeping local files byte-identical
// to what Render/RenderWithFrontmatter would produce from scratch (the
// property the hasher depends on, spec.md §4.1).
func remoteContentToLocalBytes(content *notion.Content) ([]byte, error) {
	blocks, _, err := pagemd.Parse(content.Markdown)
	if err != nil {
		return nil, fmt.Errorf("pagemd: parsing remote content: %w", err)
	}

	rendered, err := pagemd.RenderWithFrontmatter(blocks, content.Properties)
	if err != nil {
		return nil, fmt.Errorf("pagemd: rendering remote content: %w", err)
	}

	return []byte(rendered), nil
}
