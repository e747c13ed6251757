package sync

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/andersnylund/pagesync/internal/fsport"
	"github.com/andersnylund/pagesync/internal/notion"
)

const testRootID = "root-page"

func newTestEngine(t *testing.T, client *fakeClient, fs fsport.FS) *Engine {
	t.Helper()

	store := newTestStore(t)
	filter := NewFilterEngine(FilterConfig{}, "", slog.Default())

	return NewEngine(EngineConfig{
		Store:        store,
		Remote:       client,
		FS:           fs,
		Filter:       filter,
		SyncRoot:     "",
		RemoteRootID: testRootID,
		Logger:       slog.Default(),
	})
}

// TestEngine_FreshPullCreatesLocalFile covers spec.md §8 scenario 1: an
// empty local workspace pulling a single remote leaf page down.
func TestEngine_FreshPullCreatesLocalFile(t *testing.T) {
	ctx := context.Background()

	client := newFakeClient()
	client.addNode(&fakeNode{
		id: "page-1", parentID: testRootID, kind: notion.KindLeaf,
		title: "Notes", markdown: "# Notes\n\nHello.\n", mtime: time.Now(),
	})

	fs := fsport.NewMemFS()
	engine := newTestEngine(t, client, fs)

	report, err := engine.Pull(ctx, false)
	require.NoError(t, err)
	require.Equal(t, 1, report.Succeeded)
	require.Zero(t, report.Failed)
	require.Zero(t, report.Conflicted)

	data, err := fs.ReadFile("Notes.md")
	require.NoError(t, err)
	require.Contains(t, string(data), "Hello.")

	entry, err := engine.store.GetByPath(ctx, "Notes.md")
	require.NoError(t, err)
	require.NotNil(t, entry)
	require.Equal(t, StatusClean, entry.Status)
	require.Equal(t, "page-1", entry.RemoteID)
}

// TestEngine_LocalEditThenPush covers spec.md §8 scenario 2: editing a
// previously-synced file locally and pushing it up.
func TestEngine_LocalEditThenPush(t *testing.T) {
	ctx := context.Background()

	client := newFakeClient()
	client.addNode(&fakeNode{
		id: "page-1", parentID: testRootID, kind: notion.KindLeaf,
		title: "Notes", markdown: "# Notes\n\nOriginal.\n", mtime: time.Now(),
	})

	fs := fsport.NewMemFS()
	engine := newTestEngine(t, client, fs)

	_, err := engine.Pull(ctx, false)
	require.NoError(t, err)

	require.NoError(t, fs.WriteFile("Notes.md", []byte("# Notes\n\nEdited locally.\n"), 0o644))

	report, err := engine.Push(ctx, false)
	require.NoError(t, err)
	require.Equal(t, 1, report.Succeeded)
	require.Zero(t, report.Failed)
	require.Contains(t, client.updates, "page-1")

	entry, err := engine.store.GetByPath(ctx, "Notes.md")
	require.NoError(t, err)
	require.Equal(t, StatusClean, entry.Status)
}

// TestEngine_ConflictThenResolveKeepLocal covers spec.md §8 scenario 3:
// both sides changed since the last sync, producing a sticky conflict that
// only an explicit Resolve clears.
func TestEngine_ConflictThenResolveKeepLocal(t *testing.T) {
	ctx := context.Background()

	client := newFakeClient()
	client.addNode(&fakeNode{
		id: "page-1", parentID: testRootID, kind: notion.KindLeaf,
		title: "Notes", markdown: "# Notes\n\nOriginal.\n", mtime: time.Now(),
	})

	fs := fsport.NewMemFS()
	engine := newTestEngine(t, client, fs)

	_, err := engine.Pull(ctx, false)
	require.NoError(t, err)

	// Diverge both copies after the baseline sync.
	require.NoError(t, fs.WriteFile("Notes.md", []byte("# Notes\n\nLocal edit.\n"), 0o644))
	client.nodes["page-1"].markdown = "# Notes\n\nRemote edit.\n"
	client.nodes["page-1"].mtime = client.nodes["page-1"].mtime.Add(time.Hour)

	report, err := engine.Sync(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, report.Conflicted)

	entry, err := engine.store.GetByPath(ctx, "Notes.md")
	require.NoError(t, err)
	require.Equal(t, StatusConflict, entry.Status)

	require.NoError(t, engine.Resolve(ctx, "Notes.md", "keep-local"))

	resolved, err := engine.store.GetByPath(ctx, "Notes.md")
	require.NoError(t, err)
	require.Equal(t, StatusClean, resolved.Status)
	require.Contains(t, client.updates, "page-1")
}

// TestEngine_AdoptOrphanAfterCrashedCreate covers spec.md §7.6 item 6: a
// local-only file whose remote document was already created by a prior run
// that crashed before recording remote_id must be adopted, not duplicated.
func TestEngine_AdoptOrphanAfterCrashedCreate(t *testing.T) {
	ctx := context.Background()

	client := newFakeClient()

	fs := fsport.NewMemFS()
	require.NoError(t, fs.WriteFile("Orphan.md", []byte("# Orphan\n\nAlready created remotely.\n"), 0o644))

	engine := newTestEngine(t, client, fs)

	// Simulate the crashed create: the remote document exists, but state
	// never recorded it.
	client.addNode(&fakeNode{
		id: "page-orphan", parentID: testRootID, kind: notion.KindLeaf,
		title: "Orphan", markdown: "# Orphan\n\nStale copy.\n", mtime: time.Now(),
	})

	report, err := engine.Push(ctx, false)
	require.NoError(t, err)
	require.Equal(t, 1, report.Succeeded)
	require.Empty(t, client.creates, "adoption must not create a duplicate remote document")
	require.Contains(t, client.updates, "page-orphan")

	entry, err := engine.store.GetByPath(ctx, "Orphan.md")
	require.NoError(t, err)
	require.Equal(t, "page-orphan", entry.RemoteID)
}
