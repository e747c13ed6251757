package sync

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()

	ctx := context.Background()

	store, err := NewStore(ctx, ":memory:", slog.Default())
	require.NoError(t, err)

	t.Cleanup(func() { _ = store.Close() })

	return store
}

func TestStore_UpsertThenGetByPath(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	e := &Entry{
		Path:       "notes/todo.md",
		RemoteID:   "page-1",
		Kind:       KindLeaf,
		LocalHash:  "abc",
		RemoteHash: "abc",
		Status:     StatusClean,
		CreatedAt:  1,
		UpdatedAt:  1,
	}
	require.NoError(t, store.Upsert(ctx, e))

	got, err := store.GetByPath(ctx, "notes/todo.md")
	require.NoError(t, err)
	require.NotNil(t, got)
	require.Equal(t, "page-1", got.RemoteID)
	require.Equal(t, StatusClean, got.Status)
}

func TestStore_GetByPath_MissingReturnsNilNoError(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	got, err := store.GetByPath(ctx, "does/not/exist.md")
	require.NoError(t, err)
	require.Nil(t, got)
}

func TestStore_GetByRemoteID(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	require.NoError(t, store.Upsert(ctx, &Entry{
		Path: "a.md", RemoteID: "page-2", Kind: KindLeaf, Status: StatusClean,
	}))

	got, err := store.GetByRemoteID(ctx, "page-2")
	require.NoError(t, err)
	require.NotNil(t, got)
	require.Equal(t, "a.md", got.Path)
}

func TestStore_UpsertIsIdempotentOnPath(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	base := &Entry{Path: "a.md", RemoteID: "page-3", Kind: KindLeaf, Status: StatusClean, CreatedAt: 1, UpdatedAt: 1}
	require.NoError(t, store.Upsert(ctx, base))

	updated := base.clone()
	updated.Status = StatusLocalModified
	updated.LocalHash = "newhash"
	updated.UpdatedAt = 2
	require.NoError(t, store.Upsert(ctx, updated))

	all, err := store.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	require.Equal(t, StatusLocalModified, all[0].Status)
}

func TestStore_DeleteByPath(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	require.NoError(t, store.Upsert(ctx, &Entry{Path: "a.md", Kind: KindLeaf, Status: StatusClean}))
	require.NoError(t, store.DeleteByPath(ctx, "a.md"))

	got, err := store.GetByPath(ctx, "a.md")
	require.NoError(t, err)
	require.Nil(t, got)
}

func TestStore_ListWhereStatus(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	require.NoError(t, store.Upsert(ctx, &Entry{Path: "a.md", Kind: KindLeaf, Status: StatusClean}))
	require.NoError(t, store.Upsert(ctx, &Entry{Path: "b.md", Kind: KindLeaf, Status: StatusConflict}))
	require.NoError(t, store.Upsert(ctx, &Entry{Path: "c.md", Kind: KindLeaf, Status: StatusConflict}))

	conflicted, err := store.ListWhereStatus(ctx, StatusConflict)
	require.NoError(t, err)
	require.Len(t, conflicted, 2)
}

func TestStore_TransactionCommitsOnSuccess(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	err := store.Transaction(ctx, func(ctx context.Context, tx Store) error {
		if err := tx.Upsert(ctx, &Entry{Path: "a.md", Kind: KindLeaf, Status: StatusClean}); err != nil {
			return err
		}

		return tx.Upsert(ctx, &Entry{Path: "b.md", Kind: KindLeaf, Status: StatusClean})
	})
	require.NoError(t, err)

	all, err := store.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
}

func TestStore_TransactionRollsBackOnError(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	err := store.Transaction(ctx, func(ctx context.Context, tx Store) error {
		if err := tx.Upsert(ctx, &Entry{Path: "a.md", Kind: KindLeaf, Status: StatusClean}); err != nil {
			return err
		}

		return context.Canceled
	})
	require.Error(t, err)

	all, err := store.ListAll(ctx)
	require.NoError(t, err)
	require.Empty(t, all)
}

func TestStore_ConflictRecordAndResolve(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	require.NoError(t, store.Upsert(ctx, &Entry{Path: "a.md", Kind: KindLeaf, Status: StatusConflict}))
	require.NoError(t, store.RecordConflict(ctx, "a.md", "lhash", "rhash", "edit-edit"))
	require.NoError(t, store.ResolveConflict(ctx, "a.md"))
}

func TestStore_MetaRoundTrips(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	_, ok, err := store.GetMeta(ctx, "remote_root_id")
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, store.SetMeta(ctx, "remote_root_id", "root-123"))

	value, ok, err := store.GetMeta(ctx, "remote_root_id")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "root-123", value)
}
