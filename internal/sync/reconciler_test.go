package sync

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func snapshots(local map[string]LocalEntry, remote map[string]RemoteEntry) (*LocalSnapshot, *RemoteSnapshot) {
	if local == nil {
		local = map[string]LocalEntry{}
	}

	if remote == nil {
		remote = map[string]RemoteEntry{}
	}

	return &LocalSnapshot{ByPath: local}, &RemoteSnapshot{ByPath: remote}
}

func TestReconcileRow1BothNewNoState(t *testing.T) {
	l, r := snapshots(
		map[string]LocalEntry{"Notes.md": {Path: "Notes.md", Kind: KindLeaf, Hash: "same"}},
		map[string]RemoteEntry{"Notes.md": {RemoteID: "r1", ContentHash: "same"}},
	)

	actions := Reconcile(l, r, nil, ModeSync())
	require.Len(t, actions, 1)
	assert.Equal(t, ActionRecordClean, actions[0].Kind)
}

func TestReconcileRow1DiffersPullsByDefault(t *testing.T) {
	l, r := snapshots(
		map[string]LocalEntry{"Notes.md": {Path: "Notes.md", Kind: KindLeaf, Hash: "local"}},
		map[string]RemoteEntry{"Notes.md": {RemoteID: "r1", ContentHash: "remote"}},
	)

	actions := Reconcile(l, r, nil, ModePull(false))
	require.Len(t, actions, 1)
	assert.Equal(t, ActionUpdateLocal, actions[0].Kind)
}

func TestReconcileRow2NoOp(t *testing.T) {
	l, r := snapshots(
		map[string]LocalEntry{"Notes.md": {Path: "Notes.md", Hash: "h"}},
		map[string]RemoteEntry{"Notes.md": {RemoteID: "r1", ContentHash: "h", Mtime: 100}},
	)
	state := []*Entry{{Path: "Notes.md", RemoteID: "r1", LocalHash: "h", RemoteHash: "h", RemoteMtime: 100, Status: StatusClean}}

	actions := Reconcile(l, r, state, ModeSync())
	assert.Empty(t, actions)
}

func TestReconcileRow3LocalModifiedPushes(t *testing.T) {
	l, r := snapshots(
		map[string]LocalEntry{"Notes.md": {Path: "Notes.md", Hash: "new"}},
		map[string]RemoteEntry{"Notes.md": {RemoteID: "r1", ContentHash: "h", Mtime: 100}},
	)
	state := []*Entry{{Path: "Notes.md", RemoteID: "r1", LocalHash: "old", RemoteHash: "h", RemoteMtime: 100, Status: StatusClean}}

	actions := Reconcile(l, r, state, ModeSync())
	require.Len(t, actions, 1)
	assert.Equal(t, ActionUpdateRemote, actions[0].Kind)
}

func TestReconcileRow3SkippedInPullOnlyWithoutForce(t *testing.T) {
	l, r := snapshots(
		map[string]LocalEntry{"Notes.md": {Path: "Notes.md", Hash: "new"}},
		map[string]RemoteEntry{"Notes.md": {RemoteID: "r1", ContentHash: "h", Mtime: 100}},
	)
	state := []*Entry{{Path: "Notes.md", RemoteID: "r1", LocalHash: "old", RemoteHash: "h", RemoteMtime: 100, Status: StatusClean}}

	actions := Reconcile(l, r, state, ModePull(false))
	assert.Empty(t, actions)
}

func TestReconcileRow4RemoteModifiedPulls(t *testing.T) {
	l, r := snapshots(
		map[string]LocalEntry{"Notes.md": {Path: "Notes.md", Hash: "h"}},
		map[string]RemoteEntry{"Notes.md": {RemoteID: "r1", ContentHash: "new", Mtime: 200}},
	)
	state := []*Entry{{Path: "Notes.md", RemoteID: "r1", LocalHash: "h", RemoteHash: "old", RemoteMtime: 100, Status: StatusClean}}

	actions := Reconcile(l, r, state, ModeSync())
	require.Len(t, actions, 1)
	assert.Equal(t, ActionUpdateLocal, actions[0].Kind)
}

func TestReconcileRow5BothChangedConflicts(t *testing.T) {
	l, r := snapshots(
		map[string]LocalEntry{"Notes.md": {Path: "Notes.md", Hash: "local-new"}},
		map[string]RemoteEntry{"Notes.md": {RemoteID: "r1", ContentHash: "remote-new", Mtime: 200}},
	)
	state := []*Entry{{Path: "Notes.md", RemoteID: "r1", LocalHash: "old", RemoteHash: "old", RemoteMtime: 100, Status: StatusClean}}

	actions := Reconcile(l, r, state, ModeSync())
	require.Len(t, actions, 1)
	assert.Equal(t, ActionFlagConflict, actions[0].Kind)
	assert.Equal(t, StatusConflict, actions[0].Entry.Status)
}

func TestReconcileRow5ForcePullOverwritesLocal(t *testing.T) {
	l, r := snapshots(
		map[string]LocalEntry{"Notes.md": {Path: "Notes.md", Hash: "local-new"}},
		map[string]RemoteEntry{"Notes.md": {RemoteID: "r1", ContentHash: "remote-new", Mtime: 200}},
	)
	state := []*Entry{{Path: "Notes.md", RemoteID: "r1", LocalHash: "old", RemoteHash: "old", RemoteMtime: 100, Status: StatusClean}}

	actions := Reconcile(l, r, state, ModePull(true))
	require.Len(t, actions, 1)
	assert.Equal(t, ActionUpdateLocal, actions[0].Kind)
}

func TestReconcileRow6NewRemoteNoState(t *testing.T) {
	l, r := snapshots(nil, map[string]RemoteEntry{"Notes.md": {RemoteID: "r1"}})

	actions := Reconcile(l, r, nil, ModeSync())
	require.Len(t, actions, 1)
	assert.Equal(t, ActionCreateLocal, actions[0].Kind)
}

func TestReconcileRow7LocalDeletedCleanPropagates(t *testing.T) {
	_, r := snapshots(nil, map[string]RemoteEntry{"Notes.md": {RemoteID: "r1", Mtime: 100}})
	state := []*Entry{{Path: "Notes.md", RemoteID: "r1", RemoteMtime: 100, Status: StatusClean}}

	actions := Reconcile(&LocalSnapshot{ByPath: map[string]LocalEntry{}}, r, state, ModeSync())
	require.Len(t, actions, 1)
	assert.Equal(t, ActionDeleteRemote, actions[0].Kind)
}

func TestReconcileRow8LocalDeletedRemoteChanged(t *testing.T) {
	_, r := snapshots(nil, map[string]RemoteEntry{"Notes.md": {RemoteID: "r1", Mtime: 200}})
	state := []*Entry{{Path: "Notes.md", RemoteID: "r1", RemoteMtime: 100, Status: StatusClean}}

	actions := Reconcile(&LocalSnapshot{ByPath: map[string]LocalEntry{}}, r, state, ModeSync())
	require.Len(t, actions, 1)
	assert.Equal(t, ActionFlagDeletedLocal, actions[0].Kind)
}

func TestReconcileRow9RemoteDeletedCleanPropagates(t *testing.T) {
	l, _ := snapshots(map[string]LocalEntry{"Notes.md": {Path: "Notes.md", Hash: "h"}}, nil)
	state := []*Entry{{Path: "Notes.md", RemoteID: "r1", LocalHash: "h", Status: StatusClean}}

	actions := Reconcile(l, &RemoteSnapshot{ByPath: map[string]RemoteEntry{}}, state, ModeSync())
	require.Len(t, actions, 1)
	assert.Equal(t, ActionDeleteLocal, actions[0].Kind)
}

func TestReconcileRow10RemoteDeletedLocalChanged(t *testing.T) {
	l, _ := snapshots(map[string]LocalEntry{"Notes.md": {Path: "Notes.md", Hash: "new"}}, nil)
	state := []*Entry{{Path: "Notes.md", RemoteID: "r1", LocalHash: "old", Status: StatusClean}}

	actions := Reconcile(l, &RemoteSnapshot{ByPath: map[string]RemoteEntry{}}, state, ModeSync())
	require.Len(t, actions, 1)
	assert.Equal(t, ActionFlagDeletedRemote, actions[0].Kind)

	// Deletion safety law: the local file is never removed in this case.
	for _, a := range actions {
		assert.NotEqual(t, ActionDeleteLocal, a.Kind)
	}
}

func TestReconcileRow11NewLocalNoState(t *testing.T) {
	l, _ := snapshots(map[string]LocalEntry{"Notes.md": {Path: "Notes.md", Hash: "h"}}, nil)

	actions := Reconcile(l, &RemoteSnapshot{ByPath: map[string]RemoteEntry{}}, nil, ModeSync())
	require.Len(t, actions, 1)
	assert.Equal(t, ActionCreateRemote, actions[0].Kind)
}

func TestReconcileRow12BothAbsentForgetsState(t *testing.T) {
	state := []*Entry{{Path: "Notes.md", RemoteID: "r1", Status: StatusClean}}

	actions := Reconcile(&LocalSnapshot{ByPath: map[string]LocalEntry{}}, &RemoteSnapshot{ByPath: map[string]RemoteEntry{}}, state, ModeSync())
	require.Len(t, actions, 1)
	assert.Equal(t, ActionForgetEntry, actions[0].Kind)
}

func TestReconcileConflictIsSticky(t *testing.T) {
	l, r := snapshots(
		map[string]LocalEntry{"Notes.md": {Path: "Notes.md", Hash: "local-new"}},
		map[string]RemoteEntry{"Notes.md": {RemoteID: "r1", ContentHash: "remote-new", Mtime: 200}},
	)
	state := []*Entry{{Path: "Notes.md", RemoteID: "r1", LocalHash: "old", RemoteHash: "old", RemoteMtime: 100, Status: StatusConflict}}

	actions := Reconcile(l, r, state, ModeSync())
	assert.Empty(t, actions)
}

func TestReconcileKindChangeOverridesMatrix(t *testing.T) {
	l, r := snapshots(
		map[string]LocalEntry{"Projects": {Path: "Projects", Kind: KindContainer, Hash: "h"}},
		map[string]RemoteEntry{"Projects": {RemoteID: "r1", Kind: KindDatabase, ContentHash: "h"}},
	)
	state := []*Entry{{Path: "Projects", RemoteID: "r1", Kind: KindContainer, Status: StatusClean}}

	actions := Reconcile(l, r, state, ModeSync())
	require.Len(t, actions, 1)
	assert.Equal(t, ActionFlagKindChange, actions[0].Kind)
}

func TestReconcileParentBeforeChildOrdering(t *testing.T) {
	l, _ := snapshots(map[string]LocalEntry{
		"Projects":            {Path: "Projects", Kind: KindContainer, Hash: "p"},
		"Projects/Alpha.md":   {Path: "Projects/Alpha.md", Kind: KindLeaf, Hash: "a"},
	}, nil)

	actions := Reconcile(l, &RemoteSnapshot{ByPath: map[string]RemoteEntry{}}, nil, ModeSync())
	require.Len(t, actions, 2)
	assert.Equal(t, "Projects", actions[0].Path)
	assert.Equal(t, "Projects/Alpha.md", actions[1].Path)
}
