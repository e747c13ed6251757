package sync

// classifyKindChange implements spec_full.md §9's REDESIGN FLAG resolution:
// when both sides currently exist and state already tracks this path,
// compare the observed kind against the recorded kind. A mismatch (a page
// externally converted to a database, or vice versa) is never auto-resolved
// — it becomes a sticky kind-changed conflict, checked before the ordinary
// 12-row matrix rather than inside it, the same precedence-guard placement
// the teacher gives tombstone/deletion rows ahead of its general matrix.
func classifyKindChange(path string, st *Entry, l LocalEntry, localExists bool, r RemoteEntry, remoteExists bool) *Action {
	if st == nil || !localExists || !remoteExists {
		return nil
	}

	if l.Kind == st.Kind && r.Kind == st.Kind {
		return nil
	}

	return &Action{
		Kind:   ActionFlagKindChange,
		Path:   path,
		Entry:  st.clone(),
		Reason: "remote or local kind no longer matches the recorded kind",
	}
}

// classifyRow dispatches one union key to the matching row of spec.md
// §4.5's decision table. st is nil when state has no row for this path.
func classifyRow(path string, l LocalEntry, localExists bool, r RemoteEntry, remoteExists bool, st *Entry, mode Mode) *Action {
	switch {
	case localExists && remoteExists && st == nil:
		return rowBothNewNoState(path, l, r, mode)
	case localExists && remoteExists && st != nil:
		return rowBothExistWithState(path, l, r, st, mode)
	case !localExists && remoteExists && st == nil:
		return rowRemoteOnlyNoState(path, r, mode)
	case !localExists && remoteExists && st != nil:
		return rowRemoteOnlyWithState(path, r, st, mode)
	case localExists && !remoteExists && st != nil:
		return rowLocalOnlyWithState(path, l, st, mode)
	case localExists && !remoteExists && st == nil:
		return rowLocalOnlyNoState(path, l, mode)
	case !localExists && !remoteExists && st != nil:
		return rowBothAbsent(path, st)
	default:
		return nil // absent/absent/none: nothing ever existed, nothing to do
	}
}

// rowBothNewNoState: spec.md row 1 — exists/exists/none: "create-state,
// write-local if hashes differ". Direction of the overwrite, when bytes
// differ, follows the requested mode: push-only treats local as
// authoritative (push to remote), anything else treats remote as
// authoritative (pull to local) since pull and sync both default that way.
func rowBothNewNoState(path string, l LocalEntry, r RemoteEntry, mode Mode) *Action {
	entry := &Entry{
		Path: path, RemoteID: r.RemoteID, RemoteURL: "", ParentRemoteID: r.ParentRemoteID,
		Kind: l.Kind, LocalHash: l.Hash, RemoteHash: r.ContentHash, RemoteMtime: r.Mtime,
		Status: StatusClean,
	}

	if l.Hash == r.ContentHash {
		return &Action{Kind: ActionRecordClean, Path: path, Entry: entry, Reason: "local and remote already match, correlating state"}
	}

	if mode.Push && !mode.Pull {
		return &Action{Kind: ActionUpdateRemote, Path: path, ParentID: r.ParentRemoteID, Entry: entry, Reason: "push-only correlation: local treated as authoritative"}
	}

	return &Action{Kind: ActionUpdateLocal, Path: path, Entry: entry, Reason: "pull/sync correlation: remote treated as authoritative"}
}

// rowBothExistWithState covers spec.md rows 2-5: both sides exist and state
// already tracks the path. localChanged/remoteChanged implement the
// "local_hash=stored?"/"remote_mtime=stored?" columns; mtime comparison is
// strictly greater-than (spec.md §4.5 tie-break: equal counts as
// unchanged).
func rowBothExistWithState(path string, l LocalEntry, r RemoteEntry, st *Entry, mode Mode) *Action {
	localChanged := l.Hash != st.LocalHash
	remoteChanged := r.Mtime > st.RemoteMtime

	switch {
	case !localChanged && !remoteChanged:
		return nil // row 2: no-op (clean)
	case localChanged && !remoteChanged:
		return rowPushOrForceOverwrite(path, l, r, st, mode)
	case !localChanged && remoteChanged:
		return rowPullOrForceOverwrite(path, l, r, st, mode)
	default:
		return rowBothChanged(path, l, r, st, mode)
	}
}

// rowPushOrForceOverwrite: row 3, local-modified only. Pushed when push is
// requested; if only a force pull was requested, spec.md §4.5's "pull
// --force ignores local-modified" applies and the local edit is discarded.
func rowPushOrForceOverwrite(path string, l LocalEntry, r RemoteEntry, st *Entry, mode Mode) *Action {
	if mode.Push {
		next := st.clone()
		next.LocalHash = l.Hash
		next.Status = StatusLocalModified

		return &Action{Kind: ActionUpdateRemote, Path: path, ParentID: st.ParentRemoteID, Entry: next, Reason: "local modified since last sync"}
	}

	if mode.Pull && mode.ForcePull {
		next := st.clone()
		next.Status = StatusClean

		return &Action{Kind: ActionUpdateLocal, Path: path, Entry: next, Reason: "pull --force discards local modification"}
	}

	return nil
}

// rowPullOrForceOverwrite: row 4, remote-modified only.
func rowPullOrForceOverwrite(path string, l LocalEntry, r RemoteEntry, st *Entry, mode Mode) *Action {
	if mode.Pull {
		next := st.clone()
		next.RemoteHash = r.ContentHash
		next.RemoteMtime = r.Mtime
		next.Status = StatusRemoteModified

		return &Action{Kind: ActionUpdateLocal, Path: path, Entry: next, Reason: "remote modified since last sync"}
	}

	if mode.Push && mode.ForcePush {
		next := st.clone()
		next.Status = StatusClean

		return &Action{Kind: ActionUpdateRemote, Path: path, ParentID: st.ParentRemoteID, Entry: next, Reason: "push --force discards remote modification"}
	}

	return nil
}

// rowBothChanged: row 5, both sides changed since last sync. Force flags
// pick a winner without ever marking conflict; absent a force flag this is
// an unconditional conflict regardless of which direction was requested —
// spec.md's deletion-safety and conflict-stickiness laws both depend on
// conflict being a safety net a one-directional run can still trip.
func rowBothChanged(path string, l LocalEntry, r RemoteEntry, st *Entry, mode Mode) *Action {
	if mode.ForcePull {
		next := st.clone()
		next.Status = StatusClean

		return &Action{Kind: ActionUpdateLocal, Path: path, Entry: next, Reason: "pull --force overwrites local despite both sides changing"}
	}

	if mode.ForcePush {
		next := st.clone()
		next.Status = StatusClean

		return &Action{Kind: ActionUpdateRemote, Path: path, ParentID: st.ParentRemoteID, Entry: next, Reason: "push --force overwrites remote despite both sides changing"}
	}

	next := st.clone()
	next.LocalHash = l.Hash
	next.RemoteHash = r.ContentHash
	next.Status = StatusConflict

	return &Action{Kind: ActionFlagConflict, Path: path, Entry: next, Reason: "both local and remote changed since last sync"}
}

// rowRemoteOnlyNoState: row 6, absent/exists/none — a brand-new remote
// document with no local counterpart and nothing tracked yet. Pull-
// direction; only emitted when pull was requested.
func rowRemoteOnlyNoState(path string, r RemoteEntry, mode Mode) *Action {
	if !mode.Pull {
		return nil
	}

	entry := &Entry{
		Path: path, RemoteID: r.RemoteID, ParentRemoteID: r.ParentRemoteID, Kind: r.Kind,
		RemoteHash: r.ContentHash, RemoteMtime: r.Mtime, Status: StatusNewRemote,
	}

	return &Action{Kind: ActionCreateLocal, Path: path, Entry: entry, Reason: "new remote document"}
}

// rowRemoteOnlyWithState: rows 7-8, local gone but remote and state agree
// it once existed. remote_mtime=stored (row 7, unchanged) means the local
// deletion is clean and propagates; remote changed (row 8) means the
// deletion raced a remote edit and is only recorded, never executed,
// protecting spec.md's deletion-safety law in the other direction (here:
// don't silently delete a remote doc that just changed).
func rowRemoteOnlyWithState(path string, r RemoteEntry, st *Entry, mode Mode) *Action {
	remoteChanged := r.Mtime > st.RemoteMtime

	if !remoteChanged {
		if !mode.Push {
			return nil // propagating a local deletion to the remote is push-direction
		}

		return &Action{Kind: ActionDeleteRemote, Path: path, Entry: st.clone(), Reason: "local deletion propagated, remote unchanged since last sync"}
	}

	next := st.clone()
	next.Status = StatusDeletedLocal

	return &Action{Kind: ActionFlagDeletedLocal, Path: path, Entry: next, Reason: "local deleted while remote changed"}
}

// rowLocalOnlyWithState: rows 9-10, remote gone but local and state agree
// it once existed. local_hash=stored (row 9, unchanged) means the remote
// deletion is clean and propagates locally; local changed (row 10) means
// the deletion raced a local edit — spec.md's "Deletion safety" law: the
// local file is never removed in this case.
func rowLocalOnlyWithState(path string, l LocalEntry, st *Entry, mode Mode) *Action {
	localChanged := l.Hash != st.LocalHash

	if !localChanged {
		if !mode.Pull {
			return nil // propagating a remote deletion locally is pull-direction
		}

		return &Action{Kind: ActionDeleteLocal, Path: path, Entry: st.clone(), Reason: "remote deletion propagated, local unchanged since last sync"}
	}

	next := st.clone()
	next.Status = StatusDeletedRemote

	return &Action{Kind: ActionFlagDeletedRemote, Path: path, Entry: next, Reason: "remote deleted while local changed"}
}

// rowLocalOnlyNoState: row 11, exists/absent/none — a brand-new local file
// never seen by state or remote. Push-direction; only emitted when push was
// requested.
func rowLocalOnlyNoState(path string, l LocalEntry, mode Mode) *Action {
	if !mode.Push {
		return nil
	}

	entry := &Entry{Path: path, Kind: l.Kind, LocalHash: l.Hash, Status: StatusNewLocal}

	return &Action{Kind: ActionCreateRemote, Path: path, Entry: entry, Reason: "new local file"}
}

// rowBothAbsent: row 12, absent/absent/some — both sides agree the document
// is gone; only the tracking row remains. Always emitted regardless of
// mode: it is pure bookkeeping cleanup, not a transfer.
func rowBothAbsent(path string, st *Entry) *Action {
	return &Action{Kind: ActionForgetEntry, Path: path, Entry: st.clone(), Reason: "both sides deleted, forgetting tracked entry"}
}
