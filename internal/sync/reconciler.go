package sync

import "sort"

// Mode generalizes the teacher's SyncDownloadOnly/SyncUploadOnly/SyncMode
// to spec.md §4.6's pull/push/sync directions, carrying the Force flags
// spec.md §4.5 names. Pull and Push are independent (both set means a full
// sync); at least one must be set for Reconcile's output to be executed,
// enforced by the engine, not the Reconciler itself.
type Mode struct {
	Pull      bool
	Push      bool
	ForcePull bool // pull --force: overwrite local-modified instead of leaving it
	ForcePush bool // push --force: overwrite remote-modified instead of leaving it
}

func ModeSync() Mode           { return Mode{Pull: true, Push: true} }
func ModePull(force bool) Mode { return Mode{Pull: true, ForcePull: force} }
func ModePush(force bool) Mode { return Mode{Push: true, ForcePush: force} }
func ModeStatus() Mode         { return Mode{Pull: true, Push: true} }

// Reconcile is the pure decision function of spec.md §4.5: given snapshots
// of the local tree, the remote tree, and the durable state, produce the
// ordered list of actions needed to converge them. It performs no I/O and
// mutates none of its inputs — grounded on the teacher's
// Reconciler.Reconcile/applyFileMatrix shape (classify-by-table, one pure
// function per decision row), generalized from the teacher's 14-row file
// matrix to spec.md §4.5's 12-row table.
//
// A pre-existing status of conflict or kind-changed is sticky (spec.md §3.2
// invariant 5, spec_full.md §9's kind-change resolution): such entries are
// filtered out of the matrix entirely and produce no action except through
// an explicit Resolve call, which the engine invokes directly rather than
// through this function.
func Reconcile(local *LocalSnapshot, remote *RemoteSnapshot, state []*Entry, mode Mode) []Action {
	stateByPath := make(map[string]*Entry, len(state))
	for _, e := range state {
		stateByPath[e.Path] = e
	}

	keys := unionKeys(stateByPath, local.ByPath, remote.ByPath)

	var actions []Action

	for _, path := range keys {
		st := stateByPath[path]

		if st != nil && (st.Status == StatusConflict || st.Status == StatusKindChanged) {
			continue
		}

		// A conversion error stays put until the local content's hash changes.
		if st != nil && st.Status == StatusConversionError && local.ByPath[path].Hash == st.LocalHash {
			continue
		}

		l, localExists := local.ByPath[path]
		r, remoteExists := remote.ByPath[path]

		if a := classifyKindChange(path, st, l, localExists, r, remoteExists); a != nil {
			actions = append(actions, *a)
			continue
		}

		a := classifyRow(path, l, localExists, r, remoteExists, st, mode)
		if a != nil {
			actions = append(actions, *a)
		}
	}

	return orderPlan(actions)
}

// unionKeys returns every path appearing in any of the three inputs, sorted
// for deterministic iteration order (reconciliation must be reproducible
// given the same three snapshots).
func unionKeys(state map[string]*Entry, local map[string]LocalEntry, remote map[string]RemoteEntry) []string {
	seen := make(map[string]struct{}, len(state)+len(local)+len(remote))

	for p := range state {
		seen[p] = struct{}{}
	}

	for p := range local {
		seen[p] = struct{}{}
	}

	for p := range remote {
		seen[p] = struct{}{}
	}

	keys := make([]string, 0, len(seen))
	for p := range seen {
		keys = append(keys, p)
	}

	sort.Strings(keys)

	return keys
}
