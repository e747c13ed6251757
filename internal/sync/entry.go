// Package sync implements the core sync engine: content hashing, durable
// state, the pure reconciler, the sync engine that executes reconciler
// output, and the watcher daemon. It is the only package in the module that
// holds sync invariants; everything else is a collaborator it calls through
// a typed interface (internal/notion, internal/pagemd, internal/fsport).
package sync

// Kind tags what shape of remote document an entry represents. A tagged
// field plus kind-keyed dispatch (see reconcileItem) replaces any notion of
// a subclass hierarchy between leaf pages, containers, and databases.
type Kind string

const (
	KindLeaf          Kind = "leaf"
	KindContainer     Kind = "container-page"
	KindDatabase      Kind = "database"
	KindDatabaseEntry Kind = "database-entry"
)

// IsContainer reports whether entries of this kind hold children on disk
// (a directory with an index file) rather than being a single leaf file.
func (k Kind) IsContainer() bool {
	return k == KindContainer || k == KindDatabase
}

// Status is the sync state of one Entry, per spec.md §3.1.
type Status string

const (
	StatusClean          Status = "clean"
	StatusLocalModified  Status = "local-modified"
	StatusRemoteModified Status = "remote-modified"
	StatusConflict       Status = "conflict"
	StatusDeletedLocal   Status = "deleted-local"
	StatusDeletedRemote  Status = "deleted-remote"
	StatusNewLocal       Status = "new-local"
	StatusNewRemote      Status = "new-remote"

	// StatusKindChanged is a REDESIGN FLAG resolution (spec_full.md §9): a
	// remote page converted to a database (or vice versa) by external
	// editing is a sticky conflict variant, never auto-resolved.
	StatusKindChanged Status = "kind-changed"

	// StatusConversionError is a sticky status for entries whose content
	// pagemd cannot parse or render (spec.md §7 item 3). Skipped on
	// subsequent runs until local_hash changes.
	StatusConversionError Status = "conversion-error"
)

// Entry is the primary synchronized unit: a leaf page or a container
// (directory with an index file plus children), per spec.md §3.1.
type Entry struct {
	Path           string
	RemoteID       string
	RemoteURL      string
	ParentRemoteID string
	Kind           Kind
	LocalHash      string
	RemoteHash     string
	RemoteMtime    int64 // unix nanoseconds; 0 means never observed
	Status         Status
	CreatedAt      int64
	UpdatedAt      int64
}

// HasLocalBaseline reports whether this entry was synced locally before
// (spec.md §4.5's "local_hash=stored?" column).
func (e *Entry) HasLocalBaseline() bool { return e.LocalHash != "" }

// HasRemoteBaseline reports whether this entry's remote mtime was observed
// before (spec.md §4.5's "remote_mtime=stored?" column).
func (e *Entry) HasRemoteBaseline() bool { return e.RemoteMtime != 0 }

// clone returns a shallow copy, used by the reconciler so action-building
// never mutates the snapshot it was given.
func (e *Entry) clone() *Entry {
	if e == nil {
		return nil
	}

	cp := *e

	return &cp
}
