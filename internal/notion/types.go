package notion

import "time"

// Kind mirrors sync.Kind but is defined locally: notion must not import
// internal/sync (the dependency runs the other way), so the engine converts
// between the two tagged-string types at the call site.
type Kind string

const (
	KindLeaf          Kind = "leaf"
	KindContainer     Kind = "container-page"
	KindDatabase      Kind = "database"
	KindDatabaseEntry Kind = "database-entry"
)

// TreeNode is one node yielded by FetchTree: enough to place it in the
// remote tree and decide whether its content needs fetching (mtime compared
// against the state store's recorded remote_mtime, per spec.md §4.4).
type TreeNode struct {
	RemoteID string
	ParentID string
	Kind     Kind
	Title    string
	Mtime    time.Time
}

// Content is one document's fetched body: rendered markdown plus, for
// database entries, the property map that becomes YAML frontmatter.
type Content struct {
	Markdown   string
	Properties map[string]any
}
