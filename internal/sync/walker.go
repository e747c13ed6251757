package sync

import (
	"context"
	"fmt"
	"io/fs"
	"path"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/andersnylund/pagesync/internal/fsport"
	"github.com/andersnylund/pagesync/internal/notion"
)

// indexFileName and schemaFileName are the well-known files that give a
// container directory its own content, per spec.md §6.1.
const (
	indexFileName  = "_index.md"
	schemaFileName = "_schema"
)

// LocalEntry is one node in a LocalSnapshot: a leaf file or a container
// directory (identified by its index/schema file), with content already
// read and hashed so the reconciler never touches disk itself.
type LocalEntry struct {
	Path  string
	Kind  Kind
	Bytes []byte
	Hash  string
}

// LocalSnapshot is WalkLocal's pure output, keyed by path (spec.md §4.4).
type LocalSnapshot struct {
	ByPath map[string]LocalEntry
}

// WalkLocal walks the workspace directory rooted at root through fs,
// applying filt's three-layer cascade, and yields container directories as
// an entry from their index/schema file plus one entry per child — exactly
// spec.md §4.4's "container directories are yielded as entries whose bytes
// come from their index file" rule. Grounded on the teacher's
// LocalObserver.FullScan full-tree walk, generalized from "diff against
// baseline" to "produce a snapshot" since the Walker itself is pure and
// never compares against state.
func WalkLocal(fs fsport.FS, filt *FilterEngine, root string) (*LocalSnapshot, error) {
	snap := &LocalSnapshot{ByPath: make(map[string]LocalEntry)}

	err := fs.Walk(root, func(relPath string, info fsport.Info, walkErr error) error {
		if walkErr != nil {
			return fmt.Errorf("sync: walking %q: %w", relPath, walkErr)
		}

		if relPath == "" {
			return nil
		}

		normPath := normalizePath(relPath)

		result := filt.ShouldSync(normPath, info.IsDir)
		if !result.Included {
			if info.IsDir {
				return fileskip()
			}

			return nil
		}

		if info.IsDir {
			return addContainerEntry(fs, snap, normPath)
		}

		return addLeafEntry(fs, snap, normPath)
	})
	if err != nil {
		return nil, err
	}

	return snap, nil
}

// fileskip returns fs.SkipDir, named so the walker's intent ("this
// directory is entirely excluded, don't descend") reads at the call site
// without an inline comment.
func fileskip() error { return fs.SkipDir }

func addContainerEntry(ffs fsport.FS, snap *LocalSnapshot, dirPath string) error {
	for _, kindFile := range []struct {
		name string
		kind Kind
	}{
		{indexFileName, KindContainer},
		{schemaFileName, KindDatabase},
	} {
		indexPath := path.Join(dirPath, kindFile.name)

		exists, err := ffs.Exists(indexPath)
		if err != nil {
			return fmt.Errorf("sync: checking %q: %w", indexPath, err)
		}

		if !exists {
			continue
		}

		contents, err := ffs.ReadFile(indexPath)
		if err != nil {
			return fmt.Errorf("sync: reading %q: %w", indexPath, err)
		}

		snap.ByPath[dirPath] = LocalEntry{
			Path:  dirPath,
			Kind:  kindFile.kind,
			Bytes: contents,
			Hash:  HashLocalFile(contents),
		}

		return nil
	}

	return nil
}

func addLeafEntry(ffs fsport.FS, snap *LocalSnapshot, filePath string) error {
	base := path.Base(filePath)
	if base == indexFileName || base == schemaFileName {
		// Container content files are folded into their directory's entry
		// by addContainerEntry; they are not independent entries.
		return nil
	}

	contents, err := ffs.ReadFile(filePath)
	if err != nil {
		return fmt.Errorf("sync: reading %q: %w", filePath, err)
	}

	kind := KindLeaf
	if isDatabaseEntryPath(filePath, snap) {
		kind = KindDatabaseEntry
	}

	snap.ByPath[filePath] = LocalEntry{
		Path:  filePath,
		Kind:  kind,
		Bytes: contents,
		Hash:  HashLocalFile(contents),
	}

	return nil
}

// isDatabaseEntryPath reports whether filePath's parent directory is a
// database container already recorded in snap (depends on directory-before-
// children walk order, which both fsport.FS implementations' Walk provide).
func isDatabaseEntryPath(filePath string, snap *LocalSnapshot) bool {
	parent, ok := snap.ByPath[path.Dir(filePath)]
	return ok && parent.Kind == KindDatabase
}

// normalizePath applies Unicode NFC normalization to a path's components so
// filenames that differ only in combining-character representation (common
// when a filesystem or editor composes/decomposes Unicode differently) hash
// and compare identically. Grounded on the teacher's scanner.go use of
// golang.org/x/text/unicode/norm for the same reason with OneDrive's own
// NFC-normalizing Graph API.
func normalizePath(p string) string {
	parts := strings.Split(p, "/")
	for i, part := range parts {
		parts[i] = norm.NFC.String(part)
	}

	return strings.Join(parts, "/")
}

// RemoteEntry is one node in a RemoteSnapshot, carrying the tree topology
// from FetchTree and, when fetched, the rendered content's hash.
type RemoteEntry struct {
	RemoteID       string
	ParentRemoteID string
	Kind           Kind
	Title          string
	Path           string // derived from the title chain, see remoteChildPath
	Mtime          int64  // unix nanoseconds
	ContentHash    string
	HasContent     bool
}

// RemoteSnapshot is WalkRemote's pure output, indexed both by remote id
// (the walk's native key) and by path. The path join happens by title
// convention (spec.md §6.2: "titles derive from filename (stem)") rather
// than solely "via state", so a remote node created since the last sync —
// with no state row yet — still lands at the path the reconciler's
// local/remote/state union needs to compare it against (spec.md §4.5 rows
// with "state: none").
type RemoteSnapshot struct {
	ByRemoteID map[string]RemoteEntry
	ByPath     map[string]RemoteEntry
}

// WalkRemote consumes FetchTree for the subtree under rootID and, for any
// node whose mtime exceeds the state's recorded remote_mtime, lazily fetches
// its content and hashes the canonical rendering — exactly spec.md §4.4's
// "lazy — only for nodes whose mtime exceeds the state's recorded
// remote_mtime" rule. Grounded on the teacher's delta.go lazy-fetch
// gate, generalized from a cursor-based delta query to the mtime
// comparison this remote contract supports.
//
// FetchTree yields nodes in BFS order, so a node's parent is always
// resolved in pathByID before the node itself is processed; this lets
// WalkRemote build each node's path by joining its parent's path with its
// own filename-derived component in one pass.
func WalkRemote(ctx context.Context, c notion.Client, rootID string, state Store) (*RemoteSnapshot, error) {
	snap := &RemoteSnapshot{
		ByRemoteID: make(map[string]RemoteEntry),
		ByPath:     make(map[string]RemoteEntry),
	}

	pathByID := map[string]string{rootID: ""}

	nodes, errs := c.FetchTree(ctx, rootID)

	for node := range nodes {
		parentPath, ok := pathByID[node.ParentID]
		if !ok {
			return nil, fmt.Errorf("sync: remote node %q has unresolved parent %q", node.RemoteID, node.ParentID)
		}

		nodePath := remoteChildPath(parentPath, node)
		pathByID[node.RemoteID] = nodePath

		entry, err := resolveRemoteEntry(ctx, c, state, node, nodePath)
		if err != nil {
			return nil, err
		}

		snap.ByRemoteID[entry.RemoteID] = entry
		snap.ByPath[entry.Path] = entry
	}

	if err := <-errs; err != nil {
		return nil, err
	}

	return snap, nil
}

// remoteChildPath derives a node's local-equivalent path from its parent's
// path and its own title: containers (page-with-children, database) become
// a directory named after the title; leaves and database entries become
// "<title>.md" inside that directory, matching spec.md §6.2's filename
// convention.
func remoteChildPath(parentPath string, node notion.TreeNode) string {
	name := node.Title
	if node.Kind != notion.KindContainer && node.Kind != notion.KindDatabase {
		name += ".md"
	}

	if parentPath == "" {
		return name
	}

	return parentPath + "/" + name
}

func resolveRemoteEntry(ctx context.Context, c notion.Client, state Store, node notion.TreeNode, nodePath string) (RemoteEntry, error) {
	entry := RemoteEntry{
		RemoteID:       node.RemoteID,
		ParentRemoteID: node.ParentID,
		Kind:           Kind(node.Kind),
		Title:          node.Title,
		Path:           nodePath,
		Mtime:          node.Mtime.UnixNano(),
	}

	existing, err := state.GetByRemoteID(ctx, node.RemoteID)
	if err != nil {
		return RemoteEntry{}, fmt.Errorf("sync: looking up state for remote id %q: %w", node.RemoteID, err)
	}

	stale := existing == nil || entry.Mtime > existing.RemoteMtime
	if !stale {
		return entry, nil
	}

	content, err := c.FetchContent(ctx, node.RemoteID)
	if err != nil {
		return RemoteEntry{}, fmt.Errorf("sync: fetching content for %q: %w", node.RemoteID, err)
	}

	// content.Markdown is already the remote client's canonical rendering
	// (notion.Client.FetchContent renders server-side); the walker hashes it
	// directly rather than re-deriving it from blocks.
	entry.ContentHash = HashRenderedRemote([]byte(content.Markdown))
	entry.HasContent = true

	return entry, nil
}
