package sync

import (
	"crypto/sha256"
	"encoding/hex"
)

// HashBytes returns the content fingerprint used throughout the sync engine:
// a lowercase hex SHA-256 digest over the given bytes. Local files are
// hashed directly; remote content is hashed over its canonical rendered
// markdown (pagemd.Render output), never over the raw block tree, because
// the block tree carries non-deterministic field ordering that would defeat
// stable comparison (spec.md §4.1).
func HashBytes(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

// HashLocalFile names the call site hashing bytes read from disk.
func HashLocalFile(contents []byte) string { return HashBytes(contents) }

// HashRenderedRemote names the call site hashing pagemd's canonical
// markdown rendering of remote block content. It is a distinct name (not
// just a second call to HashBytes) so the round-trip law in spec.md §4.1 —
// hash(render(pull(x))) == hash(read(write(render(pull(x))))) when no edit
// occurred — reads directly off the two function names it relates.
func HashRenderedRemote(canonicalMarkdown []byte) string { return HashBytes(canonicalMarkdown) }
