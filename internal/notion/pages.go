package notion

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/andersnylund/pagesync/internal/pagemd"
)

// Client is the typed surface internal/sync consumes, per spec.md §4.3.
// FindByTitle is the adoption probe spec.md §7.6 requires for orphan
// recovery after a crashed create.
type Client interface {
	FetchTree(ctx context.Context, rootID string) (<-chan TreeNode, <-chan error)
	FetchContent(ctx context.Context, remoteID string) (*Content, error)
	Create(ctx context.Context, parentID string, kind Kind, title string, content *Content) (remoteID string, err error)
	Update(ctx context.Context, remoteID string, diff *pagemd.Diff) (newMtime time.Time, err error)
	Delete(ctx context.Context, remoteID string) error
	FindByTitle(ctx context.Context, parentID, title string) (remoteID string, ambiguous bool, err error)
}

// wireNode is the JSON shape of one tree-listing entry returned by
// GET /pages/{root}/children (recursively walked by FetchTree).
type wireNode struct {
	ID         string    `json:"id"`
	ParentID   string    `json:"parent_id"`
	Kind       Kind      `json:"kind"`
	Title      string    `json:"title"`
	ModifiedAt time.Time `json:"last_edited_time"`
	HasChildren bool     `json:"has_children"`
}

type wireContent struct {
	Markdown   string         `json:"markdown"`
	Properties map[string]any `json:"properties"`
}

type wireCreateRequest struct {
	ParentID string `json:"parent_id"`
	Kind     Kind   `json:"kind"`
	Title    string `json:"title"`
	wireContent
}

type wireCreateResponse struct {
	ID string `json:"id"`
}

type wireUpdateRequest struct {
	Ops        []pagemd.Op    `json:"ops"`
	Properties map[string]any `json:"properties,omitempty"`
}

type wireUpdateResponse struct {
	ModifiedAt time.Time `json:"last_edited_time"`
}

type wireSearchResponse struct {
	Results []wireNode `json:"results"`
}

// FetchTree traverses the remote subtree under rootID, yielding nodes on a
// channel as they're discovered (breadth-first over child listings) so the
// Walker can start classifying before the whole tree has been fetched.
// Grounded on the teacher's delta.go streaming-cursor shape, generalized
// from a true delta API to repeated "list children" calls since the remote
// contract here only exposes per-node children listing.
func (c *client) FetchTree(ctx context.Context, rootID string) (<-chan TreeNode, <-chan error) {
	nodes := make(chan TreeNode)
	errs := make(chan error, 1)

	go func() {
		defer close(nodes)
		defer close(errs)

		queue := []string{rootID}

		for len(queue) > 0 {
			id := queue[0]
			queue = queue[1:]

			children, err := c.listChildren(ctx, id)
			if err != nil {
				errs <- err
				return
			}

			for _, n := range children {
				select {
				case nodes <- TreeNode{RemoteID: n.ID, ParentID: n.ParentID, Kind: n.Kind, Title: n.Title, Mtime: n.ModifiedAt}:
				case <-ctx.Done():
					errs <- fmt.Errorf("notion: fetch tree canceled: %w", ctx.Err())
					return
				}

				if n.HasChildren {
					queue = append(queue, n.ID)
				}
			}
		}
	}()

	return nodes, errs
}

func (c *client) listChildren(ctx context.Context, parentID string) ([]wireNode, error) {
	resp, err := c.do(ctx, http.MethodGet, "/pages/"+url.PathEscape(parentID)+"/children", nil)
	if err != nil {
		return nil, err
	}

	var out wireSearchResponse
	if err := decodeJSON(resp, &out); err != nil {
		return nil, err
	}

	return out.Results, nil
}

// FetchContent retrieves one document's rendered markdown and, for database
// entries, its property map.
func (c *client) FetchContent(ctx context.Context, remoteID string) (*Content, error) {
	resp, err := c.do(ctx, http.MethodGet, "/pages/"+url.PathEscape(remoteID)+"/content", nil)
	if err != nil {
		return nil, err
	}

	var out wireContent
	if err := decodeJSON(resp, &out); err != nil {
		return nil, err
	}

	return &Content{Markdown: out.Markdown, Properties: out.Properties}, nil
}

// Create creates a new remote document. Not idempotent — per spec.md §4.3
// the engine is responsible for recording remote_id only after this
// returns successfully, and for probing via FindByTitle before retrying a
// create whose response was lost to a crash.
func (c *client) Create(ctx context.Context, parentID string, kind Kind, title string, content *Content) (string, error) {
	req := wireCreateRequest{ParentID: parentID, Kind: kind, Title: title}
	if content != nil {
		req.wireContent = wireContent{Markdown: content.Markdown, Properties: content.Properties}
	}

	body, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("notion: encoding create request: %w", err)
	}

	resp, err := c.do(ctx, http.MethodPost, "/pages", body)
	if err != nil {
		return "", err
	}

	var out wireCreateResponse
	if err := decodeJSON(resp, &out); err != nil {
		return "", err
	}

	return out.ID, nil
}

// Update applies a minimal block diff. Naturally idempotent by content:
// re-applying the same Diff against a document already in the target state
// produces the same state (spec.md §4.3) because every Op names the target
// block value, never a positional delta relative to "what's already there".
func (c *client) Update(ctx context.Context, remoteID string, diff *pagemd.Diff) (time.Time, error) {
	if diff.IsEmpty() {
		return time.Time{}, nil
	}

	body, err := json.Marshal(wireUpdateRequest{Ops: diff.Ops, Properties: diff.Properties})
	if err != nil {
		return time.Time{}, fmt.Errorf("notion: encoding update request: %w", err)
	}

	resp, err := c.do(ctx, http.MethodPatch, "/pages/"+url.PathEscape(remoteID), body)
	if err != nil {
		return time.Time{}, err
	}

	var out wireUpdateResponse
	if err := decodeJSON(resp, &out); err != nil {
		return time.Time{}, err
	}

	return out.ModifiedAt, nil
}

// Delete archives the remote document. The remote service is expected to
// soft-delete (archive) rather than hard-delete, matching spec.md's
// "archives the remote document" wording.
func (c *client) Delete(ctx context.Context, remoteID string) error {
	resp, err := c.do(ctx, http.MethodDelete, "/pages/"+url.PathEscape(remoteID), nil)
	if err != nil {
		return err
	}

	resp.Body.Close()

	return nil
}

// FindByTitle is the orphan-adoption probe (spec.md §7.6): searches the
// given parent's children for an exact title match. Zero matches returns
// ("", false, nil); more than one match returns ambiguous=true so the
// engine can flag the path as an ambiguous-adoption conflict instead of
// guessing.
func (c *client) FindByTitle(ctx context.Context, parentID, title string) (string, bool, error) {
	children, err := c.listChildren(ctx, parentID)
	if err != nil {
		return "", false, err
	}

	var matches []string

	for _, n := range children {
		if n.Title == title {
			matches = append(matches, n.ID)
		}
	}

	switch len(matches) {
	case 0:
		return "", false, nil
	case 1:
		return matches[0], false, nil
	default:
		return "", true, nil
	}
}
