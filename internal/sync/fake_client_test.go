package sync

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/andersnylund/pagesync/internal/notion"
	"github.com/andersnylund/pagesync/internal/pagemd"
)

// fakeNode is one document in fakeClient's in-memory remote, addressable by
// RemoteID. Mirrors notion.TreeNode plus the content a real FetchContent
// call would return.
type fakeNode struct {
	id, parentID, title string
	kind                notion.Kind
	markdown            string
	properties          map[string]any
	mtime               time.Time
}

// fakeClient is a scripted notion.Client standing in for the real HTTP
// client in tests, the same role the teacher's fake Graph client plays for
// its own engine tests.
type fakeClient struct {
	nodes map[string]*fakeNode

	updates []string // remote IDs passed to Update, for assertions
	creates []string // titles passed to Create, for assertions
	deletes []string // remote IDs passed to Delete, for assertions
}

func newFakeClient() *fakeClient {
	return &fakeClient{nodes: make(map[string]*fakeNode)}
}

func (f *fakeClient) addNode(n *fakeNode) { f.nodes[n.id] = n }

func (f *fakeClient) FetchTree(ctx context.Context, rootID string) (<-chan notion.TreeNode, <-chan error) {
	nodes := make(chan notion.TreeNode, len(f.nodes))
	errs := make(chan error, 1)

	for _, n := range f.nodes {
		nodes <- notion.TreeNode{
			RemoteID: n.id,
			ParentID: n.parentID,
			Kind:     n.kind,
			Title:    n.title,
			Mtime:    n.mtime,
		}
	}

	close(nodes)
	close(errs)

	return nodes, errs
}

func (f *fakeClient) FetchContent(ctx context.Context, remoteID string) (*notion.Content, error) {
	n, ok := f.nodes[remoteID]
	if !ok {
		return nil, fmt.Errorf("fakeClient: unknown remote id %q", remoteID)
	}

	return &notion.Content{Markdown: n.markdown, Properties: n.properties}, nil
}

func (f *fakeClient) Create(ctx context.Context, parentID string, kind notion.Kind, title string, content *notion.Content) (string, error) {
	id := uuid.New().String()

	f.creates = append(f.creates, title)

	markdown := ""
	if content != nil {
		markdown = content.Markdown
	}

	f.addNode(&fakeNode{id: id, parentID: parentID, title: title, kind: kind, markdown: markdown, mtime: time.Now()})

	return id, nil
}

func (f *fakeClient) Update(ctx context.Context, remoteID string, diff *pagemd.Diff) (time.Time, error) {
	n, ok := f.nodes[remoteID]
	if !ok {
		return time.Time{}, fmt.Errorf("fakeClient: unknown remote id %q", remoteID)
	}

	f.updates = append(f.updates, remoteID)
	n.mtime = n.mtime.Add(time.Second)

	return n.mtime, nil
}

func (f *fakeClient) Delete(ctx context.Context, remoteID string) error {
	f.deletes = append(f.deletes, remoteID)
	delete(f.nodes, remoteID)

	return nil
}

func (f *fakeClient) FindByTitle(ctx context.Context, parentID, title string) (string, bool, error) {
	var match string

	for _, n := range f.nodes {
		if n.parentID == parentID && n.title == title {
			if match != "" {
				return "", true, nil
			}

			match = n.id
		}
	}

	return match, false, nil
}
