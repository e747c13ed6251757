package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/andersnylund/pagesync/internal/config"
	"github.com/andersnylund/pagesync/internal/workspace"
)

func newInitCmd() *cobra.Command {
	var flagPath string

	cmd := &cobra.Command{
		Use:   "init <remote-url>",
		Short: "Create a workspace bound to a remote root document",
		Long: `Create a new pagesync workspace in the current directory (or --path),
binding it to the remote document tree rooted at remote-url.`,
		Args:        cobra.ExactArgs(1),
		Annotations: map[string]string{skipConfigAnnotation: "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInit(cmd, args[0], flagPath)
		},
	}

	cmd.Flags().StringVar(&flagPath, "path", ".", "workspace directory to create")

	return cmd
}

func runInit(cmd *cobra.Command, remoteURL, path string) error {
	cc := mustCLIContext(cmd.Context())

	rootID, err := parseRemoteRootID(remoteURL)
	if err != nil {
		return usageErrorf("parsing remote-url: %w", err)
	}

	if err := os.MkdirAll(path, 0o755); err != nil {
		return fmt.Errorf("creating workspace directory %q: %w", path, err)
	}

	ws, err := workspace.Init(path, workspace.Config{
		RemoteRootID: rootID,
		RemoteURL:    remoteURL,
		PollInterval: cc.Registry.Sync.PollInterval,
		Debounce:     cc.Registry.Sync.Debounce,
		IgnoreFile:   cc.Registry.Sync.IgnoreFile,
	})
	if err != nil {
		return usageErrorf("%w", err)
	}

	name := filepath.Base(ws.Root)

	if err := config.RegisterWorkspace(cc.RegistryPath, name, config.WorkspaceRef{
		Path:      ws.Root,
		RemoteURL: remoteURL,
		CreatedAt: time.Now().UTC().Format(time.RFC3339),
	}); err != nil {
		return fmt.Errorf("registering workspace %q in the global registry: %w", name, err)
	}

	statusf(cc.Flags.Quiet, "Initialized pagesync workspace %q at %s (root %s)\n", name, ws.Root, rootID)
	statusf(cc.Flags.Quiet, "Run 'pagesync pull' to fetch the remote tree.\n")

	return nil
}

// parseRemoteRootID extracts the remote document ID from a remote-url. A
// remote document URL's final path segment is its ID, optionally prefixed
// with a human-readable title joined by a hyphen (e.g.
// "https://example.com/My-Workspace-20b1f2a7c0ed"); bare IDs are accepted
// unchanged.
func parseRemoteRootID(remoteURL string) (string, error) {
	trimmed := strings.TrimRight(remoteURL, "/")
	if trimmed == "" {
		return "", fmt.Errorf("remote-url is empty")
	}

	segment := trimmed
	if idx := strings.LastIndexByte(trimmed, '/'); idx >= 0 {
		segment = trimmed[idx+1:]
	}

	if idx := strings.LastIndexByte(segment, '?'); idx >= 0 {
		segment = segment[:idx]
	}

	if idx := strings.LastIndexByte(segment, '-'); idx >= 0 && idx < len(segment)-1 {
		segment = segment[idx+1:]
	}

	if segment == "" {
		return "", fmt.Errorf("could not extract a remote document ID from %q", remoteURL)
	}

	return segment, nil
}
