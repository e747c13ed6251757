package main

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"github.com/andersnylund/pagesync/internal/config"
)

func newListCmd() *cobra.Command {
	return &cobra.Command{
		Use:         "list",
		Short:       "Show configured workspaces",
		Annotations: map[string]string{skipConfigAnnotation: "true"},
		RunE: func(cmd *cobra.Command, _ []string) error {
			cc := mustCLIContext(cmd.Context())

			if len(cc.Registry.Workspaces) == 0 {
				fmt.Println("No workspaces configured. Run 'pagesync init <remote-url>' to create one.")
				return nil
			}

			names := make([]string, 0, len(cc.Registry.Workspaces))
			for name := range cc.Registry.Workspaces {
				names = append(names, name)
			}

			sort.Strings(names)

			if cc.Flags.JSON {
				return printWorkspacesJSON(cc.Registry.Workspaces, names)
			}

			printWorkspacesText(cc.Registry.Workspaces, names)

			return nil
		},
	}
}

func printWorkspacesText(workspaces map[string]config.WorkspaceRef, names []string) {
	rows := make([][]string, 0, len(names))

	for _, name := range names {
		ref := workspaces[name]

		created := ref.CreatedAt
		if t, err := time.Parse(time.RFC3339, ref.CreatedAt); err == nil {
			created = formatAge(t)
		}

		rows = append(rows, []string{name, ref.Path, ref.RemoteURL, created})
	}

	printTable(os.Stdout, []string{"NAME", "PATH", "REMOTE", "CREATED"}, rows)
}

type workspaceJSON struct {
	Name      string `json:"name"`
	Path      string `json:"path"`
	RemoteURL string `json:"remote_url"`
	CreatedAt string `json:"created_at"`
}

func printWorkspacesJSON(workspaces map[string]config.WorkspaceRef, names []string) error {
	out := make([]workspaceJSON, 0, len(names))
	for _, name := range names {
		ref := workspaces[name]
		out = append(out, workspaceJSON{Name: name, Path: ref.Path, RemoteURL: ref.RemoteURL, CreatedAt: ref.CreatedAt})
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")

	if err := enc.Encode(out); err != nil {
		return fmt.Errorf("encoding JSON output: %w", err)
	}

	return nil
}
