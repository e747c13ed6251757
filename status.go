package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	pagesync "github.com/andersnylund/pagesync/internal/sync"
)

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Print pending sync actions without executing them",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			cc := mustCLIContext(ctx)

			handle, err := openEngine(ctx, cc)
			if err != nil {
				return err
			}
			defer handle.Close()

			actions, err := handle.Engine.Status(ctx)
			if err != nil {
				return wrapRemoteError("status", err)
			}

			if cc.Flags.JSON {
				return printStatusJSON(actions)
			}

			printStatusText(actions)

			return nil
		},
	}
}

func printStatusText(actions []pagesync.Action) {
	if len(actions) == 0 {
		fmt.Println("Nothing to do — workspace is in sync.")
		return
	}

	rows := make([][]string, 0, len(actions))
	for _, a := range actions {
		rows = append(rows, []string{string(a.Kind), a.Path, a.Reason})
	}

	printTable(os.Stdout, []string{"ACTION", "PATH", "REASON"}, rows)
}

type statusActionJSON struct {
	Kind   string `json:"kind"`
	Path   string `json:"path"`
	Reason string `json:"reason"`
}

func printStatusJSON(actions []pagesync.Action) error {
	out := make([]statusActionJSON, 0, len(actions))
	for _, a := range actions {
		out = append(out, statusActionJSON{Kind: string(a.Kind), Path: a.Path, Reason: a.Reason})
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")

	if err := enc.Encode(out); err != nil {
		return fmt.Errorf("encoding JSON output: %w", err)
	}

	return nil
}
