package main

import (
	"context"

	"github.com/spf13/cobra"
)

func newPullCmd() *cobra.Command {
	var flagForce bool

	cmd := &cobra.Command{
		Use:   "pull",
		Short: "Run a pull-only reconcile cycle (remote changes flow to local)",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runDirectionalSync(cmd.Context(), "pull", flagForce)
		},
	}

	cmd.Flags().BoolVar(&flagForce, "force", false, "overwrite conflicting local state with remote")

	return cmd
}

func newPushCmd() *cobra.Command {
	var flagForce bool

	cmd := &cobra.Command{
		Use:   "push",
		Short: "Run a push-only reconcile cycle (local changes flow to remote)",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runDirectionalSync(cmd.Context(), "push", flagForce)
		},
	}

	cmd.Flags().BoolVar(&flagForce, "force", false, "overwrite conflicting remote state with local")

	return cmd
}

// runDirectionalSync implements both pull and push: identical shape, only
// the Engine method and message wording differ.
func runDirectionalSync(ctx context.Context, direction string, force bool) error {
	cc := mustCLIContext(ctx)

	handle, err := openEngine(ctx, cc)
	if err != nil {
		return err
	}
	defer handle.Close()

	switch direction {
	case "pull":
		rep, err := handle.Engine.Pull(ctx, force)
		return finishSyncCommand(cc, "pull", rep, err)
	case "push":
		rep, err := handle.Engine.Push(ctx, force)
		return finishSyncCommand(cc, "push", rep, err)
	default:
		panic("BUG: unknown direction " + direction)
	}
}
