package main

import (
	"github.com/spf13/cobra"
)

func newResolveCmd() *cobra.Command {
	var flagKeepLocal, flagKeepRemote, flagKeepBoth bool

	cmd := &cobra.Command{
		Use:   "resolve <path>",
		Short: "Resolve a conflicted entry",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cc := mustCLIContext(ctx)

			resolution, err := pickResolution(flagKeepLocal, flagKeepRemote, flagKeepBoth)
			if err != nil {
				return err
			}

			handle, err := openEngine(ctx, cc)
			if err != nil {
				return err
			}
			defer handle.Close()

			if err := handle.Engine.Resolve(ctx, args[0], resolution); err != nil {
				return wrapRemoteError("resolve", err)
			}

			statusf(cc.Flags.Quiet, "Resolved %q (%s)\n", args[0], resolution)

			return nil
		},
	}

	cmd.Flags().BoolVar(&flagKeepLocal, "keep-local", false, "push the local copy over the remote")
	cmd.Flags().BoolVar(&flagKeepRemote, "keep-remote", false, "pull the remote copy over local")
	cmd.Flags().BoolVar(&flagKeepBoth, "keep-both", false, "keep both copies, renaming the local file aside")

	cmd.MarkFlagsMutuallyExclusive("keep-local", "keep-remote", "keep-both")
	cmd.MarkFlagsOneRequired("keep-local", "keep-remote", "keep-both")

	return cmd
}

func pickResolution(keepLocal, keepRemote, keepBoth bool) (string, error) {
	switch {
	case keepLocal:
		return "keep-local", nil
	case keepRemote:
		return "keep-remote", nil
	case keepBoth:
		return "keep-both", nil
	default:
		return "", usageErrorf("one of --keep-local, --keep-remote, or --keep-both is required")
	}
}
