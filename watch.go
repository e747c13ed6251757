package main

import (
	"fmt"
	"os/signal"
	"path/filepath"

	"github.com/spf13/cobra"

	pagesync "github.com/andersnylund/pagesync/internal/sync"
)

// pidFileName is the daemon PID file inside a workspace's metadata
// directory, parallel to state/config/lock.
const pidFileName = "watch.pid"

func newWatchCmd() *cobra.Command {
	var flagInterval string

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Run a long-lived daemon that syncs on local changes and remote polling",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runWatch(cmd, flagInterval)
		},
	}

	cmd.Flags().StringVar(&flagInterval, "interval", "", "remote poll interval (e.g. 30s), overrides workspace config")

	cmd.AddCommand(newWatchReloadCmd())

	return cmd
}

func newWatchReloadCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reload",
		Short: "Signal a running watch daemon in this workspace to sync immediately",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cc := mustCLIContext(cmd.Context())
			if cc.Workspace == nil {
				return usageErrorf("not inside a pagesync workspace")
			}

			pidPath := filepath.Join(cc.WorkspaceDir, ".pagesync", pidFileName)

			if err := sendSIGHUP(pidPath); err != nil {
				return fmt.Errorf("reload: %w", err)
			}

			statusf(cc.Flags.Quiet, "Signaled watch daemon to sync.\n")

			return nil
		},
	}
}

func runWatch(cmd *cobra.Command, flagInterval string) error {
	ctx := cmd.Context()
	cc := mustCLIContext(ctx)

	handle, err := openEngine(ctx, cc)
	if err != nil {
		return err
	}
	defer handle.Close()

	pidPath := filepath.Join(cc.WorkspaceDir, ".pagesync", pidFileName)

	cleanup, err := writePIDFile(pidPath)
	if err != nil {
		return fmt.Errorf("starting watch daemon: %w", err)
	}
	defer cleanup()

	pollInterval := parsePollInterval(cc.Workspace.Config.PollInterval)
	if flagInterval != "" {
		pollInterval = parsePollInterval(flagInterval)
	}

	watcher := pagesync.NewWatcher(pagesync.WatcherConfig{
		Engine:       handle.Engine,
		SyncRoot:     cc.WorkspaceDir,
		PollInterval: pollInterval,
		Debounce:     parseDebounce(cc.Workspace.Config.Debounce),
		Logger:       cc.Logger,
	})

	shutdown := shutdownContext(ctx, cc.Logger)

	hup := sighupChannel()
	defer signal.Stop(hup)

	go func() {
		for {
			select {
			case <-shutdown.Done():
				return
			case <-hup:
				watcher.TriggerReload("SIGHUP")
			}
		}
	}()

	statusf(cc.Flags.Quiet, "Watching %s (poll every %s)\n", cc.WorkspaceDir, pollInterval)

	if err := watcher.Run(shutdown); err != nil && shutdown.Err() == nil {
		return fmt.Errorf("watch daemon exited: %w", err)
	}

	return nil
}
