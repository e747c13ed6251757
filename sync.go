package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	pagesync "github.com/andersnylund/pagesync/internal/sync"
)

func newSyncCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Run one bidirectional reconcile cycle (pull and push in a single pass)",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			cc := mustCLIContext(ctx)

			handle, err := openEngine(ctx, cc)
			if err != nil {
				return err
			}
			defer handle.Close()

			report, err := handle.Engine.Sync(ctx)

			return finishSyncCommand(cc, "sync", report, err)
		},
	}
}

// finishSyncCommand prints a SyncReport in the requested format and returns
// the exit-code-carrying outcome spec.md §6.3 specifies: a real error maps
// to exit 1 (or a codedError's own code); otherwise a non-empty Conflicted or
// Failed count exits 1 directly without treating it as a Go error — entries
// left permanently failed (e.g. StatusConversionError) are as much a failed
// command as a conflict is.
func finishSyncCommand(cc *CLIContext, verb string, report *pagesync.SyncReport, err error) error {
	if err != nil {
		return wrapRemoteError(verb, err)
	}

	if cc.Flags.JSON {
		if jsonErr := printSyncReportJSON(report); jsonErr != nil {
			return jsonErr
		}
	} else {
		printSyncReportText(cc.Flags.Quiet, verb, report)
	}

	if report.Conflicted > 0 || report.Failed > 0 {
		os.Exit(1)
	}

	return nil
}

func printSyncReportText(quiet bool, verb string, report *pagesync.SyncReport) {
	if report.Succeeded == 0 && report.Conflicted == 0 && report.Failed == 0 {
		statusf(quiet, "%s: already in sync (%s)\n", verb, report.Duration)
		return
	}

	statusf(quiet, "%s complete (%s)\n", verb, report.Duration)
	statusf(quiet, "  Succeeded:  %d\n", report.Succeeded)

	if report.Conflicted > 0 {
		statusf(quiet, "  Conflicts:  %d\n", report.Conflicted)
	}

	if report.Failed > 0 {
		statusf(quiet, "  Failed:     %d\n", report.Failed)

		for _, e := range report.Errors {
			statusf(quiet, "    %s (%s): %v\n", e.Path, e.Action, e.Err)
		}
	}
}

type syncReportJSON struct {
	Succeeded  int                 `json:"succeeded"`
	Conflicted int                 `json:"conflicted"`
	Failed     int                 `json:"failed"`
	DurationMs int64               `json:"duration_ms"`
	Errors     []syncReportErrJSON `json:"errors,omitempty"`
}

type syncReportErrJSON struct {
	Path   string `json:"path"`
	Action string `json:"action"`
	Error  string `json:"error"`
}

func printSyncReportJSON(report *pagesync.SyncReport) error {
	out := syncReportJSON{
		Succeeded:  report.Succeeded,
		Conflicted: report.Conflicted,
		Failed:     report.Failed,
		DurationMs: report.Duration.Milliseconds(),
	}

	for _, e := range report.Errors {
		out.Errors = append(out.Errors, syncReportErrJSON{Path: e.Path, Action: string(e.Action), Error: e.Err.Error()})
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")

	if err := enc.Encode(out); err != nil {
		return fmt.Errorf("encoding JSON output: %w", err)
	}

	return nil
}
