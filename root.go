package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/andersnylund/pagesync/internal/config"
	"github.com/andersnylund/pagesync/internal/workspace"
)

// version is set at build time via ldflags.
var version = "dev"

// Global persistent flags, bound in newRootCmd().
var (
	flagConfigPath string
	flagToken      string
	flagJSON       bool
	flagVerbose    bool
	flagDebug      bool
	flagQuiet      bool
)

// skipConfigAnnotation marks commands that resolve their own workspace (or
// have none yet): init creates a workspace, list operates on the global
// registry only. Every other command requires PersistentPreRunE to have
// already located and loaded one. Grounded on the teacher's root.go pattern.
const skipConfigAnnotation = "skipConfig"

// CLIContext bundles the resolved global registry, an optional workspace,
// and a logger. Created once in PersistentPreRunE.
type CLIContext struct {
	Registry     *config.Config
	RegistryPath string
	Workspace    *workspace.Workspace
	WorkspaceDir string
	Logger       *slog.Logger
	Flags        CLIFlags
}

// CLIFlags holds the parsed global flags, grouped to avoid threading five
// positional bools through call chains.
type CLIFlags struct {
	ConfigPath string
	Token      string
	JSON       bool
	Quiet      bool
}

type cliContextKey struct{}

func cliContextFrom(ctx context.Context) *CLIContext {
	cc, _ := ctx.Value(cliContextKey{}).(*CLIContext)
	return cc
}

// mustCLIContext extracts the CLIContext or panics — a programmer error,
// since PersistentPreRunE always populates it before any RunE runs.
func mustCLIContext(ctx context.Context) *CLIContext {
	cc := cliContextFrom(ctx)
	if cc == nil {
		panic("BUG: CLIContext not found in context")
	}

	return cc
}

// codedError pairs an error with the process exit code spec.md §6.3
// mandates: 2 usage, 3 remote/auth, 4 state corruption. Errors without a
// codedError wrapper exit 1 (the generic "run failed" code).
type codedError struct {
	err  error
	code int
}

func (e *codedError) Error() string { return e.err.Error() }
func (e *codedError) Unwrap() error { return e.err }

func usageErrorf(format string, args ...any) error {
	return &codedError{err: fmt.Errorf(format, args...), code: 2}
}

func remoteErrorf(format string, args ...any) error {
	return &codedError{err: fmt.Errorf(format, args...), code: 3}
}

func stateCorruptionErrorf(format string, args ...any) error {
	return &codedError{err: fmt.Errorf(format, args...), code: 4}
}

// httpClientTimeout bounds every HTTP request the remote client issues.
const httpClientTimeout = 30 * time.Second

func defaultHTTPClient() *http.Client {
	return &http.Client{Timeout: httpClientTimeout}
}

// newRootCmd builds and returns the fully-assembled root command with all
// subcommands registered. Called once from main().
func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "pagesync",
		Short:   "Bidirectional document sync between a local directory and a remote workspace",
		Long:    "pagesync keeps a local directory of markdown files in sync with a remote document workspace.",
		Version: version,
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return loadCLIContext(cmd)
		},
	}

	cmd.PersistentFlags().StringVar(&flagConfigPath, "config", "", "global registry file path")
	cmd.PersistentFlags().StringVar(&flagToken, "token", "", "remote API token (overrides PAGESYNC_API_TOKEN)")
	cmd.PersistentFlags().BoolVar(&flagJSON, "json", false, "output in JSON format")
	cmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "show detailed output")
	cmd.PersistentFlags().BoolVar(&flagDebug, "debug", false, "enable debug logging")
	cmd.PersistentFlags().BoolVarP(&flagQuiet, "quiet", "q", false, "suppress informational output")

	cmd.MarkFlagsMutuallyExclusive("verbose", "debug", "quiet")

	cmd.AddCommand(newInitCmd())
	cmd.AddCommand(newPullCmd())
	cmd.AddCommand(newPushCmd())
	cmd.AddCommand(newSyncCmd())
	cmd.AddCommand(newStatusCmd())
	cmd.AddCommand(newResolveCmd())
	cmd.AddCommand(newWatchCmd())
	cmd.AddCommand(newListCmd())

	return cmd
}

// loadCLIContext resolves the global registry, locates and loads a workspace
// unless the command is annotated skipConfigAnnotation, builds the logger,
// and stores the result in the command's context.
func loadCLIContext(cmd *cobra.Command) error {
	logger := buildLogger(nil)

	registryPath := flagConfigPath
	if registryPath == "" {
		if env := os.Getenv(config.EnvConfigPath); env != "" {
			registryPath = env
		} else {
			registryPath = config.DefaultRegistryPath()
		}
	}

	reg, err := config.Load(registryPath, logger)
	if err != nil {
		return usageErrorf("loading registry: %w", err)
	}

	finalLogger := buildLogger(&reg.Logging)

	cc := &CLIContext{
		Registry:     reg,
		RegistryPath: registryPath,
		Logger:       finalLogger,
		Flags: CLIFlags{
			ConfigPath: registryPath,
			Token:      flagToken,
			JSON:       flagJSON,
			Quiet:      flagQuiet,
		},
	}

	if cmd.Annotations[skipConfigAnnotation] != "true" {
		dir, err := os.Getwd()
		if err != nil {
			return fmt.Errorf("determining working directory: %w", err)
		}

		root, err := workspace.Find(dir)
		if err != nil {
			return usageErrorf("%w (run 'pagesync init' first, or cd into an existing workspace)", err)
		}

		ws, err := workspace.Load(root)
		if err != nil {
			return usageErrorf("loading workspace: %w", err)
		}

		cc.Workspace = ws
		cc.WorkspaceDir = root
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	cmd.SetContext(context.WithValue(ctx, cliContextKey{}, cc))

	return nil
}

// buildLogger creates an slog.Logger using lmittmann/tint for readable,
// colorized output when stderr is a terminal, falling back to tint's plain
// mode otherwise (mirrors the teacher's config-then-flags precedence, with
// flags always winning).
func buildLogger(logCfg *config.LoggingConfig) *slog.Logger {
	level := slog.LevelWarn

	if logCfg != nil {
		switch logCfg.LogLevel {
		case "debug":
			level = slog.LevelDebug
		case "info":
			level = slog.LevelInfo
		case "error":
			level = slog.LevelError
		}
	}

	if flagVerbose {
		level = slog.LevelInfo
	}

	if flagDebug {
		level = slog.LevelDebug
	}

	if flagQuiet {
		level = slog.LevelError
	}

	return slog.New(newTintHandler(os.Stderr, level))
}

// exitOnError prints a user-friendly error message to stderr and exits with
// the error's coded exit status, defaulting to 1.
func exitOnError(err error) {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)

	code := 1

	var ce *codedError
	if errors.As(err, &ce) {
		code = ce.code
	}

	os.Exit(code)
}
