package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/spf13/cobra"

	"github.com/skridlevsky/linkattrs/backend"
	"github.com/skridlevsky/linkattrs/config"
	"github.com/skridlevsky/linkattrs/linkattrs"
	"github.com/skridlevsky/linkattrs/render"
	"github.com/skridlevsky/linkattrs/tools"
	"github.com/skridlevsky/linkattrs/vault"
	"github.com/skridlevsky/linkattrs/workspace"
)

var version = "dev"

var (
	vaultFlag   string
	configFlag  string
	verboseFlag bool
	concurrency int
)

var rootCmd = &cobra.Command{
	Use:   "linkattrs",
	Short: "Annotate rendered vault links with metadata of the notes they point to",
	Long: `linkattrs copies frontmatter fields, inline key:: value fields and tags of
linked notes onto rendered internal links as data-link-* attributes.

Without a subcommand it serves the link tools over MCP on stdio.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	Version:       version,
	RunE:          runServe,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the link tools over MCP on stdio",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&vaultFlag, "vault", "", "Path to the vault (overrides config and LINKATTRS_VAULT)")
	pf.StringVar(&configFlag, "config", "", "Path to a YAML settings file")
	pf.BoolVarP(&verboseFlag, "verbose", "v", false, "Log debug output to stderr")
	pf.IntVar(&concurrency, "concurrency", linkattrs.DefaultConcurrency, "Max concurrent metadata extractions per sweep")
	rootCmd.AddCommand(serveCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "linkattrs: %v\n", err)
		os.Exit(1)
	}
}

// app wires the vault, the open panes and the annotator together.
type app struct {
	vault     *vault.Client
	panes     *workspace.Workspace
	annotator *linkattrs.Annotator
	links     *tools.Links
	logger    *slog.Logger
}

// newApp loads settings and indexes the vault.
func newApp() (*app, error) {
	level := slog.LevelInfo
	if verboseFlag {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	cfg, err := config.Load(configFlag)
	if err != nil {
		return nil, err
	}
	vaultPath := cfg.Vault
	if vaultFlag != "" {
		vaultPath = vaultFlag
	}
	if vaultPath == "" {
		return nil, errors.New("no vault: pass --vault or set LINKATTRS_VAULT")
	}

	v := vault.New(vaultPath, vault.WithLogger(logger))
	if err := v.Load(); err != nil {
		return nil, fmt.Errorf("load vault: %w", err)
	}

	panes := workspace.New()
	a := linkattrs.New(backend.Compose(v, panes), cfg.Settings,
		linkattrs.WithLogger(logger),
		linkattrs.WithConcurrency(concurrency),
	)
	logger.Debug("vault loaded",
		slog.String("path", vaultPath),
		slog.Int("files", len(v.Files())),
		slog.Any("targetAttributes", cfg.Settings.TargetAttributes),
	)

	return &app{
		vault:     v,
		panes:     panes,
		annotator: a,
		links:     tools.NewLinks(v, panes, a, render.New()),
		logger:    logger,
	}, nil
}

func runServe(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	srv := newServer(a)
	if err := srv.Run(cmd.Context(), &mcp.StdioTransport{}); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
