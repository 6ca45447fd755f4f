package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/lexandro/docindex-mcp/api"
	"github.com/lexandro/docindex-mcp/config"
	"github.com/lexandro/docindex-mcp/indexer"
	"github.com/lexandro/docindex-mcp/register"
	"github.com/lexandro/docindex-mcp/search"
	"github.com/lexandro/docindex-mcp/server"
	"github.com/lexandro/docindex-mcp/tools"
	"github.com/lexandro/docindex-mcp/tree"
)

// openApp loads the configuration, sets up logging and wires the components.
// defaultLogFile is used when neither the config nor the flags name one.
func openApp(flags *globalFlags, defaultLogFile func(*config.Config) string) (*app, error) {
	cfg, err := loadConfig(flags)
	if err != nil {
		return nil, err
	}
	logFile := cfg.LogFile
	if logFile == "" && defaultLogFile != nil {
		logFile = defaultLogFile(cfg)
	}
	logger := setupLogger(cfg.LogLevel, logFile)
	return newApp(cfg, logger)
}

func newServeCmd(flags *globalFlags) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(flags, nil)
			if err != nil {
				return err
			}
			if addr != "" {
				a.cfg.HTTP.Addr = addr
			}

			ctx, cancel := context.WithCancel(cmd.Context())
			defer func() {
				cancel()
				a.Close()
			}()
			a.startBackground(ctx)

			router := api.NewRouter(api.Deps{
				Walker:    a.walker,
				Store:     a.store,
				Indexer:   a.indexer,
				Engine:    a.engine,
				Backend:   a.cfg.Index.Backend,
				StartTime: a.startTime,
				Logger:    a.logger,
			}, api.Options{
				CORSOrigins:    a.cfg.HTTP.CORSOrigins,
				RequestTimeout: a.cfg.HTTP.RequestTimeout,
			})
			httpServer := api.NewServer(a.cfg.HTTP.Addr, router, a.logger)

			errCh := make(chan error, 1)
			go func() { errCh <- httpServer.Start() }()

			select {
			case err := <-errCh:
				return err
			case <-ctx.Done():
			}

			a.logger.Info("shutting down HTTP server")
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer shutdownCancel()
			return httpServer.Shutdown(shutdownCtx)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (overrides http.addr)")
	return cmd
}

func newMCPCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Serve the MCP tools on stdio",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMCP(cmd, flags)
		},
	}
}

// runMCP serves MCP on stdio. Logs never go to stdout, which carries the protocol.
func runMCP(cmd *cobra.Command, flags *globalFlags) error {
	a, err := openApp(flags, func(cfg *config.Config) string {
		return filepath.Join(cfg.DataDir, "docindex-mcp.log")
	})
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer func() {
		cancel()
		a.Close()
	}()
	a.startBackground(ctx)

	mcpServer := server.Setup(
		&tools.ListHandler{Walker: a.walker, Logger: a.logger},
		&tools.SearchHandler{Engine: a.engine, Logger: a.logger},
		&tools.ReadHandler{Store: a.store, Logger: a.logger},
		&tools.ReindexHandler{DoReindex: a.indexer.Run, Logger: a.logger},
		&tools.StatusHandler{
			Store:     a.store,
			Indexer:   a.indexer,
			Backend:   a.cfg.Index.Backend,
			StartTime: a.startTime,
			RootDir:   a.walker.Root(),
			Logger:    a.logger,
		},
	)

	a.logger.Info("MCP server starting on stdio")
	if err := mcpServer.Run(ctx, &mcp.StdioTransport{}); err != nil && ctx.Err() == nil {
		a.logger.Error("MCP server error", "error", err)
		return err
	}
	return nil
}

func newIndexCmd(flags *globalFlags) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "index",
		Short: "Run one indexing pass and print the report",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(flags, nil)
			if err != nil {
				return err
			}
			defer a.Close()

			ctx := cmd.Context()
			total := 0
			if err := a.walker.Walk(ctx, func(tree.Entry) error {
				total++
				return nil
			}); err != nil {
				return err
			}

			bar := progressbar.NewOptions(total,
				progressbar.OptionSetDescription("Indexing documents"),
				progressbar.OptionSetWidth(40),
				progressbar.OptionShowCount(),
				progressbar.OptionClearOnFinish(),
				progressbar.OptionSetWriter(cmd.ErrOrStderr()),
			)
			report, err := a.indexer.Run(ctx, indexer.RunOptions{
				Force: force,
				Progress: func(done int, path string) {
					bar.Add(1)
				},
			})
			bar.Finish()
			if err != nil && !report.Cancelled {
				return err
			}

			fmt.Fprint(cmd.OutOrStdout(), tools.FormatReport(report))
			return err
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "Re-extract unchanged files too")
	return cmd
}

func newSearchCmd(flags *globalFlags) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search file names and document content",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(flags, nil)
			if err != nil {
				return err
			}
			defer a.Close()

			ctx := cmd.Context()
			count, err := a.store.Count(ctx)
			if err != nil {
				return err
			}
			if count == 0 {
				// Nothing persisted yet, e.g. the memory backend.
				if _, err := a.indexer.ReindexAll(ctx); err != nil && !errors.Is(err, indexer.ErrAlreadyIndexing) {
					return err
				}
			}

			results, err := a.engine.Search(ctx, search.Query{Text: args[0], Limit: limit})
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), tools.FormatSearchResults(results))
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 0, "Maximum number of results (default: search.default_limit)")
	return cmd
}

func newLsCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "ls [path]",
		Short: "List a folder of the document root",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(flags, nil)
			if err != nil {
				return err
			}
			defer a.Close()

			path := ""
			if len(args) == 1 {
				path = args[0]
			}
			listing, err := a.walker.List(cmd.Context(), path)
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), tools.FormatListing(listing))
			return nil
		},
	}
}

func newRegisterCmd(flags *globalFlags) *cobra.Command {
	var name string
	var env map[string]string

	cmd := &cobra.Command{
		Use:   "register <project|user> [directory] [-- server args...]",
		Short: "Add this server to an MCP client configuration",
		Long: `Register writes an entry that starts this binary in MCP mode into
<directory>/.mcp.json (project scope, default ".") or ~/.claude.json (user scope).
The --root flag, when given, is forwarded to the server.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			positional, serverArgs := args, []string(nil)
			if dash := cmd.ArgsLenAtDash(); dash >= 0 {
				positional, serverArgs = args[:dash], args[dash:]
			}
			if len(positional) == 0 || len(positional) > 2 {
				return fmt.Errorf("expected a scope and an optional directory, got %v", positional)
			}

			options := register.Options{
				Scope:      register.Scope(positional[0]),
				ServerName: name,
				Root:       flags.rootDir,
				ServerArgs: serverArgs,
				Env:        env,
			}
			if len(positional) == 2 {
				if options.Scope != register.ScopeProject {
					return fmt.Errorf("a directory is only accepted for project scope")
				}
				options.Directory = positional[1]
			}

			configPath, err := register.Register(options)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Registered %q in %s\n", serverName(name), configPath)
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "Server name in the client config (default: derived from the binary name)")
	cmd.Flags().StringToStringVar(&env, "env", nil, "Environment for the server process, e.g. DOCINDEX_INDEX__BACKEND=sqlite")
	return cmd
}

func serverName(name string) string {
	if name != "" {
		return name
	}
	return register.DeriveServerName(os.Args[0])
}
