package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/lexandro/docindex-mcp/config"
	"github.com/lexandro/docindex-mcp/server"
)

// globalFlags are shared by every subcommand and override the config file.
type globalFlags struct {
	configPath string
	rootDir    string
	logLevel   string
	logFile    string
	excludes   []string
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	flags := &globalFlags{}

	cmd := &cobra.Command{
		Use:   "docindex-mcp",
		Short: "Index and search a folder of office documents",
		Long: `docindex-mcp extracts the text of PDF, DOCX, XLSX, DOC, XLS, RTF and TXT
files under a root folder and searches it by file name and content.

Run without a subcommand to serve the MCP tools on stdio.`,
		Version:      server.Version,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMCP(cmd, flags)
		},
	}

	cmd.PersistentFlags().StringVar(&flags.configPath, "config", "", "Config file path (default: "+config.DefaultFileName+" if present)")
	cmd.PersistentFlags().StringVar(&flags.rootDir, "root", "", "Document root directory (overrides config)")
	cmd.PersistentFlags().StringVar(&flags.logLevel, "log-level", "", "Log level: debug|info|warn|error")
	cmd.PersistentFlags().StringVar(&flags.logFile, "log-file", "", "Log file path (default: stderr, or the data directory in MCP mode)")
	cmd.PersistentFlags().StringSliceVar(&flags.excludes, "exclude", nil, "Extra ignore pattern (repeatable)")

	cmd.AddCommand(
		newServeCmd(flags),
		newMCPCmd(flags),
		newIndexCmd(flags),
		newSearchCmd(flags),
		newLsCmd(flags),
		newRegisterCmd(flags),
	)
	return cmd
}

// loadConfig reads the config file and environment, applies the CLI flags and
// resolves the root and data directory to absolute paths.
func loadConfig(flags *globalFlags) (*config.Config, error) {
	path := flags.configPath
	if path == "" {
		path = config.DefaultFileName
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}

	if flags.rootDir != "" {
		cfg.Root = flags.rootDir
	}
	if flags.logLevel != "" {
		cfg.LogLevel = flags.logLevel
	}
	if flags.logFile != "" {
		cfg.LogFile = flags.logFile
	}
	if len(flags.excludes) > 0 {
		cfg.Exclude = append(cfg.Exclude, flags.excludes...)
	}
	root, err := filepath.Abs(cfg.Root)
	if err != nil {
		return nil, fmt.Errorf("resolving root %s: %w", cfg.Root, err)
	}
	cfg.Root = root
	if cfg.DataDir != "" && !filepath.IsAbs(cfg.DataDir) {
		cfg.DataDir = filepath.Join(cfg.Root, cfg.DataDir)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// setupLogger creates an slog.Logger writing to stderr or a file.
func setupLogger(level string, logFile string) *slog.Logger {
	var logLevel slog.Level
	switch strings.ToLower(level) {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	var writer *os.File
	if logFile != "" {
		if err := os.MkdirAll(filepath.Dir(logFile), 0755); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: cannot create log directory for %s: %v\n", logFile, err)
		}
		f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: cannot open log file %s: %v, falling back to stderr\n", logFile, err)
			writer = os.Stderr
		} else {
			writer = f
		}
	} else {
		writer = os.Stderr
	}

	handler := slog.NewTextHandler(writer, &slog.HandlerOptions{Level: logLevel})
	return slog.New(handler)
}
