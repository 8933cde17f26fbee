// Package main provides the semfetch binary entry point.
// Semfetch fetches web content as HTML, JSON, plain text or Markdown while
// refusing requests to private and internal network locations.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"runtime"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/c360studio/semfetch/config"
	webfetcher "github.com/c360studio/semfetch/processor/web-fetcher"
	"github.com/c360studio/semfetch/source/weburl"
)

const (
	Version   = "0.1.0"
	BuildTime = "dev"
	appName   = "semfetch"
)

func main() {
	// Add panic recovery
	defer func() {
		if r := recover(); r != nil {
			buf := make([]byte, 4096)
			n := runtime.Stack(buf, false)
			_, _ = fmt.Fprintf(os.Stderr, "PANIC: %v\nStack trace:\n%s\n", r, string(buf[:n]))
			os.Exit(2)
		}
	}()

	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// globalOptions holds the persistent flags shared by every subcommand.
type globalOptions struct {
	configPath string
	logLevel   string
}

func rootCmd() *cobra.Command {
	opts := &globalOptions{}

	cmd := &cobra.Command{
		Use:   appName,
		Short: "Guarded web content fetcher",
		Long: `Semfetch fetches a URL and returns it as raw HTML, compact JSON,
visible text or Markdown, windowed to a character range.

Requests to loopback, private, link-local and other internal addresses
are refused before any network access.

It can run once from the command line or serve requests over NATS.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "Config file path (YAML)")
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "warn", "Log level (debug, info, warn, error)")

	cmd.AddCommand(fetchCmd(opts))
	cmd.AddCommand(serveCmd(opts))
	cmd.AddCommand(initCmd(opts))
	cmd.AddCommand(configCmd(opts))

	// Version command
	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "%s version %s (build: %s)\n", appName, Version, BuildTime)
		},
	})

	return cmd
}

func fetchCmd(opts *globalOptions) *cobra.Command {
	var (
		format     string
		maxLength  int
		startIndex int
		headers    []string
	)

	cmd := &cobra.Command{
		Use:   "fetch <url>",
		Short: "Fetch a URL and print it in the requested format",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := setupLogger(opts.logLevel)

			f, err := webfetcher.ParseFormat(format)
			if err != nil {
				return err
			}
			hdrs, err := parseHeaders(headers)
			if err != nil {
				return err
			}

			cfg, err := config.NewLoader(logger).Load(opts.configPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}

			handler, _, err := buildHandler(cfg.Fetch, nil, logger)
			if err != nil {
				return err
			}

			ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			result := handler.Fetch(ctx, f, webfetcher.FetchRequest{
				URL:        args[0],
				Headers:    hdrs,
				MaxLength:  maxLength,
				StartIndex: startIndex,
			})
			if result.IsError {
				return fmt.Errorf("%s", result.Text())
			}

			fmt.Fprintln(cmd.OutOrStdout(), result.Text())
			return nil
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", string(webfetcher.FormatMarkdown), "Output format (html, json, txt, markdown)")
	cmd.Flags().IntVar(&maxLength, "max-length", webfetcher.DefaultMaxLength, "Maximum number of characters to return")
	cmd.Flags().IntVar(&startIndex, "start-index", 0, "Character offset to start from")
	cmd.Flags().StringArrayVarP(&headers, "header", "H", nil, "Request header as 'Key: Value' (repeatable)")

	return cmd
}

func serveCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve fetch requests over NATS",
		Long: `Serve answers JSON fetch requests on <subject_prefix>.<format> for
each of html, json, txt and markdown. Config files are watched and the fetch
settings are reloaded when they change.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), opts)
		},
	}
}

func runServe(ctx context.Context, opts *globalOptions) error {
	logger := setupLogger(opts.logLevel)
	loader := config.NewLoader(logger)

	cfg, err := loader.Load(opts.configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	app, err := NewApp(cfg, logger)
	if err != nil {
		return err
	}

	// Setup signal handling
	signalCtx, signalCancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer signalCancel()

	if err := app.Start(signalCtx); err != nil {
		app.Shutdown(shutdownTimeout)
		return err
	}

	watcher, err := NewConfigWatcher(loader.Files(opts.configPath), logger, func() {
		reloaded, err := loader.Load(opts.configPath)
		if err != nil {
			logger.Warn("Ignoring invalid config change", "error", err)
			return
		}
		if err := app.Reload(reloaded); err != nil {
			logger.Warn("Failed to apply config change", "error", err)
		}
	})
	if err != nil {
		logger.Warn("Config watching disabled", "error", err)
	} else if err := watcher.Start(signalCtx); err != nil {
		logger.Warn("Config watching disabled", "error", err)
	} else {
		defer watcher.Stop()
	}

	logger.Info("Semfetch ready",
		"version", Version,
		"subject_prefix", cfg.NATS.SubjectPrefix)

	// Block until shutdown signal
	<-signalCtx.Done()
	logger.Info("Received shutdown signal")

	app.Shutdown(shutdownTimeout)
	logger.Info("Semfetch shutdown complete")
	return nil
}

func initCmd(opts *globalOptions) *cobra.Command {
	var project bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a default config file",
		Long: `Init writes the default configuration to ~/.config/semfetch/config.yaml,
or to ./semfetch.yaml with --project. Existing files are left untouched.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := setupLogger(opts.logLevel)

			if project {
				path := config.ProjectConfigFile
				if _, err := os.Stat(path); err == nil {
					fmt.Fprintf(cmd.OutOrStdout(), "%s already exists\n", path)
					return nil
				}
				if err := config.DefaultConfig().SaveToFile(path); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", path)
				return nil
			}

			path, err := config.NewLoader(logger).EnsureUserConfig()
			if err != nil {
				return fmt.Errorf("create user config: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "User config: %s\n", path)
			return nil
		},
	}

	cmd.Flags().BoolVar(&project, "project", false, "Write semfetch.yaml in the current directory")
	return cmd
}

// setupLogger builds the process logger and installs it as the default.
func setupLogger(logLevel string) *slog.Logger {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: parseLogLevel(logLevel)}))
	slog.SetDefault(logger)
	return logger
}

func parseLogLevel(logLevel string) slog.Level {
	level := slog.LevelInfo
	switch strings.ToLower(logLevel) {
	case "debug":
		level = slog.LevelDebug
	case "warn", "warning":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	return level
}

// parseHeaders converts "Key: Value" flag values into a header map.
func parseHeaders(values []string) (map[string]string, error) {
	if len(values) == 0 {
		return nil, nil
	}
	headers := make(map[string]string, len(values))
	for _, v := range values {
		key, value, ok := strings.Cut(v, ":")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid header %q: expected 'Key: Value'", v)
		}
		headers[key] = strings.TrimSpace(value)
	}
	return headers, nil
}

// buildHandler assembles the fetch pipeline from fetch settings and returns
// it with the target policy it enforces.
func buildHandler(cfg webfetcher.Config, metrics *webfetcher.Metrics, logger *slog.Logger) (*webfetcher.Handler, *weburl.Policy, error) {
	if err := cfg.Validate(); err != nil {
		return nil, nil, fmt.Errorf("invalid fetch configuration: %w", err)
	}
	policy, err := weburl.NewPolicy(cfg.BlockedHosts)
	if err != nil {
		return nil, nil, err
	}
	fetcher := webfetcher.NewFetcher(cfg, policy)
	return webfetcher.NewHandler(fetcher, webfetcher.NewConverter(), metrics, logger), policy, nil
}
