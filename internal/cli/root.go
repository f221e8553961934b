// Package cli is the journal command line client. It loads the same pages
// as the HTTP backend and prints them to the terminal.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/johnrirwin/journalfeed/internal/app"
	"github.com/johnrirwin/journalfeed/internal/config"
)

var (
	version = "dev"
	commit  = "none"
)

type options struct {
	apiURL       string
	cacheBackend string
	logLevel     string
	asJSON       bool
}

// NewRootCommand builds the command tree writing to out.
func NewRootCommand(out io.Writer) *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:           "journal",
		Short:         "Browse the journal from the terminal",
		Long:          "journal loads homepage feeds, volumes and articles from the recommendations API, with the same caching and retry rules as the web backend.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(out)
	root.SetErr(out)

	root.PersistentFlags().StringVar(&opts.apiURL, "api-url", "", "recommendations API base URL (overrides API_BASE_URL)")
	root.PersistentFlags().StringVar(&opts.cacheBackend, "cache-backend", "", "cache backend: memory, redis, sqlite, postgres or none")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "warn", "log level (debug, info, warn, error)")
	root.PersistentFlags().BoolVar(&opts.asJSON, "json", false, "print raw JSON instead of formatted output")

	root.AddCommand(
		newHomeCommand(opts),
		newVolumesCommand(opts),
		newVolumeCommand(opts),
		newArticleCommand(opts),
		newStatusCommand(opts),
		newConnectivityCommand(opts),
		newCacheCommand(opts),
		newVersionCommand(),
	)
	return root
}

// Execute runs the journal command and exits non-zero on failure.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root := NewRootCommand(os.Stdout)
	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, errorStyle.Render("error: "+err.Error()))
		stop()
		os.Exit(1)
	}
}

func SetVersionInfo(v, c string) {
	version = v
	commit = c
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "journal %s (commit: %s)\n", version, commit)
		},
	}
}

// openApp builds the application from the environment with the persistent
// flags applied on top. The caller must Close it.
func (o *options) openApp() (*app.App, error) {
	cfg := config.LoadEnv()
	if o.apiURL != "" {
		cfg.API.BaseURL = o.apiURL
	}
	if o.cacheBackend != "" {
		cfg.Cache.Backend = o.cacheBackend
	}
	if o.logLevel != "" {
		cfg.Logging.Level = o.logLevel
	}

	a, err := app.New(cfg)
	if err != nil {
		return nil, fmt.Errorf("initializing: %w", err)
	}
	return a, nil
}

func (o *options) printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func parseID(arg string) (int, error) {
	id, err := strconv.Atoi(arg)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q: must be a positive integer", arg)
	}
	return id, nil
}
