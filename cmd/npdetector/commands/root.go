// Package commands implements the CLI commands for npdetector.
package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/briandowns/spinner"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"npdetector/internal/config"
	"npdetector/internal/crawler"
	"npdetector/internal/pipeline"
	"npdetector/internal/schema"
	"npdetector/pkg/logger"
)

var v = viper.New()

var rootCmd = &cobra.Command{
	Use:   "npdetector",
	Short: "Extract nonprofit signals from organization websites",
	Long: `npdetector fetches the home page of every organization in a list,
extracts nonprofit signals (metadata, categorized links, structured data,
nonprofit status text) and condenses them into one reviewable record per
site plus a corpus report of navigation and footer link texts.

Examples:
  # Fetch and extract every site in the input list
  npdetector scrape -i orgs.csv

  # Re-condense existing bundles after editing patterns
  npdetector condense --patterns patterns.yaml

  # Both steps, dropping link texts seen fewer than 3 times
  npdetector run -i orgs.csv --min-count 3

  # Align record frontmatter with a JSON schema
  npdetector normalize --schema schema.json`,
	SilenceUsage: true,
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.String("config", "", "config file (default ./.npdetector.yaml or $HOME/.npdetector.yaml)")
	flags.StringP("workdir", "w", "", "directory for bundles, records and the report (default _npwork)")
	flags.String("patterns", "", "YAML file overriding the built-in pattern tables")
	flags.String("log-level", "", "log level: debug, info, warn, error")
	flags.Bool("log-json", false, "emit JSON log lines")
	flags.BoolP("quiet", "q", false, "suppress progress output")
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// bindFlags maps flags of the running command onto config keys. Binding
// happens per invocation so subcommands sharing a key do not clobber each
// other.
func bindFlags(cmd *cobra.Command, keys map[string]string) error {
	all := map[string]string{
		"workdir":   "workdir",
		"patterns":  "patterns",
		"log-level": "log.level",
		"log-json":  "log.json",
		"quiet":     "quiet",
	}
	for flag, key := range keys {
		all[flag] = key
	}
	for flag, key := range all {
		f := cmd.Flags().Lookup(flag)
		if f == nil {
			return fmt.Errorf("unknown flag %q", flag)
		}
		if err := v.BindPFlag(key, f); err != nil {
			return err
		}
	}
	return nil
}

// session bundles what every command needs once configuration is loaded.
type session struct {
	cfg    config.Config
	log    *logger.Logger
	reg    *schema.Registry
	cache  *crawler.Cache
	spin   *spinner.Spinner
	runner *pipeline.Runner
}

// openSession loads configuration and builds the runner. withCache opens
// the page cache and its network fetcher; condense-only commands skip it.
func openSession(cmd *cobra.Command, withCache bool) (*session, error) {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(v, cfgFile)
	if err != nil {
		return nil, err
	}
	s := &session{
		cfg: cfg,
		log: logger.NewWithOptions(logger.Options{Level: cfg.Log.Level, JSON: cfg.Log.JSON}),
	}
	if s.reg, err = schema.Load(cfg.Patterns); err != nil {
		return nil, err
	}

	opts := pipeline.Options{
		WorkDir:    cfg.WorkDir,
		ReportPath: cfg.Report,
		Refresh:    cfg.Refresh,
		Registry:   s.reg,
		Logger:     s.log,
	}
	if withCache {
		client := crawler.NewHTTPClient(cfg.Fetch.Timeout, cfg.Fetch.DialTimeout, cfg.Fetch.SizeCap).
			WithUserAgent(cfg.Fetch.UserAgent)
		if s.cache, err = crawler.OpenCache(cfg.CacheDB, client); err != nil {
			return nil, fmt.Errorf("open cache %s: %w", cfg.CacheDB, err)
		}
		opts.Pages = s.cache
	}
	if !cfg.Quiet {
		s.spin = spinner.New(spinner.CharSets[9], 100*time.Millisecond, spinner.WithWriter(os.Stderr))
		s.spin.Start()
		opts.Progress = func(stage, site string) {
			s.spin.Lock()
			s.spin.Suffix = fmt.Sprintf(" %s %s", stage, site)
			s.spin.Unlock()
		}
	}
	if err := os.MkdirAll(cfg.WorkDir, 0o755); err != nil {
		s.Close()
		return nil, err
	}
	s.runner = pipeline.New(opts)
	return s, nil
}

// Close stops progress output and releases the cache. It is safe to call
// more than once.
func (s *session) Close() {
	if s.spin != nil {
		s.spin.Stop()
		s.spin = nil
	}
	if s.cache != nil {
		if err := s.cache.Close(); err != nil {
			s.log.Warnf("close cache: %v", err)
		}
		s.cache = nil
	}
}

// signalContext is cancelled on SIGINT or SIGTERM; the current site
// finishes and the run stops before the next one.
func signalContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
}

// addFetchFlags registers the network flags shared by scrape and run.
func addFetchFlags(flags *pflag.FlagSet) {
	flags.StringP("input", "i", "", "CSV or NDJSON list of organizations (default <workdir>/npdetector.csv)")
	flags.Bool("refresh", false, "refetch pages even when cached")
	flags.String("cache", "", "page cache database (default <workdir>/cache/pages.db)")
	flags.Duration("timeout", 0, "per-site request timeout (default 15s)")
	flags.String("user-agent", "", "User-Agent header for fetches")
}

var fetchKeys = map[string]string{
	"input":      "input",
	"refresh":    "refresh",
	"cache":      "cache",
	"timeout":    "fetch.timeout",
	"user-agent": "fetch.user_agent",
}
