// eodex extracts End of Day task summaries from emails in an IMAP mailbox
// and writes them as JSON, CSV, or text.
package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/nhle/eodex/internal/app"
	"github.com/nhle/eodex/internal/credential"
	"github.com/nhle/eodex/internal/extract"
	"github.com/nhle/eodex/internal/model"
	"github.com/nhle/eodex/internal/output"
	"github.com/nhle/eodex/internal/source/email"
	"github.com/nhle/eodex/internal/store"
)

var (
	// Used for flags.
	configPath string
	startDate  string
	endDate    string
	formatName string
	outputPath string
	verbose    bool
	noCache    bool

	logLevel = new(slog.LevelVar)

	rootCmd = &cobra.Command{
		Use:   "eodex",
		Short: "Extract End of Day task summaries from an IMAP mailbox.",
		Long: `eodex connects to an IMAP mailbox, retrieves emails within a date range,
and extracts End of Day (EOD) task summaries from their bodies using
configurable keywords and time patterns.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if verbose {
				logLevel.Set(slog.LevelDebug)
			}
		},
		RunE: runExtract,
	}
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	if err := rootCmd.Execute(); err != nil {
		slog.Error("run failed", "error", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", model.DefaultConfigPath(), "Path to the YAML configuration file.")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging.")
	rootCmd.PersistentFlags().StringVarP(&formatName, "format", "f", "", "Output format: json, csv, or text (default from config).")
	rootCmd.PersistentFlags().StringVarP(&outputPath, "output", "o", "", "Output file path (default: stdout).")

	rootCmd.Flags().StringVar(&startDate, "start", "", "Start date for the email search (e.g. 2024-01-01).")
	rootCmd.Flags().StringVar(&endDate, "end", "", "End date for the email search, exclusive (e.g. 2024-01-31).")
	rootCmd.Flags().BoolVar(&noCache, "no-cache", false, "Bypass the local message cache.")
	_ = rootCmd.MarkFlagRequired("start")
	_ = rootCmd.MarkFlagRequired("end")

	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(authCmd)
	rootCmd.AddCommand(demoCmd)
}

// dateLayouts are the accepted --start/--end formats, tried in order.
var dateLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	time.RFC3339,
}

func parseDate(value string) (time.Time, error) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid date %q (want YYYY-MM-DD)", value)
}

// parseDateRange validates the start/end flags before anything else runs.
func parseDateRange(startStr, endStr string) (since, before time.Time, err error) {
	since, err = parseDate(startStr)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	before, err = parseDate(endStr)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	if !since.Before(before) {
		return time.Time{}, time.Time{}, fmt.Errorf(
			"start date %s must be before end date %s", startStr, endStr,
		)
	}
	return since, before, nil
}

func runExtract(cmd *cobra.Command, args []string) error {
	since, before, err := parseDateRange(startDate, endDate)
	if err != nil {
		return err
	}

	cfg, err := model.LoadConfig(configPath)
	if err != nil {
		return err
	}

	format, err := resolveFormat(cfg)
	if err != nil {
		return err
	}

	// Compile the rules before touching the network so a bad pattern is
	// a fast config error.
	rules, err := extract.NewRuleset(
		cfg.Parsing.EODKeywords,
		cfg.Parsing.TimePatterns,
		cfg.Parsing.SectionEndMarkers,
	)
	if err != nil {
		return err
	}

	if err := cfg.ValidateConnection(); err != nil {
		return err
	}

	password, err := resolvePassword(cfg)
	if err != nil {
		return err
	}

	runner := &app.Runner{
		Source: email.NewIMAPClient(cfg.Email, password),
		Rules:  rules,
		Folder: cfg.Email.Folder,
	}

	if cfg.Cache.Enabled && !noCache {
		cachePath := cfg.Cache.Path
		if cachePath == "" {
			cachePath = model.DefaultCachePath()
		}
		if err := os.MkdirAll(filepath.Dir(cachePath), 0o755); err != nil {
			return fmt.Errorf("creating cache directory: %w", err)
		}

		cache, err := store.NewSQLiteStore(cachePath)
		if err != nil {
			return fmt.Errorf("opening message cache: %w", err)
		}
		defer cache.Close()
		runner.Cache = cache
	}

	results, err := runner.Run(cmd.Context(), since, before)
	if err != nil {
		return err
	}

	if len(results) == 0 {
		slog.Info("no EOD sections found in the specified date range")
	}

	return output.WriteFile(outputPath, cmd.OutOrStdout(), results, format)
}

// resolveFormat picks the output format from the flag, falling back to the
// config default.
func resolveFormat(cfg *model.Config) (output.Format, error) {
	name := formatName
	if name == "" {
		name = cfg.Output.DefaultFormat
	}
	if name == "" {
		name = "json"
	}
	return output.ParseFormat(name)
}

// resolvePassword returns the configured password, or looks it up in the
// system keyring when the config leaves it empty.
func resolvePassword(cfg *model.Config) (string, error) {
	if cfg.Email.Password != "" {
		return cfg.Email.Password, nil
	}

	key := credential.Key(cfg.Email.Username, cfg.Email.Server)
	password, err := credential.Get(key)
	if err != nil {
		return "", fmt.Errorf(
			"no password in config and keyring lookup failed (run \"eodex auth set\"): %w",
			err,
		)
	}
	return password, nil
}
