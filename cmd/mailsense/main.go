package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/mailsense/mailsense/internal/analysis"
	"github.com/mailsense/mailsense/internal/config"
	"github.com/mailsense/mailsense/internal/inbox"
	"github.com/mailsense/mailsense/internal/logging"
	"github.com/mailsense/mailsense/internal/store"
	"github.com/mailsense/mailsense/internal/web"
)

var cfgFile string

func resolveConfigPath() string {
	if cfgFile != "" {
		return cfgFile
	}
	return config.DefaultConfigPath()
}

func main() {
	rootCmd := &cobra.Command{
		Use:   "mailsense",
		Short: "Mailsense - Email triage and analysis",
		Long: `Mailsense analyzes email messages and extracts structured metadata:
category, priority, sentiment, action items, deadlines and a suggested reply.

Messages can come from .eml files, mbox archives or an IMAP inbox. Results
are stored locally in SQLite and served over a JSON API.`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.mailsense/config.yaml)")

	rootCmd.AddCommand(initCmd())
	rootCmd.AddCommand(analyzeCmd())
	rootCmd.AddCommand(scanCmd())
	rootCmd.AddCommand(listCmd())
	rootCmd.AddCommand(statsCmd())
	rootCmd.AddCommand(serveCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loadConfig reads and validates the config, and builds the logger from it
func loadConfig() (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load(resolveConfigPath())
	if err != nil {
		return nil, nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, logging.New(os.Stderr, cfg.Log.Level, cfg.Log.Format), nil
}

func newAnalyzer(cfg *config.Config, logger *slog.Logger) (*analysis.Analyzer, error) {
	analyzer, err := analysis.New(cfg.AnalysisOptions(logger))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize analyzer: %w", err)
	}
	return analyzer, nil
}

func openStore(ctx context.Context, cfg *config.Config) (*store.Store, error) {
	st, err := store.Open(ctx, cfg.Store.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}
	return st, nil
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

func initCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a default configuration file",
		Long:  "Create a configuration file with the default limits, keyword tables and server settings.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInit(force)
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing config file")

	return cmd
}

func analyzeCmd() *cobra.Command {
	var (
		mboxPath string
		format   string
		save     bool
	)

	cmd := &cobra.Command{
		Use:   "analyze [files...]",
		Short: "Analyze .eml files or an mbox archive",
		Long: `Analyze one or more RFC 5322 message files (use - for stdin) and/or
every message in an mbox archive. Results print as text or JSON and can be
saved to the local store.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 && mboxPath == "" {
				return errors.New("nothing to analyze: pass message files or --mbox")
			}
			if format != "text" && format != "json" {
				return fmt.Errorf("unknown format %q (want text or json)", format)
			}
			return runAnalyze(args, mboxPath, format, save)
		},
	}

	cmd.Flags().StringVar(&mboxPath, "mbox", "", "mbox archive to analyze")
	cmd.Flags().StringVar(&format, "format", "text", "Output format: text or json")
	cmd.Flags().BoolVar(&save, "save", false, "Save results to the local store")

	return cmd
}

func scanCmd() *cobra.Command {
	var days, limit int

	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Fetch recent messages over IMAP and analyze them",
		Long:  "Connect to the configured IMAP inbox, analyze recent messages and save the results.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScan(cmd, days, limit)
		},
	}

	cmd.Flags().IntVar(&days, "days", 0, "Days to look back (default from config)")
	cmd.Flags().IntVar(&limit, "limit", 0, "Maximum messages to fetch (default from config)")

	return cmd
}

func listCmd() *cobra.Command {
	var (
		category    string
		minPriority int
		limit       int
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List analyzed emails",
		Long:  "Show stored emails, most recently processed first.",
		RunE: func(cmd *cobra.Command, args []string) error {
			filter := store.Filter{Limit: limit}
			if category != "" {
				c, ok := analysis.ParseCategory(category)
				if !ok {
					return fmt.Errorf("unknown category %q", category)
				}
				filter.Category = c
			}
			if minPriority != 0 {
				if minPriority < int(analysis.MinPriority) || minPriority > int(analysis.MaxPriority) {
					return fmt.Errorf("min-priority must be between %d and %d", analysis.MinPriority, analysis.MaxPriority)
				}
				filter.MinPriority = analysis.Priority(minPriority)
			}
			return runList(filter)
		},
	}

	cmd.Flags().StringVar(&category, "category", "", "Only show this category")
	cmd.Flags().IntVar(&minPriority, "min-priority", 0, "Only show emails at or above this priority")
	cmd.Flags().IntVar(&limit, "limit", 20, "Number of emails to show (0 for all)")

	return cmd
}

func statsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show dashboard statistics",
		Long:  "Display totals, recent activity and the category and priority breakdown.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStats()
		},
	}
}

func serveCmd() *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the JSON API server",
		Long: `Start the HTTP API for analyzing emails, querying stored results and
running background inbox scans.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, port)
		},
	}

	cmd.Flags().IntVar(&port, "port", 0, "Port to listen on (default from config)")

	return cmd
}

func runInit(force bool) error {
	path := resolveConfigPath()
	if _, err := os.Stat(path); err == nil && !force {
		return fmt.Errorf("config already exists at %s (use --force to overwrite)", path)
	} else if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to check config: %w", err)
	}

	if err := config.Save(path, config.Default()); err != nil {
		return err
	}

	fmt.Println(successStyle.Render("Configuration saved to " + path))
	fmt.Println("Edit the inbox section to enable IMAP scanning.")
	return nil
}

// loadMessages parses message files and the optional mbox archive, in order
func loadMessages(paths []string, mboxPath string, logger *slog.Logger) ([]*inbox.Message, []string, error) {
	var messages []*inbox.Message
	var sources []string

	for _, path := range paths {
		msg, err := parseMessageFile(path)
		if err != nil {
			return nil, nil, err
		}
		messages = append(messages, msg)
		sources = append(sources, path)
	}

	if mboxPath != "" {
		archived, err := inbox.ReadMboxFile(mboxPath, logger)
		if err != nil {
			return nil, nil, err
		}
		for i, msg := range archived {
			messages = append(messages, msg)
			sources = append(sources, fmt.Sprintf("%s#%d", filepath.Base(mboxPath), i+1))
		}
	}

	return messages, sources, nil
}

func parseMessageFile(path string) (*inbox.Message, error) {
	if path == "-" {
		return inbox.ParseMessage(os.Stdin)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	msg, err := inbox.ParseMessage(f)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return msg, nil
}

func runAnalyze(paths []string, mboxPath, format string, save bool) error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	messages, sources, err := loadMessages(paths, mboxPath, logger)
	if err != nil {
		return err
	}

	analyzer, err := newAnalyzer(cfg, logger)
	if err != nil {
		return err
	}

	raws := make([]analysis.RawEmail, len(messages))
	for i, msg := range messages {
		raws[i] = msg.RawEmail(logger)
	}
	results := analyzer.ProcessBatch(ctx, raws)

	if save {
		if err := saveResults(ctx, cfg, results); err != nil {
			return err
		}
	}

	if format == "json" {
		return writeResultsJSON(os.Stdout, sources, results)
	}

	for i, res := range results {
		if res.Err != nil {
			fmt.Println(errorStyle.Render(fmt.Sprintf("%s: %v", sources[i], res.Err)))
			continue
		}
		fmt.Println(renderEmail(res.Email))
	}
	return nil
}

func saveResults(ctx context.Context, cfg *config.Config, results []analysis.Result) error {
	st, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	var processed []*analysis.ProcessedEmail
	for _, res := range results {
		if res.Err == nil {
			processed = append(processed, res.Email)
		}
	}
	if len(processed) == 0 {
		return nil
	}
	if err := st.SaveAll(ctx, processed); err != nil {
		return err
	}
	fmt.Fprintln(os.Stderr, mutedStyle.Render(fmt.Sprintf("Saved %d emails to %s", len(processed), cfg.Store.Path)))
	return nil
}

func runScan(cmd *cobra.Command, days, limit int) error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}
	if err := cfg.ValidateInbox(); err != nil {
		return fmt.Errorf("inbox monitoring not configured: %w", err)
	}
	if !cmd.Flags().Changed("days") {
		days = cfg.Inbox.ScanDays
	}
	if !cmd.Flags().Changed("limit") {
		limit = cfg.Inbox.ScanLimit
	}

	ctx, cancel := signalContext()
	defer cancel()

	analyzer, err := newAnalyzer(cfg, logger)
	if err != nil {
		return err
	}

	fmt.Printf("Scanning %s for the last %d days...\n", cfg.Inbox.Email, days)

	monitor := inbox.NewMonitor(cfg.Inbox, logger)
	messages, err := monitor.Scan(ctx, days, limit)
	if err != nil {
		return err
	}
	if len(messages) == 0 {
		fmt.Println("No messages found.")
		return nil
	}

	raws := make([]analysis.RawEmail, len(messages))
	for i, msg := range messages {
		raws[i] = msg.RawEmail(logger)
	}
	results := analyzer.ProcessBatch(ctx, raws)

	if err := saveResults(ctx, cfg, results); err != nil {
		return err
	}

	var processed []*analysis.ProcessedEmail
	failed := 0
	for _, res := range results {
		if res.Err != nil {
			failed++
			continue
		}
		processed = append(processed, res.Email)
	}

	fmt.Println(renderEmailTable(processed))
	fmt.Printf("Fetched %d, analyzed %d, failed %d\n", len(messages), len(processed), failed)
	return nil
}

func runList(filter store.Filter) error {
	cfg, _, err := loadConfig()
	if err != nil {
		return err
	}

	ctx := context.Background()
	st, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	emails, err := st.List(ctx, filter)
	if err != nil {
		return err
	}
	if len(emails) == 0 {
		fmt.Println("No emails found.")
		return nil
	}

	fmt.Println(renderEmailTable(emails))
	return nil
}

func runStats() error {
	cfg, _, err := loadConfig()
	if err != nil {
		return err
	}

	ctx := context.Background()
	st, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	window := time.Duration(cfg.Store.RecentWindowDays) * 24 * time.Hour
	stats, err := st.Stats(ctx, time.Now(), window)
	if err != nil {
		return err
	}

	fmt.Println(renderStats(stats, cfg.Store.RecentWindowDays))
	return nil
}

func runServe(cmd *cobra.Command, port int) error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("port") {
		cfg.Server.Port = port
	}

	analyzer, err := newAnalyzer(cfg, logger)
	if err != nil {
		return err
	}

	st, err := openStore(context.Background(), cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	var scanner web.Scanner
	if err := cfg.ValidateInbox(); err == nil {
		scanner = inbox.NewMonitor(cfg.Inbox, logger)
	} else {
		logger.Info("inbox scanning disabled", "reason", err)
	}

	server := web.NewServer(cfg, analyzer, st, scanner, logger)

	// Handle graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		logger.Info("shutting down")
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		server.Shutdown(ctx)
	}()

	return server.Start()
}
