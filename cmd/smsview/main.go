package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"io/fs"
	"os"
	"os/signal"
	"syscall"
	"time"

	"smsview/internal/config"
	"smsview/internal/constants"
	"smsview/internal/database"
	"smsview/internal/models"
	"smsview/internal/retry"
	"smsview/internal/security"
	"smsview/internal/session"
	"smsview/internal/tracing"
	"smsview/internal/tui"
	"smsview/pkg/circuitbreaker"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/sirupsen/logrus"
)

var (
	// Version information (set at build time)
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"

	// CLI flags
	verbose    = flag.Bool("verbose", false, "Enable verbose logging (includes file names and search terms)")
	configPath = flag.String("config", "config.json", "Path to configuration file (optional)")
	envFile    = flag.String("env", ".env", "Path to a .env file (optional)")
	version    = flag.Bool("version", false, "Show version information")
	tuiPath    = flag.String("tui", "", "Open a backup in the terminal viewer instead of starting the server")
	dumpPath   = flag.String("dump", "", "Print the conversation of a backup and exit")
	dumpTerm   = flag.String("q", "", "Search term applied with -dump")
	dumpJSON   = flag.Bool("json", false, "Print -dump output as JSON")
)

func main() {
	flag.Parse()

	if *version {
		fmt.Printf("smsview %s\nBuild Time: %s\nGit Commit: %s\n", Version, BuildTime, GitCommit)
		os.Exit(0)
	}

	if *dumpPath != "" {
		if err := runDump(os.Stdout, *dumpPath, *dumpTerm, *dumpJSON); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		logrus.Fatalf("Application error: %v", err)
	}
}

func newLogger(cfg *models.Config, verbose bool) *logrus.Logger {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	applyLogLevel(logger, cfg.LogLevel, verbose)
	if verbose {
		logger.Info("Verbose logging enabled - file names and search terms will be logged")
	}
	return logger
}

// applyLogLevel caps the configured level at info unless verbose is set, so
// debug output with personal data needs an explicit opt-in.
func applyLogLevel(logger *logrus.Logger, levelName string, verbose bool) {
	if verbose {
		logger.SetLevel(logrus.DebugLevel)
		return
	}
	level, err := logrus.ParseLevel(levelName)
	if err != nil {
		logger.Warnf("Invalid log level %q, defaulting to info", levelName)
		level = logrus.InfoLevel
	}
	if level > logrus.InfoLevel {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)
}

func run(ctx context.Context) error {
	if err := config.LoadDotEnv(*envFile); err != nil {
		return fmt.Errorf("failed to load %s: %w", *envFile, err)
	}

	cfg, err := config.LoadConfigOrDefault(*configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger := newLogger(cfg, *verbose)
	if *tuiPath != "" {
		// the terminal belongs to the viewer
		logger.SetOutput(io.Discard)
	}

	logger.WithFields(logrus.Fields{
		"version": Version,
		"build":   BuildTime,
		"commit":  GitCommit,
	}).Info("Starting smsview")

	tracingManager := tracing.NewTracingManager(cfg.Tracing, logger)
	if err := tracingManager.Initialize(ctx); err != nil {
		logger.Warnf("Failed to initialize tracing: %v", err)
	}
	defer func() {
		if err := tracingManager.Shutdown(context.Background()); err != nil {
			logger.Warnf("Failed to shutdown tracing: %v", err)
		}
	}()

	journal, err := openJournal(ctx, cfg, logger)
	if err != nil {
		return err
	}
	if journal != nil {
		defer func() {
			logger.WithField("journal_breaker", journal.Breaker().Stats()).Debug("Closing load journal")
			if err := journal.Close(); err != nil {
				logger.Warnf("Failed to close load journal: %v", err)
			}
		}()
	}

	sess := session.New()
	opts := []session.Option{session.WithMaxUploadMB(cfg.MaxUploadMB)}
	if journal != nil {
		opts = append(opts, session.WithJournal(journal))
	}
	loader := session.NewLoader(sess, logger, opts...)

	if *tuiPath != "" {
		return runTUI(loader, sess, *tuiPath)
	}

	watchConfig(ctx, logger, loader)

	var history LoadHistory
	if journal != nil {
		history = journal
	}
	server := NewServer(cfg, conversation{Loader: loader, Session: sess}, history, logger, *verbose)

	serverErrCh := make(chan error, constants.ServerErrorChannelSize)
	go func() {
		if err := server.Start(); err != nil {
			serverErrCh <- fmt.Errorf("server error: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("Received shutdown signal")
	case err := <-serverErrCh:
		logger.Error(err)
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.Server.ShutdownTimeoutSec)*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shutdown server gracefully: %w", err)
	}

	logger.Info("Server shutdown completed")
	return nil
}

// openJournal opens the load journal with exponential backoff. An empty path
// disables the journal and returns nil.
func openJournal(ctx context.Context, cfg *models.Config, logger *logrus.Logger) (*database.GuardedJournal, error) {
	if cfg.Journal.Path == "" {
		logger.Info("Load journal disabled")
		return nil, nil
	}

	var journal *database.Journal
	backoff := retry.NewBackoff(retry.FromRetryConfig(cfg.Retry))
	err := backoff.Retry(ctx, func() error {
		var openErr error
		journal, openErr = database.New(cfg.Journal.Path, cfg.Journal.MaxEntries)
		if openErr != nil {
			logger.Warnf("Failed to open load journal: %v", openErr)
		}
		return openErr
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open load journal after retries: %w", err)
	}

	breaker := circuitbreaker.New("load_journal", constants.DefaultJournalBreakerFailures,
		time.Duration(constants.DefaultJournalBreakerCoolDownSec)*time.Second, logger)
	return database.NewGuarded(journal, breaker), nil
}

// watchConfig reloads the config file in the background and applies the
// settings that can change at runtime.
func watchConfig(ctx context.Context, logger *logrus.Logger, loader *session.Loader) {
	if _, err := os.Stat(*configPath); errors.Is(err, fs.ErrNotExist) {
		logger.WithField("path", *configPath).Debug("No config file, using defaults")
		return
	}

	watcher := config.NewConfigWatcher(*configPath, logger)
	watcher.OnConfigChange(func(next *models.Config) {
		applyLogLevel(logger, next.LogLevel, *verbose)
		loader.SetMaxUploadMB(next.MaxUploadMB)
	})
	go func() {
		if err := watcher.Start(ctx); err != nil {
			logger.WithError(err).Warn("Configuration watcher stopped")
		}
	}()
}

func runTUI(loader *session.Loader, sess *session.Session, path string) error {
	if err := security.ValidateBackupName(path); err != nil {
		return err
	}

	p := tea.NewProgram(tui.NewModel(loader, sess, path), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("terminal viewer failed: %w", err)
	}
	return nil
}
