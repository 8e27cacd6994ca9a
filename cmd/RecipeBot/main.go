package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/BTreeMap/RecipeBot/internal/api"
	"github.com/BTreeMap/RecipeBot/internal/bot"
	"github.com/BTreeMap/RecipeBot/internal/catalog"
	"github.com/BTreeMap/RecipeBot/internal/conversation"
	"github.com/BTreeMap/RecipeBot/internal/locales"
	"github.com/BTreeMap/RecipeBot/internal/lockfile"
	"github.com/BTreeMap/RecipeBot/internal/messaging"
	"github.com/BTreeMap/RecipeBot/internal/scheduler"
	"github.com/BTreeMap/RecipeBot/internal/store"
	"github.com/BTreeMap/RecipeBot/internal/twiliowhatsapp"
	"github.com/BTreeMap/RecipeBot/internal/util"
	"github.com/BTreeMap/RecipeBot/internal/whatsapp"
	"github.com/joho/godotenv"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Default configuration constants
const (
	// DefaultStateDir is the default directory for RecipeBot state data
	DefaultStateDir = "/var/lib/recipebot"
	// DefaultFavoritesFileName is the default favorites file inside the state directory
	DefaultFavoritesFileName = "favorites.json"
	// DefaultWhatsAppDBFileName is the default whatsmeow device database filename
	DefaultWhatsAppDBFileName = "whatsmeow.db"
	// DefaultBackupDirName holds scheduled favorites snapshots inside the state directory
	DefaultBackupDirName = "backups"
	// DefaultTransport is used when RECIPEBOT_TRANSPORT is not set
	DefaultTransport = TransportTelegram
)

// Supported transports.
const (
	TransportTelegram = "telegram"
	TransportWhatsApp = "whatsapp"
	TransportTwilio   = "twilio"
)

// Log file rotation settings.
const (
	logMaxSizeMB  = 1
	logMaxBackups = 3
)

func main() {
	// Load environment configuration
	config := loadEnvironmentConfig()

	// Initialize structured logger
	closeLog := initializeLogger(config)
	defer closeLog()

	// Parse command line flags
	flags := parseCommandLineFlags(config)

	// Ensure required directories exist
	if err := ensureDirectoriesExist(flags); err != nil {
		slog.Error("Failed to create required directories", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	slog.Info("Bootstrapping RecipeBot", "transport", *flags.transport, "locale", *flags.locale)
	slog.Debug("Final configuration", "state_dir", *flags.stateDir, "favorites_dsn_type", store.DetectDSNType(*flags.favoritesDSN), "api_addr", *flags.apiAddr)
	if err := run(ctx, config, flags); err != nil {
		slog.Error("RecipeBot failed to run", "error", err)
		os.Exit(1)
	}
	slog.Info("RecipeBot exited successfully")
}

// Config holds environment configuration
type Config struct {
	TelegramToken  string
	Transport      string
	StateDir       string
	FavoritesDSN   string
	MealDBBaseURL  string
	CatalogTimeout time.Duration
	LogFile        string
	LogDebug       bool
	Locale         string
	APIAddr        string
	WhatsAppDBDSN  string
	TwilioSID      string
	TwilioToken    string
	TwilioFrom     string
	TwilioHookURL  string
	BackupSchedule string
}

// Flags holds command line flag values
type Flags struct {
	telegramToken  *string
	transport      *string
	stateDir       *string
	favoritesDSN   *string
	mealDBBaseURL  *string
	catalogTimeout *time.Duration
	locale         *string
	apiAddr        *string
	waDBDSN        *string
	qrOutput       *string
	numeric        *bool
	debug          *bool
	backupSchedule *string
}

// initializeLogger sets up structured logging to stdout and, when configured, a rotating log file.
// The returned function closes the log file.
func initializeLogger(config Config) func() {
	level := slog.LevelInfo
	if config.LogDebug {
		level = slog.LevelDebug
	}
	var out io.Writer = os.Stdout
	closer := func() {}
	if config.LogFile != "" {
		rotating := newLogRotator(config.LogFile)
		out = io.MultiWriter(os.Stdout, rotating)
		closer = func() { _ = rotating.Close() }
	}
	logger := slog.New(slog.NewTextHandler(out, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
	return closer
}

func newLogRotator(path string) *lumberjack.Logger {
	return &lumberjack.Logger{
		Filename:   path,
		MaxSize:    logMaxSizeMB,
		MaxBackups: logMaxBackups,
		Compress:   true,
	}
}

// loadEnvironmentConfig loads configuration from environment variables and .env file
func loadEnvironmentConfig() Config {
	if err := godotenv.Load(); err != nil {
		slog.Debug("failed to load .env file", "error", err)
	} else {
		slog.Debug("successfully loaded .env file")
	}

	config := Config{
		TelegramToken:  os.Getenv("TELEGRAM_TOKEN"),
		Transport:      util.GetenvDefault("RECIPEBOT_TRANSPORT", DefaultTransport),
		StateDir:       util.GetenvDefault("RECIPEBOT_STATE_DIR", DefaultStateDir),
		FavoritesDSN:   os.Getenv("FAVORITES_DSN"),
		MealDBBaseURL:  util.GetenvDefault("MEALDB_BASE_URL", catalog.DefaultBaseURL),
		CatalogTimeout: util.ParseDurationEnv("CATALOG_TIMEOUT", catalog.DefaultTimeout),
		LogFile:        os.Getenv("LOG_FILE"),
		LogDebug:       util.ParseBoolEnv("LOG_DEBUG", false),
		Locale:         util.GetenvDefault("RECIPEBOT_LOCALE", locales.DefaultLang),
		APIAddr:        util.GetenvDefault("API_ADDR", api.DefaultAddr),
		WhatsAppDBDSN:  os.Getenv("WHATSAPP_DB_DSN"),
		TwilioSID:      os.Getenv("TWILIO_ACCOUNT_SID"),
		TwilioToken:    os.Getenv("TWILIO_AUTH_TOKEN"),
		TwilioFrom:     os.Getenv("TWILIO_FROM_NUMBER"),
		TwilioHookURL:  os.Getenv("TWILIO_WEBHOOK_URL"),
		BackupSchedule: os.Getenv("FAVORITES_BACKUP_SCHEDULE"),
	}
	config.Transport = strings.ToLower(strings.TrimSpace(config.Transport))

	// Favorites live next to the rest of the state unless configured
	if config.FavoritesDSN == "" {
		config.FavoritesDSN = filepath.Join(config.StateDir, DefaultFavoritesFileName)
		slog.Debug("No FAVORITES_DSN set, using default", "favorites_dsn", config.FavoritesDSN)
	}
	if config.WhatsAppDBDSN == "" {
		config.WhatsAppDBDSN = "file:" + filepath.Join(config.StateDir, DefaultWhatsAppDBFileName) + "?_foreign_keys=on"
		slog.Debug("No WHATSAPP_DB_DSN set, using default", "whatsapp_dsn", config.WhatsAppDBDSN)
	}

	slog.Debug("Environment configuration loaded",
		"transport", config.Transport,
		"state_dir", config.StateDir,
		"telegram_token_set", config.TelegramToken != "",
		"twilio_sid_set", config.TwilioSID != "",
		"log_file", config.LogFile,
		"locale", config.Locale)
	return config
}

// parseCommandLineFlags parses command line flags with environment defaults
func parseCommandLineFlags(config Config) Flags {
	return parseFlags(flag.CommandLine, os.Args[1:], config)
}

func parseFlags(fs *flag.FlagSet, args []string, config Config) Flags {
	flags := Flags{
		telegramToken:  fs.String("telegram-token", config.TelegramToken, "Telegram bot token (overrides $TELEGRAM_TOKEN)"),
		transport:      fs.String("transport", config.Transport, "chat transport: telegram, whatsapp or twilio (overrides $RECIPEBOT_TRANSPORT)"),
		stateDir:       fs.String("state-dir", config.StateDir, "state directory for the lock file and default databases (overrides $RECIPEBOT_STATE_DIR)"),
		favoritesDSN:   fs.String("favorites-dsn", config.FavoritesDSN, "favorites storage: .json path, SQLite path, postgres:// URL or memory (overrides $FAVORITES_DSN)"),
		mealDBBaseURL:  fs.String("mealdb-url", config.MealDBBaseURL, "recipe catalog base URL (overrides $MEALDB_BASE_URL)"),
		catalogTimeout: fs.Duration("catalog-timeout", config.CatalogTimeout, "recipe catalog request timeout (overrides $CATALOG_TIMEOUT)"),
		locale:         fs.String("locale", config.Locale, "reply language (overrides $RECIPEBOT_LOCALE)"),
		apiAddr:        fs.String("api-addr", config.APIAddr, "API server address (overrides $API_ADDR)"),
		waDBDSN:        fs.String("whatsapp-db-dsn", config.WhatsAppDBDSN, "whatsmeow device database DSN (overrides $WHATSAPP_DB_DSN)"),
		qrOutput:       fs.String("qr-output", "", "path to write WhatsApp login QR code"),
		numeric:        fs.Bool("numeric", false, "print the WhatsApp pairing code instead of a QR code"),
		debug:          fs.Bool("debug", config.LogDebug, "enable transport debug output"),
		backupSchedule: fs.String("backup-schedule", config.BackupSchedule, "cron expression for favorites snapshots, empty disables (overrides $FAVORITES_BACKUP_SCHEDULE)"),
	}
	if err := fs.Parse(args); err != nil {
		slog.Warn("Failed to parse command line flags", "error", err)
	}
	*flags.transport = strings.ToLower(strings.TrimSpace(*flags.transport))

	slog.Debug("Flags parsed",
		"transport", *flags.transport,
		"state_dir", *flags.stateDir,
		"api_addr", *flags.apiAddr,
		"catalog_timeout", *flags.catalogTimeout,
		"qr_output", *flags.qrOutput,
		"numeric", *flags.numeric)
	return flags
}

// ensureDirectoriesExist creates the state directory and the parent of file-backed favorites
func ensureDirectoriesExist(flags Flags) error {
	if err := os.MkdirAll(*flags.stateDir, 0o755); err != nil {
		return fmt.Errorf("failed to create state directory %s: %w", *flags.stateDir, err)
	}
	switch store.DetectDSNType(*flags.favoritesDSN) {
	case store.DSNTypeJSON, store.DSNTypeSQLite:
		dir := filepath.Dir(*flags.favoritesDSN)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create favorites directory %s: %w", dir, err)
		}
	}
	slog.Debug("Directories ensured", "state_dir", *flags.stateDir)
	return nil
}

// buildCatalogOptions constructs recipe catalog options
func buildCatalogOptions(flags Flags) []catalog.Option {
	var opts []catalog.Option
	if *flags.mealDBBaseURL != "" {
		opts = append(opts, catalog.WithBaseURL(*flags.mealDBBaseURL))
	}
	if *flags.catalogTimeout > 0 {
		opts = append(opts, catalog.WithTimeout(*flags.catalogTimeout))
	}
	return opts
}

// buildWhatsAppOptions constructs WhatsApp configuration options
func buildWhatsAppOptions(flags Flags) []whatsapp.Option {
	var waOpts []whatsapp.Option
	if *flags.waDBDSN != "" {
		waOpts = append(waOpts, whatsapp.WithDBDSN(*flags.waDBDSN))
	}
	if *flags.qrOutput != "" {
		waOpts = append(waOpts, whatsapp.WithQRCodeOutput(*flags.qrOutput))
	}
	if *flags.numeric {
		waOpts = append(waOpts, whatsapp.WithNumericCode())
	}
	return waOpts
}

// buildTwilioOptions constructs Twilio configuration options
func buildTwilioOptions(config Config) []twiliowhatsapp.Option {
	var opts []twiliowhatsapp.Option
	if config.TwilioSID != "" {
		opts = append(opts, twiliowhatsapp.WithAccountSID(config.TwilioSID))
	}
	if config.TwilioToken != "" {
		opts = append(opts, twiliowhatsapp.WithAuthToken(config.TwilioToken))
	}
	if config.TwilioFrom != "" {
		opts = append(opts, twiliowhatsapp.WithFromWhats(config.TwilioFrom))
	}
	return opts
}

// buildAPIOptions constructs API server configuration options
func buildAPIOptions(flags Flags, svc messaging.Service) []api.Option {
	var apiOpts []api.Option
	if *flags.apiAddr != "" {
		apiOpts = append(apiOpts, api.WithAddr(*flags.apiAddr))
	}
	if tw, ok := svc.(*messaging.TwilioService); ok {
		apiOpts = append(apiOpts, api.WithTwilioWebhook(http.HandlerFunc(tw.WebhookHandler)))
	}
	return apiOpts
}

// newService creates the chat transport selected by flags.
func newService(ctx context.Context, config Config, flags Flags) (messaging.Service, func(), error) {
	switch *flags.transport {
	case TransportTelegram:
		if *flags.telegramToken == "" {
			return nil, nil, errors.New("TELEGRAM_TOKEN must be set for the telegram transport")
		}
		svc, err := messaging.NewTelegramService(*flags.telegramToken, *flags.debug)
		if err != nil {
			return nil, nil, err
		}
		return svc, func() {}, nil
	case TransportWhatsApp:
		client, err := whatsapp.NewClient(ctx, buildWhatsAppOptions(flags)...)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create WhatsApp client: %w", err)
		}
		return messaging.NewWhatsAppService(client, messaging.NewOptionMenus(messaging.DefaultMenuTTL)), client.Close, nil
	case TransportTwilio:
		client, err := twiliowhatsapp.NewClient(buildTwilioOptions(config)...)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create Twilio client: %w", err)
		}
		var twOpts []messaging.TwilioOption
		if config.TwilioToken != "" {
			twOpts = append(twOpts, messaging.WithSignatureValidation(config.TwilioToken, config.TwilioHookURL))
		} else {
			slog.Warn("TWILIO_AUTH_TOKEN not in config, webhook signatures are not checked")
		}
		return messaging.NewTwilioService(client, messaging.NewOptionMenus(messaging.DefaultMenuTTL), twOpts...), func() {}, nil
	default:
		return nil, nil, fmt.Errorf("unknown transport %q (want %s, %s or %s)", *flags.transport, TransportTelegram, TransportWhatsApp, TransportTwilio)
	}
}

// run wires the modules together and blocks until ctx is done.
func run(ctx context.Context, config Config, flags Flags) error {
	lock, err := lockfile.AcquireLock(*flags.stateDir)
	if err != nil {
		return err
	}
	defer func() {
		if err := lock.Release(); err != nil {
			slog.Warn("Failed to release lock file", "error", err, "path", lock.Path())
		}
	}()

	favorites, err := store.Open(*flags.favoritesDSN)
	if err != nil {
		return fmt.Errorf("failed to open favorites store: %w", err)
	}
	defer favorites.Close()

	if *flags.backupSchedule != "" {
		sched := scheduler.NewScheduler()
		defer sched.Stop()
		backupDir := filepath.Join(*flags.stateDir, DefaultBackupDirName)
		if err := scheduler.ScheduleBackup(sched, *flags.backupSchedule, favorites, backupDir); err != nil {
			return fmt.Errorf("invalid backup schedule %q: %w", *flags.backupSchedule, err)
		}
		slog.Info("Favorites backups scheduled", "schedule", *flags.backupSchedule, "dir", backupDir, "jobs", sched.Jobs())
	}

	svc, closeClient, err := newService(ctx, config, flags)
	if err != nil {
		return err
	}
	defer closeClient()

	slog.Info("Locales loaded", "available", locales.Languages(), "selected", *flags.locale)
	tracker := conversation.NewTracker()
	controller := bot.NewController(
		catalog.NewClient(buildCatalogOptions(flags)...),
		favorites,
		tracker,
		bot.WithTexts(locales.Get(*flags.locale)),
	)
	dispatcher := bot.NewDispatcher(controller, svc)
	server := api.NewServer(favorites, buildAPIOptions(flags, svc)...)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- server.Run(ctx)
	}()

	if err := svc.Start(ctx); err != nil {
		cancel()
		<-serverErr
		return fmt.Errorf("failed to start %s transport: %w", *flags.transport, err)
	}
	slog.Info("RecipeBot running", "transport", *flags.transport, "api_addr", *flags.apiAddr)

	dispatchErr := make(chan error, 1)
	go func() {
		dispatchErr <- dispatcher.Run(ctx, svc.Events())
	}()

	var runErr error
	select {
	case <-ctx.Done():
		slog.Info("Shutdown signal received")
	case err := <-serverErr:
		runErr = err
		serverErr = nil
	case err := <-dispatchErr:
		if err != nil && !errors.Is(err, context.Canceled) {
			runErr = err
		}
		dispatchErr = nil
	}

	cancel()
	slog.Info("RecipeBot stopping", "pending_searches", tracker.Count())
	if err := svc.Stop(); err != nil {
		slog.Warn("Failed to stop transport", "error", err)
	}
	if dispatchErr != nil {
		<-dispatchErr
	}
	if serverErr != nil {
		if err := <-serverErr; err != nil && runErr == nil {
			runErr = err
		}
	}
	return runErr
}
