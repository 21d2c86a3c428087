package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/citypulse/pulsebot/internal/api"
	"github.com/citypulse/pulsebot/internal/cache"
	"github.com/citypulse/pulsebot/internal/cityprofile"
	"github.com/citypulse/pulsebot/internal/decision"
	"github.com/citypulse/pulsebot/internal/notify"
	"github.com/citypulse/pulsebot/internal/orchestrator"
	"github.com/citypulse/pulsebot/internal/providers"
	"github.com/citypulse/pulsebot/internal/render"
	"github.com/citypulse/pulsebot/internal/scheduler"
	"github.com/citypulse/pulsebot/internal/store"
)

// Default configuration constants
const (
	// DefaultStateDir is the default directory for PulseBot state data
	DefaultStateDir = "/var/lib/pulsebot"
	// DefaultDBFileName is the default SQLite database filename
	DefaultDBFileName = "pulsebot.db"
	// DefaultAPIAddr is the default API listen address
	DefaultAPIAddr = ":8080"
	// DefaultSchedule runs a generation cycle every 15 minutes
	DefaultSchedule = "*/15 * * * *"
	// ExpirySchedule runs the nightly expiry sweep
	ExpirySchedule = "0 3 * * *"
)

func main() {
	// Initialize structured logger
	initializeLogger()

	// Load environment configuration
	config := loadEnvironmentConfig()

	// Parse command line flags
	flags := parseCommandLineFlags(config)

	// Ensure required directories exist
	if err := ensureDirectoriesExist(flags); err != nil {
		slog.Error("Failed to create required directories", "error", err)
		os.Exit(1)
	}

	slog.Info("Bootstrapping PulseBot with configured modules")
	slog.Debug("Final configuration", "cities", *flags.cities, "dsn_set", *flags.dbDSN != "", "api_addr", *flags.apiAddr)
	if err := run(flags); err != nil {
		slog.Error("PulseBot failed to run", "error", err)
		os.Exit(1)
	}
	slog.Info("PulseBot exited successfully")
}

// Config holds environment configuration
type Config struct {
	DatabaseURL string
	StateDir    string
	APIAddr     string
	Schedule    string
	Cities      string
	Timezone    string
	RushHours   string
	ProfileFile string
	TrafficKey  string
	WeatherKey  string
	EventsKey   string
	NotifyWith  string
	Subscribers string
}

// Flags holds command line flag values
type Flags struct {
	stateDir    *string
	dbDSN       *string
	apiAddr     *string
	schedule    *string
	cities      *string
	timezone    *string
	rushHours   *string
	profileFile *string
	trafficKey  *string
	weatherKey  *string
	eventsKey   *string
	notifyWith  *string
	subscribers *string
}

// initializeLogger sets up structured logging with the level from LOG_LEVEL
func initializeLogger() {
	level := slog.LevelInfo
	switch strings.ToLower(os.Getenv("LOG_LEVEL")) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
}

// loadEnvironmentConfig loads configuration from environment variables and .env file
func loadEnvironmentConfig() Config {
	if err := godotenv.Load(); err != nil {
		slog.Debug("failed to load .env file", "error", err)
	} else {
		slog.Debug("successfully loaded .env file")
	}

	config := Config{
		DatabaseURL: os.Getenv("DATABASE_URL"),
		StateDir:    os.Getenv("PULSEBOT_STATE_DIR"),
		APIAddr:     os.Getenv("API_ADDR"),
		Schedule:    os.Getenv("PULSEBOT_SCHEDULE"),
		Cities:      os.Getenv("PULSEBOT_CITIES"),
		Timezone:    os.Getenv("PULSEBOT_TIMEZONE"),
		RushHours:   os.Getenv("PULSEBOT_RUSH_HOURS"),
		ProfileFile: os.Getenv("PULSEBOT_PROFILE_FILE"),
		TrafficKey:  os.Getenv("TOMTOM_API_KEY"),
		WeatherKey:  os.Getenv("OPENWEATHER_API_KEY"),
		EventsKey:   os.Getenv("TICKETMASTER_API_KEY"),
		NotifyWith:  os.Getenv("PULSEBOT_NOTIFY_BACKEND"),
		Subscribers: os.Getenv("PULSEBOT_SUBSCRIBERS"),
	}

	// Set default state directory if not specified
	if config.StateDir == "" {
		config.StateDir = DefaultStateDir
		slog.Debug("No PULSEBOT_STATE_DIR set, using default", "default_state_dir", config.StateDir)
	}

	// If no database URL is provided, default to SQLite in the state directory
	if config.DatabaseURL == "" {
		config.DatabaseURL = filepath.Join(config.StateDir, DefaultDBFileName)
		slog.Debug("No database DSN provided, defaulting to SQLite", "sqlite_path", config.DatabaseURL)
	}
	if config.APIAddr == "" {
		config.APIAddr = DefaultAPIAddr
	}
	if config.Schedule == "" {
		config.Schedule = DefaultSchedule
	}

	slog.Debug("environment variables loaded",
		"DATABASE_URL_SET", config.DatabaseURL != "",
		"PULSEBOT_STATE_DIR", config.StateDir,
		"API_ADDR", config.APIAddr,
		"PULSEBOT_SCHEDULE", config.Schedule,
		"PULSEBOT_CITIES", config.Cities,
		"PULSEBOT_TIMEZONE", config.Timezone,
		"PULSEBOT_RUSH_HOURS", config.RushHours,
		"PULSEBOT_PROFILE_FILE", config.ProfileFile,
		"TOMTOM_API_KEY_SET", config.TrafficKey != "",
		"OPENWEATHER_API_KEY_SET", config.WeatherKey != "",
		"TICKETMASTER_API_KEY_SET", config.EventsKey != "",
		"PULSEBOT_NOTIFY_BACKEND", config.NotifyWith)

	return config
}

// parseCommandLineFlags parses command line arguments with environment defaults
func parseCommandLineFlags(config Config) Flags {
	flags := Flags{
		stateDir:    flag.String("state-dir", config.StateDir, "state directory for PulseBot data (overrides $PULSEBOT_STATE_DIR)"),
		dbDSN:       flag.String("db-dsn", config.DatabaseURL, "database DSN: Postgres URL or SQLite path (overrides $DATABASE_URL)"),
		apiAddr:     flag.String("api-addr", config.APIAddr, "API server address (overrides $API_ADDR)"),
		schedule:    flag.String("schedule", config.Schedule, "cron expression for generation cycles (overrides $PULSEBOT_SCHEDULE)"),
		cities:      flag.String("cities", config.Cities, "comma-separated cities to run cycles for (overrides $PULSEBOT_CITIES)"),
		timezone:    flag.String("timezone", config.Timezone, "reference timezone for rush hours (overrides $PULSEBOT_TIMEZONE)"),
		rushHours:   flag.String("rush-hours", config.RushHours, "rush-hour windows, e.g. 07:00-09:30,16:00-18:30 (overrides $PULSEBOT_RUSH_HOURS)"),
		profileFile: flag.String("profile-file", config.ProfileFile, "city profile override YAML (overrides $PULSEBOT_PROFILE_FILE)"),
		trafficKey:  flag.String("traffic-api-key", config.TrafficKey, "traffic provider API key (overrides $TOMTOM_API_KEY)"),
		weatherKey:  flag.String("weather-api-key", config.WeatherKey, "weather provider API key (overrides $OPENWEATHER_API_KEY)"),
		eventsKey:   flag.String("events-api-key", config.EventsKey, "events provider API key (overrides $TICKETMASTER_API_KEY)"),
		notifyWith:  flag.String("notify-backend", config.NotifyWith, "notification backend: expo, twilio, or none (overrides $PULSEBOT_NOTIFY_BACKEND)"),
		subscribers: flag.String("subscribers", config.Subscribers, "per-city recipients, e.g. leander=tok1;tok2,austin=tok3 (overrides $PULSEBOT_SUBSCRIBERS)"),
	}

	flag.Parse()

	// Update database DSN if not explicitly set but state directory is provided
	if *flags.dbDSN == config.DatabaseURL && config.DatabaseURL == filepath.Join(config.StateDir, DefaultDBFileName) && *flags.stateDir != config.StateDir {
		*flags.dbDSN = filepath.Join(*flags.stateDir, DefaultDBFileName)
		slog.Debug("Updated dbDSN based on state directory", "old_state_dir", config.StateDir, "new_state_dir", *flags.stateDir)
	}

	return flags
}

// ensureDirectoriesExist creates necessary directories for file-based storage
func ensureDirectoriesExist(flags Flags) error {
	if store.DetectDSNType(*flags.dbDSN) == "sqlite" {
		stateDir := filepath.Dir(*flags.dbDSN)
		slog.Debug("Creating state directory for file-based database", "state_dir", stateDir)
		if err := os.MkdirAll(stateDir, 0755); err != nil {
			slog.Error("Failed to create state directory", "error", err, "state_dir", stateDir)
			return err
		}
	}
	return nil
}

// buildStore selects the storage backend from the DSN.
func buildStore(flags Flags) (store.Store, error) {
	if store.DetectDSNType(*flags.dbDSN) == "postgres" {
		slog.Debug("Detected PostgreSQL DSN, configuring PostgreSQL store")
		return store.NewPostgresStore(store.WithDSN(*flags.dbDSN))
	}
	slog.Debug("Detected SQLite DSN, configuring SQLite store", "db_path", *flags.dbDSN)
	return store.NewSQLiteStore(store.WithDSN(*flags.dbDSN))
}

// buildNotifier selects the notification backend. Unconfigured or unknown
// backends degrade to the no-op service.
func buildNotifier(flags Flags) notify.Service {
	switch strings.ToLower(*flags.notifyWith) {
	case "expo":
		return notify.NewExpoService("")
	case "twilio":
		svc, err := notify.NewTwilioService(os.Getenv("TWILIO_ACCOUNT_SID"), os.Getenv("TWILIO_AUTH_TOKEN"), os.Getenv("TWILIO_FROM_NUMBER"))
		if err != nil {
			slog.Warn("Twilio backend misconfigured, notifications disabled", "error", err)
			return notify.NoopService{}
		}
		return svc
	case "", "none":
		return notify.NoopService{}
	default:
		slog.Warn("Unknown notification backend, notifications disabled", "backend", *flags.notifyWith)
		return notify.NoopService{}
	}
}

// parseCities splits the configured city list.
func parseCities(s string) []string {
	var cities []string
	for _, c := range strings.Split(s, ",") {
		if c = strings.TrimSpace(c); c != "" {
			cities = append(cities, c)
		}
	}
	return cities
}

// parseSubscribers parses "city=tok1;tok2,city2=tok3" into a recipient map
// keyed by normalized city name.
func parseSubscribers(s string) map[string][]string {
	subs := make(map[string][]string)
	for _, entry := range strings.Split(s, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		city, tokens, ok := strings.Cut(entry, "=")
		if !ok {
			slog.Warn("Skipping malformed subscriber entry", "entry", entry)
			continue
		}
		key := cityprofile.NormalizeCityName(city)
		for _, tok := range strings.Split(tokens, ";") {
			if tok = strings.TrimSpace(tok); tok != "" {
				subs[key] = append(subs[key], tok)
			}
		}
	}
	return subs
}

// run wires the modules together and serves until interrupted.
func run(flags Flags) error {
	profiles, err := cityprofile.Load(*flags.profileFile)
	if err != nil {
		return err
	}

	st, err := buildStore(flags)
	if err != nil {
		return err
	}
	defer st.Close()

	rushWindows, err := decision.ParseWindows(*flags.rushHours)
	if err != nil {
		return err
	}
	engine := decision.NewEngine(decision.Config{RushWindows: rushWindows}, nil)
	renderer := render.NewRenderer(profiles, nil)

	signalCache := cache.NewMemory()
	var traffic providers.TrafficProvider
	if *flags.trafficKey != "" {
		traffic = providers.NewHTTPTrafficProvider(signalCache, providers.WithAPIKey(*flags.trafficKey))
	} else {
		slog.Warn("No traffic API key configured, traffic signal disabled")
	}
	var weather providers.WeatherProvider
	if *flags.weatherKey != "" {
		weather = providers.NewHTTPWeatherProvider(signalCache, providers.WithAPIKey(*flags.weatherKey))
	} else {
		slog.Warn("No weather API key configured, weather signal disabled")
	}
	var events providers.EventsProvider
	if *flags.eventsKey != "" {
		events = providers.NewHTTPEventsProvider(signalCache, providers.WithAPIKey(*flags.eventsKey))
	} else {
		slog.Warn("No events API key configured, events signal disabled")
	}

	orch := orchestrator.New(st, traffic, weather, events, profiles, engine, renderer,
		buildNotifier(flags), nil, orchestrator.Config{
			Timezone:    *flags.timezone,
			Subscribers: parseSubscribers(*flags.subscribers),
		})

	sched := scheduler.NewScheduler()
	defer sched.Stop()

	cities := parseCities(*flags.cities)
	if len(cities) > 0 {
		runner := scheduler.NewCycleRunner(cities, func(ctx context.Context, city string) error {
			_, err := orch.GenerateIntelligentPost(ctx, city, orchestrator.GenerateOptions{})
			return err
		}, 0, 0)
		if err := sched.AddJob(*flags.schedule, runner.Run); err != nil {
			return err
		}
		slog.Info("Scheduled generation cycles", "schedule", *flags.schedule, "cities", len(cities))
	} else {
		slog.Warn("No cities configured, running API-only")
	}
	if err := sched.AddJob(ExpirySchedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		deleted, err := orch.ExpireOldPosts(ctx)
		if err != nil {
			slog.Error("Expiry sweep failed", "error", err)
			return
		}
		slog.Info("Expiry sweep complete", "deleted", deleted)
	}); err != nil {
		return err
	}

	server := api.NewServer(*flags.apiAddr, orch)

	// Serve until SIGINT/SIGTERM, then drain.
	errCh := make(chan error, 1)
	go func() { errCh <- server.Run() }()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-errCh:
		return err
	case sig := <-stop:
		slog.Info("Shutdown signal received", "signal", sig.String())
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(ctx)
	}
}
