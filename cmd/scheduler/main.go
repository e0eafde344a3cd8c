package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/pflag"

	"github.com/example/room-booking/internal/application"
	"github.com/example/room-booking/internal/config"
	"github.com/example/room-booking/internal/entitystore"
	httptransport "github.com/example/room-booking/internal/http"
	"github.com/example/room-booking/internal/identity"
	"github.com/example/room-booking/internal/lock"
	"github.com/example/room-booking/internal/logging"
	"github.com/example/room-booking/internal/persistence"
	"github.com/example/room-booking/internal/persistence/memory"
	"github.com/example/room-booking/internal/persistence/postgres"
	"github.com/example/room-booking/internal/persistence/sqlite"
	"github.com/example/room-booking/internal/policy"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

type options struct {
	configFile  string
	envFile     string
	migrateOnly bool
	issueToken  string
	tokenRole   string
	tokenTTL    time.Duration
}

func parseFlags(args []string, output io.Writer) (options, error) {
	var opts options
	flags := pflag.NewFlagSet("scheduler", pflag.ContinueOnError)
	flags.SetOutput(output)
	flags.StringVar(&opts.configFile, "config", "", "path to a YAML configuration file")
	flags.StringVar(&opts.envFile, "env-file", "", "path to a .env file loaded before the environment")
	flags.BoolVar(&opts.migrateOnly, "migrate-only", false, "apply schema migrations and exit")
	flags.StringVar(&opts.issueToken, "issue-token", "", "print a signed bearer token for this user id and exit")
	flags.StringVar(&opts.tokenRole, "role", string(policy.RoleUser), "role claim for --issue-token")
	flags.DurationVar(&opts.tokenTTL, "token-ttl", time.Hour, "lifetime of the token printed by --issue-token")
	if err := flags.Parse(args); err != nil {
		return options{}, err
	}
	return opts, nil
}

// run wires the service and blocks until ctx ends or the server fails.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	opts, err := parseFlags(args, stderr)
	if err != nil {
		return err
	}

	cfg, err := config.Load(config.Options{EnvFile: opts.envFile, ConfigFile: opts.configFile})
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}
	logger := logging.New(stderr, cfg.LogLevel)

	if opts.issueToken != "" {
		return issueToken(cfg, opts, stdout)
	}

	store, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := store.Close(); cerr != nil {
			logger.Error("failed to close store", "error", cerr)
		}
	}()

	if err := store.Migrate(ctx); err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}
	if opts.migrateOnly {
		logger.Info("migrations applied", "driver", cfg.StoreDriver)
		return nil
	}

	locker, closeLocker := newLocker(cfg, logger)
	defer func() {
		if cerr := closeLocker(); cerr != nil {
			logger.Error("failed to close lock client", "error", cerr)
		}
	}()

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           buildHandler(cfg, store, locker, logger),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("booking API listening", "addr", server.Addr, "driver", cfg.StoreDriver)
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("shutdown: %w", err)
	}
	logger.Info("booking API stopped")
	return nil
}

func openStore(ctx context.Context, cfg config.Config, logger *slog.Logger) (persistence.Store, error) {
	switch cfg.StoreDriver {
	case config.DriverMemory:
		return memory.New(), nil
	case config.DriverPostgres:
		store, err := postgres.Open(ctx, postgres.DefaultConfig(cfg.PostgresDSN), logger)
		if err != nil {
			return nil, fmt.Errorf("open postgres store: %w", err)
		}
		return store, nil
	default:
		store, err := sqlite.Open(ctx, sqlite.DefaultConfig(cfg.SQLitePath), logger)
		if err != nil {
			return nil, fmt.Errorf("open sqlite store: %w", err)
		}
		return store, nil
	}
}

// newLocker picks the Redis lock when an address is configured. The returned func
// closes whatever client the lock holds.
func newLocker(cfg config.Config, logger *slog.Logger) (application.ApprovalLocker, func() error) {
	if cfg.RedisAddr == "" {
		return lock.NewLocal(), func() error { return nil }
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	return lock.NewRedis(client, lock.WithTTL(cfg.LockTTL), lock.WithLogger(logger)), client.Close
}

func buildHandler(cfg config.Config, store persistence.Store, locker application.ApprovalLocker, logger *slog.Logger) http.Handler {
	entities := entitystore.New(store)
	now := time.Now

	bookingService := application.NewBookingService(application.BookingServiceDeps{
		Bookings:    entities,
		Transactor:  entities,
		Rooms:       entities,
		Profiles:    entities,
		Locker:      locker,
		IDGenerator: uuid.NewString,
		Now:         now,
		Location:    cfg.Location,
		Logger:      logger,
	})
	scheduleService := application.NewScheduleServiceWithLogger(entities, entities, entities, now, cfg.Location, logger)
	roomService := application.NewRoomServiceWithLogger(entities, uuid.NewString, now, logger)
	profileService := application.NewProfileServiceWithLogger(entities, now, logger)
	engine := application.NewAvailabilityEngineWithLogger(entities, entities, logger)

	return httptransport.NewRouter(httptransport.RouterConfig{
		Bookings:     httptransport.NewBookingHandler(bookingService, scheduleService, logger),
		Availability: httptransport.NewAvailabilityHandler(engine, cfg.OpeningHours, logger),
		Rooms:        httptransport.NewRoomHandler(roomService, logger),
		Profiles:     httptransport.NewProfileHandler(profileService, logger),
		Middleware: []func(http.Handler) http.Handler{
			httptransport.RequestLogger(logger),
			httptransport.Authenticate(identity.NewVerifier([]byte(cfg.JWTSecret), cfg.JWTIssuer), logger),
		},
	})
}

func issueToken(cfg config.Config, opts options, stdout io.Writer) error {
	role := policy.ParseRole(opts.tokenRole)
	if role == policy.RoleAnonymous {
		return fmt.Errorf("unknown role %q", opts.tokenRole)
	}
	token, err := identity.NewIssuer([]byte(cfg.JWTSecret), cfg.JWTIssuer).
		Issue(policy.Actor{ID: opts.issueToken, Role: role}, opts.tokenTTL)
	if err != nil {
		return fmt.Errorf("issue token: %w", err)
	}
	_, err = fmt.Fprintln(stdout, token)
	return err
}
