package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Z3rkRapt0r/gofood-men/backend/internal/auth"
	"github.com/Z3rkRapt0r/gofood-men/backend/internal/config"
	"github.com/Z3rkRapt0r/gofood-men/backend/internal/database"
	"github.com/Z3rkRapt0r/gofood-men/backend/internal/logging"
	"github.com/Z3rkRapt0r/gofood-men/backend/internal/metrics"
	"github.com/Z3rkRapt0r/gofood-men/backend/internal/notify"
	"github.com/Z3rkRapt0r/gofood-men/backend/internal/realtime"
	"github.com/Z3rkRapt0r/gofood-men/backend/internal/reservations"
	"github.com/Z3rkRapt0r/gofood-men/backend/internal/server"
	"github.com/Z3rkRapt0r/gofood-men/backend/internal/staff"
	"github.com/Z3rkRapt0r/gofood-men/backend/internal/venue"
	"github.com/go-redis/redis/v8"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	cfgFile string
)

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "failed to load .env: %v\n", err)
	}

	rootCmd := &cobra.Command{
		Use:   "gofood-api",
		Short: "GoFood reservation backend service",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return initConfig()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context())
		},
	}

	setupFlags(rootCmd)
	rootCmd.AddCommand(newIssueTokenCommand(), newSweepCommand())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func setupFlags(cmd *cobra.Command) {
	config.ApplyDefaults(viper.GetViper())
	defaults := config.NewViper()
	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Path to configuration file")
	cmd.PersistentFlags().String("http-address", defaults.GetString("http.address"), "HTTP listen address")
	cmd.PersistentFlags().String("database-driver", defaults.GetString("database.driver"), "Database driver (sqlite, postgres, mysql)")
	cmd.PersistentFlags().String("database-path", defaults.GetString("database.path"), "SQLite database path")
	cmd.PersistentFlags().String("database-dsn", defaults.GetString("database.dsn"), "Postgres or MySQL DSN")
	cmd.PersistentFlags().Int("token-ttl-minutes", defaults.GetInt("auth.token_ttl_minutes"), "Staff session TTL in minutes")
	cmd.PersistentFlags().String("log-level", defaults.GetString("log.level"), "Log level (debug, info, warn, error)")
	cmd.PersistentFlags().String("log-format", defaults.GetString("log.format"), "Log format (json, console)")
	cmd.PersistentFlags().String("signing-secret", "", "Session signing secret (overrides env)")
	cmd.PersistentFlags().String("kafka-brokers", defaults.GetString("kafka.brokers"), "Comma separated Kafka brokers for reservation events")
	cmd.PersistentFlags().String("redis-address", defaults.GetString("redis.address"), "Redis address for the realtime bridge")

	bindFlag(cmd, "http.address", "http-address")
	bindFlag(cmd, "database.driver", "database-driver")
	bindFlag(cmd, "database.path", "database-path")
	bindFlag(cmd, "database.dsn", "database-dsn")
	bindFlag(cmd, "auth.token_ttl_minutes", "token-ttl-minutes")
	bindFlag(cmd, "log.level", "log-level")
	bindFlag(cmd, "log.format", "log-format")
	bindFlag(cmd, "auth.signing_secret", "signing-secret")
	bindFlag(cmd, "kafka.brokers", "kafka-brokers")
	bindFlag(cmd, "redis.address", "redis-address")
}

func bindFlag(cmd *cobra.Command, key, flag string) {
	if err := viper.BindPFlag(key, cmd.PersistentFlags().Lookup(flag)); err != nil {
		panic(err)
	}
}

func initConfig() error {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	}

	if err := viper.ReadInConfig(); err != nil {
		var configNotFound viper.ConfigFileNotFoundError
		if cfgFile != "" && errors.As(err, &configNotFound) {
			return err
		}
	}

	return nil
}

type runtimeDeps struct {
	config config.AppConfig
	logger *zap.Logger
	db     *gorm.DB
}

func loadRuntime() (runtimeDeps, func(), error) {
	appConfig, err := config.Load(viper.GetViper())
	if err != nil {
		return runtimeDeps{}, nil, err
	}

	logger, err := logging.NewLogger(appConfig.LogLevel, appConfig.LogFormat)
	if err != nil {
		return runtimeDeps{}, nil, err
	}

	db, err := database.Open(database.Options{
		Driver: appConfig.DatabaseDriver,
		Path:   appConfig.DatabasePath,
		DSN:    appConfig.DatabaseDSN,
	}, logger)
	if err != nil {
		_ = logger.Sync()
		return runtimeDeps{}, nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		_ = logger.Sync()
		return runtimeDeps{}, nil, err
	}

	cleanup := func() {
		_ = sqlDB.Close()
		_ = logger.Sync()
	}
	return runtimeDeps{config: appConfig, logger: logger, db: db}, cleanup, nil
}

type closableNotifier interface {
	reservations.Notifier
	Close() error
}

func buildNotifier(appConfig config.AppConfig, logger *zap.Logger) (closableNotifier, error) {
	if len(appConfig.KafkaBrokers) == 0 {
		logger.Info("kafka brokers not configured, logging reservation events")
		return notify.NewLogNotifier(logger), nil
	}
	return notify.NewKafkaNotifier(notify.KafkaConfig{
		Brokers:  appConfig.KafkaBrokers,
		Topic:    appConfig.KafkaTopic,
		ClientID: "gofood-api",
	}, logger)
}

func runServer(ctx context.Context) error {
	deps, cleanup, err := loadRuntime()
	if err != nil {
		return err
	}
	defer cleanup()
	appConfig, logger := deps.config, deps.logger

	signalCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	notifier, err := buildNotifier(appConfig, logger)
	if err != nil {
		return err
	}
	defer notifier.Close() //nolint:errcheck

	dispatcher := realtime.NewDispatcher()
	var changes reservations.ChangeNotifier = dispatcher
	if appConfig.RedisAddress != "" {
		redisClient := redis.NewClient(&redis.Options{Addr: appConfig.RedisAddress})
		defer redisClient.Close() //nolint:errcheck
		bridge, err := realtime.NewRedisBridge(redisClient, appConfig.RedisChannel, dispatcher, logger)
		if err != nil {
			return err
		}
		go func() {
			if err := bridge.Run(signalCtx); err != nil {
				logger.Error("realtime bridge stopped", zap.Error(err))
			}
		}()
		changes = bridge
	}

	recorder := metrics.NewRecorder(appConfig.MetricsPrefix)

	reservationService, err := reservations.NewService(reservations.ServiceConfig{
		Database:   deps.db,
		Clock:      time.Now,
		IDProvider: reservations.NewUUIDProvider(),
		Notifier:   notifier,
		Changes:    changes,
		Metrics:    recorder,
		Logger:     logger,
	})
	if err != nil {
		return err
	}
	venueService, err := venue.NewService(venue.ServiceConfig{
		Database:   deps.db,
		TableUsage: reservationService,
		Clock:      time.Now,
		Logger:     logger,
	})
	if err != nil {
		return err
	}
	staffService, err := staff.NewService(staff.ServiceConfig{Database: deps.db, Logger: logger})
	if err != nil {
		return err
	}
	sessionValidator, err := auth.NewSessionValidator(auth.SessionValidatorConfig{
		SigningSecret: []byte(appConfig.SigningSecret),
		Issuer:        appConfig.SessionIssuer,
		CookieName:    appConfig.SessionCookieName,
	})
	if err != nil {
		return err
	}

	handler, err := server.NewHTTPHandler(server.Dependencies{
		Sessions:          sessionValidator,
		Tenants:           staffService,
		Reservations:      reservationService,
		Venue:             venueService,
		Realtime:          dispatcher,
		Metrics:           recorder,
		AllowedOrigins:    appConfig.AllowedOrigins,
		BookingsPerMinute: appConfig.BookingRatePerMin,
		BookingBurst:      appConfig.BookingBurst,
		HeartbeatInterval: appConfig.HeartbeatInterval,
		Logger:            logger,
	})
	if err != nil {
		return err
	}

	if appConfig.SweepInterval > 0 {
		go reservationService.RunStaleSweep(signalCtx, appConfig.SweepInterval)
	}

	httpServer := &http.Server{
		Addr:              appConfig.HTTPAddress,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server starting", zap.String("address", appConfig.HTTPAddress))
		err := httpServer.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-signalCtx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

func newIssueTokenCommand() *cobra.Command {
	var (
		userID   string
		email    string
		name     string
		tenantID string
		role     string
	)
	cmd := &cobra.Command{
		Use:   "issue-token",
		Short: "Grant a staff login access to a tenant and print a session token",
		RunE: func(cmd *cobra.Command, args []string) error {
			deps, cleanup, err := loadRuntime()
			if err != nil {
				return err
			}
			defer cleanup()

			staffService, err := staff.NewService(staff.ServiceConfig{Database: deps.db, Logger: deps.logger})
			if err != nil {
				return err
			}
			if err := staffService.Grant(cmd.Context(), staff.Membership{
				Subject:     userID,
				TenantID:    tenantID,
				Role:        role,
				Email:       email,
				DisplayName: name,
			}); err != nil {
				return err
			}

			issuer, err := auth.NewTokenIssuer(auth.TokenIssuerConfig{
				SigningSecret: []byte(deps.config.SigningSecret),
				Issuer:        deps.config.SessionIssuer,
				TokenTTL:      deps.config.TokenTTL,
			})
			if err != nil {
				return err
			}
			token, expiresAt, err := issuer.IssueSessionToken(cmd.Context(), auth.StaffIdentity{
				UserID:      userID,
				Email:       email,
				DisplayName: name,
				TenantID:    tenantID,
				Role:        role,
			})
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			deps.logger.Info("staff session issued",
				zap.String("user_id", userID),
				zap.String("tenant_id", tenantID),
				zap.Time("expires_at", expiresAt))
			return nil
		},
	}
	cmd.Flags().StringVar(&userID, "user", "", "Staff user identifier")
	cmd.Flags().StringVar(&email, "email", "", "Staff email")
	cmd.Flags().StringVar(&name, "name", "", "Staff display name")
	cmd.Flags().StringVar(&tenantID, "tenant", "", "Tenant the staff member works for")
	cmd.Flags().StringVar(&role, "role", staff.RoleStaff, "Role (owner, staff)")
	_ = cmd.MarkFlagRequired("user")
	_ = cmd.MarkFlagRequired("tenant")
	return cmd
}

func newSweepCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Reject pending reservations whose date has passed",
		RunE: func(cmd *cobra.Command, args []string) error {
			deps, cleanup, err := loadRuntime()
			if err != nil {
				return err
			}
			defer cleanup()

			reservationService, err := reservations.NewService(reservations.ServiceConfig{
				Database:   deps.db,
				IDProvider: reservations.NewUUIDProvider(),
				Logger:     deps.logger,
			})
			if err != nil {
				return err
			}
			swept, err := reservationService.SweepStalePending(cmd.Context(), time.Now())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "rejected %d stale pending reservations\n", swept)
			return nil
		},
	}
}
