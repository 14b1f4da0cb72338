package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/konorlevich/warehouse_tracker/internal/warehouse-service/accounts"
	"github.com/konorlevich/warehouse_tracker/internal/warehouse-service/database"
	"github.com/konorlevich/warehouse_tracker/internal/warehouse-service/files"
	"github.com/konorlevich/warehouse_tracker/internal/warehouse-service/handler"
	"github.com/konorlevich/warehouse_tracker/internal/warehouse-service/recaptcha"
	"github.com/konorlevich/warehouse_tracker/internal/warehouse-service/routing"
	"github.com/konorlevich/warehouse_tracker/internal/warehouse-service/session"
)

const shutdownTimeout = 10 * time.Second

var version = "dev"

var (
	port        = "8080"
	metricsPort = "9090"
	dbDriver    = database.DriverSQLite
	dbFile      = database.DefaultFile
	dbDSN       = ""
	dbMaxConns  = 0
	redisURL    = ""
	sessionTTL  = session.DefaultTTL

	recaptchaSecret   = ""
	recaptchaMinScore = recaptcha.DefaultMinScore
	recaptchaTimeout  = recaptcha.DefaultTimeout

	logLevel  = log.InfoLevel
	logFormat = "text"
)

func init() {
	if p := os.Getenv("REST_PORT"); p != "" {
		port = p
	}
	// an explicitly empty METRICS_PORT turns the metrics server off
	if p, ok := os.LookupEnv("METRICS_PORT"); ok {
		metricsPort = p
	}
	if d := os.Getenv("DB_DRIVER"); d != "" {
		dbDriver = d
	}
	if d := os.Getenv("DB_FILE"); d != "" {
		dbFile = d
	}
	dbDSN = os.Getenv("DB_DSN")
	if c, err := strconv.Atoi(os.Getenv("DB_MAX_CONNS")); err == nil && c > 0 {
		dbMaxConns = c
	}
	redisURL = os.Getenv("REDIS_URL")
	if d, err := time.ParseDuration(os.Getenv("SESSION_TTL")); err == nil && d > 0 {
		sessionTTL = d
	}

	recaptchaSecret = os.Getenv("RECAPTCHA_SECRET_KEY")
	if s, err := strconv.ParseFloat(os.Getenv("RECAPTCHA_MIN_SCORE"), 64); err == nil {
		recaptchaMinScore = s
	}
	if d, err := time.ParseDuration(os.Getenv("RECAPTCHA_TIMEOUT")); err == nil && d > 0 {
		recaptchaTimeout = d
	}

	if l, err := log.ParseLevel(os.Getenv("LOG_LEVEL")); err == nil {
		logLevel = l
	}
	if f := os.Getenv("LOG_FORMAT"); f != "" {
		logFormat = f
	}
}

func newLogger() *log.Entry {
	l := log.New()
	l.SetLevel(logLevel)
	if logFormat == "json" {
		l.SetFormatter(&log.JSONFormatter{})
	}
	return l.WithField("service", "warehouse-service")
}

func openDb() (*gorm.DB, error) {
	dsn := dbDSN
	if dbDriver == database.DriverSQLite && dsn == "" {
		dsn = dbFile
	}
	level := logger.Warn
	if logLevel >= log.DebugLevel {
		level = logger.Info
	}
	return database.NewDb(database.Config{
		Driver:   dbDriver,
		DSN:      dsn,
		MaxConns: dbMaxConns,
		LogLevel: level,
	})
}

func newAccounts(repo *database.Repository, l *log.Entry) *accounts.Service {
	if recaptchaSecret == "" {
		l.Warn("RECAPTCHA_SECRET_KEY is not set, bot protection is disabled")
		return accounts.NewService(repo, nil, l)
	}
	return accounts.NewService(repo, recaptcha.New(recaptcha.DefaultVerifyURL, recaptchaSecret, recaptchaMinScore, recaptchaTimeout, l), l)
}

func main() {
	root := &cobra.Command{
		Use:           "warehouse-service",
		Short:         "Warehouse asset tracking API",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(cmd.Context())
		},
	}
	root.PersistentFlags().StringVar(&port, "port", port, "API port")
	root.PersistentFlags().StringVar(&metricsPort, "metrics-port", metricsPort, "Prometheus port, empty disables it")
	root.PersistentFlags().StringVar(&dbDriver, "db-driver", dbDriver, "Database driver: sqlite or postgres")
	root.PersistentFlags().StringVar(&dbFile, "db-file", dbFile, "SQLite database file")
	root.PersistentFlags().StringVar(&dbDSN, "db-dsn", dbDSN, "Database DSN, overrides --db-file")
	root.PersistentFlags().StringVar(&redisURL, "redis-url", redisURL, "Redis URL for sessions, in-memory when empty")
	root.AddCommand(newCreateUserCmd(), newSetActiveCmd(), newVersionCmd())

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}

func serve(ctx context.Context) error {
	l := newLogger().WithFields(log.Fields{
		"rest_port":    port,
		"metrics_port": metricsPort,
		"db_driver":    dbDriver,
	})

	db, err := openDb()
	if err != nil {
		l.WithError(err).Error("failed to open database")
		return err
	}
	sessions, err := session.New(redisURL, sessionTTL)
	if err != nil {
		l.WithError(err).Error("failed to set up sessions")
		return err
	}
	repo := database.NewRepository(db)
	rs, err := routing.NewService(repo, l)
	if err != nil {
		return err
	}

	api := &http.Server{
		Addr: ":" + port,
		Handler: handler.NewHandler(handler.Services{
			Accounts: newAccounts(repo, l),
			Files:    files.NewService(repo, sessions, l),
			Routing:  rs,
			DB:       repo,
			Sessions: sessions,
		}, l),
		ReadHeaderTimeout: 10 * time.Second,
	}
	servers := []*http.Server{api}
	if metricsPort != "" {
		metricsMux := http.NewServeMux()
		metricsMux.Handle("GET /metrics", promhttp.Handler())
		servers = append(servers, &http.Server{Addr: ":" + metricsPort, Handler: metricsMux, ReadHeaderTimeout: 10 * time.Second})
	}

	eg, ctx := errgroup.WithContext(ctx)
	for _, srv := range servers {
		eg.Go(func() error {
			l.Printf("listening to %s", srv.Addr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("listen on %s: %w", srv.Addr, err)
			}
			return nil
		})
	}
	eg.Go(func() error {
		<-ctx.Done()
		l.Println("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		var errs []error
		for _, srv := range servers {
			errs = append(errs, srv.Shutdown(shutdownCtx))
		}
		return errors.Join(errs...)
	})

	if err := eg.Wait(); err != nil {
		l.WithError(err).Error("server stopped with an error")
		return err
	}
	return nil
}

func newCreateUserCmd() *cobra.Command {
	var staff bool
	cmd := &cobra.Command{
		Use:   "create-user <username> <password>",
		Short: "Create a user, --staff for a superuser that sees everything",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			l := newLogger()
			db, err := openDb()
			if err != nil {
				return err
			}
			s := accounts.NewService(database.NewRepository(db), nil, l)
			u, err := s.CreateUser(cmd.Context(), args[0], args[1], staff)
			if err != nil {
				return err
			}
			l.WithFields(log.Fields{"user": u.Username, "staff": u.IsStaff}).Info("user created")
			return nil
		},
	}
	cmd.Flags().BoolVar(&staff, "staff", false, "Grant staff rights")
	return cmd
}

func newSetActiveCmd() *cobra.Command {
	var inactive bool
	cmd := &cobra.Command{
		Use:   "set-active <username>",
		Short: "Activate a user, or deactivate it with --inactive",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			l := newLogger()
			db, err := openDb()
			if err != nil {
				return err
			}
			s := accounts.NewService(database.NewRepository(db), nil, l)
			if err := s.SetActive(cmd.Context(), args[0], !inactive); err != nil {
				return err
			}
			l.WithFields(log.Fields{"user": args[0], "active": !inactive}).Info("user updated")
			return nil
		},
	}
	cmd.Flags().BoolVar(&inactive, "inactive", false, "Deactivate instead")
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version)
		},
	}
}
