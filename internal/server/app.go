// Package server wires configuration, storage, services and transports into
// a runnable application and handles graceful shutdown.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/dmitrijs2005/contactbook/internal/dbx"
	"github.com/dmitrijs2005/contactbook/internal/logging"
	"github.com/dmitrijs2005/contactbook/internal/server/avatars"
	"github.com/dmitrijs2005/contactbook/internal/server/config"
	"github.com/dmitrijs2005/contactbook/internal/server/mailer"
	"github.com/dmitrijs2005/contactbook/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/contactbook/internal/server/rest"
	"github.com/dmitrijs2005/contactbook/internal/server/services"
	"github.com/sirupsen/logrus"

	gs "github.com/dmitrijs2005/contactbook/internal/server/grpc"
)

const (
	dbConnectTimeout   = 10 * time.Second
	healthCheckTimeout = 5 * time.Second
)

type App struct {
	config         *config.Config
	output         *logging.Output
	logger         logging.Logger
	accessLog      *logrus.Logger
	db             *sql.DB
	userService    *services.UserService
	contactService *services.ContactService
	healthService  *services.HealthService
}

func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	output, err := logging.NewOutput(c.LogFile)
	if err != nil {
		return nil, fmt.Errorf("log output: %w", err)
	}
	slogger := logging.NewJSONLogger(output, c.LogLevel)

	db, err := dbx.Open(ctx, c.DatabaseDSN, dbConnectTimeout)
	if err != nil {
		_ = output.Close()
		return nil, fmt.Errorf("db init error: %w", err)
	}

	rm := repomanager.NewPostgresRepositoryManager(slogger)
	if err := rm.RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		_ = output.Close()
		return nil, fmt.Errorf("migrations: %w", err)
	}

	m, err := mailer.New(mailer.Options{
		Host:        c.SMTPHost,
		Port:        c.SMTPPort,
		User:        c.SMTPUser,
		Password:    c.SMTPPassword,
		From:        c.EmailFrom,
		FrontendURL: c.FrontendURL,
	}, slogger)
	if err != nil {
		_ = db.Close()
		_ = output.Close()
		return nil, fmt.Errorf("mailer: %w", err)
	}

	store := avatars.NewS3Store(avatars.Options{
		Region:       c.S3Region,
		RootUser:     c.S3RootUser,
		RootPassword: c.S3RootPassword,
		BaseEndpoint: c.S3BaseEndpoint,
		Bucket:       c.S3Bucket,
		PublicURL:    c.AvatarPublicURL(),
	})

	us, err := services.NewUserService(db, rm, c, m, store, slogger)
	if err != nil {
		_ = db.Close()
		_ = output.Close()
		return nil, fmt.Errorf("user service: %w", err)
	}

	return &App{
		config:         c,
		output:         output,
		logger:         slogger,
		accessLog:      logging.NewAccessLogger(output),
		db:             db,
		userService:    us,
		contactService: services.NewContactService(db, rm, slogger),
		healthService:  services.NewHealthService(db, healthCheckTimeout),
	}, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) startHTTPServer(ctx context.Context, cancelFunc context.CancelFunc) {
	s := rest.NewHTTPServer(app.config.EndpointAddrHTTP, app.logger, app.accessLog,
		app.userService, app.contactService, app.healthService, rest.Options{
			CORSAllowedOrigins: app.config.CORSAllowedOrigins,
			RateLimitRequests:  app.config.RateLimitRequests,
			RateLimitWindow:    app.config.RateLimitWindow,
			MaxAvatarSize:      app.config.MaxAvatarSize,
			BirthdayWindowDays: services.BirthdayWindowDays,
		})

	if err := s.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

func (app *App) startGRPCServer(ctx context.Context, cancelFunc context.CancelFunc) {
	s := gs.NewGRPCServer(app.config.EndpointAddrGRPC, app.logger, app.healthService, app.config.HealthProbeInterval)

	if err := s.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

// Run serves HTTP and gRPC until ctx is cancelled or a signal arrives, then
// waits for in-flight verification emails and releases resources.
func (app *App) Run(ctx context.Context) {

	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	wg.Add(2)
	go func() {
		defer wg.Done()
		app.startHTTPServer(ctx, cancelFunc)
	}()
	go func() {
		defer wg.Done()
		app.startGRPCServer(ctx, cancelFunc)
	}()

	wg.Wait()

	app.userService.WaitMail()

	if err := app.db.Close(); err != nil {
		app.logger.Error(ctx, "db close", "error", err)
	}

	app.logger.Info(ctx, "App stopped")
	_ = app.output.Close()
}
