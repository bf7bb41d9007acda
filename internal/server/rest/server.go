// Package rest exposes the account and contact services over HTTP.
package rest

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"time"

	logrusmw "github.com/chi-middleware/logrus-logger"
	"github.com/dmitrijs2005/contactbook/internal/logging"
	"github.com/dmitrijs2005/contactbook/internal/server/models"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/sirupsen/logrus"
)

// Users is the account API the handlers depend on.
type Users interface {
	Register(ctx context.Context, email, username, password string) (*models.User, error)
	Login(ctx context.Context, email, password string) (*models.TokenPair, error)
	RefreshToken(ctx context.Context, refreshToken string) (*models.TokenPair, error)
	Logout(ctx context.Context, refreshToken string) error
	ResolveCurrentUser(ctx context.Context, token string) (*models.User, error)
	CompleteVerification(ctx context.Context, token string) (*models.User, error)
	UploadAvatar(ctx context.Context, user *models.User, contentType string, body io.Reader) (*models.User, error)
}

// Contacts is the owner-scoped contact API the handlers depend on.
type Contacts interface {
	Create(ctx context.Context, userID string, in *models.ContactInput) (*models.Contact, error)
	List(ctx context.Context, userID string, skip, limit int) ([]*models.Contact, error)
	Get(ctx context.Context, userID, id string) (*models.Contact, error)
	Update(ctx context.Context, userID, id string, in *models.ContactInput) (*models.Contact, error)
	Delete(ctx context.Context, userID, id string) (*models.Contact, error)
	Search(ctx context.Context, userID, name, email string) ([]*models.Contact, error)
	UpcomingBirthdays(ctx context.Context, userID string, days int) ([]*models.Contact, error)
}

// HealthChecker reports whether the backing store is reachable.
type HealthChecker interface {
	Check(ctx context.Context) error
}

// Options tunes CORS, rate limiting and upload limits.
type Options struct {
	CORSAllowedOrigins []string
	RateLimitRequests  int
	RateLimitWindow    time.Duration
	MaxAvatarSize      int64
	BirthdayWindowDays int
}

// HTTPServer serves the REST API.
type HTTPServer struct {
	address   string
	users     Users
	contacts  Contacts
	health    HealthChecker
	opts      Options
	logger    logging.Logger
	accessLog logrus.FieldLogger
}

// NewHTTPServer creates a server listening on a. accessLog may be nil.
func NewHTTPServer(a string, l logging.Logger, accessLog logrus.FieldLogger, us Users, cs Contacts, hc HealthChecker, opts Options) *HTTPServer {
	if opts.BirthdayWindowDays <= 0 {
		opts.BirthdayWindowDays = 7
	}
	return &HTTPServer{
		address:   a,
		users:     us,
		contacts:  cs,
		health:    hc,
		opts:      opts,
		logger:    l.With("module", "http_server"),
		accessLog: accessLog,
	}
}

// Router builds the chi route tree. Trailing slashes are stripped, so
// "/contacts/" and "/contacts" are the same route.
func (s *HTTPServer) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	if s.accessLog != nil {
		r.Use(logrusmw.Logger("router", s.accessLog))
	}
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.opts.CORSAllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	r.Use(middleware.StripSlashes)

	r.Get("/", s.handleRoot)
	r.Get("/healthcheck", s.handleHealth)

	r.Route("/auth", func(r chi.Router) {
		r.Post("/register", s.handleRegister)
		r.Post("/token", s.handleToken)
		r.Post("/refresh", s.handleRefresh)
		r.Post("/logout", s.handleLogout)
		r.Get("/verify/{token}", s.handleVerify)

		r.Group(func(r chi.Router) {
			r.Use(s.authenticate)
			r.Get("/me", s.handleMe)
			r.Post("/upload-avatar", s.handleUploadAvatar)
		})
	})

	r.Route("/contacts", func(r chi.Router) {
		r.Use(s.authenticate)

		r.With(s.rateLimitPerUser()).Post("/", s.handleCreateContact)
		r.Get("/", s.handleListContacts)
		r.Get("/search", s.handleSearchContacts)
		r.Get("/birthdays", s.handleBirthdays)
		r.Get("/{id}", s.handleGetContact)
		r.Put("/{id}", s.handleUpdateContact)
		r.Delete("/{id}", s.handleDeleteContact)
	})

	return r
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *HTTPServer) Run(ctx context.Context) error {
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping HTTP server...")

		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.logger.Error(ctx, "HTTP shutdown", "error", err)
		}
	}()

	s.logger.Info(ctx, "Starting HTTP server", "address", s.address)

	if err := srv.Serve(listen); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	return nil
}
