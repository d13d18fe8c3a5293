package handlers

import (
	"net/http"
	"time"

	"calltrack.pro/license/internal/adminauth"
	"calltrack.pro/license/internal/email"
	"calltrack.pro/license/internal/licensekey"
	"calltrack.pro/license/internal/logger"
	"calltrack.pro/license/internal/middleware"
	"calltrack.pro/license/storage"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
)

const defaultStoreTimeout = 5 * time.Second

type Options struct {
	AdminSecret         string
	StoreTimeout        time.Duration
	StripeWebhookSecret string
	Mailer              email.Mailer
	CORSAllowedOrigins  []string
	Version             string
	Logger              *logger.Logger
}

type Server struct {
	Mux     *chi.Mux
	Storage storage.Storage

	gate                *adminauth.Gate
	storeTimeout        time.Duration
	stripeWebhookSecret string
	mailer              email.Mailer
	version             string
	log                 *logger.Logger
	generateKey         func() (string, error)
}

func NewHttpServer(db storage.Storage, opts Options) *Server {
	if opts.StoreTimeout <= 0 {
		opts.StoreTimeout = defaultStoreTimeout
	}
	if opts.Logger == nil {
		opts.Logger = logger.Default()
	}

	s := &Server{
		Mux:                 chi.NewRouter(),
		Storage:             db,
		gate:                adminauth.NewGate(opts.AdminSecret),
		storeTimeout:        opts.StoreTimeout,
		stripeWebhookSecret: opts.StripeWebhookSecret,
		mailer:              opts.Mailer,
		version:             opts.Version,
		log:                 opts.Logger,
		generateKey:         licensekey.Generate,
	}

	s.Mux.Use(chimiddleware.RealIP)
	s.Mux.Use(middleware.RequestID)
	s.Mux.Use(middleware.Logger(s.log))
	s.Mux.Use(middleware.Recoverer(s.log))
	s.Mux.Use(middleware.CORS(opts.CORSAllowedOrigins))

	s.Mux.MethodNotAllowed(writeMethodNotAllowed)
	s.Mux.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeErrorResponse(w, http.StatusNotFound, CodeNotFound, "")
	})

	s.Mux.Get("/health", s.Health)
	s.Mux.Get("/readyz", s.Ready)

	// Method checks live in the handlers so every verb reaches them and gets
	// the JSON 405 body.
	s.Mux.HandleFunc("/api/admin/issue-license", s.IssueLicense)
	s.Mux.HandleFunc("/api/verify-license", s.VerifyLicense)
	s.Mux.HandleFunc("/api/webhooks/stripe", s.StripeWebhook)

	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.Mux.ServeHTTP(w, r)
}
