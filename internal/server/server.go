// Package server is the composition root: it wires the repositories,
// services, and handlers together, mounts the routes, and runs the HTTP
// server with graceful shutdown.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/redis/go-redis/v9"

	"github.com/game1pro/accounts/internal/auth"
	"github.com/game1pro/accounts/internal/blob"
	"github.com/game1pro/accounts/internal/config"
	"github.com/game1pro/accounts/internal/handler"
	"github.com/game1pro/accounts/internal/middleware"
	"github.com/game1pro/accounts/internal/notify"
	"github.com/game1pro/accounts/internal/otp"
	sqliteRepo "github.com/game1pro/accounts/internal/repository/sqlite"
	"github.com/game1pro/accounts/internal/service"
	"github.com/game1pro/accounts/internal/smsgateway"
)

// Server owns the router and the connections that must be closed on
// shutdown.
type Server struct {
	router *chi.Mux
	cfg    config.Config
	logger *slog.Logger
	db     *sqliteRepo.DB
	redis  *redis.Client
}

// New assembles the full dependency chain from configuration.
func New(cfg config.Config, logger *slog.Logger) (*Server, error) {
	db, err := sqliteRepo.New(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("parsing redis url: %w", err)
	}
	redisClient := redis.NewClient(redisOpts)

	s := &Server{
		router: chi.NewRouter(),
		cfg:    cfg,
		logger: logger,
		db:     db,
		redis:  redisClient,
	}

	if err := s.setupRoutes(); err != nil {
		s.closeResources()
		return nil, fmt.Errorf("setting up routes: %w", err)
	}

	return s, nil
}

func (s *Server) setupRoutes() error {
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(chimiddleware.Recoverer)
	s.router.Use(middleware.Logger(s.logger))

	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.cfg.Origins(),
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	tokens, err := auth.NewTokenService(s.cfg.JWTSecret, s.cfg.SessionTTL())
	if err != nil {
		return fmt.Errorf("creating token service: %w", err)
	}
	passwords := auth.NewPasswordService()
	google := auth.NewGoogleProvider(
		s.cfg.GoogleClientID,
		s.cfg.GoogleClientSecret,
		s.cfg.GoogleCallbackURL,
	)

	mailer := notify.NewSMTPMailer(s.cfg.SMTPHost, s.cfg.SMTPPort, s.cfg.SMTPFrom, s.cfg.SMTPPassword)
	gateway := smsgateway.NewClient(s.cfg.OtpGatewayURL, s.cfg.OtpGatewayKey)
	pending := otp.NewRedisStore(s.redis)

	uploader, err := blob.NewS3Uploader(context.Background(), blob.Config{
		Region:        s.cfg.S3Region,
		Bucket:        s.cfg.S3Bucket,
		BaseEndpoint:  s.cfg.S3Endpoint,
		AccessKey:     s.cfg.S3AccessKey,
		SecretKey:     s.cfg.S3SecretKey,
		PublicBaseURL: s.cfg.S3PublicBaseURL,
	})
	if err != nil {
		return fmt.Errorf("creating blob uploader: %w", err)
	}

	accounts := service.NewAccountService(s.db, passwords, tokens, mailer, uploader, s.logger)
	recovery := service.NewRecoveryService(s.db, passwords, mailer, gateway, s.cfg.ResetURLBase, s.logger)
	federated := service.NewFederatedService(s.db, tokens, google, mailer, s.logger)
	otps := service.NewOtpService(s.db, pending, gateway, passwords, tokens, s.logger)

	cookies := handler.CookieConfig{
		Secure:   s.cfg.CookieSecure,
		SameSite: s.cfg.SameSite(),
		TTL:      tokens.TTL(),
	}

	accountHandler := handler.NewAccountHandler(accounts, cookies, s.logger)
	recoveryHandler := handler.NewRecoveryHandler(recovery, s.logger)
	federatedHandler := handler.NewFederatedHandler(federated, cookies, s.logger)
	otpHandler := handler.NewOtpHandler(otps, cookies, s.logger)

	s.router.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	s.router.Route("/api/v1", func(r chi.Router) {
		r.Post("/regis", accountHandler.HandleRegister)
		r.Post("/loginUser", accountHandler.HandleLogin)
		r.Post("/logout", accountHandler.HandleLogout)

		r.Post("/send-otp", otpHandler.HandleSendOtp)
		r.Post("/verify-otp", otpHandler.HandleVerifyOtp)

		r.Post("/forgotpassword", recoveryHandler.HandleForgotPassword)
		r.Post("/verify-reset-otp", recoveryHandler.HandleVerifyResetOtp)
		r.Post("/resetpassword/{token}", recoveryHandler.HandleResetPassword)

		r.Group(func(r chi.Router) {
			r.Use(auth.RequireAuth(tokens))
			r.Get("/profile", accountHandler.HandleProfile)
			r.Put("/updateProfile", accountHandler.HandleUpdateProfile)
		})
	})

	s.router.Route("/auth/google", func(r chi.Router) {
		r.Get("/login", federatedHandler.HandleGoogleLogin)
		r.Get("/callback", federatedHandler.HandleGoogleCallback)
	})

	return nil
}

// Start runs the server until SIGINT/SIGTERM, then shuts down gracefully:
// stop accepting connections, drain in-flight requests, close the database
// and Redis connections.
func (s *Server) Start() error {
	defer s.closeResources()

	srv := &http.Server{
		Addr:         ":" + s.cfg.ServerPort,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	serverErrors := make(chan error, 1)

	go func() {
		s.logger.Info("server starting",
			slog.String("port", s.cfg.ServerPort),
			slog.String("database", s.cfg.DBPath),
		)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}

	case sig := <-quit:
		s.logger.Info("shutdown signal received", slog.String("signal", sig.String()))

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
	}

	return nil
}

func (s *Server) closeResources() {
	if err := s.redis.Close(); err != nil {
		s.logger.Warn("closing redis client", slog.String("error", err.Error()))
	}
	if err := s.db.Close(); err != nil {
		s.logger.Warn("closing database", slog.String("error", err.Error()))
	}
}
