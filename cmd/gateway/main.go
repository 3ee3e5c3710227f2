package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/sirupsen/logrus"

	"github.com/mind-engage/mindengage-learn/internal/access"
	api "github.com/mind-engage/mindengage-learn/internal/api/http"
	googleauth "github.com/mind-engage/mindengage-learn/internal/auth"
	auth "github.com/mind-engage/mindengage-learn/internal/auth/middleware"
	"github.com/mind-engage/mindengage-learn/internal/chat"
	"github.com/mind-engage/mindengage-learn/internal/config"
	"github.com/mind-engage/mindengage-learn/internal/course"
	"github.com/mind-engage/mindengage-learn/internal/db"
	"github.com/mind-engage/mindengage-learn/internal/logging"
	"github.com/mind-engage/mindengage-learn/internal/notify"
	"github.com/mind-engage/mindengage-learn/internal/quiz"
	"github.com/mind-engage/mindengage-learn/internal/storage"
)

func main() {
	cfg := config.FromEnv()
	log := logging.New(cfg.LogLevel, cfg.LogFormat)

	// --- DB ---
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	driver, err := db.ParseDriver(cfg.DBDriver)
	if err != nil {
		log.Fatalf("db driver: %v", err)
	}
	dbh, err := db.Open(ctx, driver, cfg.DBDSN)
	if err != nil {
		log.Fatalf("db open failed: %v", err)
	}
	defer dbh.Close()

	// --- Auth ---
	if cfg.Mode == config.ModeOnline && cfg.AuthHMACSecret == config.DevHMACSecret {
		log.Fatal("AUTH_HMAC_SECRET must be set in online mode")
	}
	authSvc := auth.NewAuthService(cfg.AuthHMACSecret, cfg.TokenTTL)
	users := auth.NewUserStore(dbh)
	if created, err := users.EnsureAdmin(ctx, cfg.AdminEmail, cfg.AdminPassHash); err != nil {
		log.Fatalf("bootstrap admin: %v", err)
	} else if created {
		log.WithField("email", cfg.AdminEmail).Info("bootstrap admin created")
	}

	var google *googleauth.GoogleLogin
	if cfg.GoogleClientID != "" {
		google = googleauth.NewGoogleLogin(googleauth.GoogleConfig{
			ClientID:      cfg.GoogleClientID,
			ClientSecret:  cfg.GoogleClientSecret,
			RedirectURL:   cfg.GoogleRedirectURI,
			AllowedDomain: cfg.GoogleAllowedHD,
			PublicURL:     cfg.PublicURL,
		}, authSvc, users, log)
		log.WithField("redirect_uri", cfg.GoogleRedirectURI).Info("google sign-in enabled")
	}

	bs, err := storage.NewFSStore(cfg.BlobBasePath, cfg.PublicURL)
	if err != nil {
		log.Fatalf("blob store: %v", err)
	}

	// --- Services ---
	gate := access.NewGate(access.NewSQLStore(dbh))
	subjects := course.NewSQLStore(dbh)
	notes := notify.NewRepo(dbh)
	quizzes := quiz.NewService(quiz.NewSQLStore(dbh), subjects, gate, bs,
		quiz.WithNotifier(notes),
		quiz.WithMaxImageBytes(cfg.MaxImageBytes),
		quiz.WithLogger(log),
	)
	llm := chat.NewGeminiClient(cfg.LLMAPIKey, cfg.LLMBaseURL, cfg.LLMModel)
	if !llm.IsAvailable() {
		log.Warn("LLM_API_KEY not set; chat answers will fail")
	}
	chats := chat.NewService(chat.NewSQLStore(dbh), subjects, gate, llm, chat.WithLogger(log))

	// --- Router ---
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, logging.Requests(log), middleware.Recoverer)
	r.Use(middleware.Timeout(cfg.RequestTimeout))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	api.Mount(r, api.Deps{
		Auth:            authSvc,
		Users:           users,
		Courses:         course.NewService(subjects, gate, log),
		Quizzes:         quizzes,
		Access:          gate,
		Chat:            chats,
		Notes:           notes,
		Blobs:           bs,
		DB:              dbh,
		Log:             log,
		Google:          google,
		EnableLocalAuth: cfg.EnableLocalAuth,
		MaxImageBytes:   cfg.MaxImageBytes,
		// base64 inflates by 4/3; leave room for several images per submission
		MaxBodyBytes: 8 * cfg.MaxImageBytes,
	})

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}

	stop, done := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer done()
	go func() {
		<-stop.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.WithError(err).Warn("graceful shutdown failed")
		}
	}()

	log.WithFields(logrus.Fields{"addr": cfg.HTTPAddr, "mode": cfg.Mode, "db": driver}).Info("listening")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatalf("server: %v", err)
	}
	log.Info("server stopped")
}
