package main

import (
	"apparel-studio/config"
	"apparel-studio/editor"
	"apparel-studio/export"
	"apparel-studio/garment"
	"apparel-studio/handlers/api/artifacts"
	"apparel-studio/handlers/api/drafts"
	"apparel-studio/handlers/api/palette"
	"apparel-studio/handlers/api/sessions"
	"apparel-studio/handlers/auth"
	"apparel-studio/handlers/websocket"
	authMiddleware "apparel-studio/middleware"
	"apparel-studio/stores"
	"context"
	"flag"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	socketio "github.com/zishang520/socket.io/v2/socket"
)

type app struct {
	cfg      *config.Config
	store    stores.Store
	registry *editor.Registry
	pipeline *export.Pipeline
}

func setupRouter(a *app) *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.Logger)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://*", "http://*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "Content-Length", "X-CSRF-Token", "Origin", "X-Requested-With"},
		ExposedHeaders:   []string{"Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           300, // Maximum value not ignored by any of major browsers
	}))

	reg, p := a.registry, a.pipeline
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/palette", palette.HandleList(a.cfg.Canvas))
		r.Get("/artifacts/{id}", artifacts.HandleGet(a.store))

		r.Route("/sessions", func(r chi.Router) {
			r.Post("/", sessions.HandleCreate(reg))
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", sessions.HandleGet(reg))
				r.Delete("/", sessions.HandleDelete(reg))
				r.Put("/color", sessions.HandleSetColor(reg))
				r.Put("/view", sessions.HandleSetView(reg))
				r.Put("/grid", sessions.HandleSetGrid(reg))
				r.Post("/layers", sessions.HandleUpload(reg, a.cfg.MaxUploadBytes))
				r.Route("/layers/selected", func(r chi.Router) {
					r.Patch("/", sessions.HandlePatchSelected(reg))
					r.Post("/reset", sessions.HandleResetSelected(reg))
					r.Delete("/", sessions.HandleRemoveSelected(reg))
				})
				r.Post("/pointer", sessions.HandlePointer(reg))
				r.Get("/preview.png", sessions.HandlePreview(reg))
				r.Get("/download", sessions.HandleDownload(reg, p))
				r.Post("/export", sessions.HandleExport(reg, p, a.store))

				r.Group(func(r chi.Router) {
					r.Use(authMiddleware.AuthJWT)
					r.Post("/submit", sessions.HandleSubmit(reg, p))
				})
			})
		})

		// Drafts belong to the signed-in user.
		r.Group(func(r chi.Router) {
			r.Use(authMiddleware.AuthJWT)
			r.Route("/drafts", func(r chi.Router) {
				r.Get("/", drafts.HandleList(a.store))
				r.Route("/{key}", func(r chi.Router) {
					r.Get("/", drafts.HandleGet(a.store))
					r.Put("/", drafts.HandleSave(a.store, reg))
					r.Delete("/", drafts.HandleDelete(a.store))
					r.Post("/restore", drafts.HandleRestore(a.store, reg))
				})
			})
		})
	})

	return r
}

func waitForShutdown(srv *http.Server, ioo *socketio.Server, stopJanitor context.CancelFunc, closers ...io.Closer) {
	signalC := make(chan os.Signal, 1)
	signal.Notify(signalC, os.Interrupt, syscall.SIGHUP, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	s := <-signalC
	logrus.WithField("signal", s.String()).Info("Shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logrus.WithError(err).Warn("HTTP server did not shut down cleanly")
	}
	ioo.Close(nil)
	stopJanitor()
	for _, c := range closers {
		if err := c.Close(); err != nil {
			logrus.WithError(err).Warn("Failed to close resource")
		}
	}
}

func main() {
	// Load .env file
	if err := godotenv.Load(); err != nil {
		logrus.Info("No .env file found")
	}

	configPath := flag.String("config", os.Getenv("STUDIO_CONFIG"), "Path to a YAML config file.")
	listenAddress := flag.String("listen", "", "The address to listen on (overrides the config file).")
	logLevel := flag.String("loglevel", "", "The log level (debug, info, warn, error).")
	flag.Parse()

	logrus.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})

	cfg, err := config.Load(*configPath)
	if err != nil {
		logrus.Fatalf("Invalid configuration: %v", err)
	}
	if *listenAddress != "" {
		cfg.Listen = *listenAddress
	}
	if *logLevel != "" {
		cfg.LogLevel = *logLevel
	}

	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		logrus.Fatalf("Invalid log level: %v", err)
	}
	logrus.SetLevel(level)

	auth.InitAuth()
	store, err := stores.GetStore(context.Background(), cfg.Storage)
	if err != nil {
		logrus.Fatalf("Failed to open storage: %v", err)
	}

	renderer := garment.NewRenderer(cfg.RendererOptions())
	var submitter export.Submitter
	if cfg.Order.Endpoint != "" {
		submitter = export.NewHTTPSubmitter(cfg.Order.Endpoint)
	} else {
		logrus.Warn("ORDER_ENDPOINT not set, order submission is disabled")
	}

	a := &app{
		cfg:      cfg,
		store:    store,
		registry: editor.NewRegistry(cfg.SessionDefaults(), renderer),
		pipeline: export.New(renderer, cfg.ExportOptions(submitter)),
	}
	r := setupRouter(a)

	janitorCtx, stopJanitor := context.WithCancel(context.Background())
	go a.registry.Janitor(janitorCtx, cfg.SessionIdleTimeout, time.Minute)
	logrus.WithField("idle_timeout", cfg.SessionIdleTimeout.String()).Info("Session janitor started")

	ioo, _ := websocket.SetupSocketIO(a.registry)
	r.Mount("/socket.io/", ioo.ServeHandler(nil))

	srv := &http.Server{Addr: cfg.Listen, Handler: r}
	logrus.WithField("addr", cfg.Listen).Info("starting server")
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logrus.WithField("event", "start server").Fatal(err)
		}
	}()

	var closers []io.Closer
	if c, ok := store.(io.Closer); ok {
		closers = append(closers, c)
	}
	waitForShutdown(srv, ioo, stopJanitor, closers...)
}
