package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"image-sequence/internal/codec"
	"image-sequence/internal/manifest"
	"image-sequence/internal/platform/config"
	"image-sequence/internal/platform/logger"
	"image-sequence/internal/platform/metrics"
	"image-sequence/internal/platform/mqttsink"
	"image-sequence/internal/render"
	"image-sequence/internal/resource"
	"image-sequence/internal/sequence"
)

const shutdownTimeout = 10 * time.Second

func main() {
	_ = config.Load()

	cfg, err := config.Parse()
	if err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(2)
	}

	log := logger.New(os.Stdout, cfg.LogLevel, cfg.LogFormat)
	defaults := sequence.PlaybackConfig{FramesPerSecond: cfg.DefaultFPS, Loop: cfg.DefaultLoop}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	met := metrics.New()
	sinks := sequence.MultiSink{sequence.LogSink{Log: log}}
	if cfg.MQTT.URL != "" {
		client := mqtt.NewClient(mqttsink.Options(cfg.MQTT.URL, cfg.MQTT.ClientID, cfg.MQTT.Username, cfg.MQTT.Password,
			func(mqtt.Client) { log.Info("mqtt connected", "url", cfg.MQTT.URL) }))
		if token := client.Connect(); token.Wait() && token.Error() != nil {
			log.Error("mqtt connect failed", "url", cfg.MQTT.URL, "error", token.Error())
			os.Exit(1)
		}
		defer client.Disconnect(250)
		sinks = append(sinks, mqttsink.New(client, cfg.MQTT.Topic, log))
	}

	pool := sequence.NewPool(cfg.FetchWorkers, cfg.FetchQueue)
	pool.OnInFlight(met.SetFetchesInFlight)
	fetcher := sequence.NewSourceFetcher(
		&http.Client{Timeout: cfg.HTTPTimeout},
		resource.NewLocator(os.DirFS(cfg.ResourceDir)),
		codec.Codec{},
		cfg.FetchMaxBytes,
	)
	surface := render.NewSurface(nil)
	loader := sequence.NewLoader(sequence.LoaderConfig{
		Fetcher:     fetcher,
		Pool:        pool,
		Sink:        sinks,
		Surface:     surface,
		Log:         log,
		Metrics:     met,
		LoadTimeout: cfg.LoadTimeout,
	})
	go func() {
		if err := loader.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Error("loader stopped", "error", err)
		}
	}()

	if cfg.ManifestPath != "" {
		startManifest(ctx, cfg.ManifestPath, defaults, loader, log)
	}

	h := sequence.NewHandler(loader, surface, log, defaults)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(logger.RequestLogger(log))
	r.Use(metrics.RequestMiddleware(met))
	r.Method(http.MethodGet, "/metrics", met.Handler())
	r.Route("/sequence", func(r chi.Router) {
		r.Post("/", h.Load)
		r.Get("/", h.Status)
		r.Put("/config", h.Reconfigure)
		r.Post("/stop", h.Stop)
		r.Get("/frame.png", h.Frame)
	})

	addr := ":" + cfg.Port
	srv := &http.Server{Addr: addr, Handler: r}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	log.Info("server starting",
		"port", cfg.Port,
		"fetch_workers", cfg.FetchWorkers,
		"fetch_queue", cfg.FetchQueue,
		"load_timeout", cfg.LoadTimeout,
		"log_level", cfg.LogLevel,
	)

	<-ctx.Done()

	log.Info("shutdown signal received, draining connections")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown error", "error", err)
		os.Exit(1)
	}

	log.Info("server stopped")
}

// startManifest loads the manifest at path and reloads it whenever it changes.
func startManifest(ctx context.Context, path string, defaults sequence.PlaybackConfig, loader *sequence.Loader, log *slog.Logger) {
	load := func(m manifest.Manifest) {
		g, err := loader.Load(ctx, m.Images, m.Config(defaults))
		if err != nil {
			log.Error("manifest load failed", "path", path, "error", err)
			return
		}
		log.Info("manifest loaded", "path", path, "generation", g, "frames", len(m.Images))
	}
	m, err := manifest.Read(path)
	if err != nil {
		log.Error("read manifest", "error", err)
	} else {
		load(m)
	}
	go func() {
		err := manifest.Watch(ctx, path, -1, log, load)
		if err != nil && !errors.Is(err, context.Canceled) {
			log.Error("manifest watch stopped", "path", path, "error", err)
		}
	}()
}
