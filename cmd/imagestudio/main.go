package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/mhpenta/imagestudio"
	"github.com/mhpenta/imagestudio/internal/config"
	"github.com/mhpenta/imagestudio/internal/lib/sl"
	"github.com/mhpenta/imagestudio/internal/server"
	"github.com/mhpenta/imagestudio/presets"
	"github.com/mhpenta/imagestudio/provider/gemini"
	"github.com/mhpenta/imagestudio/ratelimiter"
	"github.com/mhpenta/imagestudio/store"
)

func main() {
	configPath := flag.String("conf", "", "path to an optional YAML config file")
	flag.Parse()

	conf := config.MustLoad(*configPath)
	log := setupLogger(conf.Env)
	slog.SetDefault(log)

	log.With(
		slog.String("config", *configPath),
		slog.String("env", conf.Env),
		slog.String("model", conf.Gemini.Model),
		sl.Secret(conf.Gemini.APIKey),
	).Info("starting image studio")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, conf, log); err != nil {
		log.Error("image studio stopped with error", sl.Err(err))
		os.Exit(1)
	}
	log.Info("shutdown complete")
}

func run(ctx context.Context, conf *config.Config, log *slog.Logger) error {
	gen, err := gemini.New(ctx, &gemini.Config{
		APIKey:          conf.Gemini.APIKey,
		Model:           imagestudio.Model(conf.Gemini.Model),
		SafetyThreshold: conf.Gemini.SafetyThreshold,
	})
	if err != nil {
		return err
	}

	artifacts := store.NewArtifactStore(store.ArtifactOptions{
		MaxImages: conf.Store.MaxImages,
		MaxAge:    conf.Store.MaxImageAge,
		Logger:    log.With(sl.Module("artifacts")),
	})
	ledger := store.NewSessionLedger(store.LedgerOptions{
		MaxSessions: conf.Store.MaxSessions,
		MaxAge:      conf.Store.MaxSessionAge,
		Logger:      log.With(sl.Module("ledger")),
	})

	manager := imagestudio.NewManager(gen,
		imagestudio.WithLogger(log.With(sl.Module("manager"))),
		imagestudio.WithLimiter(ratelimiter.New(conf.MinRequestInterval)),
		imagestudio.WithArtifactStore(artifacts),
		imagestudio.WithSessionLedger(ledger),
		imagestudio.WithRequestTimeout(conf.Gemini.GenerateTimeout),
	)
	defer manager.Close()

	presetStore := openPresets(ctx, conf, log)
	defer func() {
		if err := presetStore.Close(context.Background()); err != nil {
			log.Error("closing presets store", sl.Err(err))
		}
	}()

	srv := server.New(manager, presetStore, server.Options{
		Addr:             conf.HTTPAddr,
		FieldLibraryPath: conf.FieldLibraryPath,
		Logger:           log,
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return srv.Run(gctx)
	})
	g.Go(func() error {
		return artifacts.RunCleanup(gctx, conf.Store.CleanupInterval)
	})
	g.Go(func() error {
		return ledger.RunCleanup(gctx, conf.Store.CleanupInterval)
	})

	return g.Wait()
}

// openPresets prefers MongoDB when enabled and falls back to the JSON file.
func openPresets(ctx context.Context, conf *config.Config, log *slog.Logger) presets.Store {
	fileStore := func() presets.Store {
		return presets.NewFileStore(conf.PresetsDBPath, presets.WithLogger(log.With(sl.Module("presets"))))
	}

	if !conf.Mongo.Enabled {
		log.Info("using file presets storage", slog.String("path", conf.PresetsDBPath))
		return fileStore()
	}

	mongoStore, err := presets.NewMongoStore(ctx, conf.Mongo.URI, conf.Mongo.Database, log.With(sl.Module("presets")))
	if err != nil {
		log.With(
			slog.String("db", conf.Mongo.Database),
		).Error("falling back to file presets storage", sl.Err(err))
		return fileStore()
	}

	log.Info("using MongoDB presets storage", slog.String("db", conf.Mongo.Database))
	return mongoStore
}

func setupLogger(env string) *slog.Logger {
	var log *slog.Logger

	switch env {
	case config.EnvLocal, config.EnvDev:
		log = slog.New(
			slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}),
		)
	case config.EnvProd:
		log = slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}),
		)
	default:
		log = slog.New(
			slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}),
		)
	}

	return log
}
