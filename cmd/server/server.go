package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/ardanlabs/conf/v3"
	"github.com/dunetube/dunetube/api"
	"github.com/dunetube/dunetube/blob"
	"github.com/dunetube/dunetube/cache"
	"github.com/dunetube/dunetube/config"
	"github.com/dunetube/dunetube/core/auth"
	"github.com/dunetube/dunetube/core/catalog"
	"github.com/dunetube/dunetube/core/course"
	"github.com/dunetube/dunetube/core/health"
	"github.com/dunetube/dunetube/core/preview"
	"github.com/dunetube/dunetube/database"
	"github.com/dunetube/dunetube/device"
	"github.com/dunetube/dunetube/rate"
	"github.com/dunetube/dunetube/remote"
	"github.com/dunetube/dunetube/storage"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

func main() {
	log := logrus.New()
	log.SetOutput(os.Stdout)

	if err := Run(log); err != nil {
		log.Error(err)
		os.Exit(1)
	}
}

func Run(logger *logrus.Logger) error {
	logger.Infof("starting server")
	defer logger.Info("shutdown complete")

	const prefix = "DUNETUBE"
	var cfg config.Config
	help, err := conf.Parse(prefix, &cfg)
	if err != nil {
		if errors.Is(err, conf.ErrHelpWanted) {
			fmt.Println(help)
			return nil
		}
		return fmt.Errorf("parsing config: %w", err)
	}

	lw := logger.Writer()
	defer lw.Close()
	errLog := log.New(lw, "", 0)

	ctx := context.Background()
	checks := make(map[string]health.Check)

	var rdb *redis.Client
	if cfg.Storage.Driver == "redis" || cfg.Redis.Cache {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer rdb.Close()

		if err := rdb.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("failed to reach redis: %w", err)
		}
		checks["redis"] = func(ctx context.Context) error { return rdb.Ping(ctx).Err() }
	}

	var kv storage.Storage
	switch cfg.Storage.Driver {
	case "memory":
		kv = storage.NewMemory()
	case "redis":
		kv = storage.NewRedis(rdb, cfg.Storage.Prefix)
	case "postgres":
		db, err := database.Open(cfg.DB)
		if err != nil {
			return fmt.Errorf("failed to open db connection: %w", err)
		}
		defer db.Close()

		if err := database.StatusCheck(ctx, db); err != nil {
			return fmt.Errorf("failed to reach db: %w", err)
		}
		if err := database.Migrate(db); err != nil {
			return fmt.Errorf("failed to migrate db: %w", err)
		}
		kv = storage.NewPostgres(db)
		checks["postgres"] = func(ctx context.Context) error { return db.PingContext(ctx) }
	default:
		return fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
	}

	var blobs blob.Store
	switch cfg.Blob.Driver {
	case "disk":
		d, err := blob.NewDisk(cfg.Blob.Dir)
		if err != nil {
			return fmt.Errorf("failed to prepare blob dir: %w", err)
		}
		blobs = d
	case "gcs":
		g, err := blob.NewGCS(ctx, cfg.Blob.Bucket, cfg.Blob.CredentialsFile)
		if err != nil {
			return fmt.Errorf("failed to build the gcs client: %w", err)
		}
		defer g.Close()
		blobs = g
	default:
		return fmt.Errorf("unknown blob driver %q", cfg.Blob.Driver)
	}

	tokens, err := auth.ParseTokens(cfg.Auth.Tokens)
	if err != nil {
		return fmt.Errorf("parsing studio tokens: %w", err)
	}

	signer, err := preview.NewSigner(cfg.Preview.TTL)
	if err != nil {
		return err
	}

	store := course.NewStore(logger, kv, cfg.Storage.Key, course.WithPreviewer(signer))
	if err := store.Init(ctx); err != nil {
		return fmt.Errorf("failed to load studio courses: %w", err)
	}

	dev := device.New(kv)

	client, err := remote.New(logger, cfg.Remote.URL,
		remote.WithRate(cfg.Remote.RPS, cfg.Remote.Burst),
		remote.WithTokenSource(dev),
	)
	if err != nil {
		return fmt.Errorf("failed to build the remote client: %w", err)
	}
	checks["remote"] = func(ctx context.Context) error {
		h, err := client.Health(ctx)
		if err == nil && !h.OK {
			err = fmt.Errorf("%s reports not ok", h.Service)
		}
		return err
	}

	var (
		lister    catalog.Lister = client
		pageCache catalog.Invalidator
	)
	if cfg.Redis.Cache {
		c := cache.NewCatalog(logger, rdb, cfg.Redis.CacheTTL, client)
		lister, pageCache = c, c
	}

	limiter := rate.NewLimiter(cfg.Rate.Burst, cfg.Rate.Expiry, cfg.Rate.RPS)
	defer limiter.Close()

	mux := api.APIMux(api.APIConfig{
		CorsOrigin:   cfg.Cors.Origin,
		Log:          logger,
		Store:        store,
		Blobs:        blobs,
		Previews:     signer,
		Tokens:       tokens,
		Limiter:      limiter,
		Device:       dev,
		Catalog:      lister,
		Details:      client,
		PageSize:     cfg.Remote.PageSize,
		MaxUpload:    cfg.Blob.MaxUpload,
		CatalogCache: pageCache,
		Studio:       client,
		Wallet:       client,
		Checks:       checks,
	})

	api := http.Server{
		Handler:      mux,
		Addr:         cfg.Web.Address,
		ReadTimeout:  cfg.Web.ReadTimeout,
		WriteTimeout: cfg.Web.WriteTimeout,
		IdleTimeout:  cfg.Web.IdleTimeout,
		ErrorLog:     errLog,
	}

	serverErrors := make(chan error, 1)

	go func() {
		logger.Infof("starting api router at %s", api.Addr)
		serverErrors <- api.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)

	case sig := <-shutdown:
		logger.Infof("shutting down: signal %s", sig)

		ctx, cancel := context.WithTimeout(context.Background(), cfg.Web.ShutdownTimeout)
		defer cancel()

		if err := api.Shutdown(ctx); err != nil {
			api.Close()
			return fmt.Errorf("could not stop server gracefully: %w", err)
		}
	}
	return nil
}
