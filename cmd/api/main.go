package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	stdhttp "net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"burnshare/pkg/blob"
	"burnshare/pkg/cache"
	"burnshare/pkg/config"
	"burnshare/pkg/http"
	"burnshare/pkg/logging"
	"burnshare/pkg/security"
	"burnshare/pkg/service"
	"burnshare/pkg/storage"

	"github.com/go-chi/chi/v5"
)

func main() {
	configPath := flag.String("config", "", "optional YAML config file; environment variables override it")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage of %s:\n", os.Args[0])
		flag.PrintDefaults()
		fmt.Fprintln(flag.CommandLine.Output(), config.Usage())
	}
	flag.Parse()

	if err := run(*configPath); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	conf, err := config.Load(configPath)
	if err != nil {
		return err
	}
	logger := logging.NewLogger(logging.LogLevel(conf.Log.Level))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Storage
	store, err := storage.Open(ctx, conf.Database)
	if err != nil {
		return err
	}
	defer store.Close()

	// Cache
	statsCache, closeCache, err := cache.New(ctx, conf.Cache)
	if err != nil {
		return err
	}
	defer closeCache()

	// Blobs
	blobs, err := blob.New(ctx, conf.Blob)
	if err != nil {
		return err
	}

	// Services
	shares := service.NewShareService(store, blobs, logger, service.NewShareConfig(conf))
	reviews := service.NewReviewService(store, statsCache, security.NewIPHasher(conf.Reviews.IPHashKey), logger, conf.Reviews.StatsTTL)

	if conf.Sweep.InAPI {
		go service.NewSweeper(shares, conf.Sweep.Interval, logger).Run(ctx)
	}

	// Router
	r := chi.NewRouter()
	http.SetupRoutes(r, http.NewHandler(shares, reviews, logger), conf.HTTP.CORSOrigins)

	server := &stdhttp.Server{
		Addr:              conf.HTTP.Addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info(ctx, "starting API server",
			"addr", conf.HTTP.Addr,
			"database", conf.Database.Driver,
			"cache", conf.Cache.Driver,
			"blob", conf.Blob.Driver,
			"blob_access_key", logging.MaskCredential(conf.Blob.AccessKeyID),
		)
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, stdhttp.ErrServerClosed) {
			return err
		}
	case <-ctx.Done():
		logger.Info(context.Background(), "shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
	}
	return nil
}
