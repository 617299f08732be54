package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"burnshare/pkg/blob"
	"burnshare/pkg/config"
	"burnshare/pkg/logging"
	"burnshare/pkg/service"
	"burnshare/pkg/storage"
)

func main() {
	configPath := flag.String("config", "", "optional YAML config file; environment variables override it")
	once := flag.Bool("once", false, "run a single sweep and exit")
	flag.Parse()

	if err := run(*configPath, *once); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(configPath string, once bool) error {
	conf, err := config.Load(configPath)
	if err != nil {
		return err
	}
	logger := logging.NewLogger(logging.LogLevel(conf.Log.Level))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := storage.Open(ctx, conf.Database)
	if err != nil {
		return err
	}
	defer store.Close()

	blobs, err := blob.New(ctx, conf.Blob)
	if err != nil {
		return err
	}

	shares := service.NewShareService(store, blobs, logger, service.NewShareConfig(conf))
	sweeper := service.NewSweeper(shares, conf.Sweep.Interval, logger)

	if once {
		sweeper.RunOnce(ctx)
		return nil
	}

	logger.Info(ctx, "starting sweeper", "interval", conf.Sweep.Interval.String())
	sweeper.Run(ctx)
	logger.Info(context.Background(), "sweeper stopped")
	return nil
}
