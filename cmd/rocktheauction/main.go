package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"rocktheauction/internal/config"
	"rocktheauction/internal/eventlog"
	"rocktheauction/internal/http/handlers"
	applog "rocktheauction/internal/log"
	"rocktheauction/internal/media"
	"rocktheauction/internal/repos"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:           "rocktheauction",
	Short:         "Lot and catalogue service for Rock the Auction",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to a TOML config file (default $CONFIG_FILE)")
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// process holds what every subcommand wires up.
type process struct {
	cfg  config.Config
	db   *sqlx.DB
	deps *handlers.Deps

	closers []func()
}

func (r *process) Close() {
	for i := len(r.closers) - 1; i >= 0; i-- {
		r.closers[i]()
	}
}

func bootstrap(ctx context.Context) (*process, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	r := &process{cfg: cfg}

	flush, err := applog.Init(cfg.LogLevel, cfg.LogFile)
	if err != nil {
		applog.L().Warn("log.file.open_failed", zap.String("file", cfg.LogFile), zap.Error(err))
	}
	r.closers = append(r.closers, flush)

	r.db, err = repos.OpenDB(cfg.DBDSN)
	if err != nil {
		r.Close()
		return nil, fmt.Errorf("open database: %w", err)
	}
	r.closers = append(r.closers, func() { _ = r.db.Close() })

	var external eventlog.Fanout
	if cfg.MongoURI != "" {
		sink, err := eventlog.NewMongoSink(ctx, cfg.MongoURI, cfg.MongoDB)
		if err != nil {
			r.Close()
			return nil, err
		}
		external = append(external, sink)
		r.closers = append(r.closers, func() { _ = sink.Close(context.Background()) })
	}
	if cfg.NATSURL != "" {
		sink, err := eventlog.NewNATSSink(cfg.NATSURL, cfg.NATSSubject)
		if err != nil {
			r.Close()
			return nil, err
		}
		external = append(external, sink)
		r.closers = append(r.closers, sink.Close)
	}

	var uploader media.Uploader
	if up, err := media.NewS3Uploader(ctx, cfg.S3); err == nil {
		uploader = up
	} else if !errors.Is(err, media.ErrDisabled) {
		r.Close()
		return nil, err
	}

	r.deps = handlers.NewDeps(r.db, cfg, external, uploader)
	if err := r.deps.Auth.EnsureAdmin(ctx, cfg.AdminEmail, cfg.AdminPassword); err != nil {
		r.Close()
		return nil, fmt.Errorf("bootstrap admin: %w", err)
	}
	return r, nil
}
