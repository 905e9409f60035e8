package main

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/getstubd/stubd/pkg/config"
	"github.com/getstubd/stubd/pkg/engine"
	"github.com/getstubd/stubd/pkg/engine/api"
	"github.com/getstubd/stubd/pkg/logging"
)

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the stub engine and its admin API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			return runServe(cmd.Context(), cfg)
		},
	}
	cmd.Flags().Int("port", 0, "admin API port")
	_ = viper.BindPFlag("admin.port", cmd.Flags().Lookup("port"))
	return cmd
}

func runServe(ctx context.Context, cfg config.Config) error {
	log := logging.New(*newLogger(cfg))

	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	eng := engine.New(store, log)

	if err := seedStubs(ctx, cfg, eng, log); err != nil {
		return err
	}

	server := api.NewServer(eng, cfg.Admin.Port)
	server.SetLogger(log)

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() { errCh <- server.Start() }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// seedStubs loads every configured stub collection through the
// guarded write path.
func seedStubs(ctx context.Context, cfg config.Config, eng *engine.Engine, log *slog.Logger) error {
	for _, pattern := range cfg.Seed.Files {
		paths, err := filepath.Glob(pattern)
		if err != nil {
			return fmt.Errorf("bad seed glob %q: %w", pattern, err)
		}
		for _, path := range paths {
			coll, err := config.LoadStubFile(path)
			if err != nil {
				return err
			}
			n, err := config.Seed(ctx, eng, coll)
			if err != nil {
				return err
			}
			log.Info("seeded stubs", "file", path, "count", n)
		}
	}
	return nil
}
