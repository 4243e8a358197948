package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/pflag"

	"github.com/guille1999utp/bemaster-part-2/internal/config"
	"github.com/guille1999utp/bemaster-part-2/internal/db"
	"github.com/guille1999utp/bemaster-part-2/internal/handlers"
	"github.com/guille1999utp/bemaster-part-2/internal/httpserver"
	"github.com/guille1999utp/bemaster-part-2/internal/logging"
)

// Run bootstraps the bemaster backend application.
func Run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return errors.New("expected command: serve or migrate")
	}

	switch args[0] {
	case "serve":
		return serve(ctx, args[1:])
	case "migrate":
		return runMigrations(ctx, args[1:], os.Stdout)
	default:
		return fmt.Errorf("unknown command %q", args[0])
	}
}

// loadConfig parses the command flags and loads the configuration. It
// returns the remaining positional arguments.
func loadConfig(command string, args []string) (config.Config, []string, error) {
	flags := pflag.NewFlagSet(command, pflag.ContinueOnError)
	path := flags.String("config", "", "path to a YAML configuration file")
	if err := flags.Parse(args); err != nil {
		return config.Config{}, nil, err
	}

	cfg, err := config.Load(*path)
	if err != nil {
		return config.Config{}, nil, err
	}
	return cfg, flags.Args(), nil
}

func newLogger(cfg config.Config) zerolog.Logger {
	return logging.New(logging.Config{Level: cfg.Logging.Level, Format: cfg.Logging.Format})
}

func serve(ctx context.Context, args []string) error {
	cfg, _, err := loadConfig("serve", args)
	if err != nil {
		return err
	}

	logger := newLogger(cfg)

	st, err := openStores(ctx, cfg.Database, logger)
	if err != nil {
		return err
	}
	defer st.close()

	deps, cleanup, err := buildDependencies(ctx, cfg, st, logger)
	if err != nil {
		return err
	}

	srv := httpserver.New(cfg.Server, handlers.NewRouter(deps))

	logger.Info().Int("port", cfg.Server.Port).Str("driver", cfg.Database.Driver).Msg("starting http server")

	srvErr := make(chan error, 1)
	go func() {
		srvErr <- srv.Start()
	}()

	signalCh := make(chan os.Signal, 1)
	signal.Notify(signalCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(signalCh)

	select {
	case <-ctx.Done():
		logger.Info().Msg("context canceled, shutting down server")
	case sig := <-signalCh:
		logger.Info().Str("signal", sig.String()).Msg("received signal, shutting down")
	case err := <-srvErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			_ = cleanup(context.Background())
			return err
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), srv.ShutdownTimeout())
	defer cancel()

	shutdownErr := srv.Shutdown(shutdownCtx)
	if err := cleanup(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("cleanup failed")
	}
	return shutdownErr
}

func runMigrations(ctx context.Context, args []string, out io.Writer) error {
	cfg, rest, err := loadConfig("migrate", args)
	if err != nil {
		return err
	}

	command := "up"
	if len(rest) > 0 {
		command = rest[0]
	}
	if command != "up" && command != "status" {
		return fmt.Errorf("unknown migrate command %q", command)
	}

	if cfg.Database.IsEmbedded() {
		// Opening the database applies the embedded schema.
		st, err := openStores(ctx, cfg.Database, newLogger(cfg))
		if err != nil {
			return err
		}
		st.close()
		fmt.Fprintf(out, "sqlite schema is up to date at %s\n", cfg.Database.Path)
		return nil
	}

	migrationDir := cfg.Database.MigrationsDir
	if !filepath.IsAbs(migrationDir) {
		wd, err := os.Getwd()
		if err != nil {
			return fmt.Errorf("determine working directory: %w", err)
		}
		migrationDir = filepath.Join(wd, migrationDir)
	}

	migrations, err := db.LoadMigrations(migrationDir)
	if err != nil {
		return err
	}

	pool, err := db.Connect(ctx, cfg.Database.URL, cfg.Database.MaxConns)
	if err != nil {
		return err
	}
	defer pool.Close()

	migrator := db.Migrator{Pool: pool, Out: out}
	if command == "status" {
		return migrator.Status(ctx, migrations)
	}
	return migrator.Up(ctx, migrations)
}
