package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/nekruzvatanshoev/carstore/pkg/carserv/config"
	"github.com/nekruzvatanshoev/carstore/pkg/carserv/dal"
	"github.com/nekruzvatanshoev/carstore/pkg/carserv/inventory"
	"github.com/nekruzvatanshoev/carstore/pkg/carserv/logger"
	"github.com/nekruzvatanshoev/carstore/pkg/carserv/server"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	ServeCmd = &cobra.Command{
		Use:   ServeCmdName,
		Short: ServeCmdShort,
		Long:  ServeCmdLong,
		RunE:  serveCmdFunc(),
	}
)

// flag name -> config key
var serveFlagKeys = map[string]string{
	"addr":           "server.address",
	"data":           "storage.path",
	"allowed-origin": "server.allowed_origin",
	"log-level":      "log.level",
	"log-output":     "log.output",
	"log-file":       "log.file",
}

func init() {
	flags := ServeCmd.Flags()
	flags.String("addr", config.DefaultAddress, "HTTP listen address")
	flags.String("data", config.DefaultStoragePath, "path of the JSON data file")
	flags.String("allowed-origin", config.DefaultAllowedOrigin, "value of Access-Control-Allow-Origin, empty disables CORS")
	flags.String("log-level", config.LogLevelInfo, "log level (debug, info, warning, error)")
	flags.String("log-output", config.LogOutputConsole, "log output (console, file)")
	flags.String("log-file", "", "log file path when log-output is file")

	for name, key := range serveFlagKeys {
		if err := viper.BindPFlag(key, flags.Lookup(name)); err != nil {
			panic(fmt.Sprintf("bind flag %s: %v", name, err))
		}
	}
}

func serveCmdFunc() func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(viper.GetViper())
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}

		log, err := logger.New(&cfg.Log)
		if err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		store, err := openStore(cmd.Context(), cfg.Storage.Path, log)
		if err != nil {
			return err
		}

		serve := server.NewHTTPServer(inventory.NewService(store), server.Options{
			Addr:          cfg.Server.Address,
			ReadTimeout:   cfg.Server.ReadTimeout,
			WriteTimeout:  cfg.Server.WriteTimeout,
			IdleTimeout:   cfg.Server.IdleTimeout,
			AllowedOrigin: cfg.Server.AllowedOrigin,
			Logger:        log,
		})

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		errCh := make(chan error, 1)
		go func() {
			log.Info("listening", "addr", serve.Addr, "data", cfg.Storage.Path)
			if err := serve.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
				errCh <- err
			}
			close(errCh)
		}()

		select {
		case err := <-errCh:
			return fmt.Errorf("serve: %w", err)
		case <-ctx.Done():
		}

		log.Info("shutting down the server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := serve.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		log.Info("server stopped")
		return nil
	}
}

// openStore creates the data file when it is missing. A corrupt file is
// logged and left in place so the listing routes can report it as a 500.
func openStore(ctx context.Context, path string, log *slog.Logger) (*dal.FileStore, error) {
	store := dal.NewFileStore(path, log)
	_, err := store.Load(ctx)
	switch {
	case errors.Is(err, dal.ErrCorruptStore):
		log.Error("car store could not be read, serving anyway", "path", path, "error", err)
	case err != nil:
		return nil, fmt.Errorf("open car store: %w", err)
	}
	return store, nil
}
