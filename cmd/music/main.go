// Package main is the entry point for the music service. It resolves the
// backing-store profile from the bound services, builds the album
// repository the profile selects and serves HTTP.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/goliatone/go-profiles/config"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &options{}
	rootCmd := &cobra.Command{
		Use:   "music",
		Short: "Album catalog backed by the store of the bound service",
		Long: `Resolves a single backing-store profile from the services bound in
VCAP_SERVICES (or from --profiles), disables the auto-configuration of every
other store family and serves the album catalog over HTTP.

Example:
  music --config music.yaml --set datasource.url=postgres://localhost/music`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd.Context(), opts)
		},
	}

	rootCmd.Flags().StringVarP(&opts.configPath, "config", "c", "", "Path to configuration file (YAML)")
	rootCmd.Flags().StringVarP(&opts.logLevel, "log-level", "l", "", "Log level (debug, info, warn, error)")
	rootCmd.Flags().StringSliceVarP(&opts.profiles, "profiles", "p", nil, "Profiles to activate before bootstrap")
	rootCmd.Flags().StringArrayVar(&opts.overrides, "set", nil, "Property override as key=value (repeatable)")
	rootCmd.Flags().StringSliceVar(&opts.envFiles, "env-file", nil, "Dotenv files loaded before configuration (default .env)")

	return rootCmd
}

func run(ctx context.Context, opts *options) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := config.LoadDotEnv(opts.envFiles...); err != nil {
		return err
	}
	opts.environ = os.Environ()
	opts.lookup = os.LookupEnv

	app, err := bootstrap(ctx, *opts)
	if err != nil {
		return err
	}
	defer func() {
		if err := app.store.Close(context.Background()); err != nil {
			app.logger.Error().Err(err).Msg("close album store")
		}
	}()

	server := &http.Server{
		Addr:              ":" + strconv.Itoa(app.cfg.Server.Port),
		Handler:           app.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		app.logger.Info().Str("addr", server.Addr).Msg("http server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	app.logger.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), app.cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	return nil
}
