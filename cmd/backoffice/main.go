// Command backoffice serves the product editor, the catalogue views and the
// validation logs, and runs the scheduled validation passes.
package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/fekuna/omnipos-backoffice/config"
	"github.com/fekuna/omnipos-backoffice/internal/pkg/logger"
	"github.com/fekuna/omnipos-backoffice/internal/server"
	"github.com/fekuna/omnipos-backoffice/internal/validation"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	Version = "0.1.0"
	appName = "backoffice"
)

func main() {
	_ = godotenv.Load() // Load .env file if it exists

	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:           appName,
		Short:         "Product catalogue back office",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "YAML config file overriding the environment")

	cmd.AddCommand(
		&cobra.Command{
			Use:   "serve",
			Short: "Serve HTTP and gRPC, consume promotions and validate on a schedule",
			RunE: func(cmd *cobra.Command, args []string) error {
				return serve(cmd.Context(), configPath)
			},
		},
		&cobra.Command{
			Use:   "validate",
			Short: "Run one validation pass and exit",
			RunE: func(cmd *cobra.Command, args []string) error {
				return validateOnce(cmd.Context(), configPath)
			},
		},
		&cobra.Command{
			Use:   "version",
			Short: "Print version information",
			Run: func(cmd *cobra.Command, args []string) {
				fmt.Printf("%s version %s\n", appName, Version)
			},
		},
	)
	return cmd
}

func setup(configPath string) (*config.Config, logger.ZapLogger, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, err
	}
	logConfig := &logger.ZapLoggerConfig{
		IsDevelopment:     false,
		Encoding:          "json",
		Level:             cfg.Logger.Level,
		DisableCaller:     cfg.Logger.DisableCaller,
		DisableStacktrace: cfg.Logger.DisableStacktrace,
	}
	if cfg.IsDevelopment() {
		logConfig.IsDevelopment = true
		logConfig.Encoding = cfg.Logger.Encoding
	}
	return cfg, logger.NewZapLogger(logConfig), nil
}

func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	if parent == nil {
		parent = context.Background()
	}
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}

func validateOnce(parent context.Context, configPath string) error {
	cfg, appLogger, err := setup(configPath)
	if err != nil {
		return err
	}
	defer appLogger.Sync()

	ctx, stop := signalContext(parent)
	defer stop()

	app, err := server.Build(ctx, cfg, appLogger)
	if err != nil {
		return err
	}
	defer app.Close()

	summary, err := app.Validation.RunAll(ctx)
	if summary != nil {
		for _, r := range summary.Runners {
			appLogger.Info("runner finished",
				zap.String("app", r.App), zap.String("model", r.Model),
				zap.Int("failures", r.Failures), zap.String("error", r.Error), zap.Bool("skipped", r.Skipped))
		}
	}
	return err
}

func serve(parent context.Context, configPath string) error {
	cfg, appLogger, err := setup(configPath)
	if err != nil {
		return err
	}
	defer appLogger.Sync()

	ctx, stop := signalContext(parent)
	defer stop()

	app, err := server.Build(ctx, cfg, appLogger)
	if err != nil {
		return err
	}
	defer app.Close()

	router := server.NewRouter(app.Handlers, cfg.Editor.Prefix, !cfg.IsDevelopment(), appLogger)
	httpServer := &http.Server{Addr: cfg.Server.HTTPAddr, Handler: router}
	grpcServer, health := server.NewGRPCServer()

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		appLogger.Info("Starting HTTP server", zap.String("addr", cfg.Server.HTTPAddr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	if cfg.Server.GRPCAddr != "" {
		lis, err := net.Listen("tcp", cfg.Server.GRPCAddr)
		if err != nil {
			return fmt.Errorf("listen grpc: %w", err)
		}
		g.Go(func() error {
			appLogger.Info("Starting gRPC server", zap.String("addr", cfg.Server.GRPCAddr))
			return grpcServer.Serve(lis)
		})
	}

	if app.Listener != nil {
		g.Go(func() error {
			app.Listener.Start(gCtx)
			return nil
		})
	}

	g.Go(func() error {
		validation.NewScheduler(app.Validation, cfg.Server.ValidationInterval, appLogger).Start(gCtx)
		return nil
	})

	g.Go(func() error {
		<-gCtx.Done()
		appLogger.Info("Shutting down server...")
		health.Shutdown()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		grpcServer.GracefulStop()
		return httpServer.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		return err
	}
	appLogger.Info("Server stopped")
	return nil
}
