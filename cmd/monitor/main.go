package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	cronrunner "straitwatch/internal/cron"
	"straitwatch/internal/handler"
	"straitwatch/internal/service"
)

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var cfgPath string
	var envOnly bool

	root := &cobra.Command{
		Use:           "monitor",
		Short:         "Strait of Hormuz crisis monitor",
		SilenceUsage:  true,
	}
	root.PersistentFlags().StringVar(&cfgPath, "config", envOr("SW_CONFIG", "config/config.yaml"), "config file path")
	root.PersistentFlags().BoolVar(&envOnly, "env-only", envBool("SW_ENV_ONLY"), "read configuration from the environment only")

	root.AddCommand(&cobra.Command{
		Use:   "serve",
		Short: "Serve the trigger and read API, with the optional in-process schedule",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(cfgPath, envOnly)
			if err != nil {
				return err
			}
			defer a.close()
			return serve(cmd.Context(), a)
		},
	})

	root.AddCommand(&cobra.Command{
		Use:       "run <job>",
		Short:     "Run one job once and exit",
		Args:      cobra.ExactArgs(1),
		ValidArgs: service.JobNames(),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cfgPath, envOnly)
			if err != nil {
				return err
			}
			defer a.close()
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			res, runErr := a.jobs.Run(ctx, strings.TrimSpace(args[0]))
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			if err := enc.Encode(res); err != nil {
				return err
			}
			return runErr
		},
	})

	root.AddCommand(&cobra.Command{
		Use:   "jobs",
		Short: "List job names",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			for _, name := range service.JobNames() {
				fmt.Fprintln(cmd.OutOrStdout(), name)
			}
		},
	})
	return root
}

func serve(parent context.Context, a *app) error {
	cfg := a.cfg
	logger := a.logger
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.App.IsProd() {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}
	if strings.TrimSpace(cfg.Auth.TriggerSecret) == "" {
		if cfg.App.IsProd() {
			logger.Warn("auth.trigger_secret is empty; every /api request will be rejected")
		} else {
			logger.Warn("auth.trigger_secret is empty; /api is open")
		}
	}
	engine := handler.NewRouter(handler.RouterDeps{
		DB:             a.db.Gorm,
		Repo:           a.store,
		Jobs:           a.jobs,
		Settings:       a.settings,
		Cache:          a.cache,
		TriggerSecret:  cfg.Auth.TriggerSecret,
		IdempotencyTTL: cfg.Auth.IdempotencyTTL,
		Prod:           cfg.App.IsProd(),
		Logger:         logger,
	})

	if cfg.Cron.Enabled {
		runner := cronrunner.New(logger, ctx)
		schedule := []struct{ job, spec string }{
			{"vessels", cfg.Cron.Vessels},
			{"events", cfg.Cron.Events},
			{"news", cfg.Cron.News},
			{"prices", cfg.Cron.Prices},
			{"advisories", cfg.Cron.Advisories},
			{"shipping", cfg.Cron.Shipping},
			{service.JobScenario, cfg.Cron.Scenario},
			{service.JobCleanup, cfg.Cron.Cleanup},
		}
		for _, s := range schedule {
			if strings.TrimSpace(s.spec) == "" {
				continue
			}
			job := s.job
			if _, err := runner.Add(job, s.spec, func(ctx context.Context) error {
				_, err := a.jobs.Run(ctx, job)
				return err
			}); err != nil {
				logger.Warn("cron register failed", zap.String("job", job), zap.String("spec", s.spec), zap.Error(err))
			}
		}
		runner.Start()
		defer runner.Stop()
	}

	srv := &http.Server{
		Addr:              cfg.Server.HTTPAddr,
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server starting", zap.String("addr", cfg.Server.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	var serveErr error
	select {
	case <-ctx.Done():
		logger.Info("shutdown requested")
	case serveErr = <-errCh:
		logger.Error("server error", zap.Error(serveErr))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
	return serveErr
}

func envOr(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func envBool(key string) bool {
	v := strings.TrimSpace(os.Getenv(key))
	return strings.EqualFold(v, "true") || v == "1"
}
