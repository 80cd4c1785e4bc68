package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/spf13/cobra"
	"github.com/synaptica-ai/labcollate/pkg/collate"
	"github.com/synaptica-ai/labcollate/pkg/common/config"
	"github.com/synaptica-ai/labcollate/pkg/common/logger"
	"github.com/synaptica-ai/labcollate/pkg/gateway/middleware"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "collate",
		Short:         "Collate hospital lab results into per-patient panels",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().String("config", "", "YAML job file overlaid on the environment configuration")
	rootCmd.AddCommand(runCmd())
	rootCmd.AddCommand(serveCmd())
	return rootCmd
}

func runCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run one batch collation from files",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			applyRunFlags(cmd, cfg)
			logger.Init(cfg.LogLevel)

			svc, cleanup, err := buildService(cfg)
			if err != nil {
				return err
			}
			defer cleanup()

			rec, _, err := svc.Execute(context.Background(), collate.Sources{
				PatientsPath: cfg.PatientsPath,
				CodesPath:    cfg.CodesPath,
				ResultsPath:  cfg.ResultsPath,
			})
			if err != nil {
				if rec != nil {
					return fmt.Errorf("run %s: %w", rec.ID, err)
				}
				return err
			}
			return nil
		},
	}
	cmd.Flags().String("patients", "", "Patient registry JSON")
	cmd.Flags().String("codes", "", "Code dictionary CSV or YAML")
	cmd.Flags().String("results", "", "Lab results CSV")
	cmd.Flags().String("output", "", "Output document path")
	cmd.Flags().String("encoding", "", "Input encoding of the CSV sources")
	cmd.Flags().StringSlice("sinks", nil, "Sinks to write: file, redis, kafka, postgres")
	cmd.Flags().Int("profile-code-column", -1, "0-based position of the profile-code column")
	return cmd
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve inline collation and run status over HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			logger.Init(cfg.LogLevel)
			return serve(cfg)
		},
	}
}

func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.Load()
	path, _ := cmd.Flags().GetString("config")
	if path == "" {
		return cfg, nil
	}
	return config.LoadFile(path, cfg)
}

func applyRunFlags(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()
	if v, _ := flags.GetString("patients"); v != "" {
		cfg.PatientsPath = v
	}
	if v, _ := flags.GetString("codes"); v != "" {
		cfg.CodesPath = v
	}
	if v, _ := flags.GetString("results"); v != "" {
		cfg.ResultsPath = v
	}
	if v, _ := flags.GetString("output"); v != "" {
		cfg.OutputPath = v
	}
	if v, _ := flags.GetString("encoding"); v != "" {
		cfg.InputEncoding = v
	}
	if v, _ := flags.GetStringSlice("sinks"); len(v) > 0 {
		cfg.Sinks = v
	}
	if v, _ := flags.GetInt("profile-code-column"); v >= 0 {
		cfg.ProfileCodeIndex = v
	}
}

func serve(cfg *config.Config) error {
	svc, cleanup, err := buildService(cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	router := mux.NewRouter()
	router.Use(middleware.Recovery, middleware.Logging, middleware.RateLimit(cfg.RateLimitRPS, cfg.RateLimitBurst))
	collate.NewHTTPHandler(svc, cfg.MaxRequestBody).Register(router)

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%s", cfg.ServerHost, cfg.ServerPort),
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		logger.Log.WithFields(map[string]interface{}{
			"host": cfg.ServerHost,
			"port": cfg.ServerPort,
		}).Info("Collation service started")

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Log.WithError(err).Fatal("failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Log.Info("Shutting down collation service...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Log.WithError(err).Error("server forced to shutdown")
	}

	logger.Log.Info("Collation service stopped")
	return nil
}
