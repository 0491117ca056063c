package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nadmax/modreport/internal/api"
	"github.com/nadmax/modreport/internal/config"
	"github.com/nadmax/modreport/internal/digest"
	"github.com/nadmax/modreport/internal/logging"
	"github.com/nadmax/modreport/internal/report"
	"github.com/nadmax/modreport/internal/repository"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	logLevel   string
	configFile string
)

var rootCmd = &cobra.Command{
	Use:   "modreport-server",
	Short: "Serve per-module task outcome reports over HTTP",
	CompletionOptions: cobra.CompletionOptions{
		DisableDefaultCmd: true,
	},
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logging.Init(logLevel)
	},
	Run: func(cmd *cobra.Command, args []string) {
		runServer()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&logLevel, "log-level", "l", "info", "Log level (debug, info, warn, error, fatal)")
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "Path to config file")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runServer() {
	conf, err := config.Load(configFile)
	if err != nil {
		logrus.Fatalf("failed to load config: %v", err)
	}
	if err := conf.Validate(); err != nil {
		logrus.Fatalf("invalid config: %v", err)
	}

	repo, err := repository.NewPostgresTaskResultRepository(conf.Postgres.DSN)
	if err != nil {
		logrus.Fatal(err)
	}

	defer func() {
		if err := repo.Close(); err != nil {
			logrus.Warnf("failed to close Postgres repository: %v", err)
		}
	}()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var digests api.DigestQueue
	q, err := digest.NewQueue(conf.Redis.Addr)
	if err != nil {
		logrus.Warnf("digest queue unavailable, digest endpoints disabled: %v", err)
	} else {
		digests = q
		defer func() {
			if err := q.Close(); err != nil {
				logrus.Warnf("failed to close digest queue: %v", err)
			}
		}()
		go startMetricsCollector(ctx, q)
		logrus.Infof("Connected to Redis at %s", conf.Redis.Addr)
	}

	reports := report.NewService(repo, conf.Requester)
	srv := &http.Server{
		Addr:              conf.Addr(),
		Handler:           api.NewAPI(reports, digests, conf.Token),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logrus.Infof("Server starting on %s (requester %s)", srv.Addr, reports.Requester())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logrus.Fatal(err)
		}
	}()

	termChan := make(chan os.Signal, 1)
	signal.Notify(termChan, syscall.SIGINT, syscall.SIGTERM)
	<-termChan

	logrus.Info("server is shutting down...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logrus.Warnf("graceful shutdown failed: %v", err)
	}
}
