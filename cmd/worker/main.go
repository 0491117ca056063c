package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

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
	Use:   "modreport-worker",
	Short: "Send queued module outcome digests by email",
	CompletionOptions: cobra.CompletionOptions{
		DisableDefaultCmd: true,
	},
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logging.Init(logLevel)
	},
	Run: func(cmd *cobra.Command, args []string) {
		runWorker()
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

func runWorker() {
	conf, err := config.Load(configFile)
	if err != nil {
		logrus.Fatalf("failed to load config: %v", err)
	}
	if err := conf.Validate(); err != nil {
		logrus.Fatalf("invalid config: %v", err)
	}
	if err := conf.ValidateEmail(); err != nil {
		logrus.Fatalf("invalid email config: %v", err)
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

	q, err := digest.NewQueue(conf.Redis.Addr)
	if err != nil {
		logrus.Fatal(err)
	}

	defer func() {
		if err := q.Close(); err != nil {
			logrus.Warnf("failed to close digest queue: %v", err)
		}
	}()

	workerID := conf.Worker.ID
	if workerID == "" {
		workerID = fmt.Sprintf("worker-%d", time.Now().Unix())
	}

	reports := report.NewService(repo, conf.Requester)
	mailer := digest.NewSendGridMailer(conf.Email.APIKey, conf.Email.FromName, conf.Email.FromAddress)

	w := digest.NewWorker(workerID, q, reports, mailer)
	if conf.Worker.PollIntervalSecs > 0 {
		w.SetPollInterval(time.Duration(conf.Worker.PollIntervalSecs) * time.Second)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go w.Start(ctx)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	logrus.Info("Shutting down worker...")
	w.Stop()
}
