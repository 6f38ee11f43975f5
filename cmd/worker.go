package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/spendflow/expense-approval/internal/marketplace"
	"github.com/spendflow/expense-approval/pkg/logger"
)

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Start worker pools for various services",
	Long:  `Start and manage worker pools, currently the marketplace order submission pool.`,
}

var orderWorkerCmd = &cobra.Command{
	Use:   "orders",
	Short: "Start marketplace order worker pool",
	Long:  `Start the marketplace worker pool that submits punchout orders in the background`,
	Run: func(cmd *cobra.Command, args []string) {
		startOrderWorker()
	},
}

var (
	maxWorkers     int
	jobQueueSize   int
	workerPoolSize int
	apiURL         string
	apiKey         string
	callbackURL    string
)

func startOrderWorker() {
	config, err := loadConfig(".")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Init(config.Environment, config.Observability.Logging.Level)
	log := logger.L()

	marketplaceConfig := marketplace.Config{
		APIURL:         getStringFlag(apiURL, config.Marketplace.APIURL),
		APIKey:         getStringFlag(apiKey, config.Marketplace.APIKey),
		BuyerCookie:    config.Marketplace.BuyerCookie,
		CallbackURL:    getStringFlag(callbackURL, config.Marketplace.CallbackURL),
		OrderTimeout:   config.Marketplace.OrderTimeout,
		MaxWorkers:     getIntFlag(maxWorkers, config.Marketplace.MaxWorkers),
		JobQueueSize:   getIntFlag(jobQueueSize, config.Marketplace.JobQueueSize),
		WorkerPoolSize: getIntFlag(workerPoolSize, config.Marketplace.WorkerPoolSize),
	}

	log.Info("starting marketplace order worker",
		"max_workers", marketplaceConfig.MaxWorkers,
		"job_queue_size", marketplaceConfig.JobQueueSize,
		"worker_pool_size", marketplaceConfig.WorkerPoolSize,
		"api_url", marketplaceConfig.APIURL,
		"callback_url", marketplaceConfig.CallbackURL)

	client := marketplace.NewClient(marketplaceConfig, log)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	log.Info("order worker is running. Press Ctrl+C to stop.")

	sig := <-sigChan
	log.Info("received signal, shutting down order worker", "signal", sig)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	shutdownDone := make(chan struct{})
	go func() {
		client.Shutdown()
		close(shutdownDone)
	}()

	select {
	case <-shutdownDone:
		log.Info("order worker pool shutdown complete")
	case <-ctx.Done():
		log.Warn("shutdown timeout reached, forcing exit")
	}
}

func getStringFlag(flagValue, configValue string) string {
	if flagValue != "" {
		return flagValue
	}
	return configValue
}

func getIntFlag(flagValue, configValue int) int {
	if flagValue > 0 {
		return flagValue
	}
	return configValue
}

func init() {
	orderWorkerCmd.Flags().IntVar(&maxWorkers, "max-workers", 0, "Maximum number of workers (overrides config)")
	orderWorkerCmd.Flags().IntVar(&jobQueueSize, "job-queue-size", 0, "Job queue buffer size (overrides config)")
	orderWorkerCmd.Flags().IntVar(&workerPoolSize, "worker-pool-size", 0, "Worker pool channel size (overrides config)")
	orderWorkerCmd.Flags().StringVar(&apiURL, "api-url", "", "Marketplace API URL (overrides config)")
	orderWorkerCmd.Flags().StringVar(&apiKey, "api-key", "", "Marketplace API key (overrides config)")
	orderWorkerCmd.Flags().StringVar(&callbackURL, "callback-url", "", "Order status callback URL (overrides config)")

	workerCmd.AddCommand(orderWorkerCmd)

	rootCmd.AddCommand(workerCmd)
}
