// Package marketplace places punchout orders for cart-backed expenses and
// receives the supplier's order status callbacks.
package marketplace

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"
)

type OrderJob struct {
	CartID    string
	ExpenseID int64
}

type Worker struct {
	ID         int
	WorkerPool chan chan OrderJob
	JobChannel chan OrderJob
	Logger     *slog.Logger
}

func NewWorker(id int, workerPool chan chan OrderJob, logger *slog.Logger) *Worker {
	return &Worker{
		ID:         id,
		WorkerPool: workerPool,
		JobChannel: make(chan OrderJob),
		Logger:     logger,
	}
}

func (w *Worker) Start(ctx context.Context, wg *sync.WaitGroup, processFunc func(OrderJob)) {
	wg.Add(1)
	go func() {
		defer wg.Done()

		for {
			w.WorkerPool <- w.JobChannel

			select {
			case job := <-w.JobChannel:
				w.Logger.Debug("worker processing order", "worker_id", w.ID, "cart_id", job.CartID)
				processFunc(job)
			case <-ctx.Done():
				w.Logger.Debug("worker shutting down", "worker_id", w.ID)
				return
			}
		}
	}()
}

type Config struct {
	APIURL         string
	APIKey         string
	BuyerCookie    string
	CallbackURL    string
	OrderTimeout   time.Duration
	MaxWorkers     int
	JobQueueSize   int
	WorkerPoolSize int
}

type Client struct {
	apiURL       string
	apiKey       string
	buyerCookie  string
	callbackURL  string
	orderTimeout time.Duration
	logger       *slog.Logger

	jobQueue   chan OrderJob
	workerPool chan chan OrderJob
	maxWorkers int
	ctx        context.Context
	cancel     context.CancelFunc
	wg         sync.WaitGroup
	once       sync.Once
}

func NewClient(config Config, logger *slog.Logger) *Client {
	ctx, cancel := context.WithCancel(context.Background())

	maxWorkers := config.MaxWorkers
	if maxWorkers <= 0 {
		maxWorkers = 5
	}

	jobQueueSize := config.JobQueueSize
	if jobQueueSize <= 0 {
		jobQueueSize = 100
	}

	workerPoolSize := config.WorkerPoolSize
	if workerPoolSize <= 0 {
		workerPoolSize = maxWorkers
	}

	client := &Client{
		apiURL:       config.APIURL,
		apiKey:       config.APIKey,
		buyerCookie:  config.BuyerCookie,
		callbackURL:  config.CallbackURL,
		orderTimeout: config.OrderTimeout,
		logger:       logger,

		maxWorkers: maxWorkers,
		jobQueue:   make(chan OrderJob, jobQueueSize),
		workerPool: make(chan chan OrderJob, workerPoolSize),
		ctx:        ctx,
		cancel:     cancel,
	}

	client.startWorkerPool()

	return client
}

func (c *Client) startWorkerPool() {
	c.once.Do(func() {
		for i := 0; i < c.maxWorkers; i++ {
			worker := NewWorker(i, c.workerPool, c.logger)
			worker.Start(c.ctx, &c.wg, c.processOrderJob)
		}

		go c.dispatch()

		c.logger.Info("marketplace worker pool started",
			"max_workers", c.maxWorkers,
			"queue_size", cap(c.jobQueue))
	})
}

func (c *Client) dispatch() {
	c.wg.Add(1)
	defer c.wg.Done()

	for {
		select {
		case job := <-c.jobQueue:
			select {
			case jobChannel := <-c.workerPool:
				select {
				case jobChannel <- job:

				case <-c.ctx.Done():
					c.logger.Info("order dispatcher shutting down")
					return
				}
			case <-c.ctx.Done():
				c.logger.Info("order dispatcher shutting down")
				return
			}
		case <-c.ctx.Done():
			c.logger.Info("order dispatcher shutting down")
			return
		}
	}
}

func (c *Client) Shutdown() {
	c.logger.Info("shutting down marketplace client")
	c.cancel()
	c.wg.Wait()
	c.logger.Info("marketplace client shutdown complete")
}

// PlaceOrder queues the punchout order for background submission. The order
// outcome arrives later on the status callback endpoint; PlaceOrder only fails
// when the queue is full.
func (c *Client) PlaceOrder(ctx context.Context, cartID string, expenseID int64) error {
	job := OrderJob{
		CartID:    cartID,
		ExpenseID: expenseID,
	}

	select {
	case c.jobQueue <- job:
		c.logger.Info("order job queued",
			"cart_id", cartID,
			"expense_id", expenseID,
			"queue_length", len(c.jobQueue))
		return nil
	case <-ctx.Done():
		return ctx.Err()
	default:
		c.logger.Warn("order queue full, rejecting order",
			"cart_id", cartID,
			"queue_capacity", cap(c.jobQueue))
		return fmt.Errorf("order queue full, please try again later")
	}
}

func (c *Client) processOrderJob(job OrderJob) {
	c.logger.Info("submitting punchout order", "cart_id", job.CartID, "expense_id", job.ExpenseID)

	if err := c.submitOrder(job); err != nil {
		c.logger.Error("punchout order submission failed",
			"cart_id", job.CartID,
			"expense_id", job.ExpenseID,
			"error", err)
		c.sendStatusCallback(job, StatusFailed, "", err.Error())
	}
}

func (c *Client) submitOrder(job OrderJob) error {
	payload := map[string]interface{}{
		"cart_id":      job.CartID,
		"buyer_cookie": c.buyerCookie,
		"external_id":  fmt.Sprintf("expense-%d", job.ExpenseID),
		"callback_url": c.callbackURL,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal order request: %w", err)
	}

	ctx, cancel := context.WithTimeout(c.ctx, c.orderTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL+"/orders", bytes.NewBuffer(body))
	if err != nil {
		return fmt.Errorf("create order request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	httpClient := &http.Client{Timeout: c.orderTimeout}
	resp, err := httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("order request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusAccepted {
		return fmt.Errorf("marketplace API returned status %d", resp.StatusCode)
	}

	c.logger.Info("punchout order accepted by marketplace",
		"cart_id", job.CartID,
		"expense_id", job.ExpenseID)

	return nil
}

// sendStatusCallback reports a locally detected outcome to our own callback
// endpoint, so submission failures follow the same path as marketplace
// callbacks.
func (c *Client) sendStatusCallback(job OrderJob, status string, poNumber string, failureReason string) {
	select {
	case <-c.ctx.Done():
		c.logger.Info("status callback cancelled", "cart_id", job.CartID)
		return
	default:
	}

	payload := map[string]interface{}{
		"cart_id":    job.CartID,
		"expense_id": job.ExpenseID,
		"status":     status,
	}
	if poNumber != "" {
		payload["po_number"] = poNumber
	}
	if failureReason != "" {
		payload["failure_reason"] = failureReason
	}

	body, err := json.Marshal(payload)
	if err != nil {
		c.logger.Error("failed to marshal status callback", "error", err)
		return
	}

	ctx, cancel := context.WithTimeout(c.ctx, 10*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.callbackURL, bytes.NewBuffer(body))
	if err != nil {
		c.logger.Error("failed to create status callback request",
			"error", err,
			"cart_id", job.CartID)
		return
	}
	req.Header.Set("Content-Type", "application/json")

	httpClient := &http.Client{}
	resp, err := httpClient.Do(req)
	if err != nil {
		c.logger.Error("status callback failed",
			"error", err,
			"cart_id", job.CartID)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.logger.Warn("status callback returned error",
			"cart_id", job.CartID,
			"status_code", resp.StatusCode)
	}
}
