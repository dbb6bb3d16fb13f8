package db

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/tanmvo/skate-ai-2-sub002/internal/metrics"
)

// Config holds database configuration.
type Config struct {
	Host            string
	Port            int
	User            string
	Password        string
	Database        string
	MaxConnections  int
	IdleConnections int
	MaxLifetime     time.Duration
	SSLMode         string
}

// Client manages database connections and chat persistence.
type Client struct {
	db     *sqlx.DB
	logger *zap.Logger
	config *Config

	// Write queue for async persistence of generation artifacts
	writeQueue chan WriteRequest
	workers    int
	stopCh     chan struct{}
	workerWg   sync.WaitGroup
}

// WriteRequest represents an async write operation.
type WriteRequest struct {
	Type     WriteType
	Data     interface{}
	Callback func(error)
}

type WriteType int

const (
	WriteTypeChatMessage WriteType = iota
	WriteTypeToolCall
	WriteTypeCitationMap
)

func (wt WriteType) String() string {
	switch wt {
	case WriteTypeChatMessage:
		return "ChatMessage"
	case WriteTypeToolCall:
		return "ToolCall"
	case WriteTypeCitationMap:
		return "CitationMap"
	default:
		return "Unknown"
	}
}

// CitationMapUpdate attaches a computed citation map to a persisted message.
type CitationMapUpdate struct {
	MessageID string
	Raw       []byte // nil means "not yet computed", []byte("{}") means zero citations
}

// NewClient creates a database client with a connection pool and starts the
// async write workers.
func NewClient(config *Config, logger *zap.Logger) (*Client, error) {
	if config.MaxConnections == 0 {
		config.MaxConnections = 25
	}
	if config.IdleConnections == 0 {
		config.IdleConnections = 5
	}
	if config.MaxLifetime == 0 {
		config.MaxLifetime = 5 * time.Minute
	}
	if config.SSLMode == "" {
		config.SSLMode = "require"
	}

	dsn := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		config.Host, config.Port, config.User, config.Password, config.Database, config.SSLMode,
	)

	database, err := sqlx.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	database.SetMaxOpenConns(config.MaxConnections)
	database.SetMaxIdleConns(config.IdleConnections)
	database.SetConnMaxLifetime(config.MaxLifetime)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := database.PingContext(ctx); err != nil {
		database.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	client := &Client{
		db:         database,
		logger:     logger,
		config:     config,
		writeQueue: make(chan WriteRequest, 1000),
		workers:    4,
		stopCh:     make(chan struct{}),
	}

	client.startWorkers()
	go client.healthCheck()

	logger.Info("Database client initialized",
		zap.String("host", config.Host),
		zap.Int("max_connections", config.MaxConnections),
		zap.Int("workers", client.workers),
	)

	return client, nil
}

// NewClientFromDB wraps an existing connection; used by tests with sqlmock.
func NewClientFromDB(database *sqlx.DB, logger *zap.Logger) *Client {
	client := &Client{
		db:         database,
		logger:     logger,
		writeQueue: make(chan WriteRequest, 100),
		workers:    1,
		stopCh:     make(chan struct{}),
	}
	client.startWorkers()
	return client
}

func (c *Client) startWorkers() {
	for i := 0; i < c.workers; i++ {
		c.workerWg.Add(1)
		go c.writeWorker(i)
	}
}

func (c *Client) writeWorker(id int) {
	defer c.workerWg.Done()
	c.logger.Debug("Write worker started", zap.Int("worker_id", id))

	for {
		select {
		case <-c.stopCh:
			c.drainQueue()
			c.logger.Info("Write worker stopped", zap.Int("worker_id", id))
			return
		case req := <-c.writeQueue:
			c.processWrite(req)
		}
	}
}

func (c *Client) processWrite(req WriteRequest) {
	var err error

	switch req.Type {
	case WriteTypeChatMessage:
		if msg, ok := req.Data.(*ChatMessage); ok {
			err = c.SaveChatMessage(context.Background(), msg)
		}
	case WriteTypeToolCall:
		if tc, ok := req.Data.(*ToolCallRecord); ok {
			err = c.SaveToolCall(context.Background(), tc)
		}
	case WriteTypeCitationMap:
		if upd, ok := req.Data.(*CitationMapUpdate); ok {
			err = c.UpdateCitationMap(context.Background(), upd.MessageID, upd.Raw)
		}
	}

	if req.Callback != nil {
		req.Callback(err)
	}

	if err != nil {
		metrics.MessageWriteFailures.Inc()
		c.logger.Error("Failed to process write request",
			zap.String("type", req.Type.String()),
			zap.Error(err),
		)
	}
}

func (c *Client) drainQueue() {
	timeout := time.After(10 * time.Second)
	for {
		select {
		case req := <-c.writeQueue:
			c.processWrite(req)
		case <-timeout:
			c.logger.Warn("Timeout draining write queue")
			return
		default:
			return
		}
	}
}

// QueueWrite adds a write request to the async queue, falling back to a
// synchronous write when the queue is full so nothing is dropped.
func (c *Client) QueueWrite(writeType WriteType, data interface{}, callback func(error)) {
	metrics.MessageWritesQueued.Inc()
	select {
	case c.writeQueue <- WriteRequest{Type: writeType, Data: data, Callback: callback}:
	default:
		c.logger.Warn("Write queue is full, falling back to synchronous write",
			zap.String("type", writeType.String()))
		c.processWrite(WriteRequest{Type: writeType, Data: data, Callback: callback})
	}
}

func (c *Client) healthCheck() {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-c.stopCh:
			return
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			if err := c.db.PingContext(ctx); err != nil {
				c.logger.Error("Database health check failed", zap.Error(err))
			}
			cancel()
		}
	}
}

// Close gracefully shuts down the client, draining pending writes.
func (c *Client) Close() error {
	c.logger.Info("Shutting down database client")

	close(c.stopCh)
	c.workerWg.Wait()

	if err := c.db.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}

	c.logger.Info("Database client closed")
	return nil
}

// DB returns the underlying connection for direct queries.
func (c *Client) DB() *sqlx.DB {
	return c.db
}
