package neo4jdb

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/yungbote/neurobridge-coach/internal/platform/envutil"
	"github.com/yungbote/neurobridge-coach/internal/platform/logger"
)

type Config struct {
	URI      string
	User     string
	Password string
	Database string
	Timeout  time.Duration
	MaxPool  int
}

func ConfigFromEnv() Config {
	cfg := Config{
		URI:      envutil.String("NEO4J_URI", ""),
		User:     envutil.String("NEO4J_USER", "neo4j"),
		Password: envutil.String("NEO4J_PASSWORD", ""),
		Database: envutil.String("NEO4J_DATABASE", ""),
		Timeout:  envutil.Duration("NEO4J_TIMEOUT", 10*time.Second),
		MaxPool:  envutil.Int("NEO4J_MAX_POOL_SIZE", 50),
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.MaxPool <= 0 {
		cfg.MaxPool = 50
	}
	return cfg
}

// Client wraps the driver with the database name and a lazily applied schema.
type Client struct {
	Driver   neo4j.DriverWithContext
	Database string
	log      *logger.Logger

	schemaOnce sync.Once
	schema     []string
}

// NewFromEnv returns (nil, nil) when NEO4J_URI is unset. The graph mirror is optional.
func NewFromEnv(log *logger.Logger) (*Client, error) {
	if log == nil {
		return nil, fmt.Errorf("neo4jdb: logger required")
	}
	cfg := ConfigFromEnv()
	if cfg.URI == "" {
		return nil, nil
	}

	driver, err := neo4j.NewDriverWithContext(cfg.URI, neo4j.BasicAuth(cfg.User, cfg.Password, ""), func(c *neo4j.Config) {
		c.MaxConnectionPoolSize = cfg.MaxPool
		c.SocketConnectTimeout = cfg.Timeout
	})
	if err != nil {
		return nil, fmt.Errorf("neo4jdb: init driver: %w", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Timeout)
	defer cancel()
	if err := driver.VerifyConnectivity(ctx); err != nil {
		_ = driver.Close(ctx)
		return nil, fmt.Errorf("neo4jdb: verify connectivity: %w", err)
	}
	log.Info("Connected to Neo4j", "uri", cfg.URI, "database", cfg.Database)
	return &Client{Driver: driver, Database: cfg.Database, log: log.With("client", "Neo4jDB")}, nil
}

// WithSchema registers statements run once before the first write. They must be idempotent
// (IF NOT EXISTS); failures are logged and do not block writes.
func (c *Client) WithSchema(stmts ...string) *Client {
	if c != nil {
		c.schema = append(c.schema, stmts...)
	}
	return c
}

// ExecuteWrite runs work in a managed write transaction. A nil client is a no-op.
func (c *Client) ExecuteWrite(ctx context.Context, work neo4j.ManagedTransactionWork) (any, error) {
	if c == nil || c.Driver == nil {
		return nil, nil
	}
	if ctx == nil {
		ctx = context.Background()
	}
	session := c.Driver.NewSession(ctx, neo4j.SessionConfig{
		AccessMode:   neo4j.AccessModeWrite,
		DatabaseName: c.Database,
	})
	defer session.Close(ctx)

	c.schemaOnce.Do(func() {
		for _, stmt := range c.schema {
			res, err := session.Run(ctx, stmt, nil)
			if err == nil {
				_, err = res.Consume(ctx)
			}
			if err != nil && c.log != nil {
				c.log.Warn("neo4j schema statement failed (continuing)", "error", err)
			}
		}
	})
	return session.ExecuteWrite(ctx, work)
}

func (c *Client) Close(ctx context.Context) error {
	if c == nil || c.Driver == nil {
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}
	err := c.Driver.Close(ctx)
	c.Driver = nil
	return err
}
