package redis

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Wardenfar/parkingsystem/pkg/retry"
)

// Nil is returned by reads on a missing key.
const Nil = redis.Nil

// Config holds Redis connection configuration
type Config struct {
	Host         string
	Port         int
	Password     string
	DB           int
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration

	// Connect retry policy
	Retry retry.Policy
}

// DefaultConfig returns default Redis configuration
func DefaultConfig() *Config {
	return &Config{
		Host:         "localhost",
		Port:         6379,
		PoolSize:     20,
		MinIdleConns: 2,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		Retry:        retry.Constant(3, time.Second),
	}
}

// Addr returns the Redis address
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// Script is a Lua script registered under a stable name.
type Script struct {
	Name   string
	Source string
	SHA    string
}

// Client wraps go-redis with a registry of named Lua scripts.
type Client struct {
	client  *redis.Client
	config  *Config
	scripts sync.Map // name -> *Script
}

// NewClient connects and pings Redis, retrying per cfg.Retry.
func NewClient(ctx context.Context, cfg *Config) (*Client, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr(),
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	})

	err := retry.Do(ctx, cfg.Retry, func(ctx context.Context) error {
		return rdb.Ping(ctx).Err()
	})
	if err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", cfg.Addr(), err)
	}

	return &Client{client: rdb, config: cfg}, nil
}

// Client returns the underlying go-redis client
func (c *Client) Client() *redis.Client {
	return c.client
}

// Close closes the connection pool
func (c *Client) Close() error {
	return c.client.Close()
}

// HealthCheck pings Redis with a short timeout.
func (c *Client) HealthCheck(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	if err := c.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis health check failed: %w", err)
	}
	return nil
}

// RegisterScript records a script under name. The script is sent to the
// server lazily on first use.
func (c *Client) RegisterScript(name, source string) *Script {
	s := &Script{Name: name, Source: source, SHA: computeSHA1(source)}
	actual, _ := c.scripts.LoadOrStore(name, s)
	return actual.(*Script)
}

// LoadScripts pushes every registered script into the server cache.
func (c *Client) LoadScripts(ctx context.Context) error {
	var firstErr error
	c.scripts.Range(func(_, v any) bool {
		s := v.(*Script)
		if err := c.client.ScriptLoad(ctx, s.Source).Err(); err != nil {
			firstErr = fmt.Errorf("failed to load script %s: %w", s.Name, err)
			return false
		}
		return true
	})
	return firstErr
}

// RunScript evaluates a registered script by SHA and falls back to a full
// EVAL when the server has flushed its script cache.
func (c *Client) RunScript(ctx context.Context, name string, keys []string, args ...any) *redis.Cmd {
	v, ok := c.scripts.Load(name)
	if !ok {
		cmd := redis.NewCmd(ctx)
		cmd.SetErr(fmt.Errorf("script %s not registered", name))
		return cmd
	}
	s := v.(*Script)

	cmd := c.client.EvalSha(ctx, s.SHA, keys, args...)
	if isNoScriptError(cmd.Err()) {
		return c.client.Eval(ctx, s.Source, keys, args...)
	}
	return cmd
}

func computeSHA1(source string) string {
	sum := sha1.Sum([]byte(source))
	return hex.EncodeToString(sum[:])
}

func isNoScriptError(err error) bool {
	return err != nil && redis.HasErrorPrefix(err, "NOSCRIPT")
}

// Get gets a value by key
func (c *Client) Get(ctx context.Context, key string) *redis.StringCmd {
	return c.client.Get(ctx, key)
}

// MGet gets several values at once
func (c *Client) MGet(ctx context.Context, keys ...string) *redis.SliceCmd {
	return c.client.MGet(ctx, keys...)
}

// Set sets a value with optional expiration
func (c *Client) Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd {
	return c.client.Set(ctx, key, value, expiration)
}

// SetNX sets a value only if key doesn't exist
func (c *Client) SetNX(ctx context.Context, key string, value any, expiration time.Duration) *redis.BoolCmd {
	return c.client.SetNX(ctx, key, value, expiration)
}

// Del deletes keys
func (c *Client) Del(ctx context.Context, keys ...string) *redis.IntCmd {
	return c.client.Del(ctx, keys...)
}

// SMembers lists a set
func (c *Client) SMembers(ctx context.Context, key string) *redis.StringSliceCmd {
	return c.client.SMembers(ctx, key)
}

// SCard counts a set
func (c *Client) SCard(ctx context.Context, key string) *redis.IntCmd {
	return c.client.SCard(ctx, key)
}

// HGetAll reads a whole hash
func (c *Client) HGetAll(ctx context.Context, key string) *redis.MapStringStringCmd {
	return c.client.HGetAll(ctx, key)
}

// TxPipeline starts a MULTI/EXEC pipeline
func (c *Client) TxPipeline() redis.Pipeliner {
	return c.client.TxPipeline()
}
