package influxdb

import (
	"context"
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"golang.org/x/time/rate"

	"github.com/nerrad567/notice-client/internal/infrastructure/config"
)

const (
	defaultConnectTimeout = 10 * time.Second
	defaultPingTimeout    = 5 * time.Second

	// Notices arrive a few at a time, so batches stay small and flush often
	// enough that a dashboard shows a message within seconds.
	defaultBatchSize     = 20
	defaultFlushInterval = 5 * time.Second

	// errorLogInterval spaces out write-failure logs while InfluxDB is down.
	errorLogInterval = time.Minute
)

// Logger is the subset of the daemon logger used for write failures.
type Logger interface {
	Error(msg string, args ...any)
}

type nopLogger struct{}

func (nopLogger) Error(string, ...any) {}

// Settings control how notice telemetry is batched and tagged.
type Settings struct {
	BatchSize     uint
	FlushInterval time.Duration

	// Source is added as the "source" tag of every point so several
	// daemons can share one bucket.
	Source string
}

// settingsFor derives write settings from the influxdb config section.
func settingsFor(cfg config.InfluxDBConfig) Settings {
	s := Settings{
		BatchSize:     defaultBatchSize,
		FlushInterval: defaultFlushInterval,
		Source:        "noticed",
	}
	if cfg.BatchSize > 0 {
		s.BatchSize = uint(cfg.BatchSize)
	}
	if cfg.FlushInterval > 0 {
		s.FlushInterval = time.Duration(cfg.FlushInterval) * time.Second
	}
	if host, err := os.Hostname(); err == nil && host != "" {
		s.Source = host
	}
	return s
}

func (s Settings) options() *influxdb2.Options {
	return influxdb2.DefaultOptions().
		SetBatchSize(s.BatchSize).
		SetFlushInterval(uint(s.FlushInterval.Milliseconds())).
		SetPrecision(time.Millisecond).
		SetApplicationName("noticed").
		AddDefaultTag("source", s.Source)
}

// Stats counts what the client has handed to InfluxDB.
type Stats struct {
	Points      uint64
	WriteErrors uint64
	LastError   string
}

// Client records notice telemetry in InfluxDB.
//
// Client implements notice.Observer (one point per received message) and
// notice.Emitter (one point per connection state change). Writes are
// batched in the background; failures are counted and logged at most once
// per minute.
//
// Thread Safety:
//   - All methods are safe for concurrent use from multiple goroutines.
type Client struct {
	client   influxdb2.Client
	writeAPI api.WriteAPI
	settings Settings
	logger   Logger

	closed    atomic.Bool
	closeOnce sync.Once

	points   atomic.Uint64
	failures atomic.Uint64
	logLimit *rate.Limiter

	mu      sync.Mutex
	lastErr string
}

// Connect pings InfluxDB and starts the batched write API.
//
// It returns ErrDisabled when the section is disabled and wraps
// ErrConnectionFailed when the server cannot be reached. logger may be nil.
func Connect(ctx context.Context, cfg config.InfluxDBConfig, logger Logger) (*Client, error) {
	if !cfg.Enabled {
		return nil, ErrDisabled
	}
	if logger == nil {
		logger = nopLogger{}
	}

	settings := settingsFor(cfg)
	client := influxdb2.NewClientWithOptions(cfg.URL, cfg.Token, settings.options())

	pingCtx, cancel := context.WithTimeout(ctx, defaultConnectTimeout)
	defer cancel()

	healthy, err := client.Ping(pingCtx)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("%w: ping failed: %w", ErrConnectionFailed, err)
	}
	if !healthy {
		client.Close()
		return nil, fmt.Errorf("%w: server not healthy", ErrConnectionFailed)
	}

	c := &Client{
		client:   client,
		writeAPI: client.WriteAPI(cfg.Org, cfg.Bucket),
		settings: settings,
		logger:   logger,
		logLimit: rate.NewLimiter(rate.Every(errorLogInterval), 1),
	}
	go c.collectErrors(c.writeAPI.Errors())

	return c, nil
}

// collectErrors counts async write failures. It returns when the client
// closes the write API.
func (c *Client) collectErrors(errs <-chan error) {
	for err := range errs {
		n := c.failures.Add(1)

		c.mu.Lock()
		c.lastErr = err.Error()
		c.mu.Unlock()

		if c.logLimit.Allow() {
			c.logger.Error("influxdb write failed", "error", err, "failures", n)
		}
	}
}

// Settings returns the batching settings in use.
func (c *Client) Settings() Settings {
	return c.settings
}

// Stats returns write counters since Connect.
func (c *Client) Stats() Stats {
	c.mu.Lock()
	last := c.lastErr
	c.mu.Unlock()
	return Stats{
		Points:      c.points.Load(),
		WriteErrors: c.failures.Load(),
		LastError:   last,
	}
}

// Close flushes pending points and closes the client. Later calls are no-ops.
func (c *Client) Close() error {
	if c.client == nil {
		return nil
	}
	c.closeOnce.Do(func() {
		c.closed.Store(true)
		c.writeAPI.Flush()
		c.client.Close()
	})
	return nil
}

// HealthCheck pings the server. It fails after Close.
func (c *Client) HealthCheck(ctx context.Context) error {
	if !c.IsConnected() {
		return ErrNotConnected
	}

	checkCtx, cancel := context.WithTimeout(ctx, defaultPingTimeout)
	defer cancel()

	healthy, err := c.client.Ping(checkCtx)
	if err != nil {
		return fmt.Errorf("influxdb health check failed: %w", err)
	}
	if !healthy {
		return fmt.Errorf("influxdb health check failed: server not healthy")
	}
	return nil
}

// IsConnected reports whether the client is open. It does not ping.
func (c *Client) IsConnected() bool {
	return c.client != nil && !c.closed.Load()
}

// Flush blocks until buffered points are sent. No-op after Close.
func (c *Client) Flush() {
	if !c.IsConnected() {
		return
	}
	c.writeAPI.Flush()
}
