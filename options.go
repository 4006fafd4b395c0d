package meshes

import (
	"net/http"
	"time"
)

// Concurrency constants for mesh fetches.
const (
	// DefaultConcurrency is the default number of fetch workers.
	DefaultConcurrency = 4

	// MaxConcurrency is the maximum allowed number of fetch workers.
	MaxConcurrency = 16

	// DefaultRequestTimeout is the default timeout for a single mesh fetch.
	DefaultRequestTimeout = 30 * time.Second
)

// ManagerOption configures a Manager.
type ManagerOption func(*managerConfig)

// managerConfig holds configuration for Manager construction.
type managerConfig struct {
	// httpClient is used for HTTP fetches by the default fetcher.
	httpClient HTTPClient

	// fetcher replaces the default content fetcher when set.
	fetcher Fetcher

	// logger receives diagnostic log messages.
	logger Logger

	// concurrency is the number of fetch workers.
	concurrency int

	// requestTimeout bounds a single fetch. Zero disables the timeout.
	requestTimeout time.Duration

	// placeholder replaces the default placeholder sphere when set.
	placeholder *Mesh

	// onFetchError is called when a fetch fails.
	onFetchError func(name string, err error)
}

// newManagerConfig returns a managerConfig with default values.
func newManagerConfig() *managerConfig {
	return &managerConfig{
		httpClient:     http.DefaultClient,
		concurrency:    DefaultConcurrency,
		requestTimeout: DefaultRequestTimeout,
	}
}

// WithHTTPClient sets a custom HTTP client for mesh fetches.
// Useful for testing with mock servers or customizing transports.
// If not set, http.DefaultClient is used.
func WithHTTPClient(client HTTPClient) ManagerOption {
	return func(c *managerConfig) {
		c.httpClient = client
	}
}

// WithFetcher replaces the built-in HTTP/file fetcher.
func WithFetcher(f Fetcher) ManagerOption {
	return func(c *managerConfig) {
		c.fetcher = f
	}
}

// WithLogger sets a logger for diagnostic output.
// If not set, logging is disabled.
func WithLogger(logger Logger) ManagerOption {
	return func(c *managerConfig) {
		c.logger = logger
	}
}

// WithConcurrency sets the number of fetch workers.
// Values are clamped to the range [1, MaxConcurrency].
// Default is DefaultConcurrency (4).
func WithConcurrency(n int) ManagerOption {
	return func(c *managerConfig) {
		if n < 1 {
			n = 1
		}
		if n > MaxConcurrency {
			n = MaxConcurrency
		}
		c.concurrency = n
	}
}

// WithRequestTimeout bounds each fetch. Zero or negative disables the
// timeout, so a hung fetch keeps its name pending forever.
func WithRequestTimeout(d time.Duration) ManagerOption {
	return func(c *managerConfig) {
		if d < 0 {
			d = 0
		}
		c.requestTimeout = d
	}
}

// WithPlaceholder sets the mesh shown in place of meshes that are still
// loading. If not set, a low-poly sphere is built on first use.
func WithPlaceholder(m *Mesh) ManagerOption {
	return func(c *managerConfig) {
		c.placeholder = m
	}
}

// WithFetchErrorHandler sets a callback for failed fetches.
// The callback is invoked from fetch worker goroutines and must be
// thread-safe. The failed mesh stays bound to its placeholder.
func WithFetchErrorHandler(fn func(name string, err error)) ManagerOption {
	return func(c *managerConfig) {
		c.onFetchError = fn
	}
}

// HTTPClient is the interface for HTTP operations.
// *http.Client satisfies this interface.
type HTTPClient interface {
	// Do sends an HTTP request and returns an HTTP response.
	Do(req *http.Request) (*http.Response, error)
}

// Logger is the interface for diagnostic logging.
// Compatible with slog, zap, logrus (via NewLogrusLogger), and other
// structured loggers.
type Logger interface {
	// Debug logs a debug-level message with optional key-value pairs.
	Debug(msg string, keysAndValues ...any)

	// Info logs an info-level message with optional key-value pairs.
	Info(msg string, keysAndValues ...any)

	// Warn logs a warning-level message with optional key-value pairs.
	Warn(msg string, keysAndValues ...any)

	// Error logs an error-level message with optional key-value pairs.
	Error(msg string, keysAndValues ...any)
}
