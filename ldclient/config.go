package ldclient

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/launchdarkly/go-server-sdk/v7/internal/ldlog"
	"github.com/launchdarkly/go-server-sdk/v7/ldstoretypes"
)

// MinimumPollInterval is the floor enforced on Config.PollInterval.
const MinimumPollInterval = 30 * time.Second

// Default service endpoints and tuning values, mirrored in DefaultConfig.
const (
	DefaultBaseURI       = "https://app.launchdarkly.com"
	DefaultStreamURI     = "https://stream.launchdarkly.com"
	DefaultEventsURI     = "https://events.launchdarkly.com"
	DefaultCapacity      = 10000
	DefaultFlushInterval = 5 * time.Second
	DefaultTimeout       = 3 * time.Second

	DefaultUserKeysCapacity            = 1000
	DefaultUserKeysFlushInterval       = 5 * time.Minute
	DefaultDiagnosticRecordingInterval = 15 * time.Minute
)

// Config carries every tunable of the client. Zero-value URI, capacity,
// interval, timeout and Loggers fields fall back to the corresponding
// DefaultConfig value in MakeCustomClient; boolean fields such as Stream and
// SendEvents are used as given, so a zero Config disables both. Start from
// DefaultConfig and override only what you need, rather than building a
// Config from scratch.
type Config struct {
	// BaseURI, StreamURI, and EventsURI are the three service endpoints.
	// Trailing slashes are trimmed. Change these only for testing.
	BaseURI   string
	StreamURI string
	EventsURI string

	// Stream enables the streaming data source; when false, the SDK polls
	// BaseURI instead.
	Stream bool
	// PollInterval is the polling period when Stream is false. Values below
	// MinimumPollInterval are raised to it.
	PollInterval time.Duration

	// SendEvents is the master switch for analytics event delivery.
	SendEvents bool
	// Offline disables all network activity; every Variation call returns
	// its fallback with reason ClientNotReady.
	Offline bool
	// UseLDD puts the client in daemon mode: no data source is started, and
	// flags are read only from FeatureStore (expected to be populated by
	// another process, e.g. a relay proxy).
	UseLDD bool

	// Capacity bounds the in-memory event buffer.
	Capacity int
	// FlushInterval is the period between automatic event flushes.
	FlushInterval time.Duration
	// AllAttributesPrivate, when true, redacts every user attribute except
	// key from outgoing events regardless of PrivateAttributeNames.
	AllAttributesPrivate bool
	// PrivateAttributeNames lists additional attribute names to redact.
	PrivateAttributeNames []string
	// InlineUsersInEvents includes the full redacted user in every feature
	// and custom event instead of just the user key plus an index event.
	InlineUsersInEvents bool
	// UserKeysCapacity bounds the index-event dedup LRU.
	UserKeysCapacity int
	// UserKeysFlushInterval is how often the dedup LRU is fully cleared.
	UserKeysFlushInterval time.Duration
	// LogEvaluationErrors, when true, logs a warning for every evaluation
	// that falls back to an error reason.
	LogEvaluationErrors bool

	// DiagnosticOptOut disables the optional diagnostic-init/-periodic
	// event stream entirely.
	DiagnosticOptOut bool
	// DiagnosticRecordingInterval is the period between diagnostic-periodic
	// events. Values below 60 seconds are replaced with
	// DefaultDiagnosticRecordingInterval.
	DiagnosticRecordingInterval time.Duration

	// Timeout is the connect/request timeout applied to polling and event
	// delivery requests. The long-lived streaming connection keeps only the
	// connect timeout; its overall request timeout is cleared.
	Timeout time.Duration
	// UserAgent is appended to the SDK's own User-Agent header.
	UserAgent string
	// WrapperName and WrapperVersion identify a wrapper SDK built on top of
	// this one. They are reported in the diagnostic-init event; no
	// X-LaunchDarkly-Wrapper header is added to outgoing requests.
	WrapperName    string
	WrapperVersion string

	// ProxyURL, if set, routes all outbound requests through an HTTP proxy.
	ProxyURL string
	// CACertFiles lists PEM files to add to the system cert pool for TLS
	// verification of the service endpoints.
	CACertFiles []string
	// HTTPClientFactory, if set, builds the *http.Client used for polling
	// and event delivery instead of the default one. The streaming
	// connection always derives its own client from the result (with its
	// timeout cleared, since a stream has no fixed response size).
	HTTPClientFactory func(Config) *http.Client

	// FeatureStore is the data-store implementation to use. If nil, an
	// in-memory store is constructed. Mutually exclusive with
	// PersistentDataStore; if both are set, FeatureStore wins.
	FeatureStore ldstoretypes.Store
	// PersistentDataStore and PersistentDataStoreSerializer, if both set
	// and FeatureStore is nil, are wrapped in a TTL-caching store (see
	// ldstore.CachingStore). No concrete persistent backend ships with this
	// module; only the abstract ldstoretypes.PersistentDataStore contract
	// is specified.
	PersistentDataStore           ldstoretypes.PersistentDataStore
	PersistentDataStoreSerializer ldstoretypes.ItemSerializer
	PersistentDataStoreCacheTTL   time.Duration

	// Loggers receives the client's log output. If zero-valued, a default
	// stderr logger at Info level is used.
	Loggers ldlog.Loggers
}

// DefaultConfig is the configuration MakeClient uses. Copy it and override
// individual fields rather than constructing a Config from its zero value.
var DefaultConfig = Config{
	BaseURI:                     DefaultBaseURI,
	StreamURI:                   DefaultStreamURI,
	EventsURI:                   DefaultEventsURI,
	Stream:                      true,
	PollInterval:                MinimumPollInterval,
	SendEvents:                  true,
	Capacity:                    DefaultCapacity,
	FlushInterval:               DefaultFlushInterval,
	UserKeysCapacity:            DefaultUserKeysCapacity,
	UserKeysFlushInterval:       DefaultUserKeysFlushInterval,
	DiagnosticRecordingInterval: DefaultDiagnosticRecordingInterval,
	Timeout:                     DefaultTimeout,
	Loggers:                     ldlog.DefaultLoggers("LaunchDarkly"),
}

// applyDefaults fills in every zero-valued field from DefaultConfig and
// normalizes URIs/intervals, returning a config ready to build a client
// from. It never mutates the Config the caller passed in.
func (c Config) applyDefaults() Config {
	if c.BaseURI == "" {
		c.BaseURI = DefaultConfig.BaseURI
	}
	if c.StreamURI == "" {
		c.StreamURI = DefaultConfig.StreamURI
	}
	if c.EventsURI == "" {
		c.EventsURI = DefaultConfig.EventsURI
	}
	c.BaseURI = strings.TrimRight(c.BaseURI, "/")
	c.StreamURI = strings.TrimRight(c.StreamURI, "/")
	c.EventsURI = strings.TrimRight(c.EventsURI, "/")
	if c.PollInterval < MinimumPollInterval {
		c.PollInterval = MinimumPollInterval
	}
	if c.Capacity == 0 {
		c.Capacity = DefaultConfig.Capacity
	}
	if c.FlushInterval == 0 {
		c.FlushInterval = DefaultConfig.FlushInterval
	}
	if c.UserKeysCapacity == 0 {
		c.UserKeysCapacity = DefaultConfig.UserKeysCapacity
	}
	if c.UserKeysFlushInterval == 0 {
		c.UserKeysFlushInterval = DefaultConfig.UserKeysFlushInterval
	}
	if c.DiagnosticRecordingInterval < time.Minute {
		c.DiagnosticRecordingInterval = DefaultConfig.DiagnosticRecordingInterval
	}
	if c.Timeout == 0 {
		c.Timeout = DefaultConfig.Timeout
	}
	if (c.Loggers == ldlog.Loggers{}) {
		c.Loggers = DefaultConfig.Loggers
	}
	c.UserAgent = strings.TrimSpace("GoClient/" + Version + " " + c.UserAgent)
	return c
}

func (c Config) wrapperHeader() (string, bool) {
	if c.WrapperName == "" {
		return "", false
	}
	if c.WrapperVersion == "" {
		return c.WrapperName, true
	}
	return c.WrapperName + "/" + c.WrapperVersion, true
}

// newHTTPClient builds the *http.Client used for polling and event
// delivery: proxy and CA-cert wiring mirrors a relay's HTTPConfig, folded
// directly into Config since this SDK has no separate relay-style proxy
// object to own it.
func (c Config) newHTTPClient() (*http.Client, error) {
	if c.HTTPClientFactory != nil {
		return c.HTTPClientFactory(c), nil
	}

	var tlsConfig *tls.Config
	if len(c.CACertFiles) > 0 {
		pool, err := x509.SystemCertPool()
		if err != nil || pool == nil {
			pool = x509.NewCertPool()
		}
		for _, path := range c.CACertFiles {
			bytes, err := os.ReadFile(path)
			if err != nil {
				return nil, fmt.Errorf("can't read CA certificate file %s: %w", path, err)
			}
			if !pool.AppendCertsFromPEM(bytes) {
				return nil, fmt.Errorf("CA certificate file %s did not contain a valid certificate", path)
			}
		}
		tlsConfig = &tls.Config{RootCAs: pool}
	}

	transport := &http.Transport{
		TLSClientConfig: tlsConfig,
		DialContext: (&net.Dialer{
			Timeout:   c.Timeout,
			KeepAlive: time.Minute,
		}).DialContext,
	}
	if c.ProxyURL != "" {
		u, err := url.Parse(c.ProxyURL)
		if err != nil {
			return nil, fmt.Errorf("invalid proxy URL %q: %w", c.ProxyURL, err)
		}
		transport.Proxy = http.ProxyURL(u)
	}

	return &http.Client{Timeout: c.Timeout, Transport: transport}, nil
}
