package ldclient

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestApplyDefaultsFillsZeroValues(t *testing.T) {
	var config Config

	applied := config.applyDefaults()

	assert.Equal(t, DefaultBaseURI, applied.BaseURI)
	assert.Equal(t, DefaultStreamURI, applied.StreamURI)
	assert.Equal(t, DefaultEventsURI, applied.EventsURI)
	assert.Equal(t, DefaultCapacity, applied.Capacity)
	assert.Equal(t, DefaultFlushInterval, applied.FlushInterval)
	assert.Equal(t, DefaultUserKeysCapacity, applied.UserKeysCapacity)
	assert.Equal(t, DefaultUserKeysFlushInterval, applied.UserKeysFlushInterval)
	assert.Equal(t, DefaultDiagnosticRecordingInterval, applied.DiagnosticRecordingInterval)
	assert.Equal(t, DefaultTimeout, applied.Timeout)
	assert.Equal(t, MinimumPollInterval, applied.PollInterval)
}

func TestApplyDefaultsTrimsTrailingSlashes(t *testing.T) {
	config := Config{BaseURI: "https://example.com/", StreamURI: "https://stream.example.com/", EventsURI: "https://events.example.com/"}

	applied := config.applyDefaults()

	assert.Equal(t, "https://example.com", applied.BaseURI)
	assert.Equal(t, "https://stream.example.com", applied.StreamURI)
	assert.Equal(t, "https://events.example.com", applied.EventsURI)
}

func TestApplyDefaultsEnforcesMinimumPollInterval(t *testing.T) {
	config := Config{PollInterval: time.Second}

	applied := config.applyDefaults()

	assert.Equal(t, MinimumPollInterval, applied.PollInterval)
}

func TestApplyDefaultsEnforcesMinimumDiagnosticRecordingInterval(t *testing.T) {
	config := Config{DiagnosticRecordingInterval: time.Second}

	applied := config.applyDefaults()

	assert.Equal(t, DefaultDiagnosticRecordingInterval, applied.DiagnosticRecordingInterval)
}

func TestApplyDefaultsDoesNotMutateReceiver(t *testing.T) {
	config := Config{}

	_ = config.applyDefaults()

	assert.Equal(t, "", config.BaseURI)
}

func TestWrapperHeaderOmittedWhenNameIsEmpty(t *testing.T) {
	config := Config{}

	_, ok := config.wrapperHeader()

	assert.False(t, ok)
}

func TestWrapperHeaderWithoutVersion(t *testing.T) {
	config := Config{WrapperName: "my-wrapper"}

	header, ok := config.wrapperHeader()

	assert.True(t, ok)
	assert.Equal(t, "my-wrapper", header)
}

func TestWrapperHeaderWithVersion(t *testing.T) {
	config := Config{WrapperName: "my-wrapper", WrapperVersion: "2.0.0"}

	header, ok := config.wrapperHeader()

	assert.True(t, ok)
	assert.Equal(t, "my-wrapper/2.0.0", header)
}

func TestNewHTTPClientUsesFactoryWhenSet(t *testing.T) {
	called := false
	config := Config{HTTPClientFactory: func(c Config) *http.Client {
		called = true
		return http.DefaultClient
	}}

	client, err := config.newHTTPClient()

	assert.NoError(t, err)
	assert.True(t, called)
	assert.Same(t, http.DefaultClient, client)
}

func TestNewHTTPClientRejectsUnreadableCACertFile(t *testing.T) {
	config := Config{CACertFiles: []string{"/nonexistent/path/to/cert.pem"}}

	_, err := config.newHTTPClient()

	assert.Error(t, err)
}

func TestNewHTTPClientRejectsInvalidProxyURL(t *testing.T) {
	config := Config{ProxyURL: "://not-a-url"}

	_, err := config.newHTTPClient()

	assert.Error(t, err)
}

func TestNewHTTPClientAppliesTimeout(t *testing.T) {
	config := Config{Timeout: 7 * time.Second}

	client, err := config.newHTTPClient()

	assert.NoError(t, err)
	assert.Equal(t, 7*time.Second, client.Timeout)
}
