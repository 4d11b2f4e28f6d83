package ldclient

import (
	"os"
	"runtime"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/launchdarkly/go-server-sdk/v7/ldvalue"
)

// diagnosticID uniquely names one client instance's diagnostic event
// stream: a fresh UUID plus the last six characters of the SDK key, enough
// to correlate events without exposing the key itself.
type diagnosticID struct {
	id           string
	sdkKeySuffix string
}

func newDiagnosticID(sdkKey string) diagnosticID {
	u, _ := uuid.NewRandom()
	suffix := sdkKey
	if len(sdkKey) > 6 {
		suffix = sdkKey[len(sdkKey)-6:]
	}
	return diagnosticID{id: u.String(), sdkKeySuffix: suffix}
}

// diagnosticsManager implements ldevents.DiagnosticsManager, producing the
// diagnostic-init event (sent once, describing the SDK and its
// configuration) and periodic diagnostic-periodic events (event-processor
// counters since the last one).
type diagnosticsManager struct {
	id            diagnosticID
	config        Config
	startWaitTime time.Duration
	startTime     uint64

	mu            sync.Mutex
	dataSinceTime uint64
}

func newDiagnosticsManager(sdkKey string, config Config, startWaitTime time.Duration) *diagnosticsManager {
	now := toUnixMillis(time.Now())
	return &diagnosticsManager{
		id:            newDiagnosticID(sdkKey),
		config:        config,
		startWaitTime: startWaitTime,
		startTime:     now,
		dataSinceTime: now,
	}
}

func toUnixMillis(t time.Time) uint64 {
	return uint64(t.UnixNano() / int64(time.Millisecond)) //nolint:gosec // always positive
}

func millis(d time.Duration) int64 {
	return int64(d / time.Millisecond)
}

// CreateInitEvent builds the one-time diagnostic-init document describing
// SDK identity, platform, and a flattened, non-sensitive configuration
// snapshot.
func (m *diagnosticsManager) CreateInitEvent() ldvalue.Value {
	storeType := "memory"
	switch {
	case m.config.FeatureStore != nil:
		storeType = "custom"
	case m.config.PersistentDataStore != nil:
		storeType = "persistent"
	}

	sdk := ldvalue.Object(
		ldvalue.ObjectEntry{Key: "name", Value: ldvalue.String("go-server-sdk")},
		ldvalue.ObjectEntry{Key: "version", Value: ldvalue.String(Version)},
	)
	if m.config.WrapperName != "" {
		sdk = ldvalue.Object(
			ldvalue.ObjectEntry{Key: "name", Value: ldvalue.String("go-server-sdk")},
			ldvalue.ObjectEntry{Key: "version", Value: ldvalue.String(Version)},
			ldvalue.ObjectEntry{Key: "wrapperName", Value: ldvalue.String(m.config.WrapperName)},
			ldvalue.ObjectEntry{Key: "wrapperVersion", Value: ldvalue.String(m.config.WrapperVersion)},
		)
	}

	configuration := ldvalue.Object(
		ldvalue.ObjectEntry{Key: "customBaseURI", Value: ldvalue.Bool(m.config.BaseURI != DefaultConfig.BaseURI)},
		ldvalue.ObjectEntry{Key: "customStreamURI", Value: ldvalue.Bool(m.config.StreamURI != DefaultConfig.StreamURI)},
		ldvalue.ObjectEntry{Key: "customEventsURI", Value: ldvalue.Bool(m.config.EventsURI != DefaultConfig.EventsURI)},
		ldvalue.ObjectEntry{Key: "dataStoreType", Value: ldvalue.String(storeType)},
		ldvalue.ObjectEntry{Key: "eventsCapacity", Value: ldvalue.Int(m.config.Capacity)},
		ldvalue.ObjectEntry{Key: "connectTimeoutMillis", Value: ldvalue.Int(int(millis(m.config.Timeout)))},
		ldvalue.ObjectEntry{Key: "socketTimeoutMillis", Value: ldvalue.Int(int(millis(m.config.Timeout)))},
		ldvalue.ObjectEntry{Key: "eventsFlushIntervalMillis", Value: ldvalue.Int(int(millis(m.config.FlushInterval)))},
		ldvalue.ObjectEntry{Key: "pollingIntervalMillis", Value: ldvalue.Int(int(millis(m.config.PollInterval)))},
		ldvalue.ObjectEntry{Key: "startWaitMillis", Value: ldvalue.Int(int(millis(m.startWaitTime)))},
		ldvalue.ObjectEntry{Key: "streamingDisabled", Value: ldvalue.Bool(!m.config.Stream)},
		ldvalue.ObjectEntry{Key: "usingRelayDaemon", Value: ldvalue.Bool(m.config.UseLDD)},
		ldvalue.ObjectEntry{Key: "offline", Value: ldvalue.Bool(m.config.Offline)},
		ldvalue.ObjectEntry{Key: "allAttributesPrivate", Value: ldvalue.Bool(m.config.AllAttributesPrivate)},
		ldvalue.ObjectEntry{Key: "inlineUsersInEvents", Value: ldvalue.Bool(m.config.InlineUsersInEvents)},
		ldvalue.ObjectEntry{Key: "userKeysCapacity", Value: ldvalue.Int(m.config.UserKeysCapacity)},
		ldvalue.ObjectEntry{Key: "userKeysFlushIntervalMillis", Value: ldvalue.Int(int(millis(m.config.UserKeysFlushInterval)))},
		ldvalue.ObjectEntry{Key: "usingProxy", Value: ldvalue.Bool(m.config.ProxyURL != "" || os.Getenv("HTTP_PROXY") != "")},
		ldvalue.ObjectEntry{Key: "diagnosticRecordingIntervalMillis", Value: ldvalue.Int(int(millis(m.config.DiagnosticRecordingInterval)))},
	)

	platform := ldvalue.Object(
		ldvalue.ObjectEntry{Key: "name", Value: ldvalue.String("Go")},
		ldvalue.ObjectEntry{Key: "goVersion", Value: ldvalue.String(runtime.Version())},
		ldvalue.ObjectEntry{Key: "osArch", Value: ldvalue.String(runtime.GOARCH)},
		ldvalue.ObjectEntry{Key: "osName", Value: ldvalue.String(normalizeOSName(runtime.GOOS))},
	)

	return ldvalue.Object(
		ldvalue.ObjectEntry{Key: "kind", Value: ldvalue.String("diagnostic-init")},
		ldvalue.ObjectEntry{Key: "id", Value: m.idValue()},
		ldvalue.ObjectEntry{Key: "creationDate", Value: ldvalue.Int(int(m.startTime))}, //nolint:gosec
		ldvalue.ObjectEntry{Key: "sdk", Value: sdk},
		ldvalue.ObjectEntry{Key: "configuration", Value: configuration},
		ldvalue.ObjectEntry{Key: "platform", Value: platform},
	)
}

// CanSendStatsEvent always permits the periodic event; this SDK has no test
// harness hook equivalent to the vendored implementation's gate channel.
func (m *diagnosticsManager) CanSendStatsEvent() bool {
	return true
}

// CreateStatsEventAndReset builds one diagnostic-periodic event and resets
// the "data since" window.
func (m *diagnosticsManager) CreateStatsEventAndReset(droppedEvents, deduplicatedUsers, eventsInLastBatch int) ldvalue.Value {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := toUnixMillis(time.Now())
	event := ldvalue.Object(
		ldvalue.ObjectEntry{Key: "kind", Value: ldvalue.String("diagnostic")},
		ldvalue.ObjectEntry{Key: "id", Value: m.idValue()},
		ldvalue.ObjectEntry{Key: "creationDate", Value: ldvalue.Int(int(now))}, //nolint:gosec
		ldvalue.ObjectEntry{Key: "dataSinceDate", Value: ldvalue.Int(int(m.dataSinceTime))}, //nolint:gosec
		ldvalue.ObjectEntry{Key: "droppedEvents", Value: ldvalue.Int(droppedEvents)},
		ldvalue.ObjectEntry{Key: "deduplicatedUsers", Value: ldvalue.Int(deduplicatedUsers)},
		ldvalue.ObjectEntry{Key: "eventsInLastBatch", Value: ldvalue.Int(eventsInLastBatch)},
	)
	m.dataSinceTime = now
	return event
}

func (m *diagnosticsManager) idValue() ldvalue.Value {
	entries := []ldvalue.ObjectEntry{{Key: "diagnosticId", Value: ldvalue.String(m.id.id)}}
	if m.id.sdkKeySuffix != "" {
		entries = append(entries, ldvalue.ObjectEntry{Key: "sdkKeySuffix", Value: ldvalue.String(m.id.sdkKeySuffix)})
	}
	return ldvalue.Object(entries...)
}

func normalizeOSName(osName string) string {
	switch osName {
	case "darwin":
		return "MacOS"
	case "windows":
		return "Windows"
	case "linux":
		return "Linux"
	}
	return osName
}
