package ldevents

import (
	"time"

	"github.com/launchdarkly/go-server-sdk/v7/internal/ldlog"
	"github.com/launchdarkly/go-server-sdk/v7/ldvalue"
)

const (
	// DefaultFlushInterval is how often the event processor delivers a batch
	// when the application never calls Flush explicitly.
	DefaultFlushInterval = 5 * time.Second
	// DefaultCapacity bounds how many events are buffered between flushes.
	DefaultCapacity = 10000
	// DefaultUserKeysCapacity bounds the index-event dedup cache.
	DefaultUserKeysCapacity = 1000
	// DefaultUserKeysFlushInterval is how often the dedup cache is cleared.
	DefaultUserKeysFlushInterval = 5 * time.Minute
	// DefaultDiagnosticRecordingInterval is how often a periodic diagnostic
	// event is emitted.
	DefaultDiagnosticRecordingInterval = 15 * time.Minute
	// MinimumDiagnosticRecordingInterval is the smallest interval the SDK
	// will honor for diagnostic recording, to keep a misconfiguration from
	// flooding the events service.
	MinimumDiagnosticRecordingInterval = 60 * time.Second
)

// EventsConfiguration carries everything the event processor needs: how
// much to buffer, how often to flush, how to redact users, and where to
// send payloads.
type EventsConfiguration struct {
	Capacity                    int
	FlushInterval               time.Duration
	UserKeysCapacity            int
	UserKeysFlushInterval       time.Duration
	InlineUsersInEvents         bool
	AllAttributesPrivate        bool
	GlobalPrivateAttributeNames []string
	EventSender                 EventSender
	Loggers                     ldlog.Loggers
	DiagnosticsManager           DiagnosticsManager
	DiagnosticRecordingInterval time.Duration

	currentTimeProvider func() uint64
}

// DiagnosticsManager produces the opaque JSON documents sent as
// diagnostic-init and diagnostic-periodic events. A nil DiagnosticsManager
// in EventsConfiguration disables diagnostics entirely.
type DiagnosticsManager interface {
	CreateInitEvent() ldvalue.Value
	CanSendStatsEvent() bool
	CreateStatsEventAndReset(droppedEvents, deduplicatedUsers, eventsInLastBatch int) ldvalue.Value
}
