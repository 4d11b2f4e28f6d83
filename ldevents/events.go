// Package ldevents implements analytics event construction, summarization,
// deduplication, and delivery. It is independent of the evaluation engine:
// callers construct events from evaluation results and hand them to an
// EventProcessor.
package ldevents

import (
	"github.com/launchdarkly/go-server-sdk/v7/ldmodel"
	"github.com/launchdarkly/go-server-sdk/v7/lduser"
	"github.com/launchdarkly/go-server-sdk/v7/ldvalue"
)

// Event kind discriminators, used both internally and in the "kind" field
// of serialized output events.
const (
	FeatureRequestEventKind = "feature"
	DebugEventKind          = "debug"
	IdentifyEventKind       = "identify"
	CustomEventKind         = "custom"
	IndexEventKind          = "index"
	SummaryEventKind        = "summary"
)

// Event is implemented by every event type the processor accepts.
type Event interface {
	GetBase() BaseEvent
}

// BaseEvent holds the fields common to every event type.
type BaseEvent struct {
	CreationDate uint64
	User         lduser.User
}

// GetBase satisfies Event.
func (b BaseEvent) GetBase() BaseEvent { return b }

// FeatureRequestEvent records a single flag evaluation.
type FeatureRequestEvent struct {
	BaseEvent
	Key                  string
	Value                ldvalue.Value
	Default              ldvalue.Value
	Variation            int
	HasVariation         bool
	Version              int
	HasVersion           bool
	PrereqOf             string
	HasPrereqOf          bool
	Reason               ldmodel.EvaluationReason
	TrackEvents          bool
	DebugEventsUntilDate uint64
	Debug                bool
}

// IdentifyEvent records explicit user identification.
type IdentifyEvent struct {
	BaseEvent
}

// CustomEvent records an application-defined custom event.
type CustomEvent struct {
	BaseEvent
	Key         string
	Data        ldvalue.Value
	HasData     bool
	MetricValue *float64
}

// IndexEvent notes the first time a particular user was seen within the
// current flush window, carrying the full user document.
type IndexEvent struct {
	BaseEvent
}

// NewFeatureRequestEvent constructs a feature event from an evaluation
// result for the flag named key.
func NewFeatureRequestEvent(
	key string,
	flag *ldmodel.FeatureFlag,
	user lduser.User,
	variation int,
	hasVariation bool,
	value, defaultVal ldvalue.Value,
	reason ldmodel.EvaluationReason,
	prereqOf string,
	hasPrereqOf bool,
	creationDate uint64,
) FeatureRequestEvent {
	evt := FeatureRequestEvent{
		BaseEvent:    BaseEvent{CreationDate: creationDate, User: user},
		Key:          key,
		Value:        value,
		Default:      defaultVal,
		Variation:    variation,
		HasVariation: hasVariation,
		Reason:       reason,
		PrereqOf:     prereqOf,
		HasPrereqOf:  hasPrereqOf,
	}
	if flag != nil {
		evt.Version = flag.Version
		evt.HasVersion = true
		evt.TrackEvents = flag.TrackEvents
		if flag.DebugEventsUntilDate != nil {
			evt.DebugEventsUntilDate = uint64(*flag.DebugEventsUntilDate) //nolint:gosec // timestamps are always non-negative
		}
	}
	return evt
}

// NewIdentifyEvent constructs an identify event for user.
func NewIdentifyEvent(user lduser.User, creationDate uint64) IdentifyEvent {
	return IdentifyEvent{BaseEvent{CreationDate: creationDate, User: user}}
}

// NewCustomEvent constructs a custom event. data and metricValue are
// optional; pass hasData=false / metricValue=nil to omit them.
func NewCustomEvent(
	key string,
	user lduser.User,
	data ldvalue.Value,
	hasData bool,
	metricValue *float64,
	creationDate uint64,
) CustomEvent {
	return CustomEvent{
		BaseEvent:   BaseEvent{CreationDate: creationDate, User: user},
		Key:         key,
		Data:        data,
		HasData:     hasData,
		MetricValue: metricValue,
	}
}
