package ldevents

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/launchdarkly/go-server-sdk/v7/ldmodel"
	"github.com/launchdarkly/go-server-sdk/v7/lduser"
	"github.com/launchdarkly/go-server-sdk/v7/ldvalue"
)

func TestFormatterOmitsUserWhenNotInlinedUsesKeyInstead(t *testing.T) {
	f := newEventOutputFormatter(EventsConfiguration{InlineUsersInEvents: false})
	user := lduser.NewUserBuilder("user-key").Build()
	evt := FeatureRequestEvent{
		BaseEvent: BaseEvent{CreationDate: 1, User: user},
		Key:       "flagA", HasVariation: true, Variation: 0,
		Value: ldvalue.Bool(true), Default: ldvalue.Bool(false), TrackEvents: true,
	}
	v, ok := f.makeOutputEvent(evt)
	require.True(t, ok)
	userKey, ok := v.GetByKey("userKey")
	require.True(t, ok)
	assert.Equal(t, "user-key", userKey.StringValue())
	_, hasUser := v.GetByKey("user")
	assert.False(t, hasUser)
}

func TestFormatterInlinesUserWhenConfigured(t *testing.T) {
	f := newEventOutputFormatter(EventsConfiguration{InlineUsersInEvents: true})
	user := lduser.NewUserBuilder("user-key").Build()
	evt := FeatureRequestEvent{
		BaseEvent: BaseEvent{CreationDate: 1, User: user},
		Key:       "flagA", HasVariation: true, Variation: 0,
		Value: ldvalue.Bool(true), Default: ldvalue.Bool(false), TrackEvents: true,
	}
	v, ok := f.makeOutputEvent(evt)
	require.True(t, ok)
	_, hasUser := v.GetByKey("user")
	assert.True(t, hasUser)
}

func TestFormatterDebugEventAlwaysInlinesUser(t *testing.T) {
	f := newEventOutputFormatter(EventsConfiguration{InlineUsersInEvents: false})
	user := lduser.NewUserBuilder("user-key").Build()
	evt := FeatureRequestEvent{
		BaseEvent: BaseEvent{CreationDate: 1, User: user},
		Key:       "flagA", HasVariation: true, Variation: 0,
		Value: ldvalue.Bool(true), Default: ldvalue.Bool(false), Debug: true,
	}
	v, ok := f.makeOutputEvent(evt)
	require.True(t, ok)
	_, hasUser := v.GetByKey("user")
	assert.True(t, hasUser)
	kind, _ := v.GetByKey("kind")
	assert.Equal(t, "debug", kind.StringValue())
}

func TestFormatterIncludesReasonWhenPresent(t *testing.T) {
	f := newEventOutputFormatter(EventsConfiguration{})
	user := lduser.NewUserBuilder("user-key").Build()
	evt := FeatureRequestEvent{
		BaseEvent: BaseEvent{CreationDate: 1, User: user},
		Key:       "flagA", HasVariation: true, Variation: 0,
		Value: ldvalue.Bool(true), Default: ldvalue.Bool(false),
		Reason: ldmodel.NewEvalReasonFallthrough(false),
	}
	v, ok := f.makeOutputEvent(evt)
	require.True(t, ok)
	reason, ok := v.GetByKey("reason")
	require.True(t, ok)
	kind, _ := reason.GetByKey("kind")
	assert.Equal(t, "FALLTHROUGH", kind.StringValue())
}

func TestMakeSummaryEventAggregatesCounters(t *testing.T) {
	f := newEventOutputFormatter(EventsConfiguration{})
	summary := eventSummary{
		startDate: 100,
		endDate:   200,
		counters: map[counterKey]*counterValue{
			{key: "flagA", variation: 0, version: 1}: {count: 2, flagValue: ldvalue.Bool(true), flagDefault: ldvalue.Bool(false)},
		},
	}
	v := f.makeSummaryEvent(summary)
	kind, _ := v.GetByKey("kind")
	assert.Equal(t, "summary", kind.StringValue())
	features, _ := v.GetByKey("features")
	flagA, ok := features.GetByKey("flagA")
	require.True(t, ok)
	counters, _ := flagA.GetByKey("counters")
	assert.Equal(t, 1, counters.Count())
}
