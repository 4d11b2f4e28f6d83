package ldclient

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/launchdarkly/go-server-sdk/v7/ldevents"
	"github.com/launchdarkly/go-server-sdk/v7/ldmodel"
	"github.com/launchdarkly/go-server-sdk/v7/ldstore"
	"github.com/launchdarkly/go-server-sdk/v7/ldstoretypes"
	"github.com/launchdarkly/go-server-sdk/v7/lduser"
	"github.com/launchdarkly/go-server-sdk/v7/ldvalue"
)

type fakeEventProcessor struct {
	events []ldevents.Event
	closed bool
	flushed int
}

func (f *fakeEventProcessor) SendEvent(e ldevents.Event) { f.events = append(f.events, e) }
func (f *fakeEventProcessor) Flush()                      { f.flushed++ }
func (f *fakeEventProcessor) Close() error                 { f.closed = true; return nil }

func (f *fakeEventProcessor) featureEvents() []ldevents.FeatureRequestEvent {
	var out []ldevents.FeatureRequestEvent
	for _, e := range f.events {
		if fe, ok := e.(ldevents.FeatureRequestEvent); ok {
			out = append(out, fe)
		}
	}
	return out
}

func boolVariations(vs ...bool) []ldvalue.Value {
	out := make([]ldvalue.Value, len(vs))
	for i, v := range vs {
		out[i] = ldvalue.Bool(v)
	}
	return out
}

func newTestClient(t *testing.T) (*LDClient, *ldstore.MemoryStore, *fakeEventProcessor) {
	t.Helper()
	store := ldstore.NewMemoryStore()
	require.NoError(t, store.Init(map[ldstoretypes.DataKind][]ldstoretypes.KeyedItemDescriptor{
		ldstoretypes.Features: {},
		ldstoretypes.Segments: {},
	}))
	events := &fakeEventProcessor{}
	client := &LDClient{
		sdkKey:         "test-sdk-key",
		config:         DefaultConfig.applyDefaults(),
		store:          store,
		dataSource:     nullDataSource{},
		eventProcessor: events,
	}
	return client, store, events
}

func upsertFlag(t *testing.T, store *ldstore.MemoryStore, flag *ldmodel.FeatureFlag) {
	t.Helper()
	require.NoError(t, store.Upsert(ldstoretypes.Features, flag.Key, ldstoretypes.ItemDescriptor{Version: flag.Version, Item: flag}))
}

func TestBoolVariationReturnsMatchedValue(t *testing.T) {
	client, store, events := newTestClient(t)
	upsertFlag(t, store, &ldmodel.FeatureFlag{
		Key: "bool-flag", On: true, Version: 1,
		Variations:  boolVariations(false, true),
		Fallthrough: ldmodel.VariationOrRollout{HasVariation: true, Variation: 1},
	})

	value, err := client.BoolVariation("bool-flag", lduser.NewUserBuilder("u1").Build(), false)

	require.NoError(t, err)
	assert.True(t, value)
	require.Len(t, events.featureEvents(), 1)
	assert.Equal(t, "bool-flag", events.featureEvents()[0].Key)
}

func TestBoolVariationFallsBackOnUnknownFlag(t *testing.T) {
	client, _, events := newTestClient(t)

	value, err := client.BoolVariation("missing-flag", lduser.NewUserBuilder("u1").Build(), true)

	require.Error(t, err)
	assert.True(t, value)
	require.Len(t, events.featureEvents(), 1)
	assert.Equal(t, ldmodel.EvalErrorFlagNotFound, events.featureEvents()[0].Reason.ErrorKind)
}

func TestBoolVariationFallsBackOnEmptyUserKey(t *testing.T) {
	client, store, _ := newTestClient(t)
	upsertFlag(t, store, &ldmodel.FeatureFlag{Key: "f", On: true, Variations: boolVariations(true)})

	value, err := client.BoolVariation("f", lduser.User{}, false)

	require.Error(t, err)
	assert.False(t, value)
}

func TestBoolVariationFallsBackOnWrongType(t *testing.T) {
	client, store, _ := newTestClient(t)
	upsertFlag(t, store, &ldmodel.FeatureFlag{
		Key: "string-flag", On: true,
		Variations:  []ldvalue.Value{ldvalue.String("not-a-bool")},
		Fallthrough: ldmodel.VariationOrRollout{HasVariation: true, Variation: 0},
	})

	value, err := client.BoolVariation("string-flag", lduser.NewUserBuilder("u1").Build(), true)

	require.NoError(t, err)
	assert.True(t, value)
}

func TestStringVariationDetailReportsReason(t *testing.T) {
	client, store, _ := newTestClient(t)
	upsertFlag(t, store, &ldmodel.FeatureFlag{
		Key: "s", On: true,
		Variations:  []ldvalue.Value{ldvalue.String("a"), ldvalue.String("b")},
		Fallthrough: ldmodel.VariationOrRollout{HasVariation: true, Variation: 1},
	})

	value, detail, err := client.StringVariationDetail("s", lduser.NewUserBuilder("u1").Build(), "default")

	require.NoError(t, err)
	assert.Equal(t, "b", value)
	assert.Equal(t, ldmodel.EvalReasonFallthrough, detail.Reason.Kind)
}

func TestVariationSendsTrackedEventWhenRuleRequestsTracking(t *testing.T) {
	client, store, events := newTestClient(t)
	upsertFlag(t, store, &ldmodel.FeatureFlag{
		Key: "rule-flag", On: true, TrackEvents: false,
		Variations: boolVariations(false, true),
		Rules: []ldmodel.Rule{
			{
				ID:                 "rule1",
				TrackEvents:        true,
				VariationOrRollout: ldmodel.VariationOrRollout{HasVariation: true, Variation: 1},
				Clauses: []ldmodel.Clause{
					{Attribute: "key", Op: ldmodel.OperatorIn, Values: []ldvalue.Value{ldvalue.String("u1")}},
				},
			},
		},
	})

	_, err := client.BoolVariation("rule-flag", lduser.NewUserBuilder("u1").Build(), false)

	require.NoError(t, err)
	require.Len(t, events.featureEvents(), 1)
	assert.True(t, events.featureEvents()[0].TrackEvents)
}

func TestPrerequisiteEvaluationEmitsForcedTrackedEvent(t *testing.T) {
	client, store, events := newTestClient(t)
	upsertFlag(t, store, &ldmodel.FeatureFlag{
		Key: "prereq", On: true, Version: 3, TrackEvents: false,
		Variations:  boolVariations(false, true),
		Fallthrough: ldmodel.VariationOrRollout{HasVariation: true, Variation: 1},
	})
	upsertFlag(t, store, &ldmodel.FeatureFlag{
		Key: "main", On: true, TrackEvents: false,
		Variations:    boolVariations(false, true),
		Prerequisites: []ldmodel.Prerequisite{{Key: "prereq", Variation: 1}},
		Fallthrough:   ldmodel.VariationOrRollout{HasVariation: true, Variation: 1},
	})

	value, err := client.BoolVariation("main", lduser.NewUserBuilder("u1").Build(), false)

	require.NoError(t, err)
	assert.True(t, value)
	fes := events.featureEvents()
	require.Len(t, fes, 2)
	assert.Equal(t, "prereq", fes[0].Key)
	assert.True(t, fes[0].TrackEvents)
	assert.Equal(t, "main", fes[0].PrereqOf)
	assert.Equal(t, "main", fes[1].Key)
}

func TestAllFlagsSkipsErrorsAndSendsNoEvents(t *testing.T) {
	client, store, events := newTestClient(t)
	upsertFlag(t, store, &ldmodel.FeatureFlag{
		Key: "a", On: true, Variations: boolVariations(true), Fallthrough: ldmodel.VariationOrRollout{HasVariation: true, Variation: 0},
	})
	upsertFlag(t, store, &ldmodel.FeatureFlag{
		Key: "b", On: true, Variations: boolVariations(false), Fallthrough: ldmodel.VariationOrRollout{},
	})

	result := client.AllFlags(lduser.NewUserBuilder("u1").Build())

	assert.Equal(t, ldvalue.Bool(true), result["a"])
	_, hasB := result["b"]
	assert.False(t, hasB)
	assert.Empty(t, events.events)
}

func TestAllFlagsReturnsEmptyForOfflineOrEmptyUserKey(t *testing.T) {
	client, store, _ := newTestClient(t)
	upsertFlag(t, store, &ldmodel.FeatureFlag{Key: "a", On: true, Variations: boolVariations(true), Fallthrough: ldmodel.VariationOrRollout{HasVariation: true, Variation: 0}})

	assert.Empty(t, client.AllFlags(lduser.User{}))

	client.config.Offline = true
	assert.Empty(t, client.AllFlags(lduser.NewUserBuilder("u1").Build()))
}

func TestIdentifySendsIdentifyEvent(t *testing.T) {
	client, _, events := newTestClient(t)

	require.NoError(t, client.Identify(lduser.NewUserBuilder("u1").Build()))

	require.Len(t, events.events, 1)
	_, ok := events.events[0].(ldevents.IdentifyEvent)
	assert.True(t, ok)
}

func TestIdentifyWithEmptyKeyIsANoOp(t *testing.T) {
	client, _, events := newTestClient(t)

	require.NoError(t, client.Identify(lduser.User{}))

	assert.Empty(t, events.events)
}

func TestTrackEventSendsCustomEventWithNoData(t *testing.T) {
	client, _, events := newTestClient(t)

	require.NoError(t, client.TrackEvent("some-event", lduser.NewUserBuilder("u1").Build()))

	require.Len(t, events.events, 1)
	ce, ok := events.events[0].(ldevents.CustomEvent)
	require.True(t, ok)
	assert.False(t, ce.HasData)
	assert.Nil(t, ce.MetricValue)
}

func TestTrackMetricSendsCustomEventWithMetricValue(t *testing.T) {
	client, _, events := newTestClient(t)

	require.NoError(t, client.TrackMetric("purchase", lduser.NewUserBuilder("u1").Build(), 42.5, ldvalue.String("gold")))

	require.Len(t, events.events, 1)
	ce, ok := events.events[0].(ldevents.CustomEvent)
	require.True(t, ok)
	require.NotNil(t, ce.MetricValue)
	assert.Equal(t, 42.5, *ce.MetricValue)
	assert.Equal(t, "gold", ce.Data.StringValue())
}

func TestSecureModeHashIsStableAndKeyed(t *testing.T) {
	client, _, _ := newTestClient(t)
	user := lduser.NewUserBuilder("Message").Build()

	hash := client.SecureModeHash(user)

	assert.NotEmpty(t, hash)
	assert.Equal(t, hash, client.SecureModeHash(user))

	other := &LDClient{sdkKey: "different-key"}
	assert.NotEqual(t, hash, other.SecureModeHash(user))
}

func TestSecureModeHashOfEmptyKeyIsEmpty(t *testing.T) {
	client, _, _ := newTestClient(t)
	assert.Equal(t, "", client.SecureModeHash(lduser.User{}))
}

func TestFlushDelegatesToEventProcessor(t *testing.T) {
	client, _, events := newTestClient(t)
	client.Flush()
	assert.Equal(t, 1, events.flushed)
}

func TestCloseClosesEventProcessor(t *testing.T) {
	client, _, events := newTestClient(t)
	require.NoError(t, client.Close())
	assert.True(t, events.closed)
}

func TestCloseIsANoOpWhenOffline(t *testing.T) {
	client, _, events := newTestClient(t)
	client.config.Offline = true
	require.NoError(t, client.Close())
	assert.False(t, events.closed)
}

func TestInitializedReflectsDataSourceAndDaemonMode(t *testing.T) {
	client, _, _ := newTestClient(t)
	assert.True(t, client.Initialized())

	client.dataSource = notReadyDataSource{}
	assert.False(t, client.Initialized())

	client.config.UseLDD = true
	assert.True(t, client.Initialized())
}

type notReadyDataSource struct{}

func (notReadyDataSource) Initialized() bool                    { return false }
func (notReadyDataSource) Close() error                         { return nil }
func (notReadyDataSource) Start(closeWhenReady chan<- struct{}) { close(closeWhenReady) }

func TestMakeCustomClientOfflineReturnsImmediately(t *testing.T) {
	config := DefaultConfig
	config.Offline = true

	client, err := MakeCustomClient("sdk-key", config, time.Second)

	require.NoError(t, err)
	assert.True(t, client.Initialized())
	assert.True(t, client.IsOffline())
	require.NoError(t, client.Close())
}

func TestMakeCustomClientDaemonModeUsesSuppliedStore(t *testing.T) {
	store := ldstore.NewMemoryStore()
	require.NoError(t, store.Init(map[ldstoretypes.DataKind][]ldstoretypes.KeyedItemDescriptor{
		ldstoretypes.Features: {{Key: "f", Item: ldstoretypes.ItemDescriptor{Version: 1, Item: &ldmodel.FeatureFlag{
			Key: "f", On: true, Variations: boolVariations(true), Fallthrough: ldmodel.VariationOrRollout{HasVariation: true, Variation: 0},
		}}}},
	}))
	config := DefaultConfig
	config.UseLDD = true
	config.FeatureStore = store
	config.SendEvents = false

	client, err := MakeCustomClient("sdk-key", config, time.Second)
	require.NoError(t, err)
	defer client.Close()

	assert.True(t, client.Initialized())
	value, err := client.BoolVariation("f", lduser.NewUserBuilder("u1").Build(), false)
	require.NoError(t, err)
	assert.True(t, value)
}
