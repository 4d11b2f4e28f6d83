// Package ldclient is the application-facing entry point for the SDK: it
// wires together the data store, the data-source pipeline, the evaluation
// engine, and the event processor behind a small set of Variation/Track/
// Identify methods.
package ldclient

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/launchdarkly/go-server-sdk/v7/ldeval"
	"github.com/launchdarkly/go-server-sdk/v7/ldevents"
	"github.com/launchdarkly/go-server-sdk/v7/ldmodel"
	"github.com/launchdarkly/go-server-sdk/v7/ldstore"
	"github.com/launchdarkly/go-server-sdk/v7/ldstoretypes"
	"github.com/launchdarkly/go-server-sdk/v7/lduser"
	"github.com/launchdarkly/go-server-sdk/v7/ldvalue"

	"github.com/launchdarkly/go-server-sdk/v7/internal/datasource"
)

// Initialization errors returned by MakeClient/MakeCustomClient.
var (
	ErrInitializationTimeout = errors.New("timeout encountered waiting for LaunchDarkly client initialization")
	ErrInitializationFailed  = errors.New("LaunchDarkly client initialization failed")
	ErrClientNotInitialized  = errors.New("feature flag evaluation called before LaunchDarkly client initialization completed")
)

// dataSource is the subset of internal/datasource's StreamProcessor and
// PollingProcessor that the client needs to drive startup and shutdown.
type dataSource interface {
	Initialized() bool
	Start(closeWhenReady chan<- struct{})
	Close() error
}

type nullDataSource struct{}

func (nullDataSource) Initialized() bool                    { return true }
func (nullDataSource) Close() error                         { return nil }
func (nullDataSource) Start(closeWhenReady chan<- struct{}) { close(closeWhenReady) }

// LDClient is the LaunchDarkly client. A single instance should be created
// for the lifetime of an application; it is safe for concurrent use.
type LDClient struct {
	sdkKey         string
	config         Config
	store          ldstoretypes.Store
	dataSource     dataSource
	eventProcessor ldevents.EventProcessor
}

// MakeClient creates a client with the default configuration, blocking up
// to waitFor for initial data-source synchronization.
func MakeClient(sdkKey string, waitFor time.Duration) (*LDClient, error) {
	return MakeCustomClient(sdkKey, DefaultConfig, waitFor)
}

// MakeCustomClient creates a client with a caller-supplied configuration,
// blocking up to waitFor for initial data-source synchronization. If
// waitFor is 0, the call returns immediately and Variation calls made
// before the store is initialized fall back to their default values.
func MakeCustomClient(sdkKey string, config Config, waitFor time.Duration) (*LDClient, error) {
	config = config.applyDefaults()
	config.Loggers.Infof("Starting LaunchDarkly client %s", Version)

	store, err := buildStore(config)
	if err != nil {
		return nil, err
	}

	client := &LDClient{sdkKey: sdkKey, config: config, store: store}

	var diagnosticsManager *diagnosticsManager
	if !config.DiagnosticOptOut && config.SendEvents && !config.Offline {
		diagnosticsManager = newDiagnosticsManager(sdkKey, config, waitFor)
	}

	httpClient, err := config.newHTTPClient()
	if err != nil {
		return nil, err
	}

	client.eventProcessor = buildEventProcessor(sdkKey, config, httpClient, diagnosticsManager)
	client.dataSource = buildDataSource(sdkKey, config, httpClient, store)

	closeWhenReady := make(chan struct{})
	client.dataSource.Start(closeWhenReady)

	if waitFor <= 0 {
		go func() { <-closeWhenReady }()
		return client, nil
	}

	config.Loggers.Infof("Waiting up to %d milliseconds for LaunchDarkly client to start...", waitFor/time.Millisecond)
	select {
	case <-closeWhenReady:
		if !client.Initialized() {
			config.Loggers.Warn("LaunchDarkly client initialization failed")
			return client, ErrInitializationFailed
		}
		config.Loggers.Info("Successfully initialized LaunchDarkly client!")
		return client, nil
	case <-time.After(waitFor):
		config.Loggers.Warn("Timeout encountered waiting for LaunchDarkly client initialization")
		go func() { <-closeWhenReady }()
		return client, ErrInitializationTimeout
	}
}

func buildStore(config Config) (ldstoretypes.Store, error) {
	if config.FeatureStore != nil {
		return config.FeatureStore, nil
	}
	if config.PersistentDataStore != nil && config.PersistentDataStoreSerializer != nil {
		return ldstore.NewCachingStore(config.PersistentDataStore, config.PersistentDataStoreSerializer, config.PersistentDataStoreCacheTTL), nil
	}
	return ldstore.NewMemoryStore(), nil
}

func buildEventProcessor(sdkKey string, config Config, httpClient *http.Client, diagnostics *diagnosticsManager) ldevents.EventProcessor {
	if !config.SendEvents || config.Offline {
		return ldevents.NewNullEventProcessor()
	}
	sender := ldevents.NewServerSideEventSender(httpClient, sdkKey, config.EventsURI, config.UserAgent, config.Loggers)
	eventsConfig := ldevents.EventsConfiguration{
		Capacity:                    config.Capacity,
		FlushInterval:               config.FlushInterval,
		UserKeysCapacity:            config.UserKeysCapacity,
		UserKeysFlushInterval:       config.UserKeysFlushInterval,
		InlineUsersInEvents:         config.InlineUsersInEvents,
		AllAttributesPrivate:        config.AllAttributesPrivate,
		GlobalPrivateAttributeNames: config.PrivateAttributeNames,
		EventSender:                 sender,
		Loggers:                     config.Loggers,
		DiagnosticRecordingInterval: config.DiagnosticRecordingInterval,
	}
	if diagnostics != nil {
		eventsConfig.DiagnosticsManager = diagnostics
	}
	return ldevents.NewDefaultEventProcessor(eventsConfig)
}

func buildDataSource(sdkKey string, config Config, httpClient *http.Client, store ldstoretypes.Store) dataSource {
	if config.Offline || config.UseLDD {
		return nullDataSource{}
	}
	if config.Stream {
		return datasource.NewStreamProcessor(config.StreamURI, sdkKey, config.UserAgent, httpClient, store, config.Loggers)
	}
	config.Loggers.Warn("You should only disable the streaming API if instructed to do so by LaunchDarkly support")
	return datasource.NewPollingProcessor(config.BaseURI, sdkKey, config.UserAgent, httpClient, store, config.Loggers, config.PollInterval)
}

// Initialized reports whether the client has received its first full data
// set (always true when offline or in daemon mode).
func (c *LDClient) Initialized() bool {
	return c.config.Offline || c.config.UseLDD || c.dataSource.Initialized()
}

// IsOffline reports whether the client is in offline mode.
func (c *LDClient) IsOffline() bool {
	return c.config.Offline
}

// Identify reports details about a user, without evaluating any flag.
func (c *LDClient) Identify(user lduser.User) error {
	if user.Key() == "" {
		c.config.Loggers.Warn("Identify called with empty user key!")
		return nil
	}
	c.eventProcessor.SendEvent(ldevents.NewIdentifyEvent(user, nowMillis()))
	return nil
}

// TrackEvent reports that a user has performed an event named eventName.
func (c *LDClient) TrackEvent(eventName string, user lduser.User) error {
	return c.TrackData(eventName, user, ldvalue.Null())
}

// TrackData reports a custom event with an attached JSON-shaped payload.
func (c *LDClient) TrackData(eventName string, user lduser.User, data ldvalue.Value) error {
	if user.Key() == "" {
		c.config.Loggers.Warn("Track called with empty user key!")
		return nil
	}
	c.eventProcessor.SendEvent(ldevents.NewCustomEvent(eventName, user, data, !data.IsNull(), nil, nowMillis()))
	return nil
}

// TrackMetric reports a custom event with both a numeric metric value (used
// by experimentation) and an attached JSON-shaped payload.
func (c *LDClient) TrackMetric(eventName string, user lduser.User, metricValue float64, data ldvalue.Value) error {
	if user.Key() == "" {
		c.config.Loggers.Warn("Track called with empty user key!")
		return nil
	}
	mv := metricValue
	c.eventProcessor.SendEvent(ldevents.NewCustomEvent(eventName, user, data, !data.IsNull(), &mv, nowMillis()))
	return nil
}

// SecureModeHash returns the HMAC-SHA256 hex digest of user.Key() keyed by
// the SDK key, for client-side "secure mode" bootstrapping.
func (c *LDClient) SecureModeHash(user lduser.User) string {
	if user.Key() == "" {
		return ""
	}
	h := hmac.New(sha256.New, []byte(c.sdkKey))
	_, _ = h.Write([]byte(user.Key()))
	return hex.EncodeToString(h.Sum(nil))
}

// Flush requests an immediate, asynchronous delivery of any buffered
// analytics events.
func (c *LDClient) Flush() {
	c.eventProcessor.Flush()
}

// Close shuts the client down: it stops the data source, flushes and stops
// the event processor, and releases the store. The client must not be used
// afterward. For an offline client Close does nothing.
func (c *LDClient) Close() error {
	c.config.Loggers.Info("Closing LaunchDarkly client")
	if c.IsOffline() {
		return nil
	}
	_ = c.eventProcessor.Close()
	_ = c.dataSource.Close()
	_ = c.store.Close()
	return nil
}

// AllFlags evaluates every known flag for user, silently (no feature
// events are generated), and returns a map from flag key to value. Flags
// that would evaluate to an error are omitted.
func (c *LDClient) AllFlags(user lduser.User) map[string]ldvalue.Value {
	result := map[string]ldvalue.Value{}
	if c.IsOffline() || user.Key() == "" {
		return result
	}
	items, err := c.store.All(ldstoretypes.Features)
	if err != nil {
		c.config.Loggers.Warn("Unable to fetch flags from feature store: " + err.Error())
		return result
	}
	provider := storeDataProvider{store: c.store}
	for _, ki := range items {
		flag, ok := ki.Item.Item.(*ldmodel.FeatureFlag)
		if !ok {
			continue
		}
		eval := ldeval.Evaluate(flag, user, provider)
		if eval.Detail.HasVariation {
			result[flag.Key] = eval.Detail.Value
		}
	}
	return result
}

// BoolVariation returns the value of a boolean flag for user, or defaultVal
// if evaluation fails for any reason.
func (c *LDClient) BoolVariation(key string, user lduser.User, defaultVal bool) (bool, error) {
	detail, err := c.variation(key, user, ldvalue.Bool(defaultVal), true)
	return detail.Value.BoolValue(), err
}

// BoolVariationDetail is BoolVariation plus the full evaluation reason.
func (c *LDClient) BoolVariationDetail(key string, user lduser.User, defaultVal bool) (bool, ldmodel.EvaluationDetail, error) {
	detail, err := c.variation(key, user, ldvalue.Bool(defaultVal), true)
	return detail.Value.BoolValue(), detail, err
}

// IntVariation returns the value of a numeric flag for user, truncated
// toward zero, or defaultVal if evaluation fails for any reason.
func (c *LDClient) IntVariation(key string, user lduser.User, defaultVal int) (int, error) {
	detail, err := c.variation(key, user, ldvalue.Int(defaultVal), true)
	return detail.Value.IntValue(), err
}

// IntVariationDetail is IntVariation plus the full evaluation reason.
func (c *LDClient) IntVariationDetail(key string, user lduser.User, defaultVal int) (int, ldmodel.EvaluationDetail, error) {
	detail, err := c.variation(key, user, ldvalue.Int(defaultVal), true)
	return detail.Value.IntValue(), detail, err
}

// Float64Variation returns the value of a numeric flag for user, or
// defaultVal if evaluation fails for any reason.
func (c *LDClient) Float64Variation(key string, user lduser.User, defaultVal float64) (float64, error) {
	detail, err := c.variation(key, user, ldvalue.Float64(defaultVal), true)
	return detail.Value.Float64Value(), err
}

// Float64VariationDetail is Float64Variation plus the full evaluation reason.
func (c *LDClient) Float64VariationDetail(key string, user lduser.User, defaultVal float64) (float64, ldmodel.EvaluationDetail, error) {
	detail, err := c.variation(key, user, ldvalue.Float64(defaultVal), true)
	return detail.Value.Float64Value(), detail, err
}

// StringVariation returns the value of a string flag for user, or
// defaultVal if evaluation fails for any reason.
func (c *LDClient) StringVariation(key string, user lduser.User, defaultVal string) (string, error) {
	detail, err := c.variation(key, user, ldvalue.String(defaultVal), true)
	return detail.Value.StringValue(), err
}

// StringVariationDetail is StringVariation plus the full evaluation reason.
func (c *LDClient) StringVariationDetail(key string, user lduser.User, defaultVal string) (string, ldmodel.EvaluationDetail, error) {
	detail, err := c.variation(key, user, ldvalue.String(defaultVal), true)
	return detail.Value.StringValue(), detail, err
}

// JSONVariation returns the value of a flag for user without restricting
// its JSON type, or defaultVal if evaluation fails for any reason.
func (c *LDClient) JSONVariation(key string, user lduser.User, defaultVal ldvalue.Value) (ldvalue.Value, error) {
	detail, err := c.variation(key, user, defaultVal, false)
	return detail.Value, err
}

// JSONVariationDetail is JSONVariation plus the full evaluation reason.
func (c *LDClient) JSONVariationDetail(key string, user lduser.User, defaultVal ldvalue.Value) (ldvalue.Value, ldmodel.EvaluationDetail, error) {
	detail, err := c.variation(key, user, defaultVal, false)
	return detail.Value, detail, err
}

// variation drives one flag evaluation end-to-end: store lookup, the
// evaluation engine, prerequisite event emission, a type check (unless the
// caller is using the untyped JSON accessor), and the resulting feature
// event.
func (c *LDClient) variation(key string, user lduser.User, defaultVal ldvalue.Value, checkType bool) (ldmodel.EvaluationDetail, error) {
	if c.IsOffline() {
		detail := ldmodel.NewEvaluationError(ldmodel.EvalErrorClientNotReady)
		detail.Value = defaultVal
		return detail, nil
	}

	detail, flag, requiresTracking, err := c.evaluateInternal(key, user, defaultVal)
	if err != nil {
		detail.Value = defaultVal
		detail.HasVariation = false
	} else if checkType && !defaultVal.IsNull() && !detail.Value.IsNull() && detail.Value.Type() != defaultVal.Type() {
		detail = ldmodel.NewEvaluationError(ldmodel.EvalErrorWrongType)
		detail.Value = defaultVal
	}

	evt := ldevents.NewFeatureRequestEvent(key, flag, user, detail.VariationIndex, detail.HasVariation,
		detail.Value, defaultVal, detail.Reason, "", false, nowMillis())
	evt.TrackEvents = evt.TrackEvents || requiresTracking
	c.eventProcessor.SendEvent(evt)

	return detail, err
}

// evaluateInternal performs the lookup and evaluation, sending a feature
// event for every prerequisite encountered along the way, and reports
// whether the resulting path itself requests tracking independent of the
// flag's own TrackEvents flag.
func (c *LDClient) evaluateInternal(key string, user lduser.User, defaultVal ldvalue.Value) (ldmodel.EvaluationDetail, *ldmodel.FeatureFlag, bool, error) {
	if !c.Initialized() {
		if c.store.Initialized() {
			c.config.Loggers.Warn("Feature flag evaluation called before client initialization completed; using last known values from feature store")
		} else {
			return ldmodel.NewEvaluationError(ldmodel.EvalErrorClientNotReady), nil, false, ErrClientNotInitialized
		}
	}

	provider := storeDataProvider{store: c.store}
	flag, ok := provider.GetFlag(key)
	if !ok {
		return ldmodel.NewEvaluationError(ldmodel.EvalErrorFlagNotFound), nil, false,
			fmt.Errorf("unknown feature key: %s", key)
	}

	if user.Key() == "" {
		return ldmodel.NewEvaluationError(ldmodel.EvalErrorUserNotSpecified), flag, false,
			fmt.Errorf("user key must not be empty when evaluating flag: %s", key)
	}

	result := ldeval.Evaluate(flag, user, provider)
	for _, prereq := range result.PrerequisiteEvents {
		evt := ldevents.NewFeatureRequestEvent(prereq.PrerequisiteFlag.Key, prereq.PrerequisiteFlag, user,
			prereq.Detail.VariationIndex, prereq.Detail.HasVariation, prereq.Detail.Value, ldvalue.Null(),
			prereq.Detail.Reason, prereq.PrereqOfKey, true, nowMillis())
		evt.TrackEvents = true
		c.eventProcessor.SendEvent(evt)
	}

	if result.Detail.Reason.Kind == ldmodel.EvalReasonError && c.config.LogEvaluationErrors {
		c.config.Loggers.Warnf("flag evaluation for %s failed with error %s, default value was returned",
			key, result.Detail.Reason.ErrorKind)
	}
	if !result.Detail.HasVariation {
		result.Detail.Value = defaultVal
	}
	return result.Detail, flag, result.RequiresTracking, nil
}

func nowMillis() uint64 {
	return toUnixMillis(time.Now())
}
