package ldclient

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDiagnosticIDUsesKeySuffix(t *testing.T) {
	id := newDiagnosticID("sdk-1234567890")

	assert.Equal(t, "7890", id.sdkKeySuffix[len(id.sdkKeySuffix)-4:])
	assert.Len(t, id.sdkKeySuffix, 6)
	assert.NotEmpty(t, id.id)
}

func TestNewDiagnosticIDKeepsShortKeyWhole(t *testing.T) {
	id := newDiagnosticID("abc")

	assert.Equal(t, "abc", id.sdkKeySuffix)
}

func TestCreateInitEventShape(t *testing.T) {
	config := DefaultConfig.applyDefaults()
	manager := newDiagnosticsManager("sdk-key", config, 2*time.Second)

	event := manager.CreateInitEvent()

	kind, ok := event.GetByKey("kind")
	require.True(t, ok)
	assert.Equal(t, "diagnostic-init", kind.StringValue())

	sdk, ok := event.GetByKey("sdk")
	require.True(t, ok)
	name, _ := sdk.GetByKey("name")
	version, _ := sdk.GetByKey("version")
	assert.Equal(t, "go-server-sdk", name.StringValue())
	assert.Equal(t, Version, version.StringValue())

	configuration, ok := event.GetByKey("configuration")
	require.True(t, ok)
	customBaseURI, _ := configuration.GetByKey("customBaseURI")
	dataStoreType, _ := configuration.GetByKey("dataStoreType")
	startWaitMillis, _ := configuration.GetByKey("startWaitMillis")
	assert.False(t, customBaseURI.BoolValue())
	assert.Equal(t, "memory", dataStoreType.StringValue())
	assert.Equal(t, 2000, startWaitMillis.IntValue())
}

func TestCreateInitEventIncludesWrapperFields(t *testing.T) {
	config := DefaultConfig.applyDefaults()
	config.WrapperName = "my-wrapper"
	config.WrapperVersion = "1.2.3"
	manager := newDiagnosticsManager("sdk-key", config, 0)

	sdk, ok := manager.CreateInitEvent().GetByKey("sdk")
	require.True(t, ok)
	wrapperName, _ := sdk.GetByKey("wrapperName")
	wrapperVersion, _ := sdk.GetByKey("wrapperVersion")

	assert.Equal(t, "my-wrapper", wrapperName.StringValue())
	assert.Equal(t, "1.2.3", wrapperVersion.StringValue())
}

func TestCreateStatsEventAndResetCarriesCounters(t *testing.T) {
	config := DefaultConfig.applyDefaults()
	manager := newDiagnosticsManager("sdk-key", config, 0)

	event := manager.CreateStatsEventAndReset(3, 2, 10)

	kind, _ := event.GetByKey("kind")
	dropped, _ := event.GetByKey("droppedEvents")
	dedup, _ := event.GetByKey("deduplicatedUsers")
	lastBatch, _ := event.GetByKey("eventsInLastBatch")

	assert.Equal(t, "diagnostic", kind.StringValue())
	assert.Equal(t, 3, dropped.IntValue())
	assert.Equal(t, 2, dedup.IntValue())
	assert.Equal(t, 10, lastBatch.IntValue())
}

func TestCreateStatsEventAndResetAdvancesDataSinceTime(t *testing.T) {
	config := DefaultConfig.applyDefaults()
	manager := newDiagnosticsManager("sdk-key", config, 0)
	first := manager.dataSinceTime

	time.Sleep(time.Millisecond)
	manager.CreateStatsEventAndReset(0, 0, 0)

	assert.Greater(t, manager.dataSinceTime, first)
}

func TestNormalizeOSName(t *testing.T) {
	assert.Equal(t, "MacOS", normalizeOSName("darwin"))
	assert.Equal(t, "Windows", normalizeOSName("windows"))
	assert.Equal(t, "Linux", normalizeOSName("linux"))
	assert.Equal(t, "plan9", normalizeOSName("plan9"))
}
