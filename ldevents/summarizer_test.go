package ldevents

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/launchdarkly/go-server-sdk/v7/lduser"
	"github.com/launchdarkly/go-server-sdk/v7/ldvalue"
)

func TestSummarizerCountsByFlagVariationAndVersion(t *testing.T) {
	s := newEventSummarizer()
	user := lduser.NewUserBuilder("u").Build()
	mk := func(variation, version int, creationDate uint64) FeatureRequestEvent {
		return FeatureRequestEvent{
			BaseEvent: BaseEvent{CreationDate: creationDate, User: user},
			Key:       "flagA", Variation: variation, HasVariation: true,
			Version: version, HasVersion: true,
			Value: ldvalue.Bool(true), Default: ldvalue.Bool(false),
		}
	}
	s.summarizeEvent(mk(0, 1, 100))
	s.summarizeEvent(mk(0, 1, 200))
	s.summarizeEvent(mk(1, 1, 150))

	snap := s.snapshot()
	assert.Equal(t, uint64(100), snap.startDate)
	assert.Equal(t, uint64(200), snap.endDate)
	assert.Equal(t, 2, snap.counters[counterKey{key: "flagA", variation: 0, version: 1}].count)
	assert.Equal(t, 1, snap.counters[counterKey{key: "flagA", variation: 1, version: 1}].count)
}

func TestSummarizerResetClearsCounters(t *testing.T) {
	s := newEventSummarizer()
	user := lduser.NewUserBuilder("u").Build()
	s.summarizeEvent(FeatureRequestEvent{
		BaseEvent: BaseEvent{CreationDate: 1, User: user},
		Key:       "flagA", HasVariation: true, HasVersion: true,
	})
	s.reset()
	assert.Empty(t, s.snapshot().counters)
}

func TestSummarizerIgnoresNonFeatureEvents(t *testing.T) {
	s := newEventSummarizer()
	user := lduser.NewUserBuilder("u").Build()
	s.summarizeEvent(NewIdentifyEvent(user, 1000))
	assert.Empty(t, s.snapshot().counters)
}
