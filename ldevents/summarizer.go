package ldevents

import "github.com/launchdarkly/go-server-sdk/v7/ldvalue"

// eventSummarizer accumulates per-variation evaluation counters between
// flushes. Its methods are deliberately not thread-safe: the event
// dispatcher only ever calls them from its single processing goroutine.
type eventSummarizer struct {
	eventsState eventSummary
}

type eventSummary struct {
	counters  map[counterKey]*counterValue
	startDate uint64
	endDate   uint64
}

type counterKey struct {
	key       string
	variation int
	version   int
}

type counterValue struct {
	count       int
	flagValue   ldvalue.Value
	flagDefault ldvalue.Value
}

func newEventSummarizer() eventSummarizer {
	return eventSummarizer{eventsState: newEventSummary()}
}

func newEventSummary() eventSummary {
	return eventSummary{counters: make(map[counterKey]*counterValue)}
}

func (s *eventSummarizer) summarizeEvent(evt Event) {
	fe, ok := evt.(FeatureRequestEvent)
	if !ok {
		return
	}

	version := 0
	if fe.HasVersion {
		version = fe.Version
	}
	key := counterKey{key: fe.Key, variation: fe.Variation, version: version}

	if value, ok := s.eventsState.counters[key]; ok {
		value.count++
	} else {
		s.eventsState.counters[key] = &counterValue{
			count:       1,
			flagValue:   fe.Value,
			flagDefault: fe.Default,
		}
	}

	if s.eventsState.startDate == 0 || fe.CreationDate < s.eventsState.startDate {
		s.eventsState.startDate = fe.CreationDate
	}
	if fe.CreationDate > s.eventsState.endDate {
		s.eventsState.endDate = fe.CreationDate
	}
}

func (s *eventSummarizer) snapshot() eventSummary {
	return s.eventsState
}

func (s *eventSummarizer) reset() {
	s.eventsState = newEventSummary()
}
