package ldevents

import (
	"sync"
	"time"

	"github.com/launchdarkly/go-server-sdk/v7/internal/ldlog"
	"github.com/launchdarkly/go-server-sdk/v7/ldvalue"
)

const maxFlushWorkers = 5

// EventProcessor is the public interface for submitting analytics events.
type EventProcessor interface {
	SendEvent(Event)
	Flush()
	Close() error
}

// NewNullEventProcessor returns an EventProcessor that discards everything,
// for use when event sending is disabled.
func NewNullEventProcessor() EventProcessor {
	return nullEventProcessor{}
}

type nullEventProcessor struct{}

func (nullEventProcessor) SendEvent(Event) {}
func (nullEventProcessor) Flush()          {}
func (nullEventProcessor) Close() error    { return nil }

type defaultEventProcessor struct {
	inboxCh       chan eventDispatcherMessage
	inboxFullOnce sync.Once
	closeOnce     sync.Once
	loggers       ldlog.Loggers
}

type eventDispatcherMessage interface{}

type sendEventMessage struct{ event Event }
type flushEventsMessage struct{}
type shutdownEventsMessage struct{ replyCh chan struct{} }

// NewDefaultEventProcessor creates the standard buffered, batching,
// background-delivering EventProcessor.
func NewDefaultEventProcessor(config EventsConfiguration) EventProcessor {
	capacity := config.Capacity
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	inboxCh := make(chan eventDispatcherMessage, capacity)
	startEventDispatcher(config, inboxCh)
	return &defaultEventProcessor{inboxCh: inboxCh, loggers: config.Loggers}
}

func (ep *defaultEventProcessor) SendEvent(e Event) {
	select {
	case ep.inboxCh <- sendEventMessage{event: e}:
		return
	default:
	}
	ep.inboxFullOnce.Do(func() {
		ep.loggers.Warn("Events are being produced faster than they can be processed; some events will be dropped")
	})
}

func (ep *defaultEventProcessor) Flush() {
	select {
	case ep.inboxCh <- flushEventsMessage{}:
	default:
	}
}

func (ep *defaultEventProcessor) Close() error {
	ep.closeOnce.Do(func() {
		ep.inboxCh <- flushEventsMessage{}
		m := shutdownEventsMessage{replyCh: make(chan struct{})}
		ep.inboxCh <- m
		<-m.replyCh
	})
	return nil
}

type eventDispatcher struct {
	config             EventsConfiguration
	outbox             *eventsOutbox
	flushCh            chan *flushPayload
	workersGroup       *sync.WaitGroup
	userKeys           lruCache
	lastKnownPastTime  uint64
	deduplicatedUsers  int
	eventsInLastBatch  int
	disabled           bool
	currentTimestampFn func() uint64
	stateLock          sync.Mutex
}

func startEventDispatcher(config EventsConfiguration, inboxCh <-chan eventDispatcherMessage) {
	userKeysCapacity := config.UserKeysCapacity
	if userKeysCapacity <= 0 {
		userKeysCapacity = DefaultUserKeysCapacity
	}
	ed := &eventDispatcher{
		config:             config,
		outbox:             newEventsOutbox(orDefault(config.Capacity, DefaultCapacity), config.Loggers),
		flushCh:            make(chan *flushPayload, 1),
		workersGroup:       &sync.WaitGroup{},
		userKeys:           newLruCache(userKeysCapacity),
		currentTimestampFn: config.currentTimeProvider,
	}
	if ed.currentTimestampFn == nil {
		ed.currentTimestampFn = nowUnixMillis
	}

	for i := 0; i < maxFlushWorkers; i++ {
		go runFlushTask(config, ed.flushCh, ed.workersGroup, ed.handleResult)
	}
	if config.DiagnosticsManager != nil {
		ed.sendDiagnosticsEvent(config.DiagnosticsManager.CreateInitEvent())
	}
	go ed.runMainLoop(inboxCh)
}

func orDefault(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}

func nowUnixMillis() uint64 {
	return uint64(time.Now().UnixNano() / int64(time.Millisecond)) //nolint:gosec // always positive
}

func (ed *eventDispatcher) runMainLoop(inboxCh <-chan eventDispatcherMessage) {
	defer func() {
		if err := recover(); err != nil {
			ed.config.Loggers.Errorf("Unexpected panic in event processing thread: %+v", err)
		}
	}()

	flushInterval := ed.config.FlushInterval
	if flushInterval <= 0 {
		flushInterval = DefaultFlushInterval
	}
	userKeysFlushInterval := ed.config.UserKeysFlushInterval
	if userKeysFlushInterval <= 0 {
		userKeysFlushInterval = DefaultUserKeysFlushInterval
	}
	flushTicker := time.NewTicker(flushInterval)
	usersResetTicker := time.NewTicker(userKeysFlushInterval)
	defer flushTicker.Stop()
	defer usersResetTicker.Stop()

	var diagnosticsTickerCh <-chan time.Time
	diagnosticsManager := ed.config.DiagnosticsManager
	if diagnosticsManager != nil {
		interval := ed.config.DiagnosticRecordingInterval
		if interval < MinimumDiagnosticRecordingInterval {
			interval = DefaultDiagnosticRecordingInterval
		}
		diagnosticsTicker := time.NewTicker(interval)
		defer diagnosticsTicker.Stop()
		diagnosticsTickerCh = diagnosticsTicker.C
	}

	for {
		select {
		case message := <-inboxCh:
			switch m := message.(type) {
			case sendEventMessage:
				ed.processEvent(m.event)
			case flushEventsMessage:
				ed.triggerFlush()
			case shutdownEventsMessage:
				ed.workersGroup.Wait()
				close(ed.flushCh)
				m.replyCh <- struct{}{}
				return
			}
		case <-flushTicker.C:
			ed.triggerFlush()
		case <-usersResetTicker.C:
			ed.userKeys.clear()
		case <-diagnosticsTickerCh:
			if diagnosticsManager == nil || !diagnosticsManager.CanSendStatsEvent() {
				continue
			}
			event := diagnosticsManager.CreateStatsEventAndReset(
				ed.outbox.droppedEvents, ed.deduplicatedUsers, ed.eventsInLastBatch)
			ed.outbox.droppedEvents = 0
			ed.deduplicatedUsers = 0
			ed.eventsInLastBatch = 0
			ed.sendDiagnosticsEvent(event)
		}
	}
}

func (ed *eventDispatcher) processEvent(evt Event) {
	ed.outbox.addToSummary(evt)

	willAddFullEvent := true
	var debugEvent Event
	inlinedUser := ed.config.InlineUsersInEvents
	switch typed := evt.(type) {
	case FeatureRequestEvent:
		willAddFullEvent = typed.TrackEvents
		if ed.shouldDebugEvent(&typed) {
			de := typed
			de.Debug = true
			debugEvent = de
		}
	case IdentifyEvent:
		inlinedUser = true
	}

	user := evt.GetBase().User
	alreadySeen := ed.userKeys.add(user.Key())
	if !(willAddFullEvent && inlinedUser) {
		if alreadySeen {
			ed.deduplicatedUsers++
		} else if _, isIdentify := evt.(IdentifyEvent); !isIdentify {
			ed.outbox.addEvent(IndexEvent{BaseEvent{CreationDate: evt.GetBase().CreationDate, User: user}})
		}
	}
	if willAddFullEvent {
		ed.outbox.addEvent(evt)
	}
	if debugEvent != nil {
		ed.outbox.addEvent(debugEvent)
	}
}

func (ed *eventDispatcher) shouldDebugEvent(evt *FeatureRequestEvent) bool {
	if evt.DebugEventsUntilDate == 0 {
		return false
	}
	ed.stateLock.Lock()
	defer ed.stateLock.Unlock()
	return evt.DebugEventsUntilDate > ed.lastKnownPastTime && evt.DebugEventsUntilDate > ed.currentTimestampFn()
}

func (ed *eventDispatcher) triggerFlush() {
	if ed.isDisabled() {
		ed.outbox.clear()
		return
	}
	payload := ed.outbox.getPayload()
	total := len(payload.events)
	if len(payload.summary.counters) > 0 {
		total++
	}
	if total == 0 {
		ed.eventsInLastBatch = 0
		return
	}
	ed.workersGroup.Add(1)
	select {
	case ed.flushCh <- &payload:
		ed.eventsInLastBatch = total
		ed.outbox.clear()
	default:
		ed.workersGroup.Done()
	}
}

func (ed *eventDispatcher) isDisabled() bool {
	ed.stateLock.Lock()
	defer ed.stateLock.Unlock()
	return ed.disabled
}

func (ed *eventDispatcher) handleResult(result EventSenderResult) {
	ed.stateLock.Lock()
	defer ed.stateLock.Unlock()
	if result.MustShutDown {
		ed.disabled = true
	} else if result.HasServerTime {
		ed.lastKnownPastTime = uint64(result.TimeFromServer.UnixNano() / int64(time.Millisecond)) //nolint:gosec
	}
}

func (ed *eventDispatcher) sendDiagnosticsEvent(event ldvalue.Value) {
	payload := &flushPayload{diagnosticEvent: event}
	ed.workersGroup.Add(1)
	select {
	case ed.flushCh <- payload:
	default:
		ed.workersGroup.Done()
	}
}

func runFlushTask(
	config EventsConfiguration,
	flushCh <-chan *flushPayload,
	workersGroup *sync.WaitGroup,
	resultFn func(EventSenderResult),
) {
	formatter := newEventOutputFormatter(config)
	for payload := range flushCh {
		if !payload.diagnosticEvent.IsNull() {
			data, err := payload.diagnosticEvent.MarshalJSON()
			if err != nil {
				config.Loggers.Errorf("Unexpected error marshalling diagnostic event: %+v", err)
			} else {
				config.EventSender.SendEventData(DiagnosticEventDataKind, data, 1)
			}
		} else {
			outputEvents := formatter.makeOutputEvents(payload.events, payload.summary)
			if len(outputEvents) > 0 {
				data, err := ldvalue.Array(outputEvents...).MarshalJSON()
				if err != nil {
					config.Loggers.Errorf("Unexpected error marshalling event JSON: %+v", err)
				} else {
					result := config.EventSender.SendEventData(AnalyticsEventDataKind, data, len(outputEvents))
					resultFn(result)
				}
			}
		}
		workersGroup.Done()
	}
}
