package datasource

import (
	"io"
	"net/http"
	"sync"
	"time"

	es "github.com/launchdarkly/eventsource"

	"github.com/launchdarkly/go-server-sdk/v7/internal/ldlog"
)

const (
	putEvent          = "put"
	patchEvent        = "patch"
	deleteEvent       = "delete"
	streamReadTimeout = 5 * time.Minute // the service sends a heartbeat comment well within this window
)

// StreamProcessor maintains a long-lived SSE connection to the streaming
// endpoint, applying put/patch/delete payloads to a DataDestination and
// reconnecting with backoff on failure.
type StreamProcessor struct {
	uri        string
	sdkKey     string
	userAgent  string
	httpClient *http.Client
	dest       DataDestination
	loggers    ldlog.Loggers
	backoff    *backoff

	halt          chan struct{}
	closeOnce     sync.Once
	readyOnce     sync.Once
	initialized   bool
	initializedMu sync.RWMutex
}

// NewStreamProcessor constructs a StreamProcessor that will GET uri+"/all".
func NewStreamProcessor(uri, sdkKey, userAgent string, httpClient *http.Client, dest DataDestination, loggers ldlog.Loggers) *StreamProcessor {
	client := *httpClient
	// Client.Timeout would break the connection once the response body
	// exceeds it, which for a stream it always will; the per-attempt
	// connect timeout is instead enforced by the Dialer in the client's
	// own Transport.
	client.Timeout = 0
	return &StreamProcessor{
		uri:        uri,
		sdkKey:     sdkKey,
		userAgent:  userAgent,
		httpClient: &client,
		dest:       dest,
		loggers:    loggers,
		backoff:    newBackoff(time.Second, 30*time.Second, 60*time.Second),
		halt:       make(chan struct{}),
	}
}

// Initialized reports whether a put event has ever been applied.
func (sp *StreamProcessor) Initialized() bool {
	sp.initializedMu.RLock()
	defer sp.initializedMu.RUnlock()
	return sp.initialized
}

func (sp *StreamProcessor) setInitialized() {
	sp.initializedMu.Lock()
	sp.initialized = true
	sp.initializedMu.Unlock()
}

// Start begins the subscribe/reconnect loop in the background. closeWhenReady
// is closed the first time the stream becomes initialized, or permanently
// fails to ever become so.
func (sp *StreamProcessor) Start(closeWhenReady chan<- struct{}) {
	sp.loggers.Info("Starting streaming connection")
	go sp.subscribe(closeWhenReady)
}

// Close halts the processor; it is safe to call more than once.
func (sp *StreamProcessor) Close() error {
	sp.closeOnce.Do(func() {
		close(sp.halt)
	})
	return nil
}

func (sp *StreamProcessor) notifyReady(closeWhenReady chan<- struct{}) {
	sp.readyOnce.Do(func() {
		close(closeWhenReady)
	})
}

func (sp *StreamProcessor) subscribe(closeWhenReady chan<- struct{}) {
	for {
		select {
		case <-sp.halt:
			sp.notifyReady(closeWhenReady)
			return
		default:
		}

		req, _ := http.NewRequest("GET", sp.uri+"/all", nil)
		req.Header.Set("Authorization", sp.sdkKey)
		req.Header.Set("User-Agent", sp.userAgent)

		stream, err := es.SubscribeWithRequestAndOptions(req,
			es.StreamOptionHTTPClient(sp.httpClient),
			es.StreamOptionReadTimeout(streamReadTimeout),
		)
		if err != nil {
			sp.loggers.Warnf("Unable to establish streaming connection: %+v", err)
			if sp.checkPermanentFailure(err) {
				sp.notifyReady(closeWhenReady)
				return
			}
			select {
			case <-sp.halt:
				sp.notifyReady(closeWhenReady)
				return
			case <-time.After(sp.backoff.next()):
			}
			continue
		}

		opened := time.Now()
		restart := sp.readEvents(stream, closeWhenReady)
		if sp.backoff.succeededAfter(time.Since(opened)) {
			sp.backoff.reset()
		}
		if !restart {
			return
		}
	}
}

// readEvents consumes one stream's events until it closes or fails,
// returning true if the caller should reconnect.
func (sp *StreamProcessor) readEvents(stream *es.Stream, closeWhenReady chan<- struct{}) bool {
	defer func() {
		for range stream.Events { //nolint:revive // drain so the SSE client can release its goroutines
		}
		for range stream.Errors {
		}
	}()

	for {
		select {
		case event, ok := <-stream.Events:
			if !ok {
				return true
			}
			if fatal := sp.handleEvent(event); fatal {
				stream.Close()
				return true
			}
			if sp.Initialized() {
				sp.notifyReady(closeWhenReady)
			}
		case err, ok := <-stream.Errors:
			if !ok {
				return true
			}
			if err != io.EOF {
				sp.loggers.Errorf("Error on stream: %+v", err)
				if sp.checkPermanentFailure(err) {
					stream.Close()
					sp.notifyReady(closeWhenReady)
					return false
				}
			}
		case <-sp.halt:
			stream.Close()
			sp.notifyReady(closeWhenReady)
			return false
		}
	}
}

// handleEvent applies one SSE event and returns true if the failure is
// fatal to this connection (a malformed put — the one case the spec calls
// out as requiring a stream reset rather than a skip-and-continue).
func (sp *StreamProcessor) handleEvent(event es.Event) bool {
	switch event.Event() {
	case putEvent:
		if err := applyPut(sp.dest, []byte(event.Data())); err != nil {
			sp.loggers.Errorf("Error processing put event: %s", err)
			return true
		}
		sp.setInitialized()
	case patchEvent:
		if err := applyPatch(sp.dest, []byte(event.Data())); err != nil {
			sp.loggers.Errorf("Error processing patch event: %s", err)
		}
	case deleteEvent:
		if err := applyDelete(sp.dest, []byte(event.Data())); err != nil {
			sp.loggers.Errorf("Error processing delete event: %s", err)
		}
	}
	return false
}

func (sp *StreamProcessor) checkPermanentFailure(err error) bool {
	if se, ok := err.(es.SubscriptionError); ok {
		return !isHTTPErrorRecoverable(se.Code)
	}
	return false
}
