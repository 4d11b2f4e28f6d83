package ldevents

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/launchdarkly/go-server-sdk/v7/internal/ldlog"
)

const (
	eventSchemaHeader  = "X-LaunchDarkly-Event-Schema"
	payloadIDHeader    = "X-LaunchDarkly-Payload-ID"
	currentEventSchema = "3"
	defaultRetryDelay  = time.Second
)

// EventDataKind distinguishes analytics payloads from diagnostic ones,
// since they go to different endpoints and only one carries a payload id.
type EventDataKind string

const (
	// AnalyticsEventDataKind denotes a payload of buffered analytics events.
	AnalyticsEventDataKind EventDataKind = "analytics"
	// DiagnosticEventDataKind denotes a single diagnostic event document.
	DiagnosticEventDataKind EventDataKind = "diagnostic"
)

// EventSenderResult reports what happened after attempting to deliver a
// payload.
type EventSenderResult struct {
	Success        bool
	MustShutDown   bool
	TimeFromServer time.Time
	HasServerTime  bool
}

// EventSender delivers an already-serialized event payload.
type EventSender interface {
	SendEventData(kind EventDataKind, data []byte, eventCount int) EventSenderResult
}

type defaultEventSender struct {
	httpClient    *http.Client
	eventsURI     string
	diagnosticURI string
	sdkKey        string
	userAgent     string
	loggers       ldlog.Loggers
	retryDelay    time.Duration
}

// NewServerSideEventSender builds the standard EventSender for server-side
// use: POSTs analytics batches to eventsURI+"/bulk" and diagnostic events to
// eventsURI+"/diagnostic", both authenticated with sdkKey.
func NewServerSideEventSender(
	httpClient *http.Client,
	sdkKey string,
	eventsURI string,
	userAgent string,
	loggers ldlog.Loggers,
) EventSender {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	base := strings.TrimRight(eventsURI, "/")
	return &defaultEventSender{
		httpClient:    httpClient,
		eventsURI:     base + "/bulk",
		diagnosticURI: base + "/diagnostic",
		sdkKey:        sdkKey,
		userAgent:     userAgent,
		loggers:       loggers,
		retryDelay:    defaultRetryDelay,
	}
}

func (s *defaultEventSender) SendEventData(kind EventDataKind, data []byte, eventCount int) EventSenderResult {
	var uri, description string
	var extraHeaders map[string]string

	switch kind {
	case AnalyticsEventDataKind:
		uri = s.eventsURI
		description = fmt.Sprintf("%d events", eventCount)
		payloadUUID, err := uuid.NewRandom()
		extraHeaders = map[string]string{eventSchemaHeader: currentEventSchema}
		if err == nil {
			extraHeaders[payloadIDHeader] = payloadUUID.String()
		}
	case DiagnosticEventDataKind:
		uri = s.diagnosticURI
		description = "diagnostic event"
	default:
		return EventSenderResult{}
	}

	s.loggers.Debugf("Sending %s: %s", description, data)

	var resp *http.Response
	var respErr error
	for attempt := 0; attempt < 2; attempt++ {
		if attempt > 0 {
			s.loggers.Warnf("Will retry posting events after %s", s.retryDelay)
			time.Sleep(s.retryDelay)
		}
		req, reqErr := http.NewRequest("POST", uri, bytes.NewReader(data))
		if reqErr != nil {
			s.loggers.Errorf("Unexpected error while creating event request: %+v", reqErr)
			return EventSenderResult{}
		}
		req.Header.Set("Authorization", s.sdkKey)
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("User-Agent", s.userAgent)
		for k, v := range extraHeaders {
			req.Header.Set(k, v)
		}

		resp, respErr = s.httpClient.Do(req)
		if resp != nil && resp.Body != nil {
			_, _ = io.Copy(io.Discard, resp.Body)
			_ = resp.Body.Close()
		}

		if respErr != nil {
			s.loggers.Warnf("Unexpected error while sending events: %+v", respErr)
			continue
		}
		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			result := EventSenderResult{Success: true}
			if t, err := http.ParseTime(resp.Header.Get("Date")); err == nil {
				result.TimeFromServer = t
				result.HasServerTime = true
			}
			return result
		}
		if isHTTPErrorRecoverable(resp.StatusCode) {
			s.loggers.Warnf("Received error status %d when sending events, %s",
				resp.StatusCode, map[bool]string{true: "will retry", false: "some events were dropped"}[attempt == 0])
			continue
		}
		s.loggers.Errorf("Received error status %d when sending events; giving up, SDK key is likely invalid", resp.StatusCode)
		return EventSenderResult{MustShutDown: true}
	}
	return EventSenderResult{}
}

// isHTTPErrorRecoverable reports whether a transport-level HTTP status
// should be retried. 401 and 403 mean the key is wrong or revoked, which
// retrying can't fix, so delivery is disabled entirely rather than looping.
func isHTTPErrorRecoverable(statusCode int) bool {
	switch statusCode {
	case 401, 403:
		return false
	default:
		return statusCode < 400 || statusCode >= 500 || statusCode == 400 || statusCode == 408 || statusCode == 429
	}
}
