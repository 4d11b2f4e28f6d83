package datasource

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/launchdarkly/go-server-sdk/v7/internal/ldlog"
)

// PollingProcessor periodically fetches the full dataset and replaces it in
// the destination store wholesale. It is used instead of StreamProcessor
// when streaming is disabled.
type PollingProcessor struct {
	uri         string
	sdkKey      string
	userAgent   string
	httpClient  *http.Client
	dest        DataDestination
	loggers     ldlog.Loggers
	interval    time.Duration

	halt        chan struct{}
	closeOnce   sync.Once
	initialized bool
	initMu      sync.RWMutex
}

// NewPollingProcessor constructs a PollingProcessor hitting
// uri+"/sdk/latest-all" every interval.
func NewPollingProcessor(uri, sdkKey, userAgent string, httpClient *http.Client, dest DataDestination, loggers ldlog.Loggers, interval time.Duration) *PollingProcessor {
	return &PollingProcessor{
		uri: uri, sdkKey: sdkKey, userAgent: userAgent,
		httpClient: httpClient, dest: dest, loggers: loggers, interval: interval,
		halt: make(chan struct{}),
	}
}

// Initialized reports whether at least one poll has succeeded.
func (pp *PollingProcessor) Initialized() bool {
	pp.initMu.RLock()
	defer pp.initMu.RUnlock()
	return pp.initialized
}

// Start begins the polling loop in the background, firing an initial poll
// immediately rather than waiting a full interval first.
func (pp *PollingProcessor) Start(closeWhenReady chan<- struct{}) {
	pp.loggers.Info("Starting polling connection")
	ticker := newTickerWithInitialTick(pp.interval)
	go func() {
		defer ticker.Stop()
		notify := closeOnceFunc(closeWhenReady)
		for {
			select {
			case <-pp.halt:
				notify()
				return
			case <-ticker.C:
				if err := pp.poll(); err != nil {
					pp.loggers.Errorf("Polling error: %s", err)
				} else {
					pp.initMu.Lock()
					pp.initialized = true
					pp.initMu.Unlock()
				}
				notify()
			}
		}
	}()
}

// Close halts the polling loop; safe to call more than once.
func (pp *PollingProcessor) Close() error {
	pp.closeOnce.Do(func() {
		close(pp.halt)
	})
	return nil
}

func (pp *PollingProcessor) poll() error {
	req, _ := http.NewRequest("GET", pp.uri+"/sdk/latest-all", nil)
	req.Header.Set("Authorization", pp.sdkKey)
	req.Header.Set("User-Agent", pp.userAgent)

	resp, err := pp.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		if !isHTTPErrorRecoverable(resp.StatusCode) {
			pp.Close()
		}
		return fmt.Errorf("polling request failed with status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	var data pollingData
	if err := json.Unmarshal(body, &data); err != nil {
		return fmt.Errorf("malformed polling response: %w", err)
	}
	return pp.dest.Init(allDataToStoreFormat(allData{Flags: data.Flags, Segments: data.Segments}))
}

// newTickerWithInitialTick returns a ticker whose channel receives a value
// immediately and then every interval thereafter, so the first poll doesn't
// wait a full period.
func newTickerWithInitialTick(interval time.Duration) *time.Ticker {
	ticker := time.NewTicker(interval)
	oldChannel := ticker.C
	newChannel := make(chan time.Time, 1)
	ticker.C = newChannel
	newChannel <- time.Now()
	go func() {
		for t := range oldChannel {
			newChannel <- t
		}
	}()
	return ticker
}

func closeOnceFunc(ch chan<- struct{}) func() {
	var once sync.Once
	return func() {
		once.Do(func() { close(ch) })
	}
}
