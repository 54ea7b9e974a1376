package simulate

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"sync"
	"sync/atomic"
	"time"
)

// Worker configuration constants.
const (
	workerChannelMultiplier = 2
	progressReportInterval  = time.Second
)

// Submission outcomes.
const (
	outcomeAccepted  = "accepted"
	outcomeDuplicate = "duplicate"
	outcomeFailed    = "failed"
)

// HTTPClient wraps http.Client with a timeout.
type HTTPClient struct {
	client *http.Client
}

func newHTTPClient(timeout time.Duration) *HTTPClient {
	return &HTTPClient{client: &http.Client{Timeout: timeout}}
}

// Get performs a GET request.
func (c *HTTPClient) Get(ctx context.Context, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	return c.client.Do(req)
}

// Post performs a POST request with a JSON body.
func (c *HTTPClient) Post(ctx context.Context, url string, body any) (*http.Response, error) {
	return c.send(ctx, http.MethodPost, url, body)
}

// Put performs a PUT request with a JSON body.
func (c *HTTPClient) Put(ctx context.Context, url string, body any) (*http.Response, error) {
	return c.send(ctx, http.MethodPut, url, body)
}

func (c *HTTPClient) send(ctx context.Context, method, url string, body any) (*http.Response, error) {
	data, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request body: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.client.Do(req)
}

// fetchJSON GETs url and decodes the 200 response into v.
func fetchJSON(ctx context.Context, client *HTTPClient, url string, v any) error {
	resp, err := client.Get(ctx, url)
	if err != nil {
		return fmt.Errorf("get %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("get %s: unexpected status %d", url, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("decode %s: %w", url, err)
	}
	return nil
}

// submitEvents submits events concurrently using a worker pool.
func submitEvents(ctx context.Context, config *Config, events []generatedEvent, report *Report) error {
	log.Printf("submitting %d events with %d workers", len(events), config.Workers)

	client := newHTTPClient(config.Timeout)

	var (
		accepted  int64
		duplicate int64
		failed    int64
		submitted int64
	)

	eventChan := make(chan generatedEvent, config.Workers*workerChannelMultiplier)
	var wg sync.WaitGroup

	for i := 0; i < config.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for event := range eventChan {
				select {
				case <-ctx.Done():
					return
				default:
				}

				outcome := submitSingleEvent(ctx, client, config.BaseURL, event)
				atomic.AddInt64(&submitted, 1)
				switch outcome {
				case outcomeAccepted:
					atomic.AddInt64(&accepted, 1)
				case outcomeDuplicate:
					atomic.AddInt64(&duplicate, 1)
				default:
					atomic.AddInt64(&failed, 1)
				}
			}
		}()
	}

	// Progress reporting off the hot path; workers only touch atomics.
	reportDone := make(chan struct{})
	go func() {
		ticker := time.NewTicker(progressReportInterval)
		defer ticker.Stop()
		for {
			select {
			case <-reportDone:
				return
			case <-ticker.C:
				total := atomic.LoadInt64(&submitted)
				line := fmt.Sprintf("submitted %d/%d (accepted: %d, duplicate: %d, failed: %d)",
					total, len(events), atomic.LoadInt64(&accepted), atomic.LoadInt64(&duplicate), atomic.LoadInt64(&failed))
				if config.Verbose {
					log.Print(line)
				} else {
					fmt.Printf("\r%s", line)
				}
			}
		}
	}()

	go func() {
		defer close(eventChan)
		for _, event := range events {
			select {
			case <-ctx.Done():
				return
			case eventChan <- event:
			}
		}
	}()

	wg.Wait()
	close(reportDone)
	if !config.Verbose {
		fmt.Println()
	}

	report.EventsSubmitted = int(atomic.LoadInt64(&submitted))
	report.EventsAccepted = int(atomic.LoadInt64(&accepted))
	report.EventsDuplicate = int(atomic.LoadInt64(&duplicate))
	report.EventsFailed = int(atomic.LoadInt64(&failed))

	log.Printf("event submission completed: accepted=%d duplicate=%d failed=%d",
		report.EventsAccepted, report.EventsDuplicate, report.EventsFailed)
	return nil
}

// submitSingleEvent submits one event and classifies the acknowledgement:
// 202 accepted, 200 duplicate, anything else failed.
func submitSingleEvent(ctx context.Context, client *HTTPClient, baseURL string, event generatedEvent) string {
	var (
		url  string
		body any
	)
	switch event.Kind {
	case kindSelection:
		url = baseURL + "/events/selections"
		body = event.Selection
	case kindAnswer:
		url = baseURL + "/events/answers"
		body = event.Answer
	default:
		return outcomeFailed
	}

	resp, err := client.Post(ctx, url, body)
	if err != nil {
		return outcomeFailed
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusAccepted:
		return outcomeAccepted
	case http.StatusOK:
		var ack ackResponse
		if err := json.NewDecoder(resp.Body).Decode(&ack); err == nil && !ack.Duplicate {
			return outcomeFailed
		}
		return outcomeDuplicate
	default:
		return outcomeFailed
	}
}
