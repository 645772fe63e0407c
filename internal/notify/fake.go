package notify

import (
	"context"
	"sync"
)

// FakeNotifier records notified URLs and returns scripted results.
// Safe for concurrent use.
type FakeNotifier struct {
	mu   sync.Mutex
	urls []string

	// Results are returned by successive calls; once exhausted every call
	// returns a Delivered 200.
	Results []Result

	// Notified, if set, receives every URL after it is recorded.
	Notified chan string
}

// NewFakeNotifier creates a FakeNotifier.
func NewFakeNotifier() *FakeNotifier {
	return &FakeNotifier{}
}

// Notify records url and returns the next scripted result.
func (f *FakeNotifier) Notify(ctx context.Context, url string) Result {
	f.mu.Lock()
	n := len(f.urls)
	f.urls = append(f.urls, url)
	res := Result{Kind: Delivered, StatusCode: 200}
	if n < len(f.Results) {
		res = f.Results[n]
	}
	f.mu.Unlock()

	if f.Notified != nil {
		select {
		case f.Notified <- url:
		case <-ctx.Done():
		}
	}
	return res
}

// URLs returns every URL notified so far.
func (f *FakeNotifier) URLs() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.urls))
	copy(out, f.urls)
	return out
}
