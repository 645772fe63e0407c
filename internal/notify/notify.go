// Package notify delivers sensor status to the remote HTTP endpoint.
package notify

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"
)

// Defaults for HTTPNotifier.
const (
	DefaultTimeout  = 10 * time.Second
	DefaultRxBuffer = 4096
)

// Kind classifies the outcome of one notification.
type Kind int

const (
	Delivered Kind = iota
	RequestFailed
	SendFailed
	TimedOut
)

func (k Kind) String() string {
	switch k {
	case Delivered:
		return "DELIVERED"
	case RequestFailed:
		return "REQUEST_FAILED"
	case SendFailed:
		return "SEND_FAILED"
	case TimedOut:
		return "TIMEOUT"
	}
	return "UNKNOWN"
}

// Result is the outcome of one notification.
type Result struct {
	Kind Kind
	// StatusCode is the HTTP status for Delivered results; zero otherwise.
	StatusCode int
	Err        error
	Elapsed    time.Duration
}

// Notifier posts the status URL. Implementations never retry within a call.
type Notifier interface {
	Notify(ctx context.Context, url string) Result
}

// HTTPNotifier issues one POST per call with an empty body. Building the
// request, sending it and reading the response share a single deadline.
type HTTPNotifier struct {
	client  *http.Client
	timeout time.Duration
	rx      []byte
}

// NewHTTPNotifier creates a notifier. A nil client uses a dedicated client
// with keep-alives disabled; a timeout <= 0 uses DefaultTimeout.
func NewHTTPNotifier(client *http.Client, timeout time.Duration) *HTTPNotifier {
	if client == nil {
		client = &http.Client{
			Transport: &http.Transport{
				Proxy:             http.ProxyFromEnvironment,
				DisableKeepAlives: true,
			},
		}
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &HTTPNotifier{
		client:  client,
		timeout: timeout,
		rx:      make([]byte, DefaultRxBuffer),
	}
}

// Notify posts to url and classifies the outcome. The response status is
// logged but not acted upon. Not safe for concurrent use: the receive buffer
// is reused across calls.
func (n *HTTPNotifier) Notify(ctx context.Context, url string) Result {
	log.Printf("notify: making request (url: %s)", url)
	start := time.Now()

	ctx, cancel := context.WithTimeout(ctx, n.timeout)
	defer cancel()

	res := n.post(ctx, url)
	res.Elapsed = time.Since(start)

	switch res.Kind {
	case Delivered:
		log.Printf("notify: response status: %d", res.StatusCode)
	case RequestFailed:
		log.Printf("notify: failed to make HTTP request: %v", res.Err)
	case SendFailed:
		log.Printf("notify: failed to send HTTP request: %v", res.Err)
	case TimedOut:
		log.Printf("notify: request failed: timeout after %v", res.Elapsed.Round(time.Millisecond))
	}
	return res
}

func (n *HTTPNotifier) post(ctx context.Context, url string) Result {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, http.NoBody)
	if err != nil {
		return Result{Kind: RequestFailed, Err: err}
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return failure(ctx, err)
	}
	defer resp.Body.Close()

	// Only the first len(rx) bytes are read; the body is otherwise ignored.
	if _, err := io.ReadFull(resp.Body, n.rx); err != nil &&
		!errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
		return failure(ctx, fmt.Errorf("read response: %w", err))
	}

	return Result{Kind: Delivered, StatusCode: resp.StatusCode}
}

func failure(ctx context.Context, err error) Result {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return Result{Kind: TimedOut, Err: err}
	}
	return Result{Kind: SendFailed, Err: err}
}
