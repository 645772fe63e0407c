package notify

import (
	"context"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"
)

func TestNotifyDelivered(t *testing.T) {
	var (
		mu     sync.Mutex
		method string
		path   string
		body   []byte
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		mu.Lock()
		method, path, body = r.Method, r.URL.Path, b
		mu.Unlock()
		w.WriteHeader(http.StatusAccepted)
		w.Write([]byte("ok"))
	}))
	defer srv.Close()

	n := NewHTTPNotifier(srv.Client(), time.Second)
	res := n.Notify(context.Background(), srv.URL+"/api/42/true")

	if res.Kind != Delivered {
		t.Fatalf("kind: got %s (%v), want DELIVERED", res.Kind, res.Err)
	}
	if res.StatusCode != http.StatusAccepted {
		t.Errorf("status: got %d, want 202", res.StatusCode)
	}

	mu.Lock()
	defer mu.Unlock()
	if method != http.MethodPost {
		t.Errorf("method: got %s, want POST", method)
	}
	if path != "/api/42/true" {
		t.Errorf("path: got %s", path)
	}
	if len(body) != 0 {
		t.Errorf("body: got %q, want empty", body)
	}
}

func TestNotifyErrorStatusIsStillDelivered(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	res := NewHTTPNotifier(srv.Client(), time.Second).Notify(context.Background(), srv.URL+"/api/1/false")
	if res.Kind != Delivered || res.StatusCode != http.StatusInternalServerError {
		t.Errorf("got %s/%d, want DELIVERED/500", res.Kind, res.StatusCode)
	}
}

func TestNotifyLargeBodyIsTruncated(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(strings.Repeat("x", 3*DefaultRxBuffer)))
	}))
	defer srv.Close()

	res := NewHTTPNotifier(srv.Client(), time.Second).Notify(context.Background(), srv.URL+"/api/1/true")
	if res.Kind != Delivered || res.StatusCode != http.StatusOK {
		t.Errorf("got %s/%d, want DELIVERED/200", res.Kind, res.StatusCode)
	}
}

func TestNotifyTimesOutOnUnresponsivePeer(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	timeout := 100 * time.Millisecond
	n := NewHTTPNotifier(srv.Client(), timeout)

	start := time.Now()
	res := n.Notify(context.Background(), srv.URL+"/api/1/true")
	elapsed := time.Since(start)

	if res.Kind != TimedOut {
		t.Fatalf("kind: got %s (%v), want TIMEOUT", res.Kind, res.Err)
	}
	if elapsed < timeout {
		t.Errorf("returned after %v, before the %v timeout", elapsed, timeout)
	}
	if elapsed > timeout+time.Second {
		t.Errorf("returned after %v, well past the %v timeout", elapsed, timeout)
	}
}

func TestNotifyTimesOutOnStalledBody(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Length", "100")
		w.WriteHeader(http.StatusOK)
		w.(http.Flusher).Flush()
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	res := NewHTTPNotifier(srv.Client(), 100*time.Millisecond).Notify(context.Background(), srv.URL+"/api/1/true")
	if res.Kind != TimedOut {
		t.Errorf("kind: got %s (%v), want TIMEOUT", res.Kind, res.Err)
	}
}

func TestNotifyTimesOutOnSilentListener(t *testing.T) {
	// Accepts TCP connections but never speaks HTTP.
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer ln.Close()
	var conns []net.Conn
	var mu sync.Mutex
	go func() {
		for {
			c, err := ln.Accept()
			if err != nil {
				return
			}
			mu.Lock()
			conns = append(conns, c)
			mu.Unlock()
		}
	}()
	defer func() {
		mu.Lock()
		defer mu.Unlock()
		for _, c := range conns {
			c.Close()
		}
	}()

	res := NewHTTPNotifier(nil, 100*time.Millisecond).Notify(context.Background(), "http://"+ln.Addr().String()+"/api/1/true")
	if res.Kind != TimedOut {
		t.Errorf("kind: got %s (%v), want TIMEOUT", res.Kind, res.Err)
	}
	if res.Elapsed > 2*time.Second {
		t.Errorf("elapsed %v, want close to the timeout", res.Elapsed)
	}
}

func TestNotifyRequestFailed(t *testing.T) {
	res := NewHTTPNotifier(nil, time.Second).Notify(context.Background(), "http://bad host/api/1/true")
	if res.Kind != RequestFailed {
		t.Errorf("kind: got %s (%v), want REQUEST_FAILED", res.Kind, res.Err)
	}
	if res.Err == nil {
		t.Error("expected an error")
	}
}

func TestNotifySendFailed(t *testing.T) {
	// Grab a free port and close it so the connection is refused.
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	addr := ln.Addr().String()
	ln.Close()

	res := NewHTTPNotifier(nil, time.Second).Notify(context.Background(), "http://"+addr+"/api/1/true")
	if res.Kind != SendFailed {
		t.Errorf("kind: got %s (%v), want SEND_FAILED", res.Kind, res.Err)
	}
}

func TestNewHTTPNotifierDefaults(t *testing.T) {
	n := NewHTTPNotifier(nil, 0)
	if n.timeout != DefaultTimeout {
		t.Errorf("timeout: got %v, want %v", n.timeout, DefaultTimeout)
	}
	if DefaultTimeout != 10*time.Second {
		t.Errorf("DefaultTimeout: got %v, want 10s", DefaultTimeout)
	}
	if len(n.rx) != DefaultRxBuffer {
		t.Errorf("rx buffer: got %d, want %d", len(n.rx), DefaultRxBuffer)
	}
}

func TestKindString(t *testing.T) {
	tests := map[Kind]string{
		Delivered:     "DELIVERED",
		RequestFailed: "REQUEST_FAILED",
		SendFailed:    "SEND_FAILED",
		TimedOut:      "TIMEOUT",
		Kind(99):      "UNKNOWN",
	}
	for k, want := range tests {
		if got := k.String(); got != want {
			t.Errorf("%d: got %q, want %q", int(k), got, want)
		}
	}
}

func TestFakeNotifier(t *testing.T) {
	f := NewFakeNotifier()
	f.Results = []Result{{Kind: TimedOut}}

	if res := f.Notify(context.Background(), "a"); res.Kind != TimedOut {
		t.Errorf("first: got %s, want TIMEOUT", res.Kind)
	}
	if res := f.Notify(context.Background(), "b"); res.Kind != Delivered || res.StatusCode != 200 {
		t.Errorf("second: got %s/%d, want DELIVERED/200", res.Kind, res.StatusCode)
	}
	if urls := f.URLs(); len(urls) != 2 || urls[0] != "a" || urls[1] != "b" {
		t.Errorf("urls: got %v", urls)
	}
}
