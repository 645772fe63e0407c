package reporter

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/sweeney/reed-sensor/internal/logic"
	"github.com/sweeney/reed-sensor/internal/notify"
	"github.com/sweeney/reed-sensor/internal/reset"
	"github.com/sweeney/reed-sensor/internal/sensor"
)

// recordingRecorder collects reports. Safe for concurrent use.
type recordingRecorder struct {
	mu      sync.Mutex
	reports []logic.Report
}

func (r *recordingRecorder) RecordReport(rep logic.Report) {
	r.mu.Lock()
	r.reports = append(r.reports, rep)
	r.mu.Unlock()
}

func (r *recordingRecorder) all() []logic.Report {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]logic.Report, len(r.reports))
	copy(out, r.reports)
	return out
}

func testConfig() Config {
	return Config{
		BaseURL:      "10.0.0.5:3000",
		DeviceID:     42,
		InitialLevel: logic.High,
		WaitTimeout:  20 * time.Millisecond,
		FatalGrace:   10 * time.Millisecond,
	}
}

func TestStepDeliversChange(t *testing.T) {
	ch := sensor.NewChannel(sensor.Capacity)
	n := notify.NewFakeNotifier()
	rec := &recordingRecorder{}
	r := New(testConfig(), ch, n, &reset.FakeResetter{}, rec)

	ctx := context.Background()
	ch.Send(ctx, logic.Low)

	if err := r.step(ctx); err != nil {
		t.Fatalf("step: %v", err)
	}

	urls := n.URLs()
	if len(urls) != 1 || urls[0] != "http://10.0.0.5:3000/api/42/true" {
		t.Errorf("urls: got %v", urls)
	}
	reports := rec.all()
	if len(reports) != 1 {
		t.Fatalf("reports: got %d, want 1", len(reports))
	}
	if reports[0].Heartbeat {
		t.Error("a received level is not a heartbeat")
	}
	if !reports[0].Closed || reports[0].Level != logic.Low {
		t.Errorf("report: got %+v", reports[0])
	}
	if reports[0].Outcome != "DELIVERED" || reports[0].HTTPStatus != 200 {
		t.Errorf("outcome: got %s/%d", reports[0].Outcome, reports[0].HTTPStatus)
	}
}

func TestStepHeartbeatReusesLastLevel(t *testing.T) {
	ch := sensor.NewChannel(sensor.Capacity)
	n := notify.NewFakeNotifier()
	rec := &recordingRecorder{}
	r := New(testConfig(), ch, n, &reset.FakeResetter{}, rec)
	ctx := context.Background()

	// Nothing queued: the initial level (HIGH, open) is reported.
	if err := r.step(ctx); err != nil {
		t.Fatalf("step 1: %v", err)
	}

	ch.Send(ctx, logic.Low)
	if err := r.step(ctx); err != nil {
		t.Fatalf("step 2: %v", err)
	}

	// Timeout again: the last delivered level (LOW, closed) is reused.
	start := time.Now()
	if err := r.step(ctx); err != nil {
		t.Fatalf("step 3: %v", err)
	}
	if elapsed := time.Since(start); elapsed < testConfig().WaitTimeout {
		t.Errorf("heartbeat after %v, before the wait timeout", elapsed)
	}

	want := []string{
		"http://10.0.0.5:3000/api/42/false",
		"http://10.0.0.5:3000/api/42/true",
		"http://10.0.0.5:3000/api/42/true",
	}
	urls := n.URLs()
	if len(urls) != len(want) {
		t.Fatalf("urls: got %v, want %v", urls, want)
	}
	for i := range want {
		if urls[i] != want[i] {
			t.Errorf("url %d: got %q, want %q", i, urls[i], want[i])
		}
	}

	reports := rec.all()
	if !reports[0].Heartbeat || reports[1].Heartbeat || !reports[2].Heartbeat {
		t.Errorf("heartbeat flags: got %v %v %v", reports[0].Heartbeat, reports[1].Heartbeat, reports[2].Heartbeat)
	}
	if r.Level() != logic.Low {
		t.Errorf("remembered level: got %s, want LOW", r.Level())
	}
}

func TestStepProcessesQueuedLevelsInOrder(t *testing.T) {
	ch := sensor.NewChannel(sensor.Capacity)
	n := notify.NewFakeNotifier()
	r := New(testConfig(), ch, n, &reset.FakeResetter{})
	ctx := context.Background()

	for _, l := range []logic.Level{logic.Low, logic.High, logic.Low} {
		ch.Send(ctx, l)
	}
	for i := 0; i < 3; i++ {
		if err := r.step(ctx); err != nil {
			t.Fatalf("step %d: %v", i, err)
		}
	}

	want := []string{"true", "false", "true"}
	for i, u := range n.URLs() {
		if !strings.HasSuffix(u, "/"+want[i]) {
			t.Errorf("url %d: got %q, want suffix %q", i, u, want[i])
		}
	}
}

func TestStepNotifyFailuresAreContained(t *testing.T) {
	ch := sensor.NewChannel(sensor.Capacity)
	n := notify.NewFakeNotifier()
	n.Results = []notify.Result{
		{Kind: notify.RequestFailed, Err: errors.New("bad request")},
		{Kind: notify.SendFailed, Err: errors.New("connection refused")},
		{Kind: notify.TimedOut, Err: context.DeadlineExceeded},
	}
	rec := &recordingRecorder{}
	r := New(testConfig(), ch, n, &reset.FakeResetter{}, rec)

	for i := 0; i < 4; i++ {
		if err := r.step(context.Background()); err != nil {
			t.Fatalf("step %d returned error: %v", i, err)
		}
	}

	want := []string{"REQUEST_FAILED", "SEND_FAILED", "TIMEOUT", "DELIVERED"}
	reports := rec.all()
	for i := range want {
		if reports[i].Outcome != want[i] {
			t.Errorf("report %d: got %s, want %s", i, reports[i].Outcome, want[i])
		}
	}
}

func TestRunURLOverflowResetsAfterGrace(t *testing.T) {
	cfg := testConfig()
	cfg.BaseURL = strings.Repeat("a", 200)
	n := notify.NewFakeNotifier()
	rs := &reset.FakeResetter{}
	r := New(cfg, sensor.NewChannel(sensor.Capacity), n, rs)

	start := time.Now()
	err := r.Run(context.Background())
	elapsed := time.Since(start)

	if !errors.Is(err, logic.ErrURLTooLong) {
		t.Fatalf("got %v, want ErrURLTooLong", err)
	}
	if rs.Count() != 1 {
		t.Errorf("resets: got %d, want 1", rs.Count())
	}
	if elapsed < cfg.FatalGrace {
		t.Errorf("reset after %v, before the %v grace period", elapsed, cfg.FatalGrace)
	}
	if len(n.URLs()) != 0 {
		t.Errorf("notifier should not be called with a bad URL, got %v", n.URLs())
	}
}

func TestRunURLOverflowResetFailure(t *testing.T) {
	cfg := testConfig()
	cfg.BaseURL = strings.Repeat("a", 200)
	rs := &reset.FakeResetter{Err: errors.New("operation not permitted")}
	r := New(cfg, sensor.NewChannel(sensor.Capacity), notify.NewFakeNotifier(), rs)

	err := r.Run(context.Background())
	if !errors.Is(err, logic.ErrURLTooLong) {
		t.Errorf("got %v, want ErrURLTooLong", err)
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	n := notify.NewFakeNotifier()
	n.Notified = make(chan string, 100)
	r := New(testConfig(), sensor.NewChannel(sensor.Capacity), n, &reset.FakeResetter{})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- r.Run(ctx) }()

	// Two heartbeats prove the loop keeps going without sensor activity.
	for i := 0; i < 2; i++ {
		select {
		case <-n.Notified:
		case <-time.After(time.Second):
			t.Fatalf("heartbeat %d not sent", i)
		}
	}
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run returned error: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestRunCancelDuringGrace(t *testing.T) {
	cfg := testConfig()
	cfg.BaseURL = strings.Repeat("a", 200)
	cfg.FatalGrace = time.Hour
	rs := &reset.FakeResetter{}
	r := New(cfg, sensor.NewChannel(sensor.Capacity), notify.NewFakeNotifier(), rs)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	if err := r.Run(ctx); err != nil {
		t.Errorf("Run returned error: %v", err)
	}
	if rs.Count() != 0 {
		t.Errorf("resets: got %d, want 0", rs.Count())
	}
}

func TestNewDefaults(t *testing.T) {
	r := New(Config{}, sensor.NewChannel(sensor.Capacity), notify.NewFakeNotifier(), &reset.FakeResetter{})
	if r.cfg.WaitTimeout != 5*time.Second {
		t.Errorf("WaitTimeout: got %v, want 5s", r.cfg.WaitTimeout)
	}
	if r.cfg.FatalGrace != 30*time.Second {
		t.Errorf("FatalGrace: got %v, want 30s", r.cfg.FatalGrace)
	}
}
