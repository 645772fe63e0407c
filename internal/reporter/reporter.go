// Package reporter runs the main reporting loop: wait for a settled level
// (or time out and reuse the last one), build the status URL and notify the
// server.
package reporter

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/sweeney/reed-sensor/internal/logic"
	"github.com/sweeney/reed-sensor/internal/notify"
	"github.com/sweeney/reed-sensor/internal/reset"
	"github.com/sweeney/reed-sensor/internal/sensor"
)

// DefaultWaitTimeout bounds the channel wait and sets the heartbeat cadence.
const DefaultWaitTimeout = 5 * time.Second

// Recorder receives every report (status.Tracker, mqtt.Mirror).
type Recorder interface {
	RecordReport(r logic.Report)
}

// Config configures a Reporter.
type Config struct {
	BaseURL      string
	DeviceID     logic.DeviceID
	InitialLevel logic.Level

	// WaitTimeout defaults to DefaultWaitTimeout; FatalGrace to
	// reset.DefaultGrace.
	WaitTimeout time.Duration
	FatalGrace  time.Duration
}

// Reporter is the main loop. It owns the remembered level.
type Reporter struct {
	cfg      Config
	states   *sensor.Channel
	notifier notify.Notifier
	resetter reset.Resetter
	recorder []Recorder
	now      func() time.Time

	level logic.Level
}

// New creates a Reporter.
func New(cfg Config, states *sensor.Channel, n notify.Notifier, r reset.Resetter, recorders ...Recorder) *Reporter {
	if cfg.WaitTimeout <= 0 {
		cfg.WaitTimeout = DefaultWaitTimeout
	}
	if cfg.FatalGrace <= 0 {
		cfg.FatalGrace = reset.DefaultGrace
	}
	return &Reporter{
		cfg:      cfg,
		states:   states,
		notifier: n,
		resetter: r,
		recorder: recorders,
		now:      time.Now,
		level:    cfg.InitialLevel,
	}
}

// Run loops until ctx is done (returning nil) or the URL cannot be built. In
// the latter case the device is reset after the grace period; Run returns an
// error wrapping logic.ErrURLTooLong only if the reset did not take the
// process down.
func (r *Reporter) Run(ctx context.Context) error {
	for {
		if err := r.step(ctx); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
	}
}

// step runs one iteration of the loop.
func (r *Reporter) step(ctx context.Context) error {
	heartbeat := false
	level, err := r.states.Receive(ctx, r.cfg.WaitTimeout)
	switch {
	case err == nil:
		r.level = level
	case errors.Is(err, sensor.ErrReceiveTimeout):
		heartbeat = true
	default:
		return err
	}

	closed := logic.Status(r.level)

	url, err := logic.BuildURL(r.cfg.BaseURL, r.cfg.DeviceID, closed)
	if err != nil {
		msg := fmt.Sprintf("failed to build URL: %v", err)
		if rerr := reset.Fatal(ctx, r.resetter, r.cfg.FatalGrace, msg); rerr != nil {
			return fmt.Errorf("%w (%v)", err, rerr)
		}
		return err
	}

	res := r.notifier.Notify(ctx, url)

	report := logic.Report{
		Timestamp:  r.now(),
		DeviceID:   r.cfg.DeviceID,
		Level:      r.level,
		Closed:     closed,
		Heartbeat:  heartbeat,
		Outcome:    res.Kind.String(),
		HTTPStatus: res.StatusCode,
	}
	for _, rec := range r.recorder {
		rec.RecordReport(report)
	}
	if heartbeat {
		log.Printf("report: heartbeat sensor=%s outcome=%s", logic.StatusString(closed), res.Kind)
	} else {
		log.Printf("report: change sensor=%s outcome=%s", logic.StatusString(closed), res.Kind)
	}
	return nil
}

// Level returns the remembered level. Not safe to call while Run is active.
func (r *Reporter) Level() logic.Level {
	return r.level
}
