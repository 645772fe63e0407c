// Command reed-sensor watches a reed/hall sensor on a GPIO line and reports
// its status to a remote HTTP server over Wi-Fi.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/sweeney/reed-sensor/internal/config"
	"github.com/sweeney/reed-sensor/internal/gpio"
	"github.com/sweeney/reed-sensor/internal/link"
	"github.com/sweeney/reed-sensor/internal/logic"
	"github.com/sweeney/reed-sensor/internal/mqtt"
	"github.com/sweeney/reed-sensor/internal/notify"
	"github.com/sweeney/reed-sensor/internal/reporter"
	"github.com/sweeney/reed-sensor/internal/reset"
	"github.com/sweeney/reed-sensor/internal/sensor"
	"github.com/sweeney/reed-sensor/internal/status"
	"github.com/sweeney/reed-sensor/internal/web"
)

// statusRefresh is how often counters owned by other goroutines are copied
// into the status tracker.
const statusRefresh = 2 * time.Second

type options struct {
	chip          string
	pin           int
	iface         string
	debounce      time.Duration
	waitTimeout   time.Duration
	notifyTimeout time.Duration
	deviceID      uint64
	httpAddr      string
	broker        string
	heartbeat     time.Duration
	resetMode     string
	printState    bool
}

func parseFlags(fs *flag.FlagSet, args []string) (options, error) {
	var o options
	fs.StringVar(&o.chip, "chip", gpio.DefaultChip, "GPIO chip name")
	fs.IntVar(&o.pin, "pin", gpio.DefaultPin, "GPIO line offset of the sensor input")
	fs.StringVar(&o.iface, "iface", "wlan0", "Wireless interface")
	fs.DurationVar(&o.debounce, "debounce", sensor.DefaultDebounce, "Settle time after an edge")
	fs.DurationVar(&o.waitTimeout, "wait", reporter.DefaultWaitTimeout, "Report the current status if nothing changes for this long")
	fs.DurationVar(&o.notifyTimeout, "notify-timeout", notify.DefaultTimeout, "Deadline for one HTTP notification")
	fs.Uint64Var(&o.deviceID, "device-id", 0, "Fixed device id (0 derives it from the interface MAC)")
	fs.StringVar(&o.httpAddr, "http", ":80", "HTTP status address (empty to disable)")
	fs.StringVar(&o.broker, "broker", "", "MQTT broker address for the report mirror (empty to disable)")
	fs.DurationVar(&o.heartbeat, "heartbeat", 15*time.Minute, "MQTT status heartbeat interval (0 to disable)")
	fs.StringVar(&o.resetMode, "reset", "reboot", `How to reset on a fatal fault: "reboot" or "exit"`)
	fs.BoolVar(&o.printState, "print-state", false, "Print current sensor state and exit")

	if err := fs.Parse(args); err != nil {
		return o, err
	}
	return o, nil
}

func main() {
	opts, err := parseFlags(flag.CommandLine, os.Args[1:])
	if err != nil {
		log.Fatalf("fatal: %v", err)
	}
	if err := run(opts); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}

func run(opts options) error {
	input, err := gpio.NewRealInput(opts.chip, opts.pin)
	if err != nil {
		return fmt.Errorf("init gpio: %w", err)
	}
	defer input.Close()

	if opts.printState {
		return printState(os.Stdout, input)
	}

	build := config.Load()
	if err := build.Validate(); err != nil {
		return err
	}
	if !build.URLFits() {
		log.Printf("config: base URL %q does not fit the %d-byte request buffer; the device will reset on its first report",
			build.BaseURL, logic.URLCapacity)
	}

	resetter, err := newResetter(opts.resetMode)
	if err != nil {
		return err
	}

	initial, err := input.Level()
	if err != nil {
		return fmt.Errorf("read initial level: %w", err)
	}

	stack := link.NewInterfaceStack(opts.iface)
	id, err := deviceID(context.Background(), opts.deviceID, stack)
	if err != nil {
		return err
	}
	bootID := uuid.NewString()
	log.Print(startupLine(id, bootID, build, opts))

	tracker := status.NewTracker(id, bootID, time.Now(), status.Config{
		BaseURL:         build.BaseURL,
		Chip:            opts.chip,
		Pin:             opts.pin,
		Interface:       opts.iface,
		DebounceMs:      opts.debounce.Milliseconds(),
		WaitTimeoutMs:   opts.waitTimeout.Milliseconds(),
		NotifyTimeoutMs: opts.notifyTimeout.Milliseconds(),
		HeartbeatMs:     opts.heartbeat.Milliseconds(),
		Broker:          opts.broker,
		HTTPAddr:        opts.httpAddr,
	})
	tracker.SetLevel(initial)
	stack.OnChange = func(up bool, cfg link.IPConfig, hasIP bool) {
		ip := ""
		if hasIP {
			ip = cfg.Address.Addr().String()
		}
		tracker.SetNetwork(up, ip)
	}

	d := deps{
		build:     build,
		opts:      opts,
		deviceID:  id,
		initial:   initial,
		input:     input,
		ctrl:      link.NewWPAController(opts.iface),
		stack:     stack,
		notifier:  notify.NewHTTPNotifier(nil, opts.notifyTimeout),
		resetter:  resetter,
		tracker:   tracker,
		readyPoll: link.DefaultReadyPoll,
		backoff:   link.DefaultBackoff,
		fatalWait: reset.DefaultGrace,
		hostInfo:  status.ReadHostInfo,
	}

	if opts.broker != "" {
		pub, err := mqtt.NewRealPublisher(opts.broker, "reed-sensor-"+id.String(), bootID)
		if err != nil {
			return fmt.Errorf("init mqtt: %w", err)
		}
		defer pub.Close()
		d.publisher = pub
		d.mqttStatus = pub
	}

	if opts.httpAddr != "" {
		d.web = web.New(opts.httpAddr, tracker)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	return runTasks(context.Background(), d, sigCh)
}

// deps holds everything runTasks needs. It is built once in run; tests build
// it from fakes.
type deps struct {
	build    config.Build
	opts     options
	deviceID logic.DeviceID
	initial  logic.Level

	input    gpio.Input
	ctrl     link.Controller
	stack    link.Stack
	notifier notify.Notifier
	resetter reset.Resetter
	tracker  *status.Tracker

	// Optional; nil disables the MQTT mirror and the status page.
	publisher  mqtt.Publisher
	mqttStatus mqtt.ConnectionStatus
	web        *web.Server

	readyPoll time.Duration
	backoff   time.Duration
	fatalWait time.Duration
	hostInfo  func(context.Context) (*status.HostInfo, error)
}

// runTasks runs the device until a signal arrives (nil) or a task fails.
func runTasks(ctx context.Context, d deps, sig <-chan os.Signal) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	states := sensor.NewChannel(sensor.Capacity)
	monitor := sensor.NewMonitor(d.input, states, d.opts.debounce)

	sup := link.NewSupervisor(d.ctrl, link.Credentials{SSID: d.build.SSID, Password: d.build.Password}, d.backoff)
	sup.OnStateChange = func(st logic.ConnectionState) {
		d.tracker.SetLink(st, sup.Attempts())
	}

	recorders := []reporter.Recorder{d.tracker}
	if d.publisher != nil {
		recorders = append(recorders, mqtt.NewMirror(d.publisher))
	}
	rep := reporter.New(reporter.Config{
		BaseURL:      d.build.BaseURL,
		DeviceID:     d.deviceID,
		InitialLevel: d.initial,
		WaitTimeout:  d.opts.waitTimeout,
		FatalGrace:   d.fatalWait,
	}, states, d.notifier, d.resetter, recorders...)

	publishStatus(ctx, d, "STARTUP", "")

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error { return sup.Run(gctx) })
	g.Go(func() error { return d.stack.Run(gctx) })
	g.Go(func() error { return monitor.Run(gctx) })
	g.Go(func() error {
		if _, err := link.WaitReady(gctx, d.stack, d.readyPoll); err != nil {
			return nil
		}
		return rep.Run(gctx)
	})
	g.Go(func() error {
		refreshLoop(gctx, d, sup, monitor)
		return nil
	})
	if d.web != nil {
		g.Go(func() error {
			// The status page is optional; reporting carries on without it.
			if err := d.web.Run(gctx); err != nil {
				log.Printf("web: %v", err)
			}
			return nil
		})
	}
	g.Go(func() error {
		select {
		case s := <-sig:
			log.Printf("received %v, shutting down", s)
			refreshTracker(d, sup, monitor)
			publishStatus(gctx, d, "SHUTDOWN", signalName(s))
			cancel()
		case <-gctx.Done():
		}
		return nil
	})

	return g.Wait()
}

// refreshLoop copies counters into the tracker and publishes the MQTT
// heartbeat.
func refreshLoop(ctx context.Context, d deps, sup *link.Supervisor, monitor *sensor.Monitor) {
	refresh := time.NewTicker(statusRefresh)
	defer refresh.Stop()

	var heartbeat <-chan time.Time
	if d.publisher != nil && d.opts.heartbeat > 0 {
		t := time.NewTicker(d.opts.heartbeat)
		defer t.Stop()
		heartbeat = t.C
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-refresh.C:
			refreshTracker(d, sup, monitor)
		case <-heartbeat:
			refreshTracker(d, sup, monitor)
			publishStatus(ctx, d, "HEARTBEAT", "")
		}
	}
}

func refreshTracker(d deps, sup *link.Supervisor, monitor *sensor.Monitor) {
	edges, _ := monitor.Counts()
	d.tracker.SetEdges(edges)
	d.tracker.SetLink(sup.State(), sup.Attempts())
	if d.mqttStatus != nil {
		d.tracker.SetMQTTConnected(d.mqttStatus.IsConnected())
	}
}

// publishStatus sends a full status snapshot on the system topic.
func publishStatus(ctx context.Context, d deps, event, reason string) {
	if d.publisher == nil {
		return
	}
	if d.hostInfo != nil {
		if info, err := d.hostInfo(ctx); err != nil {
			log.Printf("host stats: %v", err)
		} else {
			d.tracker.SetHost(info)
		}
	}
	snap := d.tracker.Snapshot()
	ev := mqtt.SystemEvent{
		Timestamp:  snap.Now,
		Event:      event,
		Reason:     reason,
		Retained:   event != "HEARTBEAT",
		RawPayload: status.FormatStatusEvent(snap, event, reason),
	}
	if err := d.publisher.PublishSystem(ev); err != nil {
		log.Printf("failed to publish %s event: %v", event, err)
		return
	}
	log.Printf("published %s event", event)
}

func startupLine(id logic.DeviceID, bootID string, build config.Build, opts options) string {
	b := build.Redacted()
	return fmt.Sprintf("started: device=%s boot=%s url=%s ssid=%q password=%s pin=%s:%d",
		id, bootID, b.BaseURL, b.SSID, b.Password, opts.chip, opts.pin)
}

func printState(w io.Writer, input gpio.Input) error {
	level, err := input.Level()
	if err != nil {
		return fmt.Errorf("read gpio: %w", err)
	}
	_, err = fmt.Fprintf(w, "Sensor: %s (level %s)\n", logic.StatusString(logic.Status(level)), level)
	return err
}

func newResetter(mode string) (reset.Resetter, error) {
	switch mode {
	case "reboot":
		return reset.Reboot{}, nil
	case "exit":
		return reset.Exit{Code: 1}, nil
	}
	return nil, fmt.Errorf("unknown reset mode %q", mode)
}

type hardwareAddrer interface {
	HardwareAddr(ctx context.Context) (net.HardwareAddr, error)
}

var errNoMAC = errors.New("interface has no hardware address")

// deviceID returns fixed if non-zero, otherwise the id derived from the MAC.
func deviceID(ctx context.Context, fixed uint64, hw hardwareAddrer) (logic.DeviceID, error) {
	if fixed != 0 {
		return logic.DeviceID(fixed), nil
	}
	mac, err := hw.HardwareAddr(ctx)
	if err != nil {
		return 0, fmt.Errorf("read mac: %w", err)
	}
	if len(mac) == 0 {
		return 0, errNoMAC
	}
	return logic.DeviceIDFromMAC(mac), nil
}

func signalName(s os.Signal) string {
	switch s {
	case syscall.SIGINT:
		return "SIGINT"
	case syscall.SIGTERM:
		return "SIGTERM"
	}
	return "UNKNOWN"
}
