// Command boiler-controller runs the boiler scan cycle against Modbus field
// I/O and publishes state changes to MQTT or NATS.
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	"github.com/go-co-op/gocron/v2"
	"github.com/google/uuid"
	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/sweeney/boiler-controller/internal/config"
	"github.com/sweeney/boiler-controller/internal/field"
	"github.com/sweeney/boiler-controller/internal/gpio"
	"github.com/sweeney/boiler-controller/internal/logic"
	"github.com/sweeney/boiler-controller/internal/metrics"
	"github.com/sweeney/boiler-controller/internal/mqtt"
	"github.com/sweeney/boiler-controller/internal/natsbus"
	"github.com/sweeney/boiler-controller/internal/netinfo"
	"github.com/sweeney/boiler-controller/internal/status"
	"github.com/sweeney/boiler-controller/internal/web"
)

// safeWriteAttempts bounds the shutdown write of the de-energised outputs.
const safeWriteAttempts = 3

// CLI flags override the matching config file values when set.
type CLI struct {
	Config     string `short:"c" help:"YAML configuration file (defaults when empty)"`
	PrintState bool   `help:"Read the plant once, print the resulting state and exit"`
	Verbose    bool   `short:"v" help:"Log every scan that changes the run state"`
	Broker     string `help:"Broker URL (tcp://, ssl://, ws:// for MQTT, nats:// for NATS)"`
	NoBroker   bool   `help:"Disable event publishing"`
	HTTP       string `name:"http" help:"HTTP status address"`
	Field      string `help:"Field driver override (modbus or sim)"`
	NetworkEnv string `help:"pi-helper env file with network status"`
}

func main() {
	var cli CLI
	kong.Parse(&cli,
		kong.Name("boiler-controller"),
		kong.Description("Boiler burner controller: scan cycle, alarms and event publishing."),
	)

	cfg, err := loadConfig(cli)
	if err != nil {
		log.Fatalf("fatal: %v", err)
	}
	if err := run(cfg, cli.PrintState, cli.Verbose); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}

// loadConfig reads the config file and applies flag overrides.
func loadConfig(cli CLI) (config.Config, error) {
	cfg, err := config.Load(cli.Config)
	if err != nil {
		return config.Config{}, err
	}
	if cli.Broker != "" {
		cfg.Publisher.Broker = cli.Broker
	}
	if cli.NoBroker {
		cfg.Publisher.Broker = ""
	}
	if cli.HTTP != "" {
		cfg.HTTP.Addr = cli.HTTP
	}
	if cli.Field != "" {
		cfg.Field.Driver = cli.Field
	}
	if cli.NetworkEnv != "" {
		cfg.NetworkEnv = cli.NetworkEnv
	}
	if err := cfg.Validate(); err != nil {
		return config.Config{}, fmt.Errorf("invalid flags: %w", err)
	}
	return cfg, nil
}

func run(cfg config.Config, printState, verbose bool) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	engine, err := logic.NewEngine(cfg.Logic())
	if err != nil {
		return fmt.Errorf("init engine: %w", err)
	}

	io, err := openField(ctx, cfg)
	if err != nil {
		return fmt.Errorf("init field: %w", err)
	}
	defer io.Close()

	if printState {
		return printOnce(io, engine, time.Now)
	}

	var panel gpio.Panel
	if cfg.Panel.Enabled {
		p, err := gpio.NewRealPanel(cfg.Panel.Pins)
		if err != nil {
			return fmt.Errorf("init panel: %w", err)
		}
		defer p.Close()
		panel = p
	}

	runID := uuid.NewString()
	publisher, err := openPublisher(cfg.Publisher, runID)
	if err != nil {
		return fmt.Errorf("init publisher: %w", err)
	}
	defer publisher.Close()

	rec := metrics.NewRecorder(prom.NewRegistry())

	// Initialize status tracker (before STARTUP so snapshot is available)
	tracker := status.NewTracker(time.Now(), runID, statusConfig(cfg))
	tracker.SetNetwork(toStatusNetwork(netinfo.Load(cfg.NetworkEnv)))
	if w, err := netinfo.Watch(ctx, cfg.NetworkEnv, func(info *netinfo.Info) {
		tracker.SetNetwork(toStatusNetwork(info))
	}); err != nil {
		log.Printf("netinfo: not watching %s: %v", cfg.NetworkEnv, err)
	} else {
		defer w.Close()
	}

	publishSystem(publisher, tracker, rec, mqtt.SystemStartup, "", true, time.Now)

	if cfg.HTTP.Addr != "" {
		srv := web.New(cfg.HTTP.Addr, tracker, rec.Handler())
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Printf("http server error: %v", err)
			}
		}()
		defer srv.Shutdown(context.Background())
		log.Printf("http status server listening on %s", cfg.HTTP.Addr)
	}

	if cfg.Publisher.Heartbeat > 0 {
		sched, err := startHeartbeat(cfg.Publisher.Heartbeat, publisher, tracker, rec)
		if err != nil {
			return fmt.Errorf("init heartbeat: %w", err)
		}
		defer sched.Shutdown()
	}

	log.Printf("started: run=%s scan=%v field=%s broker=%q heartbeat=%v",
		runID, cfg.ScanInterval, cfg.FieldDescription(), cfg.Publisher.Broker, cfg.Publisher.Heartbeat)

	ticker := time.NewTicker(cfg.ScanInterval)
	defer ticker.Stop()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	l := &loop{
		engine:    engine,
		io:        io,
		panel:     panel,
		publisher: publisher,
		tracker:   tracker,
		metrics:   rec,
		verbose:   verbose,
	}
	return l.run(time.Now, ticker.C, sigCh)
}

func openField(ctx context.Context, cfg config.Config) (field.IO, error) {
	if cfg.Field.Driver == config.DriverSim {
		log.Printf("field: using simulated plant")
		return field.NewSimIO(), nil
	}
	return field.NewModbusIO(ctx, cfg.Field.Modbus)
}

func openPublisher(cfg config.PublisherConfig, runID string) (mqtt.Publisher, error) {
	clientID := cfg.ClientID
	if clientID == "" {
		clientID = "boiler-controller-" + runID[:8]
	}
	switch cfg.Kind() {
	case config.PublisherNATS:
		return natsbus.Connect(cfg.Broker, clientID)
	case config.PublisherMQTT:
		return mqtt.NewRealPublisher(cfg.Broker, clientID)
	default:
		log.Printf("publisher: disabled")
		return nopPublisher{}, nil
	}
}

// nopPublisher drops everything. Used when no broker is configured.
type nopPublisher struct{}

func (nopPublisher) Publish(logic.Event) error            { return nil }
func (nopPublisher) PublishSystem(mqtt.SystemEvent) error { return nil }
func (nopPublisher) Close() error                         { return nil }
func (nopPublisher) IsConnected() bool                    { return false }

func statusConfig(cfg config.Config) status.Config {
	return status.Config{
		ScanMs:         cfg.ScanInterval.Milliseconds(),
		StartupDelayMs: cfg.StartupDelay.Milliseconds(),
		FilterWindow:   cfg.FilterWindow,
		HeartbeatMs:    cfg.Publisher.Heartbeat.Milliseconds(),
		VoltageTrip:    cfg.Thresholds.VoltageTrip,
		VoltageReset:   cfg.Thresholds.VoltageReset,
		TempTrip:       cfg.Thresholds.TempTrip,
		TempReset:      cfg.Thresholds.TempReset,
		Field:          cfg.FieldDescription(),
		Broker:         cfg.Publisher.Broker,
		HTTPAddr:       cfg.HTTP.Addr,
	}
}

func toStatusNetwork(info *netinfo.Info) *status.NetworkInfo {
	if info == nil {
		return nil
	}
	return &status.NetworkInfo{
		Type:       info.Type,
		IP:         info.IP,
		Status:     info.Status,
		Gateway:    info.Gateway,
		WifiStatus: info.WifiStatus,
		SSID:       info.SSID,
	}
}

// startHeartbeat schedules the periodic HEARTBEAT system event.
func startHeartbeat(every time.Duration, publisher mqtt.Publisher, tracker *status.Tracker, rec *metrics.Recorder) (gocron.Scheduler, error) {
	sched, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("create scheduler: %w", err)
	}
	_, err = sched.NewJob(
		gocron.DurationJob(every),
		gocron.NewTask(publishSystem, publisher, tracker, rec, mqtt.SystemHeartbeat, "", false, time.Now),
		gocron.WithName("heartbeat"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		sched.Shutdown()
		return nil, fmt.Errorf("schedule heartbeat: %w", err)
	}
	sched.Start()
	return sched, nil
}

// publishSystem sends a system event carrying a full status snapshot.
func publishSystem(publisher mqtt.Publisher, tracker *status.Tracker, rec *metrics.Recorder, name, reason string, retained bool, now func() time.Time) {
	if cs, ok := publisher.(mqtt.ConnectionStatus); ok {
		tracker.SetConnected(cs.IsConnected())
	}
	snap := tracker.Snapshot()
	event := mqtt.SystemEvent{
		Timestamp:  now(),
		Event:      name,
		Reason:     reason,
		Retained:   retained,
		RawPayload: status.FormatStatusEvent(snap, name, reason),
	}
	if err := publisher.PublishSystem(event); err != nil {
		log.Printf("failed to publish %s event: %v", name, err)
		rec.IncPublishError()
		return
	}
	log.Printf("published %s event", name)
}

// printOnce runs a single scan and prints what the controller would do.
func printOnce(io field.IO, engine *logic.Engine, now func() time.Time) error {
	sample, err := io.Read()
	if err != nil {
		return fmt.Errorf("read field: %w", err)
	}
	res := engine.Tick(logic.Input{Sensors: sample.Sensors, Commands: sample.Commands, Time: now()})
	fmt.Print(formatState(sample.Sensors, res.State))
	return nil
}

func formatState(s logic.Sensors, st logic.State) string {
	return fmt.Sprintf("Voltage: %.1f V, Boiler: %.1f °C, Water: %.1f °C\n"+
		"Gas: %s, Vacuum: %s, Oil pressure: %s, Emergency stop: %s\n"+
		"Alarm: %s, Ready: %s\n"+
		"Gas valve: %s, Water pump: %s, Oil pump: %s, Fan: %s\n",
		st.Voltage, st.BoilerTemp, st.WaterTemp,
		okString(s.GasPresent), okString(s.VacuumPresent), okString(s.OilPressureOK), onOff(s.EmergencyStop),
		st.AlarmCode, onOff(st.Run.Ready),
		onOff(st.Outputs.GasValve), onOff(st.Outputs.WaterPump), onOff(st.Outputs.OilPump), onOff(st.Outputs.FanVent))
}

func onOff(on bool) string {
	if on {
		return "ON"
	}
	return "OFF"
}

func okString(ok bool) string {
	if ok {
		return "OK"
	}
	return "FAULT"
}

// loop owns the engine and the field I/O for the lifetime of the daemon.
type loop struct {
	engine    *logic.Engine
	io        field.IO
	panel     gpio.Panel // nil when no local panel is fitted
	publisher mqtt.Publisher
	tracker   *status.Tracker
	metrics   *metrics.Recorder
	verbose   bool
}

func (l *loop) run(now func() time.Time, tick <-chan time.Time, sig <-chan os.Signal) error {
	for {
		select {
		case s := <-sig:
			log.Printf("received %v, shutting down", s)
			return l.shutdown(signalName(s), now)

		case <-tick:
			l.scan(now)
		}
	}
}

// scan runs one cycle: read, solve, write, publish.
func (l *loop) scan(now func() time.Time) {
	t := now()
	sample, err := l.io.Read()
	if err != nil {
		// Outputs hold their last value; the engine does not see a partial cycle.
		log.Printf("field read error: %v", err)
		l.tracker.AddReadError()
		l.metrics.IncReadError()
		return
	}

	cmds := sample.Commands
	if l.panel != nil {
		pressed, err := l.panel.Read()
		if err != nil {
			// Zero-filled buttons would turn a held start into a new edge.
			log.Printf("panel read error: %v", err)
			l.tracker.AddReadError()
			l.metrics.IncReadError()
			return
		}
		cmds = cmds.Merge(pressed)
	}

	before := l.engine.State().Run
	res := l.engine.Tick(logic.Input{Sensors: sample.Sensors, Commands: cmds, Time: t})
	st := res.State

	if err := l.io.Write(st.Outputs); err != nil {
		log.Printf("field write error: %v", err)
		l.metrics.IncWriteError()
	}
	if l.panel != nil {
		if err := l.panel.SetLamps(gpio.LampsFor(st.Outputs)); err != nil {
			log.Printf("panel lamp error: %v", err)
		}
	}

	for _, event := range res.Events {
		log.Printf("event: %s code=%s running=%v valve=%v", event.Type, event.Code, event.Running, event.GasValve)
		l.metrics.IncEvent(event.Type)
		if err := l.publisher.Publish(event); err != nil {
			log.Printf("publish error: %v", err)
			l.metrics.IncPublishError()
		}
	}

	if l.verbose && st.Run != before {
		log.Printf("scan: enabled=%v running=%v ready=%v alarm=%s", st.Run.Enabled, st.Run.Running, st.Run.Ready, st.AlarmCode)
	}

	l.tracker.Update(sample.Sensors, st, t)
	if cs, ok := l.publisher.(mqtt.ConnectionStatus); ok {
		l.tracker.SetConnected(cs.IsConnected())
	}
	l.metrics.SetState(st)
	l.metrics.ObserveScan(now().Sub(t))
}

// shutdown de-energises the plant and announces the shutdown. SHUTDOWN is
// published even when the safe write fails; the write error is returned.
func (l *loop) shutdown(reason string, now func() time.Time) error {
	safeErr := writeSafe(l.io, safeWriteAttempts)
	if safeErr != nil {
		log.Printf("failed to write safe outputs: %v", safeErr)
		safeErr = fmt.Errorf("write safe outputs: %w", safeErr)
	}
	if l.panel != nil {
		if err := l.panel.SetLamps(gpio.Lamps{}); err != nil {
			log.Printf("panel lamp error: %v", err)
		}
	}
	publishSystem(l.publisher, l.tracker, l.metrics, mqtt.SystemShutdown, reason, true, now)
	return safeErr
}

// writeSafe writes the de-energised output image, retrying on failure.
func writeSafe(io field.IO, attempts int) error {
	var err error
	for i := 0; i < attempts; i++ {
		if err = io.Write(logic.SafeOutputs()); err == nil {
			return nil
		}
	}
	return fmt.Errorf("after %d attempts: %w", attempts, err)
}

func signalName(s os.Signal) string {
	switch s {
	case syscall.SIGINT:
		return "SIGINT"
	case syscall.SIGTERM:
		return "SIGTERM"
	default:
		return "UNKNOWN"
	}
}
