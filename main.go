package bridge

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/jetkvm/chatpad-bridge/internal/chatpad"
	"github.com/jetkvm/chatpad-bridge/internal/macros"
)

const shutdownTimeout = 5 * time.Second

// application wires one chatpad session at a time to the shared sinks.
type application struct {
	cfg       *Config
	status    *statusTracker
	macros    *macros.Store
	output    outputBackend
	hub       *eventHub
	publisher eventPublisher
	sessions  *sessionSwitch

	openTransport func(*Config) (sessionTransport, error)
	now           func() time.Time
}

func newApplication(cfg *Config) *application {
	return &application{
		cfg:           cfg,
		status:        newStatusTracker(),
		macros:        macros.NewStore(cfg.MacrosFile, macroLogger),
		hub:           newEventHub(webLogger, cfg.AllowedOrigins...),
		sessions:      newSessionSwitch(cfg.ChatpadEnabled),
		openTransport: openSerialTransport,
		now:           time.Now,
	}
}

func (a *application) engineOptions() chatpad.Options {
	return chatpad.Options{
		InitAttempts:   a.cfg.InitAttempts,
		VerifyChecksum: a.cfg.VerifyChecksum,
		Resync:         a.cfg.Resync,
		CapsLockChord:  a.cfg.CapsLockChord,
	}
}

// runSessions keeps a session running until ctx is done, reopening the
// device after RestartDelay whenever a session fails.
func (a *application) runSessions(ctx context.Context) error {
	for {
		err := a.runSession(ctx)
		if ctx.Err() != nil {
			a.status.stop()
			return nil
		}
		if chatpad.IsTransportError(err) {
			metricTransportErrors.Inc()
		}
		serialLogger.Error().Err(err).Dur("restart_delay", a.cfg.RestartDelay()).Msg("chatpad session ended, restarting")
		a.status.fail(err)

		select {
		case <-ctx.Done():
			a.status.stop()
			return nil
		case <-time.After(a.cfg.RestartDelay()):
		}
	}
}

// runSession opens the device and polls it until ctx is done or the
// transport fails.
func (a *application) runSession(ctx context.Context) error {
	t, err := a.openTransport(a.cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := t.Close(); err != nil {
			serialLogger.Warn().Err(err).Str("path", t.Path()).Msg("failed to close serial port")
		}
	}()

	id := uuid.NewString()
	l := engineLogger.With().Str("session", id).Str("port", t.Path()).Logger()

	metricSessions.Inc()
	a.status.start(id, t.Path(), a.now())

	sink := &dispatcher{
		session:   id,
		macros:    a.macros,
		output:    a.output,
		hub:       a.hub,
		publisher: a.publisher,
		status:    a.status,
		now:       a.now,
	}
	engine := chatpad.NewEngine(t, sink, a.engineOptions(), &l)

	l.Info().Msg("initializing chatpad")
	if err := engine.Initialize(ctx); err != nil {
		return err
	}
	for tick, err := range engine.Ticks(ctx) {
		if err != nil {
			return err
		}
		observeTick(tick)
		a.status.observeTick(tick, a.now())
	}
	return ctx.Err()
}

// Main runs the bridge until SIGINT or SIGTERM.
func Main(configPath string) error {
	cfg, err := LoadConfig(configPath)
	if err != nil {
		return err
	}
	level := setLogLevel(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if _, err := GetLocalVersion(); err != nil {
		rootLogger.Warn().Err(err).Str("version", builtAppVersion).Msg("build version is not semver")
	}
	rootLogger.Info().
		Str("version", builtAppVersion).
		Str("serial_port", cfg.SerialPort).
		Str("log_level", level.String()).
		Msg("starting chatpad-bridge")

	registerMetrics()
	updateStateMetric(StateStopped)

	app := newApplication(cfg)
	app.status.onChange = func(s SessionState) {
		rootLogger.Info().Str("state", string(s)).Msg("session state changed")
	}

	if err := app.macros.Load(); err != nil {
		macroLogger.Warn().Err(err).Msg("failed to load macros")
	} else {
		macroLogger.Debug().Strs("keys", app.macros.Keys()).Msg("macro slots in use")
	}

	app.output = initOutputBackend(cfg.OutputBackend)
	defer func() {
		if err := app.output.Close(); err != nil {
			outputLogger.Warn().Err(err).Msg("failed to close output backend")
		}
	}()

	if cfg.NATSURL.Valid {
		p, err := newNATSPublisher(cfg.NATSURL.String, cfg.NATSSubject)
		if err != nil {
			natsLogger.Warn().Err(err).Msg("NATS disabled")
		} else {
			app.publisher = p
			defer p.Close()
		}
	}

	scheduler, err := startJobs(app.status, cfg.StaleAfter())
	if err != nil {
		return err
	}
	defer func() {
		if err := scheduler.Shutdown(); err != nil {
			jobsLogger.Warn().Err(err).Msg("failed to stop scheduler")
		}
	}()

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := app.macros.Watch(ctx); err != nil {
			macroLogger.Warn().Err(err).Msg("macro watcher stopped")
		}
	}()

	var srv *http.Server
	if cfg.ListenAddress != "" {
		srv = &http.Server{
			Addr: cfg.ListenAddress,
			Handler: setupRouter(&webServer{
				status:   app.status,
				macros:   app.macros,
				hub:      app.hub,
				output:   app.output,
				sessions: app.sessions,
			}),
			ReadHeaderTimeout: 10 * time.Second,
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			webLogger.Info().Str("address", cfg.ListenAddress).Msg("starting HTTP server")
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				webLogger.Error().Err(err).Msg("HTTP server failed")
			}
		}()
	}

	err = app.supervise(ctx)

	if srv != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		if err := srv.Shutdown(shutdownCtx); err != nil {
			webLogger.Warn().Err(err).Msg("HTTP server shutdown failed")
		}
		cancel()
	}
	stop()
	wg.Wait()

	rootLogger.Info().Msg("chatpad-bridge stopped")
	return err
}
