package runtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/loqalabs/loqa-ime/internal/audio"
	"github.com/loqalabs/loqa-ime/internal/bus"
	"github.com/loqalabs/loqa-ime/internal/config"
	"github.com/loqalabs/loqa-ime/internal/dictation"
	"github.com/loqalabs/loqa-ime/internal/history"
	"github.com/loqalabs/loqa-ime/internal/ime"
	"github.com/loqalabs/loqa-ime/internal/natsserver"
	"github.com/loqalabs/loqa-ime/internal/stt"
	"github.com/loqalabs/loqa-ime/internal/wayland"
)

// captureDevice is the recording handle the session owns for its lifetime.
type captureDevice interface {
	dictation.Capture
	Close() error
}

type Runtime struct {
	cfg        config.Config
	logger     *slog.Logger
	httpServer *http.Server
	ready      atomic.Bool
	wg         sync.WaitGroup
	history    *history.Store
	bus        *bus.Client

	dial        func() (*wayland.Display, error)
	openEngine  func(config.RecognizerConfig) (stt.Engine, error)
	openCapture func(sampleRate int) (captureDevice, error)
}

func New(cfg config.Config, logger *slog.Logger) *Runtime {
	return &Runtime{
		cfg:        cfg,
		logger:     logger,
		dial:       wayland.Connect,
		openEngine: stt.Open,
		openCapture: func(sampleRate int) (captureDevice, error) {
			return audio.Open(audio.DeviceName, sampleRate)
		},
	}
}

// Run sets everything up and dispatches input-method events until the
// compositor reports the input method unavailable or ctx is cancelled, both
// of which return nil. Any setup or transport failure is returned.
func (r *Runtime) Run(ctx context.Context) error {
	shutdownTelemetry, metricsHandler, err := setupTelemetry(r.cfg, r.logger)
	if err != nil {
		return fmt.Errorf("failed to setup telemetry: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTelemetry(shutdownCtx); err != nil {
			r.logger.Error("telemetry shutdown error", slog.String("error", err.Error()))
		}
	}()

	store, err := history.Open(ctx, r.cfg.History, r.logger.With(slog.String("component", "history")))
	if err != nil {
		return fmt.Errorf("open history: %w", err)
	}
	defer func() {
		if err := store.Shutdown(context.Background()); err != nil {
			r.logger.Warn("history close error", slog.String("error", err.Error()))
		}
	}()

	r.history = store

	sinks := []dictation.Sink{historySink(store, r.cfg.Recognizer.Mode, r.logger)}
	if r.cfg.Bus.Enabled {
		client, closeBus, err := r.connectBus(ctx)
		if err != nil {
			return err
		}
		defer closeBus()
		r.bus = client
		sinks = append(sinks, busSink(client, r.cfg.Recognizer.Mode, r.logger))
	}

	if r.cfg.HTTP.Enabled {
		r.startHTTP(metricsHandler)
		defer r.stopHTTP()
	}

	display, err := r.dial()
	if err != nil {
		return fmt.Errorf("connect display: %w", err)
	}
	defer display.Close()

	boot, err := display.Bootstrap()
	if err != nil {
		return fmt.Errorf("bootstrap: %w", err)
	}

	engine, err := r.openEngine(r.cfg.Recognizer)
	if err != nil {
		return fmt.Errorf("load recognizer: %w", err)
	}
	defer engine.Close()
	sampleRate := engine.SampleRate()

	device, err := r.openCapture(sampleRate)
	if err != nil {
		return fmt.Errorf("open capture device: %w", err)
	}
	defer device.Close()

	im, err := display.GetInputMethod(boot)
	if err != nil {
		return err
	}

	handles := dictation.Handles{Capture: device, Engine: engine, Output: im}
	session := ime.NewSession(ctx, handles, dictation.New(r.logger, sinks...), r.logger)
	im.SetListener(session.Handle)

	stop := context.AfterFunc(ctx, func() { _ = display.Close() })
	defer stop()

	r.ready.Store(true)
	r.logger.Info("input method ready",
		slog.String("recognizer", r.cfg.Recognizer.Mode),
		slog.Int("sample_rate", sampleRate))
	err = session.Run(display)
	r.ready.Store(false)

	if err != nil {
		if ctx.Err() != nil {
			r.logger.Info("interrupted")
			return nil
		}
		return err
	}
	if err := im.Destroy(); err != nil {
		r.logger.Debug("destroy input method", slog.String("error", err.Error()))
	}
	return nil
}

func (r *Runtime) connectBus(ctx context.Context) (*bus.Client, func(), error) {
	busCfg := r.cfg.Bus
	embedded, err := natsserver.Start(busCfg, r.logger)
	if err != nil {
		return nil, nil, err
	}
	if embedded != nil {
		busCfg.Servers = []string{embedded.ClientURL()}
	}
	client, err := bus.Connect(ctx, busCfg, r.logger)
	if err != nil {
		embedded.Shutdown()
		return nil, nil, err
	}
	r.logger.Info("publishing committed transcripts", slog.String("subject", client.Subject()))
	return client, func() {
		client.Close()
		embedded.Shutdown()
	}, nil
}

func (r *Runtime) startHTTP(metricsHandler http.Handler) {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", r.handleHealth)
	mux.HandleFunc("/readyz", r.handleReady)
	mux.HandleFunc("/history", r.handleHistory)
	if metricsHandler != nil {
		mux.Handle("/metrics", metricsHandler)
	}

	addr := fmt.Sprintf("%s:%d", r.cfg.HTTP.Bind, r.cfg.HTTP.Port)
	r.httpServer = &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		if err := r.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			r.logger.Error("http server failed", slog.String("error", err.Error()))
		}
	}()
	r.logger.Info("http server started", slog.String("addr", addr))
}

func (r *Runtime) stopHTTP() {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := r.httpServer.Shutdown(shutdownCtx); err != nil {
		r.logger.Error("http shutdown error", slog.String("error", err.Error()))
	}
	r.wg.Wait()
}

func (r *Runtime) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// handleReady is 200 once the session is dispatching and, with the bus
// enabled, while the NATS connection is up.
func (r *Runtime) handleReady(w http.ResponseWriter, _ *http.Request) {
	if r.ready.Load() && (r.bus == nil || r.bus.Healthy()) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
		return
	}
	w.WriteHeader(http.StatusServiceUnavailable)
	_, _ = w.Write([]byte("not ready"))
}

// handleHistory lists recent dictations, newest first. ?limit=N caps the count.
func (r *Runtime) handleHistory(w http.ResponseWriter, req *http.Request) {
	if r.history == nil || !r.history.Persistent() {
		http.Error(w, "history disabled", http.StatusNotFound)
		return
	}
	limit := 0
	if v := req.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			http.Error(w, "invalid limit", http.StatusBadRequest)
			return
		}
		limit = n
	}
	entries, err := r.history.Recent(req.Context(), limit)
	if err != nil {
		r.logger.Warn("history query failed", slog.String("error", err.Error()))
		http.Error(w, "history unavailable", http.StatusInternalServerError)
		return
	}
	if entries == nil {
		entries = []history.Entry{}
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(entries)
}
