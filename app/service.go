package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	apihistory "github.com/kilianp07/vaxcal/api/history"
	apischedule "github.com/kilianp07/vaxcal/api/schedule"
	"github.com/kilianp07/vaxcal/config"
	"github.com/kilianp07/vaxcal/core/calendar"
	"github.com/kilianp07/vaxcal/core/catalog"
	coremetrics "github.com/kilianp07/vaxcal/core/metrics"
	coremon "github.com/kilianp07/vaxcal/core/monitoring"
	"github.com/kilianp07/vaxcal/core/planlog"
	"github.com/kilianp07/vaxcal/core/planner"
	"github.com/kilianp07/vaxcal/infra/logger"
	"github.com/kilianp07/vaxcal/infra/metrics"
	"github.com/kilianp07/vaxcal/infra/monitoring"
	"github.com/kilianp07/vaxcal/infra/mqtt"
	"github.com/kilianp07/vaxcal/internal/eventbus"
)

const busBuffer = 64

// Service wires configuration into planner sessions, the HTTP API and the
// outbound adapters.
type Service struct {
	cfg     *config.Config
	log     logger.Logger
	sink    coremetrics.PlannerSink
	store   planlog.Store
	bus     *eventbus.TypedBus[planner.Event]
	mqtt    *mqtt.PahoClient
	handler http.Handler
	scheme  string
	floor   calendar.Date
	ceiling calendar.Date
}

// New creates a Service from the configuration.
func New(cfg *config.Config) (*Service, error) {
	logger.Configure(cfg.Logging.Options())
	logg := logger.New("service")

	mon, err := monitoring.NewSentryMonitor(cfg.Sentry)
	if err != nil {
		return nil, fmt.Errorf("monitor: %w", err)
	}
	coremon.Init(mon)

	if cfg.Catalog.File != "" {
		f, err := catalog.LoadFile(cfg.Catalog.File)
		if err != nil {
			return nil, fmt.Errorf("catalog: %w", err)
		}
		if err := catalog.RegisterFile(f); err != nil {
			return nil, fmt.Errorf("catalog: %w", err)
		}
		logg.Infof("registered catalog %s from %s", f.Scheme.ID, cfg.Catalog.File)
	}
	scheme := cfg.Planner.Scheme
	if scheme == "" {
		scheme = catalog.DefaultScheme()
	}
	if _, err := catalog.NewProvider(scheme); err != nil {
		return nil, fmt.Errorf("planner: %w", err)
	}
	floor, ceiling, err := cfg.Planner.Limits()
	if err != nil {
		return nil, fmt.Errorf("planner: %w", err)
	}

	sink, err := coremetrics.NewPlannerSink(cfg.Metrics.Sinks)
	if err != nil {
		return nil, fmt.Errorf("metrics sink: %w", err)
	}
	store, err := planlog.Open(cfg.PlanLog.Options())
	if err != nil {
		coremetrics.Close(sink)
		return nil, fmt.Errorf("plan log: %w", err)
	}

	svc := &Service{
		cfg:     cfg,
		log:     logg,
		sink:    sink,
		store:   store,
		bus:     eventbus.NewTypedWithBuffer[planner.Event](busBuffer),
		scheme:  scheme,
		floor:   floor,
		ceiling: ceiling,
	}
	if cfg.MQTT.Broker != "" {
		client, err := mqtt.NewPahoClient(cfg.MQTT)
		if err != nil {
			_ = svc.Close()
			return nil, fmt.Errorf("mqtt client: %w", err)
		}
		svc.mqtt = client
	}

	h := apischedule.NewHandler(apischedule.Deps{
		Sink:          sink,
		Store:         store,
		Bus:           svc.bus,
		Log:           logger.New("api"),
		Floor:         floor,
		Ceiling:       ceiling,
		DefaultScheme: scheme,
	})
	svc.handler = apischedule.NewRouter(cfg.HTTP.Mode, logger.New("http"), h, map[string]http.Handler{
		"/api/history": apihistory.NewLogHandler(store, cfg.HTTP.HistoryToken),
	})
	return svc, nil
}

// Handler returns the HTTP API.
func (s *Service) Handler() http.Handler { return s.handler }

// Scheme returns the default scheme of new sessions.
func (s *Service) Scheme() string { return s.scheme }

// NewSession starts a planner session wired to the service's sink, store and
// bus. An empty scheme uses the default.
func (s *Service) NewSession(scheme string) (*planner.Session, error) {
	if scheme == "" {
		scheme = s.scheme
	}
	p, err := catalog.NewProvider(scheme)
	if err != nil {
		return nil, err
	}
	return planner.New(p,
		planner.WithSink(s.sink),
		planner.WithStore(s.store),
		planner.WithBus(s.bus),
		planner.WithLogger(logger.New("planner")),
		planner.WithLimits(s.floor, s.ceiling),
	), nil
}

// Run serves the HTTP API, the metrics endpoint and the MQTT forwarder until
// the context is cancelled.
func (s *Service) Run(ctx context.Context) error {
	defer coremon.Recover()
	if s.mqtt != nil {
		fctx, cancel := context.WithCancel(ctx)
		done := mqtt.Forward(fctx, s.bus, s.mqtt, mqtt.ForwardConfig{AckTimeout: s.cfg.MQTT.AckTimeout()}, logger.New("mqtt_forward"))
		defer func() {
			cancel()
			<-done
		}()
	}
	if addr := s.cfg.Metrics.PrometheusAddr; addr != "" {
		go func() {
			if err := metrics.StartPromServer(ctx, addr); err != nil {
				s.log.Errorf("prom server: %v", err)
				coremon.CaptureException(err, map[string]string{"module": "metrics"})
			}
		}()
	}

	srv := &http.Server{Addr: s.cfg.HTTP.Address, Handler: s.handler, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.log.Errorf("http shutdown: %v", err)
		}
		cancel()
	}()
	s.log.Infof("serving schedule API on %s", s.cfg.HTTP.Address)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Close releases resources held by the service.
func (s *Service) Close() error {
	if n := s.bus.Dropped(); n > 0 {
		s.log.Warnf("dropped %d session events", n)
	}
	s.bus.Close()
	if s.mqtt != nil {
		s.mqtt.Disconnect()
	}
	coremetrics.Close(s.sink)
	err := s.store.Close()
	coremon.Flush(2 * time.Second)
	return err
}
