package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/samvad-hq/taxjar-go/internal/config"
	"github.com/samvad-hq/taxjar-go/internal/logger"
	"github.com/samvad-hq/taxjar-go/internal/ratesync"
	"github.com/samvad-hq/taxjar-go/internal/storage"
	"github.com/samvad-hq/taxjar-go/internal/telemetry"
	"github.com/samvad-hq/taxjar-go/pkg/publishers"
)

// Syncer is the rate sync runtime. It runs the sync loop, serves metrics and
// health endpoints, and owns the storage and publisher lifecycles.
type Syncer struct {
	cfg      *config.Config
	fanout   *publishers.Fanout
	service  *ratesync.Service
	interval time.Duration
	log      logger.Logger
	store    storage.Store
	registry *prometheus.Registry

	mu   sync.RWMutex
	last syncStatus
}

type syncStatus struct {
	FinishedAt time.Time        `json:"finished_at"`
	Result     *ratesync.Result `json:"result,omitempty"`
	Error      string           `json:"error,omitempty"`
}

// NewSyncer builds a syncer runtime from config.
func NewSyncer(ctx context.Context, cfg *config.Config, log logger.Logger) (*Syncer, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config must not be nil")
	}
	if log == nil {
		log = &logger.NopLogger{}
	}
	if ctx == nil {
		ctx = context.Background()
	}

	publisherReg, err := publishers.LoadRegistry(cfg.PublishersFile)
	if err != nil {
		return nil, fmt.Errorf("load publishers registry: %w", err)
	}

	enabledPublishers := publisherReg.Enabled()
	if len(enabledPublishers) == 0 {
		return nil, fmt.Errorf("no publishers configured")
	}

	pubClients, err := publishers.BuildAll(ctx, publishers.DefaultRegistry(), enabledPublishers, log)
	if err != nil {
		return nil, fmt.Errorf("build publishers: %w", err)
	}
	fanout := publishers.NewFanout(pubClients)
	publisherSummaries := make([]map[string]string, 0, len(enabledPublishers))
	for _, pubCfg := range enabledPublishers {
		publisherSummaries = append(publisherSummaries, map[string]string{
			"id":   pubCfg.ID,
			"type": pubCfg.Type,
		})
	}
	log.InfoObj("publishers registry loaded", "publishers_meta", map[string]any{
		"count":      len(publisherSummaries),
		"publishers": publisherSummaries,
	})

	storeOpts := storage.Options{
		RateTTL:         cfg.StorageTTL,
		CleanupInterval: cfg.StorageCleanupInterval,
	}
	store, err := storage.NewStore(cfg.StorageType, cfg.BBoltPath, storeOpts)
	if err != nil {
		_ = fanout.Close()
		return nil, fmt.Errorf("init storage: %w", err)
	}
	log.InfoObj("storage initialized", "storage_config", map[string]any{
		"type":                     cfg.StorageType,
		"path":                     cfg.BBoltPath,
		"rate_ttl_seconds":         int(cfg.StorageTTL.Seconds()),
		"cleanup_interval_seconds": int(cfg.StorageCleanupInterval.Seconds()),
	})

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := telemetry.NewSyncMetrics(registry)

	client := NewTaxJarClient(cfg, log)
	service := ratesync.NewService(client, fanout, log, store, metrics)

	return &Syncer{
		cfg:      cfg,
		fanout:   fanout,
		service:  service,
		interval: cfg.SyncInterval,
		log:      log,
		store:    store,
		registry: registry,
	}, nil
}

// Run starts the sync loop until the context is cancelled.
func (s *Syncer) Run(ctx context.Context) error {
	if s == nil || s.service == nil {
		return fmt.Errorf("syncer is not initialized")
	}
	defer s.close()

	if s.cfg.MetricsAddr != "" {
		srv := &http.Server{
			Addr:              s.cfg.MetricsAddr,
			Handler:           s.Handler(),
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				s.log.ErrorObj("metrics server failed", "error", err.Error())
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				s.log.ErrorObj("metrics server shutdown failed", "error", err.Error())
			}
		}()
	}

	s.log.InfoObj("sync loop starting", "syncer_state", map[string]any{
		"publishers_count": s.fanout.Size(),
		"sync_interval":    s.interval.String(),
		"metrics_addr":     s.cfg.MetricsAddr,
	})

	if err := s.runOnce(ctx); err != nil {
		s.log.ErrorObj("initial sync failed", "error", err.Error())
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.log.InfoObj("sync loop exiting", "reason", ctx.Err().Error())
			return nil
		case <-ticker.C:
			if err := s.runOnce(ctx); err != nil {
				s.log.ErrorObj("scheduled sync failed", "error", err.Error())
			}
		}
	}
}

// runOnce performs a single sync pass and records its outcome for /healthz.
func (s *Syncer) runOnce(ctx context.Context) error {
	res, err := s.service.Run(ctx)

	status := syncStatus{FinishedAt: time.Now().UTC(), Result: &res}
	if err != nil {
		status.Error = err.Error()
	}
	s.mu.Lock()
	s.last = status
	s.mu.Unlock()
	return err
}

// Handler exposes /metrics and /healthz.
func (s *Syncer) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}))
	r.Get("/healthz", s.healthz)
	return r
}

func (s *Syncer) healthz(w http.ResponseWriter, _ *http.Request) {
	s.mu.RLock()
	last := s.last
	s.mu.RUnlock()

	status, code := "ok", http.StatusOK
	if last.Error != "" {
		status, code = "degraded", http.StatusServiceUnavailable
	}
	body := map[string]any{"status": status}
	if !last.FinishedAt.IsZero() {
		body["last_sync"] = last
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(body)
}

// close releases publishers and the storage backend, logging any errors.
func (s *Syncer) close() {
	if err := s.fanout.Close(); err != nil {
		s.log.ErrorObj("publisher close failed", "error", err.Error())
	}
	if s.store == nil {
		return
	}
	if err := s.store.Close(); err != nil {
		s.log.ErrorObj("storage close failed", "error", err.Error())
	}
}
