package ratesync

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/samvad-hq/taxjar-go/internal/telemetry"
	"github.com/samvad-hq/taxjar-go/pkg/publishers"
	"github.com/samvad-hq/taxjar-go/pkg/taxjar"
)

// Result summarizes one sync pass.
type Result struct {
	Fetched   int
	Skipped   int
	Published int
	Failed    int
}

// Service fetches summary rates and publishes the ones that changed.
type Service struct {
	source  RateSource
	pub     EventPublisher
	store   Deduper
	log     Logger
	metrics *telemetry.SyncMetrics
}

// NewService wires a sync service. A nil store publishes every rate on every
// pass; nil metrics disables instrumentation.
func NewService(src RateSource, pub EventPublisher, log Logger, store Deduper, metrics *telemetry.SyncMetrics) *Service {
	if log == nil {
		log = noopLogger{}
	}
	if store == nil {
		store = noopDeduper{}
	}
	return &Service{
		source:  src,
		pub:     pub,
		store:   store,
		log:     log,
		metrics: metrics,
	}
}

// Run executes a single sync pass. Store failures fail open and the rate is
// published anyway; publish failures are aggregated into the returned error.
// A cancelled context stops the pass without an error and returns what was
// done so far.
func (s *Service) Run(ctx context.Context) (Result, error) {
	if s == nil || s.source == nil || s.pub == nil {
		return Result{}, fmt.Errorf("rate sync service is not initialized")
	}

	start := time.Now()
	rates, err := s.source.SummaryRates(ctx)
	if err != nil && interrupted(ctx, err) {
		s.log.WarnObj("rate sync interrupted", "sync_progress", map[string]any{
			"stage": telemetry.StageFetch,
		})
		return Result{}, nil
	}
	if err != nil {
		s.metrics.Fail(telemetry.StageFetch)
		s.metrics.ObserveRun(start, false)
		return Result{}, fmt.Errorf("fetch summary rates: %w", err)
	}

	res := Result{Fetched: len(rates)}
	if s.metrics != nil {
		s.metrics.RatesFetched.Add(float64(len(rates)))
	}

	var errs []error
	for _, rate := range rates {
		if ctx.Err() != nil {
			s.log.WarnObj("rate sync interrupted", "sync_progress", map[string]any{
				"processed": res.Skipped + res.Published + res.Failed,
				"fetched":   res.Fetched,
			})
			break
		}
		if err := s.syncRate(ctx, rate, &res); err != nil {
			errs = append(errs, err)
		}
	}

	err = errors.Join(errs...)
	s.metrics.ObserveRun(start, err == nil)
	s.log.InfoObj("rate sync completed", "sync_result", map[string]any{
		"fetched":    res.Fetched,
		"skipped":    res.Skipped,
		"published":  res.Published,
		"failed":     res.Failed,
		"elapsed_ms": time.Since(start).Milliseconds(),
	})
	return res, err
}

func (s *Service) syncRate(ctx context.Context, rate taxjar.SummaryRate, res *Result) error {
	key := RateKey(rate)
	fp, err := Fingerprint(rate)
	if err != nil {
		res.Failed++
		return fmt.Errorf("fingerprint %s: %w", key, err)
	}

	seen, err := s.store.SeenRate(key, fp)
	if err != nil {
		s.metrics.Fail(telemetry.StageStore)
		s.log.WarnObj("rate lookup failed; publishing anyway", "store_error", map[string]any{
			"rate_key": key,
			"error":    err.Error(),
		})
	}
	if seen {
		res.Skipped++
		if s.metrics != nil {
			s.metrics.RatesSkipped.Inc()
		}
		return nil
	}

	evt := publishers.NewEvent(key, fp, rate)
	delivered, err := s.pub.Publish(ctx, evt)
	if delivered > 0 {
		res.Published++
		if s.metrics != nil {
			s.metrics.EventsPublished.Inc()
		}
	}
	if err != nil && interrupted(ctx, err) {
		// Not marked, so the next pass retries it.
		return nil
	}
	if err != nil {
		res.Failed++
		s.metrics.Fail(telemetry.StagePublish)
		s.log.ErrorObj("rate publish failed", "publish_error", map[string]any{
			"rate_key":  key,
			"delivered": delivered,
			"error":     err.Error(),
		})
		return fmt.Errorf("publish %s: %w", key, err)
	}

	if err := s.store.MarkRate(key, fp); err != nil {
		s.metrics.Fail(telemetry.StageStore)
		s.log.WarnObj("rate mark failed", "store_error", map[string]any{
			"rate_key": key,
			"error":    err.Error(),
		})
	}
	s.log.DebugObj("rate published", "rate_event", map[string]any{
		"rate_key":  key,
		"event_id":  evt.ID,
		"delivered": delivered,
	})
	return nil
}

func interrupted(ctx context.Context, err error) bool {
	return ctx.Err() != nil || errors.Is(err, context.Canceled)
}

// RateKey identifies a summary rate as country_code[:region_code].
func RateKey(rate taxjar.SummaryRate) string {
	if rate.RegionCode == "" {
		return rate.CountryCode
	}
	return rate.CountryCode + ":" + rate.RegionCode
}

// Fingerprint hashes the rate's JSON form. Rates keep their raw JSON, so the
// fingerprint changes only when the API payload does.
func Fingerprint(rate taxjar.SummaryRate) (string, error) {
	raw, err := json.Marshal(rate)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:]), nil
}
