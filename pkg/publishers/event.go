package publishers

import (
	"time"

	"github.com/google/uuid"
	"github.com/samvad-hq/taxjar-go/pkg/taxjar"
)

// Event represents a summary rate change published downstream.
type Event struct {
	ID          string             `json:"id"`
	Key         string             `json:"key"`
	Fingerprint string             `json:"fingerprint"`
	Rate        taxjar.SummaryRate `json:"rate"`
	CollectedAt time.Time          `json:"collected_at"`
}

// NewEvent constructs an Event for the given rate key and payload.
func NewEvent(key, fingerprint string, rate taxjar.SummaryRate) Event {
	return Event{
		ID:          uuid.NewString(),
		Key:         key,
		Fingerprint: fingerprint,
		Rate:        rate,
		CollectedAt: time.Now().UTC(),
	}
}

// attributes returns the routing attributes shared by every message sink.
func (e Event) attributes() map[string]string {
	attrs := map[string]string{
		"event_id":     e.ID,
		"rate_key":     e.Key,
		"country_code": e.Rate.CountryCode,
		"region_code":  e.Rate.RegionCode,
	}
	for k, v := range attrs {
		if v == "" {
			delete(attrs, k)
		}
	}
	return attrs
}
