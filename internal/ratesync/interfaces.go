package ratesync

import (
	"context"

	"github.com/samvad-hq/taxjar-go/pkg/publishers"
	"github.com/samvad-hq/taxjar-go/pkg/taxjar"
)

// RateSource fetches the current summary rates.
type RateSource interface {
	SummaryRates(ctx context.Context) ([]taxjar.SummaryRate, error)
}

// Deduper remembers which rate fingerprints were already published.
type Deduper interface {
	SeenRate(key, fingerprint string) (bool, error)
	MarkRate(key, fingerprint string) error
}

// EventPublisher publishes rate events downstream and reports how many
// sinks accepted the event.
type EventPublisher interface {
	Publish(ctx context.Context, evt publishers.Event) (int, error)
}

// Logger is the structured logging surface the sync service relies on.
type Logger interface {
	InfoObj(msg, key string, obj interface{})
	DebugObj(msg, key string, obj interface{})
	WarnObj(msg, key string, obj interface{})
	ErrorObj(msg, key string, obj interface{})
}

type noopLogger struct{}

func (noopLogger) InfoObj(string, string, interface{})  {}
func (noopLogger) DebugObj(string, string, interface{}) {}
func (noopLogger) WarnObj(string, string, interface{})  {}
func (noopLogger) ErrorObj(string, string, interface{}) {}

type noopDeduper struct{}

func (noopDeduper) SeenRate(string, string) (bool, error) { return false, nil }
func (noopDeduper) MarkRate(string, string) error         { return nil }
