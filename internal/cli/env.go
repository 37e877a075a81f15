package cli

import (
	"context"
	"io"
	"os"

	"github.com/samvad-hq/taxjar-go/internal/app"
	"github.com/samvad-hq/taxjar-go/internal/config"
	"github.com/samvad-hq/taxjar-go/internal/logger"
	"github.com/samvad-hq/taxjar-go/pkg/taxjar"
)

// API is the TaxJar surface the read commands use.
type API interface {
	Categories(ctx context.Context) ([]taxjar.Category, error)
	NexusRegions(ctx context.Context) ([]taxjar.Region, error)
	SummaryRates(ctx context.Context) ([]taxjar.SummaryRate, error)
	ValidateVAT(ctx context.Context, vat string) (*taxjar.Validation, error)
}

// Runner is a long running process such as the sync loop.
type Runner interface {
	Run(ctx context.Context) error
}

// Env holds injectable dependencies for CLI commands.
type Env struct {
	Stdout io.Writer
	Stderr io.Writer

	LoadConfig func() (*config.Config, error)
	NewAPI     func(cfg *config.Config, log logger.Logger) API
	NewSyncer  func(ctx context.Context, cfg *config.Config, log logger.Logger) (Runner, error)
}

// DefaultEnv wires the production dependencies.
func DefaultEnv() *Env {
	return &Env{
		Stdout:     os.Stdout,
		Stderr:     os.Stderr,
		LoadConfig: config.Load,
		NewAPI: func(cfg *config.Config, log logger.Logger) API {
			return app.NewTaxJarClient(cfg, log)
		},
		NewSyncer: func(ctx context.Context, cfg *config.Config, log logger.Logger) (Runner, error) {
			return app.NewSyncer(ctx, cfg, log)
		},
	}
}
