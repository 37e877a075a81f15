package app

import (
	"github.com/samvad-hq/taxjar-go/internal/config"
	"github.com/samvad-hq/taxjar-go/internal/logger"
	"github.com/samvad-hq/taxjar-go/pkg/httpclient"
	"github.com/samvad-hq/taxjar-go/pkg/taxjar"
)

// NewTaxJarClient builds the API client described by cfg.
func NewTaxJarClient(cfg *config.Config, log logger.Logger) *taxjar.Client {
	opts := []httpclient.Option{
		httpclient.WithBaseURL(cfg.APIURL),
		httpclient.WithTimeout(cfg.Timeout),
	}
	if log != nil {
		opts = append(opts, httpclient.WithLogger(log))
	}
	if cfg.TraceEnabled {
		opts = append(opts, httpclient.WithTracing())
	}
	return taxjar.New(cfg.APIToken, opts...)
}
