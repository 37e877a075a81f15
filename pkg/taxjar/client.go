package taxjar

import (
	"context"
	"errors"
	"strings"

	"github.com/samvad-hq/taxjar-go/pkg/httpclient"
)

// ErrMissingVAT is returned by ValidateVAT for a blank VAT number.
var ErrMissingVAT = errors.New("taxjar: vat number is required")

// Client exposes the TaxJar endpoints on top of the shared request pipeline.
// Pipeline failures are returned unchanged as *httpclient.Error.
type Client struct {
	api *httpclient.Client
}

// New builds a Client authenticated with token.
func New(token string, opts ...httpclient.Option) *Client {
	return &Client{api: httpclient.New(token, opts...)}
}

// NewWithPipeline wraps an existing pipeline client.
func NewWithPipeline(api *httpclient.Client) *Client {
	return &Client{api: api}
}

// Categories lists product tax categories.
func (c *Client) Categories(ctx context.Context) ([]Category, error) {
	list, err := httpclient.Get[CategoryList](ctx, c.api, "categories", nil)
	if err != nil {
		return nil, err
	}
	return list.Categories, nil
}

// NexusRegions lists the regions where the account has nexus.
func (c *Client) NexusRegions(ctx context.Context) ([]Region, error) {
	list, err := httpclient.Get[RegionList](ctx, c.api, "nexus/regions", nil)
	if err != nil {
		return nil, err
	}
	return list.Regions, nil
}

// SummaryRates lists minimum and average rates per region.
func (c *Client) SummaryRates(ctx context.Context) ([]SummaryRate, error) {
	list, err := httpclient.Get[SummaryRateList](ctx, c.api, "summary_rates", nil)
	if err != nil {
		return nil, err
	}
	return list.SummaryRates, nil
}

// ValidateVAT checks a VAT identification number.
func (c *Client) ValidateVAT(ctx context.Context, vat string) (*Validation, error) {
	vat = strings.TrimSpace(vat)
	if vat == "" {
		return nil, ErrMissingVAT
	}
	res, err := httpclient.Get[ValidationContainer](ctx, c.api, "validation", httpclient.Params{"vat": vat})
	if err != nil {
		return nil, err
	}
	return res.Validation, nil
}
