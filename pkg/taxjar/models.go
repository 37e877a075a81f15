package taxjar

// Category is a product tax category.
type Category struct {
	Name           string `json:"name" yaml:"name"`
	ProductTaxCode string `json:"product_tax_code" yaml:"product_tax_code"`
	Description    string `json:"description" yaml:"description"`
}

// CategoryList is the GET categories payload.
type CategoryList struct {
	Categories []Category `json:"categories" validate:"required"`
}

// Region is a nexus region.
type Region struct {
	CountryCode string `json:"country_code" yaml:"country_code"`
	Country     string `json:"country" yaml:"country"`
	RegionCode  string `json:"region_code" yaml:"region_code"`
	Region      string `json:"region" yaml:"region"`
}

// RegionList is the GET nexus/regions payload.
type RegionList struct {
	Regions []Region `json:"regions" validate:"required"`
}

// SummaryRate holds the minimum and average rates for a region.
type SummaryRate struct {
	CountryCode string `json:"country_code" yaml:"country_code"`
	Country     string `json:"country" yaml:"country"`
	RegionCode  string `json:"region_code" yaml:"region_code"`
	Region      string `json:"region" yaml:"region"`
	MinimumRate Rate   `json:"minimum_rate" yaml:"minimum_rate"`
	AverageRate Rate   `json:"average_rate" yaml:"average_rate"`
}

// SummaryRateList is the GET summary_rates payload.
type SummaryRateList struct {
	SummaryRates []SummaryRate `json:"summary_rates" validate:"required"`
}

// Validation is the result of a VAT number check. The booleans are nil when
// the API leaves them unset.
type Validation struct {
	Valid         *bool        `json:"valid" yaml:"valid"`
	Exists        *bool        `json:"exists" yaml:"exists"`
	ViesAvailable *bool        `json:"vies_available" yaml:"vies_available"`
	ViesResponse  ViesResponse `json:"vies_response" yaml:"vies_response"`
}

// ValidationContainer is the GET validation payload.
type ValidationContainer struct {
	Validation *Validation `json:"validation" validate:"required"`
}
