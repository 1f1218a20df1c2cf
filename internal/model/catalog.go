package model

import (
	"strings"

	"github.com/rotisserie/eris"
)

// PricingModel is the commercial model a campaign is billed under.
type PricingModel string

const (
	// PricingOutcome bills a flat unit price per on-site conversion.
	PricingOutcome PricingModel = "outcome"
	// PricingFee bills a percentage fee on top of pass-through spend.
	PricingFee PricingModel = "fee"
)

// UnmarshalText accepts the English names and the master-setting labels.
func (p *PricingModel) UnmarshalText(text []byte) error {
	switch strings.ToLower(strings.TrimSpace(string(text))) {
	case "outcome", "成果":
		*p = PricingOutcome
	case "fee", "予算", "ih":
		*p = PricingFee
	default:
		return eris.Errorf("model: unknown pricing model %q", string(text))
	}
	return nil
}

// Pricing is a campaign's pricing configuration.
type Pricing struct {
	Model     PricingModel `yaml:"model" json:"model"`
	UnitPrice float64      `yaml:"unit_price" json:"unit_price,omitempty"`
	FeeRate   float64      `yaml:"fee_rate" json:"fee_rate,omitempty"`
}

// DefaultConversionColumn is the paid-media column holding platform conversions.
const DefaultConversionColumn = "Results"

// DefaultParameterType is the tracking-parameter key carrying the creative label.
const DefaultParameterType = "utm_creative"

// Campaign maps raw feed identifiers onto one managed campaign.
type Campaign struct {
	Name             string   `yaml:"name" json:"name"`
	AccountPrefixes  []string `yaml:"account_prefixes" json:"account_prefixes"`
	Folders          []string `yaml:"folders" json:"folders"`
	Pricing          Pricing  `yaml:"pricing" json:"pricing"`
	ConversionColumn string   `yaml:"conversion_column" json:"conversion_column,omitempty"`
	ParameterType    string   `yaml:"parameter_type" json:"parameter_type,omitempty"`
}

// CreativeParam returns the tracking-parameter key for the campaign.
func (c Campaign) CreativeParam() string {
	if c.ParameterType == "" {
		return DefaultParameterType
	}
	return c.ParameterType
}

// CVColumn returns the paid-media conversion column for the campaign.
func (c Campaign) CVColumn() string {
	if c.ConversionColumn == "" {
		return DefaultConversionColumn
	}
	return c.ConversionColumn
}

// Catalog is the static set of managed campaigns.
type Catalog struct {
	Campaigns []Campaign `yaml:"campaigns" json:"campaigns"`
}

// Campaign returns the campaign with the given name.
func (c Catalog) Campaign(name string) (Campaign, bool) {
	for _, cp := range c.Campaigns {
		if cp.Name == name {
			return cp, true
		}
	}
	return Campaign{}, false
}

// Names returns campaign names in catalog order.
func (c Catalog) Names() []string {
	names := make([]string, 0, len(c.Campaigns))
	for _, cp := range c.Campaigns {
		names = append(names, cp.Name)
	}
	return names
}

// Validate checks that every campaign is named once and priced coherently.
func (c Catalog) Validate() error {
	seen := make(map[string]bool, len(c.Campaigns))
	for _, cp := range c.Campaigns {
		if cp.Name == "" {
			return eris.New("model: campaign without a name")
		}
		if seen[cp.Name] {
			return eris.Errorf("model: duplicate campaign %q", cp.Name)
		}
		seen[cp.Name] = true

		switch cp.Pricing.Model {
		case PricingOutcome:
			if cp.Pricing.UnitPrice < 0 {
				return eris.Errorf("model: campaign %q has a negative unit price", cp.Name)
			}
		case PricingFee:
			if cp.Pricing.FeeRate < 0 {
				return eris.Errorf("model: campaign %q has a negative fee rate", cp.Name)
			}
		default:
			return eris.Errorf("model: campaign %q has no pricing model", cp.Name)
		}
	}
	return nil
}
