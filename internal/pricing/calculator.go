// Package pricing computes per-row revenue and gross profit from a campaign's
// commercial model.
package pricing

import (
	"github.com/sells-group/adperf/internal/model"
)

// Price is the revenue attribution of one row.
type Price struct {
	Revenue float64
	Profit  float64
}

// Calculator prices rows by campaign.
type Calculator struct {
	rates map[string]model.Pricing
}

// NewCalculator creates a Calculator for every campaign in the catalog.
func NewCalculator(catalog model.Catalog) *Calculator {
	rates := make(map[string]model.Pricing, len(catalog.Campaigns))
	for _, c := range catalog.Campaigns {
		rates[c.Name] = c.Pricing
	}
	return &Calculator{rates: rates}
}

// PriceRow prices one row of the named campaign. Unknown campaigns price to zero.
func (c *Calculator) PriceRow(campaign string, source model.Source, cost float64, conversions int64) Price {
	p, ok := c.rates[campaign]
	if !ok {
		return Price{}
	}
	return PriceRow(source, cost, conversions, p)
}

// PriceRow applies a pricing model to one row.
//
// Outcome pricing attributes value only to the converting side: paid-media
// rows carry their spend as a loss, on-site rows earn conversions × unit price
// less their cost. Fee pricing earns cost × fee rate on both sources and the
// fee is the whole profit, since spend is passed through to the client.
func PriceRow(source model.Source, cost float64, conversions int64, p model.Pricing) Price {
	switch p.Model {
	case model.PricingOutcome:
		if source == model.SourcePaidMedia {
			return Price{Revenue: 0, Profit: -cost}
		}
		revenue := float64(conversions) * p.UnitPrice
		return Price{Revenue: revenue, Profit: revenue - cost}
	case model.PricingFee:
		revenue := cost * p.FeeRate
		return Price{Revenue: revenue, Profit: revenue}
	default:
		return Price{}
	}
}
