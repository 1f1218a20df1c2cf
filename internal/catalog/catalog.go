// Package catalog loads the campaign catalog and the baseline bands that
// drive normalization and analysis.
package catalog

import (
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/adperf/internal/model"
	"github.com/sells-group/adperf/internal/normalize"
)

// Master-setting sheet columns.
const (
	ColCampaign      = "管理用案件名"
	ColMetaName      = "Meta名"
	ColBeyondName    = "Beyond名"
	ColPricingType   = "運用タイプ"
	ColUnitPrice     = "成果単価"
	ColFeeRate       = "手数料率"
	ColMetaCVName    = "Meta CV名"
	ColAccountNames  = "Meta Account Names"
	ColParameterType = "パラメーター種別"
)

// LoadYAML reads a catalog file of the form:
//
//	campaigns:
//	  - name: Demo
//	    account_prefixes: [allattain]
//	    folders: ["【運用】Demo"]
//	    pricing: {model: outcome, unit_price: 10000}
func LoadYAML(path string) (model.Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return model.Catalog{}, eris.Wrap(err, "catalog: read file")
	}
	return ParseYAML(data)
}

// ParseYAML decodes and validates a YAML catalog.
func ParseYAML(data []byte) (model.Catalog, error) {
	var c model.Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return model.Catalog{}, eris.Wrap(err, "catalog: decode yaml")
	}
	if err := c.Validate(); err != nil {
		return model.Catalog{}, eris.Wrap(err, "catalog: validate")
	}
	return c, nil
}

// FromMasterSetting builds a catalog from master-setting sheet rows. Rows
// without a campaign name are skipped. 成果 is outcome pricing; 予算, IH and
// unrecognised types are fee pricing. Fee rates above 1 are percentages.
func FromMasterSetting(rows []model.RawRow) model.Catalog {
	var c model.Catalog
	seen := make(map[string]bool)

	for _, row := range rows {
		name := strings.TrimSpace(normalize.Lookup(row, ColCampaign))
		if name == "" {
			continue
		}
		if seen[name] {
			zap.L().Debug("catalog: duplicate master-setting row", zap.String("campaign", name))
			continue
		}
		seen[name] = true

		var pm model.PricingModel
		if err := pm.UnmarshalText([]byte(normalize.Lookup(row, ColPricingType))); err != nil {
			pm = model.PricingFee
		}
		fee := parseFeeRate(normalize.Lookup(row, ColFeeRate))

		prefixes := splitList(normalize.Lookup(row, ColAccountNames))
		if len(prefixes) == 0 {
			prefixes = splitList(normalize.Lookup(row, ColMetaName))
		}

		c.Campaigns = append(c.Campaigns, model.Campaign{
			Name:            name,
			AccountPrefixes: prefixes,
			Folders:         splitList(normalize.Lookup(row, ColBeyondName)),
			Pricing: model.Pricing{
				Model:     pm,
				UnitPrice: normalize.ParseAmount(normalize.Lookup(row, ColUnitPrice)),
				FeeRate:   fee,
			},
			ConversionColumn: strings.TrimSpace(normalize.Lookup(row, ColMetaCVName)),
			ParameterType:    strings.TrimSpace(normalize.Lookup(row, ColParameterType)),
		})
	}
	return c
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// parseFeeRate reads a fee rate cell as a fraction. "15%" is always a
// percentage; a bare number above 1 is taken as a percentage too.
func parseFeeRate(raw string) float64 {
	fee := normalize.ParseNumber(raw)
	if strings.ContainsAny(raw, "%％") || fee > 1 {
		fee /= 100
	}
	return fee
}
