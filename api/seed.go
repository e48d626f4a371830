/*
seed.go - Development seed data

Loads a demonstration rate card into the template store so a fresh
database has something to forecast against. Dev convenience only;
production rates arrive through the rate-card factory from versioned
JSON.
*/
package api

import (
	"context"

	"github.com/warp/labour-engine/factory"
	"github.com/warp/labour-engine/forecast"
)

// DemoRateCardJSON is a plausible QLD commercial-construction rate
// card used by the dev server and integration tests.
const DemoRateCardJSON = `{
	"name": "QLD EBA Demo",
	"rates": {
		"annual_leave_rate": "0.0833",
		"leave_loading_rate": "0.175",
		"super_weekly": "150",
		"bert_weekly": "5",
		"bewt_weekly": "3",
		"cipq_weekly": "2",
		"payroll_tax_rate": "0.0485",
		"workcover_rate": "0.018",
		"overtime_multiplier": "2.0"
	},
	"allowance_types": [
		{"id": "first-aid", "name": "First Aid Allowance", "code": "FA"},
		{"id": "leading-hand", "name": "Leading Hand Allowance", "code": "LH"}
	],
	"templates": [
		{
			"id": "tpl-carpenter",
			"location_id": "site-demo",
			"label": "Carpenter",
			"hourly_rate": "40.00",
			"cost_code_prefix": "03",
			"overtime_enabled": true,
			"standard": {
				"fares_travel": {"name": "Fares & Travel", "rate": "25.00"},
				"site": {"name": "Site Allowance", "rate": "1.50"}
			},
			"allowances": [
				{"type_id": "first-aid", "rate": "0.60", "rate_type": "hourly"}
			]
		},
		{
			"id": "tpl-leading-hand",
			"location_id": "site-demo",
			"label": "Leading Hand",
			"hourly_rate": "44.50",
			"cost_code_prefix": "05",
			"overtime_enabled": true,
			"allowances": [
				{"type_id": "leading-hand", "rate": "65.00", "rate_type": "weekly"}
			]
		}
	]
}`

// SeedDemo parses the demo rate card and loads its templates. Returns
// the card so the caller can build the calculator from its rates.
func SeedDemo(ctx context.Context, templates forecast.TemplateStore) (*factory.RateCard, error) {
	card, err := factory.NewRateCardFactory().Parse(DemoRateCardJSON)
	if err != nil {
		return nil, err
	}
	for _, tc := range card.Templates {
		if err := templates.PutTemplateConfig(ctx, tc); err != nil {
			return nil, err
		}
	}
	return card, nil
}
