package factory_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/labour-engine/factory"
	"github.com/warp/labour-engine/payroll"
)

const cardJSON = `{
	"name": "QLD EBA 2025",
	"rates": {
		"annual_leave_rate": "0.0833",
		"leave_loading_rate": "0.175",
		"super_weekly": "150",
		"bert_weekly": "5",
		"bewt_weekly": "3",
		"cipq_weekly": "2",
		"payroll_tax_rate": "0.0485",
		"workcover_rate": "0.018"
	},
	"allowance_types": [
		{"id": "meal", "name": "Meal Allowance", "code": "MEAL"}
	],
	"templates": [
		{
			"id": "tpl-carpenter",
			"location_id": "site-1",
			"label": "Carpenter",
			"hourly_rate": "40.00",
			"cost_code_prefix": "03",
			"overtime_enabled": true,
			"standard": {
				"fares_travel": {"name": "Fares & Travel", "rate": "25.00"}
			},
			"allowances": [
				{"type_id": "meal", "rate": "18.00", "rate_type": "daily"}
			]
		}
	]
}`

func TestParse_FullCard(t *testing.T) {
	card, err := factory.NewRateCardFactory().Parse(cardJSON)
	require.NoError(t, err)

	assert.Equal(t, "QLD EBA 2025", card.Name)
	assert.Equal(t, "0.0833", card.Rates.AnnualLeaveRate.String())
	// Defaulted, not present in the JSON.
	assert.Equal(t, "2", card.Rates.OvertimeMultiplier.String())

	require.Len(t, card.Templates, 1)
	tc := card.Templates[0]
	assert.Equal(t, payroll.TemplateConfigID("tpl-carpenter"), tc.ID)
	assert.Equal(t, "40", tc.HoursPerWeek.String(), "hours default to the standard week")
	assert.True(t, tc.RDOFaresTravel, "RDO default survives parsing")
	require.NotNil(t, tc.Standard.FaresTravel)
	assert.Equal(t, "25", tc.Standard.FaresTravel.Rate.String())
	require.Len(t, tc.Allowances, 1)
	assert.Equal(t, payroll.RateDaily, tc.Allowances[0].RateType)

	// The parsed card feeds the calculator directly.
	_, err = payroll.NewCalculator(card.Rates)
	require.NoError(t, err)
}

func TestParse_UnknownAllowanceType(t *testing.T) {
	bad := `{
		"rates": {
			"annual_leave_rate": "0", "leave_loading_rate": "0", "super_weekly": "0",
			"bert_weekly": "0", "bewt_weekly": "0", "cipq_weekly": "0",
			"payroll_tax_rate": "0", "workcover_rate": "0"
		},
		"templates": [
			{"id": "t1", "location_id": "l1", "hourly_rate": "10",
			 "allowances": [{"type_id": "ghost", "rate": "1", "rate_type": "hourly"}]}
		]
	}`
	_, err := factory.NewRateCardFactory().Parse(bad)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ghost")
}

func TestParse_MissingRate(t *testing.T) {
	_, err := factory.NewRateCardFactory().Parse(`{"rates": {"annual_leave_rate": "0.0833"}}`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "leave_loading_rate")
}

func TestParse_InvalidDecimal(t *testing.T) {
	_, err := factory.NewRateCardFactory().Parse(`{"rates": {
		"annual_leave_rate": "eight percent", "leave_loading_rate": "0", "super_weekly": "0",
		"bert_weekly": "0", "bewt_weekly": "0", "cipq_weekly": "0",
		"payroll_tax_rate": "0", "workcover_rate": "0"}}`)
	assert.Error(t, err)
}

func TestToJSON_RoundTripsRates(t *testing.T) {
	f := factory.NewRateCardFactory()
	card, err := f.Parse(cardJSON)
	require.NoError(t, err)

	out := f.ToJSON(card)
	reparsed, err := f.FromJSON(out)
	require.NoError(t, err)
	assert.True(t, card.Rates.PayrollTaxRate.Equal(reparsed.Rates.PayrollTaxRate))
	assert.Len(t, reparsed.AllowanceTypes, 1)
}
