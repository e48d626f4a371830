package payroll_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/labour-engine/payroll"
)

// =============================================================================
// RDO HOURS
// =============================================================================

func TestRDOHourCost_NoAllowances(t *testing.T) {
	// GIVEN: $40.00/hr, 40 hrs/week, 8 RDO hours, nothing RDO-payable
	// THEN: the wage itself stays off the job; only accruals, the
	//       prorated fixed levies and the percentage on-costs land
	calc := newCalculator(t)
	tc := payroll.NewTemplateConfig("tpl", "loc", d("40.00"), d("40"))

	cost, err := calc.RDOHourCost(tc, payroll.AllowanceSet{}, d("8"))
	require.NoError(t, err)

	// accruals = 320 x 0.2583 = 82.656
	// fixed    = 160/40 x 8   = 32
	// pct      = 82.656 x 0.0665 = 5.496624
	assertDecimalEqual(t, "120.152624", cost)
}

func TestRDOHourCost_RDOPayableAllowances(t *testing.T) {
	// Daily allowances bill per started eight-hour day, hourly ones per
	// hour, weekly ones at the full weekly rate. Allowances not flagged
	// RDO-payable are skipped entirely.
	calc := newCalculator(t)
	tc := payroll.NewTemplateConfig("tpl", "loc", d("40.00"), d("40"))

	set := payroll.AllowanceSet{
		FaresTravel: &payroll.Allowance{
			Name: "Fares and Travel", Rate: d("25.00"), RateType: payroll.RateDaily,
			Weekly: d("125.00"), PaidToRDO: true,
		},
		Site: &payroll.Allowance{
			Name: "Site", Rate: d("2.50"), RateType: payroll.RateHourly,
			Weekly: d("100.00"), PaidToRDO: false,
		},
		Custom: []payroll.Allowance{
			{TypeID: "first-aid", Name: "First Aid", Rate: d("0.60"),
				RateType: payroll.RateHourly, Weekly: d("24.00"), PaidToRDO: true},
			{TypeID: "leading-hand", Name: "Leading Hand", Rate: d("65.00"),
				RateType: payroll.RateWeekly, Weekly: d("65.00"), PaidToRDO: true},
		},
	}

	cost, err := calc.RDOHourCost(tc, set, d("10"))
	require.NoError(t, err)

	// 10 hours spans 2 started days:
	// allowances = 25x2 + 0.60x10 + 65 = 121  (site skipped)
	// accruals   = (400 + 121) x 0.2583 = 134.5743
	// fixed      = 160/40 x 10 = 40
	// pct        = 134.5743 x 0.0665 = 8.94919095
	assertDecimalEqual(t, "304.52349095", cost)
}

func TestRDOHourCost_ZeroHours(t *testing.T) {
	calc := newCalculator(t)
	tc := payroll.NewTemplateConfig("tpl", "loc", d("40.00"), d("40"))

	cost, err := calc.RDOHourCost(tc, payroll.AllowanceSet{}, decimal.Zero)
	require.NoError(t, err)
	assert.True(t, cost.IsZero())
}

func TestRDOHourCost_NegativeHours(t *testing.T) {
	calc := newCalculator(t)
	tc := payroll.NewTemplateConfig("tpl", "loc", d("40.00"), d("40"))

	_, err := calc.RDOHourCost(tc, payroll.AllowanceSet{}, d("-1"))
	assert.ErrorIs(t, err, payroll.ErrValidation)

	var vErr *payroll.ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, "rdo_hours", vErr.Field)
}

func TestRDOHourCost_ZeroHoursPerWeek(t *testing.T) {
	// No weekly hours to prorate against: the fixed share drops out
	// instead of dividing by zero.
	calc := newCalculator(t)
	tc := payroll.NewTemplateConfig("tpl", "loc", d("40.00"), decimal.Zero)

	cost, err := calc.RDOHourCost(tc, payroll.AllowanceSet{}, d("8"))
	require.NoError(t, err)

	// accruals 82.656 + pct 5.496624, fixed share zero
	assertDecimalEqual(t, "88.152624", cost)
}

// =============================================================================
// PUBLIC HOLIDAY HOURS
// =============================================================================

func TestPublicHolidayHourCost(t *testing.T) {
	// Wages for public holiday hours are fully job-costed with
	// accruals always applied; no allowances enter.
	calc := newCalculator(t)
	tc := payroll.NewTemplateConfig("tpl", "loc", d("40.00"), d("40"))

	cost, err := calc.PublicHolidayHourCost(tc, d("8"))
	require.NoError(t, err)

	// marked_up = 320 x 1.2583 = 402.656
	// fixed     = 160/40 x 8   = 32
	// pct       = 402.656 x 0.0665 = 26.776624
	assertDecimalEqual(t, "461.432624", cost)
}

func TestPublicHolidayHourCost_ZeroHours(t *testing.T) {
	calc := newCalculator(t)
	tc := payroll.NewTemplateConfig("tpl", "loc", d("40.00"), d("40"))

	cost, err := calc.PublicHolidayHourCost(tc, decimal.Zero)
	require.NoError(t, err)
	assert.True(t, cost.IsZero())
}

func TestPublicHolidayHourCost_NegativeHours(t *testing.T) {
	calc := newCalculator(t)
	tc := payroll.NewTemplateConfig("tpl", "loc", d("40.00"), d("40"))

	_, err := calc.PublicHolidayHourCost(tc, d("-0.5"))
	assert.ErrorIs(t, err, payroll.ErrValidation)

	var vErr *payroll.ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, "public_holiday_hours", vErr.Field)
}
