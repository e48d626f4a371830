/*
hourcosts.go - RDO and public-holiday hour costing

PURPOSE:
  Costs the two non-worked hour kinds a forecast cell can carry, on
  top of the ordinary person-week breakdown.

RDO HOURS (rostered days off):
  Wages for RDO hours are paid from the employee's accrued RDO balance
  and are NOT job-costed. What the job does carry:
    - RDO-payable allowances (hourly x hours, daily x days at an
      eight-hour day, weekly at the full weekly rate)
    - leave accruals over (rdo wages + rdo allowances)
    - fixed weekly on-costs (super, BERT, BEWT, CIPQ) prorated by hour
    - percentage on-costs (payroll tax, workcover) over the accruals

PUBLIC HOLIDAY HOURS (not worked):
  Fully job-costed at the ordinary rate with NO allowances. Leave
  accruals always apply (the job-costing toggle does not reach here),
  fixed on-costs prorate by hour, percentage on-costs run over the
  marked-up wages.

SEE ALSO:
  - breakdown.go: the ordinary person-week layers
  - allowance.go: AllowanceSet.RDOPayable
*/
package payroll

import "github.com/shopspring/decimal"

var hoursPerRDODay = decimal.NewFromInt(8)

// fixedWeeklyOnCosts is the prorating base for per-hour fixed levies.
func (c *Calculator) fixedWeeklyOnCosts() decimal.Decimal {
	return c.Rates.SuperWeekly.
		Add(c.Rates.BERTWeekly).
		Add(c.Rates.BEWTWeekly).
		Add(c.Rates.CIPQWeekly)
}

// prorateFixed converts the fixed weekly on-costs to the given hours.
// A zero-hour week cannot prorate; the fixed share is zero.
func (c *Calculator) prorateFixed(tc *TemplateConfig, hours decimal.Decimal) decimal.Decimal {
	if !tc.HoursPerWeek.IsPositive() {
		return decimal.Zero
	}
	return c.fixedWeeklyOnCosts().Div(tc.HoursPerWeek).Mul(hours)
}

// RDOHourCost returns the job-costed amount for the given RDO hours.
// The wage component itself stays off the job.
func (c *Calculator) RDOHourCost(tc *TemplateConfig, set AllowanceSet, hours decimal.Decimal) (decimal.Decimal, error) {
	if hours.IsNegative() {
		return decimal.Zero, &ValidationError{Field: "rdo_hours", Message: "rdo hours cannot be negative", Value: hours.String()}
	}
	if hours.IsZero() {
		return decimal.Zero, nil
	}

	// Accrual base only; never added to the returned cost.
	wages := tc.HourlyRate.Mul(hours)

	days := hours.Div(hoursPerRDODay).Ceil()
	allowances := decimal.Zero
	for _, a := range set.RDOPayable() {
		switch a.RateType {
		case RateHourly:
			allowances = allowances.Add(a.Rate.Mul(hours))
		case RateDaily:
			allowances = allowances.Add(a.Rate.Mul(days))
		case RateWeekly:
			allowances = allowances.Add(a.Weekly)
		}
	}

	accrualBase := wages.Add(allowances)
	accruals := accrualBase.Mul(c.Rates.AnnualLeaveRate.Add(c.Rates.LeaveLoadingRate))

	fixed := c.prorateFixed(tc, hours)
	percentage := accruals.Mul(c.Rates.PayrollTaxRate.Add(c.Rates.WorkcoverRate))

	return allowances.Add(accruals).Add(fixed).Add(percentage), nil
}

// PublicHolidayHourCost returns the job-costed amount for public
// holiday hours not worked.
func (c *Calculator) PublicHolidayHourCost(tc *TemplateConfig, hours decimal.Decimal) (decimal.Decimal, error) {
	if hours.IsNegative() {
		return decimal.Zero, &ValidationError{Field: "public_holiday_hours", Message: "public holiday hours cannot be negative", Value: hours.String()}
	}
	if hours.IsZero() {
		return decimal.Zero, nil
	}

	wages := tc.HourlyRate.Mul(hours)
	accruals := wages.Mul(c.Rates.AnnualLeaveRate.Add(c.Rates.LeaveLoadingRate))
	markedUp := wages.Add(accruals)

	fixed := c.prorateFixed(tc, hours)
	percentage := markedUp.Mul(c.Rates.PayrollTaxRate.Add(c.Rates.WorkcoverRate))

	return markedUp.Add(fixed).Add(percentage), nil
}
