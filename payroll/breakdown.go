/*
breakdown.go - Layered weekly cost breakdown

PURPOSE:
  Computes the full weekly cost of one person-week on a pay-rate
  template. This is the heart of the forecasting engine: a pure
  function with no side effects, fully deterministic, unit-testable
  without any persistence.

COMPUTATION ORDER (order matters - each layer is an additive markup
on a running wage base; skipping a step changes which downstream
layer it participates in):
  1. base_weekly_wages = hourly_rate x hours_per_week
  2. allowances.total  = sum of resolved weekly allowances
  3. gross_wages       = base_weekly_wages + allowances.total
  4. leave markups     = gross_wages x annual_leave_rate
                       + gross_wages x leave_loading_rate
  5. marked_up_wages   = gross + markups   (if job-costed)
                       = gross             (otherwise; markups still
                                            reported for display)
  6. super             = fixed weekly amount
  7. on-costs          = BERT + BEWT + CIPQ (fixed weekly)
                       + marked_up x payroll_tax_rate
                       + marked_up x workcover_rate
  8. total_weekly_cost = marked_up + super + on_costs.total

  Percentage on-costs follow the job-costing toggle through
  marked_up_wages. That is the implemented product behaviour, kept
  as-is.

POLICY INPUTS:
  Leave accrual rates, super, fixed on-costs, percentage rates and
  the overtime multiplier are external policy constants the calculator
  receives, not invents. See PolicyRates and factory/.

SEE ALSO:
  - allowance.go: AllowanceSet input
  - costcodes.go: ledger code mapping carried on the breakdown
  - forecast/:    snapshots breakdowns onto entries
*/
package payroll

import "github.com/shopspring/decimal"

// =============================================================================
// POLICY RATES - External constants fed by admin configuration
// =============================================================================

// PolicyRates bundles the policy constants the calculator needs.
// These originate from payroll-system sync and admin screens; the
// engine treats them as opaque inputs.
type PolicyRates struct {
	AnnualLeaveRate    decimal.Decimal `json:"annual_leave_rate"`
	LeaveLoadingRate   decimal.Decimal `json:"leave_loading_rate"`
	SuperWeekly        decimal.Decimal `json:"super_weekly"`
	BERTWeekly         decimal.Decimal `json:"bert_weekly"`
	BEWTWeekly         decimal.Decimal `json:"bewt_weekly"`
	CIPQWeekly         decimal.Decimal `json:"cipq_weekly"`
	PayrollTaxRate     decimal.Decimal `json:"payroll_tax_rate"`
	WorkcoverRate      decimal.Decimal `json:"workcover_rate"`
	OvertimeMultiplier decimal.Decimal `json:"overtime_multiplier"`
}

// Validate rejects negative policy inputs.
func (r PolicyRates) Validate() error {
	checks := []struct {
		field string
		v     decimal.Decimal
	}{
		{"annual_leave_rate", r.AnnualLeaveRate},
		{"leave_loading_rate", r.LeaveLoadingRate},
		{"super_weekly", r.SuperWeekly},
		{"bert_weekly", r.BERTWeekly},
		{"bewt_weekly", r.BEWTWeekly},
		{"cipq_weekly", r.CIPQWeekly},
		{"payroll_tax_rate", r.PayrollTaxRate},
		{"workcover_rate", r.WorkcoverRate},
		{"overtime_multiplier", r.OvertimeMultiplier},
	}
	for _, c := range checks {
		if c.v.IsNegative() {
			return &ValidationError{Field: c.field, Message: "policy rate cannot be negative", Value: c.v.String()}
		}
	}
	return nil
}

// =============================================================================
// COST BREAKDOWN - Value object, snapshotted onto forecast entries
// =============================================================================

// LeaveMarkups reports the leave accrual markups over gross wages.
// Always computed; included in marked-up wages only when the template
// config job-costs them.
type LeaveMarkups struct {
	AnnualLeaveRate    decimal.Decimal `json:"annual_leave_rate"`
	AnnualLeaveAmount  decimal.Decimal `json:"annual_leave_amount"`
	LeaveLoadingRate   decimal.Decimal `json:"leave_loading_rate"`
	LeaveLoadingAmount decimal.Decimal `json:"leave_loading_amount"`
	Total              decimal.Decimal `json:"total"`

	// JobCosted records which way the toggle was set when computed,
	// so a snapshot is self-describing.
	JobCosted bool `json:"job_costed"`
}

// OnCosts reports the statutory and industry levies over wages.
type OnCosts struct {
	BERT           decimal.Decimal `json:"bert"`
	BEWT           decimal.Decimal `json:"bewt"`
	CIPQ           decimal.Decimal `json:"cipq"`
	PayrollTaxRate decimal.Decimal `json:"payroll_tax_rate"`
	PayrollTax     decimal.Decimal `json:"payroll_tax"`
	WorkcoverRate  decimal.Decimal `json:"workcover_rate"`
	Workcover      decimal.Decimal `json:"workcover"`
	Total          decimal.Decimal `json:"total"`
}

// CostBreakdown is the layered weekly cost for one person-week.
//
// INVARIANTS (hold exactly, no rounding inside the calculator):
//   TotalWeeklyCost = MarkedUpWages + Super + OnCosts.Total
//   OnCosts.Total   = BERT + BEWT + CIPQ + PayrollTax + Workcover
//   MarkedUpWages   = GrossWages + LeaveMarkups.Total   (job-costed)
//                   = GrossWages                        (otherwise)
type CostBreakdown struct {
	BaseHourlyRate  decimal.Decimal `json:"base_hourly_rate"`
	HoursPerWeek    decimal.Decimal `json:"hours_per_week"`
	BaseWeeklyWages decimal.Decimal `json:"base_weekly_wages"`

	Allowances      AllowanceSet    `json:"allowances"`
	AllowancesTotal decimal.Decimal `json:"allowances_total"`

	GrossWages    decimal.Decimal `json:"gross_wages"`
	LeaveMarkups  LeaveMarkups    `json:"leave_markups"`
	MarkedUpWages decimal.Decimal `json:"marked_up_wages"`

	Super   decimal.Decimal `json:"super"`
	OnCosts OnCosts         `json:"on_costs"`

	CostCodes CostCodes `json:"cost_codes"`

	TotalWeeklyCost decimal.Decimal `json:"total_weekly_cost"`
}

// =============================================================================
// CALCULATOR
// =============================================================================

// Calculator computes cost breakdowns under a fixed set of policy
// rates. Stateless and safe for concurrent use.
type Calculator struct {
	Rates PolicyRates
}

// NewCalculator validates the policy rates and returns a calculator.
func NewCalculator(rates PolicyRates) (*Calculator, error) {
	if err := rates.Validate(); err != nil {
		return nil, err
	}
	return &Calculator{Rates: rates}, nil
}

// ComputeBreakdown produces the layered weekly cost breakdown for a
// template config and its resolved allowances. Pure and deterministic:
// identical inputs yield byte-identical output.
func (c *Calculator) ComputeBreakdown(tc *TemplateConfig, set AllowanceSet) (CostBreakdown, error) {
	// Fail fast before any arithmetic.
	if tc.HourlyRate.IsNegative() {
		return CostBreakdown{}, &ValidationError{Field: "hourly_rate", Message: "hourly rate cannot be negative", Value: tc.HourlyRate.String()}
	}
	if tc.HoursPerWeek.IsNegative() {
		return CostBreakdown{}, &ValidationError{Field: "hours_per_week", Message: "hours per week cannot be negative", Value: tc.HoursPerWeek.String()}
	}
	standard := []struct {
		field string
		a     *Allowance
	}{
		{"fares_travel.rate", set.FaresTravel},
		{"site.rate", set.Site},
		{"multistorey.rate", set.Multistorey},
	}
	for _, s := range standard {
		if s.a != nil && s.a.Rate.IsNegative() {
			return CostBreakdown{}, &ValidationError{Field: s.field, Message: "allowance rate cannot be negative", Value: s.a.Rate.String()}
		}
	}
	for _, a := range set.Custom {
		if a.Rate.IsNegative() {
			return CostBreakdown{}, &ValidationError{Field: "allowances." + string(a.TypeID) + ".rate", Message: "allowance rate cannot be negative", Value: a.Rate.String()}
		}
	}

	// 1. Base weekly wages.
	baseWeekly := tc.HourlyRate.Mul(tc.HoursPerWeek)

	// 2-3. Allowances and gross.
	allowancesTotal := set.Total()
	gross := baseWeekly.Add(allowancesTotal)

	// 4. Leave markups over gross (additive, not compounded).
	annualLeave := gross.Mul(c.Rates.AnnualLeaveRate)
	leaveLoading := gross.Mul(c.Rates.LeaveLoadingRate)
	markups := LeaveMarkups{
		AnnualLeaveRate:    c.Rates.AnnualLeaveRate,
		AnnualLeaveAmount:  annualLeave,
		LeaveLoadingRate:   c.Rates.LeaveLoadingRate,
		LeaveLoadingAmount: leaveLoading,
		Total:              annualLeave.Add(leaveLoading),
		JobCosted:          tc.LeaveMarkupsJobCosted,
	}

	// 5. Marked-up wages follow the job-costing toggle.
	markedUp := gross
	if tc.LeaveMarkupsJobCosted {
		markedUp = gross.Add(markups.Total)
	}

	// 6-7. Super and on-costs. Percentage on-costs are taken over
	// marked-up wages, so they follow the toggle too.
	payrollTax := markedUp.Mul(c.Rates.PayrollTaxRate)
	workcover := markedUp.Mul(c.Rates.WorkcoverRate)
	onCosts := OnCosts{
		BERT:           c.Rates.BERTWeekly,
		BEWT:           c.Rates.BEWTWeekly,
		CIPQ:           c.Rates.CIPQWeekly,
		PayrollTaxRate: c.Rates.PayrollTaxRate,
		PayrollTax:     payrollTax,
		WorkcoverRate:  c.Rates.WorkcoverRate,
		Workcover:      workcover,
		Total:          c.Rates.BERTWeekly.Add(c.Rates.BEWTWeekly).Add(c.Rates.CIPQWeekly).Add(payrollTax).Add(workcover),
	}

	// 8. Total.
	total := markedUp.Add(c.Rates.SuperWeekly).Add(onCosts.Total)

	return CostBreakdown{
		BaseHourlyRate:  tc.HourlyRate,
		HoursPerWeek:    tc.HoursPerWeek,
		BaseWeeklyWages: baseWeekly,
		Allowances:      set,
		AllowancesTotal: allowancesTotal,
		GrossWages:      gross,
		LeaveMarkups:    markups,
		MarkedUpWages:   markedUp,
		Super:           c.Rates.SuperWeekly,
		OnCosts:         onCosts,
		CostCodes:       BuildCostCodes(tc.CostCodePrefix),
		TotalWeeklyCost: total,
	}, nil
}

// Breakdown resolves allowances and computes the breakdown in one
// call. Convenience for callers holding only the template config.
func (c *Calculator) Breakdown(tc *TemplateConfig) (CostBreakdown, error) {
	set, err := ResolveAllowances(tc)
	if err != nil {
		return CostBreakdown{}, err
	}
	return c.ComputeBreakdown(tc, set)
}

// OvertimePremium returns the cost of the given overtime hours at the
// template's base rate and the policy overtime multiplier. Overtime is
// costed on top of the ordinary weekly cost; it never enters the
// ordinary-hours layers above.
func (c *Calculator) OvertimePremium(tc *TemplateConfig, overtimeHours decimal.Decimal) (decimal.Decimal, error) {
	if overtimeHours.IsNegative() {
		return decimal.Zero, &ValidationError{Field: "overtime_hours", Message: "overtime hours cannot be negative", Value: overtimeHours.String()}
	}
	if overtimeHours.IsZero() {
		return decimal.Zero, nil
	}
	if !tc.OvertimeEnabled {
		return decimal.Zero, &ValidationError{Field: "overtime_hours", Message: "overtime is not enabled for this template"}
	}
	return overtimeHours.Mul(tc.HourlyRate).Mul(c.Rates.OvertimeMultiplier), nil
}
