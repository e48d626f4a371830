/*
Package payroll implements wage-cost calculation for labour forecasting.

PURPOSE:
  Given a location's pay-rate template configuration, this package
  resolves the applicable allowances and computes a deterministic,
  layered weekly cost breakdown: wages, allowances, leave markups,
  superannuation, on-costs, total. The breakdown is a pure value
  object: callers snapshot it onto forecast entries so historical
  costs stay stable when rates later change.

KEY CONCEPTS IN THIS FILE (types.go):
  - TemplateConfig: A location-scoped pay-rate template instance
  - AllowanceType / AllowanceAssignment: Custom allowance attachments
  - StandardAllowances: Fares/travel, site, multistorey (award-driven)
  - RateType: How an allowance rate converts to a weekly figure

DESIGN PRINCIPLES:
  1. Precision: decimal.Decimal everywhere money or hours appear
  2. Determinism: no clock, no randomness - same input, same output
  3. Fail fast: negative rates or hours are rejected before arithmetic,
     never clamped (a clamped rate would misreport job cost)

CONVERSION ASSUMPTIONS:
  The weekly conversion is fixed by the award: a 40-hour week and a
  5-day week. Hourly allowances convert at x40, daily at x5, weekly
  at x1. These are not configuration.

SEE ALSO:
  - allowance.go: Resolver producing an AllowanceSet
  - breakdown.go: Layered CostBreakdown calculator
  - costcodes.go: Ledger cost-code mapping
*/
package payroll

import (
	"github.com/shopspring/decimal"
)

// =============================================================================
// FIXED WEEK SHAPE
// =============================================================================

// HoursPerWeek and DaysPerWeek define the award working week used for
// all rate-to-weekly conversions. Fixed, not configuration.
var (
	HoursPerWeek = decimal.NewFromInt(40)
	DaysPerWeek  = decimal.NewFromInt(5)
)

// =============================================================================
// RATE TYPES
// =============================================================================

// RateType describes how an allowance rate scales to a weekly amount.
type RateType string

const (
	RateHourly RateType = "hourly" // weekly = rate x 40
	RateDaily  RateType = "daily"  // weekly = rate x 5
	RateWeekly RateType = "weekly" // weekly = rate
)

// Valid reports whether the rate type is one of the three known kinds.
func (rt RateType) Valid() bool {
	switch rt {
	case RateHourly, RateDaily, RateWeekly:
		return true
	}
	return false
}

// WeeklyFactor returns the fixed multiplier for this rate type.
func (rt RateType) WeeklyFactor() decimal.Decimal {
	switch rt {
	case RateHourly:
		return HoursPerWeek
	case RateDaily:
		return DaysPerWeek
	default:
		return decimal.NewFromInt(1)
	}
}

// =============================================================================
// ALLOWANCE TYPES AND ASSIGNMENTS
// =============================================================================

// AllowanceTypeID identifies an allowance type in the surrounding
// application's catalogue.
type AllowanceTypeID string

// AllowanceType is a catalogue entry for a custom allowance
// (e.g. "First Aid Allowance", code FA01).
type AllowanceType struct {
	ID   AllowanceTypeID
	Name string
	Code string
}

// AllowanceAssignment attaches a custom allowance to a template config
// at a specific rate. At most one ACTIVE assignment per AllowanceType
// may exist on a config; AddAllowance enforces this.
type AllowanceAssignment struct {
	Type     AllowanceType
	Rate     decimal.Decimal
	RateType RateType
	Active   bool

	// PaidToRDO marks the allowance as contractually payable during
	// rostered days off. It never changes the weekly cost; downstream
	// RDO-hour costing consumes it.
	PaidToRDO bool
}

// =============================================================================
// STANDARD ALLOWANCES
// =============================================================================

// StandardAllowance is one of the three award allowances enabled by a
// location's shift-condition work types. Rate type is fixed per slot:
// fares/travel is daily, site and multistorey are hourly.
type StandardAllowance struct {
	Name string
	Rate decimal.Decimal
}

// StandardAllowances holds whichever of the three award allowances
// apply at the location. A nil slot means the shift condition is not
// present and the allowance does not apply.
type StandardAllowances struct {
	FaresTravel *StandardAllowance
	Site        *StandardAllowance
	Multistorey *StandardAllowance
}

// =============================================================================
// TEMPLATE CONFIG
// =============================================================================

// TemplateConfigID identifies a location-scoped template instance.
type TemplateConfigID string

// TemplateConfig is a pay-rate template as configured for one location.
// It is the sole input to allowance resolution and breakdown
// computation. Mutated only while the owning forecast is editable;
// the forecast layer enforces that.
type TemplateConfig struct {
	ID         TemplateConfigID
	LocationID string
	Label      string

	// HourlyRate is the base "Permanent Ordinary Hours" rate.
	// Currency, 2-4 decimal places.
	HourlyRate decimal.Decimal

	// HoursPerWeek is the contracted ordinary hours for this template.
	HoursPerWeek decimal.Decimal

	// CostCodePrefix drives ledger cost-code mapping ("03" -> wages
	// post to 03-01, on-costs to 04-xx). Empty disables mapping.
	CostCodePrefix string

	// OvertimeEnabled allows overtime hours on forecast entries built
	// from this template.
	OvertimeEnabled bool

	// LeaveMarkupsJobCosted controls whether leave accrual markups are
	// included in the job-costed marked-up wages. When false the
	// markups are still computed and reported, but excluded from the
	// figure on-costs are taken over. Configuration, not a bug.
	LeaveMarkupsJobCosted bool

	// RDO eligibility for the standard allowances. Defaults (set by
	// NewTemplateConfig): fares/travel true, site false, multistorey
	// false.
	RDOFaresTravel bool
	RDOSite        bool
	RDOMultistorey bool

	Standard StandardAllowances

	// Custom allowance assignments. Use AddAllowance to append; it
	// enforces the one-active-per-type invariant.
	Allowances []AllowanceAssignment
}

// NewTemplateConfig creates a template config with the standard RDO
// defaults applied.
func NewTemplateConfig(id TemplateConfigID, locationID string, hourlyRate, hoursPerWeek decimal.Decimal) *TemplateConfig {
	return &TemplateConfig{
		ID:             id,
		LocationID:     locationID,
		HourlyRate:     hourlyRate,
		HoursPerWeek:   hoursPerWeek,
		RDOFaresTravel: true,
	}
}

// AddAllowance attaches a custom allowance assignment. Adding a second
// ACTIVE assignment for an already-assigned allowance type fails with
// DuplicateAllowanceError; inactive assignments do not block.
func (tc *TemplateConfig) AddAllowance(a AllowanceAssignment) error {
	if a.Rate.IsNegative() {
		return &ValidationError{Field: "rate", Message: "allowance rate cannot be negative", Value: a.Rate.String()}
	}
	if !a.RateType.Valid() {
		return &ValidationError{Field: "rate_type", Message: "unknown rate type", Value: string(a.RateType)}
	}
	if a.Active {
		for _, existing := range tc.Allowances {
			if existing.Active && existing.Type.ID == a.Type.ID {
				return &DuplicateAllowanceError{
					TemplateConfigID: tc.ID,
					AllowanceTypeID:  a.Type.ID,
					Name:             a.Type.Name,
				}
			}
		}
	}
	tc.Allowances = append(tc.Allowances, a)
	return nil
}

// RemoveAllowance deactivates the assignment for the given type.
// Returns true if an active assignment was found.
func (tc *TemplateConfig) RemoveAllowance(typeID AllowanceTypeID) bool {
	for i := range tc.Allowances {
		if tc.Allowances[i].Active && tc.Allowances[i].Type.ID == typeID {
			tc.Allowances[i].Active = false
			return true
		}
	}
	return false
}
