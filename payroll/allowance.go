/*
allowance.go - Allowance resolution

PURPOSE:
  Resolves the full set of applicable pay allowances for a template
  config: the three standard award allowances (fares/travel, site,
  multistorey) plus any active custom assignments. Each resolved
  allowance carries its weekly cost and whether it is payable during
  rostered days off.

WEEKLY CONVERSION (fixed, non-configurable):
  fares/travel  daily  rate x 5
  site          hourly rate x 40
  multistorey   hourly rate x 40
  custom        by assignment rate type (x40 / x5 / x1)

RDO ELIGIBILITY:
  Standard allowances take their flag from the template config
  (defaults: fares/travel yes, site no, multistorey no). Custom
  allowances default to no unless the assignment says otherwise.
  The flag never changes the weekly cost; it marks which allowances
  contribute to RDO-hour costing downstream.

SEE ALSO:
  - breakdown.go: Consumes the AllowanceSet
*/
package payroll

import "github.com/shopspring/decimal"

// =============================================================================
// RESOLVED ALLOWANCES
// =============================================================================

// Allowance is a single resolved allowance with its weekly cost.
type Allowance struct {
	TypeID    AllowanceTypeID `json:"type_id,omitempty"`
	Name      string          `json:"name"`
	Code      string          `json:"code,omitempty"`
	Rate      decimal.Decimal `json:"rate"`
	RateType  RateType        `json:"rate_type"`
	Weekly    decimal.Decimal `json:"weekly"`
	PaidToRDO bool            `json:"paid_to_rdo"`
}

// AllowanceSet is the resolver output: the standard allowances that
// apply (nil where the shift condition is absent) plus all active
// custom allowances.
type AllowanceSet struct {
	FaresTravel *Allowance  `json:"fares_travel,omitempty"`
	Site        *Allowance  `json:"site,omitempty"`
	Multistorey *Allowance  `json:"multistorey,omitempty"`
	Custom      []Allowance `json:"custom,omitempty"`
}

// Total returns the summed weekly cost of every allowance in the set.
func (s AllowanceSet) Total() decimal.Decimal {
	total := decimal.Zero
	for _, a := range []*Allowance{s.FaresTravel, s.Site, s.Multistorey} {
		if a != nil {
			total = total.Add(a.Weekly)
		}
	}
	for _, a := range s.Custom {
		total = total.Add(a.Weekly)
	}
	return total
}

// RDOPayable returns the subset of allowances flagged as payable
// during rostered days off.
func (s AllowanceSet) RDOPayable() []Allowance {
	var out []Allowance
	for _, a := range []*Allowance{s.FaresTravel, s.Site, s.Multistorey} {
		if a != nil && a.PaidToRDO {
			out = append(out, *a)
		}
	}
	for _, a := range s.Custom {
		if a.PaidToRDO {
			out = append(out, a)
		}
	}
	return out
}

// =============================================================================
// RESOLVER
// =============================================================================

// ResolveAllowances resolves all applicable allowances for a template
// config. Fails fast with ValidationError on any negative rate; no
// partial set is returned.
func ResolveAllowances(tc *TemplateConfig) (AllowanceSet, error) {
	var set AllowanceSet

	// Validate everything up front. A set with one bad rate must not
	// leak partially resolved.
	if tc.Standard.FaresTravel != nil && tc.Standard.FaresTravel.Rate.IsNegative() {
		return AllowanceSet{}, &ValidationError{Field: "fares_travel.rate", Message: "allowance rate cannot be negative", Value: tc.Standard.FaresTravel.Rate.String()}
	}
	if tc.Standard.Site != nil && tc.Standard.Site.Rate.IsNegative() {
		return AllowanceSet{}, &ValidationError{Field: "site.rate", Message: "allowance rate cannot be negative", Value: tc.Standard.Site.Rate.String()}
	}
	if tc.Standard.Multistorey != nil && tc.Standard.Multistorey.Rate.IsNegative() {
		return AllowanceSet{}, &ValidationError{Field: "multistorey.rate", Message: "allowance rate cannot be negative", Value: tc.Standard.Multistorey.Rate.String()}
	}
	for _, a := range tc.Allowances {
		if a.Active && a.Rate.IsNegative() {
			return AllowanceSet{}, &ValidationError{Field: "allowances." + string(a.Type.ID) + ".rate", Message: "allowance rate cannot be negative", Value: a.Rate.String()}
		}
	}

	if sa := tc.Standard.FaresTravel; sa != nil {
		set.FaresTravel = &Allowance{
			Name:      sa.Name,
			Rate:      sa.Rate,
			RateType:  RateDaily,
			Weekly:    sa.Rate.Mul(DaysPerWeek),
			PaidToRDO: tc.RDOFaresTravel,
		}
	}
	if sa := tc.Standard.Site; sa != nil {
		set.Site = &Allowance{
			Name:      sa.Name,
			Rate:      sa.Rate,
			RateType:  RateHourly,
			Weekly:    sa.Rate.Mul(HoursPerWeek),
			PaidToRDO: tc.RDOSite,
		}
	}
	if sa := tc.Standard.Multistorey; sa != nil {
		set.Multistorey = &Allowance{
			Name:      sa.Name,
			Rate:      sa.Rate,
			RateType:  RateHourly,
			Weekly:    sa.Rate.Mul(HoursPerWeek),
			PaidToRDO: tc.RDOMultistorey,
		}
	}

	for _, a := range tc.Allowances {
		if !a.Active {
			continue
		}
		set.Custom = append(set.Custom, Allowance{
			TypeID:    a.Type.ID,
			Name:      a.Type.Name,
			Code:      a.Type.Code,
			Rate:      a.Rate,
			RateType:  a.RateType,
			Weekly:    a.Rate.Mul(a.RateType.WeeklyFactor()),
			PaidToRDO: a.PaidToRDO,
		})
	}

	return set, nil
}
