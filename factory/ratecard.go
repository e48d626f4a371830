/*
Package factory provides JSON to Go rate-card conversion.

PURPOSE:
  Converts JSON rate-card definitions into payroll.PolicyRates,
  allowance catalogs and template configs. This enables rate
  configuration without code changes - the commercial team can define
  EBA rates in JSON, and the factory creates the proper Go structs.

WHY JSON?
  - Non-developers can update rates when an EBA increment lands
  - Easy integration with admin UI
  - Version control for rate definitions
  - Database storage of rate configs

JSON SCHEMA:
  {
    "name": "QLD EBA 2025",
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
      {"id": "meal", "name": "Meal Allowance", "code": "MEAL"}
    ],
    "templates": [
      {
        "id": "tpl-carpenter",
        "location_id": "site-1",
        "label": "Carpenter",
        "hourly_rate": "40.00",
        "hours_per_week": "40",
        "cost_code_prefix": "03",
        "standard": {
          "fares_travel": {"name": "Fares & Travel", "rate": "25.00"},
          "site": {"name": "Site Allowance", "rate": "1.50"}
        },
        "allowances": [
          {"type_id": "meal", "rate": "18.00", "rate_type": "daily"}
        ]
      }
    ]
  }

  All numeric fields are decimal strings; floats would drift.

USAGE:
  factory := NewRateCardFactory()
  card, err := factory.Parse(jsonStr)
  calc, err := payroll.NewCalculator(card.Rates)

SEE ALSO:
  - payroll/breakdown.go: PolicyRates definition
  - payroll/types.go: TemplateConfig definition
*/
package factory

import (
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/warp/labour-engine/payroll"
)

// =============================================================================
// JSON SCHEMA TYPES
// =============================================================================

// RateCardJSON is the JSON representation of a full rate card.
type RateCardJSON struct {
	Name           string              `json:"name"`
	Rates          RatesJSON           `json:"rates"`
	AllowanceTypes []AllowanceTypeJSON `json:"allowance_types,omitempty"`
	Templates      []TemplateJSON      `json:"templates,omitempty"`
}

// RatesJSON holds the statutory and EBA policy rates as decimal strings.
type RatesJSON struct {
	AnnualLeaveRate    string `json:"annual_leave_rate"`
	LeaveLoadingRate   string `json:"leave_loading_rate"`
	SuperWeekly        string `json:"super_weekly"`
	BERTWeekly         string `json:"bert_weekly"`
	BEWTWeekly         string `json:"bewt_weekly"`
	CIPQWeekly         string `json:"cipq_weekly"`
	PayrollTaxRate     string `json:"payroll_tax_rate"`
	WorkcoverRate      string `json:"workcover_rate"`
	OvertimeMultiplier string `json:"overtime_multiplier,omitempty"`
}

// AllowanceTypeJSON defines one reusable allowance type.
type AllowanceTypeJSON struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Code string `json:"code,omitempty"`
}

// TemplateJSON defines one pay-rate template.
type TemplateJSON struct {
	ID                    string                    `json:"id"`
	LocationID            string                    `json:"location_id"`
	Label                 string                    `json:"label,omitempty"`
	HourlyRate            string                    `json:"hourly_rate"`
	HoursPerWeek          string                    `json:"hours_per_week,omitempty"`
	CostCodePrefix        string                    `json:"cost_code_prefix,omitempty"`
	OvertimeEnabled       bool                      `json:"overtime_enabled,omitempty"`
	LeaveMarkupsJobCosted bool                      `json:"leave_markups_job_costed,omitempty"`
	RDOFaresTravel        *bool                     `json:"rdo_fares_travel,omitempty"`
	RDOSite               bool                      `json:"rdo_site,omitempty"`
	RDOMultistorey        bool                      `json:"rdo_multistorey,omitempty"`
	Standard              *StandardJSON             `json:"standard,omitempty"`
	Allowances            []AllowanceAssignmentJSON `json:"allowances,omitempty"`
}

// StandardJSON holds the three industry-standard allowances.
type StandardJSON struct {
	FaresTravel *StandardAllowanceJSON `json:"fares_travel,omitempty"`
	Site        *StandardAllowanceJSON `json:"site,omitempty"`
	Multistorey *StandardAllowanceJSON `json:"multistorey,omitempty"`
}

// StandardAllowanceJSON is one named standard allowance.
type StandardAllowanceJSON struct {
	Name string `json:"name"`
	Rate string `json:"rate"`
}

// AllowanceAssignmentJSON attaches a typed allowance to a template.
type AllowanceAssignmentJSON struct {
	TypeID   string `json:"type_id"`
	Rate     string `json:"rate"`
	RateType string `json:"rate_type"`
	Inactive bool   `json:"inactive,omitempty"`
	PaidToRDO *bool `json:"paid_to_rdo,omitempty"`
}

// =============================================================================
// RATE CARD
// =============================================================================

// RateCard is the parsed, validated form of a rate-card definition.
type RateCard struct {
	Name           string
	Rates          payroll.PolicyRates
	AllowanceTypes map[string]payroll.AllowanceType
	Templates      []*payroll.TemplateConfig
}

// RateCardFactory converts JSON rate cards to Go structs.
type RateCardFactory struct{}

// NewRateCardFactory creates a new rate card factory.
func NewRateCardFactory() *RateCardFactory {
	return &RateCardFactory{}
}

// Parse parses a JSON string into a validated RateCard.
func (f *RateCardFactory) Parse(jsonStr string) (*RateCard, error) {
	var rc RateCardJSON
	if err := json.Unmarshal([]byte(jsonStr), &rc); err != nil {
		return nil, fmt.Errorf("failed to parse rate card JSON: %w", err)
	}
	return f.FromJSON(rc)
}

// FromJSON converts RateCardJSON to a RateCard.
func (f *RateCardFactory) FromJSON(rc RateCardJSON) (*RateCard, error) {
	rates, err := parseRates(rc.Rates)
	if err != nil {
		return nil, err
	}
	if err := rates.Validate(); err != nil {
		return nil, err
	}

	card := &RateCard{
		Name:           rc.Name,
		Rates:          rates,
		AllowanceTypes: make(map[string]payroll.AllowanceType, len(rc.AllowanceTypes)),
	}
	for _, at := range rc.AllowanceTypes {
		if at.ID == "" {
			return nil, fmt.Errorf("allowance type missing id")
		}
		card.AllowanceTypes[at.ID] = payroll.AllowanceType{
			ID:   payroll.AllowanceTypeID(at.ID),
			Name: at.Name,
			Code: at.Code,
		}
	}

	for _, tj := range rc.Templates {
		tc, err := f.parseTemplate(tj, card.AllowanceTypes)
		if err != nil {
			return nil, fmt.Errorf("template %q: %w", tj.ID, err)
		}
		card.Templates = append(card.Templates, tc)
	}
	return card, nil
}

func (f *RateCardFactory) parseTemplate(tj TemplateJSON, types map[string]payroll.AllowanceType) (*payroll.TemplateConfig, error) {
	if tj.ID == "" {
		return nil, fmt.Errorf("missing id")
	}
	hourly, err := parseDecimal(tj.HourlyRate, "hourly_rate")
	if err != nil {
		return nil, err
	}

	// Default to the industry-standard 40-hour week.
	hours := payroll.HoursPerWeek
	if tj.HoursPerWeek != "" {
		if hours, err = parseDecimal(tj.HoursPerWeek, "hours_per_week"); err != nil {
			return nil, err
		}
	}

	tc := payroll.NewTemplateConfig(payroll.TemplateConfigID(tj.ID), tj.LocationID, hourly, hours)
	tc.Label = tj.Label
	tc.CostCodePrefix = tj.CostCodePrefix
	tc.OvertimeEnabled = tj.OvertimeEnabled
	tc.LeaveMarkupsJobCosted = tj.LeaveMarkupsJobCosted
	if tj.RDOFaresTravel != nil {
		tc.RDOFaresTravel = *tj.RDOFaresTravel
	}
	tc.RDOSite = tj.RDOSite
	tc.RDOMultistorey = tj.RDOMultistorey

	if tj.Standard != nil {
		if tc.Standard.FaresTravel, err = parseStandard(tj.Standard.FaresTravel); err != nil {
			return nil, err
		}
		if tc.Standard.Site, err = parseStandard(tj.Standard.Site); err != nil {
			return nil, err
		}
		if tc.Standard.Multistorey, err = parseStandard(tj.Standard.Multistorey); err != nil {
			return nil, err
		}
	}

	for _, aj := range tj.Allowances {
		at, ok := types[aj.TypeID]
		if !ok {
			return nil, fmt.Errorf("unknown allowance type %q", aj.TypeID)
		}
		rate, err := parseDecimal(aj.Rate, "allowance rate")
		if err != nil {
			return nil, err
		}
		assignment := payroll.AllowanceAssignment{
			Type:     at,
			Rate:     rate,
			RateType: payroll.RateType(aj.RateType),
			Active:   !aj.Inactive,
		}
		if aj.PaidToRDO != nil {
			assignment.PaidToRDO = *aj.PaidToRDO
		}
		if err := tc.AddAllowance(assignment); err != nil {
			return nil, err
		}
	}
	return tc, nil
}

// ToJSON converts a RateCard back to its JSON representation.
func (f *RateCardFactory) ToJSON(card *RateCard) RateCardJSON {
	rc := RateCardJSON{
		Name: card.Name,
		Rates: RatesJSON{
			AnnualLeaveRate:    card.Rates.AnnualLeaveRate.String(),
			LeaveLoadingRate:   card.Rates.LeaveLoadingRate.String(),
			SuperWeekly:        card.Rates.SuperWeekly.String(),
			BERTWeekly:         card.Rates.BERTWeekly.String(),
			BEWTWeekly:         card.Rates.BEWTWeekly.String(),
			CIPQWeekly:         card.Rates.CIPQWeekly.String(),
			PayrollTaxRate:     card.Rates.PayrollTaxRate.String(),
			WorkcoverRate:      card.Rates.WorkcoverRate.String(),
			OvertimeMultiplier: card.Rates.OvertimeMultiplier.String(),
		},
	}
	for _, at := range card.AllowanceTypes {
		rc.AllowanceTypes = append(rc.AllowanceTypes, AllowanceTypeJSON{
			ID:   string(at.ID),
			Name: at.Name,
			Code: at.Code,
		})
	}
	return rc
}

// =============================================================================
// PARSING HELPERS
// =============================================================================

func parseRates(rj RatesJSON) (payroll.PolicyRates, error) {
	var (
		rates payroll.PolicyRates
		err   error
	)
	fields := []struct {
		name string
		src  string
		dst  *decimal.Decimal
	}{
		{"annual_leave_rate", rj.AnnualLeaveRate, &rates.AnnualLeaveRate},
		{"leave_loading_rate", rj.LeaveLoadingRate, &rates.LeaveLoadingRate},
		{"super_weekly", rj.SuperWeekly, &rates.SuperWeekly},
		{"bert_weekly", rj.BERTWeekly, &rates.BERTWeekly},
		{"bewt_weekly", rj.BEWTWeekly, &rates.BEWTWeekly},
		{"cipq_weekly", rj.CIPQWeekly, &rates.CIPQWeekly},
		{"payroll_tax_rate", rj.PayrollTaxRate, &rates.PayrollTaxRate},
		{"workcover_rate", rj.WorkcoverRate, &rates.WorkcoverRate},
	}
	for _, f := range fields {
		if *f.dst, err = parseDecimal(f.src, f.name); err != nil {
			return rates, err
		}
	}

	// Double time is the prevailing EBA overtime arrangement.
	rates.OvertimeMultiplier = decimal.NewFromInt(2)
	if rj.OvertimeMultiplier != "" {
		if rates.OvertimeMultiplier, err = parseDecimal(rj.OvertimeMultiplier, "overtime_multiplier"); err != nil {
			return rates, err
		}
	}
	return rates, nil
}

func parseStandard(sj *StandardAllowanceJSON) (*payroll.StandardAllowance, error) {
	if sj == nil {
		return nil, nil
	}
	rate, err := parseDecimal(sj.Rate, "standard allowance rate")
	if err != nil {
		return nil, err
	}
	return &payroll.StandardAllowance{Name: sj.Name, Rate: rate}, nil
}

func parseDecimal(s, field string) (decimal.Decimal, error) {
	if s == "" {
		return decimal.Decimal{}, fmt.Errorf("missing %s", field)
	}
	v, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("invalid %s %q: %w", field, s, err)
	}
	return v, nil
}
