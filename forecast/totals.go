/*
totals.go - Monthly totals as pure reductions

Totals are never stored. They are recomputed from the entry set on
every read, so concurrent cell edits cannot leave a stale aggregate
behind. Each reduction walks the entries once.
*/
package forecast

import (
	"context"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/warp/labour-engine/payroll"
)

// WeekTotal aggregates one week column across all templates.
type WeekTotal struct {
	Week               WeekEnding      `json:"week_ending"`
	Headcount          decimal.Decimal `json:"headcount"`
	OrdinaryHours      decimal.Decimal `json:"ordinary_hours"`
	OvertimeHours      int             `json:"overtime_hours"`
	LeaveHours         decimal.Decimal `json:"leave_hours"`
	RDOHours           decimal.Decimal `json:"rdo_hours"`
	PublicHolidayHours decimal.Decimal `json:"public_holiday_hours"`
	TotalHours         decimal.Decimal `json:"total_hours"`
	Cost               decimal.Decimal `json:"cost"`
}

// TemplateTotal aggregates one template row across all weeks.
type TemplateTotal struct {
	TemplateConfigID payroll.TemplateConfigID `json:"template_config_id"`
	Headcount        decimal.Decimal          `json:"headcount"`
	TotalHours       decimal.Decimal          `json:"total_hours"`
	Cost             decimal.Decimal          `json:"cost"`
}

// MonthTotals is the full aggregate view of one forecast.
type MonthTotals struct {
	Month     Month           `json:"month"`
	Weeks     []WeekTotal     `json:"weeks"`
	Templates []TemplateTotal `json:"templates"`

	// GrandTotal covers every week in the schedule, including weeks
	// that spill past the named month.
	GrandTotal decimal.Decimal `json:"grand_total"`

	// InMonthCost covers only weeks whose week-ending date falls
	// inside the named month.
	InMonthCost decimal.Decimal `json:"in_month_cost"`

	TotalHours decimal.Decimal `json:"total_hours"`
}

// Reduce folds a set of entries into MonthTotals. Deterministic:
// weeks sort ascending, templates sort by ID.
func Reduce(month Month, entries []Entry) MonthTotals {
	byWeek := make(map[WeekEnding]*WeekTotal)
	byTemplate := make(map[payroll.TemplateConfigID]*TemplateTotal)

	totals := MonthTotals{Month: month}
	for _, e := range entries {
		wt, ok := byWeek[e.WeekEnding]
		if !ok {
			wt = &WeekTotal{Week: e.WeekEnding}
			byWeek[e.WeekEnding] = wt
		}
		wt.Headcount = wt.Headcount.Add(e.Headcount)
		wt.OrdinaryHours = wt.OrdinaryHours.Add(e.OrdinaryHours())
		wt.OvertimeHours += e.OvertimeHours
		wt.LeaveHours = wt.LeaveHours.Add(e.LeaveHours)
		wt.RDOHours = wt.RDOHours.Add(e.RDOHours)
		wt.PublicHolidayHours = wt.PublicHolidayHours.Add(e.PublicHolidayHours)
		wt.TotalHours = wt.TotalHours.Add(e.TotalHours())
		wt.Cost = wt.Cost.Add(e.WeeklyCost)

		tt, ok := byTemplate[e.TemplateConfigID]
		if !ok {
			tt = &TemplateTotal{TemplateConfigID: e.TemplateConfigID}
			byTemplate[e.TemplateConfigID] = tt
		}
		tt.Headcount = tt.Headcount.Add(e.Headcount)
		tt.TotalHours = tt.TotalHours.Add(e.TotalHours())
		tt.Cost = tt.Cost.Add(e.WeeklyCost)

		totals.GrandTotal = totals.GrandTotal.Add(e.WeeklyCost)
		totals.TotalHours = totals.TotalHours.Add(e.TotalHours())
		if e.WeekEnding.Month() == month {
			totals.InMonthCost = totals.InMonthCost.Add(e.WeeklyCost)
		}
	}

	totals.Weeks = make([]WeekTotal, 0, len(byWeek))
	for _, wt := range byWeek {
		totals.Weeks = append(totals.Weeks, *wt)
	}
	sort.Slice(totals.Weeks, func(i, j int) bool {
		return totals.Weeks[i].Week.Before(totals.Weeks[j].Week)
	})

	totals.Templates = make([]TemplateTotal, 0, len(byTemplate))
	for _, tt := range byTemplate {
		totals.Templates = append(totals.Templates, *tt)
	}
	sort.Slice(totals.Templates, func(i, j int) bool {
		return totals.Templates[i].TemplateConfigID < totals.Templates[j].TemplateConfigID
	})

	return totals
}

// Totals loads the forecast's entries and reduces them.
func (s *Service) Totals(ctx context.Context, locationID string, month Month) (MonthTotals, error) {
	f, err := s.Store.GetForecast(ctx, locationID, month)
	if err != nil {
		return MonthTotals{}, err
	}
	entries, err := s.Store.Entries(ctx, f.ID)
	if err != nil {
		return MonthTotals{}, err
	}
	return Reduce(month, entries), nil
}

// CostCodeLine is one general-ledger line of a forecast's cost.
type CostCodeLine struct {
	Code   string          `json:"code"`
	Label  string          `json:"label"`
	Amount decimal.Decimal `json:"amount"`
}

// CostCodeRollup splits the forecast total across cost codes the way
// the accounting export expects: one wages line and one line per
// on-cost, per template. Each entry's snapshot components are scaled
// by its headcount. Templates without a numeric prefix are skipped.
func (s *Service) CostCodeRollup(ctx context.Context, locationID string, month Month) ([]CostCodeLine, error) {
	f, err := s.Store.GetForecast(ctx, locationID, month)
	if err != nil {
		return nil, err
	}
	entries, err := s.Store.Entries(ctx, f.ID)
	if err != nil {
		return nil, err
	}

	amounts := make(map[string]*CostCodeLine)
	add := func(code, label string, amount decimal.Decimal) {
		if code == "" || amount.IsZero() {
			return
		}
		line, ok := amounts[code]
		if !ok {
			line = &CostCodeLine{Code: code, Label: label}
			amounts[code] = line
		}
		line.Amount = line.Amount.Add(amount)
	}

	codesByTemplate := make(map[payroll.TemplateConfigID]payroll.CostCodes)
	for _, e := range entries {
		codes, ok := codesByTemplate[e.TemplateConfigID]
		if !ok {
			tc, err := s.Templates.GetTemplateConfig(ctx, e.TemplateConfigID)
			if err != nil {
				return nil, err
			}
			codes = payroll.BuildCostCodes(tc.CostCodePrefix)
			codesByTemplate[e.TemplateConfigID] = codes
		}

		hc := e.Headcount
		bd := e.Snapshot
		add(codes.Wages, "Wages", hc.Mul(bd.MarkedUpWages))
		add(codes.Super, "Superannuation", hc.Mul(bd.Super))
		add(codes.BERT, "BERT", hc.Mul(bd.OnCosts.BERT))
		add(codes.BEWT, "BEWT", hc.Mul(bd.OnCosts.BEWT))
		add(codes.CIPQ, "CIPQ", hc.Mul(bd.OnCosts.CIPQ))
		add(codes.PayrollTax, "Payroll Tax", hc.Mul(bd.OnCosts.PayrollTax))
		add(codes.Workcover, "Workcover", hc.Mul(bd.OnCosts.Workcover))
	}

	lines := make([]CostCodeLine, 0, len(amounts))
	for _, line := range amounts {
		lines = append(lines, *line)
	}
	sort.Slice(lines, func(i, j int) bool { return lines[i].Code < lines[j].Code })
	return lines, nil
}
