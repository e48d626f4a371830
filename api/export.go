/*
export.go - XLSX export of a forecast month

Produces the spreadsheet the commercial team reconciles against: one
row per template, one column per week, a totals row, and a cost-code
sheet matching the general-ledger split. Uses the saved snapshots, so
an exported approved forecast reproduces the numbers it was approved
with regardless of later rate changes.
*/
package api

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"github.com/warp/labour-engine/forecast"
	"github.com/warp/labour-engine/payroll"
)

// ExportForecast streams the month as an .xlsx workbook.
// GET /api/locations/{locationID}/forecasts/{month}/export
func (h *Handler) ExportForecast(w http.ResponseWriter, r *http.Request) {
	locationID := chi.URLParam(r, "locationID")
	month, err := monthParam(r)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "Invalid month (use YYYY-MM)", err)
		return
	}

	f, err := h.Svc.Store.GetForecast(r.Context(), locationID, month)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	entries, err := h.Svc.Store.Entries(r.Context(), f.ID)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	lines, err := h.Svc.CostCodeRollup(r.Context(), locationID, month)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	templates, err := h.Svc.Templates.ListTemplateConfigs(r.Context(), locationID)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	book, err := buildWorkbook(f, h.Svc.ScheduleFor(locationID, month), entries, templates, lines)
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, "Failed to build workbook", err)
		return
	}

	filename := fmt.Sprintf("labour-forecast-%s-%s.xlsx", locationID, month)
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	if err := book.Write(w); err != nil {
		h.Log.Error().Err(err).Msg("failed to stream workbook")
	}
}

func buildWorkbook(f *forecast.LabourForecast, schedule forecast.Schedule, entries []forecast.Entry, templates []*payroll.TemplateConfig, lines []forecast.CostCodeLine) (*excelize.File, error) {
	book := excelize.NewFile()

	labels := make(map[payroll.TemplateConfigID]string, len(templates))
	for _, tc := range templates {
		label := tc.Label
		if label == "" {
			label = string(tc.ID)
		}
		labels[tc.ID] = label
	}

	// Index entries by (template, week) for grid placement.
	type cell struct {
		headcount string
		cost      decimal.Decimal
	}
	grid := make(map[payroll.TemplateConfigID]map[string]cell)
	var templateOrder []payroll.TemplateConfigID
	for _, e := range entries {
		row, ok := grid[e.TemplateConfigID]
		if !ok {
			row = make(map[string]cell)
			grid[e.TemplateConfigID] = row
			templateOrder = append(templateOrder, e.TemplateConfigID)
		}
		row[e.WeekEnding.String()] = cell{
			headcount: e.Headcount.String(),
			cost:      e.WeeklyCost,
		}
	}

	const sheet = "Forecast"
	if err := book.SetSheetName(book.GetSheetName(0), sheet); err != nil {
		return nil, err
	}

	// Header: template label then one column pair per week.
	setCell := func(col, row int, v any) {
		name, _ := excelize.CoordinatesToCellName(col, row)
		book.SetCellValue(sheet, name, v)
	}

	setCell(1, 1, fmt.Sprintf("Labour Forecast %s (%s)", f.Month, f.Status))
	setCell(1, 2, "Template")
	for i, week := range schedule.Weeks {
		setCell(2+i, 2, week.String())
	}
	setCell(2+len(schedule.Weeks), 2, "Total Cost")

	rowNum := 3
	for _, id := range templateOrder {
		setCell(1, rowNum, labels[id])
		var sum decimal.Decimal
		for i, week := range schedule.Weeks {
			c, ok := grid[id][week.String()]
			if !ok {
				continue
			}
			setCell(2+i, rowNum, c.headcount)
			sum = sum.Add(c.cost)
		}
		setCell(2+len(schedule.Weeks), rowNum, sum.String())
		rowNum++
	}

	// Cost-code sheet for the ledger import.
	const codeSheet = "Cost Codes"
	if _, err := book.NewSheet(codeSheet); err != nil {
		return nil, err
	}
	book.SetCellValue(codeSheet, "A1", "Code")
	book.SetCellValue(codeSheet, "B1", "Label")
	book.SetCellValue(codeSheet, "C1", "Amount")
	for i, line := range lines {
		row := i + 2
		book.SetCellValue(codeSheet, fmt.Sprintf("A%d", row), line.Code)
		book.SetCellValue(codeSheet, fmt.Sprintf("B%d", row), line.Label)
		book.SetCellValue(codeSheet, fmt.Sprintf("C%d", row), line.Amount.String())
	}

	return book, nil
}
