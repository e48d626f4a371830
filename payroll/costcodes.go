package payroll

import (
	"fmt"
	"strconv"
)

// =============================================================================
// COST CODE MAPPING - Ledger codes per cost category
// =============================================================================

// CostCodes maps breakdown categories to job-cost ledger codes.
// Wages post to {prefix}-01; on-costs post under the incremented
// prefix with fixed suffixes:
//
//	super       {prefix+1}-01
//	BERT        {prefix+1}-05
//	BEWT        {prefix+1}-10
//	CIPQ        {prefix+1}-15
//	payroll tax {prefix+1}-20
//	workcover   {prefix+1}-25
type CostCodes struct {
	Prefix       string `json:"prefix,omitempty"`
	OncostPrefix string `json:"oncost_prefix,omitempty"`
	Wages        string `json:"wages,omitempty"`
	Super        string `json:"super,omitempty"`
	BERT         string `json:"bert,omitempty"`
	BEWT         string `json:"bewt,omitempty"`
	CIPQ         string `json:"cipq,omitempty"`
	PayrollTax   string `json:"payroll_tax,omitempty"`
	Workcover    string `json:"workcover,omitempty"`
}

// BuildCostCodes derives the mapping from a wages prefix. An empty or
// non-numeric prefix yields an empty mapping (cost coding disabled).
func BuildCostCodes(prefix string) CostCodes {
	if prefix == "" {
		return CostCodes{}
	}
	n, err := strconv.Atoi(prefix)
	if err != nil {
		return CostCodes{}
	}
	oncostPrefix := fmt.Sprintf("%02d", n+1)

	return CostCodes{
		Prefix:       prefix,
		OncostPrefix: oncostPrefix,
		Wages:        prefix + "-01",
		Super:        oncostPrefix + "-01",
		BERT:         oncostPrefix + "-05",
		BEWT:         oncostPrefix + "-10",
		CIPQ:         oncostPrefix + "-15",
		PayrollTax:   oncostPrefix + "-20",
		Workcover:    oncostPrefix + "-25",
	}
}
