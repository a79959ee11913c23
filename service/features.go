package service

import (
	"fmt"
	"strings"

	"sardraft-backend/models"
)

// Indicator kinds derived from case data before generation.
const (
	IndicatorHighValue        = "HIGH VALUE"
	IndicatorHighFrequency    = "HIGH FREQUENCY"
	IndicatorPEP              = "PEP CUSTOMER"
	IndicatorHighRiskCustomer = "HIGH RISK CUSTOMER"
	IndicatorHighRiskCountry  = "HIGH RISK JURISDICTION"
	IndicatorStructuring      = "STRUCTURING"
	IndicatorPassThrough      = "PASS-THROUGH"
	IndicatorIncomeDisparity  = "INCOME DISPARITY"
	IndicatorManyCounterparts = "MULTIPLE COUNTERPARTIES"
)

const (
	highValueThreshold     = 10000
	highFrequencyThreshold = 10
	structuringLow         = 8000
	structuringHigh        = 10000
	incomeDisparityFactor  = 2
	counterpartyThreshold  = 10
)

// highRiskJurisdictions are screened against alert jurisdictions and
// transaction countries.
var highRiskJurisdictions = map[string]bool{
	"IRAN":        true,
	"NORTH KOREA": true,
	"SYRIA":       true,
	"RUSSIA":      true,
	"AFGHANISTAN": true,
	"MYANMAR":     true,
}

// CaseFeatures is the rule-derived view of a case fed to retrieval and
// generation.
type CaseFeatures struct {
	Indicators   models.RiskIndicators
	TypologyHint string
}

// DeriveFeatures applies the indicator rules to the case bundle. The rules
// are deterministic: the same bundle always yields the same indicators in
// the same order.
func DeriveFeatures(bundle *CaseBundle) CaseFeatures {
	alert := bundle.Alert
	customer := bundle.Customer
	var inds models.RiskIndicators

	if alert.TotalAmount > highValueThreshold {
		inds = append(inds, models.RiskIndicator{
			Kind:        IndicatorHighValue,
			Description: fmt.Sprintf("total transaction value %.2f %s exceeds %d", alert.TotalAmount, alert.Currency, highValueThreshold),
			Severity:    "HIGH",
		})
	}
	if alert.TransactionCount > highFrequencyThreshold {
		inds = append(inds, models.RiskIndicator{
			Kind:        IndicatorHighFrequency,
			Description: fmt.Sprintf("%d transactions in the alert window", alert.TransactionCount),
			Severity:    "MEDIUM",
		})
	}
	if customer.PEP {
		inds = append(inds, models.RiskIndicator{
			Kind:        IndicatorPEP,
			Description: "customer is a politically exposed person",
			Severity:    "HIGH",
		})
	}
	if strings.EqualFold(customer.RiskRating, "HIGH") {
		inds = append(inds, models.RiskIndicator{
			Kind:        IndicatorHighRiskCustomer,
			Description: "customer risk rating is HIGH",
			Severity:    "HIGH",
		})
	}
	if countries := riskyJurisdictions(alert); len(countries) > 0 {
		inds = append(inds, models.RiskIndicator{
			Kind:        IndicatorHighRiskCountry,
			Description: "exposure to " + strings.Join(countries, ", "),
			Severity:    "HIGH",
		})
	}
	if n := structuredCount(alert.Transactions); n >= 3 {
		inds = append(inds, models.RiskIndicator{
			Kind:        IndicatorStructuring,
			Description: fmt.Sprintf("%d transactions between %d and %d, just below the reporting threshold", n, structuringLow, structuringHigh),
			Severity:    "HIGH",
		})
	}
	if isPassThrough(alert.Typology) {
		inds = append(inds, models.RiskIndicator{
			Kind:        IndicatorPassThrough,
			Description: "alert typology indicates rapid movement of funds through the account",
			Severity:    "MEDIUM",
		})
	}
	if customer.AnnualIncome > 0 && alert.TotalAmount > incomeDisparityFactor*customer.AnnualIncome {
		inds = append(inds, models.RiskIndicator{
			Kind:        IndicatorIncomeDisparity,
			Description: fmt.Sprintf("transaction value %.2f against declared annual income %.2f", alert.TotalAmount, customer.AnnualIncome),
			Severity:    "HIGH",
		})
	}
	if len(alert.Counterparties) > counterpartyThreshold {
		inds = append(inds, models.RiskIndicator{
			Kind:        IndicatorManyCounterparts,
			Description: fmt.Sprintf("%d distinct counterparties", len(alert.Counterparties)),
			Severity:    "MEDIUM",
		})
	}

	return CaseFeatures{Indicators: inds, TypologyHint: alert.Typology}
}

// QueryText builds the retrieval query from the derived features.
func (f CaseFeatures) QueryText() string {
	parts := []string{f.TypologyHint}
	for _, ind := range f.Indicators {
		parts = append(parts, ind.Kind)
	}
	return strings.ToLower(strings.Join(parts, " "))
}

func riskyJurisdictions(alert *models.Alert) []string {
	seen := make(map[string]bool)
	var out []string
	note := func(country string) {
		key := strings.ToUpper(strings.TrimSpace(country))
		if highRiskJurisdictions[key] && !seen[key] {
			seen[key] = true
			out = append(out, country)
		}
	}
	for _, j := range alert.Jurisdictions {
		note(j)
	}
	for _, txn := range alert.Transactions {
		note(txn.Country)
	}
	return out
}

func structuredCount(txns models.TransactionList) int {
	n := 0
	for _, txn := range txns {
		if txn.Amount >= structuringLow && txn.Amount < structuringHigh {
			n++
		}
	}
	return n
}

func isPassThrough(typology string) bool {
	t := strings.ToLower(typology)
	return strings.Contains(t, "pass") || strings.Contains(t, "rapid movement") || strings.Contains(t, "funnel")
}
