package models

import "time"

// CustomerProfile represents the KYC profile for a monitored customer
type CustomerProfile struct {
	CustomerID      string     `json:"customer_id"`
	FullName        string     `json:"full_name"`
	DateOfBirth     string     `json:"date_of_birth,omitempty"`
	Nationality     string     `json:"nationality"`
	Country         string     `json:"country"`
	Occupation      string     `json:"occupation"`
	Employer        string     `json:"employer,omitempty"`
	AnnualIncome    float64    `json:"annual_income"`
	RiskRating      string     `json:"risk_rating"` // "LOW", "MEDIUM", "HIGH"
	KYCStatus       string     `json:"kyc_status"`
	PEP             bool       `json:"pep"`
	SanctionsMatch  bool       `json:"sanctions_match"`
	AccountOpened   *time.Time `json:"account_opened,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}
