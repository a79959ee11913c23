package models

import (
	"database/sql/driver"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Transaction is a single monitored transaction attached to an alert
type Transaction struct {
	TxnID        string  `json:"txn_id"`
	Date         string  `json:"date"`
	Amount       float64 `json:"amount"`
	Currency     string  `json:"currency"`
	Direction    string  `json:"direction"` // "credit" or "debit"
	Counterparty string  `json:"counterparty"`
	Country      string  `json:"country"`
	Channel      string  `json:"channel"`
	Reference    string  `json:"reference,omitempty"`
}

// TransactionList represents the transaction set backing an alert
type TransactionList []Transaction

// Value implements driver.Valuer for JSONB
func (t TransactionList) Value() (driver.Value, error) {
	return json.Marshal(t)
}

// Scan implements sql.Scanner for JSONB
func (t *TransactionList) Scan(value interface{}) error {
	if value == nil {
		*t = make(TransactionList, 0)
		return nil
	}

	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		*t = make(TransactionList, 0)
		return nil
	}

	if len(bytes) == 0 {
		*t = make(TransactionList, 0)
		return nil
	}

	return json.Unmarshal(bytes, t)
}

// Alert represents a transaction monitoring alert entity
type Alert struct {
	ID               uuid.UUID       `json:"id"`
	Reference        string          `json:"reference"`
	CustomerID       string          `json:"customer_id"`
	Typology         string          `json:"typology"`
	Rule             string          `json:"rule"`
	Severity         string          `json:"severity"`
	Score            float64         `json:"score"`
	TotalAmount      float64         `json:"total_amount"`
	Currency         string          `json:"currency"`
	TransactionCount int             `json:"transaction_count"`
	WindowStart      time.Time       `json:"window_start"`
	WindowEnd        time.Time       `json:"window_end"`
	Counterparties   []string        `json:"counterparties"`
	Jurisdictions    []string        `json:"jurisdictions"`
	Transactions     TransactionList `json:"transactions"`
	CreatedAt        time.Time       `json:"created_at"`
}
