package provider

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleCompletion = `The account holder received forty-seven credits totalling GBP 487,500
over the review period, materially above declared income.

DATA SOURCES USED:
- Transaction monitoring alert ALT-2024-001
- Customer KYC profile
- Transaction records

RULES AND TYPOLOGIES MATCHED:
- Rapid movement of funds
- Income disparity

RISK INDICATORS:
- HIGH VALUE: total credits of GBP 487,500 exceed the reporting threshold
- INCOME DISPARITY: throughput is over five times declared annual income
- PASS-THROUGH

CONFIDENCE ASSESSMENT:
High confidence based on complete transaction records.

LIMITATIONS:
- Counterparty account ownership could not be verified
`

func TestParseReasoningSections(t *testing.T) {
	r := ParseReasoning(sampleCompletion)

	assert.Equal(t, []string{
		"Transaction monitoring alert ALT-2024-001",
		"Customer KYC profile",
		"Transaction records",
	}, r.DataSources)

	assert.Equal(t, []string{"Rapid movement of funds", "Income disparity"}, r.Typologies)

	require.Len(t, r.Indicators, 3)
	assert.Equal(t, "HIGH VALUE", r.Indicators[0].Kind)
	assert.Contains(t, r.Indicators[0].Description, "487,500")
	assert.Equal(t, "INCOME DISPARITY", r.Indicators[1].Kind)
	assert.Equal(t, "PASS-THROUGH", r.Indicators[2].Kind)
	assert.Empty(t, r.Indicators[2].Description)

	assert.Equal(t, "HIGH", r.Confidence)
	require.Len(t, r.Limitations, 1)
}

func TestParseReasoningMissingSections(t *testing.T) {
	r := ParseReasoning("A plain narrative with no reasoning sections at all.")

	assert.Empty(t, r.DataSources)
	assert.Empty(t, r.Typologies)
	assert.Empty(t, r.Indicators)
	assert.Empty(t, r.Confidence)
	assert.Empty(t, r.Limitations)
}

func TestParseReasoningMarkdownHeaders(t *testing.T) {
	text := `Narrative body.

## Data Sources Used
* alert feed

**CONFIDENCE ASSESSMENT:**
Medium, pending counterparty checks.
`
	r := ParseReasoning(text)
	assert.Equal(t, []string{"alert feed"}, r.DataSources)
	assert.Equal(t, "MEDIUM", r.Confidence)
}
