// Package retrieval builds an in-memory index over the SAR reference
// corpus and ranks documents against a query built from case features.
package retrieval

// Document is one reference item in the corpus: a narrative template for a
// known typology, or an extract of regulatory guidance.
type Document struct {
	ID      string
	Title   string
	Kind    string // "template" or "guidance"
	Tags    []string
	Content string
}

// DefaultCorpus returns the built-in reference corpus. Templates describe
// how to write a narrative for each typology; guidance extracts anchor the
// regulatory framing.
func DefaultCorpus() []Document {
	return []Document{
		{
			ID:    "tmpl_structured_layering",
			Title: "Template: structured deposits and layering",
			Kind:  "template",
			Tags:  []string{"structuring", "layering", "smurfing", "threshold"},
			Content: `Narrative template for structured cash deposits followed by layering.
The narrative should open with the customer identity, account history and declared
occupation, then describe the pattern of deposits kept just below the reporting
threshold. Multiple cash deposits in amounts between 8,000 and 9,999 across a short
window are a classic structuring indicator. Describe how the structured funds were
subsequently layered: transfers split across counterparties, movement through
newly opened accounts, or conversion into other instruments. Quantify the total
value, the number of transactions and the period covered. Contrast the activity
with the customer's declared income and expected account behaviour. Close with
the grounds for suspicion: deliberate avoidance of the currency reporting
threshold together with rapid onward movement of funds is indicative of an
attempt to disguise the origin of criminal property.`,
		},
		{
			ID:    "tmpl_rapid_movement",
			Title: "Template: rapid movement of funds (pass-through)",
			Kind:  "template",
			Tags:  []string{"pass-through", "rapid movement", "funnel", "velocity"},
			Content: `Narrative template for pass-through and rapid movement activity.
Describe the account receiving incoming credits that are moved out again within
hours or days, leaving a minimal resting balance. Identify the ordering parties
and the beneficiaries of the outgoing transfers, noting any lack of apparent
economic relationship to the customer. High velocity of funds with near-equal
credits and debits suggests the account is being used as a conduit rather than
for genuine commerce. Record the number of transactions, total throughput value
and the average time funds remained in the account. Where the account was
recently opened or dormant before the activity began, say so. The suspicion is
that the customer's account is being used to obscure an audit trail by inserting
an additional hop between source and destination of funds.`,
		},
		{
			ID:    "tmpl_trade_based",
			Title: "Template: trade-based money laundering",
			Kind:  "template",
			Tags:  []string{"trade", "invoice", "over-invoicing", "shell"},
			Content: `Narrative template for suspected trade-based money laundering.
Set out the customer's declared line of business and the trade corridor involved.
Describe invoices or payment references inconsistent with the declared goods,
payments materially above or below apparent market value, round-amount transfers
to trading counterparties, or payments routed through jurisdictions unrelated to
the shipment. Multiple counterparties with common registration details or
addresses may indicate shell entities. Quantify the value of the suspect trade
payments and compare against the customer's trading history. The suspicion is
that trade transactions are being used to move value across borders under the
cover of commercial activity, through mispricing or phantom shipments.`,
		},
		{
			ID:    "tmpl_fraud_proceeds",
			Title: "Template: proceeds of fraud",
			Kind:  "template",
			Tags:  []string{"fraud", "scam", "mule", "victim"},
			Content: `Narrative template for accounts suspected of receiving fraud proceeds.
Open with how the suspicion arose: a victim report, a recall request from another
institution, or monitoring detection of mule-typical behaviour. Describe the
incoming credits identified as fraudulent or matching fraud patterns, including
ordering institutions and any references used. Describe the dissipation of the
funds: cash withdrawals, onward transfers to further accounts, or purchase of
convertible assets. Note whether the customer profile is consistent with the
activity, and any indication the customer is a witting or unwitting money mule.
The narrative should make clear which funds are believed to be criminal property
and the basis for that belief.`,
		},
		{
			ID:    "tmpl_high_risk_jurisdiction",
			Title: "Template: exposure to high-risk jurisdictions",
			Kind:  "template",
			Tags:  []string{"jurisdiction", "sanctions", "cross-border", "corridor"},
			Content: `Narrative template for transactions involving high-risk jurisdictions.
Identify each transfer to or from a jurisdiction subject to FATF call-for-action
or increased-monitoring listings, or to sanctions measures. Name the
jurisdictions, the direction and value of flows, and the counterparties involved.
Describe the stated purpose of the payments and why it is not consistent with
the customer's profile or business. Where the customer is a politically exposed
person or has known links to a listed jurisdiction, record this and the enhanced
due diligence performed. The suspicion is heightened where the corridor has no
apparent connection to the customer's declared activity, where payment references
are vague, or where intermediaries appear interposed to disguise the ultimate
counterparty.`,
		},
		{
			ID:    "reg_poca_part7",
			Title: "Guidance: POCA 2002 Part 7 reporting obligations",
			Kind:  "guidance",
			Tags:  []string{"poca", "disclosure", "knowledge", "suspicion"},
			Content: `Under the Proceeds of Crime Act 2002 Part 7, a person in the regulated
sector commits an offence if they fail to disclose knowledge or suspicion of money
laundering that came to them in the course of business. The required disclosure is
made to the National Crime Agency as a suspicious activity report. Suspicion is a
lower bar than belief: it requires a possibility, more than fanciful, that the
relevant facts exist. The report should state what is known, what is suspected
and the grounds for the suspicion, distinguishing clearly between the two. Where
consent is sought to proceed with a transaction, this must be stated as a defence
against money laundering request.`,
		},
		{
			ID:    "reg_nca_sar_guidance",
			Title: "Guidance: NCA SAR narrative quality",
			Kind:  "guidance",
			Tags:  []string{"nca", "narrative", "glossary codes", "quality"},
			Content: `NCA guidance on suspicious activity report quality asks reporters to
write narratives that answer who, what, where, when and why. Identify the subject
fully, state the activity observed with dates, values and counterparties, and
explain why the activity gives rise to suspicion. Use the relevant glossary codes.
Avoid unexplained internal jargon and do not include the fact that a SAR has been
or will be made in customer-facing records. A good narrative is self-contained:
an investigator with no access to the reporter's systems should understand the
suspicion from the narrative alone.`,
		},
		{
			ID:    "reg_jmlsg_monitoring",
			Title: "Guidance: JMLSG ongoing monitoring expectations",
			Kind:  "guidance",
			Tags:  []string{"jmlsg", "monitoring", "expected activity", "profile"},
			Content: `JMLSG guidance expects firms to monitor transactions against the
expected activity of the customer established at onboarding. Material deviation
from expected values, volumes, counterparties or geographies should prompt
review. A customer whose throughput substantially exceeds declared income or
turnover without explanation is a standard trigger. Monitoring outcomes,
including the decision to report or not to report, should be documented with
reasons, and records retained for five years.`,
		},
		{
			ID:    "reg_fatf_high_risk",
			Title: "Guidance: FATF high-risk and monitored jurisdictions",
			Kind:  "guidance",
			Tags:  []string{"fatf", "jurisdiction", "call for action", "edd"},
			Content: `The FATF identifies jurisdictions with strategic anti-money-laundering
deficiencies. For jurisdictions subject to a call for action, enhanced due
diligence is mandatory and, in prescribed cases, counter-measures apply.
Transactions connected to these jurisdictions warrant close scrutiny of purpose
and counterparties. The lists are updated at each FATF plenary; screening should
use current lists and note the list status of each jurisdiction at the time of
the activity under review.`,
		},
		{
			ID:    "reg_pep_edd",
			Title: "Guidance: politically exposed persons and EDD",
			Kind:  "guidance",
			Tags:  []string{"pep", "edd", "source of wealth", "senior management"},
			Content: `A politically exposed person is an individual entrusted with prominent
public functions, together with family members and known close associates.
Business relationships with PEPs require senior management approval, measures to
establish source of wealth and source of funds, and enhanced ongoing monitoring.
Activity inconsistent with the established source of wealth of a PEP customer is
a strong ground for suspicion and should be described with reference to the due
diligence already held.`,
		},
	}
}
