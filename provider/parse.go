package provider

import (
	"strings"

	"sardraft-backend/models"
)

// Reasoning is the structured self-report the model appends to a narrative.
type Reasoning struct {
	DataSources []string
	Typologies  []string
	Indicators  []models.RiskIndicator
	Confidence  string
	Limitations []string
}

// Section headers the system prompt instructs the model to emit after the
// narrative body.
const (
	sectionDataSources = "DATA SOURCES USED"
	sectionTypologies  = "RULES AND TYPOLOGIES MATCHED"
	sectionIndicators  = "RISK INDICATORS"
	sectionConfidence  = "CONFIDENCE ASSESSMENT"
	sectionLimitations = "LIMITATIONS"
)

// ParseReasoning extracts the reasoning sections from a completion. Missing
// sections yield empty fields; the narrative body itself is left untouched.
func ParseReasoning(text string) Reasoning {
	var r Reasoning
	section := ""

	for _, raw := range strings.Split(text, "\n") {
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}

		upper := strings.ToUpper(strings.Trim(line, "#*: "))
		switch {
		case strings.HasPrefix(upper, sectionDataSources):
			section = sectionDataSources
			continue
		case strings.HasPrefix(upper, sectionTypologies):
			section = sectionTypologies
			continue
		case strings.HasPrefix(upper, sectionIndicators):
			section = sectionIndicators
			continue
		case strings.HasPrefix(upper, sectionConfidence):
			section = sectionConfidence
			continue
		case strings.HasPrefix(upper, sectionLimitations):
			section = sectionLimitations
			continue
		}

		switch section {
		case sectionDataSources:
			if item, ok := bulletItem(line); ok {
				r.DataSources = append(r.DataSources, item)
			}
		case sectionTypologies:
			if item, ok := bulletItem(line); ok {
				r.Typologies = append(r.Typologies, item)
			}
		case sectionIndicators:
			if item, ok := bulletItem(line); ok {
				r.Indicators = append(r.Indicators, parseIndicator(item))
			}
		case sectionConfidence:
			if r.Confidence == "" {
				r.Confidence = confidenceLevel(line)
			}
		case sectionLimitations:
			if item, ok := bulletItem(line); ok {
				r.Limitations = append(r.Limitations, item)
			}
		}
	}
	return r
}

func bulletItem(line string) (string, bool) {
	for _, prefix := range []string{"- ", "* ", "• "} {
		if strings.HasPrefix(line, prefix) {
			return strings.TrimSpace(strings.TrimPrefix(line, prefix)), true
		}
	}
	return "", false
}

// parseIndicator splits "HIGH VALUE: total exceeds threshold" into a kind
// and description. A line without a colon becomes a kind with no detail.
func parseIndicator(item string) models.RiskIndicator {
	kind, desc, found := strings.Cut(item, ":")
	ind := models.RiskIndicator{
		Kind:     strings.ToUpper(strings.TrimSpace(kind)),
		Severity: "MEDIUM",
	}
	if found {
		ind.Description = strings.TrimSpace(desc)
	}
	return ind
}

func confidenceLevel(line string) string {
	upper := strings.ToUpper(line)
	for _, level := range []string{"HIGH", "MEDIUM", "LOW"} {
		if strings.Contains(upper, level) {
			return level
		}
	}
	return ""
}
