// Package provider abstracts the LLM backend used for narrative generation.
package provider

import (
	"context"
	"fmt"

	"sardraft-backend/models"
)

// Request carries everything the model needs for one generation call.
type Request struct {
	SystemPrompt string
	Prompt       string
	Context      string
	MaxTokens    int
}

// Completion is the parsed result of a generation call.
type Completion struct {
	Text           string
	RiskIndicators []models.RiskIndicator
	Typologies     []string
	Confidence     string
	DataSources    []string
	Limitations    []string
	Provider       string
	Model          string
	TokensUsed     int
	LatencyMS      int64
}

// Error classifies a provider failure. Transient errors (rate limits,
// upstream 5xx) may be retried; fatal errors may not.
type Error struct {
	Transient bool
	Reason    string
	Err       error
}

func (e *Error) Error() string {
	kind := "fatal"
	if e.Transient {
		kind = "transient"
	}
	if e.Err != nil {
		return fmt.Sprintf("provider error (%s): %s: %v", kind, e.Reason, e.Err)
	}
	return fmt.Sprintf("provider error (%s): %s", kind, e.Reason)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Provider generates a SAR narrative from a prepared request.
type Provider interface {
	Name() string
	Complete(ctx context.Context, req Request) (*Completion, error)
}
