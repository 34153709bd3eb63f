package nl2sql

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
)

const SummaryUnavailable = "Unable to generate summary due to an error."

// Summarize describes records in prose for the user. Failures produce
// SummaryUnavailable instead of an error.
func (p *Pipeline) Summarize(ctx context.Context, question string, records []map[string]any) string {
	if records == nil {
		records = []map[string]any{}
	}
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		p.logger.ErrorContext(ctx, "summary generation failed", slog.Any("error", err))
		return SummaryUnavailable
	}
	answer, err := p.oracle.Complete(ctx, summaryPrompt(question, string(data)))
	if err != nil {
		p.logger.ErrorContext(ctx, "summary generation failed", slog.Any("error", err))
		return SummaryUnavailable
	}
	return strings.TrimSpace(answer)
}
