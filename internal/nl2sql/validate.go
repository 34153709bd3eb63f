package nl2sql

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
)

const (
	RiskLow    = "low"
	RiskMedium = "medium"
	RiskHigh   = "high"
)

type Verdict struct {
	IsValid   bool     `json:"is_valid"`
	Issues    []string `json:"issues"`
	RiskLevel string   `json:"risk_level"`
}

// Validate asks the oracle for a safety verdict on sql. It never fails: an
// oracle error or an answer that is not the expected JSON object yields an
// invalid, high risk verdict whose single issue is that error.
func (p *Pipeline) Validate(ctx context.Context, sql string) Verdict {
	answer, err := p.oracle.Complete(ctx, validationPrompt(sql))
	if err != nil {
		p.logger.ErrorContext(ctx, "sql validation failed", slog.Any("error", err))
		return invalidVerdict(err)
	}
	verdict, err := parseVerdict(answer)
	if err != nil {
		p.logger.ErrorContext(ctx, "sql validation failed", slog.Any("error", err))
		return invalidVerdict(err)
	}
	return verdict
}

func parseVerdict(answer string) (Verdict, error) {
	var raw struct {
		IsValid   *bool    `json:"is_valid"`
		Issues    []string `json:"issues"`
		RiskLevel string   `json:"risk_level"`
	}
	if err := json.Unmarshal([]byte(strings.TrimSpace(answer)), &raw); err != nil {
		return Verdict{}, err
	}
	if raw.IsValid == nil {
		return Verdict{}, fmt.Errorf("verdict is missing is_valid")
	}
	verdict := Verdict{IsValid: *raw.IsValid, Issues: raw.Issues, RiskLevel: strings.ToLower(raw.RiskLevel)}
	if verdict.Issues == nil {
		verdict.Issues = []string{}
	}
	switch verdict.RiskLevel {
	case RiskLow, RiskMedium, RiskHigh:
	default:
		verdict.RiskLevel = RiskHigh
	}
	return verdict, nil
}

func invalidVerdict(err error) Verdict {
	return Verdict{IsValid: false, Issues: []string{err.Error()}, RiskLevel: RiskHigh}
}
