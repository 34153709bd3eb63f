// Package nl2sql turns a natural language question into an executed SQL
// query: one generated attempt, at most one repaired attempt, and a
// validation verdict when both fail.
package nl2sql

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/querychat/querychat/internal/engine"
	"github.com/querychat/querychat/internal/observability"
	"github.com/querychat/querychat/internal/oracle"
	"github.com/querychat/querychat/internal/telemetry"
)

// Executor runs one read query.
type Executor interface {
	Execute(ctx context.Context, sql string) (engine.Result, error)
}

// Attempt records one execution. Err is nil exactly when the attempt succeeded.
type Attempt struct {
	Number int
	SQL    string
	Err    error
}

type Result struct {
	SQL      string
	Data     engine.Result
	Attempts []Attempt
}

type Options struct {
	// Dialect names the database family in the generation prompt.
	Dialect string
	Logger  *slog.Logger
}

type Pipeline struct {
	oracle   oracle.Oracle
	executor Executor
	dialect  string
	logger   *slog.Logger
	tracer   trace.Tracer
}

func New(o oracle.Oracle, executor Executor, opts Options) *Pipeline {
	return &Pipeline{
		oracle:   o,
		executor: executor,
		dialect:  opts.Dialect,
		logger:   observability.Component(opts.Logger, "nl2sql"),
		tracer:   telemetry.Tracer("nl2sql"),
	}
}

// Run generates SQL for question, executes it and repairs it at most once.
// Failures are *ExecutionError or *ValidationError.
func (p *Pipeline) Run(ctx context.Context, schema engine.Schema, question string) (Result, error) {
	start := time.Now()
	defer func() { observability.ObserveQueryPipeline(time.Since(start)) }()

	ctx, span := p.tracer.Start(ctx, "nl2sql.run")
	defer span.End()

	generated, err := p.oracle.Complete(ctx, generationPrompt(p.dialect, schema, question))
	if err != nil {
		// an empty query still goes to the engine; its error drives the repair
		p.logger.ErrorContext(ctx, "sql generation failed", slog.Any("error", err))
		generated = ""
	}
	sql := CleanSQL(generated)

	data, first := p.execute(ctx, 1, sql)
	if first.Err == nil {
		span.SetAttributes(attribute.Int("attempts", 1))
		return Result{SQL: sql, Data: data, Attempts: []Attempt{first}}, nil
	}
	p.logger.WarnContext(ctx, "sql execution failed, requesting repair",
		slog.String("sql", sql),
		slog.Any("error", first.Err),
	)

	correction, err := p.oracle.Complete(ctx, repairPrompt(schema, question, sql, first.Err.Error()))
	if err != nil {
		p.logger.ErrorContext(ctx, "sql repair failed", slog.Any("error", err))
		correction = ""
	}
	// the correction is executed as returned, without CleanSQL
	correction = strings.TrimSpace(correction)
	if correction == "" {
		observability.ObserveQueryRepair("empty")
		err := &ExecutionError{Attempt: 1, SQL: sql, Err: first.Err}
		span.SetStatus(codes.Error, err.Error())
		return Result{}, err
	}

	data, second := p.execute(ctx, 2, correction)
	if second.Err == nil {
		observability.ObserveQueryRepair("recovered")
		span.SetAttributes(attribute.Int("attempts", 2))
		return Result{SQL: correction, Data: data, Attempts: []Attempt{first, second}}, nil
	}
	observability.ObserveQueryRepair("failed")

	verdict := p.Validate(ctx, correction)
	validationErr := &ValidationError{SQL: correction, Verdict: verdict, Err: second.Err}
	p.logger.WarnContext(ctx, "repaired sql failed",
		slog.String("sql", correction),
		slog.String("risk_level", verdict.RiskLevel),
		slog.Any("error", second.Err),
	)
	span.SetStatus(codes.Error, validationErr.Error())
	return Result{}, validationErr
}

func (p *Pipeline) execute(ctx context.Context, number int, sql string) (engine.Result, Attempt) {
	ctx, span := p.tracer.Start(ctx, "nl2sql.attempt", trace.WithAttributes(
		attribute.Int("attempt", number),
	))
	defer span.End()

	attempt := Attempt{Number: number, SQL: sql}
	data, err := p.executor.Execute(ctx, sql)
	observability.ObserveQueryAttempt(number, err)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		attempt.Err = err
		return engine.Result{}, attempt
	}
	span.SetAttributes(attribute.Int("rows", len(data.Rows)))
	return data, attempt
}
