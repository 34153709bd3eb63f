// Package chat drives one chat turn from the incoming message to the
// composed answer: intent routing, the SQL pipeline or a casual reply,
// formatting, and optional charts.
package chat

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/querychat/querychat/internal/charts"
	"github.com/querychat/querychat/internal/engine"
	"github.com/querychat/querychat/internal/format"
	"github.com/querychat/querychat/internal/intent"
	"github.com/querychat/querychat/internal/nl2sql"
	"github.com/querychat/querychat/internal/observability"
	"github.com/querychat/querychat/internal/oracle"
	"github.com/querychat/querychat/internal/storage"
	"github.com/querychat/querychat/internal/telemetry"
)

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

type State string

const (
	StateReceived     State = "RECEIVED"
	StateClassified   State = "CLASSIFIED"
	StateSQLPipeline  State = "SQL_PIPELINE"
	StateChatFallback State = "CHAT_FALLBACK"
	StateFormatted    State = "FORMATTED"
	StateVisualized   State = "VISUALIZED"
	StateResponded    State = "RESPONDED"
)

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type Request struct {
	Model    string
	Messages []Message
	// CallerID is the authenticated caller, empty when auth is off.
	CallerID string
}

type Visualization struct {
	Title       string
	Description string
	Type        string
	Image       []byte
	// Location is where the image was stored, empty when persistence failed.
	Location string
}

type Response struct {
	Intent         intent.Intent
	Content        string
	SQL            string
	SessionID      string
	Visualizations []Visualization
}

type Options struct {
	// Advisor and Store may be nil, which turns charts off.
	Advisor *charts.Advisor
	Store   storage.ObjectStore
	Logger  *slog.Logger
	// NewSessionID defaults to a random UUID.
	NewSessionID func() string
}

type Service struct {
	router    *intent.Router
	engine    engine.Engine
	pipeline  *nl2sql.Pipeline
	oracle    oracle.Oracle
	advisor   *charts.Advisor
	store     storage.ObjectStore
	logger    *slog.Logger
	tracer    trace.Tracer
	sessionID func() string
}

func NewService(router *intent.Router, e engine.Engine, pipeline *nl2sql.Pipeline, o oracle.Oracle, opts Options) *Service {
	sessionID := opts.NewSessionID
	if sessionID == nil {
		sessionID = func() string { return uuid.NewString() }
	}
	return &Service{
		router:    router,
		engine:    e,
		pipeline:  pipeline,
		oracle:    o,
		advisor:   opts.Advisor,
		store:     opts.Store,
		logger:    observability.Component(opts.Logger, "chat"),
		tracer:    telemetry.Tracer("chat"),
		sessionID: sessionID,
	}
}

// Handle answers the most recent user message. Errors come only from the
// SQL path; chart failures are logged and dropped.
func (s *Service) Handle(ctx context.Context, req Request) (Response, error) {
	ctx, span := s.tracer.Start(ctx, "chat.handle")
	defer span.End()

	message := LastUserMessage(req.Messages)
	s.transition(ctx, StateReceived, slog.Int("messages", len(req.Messages)))

	label := s.router.Classify(ctx, message)
	span.SetAttributes(attribute.String("intent", string(label)))
	s.transition(ctx, StateClassified, slog.String("intent", string(label)))

	if label != intent.SQL {
		s.transition(ctx, StateChatFallback)
		content := s.reply(ctx, message)
		s.transition(ctx, StateResponded)
		return Response{Intent: intent.Chat, Content: content, Visualizations: []Visualization{}}, nil
	}

	s.transition(ctx, StateSQLPipeline)
	schema, err := engine.LoadSchema(ctx, s.engine)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return Response{}, fmt.Errorf("load schema: %w", err)
	}
	result, err := s.pipeline.Run(ctx, schema, message)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return Response{}, err
	}

	records := result.Data.Records()
	table := format.Table(result.Data.Columns, records)
	summary := s.pipeline.Summarize(ctx, message, records)
	response := Response{
		Intent:         intent.SQL,
		Content:        format.Answer(result.SQL, table, summary),
		SQL:            result.SQL,
		SessionID:      s.sessionID(),
		Visualizations: []Visualization{},
	}
	s.transition(ctx, StateFormatted,
		slog.Int("rows", len(result.Data.Rows)),
		slog.Int("attempts", len(result.Attempts)),
	)

	if s.advisor != nil && s.router.WantsVisualization(ctx, message) {
		caller := storage.CallerID(req.CallerID, req.Model)
		response.Visualizations = s.visualize(ctx, caller, response.SessionID, result.Data)
		s.transition(ctx, StateVisualized, slog.Int("charts", len(response.Visualizations)))
	}

	s.transition(ctx, StateResponded)
	return response, nil
}

func (s *Service) visualize(ctx context.Context, caller, session string, data engine.Result) []Visualization {
	report := s.advisor.Recommend(ctx, data)
	if report.Err != nil {
		s.logger.WarnContext(ctx, "visualization skipped", slog.Any("error", report.Err))
	}
	out := make([]Visualization, 0, len(report.Visualizations))
	for i, chart := range report.Visualizations {
		viz := Visualization{
			Title:       chart.Spec.Title,
			Description: chart.Spec.Description,
			Type:        string(chart.Kind),
			Image:       chart.Image,
		}
		viz.Location = s.persist(ctx, caller, session, i+1, chart)
		out = append(out, viz)
	}
	return out
}

func (s *Service) persist(ctx context.Context, caller, session string, index int, chart charts.Visualization) string {
	if s.store == nil {
		return ""
	}
	key, err := storage.BuildChartKey(caller, session, index, chart.Spec.Title)
	if err != nil {
		s.logger.ErrorContext(ctx, "chart key rejected", slog.Any("error", err))
		return ""
	}
	info, err := storage.PutBytes(ctx, s.store, key, chart.Image, storage.PutOptions{
		ContentType: storage.ContentTypePNG,
		Metadata: map[string]string{
			"caller":     caller,
			"session":    session,
			"chart-type": chart.Spec.Type,
		},
	})
	if err != nil {
		s.logger.ErrorContext(ctx, "chart persistence failed",
			slog.String("key", key),
			slog.Any("error", err),
		)
		return ""
	}
	return info.Location
}

func (s *Service) transition(ctx context.Context, state State, attrs ...slog.Attr) {
	attrs = append([]slog.Attr{slog.String("state", string(state))}, attrs...)
	s.logger.LogAttrs(ctx, slog.LevelDebug, "chat state", attrs...)
}

// LastUserMessage returns the content of the most recent user turn, or "".
func LastUserMessage(messages []Message) string {
	for i := len(messages) - 1; i >= 0; i-- {
		if strings.EqualFold(messages[i].Role, RoleUser) {
			return messages[i].Content
		}
	}
	return ""
}
