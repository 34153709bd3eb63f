// Package intent decides how a chat message is handled: as a database
// question or as casual chat, and whether a query result deserves a chart.
package intent

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"unicode"

	"github.com/querychat/querychat/internal/observability"
	"github.com/querychat/querychat/internal/oracle"
)

type Intent string

const (
	SQL  Intent = "SQL"
	Chat Intent = "CHAT"
)

const (
	ClassifyMarker      = "Determine the intent of the following user question"
	VisualizationMarker = "would benefit from data visualization"
)

type Router struct {
	oracle oracle.Oracle
	logger *slog.Logger
}

func NewRouter(o oracle.Oracle, logger *slog.Logger) *Router {
	return &Router{oracle: o, logger: observability.Component(logger, "intent")}
}

// Classify routes message to SQL only when the oracle's answer starts with
// the word SQL. Anything else, including an oracle error, is Chat.
func (r *Router) Classify(ctx context.Context, message string) Intent {
	answer, err := r.oracle.Complete(ctx, classifyPrompt(message))
	if err != nil {
		r.logger.ErrorContext(ctx, "intent classification failed", slog.Any("error", err))
		observability.ObserveIntent(string(Chat))
		return Chat
	}
	label := Chat
	if firstWord(strings.ToUpper(strings.TrimSpace(answer))) == string(SQL) {
		label = SQL
	}
	r.logger.DebugContext(ctx, "intent classified",
		slog.String("intent", string(label)),
		slog.String("answer", answer),
	)
	observability.ObserveIntent(string(label))
	return label
}

// WantsVisualization reports whether the oracle answered yes. Errors count as no.
func (r *Router) WantsVisualization(ctx context.Context, message string) bool {
	answer, err := r.oracle.Complete(ctx, visualizationPrompt(message))
	if err != nil {
		r.logger.WarnContext(ctx, "visualization intent failed", slog.Any("error", err))
		observability.ObserveVisualizationIntent(false)
		return false
	}
	wanted := strings.HasPrefix(strings.ToLower(strings.TrimSpace(answer)), "yes")
	observability.ObserveVisualizationIntent(wanted)
	return wanted
}

// firstWord returns the leading run of letters, so "SQL." and "SQL\n" both
// read as SQL while "SQLITE" does not.
func firstWord(answer string) string {
	end := strings.IndexFunc(answer, func(r rune) bool { return !unicode.IsLetter(r) })
	if end < 0 {
		return answer
	}
	return answer[:end]
}

func classifyPrompt(message string) string {
	return fmt.Sprintf(`You are a helpful assistant. %s.
- SQL: questions answered from the structured database (students, courses, scores, enrollments, rankings, top or bottom k values).
- CHAT: casual greetings and small talk only.

Briefly identify the intent. Respond with one word: SQL, CHAT

Question: %s
`, ClassifyMarker, message)
}

func visualizationPrompt(message string) string {
	return fmt.Sprintf(`Determine if the following user question %s.
Answer with 'yes' if visualization would add value, or 'no' if not.

User question: %q

Consider visualization appropriate for:
- Queries about trends over time
- Requests to compare multiple values
- Questions about distribution of data
- Requests for patterns or correlations
- Analysis of performance or metrics

Answer (yes/no):
`, VisualizationMarker, message)
}
