package chat

import (
	"context"
	"log/slog"
	"strings"
)

const (
	ReplyMarker = "You are a helpful educational assistant"
	Apology     = "I apologize, but I'm having trouble processing your request. Could you please try again?"
)

func (s *Service) reply(ctx context.Context, message string) string {
	answer, err := s.oracle.Complete(ctx, replyPrompt(message))
	if err != nil {
		s.logger.ErrorContext(ctx, "chat reply failed", slog.Any("error", err))
		return Apology
	}
	return strings.TrimSpace(answer)
}

func replyPrompt(message string) string {
	return ReplyMarker + ". Respond professionally and engagingly to:\n\n" + message + "\n"
}
