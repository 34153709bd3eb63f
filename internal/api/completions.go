package api

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/querychat/querychat/internal/auth"
	"github.com/querychat/querychat/internal/chat"
	"github.com/querychat/querychat/internal/config"
)

type chatCompletionRequest struct {
	Model    string         `json:"model"`
	Messages []chat.Message `json:"messages"`
	Stream   bool           `json:"stream"`
}

type completionMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type completionChoice struct {
	Index        int               `json:"index"`
	Message      completionMessage `json:"message"`
	FinishReason string            `json:"finish_reason"`
}

type completionUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

type visualizationPayload struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Type        string `json:"type"`
	ImageBase64 string `json:"image_base64"`
	ImagePath   string `json:"image_path,omitempty"`
}

type chatCompletion struct {
	ID             string                 `json:"id"`
	Object         string                 `json:"object"`
	Created        int64                  `json:"created"`
	Model          string                 `json:"model"`
	Choices        []completionChoice     `json:"choices"`
	Usage          completionUsage        `json:"usage"`
	Visualizations []visualizationPayload `json:"visualizations"`
}

type chunkDelta struct {
	Role    string `json:"role,omitempty"`
	Content string `json:"content,omitempty"`
}

type chunkChoice struct {
	Delta        chunkDelta `json:"delta"`
	Index        int        `json:"index"`
	FinishReason *string    `json:"finish_reason,omitempty"`
}

type chatCompletionChunk struct {
	ID      string        `json:"id"`
	Object  string        `json:"object"`
	Created int64         `json:"created"`
	Model   string        `json:"model"`
	Choices []chunkChoice `json:"choices"`
}

type modelEntry struct {
	ID      string `json:"id"`
	Object  string `json:"object"`
	Created int64  `json:"created"`
	OwnedBy string `json:"owned_by"`
}

func handleListModels(cfg config.Config, deps Dependencies, w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"object": "list",
		"data": []modelEntry{{
			ID:      cfg.Chat.ModelID,
			Object:  "model",
			Created: deps.Now().Unix(),
			OwnedBy: cfg.Chat.ModelOwner,
		}},
	})
}

func handleChatCompletions(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.Chat == nil {
		writeError(w, http.StatusNotImplemented, "chat is not configured")
		return
	}

	var req chatCompletionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid chat completion request body: "+err.Error())
		return
	}

	chatReq := chat.Request{Model: req.Model, Messages: req.Messages}
	if identity, ok := auth.IdentityFromContext(r.Context()); ok {
		chatReq.CallerID = identity.CallerID
	}
	resp, err := deps.Chat.Handle(r.Context(), chatReq)
	if err != nil {
		if deps.Logger != nil {
			deps.Logger.ErrorContext(r.Context(), "chat completion failed", slog.Any("error", err))
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	id := "chatcmpl-" + deps.NewID()
	created := deps.Now().Unix()
	if req.Stream {
		streamCompletion(deps, w, r, id, created, req.Model, resp.Content)
		return
	}

	visualizations := make([]visualizationPayload, 0, len(resp.Visualizations))
	for _, viz := range resp.Visualizations {
		visualizations = append(visualizations, visualizationPayload{
			Title:       viz.Title,
			Description: viz.Description,
			Type:        viz.Type,
			ImageBase64: base64.StdEncoding.EncodeToString(viz.Image),
			ImagePath:   viz.Location,
		})
	}
	writeJSON(w, http.StatusOK, chatCompletion{
		ID:      id,
		Object:  "chat.completion",
		Created: created,
		Model:   req.Model,
		Choices: []completionChoice{{
			Index:        0,
			Message:      completionMessage{Role: chat.RoleAssistant, Content: resp.Content},
			FinishReason: "stop",
		}},
		Usage:          completionUsage{},
		Visualizations: visualizations,
	})
}

// streamCompletion emits the already composed answer as a role chunk, one
// content chunk, a stop chunk and the [DONE] sentinel.
func streamCompletion(deps Dependencies, w http.ResponseWriter, r *http.Request, id string, created int64, model, content string) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	stop := "stop"
	chunk := func(choice chunkChoice) chatCompletionChunk {
		return chatCompletionChunk{ID: id, Object: "chat.completion.chunk", Created: created, Model: model, Choices: []chunkChoice{choice}}
	}
	events := []any{
		chunk(chunkChoice{Delta: chunkDelta{Role: chat.RoleAssistant}}),
		chunk(chunkChoice{Delta: chunkDelta{Content: content}}),
		chunk(chunkChoice{Delta: chunkDelta{}, FinishReason: &stop}),
	}

	controller := http.NewResponseController(w)
	for _, event := range events {
		if err := writeEvent(w, event); err != nil {
			if deps.Logger != nil {
				deps.Logger.WarnContext(r.Context(), "stream write failed", slog.Any("error", err))
			}
			return
		}
		_ = controller.Flush()
	}
	_, _ = io.WriteString(w, "data: [DONE]\n\n")
	_ = controller.Flush()
}

func writeEvent(w io.Writer, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "data: %s\n\n", data)
	return err
}

func newID() string {
	return uuid.NewString()
}
