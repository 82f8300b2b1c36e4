package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"aml-triage/internal/domain"
)

var (
	fencePattern  = regexp.MustCompile("^```(?:json)?\\n|\\n```$")
	objectPattern = regexp.MustCompile(`(?s)\{.*\}`)
)

// QueryNormalizer sends a prompt to the model and turns the reply into a JSON
// object.
type QueryNormalizer struct {
	llm    LLMClient
	model  string
	logger *slog.Logger
}

func NewQueryNormalizer(llm LLMClient, model string, logger *slog.Logger) (*QueryNormalizer, error) {
	if llm == nil {
		return nil, errors.New("usecase: llm client must not be nil")
	}
	model = strings.TrimSpace(model)
	if model == "" {
		return nil, errors.New("usecase: model must not be empty")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &QueryNormalizer{llm: llm, model: model, logger: logger}, nil
}

// Ask sends prompt as a single user message. purpose only labels the logs.
func (q *QueryNormalizer) Ask(ctx context.Context, prompt, purpose string) (map[string]any, error) {
	q.logger.InfoContext(ctx, "asking model", "purpose", purpose, "model", q.model)
	q.logger.DebugContext(ctx, "model prompt", "purpose", purpose, "prompt", prompt)

	raw, err := q.llm.Chat(ctx, q.model, []domain.ChatMessage{{Role: "user", Content: prompt}})
	if err != nil {
		return nil, newError(ErrorUpstream, "llm_error", err)
	}
	q.logger.DebugContext(ctx, "raw model response", "purpose", purpose, "response", raw)

	cleaned := cleanModelResponse(raw)
	out, err := decodeObject(cleaned)
	if err != nil {
		q.logger.WarnContext(ctx, "model response is not a JSON object", "purpose", purpose, "cleaned", cleaned, "err", err)
		return nil, newError(ErrorInvalidModelResponse, "invalid_model_response", err)
	}
	return out, nil
}

// cleanModelResponse removes a surrounding markdown fence and keeps the span
// from the first '{' to the last '}'.
func cleanModelResponse(raw string) string {
	cleaned := fencePattern.ReplaceAllString(strings.TrimSpace(raw), "")
	if m := objectPattern.FindString(cleaned); m != "" {
		return m
	}
	return cleaned
}

// decodeObject decodes s as a JSON object. A JSON string holding an encoded
// object is decoded a second time.
func decodeObject(s string) (map[string]any, error) {
	var v any
	if err := json.Unmarshal([]byte(s), &v); err != nil {
		return nil, fmt.Errorf("decode model response: %w", err)
	}
	switch t := v.(type) {
	case map[string]any:
		return t, nil
	case string:
		var inner map[string]any
		if err := json.Unmarshal([]byte(t), &inner); err != nil {
			return nil, fmt.Errorf("decode nested model response: %w", err)
		}
		if inner == nil {
			return nil, errors.New("nested model response is not a JSON object")
		}
		return inner, nil
	default:
		return nil, fmt.Errorf("model response is %T, not a JSON object", v)
	}
}
