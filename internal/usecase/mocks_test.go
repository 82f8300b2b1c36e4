package usecase

import (
	"context"
	"errors"

	"aml-triage/internal/domain"
)

type chatResponse struct {
	answer string
	err    error
}

type mockLLM struct {
	responses []chatResponse
	prompts   []string
	callCount int
}

func (m *mockLLM) Chat(_ context.Context, _ string, msgs []domain.ChatMessage) (string, error) {
	if len(m.responses) == 0 {
		return "", errors.New("no llm response configured")
	}
	idx := m.callCount
	if idx >= len(m.responses) {
		idx = len(m.responses) - 1
	}
	m.callCount++
	if len(msgs) > 0 {
		m.prompts = append(m.prompts, msgs[len(msgs)-1].Content)
	}
	return m.responses[idx].answer, m.responses[idx].err
}

type mockSearch struct {
	results map[string][]domain.SearchSnippet
	err     error
	queries []string
}

func (m *mockSearch) Search(_ context.Context, query string) ([]domain.SearchSnippet, error) {
	m.queries = append(m.queries, query)
	if m.err != nil {
		return nil, m.err
	}
	return m.results[query], nil
}

type mockSentiment struct {
	scores    []domain.SentimentScore
	err       error
	texts     []string
	callCount int
}

func (m *mockSentiment) Classify(_ context.Context, text string) ([]domain.SentimentScore, error) {
	m.callCount++
	m.texts = append(m.texts, text)
	return m.scores, m.err
}

type staticRules struct {
	text string
	err  error
}

func (s staticRules) Load(_ context.Context) (string, error) {
	return s.text, s.err
}

func answers(raw ...string) []chatResponse {
	out := make([]chatResponse, 0, len(raw))
	for _, r := range raw {
		out = append(out, chatResponse{answer: r})
	}
	return out
}

func newTestQuery(llm LLMClient) *QueryNormalizer {
	q, err := NewQueryNormalizer(llm, "test-model", nil)
	if err != nil {
		panic(err)
	}
	return q
}
