package usecase

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"aml-triage/internal/domain"
)

// ErrTooFewEntities is returned when a transaction does not name two
// counterparties.
var ErrTooFewEntities = newError(ErrorNormalizationFailed, "too_few_entities", errors.New("at least two entities are required for the transaction"))

// EntityEnricher gathers public search snippets and one sentiment reading for
// the counterparties of a transaction.
type EntityEnricher struct {
	search    Searcher
	sentiment SentimentClassifier
	logger    *slog.Logger
}

func NewEntityEnricher(s Searcher, c SentimentClassifier, logger *slog.Logger) (*EntityEnricher, error) {
	if s == nil {
		return nil, errors.New("usecase: searcher must not be nil")
	}
	if c == nil {
		return nil, errors.New("usecase: sentiment classifier must not be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &EntityEnricher{search: s, sentiment: c, logger: logger}, nil
}

// Enrich searches each entity, then classifies the union of all snippets once.
// Every returned entry shares the combined result list and the sentiment.
func (e *EntityEnricher) Enrich(ctx context.Context, tx domain.Transaction) ([]domain.EntityEnrichment, error) {
	entities := tx.Entities()
	if len(entities) < 2 {
		return nil, ErrTooFewEntities
	}

	combined := make([]domain.SearchSnippet, 0)
	for _, name := range entities {
		combined = append(combined, e.searchEntity(ctx, name)...)
	}

	snippets := make([]string, 0, len(combined))
	for _, r := range combined {
		snippets = append(snippets, r.Snippet)
	}
	text := strings.Join(snippets, " ")

	sentiment := domain.Sentiment{NoData: true}
	if strings.TrimSpace(text) != "" {
		scores, err := e.sentiment.Classify(ctx, text)
		if err != nil {
			return nil, newError(ErrorUpstream, "sentiment_error", err)
		}
		sentiment = domain.Sentiment{Scores: scores}
	}

	out := make([]domain.EntityEnrichment, 0, len(entities))
	for _, name := range entities {
		out = append(out, domain.EntityEnrichment{
			EntityName:    name,
			SearchResults: combined,
			Sentiment:     sentiment,
		})
	}
	return out, nil
}

// searchEntity never fails: an unavailable search or an empty result yields
// the placeholder snippet.
func (e *EntityEnricher) searchEntity(ctx context.Context, name string) []domain.SearchSnippet {
	e.logger.DebugContext(ctx, "searching entity", "entity", name)
	results, err := e.search.Search(ctx, name)
	if err != nil {
		e.logger.WarnContext(ctx, "web search unavailable", "entity", name, "err", err)
		results = nil
	}
	if len(results) == 0 {
		return []domain.SearchSnippet{{Snippet: domain.NoDataAvailable}}
	}
	return results
}
