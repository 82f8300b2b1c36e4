package usecase

import (
	"context"
	"errors"
	"log/slog"

	"aml-triage/internal/domain"
	"aml-triage/internal/ingest"
)

type LLMClient interface {
	Chat(ctx context.Context, model string, messages []domain.ChatMessage) (string, error)
}

type Searcher interface {
	Search(ctx context.Context, query string) ([]domain.SearchSnippet, error)
}

type SentimentClassifier interface {
	Classify(ctx context.Context, text string) ([]domain.SentimentScore, error)
}

type RulesLoader interface {
	Load(ctx context.Context) (string, error)
}

// Dependencies are the collaborators of an AssessmentService.
type Dependencies struct {
	LLM       LLMClient
	Model     string
	Search    Searcher
	Sentiment SentimentClassifier
	Rules     RulesLoader
	Logger    *slog.Logger
}

// AssessmentService drives an upload through normalization, enrichment,
// assessment and projection.
type AssessmentService struct {
	normalizer *TransactionNormalizer
	enricher   *EntityEnricher
	assessor   *RiskAssessor
	logger     *slog.Logger
}

type AssessInput struct {
	File *ingest.Upload
}

type AssessOutput struct {
	Kind        ingest.Kind
	Assessments []domain.TransactionAssessment
}

func NewAssessmentService(d Dependencies) (*AssessmentService, error) {
	logger := d.Logger
	if logger == nil {
		logger = slog.Default()
	}
	query, err := NewQueryNormalizer(d.LLM, d.Model, logger)
	if err != nil {
		return nil, err
	}
	normalizer, err := NewTransactionNormalizer(query)
	if err != nil {
		return nil, err
	}
	enricher, err := NewEntityEnricher(d.Search, d.Sentiment, logger)
	if err != nil {
		return nil, err
	}
	assessor, err := NewRiskAssessor(query, d.Rules)
	if err != nil {
		return nil, err
	}
	return &AssessmentService{
		normalizer: normalizer,
		enricher:   enricher,
		assessor:   assessor,
		logger:     logger,
	}, nil
}

// Assess processes every transaction of the upload in order. The first
// failure aborts the batch.
func (s *AssessmentService) Assess(ctx context.Context, in AssessInput) (AssessOutput, error) {
	src, err := ingest.Classify(in.File)
	if err != nil {
		if errors.Is(err, ingest.ErrNoInput) {
			return AssessOutput{}, newError(ErrorNoInput, "no_input_provided", err)
		}
		return AssessOutput{}, newError(ErrorInvalidInput, "csv_parse_error", err)
	}
	if src.Len() == 0 {
		return AssessOutput{}, newError(ErrorInternal, "no_structured_data", errors.New("No structured data found"))
	}
	s.logger.InfoContext(ctx, "upload classified", "kind", src.Kind.String(), "transactions", src.Len())

	txs, err := s.normalize(ctx, src)
	if err != nil {
		return AssessOutput{}, err
	}

	out := AssessOutput{Kind: src.Kind, Assessments: make([]domain.TransactionAssessment, 0, len(txs))}
	for _, tx := range txs {
		a, err := s.assessOne(ctx, tx)
		if err != nil {
			return AssessOutput{}, err
		}
		out.Assessments = append(out.Assessments, a)
	}
	return out, nil
}

func (s *AssessmentService) normalize(ctx context.Context, src ingest.Source) ([]domain.Transaction, error) {
	txs := make([]domain.Transaction, 0, src.Len())
	if src.Kind == ingest.KindCSV {
		for _, row := range src.Rows {
			tx, err := s.normalizer.NormalizeRow(ctx, row)
			if err != nil {
				return nil, err
			}
			txs = append(txs, tx)
		}
		return txs, nil
	}
	for _, chunk := range src.Chunks {
		tx, err := s.normalizer.NormalizeChunk(ctx, chunk)
		if err != nil {
			return nil, err
		}
		txs = append(txs, tx)
	}
	return txs, nil
}

func (s *AssessmentService) assessOne(ctx context.Context, tx domain.Transaction) (domain.TransactionAssessment, error) {
	logger := s.logger.With("transaction_id", tx.TransactionID)

	enrichments, err := s.enricher.Enrich(ctx, tx)
	if err != nil {
		return domain.TransactionAssessment{}, err
	}
	report, err := s.assessor.Assess(ctx, tx, enrichments)
	if err != nil {
		return domain.TransactionAssessment{}, err
	}
	a, err := Project(report)
	if err != nil {
		return domain.TransactionAssessment{}, err
	}
	logger.InfoContext(ctx, "transaction assessed", "risk_score", a.RiskScore)
	return a, nil
}
