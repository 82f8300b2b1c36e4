package usecase

import (
	"context"
	"errors"

	"aml-triage/internal/domain"
)

// RiskAssessor asks the model for a risk report on one enriched transaction.
type RiskAssessor struct {
	query *QueryNormalizer
	rules RulesLoader
}

func NewRiskAssessor(q *QueryNormalizer, rules RulesLoader) (*RiskAssessor, error) {
	if q == nil {
		return nil, errors.New("usecase: query normalizer must not be nil")
	}
	if rules == nil {
		return nil, errors.New("usecase: rules loader must not be nil")
	}
	return &RiskAssessor{query: q, rules: rules}, nil
}

// Assess loads the rules on every call and sends a single assessment prompt.
func (a *RiskAssessor) Assess(ctx context.Context, tx domain.Transaction, enrichments []domain.EntityEnrichment) (domain.RiskReport, error) {
	rulesText, err := a.rules.Load(ctx)
	if err != nil {
		return nil, newError(ErrorInternal, "rules_load_error", err)
	}

	m, err := a.query.Ask(ctx, buildAssessmentPrompt(tx.Details(), enrichments, rulesText), purposeAssessment)
	if err != nil {
		if CodeOf(err) == ErrorInvalidModelResponse {
			return nil, newError(ErrorAssessmentFailed, "invalid_ai_response", err)
		}
		return nil, err
	}
	return domain.RiskReport(m), nil
}
