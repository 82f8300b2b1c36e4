// Package app assembles the assessment service from configuration. Every
// entry point (Lambda, local server, CLI) builds through here.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awsssm "github.com/aws/aws-sdk-go-v2/service/ssm"

	"aml-triage/internal/config"
	"aml-triage/internal/integrations/openai"
	"aml-triage/internal/integrations/paramstore"
	"aml-triage/internal/integrations/search"
	"aml-triage/internal/integrations/sentiment"
	"aml-triage/internal/rules"
	"aml-triage/internal/usecase"
)

// NewParamStore returns an SSM-backed getter when cfg names a parameter
// prefix, and nil otherwise.
func NewParamStore(ctx context.Context, cfg config.Config) (paramstore.Getter, error) {
	if cfg.ParamPrefix == "" {
		return nil, nil
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}
	client, err := paramstore.New(awsssm.NewFromConfig(awsCfg))
	if err != nil {
		return nil, fmt.Errorf("create SSM client: %w", err)
	}
	return client, nil
}

// NewService wires the integrations and rules source into an
// AssessmentService. params may be nil when static keys are configured.
func NewService(cfg config.Config, params paramstore.Getter, logger *slog.Logger) (*usecase.AssessmentService, error) {
	if logger == nil {
		logger = slog.Default()
	}

	llmOpts := []openai.Option{
		openai.WithBaseURL(cfg.LLM.BaseURL),
		openai.WithHTTPClient(&http.Client{Timeout: cfg.LLM.Timeout}),
	}
	if cfg.LLM.APIKey != "" {
		llmOpts = append(llmOpts, openai.WithAPIKey(cfg.LLM.APIKey))
	}
	llm, err := openai.NewClient(params, cfg.ParamPrefix, llmOpts...)
	if err != nil {
		return nil, fmt.Errorf("create LLM client: %w", err)
	}

	searcher := search.NewClient(
		search.WithBaseURL(cfg.Search.BaseURL),
		search.WithHTTPClient(&http.Client{Timeout: cfg.Search.Timeout}),
	)

	sentimentOpts := []sentiment.Option{
		sentiment.WithBaseURL(cfg.Sentiment.BaseURL),
		sentiment.WithModel(cfg.Sentiment.Model),
		sentiment.WithHTTPClient(&http.Client{Timeout: cfg.Sentiment.Timeout}),
	}
	if cfg.Sentiment.APIKey != "" {
		sentimentOpts = append(sentimentOpts, sentiment.WithAPIKey(cfg.Sentiment.APIKey))
	}
	classifier, err := sentiment.NewClient(params, cfg.ParamPrefix, sentimentOpts...)
	if err != nil {
		return nil, fmt.Errorf("create sentiment client: %w", err)
	}

	svc, err := usecase.NewAssessmentService(usecase.Dependencies{
		LLM:       llm,
		Model:     cfg.LLM.Model,
		Search:    searcher,
		Sentiment: classifier,
		Rules:     rulesStore(cfg),
		Logger:    logger,
	})
	if err != nil {
		return nil, fmt.Errorf("create assessment service: %w", err)
	}
	return svc, nil
}

func rulesStore(cfg config.Config) *rules.Store {
	if cfg.RulesPath != "" {
		return rules.NewFileStore(cfg.RulesPath)
	}
	return rules.NewDefaultStore()
}
