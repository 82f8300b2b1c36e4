package usecase

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"aml-triage/internal/domain"
)

// TransactionNormalizer converts raw rows and free-text chunks into
// canonical transactions with the help of the model.
type TransactionNormalizer struct {
	query *QueryNormalizer
}

func NewTransactionNormalizer(q *QueryNormalizer) (*TransactionNormalizer, error) {
	if q == nil {
		return nil, errors.New("usecase: query normalizer must not be nil")
	}
	return &TransactionNormalizer{query: q}, nil
}

// NormalizeRow converts one CSV row.
func (n *TransactionNormalizer) NormalizeRow(ctx context.Context, row domain.RawRow) (domain.Transaction, error) {
	return n.convert(ctx, promptJSON(row))
}

// NormalizeChunk extracts a record from free text, then converts it like a row.
func (n *TransactionNormalizer) NormalizeChunk(ctx context.Context, chunk domain.RawChunk) (domain.Transaction, error) {
	extracted, err := n.query.Ask(ctx, buildExtractionPrompt(string(chunk)), purposeExtraction)
	if err != nil {
		return domain.Transaction{}, err
	}
	return n.convert(ctx, promptJSON(extracted))
}

func (n *TransactionNormalizer) convert(ctx context.Context, record string) (domain.Transaction, error) {
	m, err := n.query.Ask(ctx, buildConversionPrompt(record), purposeConversion)
	if err != nil {
		return domain.Transaction{}, err
	}
	tx, err := transactionFromObject(m)
	if err != nil {
		return domain.Transaction{}, newError(ErrorNormalizationFailed, "normalization_failed", err)
	}
	return tx, nil
}

// transactionFromObject assigns the canonical fields one by one. Only the
// currency has a default.
func transactionFromObject(m map[string]any) (domain.Transaction, error) {
	var (
		tx  domain.Transaction
		err error
	)
	if tx.TransactionID, err = requireString(m, "transaction_id"); err != nil {
		return domain.Transaction{}, err
	}
	if tx.Sender, err = requireString(m, "sender"); err != nil {
		return domain.Transaction{}, err
	}
	if tx.Receiver, err = requireString(m, "receiver"); err != nil {
		return domain.Transaction{}, err
	}
	if tx.Amount, err = requireNumber(m, "amount"); err != nil {
		return domain.Transaction{}, err
	}
	if tx.TransactionDetails, err = requireString(m, "transaction_details"); err != nil {
		return domain.Transaction{}, err
	}
	tx.Currency = domain.DefaultCurrency
	if v, ok := m["currency"]; ok && v != nil {
		s, ok := v.(string)
		if !ok {
			return domain.Transaction{}, fmt.Errorf("field %q must be a string, got %T", "currency", v)
		}
		if s = strings.TrimSpace(s); s != "" {
			tx.Currency = s
		}
	}
	return tx, nil
}

func requireString(m map[string]any, key string) (string, error) {
	v, ok := m[key]
	if !ok {
		return "", fmt.Errorf("missing field %q", key)
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("field %q must be a string, got %T", key, v)
	}
	return s, nil
}

// requireNumber accepts a JSON number or a string holding one.
func requireNumber(m map[string]any, key string) (float64, error) {
	v, ok := m[key]
	if !ok {
		return 0, fmt.Errorf("missing field %q", key)
	}
	switch t := v.(type) {
	case float64:
		return t, nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			return 0, fmt.Errorf("field %q is not a number: %w", key, err)
		}
		return f, nil
	default:
		return 0, fmt.Errorf("field %q must be a number, got %T", key, v)
	}
}
