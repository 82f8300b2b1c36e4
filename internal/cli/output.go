package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"aml-triage/internal/domain"
	"aml-triage/internal/usecase"
)

func writeAssessments(w io.Writer, format string, assessments []domain.TransactionAssessment) error {
	if assessments == nil {
		assessments = []domain.TransactionAssessment{}
	}
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(assessments)
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(assessments); err != nil {
			return err
		}
		return enc.Close()
	default:
		return writeText(w, assessments)
	}
}

func writeText(w io.Writer, assessments []domain.TransactionAssessment) error {
	for i, a := range assessments {
		if i > 0 {
			if _, err := fmt.Fprintln(w); err != nil {
				return err
			}
		}
		if _, err := fmt.Fprintf(w, "Transaction %v\n  entities:   %v\n  types:      %v\n  risk:       %v\n  confidence: %v\n  reason:     %v\n  evidence:   %v\n",
			a.TransactionID, entities(a.ExtractedEntities), a.EntityType, a.RiskScore, a.ConfidenceScore, a.Reason, a.SupportingEvidence); err != nil {
			return err
		}
	}
	return nil
}

func entities(v []any) string {
	if len(v) != 2 {
		return fmt.Sprint(v)
	}
	return fmt.Sprintf("%v -> %v", v[0], v[1])
}

// ErrorMessage formats err for the terminal, naming the failure code when
// the pipeline reported one.
func ErrorMessage(err error) string {
	var ue *usecase.Error
	if errors.As(err, &ue) {
		return fmt.Sprintf("Error [%s]: %v", ue.Code, err)
	}
	return fmt.Sprintf("Error: %v", err)
}
