package usecase

import (
	"fmt"

	"aml-triage/internal/domain"
)

// Project maps a risk report onto the response record. Values are copied as
// the model produced them.
func Project(report domain.RiskReport) (domain.TransactionAssessment, error) {
	raw, ok := report[domain.ReportTransactionDetails]
	if !ok || raw == nil {
		return domain.TransactionAssessment{}, newError(ErrorProjectionFailed, "missing_transaction_details",
			fmt.Errorf("risk report has no %q", domain.ReportTransactionDetails))
	}
	details, ok := raw.(map[string]any)
	if !ok {
		return domain.TransactionAssessment{}, newError(ErrorProjectionFailed, "invalid_transaction_details",
			fmt.Errorf("%q is %T, not an object", domain.ReportTransactionDetails, raw))
	}

	return domain.TransactionAssessment{
		TransactionID:      details["transaction_id"],
		ExtractedEntities:  []any{details["from"], details["to"]},
		EntityType:         report[domain.ReportEntityType],
		RiskScore:          report[domain.ReportRiskRating],
		SupportingEvidence: report[domain.ReportRiskRationaleSources],
		ConfidenceScore:    report[domain.ReportConfidenceScore],
		Reason:             report[domain.ReportRiskRationale],
	}, nil
}
