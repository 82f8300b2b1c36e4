package domain

// Keys of the risk report produced by the LLM.
const (
	ReportTransactionDetails   = "Transaction details"
	ReportRiskRating           = "riskRating"
	ReportRiskRationale        = "riskRationale"
	ReportRiskRationaleSources = "riskRationaleSources"
	ReportConfidenceScore      = "averageConfidenceScore"
	ReportEntityType           = "EntityType"
)

// SubScoreKeys names the sub-scores the assessment prompt asks for.
var SubScoreKeys = []string{
	"Sanction Score",
	"Adverse Media",
	"PEP Score",
	"High Risk Jurisdiction Score",
	"Suspicious Transaction Pattern Score",
	"Shell Company Link Score",
}

// RiskReport is the JSON object returned by the assessment prompt. Its schema
// is advisory; only the projection reads from it.
type RiskReport map[string]any

// TransactionAssessment is the record returned to the caller for one
// transaction. Score and type fields keep whatever JSON value the model
// produced.
type TransactionAssessment struct {
	TransactionID      any   `json:"transactionID" yaml:"transactionID"`
	ExtractedEntities  []any `json:"extractedEntities" yaml:"extractedEntities"`
	EntityType         any   `json:"entityType" yaml:"entityType"`
	RiskScore          any   `json:"riskScore" yaml:"riskScore"`
	SupportingEvidence any   `json:"supportingEvidence" yaml:"supportingEvidence"`
	ConfidenceScore    any   `json:"confidenceScore" yaml:"confidenceScore"`
	Reason             any   `json:"reason" yaml:"reason"`
}
