package usecase

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"aml-triage/internal/domain"
)

const (
	purposeConversion = "Row to Transaction Conversion"
	purposeExtraction = "Entity Extraction"
	purposeAssessment = "Risk Assessment"
)

const rawJSONOnly = "NO explanation, NO markdown formatting, NO additional commentary. ONLY return raw JSON."

func buildConversionPrompt(record string) string {
	return strings.Join([]string{
		"Task:",
		"Convert the transaction record below into the canonical transaction format.",
		"",
		"Record:",
		record,
		"",
		"Output Contract:",
		`Return one JSON object with exactly these keys: {"transaction_id": <string>, "sender": <string>, "receiver": <string>, "amount": <float>, "currency": <string>, "transaction_details": <string>}.`,
		"If the currency is not found, default to " + domain.DefaultCurrency + ".",
		"Ensure there are no invalid escape characters in the JSON output.",
		rawJSONOnly,
	}, "\n")
}

func buildExtractionPrompt(text string) string {
	return strings.Join([]string{
		"Task:",
		"Extract the transaction details from the text below.",
		"",
		"Text:",
		text,
		"",
		"Output Contract:",
		"Return one JSON object with the fields Transaction ID, Sender, Receiver, Amount, Currency and Transaction Details.",
		"Put additional notes, remarks or any other relevant information into Transaction Details as a plain string without special characters.",
		"Ensure data integrity and that the output is valid JSON.",
		"Ensure there are no invalid escape characters in the JSON output.",
		rawJSONOnly,
	}, "\n")
}

func buildAssessmentPrompt(details domain.TransactionDetails, enrichments []domain.EntityEnrichment, rules string) string {
	return strings.Join([]string{
		"Task:",
		"Evaluate the anti-money-laundering risk of the transaction below using the assessment rules and the entity search results.",
		"Run the evaluation 5 times independently and calculate the average confidence score and risk scores across all runs.",
		"Provide a final riskRating, riskRationale and the average confidence score for the transaction, weighing in the entities, amount, currency and remarks.",
		"Check in OpenCorporates, Wikipedia and sanctions lists around the world.",
		"In the rationale, mention which source of data was the reason for the evaluation.",
		"",
		"Transaction details:",
		promptJSON(details),
		"",
		"Entity search results:",
		promptJSON(enrichments),
		"",
		"Assessment rules:",
		strings.TrimSpace(rules),
		"",
		"Output Contract:",
		"Extract the following fields from the assessment rules: " + strings.Join(domain.SubScoreKeys, ", ") + ".",
		"Return one JSON object with this structure: " + reportStructure() + ".",
		fmt.Sprintf("Keep the original transaction detail fields under %q for verification.", domain.ReportTransactionDetails),
		"Keep the case of key names exactly as given.",
		"Include an extra field " + domain.ReportEntityType + ": an array with the entity type, from a bank's perspective, of the sender and of the receiver, in one or two words without special characters. Default to Corporation if not found.",
		"Give every sub-score a short justification in a separate string field.",
		"Ensure the rationale is a single-line JSON string value without line breaks.",
		"Do not include any additional text in the output apart from the generated JSON.",
		rawJSONOnly,
	}, "\n")
}

func reportStructure() string {
	fields := []string{
		fmt.Sprintf("%q: <object>", domain.ReportTransactionDetails),
		fmt.Sprintf("%q: <value>", domain.ReportRiskRating),
		fmt.Sprintf("%q: <string>", domain.ReportRiskRationale),
		fmt.Sprintf("%q: <string>", domain.ReportRiskRationaleSources),
		fmt.Sprintf("%q: <value>", domain.ReportConfidenceScore),
	}
	for _, k := range domain.SubScoreKeys {
		fields = append(fields, fmt.Sprintf("%q: <value>", k))
	}
	return "{" + strings.Join(fields, ", ") + "}"
}

// promptJSON renders v as compact JSON without HTML escaping so names such as
// "AT&T" reach the model unchanged.
func promptJSON(v any) string {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return fmt.Sprintf("%v", v)
	}
	return strings.TrimRight(buf.String(), "\n")
}
