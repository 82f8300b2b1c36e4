package domain

import (
	"bytes"
	"encoding/json"
)

// DefaultCurrency is applied when a normalized transaction carries no currency.
const DefaultCurrency = "USD"

// RawRow is one CSV data row keyed by header name. Columns keeps the header
// order so the row renders the way it appeared in the upload.
type RawRow struct {
	Columns []string
	Values  map[string]string
}

// MarshalJSON renders the row as a JSON object in header order, skipping
// columns the row had no field for.
func (r RawRow) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	first := true
	for _, col := range r.Columns {
		v, ok := r.Values[col]
		if !ok {
			continue
		}
		if !first {
			buf.WriteByte(',')
		}
		first = false
		k, err := marshalString(col)
		if err != nil {
			return nil, err
		}
		val, err := marshalString(v)
		if err != nil {
			return nil, err
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func marshalString(s string) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(s); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// RawChunk is one piece of a free-text upload.
type RawChunk string

// Transaction is the canonical record produced by normalization.
type Transaction struct {
	TransactionID      string  `json:"transaction_id"`
	Sender             string  `json:"sender"`
	Receiver           string  `json:"receiver"`
	Amount             float64 `json:"amount"`
	Currency           string  `json:"currency"`
	TransactionDetails string  `json:"transaction_details"`
}

// Entities returns the counterparties in sender, receiver order.
func (t Transaction) Entities() []string {
	return []string{t.Sender, t.Receiver}
}

// TransactionDetails is the shape of a transaction as it is echoed inside the
// risk assessment prompt and report.
type TransactionDetails struct {
	TransactionID string  `json:"transaction_id"`
	From          string  `json:"from"`
	To            string  `json:"to"`
	Amount        float64 `json:"amount"`
	Currency      string  `json:"currency"`
	Remarks       string  `json:"remarks"`
}

// Details converts the transaction into its assessment shape.
func (t Transaction) Details() TransactionDetails {
	return TransactionDetails{
		TransactionID: t.TransactionID,
		From:          t.Sender,
		To:            t.Receiver,
		Amount:        t.Amount,
		Currency:      t.Currency,
		Remarks:       t.TransactionDetails,
	}
}
