package ingest

import (
	"bytes"
	"encoding/csv"
)

// candidateDelimiters are tried in order; the first consistent one wins.
var candidateDelimiters = []rune{',', '\t', ';', '|', ':'}

// Sniff looks for a delimiter that splits every complete line of sample into
// the same number of fields, at least two. When truncated is set the last,
// possibly partial, line is ignored.
func Sniff(sample []byte, truncated bool) (rune, bool) {
	if truncated {
		if i := bytes.LastIndexByte(sample, '\n'); i > 0 {
			sample = sample[:i]
		}
	}
	if len(bytes.TrimSpace(sample)) == 0 {
		return 0, false
	}
	for _, d := range candidateDelimiters {
		if consistent(sample, d) {
			return d, true
		}
	}
	return 0, false
}

func consistent(sample []byte, delim rune) bool {
	r := csv.NewReader(bytes.NewReader(sample))
	r.Comma = delim
	r.FieldsPerRecord = 0
	r.LazyQuotes = true
	records, err := r.ReadAll()
	if err != nil || len(records) == 0 {
		return false
	}
	return len(records[0]) >= 2
}
