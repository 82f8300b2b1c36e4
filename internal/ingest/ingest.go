// Package ingest turns an uploaded file into the raw rows or free-text chunks
// consumed by transaction normalization.
package ingest

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"aml-triage/internal/domain"
)

const (
	// ChunkSeparator delimits transactions in a free-text upload.
	ChunkSeparator = "---"

	sniffSampleSize = 1024
)

// ErrNoInput is returned when the request carried no file at all.
var ErrNoInput = errors.New("ingest: no file or text provided")

// Kind tells which branch of parsing an upload went through.
type Kind int

const (
	KindText Kind = iota
	KindCSV
)

func (k Kind) String() string {
	if k == KindCSV {
		return "csv"
	}
	return "text"
}

// Upload is a file received from the caller.
type Upload struct {
	Filename string
	Content  []byte
}

// Source is the parsed form of an upload. Exactly one of Rows and Chunks is
// populated, according to Kind.
type Source struct {
	Kind   Kind
	Rows   []domain.RawRow
	Chunks []domain.RawChunk
}

// Len returns the number of transactions the source describes.
func (s Source) Len() int {
	if s.Kind == KindCSV {
		return len(s.Rows)
	}
	return len(s.Chunks)
}

// Classify decides whether the upload is CSV or free text and parses it.
func Classify(u *Upload) (Source, error) {
	if u == nil {
		return Source{}, ErrNoInput
	}
	delim, ok := sniffCSV(u)
	if !ok {
		return Source{Kind: KindText, Chunks: SplitText(u.Content)}, nil
	}
	rows, err := ParseCSV(u.Content, delim)
	if err != nil {
		return Source{}, err
	}
	return Source{Kind: KindCSV, Rows: rows}, nil
}

// IsCSV reports whether the upload is named like a CSV file and its leading
// bytes look like one.
func IsCSV(u *Upload) bool {
	_, ok := sniffCSV(u)
	return ok
}

func sniffCSV(u *Upload) (rune, bool) {
	if u == nil || !strings.HasSuffix(u.Filename, ".csv") {
		return 0, false
	}
	sample := u.Content
	truncated := len(sample) > sniffSampleSize
	if truncated {
		sample = sample[:sniffSampleSize]
	}
	if !utf8.Valid(sample) {
		return 0, false
	}
	return Sniff(stripBOM(sample), truncated)
}

// ParseCSV decodes content as UTF-8 header-row CSV. Duplicate headers keep the
// last value, short rows omit the missing columns and surplus fields are
// dropped.
func ParseCSV(content []byte, delim rune) ([]domain.RawRow, error) {
	if !utf8.Valid(content) {
		return nil, errors.New("ingest: csv content is not valid UTF-8")
	}
	r := csv.NewReader(bytes.NewReader(stripBOM(content)))
	if delim != 0 {
		r.Comma = delim
	}
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	header, err := r.Read()
	if errors.Is(err, io.EOF) {
		return []domain.RawRow{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("ingest: read csv header: %w", err)
	}
	columns := uniqueColumns(header)

	rows := make([]domain.RawRow, 0)
	for {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("ingest: read csv row %d: %w", len(rows)+1, err)
		}
		values := make(map[string]string, len(header))
		for i, col := range header {
			if i >= len(rec) {
				break
			}
			values[col] = rec[i]
		}
		rows = append(rows, domain.RawRow{Columns: columns, Values: values})
	}
	return rows, nil
}

// SplitText cuts a free-text upload on ChunkSeparator. Empty pieces are kept.
func SplitText(content []byte) []domain.RawChunk {
	parts := bytes.Split(content, []byte(ChunkSeparator))
	chunks := make([]domain.RawChunk, 0, len(parts))
	for _, p := range parts {
		chunks = append(chunks, domain.RawChunk(p))
	}
	return chunks
}

func uniqueColumns(header []string) []string {
	seen := make(map[string]struct{}, len(header))
	out := make([]string, 0, len(header))
	for _, h := range header {
		if _, ok := seen[h]; ok {
			continue
		}
		seen[h] = struct{}{}
		out = append(out, h)
	}
	return out
}

func stripBOM(b []byte) []byte {
	out, _, err := transform.Bytes(unicode.UTF8BOM.NewDecoder(), b)
	if err != nil {
		return b
	}
	return out
}
