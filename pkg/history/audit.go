package history

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/cespare/xxhash/v2"
)

// Report - result of a scan log audit
type Report struct {
	Checksum  string
	HeaderOK  bool
	Rows      int
	Malformed []int
	// Duplicates - data values present more than once with their row count
	Duplicates map[string]int
}

// Clean - true when the log holds no anomalies
func (r *Report) Clean() bool {
	return r.HeaderOK && len(r.Malformed) == 0 && len(r.Duplicates) == 0
}

// DuplicateValues - duplicated data values in a stable order
func (r *Report) DuplicateValues() []string {
	values := make([]string, 0, len(r.Duplicates))
	for v := range r.Duplicates {
		values = append(values, v)
	}
	sort.Strings(values)
	return values
}

// Checksum - xxhash of the file content, hex encoded
func Checksum(content []byte) string {
	return strconv.FormatUint(xxhash.Sum64(content), 16)
}

// Audit - reads the log at path and reports header, malformed rows and duplicated payloads.
// Malformed entries are 1-based data row numbers.
func Audit(path string) (*Report, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scan log %s: %w", path, err)
	}
	return AuditContent(content)
}

// AuditContent - same as Audit for already loaded content
func AuditContent(content []byte) (*Report, error) {
	report := &Report{
		Checksum:   Checksum(content),
		Duplicates: map[string]int{},
	}

	reader := csv.NewReader(bytes.NewReader(content))
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	header, err := reader.Read()
	if err == io.EOF {
		return report, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read scan log header: %w", err)
	}
	report.HeaderOK = isHeader(header)

	counts := map[string]int{}
	for row := 1; ; row++ {
		fields, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			var parseErr *csv.ParseError
			if !errors.As(err, &parseErr) {
				return nil, fmt.Errorf("failed to read scan log: %w", err)
			}
			report.Malformed = append(report.Malformed, row)
			continue
		}
		report.Rows++
		rec, err := parseRow(fields)
		if err != nil || rec.Status != StatusSuccess {
			report.Malformed = append(report.Malformed, row)
			continue
		}
		if _, err := rec.ScannedAt(); err != nil {
			report.Malformed = append(report.Malformed, row)
		}
		counts[strings.TrimSpace(rec.Data)]++
	}

	for data, n := range counts {
		if n > 1 {
			report.Duplicates[data] = n
		}
	}
	return report, nil
}
