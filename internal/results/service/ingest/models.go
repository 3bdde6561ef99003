package ingest

import (
	"fmt"
	"io"
)

// MinColumns is the number of fields a data line needs: four descriptive
// fields and one counter per party.
const MinColumns = 4 + 28

// MaxLineBytes bounds a single line; longer lines are rejected as row errors.
const MaxLineBytes = 1 << 20

const readBufferSize = 64 * 1024

// Upload is one uploaded CSV file.
type Upload struct {
	Filename string
	Size     int64
	Body     io.Reader
}

// ImportResult reports a completed import. Success is false when no line
// produced a record.
type ImportResult struct {
	BatchID         string
	Success         bool
	Message         string
	RecordsImported int
	Errors          []string
}

// RowError is a rejected data line. Line is 1-based with the header as line 1.
type RowError struct {
	Line   int
	Reason string
}

func (e RowError) String() string {
	return fmt.Sprintf("Line %d: %s", e.Line, e.Reason)
}

// ValidationError rejects an upload before any line is read.
type ValidationError struct {
	Message string
	Reason  string
}

func (e *ValidationError) Error() string {
	return e.Message + ": " + e.Reason
}

var (
	errNoFile   = &ValidationError{Message: "No file uploaded", Reason: "File is required"}
	errNotCSV   = &ValidationError{Message: "Invalid file format", Reason: "Only CSV files allowed"}
	errNoHeader = &ValidationError{Message: "CSV file is empty", Reason: "No header found in CSV"}
)

const (
	reasonShort   = "insufficient columns"
	reasonTooLong = "line too long"
)
