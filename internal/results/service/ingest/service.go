package ingest

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"zgjedhjet/internal/results/metrics"
	"zgjedhjet/internal/results/models"
	"zgjedhjet/internal/results/ports"
	dErrors "zgjedhjet/pkg/domain-errors"
	"zgjedhjet/pkg/platform/audit"
	"zgjedhjet/pkg/requestcontext"
)

// Service turns uploaded CSV files into canonical records.
type Service struct {
	store   ports.CanonicalStore
	logger  *slog.Logger
	metrics *metrics.Metrics
	audit   ports.AuditPublisher
	tracer  trace.Tracer
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func WithAuditPublisher(publisher ports.AuditPublisher) Option {
	return func(s *Service) {
		s.audit = publisher
	}
}

// New constructs an ingest Service.
func New(store ports.CanonicalStore, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, errors.New("canonical store is required")
	}
	s := &Service{
		store:  store,
		logger: slog.Default(),
		tracer: otel.Tracer("zgjedhjet/results/ingest"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Ingest validates the upload, parses every data line and stores all valid
// records in one bulk write. Bad lines are reported, not fatal. A file with
// no valid lines is a handled outcome with Success false and no error.
func (s *Service) Ingest(ctx context.Context, upload Upload) (*ImportResult, error) {
	ctx, span := s.tracer.Start(ctx, "results.ingest",
		trace.WithAttributes(attribute.String("file.name", upload.Filename)))
	defer span.End()

	if verr := validateUpload(upload); verr != nil {
		s.metrics.IncrementImportOutcome("rejected")
		s.emit(ctx, audit.EventResultsImportRejected, upload.Filename, 0, verr.Error())
		return nil, dErrors.Wrap(verr, dErrors.CodeValidation, verr.Message)
	}

	batchID := uuid.NewString()
	span.SetAttributes(attribute.String("import.batch_id", batchID))

	records, rowErrors, err := readRecords(upload)
	if err != nil {
		var verr *ValidationError
		if errors.As(err, &verr) {
			s.metrics.IncrementImportOutcome("rejected")
			s.emit(ctx, audit.EventResultsImportRejected, upload.Filename, 0, verr.Error())
			return nil, dErrors.Wrap(verr, dErrors.CodeValidation, verr.Message)
		}
		s.fail(ctx, span, batchID, "read upload", err)
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "Internal server error during import")
	}

	result := &ImportResult{BatchID: batchID, Errors: make([]string, 0, len(rowErrors))}
	for _, re := range rowErrors {
		result.Errors = append(result.Errors, re.String())
	}

	if len(records) == 0 {
		result.Message = "No valid records found in CSV"
		s.metrics.IncrementImportOutcome("no_valid_records")
		s.metrics.AddRecordsImported(0, len(rowErrors))
		s.logger.WarnContext(ctx, "import produced no records",
			"request_id", requestcontext.RequestID(ctx),
			"batch_id", batchID,
			"row_errors", len(rowErrors),
		)
		return result, nil
	}

	// a disconnecting client must not abort a started write
	stored, err := s.store.BulkInsert(context.WithoutCancel(ctx), records)
	if err != nil {
		s.fail(ctx, span, batchID, "bulk insert", err)
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "Internal server error during import")
	}

	result.Success = true
	result.RecordsImported = stored
	result.Message = fmt.Sprintf("Successfully imported %d records", stored)

	s.metrics.IncrementImportOutcome("imported")
	s.metrics.AddRecordsImported(stored, len(rowErrors))
	s.emit(ctx, audit.EventResultsImported, batchID, stored, upload.Filename)
	s.logger.InfoContext(ctx, "results imported",
		"request_id", requestcontext.RequestID(ctx),
		"batch_id", batchID,
		"file", upload.Filename,
		"records", stored,
		"row_errors", len(rowErrors),
	)
	span.SetAttributes(attribute.Int("import.records", stored), attribute.Int("import.row_errors", len(rowErrors)))
	return result, nil
}

func validateUpload(upload Upload) *ValidationError {
	if upload.Body == nil || upload.Size == 0 {
		return errNoFile
	}
	if !strings.EqualFold(filepath.Ext(upload.Filename), ".csv") {
		return errNotCSV
	}
	return nil
}

// readRecords reads the whole upload. The header is line 1 and is skipped;
// blank lines are skipped but still counted. Lines over MaxLineBytes become
// row errors.
func readRecords(upload Upload) ([]models.ElectionRecord, []RowError, error) {
	br := bufio.NewReaderSize(upload.Body, readBufferSize)

	header, headerTooLong, err := readLine(br)
	if errors.Is(err, io.EOF) {
		return nil, nil, errNoHeader
	}
	if err != nil {
		return nil, nil, fmt.Errorf("read header: %w", err)
	}
	if header == "" && !headerTooLong {
		return nil, nil, errNoHeader
	}

	var (
		records   []models.ElectionRecord
		rowErrors []RowError
		line      = 1
	)
	for {
		text, tooLong, err := readLine(br)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, nil, fmt.Errorf("read line %d: %w", line+1, err)
		}
		line++
		if tooLong {
			rowErrors = append(rowErrors, RowError{Line: line, Reason: reasonTooLong})
			continue
		}
		if strings.TrimSpace(text) == "" {
			continue
		}
		record, reason := parseRecord(text)
		if reason != "" {
			rowErrors = append(rowErrors, RowError{Line: line, Reason: reason})
			continue
		}
		records = append(records, record)
	}
	return records, rowErrors, nil
}

// readLine returns the next line without its terminator, or io.EOF once the
// input is exhausted. An overlong line is consumed to its end and reported
// with tooLong set and no text.
func readLine(br *bufio.Reader) (string, bool, error) {
	var (
		buf     []byte
		read    int
		tooLong bool
	)
	for {
		chunk, err := br.ReadSlice('\n')
		read += len(chunk)
		if !tooLong {
			buf = append(buf, chunk...)
			// room for a trailing \r\n
			if len(buf) > MaxLineBytes+2 {
				tooLong, buf = true, nil
			}
		}
		switch {
		case errors.Is(err, bufio.ErrBufferFull):
			continue
		case errors.Is(err, io.EOF):
			if read == 0 {
				return "", false, io.EOF
			}
		case err != nil:
			return "", false, err
		}
		if tooLong {
			return "", true, nil
		}
		line := trimEOL(buf)
		if len(line) > MaxLineBytes {
			return "", true, nil
		}
		return string(line), false, nil
	}
}

func trimEOL(b []byte) []byte {
	b = bytes.TrimSuffix(b, []byte("\n"))
	return bytes.TrimSuffix(b, []byte("\r"))
}

// parseRecord converts one data line. A non-empty reason rejects the line.
func parseRecord(line string) (models.ElectionRecord, string) {
	if !utf8.ValidString(line) {
		line = strings.ToValidUTF8(line, string(utf8.RuneError))
	}
	fields := ParseLine(line)
	if len(fields) < MinColumns {
		return models.ElectionRecord{}, reasonShort
	}

	r := models.ElectionRecord{
		Category:     strings.TrimSpace(fields[0]),
		Municipality: strings.TrimSpace(fields[1]),
		VotingCenter: strings.TrimSpace(fields[2]),
		VotingPlace:  strings.TrimSpace(fields[3]),
	}
	for i := range r.Votes {
		r.Votes[i] = parseVotes(fields[4+i])
	}
	return r, ""
}

// parseVotes reads a counter. Blank, unparseable or out of 32-bit range
// values count as 0 and negative values are clamped to 0. Both stores keep
// counters as 32-bit integers.
func parseVotes(s string) int {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}
	n, err := strconv.ParseInt(s, 10, 32)
	if err != nil || n < 0 {
		return 0
	}
	return int(n)
}

func (s *Service) fail(ctx context.Context, span trace.Span, batchID, stage string, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, stage)
	s.metrics.IncrementImportOutcome("failed")
	s.logger.ErrorContext(ctx, "import failed",
		"request_id", requestcontext.RequestID(ctx),
		"batch_id", batchID,
		"stage", stage,
		"error", err,
	)
}

func (s *Service) emit(ctx context.Context, action audit.AuditEvent, subject string, count int, detail string) {
	if s.audit == nil {
		return
	}
	err := s.audit.Emit(ctx, audit.Event{
		Category:  action.Category(),
		Action:    string(action),
		Subject:   subject,
		RequestID: requestcontext.RequestID(ctx),
		Count:     count,
		Detail:    detail,
	})
	if err != nil {
		s.logger.WarnContext(ctx, "failed to emit audit event",
			"request_id", requestcontext.RequestID(ctx),
			"action", string(action),
			"error", err,
		)
	}
}
