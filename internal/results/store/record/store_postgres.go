package record

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"

	"github.com/lib/pq"

	"zgjedhjet/internal/results/models"
)

// PostgresStore persists election records in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed record store.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// EnsureSchema creates the records table and its lookup indexes if missing.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schemaDDL()); err != nil {
		return fmt.Errorf("ensure records schema: %w", err)
	}
	return nil
}

// BulkInsert streams all records through a single COPY inside one transaction.
func (s *PostgresStore) BulkInsert(ctx context.Context, records []models.ElectionRecord) (int, error) {
	if len(records) == 0 {
		return 0, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin records insert: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, pq.CopyIn(Table, insertColumns...))
	if err != nil {
		return 0, fmt.Errorf("prepare records copy: %w", err)
	}

	args := make([]any, len(insertColumns))
	for i := range records {
		r := &records[i]
		args[0], args[1], args[2], args[3] = r.Category, r.Municipality, r.VotingCenter, r.VotingPlace
		for j, v := range r.Votes {
			args[4+j] = v
		}
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			_ = stmt.Close()
			return 0, fmt.Errorf("copy record %d: %w", i, err)
		}
	}
	if _, err := stmt.ExecContext(ctx); err != nil {
		_ = stmt.Close()
		return 0, fmt.Errorf("flush records copy: %w", err)
	}
	if err := stmt.Close(); err != nil {
		return 0, fmt.Errorf("close records copy: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit records insert: %w", err)
	}
	return len(records), nil
}

func (s *PostgresStore) Query(ctx context.Context, filter models.Filter) ([]models.ElectionRecord, error) {
	query, args := buildQuery(filter)
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query records: %w", err)
	}
	defer rows.Close()

	var out []models.ElectionRecord
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate records: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) Exists(ctx context.Context, field models.Field, value string) (bool, error) {
	col, ok := column(field)
	if !ok {
		return false, fmt.Errorf("unknown record field %q", field)
	}
	var exists bool
	query := "SELECT EXISTS (SELECT 1 FROM " + Table + " WHERE " + col + " = $1)"
	if err := s.db.QueryRowContext(ctx, query, value).Scan(&exists); err != nil {
		return false, fmt.Errorf("check record %s: %w", col, err)
	}
	return exists, nil
}

func buildQuery(filter models.Filter) (string, []any) {
	var (
		where []string
		args  []any
	)
	for _, c := range filter.Constraints() {
		col, ok := column(c.Field)
		if !ok {
			continue
		}
		args = append(args, c.Value)
		where = append(where, col+" = $"+strconv.Itoa(len(args)))
	}

	query := "SELECT " + selectColumns + " FROM " + Table
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	return query + " ORDER BY id", args
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(row scanner) (models.ElectionRecord, error) {
	var r models.ElectionRecord
	dest := make([]any, 0, 5+models.PartyCount)
	dest = append(dest, &r.ID, &r.Category, &r.Municipality, &r.VotingCenter, &r.VotingPlace)
	for i := range r.Votes {
		dest = append(dest, &r.Votes[i])
	}
	if err := row.Scan(dest...); err != nil {
		return models.ElectionRecord{}, err
	}
	return r, nil
}
