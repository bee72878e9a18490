package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"healthnet/internal/platform/postgres"
	"healthnet/internal/registry/models"
	id "healthnet/pkg/domain"
	"healthnet/pkg/platform/sentinel"
	txcontext "healthnet/pkg/platform/tx"
)

// table describes how a source is laid out in Postgres.
type table struct {
	name    string
	columns map[models.Field]string
}

var tables = map[models.Source]table{
	models.SourcePayroll: {
		name: "mct_payroll",
		columns: map[models.Field]string{
			models.FieldName:          "name",
			models.FieldPayrollNumber: "check_number",
		},
	},
	models.SourceProfessional: {
		name: "mct_registrations",
		columns: map[models.Field]string{
			models.FieldName:               "name",
			models.FieldRegistrationNumber: "registration_number",
		},
	},
	models.SourceDistrict: {
		name: "dmo_registrations",
		columns: map[models.Field]string{
			models.FieldName:               "name",
			models.FieldPayrollNumber:      "payroll_number",
			models.FieldRegistrationNumber: "registration_number",
			models.FieldPhoneNumber:        "phone_number",
		},
	},
	models.SourcePartner: {
		name: "ngo_registrations",
		columns: map[models.Field]string{
			models.FieldName:               "name",
			models.FieldPayrollNumber:      "payroll_number",
			models.FieldRegistrationNumber: "registration_number",
			models.FieldPhoneNumber:        "phone_number",
		},
	},
}

// fieldOrder fixes the scan order of value columns.
var fieldOrder = []models.Field{
	models.FieldName,
	models.FieldPayrollNumber,
	models.FieldRegistrationNumber,
	models.FieldPhoneNumber,
}

// PostgresStore persists candidate records in one table per source.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func lookup(source models.Source) (table, error) {
	t, ok := tables[source]
	if !ok {
		return table{}, fmt.Errorf("unknown source %q: %w", source, sentinel.ErrInvalidState)
	}
	return t, nil
}

func (t table) selectList() (string, []models.Field) {
	cols := []string{"id"}
	var fields []models.Field
	for _, f := range fieldOrder {
		if col, ok := t.columns[f]; ok {
			cols = append(cols, col)
			fields = append(fields, f)
		}
	}
	cols = append(cols, "claimed_by", "imported_at")
	return strings.Join(cols, ", "), fields
}

func (s *PostgresStore) Insert(ctx context.Context, record models.Record) (id.RecordID, error) {
	t, err := lookup(record.Source)
	if err != nil {
		return 0, err
	}
	var cols, placeholders []string
	var args []any
	for _, f := range fieldOrder {
		if col, ok := t.columns[f]; ok {
			cols = append(cols, col)
			args = append(args, record.Value(f))
			placeholders = append(placeholders, fmt.Sprintf("$%d", len(args)))
		}
	}
	if !record.ID.IsZero() {
		cols = append(cols, "id")
		args = append(args, int64(record.ID))
		placeholders = append(placeholders, fmt.Sprintf("$%d", len(args)))
	}
	query := fmt.Sprintf(`INSERT INTO %s (%s) VALUES (%s) RETURNING id`,
		t.name, strings.Join(cols, ", "), strings.Join(placeholders, ", "))

	var newID int64
	if err := txcontext.Executor(ctx, s.db).QueryRowContext(ctx, query, args...).Scan(&newID); err != nil {
		if postgres.IsUniqueViolation(err) {
			return 0, sentinel.ErrConflict
		}
		return 0, fmt.Errorf("insert %s record: %w", record.Source, err)
	}
	return id.RecordID(newID), nil
}

// ListUnclaimed returns unclaimed records with id > afterID matching filter,
// in ascending id order.
func (s *PostgresStore) ListUnclaimed(ctx context.Context, source models.Source, filter models.Filter, afterID id.RecordID, limit int) ([]models.Record, error) {
	t, err := lookup(source)
	if err != nil {
		return nil, err
	}
	selectList, fields := t.selectList()
	args := []any{int64(afterID)}
	where := "claimed_by IS NULL AND id > $1"
	if filter.Field != "" {
		col, ok := t.columns[filter.Field]
		if !ok {
			return nil, nil
		}
		args = append(args, filter.Value)
		where += fmt.Sprintf(" AND %s = $%d", col, len(args))
	}
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE %s ORDER BY id ASC`, selectList, t.name, where)
	if limit > 0 {
		args = append(args, limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	rows, err := txcontext.Executor(ctx, s.db).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list unclaimed %s: %w", source, err)
	}
	defer rows.Close()

	var out []models.Record
	for rows.Next() {
		r, err := scanRecord(rows, source, fields)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s records: %w", source, err)
	}
	return out, nil
}

// Claim sets claimed_by only while it is still NULL and the worker holds no
// other record of the source. Zero affected rows means the record is missing
// or the claim was lost.
func (s *PostgresStore) Claim(ctx context.Context, source models.Source, recordID id.RecordID, workerID id.WorkerID) error {
	t, err := lookup(source)
	if err != nil {
		return err
	}
	q := txcontext.Executor(ctx, s.db)
	res, err := q.ExecContext(ctx,
		fmt.Sprintf(`UPDATE %[1]s SET claimed_by = $1
			WHERE id = $2 AND claimed_by IS NULL
			AND NOT EXISTS (SELECT 1 FROM %[1]s WHERE claimed_by = $1)`, t.name),
		int64(workerID), int64(recordID),
	)
	if err != nil {
		if postgres.IsUniqueViolation(err) {
			return sentinel.ErrAlreadyUsed
		}
		return fmt.Errorf("claim %s record: %w", source, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("claim %s record: %w", source, err)
	}
	if affected == 1 {
		return nil
	}

	var exists bool
	if err := q.QueryRowContext(ctx,
		fmt.Sprintf(`SELECT EXISTS (SELECT 1 FROM %s WHERE id = $1)`, t.name), int64(recordID),
	).Scan(&exists); err != nil {
		return fmt.Errorf("check %s record: %w", source, err)
	}
	if !exists {
		return sentinel.ErrNotFound
	}
	return sentinel.ErrAlreadyUsed
}

func (s *PostgresStore) FindClaimedBy(ctx context.Context, source models.Source, workerID id.WorkerID) (*models.Record, error) {
	t, err := lookup(source)
	if err != nil {
		return nil, err
	}
	selectList, fields := t.selectList()
	row := txcontext.Executor(ctx, s.db).QueryRowContext(ctx,
		fmt.Sprintf(`SELECT %s FROM %s WHERE claimed_by = $1 ORDER BY id ASC LIMIT 1`, selectList, t.name),
		int64(workerID),
	)
	r, err := scanRecord(row, source, fields)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, err
	}
	return &r, nil
}

func (s *PostgresStore) FindByID(ctx context.Context, source models.Source, recordID id.RecordID) (*models.Record, error) {
	t, err := lookup(source)
	if err != nil {
		return nil, err
	}
	selectList, fields := t.selectList()
	row := txcontext.Executor(ctx, s.db).QueryRowContext(ctx,
		fmt.Sprintf(`SELECT %s FROM %s WHERE id = $1`, selectList, t.name),
		int64(recordID),
	)
	r, err := scanRecord(row, source, fields)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, err
	}
	return &r, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(row scanner, source models.Source, fields []models.Field) (models.Record, error) {
	r := models.Record{Source: source}
	var (
		recordID  int64
		claimedBy sql.NullInt64
	)
	values := make([]string, len(fields))
	dest := []any{&recordID}
	for i := range values {
		dest = append(dest, &values[i])
	}
	dest = append(dest, &claimedBy, &r.ImportedAt)

	if err := row.Scan(dest...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return r, err
		}
		return r, fmt.Errorf("scan %s record: %w", source, err)
	}
	r.ID = id.RecordID(recordID)
	for i, f := range fields {
		switch f {
		case models.FieldName:
			r.Name = values[i]
		case models.FieldPayrollNumber:
			r.PayrollNumber = values[i]
		case models.FieldRegistrationNumber:
			r.RegistrationNumber = values[i]
		case models.FieldPhoneNumber:
			r.PhoneNumber = values[i]
		}
	}
	if claimedBy.Valid {
		w := id.WorkerID(claimedBy.Int64)
		r.ClaimedBy = &w
	}
	return r, nil
}
