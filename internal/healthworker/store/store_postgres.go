package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"healthnet/internal/healthworker/models"
	"healthnet/internal/platform/postgres"
	id "healthnet/pkg/domain"
	"healthnet/pkg/platform/sentinel"
	txcontext "healthnet/pkg/platform/tx"
)

const workerColumns = `id, name, surname, vodacom_phone, other_phone, email,
	payroll_number, registration_number, country, language,
	verification_tier, verified_at, manual_verification_notes,
	closed_user_group, added_to_closed_user_group_at, requested_closed_user_group_at,
	created_at, updated_at`

// PostgresStore persists health workers in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Create(ctx context.Context, w *models.Worker) (id.WorkerID, error) {
	query := `
		INSERT INTO health_workers (
			name, surname, vodacom_phone, other_phone, email,
			payroll_number, registration_number, country, language,
			verification_tier, created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING id
	`
	var workerID int64
	err := txcontext.Executor(ctx, s.db).QueryRowContext(ctx, query,
		w.Name, w.Surname, w.VodacomPhone, w.OtherPhone, w.Email,
		w.PayrollNumber, w.RegistrationNumber, w.Country, w.Language,
		int(w.VerificationTier), w.CreatedAt, w.UpdatedAt,
	).Scan(&workerID)
	if err != nil {
		if postgres.IsUniqueViolation(err) {
			return 0, sentinel.ErrConflict
		}
		return 0, fmt.Errorf("insert health worker: %w", err)
	}
	w.ID = id.WorkerID(workerID)
	return w.ID, nil
}

func (s *PostgresStore) FindByID(ctx context.Context, workerID id.WorkerID) (*models.Worker, error) {
	return s.find(ctx, `SELECT `+workerColumns+` FROM health_workers WHERE id = $1`, workerID)
}

// FindForUpdate locks the worker row until the surrounding transaction ends.
// Outside a transaction it behaves like FindByID.
func (s *PostgresStore) FindForUpdate(ctx context.Context, workerID id.WorkerID) (*models.Worker, error) {
	if _, ok := txcontext.From(ctx); !ok {
		return s.FindByID(ctx, workerID)
	}
	return s.find(ctx, `SELECT `+workerColumns+` FROM health_workers WHERE id = $1 FOR UPDATE`, workerID)
}

func (s *PostgresStore) find(ctx context.Context, query string, workerID id.WorkerID) (*models.Worker, error) {
	row := txcontext.Executor(ctx, s.db).QueryRowContext(ctx, query, int64(workerID))
	w, err := scanWorker(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find health worker: %w", err)
	}
	return w, nil
}

// SetAutoVerified is conditional on the worker still being unverified.
func (s *PostgresStore) SetAutoVerified(ctx context.Context, workerID id.WorkerID, tier models.VerificationTier, at time.Time) error {
	if !tier.IsAutomatic() {
		return sentinel.ErrInvalidState
	}
	q := txcontext.Executor(ctx, s.db)
	res, err := q.ExecContext(ctx, `
		UPDATE health_workers
		SET verification_tier = $1, verified_at = $2, updated_at = $2
		WHERE id = $3 AND verification_tier = 0
	`, int(tier), at, int64(workerID))
	if err != nil {
		return fmt.Errorf("set auto verified: %w", err)
	}
	return s.expectOne(ctx, q, res, workerID)
}

func (s *PostgresStore) SetManualVerified(ctx context.Context, workerID id.WorkerID, notes string, at time.Time) error {
	q := txcontext.Executor(ctx, s.db)
	res, err := q.ExecContext(ctx, `
		UPDATE health_workers
		SET verification_tier = $1,
			verified_at = $2,
			updated_at = $2,
			manual_verification_notes = CASE WHEN $3 = '' THEN manual_verification_notes ELSE $3 END
		WHERE id = $4
	`, int(models.TierManual), at, notes, int64(workerID))
	if err != nil {
		return fmt.Errorf("set manual verified: %w", err)
	}
	return s.expectOne(ctx, q, res, workerID)
}

// UpdateMembership persists only the closed user group columns of w.
func (s *PostgresStore) UpdateMembership(ctx context.Context, w *models.Worker) error {
	q := txcontext.Executor(ctx, s.db)
	res, err := q.ExecContext(ctx, `
		UPDATE health_workers
		SET closed_user_group = $1,
			added_to_closed_user_group_at = $2,
			requested_closed_user_group_at = $3,
			updated_at = $4
		WHERE id = $5
	`, w.ClosedUserGroup, w.AddedToClosedUserGroupAt, w.RequestedClosedUserGroupAt, w.UpdatedAt, int64(w.ID))
	if err != nil {
		return fmt.Errorf("update membership: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update membership: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *PostgresStore) ListUnverifiedIDs(ctx context.Context, afterID id.WorkerID, limit int) ([]id.WorkerID, error) {
	rows, err := txcontext.Executor(ctx, s.db).QueryContext(ctx, `
		SELECT id FROM health_workers
		WHERE verification_tier = 0 AND id > $1
		ORDER BY id ASC
		LIMIT $2
	`, int64(afterID), limit)
	if err != nil {
		return nil, fmt.Errorf("list unverified workers: %w", err)
	}
	defer rows.Close()

	var out []id.WorkerID
	for rows.Next() {
		var workerID int64
		if err := rows.Scan(&workerID); err != nil {
			return nil, fmt.Errorf("scan worker id: %w", err)
		}
		out = append(out, id.WorkerID(workerID))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate worker ids: %w", err)
	}
	return out, nil
}

// expectOne distinguishes a missing worker from a failed condition when an
// UPDATE touched no rows.
func (s *PostgresStore) expectOne(ctx context.Context, q txcontext.Querier, res sql.Result, workerID id.WorkerID) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 1 {
		return nil
	}
	var exists bool
	if err := q.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM health_workers WHERE id = $1)`, int64(workerID),
	).Scan(&exists); err != nil {
		return fmt.Errorf("check health worker: %w", err)
	}
	if !exists {
		return sentinel.ErrNotFound
	}
	return sentinel.ErrInvalidState
}

func scanWorker(row *sql.Row) (*models.Worker, error) {
	var (
		w          models.Worker
		workerID   int64
		tier       int
		verifiedAt sql.NullTime
		addedAt    sql.NullTime
		requested  sql.NullTime
	)
	err := row.Scan(
		&workerID, &w.Name, &w.Surname, &w.VodacomPhone, &w.OtherPhone, &w.Email,
		&w.PayrollNumber, &w.RegistrationNumber, &w.Country, &w.Language,
		&tier, &verifiedAt, &w.ManualVerificationNotes,
		&w.ClosedUserGroup, &addedAt, &requested,
		&w.CreatedAt, &w.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	w.ID = id.WorkerID(workerID)
	w.VerificationTier = models.VerificationTier(tier)
	w.VerifiedAt = nullTime(verifiedAt)
	w.AddedToClosedUserGroupAt = nullTime(addedAt)
	w.RequestedClosedUserGroupAt = nullTime(requested)
	return &w, nil
}

func nullTime(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time
	return &v
}
