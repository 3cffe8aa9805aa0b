package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/GoSim-25-26J-441/job-tracker/internal/applications/domain"
)

const notifyChannel = "job_applications_changed"

var schema = []string{
	`CREATE TABLE IF NOT EXISTS job_applications (
	id               TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	company_name     TEXT NOT NULL,
	job_role         TEXT NOT NULL,
	application_date TEXT NOT NULL,
	status           TEXT NOT NULL DEFAULT 'Applied',
	notes            TEXT NOT NULL DEFAULT '',
	created_at       TIMESTAMPTZ NOT NULL DEFAULT now()
)`,
	`CREATE INDEX IF NOT EXISTS job_applications_date_idx ON job_applications (application_date DESC)`,
	`CREATE OR REPLACE FUNCTION notify_job_applications_changed() RETURNS trigger AS $$
BEGIN
	PERFORM pg_notify('` + notifyChannel + `', TG_OP);
	RETURN NULL;
END;
$$ LANGUAGE plpgsql`,
	`DROP TRIGGER IF EXISTS job_applications_changed ON job_applications`,
	`CREATE TRIGGER job_applications_changed
AFTER INSERT OR UPDATE OR DELETE ON job_applications
FOR EACH STATEMENT EXECUTE FUNCTION notify_job_applications_changed()`,
}

// PostgresStore keeps the collection in a table and uses LISTEN/NOTIFY for changes
type PostgresStore struct {
	pool  *pgxpool.Pool
	retry retryPolicy
}

// NewPostgresStore creates a new PostgresStore
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool, retry: defaultRetry}
}

// Migrate creates the table and the change-notification trigger
func (s *PostgresStore) Migrate(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

// Create inserts a record; id and created_at come from the database
func (s *PostgresStore) Create(ctx context.Context, in domain.Input) (string, error) {
	const q = `
INSERT INTO job_applications (company_name, job_role, application_date, status, notes)
VALUES ($1, $2, $3, $4, $5)
RETURNING id;
`
	var id string
	err := s.pool.QueryRow(ctx, q, in.CompanyName, in.JobRole, in.ApplicationDate, string(in.Status), in.Notes).Scan(&id)
	if err != nil {
		return "", writeErr("create", "", err)
	}
	return id, nil
}

// Update replaces the mutable columns; created_at is never written
func (s *PostgresStore) Update(ctx context.Context, id string, in domain.Input) error {
	const q = `
UPDATE job_applications
SET company_name = $2, job_role = $3, application_date = $4, status = $5, notes = $6
WHERE id = $1;
`
	tag, err := s.pool.Exec(ctx, q, id, in.CompanyName, in.JobRole, in.ApplicationDate, string(in.Status), in.Notes)
	if err != nil {
		return writeErr("update", id, err)
	}
	if tag.RowsAffected() == 0 {
		return writeErr("update", id, domain.ErrNotFound)
	}
	return nil
}

// Delete removes a record
func (s *PostgresStore) Delete(ctx context.Context, id string) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM job_applications WHERE id = $1`, id); err != nil {
		return writeErr("delete", id, err)
	}
	return nil
}

// Ping checks the pool
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Subscribe holds a dedicated connection in LISTEN mode and reloads the
// collection for the initial state and on every notification.
func (s *PostgresStore) Subscribe(ctx context.Context) *Stream {
	return NewStream(ctx, func(ctx context.Context, emit EmitFunc) {
		for attempt := 0; ; attempt++ {
			err := s.follow(ctx, emit, func() { attempt = -1 })
			if ctx.Err() != nil {
				return
			}
			if !emit(errorEvent(err)) || !s.retry.wait(ctx, attempt) {
				return
			}
		}
	})
}

func (s *PostgresStore) follow(ctx context.Context, emit EmitFunc, healthy func()) error {
	pc, err := s.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire: %w", err)
	}
	// A listening connection must not go back to the pool.
	conn := pc.Hijack()
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = conn.Close(closeCtx)
	}()

	if _, err := conn.Exec(ctx, "LISTEN "+notifyChannel); err != nil {
		return fmt.Errorf("listen: %w", err)
	}

	for {
		records, err := loadRows(ctx, conn)
		if err != nil {
			return err
		}
		if !emit(snapshotEvent(records)) {
			return ctx.Err()
		}
		healthy()

		if _, err := conn.WaitForNotification(ctx); err != nil {
			return fmt.Errorf("wait for notification: %w", err)
		}
	}
}

func loadRows(ctx context.Context, conn *pgx.Conn) ([]domain.JobApplication, error) {
	const q = `
SELECT id, company_name, job_role, application_date, status, notes, created_at
FROM job_applications
ORDER BY application_date DESC, id ASC;
`
	rows, err := conn.Query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("load: %w", err)
	}
	defer rows.Close()

	out := make([]domain.JobApplication, 0, 16)
	for rows.Next() {
		var (
			app       domain.JobApplication
			status    string
			createdAt time.Time
		)
		if err := rows.Scan(&app.ID, &app.CompanyName, &app.JobRole, &app.ApplicationDate, &status, &app.Notes, &createdAt); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		app.Status = domain.Status(status)
		app.CreatedAt = &createdAt
		out = append(out, app)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("load: %w", err)
	}
	return out, nil
}
