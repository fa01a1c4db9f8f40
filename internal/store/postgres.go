package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/amishk599/jobsync/internal/model"
)

// migrationLockKey serializes concurrent migrators on one database.
const migrationLockKey = 0x6a6f6273796e63

var postgresMigrations = []migration{
	{
		version:     1,
		description: "create jobs",
		stmts: []string{
			`CREATE TABLE IF NOT EXISTS jobs (
				external_id     TEXT PRIMARY KEY,
				company         TEXT NOT NULL,
				title           TEXT NOT NULL,
				location        TEXT,
				department      TEXT,
				employment_type TEXT NOT NULL,
				description     TEXT,
				apply_url       TEXT,
				posted_at       TIMESTAMPTZ,
				source          TEXT NOT NULL,
				is_remote       BOOLEAN NOT NULL DEFAULT FALSE,
				is_active       BOOLEAN NOT NULL DEFAULT TRUE,
				min_salary      NUMERIC(14, 2) NOT NULL DEFAULT 0,
				max_salary      NUMERIC(14, 2) NOT NULL DEFAULT 0,
				created_at      TIMESTAMPTZ NOT NULL DEFAULT now(),
				updated_at      TIMESTAMPTZ NOT NULL DEFAULT now()
			)`,
			`CREATE INDEX IF NOT EXISTS idx_jobs_updated_at ON jobs (updated_at)`,
		},
	},
	{
		version:     2,
		description: "create job_sync_history",
		stmts: []string{
			`CREATE TABLE IF NOT EXISTS job_sync_history (
				id             BIGSERIAL PRIMARY KEY,
				pipeline_name  TEXT NOT NULL,
				start_time     TIMESTAMPTZ NOT NULL,
				end_time       TIMESTAMPTZ,
				status         TEXT NOT NULL CHECK (status IN ('RUNNING', 'SUCCESS', 'FAILED')),
				jobs_processed INTEGER NOT NULL DEFAULT 0,
				jobs_inserted  INTEGER NOT NULL DEFAULT 0,
				cursor_value   TEXT,
				error_message  TEXT
			)`,
			`CREATE INDEX IF NOT EXISTS idx_job_sync_history_pipeline
				ON job_sync_history (pipeline_name, start_time DESC)`,
		},
	},
	{
		version:     3,
		description: "create email_log",
		stmts: []string{
			`CREATE TABLE IF NOT EXISTS email_log (
				user_id TEXT NOT NULL,
				job_id  TEXT NOT NULL,
				sent_at TIMESTAMPTZ NOT NULL DEFAULT now(),
				PRIMARY KEY (user_id, job_id)
			)`,
		},
	},
	{
		version:     4,
		description: "sync history counters",
		columns: []column{
			{"job_sync_history", "jobs_updated", "INTEGER NOT NULL DEFAULT 0"},
			{"job_sync_history", "jobs_failed", "INTEGER NOT NULL DEFAULT 0"},
			{"job_sync_history", "pages_failed", "INTEGER NOT NULL DEFAULT 0"},
			{"job_sync_history", "mode", "TEXT"},
		},
	},
	{
		version:     5,
		description: "job skills",
		columns: []column{
			{"jobs", "skills", "TEXT[] NOT NULL DEFAULT '{}'"},
		},
	},
	{
		version:     6,
		description: "unbounded job keys",
		stmts: []string{
			`ALTER TABLE jobs ALTER COLUMN external_id TYPE TEXT`,
		},
	},
}

// PostgresStore keeps jobs and sync history in PostgreSQL.
type PostgresStore struct {
	pool *pgxpool.Pool
	now  func() time.Time
}

// NewPostgresStore connects to databaseURL and brings the schema up to date.
// A non-empty schema becomes the connection search_path and is created if
// missing.
func NewPostgresStore(ctx context.Context, databaseURL, schema string) (*PostgresStore, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parsing database url: %w", err)
	}
	if schema != "" {
		cfg.ConnConfig.RuntimeParams["search_path"] = schema
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	s := &PostgresStore{pool: pool, now: time.Now}
	if schema != "" {
		if _, err := pool.Exec(ctx, "CREATE SCHEMA IF NOT EXISTS "+pgx.Identifier{schema}.Sanitize()); err != nil {
			pool.Close()
			return nil, fmt.Errorf("creating schema %s: %w", schema, err)
		}
	}
	if err := s.migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

func (s *PostgresStore) migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (
		version     INTEGER PRIMARY KEY,
		description TEXT NOT NULL,
		applied_at  TIMESTAMPTZ NOT NULL DEFAULT now()
	)`); err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	for _, m := range postgresMigrations {
		if err := s.apply(ctx, m); err != nil {
			return fmt.Errorf("migration %d (%s): %w", m.version, m.description, err)
		}
	}
	return nil
}

func (s *PostgresStore) apply(ctx context.Context, m migration) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock($1)`, int64(migrationLockKey)); err != nil {
		return fmt.Errorf("taking migration lock: %w", err)
	}

	var applied bool
	if err := tx.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM schema_migrations WHERE version = $1)`, m.version,
	).Scan(&applied); err != nil {
		return err
	}
	if applied {
		return nil
	}

	for _, stmt := range m.stmts {
		if _, err := tx.Exec(ctx, stmt); err != nil {
			return err
		}
	}
	for _, c := range m.columns {
		stmt := fmt.Sprintf(`ALTER TABLE %s ADD COLUMN IF NOT EXISTS %s %s`, c.table, c.name, c.ddl)
		if _, err := tx.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("adding %s.%s: %w", c.table, c.name, err)
		}
	}

	if _, err := tx.Exec(ctx,
		`INSERT INTO schema_migrations (version, description) VALUES ($1, $2)`,
		m.version, m.description,
	); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

const pgUpsertJob = `
	INSERT INTO jobs (
		external_id, company, title, location, department, employment_type,
		description, apply_url, posted_at, source, is_remote, is_active,
		min_salary, max_salary, skills, created_at, updated_at
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $16)
	ON CONFLICT (external_id) DO UPDATE SET
		title       = EXCLUDED.title,
		location    = EXCLUDED.location,
		description = EXCLUDED.description,
		posted_at   = EXCLUDED.posted_at,
		is_active   = TRUE,
		updated_at  = EXCLUDED.updated_at
	RETURNING (xmax = 0)`

// UpsertJobs applies one batch in a single transaction. Each record runs in
// its own savepoint so a bad row does not abort the rest.
func (s *PostgresStore) UpsertJobs(ctx context.Context, jobs []model.CanonicalJob, now time.Time) (model.UpsertResult, error) {
	var res model.UpsertResult
	if len(jobs) == 0 {
		return res, nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return res, fmt.Errorf("beginning batch: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, j := range jobs {
		sp, err := tx.Begin(ctx)
		if err != nil {
			return model.UpsertResult{}, fmt.Errorf("opening savepoint: %w", err)
		}

		var inserted bool
		err = sp.QueryRow(ctx, pgUpsertJob,
			j.IdentityKey, j.Company, j.Title, j.Location, j.Department, string(j.EmploymentType),
			j.Description, j.ApplyURL, j.PostedAt, string(j.Source), j.IsRemote, j.IsActive,
			j.SalaryMin, j.SalaryMax, emptySkills(j.Skills), now,
		).Scan(&inserted)
		if err == nil {
			err = sp.Commit(ctx)
		}
		if err != nil {
			_ = sp.Rollback(ctx)
			res.Failures = append(res.Failures, model.RecordFailure{
				IdentityKey: j.IdentityKey,
				Err:         fmt.Errorf("upserting %s: %w", j.IdentityKey, err),
			})
			continue
		}

		if inserted {
			j.CreatedAt, j.UpdatedAt = now, now
			res.Inserted++
			res.InsertedJobs = append(res.InsertedJobs, j)
		} else {
			res.Updated++
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return model.UpsertResult{}, fmt.Errorf("committing batch: %w", err)
	}
	return res, nil
}

// GetJob returns the stored job for identityKey.
func (s *PostgresStore) GetJob(ctx context.Context, identityKey string) (model.CanonicalJob, error) {
	var (
		j                  model.CanonicalJob
		applyURL           *string
		employment, source string
	)
	err := s.pool.QueryRow(ctx, `
		SELECT external_id, company, title, location, department, employment_type,
			description, apply_url, posted_at, source, is_remote, is_active,
			min_salary::float8, max_salary::float8, skills, created_at, updated_at
		FROM jobs WHERE external_id = $1`, identityKey,
	).Scan(
		&j.IdentityKey, &j.Company, &j.Title, &j.Location, &j.Department, &employment,
		&j.Description, &applyURL, &j.PostedAt, &source, &j.IsRemote, &j.IsActive,
		&j.SalaryMin, &j.SalaryMax, &j.Skills, &j.CreatedAt, &j.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.CanonicalJob{}, model.ErrNotFound
	}
	if err != nil {
		return model.CanonicalJob{}, fmt.Errorf("reading job %s: %w", identityKey, err)
	}
	j.ApplyURL = deref(applyURL)
	j.EmploymentType = model.EmploymentType(employment)
	j.Source = model.Source(source)
	return j, nil
}

// DeactivateStale marks active jobs not refreshed since before as inactive.
func (s *PostgresStore) DeactivateStale(ctx context.Context, before time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx,
		`UPDATE jobs SET is_active = FALSE WHERE is_active AND updated_at < $1`, before)
	if err != nil {
		return 0, fmt.Errorf("deactivating stale jobs: %w", err)
	}
	return tag.RowsAffected(), nil
}

// StartRun opens a RUNNING history row and returns its id.
func (s *PostgresStore) StartRun(ctx context.Context, pipeline string, start time.Time) (int64, error) {
	var id int64
	err := s.pool.QueryRow(ctx,
		`INSERT INTO job_sync_history (pipeline_name, start_time, status)
		 VALUES ($1, $2, 'RUNNING')
		 RETURNING id`,
		pipeline, start,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("starting run for %s: %w", pipeline, err)
	}
	return id, nil
}

// FinishRun writes the terminal state of run. Rows that are no longer
// RUNNING are left alone and ErrRunFinalized is returned.
func (s *PostgresStore) FinishRun(ctx context.Context, run model.SyncRun) error {
	if err := checkTerminal(run); err != nil {
		return err
	}
	tag, err := s.pool.Exec(ctx, `
		UPDATE job_sync_history SET
			end_time = $1, status = $2, mode = $3,
			jobs_processed = $4, jobs_inserted = $5, jobs_updated = $6,
			jobs_failed = $7, pages_failed = $8,
			cursor_value = $9, error_message = $10
		WHERE id = $11 AND status = 'RUNNING'`,
		run.EndTime, string(run.Status), string(run.Mode),
		run.JobsProcessed, run.JobsInserted, run.JobsUpdated,
		run.JobsFailed, run.PagesFailed,
		nullable(run.CursorValue), nullable(run.ErrorMessage),
		run.ID,
	)
	if err != nil {
		return fmt.Errorf("finishing run %d: %w", run.ID, err)
	}
	if tag.RowsAffected() == 1 {
		return nil
	}

	var exists bool
	if err := s.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM job_sync_history WHERE id = $1)`, run.ID,
	).Scan(&exists); err != nil {
		return err
	}
	if !exists {
		return model.ErrNotFound
	}
	return model.ErrRunFinalized
}

// LastCursor returns the cursor of the latest successful run of pipeline,
// or "" if there is none.
func (s *PostgresStore) LastCursor(ctx context.Context, pipeline string) (string, error) {
	var cursor *string
	err := s.pool.QueryRow(ctx, `
		SELECT cursor_value FROM job_sync_history
		WHERE pipeline_name = $1 AND status = 'SUCCESS'
		ORDER BY start_time DESC, id DESC
		LIMIT 1`, pipeline,
	).Scan(&cursor)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("reading cursor for %s: %w", pipeline, err)
	}
	return deref(cursor), nil
}

// ListRuns returns the most recent runs, newest first. An empty pipeline
// lists every pipeline.
func (s *PostgresStore) ListRuns(ctx context.Context, pipeline string, limit int) ([]model.SyncRun, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	rows, err := s.pool.Query(ctx, `
		SELECT id, pipeline_name, mode, start_time, end_time, status,
			jobs_processed, jobs_inserted, jobs_updated, jobs_failed, pages_failed,
			cursor_value, error_message
		FROM job_sync_history
		WHERE $1 = '' OR pipeline_name = $1
		ORDER BY start_time DESC, id DESC
		LIMIT $2`, pipeline, limit)
	if err != nil {
		return nil, fmt.Errorf("listing runs: %w", err)
	}
	defer rows.Close()

	var runs []model.SyncRun
	for rows.Next() {
		var (
			run                   model.SyncRun
			mode, cursor, message *string
			status                string
		)
		if err := rows.Scan(
			&run.ID, &run.PipelineName, &mode, &run.StartTime, &run.EndTime, &status,
			&run.JobsProcessed, &run.JobsInserted, &run.JobsUpdated, &run.JobsFailed, &run.PagesFailed,
			&cursor, &message,
		); err != nil {
			return nil, fmt.Errorf("scanning run: %w", err)
		}
		run.Mode = model.SyncMode(deref(mode))
		run.Status = model.RunStatus(status)
		run.CursorValue = deref(cursor)
		run.ErrorMessage = deref(message)
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// AbandonStale fails RUNNING rows that started before the cutoff.
func (s *PostgresStore) AbandonStale(ctx context.Context, before time.Time, message string) (int64, error) {
	tag, err := s.pool.Exec(ctx, `
		UPDATE job_sync_history SET status = 'FAILED', end_time = $1, error_message = $2
		WHERE status = 'RUNNING' AND start_time < $3`,
		s.now(), message, before)
	if err != nil {
		return 0, fmt.Errorf("abandoning stale runs: %w", err)
	}
	return tag.RowsAffected(), nil
}

// RecordEmail stores that jobID was sent to userID. It reports false when
// the pair was already recorded.
func (s *PostgresStore) RecordEmail(ctx context.Context, userID, jobID string, sentAt time.Time) (bool, error) {
	tag, err := s.pool.Exec(ctx,
		`INSERT INTO email_log (user_id, job_id, sent_at) VALUES ($1, $2, $3)
		 ON CONFLICT (user_id, job_id) DO NOTHING`,
		userID, jobID, sentAt)
	if err != nil {
		return false, fmt.Errorf("recording email %s/%s: %w", userID, jobID, err)
	}
	return tag.RowsAffected() == 1, nil
}

// HasEmailed reports whether jobID was already sent to userID.
func (s *PostgresStore) HasEmailed(ctx context.Context, userID, jobID string) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM email_log WHERE user_id = $1 AND job_id = $2)`,
		userID, jobID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("checking email %s/%s: %w", userID, jobID, err)
	}
	return exists, nil
}

// Close releases the connection pool.
func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}
