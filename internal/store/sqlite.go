package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/amishk599/jobsync/internal/model"
)

// sqliteTime is fixed width so that text comparison orders like time.
const sqliteTime = "2006-01-02T15:04:05.000000000Z"

var sqliteMigrations = []migration{
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
				posted_at       TEXT,
				source          TEXT NOT NULL,
				is_remote       INTEGER NOT NULL DEFAULT 0,
				is_active       INTEGER NOT NULL DEFAULT 1,
				min_salary      REAL NOT NULL DEFAULT 0,
				max_salary      REAL NOT NULL DEFAULT 0,
				created_at      TEXT NOT NULL,
				updated_at      TEXT NOT NULL
			)`,
			`CREATE INDEX IF NOT EXISTS idx_jobs_updated_at ON jobs (updated_at)`,
		},
	},
	{
		version:     2,
		description: "create job_sync_history",
		stmts: []string{
			`CREATE TABLE IF NOT EXISTS job_sync_history (
				id             INTEGER PRIMARY KEY AUTOINCREMENT,
				pipeline_name  TEXT NOT NULL,
				start_time     TEXT NOT NULL,
				end_time       TEXT,
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
				sent_at TEXT NOT NULL,
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
			{"jobs", "skills", "TEXT NOT NULL DEFAULT '[]'"},
		},
	},
}

// SQLiteStore keeps jobs and sync history in a local SQLite file.
type SQLiteStore struct {
	db  *sql.DB
	now func() time.Time
}

// NewSQLiteStore opens (or creates) a SQLite database at dbPath and brings
// its schema up to date.
func NewSQLiteStore(ctx context.Context, dbPath string) (*SQLiteStore, error) {
	dsn := dbPath
	if !strings.Contains(dsn, "?") {
		dsn += "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite db: %w", err)
	}
	// One writer at a time; batches are serialized anyway.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging sqlite db: %w", err)
	}

	s := &SQLiteStore{db: db, now: time.Now}
	if err := s.migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLiteStore) migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (
		version     INTEGER PRIMARY KEY,
		description TEXT NOT NULL,
		applied_at  TEXT NOT NULL
	)`); err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	for _, m := range sqliteMigrations {
		if err := s.apply(ctx, m); err != nil {
			return fmt.Errorf("migration %d (%s): %w", m.version, m.description, err)
		}
	}
	return nil
}

func (s *SQLiteStore) apply(ctx context.Context, m migration) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var done int
	err = tx.QueryRowContext(ctx, `SELECT 1 FROM schema_migrations WHERE version = ?`, m.version).Scan(&done)
	if err == nil {
		return nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return err
	}

	for _, stmt := range m.stmts {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	for _, c := range m.columns {
		var n int
		if err := tx.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM pragma_table_info(?) WHERE name = ?`, c.table, c.name,
		).Scan(&n); err != nil {
			return fmt.Errorf("inspecting %s: %w", c.table, err)
		}
		if n > 0 {
			continue
		}
		if _, err := tx.ExecContext(ctx, fmt.Sprintf(`ALTER TABLE %s ADD COLUMN %s %s`, c.table, c.name, c.ddl)); err != nil {
			return fmt.Errorf("adding %s.%s: %w", c.table, c.name, err)
		}
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO schema_migrations (version, description, applied_at) VALUES (?, ?, ?)`,
		m.version, m.description, formatTime(s.now()),
	); err != nil {
		return err
	}
	return tx.Commit()
}

// UpsertJobs applies one batch in a single transaction. A record that fails
// is reported in the result and does not stop the batch.
func (s *SQLiteStore) UpsertJobs(ctx context.Context, jobs []model.CanonicalJob, now time.Time) (model.UpsertResult, error) {
	var res model.UpsertResult
	if len(jobs) == 0 {
		return res, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return res, fmt.Errorf("beginning batch: %w", err)
	}
	defer tx.Rollback()

	ts := formatTime(now)
	for _, j := range jobs {
		inserted, err := upsertSQLite(ctx, tx, j, ts)
		if err != nil {
			res.Failures = append(res.Failures, model.RecordFailure{IdentityKey: j.IdentityKey, Err: err})
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

	if err := tx.Commit(); err != nil {
		return model.UpsertResult{}, fmt.Errorf("committing batch: %w", err)
	}
	return res, nil
}

func upsertSQLite(ctx context.Context, tx *sql.Tx, j model.CanonicalJob, ts string) (bool, error) {
	skills, err := json.Marshal(emptySkills(j.Skills))
	if err != nil {
		return false, fmt.Errorf("encoding skills: %w", err)
	}

	var exists int
	err = tx.QueryRowContext(ctx, `SELECT 1 FROM jobs WHERE external_id = ?`, j.IdentityKey).Scan(&exists)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return false, fmt.Errorf("looking up %s: %w", j.IdentityKey, err)
	}
	inserted := errors.Is(err, sql.ErrNoRows)

	_, err = tx.ExecContext(ctx, `
		INSERT INTO jobs (
			external_id, company, title, location, department, employment_type,
			description, apply_url, posted_at, source, is_remote, is_active,
			min_salary, max_salary, skills, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (external_id) DO UPDATE SET
			title       = excluded.title,
			location    = excluded.location,
			description = excluded.description,
			posted_at   = excluded.posted_at,
			is_active   = 1,
			updated_at  = excluded.updated_at`,
		j.IdentityKey, j.Company, j.Title, j.Location, j.Department, string(j.EmploymentType),
		j.Description, j.ApplyURL, formatTimePtr(j.PostedAt), string(j.Source), j.IsRemote, j.IsActive,
		j.SalaryMin, j.SalaryMax, string(skills), ts, ts,
	)
	if err != nil {
		return false, fmt.Errorf("upserting %s: %w", j.IdentityKey, err)
	}
	return inserted, nil
}

// GetJob returns the stored job for identityKey.
func (s *SQLiteStore) GetJob(ctx context.Context, identityKey string) (model.CanonicalJob, error) {
	var (
		j                   model.CanonicalJob
		location, dept      sql.NullString
		desc, applyURL      sql.NullString
		postedAt            sql.NullString
		employment, source  string
		skills              string
		createdAt, updateAt string
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT external_id, company, title, location, department, employment_type,
			description, apply_url, posted_at, source, is_remote, is_active,
			min_salary, max_salary, skills, created_at, updated_at
		FROM jobs WHERE external_id = ?`, identityKey,
	).Scan(
		&j.IdentityKey, &j.Company, &j.Title, &location, &dept, &employment,
		&desc, &applyURL, &postedAt, &source, &j.IsRemote, &j.IsActive,
		&j.SalaryMin, &j.SalaryMax, &skills, &createdAt, &updateAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return model.CanonicalJob{}, model.ErrNotFound
	}
	if err != nil {
		return model.CanonicalJob{}, fmt.Errorf("reading job %s: %w", identityKey, err)
	}

	j.Location = nullString(location)
	j.Department = nullString(dept)
	j.Description = nullString(desc)
	j.ApplyURL = applyURL.String
	j.EmploymentType = model.EmploymentType(employment)
	j.Source = model.Source(source)
	if postedAt.Valid {
		t, err := parseTime(postedAt.String)
		if err != nil {
			return model.CanonicalJob{}, err
		}
		j.PostedAt = &t
	}
	if err := json.Unmarshal([]byte(skills), &j.Skills); err != nil {
		return model.CanonicalJob{}, fmt.Errorf("decoding skills for %s: %w", identityKey, err)
	}
	if j.CreatedAt, err = parseTime(createdAt); err != nil {
		return model.CanonicalJob{}, err
	}
	if j.UpdatedAt, err = parseTime(updateAt); err != nil {
		return model.CanonicalJob{}, err
	}
	return j, nil
}

// DeactivateStale marks active jobs not refreshed since before as inactive.
func (s *SQLiteStore) DeactivateStale(ctx context.Context, before time.Time) (int64, error) {
	r, err := s.db.ExecContext(ctx,
		`UPDATE jobs SET is_active = 0 WHERE is_active = 1 AND updated_at < ?`, formatTime(before))
	if err != nil {
		return 0, fmt.Errorf("deactivating stale jobs: %w", err)
	}
	return r.RowsAffected()
}

// StartRun opens a RUNNING history row and returns its id.
func (s *SQLiteStore) StartRun(ctx context.Context, pipeline string, start time.Time) (int64, error) {
	r, err := s.db.ExecContext(ctx,
		`INSERT INTO job_sync_history (pipeline_name, start_time, status) VALUES (?, ?, 'RUNNING')`,
		pipeline, formatTime(start))
	if err != nil {
		return 0, fmt.Errorf("starting run for %s: %w", pipeline, err)
	}
	return r.LastInsertId()
}

// FinishRun writes the terminal state of run. Rows that are no longer
// RUNNING are left alone and ErrRunFinalized is returned.
func (s *SQLiteStore) FinishRun(ctx context.Context, run model.SyncRun) error {
	if err := checkTerminal(run); err != nil {
		return err
	}
	r, err := s.db.ExecContext(ctx, `
		UPDATE job_sync_history SET
			end_time = ?, status = ?, mode = ?,
			jobs_processed = ?, jobs_inserted = ?, jobs_updated = ?,
			jobs_failed = ?, pages_failed = ?,
			cursor_value = ?, error_message = ?
		WHERE id = ? AND status = 'RUNNING'`,
		formatTimePtr(run.EndTime), string(run.Status), string(run.Mode),
		run.JobsProcessed, run.JobsInserted, run.JobsUpdated,
		run.JobsFailed, run.PagesFailed,
		nullable(run.CursorValue), nullable(run.ErrorMessage),
		run.ID,
	)
	if err != nil {
		return fmt.Errorf("finishing run %d: %w", run.ID, err)
	}
	n, err := r.RowsAffected()
	if err != nil {
		return err
	}
	if n == 1 {
		return nil
	}

	var exists int
	err = s.db.QueryRowContext(ctx, `SELECT 1 FROM job_sync_history WHERE id = ?`, run.ID).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return model.ErrNotFound
	}
	if err != nil {
		return err
	}
	return model.ErrRunFinalized
}

// LastCursor returns the cursor of the latest successful run of pipeline,
// or "" if there is none.
func (s *SQLiteStore) LastCursor(ctx context.Context, pipeline string) (string, error) {
	var cursor sql.NullString
	err := s.db.QueryRowContext(ctx, `
		SELECT cursor_value FROM job_sync_history
		WHERE pipeline_name = ? AND status = 'SUCCESS'
		ORDER BY start_time DESC, id DESC
		LIMIT 1`, pipeline,
	).Scan(&cursor)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("reading cursor for %s: %w", pipeline, err)
	}
	return cursor.String, nil
}

// ListRuns returns the most recent runs, newest first. An empty pipeline
// lists every pipeline.
func (s *SQLiteStore) ListRuns(ctx context.Context, pipeline string, limit int) ([]model.SyncRun, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, pipeline_name, mode, start_time, end_time, status,
			jobs_processed, jobs_inserted, jobs_updated, jobs_failed, pages_failed,
			cursor_value, error_message
		FROM job_sync_history
		WHERE ? = '' OR pipeline_name = ?
		ORDER BY start_time DESC, id DESC
		LIMIT ?`, pipeline, pipeline, limit)
	if err != nil {
		return nil, fmt.Errorf("listing runs: %w", err)
	}
	defer rows.Close()

	var runs []model.SyncRun
	for rows.Next() {
		var (
			run                        model.SyncRun
			mode, end, cursor, message sql.NullString
			start, status              string
		)
		if err := rows.Scan(
			&run.ID, &run.PipelineName, &mode, &start, &end, &status,
			&run.JobsProcessed, &run.JobsInserted, &run.JobsUpdated, &run.JobsFailed, &run.PagesFailed,
			&cursor, &message,
		); err != nil {
			return nil, fmt.Errorf("scanning run: %w", err)
		}
		run.Mode = model.SyncMode(mode.String)
		run.Status = model.RunStatus(status)
		run.CursorValue = cursor.String
		run.ErrorMessage = message.String
		if run.StartTime, err = parseTime(start); err != nil {
			return nil, err
		}
		if end.Valid {
			t, err := parseTime(end.String)
			if err != nil {
				return nil, err
			}
			run.EndTime = &t
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// AbandonStale fails RUNNING rows that started before the cutoff. These are
// left behind by processes that died mid-run.
func (s *SQLiteStore) AbandonStale(ctx context.Context, before time.Time, message string) (int64, error) {
	r, err := s.db.ExecContext(ctx, `
		UPDATE job_sync_history SET status = 'FAILED', end_time = ?, error_message = ?
		WHERE status = 'RUNNING' AND start_time < ?`,
		formatTime(s.now()), message, formatTime(before))
	if err != nil {
		return 0, fmt.Errorf("abandoning stale runs: %w", err)
	}
	return r.RowsAffected()
}

// RecordEmail stores that jobID was sent to userID. It reports false when
// the pair was already recorded.
func (s *SQLiteStore) RecordEmail(ctx context.Context, userID, jobID string, sentAt time.Time) (bool, error) {
	r, err := s.db.ExecContext(ctx,
		`INSERT INTO email_log (user_id, job_id, sent_at) VALUES (?, ?, ?)
		 ON CONFLICT (user_id, job_id) DO NOTHING`,
		userID, jobID, formatTime(sentAt))
	if err != nil {
		return false, fmt.Errorf("recording email %s/%s: %w", userID, jobID, err)
	}
	n, err := r.RowsAffected()
	return n == 1, err
}

// HasEmailed reports whether jobID was already sent to userID.
func (s *SQLiteStore) HasEmailed(ctx context.Context, userID, jobID string) (bool, error) {
	var exists int
	err := s.db.QueryRowContext(ctx,
		`SELECT 1 FROM email_log WHERE user_id = ? AND job_id = ?`, userID, jobID).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("checking email %s/%s: %w", userID, jobID, err)
	}
	return true, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func formatTime(t time.Time) string {
	return t.UTC().Format(sqliteTime)
}

func formatTimePtr(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := formatTime(*t)
	return &s
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(sqliteTime, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing stored time %q: %w", s, err)
	}
	return t, nil
}

func nullString(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	return &ns.String
}
