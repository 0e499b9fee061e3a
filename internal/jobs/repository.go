package jobs

import (
	"context"
	"database/sql"
	"time"
)

type Repository interface {
	Create(ctx context.Context, job *ExportJob) error
	Get(ctx context.Context, id string) (*ExportJob, error)
	List(ctx context.Context, limit int) ([]*ExportJob, error)
	ListByProject(ctx context.Context, projectID string) ([]*ExportJob, error)
	UpdateStatus(ctx context.Context, id, status, failureKind, errorMsg string) error
	UpdateProgress(ctx context.Context, id string, progress int, stage string) error
	UpdateAttempts(ctx context.Context, id string, attempts int) error
	SetOutputPath(ctx context.Context, id, path string) error

	GetConfig(ctx context.Context, key string) (string, error)
	SetConfig(ctx context.Context, key, value string) error
}

type SQLiteRepository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

const jobColumns = `id, project_id, status, stage, progress, resolution, aspect, attempts, failure_kind, error, output_path, created_at, updated_at`

func (r *SQLiteRepository) Create(ctx context.Context, j *ExportJob) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO export_jobs (`+jobColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, j.ID, j.ProjectID, j.Status, j.Stage, j.Progress, j.Resolution, j.Aspect,
		j.Attempts, nullString(j.FailureKind), nullString(j.Error), nullString(j.OutputPath),
		j.CreatedAt.Format(time.RFC3339), j.UpdatedAt.Format(time.RFC3339))
	return err
}

func (r *SQLiteRepository) Get(ctx context.Context, id string) (*ExportJob, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+jobColumns+` FROM export_jobs WHERE id = ?`, id)
	return scanJob(row)
}

func (r *SQLiteRepository) List(ctx context.Context, limit int) ([]*ExportJob, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+jobColumns+` FROM export_jobs ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectJobs(rows)
}

func (r *SQLiteRepository) ListByProject(ctx context.Context, projectID string) ([]*ExportJob, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+jobColumns+` FROM export_jobs WHERE project_id = ? ORDER BY created_at DESC`, projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectJobs(rows)
}

func (r *SQLiteRepository) UpdateStatus(ctx context.Context, id, status, failureKind, errorMsg string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE export_jobs SET status = ?, failure_kind = ?, error = ?, updated_at = datetime('now') WHERE id = ?
	`, status, nullString(failureKind), nullString(errorMsg), id)
	return err
}

func (r *SQLiteRepository) UpdateProgress(ctx context.Context, id string, progress int, stage string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE export_jobs SET progress = ?, stage = ?, updated_at = datetime('now') WHERE id = ?
	`, progress, stage, id)
	return err
}

func (r *SQLiteRepository) UpdateAttempts(ctx context.Context, id string, attempts int) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE export_jobs SET attempts = ?, updated_at = datetime('now') WHERE id = ?
	`, attempts, id)
	return err
}

func (r *SQLiteRepository) SetOutputPath(ctx context.Context, id, path string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE export_jobs SET output_path = ?, updated_at = datetime('now') WHERE id = ?
	`, nullString(path), id)
	return err
}

func (r *SQLiteRepository) GetConfig(ctx context.Context, key string) (string, error) {
	var value string
	err := r.db.QueryRowContext(ctx, "SELECT value FROM config WHERE key = ?", key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	return value, err
}

func (r *SQLiteRepository) SetConfig(ctx context.Context, key, value string) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO config (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, key, value)
	return err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanJob(row rowScanner) (*ExportJob, error) {
	var j ExportJob
	var failureKind, errMsg, outputPath sql.NullString
	var createdAt, updatedAt string

	err := row.Scan(&j.ID, &j.ProjectID, &j.Status, &j.Stage, &j.Progress,
		&j.Resolution, &j.Aspect, &j.Attempts, &failureKind, &errMsg, &outputPath,
		&createdAt, &updatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	j.FailureKind = failureKind.String
	j.Error = errMsg.String
	j.OutputPath = outputPath.String
	j.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	j.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
	return &j, nil
}

func collectJobs(rows *sql.Rows) ([]*ExportJob, error) {
	var out []*ExportJob
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, j)
	}
	return out, rows.Err()
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
