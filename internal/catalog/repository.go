package catalog

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"
)

type Repository interface {
	CreateAsset(ctx context.Context, asset *Asset) error
	GetAsset(ctx context.Context, id string) (*Asset, error)
	GetAssetByPath(ctx context.Context, path string) (*Asset, error)
	ListAssets(ctx context.Context) ([]*Asset, error)
	DeleteAsset(ctx context.Context, id string) error
	UpdateAssetThumbnail(ctx context.Context, id, thumbnailPath string) error
	CountAssets(ctx context.Context) (int, error)

	CreateJob(ctx context.Context, job *AdaptationJob) error
	GetJob(ctx context.Context, id string) (*AdaptationJob, error)
	ListJobs(ctx context.Context, limit int) ([]*AdaptationJob, error)
	ListQueuedJobs(ctx context.Context) ([]*AdaptationJob, error)
	UpdateJobStatus(ctx context.Context, id, status, errorMsg string) error
	UpdateJobProgress(ctx context.Context, id string, progress int) error

	CreateRendition(ctx context.Context, r *Rendition) error
	GetRendition(ctx context.Context, id string) (*Rendition, error)
	ListRenditionsByJob(ctx context.Context, jobID string) ([]*Rendition, error)
	CountRenditions(ctx context.Context) (int, error)

	GetConfig(ctx context.Context, key string) (string, error)
	SetConfig(ctx context.Context, key, value string) error
}

type SQLiteRepository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

const assetColumns = `id, filename, path, width, height, duration, frame_rate,
	video_codec, audio_codec, pixel_format, size_bytes, thumbnail_path, created_at`

func (r *SQLiteRepository) CreateAsset(ctx context.Context, a *Asset) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO assets (`+assetColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, a.ID, a.Filename, a.Path, a.Width, a.Height, a.Duration, a.FrameRate,
		a.VideoCodec, a.AudioCodec, a.PixelFormat, a.SizeBytes, a.ThumbnailPath,
		a.CreatedAt.Format(time.RFC3339))
	return err
}

func (r *SQLiteRepository) GetAsset(ctx context.Context, id string) (*Asset, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+assetColumns+` FROM assets WHERE id = ?`, id)
	return scanAsset(row)
}

func (r *SQLiteRepository) GetAssetByPath(ctx context.Context, path string) (*Asset, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+assetColumns+` FROM assets WHERE path = ?`, path)
	return scanAsset(row)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAsset(row rowScanner) (*Asset, error) {
	var a Asset
	var createdAt string
	err := row.Scan(&a.ID, &a.Filename, &a.Path, &a.Width, &a.Height, &a.Duration,
		&a.FrameRate, &a.VideoCodec, &a.AudioCodec, &a.PixelFormat, &a.SizeBytes,
		&a.ThumbnailPath, &createdAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	a.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	return &a, nil
}

func (r *SQLiteRepository) ListAssets(ctx context.Context) ([]*Asset, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+assetColumns+` FROM assets ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var assets []*Asset
	for rows.Next() {
		a, err := scanAsset(rows)
		if err != nil {
			return nil, err
		}
		assets = append(assets, a)
	}
	return assets, rows.Err()
}

func (r *SQLiteRepository) DeleteAsset(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, "DELETE FROM assets WHERE id = ?", id)
	return err
}

func (r *SQLiteRepository) UpdateAssetThumbnail(ctx context.Context, id, thumbnailPath string) error {
	_, err := r.db.ExecContext(ctx,
		"UPDATE assets SET thumbnail_path = ? WHERE id = ?", thumbnailPath, id)
	return err
}

func (r *SQLiteRepository) CountAssets(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM assets").Scan(&count)
	return count, err
}

const jobColumns = `id, asset_id, status, params, progress, error, created_at, updated_at`

func (r *SQLiteRepository) CreateJob(ctx context.Context, j *AdaptationJob) error {
	params, err := json.Marshal(j.Params)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO jobs (`+jobColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, j.ID, j.AssetID, j.Status, string(params), j.Progress, j.Error,
		j.CreatedAt.Format(time.RFC3339), j.UpdatedAt.Format(time.RFC3339))
	return err
}

func (r *SQLiteRepository) GetJob(ctx context.Context, id string) (*AdaptationJob, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+jobColumns+` FROM jobs WHERE id = ?`, id)
	return scanJob(row)
}

func scanJob(row rowScanner) (*AdaptationJob, error) {
	var j AdaptationJob
	var params, createdAt, updatedAt string
	err := row.Scan(&j.ID, &j.AssetID, &j.Status, &params, &j.Progress, &j.Error,
		&createdAt, &updatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	_ = json.Unmarshal([]byte(params), &j.Params)
	j.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	j.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
	return &j, nil
}

func (r *SQLiteRepository) ListJobs(ctx context.Context, limit int) ([]*AdaptationJob, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+jobColumns+` FROM jobs ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectJobs(rows)
}

func (r *SQLiteRepository) ListQueuedJobs(ctx context.Context) ([]*AdaptationJob, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+jobColumns+` FROM jobs WHERE status = ? ORDER BY created_at ASC`,
		JobStatusQueued)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectJobs(rows)
}

func collectJobs(rows *sql.Rows) ([]*AdaptationJob, error) {
	var jobs []*AdaptationJob
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, j)
	}
	return jobs, rows.Err()
}

func (r *SQLiteRepository) UpdateJobStatus(ctx context.Context, id, status, errorMsg string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE jobs SET status = ?, error = ?, updated_at = ? WHERE id = ?
	`, status, errorMsg, time.Now().Format(time.RFC3339), id)
	return err
}

func (r *SQLiteRepository) UpdateJobProgress(ctx context.Context, id string, progress int) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE jobs SET progress = ?, updated_at = ? WHERE id = ?
	`, progress, time.Now().Format(time.RFC3339), id)
	return err
}

const renditionColumns = `id, job_id, format_key, width, height, fps, path, size_bytes, created_at`

func (r *SQLiteRepository) CreateRendition(ctx context.Context, rd *Rendition) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO renditions (`+renditionColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, rd.ID, rd.JobID, rd.FormatKey, rd.Width, rd.Height, rd.FPS, rd.Path,
		rd.SizeBytes, rd.CreatedAt.Format(time.RFC3339))
	return err
}

func (r *SQLiteRepository) GetRendition(ctx context.Context, id string) (*Rendition, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+renditionColumns+` FROM renditions WHERE id = ?`, id)
	return scanRendition(row)
}

func scanRendition(row rowScanner) (*Rendition, error) {
	var rd Rendition
	var createdAt string
	err := row.Scan(&rd.ID, &rd.JobID, &rd.FormatKey, &rd.Width, &rd.Height,
		&rd.FPS, &rd.Path, &rd.SizeBytes, &createdAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	rd.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	return &rd, nil
}

func (r *SQLiteRepository) ListRenditionsByJob(ctx context.Context, jobID string) ([]*Rendition, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+renditionColumns+` FROM renditions WHERE job_id = ? ORDER BY format_key ASC`,
		jobID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var renditions []*Rendition
	for rows.Next() {
		rd, err := scanRendition(rows)
		if err != nil {
			return nil, err
		}
		renditions = append(renditions, rd)
	}
	return renditions, rows.Err()
}

func (r *SQLiteRepository) CountRenditions(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM renditions").Scan(&count)
	return count, err
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
