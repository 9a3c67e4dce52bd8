package postgres

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/tinybites/tinybites/internal/storage"
)

type reportsStorage struct {
	pool *pgxpool.Pool
}

func newReportsStorage(pool *pgxpool.Pool) *reportsStorage {
	return &reportsStorage{pool: pool}
}

func (s *reportsStorage) CreateReport(ctx context.Context, report *storage.ReportMeta) error {
	if report.ID == uuid.Nil {
		report.ID = uuid.New()
	}

	query := `
		INSERT INTO reports (id, owner_user_id, baby_id, format, from_date, to_date,
		                     object_key, size_bytes, status, error)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING created_at
	`

	return s.pool.QueryRow(ctx, query,
		report.ID,
		report.OwnerUserID,
		report.BabyID,
		report.Format,
		report.FromDate,
		report.ToDate,
		report.ObjectKey,
		report.SizeBytes,
		report.Status,
		report.Error,
	).Scan(&report.CreatedAt)
}

func (s *reportsStorage) GetReport(ctx context.Context, ownerUserID string, id uuid.UUID) (storage.ReportMeta, bool, error) {
	query := `
		SELECT id, owner_user_id, baby_id, format,
		       to_char(from_date, 'YYYY-MM-DD'), to_char(to_date, 'YYYY-MM-DD'),
		       object_key, size_bytes, status, error, created_at
		FROM reports
		WHERE id = $1 AND owner_user_id = $2
	`

	var r storage.ReportMeta
	err := s.pool.QueryRow(ctx, query, id, ownerUserID).Scan(
		&r.ID,
		&r.OwnerUserID,
		&r.BabyID,
		&r.Format,
		&r.FromDate,
		&r.ToDate,
		&r.ObjectKey,
		&r.SizeBytes,
		&r.Status,
		&r.Error,
		&r.CreatedAt,
	)

	if errors.Is(err, pgx.ErrNoRows) {
		return storage.ReportMeta{}, false, nil
	}
	if err != nil {
		return storage.ReportMeta{}, false, err
	}

	return r, true, nil
}

func (s *reportsStorage) ListReports(ctx context.Context, ownerUserID string, limit, offset int) ([]storage.ReportMeta, error) {
	if limit <= 0 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	query := `
		SELECT id, owner_user_id, baby_id, format,
		       to_char(from_date, 'YYYY-MM-DD'), to_char(to_date, 'YYYY-MM-DD'),
		       object_key, size_bytes, status, error, created_at
		FROM reports
		WHERE owner_user_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`

	rows, err := s.pool.Query(ctx, query, ownerUserID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	reports := []storage.ReportMeta{}
	for rows.Next() {
		var r storage.ReportMeta
		err := rows.Scan(
			&r.ID,
			&r.OwnerUserID,
			&r.BabyID,
			&r.Format,
			&r.FromDate,
			&r.ToDate,
			&r.ObjectKey,
			&r.SizeBytes,
			&r.Status,
			&r.Error,
			&r.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		reports = append(reports, r)
	}

	return reports, rows.Err()
}

func (s *reportsStorage) DeleteReport(ctx context.Context, ownerUserID string, id uuid.UUID) error {
	query := `DELETE FROM reports WHERE id = $1 AND owner_user_id = $2`

	tag, err := s.pool.Exec(ctx, query, id, ownerUserID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
