package repository

import (
	"context"
	"database/sql"
	"log/slog"

	"github.com/maheshrc27/crosspost/internal/models"
)

type MediaAssetRepository interface {
	Create(ctx context.Context, tx *sql.Tx, ma *models.MediaAsset) (int64, error)
	GetByID(ctx context.Context, id int64) (*models.MediaAsset, error)
	ListByPostID(ctx context.Context, postID int64) ([]*models.MediaAsset, error)
	Remove(ctx context.Context, id int64) error
}

type mediaAssetRepository struct {
	db *sql.DB
}

func NewMediaAssetRepository(db *sql.DB) MediaAssetRepository {
	return &mediaAssetRepository{db: db}
}

const mediaAssetColumns = `ma.id, ma.user_id, ma.file_name, ma.file_type, ma.file_size, ma.file_url,
	ma.thumbnail_url, ma.media_kind, ma.duration_seconds, ma.width, ma.height, ma.alt_text, ma.created_at`

func scanMediaAsset(row rowScanner) (*models.MediaAsset, error) {
	var ma models.MediaAsset
	err := row.Scan(&ma.ID, &ma.UserID, &ma.FileName, &ma.FileType, &ma.FileSize, &ma.FileURL,
		&ma.ThumbnailURL, &ma.MediaKind, &ma.Duration, &ma.Width, &ma.Height, &ma.AltText, &ma.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &ma, nil
}

func (r *mediaAssetRepository) Create(ctx context.Context, tx *sql.Tx, ma *models.MediaAsset) (int64, error) {
	var id int64
	var err error

	query := `
		INSERT INTO media_assets (user_id, file_name, file_type, file_size, file_url, media_kind, duration_seconds, width, height, alt_text)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id
	`
	args := []any{ma.UserID, ma.FileName, ma.FileType, ma.FileSize, ma.FileURL, ma.MediaKind, ma.Duration, ma.Width, ma.Height, ma.AltText}
	err = execer(r.db, tx).QueryRowContext(ctx, query, args...).Scan(&id)

	if err != nil {
		slog.Info(err.Error())
		return 0, err
	}

	return id, nil
}

func (r *mediaAssetRepository) GetByID(ctx context.Context, id int64) (*models.MediaAsset, error) {
	query := `SELECT ` + mediaAssetColumns + ` FROM media_assets ma WHERE ma.id = $1`

	ma, err := scanMediaAsset(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		slog.Info(err.Error())
		return nil, err
	}

	return ma, nil
}

// ListByPostID returns the assets attached to a post in display order.
func (r *mediaAssetRepository) ListByPostID(ctx context.Context, postID int64) ([]*models.MediaAsset, error) {
	query := `SELECT ` + mediaAssetColumns + `
		FROM media_assets ma
		JOIN post_media pm ON pm.asset_id = ma.id
		WHERE pm.post_id = $1
		ORDER BY pm.display_order`

	rows, err := r.db.QueryContext(ctx, query, postID)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	var assets []*models.MediaAsset
	for rows.Next() {
		ma, err := scanMediaAsset(rows)
		if err != nil {
			slog.Info(err.Error())
			return nil, err
		}
		assets = append(assets, ma)
	}

	if err := rows.Err(); err != nil {
		slog.Info(err.Error())
		return nil, err
	}

	return assets, nil
}

func (r *mediaAssetRepository) Remove(ctx context.Context, id int64) error {
	query := `DELETE FROM media_assets WHERE id = $1`
	_, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}
