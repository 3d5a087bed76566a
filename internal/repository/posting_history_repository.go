package repository

import (
	"context"
	"database/sql"
	"log/slog"

	"github.com/maheshrc27/crosspost/internal/models"
)

type PostingHistoryRepository interface {
	Create(ctx context.Context, ph *models.PostingHistory) (int64, error)
	GetByUserID(ctx context.Context, userID int64, limit int) ([]*models.PostingHistory, error)
	GetByPostID(ctx context.Context, postID int64) ([]*models.PostingHistory, error)
}

type postingHistoryRepository struct {
	db *sql.DB
}

func NewPostingHistoryRepository(db *sql.DB) PostingHistoryRepository {
	return &postingHistoryRepository{db: db}
}

const postingHistoryColumns = `id, attempt_id, user_id, post_id, account_id, platform, success,
	platform_post_id, post_url, error_kind, error_message, created_at`

func (r *postingHistoryRepository) Create(ctx context.Context, ph *models.PostingHistory) (int64, error) {
	query := `
		INSERT INTO posting_history (attempt_id, user_id, post_id, account_id, platform, success,
			platform_post_id, post_url, error_kind, error_message)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id
	`

	var id int64
	err := r.db.QueryRowContext(ctx, query, ph.AttemptID, ph.UserID, ph.PostID, ph.AccountID, ph.Platform, ph.Success,
		ph.PlatformPostID, ph.PostURL, ph.ErrorKind, ph.ErrorMessage).Scan(&id)
	if err != nil {
		slog.Info(err.Error())
		return 0, err
	}

	return id, nil
}

func (r *postingHistoryRepository) GetByUserID(ctx context.Context, userID int64, limit int) ([]*models.PostingHistory, error) {
	if limit <= 0 {
		limit = 50
	}
	query := `SELECT ` + postingHistoryColumns + ` FROM posting_history WHERE user_id = $1 ORDER BY created_at DESC LIMIT $2`
	return r.list(ctx, query, userID, limit)
}

func (r *postingHistoryRepository) GetByPostID(ctx context.Context, postID int64) ([]*models.PostingHistory, error) {
	query := `SELECT ` + postingHistoryColumns + ` FROM posting_history WHERE post_id = $1 ORDER BY created_at`
	return r.list(ctx, query, postID)
}

func (r *postingHistoryRepository) list(ctx context.Context, query string, args ...any) ([]*models.PostingHistory, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	var phs []*models.PostingHistory
	for rows.Next() {
		var ph models.PostingHistory
		err := rows.Scan(&ph.ID, &ph.AttemptID, &ph.UserID, &ph.PostID, &ph.AccountID, &ph.Platform, &ph.Success,
			&ph.PlatformPostID, &ph.PostURL, &ph.ErrorKind, &ph.ErrorMessage, &ph.CreatedAt)
		if err != nil {
			slog.Info(err.Error())
			return nil, err
		}
		phs = append(phs, &ph)
	}

	if err := rows.Err(); err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	return phs, nil
}
