package repository

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/lib/pq"
)

type PostMediaRepository interface {
	Attach(ctx context.Context, tx *sql.Tx, postID int64, assetIDs []int64) error
}

type postMediaRepository struct {
	db *sql.DB
}

func NewPostMediaRepository(db *sql.DB) PostMediaRepository {
	return &postMediaRepository{db: db}
}

// Attach links assets to a post in one statement. The slice order becomes the
// display order, starting at 0.
func (r *postMediaRepository) Attach(ctx context.Context, tx *sql.Tx, postID int64, assetIDs []int64) error {
	if len(assetIDs) == 0 {
		return nil
	}

	query := `
		INSERT INTO post_media (post_id, asset_id, display_order)
		SELECT $1, t.asset_id, t.ord - 1
		FROM unnest($2::bigint[]) WITH ORDINALITY AS t(asset_id, ord)
	`
	if _, err := execer(r.db, tx).ExecContext(ctx, query, postID, pq.Array(assetIDs)); err != nil {
		slog.Info(err.Error())
		return fmt.Errorf("attach media to post %d: %w", postID, err)
	}
	return nil
}
