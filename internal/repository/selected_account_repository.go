package repository

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/lib/pq"
	"github.com/maheshrc27/crosspost/internal/models"
)

type SelectedAccountRepository interface {
	Select(ctx context.Context, tx *sql.Tx, postID int64, accountIDs []int64) error
	ListByPostID(ctx context.Context, postID int64) ([]*models.SelectedAccount, error)
}

type selectedAccountRepository struct {
	db *sql.DB
}

func NewSelectedAccountRepository(db *sql.DB) SelectedAccountRepository {
	return &selectedAccountRepository{db: db}
}

// Select records the accounts a post goes out to. Repeated ids are stored once.
func (r *selectedAccountRepository) Select(ctx context.Context, tx *sql.Tx, postID int64, accountIDs []int64) error {
	if len(accountIDs) == 0 {
		return nil
	}

	query := `
		INSERT INTO selected_accounts (post_id, account_id)
		SELECT DISTINCT $1::bigint, unnest($2::bigint[])
		ON CONFLICT DO NOTHING
	`
	if _, err := execer(r.db, tx).ExecContext(ctx, query, postID, pq.Array(accountIDs)); err != nil {
		slog.Info(err.Error())
		return fmt.Errorf("select accounts for post %d: %w", postID, err)
	}
	return nil
}

func (r *selectedAccountRepository) ListByPostID(ctx context.Context, postID int64) ([]*models.SelectedAccount, error) {
	query := `
		SELECT post_id, account_id, created_at, updated_at
		FROM selected_accounts
		WHERE post_id = $1
		ORDER BY account_id
	`

	rows, err := r.db.QueryContext(ctx, query, postID)
	if err != nil {
		slog.Info(err.Error())
		return nil, fmt.Errorf("query rows: %w", err)
	}
	defer rows.Close()

	var accounts []*models.SelectedAccount
	for rows.Next() {
		var sa models.SelectedAccount
		if err := rows.Scan(&sa.PostID, &sa.AccountID, &sa.CreatedAt, &sa.UpdatedAt); err != nil {
			slog.Info(err.Error())
			return nil, fmt.Errorf("scan row: %w", err)
		}
		accounts = append(accounts, &sa)
	}

	if err := rows.Err(); err != nil {
		slog.Info(err.Error())
		return nil, fmt.Errorf("rows iteration: %w", err)
	}

	return accounts, nil
}
