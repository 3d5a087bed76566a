package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/maheshrc27/crosspost/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var postRowColumns = []string{
	"id", "user_id", "post_type", "caption", "title", "hashtags", "mentions", "privacy_level",
	"extensions", "scheduled_time", "status", "created_at", "updated_at",
}

func TestCreatePost(t *testing.T) {
	db, mock := newMock(t)
	repo := NewPostRepository(db)
	at := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`INSERT INTO posts`).
		WithArgs(int64(7), "single", "Shipping today", "", sqlmock.AnyArg(), sqlmock.AnyArg(), "SELF_ONLY", []byte("{}"), at).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(42))

	id, err := repo.Create(context.Background(), nil, &models.Post{
		UserID:        7,
		PostType:      "single",
		Caption:       "Shipping today",
		Hashtags:      []string{"golang"},
		PrivacyLevel:  "SELF_ONLY",
		ScheduledTime: at,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(42), id)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetPostByID(t *testing.T) {
	db, mock := newMock(t)
	repo := NewPostRepository(db)
	at := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`SELECT (.+) FROM posts WHERE id = \$1`).WithArgs(int64(42)).
		WillReturnRows(sqlmock.NewRows(postRowColumns).
			AddRow(42, 7, "single", "Shipping today", "", []byte("{golang,release}"), []byte("{gopher}"), "",
				[]byte(`{"youtube_title":"Launch"}`), at, "scheduled", at, at))

	post, err := repo.GetByID(context.Background(), 42)
	require.NoError(t, err)
	require.NotNil(t, post)
	assert.Equal(t, []string{"golang", "release"}, post.Hashtags)
	assert.Equal(t, []string{"gopher"}, post.Mentions)
	assert.JSONEq(t, `{"youtube_title":"Launch"}`, string(post.Extensions))
	assert.IsType(t, json.RawMessage{}, post.Extensions)
}

func TestGetPostByIDMissing(t *testing.T) {
	db, mock := newMock(t)
	repo := NewPostRepository(db)

	mock.ExpectQuery(`FROM posts`).WillReturnError(sql.ErrNoRows)

	post, err := repo.GetByID(context.Background(), 1)
	assert.NoError(t, err)
	assert.Nil(t, post)
}

func TestUpdatePostStatus(t *testing.T) {
	db, mock := newMock(t)
	repo := NewPostRepository(db)

	mock.ExpectExec(`UPDATE posts`).WithArgs(models.PostStatusPartial, sqlmock.AnyArg(), int64(42)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.UpdatePostStatus(context.Background(), models.PostStatusPartial, 42))
	assert.NoError(t, mock.ExpectationsWereMet())
}
