package service

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/maheshrc27/crosspost/internal/models"
	"github.com/maheshrc27/crosspost/internal/publish"
	"github.com/maheshrc27/crosspost/internal/upload"
	"github.com/stretchr/testify/mock"
)

type accountRepoStub struct {
	mock.Mock
}

func (m *accountRepoStub) Create(ctx context.Context, tx *sql.Tx, sa *models.SocialAccount) (int64, error) {
	args := m.Called(ctx, tx, sa)
	return args.Get(0).(int64), args.Error(1)
}

func (m *accountRepoStub) GetByID(ctx context.Context, id int64) (*models.SocialAccount, error) {
	args := m.Called(ctx, id)
	sa, _ := args.Get(0).(*models.SocialAccount)
	return sa, args.Error(1)
}

func (m *accountRepoStub) GetByUserAndPlatform(ctx context.Context, userID int64, platform string) (*models.SocialAccount, error) {
	args := m.Called(ctx, userID, platform)
	sa, _ := args.Get(0).(*models.SocialAccount)
	return sa, args.Error(1)
}

func (m *accountRepoStub) ListInfoByUserID(ctx context.Context, userID int64) ([]*models.SocialAccount, error) {
	args := m.Called(ctx, userID)
	accounts, _ := args.Get(0).([]*models.SocialAccount)
	return accounts, args.Error(1)
}

func (m *accountRepoStub) ListByTimeInterval(ctx context.Context, initialTime, finalTime time.Time) ([]*models.SocialAccount, error) {
	args := m.Called(ctx, initialTime, finalTime)
	accounts, _ := args.Get(0).([]*models.SocialAccount)
	return accounts, args.Error(1)
}

func (m *accountRepoStub) CheckByUserID(ctx context.Context, accountID, userID int64) (bool, error) {
	args := m.Called(ctx, accountID, userID)
	return args.Bool(0), args.Error(1)
}

func (m *accountRepoStub) UpdateToken(ctx context.Context, sa *models.SocialAccount) error {
	return m.Called(ctx, sa).Error(0)
}

func (m *accountRepoStub) Remove(ctx context.Context, id int64) error {
	return m.Called(ctx, id).Error(0)
}

func noSleep(context.Context, time.Duration) error { return nil }

type staticFetcher struct {
	blobs map[string]*upload.Blob
}

func (f staticFetcher) Fetch(_ context.Context, url string) (*upload.Blob, error) {
	b, ok := f.blobs[url]
	if !ok {
		return nil, fmt.Errorf("unexpected status 404 fetching %s", url)
	}
	return &upload.Blob{Data: b.Data, MIMEType: b.MIMEType}, nil
}

func bearerConn(provider publish.Provider, accountID, token string) *publish.Connection {
	return &publish.Connection{Provider: provider, AccountID: accountID, AccessToken: token, Scheme: publish.SchemePrimary}
}

func testClient(url string) ClientOptions {
	return ClientOptions{BaseURL: url, Timeout: 5 * time.Second}
}

type postRepoStub struct {
	mock.Mock
}

func (m *postRepoStub) GetByID(ctx context.Context, id int64) (*models.Post, error) {
	args := m.Called(ctx, id)
	p, _ := args.Get(0).(*models.Post)
	return p, args.Error(1)
}

func (m *postRepoStub) Create(ctx context.Context, tx *sql.Tx, post *models.Post) (int64, error) {
	args := m.Called(ctx, tx, post)
	return args.Get(0).(int64), args.Error(1)
}

func (m *postRepoStub) GetByUserID(ctx context.Context, userID int64) ([]*models.Post, error) {
	args := m.Called(ctx, userID)
	posts, _ := args.Get(0).([]*models.Post)
	return posts, args.Error(1)
}

func (m *postRepoStub) UpdatePostStatus(ctx context.Context, status string, postID int64) error {
	return m.Called(ctx, status, postID).Error(0)
}

func (m *postRepoStub) CheckByUserID(ctx context.Context, postID, userID int64) (bool, error) {
	args := m.Called(ctx, postID, userID)
	return args.Bool(0), args.Error(1)
}

func (m *postRepoStub) Remove(ctx context.Context, id int64) error {
	return m.Called(ctx, id).Error(0)
}

type selectedRepoStub struct {
	mock.Mock
}

func (m *selectedRepoStub) Select(ctx context.Context, tx *sql.Tx, postID int64, accountIDs []int64) error {
	return m.Called(ctx, tx, postID, accountIDs).Error(0)
}

func (m *selectedRepoStub) ListByPostID(ctx context.Context, postID int64) ([]*models.SelectedAccount, error) {
	args := m.Called(ctx, postID)
	accounts, _ := args.Get(0).([]*models.SelectedAccount)
	return accounts, args.Error(1)
}

type assetRepoStub struct {
	mock.Mock
}

func (m *assetRepoStub) Create(ctx context.Context, tx *sql.Tx, ma *models.MediaAsset) (int64, error) {
	args := m.Called(ctx, tx, ma)
	return args.Get(0).(int64), args.Error(1)
}

func (m *assetRepoStub) GetByID(ctx context.Context, id int64) (*models.MediaAsset, error) {
	args := m.Called(ctx, id)
	ma, _ := args.Get(0).(*models.MediaAsset)
	return ma, args.Error(1)
}

func (m *assetRepoStub) ListByPostID(ctx context.Context, postID int64) ([]*models.MediaAsset, error) {
	args := m.Called(ctx, postID)
	assets, _ := args.Get(0).([]*models.MediaAsset)
	return assets, args.Error(1)
}

func (m *assetRepoStub) Remove(ctx context.Context, id int64) error {
	return m.Called(ctx, id).Error(0)
}

type postMediaRepoStub struct {
	mock.Mock
}

func (m *postMediaRepoStub) Attach(ctx context.Context, tx *sql.Tx, postID int64, assetIDs []int64) error {
	return m.Called(ctx, tx, postID, assetIDs).Error(0)
}

type historyRepoStub struct {
	mock.Mock
}

func (m *historyRepoStub) Create(ctx context.Context, ph *models.PostingHistory) (int64, error) {
	args := m.Called(ctx, ph)
	return args.Get(0).(int64), args.Error(1)
}

func (m *historyRepoStub) GetByUserID(ctx context.Context, userID int64, limit int) ([]*models.PostingHistory, error) {
	args := m.Called(ctx, userID, limit)
	h, _ := args.Get(0).([]*models.PostingHistory)
	return h, args.Error(1)
}

func (m *historyRepoStub) GetByPostID(ctx context.Context, postID int64) ([]*models.PostingHistory, error) {
	args := m.Called(ctx, postID)
	h, _ := args.Get(0).([]*models.PostingHistory)
	return h, args.Error(1)
}

type apiKeyRepoStub struct {
	mock.Mock
}

func (m *apiKeyRepoStub) GetUserID(ctx context.Context, apiKey string) (int64, bool, error) {
	args := m.Called(ctx, apiKey)
	return args.Get(0).(int64), args.Bool(1), args.Error(2)
}

type r2Stub struct {
	mock.Mock
}

func (m *r2Stub) UploadToR2(ctx context.Context, key string, file []byte, filetype string) (string, error) {
	args := m.Called(ctx, key, file, filetype)
	return args.String(0), args.Error(1)
}
