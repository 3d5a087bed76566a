package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/hibiken/asynq"
	"github.com/maheshrc27/crosspost/internal/models"
	"github.com/maheshrc27/crosspost/internal/publish"
	"github.com/maheshrc27/crosspost/internal/transfer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func withUser(id string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		c.Locals("user_id", id)
		return c.Next()
	}
}

func decode(t *testing.T, resp *http.Response, out any) {
	t.Helper()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(body, out), string(body))
}

type dispatcherFunc func(ctx context.Context, userID int64, provider publish.Provider, content publish.PostContent) publish.PublishResult

func (f dispatcherFunc) DispatchForUser(ctx context.Context, userID int64, provider publish.Provider, content publish.PostContent) publish.PublishResult {
	return f(ctx, userID, provider, content)
}

func TestPublishHandler(t *testing.T) {
	var gotUser int64
	var gotProvider publish.Provider
	var gotContent publish.PostContent
	h := NewPublishHandler(dispatcherFunc(func(_ context.Context, userID int64, provider publish.Provider, content publish.PostContent) publish.PublishResult {
		gotUser, gotProvider, gotContent = userID, provider, content
		if provider == publish.ProviderTwitter {
			return publish.PublishResult{Success: true, PlatformPostID: "1", URL: "https://x.com/i/web/status/1"}
		}
		return publish.Failure(publish.NewError(publish.KindNotConnected, "%s account is not connected", provider))
	}))

	app := fiber.New()
	app.Post("/api/publish/:platform", withUser("7"), h.Publish)

	body := `{"text":"hello","hashtags":["go"],"media":[{"url":"https://cdn.example.com/a.jpg","kind":"image"}]}`
	req := httptest.NewRequest(http.MethodPost, "/api/publish/Twitter", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var result publish.PublishResult
	decode(t, resp, &result)
	assert.True(t, result.Success)
	assert.Equal(t, "1", result.PlatformPostID)
	assert.Equal(t, int64(7), gotUser)
	assert.Equal(t, publish.ProviderTwitter, gotProvider)
	assert.Equal(t, "hello", gotContent.Text)
	require.Len(t, gotContent.Media, 1)
	assert.Equal(t, publish.MediaImage, gotContent.Media[0].Kind)

	req = httptest.NewRequest(http.MethodPost, "/api/publish/facebook", bytes.NewBufferString(`{"text":"hi"}`))
	req.Header.Set("Content-Type", "application/json")
	resp, err = app.Test(req)
	require.NoError(t, err)

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	decode(t, resp, &result)
	assert.False(t, result.Success)
	require.NotNil(t, result.Error)
	assert.Equal(t, publish.KindNotConnected, result.Error.Kind)
}

func TestPublishHandlerRejectsBadBody(t *testing.T) {
	h := NewPublishHandler(dispatcherFunc(func(context.Context, int64, publish.Provider, publish.PostContent) publish.PublishResult {
		t.Fatal("must not dispatch")
		return publish.PublishResult{}
	}))
	app := fiber.New()
	app.Post("/api/publish/:platform", withUser("7"), h.Publish)

	req := httptest.NewRequest(http.MethodPost, "/api/publish/twitter", bytes.NewBufferString(`{"text":`))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	require.NoError(t, err)

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	var result publish.PublishResult
	decode(t, resp, &result)
	assert.Equal(t, publish.KindContent, result.Error.Kind)
}

type postServiceMock struct {
	mock.Mock
}

func (m *postServiceMock) CreatePost(ctx context.Context, userID int64, pc *transfer.PostCreation, files []*multipart.FileHeader) (int64, time.Duration, error) {
	args := m.Called(userID, pc, len(files))
	return args.Get(0).(int64), args.Get(1).(time.Duration), args.Error(2)
}

func (m *postServiceMock) List(ctx context.Context, userID int64) ([]*models.Post, error) {
	args := m.Called(userID)
	posts, _ := args.Get(0).([]*models.Post)
	return posts, args.Error(1)
}

func (m *postServiceMock) PostInfo(ctx context.Context, postID, userID int64) (*models.Post, error) {
	args := m.Called(postID, userID)
	post, _ := args.Get(0).(*models.Post)
	return post, args.Error(1)
}

func (m *postServiceMock) Remove(ctx context.Context, userID, postID int64) error {
	return m.Called(userID, postID).Error(0)
}

func (m *postServiceMock) History(ctx context.Context, userID, postID int64, limit int) ([]*models.PostingHistory, error) {
	args := m.Called(userID, postID, limit)
	h, _ := args.Get(0).([]*models.PostingHistory)
	return h, args.Error(1)
}

type enqueuerStub struct {
	tasks []*asynq.Task
	err   error
}

func (e *enqueuerStub) Enqueue(task *asynq.Task, _ ...asynq.Option) (*asynq.TaskInfo, error) {
	if e.err != nil {
		return nil, e.err
	}
	e.tasks = append(e.tasks, task)
	return &asynq.TaskInfo{ID: "t1"}, nil
}

func multipartPost(t *testing.T, fields map[string]string, file []byte) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	if file != nil {
		part, err := w.CreateFormFile("files", "a.png")
		require.NoError(t, err)
		_, err = part.Write(file)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/posts/create", &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

func TestCreatePostHandler(t *testing.T) {
	svc := &postServiceMock{}
	q := &enqueuerStub{}
	h := NewPostHandler(svc, q)

	app := fiber.New()
	app.Post("/api/posts/create", withUser("3"), h.CreatePost)

	svc.On("CreatePost", int64(3), &transfer.PostCreation{
		Caption:          "hello",
		Hashtags:         "go,cloud",
		PrivacyLevel:     "SELF_ONLY",
		ScheduledTime:    "2024-05-01T12:30",
		SelectedAccounts: "[1,2]",
	}, 1).Return(int64(9), time.Hour, nil)

	resp, err := app.Test(multipartPost(t, map[string]string{
		"caption":           "hello",
		"hashtags":          "go,cloud",
		"privacy_level":     "SELF_ONLY",
		"scheduling_time":   "2024-05-01T12:30",
		"selected_accounts": "[1,2]",
	}, []byte("png")))
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var body map[string]any
	decode(t, resp, &body)
	assert.Equal(t, float64(9), body["post_id"])
	require.Len(t, q.tasks, 1)
	assert.JSONEq(t, `{"post_id":9}`, string(q.tasks[0].Payload()))
}

func TestCreatePostHandlerErrors(t *testing.T) {
	svc := &postServiceMock{}
	q := &enqueuerStub{err: errors.New("redis down")}
	h := NewPostHandler(svc, q)

	app := fiber.New()
	app.Post("/api/posts/create", withUser("3"), h.CreatePost)

	resp, err := app.Test(multipartPost(t, map[string]string{"title": "no content"}, nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	svc.On("CreatePost", int64(3), mock.Anything, 0).Return(int64(0), time.Duration(0), errors.New("no social accounts selected")).Once()
	resp, err = app.Test(multipartPost(t, map[string]string{"caption": "hi"}, nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	svc.On("CreatePost", int64(3), mock.Anything, 0).Return(int64(4), time.Duration(0), nil).Once()
	resp, err = app.Test(multipartPost(t, map[string]string{"caption": "hi"}, nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
}

func TestPostingHistoryHandler(t *testing.T) {
	svc := &postServiceMock{}
	h := NewPostHandler(svc, &enqueuerStub{})

	app := fiber.New()
	app.Get("/api/posts/history", withUser("3"), h.PostingHistory)

	svc.On("History", int64(3), int64(5), 0).Return([]*models.PostingHistory{{
		AttemptID: "01HX",
		PostID:    5,
		Platform:  "tiktok",
		ErrorKind: "RATE_LIMIT",
		CreatedAt: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
	}}, nil)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/posts/history?id=5", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var rows []transfer.PostingHistoryResponse
	decode(t, resp, &rows)
	require.Len(t, rows, 1)
	assert.Equal(t, "RATE_LIMIT", rows[0].ErrorKind)
	assert.Equal(t, "2024-05-01T12:00:00Z", rows[0].AttemptedAt)
}

func TestListAndRemovePosts(t *testing.T) {
	svc := &postServiceMock{}
	h := NewPostHandler(svc, &enqueuerStub{})

	app := fiber.New()
	app.Get("/api/posts", withUser("3"), h.ListPosts)
	app.Post("/api/posts/remove", withUser("3"), h.RemovePost)

	svc.On("List", int64(3)).Return([]*models.Post{{ID: 1}, {ID: 2}}, nil)
	svc.On("PostInfo", int64(2), int64(3)).Return(&models.Post{ID: 2, Caption: "x"}, nil)
	svc.On("Remove", int64(3), int64(2)).Return(nil)
	svc.On("Remove", int64(3), int64(8)).Return(errors.New("Post doesn't exist"))

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/posts", nil))
	require.NoError(t, err)
	var posts []models.Post
	decode(t, resp, &posts)
	assert.Len(t, posts, 2)

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/api/posts?id=2", nil))
	require.NoError(t, err)
	var post models.Post
	decode(t, resp, &post)
	assert.Equal(t, "x", post.Caption)

	resp, err = app.Test(httptest.NewRequest(http.MethodPost, "/api/posts/remove?id=2", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = app.Test(httptest.NewRequest(http.MethodPost, "/api/posts/remove?id=8", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
}

type platformServiceStub struct {
	accounts []*models.SocialAccount
	deleted  []int64
}

func (p *platformServiceStub) List(context.Context, int64) ([]*models.SocialAccount, error) {
	return p.accounts, nil
}

func (p *platformServiceStub) Delete(_ context.Context, _ int64, accountID int64) error {
	if accountID == 0 {
		return errors.New("AccountID is not valid")
	}
	p.deleted = append(p.deleted, accountID)
	return nil
}

func TestPlatformHandler(t *testing.T) {
	ps := &platformServiceStub{accounts: []*models.SocialAccount{{ID: 1, Platform: "twitter", AccessToken: "secret"}}}
	h := NewPlatformHandler(ps)

	app := fiber.New()
	app.Get("/api/accounts", withUser("3"), h.ListSocialAccounts)
	app.Post("/api/accounts/remove", withUser("3"), h.DeleteSocialAccount)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/accounts", nil))
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	assert.Contains(t, string(body), `"platform":"twitter"`)
	assert.NotContains(t, string(body), "secret")

	resp, err = app.Test(httptest.NewRequest(http.MethodPost, "/api/accounts/remove?id=1", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = app.Test(httptest.NewRequest(http.MethodPost, "/api/accounts/remove", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.Equal(t, []int64{1}, ps.deleted)
}

func TestGetUserID(t *testing.T) {
	app := fiber.New()
	var got []int64
	app.Get("/", func(c *fiber.Ctx) error {
		got = append(got, GetUserID(c))
		return nil
	})
	app.Get("/user", withUser("12"), func(c *fiber.Ctx) error {
		got = append(got, GetUserID(c))
		return nil
	})

	_, err := app.Test(httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)
	_, err = app.Test(httptest.NewRequest(http.MethodGet, "/user", nil))
	require.NoError(t, err)
	assert.Equal(t, []int64{0, 12}, got)
}
