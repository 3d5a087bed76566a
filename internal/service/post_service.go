package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"strings"
	"time"

	"github.com/h2non/filetype"
	"github.com/h2non/filetype/types"
	"github.com/maheshrc27/crosspost/internal/models"
	"github.com/maheshrc27/crosspost/internal/publish"
	"github.com/maheshrc27/crosspost/internal/repository"
	"github.com/maheshrc27/crosspost/internal/transfer"
	gonanoid "github.com/matoous/go-nanoid/v2"
)

const (
	PostTypeSingle   = "single"
	PostTypeMultiple = "multiple"

	scheduledTimeLayout = "2006-01-02T15:04"
	defaultHistoryLimit = 50
)

var allowedFileTypes = map[string]struct{}{
	"mp4": {}, "mov": {}, "jpg": {}, "png": {}, "gif": {}, "webp": {},
}

type PostService interface {
	CreatePost(ctx context.Context, userID int64, pc *transfer.PostCreation, files []*multipart.FileHeader) (int64, time.Duration, error)
	List(ctx context.Context, userID int64) ([]*models.Post, error)
	PostInfo(ctx context.Context, postID, userID int64) (*models.Post, error)
	Remove(ctx context.Context, userID, postID int64) error
	History(ctx context.Context, userID, postID int64, limit int) ([]*models.PostingHistory, error)
}

type postService struct {
	db  *sql.DB
	pr  repository.PostRepository
	sa  repository.SelectedAccountRepository
	ac  repository.SocialAccountRepository
	ma  repository.MediaAssetRepository
	pm  repository.PostMediaRepository
	ph  repository.PostingHistoryRepository
	r2  R2Service
	now func() time.Time
}

func NewPostService(
	db *sql.DB,
	pr repository.PostRepository,
	sa repository.SelectedAccountRepository,
	ma repository.MediaAssetRepository,
	ac repository.SocialAccountRepository,
	pm repository.PostMediaRepository,
	ph repository.PostingHistoryRepository,
	r2 R2Service) PostService {
	return &postService{
		db:  db,
		pr:  pr,
		sa:  sa,
		ac:  ac,
		ma:  ma,
		pm:  pm,
		ph:  ph,
		r2:  r2,
		now: time.Now,
	}
}

func (s *postService) CreatePost(ctx context.Context, userID int64, pc *transfer.PostCreation, files []*multipart.FileHeader) (_ int64, _ time.Duration, err error) {
	if pc == nil {
		err = errors.New("post creation data is nil")
		slog.Error(err.Error())
		return 0, 0, err
	}
	if strings.TrimSpace(pc.Caption) == "" && len(files) == 0 {
		err = errors.New("a post needs a caption or at least one file")
		slog.Info(err.Error())
		return 0, 0, err
	}

	scheduledTime, err := time.Parse(scheduledTimeLayout, pc.ScheduledTime)
	if err != nil {
		err = fmt.Errorf("invalid scheduled time format: %w", err)
		slog.Error(err.Error())
		return 0, 0, err
	}

	var selectedAccounts []int64
	if err = json.Unmarshal([]byte(pc.SelectedAccounts), &selectedAccounts); err != nil {
		err = fmt.Errorf("invalid selected accounts format: %w", err)
		slog.Error(err.Error())
		return 0, 0, err
	}
	if len(selectedAccounts) == 0 {
		err = errors.New("no social accounts selected")
		slog.Error(err.Error())
		return 0, 0, err
	}

	extensions, err := parseExtensions(pc.Extensions, pc.PrivacyLevel)
	if err != nil {
		slog.Info(err.Error())
		return 0, 0, err
	}

	postType := PostTypeSingle
	if len(files) > 1 {
		postType = PostTypeMultiple
	}

	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return 0, 0, fmt.Errorf("failed to start transaction: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p)
		} else if err != nil {
			tx.Rollback()
		}
	}()

	post := models.Post{
		UserID:        userID,
		PostType:      postType,
		Caption:       publish.NormalizeText(pc.Caption),
		Title:         strings.TrimSpace(pc.Title),
		Hashtags:      splitTags(pc.Hashtags, "#"),
		Mentions:      splitTags(pc.Mentions, "@"),
		PrivacyLevel:  strings.TrimSpace(pc.PrivacyLevel),
		Extensions:    extensions,
		ScheduledTime: scheduledTime,
		Status:        models.PostStatusScheduled,
	}

	postID, err := s.pr.Create(ctx, tx, &post)
	if err != nil {
		return 0, 0, fmt.Errorf("error creating post: %w", err)
	}

	if err = s.saveSelectedAccounts(ctx, tx, userID, postID, selectedAccounts); err != nil {
		return 0, 0, fmt.Errorf("error processing selected accounts: %w", err)
	}

	if err = s.processFiles(ctx, tx, userID, postID, files); err != nil {
		return 0, 0, fmt.Errorf("error processing files: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return 0, 0, fmt.Errorf("failed to commit transaction: %w", err)
	}

	delay := scheduledTime.Sub(s.now())
	if delay < 0 {
		delay = 0
	}

	return postID, delay, nil
}

// parseExtensions validates the provider settings of a post. The privacy
// level form field wins over one inside the JSON.
func parseExtensions(raw, privacy string) (json.RawMessage, error) {
	var ext publish.Extensions
	if strings.TrimSpace(raw) != "" {
		if err := json.Unmarshal([]byte(raw), &ext); err != nil {
			return nil, fmt.Errorf("invalid extensions: %w", err)
		}
	}
	if privacy = strings.TrimSpace(privacy); privacy != "" {
		ext.PrivacyLevel = privacy
	}
	data, err := json.Marshal(ext)
	if err != nil {
		return nil, fmt.Errorf("error encoding extensions: %w", err)
	}
	return data, nil
}

// splitTags accepts comma or whitespace separated tags with or without their
// prefix and returns them without it, keeping the first occurrence.
func splitTags(raw, prefix string) []string {
	fields := strings.FieldsFunc(raw, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\n' || r == '\t'
	})

	seen := make(map[string]struct{}, len(fields))
	tags := make([]string, 0, len(fields))
	for _, f := range fields {
		tag := strings.TrimPrefix(f, prefix)
		if tag == "" {
			continue
		}
		key := strings.ToLower(tag)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		tags = append(tags, tag)
	}
	return tags
}

func (s *postService) saveSelectedAccounts(ctx context.Context, tx *sql.Tx, userID, postID int64, accounts []int64) error {
	for _, accountID := range accounts {
		exists, err := s.ac.CheckByUserID(ctx, accountID, userID)
		if err != nil {
			return fmt.Errorf("error checking social account %d: %w", accountID, err)
		}
		if !exists {
			return fmt.Errorf("social account %d does not exist", accountID)
		}
	}

	if err := s.sa.Select(ctx, tx, postID, accounts); err != nil {
		return fmt.Errorf("error saving selected accounts: %w", err)
	}
	return nil
}

func (s *postService) processFiles(ctx context.Context, tx *sql.Tx, userID, postID int64, files []*multipart.FileHeader) error {
	assetIDs := make([]int64, 0, len(files))
	for _, file := range files {
		fileBytes, err := readFile(file)
		if err != nil {
			return err
		}

		fileType, err := filetype.Match(fileBytes)
		if err != nil || fileType == types.Unknown {
			return fmt.Errorf("unsupported file type for %s", file.Filename)
		}
		if _, ok := allowedFileTypes[fileType.Extension]; !ok {
			return fmt.Errorf("file type %s is not allowed", fileType.Extension)
		}

		assetID, err := s.saveFile(ctx, tx, userID, fileType, fileBytes)
		if err != nil {
			return fmt.Errorf("error uploading file: %w", err)
		}

		assetIDs = append(assetIDs, assetID)
	}

	if err := s.pm.Attach(ctx, tx, postID, assetIDs); err != nil {
		return fmt.Errorf("error saving media files: %w", err)
	}
	return nil
}

func readFile(file *multipart.FileHeader) ([]byte, error) {
	f, err := file.Open()
	if err != nil {
		return nil, fmt.Errorf("error opening file: %w", err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("error reading file content: %w", err)
	}
	return data, nil
}

func (s *postService) saveFile(ctx context.Context, tx *sql.Tx, userID int64, fileType types.Type, file []byte) (int64, error) {
	id, err := gonanoid.New()
	if err != nil {
		slog.Info(err.Error())
		return 0, err
	}
	key := id + "." + fileType.Extension

	fileURL, err := s.r2.UploadToR2(ctx, key, file, fileType.MIME.Value)
	if err != nil {
		return 0, err
	}

	kind := publish.MediaImage
	if fileType.MIME.Type == "video" {
		kind = publish.MediaVideo
	}

	ma := models.MediaAsset{
		UserID:    userID,
		FileName:  key,
		FileType:  fileType.MIME.Value,
		FileSize:  int64(len(file)),
		FileURL:   fileURL,
		MediaKind: string(kind),
	}

	assetID, err := s.ma.Create(ctx, tx, &ma)
	if err != nil {
		return 0, err
	}

	return assetID, nil
}

func (s *postService) PostInfo(ctx context.Context, postID, userID int64) (*models.Post, error) {
	if err := s.checkOwner(ctx, postID, userID); err != nil {
		return nil, err
	}

	post, err := s.pr.GetByID(ctx, postID)
	if err != nil || post == nil {
		return nil, fmt.Errorf("Error getting post info")
	}

	return post, nil
}

func (s *postService) List(ctx context.Context, userID int64) ([]*models.Post, error) {
	posts, err := s.pr.GetByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("Error getting posts")
	}
	return posts, nil
}

func (s *postService) Remove(ctx context.Context, userID, postID int64) error {
	if err := s.checkOwner(ctx, postID, userID); err != nil {
		return err
	}

	if err := s.pr.Remove(ctx, postID); err != nil {
		return fmt.Errorf("Error removing post")
	}

	return nil
}

// History lists the publish attempts of one post, or the latest attempts of
// the user when postID is 0.
func (s *postService) History(ctx context.Context, userID, postID int64, limit int) ([]*models.PostingHistory, error) {
	if postID == 0 {
		if limit <= 0 {
			limit = defaultHistoryLimit
		}
		history, err := s.ph.GetByUserID(ctx, userID, limit)
		if err != nil {
			return nil, fmt.Errorf("Error getting posting history")
		}
		return history, nil
	}

	if err := s.checkOwner(ctx, postID, userID); err != nil {
		return nil, err
	}
	history, err := s.ph.GetByPostID(ctx, postID)
	if err != nil {
		return nil, fmt.Errorf("Error getting posting history")
	}
	return history, nil
}

func (s *postService) checkOwner(ctx context.Context, postID, userID int64) error {
	var err error

	if userID == 0 {
		err = errors.New("User is not valid")
		slog.Info(err.Error())
		return err
	}

	if postID == 0 {
		err = errors.New("post id is not valid")
		slog.Info(err.Error())
		return err
	}

	isValid, err := s.pr.CheckByUserID(ctx, postID, userID)
	if err != nil {
		return err
	}

	if !isValid {
		err = errors.New("Post doesn't exist")
		slog.Info(err.Error())
		return err
	}
	return nil
}
