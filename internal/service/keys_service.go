package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/maheshrc27/crosspost/internal/repository"
)

var ErrUnknownAPIKey = errors.New("Key doesn't exist")

// ApiKeyService resolves externally issued API keys to their user.
type ApiKeyService interface {
	GetUserID(ctx context.Context, apiKey string) (int64, error)
}

type apiKeyService struct {
	k repository.ApiKeyRepository
}

func NewApiKeyService(k repository.ApiKeyRepository) ApiKeyService {
	return &apiKeyService{
		k: k,
	}
}

func (s *apiKeyService) GetUserID(ctx context.Context, apiKey string) (int64, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return 0, ErrUnknownAPIKey
	}

	userID, isExist, err := s.k.GetUserID(ctx, apiKey)
	if err != nil {
		return 0, err
	}

	if !isExist {
		slog.Info(ErrUnknownAPIKey.Error())
		return 0, ErrUnknownAPIKey
	}

	return userID, nil
}
