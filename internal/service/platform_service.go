package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/maheshrc27/crosspost/internal/models"
	"github.com/maheshrc27/crosspost/internal/publish"
	"github.com/maheshrc27/crosspost/internal/repository"
	"github.com/maheshrc27/crosspost/pkg/utils"
)

// RevokeFunc withdraws an access token at the provider.
type RevokeFunc func(ctx context.Context, client *http.Client, account *models.SocialAccount, accessToken string) error

type PlatformService interface {
	List(ctx context.Context, userID int64) ([]*models.SocialAccount, error)
	Delete(ctx context.Context, userID, accountID int64) error
}

type platformService struct {
	key     []byte
	client  *http.Client
	sa      repository.SocialAccountRepository
	revoker map[publish.Provider]RevokeFunc
}

func NewPlatformService(secretKey string, client *http.Client, sa repository.SocialAccountRepository) PlatformService {
	if client == nil {
		client = http.DefaultClient
	}
	return &platformService{
		key:    []byte(secretKey),
		client: client,
		sa:     sa,
		revoker: map[publish.Provider]RevokeFunc{
			publish.ProviderTiktok: func(ctx context.Context, client *http.Client, account *models.SocialAccount, token string) error {
				return RevokeTiktokAccess(ctx, client, account.AccountID, token)
			},
			publish.ProviderYoutube: func(ctx context.Context, client *http.Client, _ *models.SocialAccount, token string) error {
				return RevokeGoogleAccess(ctx, client, token)
			},
		},
	}
}

func (s *platformService) List(ctx context.Context, userID int64) ([]*models.SocialAccount, error) {
	var err error

	if userID == 0 {
		err = errors.New("UserID is not valid")
		slog.Info(err.Error())
		return nil, err
	}

	accounts, err := s.sa.ListInfoByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("Error getting social accounts")
	}

	return accounts, nil
}

// Delete revokes the account's token where the provider supports it and
// removes the account.
func (s *platformService) Delete(ctx context.Context, userID, accountID int64) error {
	var err error

	if userID == 0 {
		err = errors.New("UserID is not valid")
		slog.Info(err.Error())
		return err
	}

	if accountID == 0 {
		err = errors.New("AccountID is not valid")
		slog.Info(err.Error())
		return err
	}

	isValid, err := s.sa.CheckByUserID(ctx, accountID, userID)
	if err != nil {
		return err
	}

	if !isValid {
		err = errors.New("Social account doesn't exist")
		slog.Info(err.Error())
		return err
	}

	accountInfo, err := s.sa.GetByID(ctx, accountID)
	if err != nil || accountInfo == nil {
		return fmt.Errorf("Unable to get social account info")
	}

	if revoke, ok := s.revoker[publish.Provider(accountInfo.Platform)]; ok {
		accessToken, err := utils.Decrypt(accountInfo.AccessToken, s.key)
		if err != nil {
			return err
		}
		if err := revoke(ctx, s.client, accountInfo, accessToken); err != nil {
			slog.Info(err.Error())
			return fmt.Errorf("Unable to revoke access")
		}
	}

	err = s.sa.Remove(ctx, accountID)
	if err != nil {
		return fmt.Errorf("Error removing account Info")
	}

	return nil
}
