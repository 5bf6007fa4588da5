// Package user はユーザープロフィールの参照・更新を提供する。
package user

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/hitoshi/ichiba/internal/model"
	"github.com/hitoshi/ichiba/internal/repository"
)

// UpdateProfileInput はプロフィール更新の入力。
// 空のフィールドは現在の値を維持する。
type UpdateProfileInput struct {
	Name           string
	PhoneNumber    string
	ProfilePicture string
}

// Service はユーザープロフィールに関するビジネスロジックを提供する。
type Service struct {
	userRepo repository.UserRepository
}

// NewService はServiceを生成する。
func NewService(userRepo repository.UserRepository) *Service {
	return &Service{userRepo: userRepo}
}

// GetInfo はログイン中ユーザーの公開プロフィールを返す。
func (s *Service) GetInfo(ctx context.Context, userID string) (*model.PublicUser, error) {
	u, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	if u == nil {
		return nil, model.NewUserNotFoundError()
	}
	return u.Public(), nil
}

// UpdateProfile はログイン中ユーザーのプロフィールを更新する。
// 更新対象はname、phoneNumber、profilePictureのみで、認証情報には触れない。
// 空のフィールドは現在の値を維持する。
func (s *Service) UpdateProfile(ctx context.Context, userID string, input UpdateProfileInput) (*model.PublicUser, error) {
	u, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	if u == nil {
		return nil, model.NewUserNotFoundError()
	}

	if name := strings.TrimSpace(input.Name); name != "" {
		u.Name = name
	}
	if phone := strings.TrimSpace(input.PhoneNumber); phone != "" {
		u.PhoneNumber = phone
	}
	if picture := strings.TrimSpace(input.ProfilePicture); picture != "" {
		u.ProfilePicture = picture
	}

	if err := s.userRepo.UpdateProfile(ctx, u.ID, u.Name, u.PhoneNumber, u.ProfilePicture); err != nil {
		return nil, fmt.Errorf("failed to update profile: %w", err)
	}

	slog.Info("user profile updated", slog.String("user_id", u.ID))
	return u.Public(), nil
}
