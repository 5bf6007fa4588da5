// Package auth はメール・パスワード認証、Google OAuth認証フロー、
// セッション管理、プリンシパル解決を提供する。
package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hitoshi/ichiba/internal/config"
	"github.com/hitoshi/ichiba/internal/model"
	"github.com/hitoshi/ichiba/internal/repository"
)

// OAuthUserInfo はOAuthプロバイダーから取得したユーザー情報を表す。
type OAuthUserInfo struct {
	ProviderUserID string
	Email          string
	Name           string
	Picture        string
	Provider       string // "google" 等
}

// OAuthProvider はOAuth認証プロバイダーのインターフェース。
// 将来的に複数IdP（Google, GitHub等）に対応するための抽象化。
type OAuthProvider interface {
	// GetLoginURL はOAuth認証URLを生成する。
	GetLoginURL(state string) string
	// ExchangeCode は認可コードをトークンに交換し、ユーザー情報を取得する。
	ExchangeCode(ctx context.Context, code string) (*OAuthUserInfo, error)
}

// ServiceConfig は認証サービスの設定。
type ServiceConfig struct {
	SessionMaxAge         int    // セッション有効期間（秒）
	SessionMaxPerUser     int    // ユーザーあたりの同時セッション数上限
	SessionOverflowPolicy string // 上限超過時のポリシー（evict-oldest / reject-new）
}

// Service は認証に関するビジネスロジックを提供する。
type Service struct {
	oauth       OAuthProvider
	userRepo    repository.UserRepository
	sessionRepo repository.SessionRepository
	config      ServiceConfig
}

// NewService はServiceを生成する。
func NewService(
	oauth OAuthProvider,
	userRepo repository.UserRepository,
	sessionRepo repository.SessionRepository,
	config ServiceConfig,
) *Service {
	return &Service{
		oauth:       oauth,
		userRepo:    userRepo,
		sessionRepo: sessionRepo,
		config:      config,
	}
}

// Register は新規ユーザーをメール・パスワードで登録する。
// 重複メールのチェックを書き込みより先に行い、成功時は公開用の投影を返す。
func (s *Service) Register(ctx context.Context, name, email, password string) (*model.PublicUser, error) {
	name = strings.TrimSpace(name)
	email = strings.TrimSpace(email)
	if name == "" || email == "" || password == "" {
		return nil, model.NewValidationError("Name, email, and password are required")
	}

	existing, err := s.userRepo.FindByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("failed to check existing email: %w", err)
	}
	if existing != nil {
		return nil, model.NewDuplicateEmailError()
	}

	hash, err := HashPassword(password)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	user := &model.User{
		ID:           uuid.New().String(),
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		Provider:     model.ProviderEmail,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	slog.Info("user registered",
		slog.String("user_id", user.ID),
		slog.String("provider", user.Provider),
	)
	return user.Public(), nil
}

// Login はメール・パスワードでユーザーを認証し、セッションを発行する。
// 未登録メール、無効化済みユーザー、パスワード未設定（OAuth専用）ユーザー、
// パスワード不一致のすべてで同じINVALID_CREDENTIALSを返す。
func (s *Service) Login(ctx context.Context, email, password string) (*model.User, *model.Session, error) {
	user, err := s.userRepo.FindByEmail(ctx, email)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to find user: %w", err)
	}
	if user == nil || !user.IsActive || user.PasswordHash == "" {
		return nil, nil, model.NewInvalidCredentialsError()
	}
	if !VerifyPassword(user.PasswordHash, password) {
		return nil, nil, model.NewInvalidCredentialsError()
	}

	session, err := s.createSession(ctx, user.ID, model.SessionPrincipal{
		Kind:  model.PrincipalKindPassword,
		Email: user.Email,
	})
	if err != nil {
		return nil, nil, err
	}

	slog.Info("user logged in",
		slog.String("user_id", user.ID),
		slog.String("provider", model.ProviderEmail),
	)
	return user, session, nil
}

// GetLoginURL はOAuth認証URLを生成する。
func (s *Service) GetLoginURL(state string) string {
	return s.oauth.GetLoginURL(state)
}

// HandleOAuthCallback はOAuthコールバックを処理し、セッションを発行する。
// ユーザーはメールアドレスでupsertする。既存ユーザーはOAuthログインのたびに
// provider、provider_id、profile_pictureが最新の値に更新される。
// 未登録ユーザーはパスワードなしの有効ユーザーとして自動作成される。
func (s *Service) HandleOAuthCallback(ctx context.Context, code string) (*model.Session, error) {
	userInfo, err := s.oauth.ExchangeCode(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("failed to exchange oauth code: %w", err)
	}

	user, err := s.userRepo.FindByEmail(ctx, userInfo.Email)
	if err != nil {
		return nil, fmt.Errorf("failed to find user by email: %w", err)
	}

	if user != nil {
		if err := s.userRepo.UpdateOAuthLink(ctx, user.ID, userInfo.Provider, userInfo.ProviderUserID, userInfo.Picture); err != nil {
			return nil, fmt.Errorf("failed to refresh oauth link: %w", err)
		}
		slog.Info("existing user logged in via oauth",
			slog.String("user_id", user.ID),
			slog.String("provider", userInfo.Provider),
		)
	} else {
		now := time.Now()
		user = &model.User{
			ID:             uuid.New().String(),
			Name:           userInfo.Name,
			Email:          userInfo.Email,
			Provider:       userInfo.Provider,
			ProviderID:     userInfo.ProviderUserID,
			ProfilePicture: userInfo.Picture,
			IsActive:       true,
			CreatedAt:      now,
			UpdatedAt:      now,
		}
		if err := s.userRepo.Create(ctx, user); err != nil {
			return nil, fmt.Errorf("failed to create oauth user: %w", err)
		}
		slog.Info("new user created via oauth",
			slog.String("user_id", user.ID),
			slog.String("provider", userInfo.Provider),
		)
	}

	session, err := s.createSession(ctx, user.ID, model.SessionPrincipal{
		Kind:     model.PrincipalKindOAuth2,
		Name:     userInfo.Name,
		Email:    userInfo.Email,
		Picture:  userInfo.Picture,
		Provider: userInfo.Provider,
	})
	if err != nil {
		return nil, err
	}

	return session, nil
}

// Logout はセッションを破棄する。冪等で、セッションIDが空でもエラーにしない。
func (s *Service) Logout(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return nil
	}

	if err := s.sessionRepo.DeleteByID(ctx, sessionID); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}

	slog.Info("user logged out", slog.String("session_id", sessionID))
	return nil
}

// LogoutAll は指定ユーザーの全セッションを削除する。
// 全デバイスからのログアウトに使う。
func (s *Service) LogoutAll(ctx context.Context, userID string) error {
	if err := s.sessionRepo.DeleteByUserID(ctx, userID); err != nil {
		return fmt.Errorf("failed to delete user sessions: %w", err)
	}

	slog.Info("user logged out from all devices", slog.String("user_id", userID))
	return nil
}

// FindSession はセッションIDから有効なセッションを取得する。
// 見つからない・期限切れの場合はnilを返す。
func (s *Service) FindSession(ctx context.Context, sessionID string) (*model.Session, error) {
	if sessionID == "" {
		return nil, nil
	}
	return s.sessionRepo.FindByID(ctx, sessionID)
}

// createSession はセッション数上限を適用した上でセッションを作成し永続化する。
func (s *Service) createSession(ctx context.Context, userID string, principal model.SessionPrincipal) (*model.Session, error) {
	if err := s.enforceSessionLimit(ctx, userID); err != nil {
		return nil, err
	}

	sessionID, err := generateSessionID()
	if err != nil {
		return nil, fmt.Errorf("failed to generate session ID: %w", err)
	}

	session := &model.Session{
		ID:        sessionID,
		UserID:    userID,
		Principal: principal,
		ExpiresAt: time.Now().Add(time.Duration(s.config.SessionMaxAge) * time.Second),
		CreatedAt: time.Now(),
	}

	if err := s.sessionRepo.Create(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to save session: %w", err)
	}

	return session, nil
}

// enforceSessionLimit はユーザーあたりの同時セッション数上限を適用する。
// evict-oldestでは古いセッションを追い出して空きを作り、
// reject-newでは新規ログインをエラーで拒否する。
func (s *Service) enforceSessionLimit(ctx context.Context, userID string) error {
	if s.config.SessionMaxPerUser <= 0 {
		return nil
	}

	count, err := s.sessionRepo.CountByUserID(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to count sessions: %w", err)
	}
	if count < s.config.SessionMaxPerUser {
		return nil
	}

	if s.config.SessionOverflowPolicy == config.SessionOverflowRejectNew {
		return model.NewSessionLimitError()
	}

	evict := count - s.config.SessionMaxPerUser + 1
	if err := s.sessionRepo.DeleteOldestByUserID(ctx, userID, evict); err != nil {
		return fmt.Errorf("failed to evict oldest sessions: %w", err)
	}
	slog.Info("evicted oldest sessions",
		slog.String("user_id", userID),
		slog.Int("evicted", evict),
	)
	return nil
}

// generateSessionID は暗号的に安全なセッションIDを生成する。
func generateSessionID() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
