// Package model はドメインモデルを定義する。
package model

import "time"

// 認証プロバイダ識別子。
const (
	ProviderEmail  = "email"
	ProviderGoogle = "google"
)

// User はサービス利用ユーザーを表す。
// パスワード認証ユーザーはPasswordHashを持ち、OAuthのみのユーザーは空のまま。
type User struct {
	ID             string
	Name           string
	Email          string
	PasswordHash   string
	Provider       string
	ProviderID     string
	ProfilePicture string
	PhoneNumber    string
	IsActive       bool
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// PublicUser はAPIレスポンスに含めるユーザー情報の公開部分を表す。
// パスワードハッシュは含まない。
type PublicUser struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	Email          string `json:"email"`
	Provider       string `json:"provider"`
	ProfilePicture string `json:"profilePicture,omitempty"`
	PhoneNumber    string `json:"phoneNumber,omitempty"`
}

// Public はUserから公開用の投影を生成する。
func (u *User) Public() *PublicUser {
	return &PublicUser{
		ID:             u.ID,
		Name:           u.Name,
		Email:          u.Email,
		Provider:       u.Provider,
		ProfilePicture: u.ProfilePicture,
		PhoneNumber:    u.PhoneNumber,
	}
}

// IdentityKind は認証経路の種別を表す。
const (
	IdentityKindOAuth2   = "oauth2"
	IdentityKindPassword = "password"
	IdentityKindOther    = "other"
)

// NormalizedIdentity はリクエストスコープで解決した認証済みユーザーの表示用情報を表す。
// 永続化はしない。認証経路（OAuth2、パスワード、その他）の違いを吸収した共通形。
type NormalizedIdentity struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Picture  string `json:"picture,omitempty"`
	Kind     string `json:"kind"`
	Provider string `json:"provider,omitempty"`
}
