// Package model はドメインモデルを定義する。
package model

import "time"

// プリンシパルの種別。セッションのdataペイロードに保存する。
const (
	PrincipalKindOAuth2   = "oauth2"
	PrincipalKindPassword = "password"
	PrincipalKindAttrs    = "attrs"
)

// SessionPrincipal はセッションに紐づく認証主体のペイロードを表す。
// ログイン経路によって埋まるフィールドが異なる。
// Kindが未知の値でもセッション自体は有効として扱う（解決側で縮退する）。
type SessionPrincipal struct {
	Kind     string `json:"kind"`
	Name     string `json:"name,omitempty"`
	Email    string `json:"email,omitempty"`
	Picture  string `json:"picture,omitempty"`
	Provider string `json:"provider,omitempty"`
}

// Session はユーザーのログインセッションを表す。
// IDは256ビットの乱数を16進数文字列にしたもの。
type Session struct {
	ID        string
	UserID    string
	Principal SessionPrincipal
	ExpiresAt time.Time
	CreatedAt time.Time
}

// Expired はセッションが期限切れかどうかを返す。
func (s *Session) Expired(now time.Time) bool {
	return now.After(s.ExpiresAt)
}
