// Package middleware はHTTPミドルウェアを提供する。
package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/hitoshi/ichiba/internal/auth"
	"github.com/hitoshi/ichiba/internal/model"
)

// SessionCookieName はセッションIDを保持するHTTP Only Cookieの名前。
const SessionCookieName = "session_id"

// contextKey はコンテキストに値を格納するための型安全なキー。
type contextKey string

var (
	userIDContextKey    = contextKey("user_id")
	sessionContextKey   = contextKey("session")
	principalContextKey = contextKey("principal")
)

// SessionFinder はセッションの検索に必要なインターフェース。
// repository.SessionRepositoryの部分集合として定義する。
type SessionFinder interface {
	FindByID(ctx context.Context, id string) (*model.Session, error)
}

// NewSessionMiddleware はHTTP Only Cookieからセッションを読み取り、
// 有効性を検証するミドルウェアを返す。
// ユーザーID・セッション・プリンシパルをリクエストコンテキストに注入する。
// 未認証リクエストには401で統一エラーフォーマットを返す。
func NewSessionMiddleware(sessionFinder SessionFinder) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			session := resolveSession(r, sessionFinder)
			if session == nil {
				WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthenticatedError())
				return
			}
			next.ServeHTTP(w, r.WithContext(contextWithSession(r.Context(), session)))
		})
	}
}

// NewOptionalSessionMiddleware はセッションがあればコンテキストに注入し、
// なくてもリクエストを通すミドルウェアを返す。
// 公開エンドポイントで認証状態をログ等に利用するために使う。
func NewOptionalSessionMiddleware(sessionFinder SessionFinder) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if session := resolveSession(r, sessionFinder); session != nil {
				r = r.WithContext(contextWithSession(r.Context(), session))
			}
			next.ServeHTTP(w, r)
		})
	}
}

// resolveSession はCookieから有効なセッションを引く。無効・未設定はnil。
func resolveSession(r *http.Request, sessionFinder SessionFinder) *model.Session {
	cookie, err := r.Cookie(SessionCookieName)
	if err != nil || cookie.Value == "" {
		return nil
	}

	session, err := sessionFinder.FindByID(r.Context(), cookie.Value)
	if err != nil {
		slog.Error("failed to find session",
			slog.String("error", err.Error()),
		)
		return nil
	}
	return session
}

// contextWithSession はセッション・ユーザーID・プリンシパルをまとめて注入する。
func contextWithSession(ctx context.Context, session *model.Session) context.Context {
	ctx = context.WithValue(ctx, sessionContextKey, session)
	ctx = context.WithValue(ctx, userIDContextKey, session.UserID)
	if principal := auth.PrincipalFromSession(session); principal != nil {
		ctx = context.WithValue(ctx, principalContextKey, principal)
	}
	return ctx
}

// UserIDFromContext はリクエストコンテキストからユーザーIDを取得する。
// セッションミドルウェアを通過したリクエストでのみ有効。
func UserIDFromContext(ctx context.Context) (string, error) {
	userID, ok := ctx.Value(userIDContextKey).(string)
	if !ok || userID == "" {
		return "", fmt.Errorf("user ID not found in context")
	}
	return userID, nil
}

// SessionFromContext はリクエストコンテキストからセッションを取得する。
// 見つからない場合はnilを返す。
func SessionFromContext(ctx context.Context) *model.Session {
	session, _ := ctx.Value(sessionContextKey).(*model.Session)
	return session
}

// PrincipalFromContext はリクエストコンテキストからプリンシパルを取得する。
// 未認証または形を復元できなかった場合はnilを返す。
func PrincipalFromContext(ctx context.Context) auth.Principal {
	principal, _ := ctx.Value(principalContextKey).(auth.Principal)
	return principal
}

// ContextWithUserID はコンテキストにユーザーIDを注入する。
// テストやミドルウェア以外のコンテキスト生成で使用する。
func ContextWithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDContextKey, userID)
}

// ContextWithPrincipal はコンテキストにプリンシパルを注入する。テスト用。
func ContextWithPrincipal(ctx context.Context, principal auth.Principal) context.Context {
	return context.WithValue(ctx, principalContextKey, principal)
}
