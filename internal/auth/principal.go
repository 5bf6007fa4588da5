package auth

import (
	"context"
	"log/slog"
	"strings"

	"github.com/hitoshi/ichiba/internal/model"
	"github.com/hitoshi/ichiba/internal/repository"
)

// Principal はセッションに保存された認証主体の形を表すタグ付きユニオン。
// ログイン経路ごとに保持する情報が異なるため、解決処理は型スイッチで分岐する。
type Principal interface {
	isPrincipal()
}

// OAuth2Principal はOAuth2ログインで発行されたプリンシパル。
type OAuth2Principal struct {
	Name     string
	Email    string
	Picture  string
	Provider string
}

// PasswordPrincipal はメール・パスワードログインで発行されたプリンシパル。
// ユーザー情報はセッションに抱え込まず、解決時にストアから引き直す。
type PasswordPrincipal struct {
	Email string
}

// SessionAttrsPrincipal はセッション属性として直接書き込まれたプリンシパル。
// 手動でセッションを構成する管理系の経路で使われる。
type SessionAttrsPrincipal struct {
	Name    string
	Email   string
	Picture string
}

// UnknownPrincipal は認証済みだが形を認識できないプリンシパル。
type UnknownPrincipal struct {
	Name string
}

func (OAuth2Principal) isPrincipal()       {}
func (PasswordPrincipal) isPrincipal()     {}
func (SessionAttrsPrincipal) isPrincipal() {}
func (UnknownPrincipal) isPrincipal()      {}

// PrincipalFromSession はセッションのdataペイロードからPrincipalを復元する。
// ペイロードが空（kind未設定）の場合はnilを返す。
func PrincipalFromSession(session *model.Session) Principal {
	if session == nil {
		return nil
	}
	p := session.Principal
	switch p.Kind {
	case model.PrincipalKindOAuth2:
		return OAuth2Principal{Name: p.Name, Email: p.Email, Picture: p.Picture, Provider: p.Provider}
	case model.PrincipalKindPassword:
		return PasswordPrincipal{Email: p.Email}
	case model.PrincipalKindAttrs:
		return SessionAttrsPrincipal{Name: p.Name, Email: p.Email, Picture: p.Picture}
	case "":
		return nil
	default:
		// 未知のkindでもセッション自体は有効として扱い、縮退した主体を返す
		return UnknownPrincipal{Name: p.Name}
	}
}

// IdentityResolver はプリンシパルの形の違いを吸収し、
// 表示用のNormalizedIdentityへ正規化する。
type IdentityResolver struct {
	userRepo repository.UserRepository
}

// NewIdentityResolver はIdentityResolverを生成する。
func NewIdentityResolver(userRepo repository.UserRepository) *IdentityResolver {
	return &IdentityResolver{userRepo: userRepo}
}

// Resolve はプリンシパルをNormalizedIdentityに解決する。
// 分岐の優先順位はOAuth2、パスワード、セッション属性、未知の形、未認証の順で固定。
// 認証済みである限り、ユーザー検索に失敗しても縮退した識別情報を返し、
// エラーにはしない。未認証の場合のみUNAUTHENTICATEDエラーを返す。
func (r *IdentityResolver) Resolve(ctx context.Context, principal Principal) (*model.NormalizedIdentity, error) {
	switch p := principal.(type) {
	case OAuth2Principal:
		return &model.NormalizedIdentity{
			Name:     p.Name,
			Email:    p.Email,
			Picture:  p.Picture,
			Kind:     model.IdentityKindOAuth2,
			Provider: p.Provider,
		}, nil

	case PasswordPrincipal:
		user, err := r.userRepo.FindByEmail(ctx, p.Email)
		if err != nil {
			slog.Warn("identity lookup failed, degrading to partial identity",
				slog.String("email", p.Email),
				slog.String("error", err.Error()),
			)
		}
		if user == nil {
			// ストアに見つからなくてもエラーにせず、メールのローカル部を表示名とする
			return &model.NormalizedIdentity{
				Name:  localPart(p.Email),
				Email: p.Email,
				Kind:  model.IdentityKindPassword,
			}, nil
		}
		return &model.NormalizedIdentity{
			Name:     user.Name,
			Email:    user.Email,
			Picture:  user.ProfilePicture,
			Kind:     model.IdentityKindPassword,
			Provider: user.Provider,
		}, nil

	case SessionAttrsPrincipal:
		// キャッシュ済みの属性があればそれを優先する
		if p.Name != "" {
			return &model.NormalizedIdentity{
				Name:    p.Name,
				Email:   p.Email,
				Picture: p.Picture,
				Kind:    model.IdentityKindOther,
			}, nil
		}
		if p.Email != "" {
			user, err := r.userRepo.FindByEmail(ctx, p.Email)
			if err != nil {
				slog.Warn("identity lookup failed, degrading to partial identity",
					slog.String("email", p.Email),
					slog.String("error", err.Error()),
				)
			}
			if user != nil {
				return &model.NormalizedIdentity{
					Name:     user.Name,
					Email:    user.Email,
					Picture:  user.ProfilePicture,
					Kind:     model.IdentityKindOther,
					Provider: user.Provider,
				}, nil
			}
			return &model.NormalizedIdentity{
				Name:  localPart(p.Email),
				Email: p.Email,
				Kind:  model.IdentityKindOther,
			}, nil
		}
		return &model.NormalizedIdentity{Kind: model.IdentityKindOther}, nil

	case UnknownPrincipal:
		return &model.NormalizedIdentity{
			Name: p.Name,
			Kind: model.IdentityKindOther,
		}, nil

	default:
		return nil, model.NewUnauthenticatedError()
	}
}

// localPart はメールアドレスの@より前の部分を返す。
func localPart(email string) string {
	if i := strings.Index(email, "@"); i >= 0 {
		return email[:i]
	}
	return email
}
