package auth

import (
	"context"
	"errors"
	"testing"

	"github.com/hitoshi/ichiba/internal/model"
)

func TestPrincipalFromSession(t *testing.T) {
	tests := []struct {
		name    string
		session *model.Session
		want    Principal
	}{
		{
			name:    "nilセッション",
			session: nil,
			want:    nil,
		},
		{
			name:    "kind未設定の空ペイロード",
			session: &model.Session{Principal: model.SessionPrincipal{}},
			want:    nil,
		},
		{
			name: "oauth2プリンシパル",
			session: &model.Session{Principal: model.SessionPrincipal{
				Kind:     model.PrincipalKindOAuth2,
				Name:     "Aishah",
				Email:    "a@example.com",
				Picture:  "https://example.com/p.jpg",
				Provider: "google",
			}},
			want: OAuth2Principal{Name: "Aishah", Email: "a@example.com", Picture: "https://example.com/p.jpg", Provider: "google"},
		},
		{
			name: "パスワードプリンシパル",
			session: &model.Session{Principal: model.SessionPrincipal{
				Kind:  model.PrincipalKindPassword,
				Email: "a@example.com",
			}},
			want: PasswordPrincipal{Email: "a@example.com"},
		},
		{
			name: "セッション属性プリンシパル",
			session: &model.Session{Principal: model.SessionPrincipal{
				Kind:  model.PrincipalKindAttrs,
				Name:  "Cached Name",
				Email: "c@example.com",
			}},
			want: SessionAttrsPrincipal{Name: "Cached Name", Email: "c@example.com"},
		},
		{
			name: "未知のkindは縮退した主体に落ちる",
			session: &model.Session{Principal: model.SessionPrincipal{
				Kind: "saml",
				Name: "Legacy",
			}},
			want: UnknownPrincipal{Name: "Legacy"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := PrincipalFromSession(tt.session)
			if got != tt.want {
				t.Errorf("PrincipalFromSession() = %#v, want %#v", got, tt.want)
			}
		})
	}
}

func TestResolve_OAuth2_NoLookup(t *testing.T) {
	userRepo := &mockUserRepo{
		findByEmailFn: func(ctx context.Context, email string) (*model.User, error) {
			t.Error("oauth2 principal should resolve without a store lookup")
			return nil, nil
		},
	}
	resolver := NewIdentityResolver(userRepo)

	identity, err := resolver.Resolve(context.Background(), OAuth2Principal{
		Name:     "Aishah",
		Email:    "a@example.com",
		Picture:  "https://example.com/p.jpg",
		Provider: "google",
	})
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if identity.Kind != model.IdentityKindOAuth2 {
		t.Errorf("kind = %q, want oauth2", identity.Kind)
	}
	if identity.Name != "Aishah" || identity.Provider != "google" {
		t.Errorf("unexpected identity: %+v", identity)
	}
}

func TestResolve_Password_LooksUpUser(t *testing.T) {
	userRepo := &mockUserRepo{
		findByEmailFn: func(ctx context.Context, email string) (*model.User, error) {
			return &model.User{
				Name:           "Stored Name",
				Email:          email,
				ProfilePicture: "https://example.com/stored.jpg",
				Provider:       model.ProviderEmail,
			}, nil
		},
	}
	resolver := NewIdentityResolver(userRepo)

	identity, err := resolver.Resolve(context.Background(), PasswordPrincipal{Email: "stored@example.com"})
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if identity.Kind != model.IdentityKindPassword {
		t.Errorf("kind = %q, want password", identity.Kind)
	}
	if identity.Name != "Stored Name" {
		t.Errorf("name = %q, want stored name from user record", identity.Name)
	}
	if identity.Picture != "https://example.com/stored.jpg" {
		t.Errorf("picture = %q", identity.Picture)
	}
}

func TestResolve_Password_LookupFailure_DegradesToLocalPart(t *testing.T) {
	userRepo := &mockUserRepo{
		findByEmailFn: func(ctx context.Context, email string) (*model.User, error) {
			return nil, errors.New("database down")
		},
	}
	resolver := NewIdentityResolver(userRepo)

	identity, err := resolver.Resolve(context.Background(), PasswordPrincipal{Email: "aishah@example.com"})
	if err != nil {
		t.Fatalf("lookup failure must not surface an error, got %v", err)
	}
	if identity.Name != "aishah" {
		t.Errorf("name = %q, want local part of email", identity.Name)
	}
	if identity.Kind != model.IdentityKindPassword {
		t.Errorf("kind = %q, want password", identity.Kind)
	}
}

func TestResolve_Password_UserMissing_DegradesToLocalPart(t *testing.T) {
	resolver := NewIdentityResolver(&mockUserRepo{})

	identity, err := resolver.Resolve(context.Background(), PasswordPrincipal{Email: "ghost@example.com"})
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if identity.Name != "ghost" || identity.Email != "ghost@example.com" {
		t.Errorf("unexpected degraded identity: %+v", identity)
	}
}

func TestResolve_SessionAttrs_CachedAttributesWin(t *testing.T) {
	userRepo := &mockUserRepo{
		findByEmailFn: func(ctx context.Context, email string) (*model.User, error) {
			t.Error("cached attributes should not trigger a store lookup")
			return nil, nil
		},
	}
	resolver := NewIdentityResolver(userRepo)

	identity, err := resolver.Resolve(context.Background(), SessionAttrsPrincipal{
		Name:    "Cached Name",
		Email:   "c@example.com",
		Picture: "https://example.com/c.jpg",
	})
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if identity.Name != "Cached Name" || identity.Kind != model.IdentityKindOther {
		t.Errorf("unexpected identity: %+v", identity)
	}
}

func TestResolve_SessionAttrs_NoName_RederivesByEmail(t *testing.T) {
	userRepo := &mockUserRepo{
		findByEmailFn: func(ctx context.Context, email string) (*model.User, error) {
			return &model.User{Name: "Rederived", Email: email}, nil
		},
	}
	resolver := NewIdentityResolver(userRepo)

	identity, err := resolver.Resolve(context.Background(), SessionAttrsPrincipal{Email: "r@example.com"})
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if identity.Name != "Rederived" {
		t.Errorf("name = %q, want name rederived from store", identity.Name)
	}
	if identity.Kind != model.IdentityKindOther {
		t.Errorf("kind = %q, want other", identity.Kind)
	}
}

func TestResolve_Unknown_NameOnly(t *testing.T) {
	resolver := NewIdentityResolver(&mockUserRepo{})

	identity, err := resolver.Resolve(context.Background(), UnknownPrincipal{Name: "Mystery"})
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if identity.Name != "Mystery" || identity.Kind != model.IdentityKindOther {
		t.Errorf("unexpected identity: %+v", identity)
	}
	if identity.Email != "" {
		t.Errorf("unknown principal should not carry an email, got %q", identity.Email)
	}
}

func TestResolve_Unauthenticated(t *testing.T) {
	resolver := NewIdentityResolver(&mockUserRepo{})

	_, err := resolver.Resolve(context.Background(), nil)
	if err == nil {
		t.Fatal("expected UNAUTHENTICATED error for nil principal")
	}
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) || apiErr.Code != model.ErrCodeUnauthenticated {
		t.Errorf("expected UNAUTHENTICATED, got %v", err)
	}
}

func TestLocalPart(t *testing.T) {
	tests := []struct {
		email string
		want  string
	}{
		{"aishah@example.com", "aishah"},
		{"no-at-sign", "no-at-sign"},
		{"@example.com", ""},
	}
	for _, tt := range tests {
		if got := localPart(tt.email); got != tt.want {
			t.Errorf("localPart(%q) = %q, want %q", tt.email, got, tt.want)
		}
	}
}
