package middleware

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/hitoshi/ichiba/internal/model"
)

// TestMiddlewareChain_FullStack はCORS→セキュリティヘッダー→ロギング→
// リカバリ→セッションの順で重ねたチェーンが成立することを検証する。
func TestMiddlewareChain_FullStack(t *testing.T) {
	finder := &mockSessionFinder{
		findByIDFn: func(ctx context.Context, id string) (*model.Session, error) {
			return &model.Session{
				ID:        id,
				UserID:    "user-chain",
				ExpiresAt: time.Now().Add(time.Hour),
			}, nil
		},
	}

	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))

	var handler http.Handler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, err := UserIDFromContext(r.Context())
		if err != nil {
			t.Errorf("user ID should flow through the chain: %v", err)
		}
		if userID != "user-chain" {
			t.Errorf("userID = %q", userID)
		}
		w.WriteHeader(http.StatusOK)
	})

	handler = NewSessionMiddleware(finder)(handler)
	handler = NewRecoveryMiddleware()(handler)
	handler = NewLoggingMiddleware(logger)(handler)
	handler = NewSecurityHeadersMiddleware()(handler)
	handler = NewCORSMiddleware("http://localhost:3000")(handler)

	req := httptest.NewRequest(http.MethodGet, "/api/auth/user", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: "sess-1"})
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if w.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Error("security headers should be applied")
	}
	if w.Header().Get("Access-Control-Allow-Origin") != "http://localhost:3000" {
		t.Error("CORS headers should be applied")
	}
}

// TestMiddlewareChain_PanicRecovered はハンドラーのpanicが500に変換されることを検証する。
func TestMiddlewareChain_PanicRecovered(t *testing.T) {
	var handler http.Handler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	})
	handler = NewRecoveryMiddleware()(handler)

	req := httptest.NewRequest(http.MethodGet, "/api/markets", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", w.Code)
	}
}
