package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/hitoshi/ichiba/internal/middleware"
)

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	Logger            *slog.Logger
	CORSAllowedOrigin string
	RateLimiter       *middleware.RateLimiter
	SessionFinder     middleware.SessionFinder
	CSRFConfig        middleware.CSRFConfig

	// 認証
	AuthService      AuthServiceInterface
	IdentityResolver IdentityResolverInterface
	AuthConfig       AuthHandlerConfig

	// ユーザープロフィール
	UserService UserServiceInterface

	// 市場カタログ
	MarketCatalog MarketCatalogInterface
	MarketSync    MarketSyncInterface

	// 天気
	WeatherService WeatherServiceInterface
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	CORS → セキュリティヘッダー → ロギング → リカバリ
//
// レート制限は認証系（AuthMiddleware）と公開API（GeneralMiddleware）で分離する。
// 市場カタログは未認証でも読めるため、セッションはオプショナルで注入する。
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))
	r.Use(middleware.NewSecurityHeadersMiddleware())
	if deps.Logger != nil {
		r.Use(middleware.NewLoggingMiddleware(deps.Logger))
	}
	r.Use(middleware.NewRecoveryMiddleware())

	authHandler := NewAuthHandler(deps.AuthService, deps.IdentityResolver, deps.AuthConfig)
	userHandler := NewUserHandler(deps.UserService)
	marketHandler := NewMarketHandler(deps.MarketCatalog, deps.MarketSync)
	weatherHandler := NewWeatherHandler(deps.WeatherService)

	csrf := middleware.NewCSRFMiddleware(deps.CSRFConfig)

	// ヘルスチェック
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	// OAuthフロー（ブラウザ向けリダイレクト）
	r.Route("/auth", func(r chi.Router) {
		r.Use(deps.RateLimiter.AuthMiddleware())
		r.Get("/google/login", authHandler.GoogleLogin)
		r.Get("/google/callback", authHandler.GoogleCallback)
	})

	// CSRFトークン配布
	r.Method(http.MethodGet, "/api/csrf-token", middleware.NewCSRFTokenHandler(deps.CSRFConfig))

	// 認証API
	r.Route("/api/auth", func(r chi.Router) {
		r.Use(csrf)

		// 資格情報を受けるエンドポイントは認証系レート制限を適用
		r.Group(func(r chi.Router) {
			r.Use(deps.RateLimiter.AuthMiddleware())
			r.Post("/register", authHandler.Register)
			r.Post("/login", authHandler.Login)
		})

		// ログアウトは冪等なのでセッション必須にしない
		r.Post("/logout", authHandler.Logout)

		r.Group(func(r chi.Router) {
			r.Use(middleware.NewSessionMiddleware(deps.SessionFinder))
			r.Get("/user", authHandler.CurrentUser)
			r.Post("/logout-all", authHandler.LogoutAll)
		})
	})

	// ユーザープロフィール（要認証）
	r.Route("/user/api", func(r chi.Router) {
		r.Use(deps.RateLimiter.GeneralMiddleware())
		r.Use(middleware.NewSessionMiddleware(deps.SessionFinder))

		r.Get("/info", userHandler.Info)
		r.With(csrf).Post("/update", userHandler.Update)
	})

	// 市場カタログ（未認証でも閲覧可）
	r.Route("/api/markets", func(r chi.Router) {
		r.Use(deps.RateLimiter.GeneralMiddleware())
		r.Use(middleware.NewOptionalSessionMiddleware(deps.SessionFinder))

		r.Get("/", marketHandler.ListMarkets)
		r.Get("/search", marketHandler.SearchMarkets)
		r.Get("/nearby", marketHandler.NearbyMarkets)
		r.Get("/covered", marketHandler.CoveredMarkets)
		r.Get("/crowd-level", marketHandler.MarketsByCrowdLevel)
		r.Get("/statistics", marketHandler.MarketStatistics)

		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", marketHandler.GetMarket)
			r.With(csrf).Post("/sync", marketHandler.SyncMarket)
		})
	})

	// 天気プロキシ
	r.Route("/weather/api", func(r chi.Router) {
		r.Use(deps.RateLimiter.GeneralMiddleware())
		r.Get("/", weatherHandler.DefaultWeather)
		r.Get("/location", weatherHandler.WeatherForLocation)
	})

	return r
}
