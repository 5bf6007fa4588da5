package app

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/time/rate"

	"github.com/hitoshi/ichiba/internal/auth"
	"github.com/hitoshi/ichiba/internal/config"
	"github.com/hitoshi/ichiba/internal/database"
	"github.com/hitoshi/ichiba/internal/handler"
	"github.com/hitoshi/ichiba/internal/logger"
	"github.com/hitoshi/ichiba/internal/market"
	"github.com/hitoshi/ichiba/internal/metrics"
	"github.com/hitoshi/ichiba/internal/middleware"
	"github.com/hitoshi/ichiba/internal/places"
	"github.com/hitoshi/ichiba/internal/repository"
	"github.com/hitoshi/ichiba/internal/security"
	"github.com/hitoshi/ichiba/internal/user"
	"github.com/hitoshi/ichiba/internal/weather"
	cleanuppkg "github.com/hitoshi/ichiba/internal/worker/cleanup"
	syncpkg "github.com/hitoshi/ichiba/internal/worker/sync"
)

// sessionCleanupInterval は期限切れセッション削除の実行間隔。
const sessionCleanupInterval = time.Hour

// Init はアプリケーションの初期化を行う。
// 環境変数からConfigを読み込み、JSON構造化ログをセットアップする。
// writerが指定された場合はログ出力先としてそのwriterを使用する。
func Init(w io.Writer) (*config.Config, error) {
	// 1. ログの初期化（設定読み込み前にログを使えるようにする）
	logger.SetupDefault(w)

	// 2. 環境変数から設定を読み込む
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	return cfg, nil
}

// Run はアプリケーションのメインエントリーポイント。
// コマンドライン引数からサブコマンドを解析し、対応するモードで起動する。
// argsにはos.Args[1:]を渡す。
func Run(w io.Writer, args []string) error {
	cmd := ParseCommand(args)

	// healthcheck は軽量サブコマンドのため、フル初期化をスキップする
	if cmd == CommandHealthcheck {
		port := os.Getenv("SERVER_PORT")
		if port == "" {
			port = "8080"
		}
		return runHealthcheck(port)
	}

	cfg, err := Init(w)
	if err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}

	slog.Info("starting application",
		slog.String("command", string(cmd)),
		slog.String("port", cfg.ServerPort),
		slog.String("base_url", cfg.BaseURL),
	)

	switch cmd {
	case CommandServe:
		return runServe(cfg)
	case CommandWorker:
		return runWorker(cfg)
	case CommandMigrate:
		return runMigrate(cfg)
	default:
		return runServe(cfg)
	}
}

// services はDB接続からワイヤリングした共通の依存一式。
// serveモードとworkerモードの両方で使う部分をまとめる。
type services struct {
	userRepo    repository.UserRepository
	sessionRepo *repository.PostgresSessionRepo
	marketRepo  repository.MarketRepository

	ssrfGuard security.SSRFGuardService

	registry  *prometheus.Registry
	collector *metrics.Collector

	placesClient *places.Client
	syncService  *places.SyncService
}

// buildServices は共有の依存関係をワイヤリングする。
func buildServices(cfg *config.Config, db *sql.DB) *services {
	userRepo := repository.NewPostgresUserRepo(db)
	sessionRepo := repository.NewPostgresSessionRepo(db)
	marketRepo := repository.NewPostgresMarketRepo(db)

	ssrfGuard := security.NewSSRFGuard()

	registry := prometheus.NewRegistry()
	collector := metrics.NewCollector(registry)

	placesClient := places.NewClient(places.ClientConfig{
		BaseURL: cfg.PlacesAPIBaseURL,
		APIKey:  cfg.GoogleMapsAPIKey,
		Timeout: cfg.UpstreamTimeout,
	}, ssrfGuard, collector)

	faviconFetcher := places.NewFaviconFetcher(ssrfGuard)

	syncService := places.NewSyncService(
		marketRepo, placesClient, faviconFetcher, collector, cfg.SyncAPIInterval,
	)

	return &services{
		userRepo:     userRepo,
		sessionRepo:  sessionRepo,
		marketRepo:   marketRepo,
		ssrfGuard:    ssrfGuard,
		registry:     registry,
		collector:    collector,
		placesClient: placesClient,
		syncService:  syncService,
	}
}

// runServe はAPIサーバーモードで起動する。
// DB接続を開き、全依存関係をワイヤリングし、HTTPサーバーを起動する。
// メトリクスは別ポートで公開する。
// SIGINTまたはSIGTERMシグナルを受信するとグレースフルシャットダウンを行う。
func runServe(cfg *config.Config) error {
	// 1. DB接続
	db, err := database.Open(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	slog.Info("database connection established")

	// 2. 共通依存のワイヤリング
	svcs := buildServices(cfg, db)

	// 3. 認証サービス
	oauthProvider := auth.NewGoogleOAuthProvider(auth.GoogleOAuthConfig{
		ClientID:     cfg.GoogleClientID,
		ClientSecret: cfg.GoogleClientSecret,
		RedirectURL:  cfg.GoogleRedirectURL,
	})
	authService := auth.NewService(
		oauthProvider, svcs.userRepo, svcs.sessionRepo,
		auth.ServiceConfig{
			SessionMaxAge:         cfg.SessionMaxAge,
			SessionMaxPerUser:     cfg.SessionMaxPerUser,
			SessionOverflowPolicy: cfg.SessionOverflowPolicy,
		},
	)
	identityResolver := auth.NewIdentityResolver(svcs.userRepo)

	// ユーザープロフィール
	userService := user.NewService(svcs.userRepo)

	// 4. 市場カタログ
	catalog := market.NewCatalog(svcs.marketRepo, svcs.placesClient)

	// 5. 天気プロキシ
	weatherClient := weather.NewClient(weather.ClientConfig{
		BaseURL:  cfg.OpenMeteoAPIURL,
		Timezone: cfg.WeatherTimezone,
		Timeout:  cfg.UpstreamTimeout,
	}, svcs.ssrfGuard, svcs.collector)
	weatherService := weather.NewService(weatherClient, weather.ServiceConfig{
		DefaultLatitude:  cfg.WeatherDefaultLatitude,
		DefaultLongitude: cfg.WeatherDefaultLongitude,
	})

	// 6. ルーターの構築
	// configのレート値はreq/min単位なのでreq/secに変換する
	rateLimiter := middleware.NewRateLimiter(middleware.RateLimiterConfig{
		GeneralRate:     rate.Limit(float64(cfg.RateLimitGeneral) / 60.0),
		GeneralBurst:    cfg.RateLimitGeneral,
		AuthRate:        rate.Limit(float64(cfg.RateLimitAuth) / 60.0),
		AuthBurst:       cfg.RateLimitAuth,
		CleanupInterval: 5 * time.Minute,
	})
	defer rateLimiter.Stop()

	router := handler.NewRouter(&handler.RouterDeps{
		Logger:            slog.Default(),
		CORSAllowedOrigin: cfg.CORSAllowedOrigin,
		RateLimiter:       rateLimiter,
		SessionFinder:     svcs.sessionRepo,
		CSRFConfig: middleware.CSRFConfig{
			CookieSecure: cfg.CookieSecure,
			CookieDomain: cfg.CookieDomain,
		},

		AuthService:      authService,
		IdentityResolver: identityResolver,
		AuthConfig: handler.AuthHandlerConfig{
			BaseURL:       cfg.BaseURL,
			CookieDomain:  cfg.CookieDomain,
			CookieSecure:  cfg.CookieSecure,
			SessionMaxAge: cfg.SessionMaxAge,
		},

		UserService: userService,

		MarketCatalog: catalog,
		MarketSync:    svcs.syncService,

		WeatherService: weatherService,
	})

	// 7. HTTPサーバーの起動
	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// メトリクスは別リスナーで公開する
	metricsServer := &http.Server{
		Addr:    ":" + cfg.MetricsPort,
		Handler: metrics.SetupMetricsRoute(svcs.registry),
	}

	// グレースフルシャットダウンのためのシグナルハンドリング
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		slog.Info("metrics server starting",
			slog.String("addr", metricsServer.Addr),
		)
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("metrics server listen error", slog.String("error", err.Error()))
		}
	}()

	go func() {
		slog.Info("API server starting",
			slog.String("addr", server.Addr),
		)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server listen error", slog.String("error", err.Error()))
		}
	}()

	<-stop
	slog.Info("shutting down API server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	if err := metricsServer.Shutdown(ctx); err != nil {
		slog.Error("metrics server shutdown failed", slog.String("error", err.Error()))
	}

	slog.Info("API server stopped gracefully")
	return nil
}

// runWorker はワーカーモードで起動する。
// 市場同期スケジューラとセッションクリーンアップジョブを起動する。
// SIGINTまたはSIGTERMシグナルを受信するとシャットダウンする。
func runWorker(cfg *config.Config) error {
	// 1. DB接続
	db, err := database.Open(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	slog.Info("database connection established (worker)")

	// 2. 共通依存のワイヤリング
	svcs := buildServices(cfg, db)

	// 3. 市場同期スケジューラ
	scheduler := syncpkg.NewScheduler(svcs.syncService, slog.Default(), syncpkg.SchedulerConfig{
		Interval:  cfg.SyncBatchInterval,
		StaleDays: cfg.SyncStaleDays,
	})

	// 4. セッションクリーンアップジョブ
	cleanupJob := cleanuppkg.NewCleanupJob(svcs.sessionRepo, svcs.collector, slog.Default())

	// 5. メトリクスの公開（同期・クリーンアップのカウンタ用）
	metricsServer := &http.Server{
		Addr:    ":" + cfg.MetricsPort,
		Handler: metrics.SetupMetricsRoute(svcs.registry),
	}

	// グレースフルシャットダウンのためのシグナルハンドリング
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-stop
		slog.Info("shutting down worker...")
		cancel()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			slog.Error("metrics server shutdown failed", slog.String("error", err.Error()))
		}
	}()

	go func() {
		slog.Info("metrics server starting (worker)",
			slog.String("addr", metricsServer.Addr),
		)
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("metrics server listen error", slog.String("error", err.Error()))
		}
	}()

	slog.Info("worker starting",
		slog.Duration("sync_interval", cfg.SyncBatchInterval),
		slog.Int("sync_stale_days", cfg.SyncStaleDays),
	)

	// セッションクリーンアップをバックグラウンドで定期実行
	go func() {
		// 起動直後に1回実行
		if err := cleanupJob.Run(ctx); err != nil {
			slog.Error("cleanup job failed", slog.String("error", err.Error()))
		}
		cleanupJob.Start(ctx, sessionCleanupInterval)
	}()

	// 市場同期スケジューラをメインgoroutineで実行（ブロッキング）
	scheduler.Start(ctx)

	slog.Info("worker stopped gracefully")
	return nil
}

// runMigrate はデータベースマイグレーションを実行する。
// すべての未適用マイグレーションを順番に適用する。
func runMigrate(cfg *config.Config) error {
	slog.Info("running database migrations",
		slog.String("database_url", maskDatabaseURL(cfg.DatabaseURL)),
	)

	if err := database.RunMigrations(cfg.DatabaseURL); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	slog.Info("database migrations completed successfully")
	return nil
}

// runHealthcheck はヘルスチェックを実行する。
// distroless環境でのDockerヘルスチェック用サブコマンド。
// /health エンドポイントにHTTPリクエストを送り、結果を返す。
func runHealthcheck(port string) error {
	url := fmt.Sprintf("http://localhost:%s/health", port)
	client := &http.Client{Timeout: 5 * time.Second}

	resp, err := client.Get(url)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned status %d", resp.StatusCode)
	}

	return nil
}

// maskDatabaseURL はデータベースURLの認証情報をマスクする。
func maskDatabaseURL(url string) string {
	if len(url) > 20 {
		return url[:12] + "***@..."
	}
	return "***"
}
