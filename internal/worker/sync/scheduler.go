// Package sync は市場カタログの外部同期を定期実行するスケジューラを提供する。
// 最終同期が一定日数より古い市場だけを対象にし、同期自体はベストエフォート。
package sync

import (
	"context"
	"log/slog"
	"time"

	"github.com/hitoshi/ichiba/internal/places"
)

// SyncRunner は同期バッチの実行インターフェース。
type SyncRunner interface {
	// SyncStale は最終同期がolderThanより古い市場を順次同期する。
	SyncStale(ctx context.Context, olderThan time.Time) (*places.SyncResult, error)
}

// SchedulerConfig はスケジューラの設定。
type SchedulerConfig struct {
	Interval  time.Duration // バッチの実行間隔（デフォルト: 6時間）
	StaleDays int           // この日数より古い同期を対象とする（デフォルト: 7）
}

// Scheduler は市場同期バッチの定期実行を行う。
type Scheduler struct {
	runner SyncRunner
	logger *slog.Logger
	config SchedulerConfig
}

// NewScheduler はSchedulerの新しいインスタンスを生成する。
func NewScheduler(runner SyncRunner, logger *slog.Logger, config SchedulerConfig) *Scheduler {
	if config.Interval <= 0 {
		config.Interval = 6 * time.Hour
	}
	if config.StaleDays <= 0 {
		config.StaleDays = 7
	}
	return &Scheduler{
		runner: runner,
		logger: logger,
		config: config,
	}
}

// Start はティッカーでスケジューラを起動する。
// コンテキストがキャンセルされるまで実行を継続する。
func (s *Scheduler) Start(ctx context.Context) {
	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	s.logger.Info("市場同期スケジューラを開始しました",
		slog.Duration("interval", s.config.Interval),
		slog.Int("stale_days", s.config.StaleDays),
	)

	// 起動直後に1回実行
	if err := s.RunOnce(ctx); err != nil {
		s.logger.Error("市場同期サイクルの実行に失敗しました",
			slog.String("error", err.Error()),
		)
	}

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("市場同期スケジューラを停止しました")
			return
		case <-ticker.C:
			if err := s.RunOnce(ctx); err != nil {
				s.logger.Error("市場同期サイクルの実行に失敗しました",
					slog.String("error", err.Error()),
				)
			}
		}
	}
}

// RunOnce は同期バッチを1回実行する。
// 個々の市場の失敗はSyncRunner側で隔離されるため、ここで返るエラーは
// 対象一覧の取得失敗などバッチ全体の失敗のみ。
func (s *Scheduler) RunOnce(ctx context.Context) error {
	start := time.Now()
	olderThan := start.AddDate(0, 0, -s.config.StaleDays)

	result, err := s.runner.SyncStale(ctx, olderThan)
	if err != nil {
		return err
	}

	duration := time.Since(start)
	s.logger.Info("市場同期サイクルが完了しました",
		slog.Int("attempted", result.Attempted),
		slog.Int("succeeded", result.Succeeded),
		slog.Int("failed", result.Failed),
		slog.Int("skipped", result.Skipped),
		slog.Float64("duration_ms", float64(duration.Milliseconds())),
	)

	return nil
}
