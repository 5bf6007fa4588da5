package places

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hitoshi/ichiba/internal/metrics"
	"github.com/hitoshi/ichiba/internal/model"
	"github.com/hitoshi/ichiba/internal/repository"
)

// SyncResult は一括同期の結果集計。
type SyncResult struct {
	Attempted int
	Succeeded int
	Failed    int
	Skipped   int
}

// SyncService は外部カタログから市場の連絡先情報を同期するサービス。
// 同期はベストエフォートで、上書き対象はphone_number、website、
// last_synced_at（とウェブサイト由来のfavicon）に限定される。
// 登録時に書き込まれた座標・説明文などには決して触れない。
type SyncService struct {
	marketRepo repository.MarketRepository
	details    DetailsProvider
	favicon    FaviconFetcherService
	metrics    metrics.MetricsCollector

	// 外部APIのレート制限を尊重するための呼び出し間隔
	callInterval time.Duration
}

// NewSyncService はSyncServiceを生成する。
func NewSyncService(
	marketRepo repository.MarketRepository,
	details DetailsProvider,
	favicon FaviconFetcherService,
	collector metrics.MetricsCollector,
	callInterval time.Duration,
) *SyncService {
	if callInterval <= 0 {
		callInterval = 200 * time.Millisecond
	}
	return &SyncService{
		marketRepo:   marketRepo,
		details:      details,
		favicon:      favicon,
		metrics:      collector,
		callInterval: callInterval,
	}
}

// SyncOne は1市場を外部カタログと同期する。
// 外部カタログ参照IDを持たない市場は何もしない（エラーにもしない）。
// 外部サービスの失敗はログに記録して握りつぶす（同期はベストエフォート）。
// 市場が見つからない場合とストア書き込みの失敗だけがエラーとして返る。
func (s *SyncService) SyncOne(ctx context.Context, marketID string) error {
	m, err := s.marketRepo.FindByID(ctx, marketID)
	if err != nil {
		return fmt.Errorf("failed to find market: %w", err)
	}
	if m == nil {
		return model.NewMarketNotFoundError(marketID)
	}

	if err := s.syncMarket(ctx, m); err != nil {
		var apiErr *model.APIError
		if errors.As(err, &apiErr) && apiErr.Code == model.ErrCodeUpstreamUnavailable {
			slog.Warn("external catalog unavailable, sync skipped",
				slog.String("market_id", m.ID),
				slog.String("error", err.Error()),
			)
			return nil
		}
		return err
	}
	return nil
}

// SyncAll は外部カタログ参照を持つ全市場を順番に同期する。
// 呼び出しごとに固定の間隔を空け、1件の失敗が残りを止めないようにする。
func (s *SyncService) SyncAll(ctx context.Context) (*SyncResult, error) {
	markets, err := s.marketRepo.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list markets: %w", err)
	}
	return s.syncSequential(ctx, markets), nil
}

// SyncStale は最終同期がolderThanより古い市場だけを同期する。
// ワーカーモードの定期実行から呼ばれる。
func (s *SyncService) SyncStale(ctx context.Context, olderThan time.Time) (*SyncResult, error) {
	markets, err := s.marketRepo.ListNeedingSync(ctx, olderThan)
	if err != nil {
		return nil, fmt.Errorf("failed to list markets needing sync: %w", err)
	}
	return s.syncSequential(ctx, markets), nil
}

// syncSequential は市場を順番に同期する。失敗は件ごとに隔離する。
func (s *SyncService) syncSequential(ctx context.Context, markets []*model.Market) *SyncResult {
	result := &SyncResult{}
	for i, m := range markets {
		if m.PlaceID == "" {
			result.Skipped++
			continue
		}
		if ctx.Err() != nil {
			slog.Info("sync cancelled",
				slog.Int("remaining", len(markets)-i),
			)
			break
		}

		result.Attempted++
		if err := s.syncMarket(ctx, m); err != nil {
			// 1件の失敗で残りを止めない
			result.Failed++
			slog.Error("market sync failed",
				slog.String("market_id", m.ID),
				slog.String("error", err.Error()),
			)
		} else {
			result.Succeeded++
		}

		if i < len(markets)-1 {
			select {
			case <-time.After(s.callInterval):
			case <-ctx.Done():
			}
		}
	}

	slog.Info("sync batch finished",
		slog.Int("attempted", result.Attempted),
		slog.Int("succeeded", result.Succeeded),
		slog.Int("failed", result.Failed),
		slog.Int("skipped", result.Skipped),
	)
	return result
}

// syncMarket は1市場の連絡先情報を取得して反映する。
func (s *SyncService) syncMarket(ctx context.Context, m *model.Market) error {
	if m.PlaceID == "" {
		return nil
	}

	details, err := s.details.FetchDetails(ctx, m.PlaceID)
	if err != nil {
		if s.metrics != nil {
			s.metrics.RecordSyncFailure(m.ID, err.Error())
		}
		return fmt.Errorf("%w: %v", model.NewUpstreamUnavailableError("places"), err)
	}

	if err := s.marketRepo.UpdateContactInfo(ctx, m.ID, details.PhoneNumber, details.Website, time.Now()); err != nil {
		if s.metrics != nil {
			s.metrics.RecordSyncFailure(m.ID, err.Error())
		}
		return fmt.Errorf("failed to update contact info: %w", err)
	}

	s.updateFavicon(ctx, m.ID, details.Website)

	if s.metrics != nil {
		s.metrics.RecordSyncSuccess(m.ID)
	}
	slog.Info("market synced",
		slog.String("market_id", m.ID),
		slog.String("place_id", m.PlaceID),
	)
	return nil
}

// updateFavicon はウェブサイトからfaviconを取得して保存する。
// faviconは飾りなので、失敗はログだけ残して同期全体には影響させない。
func (s *SyncService) updateFavicon(ctx context.Context, marketID, website string) {
	if s.favicon == nil || website == "" {
		return
	}

	data, mime, err := s.favicon.FetchForWebsite(ctx, website)
	if err != nil || data == nil {
		return
	}

	if err := s.marketRepo.UpdateFavicon(ctx, marketID, data, mime); err != nil {
		slog.Warn("favicon update failed",
			slog.String("market_id", marketID),
			slog.String("error", err.Error()),
		)
	}
}
