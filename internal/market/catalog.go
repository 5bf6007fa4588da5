// Package market は市場カタログの参照系サービスを提供する。
// 検索・距離フィルタ・混雑度計算を組み合わせ、表示用のビューを構築する。
package market

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/hitoshi/ichiba/internal/crowd"
	"github.com/hitoshi/ichiba/internal/geo"
	"github.com/hitoshi/ichiba/internal/model"
	"github.com/hitoshi/ichiba/internal/repository"
	"github.com/hitoshi/ichiba/internal/security"
)

// DefaultRadiusKm は近隣検索で半径が指定されなかった場合の既定値（km）。
const DefaultRadiusKm = 10.0

// maxPhotos は1市場あたりのビューに添付する写真の上限。
const maxPhotos = 3

// PhotoProvider は外部カタログから市場の写真URLを取得するインターフェース。
type PhotoProvider interface {
	// PhotoURLs は外部カタログ参照IDに紐づく写真URLを返す。
	// 参照IDが空、または写真がない場合は空スライスを返す。
	PhotoURLs(ctx context.Context, placeID string, limit int) ([]string, error)
}

// MarketPhoto はビューに添付する写真。先頭の1枚がプライマリ扱いとなる。
type MarketPhoto struct {
	URL       string `json:"url"`
	IsPrimary bool   `json:"isPrimary"`
}

// MarketView は市場の表示用ビュー。保存済みフィールドに加えて
// 営業状態・現在の混雑度・写真の3つの計算済みフィールドを持つ。
type MarketView struct {
	ID                  string           `json:"id"`
	PlaceID             string           `json:"placeId,omitempty"`
	Name                string           `json:"name"`
	Address             string           `json:"address"`
	Latitude            float64          `json:"latitude"`
	Longitude           float64          `json:"longitude"`
	OpeningTime         *model.TimeOfDay `json:"openingTime,omitempty"`
	ClosingTime         *model.TimeOfDay `json:"closingTime,omitempty"`
	Description         string           `json:"description,omitempty"`
	Specialties         string           `json:"specialties,omitempty"`
	Highlights          string           `json:"highlights,omitempty"`
	IsCovered           bool             `json:"isCovered"`
	CrowdLevelMorning   model.CrowdLevel `json:"crowdLevelMorning"`
	CrowdLevelAfternoon model.CrowdLevel `json:"crowdLevelAfternoon"`
	CrowdLevelEvening   model.CrowdLevel `json:"crowdLevelEvening"`
	DataSource          model.DataSource `json:"dataSource"`
	LastSyncedAt        *time.Time       `json:"lastSyncedAt,omitempty"`
	PhoneNumber         string           `json:"phoneNumber,omitempty"`
	Website             string           `json:"website,omitempty"`

	// 計算済みフィールド
	IsOpen            *bool         `json:"isOpen"`
	CurrentCrowdLevel string        `json:"currentCrowdLevel"`
	Photos            []MarketPhoto `json:"photos"`
}

// Statistics は市場カタログの集計値。
type Statistics struct {
	TotalMarkets   int `json:"totalMarkets"`
	CoveredMarkets int `json:"coveredMarkets"`
}

// Catalog は市場カタログの参照系サービス。
type Catalog struct {
	marketRepo repository.MarketRepository
	photos     PhotoProvider
	sanitizer  security.TextSanitizerService
}

// NewCatalog はCatalogを生成する。
func NewCatalog(marketRepo repository.MarketRepository, photos PhotoProvider) *Catalog {
	return &Catalog{
		marketRepo: marketRepo,
		photos:     photos,
		sanitizer:  security.NewTextSanitizer(),
	}
}

// ListAll は全市場のビューを名前昇順で返す。
func (c *Catalog) ListAll(ctx context.Context, asOf model.TimeOfDay) ([]MarketView, error) {
	markets, err := c.marketRepo.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list markets: %w", err)
	}
	return c.buildViews(ctx, markets, asOf), nil
}

// GetByID は指定IDの市場のビューを返す。見つからない場合はMARKET_NOT_FOUND。
func (c *Catalog) GetByID(ctx context.Context, marketID string, asOf model.TimeOfDay) (*MarketView, error) {
	m, err := c.marketRepo.FindByID(ctx, marketID)
	if err != nil {
		return nil, fmt.Errorf("failed to find market: %w", err)
	}
	if m == nil {
		return nil, model.NewMarketNotFoundError(marketID)
	}
	view := c.buildView(ctx, m, asOf)
	return &view, nil
}

// SearchByName は名前の部分一致（大文字小文字を区別しない）で検索する。
func (c *Catalog) SearchByName(ctx context.Context, name string, asOf model.TimeOfDay) ([]MarketView, error) {
	return c.filter(ctx, asOf, func(m *model.Market) bool {
		return geo.ContainsFold(m.Name, name)
	})
}

// SearchBySpecialty は特産品の部分一致（大文字小文字を区別しない）で検索する。
func (c *Catalog) SearchBySpecialty(ctx context.Context, specialty string, asOf model.TimeOfDay) ([]MarketView, error) {
	return c.filter(ctx, asOf, func(m *model.Market) bool {
		return geo.ContainsFold(m.Specialties, specialty)
	})
}

// Nearby は基準点から半径radiusKm以内の市場を返す。
// 半径は指定値をそのまま使う。0は距離ゼロ（同一地点）のみ一致する。
// 半径省略時の既定値（DefaultRadiusKm）の適用は呼び出し側の責務とする。
func (c *Catalog) Nearby(ctx context.Context, latitude, longitude, radiusKm float64, asOf model.TimeOfDay) ([]MarketView, error) {
	markets, err := c.marketRepo.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list markets: %w", err)
	}

	nearby := geo.WithinRadius(latitude, longitude, radiusKm, markets)
	return c.buildViews(ctx, nearby, asOf), nil
}

// ListCovered は屋根付き市場のビューを返す。
func (c *Catalog) ListCovered(ctx context.Context, asOf model.TimeOfDay) ([]MarketView, error) {
	return c.filter(ctx, asOf, func(m *model.Market) bool {
		return m.IsCovered
	})
}

// ListByCrowdLevel は指定時間帯の混雑度が一致する市場を返す。
// 保存されている値だけを照合し、未設定の時間帯はどの混雑度にも一致しない。
// 列挙値が不正な場合はバリデーションエラーを返す。
func (c *Catalog) ListByCrowdLevel(ctx context.Context, timeOfDay, crowdLevel string, asOf model.TimeOfDay) ([]MarketView, error) {
	bucket, err := model.ParseTimeBucket(timeOfDay)
	if err != nil {
		return nil, model.NewInvalidTimeBucketError(timeOfDay)
	}
	level, err := model.ParseCrowdLevel(crowdLevel)
	if err != nil {
		return nil, model.NewInvalidCrowdLevelError(crowdLevel)
	}

	return c.filter(ctx, asOf, func(m *model.Market) bool {
		return crowd.StoredLevelFor(m, bucket) == level
	})
}

// GetStatistics は市場カタログの集計値を返す。
func (c *Catalog) GetStatistics(ctx context.Context) (*Statistics, error) {
	total, err := c.marketRepo.CountAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count markets: %w", err)
	}
	covered, err := c.marketRepo.CountCovered(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count covered markets: %w", err)
	}
	return &Statistics{TotalMarkets: total, CoveredMarkets: covered}, nil
}

// RegisterMarket は新しい市場を登録する。座標はこの1回だけ書き込まれる。
// 自由記述フィールドはプレーンテキストとして保存するため、HTMLタグを除去する。
func (c *Catalog) RegisterMarket(ctx context.Context, m *model.Market) error {
	if err := m.Validate(); err != nil {
		return err
	}
	m.Description, m.Specialties, m.Highlights = c.sanitizer.SanitizeMarketText(
		m.Description, m.Specialties, m.Highlights,
	)
	if err := c.marketRepo.Create(ctx, m); err != nil {
		return fmt.Errorf("failed to create market: %w", err)
	}
	slog.Info("market registered",
		slog.String("market_id", m.ID),
		slog.String("name", m.Name),
	)
	return nil
}

// filter は全市場を取得してpredで絞り込み、ビューを構築する。
func (c *Catalog) filter(ctx context.Context, asOf model.TimeOfDay, pred func(*model.Market) bool) ([]MarketView, error) {
	markets, err := c.marketRepo.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list markets: %w", err)
	}

	matched := make([]*model.Market, 0, len(markets))
	for _, m := range markets {
		if pred(m) {
			matched = append(matched, m)
		}
	}
	return c.buildViews(ctx, matched, asOf), nil
}

// buildViews は市場のスライスをビューに変換する。名前昇順を保証する。
func (c *Catalog) buildViews(ctx context.Context, markets []*model.Market, asOf model.TimeOfDay) []MarketView {
	views := make([]MarketView, len(markets))
	for i, m := range markets {
		views[i] = c.buildView(ctx, m, asOf)
	}
	sort.SliceStable(views, func(i, j int) bool {
		return views[i].Name < views[j].Name
	})
	return views
}

// buildView は1市場のビューを構築する。
// 写真の取得失敗はビュー全体を失敗させず、空リストに縮退する。
func (c *Catalog) buildView(ctx context.Context, m *model.Market, asOf model.TimeOfDay) MarketView {
	bucket := crowd.BucketFor(asOf)
	level := crowd.LevelFor(m, bucket)

	return MarketView{
		ID:                  m.ID,
		PlaceID:             m.PlaceID,
		Name:                m.Name,
		Address:             m.Address,
		Latitude:            m.Latitude,
		Longitude:           m.Longitude,
		OpeningTime:         m.OpeningTime,
		ClosingTime:         m.ClosingTime,
		Description:         m.Description,
		Specialties:         m.Specialties,
		Highlights:          m.Highlights,
		IsCovered:           m.IsCovered,
		CrowdLevelMorning:   m.CrowdLevelMorning,
		CrowdLevelAfternoon: m.CrowdLevelAfternoon,
		CrowdLevelEvening:   m.CrowdLevelEvening,
		DataSource:          m.DataSource,
		LastSyncedAt:        m.LastSyncedAt,
		PhoneNumber:         m.PhoneNumber,
		Website:             m.Website,
		IsOpen:              crowd.IsOpenAt(m, asOf),
		CurrentCrowdLevel:   strings.ToLower(string(level)),
		Photos:              c.fetchPhotos(ctx, m),
	}
}

// fetchPhotos は外部カタログから写真URLを最大maxPhotos件取得する。
// 先頭の1枚をプライマリとして返す。取得失敗は空リストに縮退する。
func (c *Catalog) fetchPhotos(ctx context.Context, m *model.Market) []MarketPhoto {
	if c.photos == nil || m.PlaceID == "" {
		return []MarketPhoto{}
	}

	urls, err := c.photos.PhotoURLs(ctx, m.PlaceID, maxPhotos)
	if err != nil {
		slog.Warn("photo fetch failed, returning empty list",
			slog.String("market_id", m.ID),
			slog.String("error", err.Error()),
		)
		return []MarketPhoto{}
	}

	if len(urls) > maxPhotos {
		urls = urls[:maxPhotos]
	}
	photos := make([]MarketPhoto, len(urls))
	for i, url := range urls {
		photos[i] = MarketPhoto{URL: url, IsPrimary: i == 0}
	}
	return photos
}
