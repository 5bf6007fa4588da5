package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/hitoshi/ichiba/internal/market"
	"github.com/hitoshi/ichiba/internal/middleware"
	"github.com/hitoshi/ichiba/internal/model"
)

// MarketCatalogInterface は市場ハンドラーが必要とするカタログサービスのインターフェース。
type MarketCatalogInterface interface {
	ListAll(ctx context.Context, asOf model.TimeOfDay) ([]market.MarketView, error)
	GetByID(ctx context.Context, marketID string, asOf model.TimeOfDay) (*market.MarketView, error)
	SearchByName(ctx context.Context, name string, asOf model.TimeOfDay) ([]market.MarketView, error)
	SearchBySpecialty(ctx context.Context, specialty string, asOf model.TimeOfDay) ([]market.MarketView, error)
	Nearby(ctx context.Context, latitude, longitude, radiusKm float64, asOf model.TimeOfDay) ([]market.MarketView, error)
	ListCovered(ctx context.Context, asOf model.TimeOfDay) ([]market.MarketView, error)
	ListByCrowdLevel(ctx context.Context, timeOfDay, crowdLevel string, asOf model.TimeOfDay) ([]market.MarketView, error)
	GetStatistics(ctx context.Context) (*market.Statistics, error)
}

// MarketSyncInterface は単一市場の外部カタログ同期のインターフェース。
type MarketSyncInterface interface {
	SyncOne(ctx context.Context, marketID string) error
}

// MarketHandler は市場カタログのHTTPハンドラー。
type MarketHandler struct {
	catalog MarketCatalogInterface
	sync    MarketSyncInterface
}

// NewMarketHandler はMarketHandlerを生成する。
func NewMarketHandler(catalog MarketCatalogInterface, sync MarketSyncInterface) *MarketHandler {
	return &MarketHandler{
		catalog: catalog,
		sync:    sync,
	}
}

// ListMarkets は全市場の一覧を名前昇順で返す。
// GET /api/markets
func (h *MarketHandler) ListMarkets(w http.ResponseWriter, r *http.Request) {
	asOf, ok := asOfFromRequest(w, r)
	if !ok {
		return
	}

	views, err := h.catalog.ListAll(r.Context(), asOf)
	if err != nil {
		middleware.WriteAPIError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, views)
}

// GetMarket は市場詳細を返す。
// GET /api/markets/{id}
func (h *MarketHandler) GetMarket(w http.ResponseWriter, r *http.Request) {
	asOf, ok := asOfFromRequest(w, r)
	if !ok {
		return
	}

	marketID := chi.URLParam(r, "id")
	view, err := h.catalog.GetByID(r.Context(), marketID, asOf)
	if err != nil {
		middleware.WriteAPIError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, view)
}

// SearchMarkets は名前または特産品の部分一致で市場を検索する。
// GET /api/markets/search?name=|specialty=
func (h *MarketHandler) SearchMarkets(w http.ResponseWriter, r *http.Request) {
	asOf, ok := asOfFromRequest(w, r)
	if !ok {
		return
	}

	name := r.URL.Query().Get("name")
	specialty := r.URL.Query().Get("specialty")

	var (
		views []market.MarketView
		err   error
	)
	switch {
	case name != "":
		views, err = h.catalog.SearchByName(r.Context(), name, asOf)
	case specialty != "":
		views, err = h.catalog.SearchBySpecialty(r.Context(), specialty, asOf)
	default:
		middleware.WriteAPIError(w, model.NewValidationError("Either name or specialty query parameter is required"))
		return
	}
	if err != nil {
		middleware.WriteAPIError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, views)
}

// NearbyMarkets は指定座標から半径内の市場を返す。
// GET /api/markets/nearby?latitude=&longitude=&radius=
func (h *MarketHandler) NearbyMarkets(w http.ResponseWriter, r *http.Request) {
	asOf, ok := asOfFromRequest(w, r)
	if !ok {
		return
	}

	latitude, err := strconv.ParseFloat(r.URL.Query().Get("latitude"), 64)
	if err != nil {
		middleware.WriteAPIError(w, model.NewValidationError("latitude must be a valid number"))
		return
	}
	longitude, err := strconv.ParseFloat(r.URL.Query().Get("longitude"), 64)
	if err != nil {
		middleware.WriteAPIError(w, model.NewValidationError("longitude must be a valid number"))
		return
	}

	// radiusは省略時のみ既定半径になる。明示的な0は距離ゼロのみ一致する。
	radiusKm := market.DefaultRadiusKm
	if raw := r.URL.Query().Get("radius"); raw != "" {
		radiusKm, err = strconv.ParseFloat(raw, 64)
		if err != nil {
			middleware.WriteAPIError(w, model.NewValidationError("radius must be a valid number"))
			return
		}
	}

	views, err := h.catalog.Nearby(r.Context(), latitude, longitude, radiusKm, asOf)
	if err != nil {
		middleware.WriteAPIError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, views)
}

// CoveredMarkets は屋根付き市場の一覧を返す。
// GET /api/markets/covered
func (h *MarketHandler) CoveredMarkets(w http.ResponseWriter, r *http.Request) {
	asOf, ok := asOfFromRequest(w, r)
	if !ok {
		return
	}

	views, err := h.catalog.ListCovered(r.Context(), asOf)
	if err != nil {
		middleware.WriteAPIError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, views)
}

// MarketsByCrowdLevel は時間帯と混雑度で市場を絞り込む。
// GET /api/markets/crowd-level?timeOfDay=&crowdLevel=
func (h *MarketHandler) MarketsByCrowdLevel(w http.ResponseWriter, r *http.Request) {
	asOf, ok := asOfFromRequest(w, r)
	if !ok {
		return
	}

	timeOfDay := r.URL.Query().Get("timeOfDay")
	crowdLevel := r.URL.Query().Get("crowdLevel")

	views, err := h.catalog.ListByCrowdLevel(r.Context(), timeOfDay, crowdLevel, asOf)
	if err != nil {
		middleware.WriteAPIError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, views)
}

// MarketStatistics は市場数の集計を返す。
// GET /api/markets/statistics
func (h *MarketHandler) MarketStatistics(w http.ResponseWriter, r *http.Request) {
	stats, err := h.catalog.GetStatistics(r.Context())
	if err != nil {
		middleware.WriteAPIError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, stats)
}

// SyncMarket は単一市場を外部カタログと同期する。
// POST /api/markets/{id}/sync
func (h *MarketHandler) SyncMarket(w http.ResponseWriter, r *http.Request) {
	marketID := chi.URLParam(r, "id")

	if err := h.sync.SyncOne(r.Context(), marketID); err != nil {
		slog.Error("market sync failed",
			slog.String("market_id", marketID),
			slog.String("error", err.Error()),
		)
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte("Failed to sync market data"))
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("Market data synced successfully"))
}

// asOfFromRequest はasOfクエリパラメータ（HH:MM）を解釈する。
// 省略時は現在時刻。不正な形式の場合は400を書き込みfalseを返す。
func asOfFromRequest(w http.ResponseWriter, r *http.Request) (model.TimeOfDay, bool) {
	raw := r.URL.Query().Get("asOf")
	if raw == "" {
		return model.TimeOfDayFromClock(time.Now()), true
	}

	asOf, err := model.ParseTimeOfDay(raw)
	if err != nil {
		middleware.WriteAPIError(w, model.NewValidationError("asOf must be in HH:MM format"))
		return 0, false
	}
	return asOf, true
}
