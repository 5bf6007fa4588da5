package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/hitoshi/ichiba/internal/middleware"
	"github.com/hitoshi/ichiba/internal/model"
	"github.com/hitoshi/ichiba/internal/weather"
)

// WeatherServiceInterface は天気ハンドラーが必要とするサービスインターフェース。
type WeatherServiceInterface interface {
	GetDefault(ctx context.Context) (*weather.Forecast, error)
	GetForLocation(ctx context.Context, latitude, longitude float64) (*weather.Forecast, error)
}

// WeatherHandler は天気プロキシのHTTPハンドラー。
type WeatherHandler struct {
	service WeatherServiceInterface
}

// NewWeatherHandler はWeatherHandlerを生成する。
func NewWeatherHandler(service WeatherServiceInterface) *WeatherHandler {
	return &WeatherHandler{service: service}
}

// DefaultWeather は既定地点の天気予報を返す。
// GET /weather/api
func (h *WeatherHandler) DefaultWeather(w http.ResponseWriter, r *http.Request) {
	forecast, err := h.service.GetDefault(r.Context())
	if err != nil {
		middleware.WriteAPIError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, forecast)
}

// WeatherForLocation は指定座標の天気予報を返す。
// GET /weather/api/location?lat=&lon=
func (h *WeatherHandler) WeatherForLocation(w http.ResponseWriter, r *http.Request) {
	latitude, err := strconv.ParseFloat(r.URL.Query().Get("lat"), 64)
	if err != nil {
		middleware.WriteAPIError(w, model.NewValidationError("lat must be a valid number"))
		return
	}
	longitude, err := strconv.ParseFloat(r.URL.Query().Get("lon"), 64)
	if err != nil {
		middleware.WriteAPIError(w, model.NewValidationError("lon must be a valid number"))
		return
	}

	forecast, err := h.service.GetForLocation(r.Context(), latitude, longitude)
	if err != nil {
		middleware.WriteAPIError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, forecast)
}
