package weather

import (
	"context"
	"fmt"

	"github.com/hitoshi/ichiba/internal/model"
)

// ServiceConfig は天気サービスの設定。
type ServiceConfig struct {
	DefaultLatitude  float64
	DefaultLongitude float64
}

// Service は天気予報のビジネスロジックを提供する。
// 座標未指定のリクエストには設定された既定地点を使う。
type Service struct {
	provider ForecastProvider
	config   ServiceConfig
}

// NewService はServiceを生成する。
func NewService(provider ForecastProvider, config ServiceConfig) *Service {
	return &Service{
		provider: provider,
		config:   config,
	}
}

// GetDefault は既定地点の天気予報を取得する。
func (s *Service) GetDefault(ctx context.Context) (*Forecast, error) {
	return s.GetForLocation(ctx, s.config.DefaultLatitude, s.config.DefaultLongitude)
}

// GetForLocation は指定座標の天気予報を取得する。
// 座標が範囲外の場合はバリデーションエラーを返す。
func (s *Service) GetForLocation(ctx context.Context, latitude, longitude float64) (*Forecast, error) {
	if latitude < -90 || latitude > 90 {
		return nil, model.NewValidationError(fmt.Sprintf("Latitude out of range: %v", latitude))
	}
	if longitude < -180 || longitude > 180 {
		return nil, model.NewValidationError(fmt.Sprintf("Longitude out of range: %v", longitude))
	}

	forecast, err := s.provider.FetchForecast(ctx, latitude, longitude)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", model.NewUpstreamUnavailableError("weather"), err)
	}
	return forecast, nil
}
