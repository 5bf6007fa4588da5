package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/hitoshi/ichiba/internal/model"
	"github.com/hitoshi/ichiba/internal/weather"
)

type mockWeatherService struct {
	getDefaultFn     func(ctx context.Context) (*weather.Forecast, error)
	getForLocationFn func(ctx context.Context, latitude, longitude float64) (*weather.Forecast, error)
}

func (m *mockWeatherService) GetDefault(ctx context.Context) (*weather.Forecast, error) {
	if m.getDefaultFn != nil {
		return m.getDefaultFn(ctx)
	}
	return nil, nil
}

func (m *mockWeatherService) GetForLocation(ctx context.Context, latitude, longitude float64) (*weather.Forecast, error) {
	if m.getForLocationFn != nil {
		return m.getForLocationFn(ctx, latitude, longitude)
	}
	return nil, nil
}

var _ WeatherServiceInterface = (*mockWeatherService)(nil)

func sampleForecast() *weather.Forecast {
	return &weather.Forecast{
		Latitude:  5.4164,
		Longitude: 100.3327,
		Timezone:  "Asia/Kuala_Lumpur",
		Current: weather.CurrentWeather{
			Temperature: 31.5,
			Humidity:    78,
			WeatherCode: 1,
			Description: "Mostly Clear",
		},
	}
}

func TestDefaultWeather_ReturnsForecast(t *testing.T) {
	service := &mockWeatherService{
		getDefaultFn: func(ctx context.Context) (*weather.Forecast, error) {
			return sampleForecast(), nil
		},
	}
	h := NewWeatherHandler(service)

	req := httptest.NewRequest(http.MethodGet, "/weather/api", nil)
	w := httptest.NewRecorder()
	h.DefaultWeather(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}

	var forecast weather.Forecast
	if err := json.NewDecoder(w.Body).Decode(&forecast); err != nil {
		t.Fatalf("failed to decode: %v", err)
	}
	if forecast.Current.Description != "Mostly Clear" {
		t.Errorf("description = %q", forecast.Current.Description)
	}
}

func TestDefaultWeather_UpstreamFailure_Returns400(t *testing.T) {
	service := &mockWeatherService{
		getDefaultFn: func(ctx context.Context) (*weather.Forecast, error) {
			return nil, fmt.Errorf("%w: connection refused", model.NewUpstreamUnavailableError("weather"))
		},
	}
	h := NewWeatherHandler(service)

	req := httptest.NewRequest(http.MethodGet, "/weather/api", nil)
	w := httptest.NewRecorder()
	h.DefaultWeather(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestWeatherForLocation_PassesCoordinates(t *testing.T) {
	service := &mockWeatherService{
		getForLocationFn: func(ctx context.Context, latitude, longitude float64) (*weather.Forecast, error) {
			if latitude != 3.139 || longitude != 101.6869 {
				t.Errorf("coords = (%v, %v)", latitude, longitude)
			}
			return sampleForecast(), nil
		},
	}
	h := NewWeatherHandler(service)

	req := httptest.NewRequest(http.MethodGet, "/weather/api/location?lat=3.139&lon=101.6869", nil)
	w := httptest.NewRecorder()
	h.WeatherForLocation(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", w.Code)
	}
}

func TestWeatherForLocation_MalformedCoordinates_Returns400(t *testing.T) {
	tests := []struct {
		name   string
		target string
	}{
		{"緯度が数値でない", "/weather/api/location?lat=abc&lon=101.6"},
		{"経度が数値でない", "/weather/api/location?lat=3.1&lon=east"},
		{"パラメータなし", "/weather/api/location"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			called := false
			service := &mockWeatherService{
				getForLocationFn: func(ctx context.Context, latitude, longitude float64) (*weather.Forecast, error) {
					called = true
					return nil, nil
				},
			}
			h := NewWeatherHandler(service)

			req := httptest.NewRequest(http.MethodGet, tt.target, nil)
			w := httptest.NewRecorder()
			h.WeatherForLocation(w, req)

			if w.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", w.Code)
			}
			if called {
				t.Error("service should not be called for malformed coordinates")
			}
		})
	}
}

func TestWeatherForLocation_OutOfRange_Returns400(t *testing.T) {
	service := &mockWeatherService{
		getForLocationFn: func(ctx context.Context, latitude, longitude float64) (*weather.Forecast, error) {
			return nil, model.NewValidationError("latitude must be between -90 and 90")
		},
	}
	h := NewWeatherHandler(service)

	req := httptest.NewRequest(http.MethodGet, "/weather/api/location?lat=95.0&lon=100.0", nil)
	w := httptest.NewRecorder()
	h.WeatherForLocation(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}
