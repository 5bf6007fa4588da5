package weather

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/hitoshi/ichiba/internal/metrics"
	"github.com/hitoshi/ichiba/internal/security"
)

// maxResponseSize はOpen-Meteoレスポンスの最大サイズ（1MB）。
const maxResponseSize = 1 * 1024 * 1024

// forecastDays は日次予報の日数。
const forecastDays = 7

// serviceName はメトリクスのサービスラベル。
const serviceName = "weather"

// Forecast はOpen-Meteoから取得した現在の天気と日次予報。
type Forecast struct {
	Latitude  float64       `json:"latitude"`
	Longitude float64       `json:"longitude"`
	Timezone  string        `json:"timezone"`
	Current   CurrentWeather `json:"current"`
	Daily     []DailyWeather `json:"daily"`
}

// CurrentWeather は現在の天気。
type CurrentWeather struct {
	Temperature float64 `json:"temperature"`
	Humidity    float64 `json:"humidity"`
	WeatherCode int     `json:"weatherCode"`
	Description string  `json:"description"`
}

// DailyWeather は1日分の予報。
type DailyWeather struct {
	Date                     string  `json:"date"`
	TemperatureMax           float64 `json:"temperatureMax"`
	TemperatureMin           float64 `json:"temperatureMin"`
	PrecipitationProbability int     `json:"precipitationProbability"`
	WeatherCode              int     `json:"weatherCode"`
	Description              string  `json:"description"`
}

// ForecastProvider は天気予報取得のインターフェース。
type ForecastProvider interface {
	// FetchForecast は指定座標の現在の天気と7日間予報を取得する。
	FetchForecast(ctx context.Context, latitude, longitude float64) (*Forecast, error)
}

// ClientConfig はClientの設定。
type ClientConfig struct {
	BaseURL  string
	Timezone string
	Timeout  time.Duration
}

// Client はOpen-Meteo APIのクライアント。
// 呼び出しはSSRF防止付きクライアントで行い、失敗時は1回だけ再試行する。
type Client struct {
	baseURL    string
	timezone   string
	httpClient *http.Client
	metrics    metrics.MetricsCollector
}

// NewClient はClientを生成する。
func NewClient(config ClientConfig, ssrfGuard security.SSRFGuardService, collector metrics.MetricsCollector) *Client {
	timeout := config.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	var httpClient *http.Client
	if ssrfGuard != nil {
		httpClient = ssrfGuard.NewSafeClient(timeout, maxResponseSize)
	} else {
		httpClient = &http.Client{Timeout: timeout}
	}

	return &Client{
		baseURL:    config.BaseURL,
		timezone:   config.Timezone,
		httpClient: httpClient,
		metrics:    collector,
	}
}

// openMeteoResponse はOpen-Meteo forecastエンドポイントのレスポンス。
type openMeteoResponse struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Timezone  string  `json:"timezone"`
	Current   struct {
		Temperature float64 `json:"temperature_2m"`
		Humidity    float64 `json:"relative_humidity_2m"`
		WeatherCode int     `json:"weather_code"`
	} `json:"current"`
	Daily struct {
		Time                     []string  `json:"time"`
		TemperatureMax           []float64 `json:"temperature_2m_max"`
		TemperatureMin           []float64 `json:"temperature_2m_min"`
		PrecipitationProbability []int     `json:"precipitation_probability_max"`
		WeatherCode              []int     `json:"weather_code"`
	} `json:"daily"`
}

// FetchForecast は指定座標の現在の天気と7日間予報を取得する。
// 天気コードはWMO対応表で表示用ラベルに変換して返す。
func (c *Client) FetchForecast(ctx context.Context, latitude, longitude float64) (*Forecast, error) {
	query := url.Values{}
	query.Set("latitude", strconv.FormatFloat(latitude, 'f', 4, 64))
	query.Set("longitude", strconv.FormatFloat(longitude, 'f', 4, 64))
	query.Set("current", "temperature_2m,relative_humidity_2m,weather_code")
	query.Set("daily", "temperature_2m_max,temperature_2m_min,precipitation_probability_max,weather_code")
	query.Set("forecast_days", strconv.Itoa(forecastDays))
	if c.timezone != "" {
		query.Set("timezone", c.timezone)
	}
	requestURL := fmt.Sprintf("%s?%s", c.baseURL, query.Encode())

	body, err := c.get(ctx, requestURL)
	if err != nil {
		return nil, err
	}

	var parsed openMeteoResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse weather response: %w", err)
	}

	forecast := &Forecast{
		Latitude:  parsed.Latitude,
		Longitude: parsed.Longitude,
		Timezone:  parsed.Timezone,
		Current: CurrentWeather{
			Temperature: parsed.Current.Temperature,
			Humidity:    parsed.Current.Humidity,
			WeatherCode: parsed.Current.WeatherCode,
			Description: DescribeCode(parsed.Current.WeatherCode),
		},
	}

	for i, date := range parsed.Daily.Time {
		day := DailyWeather{Date: date}
		if i < len(parsed.Daily.TemperatureMax) {
			day.TemperatureMax = parsed.Daily.TemperatureMax[i]
		}
		if i < len(parsed.Daily.TemperatureMin) {
			day.TemperatureMin = parsed.Daily.TemperatureMin[i]
		}
		if i < len(parsed.Daily.PrecipitationProbability) {
			day.PrecipitationProbability = parsed.Daily.PrecipitationProbability[i]
		}
		if i < len(parsed.Daily.WeatherCode) {
			day.WeatherCode = parsed.Daily.WeatherCode[i]
			day.Description = DescribeCode(day.WeatherCode)
		}
		forecast.Daily = append(forecast.Daily, day)
	}

	return forecast, nil
}

// get はGETリクエストを実行する。一時的な失敗に備えて1回だけ再試行する。
func (c *Client) get(ctx context.Context, requestURL string) ([]byte, error) {
	var lastErr error
	for attempt := 0; attempt < 2; attempt++ {
		if attempt > 0 {
			slog.Debug("retrying weather request", slog.Int("attempt", attempt))
		}

		body, err := c.doGet(ctx, requestURL)
		if err == nil {
			return body, nil
		}
		lastErr = err

		if ctx.Err() != nil {
			break
		}
	}
	if c.metrics != nil {
		c.metrics.RecordUpstreamFailure(serviceName, lastErr.Error())
	}
	return nil, lastErr
}

func (c *Client) doGet(ctx context.Context, requestURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create weather request: %w", err)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if c.metrics != nil {
		c.metrics.RecordUpstreamLatency(serviceName, time.Since(start))
	}
	if err != nil {
		return nil, fmt.Errorf("weather request failed: %w", err)
	}
	defer resp.Body.Close()

	if c.metrics != nil {
		c.metrics.RecordUpstreamStatus(serviceName, resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("weather request failed with status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("failed to read weather response: %w", err)
	}
	return body, nil
}

// compile-time interface check
var _ ForecastProvider = (*Client)(nil)
