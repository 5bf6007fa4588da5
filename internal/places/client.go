// Package places は外部カタログ（Google Places API）との連携を提供する。
// 市場の連絡先・写真の取得と、カタログへのベストエフォート同期を担う。
package places

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/hitoshi/ichiba/internal/metrics"
	"github.com/hitoshi/ichiba/internal/security"
)

// maxResponseSize は外部カタログレスポンスの最大サイズ（1MB）。
const maxResponseSize = 1 * 1024 * 1024

// photoMaxWidth は写真URLに指定する最大幅（px）。
const photoMaxWidth = 400

// serviceName はメトリクスのサービスラベル。
const serviceName = "places"

// PlaceDetails は外部カタログから取得した市場の詳細情報。
type PlaceDetails struct {
	PhoneNumber     string
	Website         string
	PhotoReferences []string
}

// DetailsProvider は外部カタログの詳細取得インターフェース。
type DetailsProvider interface {
	// FetchDetails は外部カタログ参照IDの詳細を取得する。
	// APIキーまたは参照IDが空の場合は空の詳細を返す（エラーにしない）。
	FetchDetails(ctx context.Context, placeID string) (*PlaceDetails, error)
}

// ClientConfig はClientの設定。
type ClientConfig struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

// Client はGoogle Places APIのクライアント。
// 呼び出しはSSRF防止付きクライアントで行い、失敗時は1回だけ再試行する。
type Client struct {
	baseURL    string
	apiKey     string
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
		apiKey:     config.APIKey,
		httpClient: httpClient,
		metrics:    collector,
	}
}

// detailsResponse はPlace Details APIのレスポンス。
type detailsResponse struct {
	Status string `json:"status"`
	Result struct {
		FormattedPhoneNumber string `json:"formatted_phone_number"`
		Website              string `json:"website"`
		Photos               []struct {
			PhotoReference string `json:"photo_reference"`
		} `json:"photos"`
	} `json:"result"`
}

// FetchDetails は外部カタログ参照IDの詳細（電話番号・ウェブサイト・写真参照）を取得する。
// APIキーまたは参照IDが空の場合は空の詳細を返す。
func (c *Client) FetchDetails(ctx context.Context, placeID string) (*PlaceDetails, error) {
	if c.apiKey == "" || placeID == "" {
		return &PlaceDetails{}, nil
	}

	query := url.Values{}
	query.Set("place_id", placeID)
	query.Set("fields", "formatted_phone_number,website,photos")
	query.Set("key", c.apiKey)
	requestURL := fmt.Sprintf("%s/details/json?%s", c.baseURL, query.Encode())

	body, err := c.get(ctx, requestURL)
	if err != nil {
		return nil, err
	}

	var parsed detailsResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse place details response: %w", err)
	}
	if parsed.Status != "OK" && parsed.Status != "ZERO_RESULTS" {
		return nil, fmt.Errorf("place details request failed with status %s", parsed.Status)
	}

	details := &PlaceDetails{
		PhoneNumber: parsed.Result.FormattedPhoneNumber,
		Website:     parsed.Result.Website,
	}
	for _, photo := range parsed.Result.Photos {
		if photo.PhotoReference != "" {
			details.PhotoReferences = append(details.PhotoReferences, photo.PhotoReference)
		}
	}
	return details, nil
}

// PhotoURLs は外部カタログ参照IDに紐づく写真URLを最大limit件返す。
// 写真バイナリへはリダイレクトURLを返し、本体の取得はクライアント側に任せる。
func (c *Client) PhotoURLs(ctx context.Context, placeID string, limit int) ([]string, error) {
	if c.apiKey == "" || placeID == "" {
		return []string{}, nil
	}

	details, err := c.FetchDetails(ctx, placeID)
	if err != nil {
		return nil, err
	}

	refs := details.PhotoReferences
	if limit > 0 && len(refs) > limit {
		refs = refs[:limit]
	}

	urls := make([]string, len(refs))
	for i, ref := range refs {
		query := url.Values{}
		query.Set("maxwidth", fmt.Sprintf("%d", photoMaxWidth))
		query.Set("photo_reference", ref)
		query.Set("key", c.apiKey)
		urls[i] = fmt.Sprintf("%s/photo?%s", c.baseURL, query.Encode())
	}
	return urls, nil
}

// get はGETリクエストを実行する。一時的な失敗に備えて1回だけ再試行する。
func (c *Client) get(ctx context.Context, requestURL string) ([]byte, error) {
	var lastErr error
	for attempt := 0; attempt < 2; attempt++ {
		if attempt > 0 {
			slog.Debug("retrying places request", slog.Int("attempt", attempt))
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
		return nil, fmt.Errorf("failed to create places request: %w", err)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if c.metrics != nil {
		c.metrics.RecordUpstreamLatency(serviceName, time.Since(start))
	}
	if err != nil {
		return nil, fmt.Errorf("places request failed: %w", err)
	}
	defer resp.Body.Close()

	if c.metrics != nil {
		c.metrics.RecordUpstreamStatus(serviceName, resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("places request failed with status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("failed to read places response: %w", err)
	}
	return body, nil
}

// compile-time interface check
var _ DetailsProvider = (*Client)(nil)
