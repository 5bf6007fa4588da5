package places

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/net/html"

	"github.com/hitoshi/ichiba/internal/security"
)

// maxFaviconSize はfaviconの最大サイズ（2MB）。
const maxFaviconSize = 2 * 1024 * 1024

// maxFaviconHTMLSize はアイコン探索で読み込むHTMLの最大サイズ（512KB）。
const maxFaviconHTMLSize = 512 * 1024

// faviconTimeout はfavicon取得のタイムアウト。
const faviconTimeout = 5 * time.Second

// FaviconFetcherService は市場ウェブサイトからのfavicon取得インターフェース。
type FaviconFetcherService interface {
	// FetchForWebsite は市場ウェブサイトのfaviconを取得する。
	// HTMLの<link rel="icon">を探索し、見つからなければ/favicon.icoを試行する。
	// 取得失敗時はnilデータと空MIMEを返す（エラーは返さない）。
	FetchForWebsite(ctx context.Context, websiteURL string) (data []byte, mimeType string, err error)
}

// FaviconFetcher はfavicon取得機能の実装。
type FaviconFetcher struct {
	ssrfGuard security.SSRFGuardService
}

// NewFaviconFetcher はFaviconFetcherの新しいインスタンスを生成する。
func NewFaviconFetcher(ssrfGuard security.SSRFGuardService) *FaviconFetcher {
	return &FaviconFetcher{
		ssrfGuard: ssrfGuard,
	}
}

// FetchForWebsite は市場ウェブサイトのfaviconを取得する。
// ウェブサイトのHTMLから<link rel="icon">を探索し、
// 見つからない場合は/favicon.icoにフォールバックする。
// 同期処理から呼ばれるため、どの失敗でもエラーにせずnilを返す。
func (f *FaviconFetcher) FetchForWebsite(ctx context.Context, websiteURL string) ([]byte, string, error) {
	if websiteURL == "" {
		return nil, "", nil
	}

	if iconURL := f.discoverIconLink(ctx, websiteURL); iconURL != "" {
		if data, mime := f.fetchIcon(ctx, iconURL); data != nil {
			return data, mime, nil
		}
	}

	fallback := defaultFaviconURL(websiteURL)
	if fallback == "" {
		return nil, "", nil
	}
	data, mime := f.fetchIcon(ctx, fallback)
	return data, mime, nil
}

// discoverIconLink はウェブサイトのHTMLから<link rel="icon">のURLを探索する。
// 見つからない・取得できない場合は空文字を返す。
func (f *FaviconFetcher) discoverIconLink(ctx context.Context, websiteURL string) string {
	if f.ssrfGuard != nil {
		if err := f.ssrfGuard.ValidateURL(websiteURL); err != nil {
			slog.Warn("favicon discovery blocked by SSRF guard", "url", websiteURL, "error", err)
			return ""
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, websiteURL, nil)
	if err != nil {
		return ""
	}
	req.Header.Set("User-Agent", "Ichiba/1.0 Market Catalog")

	resp, err := f.httpClient().Do(req)
	if err != nil {
		slog.Warn("favicon discovery request failed", "url", websiteURL, "error", err)
		return ""
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return ""
	}

	href := findIconHref(io.LimitReader(resp.Body, maxFaviconHTMLSize))
	if href == "" {
		return ""
	}

	base, err := url.Parse(websiteURL)
	if err != nil {
		return ""
	}
	ref, err := url.Parse(href)
	if err != nil {
		return ""
	}
	return base.ResolveReference(ref).String()
}

// findIconHref はHTMLストリームから最初の<link rel="icon">のhrefを返す。
func findIconHref(r io.Reader) string {
	tokenizer := html.NewTokenizer(r)
	for {
		tokenType := tokenizer.Next()
		switch tokenType {
		case html.ErrorToken:
			return ""
		case html.StartTagToken, html.SelfClosingTagToken:
			token := tokenizer.Token()
			if token.Data != "link" {
				// <head>を抜けたら打ち切る
				if token.Data == "body" {
					return ""
				}
				continue
			}
			var rel, href string
			for _, attr := range token.Attr {
				switch attr.Key {
				case "rel":
					rel = strings.ToLower(attr.Val)
				case "href":
					href = attr.Val
				}
			}
			if href != "" && (rel == "icon" || rel == "shortcut icon" || rel == "apple-touch-icon") {
				return href
			}
		}
	}
}

// fetchIcon は指定URLからアイコン画像を取得する。
// 失敗時はnilと空MIMEを返す。
func (f *FaviconFetcher) fetchIcon(ctx context.Context, iconURL string) ([]byte, string) {
	if f.ssrfGuard != nil {
		if err := f.ssrfGuard.ValidateURL(iconURL); err != nil {
			slog.Warn("favicon fetch blocked by SSRF guard", "url", iconURL, "error", err)
			return nil, ""
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, iconURL, nil)
	if err != nil {
		return nil, ""
	}
	req.Header.Set("User-Agent", "Ichiba/1.0 Market Catalog")

	resp, err := f.httpClient().Do(req)
	if err != nil {
		slog.Warn("favicon fetch failed", "url", iconURL, "error", err)
		return nil, ""
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		slog.Warn("favicon fetch returned non-2xx", "url", iconURL, "status", resp.StatusCode)
		return nil, ""
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxFaviconSize+1))
	if err != nil {
		return nil, ""
	}
	if int64(len(body)) > maxFaviconSize {
		slog.Warn("favicon exceeds size limit", "url", iconURL, "size", len(body))
		return nil, ""
	}

	mimeType := extractMimeType(resp.Header.Get("Content-Type"))
	if !isImageMime(mimeType) {
		slog.Warn("favicon has non-image content type", "url", iconURL, "contentType", mimeType)
		return nil, ""
	}

	return body, mimeType
}

func (f *FaviconFetcher) httpClient() *http.Client {
	if f.ssrfGuard != nil {
		return f.ssrfGuard.NewSafeClient(faviconTimeout, maxFaviconSize)
	}
	return &http.Client{Timeout: faviconTimeout}
}

// defaultFaviconURL はウェブサイトURLから/favicon.icoのURLを組み立てる。
func defaultFaviconURL(websiteURL string) string {
	u, err := url.Parse(websiteURL)
	if err != nil {
		return ""
	}
	u.Path = "/favicon.ico"
	u.RawQuery = ""
	u.Fragment = ""
	return u.String()
}

// extractMimeType はContent-Typeヘッダーからメディアタイプを抽出する。
func extractMimeType(contentType string) string {
	if contentType == "" {
		return ""
	}
	parts := strings.SplitN(contentType, ";", 2)
	return strings.TrimSpace(strings.ToLower(parts[0]))
}

// isImageMime はMIMEタイプが画像かどうかを判定する。
func isImageMime(mimeType string) bool {
	return strings.HasPrefix(mimeType, "image/")
}

// compile-time interface check
var _ FaviconFetcherService = (*FaviconFetcher)(nil)
