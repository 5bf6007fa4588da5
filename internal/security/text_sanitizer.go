// Package security はアプリケーションのセキュリティ機能を提供する。
//
// TextSanitizerService は市場の自由記述フィールド（説明、特産品、見どころ）を
// サニタイズし、XSS攻撃などのセキュリティリスクからユーザーを保護する。
// これらのフィールドはプレーンテキストとして扱うため、
// bluemondayのStrictPolicyで全てのHTMLタグを除去する。
package security

import (
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// TextSanitizerService はテキストサニタイズ機能のインターフェースを定義する。
// 市場の作成・インポート時、自由記述フィールドの保存前に使用される。
type TextSanitizerService interface {
	// Sanitize は入力から全てのHTMLタグを除去したプレーンテキストを返す。
	// script, iframe, style等のタグとon*イベント属性は内容ごと、
	// またはタグのみが除去される。前後の空白も取り除く。
	// 空文字列の入力には空文字列を返す。
	// 同一入力に対して常に同一出力を返す（冪等）。
	Sanitize(raw string) string

	// SanitizeMarketText は市場の自由記述3フィールドをまとめてサニタイズする。
	SanitizeMarketText(description, specialties, highlights string) (string, string, string)
}

// textSanitizer はTextSanitizerServiceの実装。
// bluemondayのポリシーを保持し、スレッドセーフにサニタイズ処理を行う。
type textSanitizer struct {
	policy *bluemonday.Policy
}

// NewTextSanitizer はTextSanitizerServiceの新しいインスタンスを生成する。
// StrictPolicyは許可タグを一切持たないため、全てのHTMLが除去される。
func NewTextSanitizer() *textSanitizer {
	return &textSanitizer{
		policy: bluemonday.StrictPolicy(),
	}
}

// Sanitize は入力から全てのHTMLタグを除去したプレーンテキストを返す。
func (s *textSanitizer) Sanitize(raw string) string {
	return strings.TrimSpace(s.policy.Sanitize(raw))
}

// SanitizeMarketText は市場の自由記述3フィールドをまとめてサニタイズする。
func (s *textSanitizer) SanitizeMarketText(description, specialties, highlights string) (string, string, string) {
	return s.Sanitize(description), s.Sanitize(specialties), s.Sanitize(highlights)
}

// compile-time interface check
var _ TextSanitizerService = (*textSanitizer)(nil)
