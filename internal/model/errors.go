// Package model はドメインモデルを定義する。
package model

import "fmt"

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: auth, validation, market, system
	Action   string // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeDuplicateEmail      = "DUPLICATE_EMAIL"
	ErrCodeInvalidCredentials  = "INVALID_CREDENTIALS"
	ErrCodeUnauthenticated     = "UNAUTHENTICATED"
	ErrCodeMarketNotFound      = "MARKET_NOT_FOUND"
	ErrCodeUserNotFound        = "USER_NOT_FOUND"
	ErrCodeUpstreamUnavailable = "UPSTREAM_UNAVAILABLE"
	ErrCodeValidation          = "VALIDATION_ERROR"
	ErrCodeSessionLimit        = "SESSION_LIMIT"
)

// NewSessionLimitError は同時セッション数上限エラーを生成する。
// セッション上限ポリシーがreject-newの場合にのみ返される。
func NewSessionLimitError() *APIError {
	return &APIError{
		Code:     ErrCodeSessionLimit,
		Message:  "Too many active sessions",
		Category: "auth",
		Action:   "Log out from another device and try again.",
	}
}

// NewDuplicateEmailError はメールアドレス重複エラーを生成する。
func NewDuplicateEmailError() *APIError {
	return &APIError{
		Code:     ErrCodeDuplicateEmail,
		Message:  "Email already exists",
		Category: "auth",
		Action:   "Use a different email address or log in with the existing account.",
	}
}

// NewInvalidCredentialsError は認証情報不一致エラーを生成する。
// 未登録メール・無効化済みユーザー・パスワード不一致のいずれでも同じエラーを返し、
// アカウントの存在有無を漏らさない。
func NewInvalidCredentialsError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidCredentials,
		Message:  "Invalid email or password",
		Category: "auth",
		Action:   "Check your email and password and try again.",
	}
}

// NewUnauthenticatedError は未認証エラーを生成する。
func NewUnauthenticatedError() *APIError {
	return &APIError{
		Code:     ErrCodeUnauthenticated,
		Message:  "Not authenticated",
		Category: "auth",
		Action:   "Log in and try again.",
	}
}

// NewMarketNotFoundError は市場未検出エラーを生成する。
func NewMarketNotFoundError(marketID string) *APIError {
	return &APIError{
		Code:     ErrCodeMarketNotFound,
		Message:  fmt.Sprintf("Market not found: %s", marketID),
		Category: "market",
		Action:   "Check the market ID.",
	}
}

// NewUserNotFoundError はユーザーが見つからない場合のエラーを生成する。
func NewUserNotFoundError() *APIError {
	return &APIError{
		Code:     ErrCodeUserNotFound,
		Message:  "User not found",
		Category: "auth",
		Action:   "Log in again.",
	}
}

// NewUpstreamUnavailableError は外部サービス呼び出し失敗エラーを生成する。
func NewUpstreamUnavailableError(service string) *APIError {
	return &APIError{
		Code:     ErrCodeUpstreamUnavailable,
		Message:  fmt.Sprintf("Upstream service unavailable: %s", service),
		Category: "system",
		Action:   "Wait a moment and try again.",
	}
}

// NewValidationError は入力検証エラーを生成する。
func NewValidationError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeValidation,
		Message:  reason,
		Category: "validation",
		Action:   "Check the request parameters.",
	}
}

// NewInvalidCrowdLevelError は無効な混雑度指定エラーを生成する。
func NewInvalidCrowdLevelError(value string) *APIError {
	return &APIError{
		Code:     ErrCodeValidation,
		Message:  fmt.Sprintf("Invalid crowd level: %s", value),
		Category: "validation",
		Action:   "Specify one of LOW, MEDIUM, or HIGH.",
	}
}

// NewInvalidTimeBucketError は無効な時間帯指定エラーを生成する。
func NewInvalidTimeBucketError(value string) *APIError {
	return &APIError{
		Code:     ErrCodeValidation,
		Message:  fmt.Sprintf("Invalid time bucket: %s", value),
		Category: "validation",
		Action:   "Specify one of MORNING, AFTERNOON, or EVENING.",
	}
}
